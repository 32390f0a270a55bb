package monitoring

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// ChangeHandler receives transition events whose status changed.
type ChangeHandler interface {
	OnStatusChange(ctx context.Context, event TransitionEvent) error
}

// ChangeHandlerFunc adapts a plain function to ChangeHandler.
type ChangeHandlerFunc func(ctx context.Context, event TransitionEvent) error

func (f ChangeHandlerFunc) OnStatusChange(ctx context.Context, event TransitionEvent) error {
	return f(ctx, event)
}

// ChannelHandler delivers events on a buffered channel. A full buffer is
// reported as a handler failure instead of blocking the cycle.
type ChannelHandler struct {
	events chan TransitionEvent
}

func NewChannelHandler(buffer int) *ChannelHandler {
	return &ChannelHandler{events: make(chan TransitionEvent, buffer)}
}

// Events returns the receive side of the channel.
func (h *ChannelHandler) Events() <-chan TransitionEvent {
	return h.events
}

func (h *ChannelHandler) OnStatusChange(ctx context.Context, event TransitionEvent) error {
	select {
	case h.events <- event:
		return nil
	default:
		return fmt.Errorf("event channel full (capacity %d)", cap(h.events))
	}
}

// ChangeNotifier dispatches changed events to a single handler and contains
// every handler failure.
type ChangeNotifier struct {
	handler ChangeHandler
	log     *zap.SugaredLogger
}

func NewChangeNotifier(handler ChangeHandler, log *zap.SugaredLogger) *ChangeNotifier {
	return &ChangeNotifier{
		handler: handler,
		log:     log,
	}
}

// Dispatch invokes the handler for every changed event and returns the
// handler failures. Without a handler the events are only recorded.
//
// Once ctx is cancelled the remaining changed events are not handed out; they
// are returned as undelivered together with the event whose handler failed
// because of the cancellation.
func (n *ChangeNotifier) Dispatch(ctx context.Context, events []TransitionEvent) (failures []error, undelivered []TransitionEvent) {
	for _, event := range events {
		if !event.Changed {
			continue
		}

		if n.handler == nil {
			n.log.Debugw("Status change recorded, no handler registered",
				"workloadId", event.WorkloadID,
				"previous", event.Previous(),
				"status", event.Status)
			continue
		}

		if ctx.Err() != nil {
			undelivered = append(undelivered, event)
			continue
		}

		if err := n.invoke(ctx, event); err != nil {
			if ctx.Err() != nil {
				n.log.Debugw("Change handler interrupted by cancellation", "workloadId", event.WorkloadID, "error", err)
				undelivered = append(undelivered, event)
				continue
			}
			n.log.Errorw("Change handler failed", "workloadId", event.WorkloadID, "error", err)
			failures = append(failures, err)
		}
	}

	return failures, undelivered
}

func (n *ChangeNotifier) invoke(ctx context.Context, event TransitionEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &CallbackError{WorkloadID: event.WorkloadID, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	if handlerErr := n.handler.OnStatusChange(ctx, event); handlerErr != nil {
		return &CallbackError{WorkloadID: event.WorkloadID, Err: handlerErr}
	}
	return nil
}
