package monitoring

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func changedEvent(id string) TransitionEvent {
	previous := "running"
	return TransitionEvent{WorkloadID: id, PreviousStatus: &previous, Status: "error", Changed: true}
}

func TestChangeNotifier_OnlyChangedEventsDispatched(t *testing.T) {
	var received []string
	handler := ChangeHandlerFunc(func(ctx context.Context, event TransitionEvent) error {
		received = append(received, event.WorkloadID)
		return nil
	})
	notifier := NewChangeNotifier(handler, zaptest.NewLogger(t).Sugar())

	failures, undelivered := notifier.Dispatch(context.Background(), []TransitionEvent{
		changedEvent("c1"),
		{WorkloadID: "c2", Status: "done"},
		changedEvent("c3"),
	})

	assert.Empty(t, failures)
	assert.Empty(t, undelivered)
	assert.Equal(t, []string{"c1", "c3"}, received)
}

func TestChangeNotifier_HandlerFailuresAreContained(t *testing.T) {
	var received []string
	handler := ChangeHandlerFunc(func(ctx context.Context, event TransitionEvent) error {
		received = append(received, event.WorkloadID)
		switch event.WorkloadID {
		case "c1":
			return errors.New("webhook unreachable")
		case "c2":
			panic("handler bug")
		}
		return nil
	})
	notifier := NewChangeNotifier(handler, zaptest.NewLogger(t).Sugar())

	failures, undelivered := notifier.Dispatch(context.Background(), []TransitionEvent{
		changedEvent("c1"), changedEvent("c2"), changedEvent("c3"),
	})

	assert.Equal(t, []string{"c1", "c2", "c3"}, received)
	assert.Empty(t, undelivered)
	require.Len(t, failures, 2)
	for _, failure := range failures {
		var callbackErr *CallbackError
		assert.True(t, errors.As(failure, &callbackErr))
	}
	assert.Contains(t, failures[0].Error(), "webhook unreachable")
	assert.Contains(t, failures[1].Error(), "handler bug")
}

func TestChangeNotifier_WithoutHandler(t *testing.T) {
	notifier := NewChangeNotifier(nil, zaptest.NewLogger(t).Sugar())

	failures, undelivered := notifier.Dispatch(context.Background(), []TransitionEvent{changedEvent("c1")})

	assert.Empty(t, failures)
	assert.Empty(t, undelivered)
}

func TestChangeNotifier_CancellationLeavesEventsUndelivered(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var received []string
	handler := ChangeHandlerFunc(func(ctx context.Context, event TransitionEvent) error {
		received = append(received, event.WorkloadID)
		if event.WorkloadID == "c2" {
			cancel()
			return ctx.Err()
		}
		return nil
	})
	notifier := NewChangeNotifier(handler, zaptest.NewLogger(t).Sugar())

	failures, undelivered := notifier.Dispatch(ctx, []TransitionEvent{
		changedEvent("c1"), changedEvent("c2"), changedEvent("c3"),
	})

	assert.Empty(t, failures)
	assert.Equal(t, []string{"c1", "c2"}, received)
	require.Len(t, undelivered, 2)
	assert.Equal(t, "c2", undelivered[0].WorkloadID)
	assert.Equal(t, "c3", undelivered[1].WorkloadID)
}

func TestChannelHandler(t *testing.T) {
	handler := NewChannelHandler(1)

	require.NoError(t, handler.OnStatusChange(context.Background(), changedEvent("c1")))
	err := handler.OnStatusChange(context.Background(), changedEvent("c2"))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "channel full")

	event := <-handler.Events()
	assert.Equal(t, "c1", event.WorkloadID)
}
