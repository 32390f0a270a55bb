package pointers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPtr_CopiesValue(t *testing.T) {
	status := "running"
	ptr := Ptr(status)
	status = "error"

	assert.Equal(t, "running", *ptr)
}

func TestDeref(t *testing.T) {
	assert.Equal(t, "done", Deref(Ptr("done")))
	assert.Equal(t, "", Deref((*string)(nil)))
	assert.Equal(t, 0, Deref((*int)(nil)))
}

func TestDerefOr(t *testing.T) {
	assert.Equal(t, "idle", DerefOr(Ptr("idle"), "-"))
	assert.Equal(t, "-", DerefOr(nil, "-"))
}
