package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestContextWithTestDeadline_WithFallback(t *testing.T) {
	fallback := 100 * time.Millisecond
	ctx, cancel := ContextWithTestDeadline(t, fallback)
	defer cancel()

	deadline, ok := ctx.Deadline()
	assert.True(t, ok, "context should have deadline")
	assert.Greater(t, time.Until(deadline), time.Duration(0), "deadline should be in the future")
	assert.LessOrEqual(t, time.Until(deadline), fallback)
}

func TestContextWithTestDeadlineBuffer_WithFallback(t *testing.T) {
	fallback := 200 * time.Millisecond
	buffer := 50 * time.Millisecond

	ctx, cancel := ContextWithTestDeadlineBuffer(t, fallback, buffer)
	defer cancel()

	deadline, ok := ctx.Deadline()
	assert.True(t, ok, "context should have deadline")
	remaining := time.Until(deadline)
	assert.Greater(t, remaining, time.Duration(0))
	assert.LessOrEqual(t, remaining, fallback)
}

func TestContextWithTestDeadline_Cancel(t *testing.T) {
	ctx, cancel := ContextWithTestDeadline(t, time.Minute)
	cancel()

	select {
	case <-ctx.Done():
	default:
		t.Fatal("context should be done after cancel")
	}
}

func TestStreamContext(t *testing.T) {
	ctx, cancel := StreamContext(t)
	defer cancel()

	deadline, ok := ctx.Deadline()
	assert.True(t, ok)
	assert.LessOrEqual(t, time.Until(deadline), DefaultStreamTimeout)
}
