package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestActivationStatus_Terminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusRunning.Terminal())
	assert.True(t, StatusSucceeded.Terminal())
	assert.True(t, StatusFailed.Terminal())
}

func TestActivationRecord_Duration(t *testing.T) {
	var rec ActivationRecord
	assert.Zero(t, rec.Duration())

	rec.StartedAt = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	assert.Zero(t, rec.Duration())

	rec.CompletedAt = rec.StartedAt.Add(1500 * time.Millisecond)
	assert.Equal(t, 1500*time.Millisecond, rec.Duration())
}

func TestServiceBinding_Bound(t *testing.T) {
	b := ServiceBinding{Param: "llm_service", Service: ServiceLLM, Source: SourceDefaultProvider, Handle: struct{}{}}
	assert.True(t, b.Bound())

	b.Handle = nil
	assert.False(t, b.Bound())

	b = ServiceBinding{Param: "storage", Service: ServiceStorage, Source: SourceUnavailable}
	assert.False(t, b.Bound())
}
