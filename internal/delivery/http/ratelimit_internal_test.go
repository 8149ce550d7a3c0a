package http

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_SweepEvictsIdleClients(t *testing.T) {
	rl := NewRateLimiter(10)
	rl.getLimiter("10.0.0.1")
	rl.getLimiter("10.0.0.2")
	rl.limiters["10.0.0.1"].lastSeen = time.Now().Add(-2 * time.Hour)

	rl.sweep(time.Now())

	assert.NotContains(t, rl.limiters, "10.0.0.1")
	assert.Contains(t, rl.limiters, "10.0.0.2")
}
