package clock_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/KirkDiggler/rpg-codex/internal/pkg/clock"
)

func TestFakeAdvance(t *testing.T) {
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	c := clock.NewFake(start)

	assert.Equal(t, start, c.Now())

	c.Advance(5 * time.Minute)
	assert.Equal(t, start.Add(5*time.Minute), c.Now())

	c.Set(start)
	assert.Equal(t, start, c.Now())
}

func TestFakeAfterAdvances(t *testing.T) {
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	c := clock.NewFake(start)

	fired := <-c.After(2 * time.Second)
	assert.Equal(t, start.Add(2*time.Second), fired)
	<-c.After(time.Second)

	assert.Equal(t, start.Add(3*time.Second), c.Now())
	assert.Equal(t, []time.Duration{2 * time.Second, time.Second}, c.Waits())
}

func TestRealClockMovesForward(t *testing.T) {
	c := clock.New()
	first := c.Now()
	assert.False(t, c.Now().Before(first))
}
