package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManualClock(t *testing.T) {
	start := time.Unix(1_700_000_000, 0)
	c := NewManualClock(start)

	assert.Equal(t, start, c.Now())
	assert.Equal(t, start.Add(time.Minute), c.Advance(time.Minute))

	c.Set(start)
	assert.Equal(t, start, c.Now())
}

func TestSystemClock(t *testing.T) {
	before := time.Now()
	assert.False(t, SystemClock().Now().Before(before))
}
