package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNowMsIsMonotonicIncreasing(t *testing.T) {
	a := nowMs()
	time.Sleep(time.Millisecond)
	b := nowMs()
	assert.Greater(t, b, a)
}

func TestStatsZeroValue(t *testing.T) {
	var s Stats
	assert.Equal(t, int64(0), s.Waiting)
	assert.Equal(t, int64(0), s.Delayed)
	assert.Equal(t, int64(0), s.Active)
	assert.Equal(t, int64(0), s.Failed)
}
