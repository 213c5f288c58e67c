package trend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rankmarg/mastery/store"
)

func attempt(correct bool, timeSec float64) store.Attempt {
	a := store.Attempt{IsCorrect: correct}
	if timeSec > 0 {
		a.TimingSec = &timeSec
	}
	return a
}

func TestComputeEmpty(t *testing.T) {
	tr := Compute(nil)
	assert.Zero(t, tr.AccuracyDelta)
	assert.Zero(t, tr.ImprovementRate)
	assert.Equal(t, 0.5, tr.Consistency)
}

func TestComputeTinyWindow(t *testing.T) {
	tr := Compute([]store.Attempt{attempt(true, 60), attempt(false, 80)})
	assert.Equal(t, 0.5, tr.RecentAccuracy)
	assert.Zero(t, tr.AccuracyDelta)
	assert.Equal(t, tr.RecentAccuracy, tr.PriorAccuracy)
}

func TestComputeImprovement(t *testing.T) {
	// Older half all wrong and slow, recent half all correct and fast.
	attempts := []store.Attempt{
		attempt(true, 50), attempt(true, 55), attempt(true, 60), attempt(true, 50),
		attempt(false, 110), attempt(false, 120), attempt(false, 100), attempt(false, 130),
	}
	tr := Compute(attempts)
	assert.Equal(t, 1.0, tr.RecentAccuracy)
	assert.Equal(t, 0.0, tr.PriorAccuracy)
	assert.Equal(t, 1.0, tr.AccuracyDelta)
	assert.Greater(t, tr.SpeedDelta, 0.0)
	assert.Greater(t, tr.ImprovementRate, 0.7)
	assert.Equal(t, tr.ImprovementRate, tr.Velocity())
}

func TestComputeDecline(t *testing.T) {
	attempts := []store.Attempt{
		attempt(false, 120), attempt(false, 130), attempt(false, 140), attempt(false, 120),
		attempt(true, 60), attempt(true, 55), attempt(true, 70), attempt(true, 65),
	}
	tr := Compute(attempts)
	assert.Equal(t, -1.0, tr.AccuracyDelta)
	assert.Less(t, tr.SpeedDelta, 0.0)
	assert.Less(t, tr.ImprovementRate, -0.5)
}

func TestConsistencySteadyVsStreaky(t *testing.T) {
	steady := make([]store.Attempt, 20)
	for i := range steady {
		steady[i] = attempt(i%2 == 0, 60)
	}
	streaky := make([]store.Attempt, 20)
	for i := range streaky {
		streaky[i] = attempt(i < 10, 60)
	}
	require.Greater(t, Compute(steady).Consistency, Compute(streaky).Consistency)
}

func TestUntimedAttemptsIgnoredInAverages(t *testing.T) {
	attempts := []store.Attempt{
		attempt(true, 60), attempt(true, 0), attempt(true, 0), attempt(true, 0),
	}
	tr := Compute(attempts)
	assert.Equal(t, 60.0, tr.RecentAvgTimeSec)
}

func TestBounds(t *testing.T) {
	attempts := make([]store.Attempt, 30)
	for i := range attempts {
		attempts[i] = attempt(i%3 != 0, float64(30+i*10))
	}
	tr := Compute(attempts)
	require.GreaterOrEqual(t, tr.Consistency, 0.0)
	require.LessOrEqual(t, tr.Consistency, 1.0)
	require.GreaterOrEqual(t, tr.ImprovementRate, -1.0)
	require.LessOrEqual(t, tr.ImprovementRate, 1.0)
	require.GreaterOrEqual(t, tr.SpeedDelta, -1.0)
	require.LessOrEqual(t, tr.SpeedDelta, 1.0)
}
