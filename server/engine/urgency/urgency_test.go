package urgency

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rankmarg/mastery/server/engine/phase"
)

func TestClassify(t *testing.T) {
	w := DefaultWindows()

	tests := []struct {
		days int
		want Level
	}{
		{-1, None},
		{0, Critical},
		{5, Critical},
		{7, Critical},
		{8, High},
		{21, High},
		{22, Medium},
		{45, Medium},
		{46, Low},
		{90, Low},
		{91, None},
		{365, None},
	}

	for _, tt := range tests {
		require.Equal(t, tt.want, Classify(tt.days, w), "days=%d", tt.days)
	}
}

func TestMultiplierCriticalWeakTopic(t *testing.T) {
	// Five days out with mastery 40 must compress aggressively.
	require.Equal(t, Critical, Classify(5, DefaultWindows()))
	for p := phase.Acquisition; p <= phase.Maintenance; p++ {
		m := Multiplier(Critical, p, 40)
		require.LessOrEqual(t, m, 0.4, "phase=%s", p)
		require.GreaterOrEqual(t, m, 0.2)
	}
}

func TestMultiplierBounds(t *testing.T) {
	for l := None; l <= Critical; l++ {
		for p := phase.Acquisition; p <= phase.Maintenance; p++ {
			for _, mastery := range []int{0, 30, 50, 70, 90, 100} {
				m := Multiplier(l, p, mastery)
				require.GreaterOrEqual(t, m, 0.2)
				require.LessOrEqual(t, m, 1.0)
			}
		}
	}
}

func TestMultiplierOrdering(t *testing.T) {
	// Sharper tiers never stretch intervals relative to calmer ones.
	for _, mastery := range []int{20, 55, 85} {
		prev := Multiplier(None, phase.Proficiency, mastery)
		for l := Low; l <= Critical; l++ {
			cur := Multiplier(l, phase.Proficiency, mastery)
			require.LessOrEqual(t, cur, prev, "level=%s mastery=%d", l, mastery)
			prev = cur
		}
	}
}

func TestLevelString(t *testing.T) {
	require.Equal(t, "CRITICAL", Critical.String())
	require.Equal(t, "NONE", None.String())
	require.True(t, High.IsUrgent())
	require.False(t, Medium.IsUrgent())
}
