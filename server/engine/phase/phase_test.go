package phase

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	th := DefaultThresholds()

	tests := []struct {
		name string
		in   ClassifyInput
		want Phase
	}{
		{
			name: "fresh topic defaults to acquisition",
			in:   ClassifyInput{},
			want: Acquisition,
		},
		{
			name: "all gates at maintenance",
			in:   ClassifyInput{TotalAttempts: 40, MasteryLevel: 96, CompletedReviews: 16, ConsecutiveCorrect: 9, RetentionStrength: 0.93},
			want: Maintenance,
		},
		{
			name: "maintenance blocked below three attempts",
			in:   ClassifyInput{TotalAttempts: 2, MasteryLevel: 99, CompletedReviews: 20, ConsecutiveCorrect: 12, RetentionStrength: 0.99},
			want: Acquisition,
		},
		{
			name: "mastery gates met but not maintenance",
			in:   ClassifyInput{TotalAttempts: 20, MasteryLevel: 88, CompletedReviews: 11, ConsecutiveCorrect: 6, RetentionStrength: 0.82},
			want: Mastery,
		},
		{
			name: "proficiency",
			in:   ClassifyInput{TotalAttempts: 10, MasteryLevel: 72, CompletedReviews: 8, ConsecutiveCorrect: 4, RetentionStrength: 0.71},
			want: Proficiency,
		},
		{
			name: "consolidation",
			in:   ClassifyInput{TotalAttempts: 6, MasteryLevel: 55, CompletedReviews: 5, ConsecutiveCorrect: 2, RetentionStrength: 0.6},
			want: Consolidation,
		},
		{
			name: "one failed gate drops to the next phase down",
			in:   ClassifyInput{TotalAttempts: 20, MasteryLevel: 96, CompletedReviews: 15, ConsecutiveCorrect: 7, RetentionStrength: 0.95},
			want: Mastery,
		},
		{
			name: "broken streak can drop several phases",
			in:   ClassifyInput{TotalAttempts: 30, MasteryLevel: 97, CompletedReviews: 18, ConsecutiveCorrect: 1, RetentionStrength: 0.92},
			want: Acquisition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Classify(tt.in, th))
		})
	}
}

func TestClassifyMonotoneInMastery(t *testing.T) {
	th := DefaultThresholds()
	in := ClassifyInput{TotalAttempts: 25, CompletedReviews: 16, ConsecutiveCorrect: 9, RetentionStrength: 0.95}

	prev := Acquisition
	for m := 0; m <= 100; m++ {
		in.MasteryLevel = m
		got := Classify(in, th)
		require.GreaterOrEqual(t, int(got), int(prev), "mastery %d", m)
		prev = got
	}
	require.Equal(t, Maintenance, prev)
}

func TestThresholdsAdjusted(t *testing.T) {
	th := DefaultThresholds().Adjusted(5)
	require.Equal(t, 100, th.Maintenance.MinMastery)
	require.Equal(t, 75, th.Proficiency.MinMastery)

	in := ClassifyInput{TotalAttempts: 10, MasteryLevel: 72, CompletedReviews: 8, ConsecutiveCorrect: 4, RetentionStrength: 0.71}
	require.Equal(t, Proficiency, Classify(in, DefaultThresholds()))
	require.Equal(t, Consolidation, Classify(in, th))
}

func TestPhaseString(t *testing.T) {
	require.Equal(t, "ACQUISITION", Acquisition.String())
	require.Equal(t, "MAINTENANCE", Maintenance.String())
	require.Equal(t, "UNKNOWN", Phase(42).String())
	require.True(t, Proficiency.IsValid())
	require.False(t, Phase(-1).IsValid())
}
