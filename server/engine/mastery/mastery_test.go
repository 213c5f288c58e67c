package mastery

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rankmarg/mastery/server/engine/config"
	"github.com/rankmarg/mastery/server/engine/trend"
	"github.com/rankmarg/mastery/store"
)

var testExam = config.Exam{IdealTimeSec: 90, DifficultyMultiplier: 1.0}

// window builds n attempts ending at now, most-recent-first, one hour
// apart, with per-attempt correctness and timing from the callbacks.
func window(now time.Time, n int, correct func(i int) bool, timing float64) []store.Attempt {
	attempts := make([]store.Attempt, n)
	for i := 0; i < n; i++ {
		ts := timing
		attempts[i] = store.Attempt{
			ID:         int64(n - i),
			QuestionID: fmt.Sprintf("q%d", i),
			Difficulty: 2,
			IsCorrect:  correct(i),
			TimingSec:  &ts,
			SolvedTs:   now.Add(-time.Duration(i) * time.Hour).Unix(),
		}
	}
	return attempts
}

func TestComputeEmptyWindowSkips(t *testing.T) {
	_, ok := Compute(Input{Now: time.Now(), Exam: testExam})
	require.False(t, ok)
}

func TestComputePerfectRun(t *testing.T) {
	now := time.Now()
	attempts := window(now, 10, func(int) bool { return true }, testExam.IdealTimeSec)

	res, ok := Compute(Input{
		Attempts: attempts,
		Trend:    trend.Compute(attempts),
		Exam:     testExam,
		Now:      now,
	})
	require.True(t, ok)
	assert.Greater(t, res.MasteryLevel, 80)
	assert.LessOrEqual(t, res.MasteryLevel, 100)
	assert.Equal(t, 10, res.TotalAttempts)
	assert.Equal(t, 10, res.CorrectAttempts)
	assert.Greater(t, res.StrengthIndex, 50)
}

func TestComputeAllWrong(t *testing.T) {
	now := time.Now()
	attempts := window(now, 10, func(int) bool { return false }, 300)

	res, ok := Compute(Input{
		Attempts: attempts,
		Trend:    trend.Compute(attempts),
		Exam:     testExam,
		Now:      now,
	})
	require.True(t, ok)
	assert.Less(t, res.MasteryLevel, 20)
	assert.Zero(t, res.CorrectAttempts)
}

func TestComputeBounds(t *testing.T) {
	now := time.Now()
	for _, n := range []int{1, 3, 7, 30} {
		attempts := window(now, n, func(i int) bool { return i%2 == 0 }, 45)
		res, ok := Compute(Input{Attempts: attempts, Trend: trend.Compute(attempts), Exam: testExam, Now: now})
		require.True(t, ok)
		require.GreaterOrEqual(t, res.MasteryLevel, 0)
		require.LessOrEqual(t, res.MasteryLevel, 100)
		require.GreaterOrEqual(t, res.StrengthIndex, 0)
		require.LessOrEqual(t, res.StrengthIndex, 100)
	}
}

func TestStreakBonusModulation(t *testing.T) {
	now := time.Now()
	attempts := window(now, 8, func(int) bool { return true }, testExam.IdealTimeSec)

	base, _ := Compute(Input{Attempts: attempts, Trend: trend.Compute(attempts), Exam: testExam, Now: now})
	heavy, _ := Compute(Input{
		Attempts: attempts,
		Profile:  &store.UserProfile{StudyHoursPerDay: 8, TargetYear: now.Year()},
		Trend:    trend.Compute(attempts),
		Exam:     testExam,
		Now:      now,
	})
	assert.GreaterOrEqual(t, heavy.MasteryLevel, base.MasteryLevel)
}

func TestTimeScoreBand(t *testing.T) {
	now := time.Now()
	correct := func(int) bool { return true }

	ideal := window(now, 6, correct, 90)
	slow := window(now, 6, correct, 400)
	rushed := window(now, 6, correct, 10)

	in := func(a []store.Attempt) Input {
		return Input{Attempts: a, Trend: trend.Compute(a), Exam: testExam, Now: now}
	}
	idealRes, _ := Compute(in(ideal))
	slowRes, _ := Compute(in(slow))
	rushedRes, _ := Compute(in(rushed))

	assert.Greater(t, idealRes.MasteryLevel, slowRes.MasteryLevel)
	assert.Greater(t, idealRes.MasteryLevel, rushedRes.MasteryLevel)
}

func TestMistakePenaltyCapped(t *testing.T) {
	now := time.Now()
	attempts := window(now, 20, func(int) bool { return false }, 90)
	conceptual := store.MistakeConceptual
	for i := range attempts {
		attempts[i].Mistake = &conceptual
	}
	res, ok := Compute(Input{Attempts: attempts, Trend: trend.Compute(attempts), Exam: testExam, Now: now})
	require.True(t, ok)
	// 20 conceptual mistakes at weight 1.5 would be 30 uncapped; the
	// score must still be non-negative with the cap at 10.
	assert.GreaterOrEqual(t, res.MasteryLevel, 0)
}

func TestSpacedRepFlipBonus(t *testing.T) {
	now := time.Now()
	ts := 80.0
	// Same question answered wrong, then right two days later.
	attempts := []store.Attempt{
		{QuestionID: "q1", Difficulty: 2, IsCorrect: true, TimingSec: &ts, SolvedTs: now.Unix()},
		{QuestionID: "q1", Difficulty: 2, IsCorrect: false, TimingSec: &ts, SolvedTs: now.Add(-48 * time.Hour).Unix()},
		{QuestionID: "q2", Difficulty: 2, IsCorrect: true, TimingSec: &ts, SolvedTs: now.Add(-49 * time.Hour).Unix()},
		{QuestionID: "q3", Difficulty: 2, IsCorrect: false, TimingSec: &ts, SolvedTs: now.Add(-50 * time.Hour).Unix()},
	}
	flip, _ := Compute(Input{Attempts: attempts, Trend: trend.Compute(attempts), Exam: testExam, Now: now})

	// Same accuracy without the retry relationship.
	noFlip := make([]store.Attempt, len(attempts))
	copy(noFlip, attempts)
	noFlip[1].QuestionID = "q9"
	plain, _ := Compute(Input{Attempts: noFlip, Trend: trend.Compute(noFlip), Exam: testExam, Now: now})

	assert.Greater(t, flip.MasteryLevel, plain.MasteryLevel)
}

func TestStalenessLowersStrength(t *testing.T) {
	now := time.Now()
	fresh := window(now, 10, func(int) bool { return true }, 90)
	stale := window(now.Add(-10*24*time.Hour), 10, func(int) bool { return true }, 90)

	freshRes, _ := Compute(Input{Attempts: fresh, Trend: trend.Compute(fresh), Exam: testExam, Now: now})
	staleRes, _ := Compute(Input{Attempts: stale, Trend: trend.Compute(stale), Exam: testExam, Now: now})

	assert.Greater(t, freshRes.StrengthIndex, staleRes.StrengthIndex)
	assert.Greater(t, freshRes.MasteryLevel, staleRes.MasteryLevel)
}

func TestDifficultyMultiplier(t *testing.T) {
	now := time.Now()
	ts := 90.0
	attempts := make([]store.Attempt, 8)
	for i := range attempts {
		attempts[i] = store.Attempt{
			QuestionID: fmt.Sprintf("q%d", i), Difficulty: 4, IsCorrect: true,
			TimingSec: &ts, SolvedTs: now.Add(-time.Duration(i) * time.Hour).Unix(),
		}
	}
	tr := trend.Compute(attempts)

	plain, _ := Compute(Input{Attempts: attempts, Trend: tr, Exam: testExam, Now: now})
	boosted, _ := Compute(Input{Attempts: attempts, Trend: tr, Exam: config.Exam{IdealTimeSec: 90, DifficultyMultiplier: 1.5}, Now: now})

	assert.GreaterOrEqual(t, boosted.MasteryLevel, plain.MasteryLevel)
}
