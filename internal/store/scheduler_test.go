package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var schedNow = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

func TestFirstAttemptSeeds(t *testing.T) {
	t.Run("correct", func(t *testing.T) {
		rec := ApplyGrade(nil, GradeOutcome{IsCorrect: true, Score: 1.0, HasScore: true}, schedNow)
		assert.Equal(t, 0.1, rec.MasteryScore)
		assert.Equal(t, 0.1, rec.ConfidenceLevel)
		assert.Equal(t, 1, rec.AttemptsCount)
		assert.Equal(t, 1, rec.CorrectCount)
		assert.Equal(t, 1, rec.StreakCount)
		assert.Equal(t, schedNow.AddDate(0, 0, 1), rec.NextReviewAt)
	})
	t.Run("incorrect", func(t *testing.T) {
		rec := ApplyGrade(nil, GradeOutcome{IsCorrect: false}, schedNow)
		assert.Equal(t, 0.0, rec.MasteryScore)
		assert.Equal(t, 1, rec.AttemptsCount)
		assert.Zero(t, rec.CorrectCount)
		assert.Zero(t, rec.StreakCount)
		assert.Equal(t, schedNow.AddDate(0, 0, 1), rec.NextReviewAt)
	})
}

func TestScoreDeltaScaling(t *testing.T) {
	prev := &MasteryRecord{MasteryScore: 0.5, AttemptsCount: 3}

	t.Run("judged score drives the delta", func(t *testing.T) {
		rec := ApplyGrade(prev, GradeOutcome{IsCorrect: true, Score: 0.9, HasScore: true}, schedNow)
		assert.InDelta(t, 0.58, rec.MasteryScore, 1e-9) // (0.9-0.5)*0.2
	})
	t.Run("judged low score pulls down", func(t *testing.T) {
		rec := ApplyGrade(prev, GradeOutcome{IsCorrect: false, Score: 0.2, HasScore: true}, schedNow)
		assert.InDelta(t, 0.44, rec.MasteryScore, 1e-9)
	})
	t.Run("no score falls back to fixed deltas", func(t *testing.T) {
		up := ApplyGrade(prev, GradeOutcome{IsCorrect: true}, schedNow)
		assert.InDelta(t, 0.6, up.MasteryScore, 1e-9)
		down := ApplyGrade(prev, GradeOutcome{IsCorrect: false}, schedNow)
		assert.InDelta(t, 0.45, down.MasteryScore, 1e-9)
	})
}

func TestScoreClamped(t *testing.T) {
	high := &MasteryRecord{MasteryScore: 0.98, AttemptsCount: 20}
	rec := ApplyGrade(high, GradeOutcome{IsCorrect: true}, schedNow)
	assert.Equal(t, 1.0, rec.MasteryScore)

	low := &MasteryRecord{MasteryScore: 0.02, AttemptsCount: 2}
	rec = ApplyGrade(low, GradeOutcome{IsCorrect: false}, schedNow)
	assert.Equal(t, 0.0, rec.MasteryScore)
}

func TestReviewIntervalBanding(t *testing.T) {
	cases := []struct {
		name    string
		prev    float64
		outcome GradeOutcome
		days    int
	}{
		{
			name:    "high score lands in the two-week band",
			prev:    0.85,
			outcome: GradeOutcome{IsCorrect: true, Score: 0.95, HasScore: true},
			days:    14, // 0.85 + 0.09 = 0.94
		},
		{
			name:    "solid score lands in the one-week band",
			prev:    0.78,
			outcome: GradeOutcome{IsCorrect: true, Score: 0.8, HasScore: true},
			days:    7, // 0.78 + 0.06 = 0.84
		},
		{
			name:    "middling score lands in the three-day band",
			prev:    0.6,
			outcome: GradeOutcome{IsCorrect: true, Score: 0.7, HasScore: true},
			days:    3, // 0.6 + 0.04 = 0.64
		},
		{
			name:    "barely-above-half score stays on daily review",
			prev:    0.5,
			outcome: GradeOutcome{IsCorrect: true, Score: 0.55, HasScore: true},
			days:    1, // 0.5 + 0.01 = 0.51
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			prev := &MasteryRecord{MasteryScore: tc.prev, AttemptsCount: 5}
			rec := ApplyGrade(prev, tc.outcome, schedNow)
			assert.Equal(t, schedNow.AddDate(0, 0, tc.days), rec.NextReviewAt)
		})
	}
}

func TestIntervalMonotoneInScore(t *testing.T) {
	last := 0
	for _, score := range []float64{0.0, 0.3, 0.59, 0.6, 0.79, 0.8, 0.89, 0.9, 1.0} {
		days := reviewIntervalDays(score)
		assert.GreaterOrEqual(t, days, last, "interval must never shrink as score grows (score=%v)", score)
		last = days
	}
}

func TestStreakResetsOnMiss(t *testing.T) {
	prev := &MasteryRecord{MasteryScore: 0.7, AttemptsCount: 4, CorrectCount: 4, StreakCount: 4}
	rec := ApplyGrade(prev, GradeOutcome{IsCorrect: false, Score: 0.3, HasScore: true}, schedNow)
	assert.Zero(t, rec.StreakCount)
	assert.Equal(t, 4, rec.CorrectCount)
	assert.Equal(t, 5, rec.AttemptsCount)
}

func TestConfidenceCapped(t *testing.T) {
	prev := &MasteryRecord{MasteryScore: 0.5, AttemptsCount: 6}
	rec := ApplyGrade(prev, GradeOutcome{IsCorrect: true}, schedNow)
	assert.InDelta(t, 0.7, rec.ConfidenceLevel, 1e-9)

	prev = &MasteryRecord{MasteryScore: 0.5, AttemptsCount: 30}
	rec = ApplyGrade(prev, GradeOutcome{IsCorrect: true}, schedNow)
	assert.Equal(t, 1.0, rec.ConfidenceLevel)
}

func TestApplyGradeDoesNotMutatePrev(t *testing.T) {
	prev := &MasteryRecord{MasteryScore: 0.5, AttemptsCount: 2, StreakCount: 2}
	_ = ApplyGrade(prev, GradeOutcome{IsCorrect: false}, schedNow)
	assert.Equal(t, 0.5, prev.MasteryScore)
	assert.Equal(t, 2, prev.AttemptsCount)
	assert.Equal(t, 2, prev.StreakCount)
}
