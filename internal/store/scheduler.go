package store

import "time"

// The mastery scheduler is a pure function over the prior record and the
// graded outcome. Keeping it free of SQL makes the spaced-repetition
// banding trivially testable.

// MasteryRecord is the persisted mastery state for one student x topic.
type MasteryRecord struct {
	StudentID       string    `json:"student_id"`
	TopicKey        string    `json:"topic_key"`
	Subject         string    `json:"subject,omitempty"`
	MasteryScore    float64   `json:"mastery_score"` // in [0,1]
	ConfidenceLevel float64   `json:"confidence_level"`
	AttemptsCount   int       `json:"attempts_count"`
	CorrectCount    int       `json:"correct_count"`
	StreakCount     int       `json:"streak_count"`
	LastPracticedAt time.Time `json:"last_practiced_at"`
	NextReviewAt    time.Time `json:"next_review_at"`
}

// GradeOutcome is the grader's verdict for one attempt. HasScore reports
// whether Score was produced by an explicit judgment; without it the
// update falls back to the fixed correct/incorrect deltas.
type GradeOutcome struct {
	IsCorrect bool
	Score     float64
	HasScore  bool
}

// ApplyGrade folds one graded attempt into a mastery record. prev is nil
// on the first attempt at a topic, which seeds 0.1/0.0 and schedules the
// first review one day out.
func ApplyGrade(prev *MasteryRecord, outcome GradeOutcome, now time.Time) MasteryRecord {
	if prev == nil {
		seed := 0.0
		if outcome.IsCorrect {
			seed = 0.1
		}
		rec := MasteryRecord{
			MasteryScore:    seed,
			ConfidenceLevel: 0.1, // min(1, 1/10)
			AttemptsCount:   1,
			LastPracticedAt: now,
			NextReviewAt:    now.AddDate(0, 0, 1),
		}
		if outcome.IsCorrect {
			rec.CorrectCount = 1
			rec.StreakCount = 1
		}
		return rec
	}

	rec := *prev

	delta := scoreDelta(outcome)
	rec.MasteryScore = clamp01(prev.MasteryScore + delta)

	rec.AttemptsCount = prev.AttemptsCount + 1
	if outcome.IsCorrect {
		rec.CorrectCount = prev.CorrectCount + 1
		rec.StreakCount = prev.StreakCount + 1
	} else {
		rec.StreakCount = 0
	}
	rec.ConfidenceLevel = confidence(rec.AttemptsCount)
	rec.LastPracticedAt = now
	rec.NextReviewAt = now.AddDate(0, 0, reviewIntervalDays(rec.MasteryScore))
	return rec
}

func scoreDelta(outcome GradeOutcome) float64 {
	if outcome.HasScore {
		return (outcome.Score - 0.5) * 0.2
	}
	if outcome.IsCorrect {
		return 0.1
	}
	return -0.05
}

// reviewIntervalDays is the spaced-repetition banding over the new score.
func reviewIntervalDays(score float64) int {
	switch {
	case score >= 0.9:
		return 14
	case score >= 0.8:
		return 7
	case score >= 0.6:
		return 3
	default:
		return 1
	}
}

func confidence(attempts int) float64 {
	c := float64(attempts) / 10
	if c > 1 {
		return 1
	}
	return c
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
