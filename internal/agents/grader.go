package agents

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"aitutor/internal/llm"
	"aitutor/internal/store"
	"aitutor/internal/types"
)

// MasteryUpdater folds graded attempts into the persistent mastery model.
type MasteryUpdater interface {
	UpdateMastery(ctx context.Context, studentID, topicKey, subject string, outcome store.GradeOutcome) (store.MasteryRecord, error)
}

// Grader evaluates a student's answer to the open quiz question and
// updates the spaced-repetition mastery model. A transient judge failure
// never discards the quiz turn: grading falls back to a neutral default.
type Grader struct {
	llm     llm.Client
	mastery MasteryUpdater
	log     *zap.Logger
}

// NewGrader creates a grader.
func NewGrader(client llm.Client, mastery MasteryUpdater, log *zap.Logger) *Grader {
	return &Grader{llm: client, mastery: mastery, log: log.Named("grader")}
}

// GradeResult is the verdict for one answer.
type GradeResult struct {
	IsCorrect bool
	Score     float64
	Feedback  string
}

// Grade evaluates an answer. An exact case-insensitive match
// short-circuits without invoking the external judge; otherwise the
// judge decides, bounded by a (0.5, partial) default on failure.
func (g *Grader) Grade(ctx context.Context, question, correctAnswer, studentAnswer string) GradeResult {
	if strings.EqualFold(strings.TrimSpace(studentAnswer), strings.TrimSpace(correctAnswer)) {
		return GradeResult{IsCorrect: true, Score: 1.0, Feedback: "Exactly right!"}
	}

	prompt := fmt.Sprintf(
		"Grade this answer.\nQuestion: %s\nExpected answer: %s\nStudent answer: %s\n\n"+
			"Reply exactly as:\nCORRECT: yes|no\nSCORE: <0.0-1.0>\nFEEDBACK: <one sentence>",
		question, correctAnswer, studentAnswer)

	raw, err := g.llm.Complete(ctx, prompt)
	if err != nil {
		g.log.Warn("judge call failed, using neutral default", zap.Error(err))
		return GradeResult{IsCorrect: false, Score: 0.5, Feedback: "Partially correct — let's look at this one together."}
	}

	result, ok := parseGrade(raw)
	if !ok {
		g.log.Debug("unparseable judge output", zap.String("raw", raw))
		return GradeResult{IsCorrect: false, Score: 0.5, Feedback: "Partially correct — let's look at this one together."}
	}
	return result
}

// GraderResult is the grader's full turn output: the rendered feedback
// plus the quiz-state update closing the question.
type GraderResult struct {
	Response string
	Grade    GradeResult
	Quiz     *types.QuizUpdate
	Mastery  *store.MasteryRecord
}

// HandleAnswer grades the open question, closes the quiz, and persists
// the mastery update for the session's current topic. Mastery persistence
// failures are logged, not surfaced — the student still gets feedback.
func (g *Grader) HandleAnswer(ctx context.Context, sess *types.Session, answer string) GraderResult {
	grade := g.Grade(ctx, sess.Quiz.CurrentQuestion, sess.Quiz.CorrectAnswer, answer)

	correct := sess.Quiz.QuestionsCorrect
	if grade.IsCorrect {
		correct++
	}
	quiz := &types.QuizUpdate{
		IsActive:         types.BoolPtr(false),
		CurrentQuestion:  types.StringPtr(""),
		CorrectAnswer:    types.StringPtr(""),
		Attempts:         types.IntPtr(sess.Quiz.Attempts + 1),
		QuestionsCorrect: types.IntPtr(correct),
	}

	result := GraderResult{
		Response: renderFeedback(grade, sess.Quiz.CorrectAnswer),
		Grade:    grade,
		Quiz:     quiz,
	}

	topic := TopicKey(sess.Content.Subject, sess.Content.Chapter)
	if sess.Student.StudentID == "" || topic == "" {
		return result
	}
	rec, err := g.mastery.UpdateMastery(ctx, sess.Student.StudentID, topic, sess.Content.Subject, store.GradeOutcome{
		IsCorrect: grade.IsCorrect,
		Score:     grade.Score,
		HasScore:  true,
	})
	if err != nil {
		g.log.Warn("mastery update failed", zap.Error(err),
			zap.String("student", sess.Student.StudentID), zap.String("topic", topic))
		return result
	}
	result.Mastery = &rec
	return result
}

// TopicKey builds the mastery key for a resolved subject and chapter.
func TopicKey(subject, chapter string) string {
	subject = strings.ToLower(strings.TrimSpace(subject))
	chapter = strings.ToLower(strings.TrimSpace(chapter))
	if subject == "" {
		return ""
	}
	if chapter == "" {
		return subject
	}
	return subject + "/" + chapter
}

func renderFeedback(grade GradeResult, correctAnswer string) string {
	if grade.IsCorrect {
		return "✅ " + grade.Feedback
	}
	if correctAnswer != "" {
		return fmt.Sprintf("%s\nThe answer we were looking for: %s", grade.Feedback, correctAnswer)
	}
	return grade.Feedback
}

func parseGrade(raw string) (GradeResult, bool) {
	var result GradeResult
	var sawCorrect, sawScore bool
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(line, "CORRECT:"); ok {
			result.IsCorrect = strings.HasPrefix(strings.TrimSpace(strings.ToLower(rest)), "y")
			sawCorrect = true
		} else if rest, ok := strings.CutPrefix(line, "SCORE:"); ok {
			score, err := strconv.ParseFloat(strings.TrimSpace(rest), 64)
			if err == nil && score >= 0 && score <= 1 {
				result.Score = score
				sawScore = true
			}
		} else if rest, ok := strings.CutPrefix(line, "FEEDBACK:"); ok {
			result.Feedback = strings.TrimSpace(rest)
		}
	}
	if !sawCorrect || !sawScore {
		return GradeResult{}, false
	}
	if result.Feedback == "" {
		if result.IsCorrect {
			result.Feedback = "Correct!"
		} else {
			result.Feedback = "Not quite."
		}
	}
	return result, true
}
