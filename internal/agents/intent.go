// Package agents implements the specialized agents the supervisor routes
// between: intent classification, the planner (subject/content resolver),
// the teacher, and the grader. Agents never raise past their boundary;
// each defines a local default for every fallible collaborator call.
package agents

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"aitutor/internal/llm"
	"aitutor/internal/types"
)

// terminationPhrases end the session on a case-insensitive substring
// match, skipping classification entirely.
var terminationPhrases = []string{"bye", "goodbye", "exit", "quit", "end session"}

// IntentResult is the classifier's verdict for one message.
type IntentResult struct {
	Intent     types.Intent
	Confidence float64
	EndSession bool
}

// IntentClassifier labels free text with one of the fixed intents.
type IntentClassifier struct {
	llm llm.Client
	log *zap.Logger
}

// NewIntentClassifier creates an intent classifier.
func NewIntentClassifier(client llm.Client, log *zap.Logger) *IntentClassifier {
	return &IntentClassifier{llm: client, log: log.Named("intent")}
}

const intentSystemPrompt = `You classify a student's message in a tutoring session.
Reply with exactly one word from: learn, practice, review, question, off_topic.
- learn: the student wants a topic taught or explained from scratch
- practice: the student asks for a quiz, exercise, or problem to solve
- review: the student wants to revisit something already studied
- question: a direct question about the current material
- off_topic: unrelated to studying`

// Classify labels the input. It never returns an error: any failure of
// the underlying call defaults to (question, 0.5).
func (c *IntentClassifier) Classify(ctx context.Context, input string, sess *types.Session) IntentResult {
	if IsTermination(input) {
		return IntentResult{Intent: types.IntentQuestion, Confidence: 1.0, EndSession: true}
	}

	prompt := fmt.Sprintf("Current subject: %s\nQuiz active: %v\n\nStudent message: %q",
		orUnset(sess.Content.Subject), sess.Quiz.IsActive, input)

	raw, err := c.llm.CompleteWithSystem(ctx, intentSystemPrompt, prompt)
	if err != nil {
		c.log.Warn("classification failed, defaulting to question", zap.Error(err))
		return IntentResult{Intent: types.IntentQuestion, Confidence: 0.5}
	}

	intent, ok := parseIntent(raw)
	if !ok {
		c.log.Debug("unparseable intent label", zap.String("raw", raw))
		return IntentResult{Intent: types.IntentQuestion, Confidence: 0.5}
	}
	return IntentResult{Intent: intent, Confidence: 0.9}
}

// IsTermination reports whether the input matches the session-termination
// phrase set.
func IsTermination(input string) bool {
	lower := strings.ToLower(input)
	for _, phrase := range terminationPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

func parseIntent(raw string) (types.Intent, bool) {
	label := strings.ToLower(strings.TrimSpace(raw))
	// Models occasionally wrap the label in punctuation or a sentence;
	// take the first known label found.
	for _, intent := range []types.Intent{
		types.IntentOffTopic, types.IntentPractice, types.IntentReview,
		types.IntentLearn, types.IntentQuestion,
	} {
		if strings.Contains(label, string(intent)) {
			return intent, true
		}
	}
	return "", false
}

func orUnset(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
