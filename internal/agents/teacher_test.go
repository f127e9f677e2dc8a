package agents

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"aitutor/internal/types"
)

func TestMismatchNoticeIsDeterministic(t *testing.T) {
	model := &fakeLLM{reply: "a synthesized music answer"}
	agent := NewTeacherAgent(model, zaptest.NewLogger(t))

	sess := &types.Session{}
	sess.Content.Subject = "ict"
	sess.Content.SubjectMismatch = true
	sess.Content.CurrentSubject = "ict"
	sess.Content.RequestedQuery = "teach me about musical notes"

	got := agent.Respond(context.Background(), sess, "teach me about musical notes", types.IntentLearn, ComplexityResult{})

	assert.Equal(t, types.ResponseMismatch, got.ResponseType)
	assert.Contains(t, got.Response, "ict")
	assert.Contains(t, got.Response, "musical notes")
	assert.Zero(t, model.callCount(), "mismatch notice must not go through the model")
}

func TestGenerateQuizOpensState(t *testing.T) {
	model := &fakeLLM{reply: "QUESTION: What does CPU stand for?\nANSWER: Central Processing Unit"}
	agent := NewTeacherAgent(model, zaptest.NewLogger(t))

	sess := &types.Session{}
	sess.Content.Subject = "ict"
	sess.Quiz.QuestionsAsked = 2

	got := agent.Respond(context.Background(), sess, "quiz me", types.IntentPractice, ComplexityResult{})

	assert.Equal(t, types.ResponseQuiz, got.ResponseType)
	assert.Equal(t, "What does CPU stand for?", got.Response)
	require.NotNil(t, got.Quiz)
	require.NotNil(t, got.Quiz.IsActive)
	assert.True(t, *got.Quiz.IsActive)
	assert.Equal(t, "Central Processing Unit", *got.Quiz.CorrectAnswer)
	assert.Equal(t, 3, *got.Quiz.QuestionsAsked)
	assert.Equal(t, 0, *got.Quiz.Attempts)
}

func TestBrokenQuizGenerationDoesNotOpenQuiz(t *testing.T) {
	for name, model := range map[string]*fakeLLM{
		"call error":     {err: errUnavailable},
		"missing answer": {reply: "QUESTION: What is a CPU?"},
		"free text":      {reply: "Here is a nice question about CPUs for you."},
	} {
		t.Run(name, func(t *testing.T) {
			agent := NewTeacherAgent(model, zaptest.NewLogger(t))
			sess := &types.Session{}
			sess.Content.Subject = "ict"

			got := agent.Respond(context.Background(), sess, "quiz me", types.IntentPractice, ComplexityResult{})

			assert.Equal(t, types.ResponseAnswer, got.ResponseType)
			assert.Nil(t, got.Quiz, "no quiz may open without question text")
			assert.NotEmpty(t, got.Response)
		})
	}
}

func TestExplainSizesPromptByComplexity(t *testing.T) {
	model := &fakeLLM{reply: "Plants use sunlight to make food."}
	agent := NewTeacherAgent(model, zaptest.NewLogger(t))

	sess := &types.Session{}
	sess.Content.Subject = "Science"
	sess.Content.TextbookContent = "Photosynthesis happens in the chloroplasts."

	got := agent.Respond(context.Background(), sess, "explain photosynthesis", types.IntentLearn,
		ComplexityResult{Level: ComplexityDetailed})

	assert.Equal(t, types.ResponseAnswer, got.ResponseType)
	assert.True(t, model.sawPromptContaining("thorough explanation"))
	assert.True(t, model.sawPromptContaining("chloroplasts"), "textbook content flows into the prompt")
}

func TestExplainFailureFallsBack(t *testing.T) {
	agent := NewTeacherAgent(&fakeLLM{err: errUnavailable}, zaptest.NewLogger(t))

	got := agent.Respond(context.Background(), &types.Session{}, "what is gravity", types.IntentQuestion, ComplexityResult{})

	assert.Equal(t, teacherFallback, got.Response)
	assert.Equal(t, types.ResponseAnswer, got.ResponseType)
}

func TestOffTopicSteersBack(t *testing.T) {
	model := &fakeLLM{reply: "Ha! Let's get back to networks."}
	agent := NewTeacherAgent(model, zaptest.NewLogger(t))

	sess := &types.Session{}
	sess.Content.Subject = "ict"

	got := agent.Respond(context.Background(), sess, "do you like football?", types.IntentOffTopic, ComplexityResult{})

	assert.Equal(t, types.ResponseAnswer, got.ResponseType)
	assert.Equal(t, "Ha! Let's get back to networks.", got.Response)
	assert.True(t, model.sawPromptContaining("off-topic"))
}
