package agents

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"aitutor/internal/llm"
	"aitutor/internal/types"
)

// TeacherAgent is the terminal agent that produces the user-visible
// response. It must always be able to respond: with empty content, with
// an off-topic message, or with a subject-mismatch notice — never by
// fabricating an answer from the wrong subject's content.
type TeacherAgent struct {
	llm llm.Client
	log *zap.Logger
}

// NewTeacherAgent creates a teacher agent.
func NewTeacherAgent(client llm.Client, log *zap.Logger) *TeacherAgent {
	return &TeacherAgent{llm: client, log: log.Named("teacher")}
}

// TeacherResult is the teacher's output for one turn.
type TeacherResult struct {
	Response     string
	ResponseType string
	Quiz         *types.QuizUpdate
}

const teacherFallback = "I'm having trouble putting together a good answer right now. Could you ask that again?"

// Respond generates the turn's response from whatever content context the
// planner assembled.
func (t *TeacherAgent) Respond(ctx context.Context, sess *types.Session, input string, intent types.Intent, complexity ComplexityResult) TeacherResult {
	if sess.Content.SubjectMismatch {
		return TeacherResult{
			Response:     mismatchNotice(sess.Content),
			ResponseType: types.ResponseMismatch,
		}
	}

	switch intent {
	case types.IntentOffTopic:
		return t.respondOffTopic(ctx, sess, input)
	case types.IntentPractice:
		return t.generateQuiz(ctx, sess)
	default:
		return t.explain(ctx, sess, input, complexity)
	}
}

// mismatchNotice is deterministic: rendering it through the model could
// leak an answer synthesized from the wrong subject's content.
func mismatchNotice(content types.ContentContext) string {
	return fmt.Sprintf(
		"It looks like you're asking about something outside %s (you asked: %q). "+
			"We're currently studying %s — if you'd like to switch subjects, just say so and I'll set that up.",
		content.CurrentSubject, content.RequestedQuery, content.CurrentSubject)
}

func (t *TeacherAgent) respondOffTopic(ctx context.Context, sess *types.Session, input string) TeacherResult {
	subject := sess.Content.Subject
	prompt := fmt.Sprintf(
		"A student in a %s tutoring session said something off-topic: %q\n"+
			"Reply warmly in one or two sentences and gently steer back to studying.",
		orUnset(subject), input)
	resp, err := t.llm.Complete(ctx, prompt)
	if err != nil {
		t.log.Warn("off-topic generation failed", zap.Error(err))
		resp = "That's a fun thought! Shall we get back to our lesson?"
	}
	return TeacherResult{Response: resp, ResponseType: types.ResponseAnswer}
}

// generateQuiz poses a question on the current topic and opens QuizState.
func (t *TeacherAgent) generateQuiz(ctx context.Context, sess *types.Session) TeacherResult {
	prompt := fmt.Sprintf(
		"Write one short quiz question for a student studying %s",
		orUnset(sess.Content.Subject))
	if sess.Content.Chapter != "" {
		prompt += fmt.Sprintf(", chapter %q", sess.Content.Chapter)
	}
	if sess.Content.TextbookContent != "" {
		prompt += fmt.Sprintf(".\nBase it on this material:\n%s", truncate(sess.Content.TextbookContent, 1500))
	}
	prompt += "\n\nFormat exactly as:\nQUESTION: <the question>\nANSWER: <the expected answer>"

	raw, err := t.llm.Complete(ctx, prompt)
	question, answer := parseQuiz(raw)
	if err != nil || question == "" || answer == "" {
		if err != nil {
			t.log.Warn("quiz generation failed", zap.Error(err))
		}
		// A broken generation must not open a quiz with no question text.
		return TeacherResult{
			Response:     "I couldn't come up with a question just now — ask me to quiz you again in a moment.",
			ResponseType: types.ResponseAnswer,
		}
	}

	asked := sess.Quiz.QuestionsAsked + 1
	return TeacherResult{
		Response:     question,
		ResponseType: types.ResponseQuiz,
		Quiz: &types.QuizUpdate{
			IsActive:        types.BoolPtr(true),
			CurrentQuestion: types.StringPtr(question),
			CorrectAnswer:   types.StringPtr(answer),
			HintsGiven:      types.IntPtr(0),
			Attempts:        types.IntPtr(0),
			QuestionsAsked:  types.IntPtr(asked),
		},
	}
}

func (t *TeacherAgent) explain(ctx context.Context, sess *types.Session, input string, complexity ComplexityResult) TeacherResult {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are a patient tutor teaching %s", orUnset(sess.Content.Subject))
	if sess.Student.GradeLevel != "" {
		fmt.Fprintf(&sb, " to a grade %s student", sess.Student.GradeLevel)
	}
	sb.WriteString(".\n")
	switch complexity.Level {
	case ComplexityDetailed:
		sb.WriteString("Give a thorough explanation with examples.\n")
	case ComplexityModerate:
		sb.WriteString("Give a clear explanation a few paragraphs long.\n")
	default:
		sb.WriteString("Answer concisely in a couple of sentences.\n")
	}
	if sess.Content.TextbookContent != "" {
		fmt.Fprintf(&sb, "\nCourse material:\n%s\n", truncate(sess.Content.TextbookContent, 3000))
	}
	for _, hit := range sess.Content.RAGResults {
		if hit.ContentPreview != "" {
			fmt.Fprintf(&sb, "\nReference (%s / %s): %s\n", hit.Chapter, hit.Subtopic, truncate(hit.ContentPreview, 500))
		}
	}

	resp, err := t.llm.CompleteWithSystem(ctx, sb.String(), input)
	if err != nil {
		t.log.Warn("explanation generation failed", zap.Error(err))
		return TeacherResult{Response: teacherFallback, ResponseType: types.ResponseAnswer}
	}
	return TeacherResult{Response: resp, ResponseType: types.ResponseAnswer}
}

func parseQuiz(raw string) (question, answer string) {
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(line, "QUESTION:"); ok {
			question = strings.TrimSpace(rest)
		} else if rest, ok := strings.CutPrefix(line, "ANSWER:"); ok {
			answer = strings.TrimSpace(rest)
		}
	}
	return question, answer
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
