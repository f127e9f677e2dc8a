// Package types holds the session state model shared by the engine, the
// agents, and the persistence layer. State is plain data: everything here
// serializes to JSON for checkpointing, and nothing holds a handle.
package types

import "time"

// Role identifies who produced a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Intent is the classifier's label for a student message.
type Intent string

const (
	IntentLearn    Intent = "learn"
	IntentPractice Intent = "practice"
	IntentReview   Intent = "review"
	IntentQuestion Intent = "question"
	IntentOffTopic Intent = "off_topic"
)

// Message is one entry in the conversation history.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	AgentType string    `json:"agent_type,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// RetrievalHit is one similarity-search result.
type RetrievalHit struct {
	Subject        string  `json:"subject"`
	Chapter        string  `json:"chapter"`
	Subtopic       string  `json:"subtopic,omitempty"`
	ContentPreview string  `json:"content_preview,omitempty"`
	Score          float64 `json:"score"`
}

// ContentContext is what the session is currently about. Subject acts as
// a lock once set: retrieval is scoped to it and it changes only through
// an explicit user instruction.
type ContentContext struct {
	Subject         string         `json:"subject"`
	Chapter         string         `json:"chapter"`
	Subtopic        string         `json:"subtopic"`
	DifficultyLevel string         `json:"difficulty_level,omitempty"`
	TextbookContent string         `json:"textbook_content,omitempty"`
	RAGResults      []RetrievalHit `json:"rag_results,omitempty"`

	// Mismatch bookkeeping for the current turn: the resolver raises the
	// flag, the teacher renders a notice instead of an answer, and the
	// next turn's load clears it.
	SubjectMismatch bool   `json:"subject_mismatch"`
	RequestedQuery  string `json:"requested_query,omitempty"`
	CurrentSubject  string `json:"current_subject,omitempty"`
	SkipStructured  bool   `json:"skip_structured,omitempty"`
}

// QuizState tracks the open question and running quiz tallies. IsActive
// with empty CurrentQuestion is invalid and never checkpointed.
type QuizState struct {
	IsActive         bool   `json:"is_active"`
	CurrentQuestion  string `json:"current_question,omitempty"`
	CorrectAnswer    string `json:"correct_answer,omitempty"`
	HintsGiven       int    `json:"hints_given"` // 0..3
	Attempts         int    `json:"attempts"`
	QuestionsAsked   int    `json:"questions_asked"`
	QuestionsCorrect int    `json:"questions_correct"`
}

// StudentContext is the per-student profile the engine refreshes from the
// mastery store at session start.
type StudentContext struct {
	StudentID       string             `json:"student_id"`
	GradeLevel      string             `json:"grade_level,omitempty"`
	Curriculum      string             `json:"curriculum,omitempty"`
	LearningStyle   string             `json:"learning_style,omitempty"`
	MasteryScores   map[string]float64 `json:"mastery_scores,omitempty"`
	WeakTopics      []string           `json:"weak_topics,omitempty"`
	TopicsDueReview []string           `json:"topics_due_review,omitempty"`
}

// Session is the complete conversational state for one tutoring session.
type Session struct {
	ID               string         `json:"id"`
	Messages         []Message      `json:"messages,omitempty"`
	Student          StudentContext `json:"student"`
	Content          ContentContext `json:"content"`
	Quiz             QuizState      `json:"quiz"`
	TurnCount        int            `json:"turn_count"`
	ShouldEndSession bool           `json:"should_end_session,omitempty"`
	Err              string         `json:"err,omitempty"`
	LastActivity     time.Time      `json:"last_activity"`
}

// Clone deep-copies the session, so a snapshot taken before a turn is
// immune to the turn's mutations.
func (s *Session) Clone() *Session {
	out := *s
	out.Messages = append([]Message(nil), s.Messages...)
	out.Content.RAGResults = append([]RetrievalHit(nil), s.Content.RAGResults...)
	if s.Student.MasteryScores != nil {
		scores := make(map[string]float64, len(s.Student.MasteryScores))
		for k, v := range s.Student.MasteryScores {
			scores[k] = v
		}
		out.Student.MasteryScores = scores
	}
	out.Student.WeakTopics = append([]string(nil), s.Student.WeakTopics...)
	out.Student.TopicsDueReview = append([]string(nil), s.Student.TopicsDueReview...)
	return &out
}
