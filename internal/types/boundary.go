package types

// The boundary types carry one chat turn across the process edge (HTTP
// handler or REPL) into the engine and back.

// StudentSeed identifies the student for a turn. Non-empty fields
// override whatever a restored snapshot carries.
type StudentSeed struct {
	StudentID     string `json:"student_id"`
	GradeLevel    string `json:"grade_level,omitempty"`
	Curriculum    string `json:"curriculum,omitempty"`
	LearningStyle string `json:"learning_style,omitempty"`
}

// ContentSeed pins the turn's subject or subtopic from the outside. A
// non-empty Subject counts as a user-initiated subject change.
type ContentSeed struct {
	Subject  string `json:"subject,omitempty"`
	Subtopic string `json:"subtopic,omitempty"`
}

// TurnRequest is one inbound chat turn.
type TurnRequest struct {
	SessionID string      `json:"session_id"`
	UserInput string      `json:"user_input"`
	Student   StudentSeed `json:"student,omitempty"`
	Content   ContentSeed `json:"content,omitempty"`
}

// Response types distinguish what kind of turn the student just had.
const (
	ResponseAnswer   = "answer"
	ResponseQuiz     = "quiz_question"
	ResponseGrading  = "grading"
	ResponseMismatch = "subject_mismatch"
	ResponseGoodbye  = "goodbye"
	ResponseError    = "error"
)

// TurnMetadata is the observability companion to a response.
type TurnMetadata struct {
	TurnCount       int      `json:"turn_count"`
	DetectedSubject string   `json:"detected_subject,omitempty"`
	Sources         []string `json:"sources,omitempty"`
}

// TurnResponse is the engine's answer to one turn. Every failure class
// still produces one of these; the session stays retryable.
type TurnResponse struct {
	Response     string       `json:"response"`
	ResponseType string       `json:"response_type"`
	Intent       Intent       `json:"intent,omitempty"`
	QuizActive   bool         `json:"quiz_active"`
	Metadata     TurnMetadata `json:"metadata"`
}
