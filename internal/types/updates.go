package types

// Partial updates use pointer fields: nil means "leave the prior value
// alone", a non-nil pointer overwrites. Agents emit these; only the
// engine's reducers apply them.

// ContentUpdate is an agent's partial change to ContentContext.
type ContentUpdate struct {
	Subject         *string
	Chapter         *string
	Subtopic        *string
	DifficultyLevel *string
	TextbookContent *string
	RAGResults      []RetrievalHit
	SubjectMismatch *bool
	RequestedQuery  *string
	CurrentSubject  *string
	SkipStructured  *bool

	// UserInitiatedSubjectChange marks the one path allowed to replace a
	// locked subject.
	UserInitiatedSubjectChange bool
}

// QuizUpdate is an agent's partial change to QuizState.
type QuizUpdate struct {
	IsActive         *bool
	CurrentQuestion  *string
	CorrectAnswer    *string
	HintsGiven       *int
	Attempts         *int
	QuestionsAsked   *int
	QuestionsCorrect *int
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string { return &s }

// BoolPtr returns a pointer to b.
func BoolPtr(b bool) *bool { return &b }

// IntPtr returns a pointer to i.
func IntPtr(i int) *int { return &i }
