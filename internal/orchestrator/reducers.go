// Package orchestrator contains the turn engine: the reducers that merge
// partial agent outputs into session state, the supervisor transition
// table, and the loop that runs agents until a terminal response exists.
package orchestrator

import (
	"aitutor/internal/types"
)

// Reducers merge a partial update into the prior value. They are pure:
// fields absent from the update are preserved, fields present overwrite,
// and applying the same update twice yields the same result as once.
// Losing an untouched field here is the most dangerous bug class in the
// engine (silent state loss, e.g. dropping the locked subject).

// MergeContent merges a ContentUpdate into a ContentContext.
//
// Subject is special-cased to uphold the subject lock: a locked subject
// is only replaced when the update carries an explicit user-initiated
// change, or when the same update transitions SubjectMismatch false->true
// (the mismatch path records the requested subject without answering
// from it).
func MergeContent(old types.ContentContext, upd *types.ContentUpdate) types.ContentContext {
	if upd == nil {
		return old
	}
	out := old

	if upd.Subject != nil {
		mismatchRaised := upd.SubjectMismatch != nil && *upd.SubjectMismatch && !old.SubjectMismatch
		if old.Subject == "" || upd.UserInitiatedSubjectChange || mismatchRaised {
			out.Subject = *upd.Subject
		}
	}
	if upd.Chapter != nil {
		out.Chapter = *upd.Chapter
	}
	if upd.Subtopic != nil {
		out.Subtopic = *upd.Subtopic
	}
	if upd.DifficultyLevel != nil {
		out.DifficultyLevel = *upd.DifficultyLevel
	}
	if upd.TextbookContent != nil {
		out.TextbookContent = *upd.TextbookContent
	}
	if upd.RAGResults != nil {
		out.RAGResults = append([]types.RetrievalHit(nil), upd.RAGResults...)
	}
	if upd.SubjectMismatch != nil {
		out.SubjectMismatch = *upd.SubjectMismatch
	}
	if upd.RequestedQuery != nil {
		out.RequestedQuery = *upd.RequestedQuery
	}
	if upd.CurrentSubject != nil {
		out.CurrentSubject = *upd.CurrentSubject
	}
	if upd.SkipStructured != nil {
		out.SkipStructured = *upd.SkipStructured
	}
	return out
}

// MergeQuiz merges a QuizUpdate into a QuizState. HintsGiven is clamped
// to the 0..3 bound the state model guarantees.
func MergeQuiz(old types.QuizState, upd *types.QuizUpdate) types.QuizState {
	if upd == nil {
		return old
	}
	out := old
	if upd.IsActive != nil {
		out.IsActive = *upd.IsActive
	}
	if upd.CurrentQuestion != nil {
		out.CurrentQuestion = *upd.CurrentQuestion
	}
	if upd.CorrectAnswer != nil {
		out.CorrectAnswer = *upd.CorrectAnswer
	}
	if upd.HintsGiven != nil {
		h := *upd.HintsGiven
		if h < 0 {
			h = 0
		}
		if h > 3 {
			h = 3
		}
		out.HintsGiven = h
	}
	if upd.Attempts != nil {
		out.Attempts = *upd.Attempts
	}
	if upd.QuestionsAsked != nil {
		out.QuestionsAsked = *upd.QuestionsAsked
	}
	if upd.QuestionsCorrect != nil {
		out.QuestionsCorrect = *upd.QuestionsCorrect
	}
	return out
}

// AppendMessages concatenates new messages onto the history, never
// truncating. A re-delivered batch whose contents already form the tail
// of the history is dropped, so applying the same append twice within a
// turn does not double-append.
func AppendMessages(old, batch []types.Message) []types.Message {
	if len(batch) == 0 {
		return old
	}
	if isSuffix(old, batch) {
		return old
	}
	out := make([]types.Message, 0, len(old)+len(batch))
	out = append(out, old...)
	out = append(out, batch...)
	return out
}

func isSuffix(history, batch []types.Message) bool {
	if len(batch) > len(history) {
		return false
	}
	tail := history[len(history)-len(batch):]
	for i := range batch {
		if !sameMessage(tail[i], batch[i]) {
			return false
		}
	}
	return true
}

// sameMessage treats messages as identical only when the timestamp also
// matches: a re-delivered batch carries the original timestamps, while a
// student genuinely repeating themselves produces a fresh one.
func sameMessage(a, b types.Message) bool {
	return a.Role == b.Role && a.Content == b.Content &&
		a.AgentType == b.AgentType && a.Timestamp.Equal(b.Timestamp)
}
