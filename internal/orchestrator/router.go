package orchestrator

import "aitutor/internal/types"

// AgentState is the closed set of supervisor states. The transition
// function below is total over it: every (end, quiz, intent) combination
// maps to exactly one next agent.
type AgentState string

const (
	StateSupervisor AgentState = "supervisor"
	StatePlanner    AgentState = "planner"
	StateTeacher    AgentState = "teacher"
	StateGrader     AgentState = "grader"
	StateEnd        AgentState = "end"
)

// NextAgent evaluates the supervisor transition table for a turn,
// in priority order:
//
//  1. session ending or unrecovered error -> end
//  2. active quiz with user input          -> grader
//  3. learn / review / question            -> planner
//  4. practice: subject already resolved   -> teacher (generates a quiz),
//     otherwise                            -> planner
//  5. off_topic                            -> teacher (handled gracefully)
//  6. anything else                        -> planner
func NextAgent(sess *types.Session, intent types.Intent, hasInput bool) AgentState {
	if sess.ShouldEndSession || sess.Err != "" {
		return StateEnd
	}
	if sess.Quiz.IsActive && hasInput {
		return StateGrader
	}
	switch intent {
	case types.IntentLearn, types.IntentReview, types.IntentQuestion:
		return StatePlanner
	case types.IntentPractice:
		if sess.Content.Subject != "" {
			return StateTeacher
		}
		return StatePlanner
	case types.IntentOffTopic:
		return StateTeacher
	default:
		return StatePlanner
	}
}

// AfterPlanner is the unconditional planner handoff: the teacher runs
// even on a zero-result retrieval, so the loop cannot deadlock. Only an
// unrecovered error diverts to end.
func AfterPlanner(sess *types.Session) AgentState {
	if sess.Err != "" {
		return StateEnd
	}
	return StateTeacher
}
