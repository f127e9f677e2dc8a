package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"aitutor/internal/types"
)

// TestRouterTotality walks the full (end, quizActive, intent) cube and
// checks every combination lands on exactly one known agent.
func TestRouterTotality(t *testing.T) {
	intents := []types.Intent{
		types.IntentLearn, types.IntentPractice, types.IntentReview,
		types.IntentQuestion, types.IntentOffTopic, types.Intent("garbage"),
	}
	valid := map[AgentState]bool{
		StatePlanner: true, StateTeacher: true, StateGrader: true, StateEnd: true,
	}

	for _, end := range []bool{false, true} {
		for _, quiz := range []bool{false, true} {
			for _, hasInput := range []bool{false, true} {
				for _, intent := range intents {
					sess := &types.Session{
						ShouldEndSession: end,
						Quiz:             types.QuizState{IsActive: quiz},
					}
					got := NextAgent(sess, intent, hasInput)
					assert.Truef(t, valid[got],
						"unhandled combination end=%v quiz=%v input=%v intent=%q -> %q",
						end, quiz, hasInput, intent, got)
				}
			}
		}
	}
}

func TestRouterPriorityOrder(t *testing.T) {
	tests := []struct {
		name     string
		sess     *types.Session
		intent   types.Intent
		hasInput bool
		want     AgentState
	}{
		{
			name:   "session end wins over everything",
			sess:   &types.Session{ShouldEndSession: true, Quiz: types.QuizState{IsActive: true}},
			intent: types.IntentPractice, hasInput: true,
			want: StateEnd,
		},
		{
			name:   "unrecovered error routes to end",
			sess:   &types.Session{Err: "boom"},
			intent: types.IntentLearn, hasInput: true,
			want: StateEnd,
		},
		{
			name:   "active quiz with input goes to grader",
			sess:   &types.Session{Quiz: types.QuizState{IsActive: true}},
			intent: types.IntentLearn, hasInput: true,
			want: StateGrader,
		},
		{
			name:   "active quiz without input does not grade",
			sess:   &types.Session{Quiz: types.QuizState{IsActive: true}},
			intent: types.IntentLearn, hasInput: false,
			want: StatePlanner,
		},
		{
			name:   "learn goes to planner",
			sess:   &types.Session{},
			intent: types.IntentLearn, hasInput: true,
			want: StatePlanner,
		},
		{
			name:   "practice with resolved subject goes straight to teacher",
			sess:   &types.Session{Content: types.ContentContext{Subject: "ICT"}},
			intent: types.IntentPractice, hasInput: true,
			want: StateTeacher,
		},
		{
			name:   "practice without subject resolves first",
			sess:   &types.Session{},
			intent: types.IntentPractice, hasInput: true,
			want: StatePlanner,
		},
		{
			name:   "off topic is handled by the teacher",
			sess:   &types.Session{},
			intent: types.IntentOffTopic, hasInput: true,
			want: StateTeacher,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextAgent(tt.sess, tt.intent, tt.hasInput))
		})
	}
}

func TestAfterPlannerAlwaysReachesTeacher(t *testing.T) {
	assert.Equal(t, StateTeacher, AfterPlanner(&types.Session{}))
	assert.Equal(t, StateEnd, AfterPlanner(&types.Session{Err: "retrieval exploded"}))
}
