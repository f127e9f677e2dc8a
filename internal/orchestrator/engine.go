package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"aitutor/internal/agents"
	"aitutor/internal/llm"
	"aitutor/internal/retrieval"
	"aitutor/internal/store"
	"aitutor/internal/types"
)

// Checkpointer persists session snapshots between turns. Turn N+1 for a
// session must observe turn N's committed state, never an older one.
type Checkpointer interface {
	SaveCheckpoint(ctx context.Context, sess *types.Session) error
	LoadLatest(ctx context.Context, sessionID string) (*types.Session, error)
}

// StudentProfiler reads the mastery store to refresh StudentContext at
// session start.
type StudentProfiler interface {
	GetMastery(ctx context.Context, studentID, subject string) ([]store.MasteryRecord, error)
	GetWeakTopics(ctx context.Context, studentID string, threshold float64, limit int) ([]string, error)
	GetDueForReview(ctx context.Context, studentID string, limit int) ([]string, error)
}

// Deps bundles the collaborator handles the engine is constructed with.
// Nothing in this package reaches for globals.
type Deps struct {
	LLM         llm.Client
	Search      retrieval.Searcher
	Library     agents.ContentLibrary
	Mastery     agents.MasteryUpdater
	Profile     StudentProfiler
	Checkpoints Checkpointer
	Log         *zap.Logger

	// Syllabus scopes retrieval when the deployment serves one syllabus.
	Syllabus string
}

// Engine runs one chat turn at a time per session: route, run the chosen
// agent, merge its partial result, repeat until a terminal agent produced
// a user-visible response, then checkpoint.
type Engine struct {
	log     *zap.Logger
	intent  *agents.IntentClassifier
	planner *agents.Planner
	teacher *agents.TeacherAgent
	grader  *agents.Grader

	checkpoints Checkpointer
	profile     StudentProfiler

	// sessionLocks order turns within a session: a second turn cannot
	// load state until the previous turn's checkpoint is durable.
	sessionMu    sync.Mutex
	sessionLocks map[string]*sync.Mutex
}

// New constructs the engine from its collaborator bundle.
func New(deps Deps) *Engine {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("engine")
	planner := agents.NewPlanner(deps.Search, deps.Library, deps.LLM, log)
	planner.SetSyllabus(deps.Syllabus)
	return &Engine{
		log:          log,
		intent:       agents.NewIntentClassifier(deps.LLM, log),
		planner:      planner,
		teacher:      agents.NewTeacherAgent(deps.LLM, log),
		grader:       agents.NewGrader(deps.LLM, deps.Mastery, log),
		checkpoints:  deps.Checkpoints,
		profile:      deps.Profile,
		sessionLocks: make(map[string]*sync.Mutex),
	}
}

const (
	goodbyeMessage = "Goodbye! Great work today — come back whenever you're ready to keep learning."
	apologyMessage = "I'm sorry, something went wrong on my side. Please try that again."

	// A turn visits at most supervisor -> planner -> teacher.
	maxAgentHops = 4
)

// ProcessTurn handles one chat turn. It never returns an error: every
// failure class resolves to a user-visible response and a best-effort
// snapshot, and the session stays retryable.
func (e *Engine) ProcessTurn(ctx context.Context, req types.TurnRequest) types.TurnResponse {
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	mu := e.sessionLock(req.SessionID)
	mu.Lock()
	defer mu.Unlock()

	sess := e.loadSession(ctx, req)
	snapshot := sess.Clone()

	resp := e.runTurn(ctx, req, sess)

	if resp.ResponseType == types.ResponseError {
		// Best-effort snapshot of the pre-turn state plus the error mark;
		// the half-applied turn state is discarded.
		snapshot.Err = sess.Err
		sess = snapshot
		sess.ShouldEndSession = false
	}

	sess.Messages = AppendMessages(sess.Messages, []types.Message{
		{Role: types.RoleUser, Content: req.UserInput, Timestamp: time.Now().UTC()},
		{Role: types.RoleAssistant, Content: resp.Response, Timestamp: time.Now().UTC(), AgentType: resp.ResponseType},
	})
	sess.TurnCount++
	sess.LastActivity = time.Now().UTC()
	enforceQuizInvariant(sess)

	if err := e.checkpoints.SaveCheckpoint(ctx, sess); err != nil {
		e.log.Error("checkpoint failed", zap.String("session", sess.ID), zap.Error(err))
	}

	resp.QuizActive = sess.Quiz.IsActive
	resp.Metadata.TurnCount = sess.TurnCount
	resp.Metadata.DetectedSubject = sess.Content.Subject
	return resp
}

// runTurn executes the supervisor loop. Panics from any agent are the
// unrecoverable-workflow class: caught here, never past the turn boundary.
func (e *Engine) runTurn(ctx context.Context, req types.TurnRequest, sess *types.Session) (resp types.TurnResponse) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("turn panicked", zap.String("session", sess.ID), zap.Any("panic", r))
			sess.Err = "workflow panic"
			resp = types.TurnResponse{Response: apologyMessage, ResponseType: types.ResponseError}
		}
	}()

	result := e.intent.Classify(ctx, req.UserInput, sess)
	if result.EndSession {
		sess.ShouldEndSession = true
	}
	resp.Intent = result.Intent

	state := NextAgent(sess, result.Intent, req.UserInput != "")
	for hop := 0; hop < maxAgentHops; hop++ {
		e.log.Debug("routing",
			zap.String("session", sess.ID),
			zap.String("agent", string(state)),
			zap.String("intent", string(result.Intent)))

		switch state {
		case StateEnd:
			if sess.Err != "" {
				resp.Response = apologyMessage
				resp.ResponseType = types.ResponseError
				return resp
			}
			resp.Response = goodbyeMessage
			resp.ResponseType = types.ResponseGoodbye
			return resp

		case StateGrader:
			gr := e.grader.HandleAnswer(ctx, sess, req.UserInput)
			sess.Quiz = MergeQuiz(sess.Quiz, gr.Quiz)
			if gr.Mastery != nil {
				if sess.Student.MasteryScores == nil {
					sess.Student.MasteryScores = make(map[string]float64)
				}
				sess.Student.MasteryScores[gr.Mastery.TopicKey] = gr.Mastery.MasteryScore
			}
			resp.Response = gr.Response
			resp.ResponseType = types.ResponseGrading
			return resp

		case StatePlanner:
			upd := e.planner.Resolve(ctx, req.UserInput, sess)
			sess.Content = MergeContent(sess.Content, upd)
			state = AfterPlanner(sess)

		case StateTeacher:
			complexity := agents.ClassifyComplexity(req.UserInput, recentUserMessages(sess, 3))
			tr := e.teacher.Respond(ctx, sess, req.UserInput, result.Intent, complexity)
			sess.Quiz = MergeQuiz(sess.Quiz, tr.Quiz)
			resp.Response = tr.Response
			resp.ResponseType = tr.ResponseType
			resp.Metadata.Sources = contentSources(sess.Content)
			return resp

		default: // StateSupervisor re-enters the table.
			state = NextAgent(sess, result.Intent, req.UserInput != "")
		}
	}

	e.log.Error("agent loop exceeded hop budget", zap.String("session", sess.ID))
	sess.Err = "agent loop exceeded hop budget"
	resp.Response = apologyMessage
	resp.ResponseType = types.ResponseError
	return resp
}

// loadSession restores the latest checkpoint and applies the single
// directional precedence rule: freshly supplied request fields override
// whatever was restored. A failed or corrupt restore starts fresh and
// re-asserts the known-good request fields rather than trusting the
// loaded value blindly.
func (e *Engine) loadSession(ctx context.Context, req types.TurnRequest) *types.Session {
	sess, err := e.checkpoints.LoadLatest(ctx, req.SessionID)
	if err != nil {
		e.log.Warn("state restoration failed, starting fresh",
			zap.String("session", req.SessionID), zap.Error(err))
		sess = nil
	}
	fresh := sess == nil
	if fresh {
		sess = &types.Session{ID: req.SessionID}
	}

	applyStudentSeed(sess, req.Student)

	if req.Content.Subject != "" && req.Content.Subject != sess.Content.Subject {
		sess.Content = MergeContent(sess.Content, &types.ContentUpdate{
			Subject:                    types.StringPtr(req.Content.Subject),
			Chapter:                    types.StringPtr(""),
			Subtopic:                   types.StringPtr(req.Content.Subtopic),
			SubjectMismatch:            types.BoolPtr(false),
			UserInitiatedSubjectChange: true,
		})
	} else if req.Content.Subtopic != "" {
		sess.Content = MergeContent(sess.Content, &types.ContentUpdate{
			Subtopic: types.StringPtr(req.Content.Subtopic),
		})
	}

	// Stale mismatch flags do not survive into a new turn: the teacher
	// renders a mismatch only when this turn's resolver raises it.
	sess.Content.SubjectMismatch = false
	sess.Content.RequestedQuery = ""
	sess.Err = ""

	if fresh {
		e.refreshStudentProfile(ctx, sess)
	}
	return sess
}

func applyStudentSeed(sess *types.Session, seed types.StudentSeed) {
	if seed.StudentID != "" {
		sess.Student.StudentID = seed.StudentID
	}
	if seed.GradeLevel != "" {
		sess.Student.GradeLevel = seed.GradeLevel
	}
	if seed.Curriculum != "" {
		sess.Student.Curriculum = seed.Curriculum
	}
	if seed.LearningStyle != "" {
		sess.Student.LearningStyle = seed.LearningStyle
	}
}

// refreshStudentProfile pulls mastery scores, weak topics, and due
// reviews into StudentContext at session start. Failures degrade to an
// empty profile.
func (e *Engine) refreshStudentProfile(ctx context.Context, sess *types.Session) {
	id := sess.Student.StudentID
	if id == "" || e.profile == nil {
		return
	}
	records, err := e.profile.GetMastery(ctx, id, "")
	if err != nil {
		e.log.Warn("mastery refresh failed", zap.String("student", id), zap.Error(err))
	} else {
		scores := make(map[string]float64, len(records))
		for _, rec := range records {
			scores[rec.TopicKey] = rec.MasteryScore
		}
		sess.Student.MasteryScores = scores
	}
	if weak, err := e.profile.GetWeakTopics(ctx, id, 0.5, 5); err == nil {
		sess.Student.WeakTopics = weak
	}
	if due, err := e.profile.GetDueForReview(ctx, id, 5); err == nil {
		sess.Student.TopicsDueReview = due
	}
}

// enforceQuizInvariant guarantees no checkpoint ever records an active
// quiz without question text.
func enforceQuizInvariant(sess *types.Session) {
	if sess.Quiz.IsActive && sess.Quiz.CurrentQuestion == "" {
		sess.Quiz.IsActive = false
		sess.Quiz.CorrectAnswer = ""
	}
}

func (e *Engine) sessionLock(id string) *sync.Mutex {
	e.sessionMu.Lock()
	defer e.sessionMu.Unlock()
	mu, ok := e.sessionLocks[id]
	if !ok {
		mu = &sync.Mutex{}
		e.sessionLocks[id] = mu
	}
	return mu
}

func recentUserMessages(sess *types.Session, n int) []string {
	var out []string
	for i := len(sess.Messages) - 1; i >= 0 && len(out) < n; i-- {
		if sess.Messages[i].Role == types.RoleUser {
			out = append(out, sess.Messages[i].Content)
		}
	}
	return out
}

func contentSources(content types.ContentContext) []string {
	seen := make(map[string]bool)
	var out []string
	for _, hit := range content.RAGResults {
		key := hit.Subject + "/" + hit.Chapter
		if hit.Chapter == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, key)
	}
	return out
}
