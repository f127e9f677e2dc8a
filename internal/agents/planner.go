package agents

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"aitutor/internal/llm"
	"aitutor/internal/retrieval"
	"aitutor/internal/store"
	"aitutor/internal/types"
)

// ContentLibrary is the structured-content collaborator the planner uses
// for exhaustive chapter enumeration and exact content lookups.
type ContentLibrary interface {
	ListChapters(ctx context.Context, subject, syllabus string) (store.ChapterList, error)
	QueryContent(ctx context.Context, subject, chapter, subtopic string, limit int) ([]store.ContentRow, error)
}

// Planner resolves which subject and content the current turn is about.
//
// Invariants it upholds:
//   - a locked subject scopes every retrieval call and is never replaced
//     based on retrieval content, only on an explicit user instruction;
//   - "list all chapters" requests bypass similarity retrieval (top-k
//     would truncate an exhaustive listing);
//   - short affirmations continue the previous topic untouched;
//   - structured-content lookups may adjust chapter/subtopic/body text,
//     never the subject.
type Planner struct {
	search   retrieval.Searcher
	library  ContentLibrary
	llm      llm.Client
	log      *zap.Logger
	limit    int
	minScore float64
	syllabus string
}

// NewPlanner creates a planner.
func NewPlanner(search retrieval.Searcher, library ContentLibrary, client llm.Client, log *zap.Logger) *Planner {
	return &Planner{
		search:   search,
		library:  library,
		llm:      client,
		log:      log.Named("planner"),
		limit:    5,
		minScore: 0.35,
	}
}

// SetSyllabus scopes retrieval and chapter enumeration to one syllabus.
func (p *Planner) SetSyllabus(syllabus string) {
	p.syllabus = syllabus
}

var affirmations = []string{"yes", "ok", "okay", "sure", "continue", "go on", "yep", "yeah", "please do", "alright"}

var chapterListPhrases = []string{
	"list all chapters", "list the chapters", "all chapters", "show chapters",
	"what chapters", "which chapters", "list all topics", "all the topics",
	"show me the topics", "table of contents",
}

var subjectSwitchPhrases = []string{"switch to", "change subject to", "change to", "instead teach me", "let's study"}

// foreignKeywords maps each known subject to vocabulary that marks a
// query as belonging to it. Cross-referencing a locked session's query
// against the *other* subjects' rows is how drift is detected.
var foreignKeywords = map[string][]string{
	"music":       {"musical note", "musical notes", "melody", "chord", "rhythm", "octave", "stave", "treble clef"},
	"ict":         {"computer", "network", "software", "hardware", "database", "internet", "spreadsheet", "algorithm"},
	"science":     {"photosynthesis", "molecule", "gravity", "ecosystem", "cell division", "chemical reaction"},
	"mathematics": {"equation", "fraction", "geometry", "algebra", "theorem", "integral"},
	"history":     {"empire", "revolution", "dynasty", "ancient civilization", "world war"},
}

// Resolve assembles the content update for a turn. It never returns an
// error: retrieval and lookup failures degrade to an empty or partial
// content context, which the teacher can still answer from.
func (p *Planner) Resolve(ctx context.Context, input string, sess *types.Session) *types.ContentUpdate {
	trimmed := strings.TrimSpace(strings.ToLower(input))
	locked := sess.Content.Subject

	// Short affirmations continue the previous topic. Running subject
	// detection on "yes" would thrash the lock.
	if isAffirmation(trimmed) {
		p.log.Debug("affirmation, continuing previous topic")
		return nil
	}

	// Explicit user-initiated subject change.
	if requested := p.explicitSubjectSwitch(trimmed); requested != "" && requested != strings.ToLower(locked) {
		p.log.Info("explicit subject change",
			zap.String("from", locked), zap.String("to", requested))
		return &types.ContentUpdate{
			Subject:                    types.StringPtr(requested),
			Chapter:                    types.StringPtr(""),
			Subtopic:                   types.StringPtr(""),
			TextbookContent:            types.StringPtr(""),
			SubjectMismatch:            types.BoolPtr(false),
			SkipStructured:             types.BoolPtr(false),
			UserInitiatedSubjectChange: true,
		}
	}

	// Chapter-list short-circuit: exhaustive enumeration, never top-k.
	if locked != "" && matchesChapterList(trimmed) {
		return p.enumerateChapters(ctx, locked)
	}

	foreign := p.detectForeignSubject(ctx, trimmed, locked)

	hits := p.searchLocked(ctx, input, locked)

	if locked != "" && len(hits) == 0 && foreign != "" {
		// The locked subject has nothing relevant and the query carries
		// another subject's vocabulary: flag the mismatch instead of
		// silently searching elsewhere.
		p.log.Info("subject mismatch detected",
			zap.String("locked", locked), zap.String("requested", foreign))
		return &types.ContentUpdate{
			SubjectMismatch: types.BoolPtr(true),
			RequestedQuery:  types.StringPtr(input),
			CurrentSubject:  types.StringPtr(locked),
			SkipStructured:  types.BoolPtr(true),
		}
	}

	upd := &types.ContentUpdate{
		SubjectMismatch: types.BoolPtr(false),
		SkipStructured:  types.BoolPtr(false),
	}
	if len(hits) == 0 {
		// Empty retrieval is not an error; the teacher answers anyway.
		upd.RAGResults = []types.RetrievalHit{}
		return upd
	}

	top := hits[0]
	upd.RAGResults = hits
	if locked == "" && top.Subject != "" {
		upd.Subject = types.StringPtr(top.Subject)
	}
	if top.Chapter != "" {
		upd.Chapter = types.StringPtr(top.Chapter)
	}
	if top.Subtopic != "" {
		upd.Subtopic = types.StringPtr(top.Subtopic)
	}

	p.attachStructuredContent(ctx, upd, locked, top)
	return upd
}

// searchLocked queries retrieval scoped to the locked subject and drops
// hits below the relevance floor.
func (p *Planner) searchLocked(ctx context.Context, query, locked string) []types.RetrievalHit {
	hits, err := p.search.Search(ctx, query, retrieval.SearchOptions{
		Subject:  locked,
		Syllabus: p.syllabus,
		Limit:    p.limit,
	})
	if err != nil {
		p.log.Warn("retrieval failed, continuing with empty context", zap.Error(err))
		return nil
	}
	relevant := hits[:0]
	for _, h := range hits {
		if h.Score >= p.minScore {
			relevant = append(relevant, h)
		}
	}
	return relevant
}

// attachStructuredContent fills body text from the content library. The
// secondary lookup may only adjust chapter, subtopic, and body text —
// never the subject.
func (p *Planner) attachStructuredContent(ctx context.Context, upd *types.ContentUpdate, locked string, top types.RetrievalHit) {
	subject := locked
	if subject == "" {
		subject = top.Subject
	}
	rows, err := p.library.QueryContent(ctx, subject, top.Chapter, top.Subtopic, 3)
	if err != nil {
		p.log.Warn("structured lookup failed", zap.Error(err))
		return
	}
	if len(rows) == 0 {
		return
	}
	var body strings.Builder
	for i, row := range rows {
		if i > 0 {
			body.WriteString("\n\n")
		}
		body.WriteString(row.Content)
	}
	upd.TextbookContent = types.StringPtr(body.String())
	if rows[0].Chapter != "" {
		upd.Chapter = types.StringPtr(rows[0].Chapter)
	}
	if rows[0].Subtopic != "" {
		upd.Subtopic = types.StringPtr(rows[0].Subtopic)
	}
}

// enumerateChapters fetches the complete chapter listing for the locked
// subject from the content library.
func (p *Planner) enumerateChapters(ctx context.Context, subject string) *types.ContentUpdate {
	list, err := p.library.ListChapters(ctx, subject, p.syllabus)
	if err != nil {
		p.log.Warn("chapter enumeration failed", zap.Error(err))
		return nil
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s has %d chapters:\n", subject, list.TotalChapters)
	for i, ch := range list.Chapters {
		fmt.Fprintf(&sb, "%d. %s (%d subtopics)\n", i+1, ch.Name, ch.SubtopicCount)
	}
	return &types.ContentUpdate{
		TextbookContent: types.StringPtr(sb.String()),
		SubjectMismatch: types.BoolPtr(false),
		SkipStructured:  types.BoolPtr(true),
	}
}

// detectForeignSubject cross-references the query against the foreign
// keyword table. An unambiguous match (foreign vocabulary and none of the
// locked subject's own) is trusted directly; an ambiguous one is settled
// by a yes/no model call. If that call fails the resolver assumes the
// student stayed on the locked subject rather than accusing them of
// drifting on a transient fault.
func (p *Planner) detectForeignSubject(ctx context.Context, query, locked string) string {
	if locked == "" {
		return ""
	}
	lockedLower := strings.ToLower(locked)

	var candidate string
	for subject, words := range foreignKeywords {
		if subject == lockedLower {
			continue
		}
		if containsAny(query, words) {
			candidate = subject
			break
		}
	}
	if candidate == "" {
		return ""
	}

	// Own-subject vocabulary alongside the foreign match makes the signal
	// ambiguous (e.g. "algorithm for reading musical notes" under ICT).
	ambiguous := containsAny(query, foreignKeywords[lockedLower])
	if !ambiguous {
		return candidate
	}

	prompt := fmt.Sprintf(
		"A student studying %s asked: %q\nIs this question really about %s instead? Answer yes or no.",
		locked, query, candidate)
	raw, err := p.llm.Complete(ctx, prompt)
	if err != nil {
		p.log.Warn("mismatch confirmation failed, assuming same subject", zap.Error(err))
		return ""
	}
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(raw)), "yes") {
		return candidate
	}
	return ""
}

func (p *Planner) explicitSubjectSwitch(query string) string {
	for _, phrase := range subjectSwitchPhrases {
		idx := strings.Index(query, phrase)
		if idx < 0 {
			continue
		}
		rest := strings.TrimSpace(query[idx+len(phrase):])
		for subject := range foreignKeywords {
			if strings.HasPrefix(rest, subject) {
				return subject
			}
		}
	}
	return ""
}

func isAffirmation(query string) bool {
	q := strings.Trim(query, " .!?")
	for _, a := range affirmations {
		if q == a {
			return true
		}
	}
	return false
}

func matchesChapterList(query string) bool {
	return containsAny(query, chapterListPhrases)
}
