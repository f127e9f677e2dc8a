package agents

import "strings"

// ComplexityLevel is how much elaboration the teacher requests from the
// model. It parameterizes prompt sizing only; routing never reads it.
type ComplexityLevel string

const (
	ComplexitySimple   ComplexityLevel = "simple"
	ComplexityModerate ComplexityLevel = "moderate"
	ComplexityDetailed ComplexityLevel = "detailed"
)

// ComplexityResult carries the level plus the additive score and the
// factors that contributed, for observability.
type ComplexityResult struct {
	Level   ComplexityLevel
	Score   float64
	Factors []string
}

var (
	detailPhrases      = []string{"explain in detail", "in depth", "thoroughly", "step by step", "elaborate"}
	comparativeWords   = []string{"compare", "contrast", "difference", "versus", " vs ", "better than"}
	processWords       = []string{"process", "procedure", "mechanism", "workflow", "stages", "cycle"}
	technicalWords     = []string{"algorithm", "protocol", "function", "equation", "theorem", "molecule", "circuit", "derivative", "syntax"}
	followUpCues       = []string{"also", "what about", "and then", "further", "additionally"}
	simpleClosedOpener = []string{"what is ", "what's ", "define ", "who is ", "when is "}
)

// ClassifyComplexity scores a message against the conversation so far.
// Pure function: additive scoring with fixed thresholds
// (>=3 detailed, >=1.5 moderate, else simple).
func ClassifyComplexity(text string, history []string) ComplexityResult {
	lower := strings.ToLower(strings.TrimSpace(text))
	words := strings.Fields(lower)

	var score float64
	var factors []string
	add := func(pts float64, factor string) {
		score += pts
		factors = append(factors, factor)
	}

	if containsAny(lower, detailPhrases) {
		add(3, "explicit_detail_request")
	}
	if strings.Contains(lower, "why") || strings.Contains(lower, "how") {
		add(2, "why_how_question")
	}
	if strings.Contains(lower, " and ") && len(words) > 8 {
		add(2, "multi_clause")
	}
	if containsAny(lower, comparativeWords) || containsAny(lower, processWords) {
		add(2, "comparative_or_process")
	}
	if len(words) > 10 {
		add(1, "long_question")
	}
	if containsAny(lower, technicalWords) {
		add(1, "technical_vocabulary")
	}
	if historyHasFollowUpCue(history) {
		add(1.5, "follow_up_context")
	}
	if isSimpleClosed(lower, words) {
		add(-1, "simple_closed_question")
	}

	level := ComplexitySimple
	switch {
	case score >= 3:
		level = ComplexityDetailed
	case score >= 1.5:
		level = ComplexityModerate
	}
	return ComplexityResult{Level: level, Score: score, Factors: factors}
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func historyHasFollowUpCue(history []string) bool {
	for _, h := range history {
		if containsAny(strings.ToLower(h), followUpCues) {
			return true
		}
	}
	return false
}

// isSimpleClosed matches short "what is X" style questions.
func isSimpleClosed(lower string, words []string) bool {
	if len(words) > 6 {
		return false
	}
	for _, opener := range simpleClosedOpener {
		if strings.HasPrefix(lower, opener) {
			return true
		}
	}
	return false
}
