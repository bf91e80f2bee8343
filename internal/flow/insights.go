package flow

import (
	"strings"

	"github.com/Chronis77/aluuna-monorepo-sub002/internal/models"
)

// insightTriggers marks sentences worth surfacing as standalone insights.
var insightTriggers = []string{"pattern", "suggests", "seems like", "notice"}

// ExtractInsights scans reply text for sentences that carry reflective
// weight and returns at most MaxResponseInsights of them. The result is
// never nil. This is a keyword heuristic, deliberately cheap; it can be
// swapped for a classifier without touching the orchestrator.
func ExtractInsights(text string) []string {
	insights := []string{}
	for _, sentence := range splitSentences(text) {
		lower := strings.ToLower(sentence)
		for _, trigger := range insightTriggers {
			if strings.Contains(lower, trigger) {
				insights = append(insights, sentence)
				break
			}
		}
		if len(insights) == models.MaxResponseInsights {
			break
		}
	}
	return insights
}

// splitSentences breaks text on terminal punctuation, trimming whitespace
// and dropping fragments too short to stand alone.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder
	for _, r := range text {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if s := strings.TrimSpace(current.String()); len(s) > 12 {
				sentences = append(sentences, s)
			}
			current.Reset()
		}
	}
	if s := strings.TrimSpace(current.String()); len(s) > 12 {
		sentences = append(sentences, s)
	}
	return sentences
}
