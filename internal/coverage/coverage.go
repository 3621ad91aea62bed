package coverage

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"mrc_prep/internal/rouge"
)

// Ceiling is the best similarity the extracted answer spans can reach
// against the gold answer text. No spans means a score of zero.
func Ceiling(fakeAnswers []string, gold string, scorer rouge.Scorer) float64 {
	if len(fakeAnswers) == 0 {
		return 0
	}
	lower := cases.Lower(language.Und)
	cand := lower.String(strings.Join(fakeAnswers, ""))
	return scorer.Score(cand, lower.String(gold))
}
