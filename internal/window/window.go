// Package window crops long documents to a fixed character budget while
// keeping the gold answer span intact.
package window

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
)

const (
	DefaultMinLeft  = 100
	DefaultMinRight = 50
)

var (
	ErrBudgetTooSmall = errors.New("window budget too small for answer and context")
	ErrSpanOutOfRange = errors.New("answer span out of range")
	ErrBadBudget      = errors.New("window budget must be positive")
)

type Strategy string

const (
	Truncate Strategy = "truncate"
	Fits     Strategy = "fits"
	Front    Strategy = "front"
	Back     Strategy = "back"
	Center   Strategy = "center"
)

// Span is an inclusive character range.
type Span struct {
	Start int
	End   int
}

func (s Span) Len() int {
	return s.End - s.Start + 1
}

type Params struct {
	Budget   int
	MinLeft  int
	MinRight int
}

func DefaultParams(budget int) Params {
	return Params{Budget: budget, MinLeft: DefaultMinLeft, MinRight: DefaultMinRight}
}

// Rand is the randomness source for answer-centered cropping.
type Rand interface {
	IntN(n int) int
}

func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Cut is a planned window [From, To) over the original content. Span holds
// the answer in window coordinates when one was given.
type Cut struct {
	From     int
	To       int
	Span     Span
	Strategy Strategy
}

func (c Cut) Len() int {
	return c.To - c.From
}

// Plan chooses the window for content of the given length. A nil span means
// the document holds no answer and is simply truncated.
func Plan(length int, span *Span, p Params, rng Rand) (Cut, error) {
	if p.Budget <= 0 {
		return Cut{}, fmt.Errorf("%w: %d", ErrBadBudget, p.Budget)
	}
	if span == nil {
		return Cut{From: 0, To: min(length, p.Budget), Strategy: Truncate}, nil
	}

	start, end := span.Start, span.End
	if start < 0 || start > end || end >= length {
		return Cut{}, fmt.Errorf("%w: [%d, %d] in content of length %d", ErrSpanOutOfRange, start, end, length)
	}
	if p.Budget <= p.MinLeft+p.MinRight+span.Len() {
		return Cut{}, fmt.Errorf("%w: budget %d, min left %d, min right %d, answer length %d",
			ErrBudgetTooSmall, p.Budget, p.MinLeft, p.MinRight, span.Len())
	}

	switch {
	case length <= p.Budget:
		return Cut{From: 0, To: length, Span: *span, Strategy: Fits}, nil
	case end <= p.Budget-p.MinRight:
		return Cut{From: 0, To: p.Budget, Span: *span, Strategy: Front}, nil
	case length-start+p.MinLeft <= p.Budget:
		from := length - p.Budget
		return Cut{From: from, To: length, Span: shift(*span, from), Strategy: Back}, nil
	}

	leftRight := p.Budget - span.Len()
	lo, hi := p.MinLeft, leftRight-p.MinRight
	left := lo + rng.IntN(hi-lo+1)
	from := start - left
	return Cut{From: from, To: from + p.Budget, Span: shift(*span, from), Strategy: Center}, nil
}

func shift(s Span, from int) Span {
	return Span{Start: s.Start - from, End: s.End - from}
}

// Apply returns a copy of the part of s covered by the cut.
func Apply[T any](s []T, c Cut) []T {
	to := min(c.To, len(s))
	from := min(c.From, to)
	return slices.Clone(s[from:to])
}
