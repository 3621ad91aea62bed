// Package prep holds the per-record transformation stages.
package prep

import (
	"context"
	"errors"
	"fmt"

	"mrc_prep/internal/answer"
	"mrc_prep/internal/coverage"
	"mrc_prep/internal/rouge"
	"mrc_prep/internal/sample"
	"mrc_prep/internal/window"
)

var (
	ErrConflictingSpans = errors.New("document has conflicting answer spans")
	ErrUnknownPolicy    = errors.New("unknown multi-span policy")
)

// Policy decides what to do when one document carries several different
// answer spans.
type Policy string

const (
	// PolicyReject fails the record.
	PolicyReject Policy = "reject"
	// PolicyHull windows the smallest span covering all of them.
	PolicyHull Policy = "hull"
)

func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", PolicyReject:
		return PolicyReject, nil
	case PolicyHull:
		return PolicyHull, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
}

// Outcome summarizes what a stage did to one record.
type Outcome struct {
	Documents   int
	Strategies  []window.Strategy
	FakeAnswers int
	CeilRougeL  *float64
	Entities    int
}

type Stage interface {
	Name() string
	Process(ctx context.Context, s *sample.Sample) (Outcome, error)
}

// Windower crops every document to the budget, remaps the answer labels and
// scores the recovered answer text against the gold answer.
type Windower struct {
	params window.Params
	policy Policy
	rng    window.Rand
	scorer rouge.Scorer
}

func NewWindower(params window.Params, policy Policy, rng window.Rand, scorer rouge.Scorer) (*Windower, error) {
	if params.Budget <= 0 {
		return nil, fmt.Errorf("%w: %d", window.ErrBadBudget, params.Budget)
	}
	if _, err := ParsePolicy(string(policy)); err != nil {
		return nil, err
	}
	if policy == "" {
		policy = PolicyReject
	}
	if rng == nil {
		rng = window.NewRand(0)
	}
	if scorer == nil {
		scorer = rouge.New()
	}
	return &Windower{params: params, policy: policy, rng: rng, scorer: scorer}, nil
}

func (w *Windower) Name() string {
	return "window"
}

func (w *Windower) Process(_ context.Context, s *sample.Sample) (Outcome, error) {
	if err := s.Validate(); err != nil {
		return Outcome{}, err
	}
	spans, err := answerSpans(s.AnswerLabels, w.policy)
	if err != nil {
		return Outcome{}, err
	}

	out := Outcome{Documents: len(s.Documents), Strategies: make([]window.Strategy, len(s.Documents))}
	labels := s.AnswerLabels
	for i := range s.Documents {
		doc := &s.Documents[i]
		var span *window.Span
		if sp, ok := spans[i]; ok {
			span = &sp
		}
		cut, err := window.Plan(doc.Len(), span, w.params, w.rng)
		if err != nil {
			return Outcome{}, fmt.Errorf("document %d: %w", i, err)
		}
		applyCut(doc, cut)
		if span != nil {
			labels = sample.RemapLabels(labels, i, cut.From)
		}
		out.Strategies[i] = cut.Strategy
	}
	s.AnswerLabels = labels

	fakes := s.FakeAnswerTexts()
	score := coverage.Ceiling(fakes, answer.GoldText(s.Answer), w.scorer)
	s.FakeAnswers = fakes
	s.CeilRougeL = &score

	out.FakeAnswers = len(fakes)
	out.CeilRougeL = &score
	return out, nil
}

func applyCut(doc *sample.Document, cut window.Cut) {
	doc.Content = string(window.Apply([]rune(doc.Content), cut))
	doc.SupportedParaMask = window.Apply(doc.SupportedParaMask, cut)
	doc.CharEntity = window.Apply(doc.CharEntity, cut)
}

// answerSpans picks the single span each labelled document is windowed around.
func answerSpans(labels []sample.AnswerLabel, policy Policy) (map[int]window.Span, error) {
	spans := map[int]window.Span{}
	for _, l := range labels {
		cur := window.Span{Start: l.Start, End: l.End}
		prev, ok := spans[l.Doc]
		switch {
		case !ok || prev == cur:
			spans[l.Doc] = cur
		case policy == PolicyHull:
			spans[l.Doc] = window.Span{Start: min(prev.Start, cur.Start), End: max(prev.End, cur.End)}
		default:
			return nil, fmt.Errorf("%w: document %d has [%d, %d] and [%d, %d]",
				ErrConflictingSpans, l.Doc, prev.Start, prev.End, cur.Start, cur.End)
		}
	}
	return spans, nil
}
