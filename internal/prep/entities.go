package prep

import (
	"context"
	"fmt"
	"unicode/utf8"

	"mrc_prep/internal/entity"
	"mrc_prep/internal/ner"
	"mrc_prep/internal/sample"
)

// Projector tags the question and every document in one batch and writes the
// per-character entity codes back onto the record.
type Projector struct {
	tagger ner.Tagger
}

func NewProjector(tagger ner.Tagger) *Projector {
	return &Projector{tagger: tagger}
}

func (p *Projector) Name() string {
	return "ner"
}

func (p *Projector) Process(ctx context.Context, s *sample.Sample) (Outcome, error) {
	if err := s.Validate(); err != nil {
		return Outcome{}, err
	}
	texts := make([]string, 0, len(s.Documents)+1)
	texts = append(texts, s.Question)
	for _, doc := range s.Documents {
		texts = append(texts, doc.Content)
	}

	found, err := ner.TagChecked(ctx, p.tagger, texts)
	if err != nil {
		return Outcome{}, fmt.Errorf("tag record: %w", err)
	}

	out := Outcome{Documents: len(s.Documents)}
	s.QuesCharEntity = entity.Project(utf8.RuneCountInString(s.Question), found[0])
	out.Entities += len(found[0])
	for i := range s.Documents {
		doc := &s.Documents[i]
		doc.CharEntity = entity.Project(doc.Len(), found[i+1])
		out.Entities += len(found[i+1])
	}
	return out, nil
}
