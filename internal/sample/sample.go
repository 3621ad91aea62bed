// Package sample holds the MRC training record and its JSON wire form.
// Fields the tool does not know about are carried through unchanged.
package sample

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"

	"mrc_prep/internal/entity"
)

var (
	ErrLengthMismatch  = errors.New("per-character field length differs from content length")
	ErrLabelOutOfRange = errors.New("answer label out of range")
	ErrMalformedLabel  = errors.New("answer label must be [doc, start, end]")
)

// Mask holds one marker per content character. Markers keep their original
// JSON form.
type Mask []json.RawMessage

// AnswerLabel points at an inclusive character range in one document.
type AnswerLabel struct {
	Doc   int
	Start int
	End   int
}

func (l AnswerLabel) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]int{l.Doc, l.Start, l.End})
}

func (l *AnswerLabel) UnmarshalJSON(b []byte) error {
	var v []int
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedLabel, err)
	}
	if len(v) != 3 {
		return fmt.Errorf("%w: got %d values", ErrMalformedLabel, len(v))
	}
	l.Doc, l.Start, l.End = v[0], v[1], v[2]
	return nil
}

type Document struct {
	Content           string
	SupportedParaMask Mask
	CharEntity        []string

	extra fields
}

func (d *Document) Len() int {
	return utf8.RuneCountInString(d.Content)
}

func (d *Document) UnmarshalJSON(b []byte) error {
	raw, err := decodeFields(b)
	if err != nil {
		return err
	}
	if _, err := raw.take("content", &d.Content); err != nil {
		return err
	}
	if _, err := raw.take("supported_para_mask", &d.SupportedParaMask); err != nil {
		return err
	}
	if d.CharEntity, err = takeTags(raw, "char_entity", d.Len()); err != nil {
		return err
	}
	d.extra = raw
	return nil
}

func (d Document) MarshalJSON() ([]byte, error) {
	out := d.extra.clone()
	if err := out.put("content", d.Content); err != nil {
		return nil, err
	}
	if d.SupportedParaMask != nil {
		if err := out.put("supported_para_mask", d.SupportedParaMask); err != nil {
			return nil, err
		}
	}
	if d.CharEntity != nil {
		if err := out.put("char_entity", entity.Join(d.CharEntity)); err != nil {
			return nil, err
		}
	}
	return Marshal(out)
}

type Sample struct {
	Question       string
	Documents      []Document
	Answer         string
	AnswerLabels   []AnswerLabel
	FakeAnswers    []string
	CeilRougeL     *float64
	QuesCharEntity []string

	extra fields
}

func (s *Sample) UnmarshalJSON(b []byte) error {
	raw, err := decodeFields(b)
	if err != nil {
		return err
	}
	for key, dst := range map[string]any{
		"question":      &s.Question,
		"documents":     &s.Documents,
		"answer":        &s.Answer,
		"answer_labels": &s.AnswerLabels,
		"fake_answers":  &s.FakeAnswers,
		"ceil_rougel":   &s.CeilRougeL,
	} {
		if _, err := raw.take(key, dst); err != nil {
			return err
		}
	}
	if s.QuesCharEntity, err = takeTags(raw, "ques_char_entity", utf8.RuneCountInString(s.Question)); err != nil {
		return err
	}
	s.extra = raw
	return nil
}

func (s Sample) MarshalJSON() ([]byte, error) {
	out := s.extra.clone()
	docs := s.Documents
	if docs == nil {
		docs = []Document{}
	}
	for key, v := range map[string]any{
		"question":  s.Question,
		"documents": docs,
		"answer":    s.Answer,
	} {
		if err := out.put(key, v); err != nil {
			return nil, err
		}
	}
	if s.AnswerLabels != nil {
		if err := out.put("answer_labels", s.AnswerLabels); err != nil {
			return nil, err
		}
	}
	if s.FakeAnswers != nil {
		if err := out.put("fake_answers", s.FakeAnswers); err != nil {
			return nil, err
		}
	}
	if s.CeilRougeL != nil {
		if err := out.put("ceil_rougel", *s.CeilRougeL); err != nil {
			return nil, err
		}
	}
	if s.QuesCharEntity != nil {
		if err := out.put("ques_char_entity", entity.Join(s.QuesCharEntity)); err != nil {
			return nil, err
		}
	}
	return Marshal(out)
}

// takeTags accepts either the comma-joined string form or a JSON array for
// a text of n characters. A JSON null counts as absent.
func takeTags(raw fields, key string, n int) ([]string, error) {
	v, ok := raw[key]
	if !ok {
		return nil, nil
	}
	if bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
		delete(raw, key)
		return nil, nil
	}
	var joined string
	if err := json.Unmarshal(v, &joined); err == nil {
		delete(raw, key)
		return entity.Split(joined, n), nil
	}
	var tags []string
	if _, err := raw.take(key, &tags); err != nil {
		return nil, err
	}
	return tags, nil
}

// Validate checks the per-character alignment of every document and the
// bounds of every answer label.
func (s *Sample) Validate() error {
	for i := range s.Documents {
		d := &s.Documents[i]
		n := d.Len()
		if d.SupportedParaMask != nil && len(d.SupportedParaMask) != n {
			return fmt.Errorf("%w: document %d supported_para_mask has %d, content has %d",
				ErrLengthMismatch, i, len(d.SupportedParaMask), n)
		}
		if d.CharEntity != nil && len(d.CharEntity) != n {
			return fmt.Errorf("%w: document %d char_entity has %d, content has %d",
				ErrLengthMismatch, i, len(d.CharEntity), n)
		}
	}
	for _, l := range s.AnswerLabels {
		if l.Doc < 0 || l.Doc >= len(s.Documents) {
			return fmt.Errorf("%w: document %d of %d", ErrLabelOutOfRange, l.Doc, len(s.Documents))
		}
		n := s.Documents[l.Doc].Len()
		if l.Start < 0 || l.Start > l.End || l.End >= n {
			return fmt.Errorf("%w: [%d, %d] in document %d of length %d", ErrLabelOutOfRange, l.Start, l.End, l.Doc, n)
		}
	}
	return nil
}

// FakeAnswerTexts extracts the text each answer label points at, in label order.
func (s *Sample) FakeAnswerTexts() []string {
	out := make([]string, 0, len(s.AnswerLabels))
	for _, l := range s.AnswerLabels {
		content := []rune(s.Documents[l.Doc].Content)
		out = append(out, string(content[l.Start:l.End+1]))
	}
	return out
}

// RemapLabels moves the labels of document doc into the coordinates of a
// window starting at from. The input slice is left untouched.
func RemapLabels(labels []AnswerLabel, doc, from int) []AnswerLabel {
	out := make([]AnswerLabel, len(labels))
	for i, l := range labels {
		if l.Doc == doc {
			l.Start -= from
			l.End -= from
		}
		out[i] = l
	}
	return out
}
