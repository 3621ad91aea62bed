package ner

import (
	"context"
	"fmt"
	"os"
	"slices"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"mrc_prep/internal/entity"
)

// Dictionary is an offline tagger that marks known terms, longest match first.
type Dictionary struct {
	terms  map[string]string
	maxLen int
}

func NewDictionary(terms map[string]string) *Dictionary {
	d := &Dictionary{terms: make(map[string]string, len(terms))}
	for term, typ := range terms {
		if term == "" {
			continue
		}
		d.terms[term] = typ
		d.maxLen = max(d.maxLen, utf8.RuneCountInString(term))
	}
	return d
}

// LoadDictionary reads a YAML mapping of entity type to term list:
//
//	person: [张三, 李四]
//	location: [北京]
func LoadDictionary(path string) (*Dictionary, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dictionary: %w", err)
	}
	var byType map[string][]string
	if err := yaml.Unmarshal(raw, &byType); err != nil {
		return nil, fmt.Errorf("parse dictionary: %w", err)
	}
	types := make([]string, 0, len(byType))
	for typ := range byType {
		types = append(types, typ)
	}
	slices.Sort(types)

	terms := map[string]string{}
	for _, typ := range types {
		for _, term := range byType[typ] {
			if _, dup := terms[term]; !dup {
				terms[term] = typ
			}
		}
	}
	return NewDictionary(terms), nil
}

func (d *Dictionary) Tag(ctx context.Context, texts []string) ([][]entity.Entity, error) {
	out := make([][]entity.Entity, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = d.scan([]rune(text))
	}
	return out, nil
}

func (d *Dictionary) scan(text []rune) []entity.Entity {
	ents := []entity.Entity{}
	for pos := 0; pos < len(text); {
		matched := 0
		for n := min(d.maxLen, len(text)-pos); n > 0; n-- {
			term := string(text[pos : pos+n])
			if typ, ok := d.terms[term]; ok {
				ents = append(ents, entity.Entity{Start: pos, Type: typ, Text: term})
				matched = n
				break
			}
		}
		if matched == 0 {
			matched = 1
		}
		pos += matched
	}
	return ents
}
