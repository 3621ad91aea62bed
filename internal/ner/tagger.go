// Package ner is the boundary to the external entity-recognition service.
package ner

import (
	"context"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"mrc_prep/internal/entity"
)

var ErrTagCount = errors.New("tagger returned a different number of results than texts")

// Tagger recognizes entities in a batch of texts. The result holds one
// start-ordered entity list per input text, in input order.
type Tagger interface {
	Tag(ctx context.Context, texts []string) ([][]entity.Entity, error)
}

// TagChecked calls t and verifies the result count.
func TagChecked(ctx context.Context, t Tagger, texts []string) ([][]entity.Entity, error) {
	out, err := t.Tag(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(out) != len(texts) {
		return nil, fmt.Errorf("%w: %d texts, %d results", ErrTagCount, len(texts), len(out))
	}
	return out, nil
}

// Cached keeps recent per-text results in front of another Tagger. Only the
// texts missing from the cache are sent downstream.
type Cached struct {
	next  Tagger
	cache *lru.Cache[string, []entity.Entity]
}

func NewCached(next Tagger, size int) (*Cached, error) {
	cache, err := lru.New[string, []entity.Entity](size)
	if err != nil {
		return nil, fmt.Errorf("create tag cache: %w", err)
	}
	return &Cached{next: next, cache: cache}, nil
}

func (c *Cached) Tag(ctx context.Context, texts []string) ([][]entity.Entity, error) {
	out := make([][]entity.Entity, len(texts))
	var missing []string
	var missingIdx []int
	for i, text := range texts {
		if ents, ok := c.cache.Get(text); ok {
			out[i] = ents
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}
	if len(missing) == 0 {
		return out, nil
	}

	fresh, err := TagChecked(ctx, c.next, missing)
	if err != nil {
		return nil, err
	}
	for j, i := range missingIdx {
		out[i] = fresh[j]
		c.cache.Add(missing[j], fresh[j])
	}
	return out, nil
}

func (c *Cached) Len() int {
	return c.cache.Len()
}
