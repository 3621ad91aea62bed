package ner

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mrc_prep/internal/entity"
)

func testConfig(url string) ClientConfig {
	cfg := DefaultClientConfig(url)
	cfg.InitialBackoff = time.Millisecond
	cfg.MaxBackoff = 5 * time.Millisecond
	cfg.RequestsPerSec = 0
	return cfg
}

func TestClientTag(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req tagRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		resp := tagResponse{Entities: make([][]entity.Entity, len(req.Texts))}
		for i := range req.Texts {
			resp.Entities[i] = []entity.Entity{{Start: 0, Type: "person", Text: "张三"}}
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c, err := NewClient(testConfig(srv.URL), nil)
	require.NoError(t, err)
	got, err := c.Tag(context.Background(), []string{"张三来了", "张三走了"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "person", got[1][0].Type)
}

func TestClientRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"entities":[[]]}`))
	}))
	defer srv.Close()

	c, err := NewClient(testConfig(srv.URL), nil)
	require.NoError(t, err)
	got, err := c.Tag(context.Background(), []string{"text"})
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "bad input", http.StatusBadRequest)
	}))
	defer srv.Close()

	c, err := NewClient(testConfig(srv.URL), nil)
	require.NoError(t, err)
	_, err = c.Tag(context.Background(), []string{"text"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClientResultCountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"entities":[[]]}`))
	}))
	defer srv.Close()

	c, err := NewClient(testConfig(srv.URL), nil)
	require.NoError(t, err)
	_, err = c.Tag(context.Background(), []string{"a", "b"})
	assert.ErrorIs(t, err, ErrTagCount)
}

func TestNewClientRequiresEndpoint(t *testing.T) {
	_, err := NewClient(ClientConfig{}, nil)
	assert.Error(t, err)
}

type countingTagger struct {
	batches [][]string
}

func (c *countingTagger) Tag(_ context.Context, texts []string) ([][]entity.Entity, error) {
	c.batches = append(c.batches, texts)
	out := make([][]entity.Entity, len(texts))
	for i, text := range texts {
		out[i] = []entity.Entity{{Start: 0, Type: "org", Text: text[:1]}}
	}
	return out, nil
}

func TestCachedSendsOnlyMisses(t *testing.T) {
	next := &countingTagger{}
	c, err := NewCached(next, 16)
	require.NoError(t, err)

	_, err = c.Tag(context.Background(), []string{"q", "a"})
	require.NoError(t, err)
	got, err := c.Tag(context.Background(), []string{"q", "b", "a"})
	require.NoError(t, err)

	require.Len(t, next.batches, 2)
	assert.Equal(t, []string{"b"}, next.batches[1])
	assert.Equal(t, "b", got[1][0].Text)
	assert.Equal(t, "a", got[2][0].Text)
	assert.Equal(t, 3, c.Len())
}

type shortTagger struct{}

func (shortTagger) Tag(context.Context, []string) ([][]entity.Entity, error) {
	return nil, nil
}

func TestTagCheckedCount(t *testing.T) {
	_, err := TagChecked(context.Background(), shortTagger{}, []string{"x"})
	assert.ErrorIs(t, err, ErrTagCount)
}

func TestDictionary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dict.yaml")
	require.NoError(t, os.WriteFile(path, []byte("person: [张三]\nlocation: [北京, 北京大学]\n"), 0o644))
	d, err := LoadDictionary(path)
	require.NoError(t, err)

	got, err := d.Tag(context.Background(), []string{"张三在北京大学", "无"})
	require.NoError(t, err)
	assert.Equal(t, []entity.Entity{
		{Start: 0, Type: "person", Text: "张三"},
		{Start: 3, Type: "location", Text: "北京大学"},
	}, got[0])
	assert.Empty(t, got[1])

	tags := entity.Project(7, got[0])
	assert.Equal(t, []string{"P", "P", "", "L", "L", "L", "L"}, tags)
}
