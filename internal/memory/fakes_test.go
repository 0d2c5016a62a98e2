package memory

import (
	"context"
	"encoding/json"
	"errors"
	"hash/fnv"
	"iter"
	"strings"
	"sync"
	"unicode"

	"google.golang.org/adk/model"
	"google.golang.org/genai"

	"github.com/easeaico/sophos/internal/storage"
	"github.com/easeaico/sophos/internal/types"
)

// fakeLLM answers by request kind and records every request.
type fakeLLM struct {
	mu         sync.Mutex
	facts      string
	factsErr   error
	summary    string
	summaryErr error
	reply      string
	replyErr   error
	requests   []*model.LLMRequest
}

func (f *fakeLLM) Name() string { return "fake" }

func (f *fakeLLM) GenerateContent(ctx context.Context, req *model.LLMRequest, stream bool) iter.Seq2[*model.LLMResponse, error] {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	text, err := f.reply, f.replyErr
	switch {
	case req.Config != nil && req.Config.ResponseMIMEType == "application/json":
		text, err = f.facts, f.factsErr
	case strings.HasPrefix(userText(req), "Resuma brevemente"):
		text, err = f.summary, f.summaryErr
	}

	return func(yield func(*model.LLMResponse, error) bool) {
		if err != nil {
			yield(nil, err)
			return
		}
		yield(&model.LLMResponse{Content: genai.NewContentFromText(text, "model")}, nil)
	}
}

func (f *fakeLLM) countWhere(match func(*model.LLMRequest) bool) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.requests {
		if match(r) {
			n++
		}
	}
	return n
}

func (f *fakeLLM) lastTurnPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.requests) - 1; i >= 0; i-- {
		r := f.requests[i]
		if r.Config != nil && r.Config.ResponseMIMEType == "application/json" {
			continue
		}
		if strings.HasPrefix(userText(r), "Resuma brevemente") {
			continue
		}
		return userText(r)
	}
	return ""
}

func userText(req *model.LLMRequest) string {
	if len(req.Contents) == 0 || req.Contents[len(req.Contents)-1] == nil {
		return ""
	}
	var sb strings.Builder
	for _, p := range req.Contents[len(req.Contents)-1].Parts {
		sb.WriteString(p.Text)
	}
	return sb.String()
}

func isSummaryRequest(r *model.LLMRequest) bool {
	return strings.HasPrefix(userText(r), "Resuma brevemente")
}

// fakeEmbedder is a bag-of-words hashing embedder.
type fakeEmbedder struct {
	mu    sync.Mutex
	calls int
	err   error
}

const fakeDims = 32

func (e *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return e.embed(text)
}

func (e *fakeEmbedder) EmbedDocument(ctx context.Context, text string) ([]float32, error) {
	return e.embed(text)
}

func (e *fakeEmbedder) embed(text string) ([]float32, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}
	vec := make([]float32, fakeDims)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
	for _, w := range words {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		vec[h.Sum32()%fakeDims]++
	}
	vec[fakeDims-1] += 0.01
	return vec, nil
}

// countingIndex records upserts in front of a real chromem index.
type countingIndex struct {
	mu      sync.Mutex
	upserts map[string]int
	inner   VectorIndex
	err     error
}

func newCountingIndex() *countingIndex {
	idx, err := storage.NewChromemIndex("")
	if err != nil {
		panic(err)
	}
	return &countingIndex{upserts: map[string]int{}, inner: idx}
}

func (c *countingIndex) Upsert(ctx context.Context, id string, vector []float32) error {
	if c.err != nil {
		return c.err
	}
	c.mu.Lock()
	c.upserts[id]++
	c.mu.Unlock()
	return c.inner.Upsert(ctx, id, vector)
}

func (c *countingIndex) Query(ctx context.Context, vector []float32, topK int, idPrefix string) ([]types.VectorMatch, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.inner.Query(ctx, vector, topK, idPrefix)
}

func (c *countingIndex) total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, v := range c.upserts {
		n += v
	}
	return n
}

// failingStore fails reads below a path prefix.
type failingStore struct {
	DocumentStore
	failPrefix string
}

func (s *failingStore) Get(ctx context.Context, path string) (json.RawMessage, error) {
	if strings.HasPrefix(path, s.failPrefix) {
		return nil, errors.New("store unavailable")
	}
	return s.DocumentStore.Get(ctx, path)
}

// deleteFailingStore fails every Delete after the first allowed ones.
type deleteFailingStore struct {
	DocumentStore
	allowed int
	deletes int
}

func (s *deleteFailingStore) Delete(ctx context.Context, path string) error {
	s.deletes++
	if s.deletes > s.allowed {
		return errors.New("store unavailable")
	}
	return s.DocumentStore.Delete(ctx, path)
}

func newStore() *storage.Tree {
	return storage.NewTree(storage.NewMemoryBackend())
}

func newTestManager(llm *fakeLLM) (*Manager, *countingIndex, *fakeEmbedder) {
	index := newCountingIndex()
	embedder := &fakeEmbedder{}
	m := NewManager(newStore(), llm, embedder, index, Options{HistoryLimit: 10, TopK: 5, StyleMargin: 5})
	return m, index, embedder
}
