package services

import (
	"context"
	"fmt"
	"testing"
)

type fakeEmbedder struct {
	err   error
	calls int
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

type fakeStore struct {
	passages []string
	err      error
	queries  int
}

func (f *fakeStore) Query(ctx context.Context, collection string, embedding []float32, k int) ([]string, error) {
	f.queries++
	if f.err != nil {
		return nil, f.err
	}
	if len(f.passages) > k {
		return f.passages[:k], nil
	}
	return f.passages, nil
}

func TestGetContextJoinsPassages(t *testing.T) {
	store := &fakeStore{passages: []string{"first passage", "second passage"}}
	service := NewRetrievalService(&fakeEmbedder{}, store)

	got := service.GetContext(context.Background(), "what is mutation?")
	expected := "first passage\n\nsecond passage"
	if got != expected {
		t.Errorf("GetContext() = %q, expected %q", got, expected)
	}
}

func TestGetContextEmptyWhenNoHits(t *testing.T) {
	service := NewRetrievalService(&fakeEmbedder{}, &fakeStore{passages: []string{}})

	if got := service.GetContext(context.Background(), "anything"); got != "" {
		t.Errorf("GetContext() = %q, expected empty string for zero hits", got)
	}
}

func TestGetContextEmptyUtterance(t *testing.T) {
	embedder := &fakeEmbedder{}
	service := NewRetrievalService(embedder, &fakeStore{})

	if got := service.GetContext(context.Background(), "   "); got != "" {
		t.Errorf("GetContext() = %q, expected empty string for blank utterance", got)
	}
	if embedder.calls != 0 {
		t.Errorf("embedder called %d times for blank utterance, expected 0", embedder.calls)
	}
}

func TestGetContextDegradesOnStoreFailure(t *testing.T) {
	store := &fakeStore{err: fmt.Errorf("store down")}
	service := NewRetrievalService(&fakeEmbedder{}, store)

	if got := service.GetContext(context.Background(), "what is mutation?"); got != "" {
		t.Errorf("GetContext() = %q, expected empty context when store fails", got)
	}
	if store.queries != 2 {
		t.Errorf("store queried %d times, expected 2 (one retry)", store.queries)
	}
}

func TestGetContextRespectsTopK(t *testing.T) {
	store := &fakeStore{passages: []string{"a", "b", "c", "d", "e"}}
	service := NewRetrievalService(&fakeEmbedder{}, store)

	got := service.GetContext(context.Background(), "query")
	if got != "a\n\nb\n\nc" {
		t.Errorf("GetContext() = %q, expected only the top 3 passages", got)
	}
}
