package search

import (
	"context"
	"errors"
	"testing"

	"github.com/rafaelmarins2003/ia-investimentos-comentarios/internal/db"
	"github.com/rafaelmarins2003/ia-investimentos-comentarios/internal/domain"
)

type mockSearcher struct {
	gotQuery *db.KNNQuery
	result   *db.SearchResult
	err      error
}

func (m *mockSearcher) SearchKNN(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	m.gotQuery = q
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func TestSearch(t *testing.T) {
	ms := &mockSearcher{result: &db.SearchResult{
		Total: 2,
		Entries: []db.SearchEntry{
			{Key: "advisor:carta_1:2", Score: 0.91, Fields: map[string]string{"__content": "renda fixa", "title": "carta.pdf"}},
			{Key: "advisor:carta_1:7", Score: 0.84, Fields: map[string]string{"__content": "multimercado", "title": "carta.pdf"}},
		},
	}}
	repo := New(ms, "advisor:")

	docs, err := repo.Search(context.Background(), "carta_1", []float32{0.1, 0.2}, 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if ms.gotQuery.IndexName != "advisor:carta_1:idx" {
		t.Errorf("index name = %q", ms.gotQuery.IndexName)
	}
	if ms.gotQuery.K != 5 {
		t.Errorf("k = %d, want 5", ms.gotQuery.K)
	}

	if len(docs) != 2 {
		t.Fatalf("got %d docs, want 2", len(docs))
	}
	if docs[0].Text != "renda fixa" || docs[0].Score != 0.91 {
		t.Errorf("docs[0] = %+v", docs[0])
	}
	if docs[0].Payload["title"] != "carta.pdf" {
		t.Errorf("payload title = %q", docs[0].Payload["title"])
	}
}

func TestSearchStoreError(t *testing.T) {
	ms := &mockSearcher{err: errors.New("index missing")}
	repo := New(ms, "advisor:")

	_, err := repo.Search(context.Background(), "carta_1", []float32{0.1}, 5)
	if !errors.Is(err, domain.ErrStore) {
		t.Errorf("err = %v, want ErrStore", err)
	}
}
