package search

import (
	"context"
	"fmt"

	"github.com/rafaelmarins2003/ia-investimentos-comentarios/internal/db"
	"github.com/rafaelmarins2003/ia-investimentos-comentarios/internal/domain"
)

// searcher is the consumer interface for KNN search (ISP).
type searcher interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

// Repo runs vector similarity searches against a collection's FT index.
type Repo struct {
	searcher  searcher
	keyPrefix string
}

// New creates a search repository.
func New(s searcher, keyPrefix string) *Repo {
	return &Repo{searcher: s, keyPrefix: keyPrefix}
}

// Search returns the k nearest chunks to vector, best match first.
// Vectors are not returned, only text content and metadata.
func (r *Repo) Search(ctx context.Context, collection string, vector []float32, k int) ([]domain.RetrievedDocument, error) {
	res, err := r.searcher.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    fmt.Sprintf("%s%s:idx", r.keyPrefix, collection),
		Vector:       vector,
		K:            k,
		ReturnFields: []string{"__content", "title"},
	})
	if err != nil {
		return nil, fmt.Errorf("knn search %s: %w: %w", collection, domain.ErrStore, err)
	}

	docs := make([]domain.RetrievedDocument, 0, len(res.Entries))
	for _, e := range res.Entries {
		docs = append(docs, domain.RetrievedDocument{
			Text:  e.Fields["__content"],
			Title: e.Fields["title"],
			Score: e.Score,
			Payload: map[string]string{
				"title": e.Fields["title"],
			},
		})
	}
	return docs, nil
}
