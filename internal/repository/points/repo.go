package points

import (
	"context"
	"fmt"

	"github.com/rafaelmarins2003/ia-investimentos-comentarios/internal/db"
	"github.com/rafaelmarins2003/ia-investimentos-comentarios/internal/domain"
)

// store is the consumer interface for point storage (ISP).
type store interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
}

// Repo writes embedded document chunks into a collection.
type Repo struct {
	store     store
	keyPrefix string
}

// New creates a points repository.
func New(s store, keyPrefix string) *Repo {
	return &Repo{store: s, keyPrefix: keyPrefix}
}

// Upsert stores chunks and their vectors under sequential ids starting at 1.
// Re-running with the same collection overwrites the same keys, so repeated
// ingestion of one document does not duplicate points.
func (r *Repo) Upsert(ctx context.Context, collection, title string, chunks []domain.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("%w: %d chunks but %d vectors", domain.ErrEmbedding, len(chunks), len(vectors))
	}
	if len(chunks) == 0 {
		return nil
	}

	items := make([]db.HashSetItem, 0, len(chunks))
	for i, c := range chunks {
		fields := map[string]string{
			"__content": c.Text,
			"__vector":  db.EncodeVector(vectors[i]),
			"title":     title,
		}
		items = append(items, db.HashSetItem{
			Key:    fmt.Sprintf("%s%s:%d", r.keyPrefix, collection, i+1),
			Fields: fields,
		})
	}

	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("upsert %d points into %s: %w: %w", len(items), collection, domain.ErrStore, err)
	}
	return nil
}
