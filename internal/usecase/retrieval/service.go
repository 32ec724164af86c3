package retrieval

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/rafaelmarins2003/ia-investimentos-comentarios/internal/domain"
)

// Default result sizes for analysis context building.
const (
	// KBroad is used for portfolio-wide context questions.
	KBroad = 20
	// KDetail is used for narrow position-level questions.
	KDetail = 5
)

// queryEmbedder embeds a retrieval query (ISP).
type queryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// searcher runs a KNN search in a collection (ISP).
type searcher interface {
	Search(ctx context.Context, collection string, vector []float32, k int) ([]domain.RetrievedDocument, error)
}

// Service retrieves context chunks for the analysis chain.
type Service struct {
	embedder queryEmbedder
	searcher searcher
	logger   *zap.Logger
}

// New creates a retrieval service.
func New(e queryEmbedder, s searcher, logger *zap.Logger) *Service {
	return &Service{embedder: e, searcher: s, logger: logger}
}

// Retrieve embeds query and returns the k nearest chunks from collection.
// A store-side search failure degrades to an empty result so the analysis
// chain can proceed with whatever context is available; embedding failures
// are returned as errors since nothing can be searched without a vector.
func (s *Service) Retrieve(ctx context.Context, collection, query string, k int) ([]domain.RetrievedDocument, error) {
	vec, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	docs, err := s.searcher.Search(ctx, collection, vec, k)
	if err != nil {
		s.logger.Warn("similarity search failed, continuing with empty context",
			zap.String("collection", collection),
			zap.Int("k", k),
			zap.Error(err))
		return []domain.RetrievedDocument{}, nil
	}
	return docs, nil
}

// JoinTexts concatenates retrieved chunk texts separated by blank lines,
// the form the analysis prompts expect.
func JoinTexts(docs []domain.RetrievedDocument) string {
	var out string
	for i, d := range docs {
		if i > 0 {
			out += "\n\n"
		}
		out += d.Text
	}
	return out
}
