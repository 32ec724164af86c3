package ingest

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"go.uber.org/zap"

	"github.com/rafaelmarins2003/ia-investimentos-comentarios/internal/domain"
)

// embedder is the consumer interface for document embedding (ISP).
type embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// Service turns a PDF on disk into chunks with parallel embedding vectors.
type Service struct {
	embedder embedder
	logger   *zap.Logger
}

// New creates an ingestion service.
func New(e embedder, logger *zap.Logger) *Service {
	return &Service{embedder: e, logger: logger}
}

// LoadAndEmbed extracts page text from the PDF at path and embeds every
// page. Returns domain.ErrNotFound when the file does not exist and
// domain.ErrEmbedding when the provider response does not line up with
// the chunks.
func (s *Service) LoadAndEmbed(ctx context.Context, path string) ([]domain.Chunk, [][]float32, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("pdf %s: %w", path, domain.ErrNotFound)
		}
		return nil, nil, fmt.Errorf("stat %s: %w", path, err)
	}

	pages, err := ExtractPages(path)
	if err != nil {
		return nil, nil, err
	}
	if len(pages) == 0 {
		return nil, nil, fmt.Errorf("pdf %s has no extractable text: %w", path, domain.ErrNotFound)
	}

	chunks := make([]domain.Chunk, len(pages))
	texts := make([]string, len(pages))
	for i, p := range pages {
		chunks[i] = domain.Chunk{
			Text: p,
			Meta: map[string]string{"page": strconv.Itoa(i + 1), "source": path},
		}
		texts[i] = p
	}

	vectors, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, nil, err
	}
	if len(vectors) != len(chunks) {
		return nil, nil, fmt.Errorf("%w: %d chunks but %d vectors", domain.ErrEmbedding, len(chunks), len(vectors))
	}
	for i, v := range vectors {
		if len(v) == 0 {
			return nil, nil, fmt.Errorf("%w: empty vector for chunk %d", domain.ErrEmbedding, i)
		}
	}

	s.logger.Debug("pdf embedded", zap.String("path", path), zap.Int("chunks", len(chunks)))

	return chunks, vectors, nil
}

// ClientID extracts the client account id from the PDF at path.
func (s *Service) ClientID(path string) (string, error) {
	return ClientIDFromPDF(path)
}

// ClientIDFromPDF extracts the client account id from the PDF at path.
func ClientIDFromPDF(path string) (string, error) {
	pages, err := ExtractPages(path)
	if err != nil {
		return "", err
	}
	for _, p := range pages {
		if id, ok := ExtractClientID(p); ok {
			return id, nil
		}
	}
	return "", fmt.Errorf("client id not found in %s: %w", path, domain.ErrNotFound)
}
