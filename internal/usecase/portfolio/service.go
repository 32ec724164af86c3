package portfolio

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/rafaelmarins2003/ia-investimentos-comentarios/internal/domain"
)

// collections is the consumer interface for collection lifecycle (ISP).
type collections interface {
	Ensure(ctx context.Context, name string, dim int) (string, error)
	Delete(ctx context.Context, name string) error
	NamesBySuffix(ctx context.Context, suffix string) ([]string, error)
}

// pointWriter stores embedded chunks into a collection (ISP).
type pointWriter interface {
	Upsert(ctx context.Context, collection, title string, chunks []domain.Chunk, vectors [][]float32) error
}

// Service owns the two collection families: per-deal performance
// collections and the single shared monthly recommendation collection.
type Service struct {
	collections collections
	points      pointWriter
	dim         int
	logger      *zap.Logger

	// serializes monthly replacement so concurrent deals cannot leave
	// two _mensal collections behind
	monthlyMu sync.Mutex
}

// New creates a portfolio storage service. dim is the embedding dimension
// used when creating collections.
func New(c collections, p pointWriter, dim int, logger *zap.Logger) *Service {
	return &Service{collections: c, points: p, dim: dim, logger: logger}
}

// StorePerformance creates (if needed) the per-deal performance collection
// for base and stores the chunks. A transient store failure on the write is
// retried once. Returns the final collection name.
func (s *Service) StorePerformance(ctx context.Context, base, title string, chunks []domain.Chunk, vectors [][]float32) (string, error) {
	name, err := s.collections.Ensure(ctx, base+domain.PerformanceSuffix, s.dim)
	if err != nil {
		return "", fmt.Errorf("ensure performance collection: %w", err)
	}

	if err := s.upsertWithRetry(ctx, name, title, chunks, vectors); err != nil {
		return "", err
	}
	return name, nil
}

// ReplaceMonthly makes base's monthly collection the single system-wide
// monthly collection. The new collection is created and fully populated
// before any previous monthly collection is deleted, so readers always
// find a live one. Returns the final collection name.
func (s *Service) ReplaceMonthly(ctx context.Context, base, title string, chunks []domain.Chunk, vectors [][]float32) (string, error) {
	s.monthlyMu.Lock()
	defer s.monthlyMu.Unlock()

	name, err := s.collections.Ensure(ctx, base+domain.MonthlySuffix, s.dim)
	if err != nil {
		return "", fmt.Errorf("ensure monthly collection: %w", err)
	}
	if err := s.upsertWithRetry(ctx, name, title, chunks, vectors); err != nil {
		return "", err
	}

	stale, err := s.collections.NamesBySuffix(ctx, domain.MonthlySuffix)
	if err != nil {
		// the new collection is live; stale ones get cleaned on the next run
		s.logger.Warn("list monthly collections failed, skipping cleanup", zap.Error(err))
		return name, nil
	}
	for _, old := range stale {
		if old == name {
			continue
		}
		if err := s.collections.Delete(ctx, old); err != nil {
			s.logger.Warn("delete stale monthly collection failed",
				zap.String("collection", old), zap.Error(err))
			continue
		}
		s.logger.Info("stale monthly collection deleted", zap.String("collection", old))
	}

	return name, nil
}

func (s *Service) upsertWithRetry(ctx context.Context, name, title string, chunks []domain.Chunk, vectors [][]float32) error {
	err := s.points.Upsert(ctx, name, title, chunks, vectors)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrStore) {
		return err
	}

	s.logger.Warn("point upsert failed, retrying once", zap.String("collection", name), zap.Error(err))
	if err := s.points.Upsert(ctx, name, title, chunks, vectors); err != nil {
		return fmt.Errorf("upsert after retry: %w", err)
	}
	return nil
}
