package collection

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rafaelmarins2003/ia-investimentos-comentarios/internal/db"
	"github.com/rafaelmarins2003/ia-investimentos-comentarios/internal/domain"
)

// store is the consumer interface for collections (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Del(ctx context.Context, key string) error
	DelMulti(ctx context.Context, keys []string) error
	Exists(ctx context.Context, key string) (bool, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// HNSWConfig holds HNSW index parameters.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// Repo manages collection metadata and the per-collection FT index.
type Repo struct {
	store     store
	keyPrefix string
	hnsw      HNSWConfig
}

// New creates a collection repository.
func New(s store, keyPrefix string) *Repo {
	return &Repo{store: s, keyPrefix: keyPrefix, hnsw: HNSWConfig{M: 32, EFConstruct: 400}}
}

// WithHNSW configures HNSW index parameters.
func (r *Repo) WithHNSW(cfg HNSWConfig) *Repo {
	if cfg.M > 0 {
		r.hnsw.M = cfg.M
	}
	if cfg.EFConstruct > 0 {
		r.hnsw.EFConstruct = cfg.EFConstruct
	}
	return r
}

// Ensure creates the collection if absent: HSET metadata then FT.CREATE index
// (HNSW, cosine). No-op when a collection with this name already exists.
// The name is sanitized before use; the sanitized name is returned.
func (r *Repo) Ensure(ctx context.Context, name string, dim int) (string, error) {
	name = domain.SanitizeCollectionName(name)

	metaKey := r.metaKey(name)
	exists, err := r.store.Exists(ctx, metaKey)
	if err != nil {
		return "", fmt.Errorf("check exists: %w: %w", domain.ErrStore, err)
	}
	if exists {
		return name, nil
	}

	meta := map[string]string{
		"name":       name,
		"dim":        strconv.Itoa(dim),
		"created_at": strconv.FormatInt(time.Now().Unix(), 10),
	}

	// Step 1: HSET metadata
	if err := r.store.HSet(ctx, metaKey, meta); err != nil {
		return "", fmt.Errorf("hset collection %s: %w: %w", name, domain.ErrStore, err)
	}

	// Step 2: FT.CREATE, rolling back the HSET on error. "Already exists" is a lost race, not a failure.
	def := r.buildIndex(name, dim)
	if err := r.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return name, nil
		}
		cleanupErr := r.store.Del(ctx, metaKey)
		return "", errors.Join(fmt.Errorf("create index %s: %w", name, err), cleanupErr)
	}

	return name, nil
}

// Delete removes a collection: metadata, FT index and every stored point.
func (r *Repo) Delete(ctx context.Context, name string) error {
	if err := r.store.Del(ctx, r.metaKey(name)); err != nil {
		return fmt.Errorf("del collection %s: %w: %w", name, domain.ErrStore, err)
	}

	if err := r.store.DropIndex(ctx, r.indexName(name)); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
		return fmt.Errorf("drop index %s: %w: %w", name, domain.ErrStore, err)
	}

	keys, err := r.store.Scan(ctx, r.pointPrefix(name)+"*")
	if err != nil {
		return fmt.Errorf("scan points %s: %w: %w", name, domain.ErrStore, err)
	}
	if err := r.store.DelMulti(ctx, keys); err != nil {
		return fmt.Errorf("del points %s: %w: %w", name, domain.ErrStore, err)
	}

	return nil
}

// ListNames returns the names of all collections.
func (r *Repo) ListNames(ctx context.Context) ([]string, error) {
	keys, err := r.store.Scan(ctx, r.metaKey("*"))
	if err != nil {
		return nil, fmt.Errorf("scan collections: %w: %w", domain.ErrStore, err)
	}

	names := make([]string, 0, len(keys))
	prefix := r.metaKey("")
	for _, k := range keys {
		names = append(names, strings.TrimPrefix(k, prefix))
	}
	return names, nil
}

// NamesBySuffix returns all collection names ending with suffix.
func (r *Repo) NamesBySuffix(ctx context.Context, suffix string) ([]string, error) {
	names, err := r.ListNames(ctx)
	if err != nil {
		return nil, err
	}

	matched := names[:0]
	for _, n := range names {
		if strings.HasSuffix(n, suffix) {
			matched = append(matched, n)
		}
	}
	return matched, nil
}

// Dim returns the vector dimension recorded for a collection.
func (r *Repo) Dim(ctx context.Context, name string) (int, error) {
	m, err := r.store.HGetAll(ctx, r.metaKey(name))
	if err != nil {
		return 0, fmt.Errorf("hgetall collection %s: %w: %w", name, domain.ErrStore, err)
	}
	if len(m) == 0 {
		return 0, domain.ErrNotFound
	}
	dim, err := strconv.Atoi(m["dim"])
	if err != nil {
		return 0, fmt.Errorf("parse dim for %s: %w", name, err)
	}
	return dim, nil
}

func (r *Repo) buildIndex(name string, dim int) *db.IndexDefinition {
	return &db.IndexDefinition{
		Name:        r.indexName(name),
		StorageType: db.StorageHash,
		Prefixes:    []string{r.pointPrefix(name)},
		Fields: []db.IndexField{
			{Name: "title", Type: db.IndexFieldTag},
			{
				Name:              "__vector",
				Alias:             "vector",
				Type:              db.IndexFieldVector,
				VectorAlgo:        db.VectorHNSW,
				VectorDim:         dim,
				VectorDistance:    db.DistanceCosine,
				VectorM:           r.hnsw.M,
				VectorEFConstruct: r.hnsw.EFConstruct,
			},
		},
	}
}

// Redis key patterns: advisor:collection:{name}, advisor:{name}:idx, advisor:{name}:

func (r *Repo) metaKey(name string) string {
	return fmt.Sprintf("%scollection:%s", r.keyPrefix, name)
}

func (r *Repo) indexName(name string) string {
	return fmt.Sprintf("%s%s:idx", r.keyPrefix, name)
}

func (r *Repo) pointPrefix(name string) string {
	return fmt.Sprintf("%s%s:", r.keyPrefix, name)
}
