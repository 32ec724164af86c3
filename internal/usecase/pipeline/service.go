package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/rafaelmarins2003/ia-investimentos-comentarios/internal/domain"
	"github.com/rafaelmarins2003/ia-investimentos-comentarios/internal/metrics"
	"github.com/rafaelmarins2003/ia-investimentos-comentarios/internal/repository/history"
	"github.com/rafaelmarins2003/ia-investimentos-comentarios/internal/transport/bitrix"
	"github.com/rafaelmarins2003/ia-investimentos-comentarios/internal/usecase/analysis"
)

// historyType labels pipeline rows in the history table.
const historyType = "analise_investimentos"

// historyDays is the review horizon recorded with every analysis.
const historyDays = 30

// Consumer interfaces for the pipeline's collaborators (ISP).

type crm interface {
	Deal(ctx context.Context, dealID string) (*bitrix.Deal, error)
	DownloadAttachment(ctx context.Context, fileID, destPath string) error
	AddTimelineComment(ctx context.Context, dealID, comment string) error
	UserName(ctx context.Context, userID string) (string, error)
	ContactName(ctx context.Context, contactID string) (string, error)
}

type ingestor interface {
	LoadAndEmbed(ctx context.Context, path string) ([]domain.Chunk, [][]float32, error)
	ClientID(path string) (string, error)
}

type storer interface {
	StorePerformance(ctx context.Context, base, title string, chunks []domain.Chunk, vectors [][]float32) (string, error)
	ReplaceMonthly(ctx context.Context, base, title string, chunks []domain.Chunk, vectors [][]float32) (string, error)
}

type analyzer interface {
	Run(ctx context.Context, performanceCollection, monthlyCollection string) (domain.AnalysisResult, error)
}

type letterSource interface {
	LatestMonthlyLetter(ctx context.Context, dir string) (path, key string, err error)
}

type deduper interface {
	Seen(ctx context.Context, dealID string) (bool, error)
	Record(ctx context.Context, dealID string) error
}

type auditStore interface {
	InsertHistory(ctx context.Context, e *history.Entry) error
	InsertDeadLetter(ctx context.Context, dealID, stage, kind, message string) error
}

// Config holds pipeline orchestration settings.
type Config struct {
	CategoryID  string
	DownloadDir string
}

// Service orchestrates the full deal-processing run triggered by a webhook.
type Service struct {
	crm      crm
	ingestor ingestor
	storer   storer
	analyzer analyzer
	letters  letterSource
	dedup    deduper
	audit    auditStore
	cfg      Config
	logger   *zap.Logger

	locks *keyedLock
	now   func() time.Time
}

// New creates the pipeline service.
func New(c crm, i ingestor, s storer, a analyzer, l letterSource, d deduper, audit auditStore, cfg Config, logger *zap.Logger) *Service {
	return &Service{
		crm:      c,
		ingestor: i,
		storer:   s,
		analyzer: a,
		letters:  l,
		dedup:    d,
		audit:    audit,
		cfg:      cfg,
		logger:   logger,
		locks:    newKeyedLock(),
		now:      time.Now,
	}
}

// Process runs the whole pipeline for one deal id: fetch the deal, download
// and ingest its performance report, refresh the monthly collection, run
// the analysis chain and post the result back to the deal timeline.
// A deal outside the configured category, without an attachment, or already
// processed is skipped without error.
func (s *Service) Process(ctx context.Context, dealID string) error {
	log := s.logger.With(zap.String("deal_id", dealID))

	deal, err := s.crm.Deal(ctx, dealID)
	if err != nil {
		return s.fail(ctx, log, dealID, "fetch_deal", err)
	}
	if s.cfg.CategoryID != "" && deal.CategoryID != s.cfg.CategoryID {
		log.Info("deal outside configured category, skipping",
			zap.String("category_id", deal.CategoryID))
		metrics.PipelineRunsTotal.WithLabelValues("skipped").Inc()
		return nil
	}
	if deal.FileID == "" {
		log.Info("deal has no portfolio attachment, skipping")
		metrics.PipelineRunsTotal.WithLabelValues("skipped").Inc()
		return nil
	}

	if seen, err := s.dedup.Seen(ctx, dealID); err != nil {
		return s.fail(ctx, log, dealID, "dedup_check", err)
	} else if seen {
		log.Info("deal already processed, skipping")
		metrics.PipelineRunsTotal.WithLabelValues("skipped").Inc()
		return nil
	}

	s.locks.Lock(dealID)
	defer s.locks.Unlock(dealID)

	// recheck under the lock: a concurrent webhook for the same deal may
	// have finished while this one waited
	if seen, err := s.dedup.Seen(ctx, dealID); err != nil {
		return s.fail(ctx, log, dealID, "dedup_check", err)
	} else if seen {
		log.Info("deal processed concurrently, skipping")
		metrics.PipelineRunsTotal.WithLabelValues("skipped").Inc()
		return nil
	}

	if err := s.run(ctx, log, deal); err != nil {
		return err
	}

	if err := s.dedup.Record(ctx, dealID); err != nil && !errors.Is(err, domain.ErrAlreadyProcessed) {
		// the comment is already delivered; a failed record only risks a
		// duplicate on the next webhook
		log.Warn("record processed deal failed", zap.Error(err))
	}

	metrics.PipelineRunsTotal.WithLabelValues("success").Inc()
	log.Info("deal processed")
	return nil
}

func (s *Service) run(ctx context.Context, log *zap.Logger, deal *bitrix.Deal) error {
	if err := os.MkdirAll(s.cfg.DownloadDir, 0o755); err != nil {
		return s.fail(ctx, log, deal.ID, "download", err)
	}

	pdfPath := filepath.Join(s.cfg.DownloadDir, fmt.Sprintf("%s_%s.pdf", deal.AssignedByID, deal.ID))
	defer s.removeFile(log, pdfPath)

	stage := s.timeStage("download")
	if err := s.crm.DownloadAttachment(ctx, deal.FileID, pdfPath); err != nil {
		return s.fail(ctx, log, deal.ID, "download", err)
	}
	stage()

	stage = s.timeStage("ingest_performance")
	chunks, vectors, err := s.ingestor.LoadAndEmbed(ctx, pdfPath)
	if err != nil {
		return s.fail(ctx, log, deal.ID, "ingest_performance", err)
	}
	clientID, err := s.ingestor.ClientID(pdfPath)
	if err != nil {
		return s.fail(ctx, log, deal.ID, "ingest_performance", err)
	}
	stage()

	stem := filepath.Base(pdfPath)
	stem = stem[:len(stem)-len(filepath.Ext(stem))]
	base := domain.CollectionBase(stem, clientID, s.now())

	stage = s.timeStage("store_performance")
	perfCollection, err := s.storer.StorePerformance(ctx, base, filepath.Base(pdfPath), chunks, vectors)
	if err != nil {
		return s.fail(ctx, log, deal.ID, "store_performance", err)
	}
	stage()

	stage = s.timeStage("monthly_letter")
	monthlyCollection, err := s.refreshMonthly(ctx, log)
	if err != nil {
		return s.fail(ctx, log, deal.ID, "monthly_letter", err)
	}
	stage()

	stage = s.timeStage("analysis")
	result, err := s.analyzer.Run(ctx, perfCollection, monthlyCollection)
	if err != nil {
		return s.fail(ctx, log, deal.ID, "analysis", err)
	}
	stage()

	comment := analysis.FormatBBCode(result)

	stage = s.timeStage("comment")
	if err := s.crm.AddTimelineComment(ctx, deal.ID, comment); err != nil {
		return s.fail(ctx, log, deal.ID, "comment", err)
	}
	stage()

	s.recordHistory(ctx, log, deal, comment, perfCollection)
	return nil
}

// refreshMonthly downloads the latest monthly allocation letter and makes
// it the current shared monthly collection.
func (s *Service) refreshMonthly(ctx context.Context, log *zap.Logger) (string, error) {
	path, key, err := s.letters.LatestMonthlyLetter(ctx, s.cfg.DownloadDir)
	if err != nil {
		return "", err
	}
	defer s.removeFile(log, path)

	chunks, vectors, err := s.ingestor.LoadAndEmbed(ctx, path)
	if err != nil {
		return "", err
	}

	base := filepath.Base(key)
	base = base[:len(base)-len(filepath.Ext(base))]
	return s.storer.ReplaceMonthly(ctx, base, filepath.Base(key), chunks, vectors)
}

// recordHistory writes the audit row. Name lookups and the insert itself
// are best effort: the client-facing comment is already posted.
func (s *Service) recordHistory(ctx context.Context, log *zap.Logger, deal *bitrix.Deal, comment, perfCollection string) {
	userName, err := s.crm.UserName(ctx, deal.AssignedByID)
	if err != nil {
		log.Warn("lookup assigned user name failed", zap.Error(err))
	}
	var contactName string
	if deal.ContactID != "" {
		if contactName, err = s.crm.ContactName(ctx, deal.ContactID); err != nil {
			log.Warn("lookup contact name failed", zap.Error(err))
		}
	}

	err = s.audit.InsertHistory(ctx, &history.Entry{
		DealID:                 deal.ID,
		ContactID:              deal.ContactID,
		Tipo:                   historyType,
		NomeUser:               userName,
		Resposta:               comment,
		Dias:                   historyDays,
		NomeContact:            contactName,
		CollectionXPerformance: perfCollection,
	})
	if err != nil {
		log.Warn("insert history failed", zap.Error(err))
	}
}

// fail records a dead letter for the failed stage and returns the error.
func (s *Service) fail(ctx context.Context, log *zap.Logger, dealID, stage string, err error) error {
	log.Error("pipeline stage failed", zap.String("stage", stage), zap.Error(err))
	metrics.PipelineRunsTotal.WithLabelValues("error").Inc()
	metrics.DeadLettersTotal.WithLabelValues(stage).Inc()

	if dlErr := s.audit.InsertDeadLetter(ctx, dealID, stage, errorKind(err), err.Error()); dlErr != nil {
		log.Error("insert dead letter failed", zap.Error(dlErr))
	}
	return fmt.Errorf("stage %s: %w", stage, err)
}

func (s *Service) removeFile(log *zap.Logger, path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Warn("remove downloaded file failed", zap.String("path", path), zap.Error(err))
	}
}

func (s *Service) timeStage(stage string) func() {
	start := s.now()
	return func() {
		metrics.PipelineStageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	}
}

// errorKind maps an error to the dead-letter kind column.
func errorKind(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrEmbedding):
		return "embedding"
	case errors.Is(err, domain.ErrStore):
		return "store"
	case errors.Is(err, domain.ErrOutputParse):
		return "output_parse"
	case errors.Is(err, domain.ErrExternalCall):
		return "external_call"
	default:
		return "internal"
	}
}
