package pipeline

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/rafaelmarins2003/ia-investimentos-comentarios/internal/domain"
	"github.com/rafaelmarins2003/ia-investimentos-comentarios/internal/repository/history"
	"github.com/rafaelmarins2003/ia-investimentos-comentarios/internal/transport/bitrix"
)

type mockCRM struct {
	deal        *bitrix.Deal
	dealErr     error
	downloadErr error
	commentErr  error

	downloads []string
	comments  []string
}

func (m *mockCRM) Deal(_ context.Context, _ string) (*bitrix.Deal, error) {
	return m.deal, m.dealErr
}

func (m *mockCRM) DownloadAttachment(_ context.Context, fileID, destPath string) error {
	if m.downloadErr != nil {
		return m.downloadErr
	}
	m.downloads = append(m.downloads, destPath)
	return os.WriteFile(destPath, []byte("%PDF"), 0o644)
}

func (m *mockCRM) AddTimelineComment(_ context.Context, _, comment string) error {
	if m.commentErr != nil {
		return m.commentErr
	}
	m.comments = append(m.comments, comment)
	return nil
}

func (m *mockCRM) UserName(_ context.Context, _ string) (string, error)    { return "Maria Souza", nil }
func (m *mockCRM) ContactName(_ context.Context, _ string) (string, error) { return "João Lima", nil }

type mockIngestor struct {
	err   error
	calls int
}

func (m *mockIngestor) LoadAndEmbed(_ context.Context, _ string) ([]domain.Chunk, [][]float32, error) {
	m.calls++
	if m.err != nil {
		return nil, nil, m.err
	}
	return []domain.Chunk{{Text: "pagina"}}, [][]float32{{0.1, 0.2}}, nil
}

func (m *mockIngestor) ClientID(_ string) (string, error) { return "123456", nil }

type mockStorer struct {
	perfCalls    []string
	monthlyCalls []string
	perfErr      error
}

func (m *mockStorer) StorePerformance(_ context.Context, base, _ string, _ []domain.Chunk, _ [][]float32) (string, error) {
	if m.perfErr != nil {
		return "", m.perfErr
	}
	m.perfCalls = append(m.perfCalls, base)
	return base + domain.PerformanceSuffix, nil
}

func (m *mockStorer) ReplaceMonthly(_ context.Context, base, _ string, _ []domain.Chunk, _ [][]float32) (string, error) {
	m.monthlyCalls = append(m.monthlyCalls, base)
	return base + domain.MonthlySuffix, nil
}

type mockAnalyzer struct {
	runs   int
	err    error
	result domain.AnalysisResult
}

func (m *mockAnalyzer) Run(_ context.Context, _, _ string) (domain.AnalysisResult, error) {
	m.runs++
	return m.result, m.err
}

type mockLetters struct {
	err error
}

func (m *mockLetters) LatestMonthlyLetter(_ context.Context, dir string) (string, string, error) {
	if m.err != nil {
		return "", "", m.err
	}
	f, err := os.CreateTemp(dir, "carta_novembro_*.pdf")
	if err != nil {
		return "", "", err
	}
	f.Close()
	return f.Name(), "carta_mensal_/carta_novembro_2026.pdf", nil
}

type mockDedup struct {
	mu   sync.Mutex
	seen map[string]bool
}

func newMockDedup() *mockDedup { return &mockDedup{seen: make(map[string]bool)} }

func (m *mockDedup) Seen(_ context.Context, dealID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seen[dealID], nil
}

func (m *mockDedup) Record(_ context.Context, dealID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seen[dealID] {
		return domain.ErrAlreadyProcessed
	}
	m.seen[dealID] = true
	return nil
}

type mockAudit struct {
	mu          sync.Mutex
	entries     []history.Entry
	deadLetters []string
}

func (m *mockAudit) InsertHistory(_ context.Context, e *history.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, *e)
	return nil
}

func (m *mockAudit) InsertDeadLetter(_ context.Context, dealID, stage, kind, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deadLetters = append(m.deadLetters, dealID+"|"+stage+"|"+kind)
	return nil
}

var errBoom = errors.New("boom")

func testDeal() *bitrix.Deal {
	return &bitrix.Deal{ID: "42", AssignedByID: "7", ContactID: "99", CategoryID: "19", FileID: "314"}
}

type fixture struct {
	crm      *mockCRM
	ingestor *mockIngestor
	storer   *mockStorer
	analyzer *mockAnalyzer
	letters  *mockLetters
	dedup    *mockDedup
	audit    *mockAudit
	svc      *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		crm:      &mockCRM{deal: testDeal()},
		ingestor: &mockIngestor{},
		storer:   &mockStorer{},
		analyzer: &mockAnalyzer{result: domain.AnalysisResult{Contextualizacao: "ok"}},
		letters:  &mockLetters{},
		dedup:    newMockDedup(),
		audit:    &mockAudit{},
	}
	f.svc = New(f.crm, f.ingestor, f.storer, f.analyzer, f.letters, f.dedup, f.audit,
		Config{CategoryID: "19", DownloadDir: t.TempDir()}, zap.NewNop())
	return f
}
