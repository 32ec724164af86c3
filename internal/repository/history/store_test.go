package history

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "advisor.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestInsertAndQueryHistory(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	e := &Entry{
		DealID:                 "42",
		ContactID:              "7",
		Tipo:                   "analise_investimentos",
		NomeUser:               "Maria Souza",
		Resposta:               "[SIZE=4][B]Análise da carteira do cliente:[/B][/SIZE]",
		Dias:                   30,
		NomeContact:            "João Lima",
		CollectionXPerformance: "carta_42_2026-08-31_xperformance",
	}
	if err := s.InsertHistory(ctx, e); err != nil {
		t.Fatalf("InsertHistory: %v", err)
	}
	if err := s.InsertHistory(ctx, &Entry{DealID: "99", Tipo: "analise_investimentos", Resposta: "x", Dias: 30}); err != nil {
		t.Fatalf("InsertHistory second: %v", err)
	}

	got, err := s.HistoryByDeal(ctx, "42")
	if err != nil {
		t.Fatalf("HistoryByDeal: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d rows, want 1", len(got))
	}
	if got[0].NomeUser != "Maria Souza" || got[0].Dias != 30 {
		t.Errorf("row = %+v", got[0])
	}
	if got[0].CollectionXPerformance != e.CollectionXPerformance {
		t.Errorf("collection = %q", got[0].CollectionXPerformance)
	}
}

func TestDeadLetters(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, stage := range []string{"download", "analysis", "comment"} {
		if err := s.InsertDeadLetter(ctx, "42", stage, "external_call", "timeout"); err != nil {
			t.Fatalf("InsertDeadLetter %s: %v", stage, err)
		}
	}

	got, err := s.DeadLetters(ctx, 2)
	if err != nil {
		t.Fatalf("DeadLetters: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d dead letters, want 2", len(got))
	}
	if got[0].Stage != "comment" {
		t.Errorf("newest stage = %q, want comment", got[0].Stage)
	}
	if got[0].CreatedAt.IsZero() {
		t.Error("created_at not set")
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "advisor.db")

	s1, err := Open(path)
	if err != nil {
		t.Fatalf("first Open: %v", err)
	}
	if err := s1.InsertDeadLetter(context.Background(), "1", "download", "external_call", "x"); err != nil {
		t.Fatalf("InsertDeadLetter: %v", err)
	}
	s1.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("second Open: %v", err)
	}
	defer s2.Close()

	got, err := s2.DeadLetters(context.Background(), 10)
	if err != nil {
		t.Fatalf("DeadLetters: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("got %d dead letters after reopen, want 1", len(got))
	}
}
