package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Entry is one analysis delivered to a CRM deal.
type Entry struct {
	DealID                 string
	ContactID              string
	Tipo                   string
	NomeUser               string
	Resposta               string
	Dias                   int
	NomeContact            string
	CollectionXPerformance string
}

// DeadLetter is a failed pipeline run kept for manual replay.
type DeadLetter struct {
	ID        int64
	DealID    string
	Stage     string
	Kind      string
	Message   string
	CreatedAt time.Time
}

// Store persists analysis history and dead letters in SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the SQLite database at path and
// applies the schema.
func Open(path string) (*Store, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// modernc.org/sqlite is not safe for concurrent writers on one conn
	sqlDB.SetMaxOpenConns(1)

	s := &Store{db: sqlDB}
	if err := s.migrate(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	const schema = `
CREATE TABLE IF NOT EXISTS tb_hist_ia_investimentos (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	id_btx TEXT NOT NULL,
	id_contact_btx TEXT NOT NULL DEFAULT '',
	tipo TEXT NOT NULL,
	nome_user TEXT NOT NULL DEFAULT '',
	resposta TEXT NOT NULL,
	dias INTEGER NOT NULL DEFAULT 30,
	nome_contact TEXT NOT NULL DEFAULT '',
	collection_xperformance TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS tb_dead_letter (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	deal_id TEXT NOT NULL,
	stage TEXT NOT NULL,
	kind TEXT NOT NULL,
	message TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_hist_id_btx ON tb_hist_ia_investimentos (id_btx);
CREATE INDEX IF NOT EXISTS idx_dead_letter_deal ON tb_dead_letter (deal_id);
`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// InsertHistory records a delivered analysis.
func (s *Store) InsertHistory(ctx context.Context, e *Entry) error {
	const q = `
INSERT INTO tb_hist_ia_investimentos
	(id_btx, id_contact_btx, tipo, nome_user, resposta, dias, nome_contact, collection_xperformance)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, q,
		e.DealID, e.ContactID, e.Tipo, e.NomeUser, e.Resposta, e.Dias, e.NomeContact, e.CollectionXPerformance)
	if err != nil {
		return fmt.Errorf("insert history for deal %s: %w", e.DealID, err)
	}
	return nil
}

// InsertDeadLetter records a failed run.
func (s *Store) InsertDeadLetter(ctx context.Context, dealID, stage, kind, message string) error {
	const q = `INSERT INTO tb_dead_letter (deal_id, stage, kind, message) VALUES (?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, q, dealID, stage, kind, message); err != nil {
		return fmt.Errorf("insert dead letter for deal %s: %w", dealID, err)
	}
	return nil
}

// HistoryByDeal returns all recorded analyses for a deal, newest first.
func (s *Store) HistoryByDeal(ctx context.Context, dealID string) ([]Entry, error) {
	const q = `
SELECT id_btx, id_contact_btx, tipo, nome_user, resposta, dias, nome_contact, collection_xperformance
FROM tb_hist_ia_investimentos
WHERE id_btx = ?
ORDER BY id DESC`
	rows, err := s.db.QueryContext(ctx, q, dealID)
	if err != nil {
		return nil, fmt.Errorf("query history for deal %s: %w", dealID, err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.DealID, &e.ContactID, &e.Tipo, &e.NomeUser, &e.Resposta,
			&e.Dias, &e.NomeContact, &e.CollectionXPerformance); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// DeadLetters returns the most recent dead letters up to limit.
func (s *Store) DeadLetters(ctx context.Context, limit int) ([]DeadLetter, error) {
	const q = `
SELECT id, deal_id, stage, kind, message, created_at
FROM tb_dead_letter
ORDER BY id DESC
LIMIT ?`
	rows, err := s.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("query dead letters: %w", err)
	}
	defer rows.Close()

	var out []DeadLetter
	for rows.Next() {
		var d DeadLetter
		if err := rows.Scan(&d.ID, &d.DealID, &d.Stage, &d.Kind, &d.Message, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan dead letter row: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
