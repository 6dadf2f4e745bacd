package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bsc-coop/ops-admin/internal/downhours"
)

const schema = `
CREATE TABLE IF NOT EXISTS notice_ledger (
	key            TEXT PRIMARY KEY,
	spreadsheet_id TEXT NOT NULL,
	row_index      INTEGER NOT NULL,
	member_email   TEXT NOT NULL,
	action         TEXT NOT NULL,
	status         TEXT NOT NULL,
	message_id     TEXT NOT NULL DEFAULT '',
	run_id         TEXT NOT NULL DEFAULT '',
	staged_at      TIMESTAMPTZ NOT NULL,
	sent_at        TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS notice_ledger_status_idx ON notice_ledger (status);
`

// Postgres keeps entries in the notice_ledger table.
type Postgres struct{ db *sql.DB }

// NewPostgres creates a Postgres-backed ledger.
func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// DB returns the underlying connection pool.
func (p *Postgres) DB() *sql.DB { return p.db }

// EnsureSchema creates the ledger table if it does not exist.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating notice_ledger: %w", err)
	}
	return nil
}

func (p *Postgres) Stage(ctx context.Context, e Entry) error {
	res, err := p.db.ExecContext(ctx, `
		INSERT INTO notice_ledger (key, spreadsheet_id, row_index, member_email, action, status, run_id, staged_at)
		VALUES ($1, $2, $3, $4, $5, 'staged', $6, $7)
		ON CONFLICT (key) DO UPDATE
		SET member_email = EXCLUDED.member_email, action = EXCLUDED.action,
		    run_id = EXCLUDED.run_id, staged_at = EXCLUDED.staged_at
		WHERE notice_ledger.status = 'staged'
	`, e.Key, e.SpreadsheetID, e.RowIndex, e.MemberEmail, string(e.Action), e.RunID, e.StagedAt.UTC())
	if err != nil {
		return fmt.Errorf("stage ledger entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("stage ledger entry: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", e.Key, ErrAlreadySent)
	}
	return nil
}

func (p *Postgres) MarkSent(ctx context.Context, key, messageID string, at time.Time) error {
	res, err := p.db.ExecContext(ctx, `
		UPDATE notice_ledger SET status = 'sent', message_id = $2, sent_at = $3
		WHERE key = $1
	`, key, messageID, at.UTC())
	if err != nil {
		return fmt.Errorf("mark ledger entry sent: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark ledger entry sent: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	return nil
}

const selectColumns = `key, spreadsheet_id, row_index, member_email, action, status, message_id, run_id, staged_at, sent_at`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(s scanner) (Entry, error) {
	var (
		e      Entry
		action string
		status string
		sentAt sql.NullTime
	)
	if err := s.Scan(&e.Key, &e.SpreadsheetID, &e.RowIndex, &e.MemberEmail, &action, &status,
		&e.MessageID, &e.RunID, &e.StagedAt, &sentAt); err != nil {
		return Entry{}, err
	}
	e.Action = downhours.Action(action)
	e.Status = Status(status)
	if sentAt.Valid {
		e.SentAt = sentAt.Time
	}
	return e, nil
}

func (p *Postgres) Get(ctx context.Context, key string) (Entry, error) {
	e, err := scanEntry(p.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM notice_ledger WHERE key = $1`, key))
	if err == sql.ErrNoRows {
		return Entry{}, fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	if err != nil {
		return Entry{}, fmt.Errorf("get ledger entry: %w", err)
	}
	return e, nil
}

func (p *Postgres) Unsent(ctx context.Context) ([]Entry, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM notice_ledger WHERE status = 'staged' ORDER BY spreadsheet_id, row_index`)
	if err != nil {
		return nil, fmt.Errorf("list unsent ledger entries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
