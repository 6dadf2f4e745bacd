// Package ledger records which notices have been sent so a row is never
// emailed twice, even when the sheet write-back and the send are split by
// a crash.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/bsc-coop/ops-admin/internal/config"
	"github.com/bsc-coop/ops-admin/internal/downhours"
)

var (
	// ErrAlreadySent means the row's notice went out on an earlier run.
	ErrAlreadySent = errors.New("notice already sent")
	// ErrNotFound means no entry exists for the key.
	ErrNotFound = errors.New("ledger entry not found")
)

// Status of a ledger entry.
type Status string

const (
	StatusStaged Status = "staged"
	StatusSent   Status = "sent"
)

// Entry is the ledger record for one sheet row.
type Entry struct {
	Key           string           `dynamodbav:"PK" json:"key"`
	SpreadsheetID string           `dynamodbav:"spreadsheet_id" json:"spreadsheet_id"`
	RowIndex      int              `dynamodbav:"row_index" json:"row_index"`
	MemberEmail   string           `dynamodbav:"member_email" json:"member_email"`
	Action        downhours.Action `dynamodbav:"action" json:"action"`
	Status        Status           `dynamodbav:"status" json:"status"`
	MessageID     string           `dynamodbav:"message_id,omitempty" json:"message_id,omitempty"`
	RunID         string           `dynamodbav:"run_id" json:"run_id"`
	StagedAt      time.Time        `dynamodbav:"staged_at" json:"staged_at"`
	SentAt        time.Time        `dynamodbav:"sent_at,omitempty" json:"sent_at,omitempty"`
}

// Key identifies a row of a spreadsheet.
func Key(spreadsheetID string, rowIndex int) string {
	return fmt.Sprintf("%s#%d", spreadsheetID, rowIndex)
}

// NewEntry builds a staged entry for a decision.
func NewEntry(spreadsheetID, runID string, d downhours.NoticeDecision, now time.Time) Entry {
	return Entry{
		Key:           Key(spreadsheetID, d.RowIndex),
		SpreadsheetID: spreadsheetID,
		RowIndex:      d.RowIndex,
		MemberEmail:   d.MemberEmail,
		Action:        d.Action,
		Status:        StatusStaged,
		RunID:         runID,
		StagedAt:      now.UTC(),
	}
}

// Ledger stores notice-sent markers.
type Ledger interface {
	// Stage records that a notice is about to go out. Staging over an
	// earlier staged entry replaces it; staging over a sent entry returns
	// ErrAlreadySent.
	Stage(ctx context.Context, e Entry) error
	// MarkSent flips a staged entry to sent.
	MarkSent(ctx context.Context, key, messageID string, at time.Time) error
	Get(ctx context.Context, key string) (Entry, error)
	// Unsent lists staged entries whose email never went out.
	Unsent(ctx context.Context) ([]Entry, error)
}

// Open returns the ledger selected by cfg and a function that releases it.
func Open(ctx context.Context, cfg config.LedgerConfig) (Ledger, func() error, error) {
	noop := func() error { return nil }
	switch strings.ToLower(cfg.Backend) {
	case "", "none":
		return Nop{}, noop, nil
	case "memory":
		return NewMemory(), noop, nil
	case "dynamodb":
		l, err := NewDynamoDB(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return l, noop, nil
	case "postgres":
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("opening ledger database: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("connecting to ledger database: %w", err)
		}
		return NewPostgres(db), db.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown ledger backend %q", cfg.Backend)
}

// Nop is the ledger used when none is configured. It remembers nothing.
type Nop struct{}

func (Nop) Stage(context.Context, Entry) error                        { return nil }
func (Nop) MarkSent(context.Context, string, string, time.Time) error { return nil }
func (Nop) Get(context.Context, string) (Entry, error)                { return Entry{}, ErrNotFound }
func (Nop) Unsent(context.Context) ([]Entry, error)                   { return nil, nil }
