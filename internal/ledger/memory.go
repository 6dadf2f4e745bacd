package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Memory is an in-process ledger.
type Memory struct {
	mu      sync.Mutex
	entries map[string]Entry
}

// NewMemory creates an empty in-memory ledger.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]Entry)}
}

func (m *Memory) Stage(_ context.Context, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.entries[e.Key]; ok && cur.Status == StatusSent {
		return fmt.Errorf("%s: %w", e.Key, ErrAlreadySent)
	}
	e.Status = StatusStaged
	m.entries[e.Key] = e
	return nil
}

func (m *Memory) MarkSent(_ context.Context, key, messageID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	e.Status = StatusSent
	e.MessageID = messageID
	e.SentAt = at.UTC()
	m.entries[key] = e
	return nil
}

func (m *Memory) Get(_ context.Context, key string) (Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return Entry{}, fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	return e, nil
}

func (m *Memory) Unsent(context.Context) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Entry
	for _, e := range m.entries {
		if e.Status == StatusStaged {
			out = append(out, e)
		}
	}
	sortEntries(out)
	return out, nil
}

func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].SpreadsheetID != entries[j].SpreadsheetID {
			return entries[i].SpreadsheetID < entries[j].SpreadsheetID
		}
		return entries[i].RowIndex < entries[j].RowIndex
	})
}
