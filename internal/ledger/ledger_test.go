package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bsc-coop/ops-admin/internal/config"
	"github.com/bsc-coop/ops-admin/internal/downhours"
)

var testNow = time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)

func testEntry(row int) Entry {
	return NewEntry("sheet-1", "run-1", downhours.NoticeDecision{
		RowIndex:    row,
		Action:      downhours.ActionPotentialTermination,
		MemberEmail: "jane@example.com",
	}, testNow)
}

// exerciseLedger runs the behaviour every backend shares.
func exerciseLedger(t *testing.T, l Ledger) {
	t.Helper()
	ctx := context.Background()

	_, err := l.Get(ctx, Key("sheet-1", 7))
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, l.Stage(ctx, testEntry(7)))
	require.NoError(t, l.Stage(ctx, testEntry(7)), "restaging an unsent entry is allowed")
	require.NoError(t, l.Stage(ctx, testEntry(3)))

	unsent, err := l.Unsent(ctx)
	require.NoError(t, err)
	require.Len(t, unsent, 2)
	assert.Equal(t, 3, unsent[0].RowIndex)
	assert.Equal(t, 7, unsent[1].RowIndex)

	require.NoError(t, l.MarkSent(ctx, Key("sheet-1", 7), "msg-7", testNow.Add(time.Minute)))
	e, err := l.Get(ctx, Key("sheet-1", 7))
	require.NoError(t, err)
	assert.Equal(t, StatusSent, e.Status)
	assert.Equal(t, "msg-7", e.MessageID)
	assert.Equal(t, downhours.ActionPotentialTermination, e.Action)

	err = l.Stage(ctx, testEntry(7))
	require.ErrorIs(t, err, ErrAlreadySent)

	unsent, err = l.Unsent(ctx)
	require.NoError(t, err)
	require.Len(t, unsent, 1)
	assert.Equal(t, 3, unsent[0].RowIndex)

	assert.ErrorIs(t, l.MarkSent(ctx, Key("sheet-1", 99), "msg", testNow), ErrNotFound)
}

func TestMemory(t *testing.T) {
	exerciseLedger(t, NewMemory())
}

func TestKeyAndNewEntry(t *testing.T) {
	assert.Equal(t, "sheet-1#12", Key("sheet-1", 12))

	e := testEntry(12)
	assert.Equal(t, "sheet-1#12", e.Key)
	assert.Equal(t, StatusStaged, e.Status)
	assert.Equal(t, "run-1", e.RunID)
	assert.Equal(t, testNow, e.StagedAt)
}

func TestNop(t *testing.T) {
	ctx := context.Background()
	var l Ledger = Nop{}
	require.NoError(t, l.Stage(ctx, testEntry(1)))
	require.NoError(t, l.MarkSent(ctx, "k", "m", testNow))
	_, err := l.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
	unsent, err := l.Unsent(ctx)
	require.NoError(t, err)
	assert.Empty(t, unsent)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	l, closeFn, err := Open(ctx, config.LedgerConfig{Backend: "none"})
	require.NoError(t, err)
	assert.IsType(t, Nop{}, l)
	require.NoError(t, closeFn())

	l, _, err = Open(ctx, config.LedgerConfig{Backend: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, l)

	_, _, err = Open(ctx, config.LedgerConfig{Backend: "sqlite"})
	assert.ErrorContains(t, err, "unknown ledger backend")
}
