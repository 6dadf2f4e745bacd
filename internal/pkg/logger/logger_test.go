package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, buf *bytes.Buffer) []map[string]string {
	t.Helper()
	var out []map[string]string
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]string
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		out = append(out, entry)
	}
	return out
}

func TestLoggerRedactsEmails(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, INFO, true)

	l.Info("sending notice", "member_email", "jane.doe@bsc.coop", "note", "cc ioh-manager@bsc.coop", "row", 7)

	entries := decode(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "INFO", entries[0]["level"])
	assert.Equal(t, "sending notice", entries[0]["msg"])
	assert.Equal(t, "ja***@bsc.coop", entries[0]["member_email"])
	assert.Equal(t, "cc io***@bsc.coop", entries[0]["note"])
	assert.Equal(t, "7", entries[0]["row"])
}

func TestLoggerLevelsAndFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, WARN, false).With("run_id", "abc123")

	l.Info("dropped")
	l.Warn("kept", "member_email", "jane.doe@bsc.coop")

	entries := decode(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "abc123", entries[0]["run_id"])
	assert.Equal(t, "jane.doe@bsc.coop", entries[0]["member_email"])
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]Level{"debug": DEBUG, "INFO": INFO, "warning": WARN, "Error": ERROR} {
		got, err := ParseLevel(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestRedactEmail(t *testing.T) {
	assert.Equal(t, "ja***@bsc.coop", RedactEmail("jane@bsc.coop"))
	assert.Equal(t, "***@bsc.coop", RedactEmail("ab@bsc.coop"))
	assert.Equal(t, "***@***", RedactEmail("NOT FOUND"))
}
