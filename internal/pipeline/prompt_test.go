package pipeline

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bsc-coop/ops-admin/internal/downhours"
	"github.com/bsc-coop/ops-admin/internal/ses"
)

func TestReinstatementEligibility(t *testing.T) {
	d := downhours.NoticeDecision{FirstName: "Jane", LastName: "Doe"}

	tests := []struct {
		input    string
		eligible bool
		reason   string
	}{
		{"\n", true, ""},
		{"y\n", true, ""},
		{"Yes\n", true, ""},
		{"n\nMissed payments\n", false, "Missed payments"},
		{"no\n\nRepeated down hours\n", false, "Repeated down hours"},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		p := NewTerminalPrompter(strings.NewReader(tt.input), &out)
		eligible, reason, err := p.ReinstatementEligibility(d)
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.eligible, eligible, tt.input)
		assert.Equal(t, tt.reason, reason, tt.input)
		assert.Contains(t, out.String(), "Is Jane Doe eligible for reinstatement?")
	}

	p := NewTerminalPrompter(strings.NewReader("n\n"), &bytes.Buffer{})
	_, _, err := p.ReinstatementEligibility(d)
	assert.Error(t, err, "input ends before a reason is given")
}

func TestConfirmSend(t *testing.T) {
	preview := Preview{
		Decision:    downhours.NoticeDecision{Action: downhours.ActionPotentialTermination},
		Message:     ses.Message{To: "jane@example.com", Cc: "czh-manager@bsc.coop", Subject: "15-Day Notice", Body: "Dear Jane"},
		Attachments: []string{"/tmp/notices/cc_Jane_Doe.pdf"},
	}

	var out bytes.Buffer
	require.NoError(t, NewTerminalPrompter(strings.NewReader("y\n"), &out).ConfirmSend(preview))
	assert.Contains(t, out.String(), "Subject: 15-Day Notice")
	assert.Contains(t, out.String(), "Attachments: cc_Jane_Doe.pdf")
	assert.Contains(t, out.String(), "czh-manager@bsc.coop")

	for _, answer := range []string{"\n", "n\n", "whatever\n", ""} {
		err := NewTerminalPrompter(strings.NewReader(answer), &bytes.Buffer{}).ConfirmSend(preview)
		assert.Error(t, err, "answer %q", answer)
	}
	assert.ErrorIs(t, NewTerminalPrompter(strings.NewReader("no\n"), &bytes.Buffer{}).ConfirmSend(preview), ErrDeclined)
}
