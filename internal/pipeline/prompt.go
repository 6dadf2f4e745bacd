package pipeline

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/fatih/color"

	"github.com/bsc-coop/ops-admin/internal/downhours"
)

var (
	promptColor = color.New(color.FgCyan, color.Bold)
	headerColor = color.New(color.FgYellow)
)

// TerminalPrompter asks the operator on a terminal.
type TerminalPrompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewTerminalPrompter reads answers from in and writes questions to out.
func NewTerminalPrompter(in io.Reader, out io.Writer) *TerminalPrompter {
	return &TerminalPrompter{in: bufio.NewReader(in), out: out}
}

func (t *TerminalPrompter) ask(question string) (string, error) {
	promptColor.Fprint(t.out, question)
	line, err := t.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("reading answer: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// ReinstatementEligibility defaults to eligible. Any answer starting with
// "n" marks the member ineligible and asks for the prior termination reason.
func (t *TerminalPrompter) ReinstatementEligibility(d downhours.NoticeDecision) (bool, string, error) {
	answer, err := t.ask(fmt.Sprintf("Is %s eligible for reinstatement? [Y/n]: ", d.FullName()))
	if err != nil {
		return false, "", err
	}
	if !strings.HasPrefix(strings.ToLower(answer), "n") {
		return true, "", nil
	}
	for {
		reason, err := t.ask("Prior termination reason: ")
		if err != nil {
			return false, "", err
		}
		if reason != "" {
			return false, reason, nil
		}
	}
}

// ConfirmSend prints the email and waits for an explicit yes.
func (t *TerminalPrompter) ConfirmSend(p Preview) error {
	names := make([]string, 0, len(p.Attachments))
	for _, a := range p.Attachments {
		names = append(names, filepath.Base(a))
	}

	headerColor.Fprintf(t.out, "\nAbout to send %s to %s (cc %s)\n", p.Decision.Action, p.Message.To, p.Message.Cc)
	fmt.Fprintf(t.out, "\nSubject: %s\n\n%s\n\n", p.Message.Subject, p.Message.Body)
	if len(p.Attachments) > 0 {
		fmt.Fprintf(t.out, "Attachments: %s\n", strings.Join(names, ", "))
		for _, a := range p.Attachments {
			fmt.Fprintf(t.out, "  %s\n", a)
		}
	}

	answer, err := t.ask("Send this email? [y/N]: ")
	if err != nil {
		return err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return nil
	}
	return ErrDeclined
}
