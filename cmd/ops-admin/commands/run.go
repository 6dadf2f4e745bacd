package commands

import (
	"context"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bsc-coop/ops-admin/internal/pipeline"
	"github.com/bsc-coop/ops-admin/internal/pkg/distlock"
	"github.com/bsc-coop/ops-admin/internal/printer"
)

var (
	runYes    bool
	runDryRun bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Send notices for every unprocessed row",
	Long: `Process every unprocessed row of the down-hours sheet.

For each row the notice tier is decided, the notice PDFs are filled from
their templates, the decision is written back to the sheet and the email
is sent. Termination notices are also added to the 15-day notice tracker.

Safe mode (the default) shows every email and asks before sending it.

Examples:
  # Preview what would be sent
  ops-admin run --dry-run

  # Send without confirming each email
  ops-admin run --yes`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	runCmd.Flags().BoolVarP(&runYes, "yes", "y", false, "Send without confirming each email (turns safe mode off)")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "Classify rows and print the plan without sending")

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return report(err)
	}
	defer a.Close()

	if runDryRun {
		p, err := a.processor(ctx, false, false)
		if err != nil {
			return report(err)
		}
		return report(printPlan(ctx, p))
	}

	if err := requireSendSettings(a.cfg); err != nil {
		return report(err)
	}
	p, err := a.processor(ctx, a.cfg.Run.SafeMode && !runYes, true)
	if err != nil {
		return report(err)
	}

	printer.Step("Run %s: processing the down-hours sheet\n", a.runID)
	var summary *pipeline.Summary
	err = distlock.WithLock(ctx, a.lock(), func(ctx context.Context) error {
		var runErr error
		summary, runErr = p.Run(ctx)
		return runErr
	})
	if summary != nil {
		printSummary(summary)
	}
	return report(err)
}

func printSummary(s *pipeline.Summary) {
	for _, e := range s.Unsent {
		printer.Warning("Row %d (%s) was staged by run %s but never sent\n", e.RowIndex, e.Action, e.RunID)
	}
	if len(s.Unsent) > 0 {
		printer.Info("  Check the member's inbox and the sheet before sending anything by hand.\n\n")
	}
	if len(s.Processed) == 0 {
		printer.Info("No notices sent.\n")
		return
	}
	rows := make([][]string, 0, len(s.Processed))
	for _, r := range s.Processed {
		rows = append(rows, []string{
			itoa(r.Decision.RowIndex),
			r.Decision.FullName(),
			string(r.Decision.Action),
			strings.Join(r.Attachments, ", "),
		})
	}
	printer.Table([]string{"ROW", "MEMBER", "NOTICE", "ATTACHMENTS"}, rows)
	printer.Success("Sent %d notice(s)\n", len(s.Processed))
}
