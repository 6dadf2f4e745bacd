package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/bsc-coop/ops-admin/internal/config"
	"github.com/bsc-coop/ops-admin/internal/ledger"
	"github.com/bsc-coop/ops-admin/internal/printer"
)

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Inspect the record of staged and sent notices",
	Long: `The ledger records every notice a run staged and whether its email went
out. A row that was staged but never sent is reported by every later run and
is never resent automatically.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var ledgerUnsentCmd = &cobra.Command{
	Use:   "unsent",
	Short: "List notices that were staged but never sent",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, l, closer, err := openLedger(cmd)
		if err != nil {
			return report(err)
		}
		defer closer()

		entries, err := l.Unsent(ctx)
		if err != nil {
			return report(err)
		}
		if len(entries) == 0 {
			printer.Success("No unsent notices in the %s ledger\n", cfg.Ledger.Backend)
			return nil
		}
		printer.Table([]string{"ROW", "ACTION", "RUN", "STAGED"}, entryRows(entries))
		return nil
	},
}

var ledgerShowCmd = &cobra.Command{
	Use:   "show ROW",
	Short: "Show the ledger entry for a sheet row",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		row, err := strconv.Atoi(args[0])
		if err != nil || row < 2 {
			return printer.Error("Invalid row", fmt.Sprintf("%q is not a data row number.", args[0]), nil)
		}
		cfg, l, closer, err := openLedger(cmd)
		if err != nil {
			return report(err)
		}
		defer closer()

		e, err := l.Get(cmd.Context(), ledger.Key(cfg.Google.DownHours.SpreadsheetID, row))
		if err != nil {
			return report(err)
		}
		printer.Info("Row:     %d\n", e.RowIndex)
		printer.Info("Action:  %s\n", e.Action)
		printer.Info("Status:  %s\n", e.Status)
		printer.Info("Run:     %s\n", e.RunID)
		printer.Info("Staged:  %s\n", e.StagedAt.Format(time.RFC3339))
		if e.Status == ledger.StatusSent {
			printer.Info("Sent:    %s (%s)\n", e.SentAt.Format(time.RFC3339), e.MessageID)
		}
		return nil
	},
}

var ledgerMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the Postgres ledger table",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, l, closer, err := openLedger(cmd)
		if err != nil {
			return report(err)
		}
		defer closer()

		pg, ok := l.(*ledger.Postgres)
		if !ok {
			return printer.Error("Nothing to migrate",
				fmt.Sprintf("The %s ledger backend has no schema.", cfg.Ledger.Backend),
				[]string{"Set ledger.backend to postgres or export DATABASE_URL."})
		}
		if err := pg.EnsureSchema(cmd.Context()); err != nil {
			return report(err)
		}
		printer.Success("Ledger schema is up to date\n")
		return nil
	},
}

func init() {
	ledgerCmd.AddCommand(ledgerUnsentCmd, ledgerShowCmd, ledgerMigrateCmd)
	rootCmd.AddCommand(ledgerCmd)
}

func openLedger(cmd *cobra.Command) (*config.Config, ledger.Ledger, func() error, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	l, closer, err := ledger.Open(cmd.Context(), cfg.Ledger)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, l, closer, nil
}

func entryRows(entries []ledger.Entry) [][]string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{itoa(e.RowIndex), string(e.Action), e.RunID, e.StagedAt.Format(time.RFC3339)})
	}
	return rows
}
