package commands

import (
	"github.com/spf13/cobra"

	"github.com/bsc-coop/ops-admin/internal/gapi"
	"github.com/bsc-coop/ops-admin/internal/people"
	"github.com/bsc-coop/ops-admin/internal/printer"
	"github.com/bsc-coop/ops-admin/internal/sheets"
)

var backfillPeople string

var backfillCmd = &cobra.Command{
	Use:   "backfill-emails",
	Short: "Fill missing member emails from the person list",
	Long: `Look up every unprocessed row that has no member email in a person list
CSV export (columns "First Name", "Last Name", "Permanent Email") and write
the email back to the sheet. Members missing from the list get "NOT FOUND",
which a run refuses to send to.

Examples:
  ops-admin backfill-emails --people person_list.csv`,
	Args: cobra.NoArgs,
	RunE: runBackfill,
}

func init() {
	backfillCmd.Flags().StringVarP(&backfillPeople, "people", "p", "", "Path to the person list CSV")
	_ = backfillCmd.MarkFlagRequired("people")

	rootCmd.AddCommand(backfillCmd)
}

func runBackfill(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	dir, err := people.Load(backfillPeople)
	if err != nil {
		return printer.Error("Cannot read the person list", err.Error(),
			[]string{"Export the roster as CSV with First Name, Last Name and Permanent Email columns."})
	}

	cfg, err := loadConfig()
	if err != nil {
		return report(err)
	}
	client, err := gapi.NewHTTPClient(ctx, cfg.Google)
	if err != nil {
		return report(err)
	}
	sheet, err := sheets.NewClient(ctx, cfg.Google.DownHours, gapi.Options(client)...)
	if err != nil {
		return report(err)
	}

	res, err := people.Backfill(ctx, sheet, dir)
	if err != nil {
		return report(err)
	}
	for _, row := range res.NotFound {
		printer.Warning("Row %d: member not in the person list\n", row)
	}
	printer.Success("Filled %d email(s) from %d people\n", len(res.Filled), dir.Len())
	return nil
}
