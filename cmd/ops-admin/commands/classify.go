package commands

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/bsc-coop/ops-admin/internal/downhours"
	"github.com/bsc-coop/ops-admin/internal/pipeline"
	"github.com/bsc-coop/ops-admin/internal/printer"
)

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Show which notice each unprocessed row would get",
	Long: `Read the down-hours sheet and print the notice each unprocessed row
would receive. Nothing is written and no email is sent.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return report(err)
		}
		defer a.Close()

		p, err := a.processor(ctx, false, false)
		if err != nil {
			return report(err)
		}
		return report(printPlan(ctx, p))
	},
}

func init() {
	rootCmd.AddCommand(classifyCmd)
}

func printPlan(ctx context.Context, p *pipeline.Processor) error {
	decisions, err := p.Plan(ctx)
	if err != nil {
		return err
	}
	if len(decisions) == 0 {
		printer.Info("No unprocessed rows.\n")
		return nil
	}
	printer.Table([]string{"ROW", "MEMBER", "HOUSE", "PRIOR CC", "ACTION"}, decisionRows(decisions))
	return nil
}

func decisionRows(decisions []downhours.NoticeDecision) [][]string {
	rows := make([][]string, 0, len(decisions))
	for _, d := range decisions {
		prior := "No"
		if d.HadPriorConditionalContract {
			prior = "Yes"
		}
		rows = append(rows, []string{itoa(d.RowIndex), d.FullName(), d.HouseCode, prior, string(d.Action)})
	}
	return rows
}

func itoa(i int) string { return strconv.Itoa(i) }
