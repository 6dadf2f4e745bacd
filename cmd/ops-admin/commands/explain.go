package commands

import (
	"errors"

	"github.com/bsc-coop/ops-admin/internal/downhours"
	"github.com/bsc-coop/ops-admin/internal/ledger"
	"github.com/bsc-coop/ops-admin/internal/notice"
	"github.com/bsc-coop/ops-admin/internal/pipeline"
	"github.com/bsc-coop/ops-admin/internal/pkg/distlock"
	"github.com/bsc-coop/ops-admin/internal/printer"
)

// failure is the operator-facing account of an error.
type failure struct {
	title       string
	explanation string
	suggestions []string
}

// describe maps the known failure modes of a run onto guidance for the
// operator. Unknown errors are shown as they are.
func describe(err error) failure {
	switch {
	case errors.Is(err, distlock.ErrLocked):
		return failure{
			title:       "Another run is in progress",
			explanation: "Someone else is processing the down-hours sheet right now.",
			suggestions: []string{"Wait for the other run to finish and try again."},
		}
	case errors.Is(err, distlock.ErrLockLost):
		return failure{
			title:       "Run lock lost",
			explanation: err.Error(),
			suggestions: []string{
				"Another run may have taken over the sheet. Check the sheet and the ledger before running again.",
			},
		}
	case errors.Is(err, downhours.ErrUnexpectedBacklog):
		return failure{
			title:       "Too many unprocessed rows",
			explanation: err.Error(),
			suggestions: []string{
				"Check the sheet for rows that were handled by hand but never marked.",
				"Fill in the Action column for those rows and run again.",
			},
		}
	case errors.Is(err, downhours.ErrBelowThreshold):
		return failure{
			title:       "A row is below the notice threshold",
			explanation: err.Error(),
			suggestions: []string{"Correct the down hours on that row or remove it from the sheet."},
		}
	case errors.Is(err, downhours.ErrInvalidMemberEmail):
		return failure{
			title:       "A row has no usable member email",
			explanation: err.Error(),
			suggestions: []string{
				"Run 'ops-admin backfill-emails --people <csv>' to fill emails from the roster.",
				"Enter the email on the sheet by hand.",
			},
		}
	case errors.Is(err, downhours.ErrUnrecognizedPriorContractFlag):
		return failure{
			title:       "A row has an unreadable prior contract flag",
			explanation: err.Error(),
			suggestions: []string{"Set the existing contract column to Yes, No or leave it blank."},
		}
	case errors.Is(err, downhours.ErrIncompleteDecision):
		return failure{
			title:       "Refusing to send an incomplete notice",
			explanation: err.Error(),
			suggestions: []string{"Nothing was sent for this row. Fix the row on the sheet and run again."},
		}
	case errors.Is(err, ledger.ErrAlreadySent):
		return failure{
			title:       "Notice already sent",
			explanation: err.Error(),
			suggestions: []string{"Mark the Action column on the sheet to match the notice that went out."},
		}
	case errors.Is(err, notice.ErrUnrenderedPlaceholder):
		return failure{
			title:       "Email template has unfilled placeholders",
			explanation: err.Error(),
			suggestions: []string{"Fix the template in the instruction document and run again."},
		}
	case errors.Is(err, pipeline.ErrDeclined):
		return failure{
			title:       "Run stopped",
			explanation: err.Error(),
			suggestions: []string{"Rows processed before this one were sent and recorded."},
		}
	}
	return failure{title: err.Error()}
}

// report prints err for the operator and returns the error Cobra sees.
func report(err error) error {
	if err == nil {
		return nil
	}
	f := describe(err)
	return printer.Error(f.title, f.explanation, f.suggestions)
}
