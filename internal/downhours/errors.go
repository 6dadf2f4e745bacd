package downhours

import "errors"

// Every error below aborts the current run. Callers wrap them with row
// context; match with errors.Is.
var (
	// ErrInvalidMemberEmail means the member email has no "@" and cannot be
	// used as the history lookup key.
	ErrInvalidMemberEmail = errors.New("invalid member email")

	// ErrBelowThreshold means a row reached classification with fewer than
	// CourtesyThreshold down hours, or with down hours left blank.
	ErrBelowThreshold = errors.New("down hours below notice threshold")

	// ErrUnrecognizedPriorContractFlag means a contract flag was neither
	// "Yes" nor "No".
	ErrUnrecognizedPriorContractFlag = errors.New("unrecognized prior contract flag")

	// ErrUnexpectedBacklog means too many rows are waiting for an action,
	// which happens when a previous run failed to write results back.
	ErrUnexpectedBacklog = errors.New("unexpected backlog of unprocessed rows")

	// ErrIncompleteDecision means the staged write-back does not fully match
	// the decision it was derived from.
	ErrIncompleteDecision = errors.New("incomplete notice decision")

	// ErrAlreadyProcessed means a row that already carries an action was
	// offered for classification again.
	ErrAlreadyProcessed = errors.New("row already processed")
)
