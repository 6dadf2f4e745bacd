// Package downhours decides which notice a member receives for accumulated
// down hours and guards the down-hours sheet against double processing.
//
// Everything here is pure and synchronous. Sheet access, document filling and
// email delivery live in other packages and only consume NoticeDecision.
package downhours

import (
	"database/sql"
	"fmt"
	"strings"
)

// =============================================================================
// NOTICE TIERS
// =============================================================================

// Action is the notice tier recorded in the "Action" column. The string values
// are matched verbatim by the sheet, the email subjects and the templates.
type Action string

const (
	// ActionNone marks a row that has not been processed yet.
	ActionNone                 Action = ""
	ActionCourtesy             Action = "Courtesy Notice"
	ActionPotentialTermination Action = "Potential Termination Notice"
	ActionPendingTermination   Action = "Pending Termination Notice"
)

// Down-hour thresholds, inclusive lower bounds.
const (
	CourtesyThreshold    = 10.0
	TerminationThreshold = 15.0
)

// Valid reports whether a is one of the three notice tiers.
func (a Action) Valid() bool {
	switch a {
	case ActionCourtesy, ActionPotentialTermination, ActionPendingTermination:
		return true
	}
	return false
}

// IsTermination reports whether a starts or continues the 15-day termination process.
func (a Action) IsTermination() bool {
	return a == ActionPotentialTermination || a == ActionPendingTermination
}

// ParseAction maps sheet text onto an Action. Blank text is ActionNone.
func ParseAction(s string) (Action, error) {
	a := Action(strings.TrimSpace(s))
	if a == ActionNone || a.Valid() {
		return a, nil
	}
	return ActionNone, fmt.Errorf("unknown action %q", s)
}

// =============================================================================
// CONTRACT FLAG
// =============================================================================

// ContractFlag is the tri-state "Existing Conditional Contract?" column.
type ContractFlag string

const (
	ContractUnset ContractFlag = ""
	ContractYes   ContractFlag = "Yes"
	ContractNo    ContractFlag = "No"
)

// ParseContractFlag maps sheet text onto a ContractFlag.
func ParseContractFlag(s string) (ContractFlag, error) {
	switch f := ContractFlag(strings.TrimSpace(s)); f {
	case ContractUnset, ContractYes, ContractNo:
		return f, nil
	}
	return ContractUnset, fmt.Errorf("%w: %q", ErrUnrecognizedPriorContractFlag, s)
}

// FlagFor returns the sheet flag for a prior-contract boolean.
func FlagFor(hadPrior bool) ContractFlag {
	if hadPrior {
		return ContractYes
	}
	return ContractNo
}

// Bool converts a set flag back to a boolean.
func (f ContractFlag) Bool() (bool, error) {
	switch f {
	case ContractYes:
		return true, nil
	case ContractNo:
		return false, nil
	}
	return false, fmt.Errorf("%w: %q", ErrUnrecognizedPriorContractFlag, string(f))
}

// =============================================================================
// RECORDS
// =============================================================================

// MemberRecord is one row of the down-hours sheet.
type MemberRecord struct {
	RowIndex         int // 1-based, header is row 1
	LastName         string
	FirstName        string
	Email            string // may be blank or "NOT FOUND"
	ManagerEmail     string
	DownHours        sql.NullFloat64 // blank is Valid=false, distinct from zero
	ExistingContract ContractFlag
	Action           Action
}

// Processed reports whether the row already carries an action.
func (r MemberRecord) Processed() bool {
	return r.Action != ActionNone
}

// NoticeDecision is the result of classifying one row. It is never persisted
// by this package; the caller writes WriteBackFields to the sheet.
type NoticeDecision struct {
	RowIndex                    int
	Action                      Action
	HadPriorConditionalContract bool
	HouseCode                   string
	FirstName                   string
	LastName                    string
	MemberEmail                 string
	ManagerEmail                string
}

// FullName is "First Last" with the capitalized names.
func (d NoticeDecision) FullName() string {
	return strings.TrimSpace(d.FirstName + " " + d.LastName)
}

// Field names a write-back column of the down-hours sheet.
type Field string

const (
	FieldHouse            Field = "house"
	FieldLastName         Field = "last_name"
	FieldFirstName        Field = "first_name"
	FieldExistingContract Field = "existing_contract"
	FieldAction           Field = "action"
)

// WriteBackFields lists every field written for a row, in write order. The
// action goes last so a partially written row still reads as unprocessed.
func WriteBackFields() []Field {
	return []Field{FieldHouse, FieldLastName, FieldFirstName, FieldExistingContract, FieldAction}
}

// WriteBackFields returns the sheet values for d.
func (d NoticeDecision) WriteBackFields() map[Field]string {
	return map[Field]string{
		FieldHouse:            d.HouseCode,
		FieldLastName:         d.LastName,
		FieldFirstName:        d.FirstName,
		FieldExistingContract: string(FlagFor(d.HadPriorConditionalContract)),
		FieldAction:           string(d.Action),
	}
}

// Applied returns r as it reads after d has been written back.
func (d NoticeDecision) Applied(r MemberRecord) MemberRecord {
	r.LastName = d.LastName
	r.FirstName = d.FirstName
	r.ExistingContract = FlagFor(d.HadPriorConditionalContract)
	r.Action = d.Action
	return r
}
