package downhours

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// HouseCodeLength is the number of letters in a house code.
const HouseCodeLength = 3

// Classify decides the notice for an unprocessed row. Only rows of history
// positioned before row are consulted. Classify never mutates its inputs, so
// calling it again with the same arguments yields the same decision.
func Classify(row MemberRecord, history HistorySet) (NoticeDecision, error) {
	if row.Processed() {
		return NoticeDecision{}, fmt.Errorf("row %d: %w (action %q)", row.RowIndex, ErrAlreadyProcessed, row.Action)
	}

	email := strings.TrimSpace(row.Email)
	if !strings.Contains(email, "@") {
		return NoticeDecision{}, fmt.Errorf("row %d: %w: %q", row.RowIndex, ErrInvalidMemberEmail, row.Email)
	}

	hadPrior := HadPriorConditionalContract(email, history.Before(row.RowIndex))

	action, err := ActionFor(row.DownHours.Float64, row.DownHours.Valid, FlagFor(hadPrior))
	if err != nil {
		return NoticeDecision{}, fmt.Errorf("row %d: %w", row.RowIndex, err)
	}

	return NoticeDecision{
		RowIndex:                    row.RowIndex,
		Action:                      action,
		HadPriorConditionalContract: hadPrior,
		HouseCode:                   HouseCode(row.ManagerEmail),
		FirstName:                   Capitalize(row.FirstName),
		LastName:                    Capitalize(row.LastName),
		MemberEmail:                 email,
		ManagerEmail:                strings.TrimSpace(row.ManagerEmail),
	}, nil
}

// HadPriorConditionalContract reports whether any history row for email was
// escalated to a potential termination notice, which is when the member
// signed a conditional contract.
//
// An older rule counted two or more prior rows with 15+ down hours instead.
// It is not used: it counts rows that were never escalated.
func HadPriorConditionalContract(email string, history HistorySet) bool {
	email = strings.TrimSpace(email)
	for _, r := range history.rows {
		if strings.TrimSpace(r.Email) == email && r.Action == ActionPotentialTermination {
			return true
		}
	}
	return false
}

// ActionFor maps down hours and the prior contract flag onto a notice tier.
func ActionFor(downHours float64, set bool, prior ContractFlag) (Action, error) {
	if !set {
		return ActionNone, fmt.Errorf("%w: down hours are blank", ErrBelowThreshold)
	}
	switch {
	case downHours >= TerminationThreshold:
		hadPrior, err := prior.Bool()
		if err != nil {
			return ActionNone, err
		}
		if hadPrior {
			return ActionPendingTermination, nil
		}
		return ActionPotentialTermination, nil
	case downHours >= CourtesyThreshold:
		return ActionCourtesy, nil
	}
	return ActionNone, fmt.Errorf("%w: %v < %v", ErrBelowThreshold, downHours, CourtesyThreshold)
}

// HouseCode is the upper-cased first three characters of the local part of
// a workshift manager address, e.g. "ioh-manager@bsc.coop" gives "IOH".
func HouseCode(managerEmail string) string {
	local, _, _ := strings.Cut(strings.TrimSpace(managerEmail), "@")
	r := []rune(local)
	if len(r) > HouseCodeLength {
		r = r[:HouseCodeLength]
	}
	return strings.TrimSpace(strings.ToUpper(string(r)))
}

// Capitalize title-cases a member name: "mary-jane SMITH" gives "Mary-Jane Smith".
// Every letter that follows a non-letter starts a word, so "o'brien" gives
// "O'Brien".
func Capitalize(name string) string {
	r := []rune(cases.Title(language.Und).String(strings.TrimSpace(name)))
	for i := 1; i < len(r); i++ {
		if unicode.IsLetter(r[i]) && !unicode.IsLetter(r[i-1]) {
			r[i] = unicode.ToUpper(r[i])
		}
	}
	return string(r)
}
