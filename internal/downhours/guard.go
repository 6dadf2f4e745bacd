package downhours

import (
	"fmt"
	"strings"
	"unicode"
)

// MaxUnprocessedRows is the smallest backlog that aborts a run. A normal
// fetch cycle only adds a handful of violations.
const MaxUnprocessedRows = 5

// AssertSafeToProcess fails when the unprocessed backlog is large enough to
// suggest an earlier run never wrote its actions back.
func AssertSafeToProcess(unprocessed []MemberRecord) error {
	if len(unprocessed) >= MaxUnprocessedRows {
		return fmt.Errorf("%w: %d rows have no action (limit %d)",
			ErrUnexpectedBacklog, len(unprocessed), MaxUnprocessedRows-1)
	}
	return nil
}

// AssertWriteBackComplete checks the staged sheet values for a row before
// anything irreversible happens. Every field must be present, well formed and
// equal to what the decision produced.
func AssertWriteBackComplete(decision NoticeDecision, written map[Field]string) error {
	if !decision.Action.Valid() {
		return fmt.Errorf("row %d: %w: action %q", decision.RowIndex, ErrIncompleteDecision, decision.Action)
	}

	want := decision.WriteBackFields()
	var problems []string
	for _, f := range WriteBackFields() {
		got, ok := written[f]
		switch {
		case !ok:
			problems = append(problems, fmt.Sprintf("%s missing", f))
		case strings.TrimSpace(got) == "":
			problems = append(problems, fmt.Sprintf("%s empty", f))
		case got != want[f]:
			problems = append(problems, fmt.Sprintf("%s is %q, decision has %q", f, got, want[f]))
		}
	}

	if code, ok := written[FieldHouse]; ok && code != "" && !validHouseCode(code) {
		problems = append(problems, fmt.Sprintf("house code %q is not %d upper-case letters", code, HouseCodeLength))
	}
	if flag, ok := written[FieldExistingContract]; ok && flag != "" {
		if _, err := ContractFlag(flag).Bool(); err != nil {
			problems = append(problems, err.Error())
		}
	}
	if a, ok := written[FieldAction]; ok && a != "" && !Action(a).Valid() {
		problems = append(problems, fmt.Sprintf("action %q is not a notice tier", a))
	}

	if len(problems) > 0 {
		return fmt.Errorf("row %d: %w: %s", decision.RowIndex, ErrIncompleteDecision, strings.Join(problems, "; "))
	}
	return nil
}

func validHouseCode(code string) bool {
	r := []rune(code)
	if len(r) != HouseCodeLength {
		return false
	}
	for _, c := range r {
		if !unicode.IsUpper(c) {
			return false
		}
	}
	return true
}
