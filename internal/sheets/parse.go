package sheets

import (
	"database/sql"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/bsc-coop/ops-admin/internal/downhours"
	"github.com/bsc-coop/ops-admin/internal/pkg/logger"
)

// Header names of the down-hours sheet (the form response columns).
const (
	HeaderLastName         = "Member's Last Name"
	HeaderFirstName        = "Member's First Name"
	HeaderEmail            = "Member's Email"
	HeaderManagerEmail     = "Email Address"
	HeaderDownHours        = "Member's Down Hours"
	HeaderExistingContract = "Existing Conditional Contract?"
	HeaderAction           = "Action"
)

var requiredHeaders = []string{
	HeaderLastName, HeaderFirstName, HeaderEmail, HeaderManagerEmail, HeaderDownHours, HeaderAction,
}

// ParseRows converts a values.get response into member records. The first
// row is the header; data row i of values is sheet row i+1.
func ParseRows(values [][]interface{}) ([]downhours.MemberRecord, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("sheet is empty, expected a header row")
	}

	index := make(map[string]int, len(values[0]))
	for i, h := range values[0] {
		index[strings.TrimSpace(cell(h))] = i
	}
	for _, h := range requiredHeaders {
		if _, ok := index[h]; !ok {
			return nil, fmt.Errorf("sheet header is missing column %q", h)
		}
	}

	get := func(row []interface{}, header string) string {
		i, ok := index[header]
		if !ok || i >= len(row) {
			return ""
		}
		return cell(row[i])
	}

	records := make([]downhours.MemberRecord, 0, len(values)-1)
	for i, row := range values[1:] {
		rowIndex := i + 2
		if blankRow(row) {
			continue
		}

		downHours, err := ParseDownHours(get(row, HeaderDownHours))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", rowIndex, err)
		}
		flag, err := downhours.ParseContractFlag(get(row, HeaderExistingContract))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", rowIndex, err)
		}

		rawAction := strings.TrimSpace(get(row, HeaderAction))
		action, err := downhours.ParseAction(rawAction)
		if err != nil {
			// Free text in the column still marks the row as handled.
			logger.Debug("sheets: row has a free-text action", "row", rowIndex, "action", rawAction)
			action = downhours.Action(rawAction)
		}

		records = append(records, downhours.MemberRecord{
			RowIndex:         rowIndex,
			LastName:         strings.TrimSpace(get(row, HeaderLastName)),
			FirstName:        strings.TrimSpace(get(row, HeaderFirstName)),
			Email:            strings.TrimSpace(get(row, HeaderEmail)),
			ManagerEmail:     strings.TrimSpace(get(row, HeaderManagerEmail)),
			DownHours:        downHours,
			ExistingContract: flag,
			Action:           action,
		})
	}
	return records, nil
}

// ParseDownHours parses the down-hours cell. Blank is unset, not zero.
func ParseDownHours(s string) (sql.NullFloat64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return sql.NullFloat64{}, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return sql.NullFloat64{}, fmt.Errorf("down hours %q is not a number", s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return sql.NullFloat64{}, fmt.Errorf("down hours %q must be a finite non-negative number", s)
	}
	return sql.NullFloat64{Float64: v, Valid: true}, nil
}

func cell(v interface{}) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func blankRow(row []interface{}) bool {
	for _, v := range row {
		if strings.TrimSpace(cell(v)) != "" {
			return false
		}
	}
	return true
}
