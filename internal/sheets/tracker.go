package sheets

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/bsc-coop/ops-admin/internal/config"
	"github.com/bsc-coop/ops-admin/internal/downhours"
)

// TrackerEntry is one row of the 15-day notice spreadsheet.
type TrackerEntry struct {
	LastName  string
	FirstName string
	Email     string
	House     string
	Date      string // notice date, MM/DD/YYYY
	Deadline  string // notice date + 15 days
	Reason    string
	Action    string // "Potential" or "Pending"
}

// NewTrackerEntry builds the tracker row for a termination-tier decision.
func NewTrackerEntry(d downhours.NoticeDecision, date, deadline string) (TrackerEntry, error) {
	var short string
	switch d.Action {
	case downhours.ActionPotentialTermination:
		short = "Potential"
	case downhours.ActionPendingTermination:
		short = "Pending"
	default:
		return TrackerEntry{}, fmt.Errorf("action %q is not tracked on the 15-day notice sheet", d.Action)
	}
	return TrackerEntry{
		LastName:  d.LastName,
		FirstName: d.FirstName,
		Email:     d.MemberEmail,
		House:     d.HouseCode,
		Date:      date,
		Deadline:  deadline,
		Reason:    "Workshift",
		Action:    short,
	}, nil
}

// columns returns the tracker cells in sheet column order, B through I.
func (e TrackerEntry) columns() [][2]string {
	return [][2]string{
		{"B", e.LastName},
		{"C", e.FirstName},
		{"D", e.Email},
		{"E", e.House},
		{"F", e.Date},
		{"G", e.Deadline},
		{"H", e.Reason},
		{"I", e.Action},
	}
}

// Tracker appends entries to the 15-day notice spreadsheet. New entries go
// directly below the header so the sheet reads newest first.
type Tracker struct {
	svc *sheets.Service
	cfg config.TrackerConfig
}

// NewTracker creates a new 15-day notice tracker client
func NewTracker(ctx context.Context, cfg config.TrackerConfig, opts ...option.ClientOption) (*Tracker, error) {
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating sheets service: %w", err)
	}
	return &Tracker{svc: svc, cfg: cfg}, nil
}

// Append inserts an empty row at the configured position and fills it.
func (t *Tracker) Append(ctx context.Context, e TrackerEntry) error {
	start := int64(t.cfg.InsertRow - 1)
	insert := &sheets.Request{
		InsertDimension: &sheets.InsertDimensionRequest{
			Range: &sheets.DimensionRange{
				SheetId:         t.cfg.SheetID,
				Dimension:       "ROWS",
				StartIndex:      start,
				EndIndex:        start + 1,
				ForceSendFields: []string{"SheetId", "StartIndex"},
			},
			InheritFromBefore: false,
		},
	}
	_, err := t.svc.Spreadsheets.BatchUpdate(t.cfg.SpreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{insert},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("inserting tracker row: %w", err)
	}

	var data []*sheets.ValueRange
	for _, c := range e.columns() {
		if c[1] == "" {
			continue
		}
		data = append(data, &sheets.ValueRange{
			Range:  fmt.Sprintf("%s!%s%d", t.cfg.SheetName, c[0], t.cfg.InsertRow),
			Values: [][]interface{}{{c[1]}},
		})
	}
	if len(data) == 0 {
		return nil
	}
	_, err = t.svc.Spreadsheets.Values.BatchUpdate(t.cfg.SpreadsheetID, &sheets.BatchUpdateValuesRequest{
		// RAW keeps the dates as typed text, matching the sheet's existing rows.
		ValueInputOption: "RAW",
		Data:             data,
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("filling tracker row: %w", err)
	}
	return nil
}
