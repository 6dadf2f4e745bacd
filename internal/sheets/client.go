// Package sheets reads the down-hours sheet and writes notice results back
// to it and to the 15-day notice tracker.
package sheets

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/bsc-coop/ops-admin/internal/config"
	"github.com/bsc-coop/ops-admin/internal/downhours"
)

const valueInputUserEntered = "USER_ENTERED"

// Client is the down-hours sheet row source and write-back sink.
type Client struct {
	svc *sheets.Service
	cfg config.SheetConfig
}

// NewClient creates a new down-hours sheet client
func NewClient(ctx context.Context, cfg config.SheetConfig, opts ...option.ClientOption) (*Client, error) {
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating sheets service: %w", err)
	}
	return &Client{svc: svc, cfg: cfg}, nil
}

// FetchRows reads every row of the sheet in order. With unprocessedOnly the
// rows that already carry an action are dropped.
func (c *Client) FetchRows(ctx context.Context, unprocessedOnly bool) ([]downhours.MemberRecord, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(c.cfg.SpreadsheetID, c.cfg.Range).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", c.cfg.Range, err)
	}
	rows, err := ParseRows(resp.Values)
	if err != nil {
		return nil, err
	}
	if unprocessedOnly {
		return downhours.Unprocessed(rows), nil
	}
	return rows, nil
}

// WriteFields writes all fields of one row in a single batch update, so a
// row is either fully written or not at all.
func (c *Client) WriteFields(ctx context.Context, rowIndex int, fields map[downhours.Field]string) error {
	data := make([]*sheets.ValueRange, 0, len(fields))
	for _, f := range downhours.WriteBackFields() {
		v, ok := fields[f]
		if !ok {
			continue
		}
		rng, err := c.cellRange(f, rowIndex)
		if err != nil {
			return err
		}
		data = append(data, &sheets.ValueRange{
			Range:          rng,
			MajorDimension: "COLUMNS",
			Values:         [][]interface{}{{v}},
		})
	}
	if len(data) == 0 {
		return nil
	}

	_, err := c.svc.Spreadsheets.Values.BatchUpdate(c.cfg.SpreadsheetID, &sheets.BatchUpdateValuesRequest{
		ValueInputOption: valueInputUserEntered,
		Data:             data,
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("writing row %d: %w", rowIndex, err)
	}
	return nil
}

// WriteField updates one cell of a row.
func (c *Client) WriteField(ctx context.Context, rowIndex int, field downhours.Field, value string) error {
	rng, err := c.cellRange(field, rowIndex)
	if err != nil {
		return err
	}
	return c.update(ctx, rng, value)
}

// WriteEmail fills the member email cell of a row.
func (c *Client) WriteEmail(ctx context.Context, rowIndex int, email string) error {
	return c.update(ctx, fmt.Sprintf("%s!%s%d", c.cfg.SheetName, c.cfg.Columns.Email, rowIndex), email)
}

func (c *Client) update(ctx context.Context, rng, value string) error {
	_, err := c.svc.Spreadsheets.Values.Update(c.cfg.SpreadsheetID, rng, &sheets.ValueRange{
		MajorDimension: "COLUMNS",
		Values:         [][]interface{}{{value}},
	}).ValueInputOption(valueInputUserEntered).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("updating %s: %w", rng, err)
	}
	return nil
}

func (c *Client) cellRange(f downhours.Field, rowIndex int) (string, error) {
	if rowIndex < 2 {
		return "", fmt.Errorf("row %d is not a data row", rowIndex)
	}
	col := c.column(f)
	if col == "" {
		return "", fmt.Errorf("no column configured for field %q", f)
	}
	return fmt.Sprintf("%s!%s%d", c.cfg.SheetName, col, rowIndex), nil
}

func (c *Client) column(f downhours.Field) string {
	cols := c.cfg.Columns
	switch f {
	case downhours.FieldHouse:
		return cols.House
	case downhours.FieldLastName:
		return cols.LastName
	case downhours.FieldFirstName:
		return cols.FirstName
	case downhours.FieldExistingContract:
		return cols.ExistingContract
	case downhours.FieldAction:
		return cols.Action
	}
	return ""
}
