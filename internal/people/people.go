// Package people looks up member emails in the co-op's person list export
// and fills in rows of the down-hours sheet that were submitted without one.
package people

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bsc-coop/ops-admin/internal/downhours"
	"github.com/bsc-coop/ops-admin/internal/pkg/logger"
)

// NotFoundEmail is written when a member is missing from the person list.
// It never parses as an email, so the row fails classification until an
// operator fixes it.
const NotFoundEmail = "NOT FOUND"

// Person list export columns.
const (
	ColFirstName = "First Name"
	ColLastName  = "Last Name"
	ColEmail     = "Permanent Email"
)

// Directory maps member names to emails.
type Directory struct {
	emails map[string]string
}

func nameKey(first, last string) string {
	return strings.ToLower(strings.TrimSpace(first)) + "\x00" + strings.ToLower(strings.TrimSpace(last))
}

// Load reads a person list CSV export.
func Load(path string) (*Directory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening person list: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads a person list CSV with a header row. The first entry wins
// when a name appears twice.
func Parse(r io.Reader) (*Directory, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading person list header: %w", err)
	}

	idx := map[string]int{}
	for i, h := range header {
		idx[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, col := range []string{ColFirstName, ColLastName, ColEmail} {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("person list is missing column %q", col)
		}
	}

	d := &Directory{emails: make(map[string]string)}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading person list: %w", err)
		}
		get := func(col string) string {
			if i := idx[col]; i < len(rec) {
				return strings.TrimSpace(rec[i])
			}
			return ""
		}
		email := get(ColEmail)
		if email == "" {
			continue
		}
		key := nameKey(get(ColFirstName), get(ColLastName))
		if _, dup := d.emails[key]; !dup {
			d.emails[key] = email
		}
	}
	return d, nil
}

// Len is the number of people with an email.
func (d *Directory) Len() int { return len(d.emails) }

// Lookup finds the email for a member, ignoring case and surrounding space.
func (d *Directory) Lookup(first, last string) (string, bool) {
	email, ok := d.emails[nameKey(first, last)]
	return email, ok
}

// Sheet is the part of the down-hours sheet the backfill touches.
type Sheet interface {
	FetchRows(ctx context.Context, unprocessedOnly bool) ([]downhours.MemberRecord, error)
	WriteEmail(ctx context.Context, rowIndex int, email string) error
}

// BackfillResult counts what Backfill wrote.
type BackfillResult struct {
	Filled   []int
	NotFound []int
}

// Backfill writes an email into every unprocessed row that has none, or
// NotFoundEmail when the member is not in the directory.
func Backfill(ctx context.Context, sheet Sheet, dir *Directory) (BackfillResult, error) {
	var res BackfillResult
	rows, err := sheet.FetchRows(ctx, true)
	if err != nil {
		return res, fmt.Errorf("reading down-hours sheet: %w", err)
	}
	for _, r := range rows {
		if strings.TrimSpace(r.Email) != "" {
			continue
		}
		email, ok := dir.Lookup(r.FirstName, r.LastName)
		if !ok {
			email = NotFoundEmail
			logger.Warn("people: member not in person list", "row", r.RowIndex, "first_name", r.FirstName, "last_name", r.LastName)
		}
		if err := sheet.WriteEmail(ctx, r.RowIndex, email); err != nil {
			return res, fmt.Errorf("row %d: %w", r.RowIndex, err)
		}
		if ok {
			res.Filled = append(res.Filled, r.RowIndex)
		} else {
			res.NotFound = append(res.NotFound, r.RowIndex)
		}
	}
	return res, nil
}
