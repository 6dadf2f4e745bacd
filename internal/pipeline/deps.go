package pipeline

import (
	"context"
	"errors"

	"github.com/bsc-coop/ops-admin/internal/downhours"
	"github.com/bsc-coop/ops-admin/internal/ses"
	"github.com/bsc-coop/ops-admin/internal/sheets"
)

// ErrDeclined is returned when the operator refuses to send a notice.
var ErrDeclined = errors.New("operator declined to send the notice")

// Sheet is the down-hours spreadsheet.
type Sheet interface {
	FetchRows(ctx context.Context, unprocessedOnly bool) ([]downhours.MemberRecord, error)
	WriteFields(ctx context.Context, rowIndex int, fields map[downhours.Field]string) error
}

// Tracker is the 15-day notice spreadsheet.
type Tracker interface {
	Append(ctx context.Context, e sheets.TrackerEntry) error
}

// Documents fills notice templates and reads the email templates.
type Documents interface {
	FillPDF(ctx context.Context, templateID string, data map[string]string, outPath string) error
	EmailTemplates(ctx context.Context, documentID string) (map[string]string, error)
}

// Uploader stores a sent notice in Drive.
type Uploader interface {
	Upload(ctx context.Context, path, folderID string) (string, error)
}

// Archiver copies a sent notice to long-term storage.
type Archiver interface {
	Put(ctx context.Context, semester string, rowIndex int, localPath string) (string, error)
}

// Mailer delivers the notice email.
type Mailer interface {
	Send(ctx context.Context, msg ses.Message) (string, error)
}

// Preview is what the operator sees before an email goes out.
type Preview struct {
	Decision    downhours.NoticeDecision
	Message     ses.Message
	Attachments []string // local paths of the filled PDFs
}

// Prompter asks the operator the questions a run cannot answer itself.
type Prompter interface {
	// ReinstatementEligibility asks whether the member may be reinstated
	// and, if not, why they were terminated before.
	ReinstatementEligibility(d downhours.NoticeDecision) (eligible bool, priorReason string, err error)
	// ConfirmSend returns ErrDeclined when the operator says no.
	ConfirmSend(p Preview) error
}
