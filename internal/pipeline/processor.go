// Package pipeline runs one pass over the down-hours sheet: classify every
// unprocessed row, fill and send its notice, and write the decision back.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/bsc-coop/ops-admin/internal/downhours"
	"github.com/bsc-coop/ops-admin/internal/ledger"
	"github.com/bsc-coop/ops-admin/internal/notice"
	"github.com/bsc-coop/ops-admin/internal/pkg/logger"
	"github.com/bsc-coop/ops-admin/internal/ses"
	"github.com/bsc-coop/ops-admin/internal/sheets"
)

// Options are the per-run settings.
type Options struct {
	RunID            string
	SpreadsheetID    string
	InstructionDocID string
	PDFFolderID      string // Drive folder for sent notices; empty skips the upload
	OutputDir        string
	OpsSupervisor    string
	SafeMode         bool
	// DocumentFor maps a notice document key to its template document id.
	DocumentFor func(key string) (string, bool)
}

// Deps are the collaborators of a run. Uploader and Archive may be nil.
type Deps struct {
	Sheet     Sheet
	Tracker   Tracker
	Documents Documents
	Uploader  Uploader
	Archive   Archiver
	Mailer    Mailer
	Ledger    ledger.Ledger
	Prompter  Prompter
	Templates *notice.TemplateService
}

// Processor runs passes over the down-hours sheet.
type Processor struct {
	Deps
	opts Options
	log  *logger.Logger
	now  func() time.Time
}

// New creates a processor.
func New(opts Options, deps Deps) *Processor {
	if deps.Templates == nil {
		deps.Templates = notice.NewTemplateService()
	}
	if deps.Ledger == nil {
		deps.Ledger = ledger.Nop{}
	}
	if opts.DocumentFor == nil {
		opts.DocumentFor = func(string) (string, bool) { return "", false }
	}
	return &Processor{
		Deps: deps,
		opts: opts,
		log:  logger.Default().With("run_id", opts.RunID),
		now:  time.Now,
	}
}

// Result describes one processed row.
type Result struct {
	Decision    downhours.NoticeDecision
	MessageID   string
	Attachments []string
}

// Summary is the outcome of a run.
type Summary struct {
	Processed []Result
	// Unsent lists rows staged by an earlier run whose email never went out.
	// They are reported, never resent.
	Unsent []ledger.Entry
}

// Plan classifies the unprocessed rows without touching anything. Rows are
// classified in order, each one seeing the decisions made before it.
func (p *Processor) Plan(ctx context.Context) ([]downhours.NoticeDecision, error) {
	history, pending, err := p.load(ctx)
	if err != nil {
		return nil, err
	}
	decisions := make([]downhours.NoticeDecision, 0, len(pending))
	for _, row := range pending {
		d, err := downhours.Classify(row, history)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row.RowIndex, err)
		}
		decisions = append(decisions, d)
		history = history.With(d.Applied(row))
	}
	return decisions, nil
}

// Run processes every unprocessed row. The first error aborts the batch;
// rows finished before it stay finished.
func (p *Processor) Run(ctx context.Context) (*Summary, error) {
	history, pending, err := p.load(ctx)
	if err != nil {
		return nil, err
	}

	summary := &Summary{}
	summary.Unsent, err = p.Ledger.Unsent(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading ledger: %w", err)
	}
	for _, e := range summary.Unsent {
		p.log.Warn("pipeline: notice staged by an earlier run was never sent",
			"row", e.RowIndex, "member_email", e.MemberEmail, "action", e.Action, "staged_run", e.RunID)
	}

	p.log.Info("pipeline: starting run", "rows", len(pending))
	if len(pending) == 0 {
		return summary, nil
	}

	templates, err := p.Documents.EmailTemplates(ctx, p.opts.InstructionDocID)
	if err != nil {
		return summary, fmt.Errorf("loading email templates: %w", err)
	}

	for _, row := range pending {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		res, err := p.processRow(ctx, row, history, templates)
		if err != nil {
			p.log.Error("pipeline: aborting run", "row", row.RowIndex, "error", err)
			return summary, fmt.Errorf("row %d: %w", row.RowIndex, err)
		}
		summary.Processed = append(summary.Processed, res)
		history = history.With(res.Decision.Applied(row))
	}

	p.log.Info("pipeline: run complete", "processed", len(summary.Processed))
	return summary, nil
}

// load reads the whole sheet and checks the backlog.
func (p *Processor) load(ctx context.Context) (downhours.HistorySet, []downhours.MemberRecord, error) {
	rows, err := p.Sheet.FetchRows(ctx, false)
	if err != nil {
		return downhours.HistorySet{}, nil, fmt.Errorf("reading down-hours sheet: %w", err)
	}
	history := downhours.NewHistorySet(rows)
	pending := downhours.Unprocessed(history.Rows())
	if err := downhours.AssertSafeToProcess(pending); err != nil {
		return downhours.HistorySet{}, nil, err
	}
	return history, pending, nil
}

func (p *Processor) processRow(ctx context.Context, row downhours.MemberRecord, history downhours.HistorySet, templates map[string]string) (Result, error) {
	d, err := downhours.Classify(row, history)
	if err != nil {
		return Result{}, err
	}
	log := p.log.With("row", d.RowIndex, "action", d.Action)
	log.Info("pipeline: classified row", "member_email", d.MemberEmail, "prior_contract", d.HadPriorConditionalContract)

	// Nothing is filled, staged or written for a decision the sheet would reject.
	fields := d.WriteBackFields()
	if err := downhours.AssertWriteBackComplete(d, fields); err != nil {
		return Result{}, err
	}

	key := ledger.Key(p.opts.SpreadsheetID, d.RowIndex)
	if e, err := p.Ledger.Get(ctx, key); err == nil && e.Status == ledger.StatusSent {
		return Result{}, fmt.Errorf("%w on %s (run %s)", ledger.ErrAlreadySent, e.SentAt.Format(time.RFC3339), e.RunID)
	} else if err != nil && !errors.Is(err, ledger.ErrNotFound) {
		return Result{}, fmt.Errorf("reading ledger: %w", err)
	}

	eligible, priorReason := true, ""
	if d.Action.IsTermination() {
		eligible, priorReason, err = p.Prompter.ReinstatementEligibility(d)
		if err != nil {
			return Result{}, fmt.Errorf("reinstatement eligibility: %w", err)
		}
	}

	now := p.now()
	data := notice.FormData(d, notice.FormInput{Now: now, OpsSupervisor: p.opts.OpsSupervisor, PriorTerminationReason: priorReason})

	paths, err := p.fillAttachments(ctx, d, eligible, data)
	if err != nil {
		return Result{}, err
	}
	msg, err := p.buildMessage(d, data, templates, paths)
	if err != nil {
		return Result{}, err
	}

	if p.opts.SafeMode {
		if err := p.Prompter.ConfirmSend(Preview{Decision: d, Message: msg, Attachments: paths}); err != nil {
			return Result{}, err
		}
	}

	if err := p.Ledger.Stage(ctx, ledger.NewEntry(p.opts.SpreadsheetID, p.opts.RunID, d, now)); err != nil {
		return Result{}, fmt.Errorf("staging ledger entry: %w", err)
	}

	if err := p.Sheet.WriteFields(ctx, d.RowIndex, fields); err != nil {
		return Result{}, fmt.Errorf("writing back decision: %w", err)
	}
	log.Info("pipeline: wrote decision to sheet")

	if d.Action.IsTermination() {
		entry, err := sheets.NewTrackerEntry(d, now.Format(notice.DateLayout), notice.Deadline(now).Format(notice.DateLayout))
		if err != nil {
			return Result{}, err
		}
		if err := p.Tracker.Append(ctx, entry); err != nil {
			return Result{}, fmt.Errorf("updating 15-day notice sheet: %w", err)
		}
		log.Info("pipeline: added 15-day notice entry")
	}

	if err := p.storeCopies(ctx, d, data[notice.KeySemesterYear], paths); err != nil {
		return Result{}, err
	}

	messageID, err := p.Mailer.Send(ctx, msg)
	if err != nil {
		return Result{}, fmt.Errorf("sending email: %w", err)
	}
	if err := p.Ledger.MarkSent(ctx, key, messageID, p.now()); err != nil {
		// The email is out; a stale staged entry only shows up as unsent.
		log.Error("pipeline: failed to mark notice sent", "error", err)
	}
	log.Info("pipeline: notice sent", "message_id", messageID, "member_email", d.MemberEmail)

	return Result{Decision: d, MessageID: messageID, Attachments: paths}, nil
}

func (p *Processor) fillAttachments(ctx context.Context, d downhours.NoticeDecision, eligible bool, data map[string]string) ([]string, error) {
	attachments, err := notice.Attachments(d, eligible)
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(attachments))
	for _, a := range attachments {
		templateID, ok := p.opts.DocumentFor(a.DocumentKey)
		if !ok {
			return nil, fmt.Errorf("no template document configured for %s", a.DocumentKey)
		}
		out := filepath.Join(p.opts.OutputDir, a.FileName)
		if err := p.Documents.FillPDF(ctx, templateID, data, out); err != nil {
			return nil, fmt.Errorf("filling %s: %w", a.DocumentKey, err)
		}
		paths = append(paths, out)
	}
	return paths, nil
}

func (p *Processor) buildMessage(d downhours.NoticeDecision, data map[string]string, templates map[string]string, paths []string) (ses.Message, error) {
	subject, err := notice.Subject(d.Action)
	if err != nil {
		return ses.Message{}, err
	}
	tpl, ok := templates[subject]
	if !ok {
		return ses.Message{}, fmt.Errorf("instruction doc has no template with subject %q", subject)
	}
	body, err := p.Templates.RenderBody(subject, tpl, data)
	if err != nil {
		return ses.Message{}, err
	}

	msg := ses.Message{To: d.MemberEmail, Cc: d.ManagerEmail, Subject: subject, Body: body}
	for _, path := range paths {
		a, err := ses.AttachFile(path)
		if err != nil {
			return ses.Message{}, err
		}
		msg.Attachments = append(msg.Attachments, a)
	}
	return msg, nil
}

// storeCopies uploads the filled notices to Drive and archives them.
func (p *Processor) storeCopies(ctx context.Context, d downhours.NoticeDecision, semester string, paths []string) error {
	for _, path := range paths {
		if p.Uploader != nil && p.opts.PDFFolderID != "" {
			if _, err := p.Uploader.Upload(ctx, path, p.opts.PDFFolderID); err != nil {
				return fmt.Errorf("uploading %s to drive: %w", filepath.Base(path), err)
			}
		}
		if p.Archive != nil {
			if _, err := p.Archive.Put(ctx, semester, d.RowIndex, path); err != nil {
				return fmt.Errorf("archiving %s: %w", filepath.Base(path), err)
			}
		}
	}
	return nil
}
