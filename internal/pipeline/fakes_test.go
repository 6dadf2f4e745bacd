package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/bsc-coop/ops-admin/internal/downhours"
	"github.com/bsc-coop/ops-admin/internal/ses"
	"github.com/bsc-coop/ops-admin/internal/sheets"
)

type fakeSheet struct {
	mu       sync.Mutex
	rows     []downhours.MemberRecord
	writes   map[int]map[downhours.Field]string
	writeErr error
}

func (f *fakeSheet) FetchRows(_ context.Context, unprocessedOnly bool) ([]downhours.MemberRecord, error) {
	if unprocessedOnly {
		return downhours.Unprocessed(f.rows), nil
	}
	return append([]downhours.MemberRecord(nil), f.rows...), nil
}

func (f *fakeSheet) WriteFields(_ context.Context, rowIndex int, fields map[downhours.Field]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	if f.writes == nil {
		f.writes = make(map[int]map[downhours.Field]string)
	}
	f.writes[rowIndex] = fields
	return nil
}

type fakeTracker struct{ entries []sheets.TrackerEntry }

func (f *fakeTracker) Append(_ context.Context, e sheets.TrackerEntry) error {
	f.entries = append(f.entries, e)
	return nil
}

type fillCall struct {
	templateID string
	outPath    string
	data       map[string]string
}

type fakeDocuments struct {
	templates map[string]string
	fills     []fillCall
}

func (f *fakeDocuments) FillPDF(_ context.Context, templateID string, data map[string]string, outPath string) error {
	f.fills = append(f.fills, fillCall{templateID: templateID, outPath: outPath, data: data})
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(outPath, []byte("%PDF "+templateID), 0o644)
}

func (f *fakeDocuments) EmailTemplates(context.Context, string) (map[string]string, error) {
	if f.templates == nil {
		return nil, errors.New("instruction doc unavailable")
	}
	return f.templates, nil
}

type fakeUploader struct{ paths []string }

func (f *fakeUploader) Upload(_ context.Context, path, _ string) (string, error) {
	f.paths = append(f.paths, filepath.Base(path))
	return "drive-id", nil
}

type fakeArchive struct{ keys []string }

func (f *fakeArchive) Put(_ context.Context, semester string, rowIndex int, localPath string) (string, error) {
	key := semester + "/" + filepath.Base(localPath)
	f.keys = append(f.keys, key)
	return key, nil
}

type fakeMailer struct {
	sent []ses.Message
	err  error
}

func (f *fakeMailer) Send(_ context.Context, msg ses.Message) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, msg)
	return "msg-" + msg.To, nil
}

type fakePrompter struct {
	eligible    bool
	priorReason string
	decline     bool
	asked       []int
	previews    []Preview
}

func (f *fakePrompter) ReinstatementEligibility(d downhours.NoticeDecision) (bool, string, error) {
	f.asked = append(f.asked, d.RowIndex)
	return f.eligible, f.priorReason, nil
}

func (f *fakePrompter) ConfirmSend(p Preview) error {
	f.previews = append(f.previews, p)
	if f.decline {
		return ErrDeclined
	}
	return nil
}
