// Package gdocs fills notice templates held in Google Docs, exports them as
// PDFs, uploads sent notices to Drive and reads the email templates from the
// instruction document.
package gdocs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"google.golang.org/api/docs/v1"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/bsc-coop/ops-admin/internal/pkg/logger"
)

const pdfMimeType = "application/pdf"

// Client wraps the Docs and Drive services.
type Client struct {
	docs  *docs.Service
	drive *drive.Service
}

// NewClient creates a new Docs/Drive client
func NewClient(ctx context.Context, opts ...option.ClientOption) (*Client, error) {
	docsSvc, err := docs.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating docs service: %w", err)
	}
	driveSvc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating drive service: %w", err)
	}
	return &Client{docs: docsSvc, drive: driveSvc}, nil
}

// FillPDF copies the template document, replaces every placeholder with its
// value, exports the copy as a PDF to outPath and deletes the copy. The
// template itself is never modified.
func (c *Client) FillPDF(ctx context.Context, templateID string, data map[string]string, outPath string) error {
	copied, err := c.drive.Files.Copy(templateID, &drive.File{Name: "tmp"}).Fields("id").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("copying template %s: %w", templateID, err)
	}
	defer func() {
		// Deletion failure only leaves a stray "tmp" doc behind.
		if err := c.drive.Files.Delete(copied.Id).Context(context.WithoutCancel(ctx)).Do(); err != nil {
			logger.Warn("gdocs: failed to delete template copy", "file_id", copied.Id, "error", err)
		}
	}()

	if _, err := c.docs.Documents.BatchUpdate(copied.Id, &docs.BatchUpdateDocumentRequest{
		Requests: ReplaceRequests(data),
	}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("filling template copy %s: %w", copied.Id, err)
	}

	resp, err := c.drive.Files.Export(copied.Id, pdfMimeType).Context(ctx).Download()
	if err != nil {
		return fmt.Errorf("exporting %s as pdf: %w", copied.Id, err)
	}
	defer resp.Body.Close()

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", outPath, err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", outPath, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", outPath, err)
	}

	logger.Info("gdocs: filled template", "template_id", templateID, "path", outPath)
	return nil
}

// ReplaceRequests builds one case-sensitive replaceAllText request per
// placeholder, in key order.
func ReplaceRequests(data map[string]string) []*docs.Request {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	requests := make([]*docs.Request, 0, len(keys))
	for _, k := range keys {
		requests = append(requests, &docs.Request{
			ReplaceAllText: &docs.ReplaceAllTextRequest{
				ContainsText: &docs.SubstringMatchCriteria{Text: k, MatchCase: true},
				ReplaceText:  data[k],
				// An empty replacement must still be sent to clear the placeholder.
				ForceSendFields: []string{"ReplaceText"},
			},
		})
	}
	return requests
}

// Upload stores a local file in the Drive folder and returns its file id.
func (c *Client) Upload(ctx context.Context, path, folderID string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	meta := &drive.File{Name: filepath.Base(path)}
	if folderID != "" {
		meta.Parents = []string{folderID}
	}
	created, err := c.drive.Files.Create(meta).Media(f).Fields("id").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("uploading %s: %w", path, err)
	}
	return created.Id, nil
}

// EmailTemplates reads the instruction document and returns the email
// bodies keyed by subject line.
func (c *Client) EmailTemplates(ctx context.Context, documentID string) (map[string]string, error) {
	doc, err := c.docs.Documents.Get(documentID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("reading instruction doc %s: %w", documentID, err)
	}
	return ExtractEmailTemplates(doc)
}
