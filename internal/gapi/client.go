// Package gapi builds the authenticated HTTP client shared by the Sheets,
// Docs and Drive services. Credentials come from a service account or
// authorized-user JSON file; tokens are never written back to disk.
package gapi

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/docs/v1"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/bsc-coop/ops-admin/internal/config"
	"github.com/bsc-coop/ops-admin/internal/pkg/httpretry"
)

// Scopes requested for every Google service used by ops-admin.
var Scopes = []string{
	sheets.SpreadsheetsScope,
	drive.DriveScope,
	docs.DocumentsScope,
}

// NewHTTPClient loads credentials from cfg.CredentialsFile and returns a
// client that authenticates every request and retries transient failures.
func NewHTTPClient(ctx context.Context, cfg config.GoogleConfig) (*http.Client, error) {
	if cfg.CredentialsFile == "" {
		return nil, fmt.Errorf("google.credentials_file is not set")
	}
	data, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("reading google credentials: %w", err)
	}
	creds, err := google.CredentialsFromJSON(ctx, data, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("parsing google credentials: %w", err)
	}
	return WithTokenSource(creds.TokenSource, cfg), nil
}

// WithTokenSource wraps ts in the retrying transport.
func WithTokenSource(ts oauth2.TokenSource, cfg config.GoogleConfig) *http.Client {
	authed := &oauth2.Transport{Source: oauth2.ReuseTokenSource(nil, ts), Base: http.DefaultTransport}
	return httpretry.NewClient(authed, cfg.MaxRetries, cfg.Timeout())
}

// Options returns the client options for building Google API services.
func Options(client *http.Client) []option.ClientOption {
	return []option.ClientOption{option.WithHTTPClient(client)}
}
