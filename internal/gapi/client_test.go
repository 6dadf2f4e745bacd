package gapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/bsc-coop/ops-admin/internal/config"
)

func TestWithTokenSource_AuthorizesRequests(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "tok-123", TokenType: "Bearer"})
	client := WithTokenSource(ts, config.GoogleConfig{TimeoutSeconds: 5, MaxRetries: 1})

	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "Bearer tok-123", got)
	assert.Len(t, Options(client), 1)
}

func TestNewHTTPClient_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := NewHTTPClient(ctx, config.GoogleConfig{})
	assert.ErrorContains(t, err, "credentials_file")

	_, err = NewHTTPClient(ctx, config.GoogleConfig{CredentialsFile: filepath.Join(t.TempDir(), "missing.json")})
	assert.ErrorContains(t, err, "reading google credentials")

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("not json"), 0600))
	_, err = NewHTTPClient(ctx, config.GoogleConfig{CredentialsFile: bad})
	assert.ErrorContains(t, err, "parsing google credentials")
}
