package ses

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appconfig "github.com/bsc-coop/ops-admin/internal/config"
)

type fakeSES struct {
	inputs []*sesv2.SendEmailInput
	err    error
}

func (f *fakeSES) SendEmail(_ context.Context, in *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func testConfig() appconfig.SESConfig {
	return appconfig.SESConfig{FromEmail: "opsadmin@bsc.coop", FromName: "BSC Ops", TimeoutSeconds: 5}
}

func TestSend(t *testing.T) {
	fake := &fakeSES{}
	c := NewWithAPI(fake, testConfig())
	c.now = func() time.Time { return time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC) }

	id, err := c.Send(context.Background(), Message{
		To:      "jane@example.com",
		Cc:      "czh-manager@bsc.coop",
		Subject: "Down 10+ hours - Courtesy Notice",
		Body:    "Hi Jane,\nPlease make up your hours.",
		Attachments: []Attachment{
			{FileName: "cc_Jane_Doe.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.4 contract")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "msg-1", id)
	require.Len(t, fake.inputs, 1)

	in := fake.inputs[0]
	assert.Equal(t, `"BSC Ops" <opsadmin@bsc.coop>`, aws.ToString(in.FromEmailAddress))
	assert.Equal(t, []string{"jane@example.com"}, in.Destination.ToAddresses)
	assert.Equal(t, []string{"czh-manager@bsc.coop"}, in.Destination.CcAddresses)

	parsed, err := mail.ReadMessage(strings.NewReader(string(in.Content.Raw.Data)))
	require.NoError(t, err)
	assert.Equal(t, "Down 10+ hours - Courtesy Notice", parsed.Header.Get("Subject"))
	assert.Equal(t, "czh-manager@bsc.coop", parsed.Header.Get("Cc"))

	mediaType, params, err := mime.ParseMediaType(parsed.Header.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, "multipart/mixed", mediaType)

	mr := multipart.NewReader(parsed.Body, params["boundary"])
	body, err := mr.NextPart()
	require.NoError(t, err)
	text, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "Hi Jane,\r\nPlease make up your hours.", string(text))

	att, err := mr.NextPart()
	require.NoError(t, err)
	assert.Equal(t, "cc_Jane_Doe.pdf", att.FileName())
	assert.Equal(t, "base64", att.Header.Get("Content-Transfer-Encoding"))
	encoded, err := io.ReadAll(att)
	require.NoError(t, err)
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(encoded)))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 contract", string(data))

	_, err = mr.NextPart()
	assert.ErrorIs(t, err, io.EOF)
}

func TestSendNoCc(t *testing.T) {
	fake := &fakeSES{}
	c := NewWithAPI(fake, testConfig())
	_, err := c.Send(context.Background(), Message{To: "jane@example.com", Subject: "s", Body: "b"})
	require.NoError(t, err)
	assert.Nil(t, fake.inputs[0].Destination.CcAddresses)
}

func TestSendErrors(t *testing.T) {
	fake := &fakeSES{err: errors.New("throttled")}
	c := NewWithAPI(fake, testConfig())

	_, err := c.Send(context.Background(), Message{To: "jane@example.com", Subject: "s"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttled")
	assert.NotContains(t, err.Error(), "jane@example.com")

	_, err = c.Send(context.Background(), Message{Subject: "s"})
	assert.ErrorContains(t, err, "no recipient")
}

func TestSubjectEncoding(t *testing.T) {
	raw, err := BuildRawMessage("ops@bsc.coop", Message{To: "a@x.com", Subject: "Café notice"}, time.Now())
	require.NoError(t, err)
	parsed, err := mail.ReadMessage(strings.NewReader(string(raw)))
	require.NoError(t, err)

	dec := new(mime.WordDecoder)
	subject, err := dec.DecodeHeader(parsed.Header.Get("Subject"))
	require.NoError(t, err)
	assert.Equal(t, "Café notice", subject)
}

func TestWrapLines(t *testing.T) {
	assert.Equal(t, "abcd\r\nefgh\r\nij\r\n", string(wrapLines("abcdefghij", 4)))
}

func TestAttachFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pending_termination_Jane_Doe.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF"), 0o644))

	a, err := AttachFile(path)
	require.NoError(t, err)
	assert.Equal(t, "pending_termination_Jane_Doe.pdf", a.FileName)
	assert.Equal(t, "application/pdf", a.ContentType)

	_, err = AttachFile(filepath.Join(t.TempDir(), "missing.pdf"))
	assert.Error(t, err)
}

func TestBuildRawMessageRejectsBadAddresses(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		want string
	}{
		{"header injection in to", Message{To: "jane@example.com\r\nBcc: all@bsc.coop"}, "line break"},
		{"header injection in cc", Message{To: "jane@example.com", Cc: "czh@bsc.coop\nBcc: all@bsc.coop"}, "line break"},
		{"not an address", Message{To: "NOT FOUND"}, "To address"},
		{"cc list", Message{To: "jane@example.com", Cc: "a@x.com, b@x.com"}, "Cc address"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildRawMessage("ops@bsc.coop", tt.msg, time.Now())
			assert.ErrorContains(t, err, tt.want)
		})
	}

	raw, err := BuildRawMessage("ops@bsc.coop", Message{To: " jane@example.com ", Cc: "czh@bsc.coop"}, time.Now())
	require.NoError(t, err)
	parsed, err := mail.ReadMessage(strings.NewReader(string(raw)))
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", parsed.Header.Get("To"))
	assert.Equal(t, "czh@bsc.coop", parsed.Header.Get("Cc"))
}
