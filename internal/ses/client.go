// Package ses sends notice emails with PDF attachments through Amazon SES.
package ses

import (
	"context"
	"fmt"
	"net/mail"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	appconfig "github.com/bsc-coop/ops-admin/internal/config"
	"github.com/bsc-coop/ops-admin/internal/pkg/awsconf"
	"github.com/bsc-coop/ops-admin/internal/pkg/logger"
)

// API is the part of the SES v2 client the mailer uses.
type API interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// Client sends raw MIME messages through SES.
type Client struct {
	api     API
	from    string
	timeout time.Duration
	now     func() time.Time
}

// NewClient creates an SES client from config using static keys when set
// and the default credential chain otherwise.
func NewClient(ctx context.Context, cfg appconfig.SESConfig) (*Client, error) {
	if cfg.FromEmail == "" {
		return nil, fmt.Errorf("ses: from_email is required")
	}
	awsCfg, err := awsconf.Load(ctx, awsconf.Options{
		Region:    cfg.Region,
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
	})
	if err != nil {
		return nil, err
	}
	return NewWithAPI(sesv2.NewFromConfig(awsCfg), cfg), nil
}

// NewWithAPI wraps an existing SES API implementation.
func NewWithAPI(api API, cfg appconfig.SESConfig) *Client {
	from := (&mail.Address{Name: cfg.FromName, Address: cfg.FromEmail}).String()
	return &Client{api: api, from: from, timeout: cfg.Timeout(), now: time.Now}
}

// Send delivers msg and returns the SES message id.
func (c *Client) Send(ctx context.Context, msg Message) (string, error) {
	raw, err := BuildRawMessage(c.from, msg, c.now())
	if err != nil {
		return "", fmt.Errorf("building message: %w", err)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	out, err := c.api.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(c.from),
		Destination: &types.Destination{
			ToAddresses: []string{msg.To},
			CcAddresses: ccList(msg.Cc),
		},
		Content: &types.EmailContent{Raw: &types.RawMessage{Data: raw}},
	})
	if err != nil {
		return "", fmt.Errorf("sending to %s: %w", logger.RedactEmail(msg.To), err)
	}

	messageID := aws.ToString(out.MessageId)
	logger.Info("ses: sent notice", "member_email", msg.To, "message_id", messageID, "attachments", len(msg.Attachments))
	return messageID, nil
}

func ccList(cc string) []string {
	if cc == "" {
		return nil
	}
	return []string{cc}
}

// AttachFile reads a PDF from disk.
func AttachFile(path string) (Attachment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Attachment{}, fmt.Errorf("reading attachment: %w", err)
	}
	return Attachment{FileName: filepath.Base(path), ContentType: "application/pdf", Data: data}, nil
}
