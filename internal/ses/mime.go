package ses

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"net/textproto"
	"strings"
	"time"
)

const base64LineLength = 76

// headerAddress parses a single bare address taken from a sheet cell.
func headerAddress(field, v string) (string, error) {
	if strings.ContainsAny(v, "\r\n") {
		return "", fmt.Errorf("%s address contains a line break", field)
	}
	addr, err := mail.ParseAddress(v)
	if err != nil {
		return "", fmt.Errorf("%s address %q: %w", field, v, err)
	}
	return addr.Address, nil
}

// BuildRawMessage renders msg as a multipart/mixed RFC 5322 message with a
// plain text body followed by the attachments.
func BuildRawMessage(from string, msg Message, date time.Time) ([]byte, error) {
	if msg.To == "" {
		return nil, fmt.Errorf("message has no recipient")
	}
	to, err := headerAddress("To", msg.To)
	if err != nil {
		return nil, err
	}
	cc := ""
	if msg.Cc != "" {
		if cc, err = headerAddress("Cc", msg.Cc); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	header := func(k, v string) { fmt.Fprintf(&buf, "%s: %s\r\n", k, v) }
	header("From", from)
	header("To", to)
	if cc != "" {
		header("Cc", cc)
	}
	header("Subject", mime.QEncoding.Encode("utf-8", msg.Subject))
	header("Date", date.Format(time.RFC1123Z))
	header("MIME-Version", "1.0")
	header("Content-Type", fmt.Sprintf("multipart/mixed; boundary=%q", mw.Boundary()))
	buf.WriteString("\r\n")

	body, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {"text/plain; charset=utf-8"},
		"Content-Transfer-Encoding": {"quoted-printable"},
	})
	if err != nil {
		return nil, fmt.Errorf("creating body part: %w", err)
	}
	if err := writeQuotedPrintable(body, msg.Body); err != nil {
		return nil, fmt.Errorf("writing body: %w", err)
	}

	for _, a := range msg.Attachments {
		ct := a.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		part, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {mime.FormatMediaType(ct, map[string]string{"name": a.FileName})},
			"Content-Disposition":       {mime.FormatMediaType("attachment", map[string]string{"filename": a.FileName})},
			"Content-Transfer-Encoding": {"base64"},
		})
		if err != nil {
			return nil, fmt.Errorf("creating part for %s: %w", a.FileName, err)
		}
		if _, err := part.Write(wrapLines(base64.StdEncoding.EncodeToString(a.Data), base64LineLength)); err != nil {
			return nil, fmt.Errorf("writing %s: %w", a.FileName, err)
		}
	}

	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart writer: %w", err)
	}
	return buf.Bytes(), nil
}

func wrapLines(s string, n int) []byte {
	var b strings.Builder
	for len(s) > n {
		b.WriteString(s[:n])
		b.WriteString("\r\n")
		s = s[n:]
	}
	b.WriteString(s)
	b.WriteString("\r\n")
	return []byte(b.String())
}

func writeQuotedPrintable(w io.Writer, text string) error {
	qp := quotedprintable.NewWriter(w)
	if _, err := io.WriteString(qp, text); err != nil {
		return err
	}
	return qp.Close()
}
