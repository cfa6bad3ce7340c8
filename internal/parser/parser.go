// Package parser turns a serialized RFC 5322 message back into a flat,
// inspectable structure. It is the inverse of the assembly pipeline and is
// used by the stdout transport and by tests as an independent check of
// serialized output.
package parser

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	stdmime "mime"
	"strings"

	"github.com/emersion/go-message/mail"
)

// Message is a parsed email message. Nested multiparts are flattened; the
// first text/plain and text/html parts win.
type Message struct {
	From        string
	To          []string
	Cc          []string
	Bcc         []string
	Subject     string
	MessageID   string
	TextBody    string
	HtmlBody    string
	Attachments []Attachment
}

// Attachment is a parsed non-body part with its decoded content.
type Attachment struct {
	Filename    string
	ContentType string
	ContentID   string
	Inline      bool
	Content     []byte
}

// Parse parses a raw message. Transfer encodings (base64, quoted-printable)
// and nested multipart containers are handled by go-message; unreadable
// parts are logged as warnings and skipped.
func Parse(raw []byte) (*Message, error) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	defer mr.Close()

	header := mr.Header
	msg := &Message{
		From:      header.Get("From"),
		MessageID: header.Get("Message-Id"),
		To:        addressList(header, "To"),
		Cc:        addressList(header, "Cc"),
		Bcc:       addressList(header, "Bcc"),
	}

	if subject, err := header.Subject(); err == nil {
		msg.Subject = subject
	} else {
		msg.Subject = header.Get("Subject")
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read next part: %w", err)
		}

		switch h := part.Header.(type) {
		case *mail.InlineHeader:
			mediaType, _, err := h.ContentType()
			if err != nil {
				slog.Warn("failed to parse part content type, skipping", "error", err)
				continue
			}

			content, err := io.ReadAll(part.Body)
			if err != nil {
				slog.Warn("failed to read part content",
					"content_type", mediaType,
					"error", err,
				)
				continue
			}

			switch mediaType {
			case "text/plain":
				if msg.TextBody == "" {
					msg.TextBody = string(content)
				}
			case "text/html":
				if msg.HtmlBody == "" {
					msg.HtmlBody = string(content)
				}
			default:
				// Inline non-text part, e.g. an image embedded via cid: URI.
				msg.Attachments = append(msg.Attachments, Attachment{
					Filename:    dispositionFilename(h.Get("Content-Disposition")),
					ContentType: mediaType,
					ContentID:   h.Get("Content-Id"),
					Inline:      true,
					Content:     content,
				})
			}

		case *mail.AttachmentHeader:
			filename, _ := h.Filename()
			mediaType, _, _ := h.ContentType()

			content, err := io.ReadAll(part.Body)
			if err != nil {
				slog.Warn("failed to read attachment content",
					"filename", filename,
					"error", err,
				)
				continue
			}

			msg.Attachments = append(msg.Attachments, Attachment{
				Filename:    filename,
				ContentType: mediaType,
				ContentID:   h.Get("Content-Id"),
				Content:     content,
			})
		}
	}

	return msg, nil
}

// addressList returns the bare mailboxes of an address header, falling back
// to a simple comma split if RFC 5322 parsing fails.
func addressList(header mail.Header, key string) []string {
	raw := header.Get(key)
	if raw == "" {
		return nil
	}

	addresses, err := header.AddressList(key)
	if err != nil {
		parts := strings.Split(raw, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}

	result := make([]string, 0, len(addresses))
	for _, addr := range addresses {
		result = append(result, addr.Address)
	}
	return result
}

// dispositionFilename extracts the filename parameter of a
// Content-Disposition header value.
func dispositionFilename(disposition string) string {
	if disposition == "" {
		return ""
	}
	if _, params, err := stdmime.ParseMediaType(disposition); err == nil {
		return params["filename"]
	}
	return ""
}
