// Package stdout implements a Transport that prints emails to standard output.
package stdout

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/johndoe31415/mailcoil/internal/email"
	"github.com/johndoe31415/mailcoil/internal/parser"
)

// Transport prints serialized email messages to stdout in a human-readable
// format. It is the development and dry-run backend.
type Transport struct {
	// writer is the output destination, defaulting to os.Stdout.
	writer io.Writer
}

// New creates a stdout Transport that writes to os.Stdout.
func New() *Transport {
	return &Transport{writer: os.Stdout}
}

// NewWithWriter creates a stdout Transport that writes to the given writer.
// This is useful for testing.
func NewWithWriter(w io.Writer) *Transport {
	return &Transport{writer: w}
}

// Deliver parses the serialized document and prints a summary. It always
// returns nil unless the document itself is unparseable.
func (t *Transport) Deliver(_ context.Context, msg *email.SerializedEmail) error {
	parsed, err := parser.Parse(msg.Content)
	if err != nil {
		return fmt.Errorf("failed to parse serialized message: %w", err)
	}

	var b strings.Builder

	b.WriteString("========================================\n")
	b.WriteString(fmt.Sprintf("From: %s\n", parsed.From))
	b.WriteString(fmt.Sprintf("Envelope: %s\n", strings.Join(msg.Recipients, ", ")))
	b.WriteString(fmt.Sprintf("Subject: %s\n", parsed.Subject))
	b.WriteString(fmt.Sprintf("Message-ID: %s\n", parsed.MessageID))
	b.WriteString("Body:\n")

	body := parsed.TextBody
	if body == "" {
		body = parsed.HtmlBody
	}
	b.WriteString(body + "\n")

	if len(parsed.Attachments) > 0 {
		attachments := make([]string, 0, len(parsed.Attachments))
		for _, att := range parsed.Attachments {
			attachments = append(attachments, fmt.Sprintf("%s (%s)", att.Filename, formatSize(len(att.Content))))
		}
		b.WriteString(fmt.Sprintf("Attachments: %s\n", strings.Join(attachments, ", ")))
	}

	b.WriteString("========================================\n")

	fmt.Fprint(t.writer, b.String())
	return nil
}

// Name returns the transport name.
func (t *Transport) Name() string {
	return "stdout"
}

// formatSize formats a byte count into a human-readable string.
func formatSize(bytes int) string {
	const (
		kb = 1024
		mb = kb * 1024
	)

	switch {
	case bytes >= mb:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(mb))
	case bytes >= kb:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(kb))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
