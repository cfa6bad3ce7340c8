// Package smtp implements a Transport that submits emails to an SMTP relay.
package smtp

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/emersion/go-sasl"
	gosmtp "github.com/emersion/go-smtp"

	"github.com/johndoe31415/mailcoil/internal/email"
)

// dialTimeout bounds the TCP connection attempt; the context can cancel it
// earlier.
const dialTimeout = 30 * time.Second

// SMTPTransportConfig holds the configuration for creating a SMTPTransport.
type SMTPTransportConfig struct {
	// Addr is the relay address in host:port form.
	Addr string

	// Sender is the envelope MAIL FROM address.
	Sender string

	// Username and Password enable SASL PLAIN authentication when both are
	// non-empty.
	Username string
	Password string

	// TLSConfig enables STARTTLS before authentication when non-nil.
	TLSConfig *tls.Config
}

// SMTPTransport submits serialized emails to an SMTP relay. The flat
// recipient list becomes the RCPT TO set, so BCC recipients are delivered
// regardless of how the receiving side treats the BCC header.
type SMTPTransport struct {
	config SMTPTransportConfig
}

// New creates a new SMTPTransport with the given configuration.
func New(cfg SMTPTransportConfig) *SMTPTransport {
	return &SMTPTransport{config: cfg}
}

// Deliver opens a connection to the relay, negotiates STARTTLS and AUTH as
// configured, issues the envelope and streams the document verbatim.
func (t *SMTPTransport) Deliver(ctx context.Context, msg *email.SerializedEmail) error {
	dialer := &net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", t.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", t.config.Addr, err)
	}

	host, _, err := net.SplitHostPort(t.config.Addr)
	if err != nil {
		host = t.config.Addr
	}

	client, err := gosmtp.NewClient(conn, host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer client.Close()

	if t.config.TLSConfig != nil {
		if ok, _ := client.Extension("STARTTLS"); !ok {
			return fmt.Errorf("relay %s does not support STARTTLS", t.config.Addr)
		}
		if err := client.StartTLS(t.config.TLSConfig); err != nil {
			return fmt.Errorf("STARTTLS failed: %w", err)
		}
	}

	if t.config.Username != "" && t.config.Password != "" {
		auth := sasl.NewPlainClient("", t.config.Username, t.config.Password)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("authentication failed: %w", err)
		}
	}

	if err := client.Mail(t.config.Sender, nil); err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}
	for _, rcpt := range msg.Recipients {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("RCPT TO %s failed: %w", rcpt, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("DATA failed: %w", err)
	}
	if _, err := w.Write(msg.Content); err != nil {
		w.Close()
		return fmt.Errorf("failed to write message body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finish message body: %w", err)
	}

	slog.Debug("message submitted",
		"relay", t.config.Addr,
		"recipients", len(msg.Recipients),
	)

	return client.Quit()
}

// Name returns the transport name.
func (t *SMTPTransport) Name() string {
	return "smtp"
}
