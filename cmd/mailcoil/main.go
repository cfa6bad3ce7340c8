// Package main is the entry point for the mailcoil command line mailer: it
// composes a message from flags, serializes it and hands it to a delivery
// transport.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/johndoe31415/mailcoil/internal/config"
	"github.com/johndoe31415/mailcoil/internal/email"
	"github.com/johndoe31415/mailcoil/internal/transport"
	"github.com/johndoe31415/mailcoil/internal/transport/graph"
	"github.com/johndoe31415/mailcoil/internal/transport/ses"
	"github.com/johndoe31415/mailcoil/internal/transport/smtp"
	"github.com/johndoe31415/mailcoil/internal/transport/stdout"
	mailtls "github.com/johndoe31415/mailcoil/internal/tls"
)

// stringList collects repeatable flag values.
type stringList []string

func (l *stringList) String() string {
	return strings.Join(*l, ",")
}

func (l *stringList) Set(value string) error {
	*l = append(*l, value)
	return nil
}

func main() {
	var attachments stringList

	configPath := flag.String("config", "", "path to YAML configuration file (optional)")
	from := flag.String("from", "", "sender address (overrides configuration)")
	to := flag.String("to", "", "comma-separated To recipients")
	cc := flag.String("cc", "", "comma-separated CC recipients")
	bcc := flag.String("bcc", "", "comma-separated BCC recipients")
	subject := flag.String("subject", "", "message subject")
	text := flag.String("text", "", "plain-text body")
	textFile := flag.String("text-file", "", "read the plain-text body from a file")
	htmlFile := flag.String("html-file", "", "read the HTML body from a file")
	wrap := flag.Bool("wrap", false, "reflow the plain-text body to 72 columns")
	flag.Var(&attachments, "attach", "attach a file (repeatable)")
	flag.Parse()

	// A local .env is convenient during development; absence is fine.
	_ = godotenv.Load()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.Logging.Level)

	sender := cfg.From
	if *from != "" {
		sender = *from
	}
	if sender == "" {
		slog.Error("no sender address configured, use -from or FROM_ADDRESS")
		os.Exit(1)
	}

	msg, err := email.New(sender)
	if err != nil {
		slog.Error("invalid sender address", "error", err)
		os.Exit(1)
	}

	if err := addRecipients(msg, *to, *cc, *bcc); err != nil {
		slog.Error("invalid recipient address", "error", err)
		os.Exit(1)
	}

	if *subject != "" {
		msg.Subject(*subject)
	}
	msg.WrapText(*wrap)

	if *text != "" {
		msg.Text(*text)
	}
	if *textFile != "" {
		body, err := os.ReadFile(*textFile)
		if err != nil {
			slog.Error("failed to read text body", "path", *textFile, "error", err)
			os.Exit(1)
		}
		msg.Text(string(body))
	}
	if *htmlFile != "" {
		body, err := os.ReadFile(*htmlFile)
		if err != nil {
			slog.Error("failed to read HTML body", "path", *htmlFile, "error", err)
			os.Exit(1)
		}
		msg.HTML(string(body))
	}

	for _, path := range attachments {
		if _, err := msg.Attach(path, email.AttachOptions{}); err != nil {
			slog.Error("failed to attach file", "path", path, "error", err)
			os.Exit(1)
		}
	}

	serialized, err := msg.Serialize()
	if err != nil {
		slog.Error("failed to serialize message", "error", err)
		os.Exit(1)
	}

	trans := selectTransport(cfg, sender)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	slog.Info("delivering message",
		"transport", trans.Name(),
		"recipients", len(serialized.Recipients),
		"size", len(serialized.Content),
	)

	if err := trans.Deliver(ctx, serialized); err != nil {
		slog.Error("delivery failed", "transport", trans.Name(), "error", err)
		os.Exit(1)
	}

	slog.Info("message delivered", "message_id", msg.MessageID())
}

// loadConfig loads configuration from the specified path (YAML + env
// override) or from environment variables only if no path is given.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

// addRecipients splits the comma-separated flag values onto the message.
func addRecipients(msg *email.Email, to, cc, bcc string) error {
	if err := msg.To(splitAddresses(to)...); err != nil {
		return err
	}
	if err := msg.CC(splitAddresses(cc)...); err != nil {
		return err
	}
	return msg.BCC(splitAddresses(bcc)...)
}

func splitAddresses(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// setupLogger configures the global slog logger with JSON output and the
// specified log level.
func setupLogger(level string) {
	var logLevel slog.Level

	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}

// selectTransport chooses the delivery backend based on configuration.
// An explicit transport setting takes precedence; otherwise the first
// configured backend wins (smtp, ses, msgraph), falling back to stdout.
func selectTransport(cfg *config.Config, sender string) transport.Transport {
	mailbox := senderMailbox(sender)

	switch cfg.Transport {
	case "smtp":
		if !cfg.SMTPConfigured() {
			slog.Error("smtp transport selected but SMTP_ADDR is required")
			os.Exit(1)
		}
		return newSMTPTransport(cfg, mailbox)

	case "ses":
		if !cfg.SESConfigured() {
			slog.Error("ses transport selected but SES_REGION is required")
			os.Exit(1)
		}
		return newSESTransport(cfg, mailbox)

	case "graph", "msgraph":
		if !cfg.GraphConfigured() {
			slog.Error("msgraph transport selected but GRAPH_TENANT_ID, GRAPH_CLIENT_ID, and GRAPH_CLIENT_SECRET are required")
			os.Exit(1)
		}
		slog.Info("using Microsoft Graph transport", "sender", mailbox)
		return graph.New(graph.GraphTransportConfig{
			TenantID:     cfg.Graph.TenantID,
			ClientID:     cfg.Graph.ClientID,
			ClientSecret: cfg.Graph.ClientSecret,
			Sender:       mailbox,
		})

	case "stdout":
		slog.Info("using stdout transport")
		return stdout.New()

	case "":
		switch {
		case cfg.SMTPConfigured():
			return newSMTPTransport(cfg, mailbox)
		case cfg.SESConfigured():
			return newSESTransport(cfg, mailbox)
		case cfg.GraphConfigured():
			slog.Info("using Microsoft Graph transport (auto-detected)", "sender", mailbox)
			return graph.New(graph.GraphTransportConfig{
				TenantID:     cfg.Graph.TenantID,
				ClientID:     cfg.Graph.ClientID,
				ClientSecret: cfg.Graph.ClientSecret,
				Sender:       mailbox,
			})
		default:
			slog.Info("no transport configured, using stdout transport")
			return stdout.New()
		}

	default:
		slog.Error("unknown transport", "transport", cfg.Transport)
		os.Exit(1)
		return nil
	}
}

func newSMTPTransport(cfg *config.Config, mailbox string) transport.Transport {
	slog.Info("using SMTP transport",
		"addr", cfg.SMTP.Addr,
		"starttls", cfg.SMTP.StartTLS,
	)

	smtpCfg := smtp.SMTPTransportConfig{
		Addr:     cfg.SMTP.Addr,
		Sender:   mailbox,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
	}

	if cfg.SMTP.StartTLS {
		host, _, err := net.SplitHostPort(cfg.SMTP.Addr)
		if err != nil {
			host = cfg.SMTP.Addr
		}
		tlsCfg, err := mailtls.ClientConfig(cfg.TLS.CertFile, cfg.TLS.KeyFile, host, cfg.TLS.InsecureSkipVerify)
		if err != nil {
			slog.Error("failed to build TLS configuration", "error", err)
			os.Exit(1)
		}
		smtpCfg.TLSConfig = tlsCfg
	}

	return smtp.New(smtpCfg)
}

func newSESTransport(cfg *config.Config, mailbox string) transport.Transport {
	slog.Info("using AWS SES transport",
		"region", cfg.SES.Region,
		"sender", mailbox,
	)
	t, err := ses.New(context.Background(), ses.SESTransportConfig{
		Region:          cfg.SES.Region,
		AccessKeyID:     cfg.SES.AccessKeyID,
		SecretAccessKey: cfg.SES.SecretAccessKey,
		Sender:          mailbox,
	})
	if err != nil {
		slog.Error("failed to create SES transport", "error", err)
		os.Exit(1)
	}
	return t
}

// senderMailbox strips an optional display name off the sender address.
func senderMailbox(sender string) string {
	addr, err := email.ParseAddress(sender)
	if err != nil {
		// Unreachable in practice: main validated the sender already.
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	return addr.Mailbox
}
