package smtp

import (
	"context"
	"crypto/tls"
	"strings"
	"testing"

	"github.com/johndoe31415/mailcoil/internal/email"
	"github.com/johndoe31415/mailcoil/internal/smtptest"
	mailtls "github.com/johndoe31415/mailcoil/internal/tls"
)

func testMessage(t *testing.T) *email.SerializedEmail {
	t.Helper()

	e, err := email.New("Alice <alice@example.com>")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := e.To("bob@example.com"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := e.BCC("eve@example.com"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	e.Subject("Relay test")
	e.Text("over the wire")

	serialized, err := e.Serialize()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return serialized
}

func TestDeliverPlain(t *testing.T) {
	t.Parallel()

	server, err := smtptest.NewServer(nil)
	if err != nil {
		t.Fatalf("failed to start test server: %v", err)
	}
	defer server.Close()

	transport := New(SMTPTransportConfig{
		Addr:   server.Addr(),
		Sender: "alice@example.com",
	})

	msg := testMessage(t)
	if err := transport.Deliver(context.Background(), msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	envelopes := server.Envelopes()
	if len(envelopes) != 1 {
		t.Fatalf("envelopes: got %d, want 1", len(envelopes))
	}

	env := envelopes[0]
	if env.From != "alice@example.com" {
		t.Errorf("MAIL FROM: got %q", env.From)
	}
	if len(env.Recipients) != 2 || env.Recipients[0] != "bob@example.com" || env.Recipients[1] != "eve@example.com" {
		t.Errorf("RCPT TO: got %v, want To plus BCC", env.Recipients)
	}
	if !strings.Contains(string(env.Data), "Subject: Relay test") {
		t.Error("received data does not contain the serialized document")
	}
}

func TestDeliverWithAuth(t *testing.T) {
	t.Parallel()

	server, err := smtptest.NewServer(nil)
	if err != nil {
		t.Fatalf("failed to start test server: %v", err)
	}
	defer server.Close()

	transport := New(SMTPTransportConfig{
		Addr:     server.Addr(),
		Sender:   "alice@example.com",
		Username: "alice",
		Password: "hunter2",
	})

	if err := transport.Deliver(context.Background(), testMessage(t)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := len(server.Envelopes()); got != 1 {
		t.Errorf("envelopes: got %d, want 1", got)
	}
}

func TestDeliverStartTLS(t *testing.T) {
	t.Parallel()

	cert, err := mailtls.GenerateSelfSignedCert()
	if err != nil {
		t.Fatalf("failed to generate certificate: %v", err)
	}

	server, err := smtptest.NewServer(&tls.Config{Certificates: []tls.Certificate{*cert}})
	if err != nil {
		t.Fatalf("failed to start test server: %v", err)
	}
	defer server.Close()

	clientTLS, err := mailtls.ClientConfig("", "", "127.0.0.1", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	transport := New(SMTPTransportConfig{
		Addr:      server.Addr(),
		Sender:    "alice@example.com",
		TLSConfig: clientTLS,
	})

	if err := transport.Deliver(context.Background(), testMessage(t)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := len(server.Envelopes()); got != 1 {
		t.Errorf("envelopes: got %d, want 1", got)
	}
}

func TestDeliverStartTLSUnsupported(t *testing.T) {
	t.Parallel()

	server, err := smtptest.NewServer(nil)
	if err != nil {
		t.Fatalf("failed to start test server: %v", err)
	}
	defer server.Close()

	transport := New(SMTPTransportConfig{
		Addr:      server.Addr(),
		Sender:    "alice@example.com",
		TLSConfig: &tls.Config{InsecureSkipVerify: true},
	})

	err = transport.Deliver(context.Background(), testMessage(t))
	if err == nil {
		t.Fatal("expected error when the relay has no STARTTLS")
	}
	if !strings.Contains(err.Error(), "STARTTLS") {
		t.Errorf("error: got %v", err)
	}
}

func TestDeliverConnectionRefused(t *testing.T) {
	t.Parallel()

	// Reserve a port, then close it so nothing listens there.
	server, err := smtptest.NewServer(nil)
	if err != nil {
		t.Fatalf("failed to start test server: %v", err)
	}
	addr := server.Addr()
	server.Close()

	transport := New(SMTPTransportConfig{
		Addr:   addr,
		Sender: "alice@example.com",
	})
	if err := transport.Deliver(context.Background(), testMessage(t)); err == nil {
		t.Error("expected connection error")
	}
}

func TestName(t *testing.T) {
	t.Parallel()

	transport := New(SMTPTransportConfig{})
	if got := transport.Name(); got != "smtp" {
		t.Errorf("Name(): got %q, want %q", got, "smtp")
	}
}
