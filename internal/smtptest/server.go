// Package smtptest provides an in-process SMTP server that records the
// envelopes it receives, for exercising the SMTP transport without an
// external relay.
package smtptest

import (
	"crypto/tls"
	"io"
	"net"
	"sync"

	"github.com/emersion/go-smtp"
)

// maxMessageSize bounds recorded message bodies.
const maxMessageSize = 10 * 1024 * 1024

// Envelope is one received message: the SMTP envelope plus the raw body.
type Envelope struct {
	From       string
	Recipients []string
	Data       []byte
}

// Server wraps a go-smtp server listening on an ephemeral localhost port.
// Received envelopes are retained in memory; goroutine safe, since the
// server handles each connection on its own goroutine.
type Server struct {
	srv      *smtp.Server
	listener net.Listener

	mu        sync.Mutex
	envelopes []Envelope
}

// NewServer starts a server on 127.0.0.1:0. Pass a nil tlsConfig to disable
// STARTTLS. Callers must Close the server when done.
func NewServer(tlsConfig *tls.Config) (*Server, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}

	s := &Server{listener: listener}

	srv := smtp.NewServer(&backend{store: s})
	srv.Domain = "localhost"
	srv.AllowInsecureAuth = true
	srv.MaxMessageBytes = maxMessageSize
	srv.TLSConfig = tlsConfig
	s.srv = srv

	go srv.Serve(listener)

	return s, nil
}

// Addr returns the host:port the server listens on.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Close shuts the server down.
func (s *Server) Close() {
	s.srv.Close()
}

// Envelopes returns a copy of everything received so far.
func (s *Server) Envelopes() []Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Envelope, len(s.envelopes))
	copy(out, s.envelopes)
	return out
}

func (s *Server) record(env Envelope) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.envelopes = append(s.envelopes, env)
}

// backend implements smtp.Backend. Any credentials are accepted; test
// configurations should not be coupled to specific ones.
type backend struct {
	store *Server
}

func (b *backend) Login(_ *smtp.ConnectionState, _, _ string) (smtp.Session, error) {
	return &session{store: b.store}, nil
}

func (b *backend) AnonymousLogin(_ *smtp.ConnectionState) (smtp.Session, error) {
	return &session{store: b.store}, nil
}

// session implements smtp.Session, accumulating one envelope per message.
type session struct {
	store      *Server
	from       string
	recipients []string
}

func (s *session) Mail(from string, _ smtp.MailOptions) error {
	s.from = from
	return nil
}

func (s *session) Rcpt(to string) error {
	s.recipients = append(s.recipients, to)
	return nil
}

func (s *session) Data(r io.Reader) error {
	data, err := io.ReadAll(io.LimitReader(r, maxMessageSize))
	if err != nil {
		return err
	}
	s.store.record(Envelope{
		From:       s.from,
		Recipients: s.recipients,
		Data:       data,
	})
	return nil
}

func (s *session) Reset() {
	s.from = ""
	s.recipients = nil
}

func (s *session) Logout() error {
	return nil
}
