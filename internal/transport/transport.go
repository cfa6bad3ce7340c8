// Package transport defines the interface for email delivery backends.
package transport

import (
	"context"

	"github.com/johndoe31415/mailcoil/internal/email"
)

// Transport is the interface that email delivery backends must implement.
// A transport opens a connection to the target service, issues the flat
// recipient list as the delivery envelope and sends the serialized document
// verbatim as the message body.
type Transport interface {
	// Deliver sends a serialized email through this transport.
	// It returns an error if the delivery fails.
	Deliver(ctx context.Context, msg *email.SerializedEmail) error

	// Name returns the human-readable name of this transport.
	Name() string
}
