package ses

import (
	"context"
	"errors"
	"testing"
	"time"

	sesv2 "github.com/aws/aws-sdk-go-v2/service/sesv2"

	"github.com/johndoe31415/mailcoil/internal/email"
)

// mockSendEmailAPI records SendEmail calls and returns scripted results.
type mockSendEmailAPI struct {
	calls  int
	inputs []*sesv2.SendEmailInput
	errs   []error
}

func (m *mockSendEmailAPI) SendEmail(_ context.Context, params *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	m.calls++
	m.inputs = append(m.inputs, params)
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &sesv2.SendEmailOutput{}, nil
}

func testMessage() *email.SerializedEmail {
	return &email.SerializedEmail{
		Recipients: []string{"bob@example.com", "eve@example.com"},
		Content:    []byte("From: alice@example.com\r\n\r\nbody\r\n"),
	}
}

func TestDeliverSuccess(t *testing.T) {
	t.Parallel()

	mock := &mockSendEmailAPI{}
	transport := NewWithClient("alice@example.com", mock)

	if err := transport.Deliver(context.Background(), testMessage()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mock.calls != 1 {
		t.Errorf("SendEmail calls: got %d, want 1", mock.calls)
	}

	input := mock.inputs[0]
	if input.FromEmailAddress == nil || *input.FromEmailAddress != "alice@example.com" {
		t.Errorf("FromEmailAddress: got %v", input.FromEmailAddress)
	}
	if got := input.Destination.ToAddresses; len(got) != 2 || got[0] != "bob@example.com" || got[1] != "eve@example.com" {
		t.Errorf("ToAddresses: got %v", got)
	}
	if input.Content == nil || input.Content.Raw == nil {
		t.Fatal("raw content not set")
	}
	if string(input.Content.Raw.Data) != string(testMessage().Content) {
		t.Error("raw content does not match serialized document")
	}
}

func TestDeliverRetriesThenSucceeds(t *testing.T) {
	t.Parallel()

	mock := &mockSendEmailAPI{
		errs: []error{errors.New("throttled")},
	}
	transport := NewWithClient("alice@example.com", mock)

	if err := transport.Deliver(context.Background(), testMessage()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mock.calls != 2 {
		t.Errorf("SendEmail calls: got %d, want 2", mock.calls)
	}
}

func TestDeliverContextCancelledDuringBackoff(t *testing.T) {
	t.Parallel()

	mock := &mockSendEmailAPI{
		errs: []error{errors.New("throttled"), errors.New("throttled"), errors.New("throttled"), errors.New("throttled")},
	}
	transport := NewWithClient("alice@example.com", mock)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := transport.Deliver(ctx, testMessage())
	if err == nil {
		t.Fatal("expected error after context cancellation")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected context.DeadlineExceeded in chain, got %v", err)
	}
	// Only the initial attempt fits before the first backoff delay expires.
	if mock.calls != 1 {
		t.Errorf("SendEmail calls: got %d, want 1", mock.calls)
	}
}

func TestName(t *testing.T) {
	t.Parallel()

	transport := NewWithClient("alice@example.com", &mockSendEmailAPI{})
	if got := transport.Name(); got != "ses" {
		t.Errorf("Name(): got %q, want %q", got, "ses")
	}
}

func TestBackoffDelay(t *testing.T) {
	t.Parallel()

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 1 * time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
	}

	for _, tt := range tests {
		if got := backoffDelay(tt.attempt); got != tt.want {
			t.Errorf("backoffDelay(%d): got %v, want %v", tt.attempt, got, tt.want)
		}
	}
}
