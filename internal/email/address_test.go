package email

import (
	"errors"
	"testing"
)

func TestParseAddressRoundTrip(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"joe@example.com",
		"Joe User <joe@example.com>",
		"\"User, Joe\" <joe@example.com>",
		"Jörg Müller <joerg@example.com>",
	}

	for _, input := range inputs {
		addr, err := ParseAddress(input)
		if err != nil {
			t.Fatalf("ParseAddress(%q): unexpected error: %v", input, err)
		}

		reparsed, err := ParseAddress(addr.String())
		if err != nil {
			t.Fatalf("re-parsing %q failed: %v", addr.String(), err)
		}
		if reparsed != addr {
			t.Errorf("round trip of %q: got %+v, want %+v", input, reparsed, addr)
		}
	}
}

func TestParseAddressBare(t *testing.T) {
	t.Parallel()

	addr, err := ParseAddress("joe@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if addr.Mailbox != "joe@example.com" {
		t.Errorf("Mailbox: got %q, want %q", addr.Mailbox, "joe@example.com")
	}
	if addr.Name != "" {
		t.Errorf("Name: got %q, want empty", addr.Name)
	}
	// No display name means no angle-bracket form.
	if got := addr.String(); got != "joe@example.com" {
		t.Errorf("String(): got %q, want %q", got, "joe@example.com")
	}
}

func TestParseAddressDisplayName(t *testing.T) {
	t.Parallel()

	addr, err := ParseAddress("Joe User <joe@example.com>")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if addr.Name != "Joe User" {
		t.Errorf("Name: got %q, want %q", addr.Name, "Joe User")
	}
	if got := addr.String(); got != "\"Joe User\" <joe@example.com>" && got != "Joe User <joe@example.com>" {
		t.Errorf("String(): got %q", got)
	}
}

func TestParseAddressRejectsMalformed(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"",
		"not an address",
		"joe@example.com, jane@example.com",
		"<>",
	}

	for _, input := range inputs {
		_, err := ParseAddress(input)
		if err == nil {
			t.Errorf("ParseAddress(%q): expected error, got nil", input)
			continue
		}
		if !errors.Is(err, ErrMalformedAddress) {
			t.Errorf("ParseAddress(%q): error %v is not ErrMalformedAddress", input, err)
		}
	}
}
