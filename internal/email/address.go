package email

import (
	"fmt"
	"net/mail"
)

// Address is a single RFC 5322 mailbox with an optional display name.
// Addresses are immutable after construction.
type Address struct {
	// Mailbox is the bare local-part@domain form.
	Mailbox string

	// Name is the display name, or "" if none.
	Name string
}

// ParseAddress extracts exactly one mailbox from an address string using
// RFC 5322 address grammar. Inputs with zero or more than one mailbox fail
// with ErrMalformedAddress.
func ParseAddress(input string) (Address, error) {
	addr, err := mail.ParseAddress(input)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %q: %v", ErrMalformedAddress, input, err)
	}
	return Address{Mailbox: addr.Address, Name: addr.Name}, nil
}

// parseAddresses parses every input, failing on the first malformed one so
// that recipient lists are appended atomically.
func parseAddresses(inputs []string) ([]Address, error) {
	parsed := make([]Address, 0, len(inputs))
	for _, input := range inputs {
		addr, err := ParseAddress(input)
		if err != nil {
			return nil, err
		}
		parsed = append(parsed, addr)
	}
	return parsed, nil
}

// String renders the address in RFC 5322 text form: `"Name" <mailbox>` when
// a display name is present, the bare mailbox otherwise. Rendering then
// re-parsing yields an equal Address.
func (a Address) String() string {
	if a.Name == "" {
		return a.Mailbox
	}
	return (&mail.Address{Name: a.Name, Address: a.Mailbox}).String()
}
