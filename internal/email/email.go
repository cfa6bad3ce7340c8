// Package email assembles transport-ready MIME email messages. An Email is
// built up incrementally (recipients, bodies, attachments, security policy)
// and serialized into a single nested MIME document plus the flat recipient
// list that forms the delivery envelope.
package email

import (
	"errors"
	"fmt"
	stdmime "mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/johndoe31415/mailcoil/internal/mime"
)

// Version is the library version, reported in the User-Agent header.
const Version = "0.1.0"

const userAgent = "mailcoil v" + Version

var (
	// ErrMalformedAddress indicates an address string that does not parse to
	// exactly one mailbox.
	ErrMalformedAddress = errors.New("malformed address")

	// ErrNoRecipient indicates serialization of a message without any To,
	// CC or BCC recipient.
	ErrNoRecipient = errors.New("mail has no To, CC, or BCC set")

	// ErrNoBody indicates serialization of a message with neither text nor
	// HTML content.
	ErrNoBody = errors.New("mail has no text or HTML content")

	// ErrAttachmentRead indicates that attaching by path failed to read the
	// underlying file.
	ErrAttachmentRead = errors.New("cannot read attachment")
)

// SecurityProcessor transforms an assembled MIME entity, typically by
// re-wrapping it for signing or encryption. Process takes ownership of the
// entity for the duration of the call and must return a new top-level entity
// that is itself a valid MIME structure ready for header finalization.
type SecurityProcessor interface {
	Process(entity *mime.Entity) (*mime.Entity, error)
}

// Email is the message-assembly aggregate. It is mutable while being built
// and must not be shared across goroutines without external synchronization.
// Serialize has no side effects on the Email and may be called repeatedly.
type Email struct {
	from        Address
	to          []Address
	cc          []Address
	bcc         []Address
	subject     string
	text        string
	hasText     bool
	html        string
	hasHTML     bool
	wrapText    bool
	attachments []Attachment
	security    SecurityProcessor
	createdAt   time.Time
	messageID   string
}

// SerializedEmail is the sole output artifact of Serialize: the final
// document bytes and the flat delivery envelope. A transport collaborator is
// expected to issue the recipient list and send Content verbatim.
type SerializedEmail struct {
	// Recipients is the concatenation of To, CC and BCC mailboxes in order,
	// display names stripped.
	Recipients []string

	// Content is the complete document, headers and body, ready for
	// transport.
	Content []byte
}

// New creates an Email from the sender address, which may carry a display
// name. Message identity (Message-ID, Date) is fixed here and never changes
// across Serialize calls.
func New(from string) (*Email, error) {
	addr, err := ParseAddress(from)
	if err != nil {
		return nil, err
	}
	return NewFromAddress(addr), nil
}

// NewFromAddress is New for an already-constructed sender Address.
func NewFromAddress(from Address) *Email {
	return &Email{
		from:      from,
		createdAt: time.Now(),
		messageID: newMessageID(),
	}
}

// newMessageID generates a globally unique Message-ID token from a
// cryptographically random source.
func newMessageID() string {
	return fmt.Sprintf("<%s@mailcoil>", strings.ReplaceAll(uuid.NewString(), "-", ""))
}

// To appends recipients to the To list. All addresses are parsed before any
// is appended, so a malformed one leaves the message unchanged.
func (e *Email) To(addresses ...string) error {
	parsed, err := parseAddresses(addresses)
	if err != nil {
		return err
	}
	e.to = append(e.to, parsed...)
	return nil
}

// CC appends recipients to the CC list.
func (e *Email) CC(addresses ...string) error {
	parsed, err := parseAddresses(addresses)
	if err != nil {
		return err
	}
	e.cc = append(e.cc, parsed...)
	return nil
}

// BCC appends recipients to the BCC list.
func (e *Email) BCC(addresses ...string) error {
	parsed, err := parseAddresses(addresses)
	if err != nil {
		return err
	}
	e.bcc = append(e.bcc, parsed...)
	return nil
}

// RecipientCount returns the total number of To, CC and BCC recipients.
func (e *Email) RecipientCount() int {
	return len(e.to) + len(e.cc) + len(e.bcc)
}

// Subject sets the Subject header value. An unset subject omits the header.
func (e *Email) Subject(subject string) {
	e.subject = subject
}

// Text sets the plain-text body.
func (e *Email) Text(text string) {
	e.text = text
	e.hasText = true
}

// HTML sets the HTML body.
func (e *Email) HTML(html string) {
	e.html = html
	e.hasHTML = true
}

// WrapText controls whether the plain-text body is reflowed to 72 columns
// paragraph by paragraph at serialization time.
func (e *Email) WrapText(wrap bool) {
	e.wrapText = wrap
}

// Security sets the security processor applied to the assembled entity. A
// nil processor is a pass-through.
func (e *Email) Security(processor SecurityProcessor) {
	e.security = processor
}

// MessageID returns the Message-ID header value fixed at construction.
func (e *Email) MessageID() string {
	return e.messageID
}

// AttachData appends an attachment from raw bytes and returns the cid: URI
// referencing it, for embedding in HTML source. When opts.ContentID is empty
// a unique id is synthesized from the attachment index.
func (e *Email) AttachData(data []byte, filename string, opts AttachOptions) string {
	mainType, subType := resolveMIMEType(filename, opts.MIMEType)

	contentID := opts.ContentID
	if contentID == "" {
		contentID = fmt.Sprintf("cid%d", len(e.attachments))
	}

	e.attachments = append(e.attachments, Attachment{
		Data:      data,
		MainType:  mainType,
		SubType:   subType,
		Filename:  filename,
		Inline:    opts.Inline,
		ContentID: contentID,
	})
	return "cid:" + contentID
}

// Attach reads the named file and attaches its content under the file's base
// name. Read failures are reported as ErrAttachmentRead and are not retried.
func (e *Email) Attach(path string, opts AttachOptions) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAttachmentRead, err)
	}
	return e.AttachData(data, filepath.Base(path), opts), nil
}

// Serialize assembles the message: body layer, attachment layer, security
// layer, then header finalization. The layer order is load-bearing so that
// a security transform covers the full payload including attachments.
//
// The BCC header is emitted into the document even though BCC recipients are
// part of the delivery envelope; stripping it before relaying is the
// transport collaborator's responsibility.
func (e *Email) Serialize() (*SerializedEmail, error) {
	if e.RecipientCount() == 0 {
		return nil, fmt.Errorf("%w: unable to serialize", ErrNoRecipient)
	}
	if !e.hasText && !e.hasHTML {
		return nil, fmt.Errorf("%w: unable to serialize", ErrNoBody)
	}

	entity := e.layerAttachments(e.layerBodyContent())

	if e.security != nil {
		processed, err := e.security.Process(entity)
		if err != nil {
			return nil, fmt.Errorf("security processing failed: %w", err)
		}
		entity = processed
	}

	e.finalizeHeaders(entity)

	recipients := make([]string, 0, e.RecipientCount())
	for _, list := range [][]Address{e.to, e.cc, e.bcc} {
		for _, addr := range list {
			recipients = append(recipients, addr.Mailbox)
		}
	}

	return &SerializedEmail{
		Recipients: recipients,
		Content:    entity.Bytes(),
	}, nil
}

// layerBodyContent builds the innermost layer: a single text or HTML leaf,
// or a multipart/alternative container holding the plain part first. Mail
// clients rely on least-to-most-faithful ordering.
func (e *Email) layerBodyContent() *mime.Entity {
	switch {
	case e.hasText && e.hasHTML:
		return mime.NewMultipart("alternative", e.textEntity(), e.htmlEntity())
	case e.hasText:
		return e.textEntity()
	default:
		return e.htmlEntity()
	}
}

// layerAttachments wraps the body layer and all attachments into a
// multipart/related container. multipart/related rather than mixed, because
// inline Content-ID cross-references from HTML require related-part
// semantics; non-inline attachments travel in the same container.
func (e *Email) layerAttachments(body *mime.Entity) *mime.Entity {
	if len(e.attachments) == 0 {
		return body
	}
	children := make([]*mime.Entity, 0, len(e.attachments)+1)
	children = append(children, body)
	for _, attachment := range e.attachments {
		children = append(children, attachment.entity())
	}
	return mime.NewMultipart("related", children...)
}

func (e *Email) textEntity() *mime.Entity {
	text := e.text
	if e.wrapText {
		text = wrapParagraphs(text)
	}
	return textLeaf(text, "plain")
}

func (e *Email) htmlEntity() *mime.Entity {
	return textLeaf(e.html, "html")
}

// textLeaf renders a quoted-printable text part with a UTF-8 charset
// declaration.
func textLeaf(content, subtype string) *mime.Entity {
	return mime.NewLeaf("text/"+subtype, map[string]string{"charset": "utf-8"},
		mime.EncodingQuotedPrintable, []byte(content))
}

// finalizeHeaders attaches the top-level message headers to the assembled
// entity. Date carries the local time zone offset of the construction
// timestamp.
func (e *Email) finalizeHeaders(entity *mime.Entity) {
	entity.SetHeader("MIME-Version", "1.0")
	if e.subject != "" {
		entity.SetHeader("Subject", stdmime.QEncoding.Encode("utf-8", e.subject))
	}
	entity.SetHeader("Message-ID", e.messageID)
	entity.SetHeader("Date", e.createdAt.Format(time.RFC1123Z))
	entity.SetHeader("User-Agent", userAgent)
	entity.SetHeader("From", e.from.String())
	if len(e.to) > 0 {
		entity.SetHeader("To", joinAddresses(e.to))
	}
	if len(e.cc) > 0 {
		entity.SetHeader("CC", joinAddresses(e.cc))
	}
	if len(e.bcc) > 0 {
		entity.SetHeader("BCC", joinAddresses(e.bcc))
	}
}

func joinAddresses(addresses []Address) string {
	rendered := make([]string, 0, len(addresses))
	for _, addr := range addresses {
		rendered = append(rendered, addr.String())
	}
	return strings.Join(rendered, ", ")
}
