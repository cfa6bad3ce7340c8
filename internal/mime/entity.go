// Package mime builds MIME entity trees and renders them to wire format.
//
// An Entity is either a leaf carrying transfer-encoded payload bytes or a
// multipart container with ordered children. Rendering is a recursive
// headers-then-body walk with a unique boundary token per container.
package mime

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/quotedprintable"
	"net/textproto"
	"strings"

	"github.com/google/uuid"
)

// Encoding is a MIME content transfer encoding.
type Encoding string

const (
	// EncodingQuotedPrintable is the text-safe transfer encoding.
	EncodingQuotedPrintable Encoding = "quoted-printable"

	// EncodingBase64 is the binary-safe transfer encoding.
	EncodingBase64 Encoding = "base64"
)

// headerField is a single header line. Entities keep headers as an ordered
// list so that insertion order survives onto the wire.
type headerField struct {
	name  string
	value string
}

// Entity is a node in a MIME tree.
type Entity struct {
	fields   []headerField
	encoding Encoding
	body     []byte

	subtype  string
	boundary string
	children []*Entity
}

// NewLeaf creates a non-multipart entity. The payload is stored raw and
// transfer-encoded during rendering. params are added to the Content-Type
// header (e.g. charset).
func NewLeaf(mediaType string, params map[string]string, encoding Encoding, payload []byte) *Entity {
	e := &Entity{
		encoding: encoding,
		body:     payload,
	}
	e.SetHeader("Content-Type", mime.FormatMediaType(mediaType, params))
	e.SetHeader("Content-Transfer-Encoding", string(encoding))
	return e
}

// NewMultipart creates a multipart container with the given subtype
// (e.g. "alternative", "related") holding the children in order. Each
// container gets its own random boundary token.
func NewMultipart(subtype string, children ...*Entity) *Entity {
	e := &Entity{
		subtype:  subtype,
		boundary: newBoundary(),
		children: children,
	}
	e.SetHeader("Content-Type", mime.FormatMediaType("multipart/"+subtype, map[string]string{
		"boundary": e.boundary,
	}))
	return e
}

// newBoundary returns a boundary token that will not collide with sibling
// or nested containers. uuid v4 is sourced from crypto/rand.
func newBoundary() string {
	return "mc-" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Multipart reports whether the entity is a container.
func (e *Entity) Multipart() bool {
	return e.subtype != ""
}

// Subtype returns the multipart subtype, or "" for leaves.
func (e *Entity) Subtype() string {
	return e.subtype
}

// Children returns the ordered child entities of a container.
func (e *Entity) Children() []*Entity {
	return e.children
}

// SetHeader replaces the value of an existing header or appends a new one,
// preserving the position of headers that are already present.
func (e *Entity) SetHeader(name, value string) {
	canonical := textproto.CanonicalMIMEHeaderKey(name)
	for i := range e.fields {
		if e.fields[i].name == canonical {
			e.fields[i].value = value
			return
		}
	}
	e.fields = append(e.fields, headerField{name: canonical, value: value})
}

// Header returns the value of the named header, or "" if unset.
func (e *Entity) Header(name string) string {
	canonical := textproto.CanonicalMIMEHeaderKey(name)
	for _, f := range e.fields {
		if f.name == canonical {
			return f.value
		}
	}
	return ""
}

// Bytes renders the entity tree to its transport form.
func (e *Entity) Bytes() []byte {
	var buf bytes.Buffer
	e.render(&buf)
	return buf.Bytes()
}

// WriteTo implements io.WriterTo.
func (e *Entity) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(e.Bytes())
	return int64(n), err
}

// render writes headers, a blank separator line and then either the encoded
// payload or the boundary-delimited children.
func (e *Entity) render(buf *bytes.Buffer) {
	for _, f := range e.fields {
		fmt.Fprintf(buf, "%s: %s\r\n", f.name, f.value)
	}
	buf.WriteString("\r\n")

	if e.Multipart() {
		for _, child := range e.children {
			fmt.Fprintf(buf, "--%s\r\n", e.boundary)
			child.render(buf)
			buf.WriteString("\r\n")
		}
		fmt.Fprintf(buf, "--%s--\r\n", e.boundary)
		return
	}

	switch e.encoding {
	case EncodingBase64:
		buf.WriteString(encodeBase64WithLineBreaks(e.body))
		buf.WriteString("\r\n")
	default:
		qw := quotedprintable.NewWriter(buf)
		qw.Write(e.body)
		qw.Close()
		buf.WriteString("\r\n")
	}
}

// encodeBase64WithLineBreaks encodes bytes to base64 with 76-character line
// breaks per RFC 2045.
func encodeBase64WithLineBreaks(data []byte) string {
	encoded := base64.StdEncoding.EncodeToString(data)
	var lines []string
	for i := 0; i < len(encoded); i += 76 {
		end := i + 76
		if end > len(encoded) {
			end = len(encoded)
		}
		lines = append(lines, encoded[i:end])
	}
	return strings.Join(lines, "\r\n")
}
