package email

import (
	stdmime "mime"
	"path/filepath"
	"strings"

	"github.com/johndoe31415/mailcoil/internal/mime"
)

// Attachment holds raw payload bytes together with the metadata needed to
// render a single MIME leaf part. Attachments are owned exclusively by the
// message they were added to.
type Attachment struct {
	Data     []byte
	MainType string
	SubType  string
	Filename string

	// Inline selects the Content-Disposition; inline parts are meant to be
	// referenced from the HTML body via their cid: URI.
	Inline bool

	// ContentID is unique among the attachments of one message.
	ContentID string
}

// AttachOptions are the optional knobs of AttachData and Attach.
type AttachOptions struct {
	// MIMEType overrides extension-based content type detection. Must be in
	// main/sub form.
	MIMEType string

	// Inline marks the part as inline content rather than an attachment.
	Inline bool

	// ContentID overrides the synthesized content id. The caller is
	// responsible for keeping it unique within the message.
	ContentID string
}

// entity renders the attachment as a base64-encoded MIME leaf.
func (a Attachment) entity() *mime.Entity {
	disposition := "attachment"
	if a.Inline {
		disposition = "inline"
	}

	e := mime.NewLeaf(a.MainType+"/"+a.SubType, nil, mime.EncodingBase64, a.Data)
	e.SetHeader("Content-Disposition", stdmime.FormatMediaType(disposition, map[string]string{
		"filename": a.Filename,
	}))
	e.SetHeader("Content-ID", a.ContentID)
	return e
}

// resolveMIMEType determines the content type for a filename. An override is
// used verbatim; otherwise the filename extension is looked up in the
// standard type table, falling back to application/octet-stream. The result
// is always split into (main, sub).
func resolveMIMEType(filename, override string) (string, string) {
	mediaType := override
	if mediaType == "" {
		mediaType = stdmime.TypeByExtension(strings.ToLower(filepath.Ext(filename)))
		if mediaType != "" {
			// TypeByExtension may include parameters (text/plain; charset=utf-8).
			if parsed, _, err := stdmime.ParseMediaType(mediaType); err == nil {
				mediaType = parsed
			}
		}
		if mediaType == "" {
			mediaType = "application/octet-stream"
		}
	}

	mainType, subType, ok := strings.Cut(mediaType, "/")
	if !ok {
		return "application", "octet-stream"
	}
	return mainType, subType
}
