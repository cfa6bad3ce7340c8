package email

import "testing"

func TestResolveMIMEType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		filename string
		override string
		mainType string
		subType  string
	}{
		{"report.pdf", "", "application", "pdf"},
		{"photo.PNG", "", "image", "png"},
		{"notes.txt", "", "text", "plain"},
		{"archive.xyzzy", "", "application", "octet-stream"},
		{"no-extension", "", "application", "octet-stream"},
		{"data.bin", "application/x-custom", "application", "x-custom"},
		{"broken", "garbage", "application", "octet-stream"},
	}

	for _, tt := range tests {
		mainType, subType := resolveMIMEType(tt.filename, tt.override)
		if mainType != tt.mainType || subType != tt.subType {
			t.Errorf("resolveMIMEType(%q, %q): got %s/%s, want %s/%s",
				tt.filename, tt.override, mainType, subType, tt.mainType, tt.subType)
		}
	}
}

func TestAttachmentEntity(t *testing.T) {
	t.Parallel()

	a := Attachment{
		Data:      []byte{1, 2, 3},
		MainType:  "image",
		SubType:   "png",
		Filename:  "logo.png",
		Inline:    true,
		ContentID: "logo1",
	}

	e := a.entity()
	if got := e.Header("Content-Type"); got != "image/png" {
		t.Errorf("Content-Type: got %q, want %q", got, "image/png")
	}
	if got := e.Header("Content-Disposition"); got != "inline; filename=logo.png" {
		t.Errorf("Content-Disposition: got %q", got)
	}
	if got := e.Header("Content-ID"); got != "logo1" {
		t.Errorf("Content-ID: got %q, want %q", got, "logo1")
	}
	if got := e.Header("Content-Transfer-Encoding"); got != "base64" {
		t.Errorf("Content-Transfer-Encoding: got %q, want %q", got, "base64")
	}
}
