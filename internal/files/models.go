// Package files models uploaded binaries (photos, flags, consent forms) and
// the consent-gated visibility rules that govern serving them. Content is
// written once and never mutated; visibility is computed fresh on every read
// so a consent change takes effect on the next request with no invalidation.
package files

import (
	"bytes"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	dErrors "olympreg/pkg/domain-errors"
)

// Kind is the slot a file occupies on its owning record.
type Kind string

const (
	KindPhoto       Kind = "photo"
	KindFlag        Kind = "flag"
	KindConsentForm Kind = "consent_form"
)

// Format is the sniffed content format, never the declared one.
type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
	FormatPDF  Format = "pdf"
)

// ContentType returns the MIME type for download responses.
func (f Format) ContentType() string {
	switch f {
	case FormatPNG:
		return "image/png"
	case FormatJPEG:
		return "image/jpeg"
	case FormatPDF:
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}

// PhotoConsent is the visibility tier a participant chose for their photo.
type PhotoConsent string

const (
	// PhotoConsentUnset means no choice was recorded yet.
	PhotoConsentUnset PhotoConsent = ""
	// PhotoConsentNone withholds all use of the photo.
	PhotoConsentNone PhotoConsent = "none"
	// PhotoConsentBadgeOnly limits the photo to name-badge rendering.
	PhotoConsentBadgeOnly PhotoConsent = "badge_only"
	// PhotoConsentWebsite permits the public website and the badge.
	PhotoConsentWebsite PhotoConsent = "website_badge"
)

// File is one immutable upload. Superseded is set when a newer upload takes
// over the slot; a superseded file never becomes visible again.
type File struct {
	ID         string
	Kind       Kind
	Format     Format
	Filename   string
	Content    []byte
	Superseded bool
	UploadedAt time.Time
}

// Upload is the caller-declared part of a new file.
type Upload struct {
	Filename string
	Content  []byte
}

var magic = []struct {
	prefix []byte
	format Format
}{
	{[]byte("\x89PNG\r\n\x1a\n"), FormatPNG},
	{[]byte("\xff\xd8\xff"), FormatJPEG},
	{[]byte("%PDF-"), FormatPDF},
}

// Sniff detects the content format from magic bytes.
func Sniff(content []byte) (Format, bool) {
	for _, m := range magic {
		if bytes.HasPrefix(content, m.prefix) {
			return m.format, true
		}
	}
	return "", false
}

var extFormats = map[string]Format{
	".png":  FormatPNG,
	".jpg":  FormatJPEG,
	".jpeg": FormatJPEG,
	".pdf":  FormatPDF,
}

// extensionMatches checks the declared filename extension against the sniffed
// format, case-insensitively.
func extensionMatches(filename string, format Format) bool {
	ext := strings.ToLower(path.Ext(filename))
	return extFormats[ext] == format
}

// New validates an upload for a slot and builds the File. The sniffed format
// must be acceptable for the slot kind and the filename extension must agree
// with the sniffed format.
func New(kind Kind, up Upload) (File, error) {
	format, ok := Sniff(up.Content)
	if !ok {
		return File{}, dErrors.Newf(dErrors.CodeFormatInvalid,
			"%s file format not recognized", kind)
	}
	allowed := map[Kind][]Format{
		KindPhoto:       {FormatJPEG, FormatPNG},
		KindFlag:        {FormatPNG},
		KindConsentForm: {FormatPDF},
	}[kind]
	permitted := false
	for _, f := range allowed {
		if f == format {
			permitted = true
		}
	}
	if !permitted {
		return File{}, dErrors.Newf(dErrors.CodeFormatInvalid,
			"%s file is %s, which is not a permitted format", kind, format)
	}
	if !extensionMatches(up.Filename, format) {
		return File{}, dErrors.Newf(dErrors.CodeFormatInvalid,
			"%s filename extension does not match its %s content", kind, format)
	}
	return File{
		ID:         uuid.NewString(),
		Kind:       kind,
		Format:     format,
		Filename:   up.Filename,
		Content:    up.Content,
		UploadedAt: time.Now(),
	}, nil
}
