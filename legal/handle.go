package legal

import (
	"encoding/base64"
	"strings"
)

// DocumentHandle is an opaque, URL-safe token sufficient to re-fetch a
// decision without re-running the search. Handles are stable within a
// corpus generation: equal decisions yield equal handles.
type DocumentHandle struct {
	Source  SourceID
	Subtype Subtype
	// NativeID is the backend-native identifier: numeric id, URL path,
	// packed composite key or agenda-item GUID.
	NativeID string
	// PDFURL and LandingURL are optional re-fetch hints.
	PDFURL     string
	LandingURL string
}

// handleSep separates the native id from the optional hints inside the
// base64 payload. U+001F never occurs in backend identifiers.
const handleSep = "\x1f"

// String encodes the handle as "<source_id>:<subtype>:<native_id>" with the
// native composite packed as unpadded URL-safe base64.
func (h DocumentHandle) String() string {
	composite := h.NativeID
	if h.PDFURL != "" || h.LandingURL != "" {
		composite = strings.Join([]string{h.NativeID, h.PDFURL, h.LandingURL}, handleSep)
	}
	native := base64.RawURLEncoding.EncodeToString([]byte(composite))
	return string(h.Source) + ":" + string(h.Subtype) + ":" + native
}

// MarshalText makes handles JSON-encode as their opaque string form.
func (h DocumentHandle) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText parses the opaque string form.
func (h *DocumentHandle) UnmarshalText(b []byte) error {
	parsed, err := ParseHandle(string(b))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// ParseHandle decodes an opaque handle token. Malformed tokens surface as
// NotFound: from the caller's perspective the handle refers to no document.
func ParseHandle(s string) (DocumentHandle, error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) != 3 || parts[0] == "" || parts[2] == "" {
		return DocumentHandle{}, NotFoundf("handle %q is not in <source>:<subtype>:<id> form", s)
	}
	raw, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return DocumentHandle{}, NotFoundf("handle %q carries an undecodable id", s)
	}
	h := DocumentHandle{Source: SourceID(parts[0]), Subtype: Subtype(parts[1])}
	fields := strings.Split(string(raw), handleSep)
	h.NativeID = fields[0]
	if len(fields) > 1 {
		h.PDFURL = fields[1]
	}
	if len(fields) > 2 {
		h.LandingURL = fields[2]
	}
	if h.NativeID == "" {
		return DocumentHandle{}, NotFoundf("handle %q carries an empty native id", s)
	}
	return h, nil
}
