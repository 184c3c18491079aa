package protocol

import "github.com/google/uuid"

// A marker is a transient title preface of the form "<identity> | " that the
// agent writes into a window's title so the host can recover which window an
// identity refers to. The host matches it verbatim; do not change the format.

const (
	identityLen = 36 // canonical UUID string
	markerSep   = " | "
)

// Marker returns the title preface for an identity.
func Marker(identity string) string {
	return identity + markerSep
}

// ExtractMarker returns the identity embedded at the start of a title.
// It accepts only a canonical UUID followed by the separator.
func ExtractMarker(title string) (string, bool) {
	if len(title) < identityLen+len(markerSep) {
		return "", false
	}
	if title[identityLen:identityLen+len(markerSep)] != markerSep {
		return "", false
	}
	identity := title[:identityLen]
	if _, err := uuid.Parse(identity); err != nil {
		return "", false
	}
	return identity, true
}

// StripMarker removes a leading marker from a title, if one is present.
func StripMarker(title string) string {
	if _, ok := ExtractMarker(title); ok {
		return title[identityLen+len(markerSep):]
	}
	return title
}
