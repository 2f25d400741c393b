package naming

import (
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// FallbackDateToken is used when a metadata date field cannot be reduced to a
// recognizable digit form. Deliberately conspicuous so misdated files are easy
// to spot in the archive.
const FallbackDateToken = "240101"

// DateToken reduces a free-form broadcast date to the six-digit YYMMDD token
// used in canonical filenames. Accepts eight digits (full year) or six digits
// (two-digit year) after stripping everything non-numeric.
func DateToken(raw string) string {
	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	switch digits.Len() {
	case 8:
		return digits.String()[2:]
	case 6:
		return digits.String()
	default:
		return FallbackDateToken
	}
}

// DisplayDate converts a YYMMDD token to the "20YY. MM. DD" form the
// spreadsheet uses. Invalid tokens are returned unchanged.
func DisplayDate(token string) string {
	s := strings.TrimSpace(token)
	if len(s) != 6 {
		return s
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return s
		}
	}
	return "20" + s[:2] + ". " + s[2:4] + ". " + s[4:]
}

// YearMonth splits a YYMMDD token into the archive tree components
// ("20YY", "MM"). Malformed tokens map to ("Unknown", "Unknown").
func YearMonth(token string) (string, string) {
	if len(token) != 6 {
		return "Unknown", "Unknown"
	}
	return "20" + token[:2], token[2:4]
}

// Normalize applies NFC normalization and trims a metadata field. Sheet
// values arrive in mixed normalization forms depending on the OS that typed
// them; filenames must compare equal byte-for-byte.
func Normalize(field string) string {
	return norm.NFC.String(strings.TrimSpace(field))
}

// Sanitize strips path separators and control characters from a filename
// component.
func Sanitize(component string) string {
	var b strings.Builder
	b.Grow(len(component))
	for _, r := range component {
		switch {
		case r < 0x20, r == 0x7f:
		case r == '/' || r == '\\' || r == ':':
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// Canonical builds the canonical video filename for a category.
//
// Token order is category-specific:
//
//	testimony:  {region}_{YYMMDD}_{name}.mp4
//	others:     {YYMMDD}_{tag}_{region}_{name}.mp4
//
// The tag comes from category configuration; for the catch-all category the
// caller passes the country in place of the region.
func Canonical(category, tag, region, dateToken, name string) string {
	region = Sanitize(Normalize(region))
	name = Sanitize(Normalize(name))
	tag = Sanitize(Normalize(tag))

	if category == "testimony" {
		return region + "_" + dateToken + "_" + name + ".mp4"
	}
	return dateToken + "_" + tag + "_" + region + "_" + name + ".mp4"
}

// SpeakerRegion looks up a presenter-name region override.
func SpeakerRegion(overrides map[string]string, name string) (string, bool) {
	if len(overrides) == 0 {
		return "", false
	}
	region, ok := overrides[Normalize(name)]
	if !ok || strings.TrimSpace(region) == "" {
		return "", false
	}
	return region, true
}

// WithExt swaps a filename's extension, preserving the base name.
func WithExt(filename, ext string) string {
	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return base + ext
}
