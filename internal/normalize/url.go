package normalize

import (
	"net/url"
	"strings"
)

// CanonicalURL is the stored, comparable form of a submitted URL.
// HadQuery records whether the raw URL carried query parameters before they
// were stripped; submissions may only override a URL duplicate when the
// original URL had them (same path with different parameters is more likely
// to be a genuinely distinct article than an exact duplicate).
type CanonicalURL struct {
	Value    string
	HadQuery bool
}

// URL trims and parses a raw URL, strips query string and fragment, and
// reserializes the rest. Blank or unparsable input, and anything that is not
// an absolute http(s) URL, canonicalizes to the zero value; callers treat
// that as invalid.
func URL(raw string) CanonicalURL {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return CanonicalURL{}
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return CanonicalURL{}
	}
	scheme := strings.ToLower(parsed.Scheme)
	if (scheme != "http" && scheme != "https") || parsed.Host == "" {
		return CanonicalURL{}
	}

	host := strings.ToLower(parsed.Host)
	if scheme == "http" {
		host = strings.TrimSuffix(host, ":80")
	} else {
		host = strings.TrimSuffix(host, ":443")
	}
	parsed.Scheme = scheme
	parsed.Host = host

	hadQuery := len(parsed.Query()) > 0
	parsed.RawQuery = ""
	parsed.ForceQuery = false
	parsed.Fragment = ""
	parsed.RawFragment = ""

	return CanonicalURL{
		Value:    parsed.String(),
		HadQuery: hadQuery,
	}
}
