package utils

import (
	"strings"

	whatwgUrl "github.com/nlnwa/whatwg-url/url"
)

var urlParser = whatwgUrl.NewParser(whatwgUrl.WithPercentEncodeSinglePercentSign())

// ResolveURL resolves ref against base the way a browser resolves href and
// src attributes. Empty refs stay empty and refs that cannot be parsed are
// returned trimmed but unchanged.
func ResolveURL(base, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}

	u, err := urlParser.ParseRef(base, ref)
	if err != nil {
		return ref
	}
	return u.Href(false)
}
