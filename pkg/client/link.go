package client

import (
	"net/url"
	"regexp"
)

// linkRegex matches one entry of a Link header: <url>; rel="name".
var linkRegex = regexp.MustCompile(`<([^>]+)>;\s*rel="([^"]+)"`)

// ParseNextLink returns the rel="next" URL of a Link header, or "" when the
// header has none.
func ParseNextLink(header string) string {
	if header == "" {
		return ""
	}
	// Entries are matched in place: a URL may itself contain commas.
	for _, matches := range linkRegex.FindAllStringSubmatch(header, -1) {
		if matches[2] == "next" {
			return matches[1]
		}
	}
	return ""
}

// resolveNext makes a next link absolute against the page it was served with.
func resolveNext(pageURL, next string) (string, error) {
	if next == "" {
		return "", nil
	}
	ref, err := url.Parse(next)
	if err != nil {
		return "", err
	}
	if ref.IsAbs() {
		return ref.String(), nil
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(ref).String(), nil
}
