package extract

import (
	"regexp"
	"strings"
)

var noteIDPattern = regexp.MustCompile(`/(?:explore|search_result|discovery/item)/([a-zA-Z0-9]+)`)

// NoteIDFromURL pulls the note id out of a detail URL such as
// https://www.xiaohongshu.com/explore/{id}?xsec_token=... Listing links of the
// form /search_result/{id} resolve to the same note.
func NoteIDFromURL(u string) (string, bool) {
	m := noteIDPattern.FindStringSubmatch(u)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// StripQuery drops the query string, which carries per-user access tokens and
// must never be written to logs.
func StripQuery(u string) string {
	base, _, _ := strings.Cut(u, "?")
	return base
}

// absoluteURL resolves a site-relative href. Other non-http values yield "".
func absoluteURL(href string) string {
	switch {
	case strings.HasPrefix(href, "/"):
		return BaseURL + href
	case strings.HasPrefix(href, "http"):
		return href
	default:
		return ""
	}
}

// lastPathSegment returns the final path element of href, ignoring any query.
func lastPathSegment(href string) string {
	p := strings.TrimRight(StripQuery(href), "/")
	if i := strings.LastIndex(p, "/"); i >= 0 {
		return p[i+1:]
	}
	return p
}

// profileID extracts the user id from a /user/profile/{id} link.
func profileID(href string) (string, bool) {
	_, rest, found := strings.Cut(href, "/user/profile/")
	if !found {
		return "", false
	}
	id := strings.TrimRight(StripQuery(rest), "/")
	return id, id != ""
}
