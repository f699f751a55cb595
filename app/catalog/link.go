// Package catalog contains the network catalog description model and the
// reader of OPDS link description documents.
package catalog

import (
	"errors"
	"net/url"
	"sort"
	"strings"
)

// ErrInvalidLink is returned when a document does not describe a usable catalog:
// the site name, the title or the main link is missing.
var ErrInvalidLink = errors.New("invalid catalog description")

// Well-known link relation types.
const (
	RelMain   = "main"
	RelSearch = "search"
)

// Well-known advanced search parts.
const (
	PartTitleOrSeries = "titleOrSeries"
	PartAuthor        = "author"
	PartTag           = "tag"
	PartAnnotation    = "annotation"
)

// Well-known authentication parts.
const (
	PartSignInURL  = "signInUrl"
	PartSignOutURL = "signOutUrl"
)

// AuthBasic is the only authentication type a Link may carry.
const AuthBasic = "basic"

// Link describes a network catalog: where its feeds live and how to talk to it.
type Link struct {
	SiteName              string             `json:"site_name"`
	Title                 string             `json:"title"`
	Summary               string             `json:"summary,omitempty"`
	Icon                  string             `json:"icon,omitempty"`
	Links                 map[string]string  `json:"links"`
	Search                *Search            `json:"search,omitempty"`
	IgnoredFeeds          []string           `json:"ignored_feeds,omitempty"`
	AccountDependentFeeds []string           `json:"account_dependent_feeds,omitempty"`
	Auth                  *Authentication    `json:"auth,omitempty"`
	URLRewritingRules     []URLRewritingRule `json:"url_rewriting_rules,omitempty"`
}

// Search describes the advanced search form of a catalog.
type Search struct {
	Style string            `json:"style"`
	Parts map[string]string `json:"parts,omitempty"`
}

// Part returns the named part, empty if the document did not define it.
func (s Search) Part(name string) string { return s.Parts[name] }

// TitleOrSeries returns the title-or-series search part.
func (s Search) TitleOrSeries() string { return s.Part(PartTitleOrSeries) }

// Author returns the author search part.
func (s Search) Author() string { return s.Part(PartAuthor) }

// Tag returns the tag search part.
func (s Search) Tag() string { return s.Part(PartTag) }

// Annotation returns the annotation search part.
func (s Search) Annotation() string { return s.Part(PartAnnotation) }

// Authentication describes how to sign in to a catalog.
type Authentication struct {
	Type  string            `json:"type"`
	Parts map[string]string `json:"parts,omitempty"`
}

// SignInURL returns the URL to sign in with.
func (a Authentication) SignInURL() string { return a.Parts[PartSignInURL] }

// SignOutURL returns the URL to sign out with.
func (a Authentication) SignOutURL() string { return a.Parts[PartSignOutURL] }

// URLRewritingRule adds a query parameter to every catalog URL.
type URLRewritingRule struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// MainURL returns the catalog root feed URL.
func (l *Link) MainURL() string { return l.Links[RelMain] }

// SearchURL returns the search URL with the escaped query put in place of "%s",
// empty if the catalog has no search link.
func (l *Link) SearchURL(query string) string {
	tmpl, ok := l.Links[RelSearch]
	if !ok || tmpl == "" {
		return ""
	}
	return strings.ReplaceAll(tmpl, "%s", url.QueryEscape(query))
}

// RewriteURL applies the rewriting rules to the given URL. Parameters the URL
// already carries are left untouched. Unparsable URLs are returned as is.
func (l *Link) RewriteURL(u string) string {
	if len(l.URLRewritingRules) == 0 {
		return u
	}

	parsed, err := url.Parse(u)
	if err != nil {
		return u
	}

	q := parsed.Query()
	changed := false
	for _, rule := range l.URLRewritingRules {
		if q.Has(rule.Name) {
			continue
		}
		q.Set(rule.Name, rule.Value)
		changed = true
	}

	if !changed {
		return u
	}

	parsed.RawQuery = q.Encode()
	return parsed.String()
}

// IsIgnored reports whether the feed with the given id must not be shown.
func (l *Link) IsIgnored(feedID string) bool { return contains(l.IgnoredFeeds, feedID) }

// IsAccountDependent reports whether the feed with the given id requires a signed in user.
func (l *Link) IsAccountDependent(feedID string) bool {
	return contains(l.AccountDependentFeeds, feedID)
}

func contains(sorted []string, s string) bool {
	i := sort.SearchStrings(sorted, s)
	return i < len(sorted) && sorted[i] == s
}
