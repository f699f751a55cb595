package catalog

import (
	"sort"

	"github.com/samber/lo"
)

// state selects the field that receives character data.
type state int

const (
	stateNothing state = iota
	stateSiteName
	stateLink
	stateTitle
	stateSummary
	stateIconName
	stateSearchDescription
	stateSearchPart
	stateIgnored
	stateIgnoredLink
	stateAccountDependent
	stateAccountDependentLink
	stateAuthDescription
	stateAuthPart
	stateURLRewritingRules
)

var stateNames = map[state]string{
	stateNothing:              "nothing",
	stateSiteName:             "site-name",
	stateLink:                 "link",
	stateTitle:                "title",
	stateSummary:              "summary",
	stateIconName:             "icon-name",
	stateSearchDescription:    "search-description",
	stateSearchPart:           "search-part",
	stateIgnored:              "ignored-feeds",
	stateIgnoredLink:          "ignored-feed-link",
	stateAccountDependent:     "account-dependent-feeds",
	stateAccountDependentLink: "account-dependent-feed-link",
	stateAuthDescription:      "authentication-description",
	stateAuthPart:             "authentication-part",
	stateURLRewritingRules:    "url-rewriting-rules",
}

func (s state) String() string { return stateNames[s] }

const (
	tagSite                  = "site"
	tagLink                  = "link"
	tagTitle                 = "title"
	tagSummary               = "summary"
	tagIcon                  = "icon"
	tagSearchDescription     = "advancedSearch"
	tagPart                  = "part"
	tagIgnoredFeeds          = "ignored-feeds"
	tagAccountDependentFeeds = "account-dependent-feeds"
	tagAuthentication        = "authentication"
	tagURLRewritingRules     = "urlRewritingRules"
	tagAddURLParameter       = "addUrlParameter"
)

// nested lists the states that are closed back into their parent instead of
// the base state, with the tag that must close them.
var nested = map[state]struct {
	tag    string
	parent state
}{
	stateSearchPart:           {tag: tagPart, parent: stateSearchDescription},
	stateAuthPart:             {tag: tagPart, parent: stateAuthDescription},
	stateIgnoredLink:          {tag: tagLink, parent: stateIgnored},
	stateAccountDependentLink: {tag: tagLink, parent: stateAccountDependent},
}

// Parser accumulates a catalog description from a stream of XML events.
// The document schema is flat: the parser keeps a single cursor instead of an
// element stack, so only one level of nesting ("part" in "advancedSearch" or
// "authentication", "link" in the feed lists) is recognized.
//
// Tags that open a top-level section are matched in any state, e.g. "title"
// inside "advancedSearch" still switches to reading the title.
type Parser struct {
	state state

	siteName string
	title    string
	summary  string
	iconName string
	links    map[string]string
	linkType string

	searchStyle    string
	searchParts    map[string]string
	searchPartName string

	authType     string
	authParts    map[string]string
	authPartName string

	linkBuffer            string
	ignoredFeeds          map[string]struct{}
	accountDependentFeeds map[string]struct{}

	rewritingRules map[string]string
}

// NewParser makes a parser in the base state.
func NewParser() *Parser {
	return &Parser{
		state:                 stateNothing,
		links:                 map[string]string{},
		searchParts:           map[string]string{},
		authParts:             map[string]string{},
		ignoredFeeds:          map[string]struct{}{},
		accountDependentFeeds: map[string]struct{}{},
		rewritingRules:        map[string]string{},
	}
}

// StartElement handles an opening tag. Attribute presence is key presence.
func (p *Parser) StartElement(tag string, attrs map[string]string) {
	switch {
	case tag == tagSite:
		p.state = stateSiteName
	case tag == tagLink && p.state == stateNothing:
		if typ, ok := attrs["type"]; ok {
			p.linkType = typ
			p.state = stateLink
		}
	case tag == tagLink && p.state == stateIgnored:
		p.linkBuffer = ""
		p.state = stateIgnoredLink
	case tag == tagLink && p.state == stateAccountDependent:
		p.linkBuffer = ""
		p.state = stateAccountDependentLink
	case tag == tagTitle:
		p.state = stateTitle
	case tag == tagSummary:
		p.state = stateSummary
	case tag == tagIcon:
		p.state = stateIconName
	case tag == tagSearchDescription:
		if style, ok := attrs["style"]; ok {
			p.searchStyle = style
			p.state = stateSearchDescription
		}
	case tag == tagPart && p.state == stateSearchDescription:
		if name, ok := attrs["name"]; ok {
			p.searchPartName = name
			p.state = stateSearchPart
		}
	case tag == tagIgnoredFeeds:
		p.state = stateIgnored
	case tag == tagAccountDependentFeeds:
		p.state = stateAccountDependent
	case tag == tagAuthentication:
		if typ, ok := attrs["type"]; ok {
			p.authType = typ
			p.state = stateAuthDescription
		}
	case tag == tagPart && p.state == stateAuthDescription:
		if name, ok := attrs["name"]; ok {
			p.authPartName = name
			p.state = stateAuthPart
		}
	case tag == tagURLRewritingRules:
		p.state = stateURLRewritingRules
	case tag == tagAddURLParameter && p.state == stateURLRewritingRules:
		name, hasName := attrs["name"]
		value, hasValue := attrs["value"]
		if hasName && hasValue {
			p.rewritingRules[name] = value
		}
	}
}

// EndElement handles a closing tag. Closing a nested element returns to its
// parent, anything else returns to the base state.
func (p *Parser) EndElement(tag string) {
	n, ok := nested[p.state]
	if !ok || n.tag != tag {
		p.state = stateNothing
		return
	}

	switch p.state {
	case stateIgnoredLink:
		p.ignoredFeeds[p.linkBuffer] = struct{}{}
	case stateAccountDependentLink:
		p.accountDependentFeeds[p.linkBuffer] = struct{}{}
	}

	p.state = n.parent
}

// CharacterData appends text to the field selected by the current state.
func (p *Parser) CharacterData(text string) {
	switch p.state {
	case stateSiteName:
		p.siteName += text
	case stateTitle:
		p.title += text
	case stateSummary:
		p.summary += text
	case stateLink:
		p.links[p.linkType] += text
	case stateIconName:
		p.iconName += text
	case stateSearchPart:
		p.searchParts[p.searchPartName] += text
	case stateIgnoredLink, stateAccountDependentLink:
		p.linkBuffer += text
	case stateAuthPart:
		p.authParts[p.authPartName] += text
	}
}

// Link assembles the accumulated description. It reports false when the site
// name, the title or the main link is empty.
func (p *Parser) Link() (*Link, bool) {
	if p.siteName == "" || p.title == "" || p.links[RelMain] == "" {
		return nil, false
	}

	l := &Link{
		SiteName: p.siteName,
		Title:    p.title,
		Summary:  p.summary,
		Icon:     p.iconName,
		Links:    map[string]string{},
	}

	for rel, u := range p.links {
		if u != "" {
			l.Links[rel] = u
		}
	}

	if p.searchStyle != "" {
		l.Search = &Search{Style: p.searchStyle, Parts: copyMap(p.searchParts)}
	}

	l.IgnoredFeeds = sortedKeys(p.ignoredFeeds)
	l.AccountDependentFeeds = sortedKeys(p.accountDependentFeeds)

	// other authentication schemes are not supported and are dropped silently
	if p.authType == AuthBasic {
		l.Auth = &Authentication{Type: p.authType, Parts: copyMap(p.authParts)}
	}

	names := lo.Keys(p.rewritingRules)
	sort.Strings(names)
	for _, name := range names {
		l.URLRewritingRules = append(l.URLRewritingRules, URLRewritingRule{Name: name, Value: p.rewritingRules[name]})
	}

	return l, true
}

func copyMap(m map[string]string) map[string]string {
	if len(m) == 0 {
		return nil
	}
	return lo.Assign(m)
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	res := lo.Keys(set)
	sort.Strings(res)
	return res
}
