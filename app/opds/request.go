// Package opds connects catalog descriptions with the network manager:
// it loads descriptions and feeds and signs in to catalogs.
package opds

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"github.com/mmcdole/gofeed/atom"

	"github.com/Semior001/opdsnet/app/catalog"
	"github.com/Semior001/opdsnet/app/network"
)

//go:generate moq -out mock_performer.go . Performer

// Performer dispatches batches of requests.
type Performer interface {
	Perform(ctx context.Context, reqs ...network.Request) string
}

// ErrNotAtom is returned when a catalog replies with something that is not
// an Atom feed.
var ErrNotAtom = errors.New("not an atom feed")

// CatalogRequest downloads and parses a catalog description.
type CatalogRequest struct {
	network.Base
	buf  bytes.Buffer
	Link *catalog.Link
}

// NewCatalogRequest makes a request for the description at u.
func NewCatalogRequest(u string) *CatalogRequest {
	return &CatalogRequest{Base: network.NewBase(network.Params{URL: u})}
}

// HandleContent keeps the body to parse it after the exchange.
func (r *CatalogRequest) HandleContent(data []byte) { r.buf.Write(data) }

// After parses the received description.
func (r *CatalogRequest) After(errMsg string) bool {
	if errMsg != "" {
		return r.Base.After(errMsg)
	}

	l, err := catalog.Read(&r.buf)
	if err != nil {
		r.SetErrorMessage(fmt.Sprintf("parse catalog description from %s: %v", r.Params().URL, err))
		return false
	}

	r.Link = l
	return true
}

// Feed is a parsed page of a catalog.
type Feed struct {
	Title   string
	Next    string
	Entries []Entry
}

// Entry is a single item of a catalog page.
type Entry struct {
	ID    string
	Title string
	// Summary is a plain text, without markup.
	Summary string
	Authors []string
	Links   []EntryLink
	// AccountDependent entries are available only to the signed in users.
	AccountDependent bool
}

// EntryLink is a link of an entry: a subsection, an acquisition or an image.
type EntryLink struct {
	Href string
	Rel  string
	Type string
}

// FeedRequest downloads a page of a catalog.
type FeedRequest struct {
	network.Base
	link *catalog.Link
	buf  bytes.Buffer
	Feed Feed
}

// NewFeedRequest makes a request for the page at u of the catalog.
// The catalog's rewriting rules are applied to the URL.
func NewFeedRequest(link *catalog.Link, u string, p network.Params) *FeedRequest {
	p.URL = link.RewriteURL(u)
	return &FeedRequest{Base: network.NewBase(p), link: link}
}

// HandleContent keeps the body to parse it after the exchange.
func (r *FeedRequest) HandleContent(data []byte) { r.buf.Write(data) }

// After parses the received feed.
func (r *FeedRequest) After(errMsg string) bool {
	if errMsg != "" {
		return r.Base.After(errMsg)
	}

	feed, err := r.parse()
	if err != nil {
		r.SetErrorMessage(fmt.Sprintf("parse feed from %s: %v", r.Params().URL, err))
		return false
	}

	r.Feed = feed
	return true
}

func (r *FeedRequest) parse() (Feed, error) {
	data := r.buf.Bytes()
	if gofeed.DetectFeedType(bytes.NewReader(data)) != gofeed.FeedTypeAtom {
		return Feed{}, ErrNotAtom
	}

	fp := &atom.Parser{}
	af, err := fp.Parse(bytes.NewReader(data))
	if err != nil {
		return Feed{}, fmt.Errorf("parse atom: %w", err)
	}

	base, err := url.Parse(r.Params().URL)
	if err != nil {
		return Feed{}, fmt.Errorf("parse feed url: %w", err)
	}

	res := Feed{Title: af.Title}
	for _, l := range af.Links {
		if l.Rel == "next" {
			res.Next = resolve(base, l.Href)
		}
	}

	for _, e := range af.Entries {
		entry := Entry{ID: e.ID, Title: e.Title, Summary: plainText(e.Summary)}
		if entry.Summary == "" && e.Content != nil {
			entry.Summary = plainText(e.Content.Value)
		}

		for _, a := range e.Authors {
			entry.Authors = append(entry.Authors, a.Name)
		}

		ignored := false
		for _, l := range e.Links {
			href := resolve(base, l.Href)
			entry.Links = append(entry.Links, EntryLink{Href: href, Rel: l.Rel, Type: l.Type})
			ignored = ignored || r.link.IsIgnored(href)
			entry.AccountDependent = entry.AccountDependent || r.link.IsAccountDependent(href)
		}

		if ignored || r.link.IsIgnored(e.ID) {
			continue
		}

		res.Entries = append(res.Entries, entry)
	}

	return res, nil
}

// plainText strips the markup of html and xhtml texts.
func plainText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.TrimSpace(s)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}

	return strings.Join(strings.Fields(doc.Text()), " ")
}

func resolve(base *url.URL, href string) string {
	u, err := base.Parse(href)
	if err != nil {
		return href
	}
	return u.String()
}
