package catalog

import (
	"fmt"
	"io"

	xpp "github.com/mmcdole/goxpp"
	"golang.org/x/net/html/charset"
)

// Consume feeds the parser with the events of the given XML document.
func (p *Parser) Consume(r io.Reader) error {
	xp := xpp.NewXMLPullParser(r, false, charset.NewReaderLabel)

	for {
		event, err := xp.Next()
		if err != nil {
			return fmt.Errorf("read xml token: %w", err)
		}

		switch event {
		case xpp.StartTag:
			attrs := make(map[string]string, len(xp.Attrs))
			for _, attr := range xp.Attrs {
				attrs[attr.Name.Local] = attr.Value
			}
			p.StartElement(xp.Name, attrs)
		case xpp.EndTag:
			p.EndElement(xp.Name)
		case xpp.Text:
			p.CharacterData(xp.Text)
		case xpp.EndDocument:
			return nil
		}
	}
}

// Read parses a catalog description document.
func Read(r io.Reader) (*Link, error) {
	p := NewParser()
	if err := p.Consume(r); err != nil {
		return nil, err
	}

	l, ok := p.Link()
	if !ok {
		return nil, ErrInvalidLink
	}

	return l, nil
}
