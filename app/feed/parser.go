package feed

import (
	"bytes"
	"cmp"
	"fmt"
	"iter"
	"strings"

	"github.com/mmcdole/gofeed"
)

type Parser struct {
	gofeedParser *gofeed.Parser
}

func NewParser() *Parser {
	return &Parser{
		gofeedParser: gofeed.NewParser(),
	}
}

// Run parses RSS, Atom or JSON Feed data. Entries are normalized lazily, in
// feed order, as the returned sequence is consumed.
func (p *Parser) Run(data []byte) (*Metadata, iter.Seq[Entry], error) {
	feed, err := p.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	metadata := &Metadata{
		Title:    feed.Title,
		Link:     feed.Link,
		Language: feed.Language,
	}

	entries := func(yield func(Entry) bool) {
		for _, item := range feed.Items {
			if item == nil {
				continue
			}
			if !yield(p.normalizeItem(item)) {
				return
			}
		}
	}

	return metadata, entries, nil
}

func (p *Parser) normalizeItem(item *gofeed.Item) Entry {
	return Entry{
		Title:     strings.TrimSpace(item.Title),
		Content:   cmp.Or(item.Description, item.Content),
		Link:      strings.TrimSpace(item.Link),
		Published: cmp.Or(item.Published, item.Updated),
	}
}
