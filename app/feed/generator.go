package feed

import (
	"bytes"
	"cmp"
	"encoding/xml"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/lysyi3m/rss-monitor/app/database"
)

// Channel describes the RSS channel wrapped around matched articles.
type Channel struct {
	Title       string
	Link        string
	Description string
	SelfLink    string
}

type Generator struct {
	version string
}

func NewGenerator(version string) *Generator {
	return &Generator{version: version}
}

// Run renders articles as an RSS 2.0 document, one category per matched keyword.
func (g *Generator) Run(channel Channel, articles []database.Article) (string, error) {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<rss version="2.0" xmlns:atom="http://www.w3.org/2005/Atom">`)
	buf.WriteString("\n  <channel>\n")

	g.writeElement(&buf, "title", cmp.Or(channel.Title, "RSS Monitor"), 4)
	g.writeElement(&buf, "link", channel.Link, 4)
	g.writeElement(&buf, "description", cmp.Or(channel.Description, "Feed entries matching monitored keywords"), 4)

	if channel.SelfLink != "" {
		buf.WriteString(fmt.Sprintf("    <atom:link href=\"%s\" rel=\"self\" type=\"application/rss+xml\" />\n",
			html.EscapeString(channel.SelfLink)))
	}

	lastBuildDate := time.Now().In(time.Local)
	if len(articles) > 0 {
		lastBuildDate = articles[0].FoundDate.In(time.Local)
	}

	g.writeElement(&buf, "lastBuildDate", lastBuildDate.Format(time.RFC1123Z), 4)
	g.writeElement(&buf, "generator", fmt.Sprintf("RSS-Monitor/%s", g.version), 4)

	for _, article := range articles {
		g.writeItem(&buf, article)
	}

	buf.WriteString("  </channel>\n</rss>")

	return buf.String(), nil
}

func (g *Generator) writeItem(buf *bytes.Buffer, article database.Article) {
	buf.WriteString("    <item>\n")

	if article.URL != "" {
		buf.WriteString(fmt.Sprintf("      <guid isPermaLink=\"%t\">", g.isURL(article.URL)))
		xml.EscapeText(buf, []byte(article.URL))
		buf.WriteString("</guid>\n")
	}

	g.writeElement(buf, "title", article.Title, 6)

	if g.isURL(article.URL) {
		g.writeElement(buf, "link", article.URL, 6)
	}

	g.writeElement(buf, "description", cmp.Or(strings.TrimSpace(article.Content), "No description available"), 6)
	g.writeElement(buf, "pubDate", article.FoundDate.In(time.Local).Format(time.RFC1123Z), 6)

	if article.SourceName != "" {
		g.writeElement(buf, "source", article.SourceName, 6)
	}

	for _, keyword := range article.Keywords {
		g.writeElement(buf, "category", keyword, 6)
	}

	buf.WriteString("    </item>\n")
}

func (g *Generator) writeElement(buf *bytes.Buffer, tag, content string, indent int) {
	if content == "" {
		return
	}

	for i := 0; i < indent; i++ {
		buf.WriteByte(' ')
	}

	buf.WriteString("<")
	buf.WriteString(tag)
	buf.WriteString(">")
	xml.EscapeText(buf, []byte(content))
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteString(">\n")
}

func (g *Generator) isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
