package scrape

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
)

// WordEntry is one extracted dictionary entry: the representation markup
// (kanji + furigana) and every meaning wrapper that contains an example
// sentence. Wrappers without sentences carry too little display value for
// the e-ink card and are skipped.
type WordEntry struct {
	Slug           string
	Representation string
	Wrappers       []string
}

// sanitizePolicy keeps the structural and furigana markup the widget
// styles against and strips everything executable or presentational.
func sanitizePolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("div", "span", "ruby", "rt", "rb", "ul", "ol", "li", "a")
	p.AllowAttrs("class").OnElements("div", "span", "ul", "ol", "li", "a")
	p.AllowAttrs("href").OnElements("a")
	p.RequireNoFollowOnLinks(true)
	return p
}

// Extract parses a jisho.org search result page and returns its word
// entries with sanitized fragments.
func Extract(r io.Reader, policy *bluemonday.Policy) ([]WordEntry, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("scrape: parse page: %w", err)
	}

	var entries []WordEntry
	doc.Find("div.concept_light").Each(func(_ int, sel *goquery.Selection) {
		rep := sel.Find("div.concept_light-representation").First()
		if rep.Length() == 0 {
			return
		}
		repHTML, err := goquery.OuterHtml(rep)
		if err != nil {
			return
		}

		var wrappers []string
		sel.Find("div.meaning-wrapper").Each(func(_ int, w *goquery.Selection) {
			if w.Find("div.sentence").Length() == 0 {
				return
			}
			stripNoise(w)
			wrapperHTML, err := goquery.OuterHtml(w)
			if err != nil {
				return
			}
			wrappers = append(wrappers, flatten(policy.Sanitize(wrapperHTML)))
		})
		if len(wrappers) == 0 {
			return
		}

		slug := slugFor(rep)
		if slug == "" {
			return
		}
		entries = append(entries, WordEntry{
			Slug:           slug,
			Representation: flatten(policy.Sanitize(repHTML)),
			Wrappers:       wrappers,
		})
	})
	return entries, nil
}

// stripNoise removes jisho presentation cruft the card never renders:
// definition-section dividers, supplemental_info tags, and the
// zero-width-space placeholder spans jisho pads meanings with.
func stripNoise(sel *goquery.Selection) {
	sel.Find("span.meaning-definition-section_divider").Remove()
	sel.Find("span.supplemental_info").Remove()
	sel.Find("span").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.Text() == "​"
	}).Remove()
}

// flatten drops literal newlines so stored fragments stay single-line and
// the compressed payload carries no formatting whitespace.
func flatten(html string) string {
	return strings.ReplaceAll(html, "\n", "")
}

// slugFor derives the word's identity from its representation: the text of
// the .text element (the kanji form), which jisho keeps unique per entry.
func slugFor(rep *goquery.Selection) string {
	text := rep.Find(".text").First()
	if text.Length() == 0 {
		return ""
	}
	return strings.Join(strings.Fields(textContent(text)), "")
}

// textContent collapses a selection to the concatenation of its text nodes.
func textContent(sel *goquery.Selection) string {
	var b strings.Builder
	for _, n := range sel.Nodes {
		collectText(n, &b)
	}
	return b.String()
}

func collectText(n *html.Node, b *strings.Builder) {
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, b)
	}
}
