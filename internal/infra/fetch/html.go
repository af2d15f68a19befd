package fetch

import (
	"bytes"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"composer/internal/domain"
)

var alternateMarkerPattern = regexp.MustCompile(`\s*` + regexp.QuoteMeta(domain.AlternateMarker) + `(https?://\S+)\s*`)

// findAlternate looks for the machine readable document a registry page
// points at: a head link of the alternate media type first, then a marker
// inside pre or code text.
func findAlternate(base *url.URL, body []byte) (*url.URL, bool) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, false
	}
	if target, ok := findAlternateLink(doc, base); ok {
		return target, true
	}
	return findAlternateMarker(doc)
}

func findAlternateLink(doc *html.Node, base *url.URL) (*url.URL, bool) {
	for n := range doc.Descendants() {
		if n.Type != html.ElementNode || n.DataAtom != atom.Link || !inHead(n) {
			continue
		}
		if !strings.EqualFold(attr(n, "rel"), "alternate") || attr(n, "type") != domain.AlternateMediaType {
			continue
		}
		href := attr(n, "href")
		if href == "" {
			continue
		}
		target, err := base.Parse(href)
		if err != nil {
			continue
		}
		return target, true
	}
	return nil, false
}

func findAlternateMarker(doc *html.Node) (*url.URL, bool) {
	for n := range doc.Descendants() {
		if n.Type != html.ElementNode || (n.DataAtom != atom.Pre && n.DataAtom != atom.Code) {
			continue
		}
		match := alternateMarkerPattern.FindStringSubmatch(textContent(n))
		if match == nil {
			continue
		}
		target, err := url.Parse(match[1])
		if err != nil {
			continue
		}
		return target, true
	}
	return nil, false
}

func inHead(n *html.Node) bool {
	parent := n.Parent
	return parent != nil && parent.DataAtom == atom.Head &&
		parent.Parent != nil && parent.Parent.DataAtom == atom.Html
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var b strings.Builder
	for d := range n.Descendants() {
		if d.Type == html.TextNode {
			b.WriteString(d.Data)
		}
	}
	return b.String()
}
