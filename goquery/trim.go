package goquery

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mwielgus/pagekb"
	"golang.org/x/net/html"
)

// DefaultTrimThreshold is the leaf text length above which trimming
// truncates.
const DefaultTrimThreshold = 500

// TrimForGrouping produces a token-bounded copy of cleaned HTML for
// the semantic grouping call: tag structure is preserved while leaf
// text longer than the threshold is truncated with an ellipsis. Only
// leaf elements are touched, so nested structure never collapses.
func TrimForGrouping(cleanedHTML string, threshold int) (string, error) {
	if threshold <= 0 {
		threshold = DefaultTrimThreshold
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(cleanedHTML))
	if err != nil {
		return "", pagekb.Errorf(pagekb.EINVALID, "failed to parse HTML: %v", err)
	}

	doc.Find("p, li, td, th, span, div").Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		if len(text) <= threshold {
			return
		}
		if sel.Children().Length() > 0 {
			return
		}
		sel.SetText(text[:threshold] + "...")
	})

	// Long loose text nodes under a single-child parent get the same
	// truncation.
	trimLooseText(doc.Get(0), threshold)

	rendered, err := doc.Html()
	if err != nil {
		return "", pagekb.Errorf(pagekb.EINTERNAL, "failed to render trimmed HTML: %v", err)
	}
	return rendered, nil
}

func trimLooseText(n *html.Node, threshold int) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			text := strings.TrimSpace(c.Data)
			if len(text) > threshold && childCount(n) == 1 {
				c.Data = text[:threshold] + "..."
			}
			continue
		}
		if c.Type == html.ElementNode && (c.Data == "script" || c.Data == "style") {
			continue
		}
		trimLooseText(c, threshold)
	}
}

func childCount(n *html.Node) int {
	count := 0
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		count++
	}
	return count
}
