// Package goquery implements HTML processing using the goquery library:
// cleaning scraped DOMs, trimming them for prompt budgets, and parsing
// a structural section outline without any LLM involvement.
package goquery

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/cespare/xxhash/v2"
	"github.com/mwielgus/pagekb"
	"golang.org/x/net/html"
)

// CleanConfig controls which elements and attributes cleaning removes.
type CleanConfig struct {
	// Tags removed together with all their content.
	RemoveTagsWithContent []string

	// Tags removed by exact tag name only, never by class or id
	// pattern, to avoid false-positive removal of legitimately named
	// content blocks.
	RemoveByTagName []string

	// Attribute names stripped from every remaining element. A
	// trailing "*" matches by prefix (e.g. "data-*", "on*").
	RemoveAttributes []string

	// Purely presentational wrappers removed while keeping children.
	UnwrapTags []string

	// Elements with aria-hidden="true" are removed only when their
	// rendered text is shorter than this, so real content marked
	// aria-hidden for accessibility reasons survives.
	HiddenTextThreshold int
}

// DefaultCleanConfig returns the cleaning rules used for scraped
// marketing pages.
func DefaultCleanConfig() CleanConfig {
	return CleanConfig{
		RemoveTagsWithContent: []string{"script", "style", "noscript", "iframe", "head", "meta", "link"},
		RemoveByTagName:       []string{"nav", "footer", "aside"},
		RemoveAttributes:      []string{"style", "class", "id", "on*", "data-*"},
		UnwrapTags:            []string{"span", "font", "center"},
		HiddenTextThreshold:   50,
	}
}

var displayNoneRe = regexp.MustCompile(`(?i)display\s*:\s*none`)

// Cleaner strips scripts, styles, navigation chrome, and hidden content
// from raw scraped HTML. Clean is a pure transform; stats are returned,
// not logged.
type Cleaner struct {
	cfg CleanConfig
}

// NewCleaner returns a Cleaner using the given rules.
func NewCleaner(cfg CleanConfig) *Cleaner {
	return &Cleaner{cfg: cfg}
}

// Clean removes noise from raw HTML and returns the cleaned body
// markup with removal stats. Cleaning is idempotent: a second pass over
// its own output removes nothing.
func (c *Cleaner) Clean(rawHTML string) (string, pagekb.CleaningStats, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return "", pagekb.CleaningStats{}, pagekb.Errorf(pagekb.EINVALID, "failed to parse HTML: %v", err)
	}

	removed := map[string]int{
		"scripts":         0,
		"styles":          0,
		"comments":        0,
		"hidden_elements": 0,
		"nav_elements":    0,
		"footer_elements": 0,
		"other_removed":   0,
	}

	for _, tag := range c.cfg.RemoveTagsWithContent {
		sel := doc.Find(tag)
		switch tag {
		case "script":
			removed["scripts"] += sel.Length()
		case "style":
			removed["styles"] += sel.Length()
		case "head":
			// The parser synthesizes an empty head for body-only
			// input; removing it does not count, so cleaning stays
			// idempotent.
			sel.Each(func(_ int, s *goquery.Selection) {
				if s.Children().Length() > 0 || strings.TrimSpace(s.Text()) != "" {
					removed["other_removed"]++
				}
			})
		default:
			removed["other_removed"] += sel.Length()
		}
		sel.Remove()
	}

	removed["comments"] += removeComments(doc.Get(0))

	for _, tag := range c.cfg.RemoveByTagName {
		sel := doc.Find(tag)
		switch tag {
		case "nav":
			removed["nav_elements"] += sel.Length()
		case "footer":
			removed["footer_elements"] += sel.Length()
		default:
			removed["other_removed"] += sel.Length()
		}
		sel.Remove()
	}

	hidden := doc.Find("[hidden]")
	removed["hidden_elements"] += hidden.Length()
	hidden.Remove()

	doc.Find(`[aria-hidden="true"]`).Each(func(_ int, sel *goquery.Selection) {
		if len(strings.TrimSpace(sel.Text())) < c.cfg.HiddenTextThreshold {
			removed["hidden_elements"]++
			sel.Remove()
		}
	})

	doc.Find("[style]").Each(func(_ int, sel *goquery.Selection) {
		if style, _ := sel.Attr("style"); displayNoneRe.MatchString(style) {
			removed["hidden_elements"]++
			sel.Remove()
		}
	})

	c.cleanAttributes(doc)

	if len(c.cfg.UnwrapTags) > 0 {
		for _, n := range doc.Find(strings.Join(c.cfg.UnwrapTags, ", ")).Nodes {
			unwrapNode(n)
		}
	}

	var markup string
	if body := doc.Find("body"); body.Length() > 0 {
		markup, err = goquery.OuterHtml(body.First())
	} else {
		markup, err = doc.Html()
	}
	if err != nil {
		return "", pagekb.CleaningStats{}, pagekb.Errorf(pagekb.EINTERNAL, "failed to render cleaned HTML: %v", err)
	}
	cleaned := collapseWhitespace(markup)

	stats := pagekb.CleaningStats{
		OriginalDOMSize: len(rawHTML),
		CleanedDOMSize:  len(cleaned),
		EstimatedTokens: pagekb.EstimateTokens(cleaned),
		ContentHash:     fmt.Sprintf("%016x", xxhash.Sum64String(cleaned)),
		ElementsRemoved: removed,
	}
	return cleaned, stats, nil
}

func (c *Cleaner) cleanAttributes(doc *goquery.Document) {
	for _, n := range doc.Find("*").Nodes {
		kept := n.Attr[:0]
		for _, attr := range n.Attr {
			if !c.shouldRemoveAttr(attr.Key) {
				kept = append(kept, attr)
			}
		}
		n.Attr = kept
	}
}

func (c *Cleaner) shouldRemoveAttr(name string) bool {
	for _, pattern := range c.cfg.RemoveAttributes {
		if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
			if strings.HasPrefix(name, prefix) {
				return true
			}
		} else if name == pattern {
			return true
		}
	}
	return false
}

// DOMSummary builds a bounded-length text digest of cleaned HTML:
// heading text in document order prefixed by #-repeated-by-level, plus
// a short preview of the first paragraph of each top-level block. Used
// only as LLM context, never as structured data.
func DOMSummary(cleanedHTML string, maxLength int) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(cleanedHTML))
	if err != nil {
		return ""
	}

	var parts []string
	doc.Find("h1, h2, h3, h4, h5, h6").Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		if text == "" {
			return
		}
		level := int(goquery.NodeName(sel)[1] - '0')
		parts = append(parts, strings.Repeat("#", level)+" "+text)
	})

	root := doc.Find("main").First()
	if root.Length() == 0 {
		root = doc.Find("body").First()
	}
	root.ChildrenFiltered("section, article, div").Each(func(_ int, sel *goquery.Selection) {
		p := sel.Find("p").First()
		if p.Length() == 0 {
			return
		}
		text := strings.TrimSpace(p.Text())
		if text == "" {
			return
		}
		if len(text) > 200 {
			text = text[:200]
		}
		parts = append(parts, "Content: "+text+"...")
	})

	summary := strings.Join(parts, "\n")
	if len(summary) > maxLength {
		summary = summary[:maxLength] + "..."
	}
	return summary
}

func removeComments(n *html.Node) int {
	count := 0
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.CommentNode {
			n.RemoveChild(c)
			count++
		} else {
			count += removeComments(c)
		}
		c = next
	}
	return count
}

func unwrapNode(n *html.Node) {
	parent := n.Parent
	if parent == nil {
		return
	}
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		parent.InsertBefore(c, n)
		c = next
	}
	parent.RemoveChild(n)
}

var (
	multiSpaceRe = regexp.MustCompile(` +`)
	blankLineRe  = regexp.MustCompile(`\n\s*\n`)
)

func collapseWhitespace(markup string) string {
	markup = multiSpaceRe.ReplaceAllString(markup, " ")
	markup = blankLineRe.ReplaceAllString(markup, "\n\n")

	lines := strings.Split(markup, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			kept = append(kept, line)
		}
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}
