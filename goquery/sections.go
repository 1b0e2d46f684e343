package goquery

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"github.com/mwielgus/pagekb"
	"golang.org/x/net/html"
)

// The outline parser walks cleaned HTML purely structurally to produce
// a flat list of candidate sections before any LLM sees the page. Three
// independent passes run in order: headings (with FAQ accordion and
// comparison table probes), CTA blocks, testimonial blocks.

// FAQItem is one accordion question/answer pair recovered locally.
type FAQItem struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// TableRow is one data row of a parsed comparison table, tagged with
// the category divider it appeared under, if any.
type TableRow struct {
	Category string   `json:"category"`
	Cells    []string `json:"cells"`
}

// TableData is a comparison table parsed into columns, data rows, and
// category divider labels.
type TableData struct {
	Columns    []string   `json:"columns"`
	Rows       []TableRow `json:"rows"`
	Categories []string   `json:"categories"`
}

// PhoneNumber is a tel: link with surrounding context.
type PhoneNumber struct {
	Number  string `json:"number"`
	Href    string `json:"href"`
	Context string `json:"context"`
}

// ContactForm summarizes one contact/quote form.
type ContactForm struct {
	Heading string   `json:"heading"`
	Fields  []string `json:"fields"`
	Preview string   `json:"preview"`
}

// CTAButton is a short role="heading" text fragment treated as a CTA
// slogan.
type CTAButton struct {
	Text string `json:"text"`
}

// Testimonial is one quote recovered from a blockquote or a
// testimonial-classed element.
type Testimonial struct {
	Quote  string `json:"quote"`
	Source string `json:"source"`
}

var (
	navKeywords = []string{
		"menu", "nav", "skip to", "jump to", "back to",
		"close", "open", "toggle", "expand", "collapse",
		"sign in", "log in", "search",
	}
	formKeywords = []string{"quote", "contact", "pricing", "demo", "email", "phone"}

	testimonialClassRes = map[string]*regexp.Regexp{
		"testimonial": regexp.MustCompile(`(?i)testimonial`),
		"quote":       regexp.MustCompile(`(?i)quote`),
		"review":      regexp.MustCompile(`(?i)review`),
	}
)

// ParseSections extracts the flat section outline from cleaned HTML.
// Section IDs are unique within one call.
func ParseSections(cleanedHTML string) ([]pagekb.ParsedSection, pagekb.ParseStats, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(cleanedHTML))
	if err != nil {
		return nil, pagekb.ParseStats{}, pagekb.Errorf(pagekb.EINVALID, "failed to parse HTML: %v", err)
	}

	var stats pagekb.ParseStats
	alloc := pagekb.NewIDAllocator()

	sections := parseHeadingSections(doc, alloc, &stats)
	if cta, ok := parseCTASection(doc, alloc); ok {
		sections = append(sections, cta)
		stats.CTASections++
	}
	if testimonial, ok := parseTestimonialSection(doc, alloc); ok {
		sections = append(sections, testimonial)
		stats.Testimonials++
	}

	stats.TotalSections = len(sections)
	return sections, stats, nil
}

func parseHeadingSections(doc *goquery.Document, alloc *pagekb.IDAllocator, stats *pagekb.ParseStats) []pagekb.ParsedSection {
	var sections []pagekb.ParsedSection

	doc.Find("h1, h2, h3, h4").Each(func(_ int, sel *goquery.Selection) {
		title := strings.TrimSpace(sel.Text())
		if len(title) < 2 {
			return
		}
		if isNavigationHeading(title, sel) {
			return
		}

		tag := goquery.NodeName(sel)
		level := int(tag[1] - '0')
		preview, hasList, contentLength := contentPreview(sel.Nodes[0])

		sectionType := pagekb.SectionTypeHeading
		var extra map[string]any

		if faqItems := probeFAQ(sel.Nodes[0]); len(faqItems) > 0 {
			sectionType = pagekb.SectionTypeFAQ
			extra = map[string]any{"faq_items": faqItems, "count": len(faqItems)}
			stats.FAQSections++
		} else if table := probeTable(sel.Nodes[0]); table != nil {
			sectionType = pagekb.SectionTypeTable
			extra = map[string]any{"table_data": *table}
			stats.Tables++
		}

		sections = append(sections, pagekb.ParsedSection{
			ID:                     alloc.Allocate(title),
			Title:                  title,
			Level:                  level,
			SectionType:            sectionType,
			Tag:                    tag,
			ContentPreview:         preview,
			HasList:                hasList,
			HasTable:               sectionType == pagekb.SectionTypeTable || hasSiblingTable(sel.Nodes[0]),
			EstimatedContentLength: contentLength,
			ExtraData:              extra,
		})
		stats.Headings++
	})

	return sections
}

// isNavigationHeading filters menu and chrome headings out of the
// outline: very short titles, known navigation keywords, and anything
// inside a nav, header, or footer ancestor.
func isNavigationHeading(title string, sel *goquery.Selection) bool {
	if len(title) <= 3 {
		return true
	}
	lower := strings.ToLower(title)
	for _, keyword := range navKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return sel.ParentsFiltered("nav, header, footer").Length() > 0
}

// contentPreview scans the heading's following siblings up to the next
// heading, collecting ~200 chars of preview text, a list flag, and the
// total text length of the block.
func contentPreview(heading *html.Node) (preview string, hasList bool, contentLength int) {
	var parts []string

	for n := heading.NextSibling; n != nil; n = n.NextSibling {
		if n.Type != html.ElementNode {
			continue
		}
		if isHeadingTag(n.Data, 6) {
			break
		}
		if n.Data == "ul" || n.Data == "ol" {
			hasList = true
		}
		text := textContent(n)
		if text == "" {
			continue
		}
		contentLength += len(text)
		if len(strings.Join(parts, " ")) < 200 {
			parts = append(parts, text)
		}
	}

	preview = strings.Join(parts, " ")
	if len(preview) >= 200 {
		preview = preview[:200] + "..."
	}
	return preview, hasList, contentLength
}

// probeFAQ looks for an accordion pattern within the heading's sibling
// subtree, bounded by the next heading: buttons carrying aria-controls
// (or, as a fallback, aria-expanded), each paired with its answer.
func probeFAQ(heading *html.Node) []FAQItem {
	var controls, expanded []*html.Node
	for n := heading.NextSibling; n != nil; n = n.NextSibling {
		if n.Type != html.ElementNode {
			continue
		}
		if isHeadingTag(n.Data, 4) {
			break
		}
		collectButtons(n, &controls, &expanded)
	}

	buttons := controls
	if len(buttons) == 0 {
		buttons = expanded
	}

	var items []FAQItem
	for _, button := range buttons {
		question := textContent(button)
		if len(question) < 10 {
			continue
		}

		// The answer is usually the immediately following sibling div,
		// or a role="region" div within the button's parent.
		answer := ""
		if next := nextElementSibling(button); next != nil && next.Data == "div" {
			answer = textContent(next)
		} else if button.Parent != nil {
			if region := findRegionDiv(button.Parent); region != nil {
				answer = textContent(region)
			}
		}

		if answer != "" || strings.Contains(question, "?") {
			items = append(items, FAQItem{Question: question, Answer: answer})
		}
	}
	return items
}

func collectButtons(n *html.Node, controls, expanded *[]*html.Node) {
	if n.Type == html.ElementNode && n.Data == "button" {
		if attrValue(n, "aria-controls") != "" {
			*controls = append(*controls, n)
		} else if attrValue(n, "aria-expanded") != "" {
			*expanded = append(*expanded, n)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectButtons(c, controls, expanded)
	}
}

func findRegionDiv(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "div" && attrValue(n, "role") == "region" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if region := findRegionDiv(c); region != nil {
			return region
		}
	}
	return nil
}

// probeTable scans the heading's following siblings up to the next
// heading for the first table, directly or nested.
func probeTable(heading *html.Node) *TableData {
	for n := heading.NextSibling; n != nil; n = n.NextSibling {
		if n.Type != html.ElementNode {
			continue
		}
		if isHeadingTag(n.Data, 4) {
			break
		}
		if table := findTable(n); table != nil {
			data := parseTable(table)
			return &data
		}
	}
	return nil
}

func hasSiblingTable(heading *html.Node) bool {
	for n := heading.NextSibling; n != nil; n = n.NextSibling {
		if n.Type != html.ElementNode {
			continue
		}
		if isHeadingTag(n.Data, 4) {
			break
		}
		if findTable(n) != nil {
			return true
		}
	}
	return false
}

// parseTable turns a comparison table into columns, data rows, and
// category labels. A row holding a single short th cell without
// checkmark tokens is a category divider, not data; rows where every
// cell is a th are header rows contributing columns.
func parseTable(table *html.Node) TableData {
	data := TableData{Columns: []string{}, Rows: []TableRow{}, Categories: []string{}}
	currentCategory := ""

	for _, row := range descendants(table, "tr") {
		cells := rowCells(row)
		if len(cells) == 0 {
			continue
		}

		if len(cells) == 1 && cells[0].Data == "th" {
			label := normalizeCell(cells[0])
			if label != "" && len(label) < 50 && !strings.ContainsAny(label, "✓✗") {
				currentCategory = label
				data.Categories = append(data.Categories, label)
				continue
			}
		}

		allHeader := true
		for _, cell := range cells {
			if cell.Data != "th" {
				allHeader = false
				break
			}
		}
		if allHeader {
			for _, cell := range cells {
				text := textContent(cell)
				if text == "" {
					// Logo-only header cells fall back to image alt.
					if img := firstImage(cell); img != nil {
						text = attrValue(img, "alt")
					}
				}
				if strings.TrimSpace(text) != "" {
					data.Columns = append(data.Columns, text)
				}
			}
			continue
		}

		rowData := make([]string, 0, len(cells))
		any := false
		for _, cell := range cells {
			text := normalizeCell(cell)
			if text != "" {
				any = true
			}
			rowData = append(rowData, text)
		}
		if any {
			data.Rows = append(data.Rows, TableRow{Category: currentCategory, Cells: rowData})
		}
	}

	return data
}

// normalizeCell renders a table cell to text, mapping checkmark and
// cross images and "not offered" phrasing to literal tokens.
func normalizeCell(cell *html.Node) string {
	text := textContent(cell)

	if img := firstImage(cell); img != nil {
		alt := strings.ToLower(attrValue(img, "alt"))
		switch {
		case strings.Contains(alt, "check") || strings.Contains(alt, "offered") || strings.Contains(alt, "yes"):
			text = "✓ YES"
		case hasCrossToken(alt) || strings.Contains(alt, "no"):
			text = "✗ NO"
		}
	}

	if strings.Contains(strings.ToLower(text), "not offered") {
		text = "✗ NOT OFFERED"
	}
	return text
}

// hasCrossToken reports whether an alt text denotes a cross/x glyph.
// Only a standalone "x" word counts, so alts like "extra" or "box"
// stay plain text.
func hasCrossToken(alt string) bool {
	if strings.ContainsAny(alt, "✗✘×") {
		return true
	}
	for _, tok := range strings.FieldsFunc(alt, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if tok == "x" || tok == "cross" {
			return true
		}
	}
	return false
}

func parseCTASection(doc *goquery.Document, alloc *pagekb.IDAllocator) (pagekb.ParsedSection, bool) {
	phones := []PhoneNumber{}
	seenPhones := map[string]bool{}
	doc.Find(`a[href^="tel:"]`).Each(func(_ int, link *goquery.Selection) {
		number := strings.TrimSpace(link.Text())
		if number == "" || seenPhones[number] {
			return
		}
		seenPhones[number] = true

		context := ""
		if parent := link.Closest("p, div, section"); parent.Length() > 0 {
			context = strings.TrimSpace(parent.Text())
			if len(context) > 100 {
				context = context[:100]
			}
		}
		href, _ := link.Attr("href")
		phones = append(phones, PhoneNumber{Number: number, Href: href, Context: context})
	})

	forms := []ContactForm{}
	doc.Find("form").Each(func(_ int, form *goquery.Selection) {
		formText := strings.TrimSpace(form.Text())
		if len(formText) > 200 {
			formText = formText[:200]
		}
		lower := strings.ToLower(formText)
		matched := false
		for _, keyword := range formKeywords {
			if strings.Contains(lower, keyword) {
				matched = true
				break
			}
		}
		if !matched {
			return
		}

		fields := []string{}
		form.Find("input, select, textarea").Each(func(_ int, input *goquery.Selection) {
			name, _ := input.Attr("name")
			if name == "" {
				name, _ = input.Attr("placeholder")
			}
			if name == "" {
				name, _ = input.Attr("aria-label")
			}
			if name != "" {
				fields = append(fields, name)
			}
		})

		preview := formText
		if len(preview) > 100 {
			preview = preview[:100]
		}
		forms = append(forms, ContactForm{
			Heading: formHeading(form.Nodes[0]),
			Fields:  fields,
			Preview: preview,
		})
	})

	buttons := []CTAButton{}
	doc.Find(`p[role="heading"], div[role="heading"]`).Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		if len(text) > 5 {
			buttons = append(buttons, CTAButton{Text: text})
		}
	})

	if len(phones) == 0 && len(forms) == 0 {
		return pagekb.ParsedSection{}, false
	}

	return pagekb.ParsedSection{
		ID:                     alloc.Allocate("contact_cta"),
		Title:                  "Contact & CTA Information",
		Level:                  2,
		SectionType:            pagekb.SectionTypeCTA,
		Tag:                    "cta",
		ContentPreview:         fmt.Sprintf("%d phone numbers, %d forms", len(phones), len(forms)),
		EstimatedContentLength: 500,
		ExtraData: map[string]any{
			"phone_numbers": phones,
			"forms":         forms,
			"cta_buttons":   buttons,
		},
	}, true
}

// formHeading guesses the form's title from the nearest preceding
// heading-like element in document order.
func formHeading(form *html.Node) string {
	for n := previousInDocument(form); n != nil; n = previousInDocument(n) {
		if n.Type != html.ElementNode {
			continue
		}
		if !isHeadingTag(n.Data, 4) && n.Data != "p" {
			continue
		}
		text := textContent(n)
		if text == "" {
			continue
		}
		if attrValue(n, "role") != "" || len(text) < 100 {
			return text
		}
		return ""
	}
	return ""
}

func parseTestimonialSection(doc *goquery.Document, alloc *pagekb.IDAllocator) (pagekb.ParsedSection, bool) {
	var testimonials []Testimonial
	seen := map[string]bool{}

	doc.Find("blockquote").Each(func(_ int, quote *goquery.Selection) {
		text := strings.TrimSpace(quote.Text())
		if len(text) > 20 && !seen[text] {
			seen[text] = true
			testimonials = append(testimonials, Testimonial{Quote: text, Source: "blockquote"})
		}
	})

	for _, keyword := range []string{"testimonial", "quote", "review"} {
		re := testimonialClassRes[keyword]
		doc.Find("[class]").Each(func(_ int, sel *goquery.Selection) {
			class, _ := sel.Attr("class")
			if !re.MatchString(class) {
				return
			}
			text := strings.TrimSpace(sel.Text())
			if len(text) <= 50 || seen[text] {
				return
			}
			seen[text] = true
			if len(text) > 500 {
				text = text[:500]
			}
			testimonials = append(testimonials, Testimonial{Quote: text, Source: keyword})
		})
	}

	if len(testimonials) == 0 {
		return pagekb.ParsedSection{}, false
	}

	totalLength := 0
	for _, t := range testimonials {
		totalLength += len(t.Quote)
	}

	return pagekb.ParsedSection{
		ID:                     alloc.Allocate("testimonials"),
		Title:                  "Testimonials & Quotes",
		Level:                  2,
		SectionType:            pagekb.SectionTypeTestimonial,
		Tag:                    "testimonial",
		ContentPreview:         fmt.Sprintf("%d testimonials found", len(testimonials)),
		EstimatedContentLength: totalLength,
		ExtraData:              map[string]any{"testimonials": testimonials},
	}, true
}

// node helpers

func isHeadingTag(tag string, maxLevel int) bool {
	if len(tag) != 2 || tag[0] != 'h' {
		return false
	}
	level := int(tag[1] - '0')
	return level >= 1 && level <= maxLevel
}

// textContent renders a node's text with whitespace collapsed, like a
// stripped get-text.
func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

func attrValue(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

func nextElementSibling(n *html.Node) *html.Node {
	for s := n.NextSibling; s != nil; s = s.NextSibling {
		if s.Type == html.ElementNode {
			return s
		}
	}
	return nil
}

// previousInDocument walks backwards in document order: the deepest
// last descendant of the previous sibling, else the parent.
func previousInDocument(n *html.Node) *html.Node {
	if s := n.PrevSibling; s != nil {
		for s.LastChild != nil {
			s = s.LastChild
		}
		return s
	}
	return n.Parent
}

func findTable(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "table" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTable(c); t != nil {
			return t
		}
	}
	return nil
}

func descendants(n *html.Node, tag string) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == tag {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c)
	}
	return out
}

func rowCells(row *html.Node) []*html.Node {
	var cells []*html.Node
	for c := row.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (c.Data == "td" || c.Data == "th") {
			cells = append(cells, c)
		}
	}
	return cells
}

func firstImage(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "img" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if img := firstImage(c); img != nil {
			return img
		}
	}
	return nil
}
