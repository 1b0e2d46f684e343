package pagekb

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// Section types assigned by the local outline parser.
const (
	SectionTypeHeading     = "heading"
	SectionTypeFAQ         = "faq"
	SectionTypeTable       = "table"
	SectionTypeCTA         = "cta"
	SectionTypeTestimonial = "testimonial"
)

// ParsedSection is a candidate section produced by structural DOM
// walking, before any LLM involvement. IDs are unique within one parse.
type ParsedSection struct {
	ID                     string         `json:"id"`
	Title                  string         `json:"title"`
	Level                  int            `json:"level"`
	SectionType            string         `json:"type"`
	Tag                    string         `json:"tag"`
	ContentPreview         string         `json:"content_preview"`
	HasList                bool           `json:"has_list"`
	HasTable               bool           `json:"has_table"`
	EstimatedContentLength int            `json:"estimated_content_length"`
	ExtraData              map[string]any `json:"extra_data,omitempty"`
}

// ParseStats tallies what one outline parse found, per pass.
type ParseStats struct {
	TotalSections int `json:"total_sections"`
	Headings      int `json:"headings"`
	FAQSections   int `json:"faq_sections"`
	Tables        int `json:"tables"`
	CTASections   int `json:"cta_sections"`
	Testimonials  int `json:"testimonials"`
}

// Grouping node types assigned by the LLM.
const (
	GroupStandalone = "standalone"
	GroupParent     = "parent"
)

// GroupedSection is an LLM-proposed hierarchy node over the outline.
// Parents carry a flat children list — exactly one level deep, no
// grandchildren.
type GroupedSection struct {
	ID             string           `json:"id"`
	Title          string           `json:"title"`
	Level          int              `json:"level"`
	Type           string           `json:"type"`
	SectionType    string           `json:"section_type,omitempty"`
	Category       string           `json:"category,omitempty"`
	ExtractionHint string           `json:"extraction_hint,omitempty"`
	ParentID       string           `json:"parent_id,omitempty"`
	Children       []GroupedSection `json:"children,omitempty"`
}

// SectionImage is an image reference attached to a final section.
type SectionImage struct {
	ImageID     string `json:"image_id"`
	LocalPath   string `json:"local_path"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

// SectionData is a type-discriminated payload attached to a section
// (packages, pricing, statistics, ratings, awards, testimonials, faq,
// contact, resources, disclaimers, table, ...). The discriminator is
// fixed; the remaining shape depends on it and round-trips through
// Extra.
type SectionData struct {
	Type  string
	Extra map[string]any
}

// MarshalJSON flattens Extra alongside the type discriminator.
func (d SectionData) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(d.Extra)+1)
	for k, v := range d.Extra {
		if k == "type" {
			continue
		}
		m[k] = v
	}
	if d.Type != "" {
		m["type"] = d.Type
	}
	return json.Marshal(m)
}

// UnmarshalJSON splits the type discriminator from the open payload.
func (d *SectionData) UnmarshalJSON(b []byte) error {
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	if t, ok := m["type"].(string); ok {
		d.Type = t
	}
	delete(m, "type")
	d.Extra = m
	return nil
}

// WithCategory returns a copy of the data carrying the grouping
// category annotation. Pre-existing keys are never overwritten; a nil
// receiver yields a data value holding only the category.
func (d *SectionData) WithCategory(category string) *SectionData {
	if category == "" {
		return d
	}
	out := SectionData{Extra: map[string]any{"category": category}}
	if d != nil {
		out.Type = d.Type
		for k, v := range d.Extra {
			out.Extra[k] = v
		}
	}
	return &out
}

// Section is the canonical output node of the pipeline. Every instance
// — extracted, placeholder, or synthesized — has all fields present:
// slices default to empty, optionals to null. Downstream consumers
// never branch on missing keys.
type Section struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Level       int            `json:"level"`
	Summary     string         `json:"summary"`
	Content     *string        `json:"content"`
	KeyPoints   []string       `json:"key_points"`
	Images      []SectionImage `json:"images"`
	Subsections []Section      `json:"subsections"`
	Data        *SectionData   `json:"data"`
}

// NewSection returns a section with the all-fields-present invariant
// established.
func NewSection(id, title string, level int, summary string) Section {
	return Section{
		ID:          id,
		Title:       title,
		Level:       level,
		Summary:     summary,
		KeyPoints:   []string{},
		Images:      []SectionImage{},
		Subsections: []Section{},
	}
}

// Normalize restores the all-fields-present invariant on a section
// decoded from external JSON, recursively.
func (s *Section) Normalize() {
	if s.KeyPoints == nil {
		s.KeyPoints = []string{}
	}
	if s.Images == nil {
		s.Images = []SectionImage{}
	}
	if s.Subsections == nil {
		s.Subsections = []Section{}
	}
	for i := range s.Subsections {
		s.Subsections[i].Normalize()
	}
}

var (
	trademarkRe = regexp.MustCompile(`[®™©]`)
	nonWordRe   = regexp.MustCompile(`[^\w\s-]`)
	separatorRe = regexp.MustCompile(`[\s-]+`)
)

// SlugID converts a section title to a slug identifier: trademark
// glyphs stripped, non-word characters dropped, whitespace and hyphens
// collapsed to underscores, truncated to 50 characters, with "section"
// as the empty fallback.
func SlugID(title string) string {
	slug := strings.ToLower(title)
	slug = trademarkRe.ReplaceAllString(slug, "")
	slug = nonWordRe.ReplaceAllString(slug, "")
	slug = separatorRe.ReplaceAllString(slug, "_")
	slug = strings.Trim(slug, "_")
	if len(slug) > 50 {
		slug = slug[:50]
	}
	if slug == "" {
		return "section"
	}
	return slug
}

// IDAllocator hands out parse-scoped unique section IDs, suffixing an
// incrementing counter on collision.
type IDAllocator struct {
	seen map[string]bool
}

// NewIDAllocator returns an empty allocator.
func NewIDAllocator() *IDAllocator {
	return &IDAllocator{seen: make(map[string]bool)}
}

// Allocate slugs the title and disambiguates it against previously
// allocated IDs.
func (a *IDAllocator) Allocate(title string) string {
	base := SlugID(title)
	id := base
	for counter := 1; a.seen[id]; counter++ {
		id = base + "_" + strconv.Itoa(counter)
	}
	a.seen[id] = true
	return id
}
