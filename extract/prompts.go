package extract

import (
	"fmt"
	"strings"

	"github.com/mwielgus/pagekb"
)

// Prompt text for the four LLM call kinds. User prompts are assembled
// by builders so token-bounding rules (HTML prefix, outline cap) live
// next to the text they feed.

const metadataHTMLLimit = 40000
const metadataOutlineLimit = 20

const metadataSystemPrompt = `You are analyzing a web page to extract metadata about its content.

Your task is to extract:
1. Product/service name
2. Target audience
3. Document summary
4. Key value proposition

You do NOT need to identify sections - those are already extracted from the HTML structure.

Output JSON only.`

func buildMetadataPrompt(sourceURL, pageTitle, dataSegment string, outline []pagekb.ParsedSection, cleanedHTML string) string {
	var lines []string
	for i, s := range outline {
		if i >= metadataOutlineLimit {
			break
		}
		lines = append(lines, fmt.Sprintf("- %s (level %d)", s.Title, s.Level))
	}
	if len(cleanedHTML) > metadataHTMLLimit {
		cleanedHTML = cleanedHTML[:metadataHTMLLimit]
	}

	var b strings.Builder
	b.WriteString("Analyze this web page and extract metadata.\n\n")
	b.WriteString("## Source Information\n")
	fmt.Fprintf(&b, "- URL: %s\n", sourceURL)
	fmt.Fprintf(&b, "- Page Title: %s\n", pageTitle)
	fmt.Fprintf(&b, "- Data Segment: %s\n\n", dataSegment)
	b.WriteString("## Sections Already Identified (from HTML headings)\n")
	b.WriteString(strings.Join(lines, "\n"))
	b.WriteString("\n\n## HTML Content (for context)\n")
	b.WriteString(cleanedHTML)
	b.WriteString(`

## Required Output

Return JSON with this structure:

` + "```json" + `
{
  "product": "Extract the main product/service name from content",
  "target_audience": "Who is this page for? Extract from content",
  "document_summary": "2-3 sentence summary of the entire page",
  "key_value_proposition": "Main value proposition or tagline from the page"
}
` + "```" + `

Return ONLY valid JSON.`)
	return b.String()
}

const groupingSystemPrompt = `You are analyzing a web page's HTML to identify ALL content sections, organize them into a logical hierarchy, and provide extraction hints for each section.

You will receive:
1. The HTML content of the page (with long paragraphs trimmed to save tokens)
2. Optionally a full-page screenshot for visual context

YOUR TASKS:
1. FIND ALL SECTIONS - Scan the HTML for every distinct content section
2. IDENTIFY SPECIAL TYPES - FAQ accordions, comparison tables, pricing packages, CTAs, testimonials
3. GROUP INTO HIERARCHY - Organize sections as standalone or parent with children
4. PROVIDE EXTRACTION HINTS - For each section, describe what content should be extracted and how

GROUPING RULES:
- If an intro heading is followed by multiple related sections with category labels, make it a parent with children
- FAQ, comparison tables, testimonials, contact sections are usually standalone
- Hero/intro sections at the top are standalone
- Children are one level deep: never nest children inside children

OUTPUT: Return valid JSON with a grouped_sections array containing ALL sections found. Every section MUST have "type" ("standalone" or "parent") and an "extraction_hint". Use "section_type" for special kinds: "packages", "faq", "table", "cta", "testimonial", "statistics". Generate id from title (lowercase, underscores).`

func buildGroupingPrompt(pageTitle, trimmedHTML string) string {
	var b strings.Builder
	b.WriteString("Analyze this web page to identify ALL content sections, organize them hierarchically, and provide extraction hints.\n\n")
	fmt.Fprintf(&b, "## Page Title\n%s\n\n", pageTitle)
	b.WriteString("## HTML CONTENT (trimmed for efficiency - long paragraphs shortened)\n")
	b.WriteString(trimmedHTML)
	b.WriteString(`

## Required Output

` + "```json" + `
{
  "total_sections_found": 5,
  "grouped_sections": [
    {
      "id": "hero_section",
      "title": "Exact title from the HTML",
      "level": 1,
      "type": "standalone",
      "extraction_hint": "Hero section with headline and intro paragraph."
    },
    {
      "id": "parent_section_id",
      "title": "Parent Section Title",
      "level": 2,
      "type": "parent",
      "extraction_hint": "Parent introducing related subsections.",
      "children": [
        {"id": "child_1", "title": "Child Title", "level": 3, "category": "Support", "extraction_hint": "What to extract here."}
      ]
    }
  ]
}
` + "```" + `

IMPORTANT:
- Extract EXACT titles from the HTML headings
- Include ALL sections you find
- EVERY section MUST have an "extraction_hint" field

Return ONLY valid JSON.`)
	return b.String()
}

const extractionSystemPrompt = `You are extracting detailed content for specific sections of a knowledge base article.

Each section comes with an EXTRACTION HINT that tells you exactly what to look for and extract. Follow these hints carefully.

CONTENT WRITING STYLE:
- Write in a professional, polished tone suitable for B2B marketing
- When a section has introductory text followed by bullet points, COMBINE them into unified flowing prose in "content"
- Preserve specific product names, trademarks, credentials, numbers, and statistics exactly
- "key_points" should usually stay empty - integrate bullets into "content"

SECTION SCHEMA - every section MUST have ALL these fields:
{
  "id": "unique_snake_case_id",
  "title": "Human Readable Title",
  "level": 1,
  "summary": "Brief 1-sentence summary of what this section covers",
  "content": "Professional prose combining intro text and bullet points",
  "key_points": [],
  "images": [],
  "subsections": [],
  "data": null
}

STRUCTURED DATA:
When the extraction hint mentions structured content (packages, FAQs, tables, statistics), extract it into the "data" field with a "type" key identifying the kind, and extract ALL items the hint mentions.

IMAGES FIELD:
- If image descriptions are provided, associate relevant images with sections
- If "NO_IMAGES_AVAILABLE" is shown, always use an empty array

RULES:
1. Include ALL fields for every section (empty arrays or null as defaults)
2. For COMPARISON TABLES extract EVERY row; for FAQs every question with its COMPLETE answer
3. Return ONLY valid JSON`

const defaultExtractionHint = "Standard section. Extract intro text and any bullet points as unified prose."

func buildExtractionPrompt(batch []pagekb.GroupedSection, cleanedHTML, imageJSON, sourceURL string) string {
	var sections []string
	for _, s := range batch {
		var b strings.Builder
		fmt.Fprintf(&b, "### %s\n", s.Title)
		fmt.Fprintf(&b, "- Level: %d\n", s.Level)
		if s.SectionType != "" {
			fmt.Fprintf(&b, "- Type: %s\n", s.SectionType)
		}
		hint := s.ExtractionHint
		if hint == "" {
			hint = defaultExtractionHint
		}
		fmt.Fprintf(&b, "- EXTRACTION HINT: %s\n", hint)
		sections = append(sections, b.String())
	}

	var b strings.Builder
	b.WriteString("Extract detailed content for the following sections from the HTML.\n\n")
	b.WriteString("## Sections to Extract (with extraction hints)\n")
	b.WriteString(strings.Join(sections, "\n"))
	b.WriteString("\n## Full HTML Content\n")
	b.WriteString(cleanedHTML)
	b.WriteString("\n\n## Available Images\n")
	b.WriteString(imageJSON)
	b.WriteString("\n\nNOTE: If \"Available Images\" shows \"NO_IMAGES_AVAILABLE\", set \"images\": [] for all sections.\n\n")
	fmt.Fprintf(&b, "## Source URL\n%s\n", sourceURL)
	b.WriteString(`
## Required Output

Return JSON of the form {"sections": [...]} where every section follows the schema and its extraction hint.
Extract ALL sections listed above with COMPLETE content.
Return ONLY valid JSON.`)
	return b.String()
}

const classificationSystemPrompt = `You are an expert at analyzing images for knowledge base creation. Your task is to classify images and generate descriptions for content-relevant images.

For EACH image, you must:
1. Classify it into one of these categories:
   - product_ui: Screenshots of product interfaces, dashboards, forms
   - feature_icon: Icons/illustrations representing product features or capabilities
   - stats_data: Infographics, charts, or images containing statistics/data
   - testimonial_photo: Photos of customers associated with testimonials
   - decorative_people: Stock photos of people without product/stats info
   - branding: Logos, brand elements without informational content
   - decorative_other: Other decorative images (backgrounds, patterns, etc.)

2. Decide if the image should be INCLUDED in the knowledge base:
   - INCLUDE: product_ui, feature_icon, stats_data, testimonial_photo
   - EXCLUDE: decorative_people, branding, decorative_other

3. For INCLUDED images provide a detailed description, any text extracted from the image, any statistics visible, and which section of the document it likely belongs to.

4. For EXCLUDED images provide a brief reason for exclusion.

Only exclude purely decorative images with no informational content.`

func buildClassificationPrompt(numImages int, domSummary, sourceURL, pageTitle string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Here is a batch of %d images to classify, along with context about the page they came from.\n\n", numImages)
	fmt.Fprintf(&b, "## Page Context (DOM Summary):\n%s\n\n", domSummary)
	fmt.Fprintf(&b, "## Source URL: %s\n", sourceURL)
	fmt.Fprintf(&b, "## Page Title: %s\n", pageTitle)
	b.WriteString(`
Please analyze each image and return a JSON response with this EXACT structure:

` + "```json" + `
{
  "images": [
    {
      "image_id": "img_XXX",
      "include": true,
      "category": "product_ui|feature_icon|stats_data|testimonial_photo|decorative_people|branding|decorative_other",
      "description": "Detailed description (only if include=true)",
      "extracted_text": "Any text visible in the image (only if include=true)",
      "stats": [
        {"value": "XX%", "metric": "what the stat measures", "context": "additional context"}
      ],
      "exclusion_reason": "Brief reason (only if include=false)",
      "suggested_section": "Which section this image belongs to (only if include=true)"
    }
  ]
}
` + "```" + `

`)
	fmt.Fprintf(&b, "Analyze ALL %d images in this batch. Return ONLY valid JSON, no other text.", numImages)
	return b.String()
}
