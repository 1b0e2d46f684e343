package pagekb

// KBMetadata describes one generated knowledge base.
type KBMetadata struct {
	SourceURL           string `json:"source_url"`
	PageTitle           string `json:"page_title"`
	Product             string `json:"product,omitempty"`
	TargetAudience      string `json:"target_audience,omitempty"`
	DataSegment         string `json:"data_segment"`
	GeneratedAt         string `json:"generated_at"`
	Model               string `json:"model"`
	TotalSections       int    `json:"total_sections"`
	TotalImagesIncluded int    `json:"total_images_included"`
}

// AllImagesSummary summarizes image classification for the final
// document.
type AllImagesSummary struct {
	TotalEvaluated int `json:"total_evaluated"`
	Included       int `json:"included"`
	Excluded       int `json:"excluded"`
}

// KnowledgeBase is the root aggregate produced once per input page.
type KnowledgeBase struct {
	Metadata            KBMetadata       `json:"metadata"`
	DocumentSummary     string           `json:"document_summary"`
	KeyValueProposition string           `json:"key_value_proposition,omitempty"`
	Sections            []Section        `json:"sections"`
	AllImagesSummary    AllImagesSummary `json:"all_images_summary"`
	LastUpdated         string           `json:"last_updated"`
}

// CountSections counts sections recursively: every node in the tree,
// parents and all descendants, depth-unbounded.
func CountSections(sections []Section) int {
	count := len(sections)
	for i := range sections {
		count += CountSections(sections[i].Subsections)
	}
	return count
}
