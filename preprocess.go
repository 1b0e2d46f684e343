package pagekb

// SourceInfo identifies the scraped page a bundle came from.
type SourceInfo struct {
	URL       string `json:"url"`
	PageTitle string `json:"page_title"`
	ScrapedAt string `json:"scraped_at"`
}

// CleaningStats records what HTML cleaning removed and what remained.
type CleaningStats struct {
	OriginalDOMSize int            `json:"original_dom_size"`
	CleanedDOMSize  int            `json:"cleaned_dom_size"`
	EstimatedTokens int            `json:"estimated_tokens"`
	ContentHash     string         `json:"content_hash"`
	ElementsRemoved map[string]int `json:"elements_removed"`
}

// PreprocessedData is the preprocessing-stats artifact written
// alongside the input bundle.
type PreprocessedData struct {
	Source         SourceInfo      `json:"source"`
	CleaningStats  CleaningStats   `json:"cleaning_stats"`
	ImageFiltering FilterStats     `json:"image_filtering"`
	FilteredImages []FilteredImage `json:"filtered_images"`
	SkippedImages  []SkippedImage  `json:"skipped_images"`
	CleanedDOMPath string          `json:"cleaned_dom_path"`
}

// EstimateTokens is a rough character-based token estimate (~4 chars
// per token of English text).
func EstimateTokens(text string) int {
	return len(text) / 4
}
