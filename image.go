package pagekb

// ImageRecord is an image inventory entry as captured by the scraper
// in the page's mapping file. Records are read-only inputs to the
// image filter.
type ImageRecord struct {
	Index     int    `json:"index"`
	Src       string `json:"src"`
	Alt       string `json:"alt"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	LocalPath string `json:"local_path"`
	FileSize  int64  `json:"file_size"`
}

// FilteredImage is an image that passed rule-based triage and is worth
// sending to the vision model.
type FilteredImage struct {
	Index     int    `json:"index"`
	LocalPath string `json:"local_path"`
	Src       string `json:"src"`
	Alt       string `json:"alt"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	FileSize  int64  `json:"file_size"`
	FileType  string `json:"file_type"`
}

// SkipReason identifies which triage rule rejected an image.
type SkipReason string

// Skip reasons, in rule-evaluation order.
const (
	SkipMissingLocalPath  SkipReason = "missing_local_path"
	SkipUnsupportedFormat SkipReason = "unsupported_format"
	SkipSVGNotSupported   SkipReason = "svg_not_supported"
	SkipTrackingPixel     SkipReason = "tracking_pixel"
	SkipTinyIcon          SkipReason = "tiny_icon"
	SkipTinyFile          SkipReason = "tiny_file"
	SkipUIPattern         SkipReason = "ui_pattern"
	SkipTrackingURL       SkipReason = "tracking_url"
	SkipAltPattern        SkipReason = "alt_pattern"
	SkipIconPath          SkipReason = "icon_path"
)

// SkippedImage is an image rejected during triage, kept for
// diagnostics only.
type SkippedImage struct {
	Index          int        `json:"index"`
	LocalPath      string     `json:"local_path"`
	SkipReason     SkipReason `json:"skip_reason"`
	PatternMatched string     `json:"pattern_matched,omitempty"`
	Dimensions     string     `json:"dimensions,omitempty"`
}

// ImageDescription is a vision-model verdict for an included image.
type ImageDescription struct {
	ImageID          string           `json:"image_id"`
	LocalPath        string           `json:"local_path"`
	Category         string           `json:"category"`
	Description      string           `json:"description"`
	ExtractedText    string           `json:"extracted_text,omitempty"`
	Stats            []map[string]any `json:"stats,omitempty"`
	SuggestedSection string           `json:"suggested_section,omitempty"`
}

// ExcludedImage is an image the vision model (or a batch failure)
// excluded from the knowledge base.
type ExcludedImage struct {
	ImageID         string `json:"image_id"`
	LocalPath       string `json:"local_path"`
	Category        string `json:"category"`
	ExclusionReason string `json:"exclusion_reason"`
}

// ClassificationMetadata describes one classification run.
type ClassificationMetadata struct {
	SourceURL            string `json:"source_url"`
	Model                string `json:"model"`
	ProcessedAt          string `json:"processed_at"`
	BatchesProcessed     int    `json:"batches_processed"`
	TotalImagesEvaluated int    `json:"total_images_evaluated"`
	ImagesIncluded       int    `json:"images_included"`
	ImagesExcluded       int    `json:"images_excluded"`
}

// ImageClassification is the complete output of the image
// classification stage.
type ImageClassification struct {
	ProcessingMetadata ClassificationMetadata `json:"processing_metadata"`
	IncludedImages     []ImageDescription     `json:"included_images"`
	ExcludedImages     []ExcludedImage        `json:"excluded_images"`
}

// Valuable image categories. An image classified into one of these is
// always included, regardless of the model's own include/exclude
// judgment — the category taxonomy is authoritative.
var includeCategories = map[string]bool{
	"product_ui":        true,
	"feature_icon":      true,
	"stats_data":        true,
	"testimonial_photo": true,
}

// IsValuableCategory reports whether a classification category forces
// inclusion.
func IsValuableCategory(category string) bool {
	return includeCategories[category]
}
