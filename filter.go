package pagekb

import (
	"fmt"
	"path"
	"strings"
)

// FilterConfig holds the tunable thresholds and pattern lists for
// image triage.
type FilterConfig struct {
	// MinWidth/MinHeight reject images smaller than this in both
	// dimensions (decorative icons).
	MinWidth  int
	MinHeight int

	// MinFileSize rejects images below this many bytes when the size
	// is known.
	MinFileSize int64

	// SkipURLPatterns are case-insensitive substrings of the source
	// URL that mark UI chrome or tracking assets.
	SkipURLPatterns []string

	// SkipAltPatterns are decorative alt texts matched exactly (or
	// exactly with an " icon" suffix) against short alt strings.
	SkipAltPatterns []string
}

// DefaultFilterConfig returns the filter configuration used for
// marketing pages.
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		MinWidth:    50,
		MinHeight:   50,
		MinFileSize: 500,
		SkipURLPatterns: []string{
			"icn-close",
			"icn-nav-",
			"icn-carousel",
		},
		SkipAltPatterns: []string{
			"logo",
			"icon",
			"arrow",
			"close",
			"menu",
		},
	}
}

// allowedExtensions are the raster formats the vision API accepts.
var allowedExtensions = map[string]bool{
	"jpg":  true,
	"jpeg": true,
	"png":  true,
}

// trackingDomains mark analytics and ad-network image sources.
var trackingDomains = []string{
	"rlcdn.com",
	"analytics",
	"bat.bing",
	"t.co",
	"facebook.com/tr",
	"googleadservices",
	"doubleclick",
	"pixel",
}

// iconPathMarkers mark local paths that came from icon asset
// directories.
var iconPathMarkers = []string{"icn-", "icon-", "/icons/"}

// FilterStats aggregates the outcome of one FilterImages call.
type FilterStats struct {
	Total       int                `json:"total"`
	Passed      int                `json:"passed"`
	Skipped     int                `json:"skipped"`
	SkipReasons map[SkipReason]int `json:"skip_reasons"`
}

// FilterImages partitions the scraper's image inventory into images
// worth sending to the vision model and rejected images with typed
// reasons. Rules are applied in order and short-circuit at the first
// match, so skip reasons are mutually exclusive. Every input record
// lands in exactly one of the two result lists.
func FilterImages(images []ImageRecord, cfg FilterConfig) ([]FilteredImage, []SkippedImage, FilterStats) {
	passed := make([]FilteredImage, 0, len(images))
	skipped := make([]SkippedImage, 0)
	stats := FilterStats{
		Total:       len(images),
		SkipReasons: make(map[SkipReason]int),
	}

	reject := func(img ImageRecord, reason SkipReason, pattern, dims string) {
		stats.Skipped++
		stats.SkipReasons[reason]++
		localPath := img.LocalPath
		if localPath == "" {
			localPath = "unknown"
		}
		skipped = append(skipped, SkippedImage{
			Index:          img.Index,
			LocalPath:      localPath,
			SkipReason:     reason,
			PatternMatched: pattern,
			Dimensions:     dims,
		})
	}

	for _, img := range images {
		if img.LocalPath == "" {
			reject(img, SkipMissingLocalPath, truncate(img.Src, 100), "")
			continue
		}

		// The extension gate is authoritative: svg, gif, webp and
		// extension-less paths are all rejected here.
		ext := strings.ToLower(strings.TrimPrefix(path.Ext(img.LocalPath), "."))
		if !allowedExtensions[ext] {
			pattern := ext
			if pattern == "" {
				pattern = "no_extension"
			}
			reject(img, SkipUnsupportedFormat, pattern, "")
			continue
		}

		// An SVG served from a .svg URL can still hide behind a
		// raster-looking local path.
		if strings.HasSuffix(strings.ToLower(img.Src), ".svg") {
			reject(img, SkipSVGNotSupported, "svg source URL", "")
			continue
		}

		if img.Width <= 2 && img.Height <= 2 {
			reject(img, SkipTrackingPixel, "", fmt.Sprintf("%dx%d", img.Width, img.Height))
			continue
		}

		if img.Width > 0 && img.Height > 0 && img.Width < cfg.MinWidth && img.Height < cfg.MinHeight {
			reject(img, SkipTinyIcon, fmt.Sprintf("%dx%d < %dx%d", img.Width, img.Height, cfg.MinWidth, cfg.MinHeight), "")
			continue
		}

		if img.FileSize > 0 && img.FileSize < cfg.MinFileSize {
			reject(img, SkipTinyFile, fmt.Sprintf("%d < %d bytes", img.FileSize, cfg.MinFileSize), "")
			continue
		}

		src := strings.ToLower(img.Src)

		if pattern, ok := containsAny(src, cfg.SkipURLPatterns); ok {
			reject(img, SkipUIPattern, pattern, "")
			continue
		}

		if domain, ok := containsAny(src, trackingDomains); ok {
			reject(img, SkipTrackingURL, domain, "")
			continue
		}

		if pattern, ok := matchAltPattern(img.Alt, cfg.SkipAltPatterns); ok {
			reject(img, SkipAltPattern, pattern, "")
			continue
		}

		if pattern, ok := matchIconPath(img); ok {
			reject(img, SkipIconPath, pattern, "")
			continue
		}

		stats.Passed++
		passed = append(passed, FilteredImage{
			Index:     img.Index,
			LocalPath: img.LocalPath,
			Src:       img.Src,
			Alt:       img.Alt,
			Width:     img.Width,
			Height:    img.Height,
			FileSize:  img.FileSize,
			FileType:  ext,
		})
	}

	return passed, skipped, stats
}

// containsAny returns the first pattern found as a case-insensitive
// substring of s. Callers pass s already lowercased.
func containsAny(s string, patterns []string) (string, bool) {
	for _, p := range patterns {
		if strings.Contains(s, strings.ToLower(p)) {
			return p, true
		}
	}
	return "", false
}

// matchAltPattern matches decorative alt text. Only very short alt
// texts (at most two words) are candidates, and only on exact match —
// "Dashboard showing logo placement" must survive while "logo" does
// not.
func matchAltPattern(alt string, patterns []string) (string, bool) {
	alt = strings.ToLower(strings.TrimSpace(alt))
	if alt == "" || len(strings.Fields(alt)) > 2 {
		return "", false
	}
	for _, p := range patterns {
		p = strings.ToLower(p)
		if alt == p || alt == p+" icon" {
			return p, true
		}
	}
	return "", false
}

// matchIconPath rejects images from icon asset paths unless both
// dimensions exceed 100px: feature icons are large and meaningful,
// decorative icons are small.
func matchIconPath(img ImageRecord) (string, bool) {
	localPath := strings.ToLower(img.LocalPath)
	for _, marker := range iconPathMarkers {
		if strings.Contains(localPath, marker) {
			if img.Width > 100 && img.Height > 100 {
				continue
			}
			return marker, true
		}
	}
	return "", false
}

// BatchImages chunks images into contiguous, order-preserving batches
// of at most batchSize. The final batch is not padded.
func BatchImages(images []FilteredImage, batchSize int) [][]FilteredImage {
	if batchSize <= 0 || len(images) == 0 {
		return nil
	}
	batches := make([][]FilteredImage, 0, (len(images)+batchSize-1)/batchSize)
	for start := 0; start < len(images); start += batchSize {
		end := min(start+batchSize, len(images))
		batches = append(batches, images[start:end])
	}
	return batches
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
