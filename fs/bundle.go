// Package fs loads scraped page bundles from disk and writes generation
// artifacts back alongside them.
package fs

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/mwielgus/pagekb"
)

// Mapping is the scrape-metadata file accompanying a page's DOM dump.
type Mapping struct {
	URL       string               `json:"url"`
	PageTitle string               `json:"page_title"`
	ScrapedAt string               `json:"scraped_at"`
	Images    []pagekb.ImageRecord `json:"images"`
}

// Bundle is one scraped page on disk: the raw DOM, its mapping file,
// the downloaded images, and optionally a full-page screenshot.
type Bundle struct {
	Dir            string
	BaseName       string
	HTMLPath       string
	MappingPath    string
	ImagesDir      string
	ScreenshotPath string
	Mapping        Mapping
}

// OpenBundle locates the bundle files in dir and decodes the mapping.
// A missing DOM or mapping file is an ENOTFOUND error; a missing
// screenshot is not an error.
func OpenBundle(dir string) (*Bundle, error) {
	htmlPath, err := findOne(dir, "*_dom.html")
	if err != nil {
		return nil, err
	}
	mappingPath, err := findOne(dir, "*_mapping.json")
	if err != nil {
		return nil, err
	}

	base := strings.TrimSuffix(filepath.Base(htmlPath), ".html")
	base = strings.TrimSuffix(base, "_dom")

	b := &Bundle{
		Dir:            dir,
		BaseName:       base,
		HTMLPath:       htmlPath,
		MappingPath:    mappingPath,
		ImagesDir:      filepath.Join(dir, "images"),
		ScreenshotPath: findScreenshot(filepath.Join(dir, "screenshots"), base),
	}

	raw, err := os.ReadFile(mappingPath)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &b.Mapping); err != nil {
		return nil, pagekb.Errorf(pagekb.EINVALID, "invalid mapping file %s: %v", mappingPath, err)
	}

	return b, nil
}

// ReadHTML returns the raw scraped DOM.
func (b *Bundle) ReadHTML() (string, error) {
	raw, err := os.ReadFile(b.HTMLPath)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func findOne(dir, pattern string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", pagekb.Errorf(pagekb.ENOTFOUND, "no %s file found in %s", pattern, dir)
	}
	return matches[0], nil
}

// findScreenshot locates the full-page screenshot for a page, exact
// name matches before looser patterns, returning "" when none exists.
func findScreenshot(dir, base string) string {
	patterns := []string{
		base + "_full_page.jpg",
		base + "_full_page.png",
		base + "-full_page.jpg",
		base + "-full_page.png",
		base + "*full_page*.jpg",
		base + "*full_page*.png",
		"*_full_page.jpg",
		"*_full_page.png",
	}
	for _, pattern := range patterns {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err == nil && len(matches) > 0 {
			return matches[0]
		}
	}
	return ""
}

// DataSegment derives a page's data segment from its folder name.
// Folders named "Segment__page-slug" carry the segment; anything else
// falls back to the given default.
func DataSegment(folderName, fallback string) string {
	if segment, _, ok := strings.Cut(folderName, "__"); ok && segment != "" {
		return segment
	}
	return fallback
}
