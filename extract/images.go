package extract

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/mwielgus/pagekb"
)

const classificationMaxTokens = 4096

// Classifier runs vision classification over pre-filtered images.
type Classifier struct {
	client   pagekb.LLMClient
	basePath string
	logger   *slog.Logger
}

// NewClassifier creates a classifier. Relative image paths are resolved
// against basePath.
func NewClassifier(client pagekb.LLMClient, basePath string, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{client: client, basePath: basePath, logger: logger}
}

type imageVerdict struct {
	ImageID          string           `json:"image_id"`
	Include          bool             `json:"include"`
	Category         string           `json:"category"`
	Description      string           `json:"description"`
	ExtractedText    string           `json:"extracted_text"`
	Stats            []map[string]any `json:"stats"`
	ExclusionReason  string           `json:"exclusion_reason"`
	SuggestedSection string           `json:"suggested_section"`
}

type classificationResponse struct {
	Images []imageVerdict `json:"images"`
}

// ClassifyAll classifies every batch sequentially and assembles the
// stage output. A failed batch excludes its own images and the run
// continues.
func (c *Classifier) ClassifyAll(ctx context.Context, batches [][]pagekb.FilteredImage, domSummary, sourceURL, pageTitle string) pagekb.ImageClassification {
	result := pagekb.ImageClassification{
		IncludedImages: []pagekb.ImageDescription{},
		ExcludedImages: []pagekb.ExcludedImage{},
	}

	total := 0
	for i, batch := range batches {
		total += len(batch)
		included, excluded := c.classifyBatch(ctx, batch, domSummary, sourceURL, pageTitle, i+1)
		result.IncludedImages = append(result.IncludedImages, included...)
		result.ExcludedImages = append(result.ExcludedImages, excluded...)
	}

	result.ProcessingMetadata = pagekb.ClassificationMetadata{
		SourceURL:            sourceURL,
		Model:                c.client.Model(),
		ProcessedAt:          time.Now().UTC().Format(time.RFC3339),
		BatchesProcessed:     len(batches),
		TotalImagesEvaluated: total,
		ImagesIncluded:       len(result.IncludedImages),
		ImagesExcluded:       len(result.ExcludedImages),
	}
	return result
}

// classifyBatch sends one batch to the vision model and reconciles its
// verdicts with the images actually sent.
func (c *Classifier) classifyBatch(ctx context.Context, batch []pagekb.FilteredImage, domSummary, sourceURL, pageTitle string, batchNum int) ([]pagekb.ImageDescription, []pagekb.ExcludedImage) {
	// IDs carry the scraper's page-global image index so they stay
	// unique across batches.
	paths := make([]string, len(batch))
	ids := make([]string, len(batch))
	for i, img := range batch {
		ids[i] = fmt.Sprintf("img_%03d", img.Index)
		paths[i] = c.resolvePath(img.LocalPath)
	}

	prompt := buildClassificationPrompt(len(batch), domSummary, sourceURL, pageTitle)
	prompt += "\n\n## Image Files (in order):\n" + imageManifest(batch, ids)

	raw, err := c.client.CallWithImages(ctx, classificationSystemPrompt, prompt, paths, classificationMaxTokens)
	if err != nil {
		c.logger.Warn("classification batch failed, excluding its images",
			"batch", batchNum, "images", len(batch), "error", err)
		return nil, excludeBatch(batch, err)
	}

	var resp classificationResponse
	if err := pagekb.DecodeJSONResponse(raw, &resp); err != nil {
		c.logger.Warn("classification response unparseable, excluding its images",
			"batch", batchNum, "error", err)
		return nil, excludeBatch(batch, err)
	}

	return c.reconcile(batch, ids, resp.Images)
}

// imageManifest lists the batch's files so the model can tie verdicts
// to image IDs.
func imageManifest(batch []pagekb.FilteredImage, ids []string) string {
	var b strings.Builder
	for i, img := range batch {
		fmt.Fprintf(&b, "- Image %d: %s (file: %s, %dx%d, %s)\n",
			img.Index, ids[i], filepath.Base(img.LocalPath), img.Width, img.Height, img.FileType)
	}
	return b.String()
}

// reconcile matches model verdicts to sent images by exact ID, falling
// back to an index-substring match when the model mangles the ID
// format. Verdicts that match nothing are dropped with a warning.
// A valuable category always wins over the model's include flag.
func (c *Classifier) reconcile(batch []pagekb.FilteredImage, ids []string, verdicts []imageVerdict) ([]pagekb.ImageDescription, []pagekb.ExcludedImage) {
	byID := make(map[string]imageVerdict, len(verdicts))
	for _, v := range verdicts {
		byID[v.ImageID] = v
	}

	var included []pagekb.ImageDescription
	var excluded []pagekb.ExcludedImage
	for i, img := range batch {
		verdict, ok := byID[ids[i]]
		if !ok {
			verdict, ok = matchByIndex(verdicts, img.Index)
			if ok {
				c.logger.Warn("image id mismatch, matched by index",
					"expected", ids[i], "got", verdict.ImageID)
			}
		}
		if !ok {
			c.logger.Warn("no verdict for image, dropping", "image_id", ids[i], "path", img.LocalPath)
			continue
		}

		category := verdict.Category
		if category == "" {
			category = "decorative_other"
		}

		if verdict.Include || pagekb.IsValuableCategory(category) {
			included = append(included, pagekb.ImageDescription{
				ImageID:          ids[i],
				LocalPath:        img.LocalPath,
				Category:         category,
				Description:      verdict.Description,
				ExtractedText:    verdict.ExtractedText,
				Stats:            verdict.Stats,
				SuggestedSection: verdict.SuggestedSection,
			})
			continue
		}

		reason := verdict.ExclusionReason
		if reason == "" {
			reason = "Classified as decorative"
		}
		excluded = append(excluded, pagekb.ExcludedImage{
			ImageID:         ids[i],
			LocalPath:       img.LocalPath,
			Category:        category,
			ExclusionReason: reason,
		})
	}
	return included, excluded
}

// matchByIndex finds a verdict whose ID contains the zero-padded
// page-global index, e.g. "image_003" for index 3.
func matchByIndex(verdicts []imageVerdict, index int) (imageVerdict, bool) {
	needle := fmt.Sprintf("%03d", index)
	for _, v := range verdicts {
		if strings.Contains(v.ImageID, needle) {
			return v, true
		}
	}
	return imageVerdict{}, false
}

// excludeBatch marks every image in a failed batch as excluded.
func excludeBatch(batch []pagekb.FilteredImage, err error) []pagekb.ExcludedImage {
	excluded := make([]pagekb.ExcludedImage, len(batch))
	for i, img := range batch {
		excluded[i] = pagekb.ExcludedImage{
			ImageID:         fmt.Sprintf("img_%03d", img.Index),
			LocalPath:       img.LocalPath,
			Category:        "error",
			ExclusionReason: fmt.Sprintf("Processing error: %s", err),
		}
	}
	return excluded
}

func (c *Classifier) resolvePath(path string) string {
	if filepath.IsAbs(path) || c.basePath == "" {
		return path
	}
	return filepath.Join(c.basePath, path)
}
