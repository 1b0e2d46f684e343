package extract_test

import (
	"context"
	"errors"
	"testing"

	"github.com/mwielgus/pagekb"
	"github.com/mwielgus/pagekb/extract"
	"github.com/mwielgus/pagekb/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func visionClient(reply string, err error) *mock.LLMClient {
	return &mock.LLMClient{
		CallWithImagesFn: func(ctx context.Context, systemPrompt, userPrompt string, imagePaths []string, maxOutputTokens int) (string, error) {
			return reply, err
		},
	}
}

func testBatch(n int) []pagekb.FilteredImage {
	return testBatchAt(0, n)
}

// testBatchAt builds a batch whose images carry page-global indexes
// starting at start.
func testBatchAt(start, n int) []pagekb.FilteredImage {
	batch := make([]pagekb.FilteredImage, n)
	for i := range batch {
		batch[i] = pagekb.FilteredImage{
			Index:     start + i,
			LocalPath: "images/photo_" + string(rune('a'+start+i)) + ".png",
			Width:     800,
			Height:    600,
			FileType:  ".png",
		}
	}
	return batch
}

func TestClassifier_ClassifyAll(t *testing.T) {
	t.Parallel()

	t.Run("splits verdicts into included and excluded", func(t *testing.T) {
		t.Parallel()

		reply := `{"images": [
			{"image_id": "img_000", "include": true, "category": "product_ui",
			 "description": "Dashboard screenshot", "extracted_text": "Run Payroll",
			 "suggested_section": "features"},
			{"image_id": "img_001", "include": false, "category": "branding",
			 "exclusion_reason": "Company logo"}
		]}`
		c := extract.NewClassifier(visionClient(reply, nil), "", nil)

		result := c.ClassifyAll(context.Background(),
			[][]pagekb.FilteredImage{testBatch(2)}, "summary", "https://example.com", "Title")

		require.Len(t, result.IncludedImages, 1)
		require.Len(t, result.ExcludedImages, 1)
		inc := result.IncludedImages[0]
		assert.Equal(t, "img_000", inc.ImageID)
		assert.Equal(t, "product_ui", inc.Category)
		assert.Equal(t, "Dashboard screenshot", inc.Description)
		assert.Equal(t, "features", inc.SuggestedSection)
		exc := result.ExcludedImages[0]
		assert.Equal(t, "img_001", exc.ImageID)
		assert.Equal(t, "Company logo", exc.ExclusionReason)
	})

	t.Run("valuable category overrides an exclude verdict", func(t *testing.T) {
		t.Parallel()

		reply := `{"images": [
			{"image_id": "img_000", "include": false, "category": "product_ui",
			 "exclusion_reason": "Looks decorative"}
		]}`
		c := extract.NewClassifier(visionClient(reply, nil), "", nil)

		result := c.ClassifyAll(context.Background(),
			[][]pagekb.FilteredImage{testBatch(1)}, "", "", "")

		require.Len(t, result.IncludedImages, 1)
		assert.Empty(t, result.ExcludedImages)
		assert.Equal(t, "product_ui", result.IncludedImages[0].Category)
	})

	t.Run("defaults missing category and exclusion reason", func(t *testing.T) {
		t.Parallel()

		reply := `{"images": [{"image_id": "img_000", "include": false}]}`
		c := extract.NewClassifier(visionClient(reply, nil), "", nil)

		result := c.ClassifyAll(context.Background(),
			[][]pagekb.FilteredImage{testBatch(1)}, "", "", "")

		require.Len(t, result.ExcludedImages, 1)
		assert.Equal(t, "decorative_other", result.ExcludedImages[0].Category)
		assert.Equal(t, "Classified as decorative", result.ExcludedImages[0].ExclusionReason)
	})

	t.Run("matches mangled ids by index substring", func(t *testing.T) {
		t.Parallel()

		reply := `{"images": [
			{"image_id": "image_000", "include": true, "category": "stats_data", "description": "Chart"},
			{"image_id": "picture-001.png", "include": false, "category": "branding", "exclusion_reason": "Logo"}
		]}`
		c := extract.NewClassifier(visionClient(reply, nil), "", nil)

		result := c.ClassifyAll(context.Background(),
			[][]pagekb.FilteredImage{testBatch(2)}, "", "", "")

		require.Len(t, result.IncludedImages, 1)
		require.Len(t, result.ExcludedImages, 1)
		assert.Equal(t, "img_000", result.IncludedImages[0].ImageID)
		assert.Equal(t, "img_001", result.ExcludedImages[0].ImageID)
	})

	t.Run("drops images the model never addressed", func(t *testing.T) {
		t.Parallel()

		reply := `{"images": [
			{"image_id": "img_000", "include": true, "category": "feature_icon", "description": "Icon"}
		]}`
		c := extract.NewClassifier(visionClient(reply, nil), "", nil)

		result := c.ClassifyAll(context.Background(),
			[][]pagekb.FilteredImage{testBatch(2)}, "", "", "")

		assert.Len(t, result.IncludedImages, 1)
		assert.Empty(t, result.ExcludedImages)
	})

	t.Run("a failed batch excludes its images and the run continues", func(t *testing.T) {
		t.Parallel()

		calls := 0
		client := &mock.LLMClient{
			CallWithImagesFn: func(ctx context.Context, systemPrompt, userPrompt string, imagePaths []string, maxOutputTokens int) (string, error) {
				calls++
				if calls == 1 {
					return "", errors.New("vision timeout")
				}
				return `{"images": [
					{"image_id": "img_002", "include": true, "category": "product_ui", "description": "UI"}
				]}`, nil
			},
		}
		c := extract.NewClassifier(client, "", nil)

		result := c.ClassifyAll(context.Background(),
			[][]pagekb.FilteredImage{testBatchAt(0, 2), testBatchAt(2, 1)}, "", "", "")

		require.Len(t, result.ExcludedImages, 2)
		assert.Equal(t, "img_000", result.ExcludedImages[0].ImageID)
		assert.Equal(t, "img_001", result.ExcludedImages[1].ImageID)
		assert.Equal(t, "error", result.ExcludedImages[0].Category)
		assert.Contains(t, result.ExcludedImages[0].ExclusionReason, "Processing error:")
		require.Len(t, result.IncludedImages, 1)
		assert.Equal(t, "img_002", result.IncludedImages[0].ImageID)
		assert.Equal(t, 2, result.ProcessingMetadata.BatchesProcessed)
	})

	t.Run("ids stay unique across batches", func(t *testing.T) {
		t.Parallel()

		calls := 0
		client := &mock.LLMClient{
			CallWithImagesFn: func(ctx context.Context, systemPrompt, userPrompt string, imagePaths []string, maxOutputTokens int) (string, error) {
				calls++
				if calls == 1 {
					return `{"images": [
						{"image_id": "img_000", "include": true, "category": "product_ui", "description": "First"}
					]}`, nil
				}
				return `{"images": [
					{"image_id": "img_001", "include": true, "category": "product_ui", "description": "Second"}
				]}`, nil
			},
		}
		c := extract.NewClassifier(client, "", nil)

		result := c.ClassifyAll(context.Background(),
			[][]pagekb.FilteredImage{testBatchAt(0, 1), testBatchAt(1, 1)}, "", "", "")

		require.Len(t, result.IncludedImages, 2)
		assert.Equal(t, "img_000", result.IncludedImages[0].ImageID)
		assert.Equal(t, "img_001", result.IncludedImages[1].ImageID)
		require.NotEqual(t, result.IncludedImages[0].ImageID, result.IncludedImages[1].ImageID)
		assert.NotEqual(t, result.IncludedImages[0].LocalPath, result.IncludedImages[1].LocalPath)
	})

	t.Run("unparseable response excludes the batch", func(t *testing.T) {
		t.Parallel()

		c := extract.NewClassifier(visionClient("I cannot help with that.", nil), "", nil)

		result := c.ClassifyAll(context.Background(),
			[][]pagekb.FilteredImage{testBatch(1)}, "", "", "")

		require.Len(t, result.ExcludedImages, 1)
		assert.Equal(t, "error", result.ExcludedImages[0].Category)
	})

	t.Run("records run metadata", func(t *testing.T) {
		t.Parallel()

		reply := `{"images": [
			{"image_id": "img_000", "include": true, "category": "product_ui", "description": "UI"},
			{"image_id": "img_001", "include": false, "category": "branding", "exclusion_reason": "Logo"}
		]}`
		c := extract.NewClassifier(visionClient(reply, nil), "", nil)

		result := c.ClassifyAll(context.Background(),
			[][]pagekb.FilteredImage{testBatch(2)}, "", "https://example.com", "Title")

		meta := result.ProcessingMetadata
		assert.Equal(t, "https://example.com", meta.SourceURL)
		assert.Equal(t, "mock-model", meta.Model)
		assert.Equal(t, 1, meta.BatchesProcessed)
		assert.Equal(t, 2, meta.TotalImagesEvaluated)
		assert.Equal(t, 1, meta.ImagesIncluded)
		assert.Equal(t, 1, meta.ImagesExcluded)
		assert.NotEmpty(t, meta.ProcessedAt)
	})

	t.Run("no batches yields empty non-nil slices", func(t *testing.T) {
		t.Parallel()

		c := extract.NewClassifier(visionClient("", nil), "", nil)

		result := c.ClassifyAll(context.Background(), nil, "", "", "")

		assert.NotNil(t, result.IncludedImages)
		assert.NotNil(t, result.ExcludedImages)
		assert.Zero(t, result.ProcessingMetadata.TotalImagesEvaluated)
	})
}
