package fs_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/mwielgus/pagekb"
	"github.com/mwielgus/pagekb/fs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArtifactWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes cleaned html under the kb prefix", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		w := fs.NewArtifactWriter(dir, "data-privacy")

		path, err := w.WriteCleanedHTML("<body><p>hi</p></body>")

		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "kb_data-privacy_cleaned_dom.html"), path)
		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "<body><p>hi</p></body>", string(content))
	})

	t.Run("cleaned html path is known before writing", func(t *testing.T) {
		t.Parallel()

		w := fs.NewArtifactWriter("/out", "page")

		assert.Equal(t, filepath.Join("/out", "kb_page_cleaned_dom.html"), w.CleanedHTMLPath())
	})

	t.Run("writes json artifacts that round-trip", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		w := fs.NewArtifactWriter(dir, "page")

		kb := &pagekb.KnowledgeBase{
			Metadata: pagekb.KBMetadata{
				SourceURL:     "https://example.com",
				PageTitle:     "Example",
				TotalSections: 1,
			},
			Sections: []pagekb.Section{pagekb.NewSection("hero", "Hero", 1, "Top of page")},
		}

		path, err := w.WriteKnowledgeBase(kb)

		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "kb_page_knowledge_base.json"), path)

		raw, err := os.ReadFile(path)
		require.NoError(t, err)
		var got pagekb.KnowledgeBase
		require.NoError(t, json.Unmarshal(raw, &got))
		assert.Equal(t, kb.Metadata, got.Metadata)
		require.Len(t, got.Sections, 1)
		assert.Equal(t, "hero", got.Sections[0].ID)
	})

	t.Run("writes preprocessing and image artifacts", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		w := fs.NewArtifactWriter(dir, "page")

		p1, err := w.WritePreprocessedData(&pagekb.PreprocessedData{
			Source: pagekb.SourceInfo{URL: "https://example.com"},
		})
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "kb_page_preprocessed_data.json"), p1)

		p2, err := w.WriteImageDescriptions(pagekb.ImageClassification{
			IncludedImages: []pagekb.ImageDescription{},
			ExcludedImages: []pagekb.ExcludedImage{},
		})
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "kb_page_image_descriptions.json"), p2)
	})
}
