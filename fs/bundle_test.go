package fs_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mwielgus/pagekb"
	"github.com/mwielgus/pagekb/fs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeBundle(t *testing.T, dir string) {
	t.Helper()
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "data-privacy_dom.html"),
		[]byte("<html><body><h1>Privacy</h1></body></html>"), 0o644))
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "data-privacy_mapping.json"),
		[]byte(`{
			"url": "https://example.com/privacy",
			"page_title": "Data Privacy",
			"scraped_at": "2026-08-01T10:00:00Z",
			"images": [
				{"index": 0, "src": "https://example.com/a.png", "alt": "chart",
				 "width": 800, "height": 600, "local_path": "images/a.png", "file_size": 40000}
			]
		}`), 0o644))
}

func TestOpenBundle(t *testing.T) {
	t.Parallel()

	t.Run("locates files and decodes the mapping", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		writeBundle(t, dir)

		b, err := fs.OpenBundle(dir)

		require.NoError(t, err)
		assert.Equal(t, "data-privacy", b.BaseName)
		assert.Equal(t, filepath.Join(dir, "data-privacy_dom.html"), b.HTMLPath)
		assert.Equal(t, filepath.Join(dir, "images"), b.ImagesDir)
		assert.Empty(t, b.ScreenshotPath)
		assert.Equal(t, "https://example.com/privacy", b.Mapping.URL)
		assert.Equal(t, "Data Privacy", b.Mapping.PageTitle)
		require.Len(t, b.Mapping.Images, 1)
		assert.Equal(t, "images/a.png", b.Mapping.Images[0].LocalPath)

		html, err := b.ReadHTML()
		require.NoError(t, err)
		assert.Contains(t, html, "<h1>Privacy</h1>")
	})

	t.Run("missing dom file is not found", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()

		_, err := fs.OpenBundle(dir)

		require.Error(t, err)
		assert.Equal(t, pagekb.ENOTFOUND, pagekb.ErrorCode(err))
	})

	t.Run("missing mapping file is not found", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		require.NoError(t, os.WriteFile(
			filepath.Join(dir, "page_dom.html"), []byte("<html></html>"), 0o644))

		_, err := fs.OpenBundle(dir)

		require.Error(t, err)
		assert.Equal(t, pagekb.ENOTFOUND, pagekb.ErrorCode(err))
	})

	t.Run("invalid mapping json is invalid", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		require.NoError(t, os.WriteFile(
			filepath.Join(dir, "page_dom.html"), []byte("<html></html>"), 0o644))
		require.NoError(t, os.WriteFile(
			filepath.Join(dir, "page_mapping.json"), []byte("not json"), 0o644))

		_, err := fs.OpenBundle(dir)

		require.Error(t, err)
		assert.Equal(t, pagekb.EINVALID, pagekb.ErrorCode(err))
	})

	t.Run("prefers the exact screenshot name", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		writeBundle(t, dir)
		shots := filepath.Join(dir, "screenshots")
		require.NoError(t, os.MkdirAll(shots, 0o755))
		require.NoError(t, os.WriteFile(
			filepath.Join(shots, "other_full_page.jpg"), []byte("x"), 0o644))
		require.NoError(t, os.WriteFile(
			filepath.Join(shots, "data-privacy_full_page.jpg"), []byte("x"), 0o644))

		b, err := fs.OpenBundle(dir)

		require.NoError(t, err)
		assert.Equal(t, filepath.Join(shots, "data-privacy_full_page.jpg"), b.ScreenshotPath)
	})

	t.Run("falls back to any full-page screenshot", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		writeBundle(t, dir)
		shots := filepath.Join(dir, "screenshots")
		require.NoError(t, os.MkdirAll(shots, 0o755))
		require.NoError(t, os.WriteFile(
			filepath.Join(shots, "homepage_full_page.png"), []byte("x"), 0o644))

		b, err := fs.OpenBundle(dir)

		require.NoError(t, err)
		assert.Equal(t, filepath.Join(shots, "homepage_full_page.png"), b.ScreenshotPath)
	})
}

func TestDataSegment(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Payroll", fs.DataSegment("Payroll__pricing-page", "General"))
	assert.Equal(t, "General", fs.DataSegment("pricing-page", "General"))
	assert.Equal(t, "General", fs.DataSegment("__pricing-page", "General"))
}
