package goquery_test

import (
	"strings"
	"testing"

	"github.com/mwielgus/pagekb/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `<!DOCTYPE html>
<html>
<head>
	<title>Test Page</title>
	<style>.hidden { display: none; }</style>
	<script>console.log('test');</script>
</head>
<body>
	<nav>Navigation here</nav>
	<main>
		<h1 class="title" id="main-title" data-track="hero">Main Title</h1>
		<p style="color: red">This is the main content.</p>
		<!-- a comment -->
		<div style="display:none">Hidden content</div>
		<span>wrapped</span>
		<div aria-hidden="true">x</div>
		<section>
			<h2>Section Title</h2>
			<p>Section content here.</p>
		</section>
	</main>
	<footer>Footer content</footer>
</body>
</html>`

func TestCleaner_Clean(t *testing.T) {
	t.Parallel()

	cleaner := goquery.NewCleaner(goquery.DefaultCleanConfig())

	t.Run("removes noise and keeps content", func(t *testing.T) {
		t.Parallel()

		cleaned, stats, err := cleaner.Clean(samplePage)

		require.NoError(t, err)
		assert.Contains(t, cleaned, "Main Title")
		assert.Contains(t, cleaned, "Section content here.")
		assert.NotContains(t, cleaned, "console.log")
		assert.NotContains(t, cleaned, "Navigation here")
		assert.NotContains(t, cleaned, "Footer content")
		assert.NotContains(t, cleaned, "Hidden content")
		assert.NotContains(t, cleaned, "a comment")

		assert.Equal(t, 1, stats.ElementsRemoved["scripts"])
		assert.Equal(t, 1, stats.ElementsRemoved["styles"])
		assert.Equal(t, 1, stats.ElementsRemoved["comments"])
		assert.Equal(t, 1, stats.ElementsRemoved["nav_elements"])
		assert.Equal(t, 1, stats.ElementsRemoved["footer_elements"])
		assert.Equal(t, 2, stats.ElementsRemoved["hidden_elements"])
	})

	t.Run("strips attributes and unwraps presentational tags", func(t *testing.T) {
		t.Parallel()

		cleaned, _, err := cleaner.Clean(samplePage)

		require.NoError(t, err)
		assert.NotContains(t, cleaned, "class=")
		assert.NotContains(t, cleaned, "id=")
		assert.NotContains(t, cleaned, "data-track")
		assert.NotContains(t, cleaned, "style=")
		assert.NotContains(t, cleaned, "<span")
		assert.Contains(t, cleaned, "wrapped")
	})

	t.Run("extracts body subtree", func(t *testing.T) {
		t.Parallel()

		cleaned, _, err := cleaner.Clean(samplePage)

		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(cleaned, "<body"))
		assert.NotContains(t, cleaned, "<title>")
	})

	t.Run("keeps long aria-hidden content", func(t *testing.T) {
		t.Parallel()

		page := `<body><div aria-hidden="true">` + strings.Repeat("real content ", 10) + `</div></body>`

		cleaned, _, err := cleaner.Clean(page)

		require.NoError(t, err)
		assert.Contains(t, cleaned, "real content")
	})

	t.Run("second pass removes nothing", func(t *testing.T) {
		t.Parallel()

		cleaned, _, err := cleaner.Clean(samplePage)
		require.NoError(t, err)

		_, stats, err := cleaner.Clean(cleaned)
		require.NoError(t, err)
		for key, count := range stats.ElementsRemoved {
			assert.Zero(t, count, "second pass removed %s", key)
		}
	})

	t.Run("computes sizes and content hash", func(t *testing.T) {
		t.Parallel()

		cleaned, stats, err := cleaner.Clean(samplePage)

		require.NoError(t, err)
		assert.Equal(t, len(samplePage), stats.OriginalDOMSize)
		assert.Equal(t, len(cleaned), stats.CleanedDOMSize)
		assert.Equal(t, len(cleaned)/4, stats.EstimatedTokens)
		assert.Len(t, stats.ContentHash, 16)
	})
}

func TestDOMSummary(t *testing.T) {
	t.Parallel()

	t.Run("lists headings in document order with level markers", func(t *testing.T) {
		t.Parallel()

		page := `<body><h1>Payroll</h1><section><h3>Pricing</h3></section><h2>Features</h2></body>`

		summary := goquery.DOMSummary(page, 4000)

		lines := strings.Split(summary, "\n")
		require.Len(t, lines, 3)
		assert.Equal(t, "# Payroll", lines[0])
		assert.Equal(t, "### Pricing", lines[1])
		assert.Equal(t, "## Features", lines[2])
	})

	t.Run("previews first paragraph of top-level blocks", func(t *testing.T) {
		t.Parallel()

		page := `<body><main><section><p>We handle payroll so you do not have to.</p><p>Second.</p></section></main></body>`

		summary := goquery.DOMSummary(page, 4000)

		assert.Contains(t, summary, "Content: We handle payroll so you do not have to....")
		assert.NotContains(t, summary, "Second.")
	})

	t.Run("bounds the summary length", func(t *testing.T) {
		t.Parallel()

		var b strings.Builder
		b.WriteString("<body>")
		for range 100 {
			b.WriteString("<h2>A heading with some words in it</h2>")
		}
		b.WriteString("</body>")

		summary := goquery.DOMSummary(b.String(), 400)

		assert.LessOrEqual(t, len(summary), 403)
		assert.True(t, strings.HasSuffix(summary, "..."))
	})
}
