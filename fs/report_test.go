package fs_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/mwielgus/pagekb/fs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReport(t *testing.T) {
	t.Parallel()

	t.Run("tracks folder lifecycle and counts", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "kb_processing_report.json")
		r := fs.OpenReport(path)
		require.NoError(t, r.SetTotalFolders(3))

		require.NoError(t, r.MarkStarted("a"))
		require.NoError(t, r.MarkSuccess("a", fs.FolderResult{
			SourceURL: "https://example.com/a", Sections: 4, ImagesIncluded: 2,
		}))
		require.NoError(t, r.MarkStarted("b"))
		require.NoError(t, r.MarkFailed("b", "grouping failed"))
		require.NoError(t, r.MarkSkipped("c", "no *_dom.html file found"))

		s := r.Summary()
		assert.Equal(t, 3, s.TotalFolders)
		assert.Equal(t, 1, s.Processed)
		assert.Equal(t, 1, s.Failed)
		assert.Equal(t, 1, s.Skipped)
		assert.Equal(t, 0, s.Pending)
		assert.True(t, r.IsProcessed("a"))
		assert.False(t, r.IsProcessed("b"))
	})

	t.Run("persists every state change", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "report.json")
		r := fs.OpenReport(path)
		require.NoError(t, r.MarkStarted("a"))

		raw, err := os.ReadFile(path)
		require.NoError(t, err)
		var data map[string]any
		require.NoError(t, json.Unmarshal(raw, &data))
		folders := data["folders"].(map[string]any)
		entry := folders["a"].(map[string]any)
		assert.Equal(t, "processing", entry["status"])
		assert.NotEmpty(t, data["run_id"])
	})

	t.Run("reloads prior progress for resumed runs", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "report.json")
		first := fs.OpenReport(path)
		require.NoError(t, first.MarkStarted("a"))
		require.NoError(t, first.MarkSuccess("a", fs.FolderResult{PageTitle: "A"}))

		second := fs.OpenReport(path)

		assert.True(t, second.IsProcessed("a"))
		assert.NotEqual(t, first.RunID(), second.RunID(), "each run gets its own id")
	})

	t.Run("replaces an unreadable report", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "report.json")
		require.NoError(t, os.WriteFile(path, []byte("{{corrupt"), 0o644))

		r := fs.OpenReport(path)

		assert.NotEmpty(t, r.RunID())
		assert.False(t, r.IsProcessed("anything"))
	})
}
