package fs

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/mwielgus/pagekb"
)

// ArtifactWriter writes generation artifacts into a bundle directory,
// prefixed "kb_" so repeated runs never collide with scraper output.
type ArtifactWriter struct {
	dir      string
	baseName string
}

// NewArtifactWriter creates a writer for one page's bundle directory.
func NewArtifactWriter(dir, baseName string) *ArtifactWriter {
	return &ArtifactWriter{dir: dir, baseName: baseName}
}

// CleanedHTMLPath returns where the cleaned DOM is (or will be)
// written, for recording in the preprocessing artifact.
func (w *ArtifactWriter) CleanedHTMLPath() string {
	return w.path("cleaned_dom.html")
}

// WriteCleanedHTML persists the cleaned DOM and returns its path.
func (w *ArtifactWriter) WriteCleanedHTML(cleanedHTML string) (string, error) {
	p := w.CleanedHTMLPath()
	return p, os.WriteFile(p, []byte(cleanedHTML), 0644)
}

// WritePreprocessedData persists the preprocessing-stats artifact.
func (w *ArtifactWriter) WritePreprocessedData(data *pagekb.PreprocessedData) (string, error) {
	return w.writeJSON("preprocessed_data.json", data)
}

// WriteImageDescriptions persists the image-classification artifact.
func (w *ArtifactWriter) WriteImageDescriptions(ic pagekb.ImageClassification) (string, error) {
	return w.writeJSON("image_descriptions.json", ic)
}

// WriteKnowledgeBase persists the final knowledge base.
func (w *ArtifactWriter) WriteKnowledgeBase(kb *pagekb.KnowledgeBase) (string, error) {
	return w.writeJSON("knowledge_base.json", kb)
}

func (w *ArtifactWriter) path(suffix string) string {
	return filepath.Join(w.dir, "kb_"+w.baseName+"_"+suffix)
}

func (w *ArtifactWriter) writeJSON(suffix string, v any) (string, error) {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	p := w.path(suffix)
	return p, os.WriteFile(p, raw, 0644)
}
