package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/mwielgus/pagekb"
	"github.com/mwielgus/pagekb/extract"
	"github.com/mwielgus/pagekb/fs"
	pagekbquery "github.com/mwielgus/pagekb/goquery"
)

// folderCooldown is the pause between folders to stay clear of API
// rate limits.
const folderCooldown = 5 * time.Second

const domSummaryMaxLength = 4000

const reportFileName = "kb_processing_report.json"

// batch drives sequential processing of every page folder under the
// root directory.
type batch struct {
	cli    *CLI
	client pagekb.LLMClient
	logger *slog.Logger
	stdout io.Writer
}

func (b *batch) run(ctx context.Context) error {
	folders, err := discoverFolders(b.cli.Root)
	if err != nil {
		return err
	}
	if len(folders) == 0 {
		fmt.Fprintf(b.stdout, "No folders found under %s\n", b.cli.Root)
		return nil
	}

	report := fs.OpenReport(filepath.Join(b.cli.Root, reportFileName))
	if err := report.SetTotalFolders(len(folders)); err != nil {
		return fmt.Errorf("cannot write progress report: %w", err)
	}

	fmt.Fprintf(b.stdout, "Found %d folders to process (run %s)\n", len(folders), report.RunID())

	for i, folder := range folders {
		name := filepath.Base(folder)
		fmt.Fprintf(b.stdout, "[%d/%d] %s\n", i+1, len(folders), name)

		if !b.cli.Reprocess && report.IsProcessed(name) {
			fmt.Fprintf(b.stdout, "  skipped: already processed\n")
			continue
		}

		if err := report.MarkStarted(name); err != nil {
			return err
		}

		result, err := b.processFolder(ctx, folder, name)
		switch {
		case err == nil:
			_ = report.MarkSuccess(name, *result)
			fmt.Fprintf(b.stdout, "  success: %d sections, %d images included\n",
				result.Sections, result.ImagesIncluded)
		case pagekb.ErrorCode(err) == pagekb.ENOTFOUND:
			_ = report.MarkSkipped(name, err.Error())
			fmt.Fprintf(b.stdout, "  skipped: %v\n", err)
		case ctx.Err() != nil:
			_ = report.MarkFailed(name, err.Error())
			return ctx.Err()
		default:
			_ = report.MarkFailed(name, err.Error())
			b.logger.Error("folder failed", "folder", name, "error", err)
		}

		if i < len(folders)-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(folderCooldown):
			}
		}
	}

	s := report.Summary()
	fmt.Fprintf(b.stdout, "Done. Processed %d/%d, failed %d, skipped %d\n",
		s.Processed, s.TotalFolders, s.Failed, s.Skipped)
	return nil
}

// processFolder runs the full pipeline for one page folder and writes
// the artifacts back into it.
func (b *batch) processFolder(ctx context.Context, dir, name string) (*fs.FolderResult, error) {
	bundle, err := fs.OpenBundle(dir)
	if err != nil {
		return nil, err
	}

	rawHTML, err := bundle.ReadHTML()
	if err != nil {
		return nil, err
	}

	segment := fs.DataSegment(name, b.cli.Segment)
	writer := fs.NewArtifactWriter(dir, bundle.BaseName)

	// Stage 1: local preprocessing.
	cleaner := pagekbquery.NewCleaner(pagekbquery.DefaultCleanConfig())
	cleanedHTML, cleaningStats, err := cleaner.Clean(rawHTML)
	if err != nil {
		return nil, fmt.Errorf("cleaning failed: %w", err)
	}
	if _, err := writer.WriteCleanedHTML(cleanedHTML); err != nil {
		return nil, err
	}

	domSummary := pagekbquery.DOMSummary(cleanedHTML, domSummaryMaxLength)

	filtered, skipped, filterStats := pagekb.FilterImages(bundle.Mapping.Images, pagekb.DefaultFilterConfig())
	b.logger.Info("images filtered",
		"total", filterStats.Total, "passed", filterStats.Passed, "skipped", filterStats.Skipped)

	if _, err := writer.WritePreprocessedData(&pagekb.PreprocessedData{
		Source: pagekb.SourceInfo{
			URL:       bundle.Mapping.URL,
			PageTitle: bundle.Mapping.PageTitle,
			ScrapedAt: bundle.Mapping.ScrapedAt,
		},
		CleaningStats:  cleaningStats,
		ImageFiltering: filterStats,
		FilteredImages: filtered,
		SkippedImages:  skipped,
		CleanedDOMPath: writer.CleanedHTMLPath(),
	}); err != nil {
		return nil, err
	}

	outline, parseStats, err := pagekbquery.ParseSections(cleanedHTML)
	if err != nil {
		return nil, fmt.Errorf("outline parsing failed: %w", err)
	}
	b.logger.Info("outline parsed",
		"sections", parseStats.TotalSections,
		"faq", parseStats.FAQSections,
		"tables", parseStats.Tables)

	// Stage 2: image classification.
	var classification pagekb.ImageClassification
	if b.cli.SkipImages || len(filtered) == 0 {
		classification = pagekb.ImageClassification{
			IncludedImages: []pagekb.ImageDescription{},
			ExcludedImages: []pagekb.ExcludedImage{},
			ProcessingMetadata: pagekb.ClassificationMetadata{
				SourceURL:   bundle.Mapping.URL,
				Model:       b.client.Model(),
				ProcessedAt: time.Now().UTC().Format(time.RFC3339),
			},
		}
	} else {
		batches := pagekb.BatchImages(filtered, b.cli.ImageBatchSize)
		classifier := extract.NewClassifier(b.client, dir, b.logger)
		classification = classifier.ClassifyAll(ctx, batches, domSummary,
			bundle.Mapping.URL, bundle.Mapping.PageTitle)
	}
	if _, err := writer.WriteImageDescriptions(classification); err != nil {
		return nil, err
	}

	// Stage 3: knowledge-base generation.
	screenshot := bundle.ScreenshotPath
	if b.cli.NoScreenshot {
		screenshot = ""
	}

	generator := extract.NewGenerator(b.client, b.logger)
	generator.SetBatchSize(b.cli.BatchSize)

	kb, err := generator.Generate(ctx, extract.Input{
		CleanedHTML:    cleanedHTML,
		Outline:        outline,
		Images:         classification,
		SourceURL:      bundle.Mapping.URL,
		PageTitle:      bundle.Mapping.PageTitle,
		DataSegment:    segment,
		ScreenshotPath: screenshot,
	})
	if err != nil {
		return nil, fmt.Errorf("knowledge-base generation failed: %w", err)
	}

	kbPath, err := writer.WriteKnowledgeBase(kb)
	if err != nil {
		return nil, err
	}

	return &fs.FolderResult{
		SourceURL:      bundle.Mapping.URL,
		PageTitle:      bundle.Mapping.PageTitle,
		Sections:       kb.Metadata.TotalSections,
		ImagesIncluded: kb.Metadata.TotalImagesIncluded,
		KBPath:         kbPath,
	}, nil
}

// discoverFolders lists the immediate subdirectories of root in sorted
// order.
func discoverFolders(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var folders []string
	for _, e := range entries {
		if e.IsDir() {
			folders = append(folders, filepath.Join(root, e.Name()))
		}
	}
	sort.Strings(folders)
	return folders, nil
}
