// Package extract orchestrates the LLM-driven stages of knowledge-base
// generation: page metadata, semantic grouping of the parsed outline,
// batched section extraction with hierarchy reconciliation, and vision
// image classification.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/mwielgus/pagekb"
	pagekbquery "github.com/mwielgus/pagekb/goquery"
)

// Token ceilings per call kind.
const (
	metadataMaxTokens   = 2048
	groupingMaxTokens   = 4096
	extractionMaxTokens = 8192
)

// SectionsPerBatch is the number of sections extracted per LLM call.
const SectionsPerBatch = 4

// Input carries everything one page contributes to generation.
type Input struct {
	CleanedHTML    string
	Outline        []pagekb.ParsedSection
	Images         pagekb.ImageClassification
	SourceURL      string
	PageTitle      string
	DataSegment    string
	ScreenshotPath string
}

// Generator runs the staged pipeline for one page. It is strictly
// sequential; do not share an instance across concurrent pages.
type Generator struct {
	client        pagekb.LLMClient
	logger        *slog.Logger
	batchSize     int
	trimThreshold int
}

// NewGenerator creates a generator with default batching.
func NewGenerator(client pagekb.LLMClient, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		client:        client,
		logger:        logger,
		batchSize:     SectionsPerBatch,
		trimThreshold: pagekbquery.DefaultTrimThreshold,
	}
}

// SetBatchSize overrides the sections-per-call batch size.
func (g *Generator) SetBatchSize(n int) {
	if n > 0 {
		g.batchSize = n
	}
}

type pageMetadata struct {
	Product             string `json:"product"`
	TargetAudience      string `json:"target_audience"`
	DocumentSummary     string `json:"document_summary"`
	KeyValueProposition string `json:"key_value_proposition"`
}

// Generate produces the knowledge base for one page. Metadata and
// per-batch extraction failures degrade the output; a grouping failure
// fails the page.
func (g *Generator) Generate(ctx context.Context, in Input) (*pagekb.KnowledgeBase, error) {
	meta := g.extractMetadata(ctx, in)

	groups, err := g.groupSections(ctx, in)
	if err != nil {
		return nil, err
	}

	flat := flattenGroups(groups)
	g.logger.Info("grouping complete", "groups", len(groups), "sections_to_extract", len(flat))

	extracted := g.extractSections(ctx, flat, in)

	sections := reconstructHierarchy(groups, extracted)

	return g.merge(sections, meta, in), nil
}

// extractMetadata asks for page-level metadata. Failures leave the
// metadata fields empty rather than failing the page.
func (g *Generator) extractMetadata(ctx context.Context, in Input) pageMetadata {
	prompt := buildMetadataPrompt(in.SourceURL, in.PageTitle, in.DataSegment, in.Outline, in.CleanedHTML)

	raw, err := g.client.CallTextOnly(ctx, metadataSystemPrompt, prompt, metadataMaxTokens)
	if err != nil {
		g.logger.Warn("metadata extraction failed", "error", err)
		return pageMetadata{}
	}

	var meta pageMetadata
	if err := pagekb.DecodeJSONResponse(raw, &meta); err != nil {
		g.logger.Warn("metadata response unparseable", "error", err)
		return pageMetadata{}
	}
	return meta
}

type groupingResponse struct {
	TotalSectionsFound int                     `json:"total_sections_found"`
	GroupedSections    []pagekb.GroupedSection `json:"grouped_sections"`
}

// groupSections asks the model to organize the parsed outline into a
// two-level hierarchy, attaching the page screenshot when one exists.
// An unusable response fails the page; an empty-but-valid one falls
// back to one standalone group per outline entry.
func (g *Generator) groupSections(ctx context.Context, in Input) ([]pagekb.GroupedSection, error) {
	trimmed, err := pagekbquery.TrimForGrouping(in.CleanedHTML, g.trimThreshold)
	if err != nil {
		return nil, err
	}

	prompt := buildGroupingPrompt(in.PageTitle, trimmed)

	var raw string
	if in.ScreenshotPath != "" {
		if _, statErr := os.Stat(in.ScreenshotPath); statErr == nil {
			raw, err = g.client.CallWithImages(ctx, groupingSystemPrompt, prompt,
				[]string{in.ScreenshotPath}, groupingMaxTokens)
		} else {
			g.logger.Warn("screenshot unavailable, grouping text-only", "path", in.ScreenshotPath)
			raw, err = g.client.CallTextOnly(ctx, groupingSystemPrompt, prompt, groupingMaxTokens)
		}
	} else {
		raw, err = g.client.CallTextOnly(ctx, groupingSystemPrompt, prompt, groupingMaxTokens)
	}
	if err != nil {
		return nil, err
	}

	var resp groupingResponse
	if err := pagekb.DecodeJSONResponse(raw, &resp); err != nil {
		return nil, err
	}

	if len(resp.GroupedSections) == 0 {
		g.logger.Warn("grouping returned no sections, falling back to parsed outline",
			"outline_sections", len(in.Outline))
		return fallbackGroups(in.Outline), nil
	}

	for i := range resp.GroupedSections {
		normalizeGroup(&resp.GroupedSections[i])
	}
	return resp.GroupedSections, nil
}

// fallbackGroups turns the parsed outline into standalone groups when
// the model offers no grouping of its own.
func fallbackGroups(outline []pagekb.ParsedSection) []pagekb.GroupedSection {
	groups := make([]pagekb.GroupedSection, 0, len(outline))
	for _, s := range outline {
		sectionType := s.SectionType
		if sectionType == pagekb.SectionTypeHeading {
			sectionType = ""
		}
		groups = append(groups, pagekb.GroupedSection{
			ID:          s.ID,
			Title:       s.Title,
			Level:       s.Level,
			Type:        pagekb.GroupStandalone,
			SectionType: sectionType,
		})
	}
	return groups
}

// normalizeGroup fills defaults the model commonly omits.
func normalizeGroup(gs *pagekb.GroupedSection) {
	if gs.ID == "" {
		gs.ID = pagekb.SlugID(gs.Title)
	}
	if gs.Level == 0 {
		gs.Level = 2
	}
	if gs.Type == "" {
		gs.Type = pagekb.GroupStandalone
	}
	for i := range gs.Children {
		child := &gs.Children[i]
		if child.ID == "" {
			child.ID = pagekb.SlugID(child.Title)
		}
		if child.Level == 0 {
			child.Level = gs.Level + 1
		}
	}
}

// flattenGroups lists every section to extract: parents and standalone
// sections in order, then children stamped with their parent's ID one
// level below it.
func flattenGroups(groups []pagekb.GroupedSection) []pagekb.GroupedSection {
	var flat []pagekb.GroupedSection
	for _, gs := range groups {
		top := gs
		top.Children = nil
		flat = append(flat, top)
	}
	for _, gs := range groups {
		for _, child := range gs.Children {
			child.ParentID = gs.ID
			child.Level = gs.Level + 1
			flat = append(flat, child)
		}
	}
	return flat
}

type extractionResponse struct {
	Sections []pagekb.Section `json:"sections"`
}

// extractSections runs batched content extraction. A failed batch
// yields error placeholders for exactly its own sections; other batches
// are unaffected.
func (g *Generator) extractSections(ctx context.Context, flat []pagekb.GroupedSection, in Input) *extractedSet {
	imageJSON := imagePromptJSON(in.Images.IncludedImages)

	set := newExtractedSet()
	for start := 0; start < len(flat); start += g.batchSize {
		end := min(start+g.batchSize, len(flat))
		batch := flat[start:end]
		batchNum := start/g.batchSize + 1

		sections, err := g.extractBatch(ctx, batch, in, imageJSON)
		if err != nil {
			g.logger.Warn("batch extraction failed, emitting placeholders",
				"batch", batchNum, "sections", len(batch), "error", err)
			for _, gs := range batch {
				ph := pagekb.NewSection(gs.ID, gs.Title, gs.Level,
					fmt.Sprintf("Error extracting section: %s", truncateError(err, 100)))
				set.add(ph)
			}
			continue
		}

		g.logger.Info("batch extracted", "batch", batchNum, "sections", len(sections))
		for _, s := range sections {
			s.Normalize()
			set.add(s)
		}
	}
	return set
}

func (g *Generator) extractBatch(ctx context.Context, batch []pagekb.GroupedSection, in Input, imageJSON string) ([]pagekb.Section, error) {
	prompt := buildExtractionPrompt(batch, in.CleanedHTML, imageJSON, in.SourceURL)

	raw, err := g.client.CallTextOnly(ctx, extractionSystemPrompt, prompt, extractionMaxTokens)
	if err != nil {
		return nil, err
	}

	var resp extractionResponse
	if err := pagekb.DecodeJSONResponse(raw, &resp); err != nil {
		return nil, err
	}
	return resp.Sections, nil
}

// imagePromptJSON renders the included-image descriptions for the
// extraction prompt, or the sentinel when there are none.
func imagePromptJSON(images []pagekb.ImageDescription) string {
	if len(images) == 0 {
		return "NO_IMAGES_AVAILABLE"
	}
	b, err := json.MarshalIndent(images, "", "  ")
	if err != nil {
		return "NO_IMAGES_AVAILABLE"
	}
	return string(b)
}

func (g *Generator) merge(sections []pagekb.Section, meta pageMetadata, in Input) *pagekb.KnowledgeBase {
	now := time.Now().UTC()
	imgMeta := in.Images.ProcessingMetadata

	return &pagekb.KnowledgeBase{
		Metadata: pagekb.KBMetadata{
			SourceURL:           in.SourceURL,
			PageTitle:           in.PageTitle,
			Product:             meta.Product,
			TargetAudience:      meta.TargetAudience,
			DataSegment:         in.DataSegment,
			GeneratedAt:         now.Format(time.RFC3339),
			Model:               g.client.Model(),
			TotalSections:       pagekb.CountSections(sections),
			TotalImagesIncluded: imgMeta.ImagesIncluded,
		},
		DocumentSummary:     meta.DocumentSummary,
		KeyValueProposition: meta.KeyValueProposition,
		Sections:            sections,
		AllImagesSummary: pagekb.AllImagesSummary{
			TotalEvaluated: imgMeta.TotalImagesEvaluated,
			Included:       imgMeta.ImagesIncluded,
			Excluded:       imgMeta.ImagesExcluded,
		},
		LastUpdated: now.Format("2006-01-02"),
	}
}

func truncateError(err error, n int) string {
	msg := err.Error()
	if len(msg) > n {
		return msg[:n]
	}
	return msg
}
