package fs

import (
	"encoding/json"
	"os"
	"time"

	"github.com/google/uuid"
)

// Folder processing statuses recorded in the progress report.
const (
	StatusProcessing = "processing"
	StatusSuccess    = "success"
	StatusFailed     = "failed"
	StatusSkipped    = "skipped"
)

// FolderResult summarizes one successfully processed folder.
type FolderResult struct {
	SourceURL      string `json:"source_url"`
	PageTitle      string `json:"page_title"`
	Sections       int    `json:"sections"`
	ImagesIncluded int    `json:"images_included"`
	KBPath         string `json:"kb_path"`
}

// FolderStatus is one folder's entry in the progress report.
type FolderStatus struct {
	Status      string        `json:"status"`
	StartedAt   string        `json:"started_at,omitempty"`
	CompletedAt string        `json:"completed_at,omitempty"`
	Error       string        `json:"error,omitempty"`
	Result      *FolderResult `json:"result,omitempty"`
}

// ReportSummary aggregates folder statuses.
type ReportSummary struct {
	TotalFolders int `json:"total_folders"`
	Processed    int `json:"processed"`
	Failed       int `json:"failed"`
	Skipped      int `json:"skipped"`
	Pending      int `json:"pending"`
}

type reportData struct {
	RunID       string                   `json:"run_id"`
	CreatedAt   string                   `json:"created_at"`
	LastUpdated string                   `json:"last_updated"`
	Summary     ReportSummary            `json:"summary"`
	Folders     map[string]*FolderStatus `json:"folders"`
}

// Report is the persistent batch-processing ledger. Every state change
// is written through to disk immediately, so an interrupted run resumes
// where it left off.
type Report struct {
	path string
	data reportData
}

// OpenReport loads an existing report or starts a fresh one. Each run
// gets a new run id; an unreadable existing report is replaced rather
// than failing the batch.
func OpenReport(path string) *Report {
	r := &Report{path: path}
	raw, err := os.ReadFile(path)
	if err == nil && json.Unmarshal(raw, &r.data) == nil && r.data.Folders != nil {
		r.data.RunID = uuid.NewString()
		return r
	}
	now := timestamp()
	r.data = reportData{
		RunID:     uuid.NewString(),
		CreatedAt: now,
		Folders:   make(map[string]*FolderStatus),
	}
	return r
}

// RunID identifies the current run.
func (r *Report) RunID() string {
	return r.data.RunID
}

// Summary returns the current aggregate counts.
func (r *Report) Summary() ReportSummary {
	return r.data.Summary
}

// IsProcessed reports whether a folder already succeeded in a previous
// run.
func (r *Report) IsProcessed(folder string) bool {
	fs, ok := r.data.Folders[folder]
	return ok && fs.Status == StatusSuccess
}

// SetTotalFolders records how many folders this batch will visit.
func (r *Report) SetTotalFolders(n int) error {
	r.data.Summary.TotalFolders = n
	return r.save()
}

// MarkStarted records that a folder's processing began.
func (r *Report) MarkStarted(folder string) error {
	r.data.Folders[folder] = &FolderStatus{
		Status:    StatusProcessing,
		StartedAt: timestamp(),
	}
	return r.save()
}

// MarkSuccess records a folder's successful result.
func (r *Report) MarkSuccess(folder string, result FolderResult) error {
	r.data.Folders[folder] = &FolderStatus{
		Status:      StatusSuccess,
		StartedAt:   r.startedAt(folder),
		CompletedAt: timestamp(),
		Result:      &result,
	}
	r.updateSummary()
	return r.save()
}

// MarkFailed records a folder failure with its error text.
func (r *Report) MarkFailed(folder, errText string) error {
	r.data.Folders[folder] = &FolderStatus{
		Status:      StatusFailed,
		StartedAt:   r.startedAt(folder),
		CompletedAt: timestamp(),
		Error:       errText,
	}
	r.updateSummary()
	return r.save()
}

// MarkSkipped records a folder that was not processed, with the reason.
func (r *Report) MarkSkipped(folder, reason string) error {
	r.data.Folders[folder] = &FolderStatus{
		Status:      StatusSkipped,
		CompletedAt: timestamp(),
		Error:       reason,
	}
	r.updateSummary()
	return r.save()
}

func (r *Report) startedAt(folder string) string {
	if fs, ok := r.data.Folders[folder]; ok {
		return fs.StartedAt
	}
	return ""
}

func (r *Report) updateSummary() {
	s := ReportSummary{TotalFolders: r.data.Summary.TotalFolders}
	if len(r.data.Folders) > s.TotalFolders {
		s.TotalFolders = len(r.data.Folders)
	}
	for _, fs := range r.data.Folders {
		switch fs.Status {
		case StatusSuccess:
			s.Processed++
		case StatusFailed:
			s.Failed++
		case StatusSkipped:
			s.Skipped++
		default:
			s.Pending++
		}
	}
	r.data.Summary = s
}

func (r *Report) save() error {
	r.data.LastUpdated = timestamp()
	raw, err := json.MarshalIndent(r.data, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(r.path, raw, 0644)
}

func timestamp() string {
	return time.Now().Format(time.RFC3339)
}
