// Package sync implements the C9 synchronization manager: it detects and
// repairs drift between the filesystem, the metadata store, and the vector
// store, and runs that detection on a schedule.
package sync

import (
	"time"

	ragerrors "github.com/localrag/ragengine/internal/errors"
)

// Severity mirrors the drift taxonomy's per-issue severity.
type Severity string

const (
	SeverityLow   Severity = "low"
	SeverityMed   Severity = "medium"
	SeverityHigh  Severity = "high"
	SeverityFatal Severity = "fatal"
)

var issueSeverity = map[ragerrors.IntegrityKind]Severity{
	ragerrors.IntegrityMissingFile:       SeverityHigh,
	ragerrors.IntegrityOrphanedVector:    SeverityHigh,
	ragerrors.IntegrityHashMismatch:      SeverityMed,
	ragerrors.IntegrityNewFile:           SeverityLow,
	ragerrors.IntegrityMissingVectors:    SeverityHigh,
	ragerrors.IntegrityDimensionMismatch: SeverityFatal,
}

// Issue is one unit of detected drift.
type Issue struct {
	Kind     ragerrors.IntegrityKind
	Severity Severity
	Path     string // relative path, when known
	FileID   string // doc_id, when known
	Details  string
}

// Report is the result of generate_sync_report.
type Report struct {
	StartedAt   time.Time
	Duration    time.Duration
	Deep        bool
	FilesChecked int
	Issues      []Issue
	IssueCounts map[ragerrors.IntegrityKind]int
	Fixed       []FixResult
}

// FixResult records the outcome of repairing one issue.
type FixResult struct {
	Issue   Issue
	Applied bool
	Error   string
}

func newReport(deep bool) *Report {
	return &Report{
		Deep:        deep,
		IssueCounts: make(map[ragerrors.IntegrityKind]int),
	}
}

func (r *Report) add(issue Issue) {
	r.Issues = append(r.Issues, issue)
	r.IssueCounts[issue.Kind]++
}
