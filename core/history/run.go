package history

import (
	"time"

	"calendar-sync/core/reconcile"

	"github.com/google/uuid"
)

const (
	KindDatabase = "database"
	KindFeed     = "feed"
)

// Run is one synchronization of one target.
type Run struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	Kind       string    `gorm:"size:16;index" json:"kind"`
	Target     string    `gorm:"size:255;index" json:"target"`
	StartedAt  time.Time `gorm:"index" json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	DryRun     bool      `json:"dry_run"`
	Units      int       `json:"units"`
	Created    int       `json:"created"`
	Updated    int       `json:"updated"`
	Reset      int       `json:"reset"`
	Deleted    int       `json:"deleted"`
	Skipped    int       `json:"skipped"`
	Unchanged  int       `json:"unchanged"`
	Failed     int       `json:"failed"`
	Error      string    `gorm:"type:text" json:"error,omitempty"`
	// ReportKey is the object storage key of the archived report, if any.
	ReportKey string `gorm:"size:512" json:"report_key,omitempty"`
}

// TableName overrides the default table name.
func (Run) TableName() string {
	return "sync_runs"
}

// NewRun starts a run record.
func NewRun(kind, target string, startedAt time.Time) *Run {
	return &Run{
		ID:        uuid.NewString(),
		Kind:      kind,
		Target:    target,
		StartedAt: startedAt,
	}
}

// Finish copies the report counts and the run error into the record.
func (r *Run) Finish(report *reconcile.Report, err error, finishedAt time.Time) {
	r.FinishedAt = finishedAt
	if report != nil {
		s := report.Summary
		r.DryRun = report.DryRun
		r.Units = s.Units
		r.Created = s.Created
		r.Updated = s.Updated
		r.Reset = s.Reset
		r.Deleted = s.Deleted
		r.Skipped = s.Skipped
		r.Unchanged = s.Unchanged
		r.Failed = s.Failed
	}
	if err != nil {
		r.Error = err.Error()
	}
}
