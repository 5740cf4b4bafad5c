package sweep

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Report summarizes one sweep tick.
type Report struct {
	RunID        string    `json:"runId"`
	StartedAt    time.Time `json:"startedAt"`
	FinishedAt   time.Time `json:"finishedAt"`
	Expired      []string  `json:"expired"`
	PolicyClosed []string  `json:"policyClosed"`
	Duplicates   int       `json:"duplicates"`
	Failures     []Failure `json:"failures,omitempty"`
}

// Failure records a loan the tick could not close.
type Failure struct {
	LoanID string `json:"loanId"`
	Error  string `json:"error"`
}

// Closed is the number of loans this tick closed.
func (r *Report) Closed() int { return len(r.Expired) + len(r.PolicyClosed) }

// Empty reports whether the tick found nothing to do.
func (r *Report) Empty() bool {
	return r.Closed() == 0 && r.Duplicates == 0 && len(r.Failures) == 0
}

// ReportSink receives the report of every tick that did something.
type ReportSink interface {
	PutReport(ctx context.Context, r *Report) error
}

// ObjectPutter is the subset of storage.ObjectArchive the archive sink needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, key string, body []byte, contentType string) error
}

// ArchiveSink writes reports as JSON objects keyed by day and run id.
type ArchiveSink struct {
	Store  ObjectPutter
	Prefix string
}

func (s ArchiveSink) PutReport(ctx context.Context, r *Report) error {
	body, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return s.Store.PutObject(ctx, ReportKey(s.Prefix, r), body, "application/json")
}

// ReportKey returns "<prefix>/YYYY/MM/DD/<runId>.json".
func ReportKey(prefix string, r *Report) string {
	if prefix == "" {
		prefix = "sweeps"
	}
	return fmt.Sprintf("%s/%s/%s.json", prefix, r.StartedAt.UTC().Format("2006/01/02"), r.RunID)
}
