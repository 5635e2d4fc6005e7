// Package report builds and persists reconciliation reports: the change
// summary for a session plus its discrepancies, totaled by severity and
// type, stored as JSON with an HTML rendering alongside.
package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"time"

	"rackdiff/internal/detect"
	"rackdiff/internal/inventory"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a looked-up report does not exist.
var ErrNotFound = errors.New("report: not found")

// Report is a point-in-time reconciliation summary for one session.
type Report struct {
	ReportID      string                            `json:"report_id"`
	SessionID     string                            `json:"session_id"`
	RackID        string                            `json:"rack_id"`
	GeneratedAt   time.Time                         `json:"generated_at"`
	Score         float64                           `json:"ssim_score"`
	TotalChanges  int                               `json:"total_changes"`
	TotalOpen     int                               `json:"total_open"`
	BySeverity    map[inventory.Severity]int        `json:"by_severity"`
	ByType        map[inventory.DiscrepancyType]int `json:"by_type"`
	Discrepancies []inventory.Discrepancy           `json:"discrepancies"`
}

// Build assembles a report from a session's change set and its recorded
// discrepancies. Each report gets a fresh id.
func Build(set *detect.ChangeSet, rackID string, discrepancies []inventory.Discrepancy) *Report {
	r := &Report{
		ReportID:      uuid.NewString(),
		SessionID:     set.SessionID,
		RackID:        rackID,
		GeneratedAt:   time.Now().UTC(),
		Score:         set.Score,
		TotalChanges:  len(set.Changes),
		BySeverity:    make(map[inventory.Severity]int),
		ByType:        make(map[inventory.DiscrepancyType]int),
		Discrepancies: discrepancies,
	}

	for _, d := range discrepancies {
		r.BySeverity[d.Severity]++
		r.ByType[d.Type]++
		if d.Status != inventory.StatusResolved {
			r.TotalOpen++
		}
	}
	return r
}

// Store persists reports under <base>/<session>/reports/.
type Store struct {
	baseDir string
}

// NewStore creates the base directory if needed.
func NewStore(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create reports directory: %w", err)
	}
	return &Store{baseDir: baseDir}, nil
}

func (s *Store) reportPath(sessionID, reportID, ext string) string {
	return filepath.Join(s.baseDir, sessionID, "reports", reportID+ext)
}

// Save writes the report as JSON plus an HTML rendering next to it.
func (s *Store) Save(r *Report) error {
	dir := filepath.Join(s.baseDir, r.SessionID, "reports")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(s.reportPath(r.SessionID, r.ReportID, ".json"), data, 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	html, err := RenderHTML(r)
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.reportPath(r.SessionID, r.ReportID, ".html"), html, 0644); err != nil {
		return fmt.Errorf("failed to write report html: %w", err)
	}
	return nil
}

// Load fetches a stored report by session and report id.
func (s *Store) Load(sessionID, reportID string) (*Report, error) {
	data, err := os.ReadFile(s.reportPath(sessionID, reportID, ".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("report %s/%s: %w", sessionID, reportID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read report: %w", err)
	}

	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}
	return &r, nil
}

// RenderHTML renders the report with the built-in template.
func RenderHTML(r *Report) ([]byte, error) {
	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, r); err != nil {
		return nil, fmt.Errorf("failed to render report: %w", err)
	}
	return buf.Bytes(), nil
}

var reportTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <title>Reconciliation Report {{.ReportID}}</title>
  <style>
    body { font-family: sans-serif; margin: 2em; }
    table { border-collapse: collapse; }
    th, td { border: 1px solid #999; padding: 4px 10px; text-align: left; }
    .High { color: #b00; } .Medium { color: #b60; } .Low { color: #060; }
  </style>
</head>
<body>
  <h1>Rack Change Reconciliation Report</h1>
  <p>Session {{.SessionID}} &mdash; rack {{.RackID}} &mdash; generated {{.GeneratedAt.Format "2006-01-02 15:04:05 UTC"}}</p>
  <p>Similarity score: {{printf "%.4f" .Score}} &mdash; {{.TotalChanges}} change(s), {{len .Discrepancies}} discrepancy(ies), {{.TotalOpen}} open</p>

  <h2>Totals by severity</h2>
  <table>
    <tr><th>Severity</th><th>Count</th></tr>
    {{range $sev, $n := .BySeverity}}<tr><td class="{{$sev}}">{{$sev}}</td><td>{{$n}}</td></tr>
    {{end}}
  </table>

  <h2>Totals by type</h2>
  <table>
    <tr><th>Type</th><th>Count</th></tr>
    {{range $typ, $n := .ByType}}<tr><td>{{$typ}}</td><td>{{$n}}</td></tr>
    {{end}}
  </table>

  <h2>Discrepancies</h2>
  <table>
    <tr><th>ID</th><th>Type</th><th>Severity</th><th>RU</th><th>Status</th><th>Description</th><th>Recommended action</th></tr>
    {{range .Discrepancies}}<tr>
      <td>{{.ID}}</td>
      <td>{{.Type}}</td>
      <td class="{{.Severity}}">{{.Severity}}</td>
      <td>{{.RUPosition}}</td>
      <td>{{.Status}}</td>
      <td>{{.Description}}</td>
      <td>{{.RecommendedAction}}</td>
    </tr>
    {{end}}
  </table>
</body>
</html>
`))
