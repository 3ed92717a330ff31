// Package report renders engine findings into full, problems and XML report artifacts.
package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ochairo/imgaudit/internal/domain/entities"
	"github.com/ochairo/imgaudit/internal/domain/interfaces/gateways"
)

// Artifact kinds
const (
	KindFull     = "full_report"
	KindProblems = "problems_report"
)

// Writer writes report artifacts into one report directory for one run timestamp
type Writer struct {
	dir       string
	timestamp string
}

// NewWriter creates a report writer
func NewWriter(dir, timestamp string) *Writer {
	return &Writer{dir: dir, timestamp: timestamp}
}

// ArtifactPath returns <dir>/<engine>_<kind>_<image>_<timestamp>
func ArtifactPath(dir, engine, kind, imageName, timestamp string) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%s_%s_%s", engine, kind, imageName, timestamp))
}

// OpenFullReport starts an in-memory full report; Close writes it out
func (w *Writer) OpenFullReport(engine, imageName string, header []string) gateways.FullReport {
	return &fullReport{
		path:   ArtifactPath(w.dir, engine, KindFull, imageName, w.timestamp),
		header: header,
	}
}

// WriteProblemsReport writes the plain-text problems report
func (w *Writer) WriteProblemsReport(ctx context.Context, report *entities.ProblemsReport) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var b strings.Builder
	writeHeader(&b, []string{
		"Report for image: " + report.ImageName,
		"With rootfs location at " + report.RootPath,
	})
	for i, c := range report.Categories {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(c.Title + ":\n")
		for _, p := range c.Paths {
			b.WriteString(p + "\n")
		}
	}

	path := ArtifactPath(w.dir, report.Engine, KindProblems, report.ImageName, w.timestamp)
	if err := writeFile(path, []byte(b.String())); err != nil {
		return "", err
	}
	return path, nil
}

// WriteXMLReport writes the structured problems report
func (w *Writer) WriteXMLReport(ctx context.Context, report *entities.ProblemsReport) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	data, err := MarshalXML(report)
	if err != nil {
		return "", err
	}

	path := ArtifactPath(w.dir, report.Engine, KindProblems, report.ImageName, w.timestamp) + ".xml"
	if err := writeFile(path, data); err != nil {
		return "", err
	}
	return path, nil
}

type fullReport struct {
	path   string
	header []string
	lines  []string
}

func (r *fullReport) Append(line string) {
	r.lines = append(r.lines, line)
}

func (r *fullReport) Close() (string, error) {
	var b strings.Builder
	writeHeader(&b, r.header)
	for _, l := range r.lines {
		b.WriteString(l + "\n")
	}
	if err := writeFile(r.path, []byte(b.String())); err != nil {
		return "", err
	}
	return r.path, nil
}

func writeHeader(b *strings.Builder, header []string) {
	for _, h := range header {
		b.WriteString(h + "\n")
	}
	b.WriteString("\n")
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil { //nolint:gosec // report directory is shared with CI tooling
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // reports are meant to be shared
		return fmt.Errorf("failed to write report %s: %w", path, err)
	}
	return nil
}
