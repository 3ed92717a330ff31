package gateways

import (
	"context"

	"github.com/ochairo/imgaudit/internal/domain/entities"
)

// FullReport accumulates one line per inspected object
type FullReport interface {
	// Append adds a line to the report
	Append(line string)

	// Close writes the report and returns its path
	Close() (string, error)
}

// ReportWriter emits the report artifacts of one engine run
type ReportWriter interface {
	// OpenFullReport starts the full report for an engine and image
	OpenFullReport(engine, imageName string, header []string) FullReport

	// WriteProblemsReport writes the plain-text problems report
	WriteProblemsReport(ctx context.Context, report *entities.ProblemsReport) (string, error)

	// WriteXMLReport writes the structured XML problems report
	WriteXMLReport(ctx context.Context, report *entities.ProblemsReport) (string, error)
}

// ReportSigner produces detached signatures for report artifacts
type ReportSigner interface {
	// SignFile writes a detached signature next to path and returns its location
	SignFile(path string) (string, error)
}

// ManifestWriter records checksums of the artifacts of one run
type ManifestWriter interface {
	// Write stores one checksum line per file in manifestPath
	Write(manifestPath string, files []string) error
}
