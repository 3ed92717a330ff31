// Package services implements the audit engines and their decision logic.
package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/ochairo/imgaudit/internal/domain/entities"
	"github.com/ochairo/imgaudit/internal/domain/interfaces"
	"github.com/ochairo/imgaudit/internal/domain/interfaces/gateways"
)

// ErrNotInitialized marks runs skipped because the engine could not initialize
var ErrNotInitialized = errors.New("engine hasn't initialized, not performing the call")

// category is a violation list bound to its report metadata
type category struct {
	meta  entities.FindingCategory
	paths []string
	seen  map[string]bool
}

func newCategory(meta entities.FindingCategory) *category {
	return &category{meta: meta, seen: make(map[string]bool)}
}

// add records path once
func (c *category) add(path string) {
	if c.seen[path] {
		return
	}
	c.seen[path] = true
	c.paths = append(c.paths, path)
}

// findingEntry is the recorded form of a violating path. Accumulated findings span images,
// so each entry is qualified with the image it was found in.
func findingEntry(cfg entities.AnalyzerConfig, image, path string) string {
	if cfg.Accumulate {
		return image + ":" + path
	}
	return path
}

func (c *category) reset() {
	c.paths = nil
	c.seen = make(map[string]bool)
}

// findings is the ordered set of violation categories of one engine
type findings []*category

func (f findings) get(key string) *category {
	for _, c := range f {
		if c.meta.Key == key {
			return c
		}
	}
	panic("unknown finding category: " + key)
}

func (f findings) reset() {
	for _, c := range f {
		c.reset()
	}
}

// snapshot copies the accumulated paths per category key
func (f findings) snapshot() map[string][]string {
	out := make(map[string][]string, len(f))
	for _, c := range f {
		out[c.meta.Key] = append([]string(nil), c.paths...)
	}
	return out
}

func (f findings) report(engine string, fs entities.FilesystemDescriptor, layout entities.XMLLayout, sorted bool) *entities.ProblemsReport {
	r := &entities.ProblemsReport{
		Engine:    engine,
		ImageName: fs.ImageName,
		RootPath:  fs.RootPath,
		Layout:    layout,
	}
	for _, c := range f {
		meta := c.meta
		meta.Paths = append([]string(nil), c.paths...)
		r.Categories = append(r.Categories, meta)
	}
	if sorted {
		return r.Sorted()
	}
	return r
}

// prepareRun validates engine state and the descriptor. ok is false when the run is
// skipped; summary then carries the reason.
func prepareRun(logger interfaces.Logger, initialized bool, fs entities.FilesystemDescriptor, summary *entities.RunSummary) (desc entities.FilesystemDescriptor, ok bool, err error) {
	if !initialized {
		logger.Warn(ErrNotInitialized.Error(), interfaces.F("engine", summary.Engine))
		summary.Skipped = true
		summary.SkipReason = ErrNotInitialized.Error()
		return desc, false, nil
	}

	if err := fs.Validate(); err != nil {
		logger.Warn("Not performing the call", interfaces.F("engine", summary.Engine), interfaces.F("reason", err.Error()))
		summary.Skipped = true
		summary.SkipReason = err.Error()
		return desc, false, nil
	}

	root, err := filepath.Abs(fs.RootPath)
	if err != nil {
		return desc, false, fmt.Errorf("failed to resolve rootfs path: %w", err)
	}
	return entities.NewFilesystemDescriptor(fs.ImageName, root), true, nil
}

// emitProblems writes the problems and XML reports and fills the summary
func emitProblems(ctx context.Context, writer gateways.ReportWriter, report *entities.ProblemsReport, summary *entities.RunSummary) error {
	summary.Findings = make(map[string]int, len(report.Categories))
	for _, c := range report.Categories {
		summary.Findings[c.Key] = len(c.Paths)
	}

	path, err := writer.WriteProblemsReport(ctx, report)
	if err != nil {
		return fmt.Errorf("failed to write problems report: %w", err)
	}
	summary.Reports = append(summary.Reports, path)

	path, err = writer.WriteXMLReport(ctx, report)
	if err != nil {
		return fmt.Errorf("failed to write XML report: %w", err)
	}
	summary.Reports = append(summary.Reports, path)
	return nil
}

func finish(summary *entities.RunSummary, start time.Time) *entities.RunSummary {
	summary.Duration = time.Since(start)
	return summary
}
