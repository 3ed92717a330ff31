// Package orchestrators coordinates the audit engines into complete image audits.
package orchestrators

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ochairo/imgaudit/internal/domain/entities"
	"github.com/ochairo/imgaudit/internal/domain/interfaces/gateways"
	"github.com/ochairo/imgaudit/internal/domain/interfaces/services"
)

// ManifestPath returns <dir>/checksums_<image>_<timestamp>.sha256
func ManifestPath(dir, imageName, timestamp string) string {
	return filepath.Join(dir, fmt.Sprintf("checksums_%s_%s.sha256", imageName, timestamp))
}

// AuditOptions configures an AuditOrchestrator
type AuditOptions struct {
	ReportDir string
	Timestamp string
	Parallel  bool // run the engines of one image concurrently

	Manifest gateways.ManifestWriter // optional
	Signer   gateways.ReportSigner   // optional
}

// AuditOrchestrator runs every engine over an image and seals the produced artifacts
type AuditOrchestrator struct {
	analyzers []services.Analyzer
	opts      AuditOptions
}

// NewAuditOrchestrator creates a new audit orchestrator
func NewAuditOrchestrator(analyzers []services.Analyzer, opts AuditOptions) *AuditOrchestrator {
	return &AuditOrchestrator{analyzers: analyzers, opts: opts}
}

// AuditResult is the outcome of auditing one image
type AuditResult struct {
	Image      entities.FilesystemDescriptor
	Summaries  []*entities.RunSummary // one per engine, in engine order
	Manifest   string                 // empty when nothing was written
	Signatures []string
	Duration   time.Duration
}

// TotalFindings returns the number of violations across engines
func (r *AuditResult) TotalFindings() int {
	total := 0
	for _, s := range r.Summaries {
		total += s.TotalFindings()
	}
	return total
}

// Artifacts returns every report path written for the image
func (r *AuditResult) Artifacts() []string {
	var out []string
	for _, s := range r.Summaries {
		out = append(out, s.Reports...)
	}
	return out
}

// AuditImage runs all engines over one image
func (o *AuditOrchestrator) AuditImage(ctx context.Context, image entities.FilesystemDescriptor) (*AuditResult, error) {
	start := time.Now()
	result := &AuditResult{
		Image:     image,
		Summaries: make([]*entities.RunSummary, len(o.analyzers)),
	}

	if o.opts.Parallel {
		g, gctx := errgroup.WithContext(ctx)
		for i, a := range o.analyzers {
			i, a := i, a
			g.Go(func() error {
				summary, err := a.ProcessFilesystem(gctx, image)
				if err != nil {
					return fmt.Errorf("%s analysis of %s failed: %w", a.Name(), image.ImageName, err)
				}
				result.Summaries[i] = summary
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		for i, a := range o.analyzers {
			summary, err := a.ProcessFilesystem(ctx, image)
			if err != nil {
				return nil, fmt.Errorf("%s analysis of %s failed: %w", a.Name(), image.ImageName, err)
			}
			result.Summaries[i] = summary
		}
	}

	if err := o.seal(result); err != nil {
		return nil, err
	}

	result.Duration = time.Since(start)
	return result, nil
}

// AuditImages audits images one after another and stops at the first failure
func (o *AuditOrchestrator) AuditImages(ctx context.Context, images []entities.FilesystemDescriptor) ([]*AuditResult, error) {
	results := make([]*AuditResult, 0, len(images))
	for _, image := range images {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		result, err := o.AuditImage(ctx, image)
		if err != nil {
			return results, err
		}
		results = append(results, result)
	}
	return results, nil
}

// seal writes the checksum manifest and signs every artifact
func (o *AuditOrchestrator) seal(result *AuditResult) error {
	artifacts := result.Artifacts()
	if len(artifacts) == 0 {
		return nil
	}

	if o.opts.Manifest != nil {
		path := ManifestPath(o.opts.ReportDir, result.Image.ImageName, o.opts.Timestamp)
		if err := o.opts.Manifest.Write(path, artifacts); err != nil {
			return fmt.Errorf("failed to write checksum manifest: %w", err)
		}
		result.Manifest = path
		artifacts = append(artifacts, path)
	}

	if o.opts.Signer != nil {
		for _, a := range artifacts {
			sig, err := o.opts.Signer.SignFile(a)
			if err != nil {
				return fmt.Errorf("failed to sign %s: %w", a, err)
			}
			result.Signatures = append(result.Signatures, sig)
		}
	}
	return nil
}
