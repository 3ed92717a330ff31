// Package services defines interfaces for domain service contracts.
package services

import (
	"context"

	"github.com/ochairo/imgaudit/internal/domain/entities"
)

// Analyzer is one audit engine processing filesystem images
type Analyzer interface {
	// Name returns the engine identifier used in report names ("cfa", "fsa")
	Name() string

	// Initialized reports whether the engine can process images
	Initialized() bool

	// ProcessFilesystem audits one image and emits its reports
	ProcessFilesystem(ctx context.Context, fs entities.FilesystemDescriptor) (*entities.RunSummary, error)
}
