// Package gateways defines interfaces for external tools and infrastructure.
package gateways

import (
	"context"

	"github.com/ochairo/imgaudit/internal/domain/entities"
)

// MimeClassifier determines the MIME type of a file
type MimeClassifier interface {
	// ClassifyMIME returns the trailing MIME token reported for path
	ClassifyMIME(ctx context.Context, path string) (string, error)
}

// HardeningInspector reports binary hardening flags for a file
type HardeningInspector interface {
	// Name identifies the inspector in logs
	Name() string

	// Available probes whether the inspector can run on this host
	Available() bool

	// InspectHardening returns the scored flags reported for path
	InspectHardening(ctx context.Context, path string) ([]entities.SecurityFlag, error)
}

// Filesystem gives engines read-only access to a mounted rootfs
type Filesystem interface {
	// Enumerate lists absolute paths below root; directories only when includeDirs is set
	Enumerate(root string, includeDirs bool) ([]string, error)

	// LinkStatus returns the raw mode and ownership of path without following symlinks
	LinkStatus(path string) (entities.FsObjectRecord, error)

	// ResolveInRoot resolves symlinks in path treating root as "/"
	ResolveInRoot(root, path string) (string, error)
}
