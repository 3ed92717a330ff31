// Package repositories defines interfaces for data access layers.
package repositories

import (
	"context"

	"github.com/ochairo/imgaudit/internal/domain/entities"
)

// ImageRepository defines the interface for locating filesystem images to audit
type ImageRepository interface {
	// GetImage retrieves an image descriptor by name
	GetImage(ctx context.Context, name string) (entities.FilesystemDescriptor, error)

	// ListImages returns all known image descriptors
	ListImages(ctx context.Context) ([]entities.FilesystemDescriptor, error)
}
