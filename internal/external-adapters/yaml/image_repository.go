package yaml

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ochairo/imgaudit/internal/domain/entities"
)

// ImageRepository implements repositories.ImageRepository using YAML files.
// The source is either a manifest file with an images list or a directory of
// one-image descriptor files (*.yml, *.yaml).
type ImageRepository struct {
	source string
	parser *ConfigParser
}

// NewImageRepository creates a YAML-based image repository
func NewImageRepository(source string) *ImageRepository {
	return &ImageRepository{
		source: source,
		parser: NewConfigParser(),
	}
}

// GetImage retrieves an image descriptor by name
func (r *ImageRepository) GetImage(ctx context.Context, name string) (entities.FilesystemDescriptor, error) {
	images, err := r.ListImages(ctx)
	if err != nil {
		return entities.FilesystemDescriptor{}, err
	}
	for _, img := range images {
		if img.ImageName == name {
			return img, nil
		}
	}
	return entities.FilesystemDescriptor{}, fmt.Errorf("image not found: %s", name)
}

// ListImages returns every image descriptor in the source
func (r *ImageRepository) ListImages(_ context.Context) ([]entities.FilesystemDescriptor, error) {
	info, err := os.Stat(r.source)
	if err != nil {
		return nil, fmt.Errorf("failed to access image source: %w", err)
	}
	if !info.IsDir() {
		settings, err := r.parser.ParseFile(r.source)
		if err != nil {
			return nil, err
		}
		return settings.Images, nil
	}

	entries, err := os.ReadDir(r.source)
	if err != nil {
		return nil, fmt.Errorf("failed to read images directory: %w", err)
	}

	images := make([]entities.FilesystemDescriptor, 0)
	seen := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() || !isYAML(entry.Name()) {
			continue
		}

		filePath := filepath.Join(r.source, entry.Name())
		desc, err := parseDescriptor(filePath)
		if err != nil {
			return nil, err
		}
		if prev, dup := seen[desc.ImageName]; dup {
			return nil, fmt.Errorf("image %q defined in both %s and %s", desc.ImageName, prev, entry.Name())
		}
		seen[desc.ImageName] = entry.Name()
		images = append(images, desc)
	}

	return images, nil
}

func parseDescriptor(filePath string) (entities.FilesystemDescriptor, error) {
	//nolint:gosec // G304: filePath is a descriptor inside the operator supplied directory
	data, err := os.ReadFile(filePath)
	if err != nil {
		return entities.FilesystemDescriptor{}, fmt.Errorf("failed to read file %s: %w", filePath, err)
	}

	var raw yamlImage
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return entities.FilesystemDescriptor{}, fmt.Errorf("failed to parse YAML %s: %w", filePath, err)
	}

	desc := entities.NewFilesystemDescriptor(raw.Name, resolve(filepath.Dir(filePath), raw.Rootfs))
	if err := desc.Validate(); err != nil {
		return entities.FilesystemDescriptor{}, fmt.Errorf("%s: %w", filePath, err)
	}
	return desc, nil
}

func isYAML(name string) bool {
	return strings.HasSuffix(name, ".yml") || strings.HasSuffix(name, ".yaml")
}
