// Package entities defines core domain models and data structures.
package entities

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrMissingDescriptor is returned when an image name or rootfs path is absent
var ErrMissingDescriptor = errors.New("mandatory arguments such as image name and path to the filesystem are not provided")

// ErrInvalidImageName is returned when an image name cannot be used in an artifact file name
var ErrInvalidImageName = errors.New("invalid image name")

// FilesystemDescriptor identifies one mounted root filesystem image
type FilesystemDescriptor struct {
	ImageName string
	RootPath  string
}

// NewFilesystemDescriptor creates a descriptor with a cleaned root path
func NewFilesystemDescriptor(imageName, rootPath string) FilesystemDescriptor {
	if rootPath != "" {
		rootPath = filepath.Clean(rootPath)
	}
	return FilesystemDescriptor{ImageName: imageName, RootPath: rootPath}
}

// Validate reports whether both mandatory fields are present and the image name is a
// plain file name component
func (d FilesystemDescriptor) Validate() error {
	var missing []string
	if strings.TrimSpace(d.ImageName) == "" {
		missing = append(missing, "image name")
	}
	if strings.TrimSpace(d.RootPath) == "" {
		missing = append(missing, "rootfs path")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrMissingDescriptor, strings.Join(missing, ", "))
	}
	if d.ImageName == "." || d.ImageName == ".." || strings.ContainsAny(d.ImageName, `/\`) {
		return fmt.Errorf("%w: %q must not contain path separators", ErrInvalidImageName, d.ImageName)
	}
	return nil
}

// NormalizePath strips the rootfs prefix so reports are portable across mount points
func (d FilesystemDescriptor) NormalizePath(path string) string {
	root := filepath.Clean(d.RootPath)
	if root == "/" || root == "." {
		return path
	}
	if path == root {
		return "/"
	}
	if strings.HasPrefix(path, root+"/") {
		return strings.TrimPrefix(path, root)
	}
	return path
}
