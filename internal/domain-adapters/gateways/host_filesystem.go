package gateways

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/ochairo/imgaudit/internal/domain/entities"
)

// maxSymlinkHops bounds symlink resolution, matching the kernel's ELOOP limit
const maxSymlinkHops = 40

// HostFilesystem reads a rootfs mounted on the local host
type HostFilesystem struct {
	// OnError is called for subtrees that cannot be read; they are skipped
	OnError func(path string, err error)
}

// NewHostFilesystem creates a filesystem that silently skips unreadable subtrees
func NewHostFilesystem() *HostFilesystem {
	return &HostFilesystem{}
}

// Enumerate walks root depth-first and returns absolute paths.
// Non-directory entries (including symlinks) are always listed; directories other than
// root itself are listed only when includeDirs is set. Symlinked directories below root are
// not followed. A symlinked root is walked at its target and paths are reported under root.
func (w *HostFilesystem) Enumerate(root string, includeDirs bool) ([]string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root path: %w", err)
	}

	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to access root path: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root path is not a directory: %s", absRoot)
	}

	walkRoot, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root path: %w", err)
	}

	var objects []string
	err = filepath.WalkDir(walkRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == walkRoot {
				return err
			}
			if w.OnError != nil {
				w.OnError(path, err)
			}
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if walkRoot != absRoot {
			rel, relErr := filepath.Rel(walkRoot, path)
			if relErr != nil {
				return relErr
			}
			path = filepath.Join(absRoot, rel)
		}
		if d.IsDir() {
			if includeDirs && path != absRoot {
				objects = append(objects, path)
			}
			return nil
		}

		objects = append(objects, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", absRoot, err)
	}

	return objects, nil
}

// LinkStatus lstats path and returns its raw st_mode, uid and gid
func (w *HostFilesystem) LinkStatus(path string) (entities.FsObjectRecord, error) {
	var st unix.Stat_t
	if err := unix.Lstat(path, &st); err != nil {
		return entities.FsObjectRecord{}, fmt.Errorf("failed to lstat %s: %w", path, err)
	}
	return entities.FsObjectRecord{
		Path: path,
		Mode: uint32(st.Mode), //nolint:unconvert // uint16 on darwin
		UID:  st.Uid,
		GID:  st.Gid,
	}, nil
}

// ResolveInRoot follows every symlink in path with absolute targets and ".." clamped to root,
// so links inside an image never escape to the host filesystem.
func (w *HostFilesystem) ResolveInRoot(root, path string) (string, error) {
	root = filepath.Clean(root)
	rel, err := filepath.Rel(root, filepath.Clean(path))
	if err != nil || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("path %s is outside root %s", path, root)
	}

	resolved := root
	pending := strings.Split(rel, "/")
	hops := 0

	for len(pending) > 0 {
		comp := pending[0]
		pending = pending[1:]

		switch comp {
		case "", ".":
			continue
		case "..":
			if resolved != root {
				resolved = filepath.Dir(resolved)
			}
			continue
		}

		next := filepath.Join(resolved, comp)
		info, err := os.Lstat(next)
		if err != nil {
			return "", fmt.Errorf("failed to resolve %s: %w", path, err)
		}
		if info.Mode()&os.ModeSymlink == 0 {
			resolved = next
			continue
		}

		hops++
		if hops > maxSymlinkHops {
			return "", fmt.Errorf("failed to resolve %s: too many levels of symbolic links", path)
		}

		target, err := os.Readlink(next)
		if err != nil {
			return "", fmt.Errorf("failed to read link %s: %w", next, err)
		}
		if filepath.IsAbs(target) {
			resolved = root
		}
		pending = append(strings.Split(target, "/"), pending...)
	}

	return resolved, nil
}
