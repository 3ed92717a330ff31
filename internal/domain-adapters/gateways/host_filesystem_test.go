package gateways

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ochairo/imgaudit/internal/domain/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "bin"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "usr", "lib"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "bin", "true"), []byte("x"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "usr", "lib", "libc.so"), []byte("x"), 0o644))
	require.NoError(t, os.Symlink("/bin/true", filepath.Join(root, "bin", "link")))
	return root
}

func TestHostFilesystem_FilesOnly(t *testing.T) {
	root := buildTree(t)

	got, err := NewHostFilesystem().Enumerate(root, false)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{
		filepath.Join(root, "bin", "true"),
		filepath.Join(root, "bin", "link"),
		filepath.Join(root, "usr", "lib", "libc.so"),
	}, got)
}

func TestHostFilesystem_IncludeDirs(t *testing.T) {
	root := buildTree(t)

	got, err := NewHostFilesystem().Enumerate(root, true)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{
		filepath.Join(root, "bin"),
		filepath.Join(root, "bin", "true"),
		filepath.Join(root, "bin", "link"),
		filepath.Join(root, "usr"),
		filepath.Join(root, "usr", "lib"),
		filepath.Join(root, "usr", "lib", "libc.so"),
	}, got)
	assert.NotContains(t, got, root)
}

func TestHostFilesystem_SymlinkedRoot(t *testing.T) {
	root := buildTree(t)
	mnt := filepath.Join(t.TempDir(), "mnt")
	require.NoError(t, os.Symlink(root, mnt))

	got, err := NewHostFilesystem().Enumerate(mnt, true)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{
		filepath.Join(mnt, "bin"),
		filepath.Join(mnt, "bin", "true"),
		filepath.Join(mnt, "bin", "link"),
		filepath.Join(mnt, "usr"),
		filepath.Join(mnt, "usr", "lib"),
		filepath.Join(mnt, "usr", "lib", "libc.so"),
	}, got)

	desc := entities.NewFilesystemDescriptor("core-image", mnt)
	assert.Equal(t, "/bin/true", desc.NormalizePath(filepath.Join(mnt, "bin", "true")))

	rec, err := NewHostFilesystem().LinkStatus(filepath.Join(mnt, "bin", "true"))
	require.NoError(t, err)
	assert.True(t, rec.IsRegular())
}

func TestHostFilesystem_MissingRoot(t *testing.T) {
	_, err := NewHostFilesystem().Enumerate("/nonexistent/rootfs", true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to access root path")
}

func TestHostFilesystem_RootIsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "f")
	require.NoError(t, os.WriteFile(file, nil, 0o600))

	_, err := NewHostFilesystem().Enumerate(file, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}

func TestHostFilesystem_LinkStatus(t *testing.T) {
	root := buildTree(t)
	fsys := NewHostFilesystem()

	rec, err := fsys.LinkStatus(filepath.Join(root, "bin", "link"))
	require.NoError(t, err)
	assert.True(t, rec.IsSymlink())
	assert.False(t, rec.IsRegular())

	rec, err = fsys.LinkStatus(filepath.Join(root, "bin"))
	require.NoError(t, err)
	assert.True(t, rec.IsDir())

	target := filepath.Join(root, "bin", "true")
	require.NoError(t, os.Chmod(target, 0o4755))
	rec, err = fsys.LinkStatus(target)
	require.NoError(t, err)
	assert.True(t, rec.IsRegular())
	assert.Equal(t, entities.ModeRegular|0o4755, rec.Mode)
	assert.Equal(t, uint32(os.Getuid()), rec.UID)

	_, err = fsys.LinkStatus(filepath.Join(root, "missing"))
	assert.Error(t, err)
}

func TestHostFilesystem_ResolveInRoot(t *testing.T) {
	root := buildTree(t)
	fsys := NewHostFilesystem()

	require.NoError(t, os.Symlink("../usr/lib/libc.so", filepath.Join(root, "bin", "rel")))
	require.NoError(t, os.Symlink("../../../../../bin/true", filepath.Join(root, "usr", "lib", "escape")))
	require.NoError(t, os.Symlink("loop-b", filepath.Join(root, "loop-a")))
	require.NoError(t, os.Symlink("loop-a", filepath.Join(root, "loop-b")))

	tests := []struct {
		name    string
		path    string
		want    string
		wantErr bool
	}{
		{"plain file", filepath.Join(root, "bin", "true"), filepath.Join(root, "bin", "true"), false},
		{"absolute link stays in root", filepath.Join(root, "bin", "link"), filepath.Join(root, "bin", "true"), false},
		{"relative link", filepath.Join(root, "bin", "rel"), filepath.Join(root, "usr", "lib", "libc.so"), false},
		{"dotdot clamped at root", filepath.Join(root, "usr", "lib", "escape"), filepath.Join(root, "bin", "true"), false},
		{"loop", filepath.Join(root, "loop-a"), "", true},
		{"outside root", "/etc/passwd", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := fsys.ResolveInRoot(root, tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
