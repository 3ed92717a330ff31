package yaml

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}
}

func TestImageRepository_Manifest(t *testing.T) {
	dir := t.TempDir()
	manifest := filepath.Join(dir, "images.yml")
	writeFile(t, manifest, "images:\n  - name: core\n    rootfs: /mnt/core\n  - name: sato\n    rootfs: sato\n")

	repo := NewImageRepository(manifest)
	images, err := repo.ListImages(context.Background())
	if err != nil {
		t.Fatalf("ListImages() error = %v", err)
	}
	if len(images) != 2 {
		t.Fatalf("ListImages() count = %d, want 2", len(images))
	}

	img, err := repo.GetImage(context.Background(), "sato")
	if err != nil {
		t.Fatalf("GetImage() error = %v", err)
	}
	if img.RootPath != filepath.Join(dir, "sato") {
		t.Errorf("GetImage() rootfs = %v", img.RootPath)
	}
}

func TestImageRepository_Directory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "core.yml"), "name: core\nrootfs: /mnt/core\n")
	writeFile(t, filepath.Join(dir, "sato.yaml"), "name: sato\nrootfs: /mnt/sato\n")
	writeFile(t, filepath.Join(dir, "README.md"), "# images\n")
	if err := os.Mkdir(filepath.Join(dir, "nested.yml"), 0o755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}

	images, err := NewImageRepository(dir).ListImages(context.Background())
	if err != nil {
		t.Fatalf("ListImages() error = %v", err)
	}
	if len(images) != 2 {
		t.Fatalf("ListImages() count = %d, want 2", len(images))
	}
	if images[0].ImageName != "core" || images[1].ImageName != "sato" {
		t.Errorf("ListImages() = %+v", images)
	}
}

func TestImageRepository_Errors(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "core.yml"), "name: core\nrootfs: /mnt/core\n")
		if _, err := NewImageRepository(dir).GetImage(context.Background(), "nonexistent"); err == nil {
			t.Error("GetImage() should return error for nonexistent image")
		}
	})

	t.Run("duplicate name", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "a.yml"), "name: core\nrootfs: /mnt/a\n")
		writeFile(t, filepath.Join(dir, "b.yml"), "name: core\nrootfs: /mnt/b\n")
		if _, err := NewImageRepository(dir).ListImages(context.Background()); err == nil {
			t.Error("ListImages() should reject duplicate image names")
		}
	})

	t.Run("incomplete descriptor", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "a.yml"), "name: core\n")
		if _, err := NewImageRepository(dir).ListImages(context.Background()); err == nil {
			t.Error("ListImages() should reject a descriptor without rootfs")
		}
	})

	t.Run("missing source", func(t *testing.T) {
		if _, err := NewImageRepository(filepath.Join(t.TempDir(), "nope")).ListImages(context.Background()); err == nil {
			t.Error("ListImages() should fail for a missing source")
		}
	})
}
