package gateways

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ChecksumManifest writes and verifies sha256sum-style manifests for report artifacts
type ChecksumManifest struct{}

// NewChecksumManifest creates a new checksum manifest helper
func NewChecksumManifest() *ChecksumManifest {
	return &ChecksumManifest{}
}

// CalculateChecksum calculates the SHA256 checksum of a file
func (m *ChecksumManifest) CalculateChecksum(filePath string) (string, error) {
	//nolint:gosec // G304: File path is a report artifact produced by this run
	f, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash file: %w", err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// VerifyChecksum verifies a file's SHA256 checksum
func (m *ChecksumManifest) VerifyChecksum(_ context.Context, filePath, expectedSum string) error {
	actualSum, err := m.CalculateChecksum(filePath)
	if err != nil {
		return err
	}
	if actualSum != expectedSum {
		return fmt.Errorf("checksum mismatch: expected %s, got %s", expectedSum, actualSum)
	}
	return nil
}

// Write records "<sha256>  <basename>" for every file into manifestPath.
// All files must live in the manifest's directory.
func (m *ChecksumManifest) Write(manifestPath string, files []string) error {
	var b strings.Builder
	for _, file := range files {
		sum, err := m.CalculateChecksum(file)
		if err != nil {
			return fmt.Errorf("failed to checksum %s: %w", file, err)
		}
		fmt.Fprintf(&b, "%s  %s\n", sum, filepath.Base(file))
	}

	if err := os.WriteFile(manifestPath, []byte(b.String()), 0o644); err != nil { //nolint:gosec // reports are meant to be shared
		return fmt.Errorf("failed to write checksum manifest: %w", err)
	}
	return nil
}

// manifestEntry is one "<sha256>  <name>" line of a manifest
type manifestEntry struct {
	sum  string
	path string
}

// Files returns the artifact paths listed in a manifest
func (m *ChecksumManifest) Files(manifestPath string) ([]string, error) {
	entries, err := m.read(manifestPath)
	if err != nil {
		return nil, err
	}
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		files = append(files, e.path)
	}
	return files, nil
}

// Verify checks every entry of a manifest and returns the files that failed
func (m *ChecksumManifest) Verify(ctx context.Context, manifestPath string) ([]string, error) {
	entries, err := m.read(manifestPath)
	if err != nil {
		return nil, err
	}

	var failed []string
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := m.VerifyChecksum(ctx, e.path, e.sum); err != nil {
			failed = append(failed, filepath.Base(e.path))
		}
	}
	return failed, nil
}

func (m *ChecksumManifest) read(manifestPath string) ([]manifestEntry, error) {
	//nolint:gosec // G304: manifest path is user-provided for verification
	f, err := os.Open(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open checksum manifest: %w", err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer f.Close()

	dir := filepath.Dir(manifestPath)
	var entries []manifestEntry

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		sum, name, ok := strings.Cut(line, "  ")
		if !ok || len(sum) != 64 || name == "" {
			return nil, fmt.Errorf("malformed checksum manifest line: %q", line)
		}
		entries = append(entries, manifestEntry{sum: sum, path: filepath.Join(dir, filepath.Base(name))})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read checksum manifest: %w", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("checksum manifest is empty: %s", manifestPath)
	}
	return entries, nil
}
