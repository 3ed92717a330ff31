package gateways

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ochairo/imgaudit/internal/domain/entities"
)

// writeTool creates an executable shell script standing in for an external tool
func writeTool(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	//nolint:gosec // G306: test tool must be executable
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func TestParseMimeOutput(t *testing.T) {
	tests := []struct {
		name    string
		output  string
		want    string
		wantErr bool
	}{
		{"executable", "/bin/true: application/x-executable\n", "application/x-executable", false},
		{"symlink", "/bin/sh: inode/symlink\n", "inode/symlink", false},
		{"path with spaces", "/opt/my app/run: text/x-shellscript", "text/x-shellscript", false},
		{"empty", "  \n", "", true},
		{"invalid utf8", "\xff\xfe", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseMimeOutput(tt.output)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnparsableOutput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseChecksecOutput(t *testing.T) {
	header := "RELRO           STACK CANARY      NX            PIE             RPATH      RUNPATH      FILE\n"

	t.Run("plain row with file column", func(t *testing.T) {
		out := header + "No RELRO        Canary found      NX enabled    No PIE          No RPATH   No RUNPATH   /bin/true\n"

		flags, err := ParseChecksecOutput(out)
		require.NoError(t, err)

		assert.Equal(t, []entities.SecurityFlag{
			{Name: "No RELRO", Score: 0},
			{Name: "Canary found", Score: 1},
			{Name: "NX enabled", Score: 1},
			{Name: "No PIE", Score: 0},
			{Name: "No RPATH", Score: 1},
			{Name: "No RUNPATH", Score: 1},
		}, flags)
	})

	t.Run("ansi colours are stripped", func(t *testing.T) {
		out := header + "\x1b[32mFull RELRO\x1b[m   \x1b[31mNo canary found\x1b[m   \x1b[32mNX enabled\x1b[m   \x1b[32mPIE enabled\x1b[m   \x1b[32mNo RPATH\x1b[m   \x1b[32mNo RUNPATH\x1b[m   \n"

		flags, err := ParseChecksecOutput(out)
		require.NoError(t, err)
		require.Len(t, flags, 6)
		assert.Equal(t, "Full RELRO 2", flags[0].String())
		assert.Equal(t, "No canary found 0", flags[1].String())
		assert.Equal(t, "PIE enabled 3", flags[3].String())
	})

	t.Run("not an elf file", func(t *testing.T) {
		flags, err := ParseChecksecOutput(header + "Not an ELF file   \n")
		require.NoError(t, err)
		assert.Equal(t, []entities.SecurityFlag{{Name: "Not an ELF file", Score: 1}}, flags)
	})

	t.Run("missing flag row", func(t *testing.T) {
		_, err := ParseChecksecOutput("only a header")
		assert.ErrorIs(t, err, ErrUnparsableOutput)
	})

	t.Run("no known flags", func(t *testing.T) {
		_, err := ParseChecksecOutput(header + "something   else\n")
		assert.ErrorIs(t, err, ErrUnparsableOutput)
	})
}

func TestFileClassifier_ClassifyMIME(t *testing.T) {
	tool := writeTool(t, "file", `echo "$2: application/x-sharedlib"`)
	c := NewFileClassifier(tool, NewCommandRunner(0, nil))

	assert.True(t, c.Available())

	mime, err := c.ClassifyMIME(context.Background(), "/lib/libc.so.6")
	require.NoError(t, err)
	assert.Equal(t, "application/x-sharedlib", mime)
}

func TestFileClassifier_ToolFailure(t *testing.T) {
	tool := writeTool(t, "file", `echo "cannot open" >&2; exit 1`)
	c := NewFileClassifier(tool, NewCommandRunner(0, nil))

	_, err := c.ClassifyMIME(context.Background(), "/missing")

	var toolErr *ToolError
	require.True(t, errors.As(err, &toolErr), "want *ToolError, got %v", err)
	assert.Equal(t, 1, toolErr.ExitCode)
}

func TestChecksecInspector_InspectHardening(t *testing.T) {
	tool := writeTool(t, "checksec.sh", `[ "$1" = "--file" ] || exit 2
echo "RELRO           STACK CANARY      NX            PIE"
echo "Partial RELRO   No canary found   NX disabled   DSO   $2"`)
	insp := NewChecksecInspector(tool, NewCommandRunner(0, nil))

	assert.True(t, insp.Available())
	assert.Equal(t, tool, insp.Name())

	flags, err := insp.InspectHardening(context.Background(), "/lib/libfoo.so")
	require.NoError(t, err)

	names := make([]string, 0, len(flags))
	for _, f := range flags {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"Partial RELRO", "No canary found", "NX disabled", "DSO"}, names)
}

func TestChecksecInspector_Unavailable(t *testing.T) {
	saved := lookupTool
	defer func() { lookupTool = saved }()
	lookupTool = func(string) (string, error) { return "", ErrToolNotFound }

	insp := NewChecksecInspector("", NewCommandRunner(0, nil))

	assert.False(t, insp.Available())
	assert.Equal(t, entities.DefaultInspectorPath, insp.Name())
}

func TestELFInspector_NotELF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "script.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\necho hi\n"), 0o600))

	flags, err := NewELFInspector().InspectHardening(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []entities.SecurityFlag{{Name: entities.FlagNotELF, Score: 1}}, flags)
}

func TestELFInspector_MissingFile(t *testing.T) {
	_, err := NewELFInspector().InspectHardening(context.Background(), "/nonexistent/binary")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open file")
}

func TestELFInspector_TestBinary(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("ELF inspection of the test binary requires linux")
	}
	self, err := os.Executable()
	require.NoError(t, err)

	flags, err := NewELFInspector().InspectHardening(context.Background(), self)
	require.NoError(t, err)
	require.Len(t, flags, 6)

	relro := map[string]bool{entities.FlagNoRELRO: true, entities.FlagPartialRELRO: true, entities.FlagFullRELRO: true}
	assert.True(t, relro[flags[0].Name], "first flag should describe RELRO, got %q", flags[0].Name)
	for _, f := range flags {
		_, known := entities.LookupSecurityFlag(f.Name)
		assert.True(t, known, "flag %q is outside the score table", f.Name)
	}
}

func TestNewToolchain_SelectsInspector(t *testing.T) {
	cfg, err := entities.NewAnalyzerConfig(entities.AnalyzerConfig{ReportDir: "r", LogDir: "l", Inspector: entities.InspectorNative})
	require.NoError(t, err)

	tc := NewToolchain(cfg)
	assert.Equal(t, "native-elf", tc.Inspector.Name())
	assert.NotNil(t, tc.Classifier)
	assert.NotNil(t, tc.Filesystem)

	cfg.Inspector = entities.InspectorChecksec
	assert.Equal(t, entities.DefaultInspectorPath, NewToolchain(cfg).Inspector.Name())
}

func TestCheckTools(t *testing.T) {
	saved := lookupTool
	defer func() { lookupTool = saved }()
	lookupTool = func(name string) (string, error) {
		if name == "file" {
			return "/usr/bin/file", nil
		}
		return "", ErrToolNotFound
	}

	cfg, err := entities.NewAnalyzerConfig(entities.AnalyzerConfig{ReportDir: "r", LogDir: "l"})
	require.NoError(t, err)

	status := CheckTools(cfg)
	require.Len(t, status, 2)
	assert.True(t, status[0].Available)
	assert.Equal(t, "/usr/bin/file", status[0].Path)
	assert.False(t, status[1].Available)
}
