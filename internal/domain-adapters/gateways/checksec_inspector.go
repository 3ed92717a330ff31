package gateways

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ochairo/imgaudit/internal/domain/entities"
)

var (
	ansiEscape      = regexp.MustCompile(`\x1b[^m]*m`)
	columnSeparator = regexp.MustCompile(`  +`)
)

// checksecInspector runs checksec.sh --file and scores the reported flags
type checksecInspector struct {
	binary string
	runner *CommandRunner
}

// NewChecksecInspector creates a hardening inspector backed by checksec.sh
//
//nolint:revive // unexported-return: Intentionally returns concrete type for testability
func NewChecksecInspector(binary string, runner *CommandRunner) *checksecInspector {
	if binary == "" {
		binary = entities.DefaultInspectorPath
	}
	return &checksecInspector{binary: binary, runner: runner}
}

// Name identifies the inspector
func (c *checksecInspector) Name() string { return c.binary }

// Available checks whether checksec.sh is installed
func (c *checksecInspector) Available() bool {
	_, err := lookupTool(c.binary)
	return err == nil
}

// InspectHardening runs the inspector on path
func (c *checksecInspector) InspectHardening(ctx context.Context, path string) ([]entities.SecurityFlag, error) {
	res := c.runner.Run(ctx, c.binary, "--file", path)
	if !res.Success {
		return nil, res.toolError(c.binary)
	}
	return ParseChecksecOutput(res.Stdout)
}

// ParseChecksecOutput scores the flag row (line 1) of checksec output.
// Columns are separated by runs of two or more spaces; ANSI colours are stripped first.
// Tokens outside the flag table (such as the trailing file name column) are ignored.
func ParseChecksecOutput(out string) ([]entities.SecurityFlag, error) {
	if !utf8.ValidString(out) {
		return nil, fmt.Errorf("%w: output is not valid UTF-8", ErrUnparsableOutput)
	}

	lines := strings.Split(out, "\n")
	if len(lines) < 2 {
		return nil, fmt.Errorf("%w: missing flag row", ErrUnparsableOutput)
	}

	row := ansiEscape.ReplaceAllString(lines[1], "")
	return ScoreFlags(columnSeparator.Split(row, -1))
}

// ScoreFlags maps flag names onto the fixed score table
func ScoreFlags(tokens []string) ([]entities.SecurityFlag, error) {
	flags := make([]entities.SecurityFlag, 0, len(tokens))
	for _, tok := range tokens {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		if f, ok := entities.LookupSecurityFlag(tok); ok {
			flags = append(flags, f)
		}
	}

	if len(flags) == 0 {
		return nil, fmt.Errorf("%w: no known hardening flags", ErrUnparsableOutput)
	}
	return flags, nil
}
