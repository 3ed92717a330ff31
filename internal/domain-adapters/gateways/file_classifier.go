package gateways

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ochairo/imgaudit/internal/domain/entities"
)

// fileClassifier classifies files with file(1) --mime-type
type fileClassifier struct {
	binary string
	runner *CommandRunner
}

// NewFileClassifier creates a MIME classifier backed by the file utility
//
//nolint:revive // unexported-return: Intentionally returns concrete type for testability
func NewFileClassifier(binary string, runner *CommandRunner) *fileClassifier {
	if binary == "" {
		binary = entities.DefaultClassifierPath
	}
	return &fileClassifier{binary: binary, runner: runner}
}

// Available checks whether the classifier binary is installed
func (c *fileClassifier) Available() bool {
	_, err := lookupTool(c.binary)
	return err == nil
}

// ClassifyMIME returns the MIME type token of path
func (c *fileClassifier) ClassifyMIME(ctx context.Context, path string) (string, error) {
	res := c.runner.Run(ctx, c.binary, "--mime-type", path)
	if !res.Success {
		return "", res.toolError(c.binary)
	}
	return parseMimeOutput(res.Stdout)
}

// parseMimeOutput takes the final whitespace-delimited token of "<path>: <mime/type>"
func parseMimeOutput(out string) (string, error) {
	if !utf8.ValidString(out) {
		return "", fmt.Errorf("%w: output is not valid UTF-8", ErrUnparsableOutput)
	}
	fields := strings.Fields(out)
	if len(fields) == 0 {
		return "", fmt.Errorf("%w: empty classifier output", ErrUnparsableOutput)
	}
	return fields[len(fields)-1], nil
}
