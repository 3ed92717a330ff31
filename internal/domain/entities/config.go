package entities

import (
	"errors"
	"fmt"
	"time"
)

// Hardening inspector backends
const (
	InspectorChecksec = "checksec" // external checksec.sh
	InspectorNative   = "native"   // in-process ELF inspection
)

// Default external tool names
const (
	DefaultClassifierPath = "file"
	DefaultInspectorPath  = "checksec.sh"
)

// TimestampLayout is the layout used for generated run timestamps
const TimestampLayout = "20060102150405"

// ErrInvalidConfig is returned for analyzer configurations that fail validation
var ErrInvalidConfig = errors.New("invalid analyzer configuration")

// ProxyConfig carries proxy settings through to external tools
type ProxyConfig struct {
	HTTP    string
	HTTPS   string
	NoProxy string
}

// Env renders the proxy settings as environment assignments
func (p ProxyConfig) Env() []string {
	var env []string
	if p.HTTP != "" {
		env = append(env, "http_proxy="+p.HTTP, "HTTP_PROXY="+p.HTTP)
	}
	if p.HTTPS != "" {
		env = append(env, "https_proxy="+p.HTTPS, "HTTPS_PROXY="+p.HTTPS)
	}
	if p.NoProxy != "" {
		env = append(env, "no_proxy="+p.NoProxy, "NO_PROXY="+p.NoProxy)
	}
	return env
}

// AnalyzerConfig is shared by both engines and fixed at construction
type AnalyzerConfig struct {
	ReportDir string
	LogDir    string
	Timestamp string
	Proxy     ProxyConfig

	Inspector      string        // checksec or native
	InspectorPath  string        // path or name of checksec.sh
	ClassifierPath string        // path or name of file(1)
	ToolTimeout    time.Duration // zero means no timeout

	// Accumulate keeps findings across ProcessFilesystem calls on the same engine.
	Accumulate bool
	// KeepTraversalOrder disables lexical sorting of findings before emission.
	KeepTraversalOrder bool

	SigningKey string // armored OpenPGP private key used to sign reports
}

// NewAnalyzerConfig fills defaults and validates the mandatory fields
func NewAnalyzerConfig(cfg AnalyzerConfig) (AnalyzerConfig, error) {
	if cfg.Timestamp == "" {
		cfg.Timestamp = time.Now().Format(TimestampLayout)
	}
	if cfg.Inspector == "" {
		cfg.Inspector = InspectorChecksec
	}
	if cfg.InspectorPath == "" {
		cfg.InspectorPath = DefaultInspectorPath
	}
	if cfg.ClassifierPath == "" {
		cfg.ClassifierPath = DefaultClassifierPath
	}

	if err := cfg.Validate(); err != nil {
		return AnalyzerConfig{}, err
	}
	return cfg, nil
}

// Validate checks that the configuration can be used by an engine
func (c AnalyzerConfig) Validate() error {
	switch {
	case c.ReportDir == "":
		return fmt.Errorf("%w: report directory is required", ErrInvalidConfig)
	case c.LogDir == "":
		return fmt.Errorf("%w: log directory is required", ErrInvalidConfig)
	case c.Timestamp == "":
		return fmt.Errorf("%w: run timestamp is required", ErrInvalidConfig)
	case c.ToolTimeout < 0:
		return fmt.Errorf("%w: tool timeout cannot be negative", ErrInvalidConfig)
	}

	if c.Inspector != InspectorChecksec && c.Inspector != InspectorNative {
		return fmt.Errorf("%w: unknown inspector %q", ErrInvalidConfig, c.Inspector)
	}
	return nil
}
