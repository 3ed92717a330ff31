// Package yaml provides YAML-based analyzer configuration and image manifest parsing.
package yaml

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ochairo/imgaudit/internal/domain/entities"
)

// yamlConfig represents the raw configuration file
type yamlConfig struct {
	ReportDir          string        `yaml:"report_dir"`
	LogDir             string        `yaml:"log_dir"`
	Timestamp          string        `yaml:"timestamp"`
	Proxy              yamlProxy     `yaml:"proxy"`
	Inspector          string        `yaml:"inspector"`
	InspectorPath      string        `yaml:"inspector_path"`
	ClassifierPath     string        `yaml:"classifier_path"`
	ToolTimeout        time.Duration `yaml:"tool_timeout"`
	Accumulate         bool          `yaml:"accumulate"`
	KeepTraversalOrder bool          `yaml:"keep_traversal_order"`
	SigningKey         string        `yaml:"signing_key"`
	Images             []yamlImage   `yaml:"images"`
}

type yamlProxy struct {
	HTTP    string `yaml:"http"`
	HTTPS   string `yaml:"https"`
	NoProxy string `yaml:"no_proxy"`
}

type yamlImage struct {
	Name   string `yaml:"name"`
	Rootfs string `yaml:"rootfs"`
}

// Settings is a parsed configuration file. Analyzer is not validated; callers
// merge command line overrides first and then pass it through entities.NewAnalyzerConfig.
type Settings struct {
	Analyzer entities.AnalyzerConfig
	Images   []entities.FilesystemDescriptor
}

// ConfigParser parses analyzer configuration files
type ConfigParser struct{}

// NewConfigParser creates a new YAML configuration parser
func NewConfigParser() *ConfigParser {
	return &ConfigParser{}
}

// ParseFile parses a configuration file; relative paths are resolved against its directory
func (p *ConfigParser) ParseFile(filePath string) (*Settings, error) {
	//nolint:gosec // G304: filePath is the operator supplied config file
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filePath, err)
	}

	settings, err := p.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filePath, err)
	}

	base := filepath.Dir(filePath)
	settings.Analyzer.ReportDir = resolve(base, settings.Analyzer.ReportDir)
	settings.Analyzer.LogDir = resolve(base, settings.Analyzer.LogDir)
	for i, img := range settings.Images {
		settings.Images[i].RootPath = resolve(base, img.RootPath)
	}
	return settings, nil
}

// Parse parses YAML bytes into Settings
func (p *ConfigParser) Parse(data []byte) (*Settings, error) {
	var raw yamlConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	images, err := convertImages(raw.Images)
	if err != nil {
		return nil, err
	}

	return &Settings{
		Analyzer: entities.AnalyzerConfig{
			ReportDir: raw.ReportDir,
			LogDir:    raw.LogDir,
			Timestamp: raw.Timestamp,
			Proxy: entities.ProxyConfig{
				HTTP:    raw.Proxy.HTTP,
				HTTPS:   raw.Proxy.HTTPS,
				NoProxy: raw.Proxy.NoProxy,
			},
			Inspector:          raw.Inspector,
			InspectorPath:      raw.InspectorPath,
			ClassifierPath:     raw.ClassifierPath,
			ToolTimeout:        raw.ToolTimeout,
			Accumulate:         raw.Accumulate,
			KeepTraversalOrder: raw.KeepTraversalOrder,
			SigningKey:         raw.SigningKey,
		},
		Images: images,
	}, nil
}

func convertImages(raw []yamlImage) ([]entities.FilesystemDescriptor, error) {
	images := make([]entities.FilesystemDescriptor, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for i, img := range raw {
		desc := entities.NewFilesystemDescriptor(img.Name, img.Rootfs)
		if err := desc.Validate(); err != nil {
			return nil, fmt.Errorf("image #%d: %w", i+1, err)
		}
		if seen[desc.ImageName] {
			return nil, fmt.Errorf("image %q is listed twice", desc.ImageName)
		}
		seen[desc.ImageName] = true
		images = append(images, desc)
	}
	return images, nil
}

func resolve(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}
