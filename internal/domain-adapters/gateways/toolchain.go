package gateways

import (
	"github.com/ochairo/imgaudit/internal/domain/entities"
	"github.com/ochairo/imgaudit/internal/domain/interfaces/gateways"
)

// Toolchain composes the tool adapters an engine depends on
type Toolchain struct {
	Classifier gateways.MimeClassifier
	Inspector  gateways.HardeningInspector
	Filesystem gateways.Filesystem
}

// NewToolchain creates the adapters selected by the analyzer configuration
func NewToolchain(cfg entities.AnalyzerConfig) *Toolchain {
	runner := NewCommandRunner(cfg.ToolTimeout, cfg.Proxy.Env())

	var inspector gateways.HardeningInspector
	if cfg.Inspector == entities.InspectorNative {
		inspector = NewELFInspector()
	} else {
		inspector = NewChecksecInspector(cfg.InspectorPath, runner)
	}

	return &Toolchain{
		Classifier: NewFileClassifier(cfg.ClassifierPath, runner),
		Inspector:  inspector,
		Filesystem: NewHostFilesystem(),
	}
}

// ToolStatus reports whether an external tool can be found
type ToolStatus struct {
	Name      string
	Path      string
	Purpose   string
	Available bool
}

// CheckTools probes the external tools named by the configuration
func CheckTools(cfg entities.AnalyzerConfig) []ToolStatus {
	tools := []ToolStatus{
		{Name: cfg.ClassifierPath, Purpose: "MIME classification"},
		{Name: cfg.InspectorPath, Purpose: "binary hardening inspection"},
	}

	for i := range tools {
		if path, err := lookupTool(tools[i].Name); err == nil {
			tools[i].Path = path
			tools[i].Available = true
		}
	}
	return tools
}
