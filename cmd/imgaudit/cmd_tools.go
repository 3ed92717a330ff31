package main

import (
	"github.com/spf13/cobra"

	"github.com/ochairo/imgaudit/internal/domain-adapters/gateways"
	"github.com/ochairo/imgaudit/internal/domain/entities"
)

func newToolsCmd() *cobra.Command {
	var (
		inspectorPath  string
		classifierPath string
		noColor        bool
	)

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Show whether the external analysis tools are installed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := entities.AnalyzerConfig{InspectorPath: inspectorPath, ClassifierPath: classifierPath}
			if cfg.InspectorPath == "" {
				cfg.InspectorPath = entities.DefaultInspectorPath
			}
			if cfg.ClassifierPath == "" {
				cfg.ClassifierPath = entities.DefaultClassifierPath
			}

			out := newPrinter(cmd.OutOrStdout(), noColor)
			for _, t := range gateways.CheckTools(cfg) {
				if t.Available {
					out.printf("%s %-12s %s (%s)\n", out.green.Sprint("✅"), t.Name, t.Path, t.Purpose)
				} else {
					out.printf("%s %-12s not found (%s)\n", out.red.Sprint("❌"), t.Name, t.Purpose)
				}
			}
			out.printf("%s %-12s built in (use --inspector native)\n", out.green.Sprint("✅"), gateways.NewELFInspector().Name())
			return nil
		},
	}

	cmd.Flags().StringVar(&inspectorPath, "inspector-path", "", "Path to checksec.sh")
	cmd.Flags().StringVar(&classifierPath, "classifier-path", "", "Path to file(1)")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	return cmd
}
