package main

import (
	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags
var Version = "dev"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "imgaudit",
		Short: "Audit root filesystem images for security-relevant configuration",
		Long: `imgaudit inspects mounted root filesystem images and reports security problems.

Engines:
  cfa  Compile flag analyzer: RELRO, stack canary, PIE and NX of every ELF binary
       (uses file(1) and checksec.sh, or the built-in ELF inspector)
  fsa  Filesystem attribute analyzer: setuid/setgid objects, world-writable files
       and world-writable directories without the sticky bit

Each engine writes a full report, a problems report and an XML problems report
per image, plus a checksum manifest and optional OpenPGP signatures.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       Version,
	}
	root.SetVersionTemplate("imgaudit {{.Version}}\n")

	root.AddCommand(newScanCmd(), newVerifyCmd(), newToolsCmd())
	return root
}
