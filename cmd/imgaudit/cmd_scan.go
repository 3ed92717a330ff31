package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ochairo/imgaudit/internal/domain-adapters/gateways"
	orchestrators "github.com/ochairo/imgaudit/internal/domain-orchestrators"
	"github.com/ochairo/imgaudit/internal/domain/entities"
	"github.com/ochairo/imgaudit/internal/domain/interfaces"
	"github.com/ochairo/imgaudit/internal/domain/interfaces/services"
	domainservices "github.com/ochairo/imgaudit/internal/domain/services"
	"github.com/ochairo/imgaudit/internal/external-adapters/gpg"
	"github.com/ochairo/imgaudit/internal/external-adapters/report"
	"github.com/ochairo/imgaudit/internal/external-adapters/yaml"
	"github.com/ochairo/imgaudit/internal/external-adapters/zaplog"
)

var errFindingsPresent = errors.New("security findings present")

type scanOptions struct {
	configPath     string
	image          string
	rootfs         string
	imagesSource   string
	reportDir      string
	logDir         string
	timestamp      string
	inspector      string
	inspectorPath  string
	classifierPath string
	toolTimeout    time.Duration
	accumulate     bool
	keepOrder      bool
	signingKey     string
	httpProxy      string
	httpsProxy     string
	noProxy        string

	parallel       bool
	failOnFindings bool
	verbose        bool
	noColor        bool
}

func newScanCmd() *cobra.Command {
	opts := &scanOptions{}

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run the audit engines over one or more images",
		Example: `  # Audit one mounted image
  imgaudit scan --image core-image-minimal --rootfs /mnt/rootfs --report-dir reports --log-dir logs

  # Audit every image of a manifest without checksec.sh installed
  imgaudit scan --images images.yml --inspector native --report-dir reports --log-dir logs

  # Use a config file and fail CI when anything is found
  imgaudit scan --config isafw.yml --fail-on-findings`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScan(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.configPath, "config", "", "Path to YAML config file")
	f.StringVar(&opts.image, "image", "", "Image name")
	f.StringVar(&opts.rootfs, "rootfs", "", "Path to the mounted root filesystem of --image")
	f.StringVar(&opts.imagesSource, "images", "", "Image manifest file or directory of image descriptors")
	f.StringVar(&opts.reportDir, "report-dir", "", "Directory receiving report artifacts")
	f.StringVar(&opts.logDir, "log-dir", "", "Directory receiving engine logs")
	f.StringVar(&opts.timestamp, "timestamp", "", "Run timestamp used in artifact names (default: now, "+entities.TimestampLayout+")")
	f.StringVar(&opts.inspector, "inspector", "", "Hardening inspector: checksec or native (default checksec)")
	f.StringVar(&opts.inspectorPath, "inspector-path", "", "Path to checksec.sh")
	f.StringVar(&opts.classifierPath, "classifier-path", "", "Path to file(1)")
	f.DurationVar(&opts.toolTimeout, "tool-timeout", 0, "Per-invocation timeout for external tools (0 disables)")
	f.BoolVar(&opts.accumulate, "accumulate", false, "Keep findings across images instead of resetting per image")
	f.BoolVar(&opts.keepOrder, "keep-order", false, "Report findings in traversal order instead of sorted")
	f.StringVar(&opts.signingKey, "signing-key", "", "Armored OpenPGP private key used to sign artifacts")
	f.StringVar(&opts.httpProxy, "http-proxy", "", "HTTP proxy passed to external tools")
	f.StringVar(&opts.httpsProxy, "https-proxy", "", "HTTPS proxy passed to external tools")
	f.StringVar(&opts.noProxy, "no-proxy", "", "Proxy exclusions passed to external tools")
	f.BoolVar(&opts.parallel, "parallel", false, "Run the engines of an image concurrently")
	f.BoolVar(&opts.failOnFindings, "fail-on-findings", false, "Exit with status 2 when any problem is found")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "Mirror engine logs to stderr")
	f.BoolVar(&opts.noColor, "no-color", false, "Disable colored output")

	return cmd
}

func runScan(cmd *cobra.Command, opts *scanOptions) error {
	ctx := cmd.Context()

	settings, err := loadSettings(cmd, opts)
	if err != nil {
		return err
	}

	cfg, err := entities.NewAnalyzerConfig(settings.Analyzer)
	if err != nil {
		return err
	}

	images, err := resolveImages(cmd, opts, settings)
	if err != nil {
		return err
	}

	cfaLog, err := zaplog.New(cfg.LogDir, domainservices.CFAEngineName, zaplog.Options{Verbose: opts.verbose})
	if err != nil {
		return err
	}
	//nolint:errcheck // Defer close
	defer cfaLog.Close()

	fsaLog, err := zaplog.New(cfg.LogDir, domainservices.FSAEngineName, zaplog.Options{Verbose: opts.verbose})
	if err != nil {
		return err
	}
	//nolint:errcheck // Defer close
	defer fsaLog.Close()

	writer := report.NewWriter(cfg.ReportDir, cfg.Timestamp)

	tools := gateways.NewToolchain(cfg)
	tools.Filesystem = hostFilesystem(cfaLog)
	cfa := domainservices.NewCFAEngine(cfg, domainservices.CFADeps{
		Classifier: tools.Classifier,
		Inspector:  tools.Inspector,
		Filesystem: tools.Filesystem,
		Reports:    writer,
		Logger:     cfaLog,
	})
	fsa := domainservices.NewFSAEngine(cfg, domainservices.FSADeps{
		Filesystem: hostFilesystem(fsaLog),
		Reports:    writer,
		Logger:     fsaLog,
	})

	auditOpts := orchestrators.AuditOptions{
		ReportDir: cfg.ReportDir,
		Timestamp: cfg.Timestamp,
		Parallel:  opts.parallel,
		Manifest:  gateways.NewChecksumManifest(),
	}
	if cfg.SigningKey != "" {
		signer, err := gpg.NewSignerFromFile(cfg.SigningKey)
		if err != nil {
			return fmt.Errorf("failed to load signing key: %w", err)
		}
		auditOpts.Signer = signer
	}

	orchestrator := orchestrators.NewAuditOrchestrator([]services.Analyzer{cfa, fsa}, auditOpts)
	results, err := orchestrator.AuditImages(ctx, images)

	out := newPrinter(cmd.OutOrStdout(), opts.noColor)
	for _, r := range results {
		out.auditResult(r)
	}
	if err != nil {
		return err
	}

	total := out.totals(results)
	if opts.failOnFindings && total > 0 {
		return fmt.Errorf("%w: %d", errFindingsPresent, total)
	}
	return nil
}

// loadSettings reads the config file and applies command line overrides
func loadSettings(cmd *cobra.Command, opts *scanOptions) (*yaml.Settings, error) {
	settings := &yaml.Settings{}
	if opts.configPath != "" {
		parsed, err := yaml.NewConfigParser().ParseFile(opts.configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		settings = parsed
	}

	a := &settings.Analyzer
	changed := cmd.Flags().Changed
	overrides := []struct {
		flag  string
		apply func()
	}{
		{"report-dir", func() { a.ReportDir = opts.reportDir }},
		{"log-dir", func() { a.LogDir = opts.logDir }},
		{"timestamp", func() { a.Timestamp = opts.timestamp }},
		{"inspector", func() { a.Inspector = opts.inspector }},
		{"inspector-path", func() { a.InspectorPath = opts.inspectorPath }},
		{"classifier-path", func() { a.ClassifierPath = opts.classifierPath }},
		{"tool-timeout", func() { a.ToolTimeout = opts.toolTimeout }},
		{"accumulate", func() { a.Accumulate = opts.accumulate }},
		{"keep-order", func() { a.KeepTraversalOrder = opts.keepOrder }},
		{"signing-key", func() { a.SigningKey = opts.signingKey }},
		{"http-proxy", func() { a.Proxy.HTTP = opts.httpProxy }},
		{"https-proxy", func() { a.Proxy.HTTPS = opts.httpsProxy }},
		{"no-proxy", func() { a.Proxy.NoProxy = opts.noProxy }},
	}
	for _, o := range overrides {
		if changed(o.flag) {
			o.apply()
		}
	}
	return settings, nil
}

// resolveImages picks the images to audit: --image/--rootfs, then --images, then the config file
func resolveImages(cmd *cobra.Command, opts *scanOptions, settings *yaml.Settings) ([]entities.FilesystemDescriptor, error) {
	ctx := cmd.Context()

	switch {
	case opts.imagesSource != "":
		repo := yaml.NewImageRepository(opts.imagesSource)
		if opts.image != "" {
			img, err := repo.GetImage(ctx, opts.image)
			if err != nil {
				return nil, err
			}
			return []entities.FilesystemDescriptor{img}, nil
		}
		images, err := repo.ListImages(ctx)
		if err != nil {
			return nil, err
		}
		if len(images) == 0 {
			return nil, fmt.Errorf("no images found in %s", opts.imagesSource)
		}
		return images, nil

	case opts.image != "" || opts.rootfs != "":
		// incomplete descriptors reach the engines, which log and skip them
		return []entities.FilesystemDescriptor{entities.NewFilesystemDescriptor(opts.image, opts.rootfs)}, nil

	case len(settings.Images) > 0:
		return settings.Images, nil
	}

	return nil, errors.New("no image to audit: use --image and --rootfs, --images, or a config file listing images")
}

func hostFilesystem(log interfaces.Logger) *gateways.HostFilesystem {
	fs := gateways.NewHostFilesystem()
	fs.OnError = func(path string, err error) {
		log.Warn("Skipping unreadable path", interfaces.F("path", path), interfaces.F("error", err.Error()))
	}
	return fs
}
