package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ochairo/imgaudit/internal/domain/entities"
	"github.com/ochairo/imgaudit/internal/domain/interfaces"
	"github.com/ochairo/imgaudit/internal/domain/interfaces/gateways"
)

// CFAEngineName prefixes compile flag analyzer artifacts
const CFAEngineName = "cfa"

// Compile flag analyzer categories
const (
	CategoryNoRELRO  = "no_relro"
	CategoryNoCanary = "no_canary"
	CategoryNoPIE    = "no_pie"
	CategoryNoNX     = "no_nx"
)

// FetchFlagsFailed is written to the full report when inspection fails
const FetchFlagsFailed = "Not able to fetch flags"

// flagCategory maps a violating flag onto its category
var flagCategory = map[string]string{
	entities.FlagNoRELRO:    CategoryNoRELRO,
	entities.FlagNoCanary:   CategoryNoCanary,
	entities.FlagNoPIE:      CategoryNoPIE,
	entities.FlagNXDisabled: CategoryNoNX,
}

// notAnalyzed lists application subtypes that are never inspected, checked in order
var notAnalyzed = []struct {
	marker string
	reason string
}{
	{"octet-stream", "File is octet-stream, can not be analyzed"},
	{"dosexec", "File is MS Windows binary"},
	{"archive", "File is an archive"},
	{"xml", "File is xml"},
	{"gzip", "File is gzip"},
	{"postscript", "File is postscript"},
	{"pdf", "File is pdf"},
}

var cfaLayout = entities.XMLLayout{
	Root:      "testsuite",
	Attrs:     []entities.Attr{{Name: "name", Value: "CFA_Plugin"}, {Name: "tests", Value: "4"}},
	Element:   "testcase",
	ClassName: "ISA_CFChecker",
}

// CFADeps are the collaborators of the compile flag analyzer
type CFADeps struct {
	Classifier gateways.MimeClassifier
	Inspector  gateways.HardeningInspector
	Filesystem gateways.Filesystem
	Reports    gateways.ReportWriter
	Logger     interfaces.Logger
}

// CFAEngine checks ELF hardening flags (RELRO, canary, PIE, NX) of every application file
type CFAEngine struct {
	cfg         entities.AnalyzerConfig
	deps        CFADeps
	initialized bool
	findings    findings
}

// NewCFAEngine creates the engine and probes for the hardening inspector
func NewCFAEngine(cfg entities.AnalyzerConfig, deps CFADeps) *CFAEngine {
	if deps.Logger == nil {
		deps.Logger = &interfaces.NoOpLogger{}
	}

	e := &CFAEngine{
		cfg:  cfg,
		deps: deps,
		findings: findings{
			newCategory(entities.FindingCategory{Key: CategoryNoRELRO, Title: "Files with no RELO", XMLName: "files_with_no_RELO", FailureMsg: "Non-compliant files found"}),
			newCategory(entities.FindingCategory{Key: CategoryNoCanary, Title: "Files with no canary", XMLName: "files_with_no_canary", FailureMsg: "Non-compliant files found"}),
			newCategory(entities.FindingCategory{Key: CategoryNoPIE, Title: "Files with no PIE", XMLName: "files_with_no_PIE", FailureMsg: "Non-compliant files found"}),
			newCategory(entities.FindingCategory{Key: CategoryNoNX, Title: "Files with no NX", XMLName: "files_with_no_NX", FailureMsg: "Non-compliant files found"}),
		},
	}

	if deps.Inspector != nil && deps.Inspector.Available() {
		e.initialized = true
		deps.Logger.Info("Compile flag analyzer initialized", interfaces.F("inspector", deps.Inspector.Name()))
	} else {
		name := entities.DefaultInspectorPath
		if deps.Inspector != nil {
			name = deps.Inspector.Name()
		}
		deps.Logger.Error("Hardening inspector is missing, compile flag analysis disabled",
			interfaces.F("inspector", name),
			interfaces.F("hint", "install checksec.sh or use the native inspector"))
	}

	return e
}

// Name returns the engine identifier
func (e *CFAEngine) Name() string { return CFAEngineName }

// Initialized reports whether the hardening inspector was found
func (e *CFAEngine) Initialized() bool { return e.initialized }

// Findings returns the accumulated violation paths per category
func (e *CFAEngine) Findings() map[string][]string { return e.findings.snapshot() }

// ProcessFilesystem inspects every regular application file of the image
func (e *CFAEngine) ProcessFilesystem(ctx context.Context, fs entities.FilesystemDescriptor) (*entities.RunSummary, error) {
	start := time.Now()
	summary := &entities.RunSummary{Engine: CFAEngineName, ImageName: fs.ImageName}
	log := e.deps.Logger

	desc, ok, err := prepareRun(log, e.initialized, fs, summary)
	if err != nil || !ok {
		return finish(summary, start), err
	}

	if !e.cfg.Accumulate {
		e.findings.reset()
	}

	log.Info("Filesystem path is", interfaces.F("image", desc.ImageName), interfaces.F("rootfs", desc.RootPath))

	full := e.deps.Reports.OpenFullReport(CFAEngineName, desc.ImageName, []string{
		"Security-relevant flags for executables for image: " + desc.ImageName,
		"With rootfs location at " + desc.RootPath,
	})

	files, err := e.deps.Filesystem.Enumerate(desc.RootPath, false)
	if err != nil {
		return finish(summary, start), fmt.Errorf("failed to list files: %w", err)
	}
	log.Info("File list collected", interfaces.F("files", len(files)))
	log.Debug("File list is", interfaces.F("files", files))

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return finish(summary, start), err
		}
		e.processFile(ctx, desc, file, full)
	}
	summary.ObjectsVisited = len(files)

	path, err := full.Close()
	if err != nil {
		return finish(summary, start), fmt.Errorf("failed to write full report: %w", err)
	}
	summary.Reports = append(summary.Reports, path)

	report := e.findings.report(CFAEngineName, desc, cfaLayout, !e.cfg.KeepTraversalOrder)
	if err := emitProblems(ctx, e.deps.Reports, report, summary); err != nil {
		return finish(summary, start), err
	}

	return finish(summary, start), nil
}

// processFile classifies one walked path and inspects it when eligible.
// Failures are logged and the file is skipped.
func (e *CFAEngine) processFile(ctx context.Context, desc entities.FilesystemDescriptor, path string, full gateways.FullReport) {
	log := e.deps.Logger

	target, err := e.deps.Filesystem.ResolveInRoot(desc.RootPath, path)
	if err != nil {
		log.Debug("Skipping unresolvable path", interfaces.F("path", path), interfaces.F("error", err.Error()))
		return
	}
	rec, err := e.deps.Filesystem.LinkStatus(target)
	if err != nil || !rec.IsRegular() {
		return
	}

	mime, err := e.deps.Classifier.ClassifyMIME(ctx, path)
	if err != nil {
		log.Error("Not able to decode mime type", interfaces.F("path", path), interfaces.F("error", err.Error()))
		return
	}

	realFile := path
	if strings.Contains(mime, "symlink") {
		realFile = target
		mime, err = e.deps.Classifier.ClassifyMIME(ctx, realFile)
		if err != nil {
			log.Error("Not able to decode mime type", interfaces.F("path", realFile), interfaces.F("error", err.Error()))
			return
		}
	}

	topLevel, subtype, _ := strings.Cut(mime, "/")
	if topLevel != "application" {
		return
	}

	name := desc.NormalizePath(realFile)
	if reason := notAnalyzedReason(subtype); reason != "" {
		full.Append(name + ": " + reason)
		return
	}

	flags, err := e.deps.Inspector.InspectHardening(ctx, realFile)
	if err != nil {
		log.Warn(FetchFlagsFailed, interfaces.F("path", name), interfaces.F("error", err.Error()))
		full.Append(name + ": " + FetchFlagsFailed)
		return
	}

	full.Append(name + ": " + entities.FormatSecurityFlags(flags))
	for _, f := range flags {
		if key, violates := flagCategory[f.Name]; violates {
			e.findings.get(key).add(findingEntry(e.cfg, desc.ImageName, name))
		}
	}
}

func notAnalyzedReason(subtype string) string {
	for _, n := range notAnalyzed {
		if strings.Contains(subtype, n.marker) {
			return n.reason
		}
	}
	return ""
}
