package services

import (
	"context"
	"fmt"
	"time"

	"github.com/ochairo/imgaudit/internal/domain/entities"
	"github.com/ochairo/imgaudit/internal/domain/interfaces"
	"github.com/ochairo/imgaudit/internal/domain/interfaces/gateways"
)

// FSAEngineName prefixes filesystem attribute analyzer artifacts
const FSAEngineName = "fsa"

// Filesystem attribute analyzer categories
const (
	CategorySetuid        = "setuid_files"
	CategorySetgid        = "setgid_files"
	CategoryWorldWritable = "ww_files"
	CategoryNoStickyBit   = "no_sticky_bit_ww_dirs"
)

var fsaLayout = entities.XMLLayout{
	Root:      "filesystem_problemsreport",
	Element:   "section",
	ClassName: "ISA_FSChecker",
}

// FSADeps are the collaborators of the filesystem attribute analyzer
type FSADeps struct {
	Filesystem gateways.Filesystem
	Reports    gateways.ReportWriter
	Logger     interfaces.Logger
}

// FSAEngine flags setuid/setgid objects and world-writable files and directories
type FSAEngine struct {
	cfg      entities.AnalyzerConfig
	deps     FSADeps
	findings findings
}

// NewFSAEngine creates the engine; it needs no external tools and is always initialized
func NewFSAEngine(cfg entities.AnalyzerConfig, deps FSADeps) *FSAEngine {
	if deps.Logger == nil {
		deps.Logger = &interfaces.NoOpLogger{}
	}
	deps.Logger.Info("Filesystem attribute analyzer initialized")

	return &FSAEngine{
		cfg:  cfg,
		deps: deps,
		findings: findings{
			newCategory(entities.FindingCategory{Key: CategorySetuid, Title: "Files with SETUID bit set", XMLName: "Files_with_SETUID_bit_set", FailureMsg: "Non-compliant files found"}),
			newCategory(entities.FindingCategory{Key: CategorySetgid, Title: "Files with SETGID bit set", XMLName: "Files_with_SETGID_bit_set", FailureMsg: "Non-compliant files found"}),
			newCategory(entities.FindingCategory{Key: CategoryWorldWritable, Title: "World-writable files", XMLName: "World-writable_files", FailureMsg: "Non-compliant files found"}),
			newCategory(entities.FindingCategory{Key: CategoryNoStickyBit, Title: "World-writable dirs with no sticky bit", XMLName: "World-writable_dirs_with_no_sticky_bit", FailureMsg: "Non-compliant directories found"}),
		},
	}
}

// Name returns the engine identifier
func (e *FSAEngine) Name() string { return FSAEngineName }

// Initialized is always true
func (e *FSAEngine) Initialized() bool { return true }

// Findings returns the accumulated violation paths per category
func (e *FSAEngine) Findings() map[string][]string { return e.findings.snapshot() }

// Violations returns the category keys a record falls into
func Violations(rec entities.FsObjectRecord) []string {
	var keys []string
	if rec.Mode&entities.ModeSetuid != 0 {
		keys = append(keys, CategorySetuid)
	}
	if rec.Mode&entities.ModeSetgid != 0 {
		keys = append(keys, CategorySetgid)
	}
	if rec.Mode&entities.ModeOtherW != 0 {
		switch {
		case rec.IsDir() && rec.Mode&entities.ModeSticky == 0:
			keys = append(keys, CategoryNoStickyBit)
		case rec.IsRegular():
			keys = append(keys, CategoryWorldWritable)
		}
	}
	return keys
}

// ProcessFilesystem records the attributes of every object of the image
func (e *FSAEngine) ProcessFilesystem(ctx context.Context, fs entities.FilesystemDescriptor) (*entities.RunSummary, error) {
	start := time.Now()
	summary := &entities.RunSummary{Engine: FSAEngineName, ImageName: fs.ImageName}
	log := e.deps.Logger

	desc, ok, err := prepareRun(log, true, fs, summary)
	if err != nil || !ok {
		return finish(summary, start), err
	}

	if !e.cfg.Accumulate {
		e.findings.reset()
	}

	log.Info("Filesystem path is", interfaces.F("image", desc.ImageName), interfaces.F("rootfs", desc.RootPath))

	full := e.deps.Reports.OpenFullReport(FSAEngineName, desc.ImageName, []string{
		"Report for image: " + desc.ImageName,
		"With rootfs location at " + desc.RootPath,
	})

	objects, err := e.deps.Filesystem.Enumerate(desc.RootPath, true)
	if err != nil {
		return finish(summary, start), fmt.Errorf("failed to list filesystem objects: %w", err)
	}
	log.Info("Object list collected", interfaces.F("objects", len(objects)))

	for _, obj := range objects {
		if err := ctx.Err(); err != nil {
			return finish(summary, start), err
		}

		rec, err := e.deps.Filesystem.LinkStatus(obj)
		if err != nil {
			return finish(summary, start), fmt.Errorf("failed to stat %s: %w", obj, err)
		}
		rec.Path = desc.NormalizePath(obj)

		full.Append(rec.ReportLine())
		for _, key := range Violations(rec) {
			e.findings.get(key).add(findingEntry(e.cfg, desc.ImageName, rec.Path))
		}
	}
	summary.ObjectsVisited = len(objects)

	path, err := full.Close()
	if err != nil {
		return finish(summary, start), fmt.Errorf("failed to write full report: %w", err)
	}
	summary.Reports = append(summary.Reports, path)

	report := e.findings.report(FSAEngineName, desc, fsaLayout, !e.cfg.KeepTraversalOrder)
	report.Layout.Attrs = []entities.Attr{
		{Name: "location", Value: desc.RootPath},
		{Name: "image", Value: desc.ImageName},
	}
	if err := emitProblems(ctx, e.deps.Reports, report, summary); err != nil {
		return finish(summary, start), err
	}

	return finish(summary, start), nil
}
