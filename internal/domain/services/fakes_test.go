package services

import (
	"context"
	"errors"
	"os"
	"path"
	"strings"

	"github.com/ochairo/imgaudit/internal/domain/entities"
	"github.com/ochairo/imgaudit/internal/domain/interfaces/gateways"
)

const testRoot = "/images/core"

// fakeFilesystem serves a fixed object table rooted at testRoot
type fakeFilesystem struct {
	order   []string
	objects map[string]entities.FsObjectRecord
	links   map[string]string // path -> resolved target
	statErr map[string]error
}

func newFakeFilesystem() *fakeFilesystem {
	return &fakeFilesystem{
		objects: make(map[string]entities.FsObjectRecord),
		links:   make(map[string]string),
		statErr: make(map[string]error),
	}
}

// add registers rel (relative to testRoot) with a raw mode
func (f *fakeFilesystem) add(rel string, mode uint32) string {
	p := path.Join(testRoot, rel)
	f.order = append(f.order, p)
	f.objects[p] = entities.FsObjectRecord{Path: p, Mode: mode}
	return p
}

func (f *fakeFilesystem) link(rel, targetRel string) string {
	p := f.add(rel, entities.ModeSymlink|0o777)
	f.links[p] = path.Join(testRoot, targetRel)
	return p
}

func (f *fakeFilesystem) Enumerate(root string, includeDirs bool) ([]string, error) {
	if root != testRoot {
		return nil, errors.New("failed to access root path: " + root)
	}
	var out []string
	for _, p := range f.order {
		if f.objects[p].IsDir() && !includeDirs {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeFilesystem) LinkStatus(p string) (entities.FsObjectRecord, error) {
	if err, ok := f.statErr[p]; ok {
		return entities.FsObjectRecord{}, err
	}
	rec, ok := f.objects[p]
	if !ok {
		return entities.FsObjectRecord{}, os.ErrNotExist
	}
	return rec, nil
}

func (f *fakeFilesystem) ResolveInRoot(_, p string) (string, error) {
	for hops := 0; hops < 40; hops++ {
		target, ok := f.links[p]
		if !ok {
			return p, nil
		}
		p = target
	}
	return "", errors.New("too many levels of symbolic links")
}

// fakeClassifier answers from a path -> mime table
type fakeClassifier struct {
	mimes map[string]string
	errs  map[string]error
	calls []string
}

func (c *fakeClassifier) ClassifyMIME(_ context.Context, p string) (string, error) {
	c.calls = append(c.calls, p)
	if err, ok := c.errs[p]; ok {
		return "", err
	}
	if m, ok := c.mimes[p]; ok {
		return m, nil
	}
	return "text/plain", nil
}

// fakeInspector answers from a path -> flags table
type fakeInspector struct {
	available bool
	flags     map[string][]string
	errs      map[string]error
	calls     []string
}

func (i *fakeInspector) Name() string { return "fake-checksec" }

func (i *fakeInspector) Available() bool { return i.available }

func (i *fakeInspector) InspectHardening(_ context.Context, p string) ([]entities.SecurityFlag, error) {
	i.calls = append(i.calls, p)
	if err, ok := i.errs[p]; ok {
		return nil, err
	}
	var out []entities.SecurityFlag
	for _, name := range i.flags[p] {
		f, _ := entities.LookupSecurityFlag(name)
		out = append(out, f)
	}
	return out, nil
}

// fakeReports keeps every emitted artifact in memory
type fakeReports struct {
	full     map[string][]string // engine -> lines of the last full report
	problems []*entities.ProblemsReport
	xml      []*entities.ProblemsReport
	failXML  error
}

func newFakeReports() *fakeReports {
	return &fakeReports{full: make(map[string][]string)}
}

func (r *fakeReports) OpenFullReport(engine, imageName string, header []string) gateways.FullReport {
	return &fakeFullReport{owner: r, engine: engine, name: engine + "_full_report_" + imageName, lines: append([]string(nil), header...)}
}

func (r *fakeReports) WriteProblemsReport(_ context.Context, report *entities.ProblemsReport) (string, error) {
	r.problems = append(r.problems, report)
	return report.Engine + "_problems_report_" + report.ImageName, nil
}

func (r *fakeReports) WriteXMLReport(_ context.Context, report *entities.ProblemsReport) (string, error) {
	if r.failXML != nil {
		return "", r.failXML
	}
	r.xml = append(r.xml, report)
	return report.Engine + "_problems_report_" + report.ImageName + ".xml", nil
}

func (r *fakeReports) lastProblems() *entities.ProblemsReport {
	if len(r.problems) == 0 {
		return nil
	}
	return r.problems[len(r.problems)-1]
}

// body returns the full report lines after the header of engine
func (r *fakeReports) body(engine string) []string {
	lines := r.full[engine]
	if len(lines) < 2 {
		return nil
	}
	return lines[2:]
}

type fakeFullReport struct {
	owner  *fakeReports
	engine string
	name   string
	lines  []string
}

func (f *fakeFullReport) Append(line string) { f.lines = append(f.lines, line) }

func (f *fakeFullReport) Close() (string, error) {
	f.owner.full[f.engine] = f.lines
	return f.name, nil
}

func categoryPaths(report *entities.ProblemsReport, key string) []string {
	for _, c := range report.Categories {
		if c.Key == key {
			return c.Paths
		}
	}
	return nil
}

func hasLine(lines []string, prefix string) bool {
	for _, l := range lines {
		if strings.HasPrefix(l, prefix) {
			return true
		}
	}
	return false
}
