package main

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"

	orchestrators "github.com/ochairo/imgaudit/internal/domain-orchestrators"
	"github.com/ochairo/imgaudit/internal/domain/entities"
)

const separator = "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"

// printer renders scan and verify results for humans
type printer struct {
	w      io.Writer
	green  *color.Color
	yellow *color.Color
	red    *color.Color
	cyan   *color.Color
	bold   *color.Color
}

func newPrinter(w io.Writer, noColor bool) *printer {
	p := &printer{
		w:      w,
		green:  color.New(color.FgGreen),
		yellow: color.New(color.FgYellow),
		red:    color.New(color.FgRed),
		cyan:   color.New(color.FgCyan),
		bold:   color.New(color.Bold),
	}
	if noColor {
		for _, c := range []*color.Color{p.green, p.yellow, p.red, p.cyan, p.bold} {
			c.DisableColor()
		}
	}
	return p
}

func (p *printer) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(p.w, format, args...)
}

func (p *printer) auditResult(r *orchestrators.AuditResult) {
	p.printf("🔍 %s %s\n", p.bold.Sprint(r.Image.ImageName), p.cyan.Sprintf("(%s)", r.Image.RootPath))

	for _, s := range r.Summaries {
		p.runSummary(s)
	}

	if r.Manifest != "" {
		p.printf("   📋 Checksums: %s\n", r.Manifest)
	}
	if len(r.Signatures) > 0 {
		p.printf("   🔐 Signed %d artifacts\n", len(r.Signatures))
	}
	p.printf("   Duration: %v\n\n", r.Duration.Round(time.Millisecond))
}

func (p *printer) runSummary(s *entities.RunSummary) {
	name := strings.ToUpper(s.Engine)
	if s.Skipped {
		p.printf("   %s %s %s\n", p.yellow.Sprint("⏭"), name, p.yellow.Sprintf("skipped: %s", s.SkipReason))
		return
	}

	total := s.TotalFindings()
	status := p.green.Sprint("✅")
	if total > 0 {
		status = p.red.Sprint("❌")
	}
	p.printf("   %s %s %d findings in %d objects\n", status, name, total, s.ObjectsVisited)

	keys := make([]string, 0, len(s.Findings))
	for k := range s.Findings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if n := s.Findings[k]; n > 0 {
			p.printf("      %-24s %s\n", k, p.red.Sprint(n))
		}
	}
	for _, r := range s.Reports {
		p.printf("      📄 %s\n", filepath.Base(r))
	}
}

// totals prints the closing summary and returns the number of findings
func (p *printer) totals(results []*orchestrators.AuditResult) int {
	total := 0
	for _, r := range results {
		total += r.TotalFindings()
	}

	p.printf("%s\n", separator)
	p.printf("Images audited: %d\n", len(results))
	if total == 0 {
		p.printf("%s\n", p.green.Sprint("✅ No problems found"))
	} else {
		p.printf("%s\n", p.red.Sprintf("❌ Problems found: %d", total))
	}
	p.printf("%s\n", separator)
	return total
}

// check prints one verification line
func (p *printer) check(ok bool, label string, err error) {
	if ok {
		p.printf("%s %s\n", p.green.Sprint("✅"), label)
		return
	}
	p.printf("%s %s: %v\n", p.red.Sprint("❌"), label, err)
}
