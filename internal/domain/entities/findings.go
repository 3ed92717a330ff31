package entities

import (
	"sort"
	"time"
)

// Attr is a single XML attribute of a report root element
type Attr struct {
	Name  string
	Value string
}

// XMLLayout describes how an engine's problems are rendered as XML
type XMLLayout struct {
	Root      string // root element name
	Attrs     []Attr
	Element   string // per-category element name
	ClassName string
}

// FindingCategory is one violation category and its offending paths
type FindingCategory struct {
	Key        string // stable identifier, e.g. "no_relro"
	Title      string // problems report heading
	XMLName    string // name attribute of the XML element
	FailureMsg string
	Paths      []string
}

// ProblemsReport holds the accumulated violations of one engine run
type ProblemsReport struct {
	Engine     string
	ImageName  string
	RootPath   string
	Layout     XMLLayout
	Categories []FindingCategory
}

// Total returns the number of violations across all categories
func (r *ProblemsReport) Total() int {
	total := 0
	for _, c := range r.Categories {
		total += len(c.Paths)
	}
	return total
}

// Sorted returns a copy of the report with every category sorted lexically
func (r *ProblemsReport) Sorted() *ProblemsReport {
	out := *r
	out.Categories = make([]FindingCategory, len(r.Categories))
	for i, c := range r.Categories {
		paths := append([]string(nil), c.Paths...)
		sort.Strings(paths)
		c.Paths = paths
		out.Categories[i] = c
	}
	return &out
}

// RunSummary describes the outcome of one ProcessFilesystem call
type RunSummary struct {
	Engine         string
	ImageName      string
	Skipped        bool
	SkipReason     string
	ObjectsVisited int
	Findings       map[string]int // category key -> count
	Reports        []string       // artifact paths written
	Duration       time.Duration
}

// TotalFindings returns the number of violations across categories
func (s *RunSummary) TotalFindings() int {
	total := 0
	for _, n := range s.Findings {
		total += n
	}
	return total
}
