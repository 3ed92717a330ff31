package gateways

import (
	"bytes"
	"context"
	"debug/elf"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ochairo/imgaudit/internal/domain/entities"
)

// elfInspector derives checksec-equivalent flags in-process using debug/elf
type elfInspector struct{}

// NewELFInspector creates the native hardening inspector
//
//nolint:revive // unexported-return: Intentionally returns concrete type for testability
func NewELFInspector() *elfInspector {
	return &elfInspector{}
}

// Name identifies the inspector
func (g *elfInspector) Name() string { return "native-elf" }

// Available is always true; no external tool is needed
func (g *elfInspector) Available() bool { return true }

// InspectHardening analyzes path and returns its scored flags
func (g *elfInspector) InspectHardening(_ context.Context, path string) ([]entities.SecurityFlag, error) {
	features, err := g.analyze(path)
	if err != nil {
		return nil, err
	}
	return features.Flags(), nil
}

func (g *elfInspector) analyze(path string) (entities.HardeningFeatures, error) {
	//nolint:gosec // G304: path comes from the filesystem walk
	fh, err := os.Open(path)
	if err != nil {
		return entities.HardeningFeatures{}, fmt.Errorf("failed to open file: %w", err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer fh.Close()

	// Check for ELF magic number (0x7F 'E' 'L' 'F') before parsing headers
	magic := make([]byte, 4)
	if _, err := io.ReadFull(fh, magic); err != nil || !bytes.Equal(magic, []byte(elf.ELFMAG)) {
		return entities.HardeningFeatures{ELF: false}, nil
	}

	f, err := elf.NewFile(fh)
	if err != nil {
		return entities.HardeningFeatures{}, fmt.Errorf("failed to read ELF file: %w", err)
	}

	features := entities.HardeningFeatures{ELF: true}

	// RELRO: PT_GNU_RELRO gives partial, immediate binding upgrades it to full
	features.RELRO = "disabled"
	if hasProg(f, elf.PT_GNU_RELRO) {
		features.RELRO = "partial"
		if bindNow(f) {
			features.RELRO = "full"
		}
	}

	features.NXBit = false
	for _, prog := range f.Progs {
		if prog.Type == elf.PT_GNU_STACK {
			features.NXBit = prog.Flags&elf.PF_X == 0
			break
		}
	}

	switch f.Type {
	case elf.ET_DYN:
		if hasProg(f, elf.PT_INTERP) || dynFlag(f, elf.DT_FLAGS_1, uint64(elf.DF_1_PIE)) {
			features.PIE = "pie"
		} else {
			features.PIE = "dso"
		}
	default:
		features.PIE = "disabled"
	}

	features.StackCanaries = hasCanarySymbol(f)

	if rpath, err := f.DynString(elf.DT_RPATH); err == nil && len(rpath) > 0 {
		features.RPATH = true
	}
	if runpath, err := f.DynString(elf.DT_RUNPATH); err == nil && len(runpath) > 0 {
		features.RUNPATH = true
	}

	return features, nil
}

func hasProg(f *elf.File, typ elf.ProgType) bool {
	for _, prog := range f.Progs {
		if prog.Type == typ {
			return true
		}
	}
	return false
}

func dynFlag(f *elf.File, tag elf.DynTag, mask uint64) bool {
	vals, err := f.DynValue(tag)
	if err != nil {
		return false
	}
	for _, v := range vals {
		if v&mask != 0 {
			return true
		}
	}
	return false
}

func bindNow(f *elf.File) bool {
	if vals, err := f.DynValue(elf.DT_BIND_NOW); err == nil && len(vals) > 0 {
		return true
	}
	return dynFlag(f, elf.DT_FLAGS, uint64(elf.DF_BIND_NOW)) ||
		dynFlag(f, elf.DT_FLAGS_1, uint64(elf.DF_1_NOW))
}

func hasCanarySymbol(f *elf.File) bool {
	lookup := func(syms []elf.Symbol) bool {
		for _, sym := range syms {
			if strings.HasPrefix(sym.Name, "__stack_chk_fail") || sym.Name == "__stack_chk_guard" {
				return true
			}
		}
		return false
	}

	if syms, err := f.DynamicSymbols(); err == nil && lookup(syms) {
		return true
	}
	if syms, err := f.Symbols(); err == nil && lookup(syms) {
		return true
	}
	return false
}
