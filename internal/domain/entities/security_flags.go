package entities

import (
	"strconv"
	"strings"
)

// Flag names as printed by the hardening inspector
const (
	FlagNoRELRO      = "No RELRO"
	FlagPartialRELRO = "Partial RELRO"
	FlagFullRELRO    = "Full RELRO"
	FlagNoCanary     = "No canary found"
	FlagCanary       = "Canary found"
	FlagNXDisabled   = "NX disabled"
	FlagNXEnabled    = "NX enabled"
	FlagNoPIE        = "No PIE"
	FlagPIEEnabled   = "PIE enabled"
	FlagDSO          = "DSO"
	FlagRPATH        = "RPATH"
	FlagNoRPATH      = "No RPATH"
	FlagRUNPATH      = "RUNPATH"
	FlagNoRUNPATH    = "No RUNPATH"
	FlagNotELF       = "Not an ELF file"
)

// flagScores expresses relative hardening strength; it is reported, never used for pass/fail
var flagScores = map[string]int{
	FlagNoRELRO:      0,
	FlagPartialRELRO: 1,
	FlagFullRELRO:    2,
	FlagNoCanary:     0,
	FlagCanary:       1,
	FlagNXDisabled:   0,
	FlagNXEnabled:    1,
	FlagNoPIE:        0,
	FlagPIEEnabled:   3,
	FlagDSO:          2,
	FlagRPATH:        0,
	FlagNoRPATH:      1,
	FlagRUNPATH:      0,
	FlagNoRUNPATH:    1,
	FlagNotELF:       1,
}

// SecurityFlag is one scored hardening flag reported for a binary
type SecurityFlag struct {
	Name  string
	Score int
}

// String renders the flag as "name score"
func (f SecurityFlag) String() string {
	return f.Name + " " + strconv.Itoa(f.Score)
}

// LookupSecurityFlag returns the scored flag for a known flag name
func LookupSecurityFlag(name string) (SecurityFlag, bool) {
	score, ok := flagScores[name]
	if !ok {
		return SecurityFlag{}, false
	}
	return SecurityFlag{Name: name, Score: score}, true
}

// FormatSecurityFlags renders a flag record the way the full report expects it
func FormatSecurityFlags(flags []SecurityFlag) string {
	parts := make([]string, 0, len(flags))
	for _, f := range flags {
		parts = append(parts, f.String())
	}
	return strings.Join(parts, " ")
}

// HardeningFeatures represents hardening features detected in an ELF binary
type HardeningFeatures struct {
	ELF           bool
	RELRO         string // "full", "partial", "disabled"
	StackCanaries bool
	NXBit         bool
	PIE           string // "pie", "dso", "disabled"
	RPATH         bool
	RUNPATH       bool
}

// Flags converts detected features into the inspector's flag vocabulary
func (h HardeningFeatures) Flags() []SecurityFlag {
	if !h.ELF {
		return []SecurityFlag{mustFlag(FlagNotELF)}
	}

	names := make([]string, 0, 6)
	switch h.RELRO {
	case "full":
		names = append(names, FlagFullRELRO)
	case "partial":
		names = append(names, FlagPartialRELRO)
	default:
		names = append(names, FlagNoRELRO)
	}

	if h.StackCanaries {
		names = append(names, FlagCanary)
	} else {
		names = append(names, FlagNoCanary)
	}

	if h.NXBit {
		names = append(names, FlagNXEnabled)
	} else {
		names = append(names, FlagNXDisabled)
	}

	switch h.PIE {
	case "pie":
		names = append(names, FlagPIEEnabled)
	case "dso":
		names = append(names, FlagDSO)
	default:
		names = append(names, FlagNoPIE)
	}

	if h.RPATH {
		names = append(names, FlagRPATH)
	} else {
		names = append(names, FlagNoRPATH)
	}

	if h.RUNPATH {
		names = append(names, FlagRUNPATH)
	} else {
		names = append(names, FlagNoRUNPATH)
	}

	flags := make([]SecurityFlag, 0, len(names))
	for _, n := range names {
		flags = append(flags, mustFlag(n))
	}
	return flags
}

func mustFlag(name string) SecurityFlag {
	f, ok := LookupSecurityFlag(name)
	if !ok {
		panic("unknown security flag: " + name)
	}
	return f
}
