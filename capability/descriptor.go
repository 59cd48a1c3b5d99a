package capability

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// Risk classifies how much a capability can affect the host or network.
type Risk int

const (
	// RiskBenign capabilities only observe (lookups, connectivity checks).
	RiskBenign Risk = iota

	// RiskSensitive capabilities scan, listen or capture and may require approval.
	RiskSensitive
)

// String returns the lowercase risk label.
func (r Risk) String() string {
	if r == RiskSensitive {
		return "sensitive"
	}
	return "benign"
}

// ParseRisk parses a risk label. The empty string is benign.
func ParseRisk(s string) (Risk, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "benign":
		return RiskBenign, nil
	case "sensitive":
		return RiskSensitive, nil
	default:
		return RiskBenign, fmt.Errorf("unknown risk %q", s)
	}
}

// ArgDefault prepends arguments unless the caller already passed one of the
// listed flags. It keeps unbounded commands (ping, tcpdump) finite.
type ArgDefault struct {
	// Unless lists flag prefixes that suppress the default, e.g. "-c".
	Unless []string

	// Prepend is inserted before the caller's arguments.
	Prepend []string
}

// Descriptor describes a registered command-line capability.
type Descriptor struct {
	// Name is the unique, case-sensitive capability name the model uses.
	Name string

	// Executable is the program looked up on PATH.
	Executable string

	// Package is the system package that provides Executable.
	// Optional; without it a missing executable cannot be provisioned.
	Package string

	// Risk classifies the capability.
	Risk Risk

	// Description is shown to the model in the tool list.
	Description string

	// Usage is a short invocation hint, e.g. "nslookup [domain]".
	Usage string

	// Defaults are applied in order to the parsed argument vector.
	Defaults []ArgDefault
}

var namePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

// Validate checks the descriptor's required fields.
func (d Descriptor) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidDescriptor)
	}
	if !namePattern.MatchString(d.Name) {
		return fmt.Errorf("%w: invalid name %q", ErrInvalidDescriptor, d.Name)
	}
	if d.Executable == "" {
		return fmt.Errorf("%w: executable is required for %s", ErrInvalidDescriptor, d.Name)
	}
	if strings.ContainsAny(d.Executable, " \t\n") {
		return fmt.Errorf("%w: executable %q contains whitespace", ErrInvalidDescriptor, d.Executable)
	}
	return nil
}

// Equal reports whether two descriptors are identical.
func (d Descriptor) Equal(o Descriptor) bool {
	if d.Name != o.Name || d.Executable != o.Executable || d.Package != o.Package ||
		d.Risk != o.Risk || d.Description != o.Description || d.Usage != o.Usage {
		return false
	}
	return slices.EqualFunc(d.Defaults, o.Defaults, func(a, b ArgDefault) bool {
		return slices.Equal(a.Unless, b.Unless) && slices.Equal(a.Prepend, b.Prepend)
	})
}

// ApplyDefaults returns args with the descriptor's default arguments applied.
// The input slice is not modified.
func (d Descriptor) ApplyDefaults(args []string) []string {
	out := slices.Clone(args)
	for _, def := range d.Defaults {
		if hasFlag(out, def.Unless) {
			continue
		}
		out = append(slices.Clone(def.Prepend), out...)
	}
	return out
}

func hasFlag(args, flags []string) bool {
	for _, a := range args {
		for _, f := range flags {
			if strings.HasPrefix(a, f) {
				return true
			}
		}
	}
	return false
}

// clone returns a deep copy so callers cannot mutate registry state.
func (d Descriptor) clone() Descriptor {
	if d.Defaults == nil {
		return d
	}
	defs := make([]ArgDefault, len(d.Defaults))
	for i, def := range d.Defaults {
		defs[i] = ArgDefault{Unless: slices.Clone(def.Unless), Prepend: slices.Clone(def.Prepend)}
	}
	d.Defaults = defs
	return d
}
