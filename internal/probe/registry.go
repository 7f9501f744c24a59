package probe

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"github.com/roach88/probecheck/internal/canon"
)

// DomainRegistry separates registry fingerprints from any other hash.
const DomainRegistry = "probecheck/registry/v1"

var validName = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// Registry is an ordered, validated, read-only probe catalog.
// It is safe for concurrent use once built.
type Registry struct {
	source string
	probes []Probe
	index  map[string]int
}

// NewRegistry validates probes and returns a registry that preserves their
// declaration order. source labels the definitions in error messages.
//
// All defects are collected before returning, so a single run of
// `probecheck validate` surfaces every problem in a manifest.
func NewRegistry(source string, probes []Probe) (*Registry, error) {
	var issues []Issue
	index := make(map[string]int, len(probes))

	for i, p := range probes {
		label := p.Name
		if label == "" {
			label = fmt.Sprintf("probes[%d]", i)
		}
		issues = append(issues, validateProbe(label, p)...)

		if p.Name == "" {
			continue
		}
		if prev, dup := index[p.Name]; dup {
			issues = append(issues, Issue{
				Probe:   label,
				Field:   "name",
				Message: fmt.Sprintf("duplicate name (first declared at probes[%d])", prev),
			})
			continue
		}
		index[p.Name] = i
	}

	if len(issues) > 0 {
		return nil, &DefinitionError{Source: source, Issues: issues}
	}

	owned := make([]Probe, len(probes))
	copy(owned, probes)
	return &Registry{source: source, probes: owned, index: index}, nil
}

func validateProbe(label string, p Probe) []Issue {
	var issues []Issue
	add := func(field, format string, args ...any) {
		issues = append(issues, Issue{Probe: label, Field: field, Message: fmt.Sprintf(format, args...)})
	}

	switch {
	case p.Name == "":
		add("name", "name is required")
	case !validName.MatchString(p.Name):
		add("name", "name %q must match %s", p.Name, validName.String())
	}

	if !p.Category.Valid() {
		add("category", "unknown category %q", p.Category)
	}

	switch {
	case p.Unit.Path == "" && p.Unit.Source == "":
		add("unit", "a unit path or inline source is required")
	case p.Unit.Path != "" && p.Unit.Source != "":
		add("unit", "unit path and inline source are mutually exclusive")
	}

	switch p.Expect.Kind {
	case ExpectTranscript:
		if p.Expect.Value != 0 || p.Expect.Bits != 0 {
			add("expect", "transcript expectation must not also declare a value")
		}
	case ExpectValue:
		if p.Expect.Transcript != "" {
			add("expect", "value expectation must not also declare a transcript")
		}
		switch p.Expect.Bits {
		case 8, 16, 32:
			if p.Expect.Value >= uint64(1)<<p.Expect.Bits {
				add("expect", "value %d does not fit in %d bits", p.Expect.Value, p.Expect.Bits)
			}
		case 64:
		default:
			add("expect", "unsupported value width %d (want 8, 16, 32 or 64)", p.Expect.Bits)
		}
	case "":
		add("expect", "an expected transcript or value is required")
	default:
		add("expect", "unknown expectation kind %q", p.Expect.Kind)
	}

	if p.Budget < 0 {
		add("budget", "budget must not be negative, got %s", p.Budget)
	}

	return issues
}

// Source returns the label the registry was built from.
func (r *Registry) Source() string {
	return r.source
}

// Len returns the number of probes.
func (r *Registry) Len() int {
	return len(r.probes)
}

// List returns every probe in declaration order. The slice is a copy.
func (r *Registry) List() []Probe {
	out := make([]Probe, len(r.probes))
	copy(out, r.probes)
	return out
}

// Get looks a probe up by name.
func (r *Registry) Get(name string) (Probe, bool) {
	i, ok := r.index[name]
	if !ok {
		return Probe{}, false
	}
	return r.probes[i], true
}

// Select returns the probes matching filter, in declaration order.
//
// The filter is a comma-separated list of terms. A term equal to a
// category name selects that category; any other term selects probes
// whose name contains it. An empty filter selects everything.
func (r *Registry) Select(filter string) []Probe {
	var terms []string
	for _, t := range strings.Split(filter, ",") {
		if t = strings.TrimSpace(t); t != "" {
			terms = append(terms, t)
		}
	}
	if len(terms) == 0 {
		return r.List()
	}

	out := []Probe{}
	for _, p := range r.probes {
		for _, term := range terms {
			if string(p.Category) == term || strings.Contains(p.Name, term) {
				out = append(out, p)
				break
			}
		}
	}
	return out
}

// Fingerprint returns a SHA-256 over the canonical form of every probe
// definition. Two registries with the same fingerprint run the same
// units against the same oracles.
func (r *Registry) Fingerprint() (string, error) {
	return Fingerprint(r.probes)
}

// Fingerprint hashes an arbitrary probe list the same way Registry.Fingerprint does.
// Format: hex(SHA256(DomainRegistry + 0x00 + canonical JSON)).
func Fingerprint(probes []Probe) (string, error) {
	defs := make([]any, len(probes))
	for i, p := range probes {
		defs[i] = map[string]any{
			"name":        p.Name,
			"category":    string(p.Category),
			"unit_path":   p.Unit.Path,
			"unit_source": p.Unit.Source,
			"expect_kind": string(p.Expect.Kind),
			"expect":      string(p.Expect.Bytes()),
			"budget_ms":   p.Budget.Milliseconds(),
		}
	}

	data, err := canon.Marshal(defs)
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}

	h := sha256.New()
	h.Write([]byte(DomainRegistry))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// MustFingerprint is like Fingerprint but panics on error. Probe fields are
// strings and integers, which always canonicalize.
func MustFingerprint(probes []Probe) string {
	fp, err := Fingerprint(probes)
	if err != nil {
		panic(err)
	}
	return fp
}
