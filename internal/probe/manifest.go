package probe

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// manifestFile is the on-disk catalog format shared by YAML and CUE manifests.
type manifestFile struct {
	Probes []manifestProbe `yaml:"probes" json:"probes"`
}

type manifestProbe struct {
	Name        string         `yaml:"name" json:"name"`
	Category    string         `yaml:"category" json:"category"`
	Description string         `yaml:"description,omitempty" json:"description,omitempty"`
	Unit        string         `yaml:"unit,omitempty" json:"unit,omitempty"`
	Source      string         `yaml:"source,omitempty" json:"source,omitempty"`
	Filename    string         `yaml:"filename,omitempty" json:"filename,omitempty"`
	Budget      string         `yaml:"budget,omitempty" json:"budget,omitempty"`
	Expect      manifestExpect `yaml:"expect" json:"expect"`
}

type manifestExpect struct {
	// Transcript is a pointer so that an explicitly empty transcript
	// (a program that prints nothing) differs from an absent one.
	Transcript     *string        `yaml:"transcript,omitempty" json:"transcript,omitempty"`
	TranscriptFile string         `yaml:"transcript_file,omitempty" json:"transcript_file,omitempty"`
	Value          *manifestValue `yaml:"value,omitempty" json:"value,omitempty"`
}

type manifestValue struct {
	Decimal uint64 `yaml:"decimal" json:"decimal"`
	Bits    int    `yaml:"bits,omitempty" json:"bits,omitempty"`
}

// LoadManifest reads a probe catalog from a YAML (.yaml, .yml) or CUE (.cue)
// file and returns the validated registry.
//
// Relative unit and transcript_file paths resolve against the manifest's
// directory. Unknown fields are rejected so a typo cannot silently drop
// an expectation.
func LoadManifest(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var mf *manifestFile
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		mf, err = parseYAMLManifest(data)
	case ".cue":
		mf, err = parseCUEManifest(data, path)
	default:
		return nil, fmt.Errorf("unsupported manifest extension %q (want .yaml, .yml or .cue)", ext)
	}
	if err != nil {
		var defErr *DefinitionError
		if errors.As(err, &defErr) {
			defErr.Source = path
		}
		return nil, err
	}

	return buildRegistry(path, mf)
}

func parseYAMLManifest(data []byte) (*manifestFile, error) {
	var mf manifestFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&mf); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &DefinitionError{Issues: []Issue{{Message: "manifest is empty"}}}
		}
		return nil, &DefinitionError{Issues: []Issue{{Message: fmt.Sprintf("failed to parse YAML: %v", err)}}}
	}
	return &mf, nil
}

// buildRegistry converts manifest entries into probes, collecting
// conversion issues alongside the registry's own validation.
func buildRegistry(path string, mf *manifestFile) (*Registry, error) {
	baseDir := filepath.Dir(path)

	if len(mf.Probes) == 0 {
		return nil, &DefinitionError{Source: path, Issues: []Issue{{Field: "probes", Message: "at least one probe is required"}}}
	}

	var issues []Issue
	probes := make([]Probe, 0, len(mf.Probes))
	for i, mp := range mf.Probes {
		label := mp.Name
		if label == "" {
			label = fmt.Sprintf("probes[%d]", i)
		}
		p, convIssues := convertProbe(label, mp, baseDir)
		issues = append(issues, convIssues...)
		probes = append(probes, p)
	}

	reg, err := NewRegistry(path, probes)
	if err != nil {
		var defErr *DefinitionError
		if errors.As(err, &defErr) {
			issues = append(issues, defErr.Issues...)
		} else {
			return nil, err
		}
	}
	if len(issues) > 0 {
		return nil, &DefinitionError{Source: path, Issues: issues}
	}
	return reg, nil
}

func convertProbe(label string, mp manifestProbe, baseDir string) (Probe, []Issue) {
	var issues []Issue
	add := func(field, format string, args ...any) {
		issues = append(issues, Issue{Probe: label, Field: field, Message: fmt.Sprintf(format, args...)})
	}

	p := Probe{
		Name:        mp.Name,
		Category:    Category(mp.Category),
		Description: mp.Description,
		Unit: Unit{
			Path:     resolve(baseDir, mp.Unit),
			Source:   mp.Source,
			Filename: mp.Filename,
		},
	}

	if mp.Budget != "" {
		d, err := time.ParseDuration(mp.Budget)
		if err != nil {
			add("budget", "invalid duration %q: %v", mp.Budget, err)
		}
		p.Budget = d
	}

	kinds := 0
	if mp.Expect.Transcript != nil {
		kinds++
		p.Expect = Transcript(*mp.Expect.Transcript)
	}
	if mp.Expect.TranscriptFile != "" {
		kinds++
		file := resolve(baseDir, mp.Expect.TranscriptFile)
		data, err := os.ReadFile(file)
		if err != nil {
			add("expect", "cannot read transcript_file: %v", err)
		}
		p.Expect = Transcript(string(data))
	}
	if mp.Expect.Value != nil {
		kinds++
		bits := mp.Expect.Value.Bits
		if bits == 0 {
			bits = 32
		}
		p.Expect = Value(mp.Expect.Value.Decimal, bits)
	}
	if kinds > 1 {
		add("expect", "transcript, transcript_file and value are mutually exclusive")
	}

	return p, issues
}

func resolve(baseDir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}
