package testutil

import (
	"github.com/roach88/probecheck/internal/probe"
)

// TranscriptProbe builds a valid probe with an inline unit and a literal
// expected transcript.
func TranscriptProbe(name string, category probe.Category, expected string) probe.Probe {
	return probe.Probe{
		Name:     name,
		Category: category,
		Unit:     probe.Unit{Source: "probe " + name + "\n"},
		Expect:   probe.Transcript(expected),
	}
}
