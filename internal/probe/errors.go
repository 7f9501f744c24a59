package probe

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidProbeDefinition classifies every load-time fixture defect.
// Match it with errors.Is; the concrete error is a *DefinitionError.
var ErrInvalidProbeDefinition = errors.New("invalid probe definition")

// Issue is a single defect found in a probe definition.
type Issue struct {
	// Probe is the probe name, or "probes[i]" when the name itself is missing.
	Probe string

	// Field is the offending field ("expect", "unit", ...). Empty for
	// document-level problems such as a syntax error.
	Field string

	Message string
}

func (i Issue) String() string {
	switch {
	case i.Probe == "" && i.Field == "":
		return i.Message
	case i.Field == "":
		return fmt.Sprintf("%s: %s", i.Probe, i.Message)
	case i.Probe == "":
		return fmt.Sprintf("%s: %s", i.Field, i.Message)
	default:
		return fmt.Sprintf("%s.%s: %s", i.Probe, i.Field, i.Message)
	}
}

// DefinitionError reports every defect found while building a registry.
type DefinitionError struct {
	// Source names where the definitions came from (a manifest path or "builtin").
	Source string
	Issues []Issue
}

func (e *DefinitionError) Error() string {
	msgs := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		msgs[i] = issue.String()
	}
	prefix := ErrInvalidProbeDefinition.Error()
	if e.Source != "" {
		prefix = fmt.Sprintf("%s (%s)", prefix, e.Source)
	}
	return fmt.Sprintf("%s: %s", prefix, strings.Join(msgs, "; "))
}

func (e *DefinitionError) Unwrap() error {
	return ErrInvalidProbeDefinition
}
