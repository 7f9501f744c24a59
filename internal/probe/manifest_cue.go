package probe

import (
	_ "embed"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

//go:embed schema.cue
var manifestSchema string

// parseCUEManifest unifies a CUE manifest with the embedded #Manifest schema
// and decodes the concrete result. Definitions are closed, so unknown
// fields fail validation the same way KnownFields does for YAML.
func parseCUEManifest(data []byte, filename string) (*manifestFile, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(manifestSchema, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile manifest schema: %w", err)
	}

	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, cueDefinitionError(err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Manifest")).Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, cueDefinitionError(err)
	}

	var mf manifestFile
	if err := unified.Decode(&mf); err != nil {
		return nil, cueDefinitionError(err)
	}
	return &mf, nil
}

// cueDefinitionError flattens a CUE error list into definition issues,
// one per reported position.
func cueDefinitionError(err error) *DefinitionError {
	var issues []Issue
	for _, e := range cueerrors.Errors(err) {
		field := strings.Join(e.Path(), ".")
		msg := e.Error()
		if pos := e.Position(); pos.IsValid() {
			msg = fmt.Sprintf("%s (%s)", msg, pos)
		}
		issues = append(issues, Issue{Field: field, Message: msg})
	}
	if len(issues) == 0 {
		issues = append(issues, Issue{Message: err.Error()})
	}
	return &DefinitionError{Issues: issues}
}
