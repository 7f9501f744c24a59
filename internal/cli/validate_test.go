package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validManifest = `
probes:
  - name: binary
    category: arithmetic
    unit: units/binary
    expect:
      transcript_file: binary.out
  - name: fib_heavy
    category: arithmetic
    unit: units/fib_heavy
    budget: 30s
    expect:
      value: {decimal: 717296428}
`

const invalidManifest = `
probes:
  - name: binary
    category: arith
    unit: units/binary
    expect:
      transcript: "x\n"
  - name: wide
    category: arithmetic
    unit: units/wide
    expect:
      value: {decimal: 300, bits: 8}
`

func executeValidate(t *testing.T, rootOpts *RootOptions, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestValidateValidManifest(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "binary.out", "Addition: 42 + 73 = 115\n")
	path := writeFile(t, dir, "probes.yaml", validManifest)

	out, err := executeValidate(t, testRootOptions("text"), path)

	require.NoError(t, err)
	assert.Contains(t, out, path+" valid: 2 probe(s), fingerprint ")
}

func TestValidateValidManifestJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "binary.out", "Addition: 42 + 73 = 115\n")
	path := writeFile(t, dir, "probes.yaml", validManifest)

	out, err := executeValidate(t, testRootOptions("json"), path)
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.Equal(t, 2, resp.Data.Probes)
	assert.Len(t, resp.Data.Fingerprint, 64)
}

func TestValidateReportsEveryIssue(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "probes.yaml", invalidManifest)

	out, err := executeValidate(t, testRootOptions("text"), path)

	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "validation failed with 2 issue(s)")
	assert.Contains(t, out, `E002: binary.category: unknown category "arith"`)
	assert.Contains(t, out, "E002: wide.expect: value 300 does not fit in 8 bits")
}

func TestValidateReportsEveryIssueJSON(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "probes.yaml", invalidManifest)

	out, err := executeValidate(t, testRootOptions("json"), path)

	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
		Error  CLIError         `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.Data.Valid)
	assert.Len(t, resp.Data.Issues, 2)
	assert.Equal(t, ErrCodeDefinition, resp.Error.Code)
}

func TestValidateRejectsTypoedField(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "probes.yaml", `
probes:
  - name: binary
    category: arithmetic
    unit: units/binary
    expect:
      transcipt: "x\n"
`)

	out, err := executeValidate(t, testRootOptions("text"), path)

	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "transcipt")
}

func TestValidateCommandErrors(t *testing.T) {
	dir := t.TempDir()
	unsupported := writeFile(t, dir, "probes.toml", "")

	tests := []struct {
		name string
		path string
		code string
	}{
		{"missing file", filepath.Join(dir, "absent.yaml"), ErrCodeNotFound},
		{"unsupported extension", unsupported, ErrCodeGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := executeValidate(t, testRootOptions("text"), tt.path)

			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, out, "Error ["+tt.code+"]")
		})
	}
}

func TestValidateRequiresArgument(t *testing.T) {
	_, err := executeValidate(t, testRootOptions("text"))
	require.Error(t, err)
}
