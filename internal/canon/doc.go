// Package canon produces RFC 8785 canonical JSON.
//
// Canonical bytes are used wherever probecheck needs output that is
// byte-identical across runs and harness versions: the machine-readable
// run report and the registry fingerprint.
//
// Key differences from encoding/json:
//   - Object keys are sorted by UTF-16 code units, not UTF-8 bytes
//   - No HTML escaping (< > & are emitted literally)
//   - Strings are NFC normalized
//   - Floats and null are rejected
package canon
