// Package probe defines the probe catalog that probecheck runs against an
// execution engine.
//
// A probe is a small, semantically loaded program (integer arithmetic,
// recursion, union aliasing, realloc growth, pointer arithmetic, ...)
// paired with the exact standard output a correct engine produces for it.
// Expected output is frozen data: it is recorded once from a trusted
// reference run and never derived at runtime.
//
// # Catalogs
//
// The built-in catalog mirrors the reference probe corpus:
//
//	binary      arithmetic  integer and bitwise operators on 42 and 73
//	advanced_c  mixed       recursion, loops, switch, struct, union, float, 2D pointers
//	malloc      memory      malloc/realloc growth, pointer walk, function pointer, bit ops
//	fib_heavy   arithmetic  1000 rounds of Fibonacci(i % 50) fed through a 32-bit LCG
//
// Additional catalogs are loaded from manifests written in YAML or CUE:
//
//	probes:
//	  - name: union_alias
//	    category: layout
//	    unit: bin/union_alias
//	    budget: 2s
//	    expect:
//	      transcript_file: expected/union_alias.res
//	  - name: lcg
//	    category: arithmetic
//	    unit: bin/lcg
//	    expect:
//	      value: { decimal: 717296428, bits: 32 }
//
// Every definition is validated when the registry is built. A defect of
// any kind yields a *DefinitionError wrapping ErrInvalidProbeDefinition,
// and no registry is returned.
package probe
