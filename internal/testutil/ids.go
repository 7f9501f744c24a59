package testutil

// DefaultRunID is returned by a FixedIDGenerator created with an empty ID.
const DefaultRunID = "00000000-0000-7000-8000-000000000001"

// FixedIDGenerator returns the same run ID every time.
//
// This enables golden report comparison: the same batch with the same
// generator produces byte-identical reports.
//
// Thread-safety: FixedIDGenerator is stateless and safe for concurrent use.
type FixedIDGenerator struct {
	id string
}

// NewFixedIDGenerator creates a generator for the given ID.
// If id is empty, Generate returns DefaultRunID.
func NewFixedIDGenerator(id string) *FixedIDGenerator {
	if id == "" {
		id = DefaultRunID
	}
	return &FixedIDGenerator{id: id}
}

// Generate returns the fixed ID.
func (g *FixedIDGenerator) Generate() string {
	return g.id
}
