package testutil

// FixedRunIDGenerator returns the same run id every time.
//
// Unlike runner.FixedGenerator, which hands out ids in sequence and panics
// when exhausted, this generator never runs out. Golden reports use it so
// every run of a scenario carries the same id.
//
// Thread-safety: stateless and safe for concurrent use.
type FixedRunIDGenerator struct {
	id string
}

// NewFixedRunIDGenerator creates a generator for id.
// If id is empty, Generate returns "test-run-default".
func NewFixedRunIDGenerator(id string) *FixedRunIDGenerator {
	if id == "" {
		id = "test-run-default"
	}
	return &FixedRunIDGenerator{id: id}
}

// Generate returns the fixed run id.
func (g *FixedRunIDGenerator) Generate() string {
	return g.id
}
