package ecs

// Config holds process-wide tunables for the ecs runtime.
var Config config = config{
	MaxTraitsPerWorld:  256,
	InitialRowCapacity: 64,
	StrictSchema:       false,
}

type config struct {
	// MaxTraitsPerWorld bounds the number of distinct traits a single
	// world may register. Registering past this raises TraitCapacity.
	MaxTraitsPerWorld int

	// InitialRowCapacity is the number of entity rows a new world
	// preallocates before its first geometric growth.
	InitialRowCapacity int

	// StrictSchema enables SchemaMismatch checks in SetFields for field
	// names outside a trait's declared schema or values of the wrong
	// type. The typed Add/Set overlays cannot name such fields and are
	// not affected. Off by default, matching the spec's
	// total/no-op-by-default error style.
	StrictSchema bool
}

// SetStrictSchema toggles strict schema checking in SetFields.
func (c *config) SetStrictSchema(b bool) {
	c.StrictSchema = b
}

// SetMaxTraitsPerWorld overrides the per-world trait bitflag capacity.
// The limit is read at every trait registration, so it applies to all
// later registrations in every world, including worlds that already exist.
func (c *config) SetMaxTraitsPerWorld(n int) {
	c.MaxTraitsPerWorld = n
}
