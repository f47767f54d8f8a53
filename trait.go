package ecs

// traitIDCounter assigns every Trait a process-wide, globally unique id at
// construction, per the spec's "identity-keyed maps of traits" design note
// (§9): registries key by this integer instead of relying on pointer/object
// identity.
var traitIDCounter uint32

func nextTraitID() uint32 {
	traitIDCounter++
	return traitIDCounter
}

// Trait is an immutable descriptor identifying a field schema (or an empty
// "tag" schema) that can be attached to entities. The interface's methods
// are unexported, sealing it to implementations defined in this package
// (TraitDef[T], TagTrait, and relation-instantiated traits).
type Trait interface {
	id() uint32
	traitName() string
	isTag() bool
	newColumn(capacity int) column
}

// TraitDef describes a data trait with field schema T. Construct one with
// NewTrait; use the package-level Add, Get, and Set functions to operate
// on entities through it.
type TraitDef[T any] struct {
	tid      uint32
	name     string
	defaults T
}

// NewTrait registers a new global trait carrying fields of type T, with
// the given default value applied to every entity that adds it without an
// overlay.
func NewTrait[T any](name string, defaults T) TraitDef[T] {
	return TraitDef[T]{tid: nextTraitID(), name: name, defaults: defaults}
}

// ID returns the trait's process-wide unique id.
func (t TraitDef[T]) ID() uint32 { return t.tid }

// Name returns the trait's declared name.
func (t TraitDef[T]) Name() string { return t.name }

func (t TraitDef[T]) id() uint32        { return t.tid }
func (t TraitDef[T]) traitName() string { return t.name }
func (t TraitDef[T]) isTag() bool       { return false }
func (t TraitDef[T]) newColumn(capacity int) column {
	return newColumnStore(capacity, t.defaults)
}

// TagTrait is a trait with an empty field schema. Tags skip column
// allocation entirely; presence is conveyed purely by the mask bit.
type TagTrait struct {
	tid  uint32
	name string
}

// NewTag registers a new global tag trait.
func NewTag(name string) TagTrait {
	return TagTrait{tid: nextTraitID(), name: name}
}

// ID returns the tag's process-wide unique id.
func (t TagTrait) ID() uint32 { return t.tid }

// Name returns the tag's declared name.
func (t TagTrait) Name() string { return t.name }

func (t TagTrait) id() uint32                    { return t.tid }
func (t TagTrait) traitName() string             { return t.name }
func (t TagTrait) isTag() bool                   { return true }
func (t TagTrait) newColumn(capacity int) column { return nil }

// column is the dense array backing a non-tag trait in one world, indexed
// by entity row. Each element is a whole T record; the fields are not
// split into separate per-field arrays. Kept as a plain generic slice rather than
// built on the teacher's table.Table: table ties storage to archetype
// identity and moves whole rows on TransferEntries, while the bitmask
// composition model here keeps an entity's row fixed and only flips
// presence bits (see DESIGN.md for the full tradeoff).
type column interface {
	grow(n int)
	writeDefault(row uint32)
}

type columnStore[T any] struct {
	data     []T
	defaults T
}

func newColumnStore[T any](capacity int, defaults T) *columnStore[T] {
	return &columnStore[T]{data: make([]T, capacity), defaults: defaults}
}

func (c *columnStore[T]) grow(n int) {
	if n <= len(c.data) {
		return
	}
	newCap := n
	if 2*len(c.data) > newCap {
		newCap = 2 * len(c.data)
	}
	if newCap == 0 {
		newCap = 8
	}
	next := make([]T, newCap)
	copy(next, c.data)
	c.data = next
}

func (c *columnStore[T]) writeDefault(row uint32) {
	if int(row) >= len(c.data) {
		c.grow(int(row) + 1)
	}
	c.data[row] = c.defaults
}
