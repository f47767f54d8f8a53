package ecs

import (
	"fmt"
	"strings"
)

// Entity is an opaque, recyclable handle: a row within a world, guarded by
// a generation counter so a freed-and-reused row never looks like its
// previous occupant. Two entities are equal iff all three fields match.
//
// The source specification packs these three fields into a single 32-bit
// word for compactness. This port keeps them as a small value struct
// instead: Go gives cheap, comparable value types for free, and every ECS
// in the retrieved corpus (lazyecs's Entity{ID, Version}, for one) reaches
// for a plain struct rather than hand-rolled bit packing. See DESIGN.md.
type Entity struct {
	row        uint32
	generation uint32
	world      uint16
}

// Row returns the entity's row index within its world.
func (e Entity) Row() uint32 { return e.row }

// Generation returns the entity's generation counter.
func (e Entity) Generation() uint32 { return e.generation }

// WorldID returns the id of the world that issued this entity.
func (e Entity) WorldID() uint16 { return e.world }

// IsZero reports whether e is the zero Entity value (never issued by any
// world, since world ids start at 1).
func (e Entity) IsZero() bool { return e == Entity{} }

// String renders e's handle fields plus its current live trait set by
// name, resolving its owning world through the process-wide registry — the
// same pattern the teacher uses for Entity.ComponentsAsString(). An entity
// from an unknown or destroyed world, or one whose generation is stale,
// reports no traits rather than erroring.
func (e Entity) String() string {
	base := fmt.Sprintf("Entity{row:%d gen:%d world:%d}", e.row, e.generation, e.world)
	w, ok := worldRegistry[e.world]
	if !ok || !w.entities.isAlive(e) {
		return base
	}
	traits := w.Traits(e)
	names := make([]string, 0, len(traits))
	for _, t := range traits {
		names = append(names, t.traitName())
	}
	return fmt.Sprintf("%s traits:[%s]", base, strings.Join(names, ", "))
}

// entityIndex is a generational, recyclable allocator of entity rows for
// a single world. Grounded on the free-list-plus-generation-array idiom
// every retrieved ECS example (lazyecs, ByteArena-ecs, Salvadego-ECS)
// hand-rolls; none of them reach for a third-party allocator here.
type entityIndex struct {
	generations []uint32
	alive       []bool
	free        []uint32
}

func newEntityIndex(initialCapacity int) *entityIndex {
	return &entityIndex{
		generations: make([]uint32, 0, initialCapacity),
		alive:       make([]bool, 0, initialCapacity),
	}
}

// allocate pops a free row if any, else appends a new one, and returns the
// packed entity with its current generation.
func (ix *entityIndex) allocate(world uint16) Entity {
	var row uint32
	if n := len(ix.free); n > 0 {
		row = ix.free[n-1]
		ix.free = ix.free[:n-1]
	} else {
		row = uint32(len(ix.generations))
		ix.generations = append(ix.generations, 0)
		ix.alive = append(ix.alive, false)
	}
	ix.alive[row] = true
	return Entity{row: row, generation: ix.generations[row], world: world}
}

// free validates the entity's generation, marks its row dead, pushes the
// row onto the free-list, and bumps the generation for that row.
func (ix *entityIndex) free_(e Entity) bool {
	if !ix.isAlive(e) {
		return false
	}
	ix.alive[e.row] = false
	ix.generations[e.row]++
	ix.free = append(ix.free, e.row)
	return true
}

// isAlive reports whether e's generation matches the row's current
// generation and the row is marked alive.
func (ix *entityIndex) isAlive(e Entity) bool {
	if int(e.row) >= len(ix.alive) {
		return false
	}
	return ix.alive[e.row] && ix.generations[e.row] == e.generation
}

// aliveEntities returns a stable snapshot of every currently alive entity
// belonging to world. The slice is a fresh copy; mutating the world after
// the call does not affect it.
func (ix *entityIndex) aliveEntities(world uint16) []Entity {
	out := make([]Entity, 0, len(ix.alive))
	for row, ok := range ix.alive {
		if ok {
			out = append(out, Entity{row: uint32(row), generation: ix.generations[row], world: world})
		}
	}
	return out
}

// capacity returns the number of rows ever allocated (alive or freed).
func (ix *entityIndex) capacity() int {
	return len(ix.generations)
}
