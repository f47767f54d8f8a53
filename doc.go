/*
Package ecs implements the core of a trait-composition Entity-Component
System: a generational entity index, per-world trait registries backed by
column storage, per-entity bitmask composition, and a cached, incrementally
maintained query engine with relation support.

Core Concepts:

  - Entity: a lightweight, recyclable handle into a world.
  - Trait: a named field schema (or an empty "tag") that can be attached to
    an entity. Traits are global values shared across worlds.
  - World: an isolated universe of entities, trait registries, and queries.
  - Query: a cached predicate over trait presence, with optional
    Added/Removed/Changed tracking and membership subscriptions.
  - Relation: a trait factory parameterized by a target entity.

Basic Usage:

	w := ecs.NewWorld()

	Position := ecs.NewTrait("Position", struct{ X, Y float64 }{})
	Velocity := ecs.NewTrait("Velocity", struct{ X, Y float64 }{})

	e := w.Spawn()
	ecs.Add(w, e, Position)
	ecs.Add(w, e, Velocity, struct{ X, Y float64 }{X: 1})

	for _, e := range w.Query(ecs.All(Position), ecs.All(Velocity)) {
		pos, _ := ecs.Get(w, e, Position)
		vel, _ := ecs.Get(w, e, Velocity)
		_ = pos
		_ = vel
	}

ecs is single-threaded and cooperatively non-suspending: every operation
completes synchronously, and distinct worlds may be driven from distinct
goroutines but a single world must not be shared across them concurrently.
*/
package ecs
