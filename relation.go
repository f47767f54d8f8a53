package ecs

import (
	"fmt"

	"github.com/TheBitDrifter/bark"
)

// RelationOptions configures a Relation's exclusivity and destroy
// semantics. The spec describes a single "cascade or merely unlink"
// choice; this splits it into two independent booleans since a relation
// can reasonably want cascading destroy without being exclusive, or
// neither. See DESIGN.md.
type RelationOptions struct {
	// Exclusive: adding a new target to a holder via this relation
	// removes any previously held target for the same relation.
	Exclusive bool
	// CascadeDestroy: destroying a target entity destroys every holder
	// entity related to it through this relation. When false, destroying
	// the target merely removes the relation trait from its holders.
	CascadeDestroy bool
}

// Relation is a parameterized trait factory: calling With(target) yields
// a Trait scoped to that specific target entity, memoized so repeated
// calls with the same target return the identical trait.
type Relation struct {
	id        uint32
	name      string
	opts      RelationOptions
	instances map[Entity]*relationTrait
}

// NewRelation declares a new relation kind.
func NewRelation(name string, opts RelationOptions) *Relation {
	return &Relation{id: nextTraitID(), name: name, opts: opts, instances: make(map[Entity]*relationTrait)}
}

// With returns the trait representing this relation pointed at target,
// creating and memoizing it on first use. The signature mirrors the
// spec's pure `R(target) → trait` factory, which leaves no room for an
// error return; an already-dead target is therefore a programmer error
// raised eagerly here the way the teacher raises internal-invariant
// violations, rather than deferred to the later add() call (§12).
func (r *Relation) With(target Entity) Trait {
	if rt, ok := r.instances[target]; ok {
		return rt
	}
	if !isEntityAlive(target) {
		panic(bark.AddTrace(&EcsError{Kind: RelationMisuse, Entity: target}))
	}
	rt := &relationTrait{relation: r, target: target, tid: nextTraitID()}
	r.instances[target] = rt
	return rt
}

// relationTrait is the tag trait instantiated by Relation.With for one
// target. It carries no fields of its own; the relation edge itself is
// tracked in the owning World's relationTargets/relationsByTarget maps.
type relationTrait struct {
	relation *Relation
	target   Entity
	tid      uint32
}

func (t *relationTrait) id() uint32        { return t.tid }
func (t *relationTrait) traitName() string { return fmt.Sprintf("%s->%s", t.relation.name, t.target) }
func (t *relationTrait) isTag() bool       { return true }
func (t *relationTrait) newColumn(capacity int) column { return nil }

type relationHolderKey struct {
	relationID uint32
	holder     Entity
}

type relationEdge struct {
	holder Entity
	rt     *relationTrait
}

func appendIfMissing(es []Entity, e Entity) []Entity {
	for _, existing := range es {
		if existing == e {
			return es
		}
	}
	return append(es, e)
}

func removeEntityFrom(es []Entity, e Entity) []Entity {
	for i, existing := range es {
		if existing == e {
			return append(es[:i], es[i+1:]...)
		}
	}
	return es
}

// onRelationAdded records a new holder->target edge, enforcing
// exclusivity by dropping any previously held target for the same
// relation first.
func (w *World) onRelationAdded(holder Entity, rt *relationTrait) {
	key := relationHolderKey{relationID: rt.relation.id, holder: holder}
	if rt.relation.opts.Exclusive {
		for _, prevTarget := range w.relationTargets[key] {
			if prevTarget == rt.target {
				continue
			}
			if prevTrait, ok := rt.relation.instances[prevTarget]; ok {
				w.remove(holder, prevTrait)
			}
		}
		w.relationTargets[key] = []Entity{rt.target}
	} else {
		w.relationTargets[key] = appendIfMissing(w.relationTargets[key], rt.target)
	}
	w.relationsByTarget[rt.target] = append(w.relationsByTarget[rt.target], relationEdge{holder: holder, rt: rt})
	w.logDebug("relation target added", "relation", rt.relation.name, "holder", holder.String(), "target", rt.target.String())
}

func (w *World) onRelationRemoved(holder Entity, rt *relationTrait) {
	key := relationHolderKey{relationID: rt.relation.id, holder: holder}
	w.relationTargets[key] = removeEntityFrom(w.relationTargets[key], rt.target)

	edges := w.relationsByTarget[rt.target]
	for i, edge := range edges {
		if edge.holder == holder && edge.rt == rt {
			w.relationsByTarget[rt.target] = append(edges[:i], edges[i+1:]...)
			break
		}
	}
	w.logDebug("relation target removed", "relation", rt.relation.name, "holder", holder.String(), "target", rt.target.String())
}

// cascadeRelationsForTarget runs when target is about to be destroyed: it
// either destroys every holder related to target through a cascading
// relation, or simply unlinks the relation trait from non-cascading
// holders.
func (w *World) cascadeRelationsForTarget(target Entity) {
	edges := append([]relationEdge{}, w.relationsByTarget[target]...)
	delete(w.relationsByTarget, target)
	for _, edge := range edges {
		if !w.entities.isAlive(edge.holder) {
			continue
		}
		if edge.rt.relation.opts.CascadeDestroy {
			_ = w.Destroy(edge.holder)
		} else {
			_ = w.remove(edge.holder, edge.rt)
		}
	}
}

// Targets returns the entities holder relates to through r, in the order
// they were added (or a single-element slice for an exclusive relation).
func (w *World) Targets(r *Relation, holder Entity) []Entity {
	key := relationHolderKey{relationID: r.id, holder: holder}
	out := w.relationTargets[key]
	if out == nil {
		return nil
	}
	return append([]Entity{}, out...)
}
