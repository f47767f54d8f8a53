package ecs

import (
	"sort"

	"github.com/TheBitDrifter/bark"
	"github.com/TheBitDrifter/mask"
)

// traitRecord is a world's per-trait registry entry: the trait's assigned
// bitflag, its column store (nil for tags), and the live membership set
// the spec's invariant requires stay in lockstep with the mask bit.
type traitRecord struct {
	trait    Trait
	bit      uint32
	store    column
	entities map[Entity]struct{}
	changed  map[Entity]struct{}
}

// World is an isolated universe of entities, trait registries, masks, and
// query caches.
type World struct {
	id uint16

	entities *entityIndex
	masks    []mask.Mask

	traits      map[uint32]*traitRecord
	traitsByBit []*traitRecord
	nextBit     uint32

	queries        map[string]*cachedQuery
	traitToQueries map[uint32][]*cachedQuery

	changeSubs map[uint32][]*changeSub

	pending     []event
	notifyDepth int

	relationTargets   map[relationHolderKey][]Entity
	relationsByTarget map[Entity][]relationEdge

	worldEntity Entity

	logger Logger
}

// worldRegistry is the process-wide world index: append-only with id
// recycling, requiring no locking under the single-threaded contract (§5).
var (
	worldFreeIDs  []uint16
	worldNextID   uint16 = 1
	worldRegistry        = map[uint16]*World{}
)

func allocateWorldID() uint16 {
	if n := len(worldFreeIDs); n > 0 {
		id := worldFreeIDs[n-1]
		worldFreeIDs = worldFreeIDs[:n-1]
		return id
	}
	id := worldNextID
	worldNextID++
	return id
}

func releaseWorldID(id uint16) {
	delete(worldRegistry, id)
	worldFreeIDs = append(worldFreeIDs, id)
}

// isEntityAlive looks e's owning world up in the process-wide registry
// and checks liveness there, so relation code can validate a target
// without needing a *World reference of its own.
func isEntityAlive(e Entity) bool {
	w, ok := worldRegistry[e.world]
	if !ok {
		return false
	}
	return w.entities.isAlive(e)
}

// excludedTag is the hidden trait every world attaches to its distinguished
// world entity so query results exclude it by default (§4.4).
var excludedTag = NewTag("__ecs_world_excluded__")

// NewWorld returns a ready-to-use world. Any initialTraits are attached to
// the world's distinguished world entity as world-level traits.
func NewWorld(initialTraits ...Trait) *World {
	w := &World{
		id:                allocateWorldID(),
		entities:          newEntityIndex(Config.InitialRowCapacity),
		traits:            make(map[uint32]*traitRecord),
		queries:           make(map[string]*cachedQuery),
		traitToQueries:    make(map[uint32][]*cachedQuery),
		changeSubs:        make(map[uint32][]*changeSub),
		relationTargets:   make(map[relationHolderKey][]Entity),
		relationsByTarget: make(map[Entity][]relationEdge),
	}
	worldRegistry[w.id] = w
	w.worldEntity = w.spawnRaw()
	_ = w.add(w.worldEntity, excludedTag)
	for _, t := range initialTraits {
		_ = w.add(w.worldEntity, t)
	}
	return w
}

// ID returns the world's process-wide unique id.
func (w *World) ID() uint16 { return w.id }

// WorldEntity returns the distinguished entity used to attach world-level
// traits. It is excluded from query results by default.
func (w *World) WorldEntity() Entity { return w.worldEntity }

// Stats is a read-only snapshot of a world's bookkeeping, useful for
// embedding diagnostics (SPEC_FULL §12); it is not part of the core
// predicate/mutation contract.
type Stats struct {
	RowCapacity      int
	LiveEntities     int
	RegisteredTraits int
}

// Stats returns a snapshot of the world's current bookkeeping.
func (w *World) Stats() Stats {
	return Stats{
		RowCapacity:      w.entities.capacity(),
		LiveEntities:     len(w.entities.aliveEntities(w.id)),
		RegisteredTraits: len(w.traitsByBit),
	}
}

// maskWordCount reports how many 32-bit words of the presence mask are in
// use, given the highest bitflag assigned so far (spec scenario 3).
func (w *World) maskWordCount() int {
	if w.nextBit == 0 {
		return 1
	}
	return int((w.nextBit-1)/32) + 1
}

func (w *World) validate(e Entity) error {
	if e.world != w.id {
		return &EcsError{Kind: WrongWorld, Entity: e}
	}
	if !w.entities.isAlive(e) {
		return &EcsError{Kind: StaleEntity, Entity: e}
	}
	return nil
}

// growTo ensures the world's per-row state (masks, columns) can address
// row index n-1.
func (w *World) growTo(n int) {
	for len(w.masks) < n {
		w.masks = append(w.masks, mask.Mask{})
	}
	for _, rec := range w.traitsByBit {
		if rec.store != nil {
			rec.store.grow(n)
		}
	}
}

func (w *World) spawnRaw() Entity {
	e := w.entities.allocate(w.id)
	w.growTo(int(e.row) + 1)
	// Queries with no positive clause (e.g. only Not) match a bare entity;
	// no trait add will index it into them, so admit it here.
	for _, q := range w.queries {
		if q.evalStructural(w, e) {
			q.members[e] = struct{}{}
			w.queueNotify(&queryEvent{query: q, entity: e, kind: EventEnter})
		}
	}
	w.logDebug("entity spawned", "entity", e.String())
	return e
}

// Spawn allocates a new entity with the given initial traits.
func (w *World) Spawn(traits ...Trait) Entity {
	e := w.spawnRaw()
	for _, t := range traits {
		_ = w.add(e, t)
	}
	return e
}

// registerTrait assigns t its bitflag and column store on first use in
// this world, or returns the existing record.
func (w *World) registerTrait(t Trait) *traitRecord {
	if rec, ok := w.traits[t.id()]; ok {
		return rec
	}
	if int(w.nextBit) >= Config.MaxTraitsPerWorld {
		w.logWarn("trait capacity exceeded", "trait", t.traitName(), "limit", Config.MaxTraitsPerWorld)
		panic(bark.AddTrace(&EcsError{Kind: TraitCapacity, Trait: t}))
	}
	bit := w.nextBit
	w.nextBit++
	var store column
	if !t.isTag() {
		store = t.newColumn(w.entities.capacity())
	}
	rec := &traitRecord{trait: t, bit: bit, store: store, entities: make(map[Entity]struct{}), changed: make(map[Entity]struct{})}
	w.traits[t.id()] = rec
	w.traitsByBit = append(w.traitsByBit, rec)
	return rec
}

func (w *World) bitFor(t Trait) (uint32, bool) {
	rec, ok := w.traits[t.id()]
	if !ok {
		return 0, false
	}
	return rec.bit, true
}

// Add attaches trait t to entity e, registering the trait in this world if
// needed. If e already carries t, this is a membership no-op (scenario 2).
func (w *World) Add(e Entity, t Trait) error {
	if err := w.validate(e); err != nil {
		return err
	}
	return w.add(e, t)
}

func (w *World) add(e Entity, t Trait) error {
	if rt, ok := t.(*relationTrait); ok {
		if !isEntityAlive(rt.target) {
			return &EcsError{Kind: RelationMisuse, Entity: rt.target, Trait: t}
		}
	}
	rec := w.registerTrait(t)
	var bm mask.Mask
	bm.Mark(rec.bit)
	if w.masks[e.row].ContainsAll(bm) {
		return nil
	}
	w.masks[e.row].Mark(rec.bit)
	rec.entities[e] = struct{}{}
	if rec.store != nil {
		rec.store.writeDefault(e.row)
	}
	if rt, ok := t.(*relationTrait); ok {
		w.onRelationAdded(e, rt)
	}
	w.onStructuralChange(t, e, true)
	w.logDebug("trait added", "entity", e.String(), "trait", t.traitName())
	return nil
}

// Remove detaches trait t from entity e. A no-op if e does not carry t.
func (w *World) Remove(e Entity, t Trait) error {
	if err := w.validate(e); err != nil {
		return err
	}
	return w.remove(e, t)
}

func (w *World) remove(e Entity, t Trait) error {
	rec, ok := w.traits[t.id()]
	if !ok {
		return nil
	}
	var bm mask.Mask
	bm.Mark(rec.bit)
	if !w.masks[e.row].ContainsAll(bm) {
		return nil
	}
	w.masks[e.row].Unmark(rec.bit)
	delete(rec.entities, e)
	if rt, ok := t.(*relationTrait); ok {
		w.onRelationRemoved(e, rt)
	}
	w.onStructuralChange(t, e, false)
	w.logDebug("trait removed", "entity", e.String(), "trait", t.traitName())
	return nil
}

// Has reports whether e currently carries t.
func (w *World) Has(e Entity, t Trait) bool {
	if e.world != w.id || !w.entities.isAlive(e) {
		return false
	}
	rec, ok := w.traits[t.id()]
	if !ok {
		return false
	}
	var bm mask.Mask
	bm.Mark(rec.bit)
	return w.masks[e.row].ContainsAll(bm)
}

// EntitiesWith returns every live entity currently carrying t, read
// directly off the trait registry's own membership set rather than
// scanning every entity's mask (§3: "registry entry... tracks the set
// of entities currently carrying the trait").
func (w *World) EntitiesWith(t Trait) []Entity {
	rec, ok := w.traits[t.id()]
	if !ok {
		return nil
	}
	out := make([]Entity, 0, len(rec.entities))
	for e := range rec.entities {
		out = append(out, e)
	}
	sortEntities(out)
	return out
}

// Traits returns the set of traits e currently carries.
func (w *World) Traits(e Entity) []Trait {
	if e.world != w.id || !w.entities.isAlive(e) {
		return nil
	}
	var out []Trait
	m := w.masks[e.row]
	for _, rec := range w.traitsByBit {
		var bm mask.Mask
		bm.Mark(rec.bit)
		if m.ContainsAll(bm) {
			out = append(out, rec.trait)
		}
	}
	return out
}

// Destroy removes every trait from e (cascading relation effects) and
// frees its row in the entity index.
func (w *World) Destroy(e Entity) error {
	if err := w.validate(e); err != nil {
		return err
	}
	w.cascadeRelationsForTarget(e)
	for _, t := range w.Traits(e) {
		_ = w.remove(e, t)
	}
	w.entities.free_(e)
	w.logDebug("entity destroyed", "entity", e.String())
	return nil
}

// Reset clears all entities, trait registries, and query caches but keeps
// the world's process-wide id and re-establishes the world entity.
func (w *World) Reset() {
	initial := w.Traits(w.worldEntity)
	filtered := initial[:0]
	for _, t := range initial {
		if t.id() != excludedTag.id() {
			filtered = append(filtered, t)
		}
	}

	w.entities = newEntityIndex(Config.InitialRowCapacity)
	w.masks = nil
	w.traits = make(map[uint32]*traitRecord)
	w.traitsByBit = nil
	w.nextBit = 0
	w.queries = make(map[string]*cachedQuery)
	w.traitToQueries = make(map[uint32][]*cachedQuery)
	w.changeSubs = make(map[uint32][]*changeSub)
	w.pending = nil
	w.notifyDepth = 0
	w.relationTargets = make(map[relationHolderKey][]Entity)
	w.relationsByTarget = make(map[Entity][]relationEdge)

	w.worldEntity = w.spawnRaw()
	_ = w.add(w.worldEntity, excludedTag)
	for _, t := range filtered {
		_ = w.add(w.worldEntity, t)
	}
}

// DestroyWorld releases the world's process-wide id after clearing its state.
// The World value itself must not be used afterward.
func (w *World) DestroyWorld() {
	w.Reset()
	releaseWorldID(w.id)
}

func sortEntities(es []Entity) {
	sort.Slice(es, func(i, j int) bool {
		if es[i].world != es[j].world {
			return es[i].world < es[j].world
		}
		return es[i].row < es[j].row
	})
}
