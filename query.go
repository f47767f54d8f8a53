package ecs

import (
	"fmt"
	"sort"
	"strings"

	"github.com/TheBitDrifter/bark"
	"github.com/TheBitDrifter/mask"
)

// ParamKind discriminates the role a Param plays in a query's predicate.
type ParamKind int

const (
	KindAll ParamKind = iota
	KindAny
	KindNot
	KindAdded
	KindRemoved
	KindChanged
)

// Param is one clause of a query's predicate, built with All, Any, Not,
// Added, Removed, or Changed.
type Param struct {
	kind   ParamKind
	traits []Trait
}

// All matches entities carrying every listed trait.
func All(traits ...Trait) Param { return Param{kind: KindAll, traits: traits} }

// Any matches entities carrying at least one of the listed traits.
func Any(traits ...Trait) Param { return Param{kind: KindAny, traits: traits} }

// Not excludes entities carrying any of the listed traits.
func Not(traits ...Trait) Param { return Param{kind: KindNot, traits: traits} }

// Added matches entities that gained every listed trait since this query
// was last run. Matching entries are consumed: a subsequent run without an
// intervening Add sees none of them (scenario 5).
func Added(traits ...Trait) Param { return Param{kind: KindAdded, traits: traits} }

// Removed matches entities that lost every listed trait since this query
// was last run. Like Added, matches are consumed on read.
func Removed(traits ...Trait) Param { return Param{kind: KindRemoved, traits: traits} }

// Changed matches entities whose value for every listed trait has been
// changed (at least one field differed) through Set, SetFields, or an
// overlay Add on a trait the entity already carried. The change mark is
// kept per world and trait, not per query: no run and no later write
// clears it (only Reset drops it), so a match persists and a query built
// after the write also sees it. Unlike Added/Removed, Changed is not
// consume-on-read. See DESIGN.md.
func Changed(traits ...Trait) Param { return Param{kind: KindChanged, traits: traits} }

func hashParams(params []Param) string {
	var b strings.Builder
	for _, p := range params {
		ids := make([]uint32, len(p.traits))
		for i, t := range p.traits {
			ids[i] = t.id()
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		fmt.Fprintf(&b, "%d:", p.kind)
		for _, id := range ids {
			fmt.Fprintf(&b, "%d,", id)
		}
		b.WriteByte('|')
	}
	return b.String()
}

// EventKind discriminates the notifications a query subscription receives.
type EventKind int

const (
	EventEnter EventKind = iota
	EventExit
)

// SubscriberFunc is called once per entity transition for a subscribed
// query, or once per value-changing write for a change subscription.
type SubscriberFunc func(Entity, EventKind)

// cachedQuery is a compiled, memoized query: its result membership is
// maintained incrementally from structural mutations (onStructuralChange)
// rather than recomputed by a full scan on every run.
type cachedQuery struct {
	key    string
	params []Param

	members map[Entity]struct{}

	addedSince   map[uint32]map[Entity]struct{}
	removedSince map[uint32]map[Entity]struct{}

	subs      map[int]SubscriberFunc
	nextSubID int
}

func (q *cachedQuery) tracksAdded(id uint32) bool {
	for _, p := range q.params {
		if p.kind != KindAdded {
			continue
		}
		for _, t := range p.traits {
			if t.id() == id {
				return true
			}
		}
	}
	return false
}

func (q *cachedQuery) tracksRemoved(id uint32) bool {
	for _, p := range q.params {
		if p.kind != KindRemoved {
			continue
		}
		for _, t := range p.traits {
			if t.id() == id {
				return true
			}
		}
	}
	return false
}

func (q *cachedQuery) markAdded(e Entity, traitID uint32) {
	if q.addedSince[traitID] == nil {
		q.addedSince[traitID] = make(map[Entity]struct{})
	}
	q.addedSince[traitID][e] = struct{}{}
}

func (q *cachedQuery) markRemoved(e Entity, traitID uint32) {
	if q.removedSince[traitID] == nil {
		q.removedSince[traitID] = make(map[Entity]struct{})
	}
	q.removedSince[traitID][e] = struct{}{}
}

// evalStructural evaluates only the All/Any/Not clauses against e's
// current mask. Added/Removed/Changed clauses are filters applied at run
// time, not membership gates, since they depend on history rather than
// current state alone.
func (q *cachedQuery) evalStructural(w *World, e Entity) bool {
	if int(e.row) >= len(w.masks) {
		return false
	}
	m := w.masks[e.row]
	for _, p := range q.params {
		switch p.kind {
		case KindAll:
			for _, t := range p.traits {
				bit, ok := w.bitFor(t)
				if !ok {
					return false
				}
				var bm mask.Mask
				bm.Mark(bit)
				if !m.ContainsAll(bm) {
					return false
				}
			}
		case KindAny:
			if len(p.traits) == 0 {
				// spec: Any() with an empty list is a static false predicate.
				return false
			}
			matched := false
			for _, t := range p.traits {
				bit, ok := w.bitFor(t)
				if !ok {
					continue
				}
				var bm mask.Mask
				bm.Mark(bit)
				if m.ContainsAll(bm) {
					matched = true
					break
				}
			}
			if !matched {
				return false
			}
		case KindNot:
			for _, t := range p.traits {
				bit, ok := w.bitFor(t)
				if !ok {
					continue
				}
				var bm mask.Mask
				bm.Mark(bit)
				if m.ContainsAll(bm) {
					return false
				}
			}
		}
	}
	return true
}

func (q *cachedQuery) matchesFilters(w *World, e Entity) bool {
	for _, p := range q.params {
		switch p.kind {
		case KindAdded:
			for _, t := range p.traits {
				if _, ok := q.addedSince[t.id()][e]; !ok || !w.Has(e, t) {
					return false
				}
			}
		case KindRemoved:
			for _, t := range p.traits {
				if _, ok := q.removedSince[t.id()][e]; !ok || w.Has(e, t) {
					return false
				}
			}
		case KindChanged:
			for _, t := range p.traits {
				rec, ok := w.traits[t.id()]
				if !ok {
					return false
				}
				if _, ok := rec.changed[e]; !ok {
					return false
				}
			}
		}
	}
	return true
}

func (q *cachedQuery) consume(matched []Entity) {
	for _, e := range matched {
		for _, p := range q.params {
			switch p.kind {
			case KindAdded:
				for _, t := range p.traits {
					delete(q.addedSince[t.id()], e)
				}
			case KindRemoved:
				for _, t := range p.traits {
					delete(q.removedSince[t.id()], e)
				}
			}
		}
	}
}

func (q *cachedQuery) run(w *World) []Entity {
	var out []Entity
	for e := range q.members {
		if !w.entities.isAlive(e) {
			continue
		}
		if !q.matchesFilters(w, e) {
			continue
		}
		out = append(out, e)
	}
	sortEntities(out)
	q.consume(out)
	return out
}

// Subscription is a handle returned by World.Subscribe and World.OnChange.
type Subscription struct {
	unsubscribe func()
}

// Unsubscribe removes the subscriber. Safe to call more than once.
func (s Subscription) Unsubscribe() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

// getOrCreateQuery compiles params into a cachedQuery, reusing an existing
// one if an equivalent query was already built. Every query implicitly
// excludes the world's distinguished world entity (§4.4).
func (w *World) getOrCreateQuery(params []Param) *cachedQuery {
	full := append(append([]Param{}, params...), Not(excludedTag))
	key := hashParams(full)
	if q, ok := w.queries[key]; ok {
		return q
	}
	q := &cachedQuery{
		key:          key,
		params:       full,
		members:      make(map[Entity]struct{}),
		addedSince:   make(map[uint32]map[Entity]struct{}),
		removedSince: make(map[uint32]map[Entity]struct{}),
		subs:         make(map[int]SubscriberFunc),
	}
	w.queries[key] = q

	// Referencing a trait in a query does not register it: trait registries
	// are created lazily on first add() (§3). An unregistered trait simply
	// matches nothing until it is first used; traitToQueries only needs the
	// trait's id as a reverse-index key, which every Trait carries whether
	// or not it has been registered in this world yet.
	traitIDs := map[uint32]struct{}{}
	for _, p := range full {
		for _, t := range p.traits {
			traitIDs[t.id()] = struct{}{}
		}
	}
	for id := range traitIDs {
		w.traitToQueries[id] = append(w.traitToQueries[id], q)
	}
	for _, e := range w.entities.aliveEntities(w.id) {
		if !q.evalStructural(w, e) {
			continue
		}
		q.members[e] = struct{}{}
		// A fresh query's Added tracker has an empty snapshot, so every
		// entity already satisfying the predicate counts as "added"
		// relative to that snapshot on the very first run.
		for _, p := range full {
			if p.kind != KindAdded {
				continue
			}
			for _, t := range p.traits {
				q.markAdded(e, t.id())
			}
		}
	}
	return q
}

// Query evaluates params against the world and returns matching entities
// in a stable order. The compiled query is cached; subsequent calls with
// an equivalent param set reuse the incrementally maintained result set.
func (w *World) Query(params ...Param) []Entity {
	q := w.getOrCreateQuery(params)
	return q.run(w)
}

// Subscribe registers fn to be called whenever an entity enters or exits
// the result set of the query described by params. Subscribers fire at
// the moment of mutation, independent of any later Query/run call.
func (w *World) Subscribe(params []Param, fn SubscriberFunc) Subscription {
	q := w.getOrCreateQuery(params)
	id := q.nextSubID
	q.nextSubID++
	q.subs[id] = fn
	return Subscription{unsubscribe: func() { delete(q.subs, id) }}
}

// OnChange registers fn to be called whenever a write through Set,
// SetFields, or an overlay Add changes t's value on any entity. A write
// that leaves every field as it was does not call fn.
func (w *World) OnChange(t Trait, fn SubscriberFunc) Subscription {
	id := len(w.changeSubs[t.id()])
	sub := &changeSub{id: id, fn: fn}
	w.changeSubs[t.id()] = append(w.changeSubs[t.id()], sub)
	tid := t.id()
	return Subscription{unsubscribe: func() {
		subs := w.changeSubs[tid]
		for i, s := range subs {
			if s == sub {
				w.changeSubs[tid] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
	}}
}

type changeSub struct {
	id int
	fn SubscriberFunc
}

// event is a deferred notification queued by a mutation and delivered by
// flushNotifications. Mirrors the teacher's enqueue-then-apply pattern for
// locked storage, here used to keep subscriber delivery re-entrant-safe.
type event interface{ deliver(w *World) }

type queryEvent struct {
	query  *cachedQuery
	entity Entity
	kind   EventKind
}

func (ev *queryEvent) deliver(w *World) {
	if len(ev.query.subs) == 0 {
		return
	}
	var panics []any
	for _, fn := range ev.query.subs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					panics = append(panics, r)
				}
			}()
			fn(ev.entity, ev.kind)
		}()
	}
	if len(panics) > 0 {
		panic(bark.AddTrace(fmt.Errorf("ecs: subscriber panic: %v", panics[0])))
	}
}

type changeEvent struct {
	traitID uint32
	entity  Entity
	subs    []*changeSub
}

func (ev *changeEvent) deliver(w *World) {
	var panics []any
	for _, s := range ev.subs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					panics = append(panics, r)
				}
			}()
			s.fn(ev.entity, EventEnter)
		}()
	}
	if len(panics) > 0 {
		panic(bark.AddTrace(fmt.Errorf("ecs: change subscriber panic: %v", panics[0])))
	}
}

// queueNotify enqueues ev for delivery. If no flush is already in
// progress it drains the queue immediately; if a flush is in progress
// (the mutation happened from inside a subscriber callback) it defers to
// the outer flush loop, keeping delivery order FIFO and re-entrant-safe.
func (w *World) queueNotify(ev event) {
	w.pending = append(w.pending, ev)
	if w.notifyDepth == 0 {
		w.flushNotifications()
	}
}

func (w *World) flushNotifications() {
	w.notifyDepth++
	defer func() { w.notifyDepth-- }()
	for len(w.pending) > 0 {
		ev := w.pending[0]
		w.pending = w.pending[1:]
		ev.deliver(w)
	}
}

// onStructuralChange reacts to a trait being added to or removed from e:
// it updates every affected cached query's Added/Removed bookkeeping and
// membership set, and queues Enter/Exit notifications for subscribers.
func (w *World) onStructuralChange(t Trait, e Entity, added bool) {
	for _, q := range w.traitToQueries[t.id()] {
		if added && q.tracksAdded(t.id()) {
			q.markAdded(e, t.id())
		}
		if !added && q.tracksRemoved(t.id()) {
			q.markRemoved(e, t.id())
		}
		_, was := q.members[e]
		now := q.evalStructural(w, e)
		if now && !was {
			q.members[e] = struct{}{}
			w.queueNotify(&queryEvent{query: q, entity: e, kind: EventEnter})
		} else if !now && was {
			delete(q.members, e)
			w.queueNotify(&queryEvent{query: q, entity: e, kind: EventExit})
		}
	}
}

func (w *World) markChanged(t Trait, e Entity) {
	rec, ok := w.traits[t.id()]
	if !ok {
		return
	}
	if rec.changed == nil {
		rec.changed = make(map[Entity]struct{})
	}
	rec.changed[e] = struct{}{}
	w.onValueChanged(t, e)
}

func (w *World) onValueChanged(t Trait, e Entity) {
	subs := w.changeSubs[t.id()]
	if len(subs) == 0 {
		return
	}
	w.queueNotify(&changeEvent{traitID: t.id(), entity: e, subs: subs})
}
