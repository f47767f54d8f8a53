package ecs

import "testing"

// TestAddGetRoundTrip checks add(e,t,v); get(e,t) == merge(defaults(t), v).
func TestAddGetRoundTrip(t *testing.T) {
	w := NewWorld()
	Position := NewTrait("Position", testPosition{X: 1, Y: 1})

	e := w.Spawn()
	if err := Add(w, e, Position, testPosition{Y: 5}); err != nil {
		t.Fatalf("Add error: %v", err)
	}

	got, ok := Get(w, e, Position)
	if !ok {
		t.Fatalf("expected Get to find Position after Add")
	}
	want := testPosition{X: 1, Y: 5}
	if got != want {
		t.Fatalf("expected merge(defaults, overlay) == %+v, got %+v", want, got)
	}
}

// TestDestroyRespawnEquivalence checks that spawn(t,v); destroy(e); spawn(t,v)
// yields a record whose visible contents are equivalent to the first, even
// though the entity handle itself differs (new generation).
func TestDestroyRespawnEquivalence(t *testing.T) {
	w := NewWorld()
	Position := NewTrait("Position", testPosition{})

	e1 := w.Spawn()
	if err := Add(w, e1, Position, testPosition{X: 3, Y: 4}); err != nil {
		t.Fatalf("first Add error: %v", err)
	}
	first, _ := Get(w, e1, Position)

	if err := w.Destroy(e1); err != nil {
		t.Fatalf("Destroy error: %v", err)
	}

	e2 := w.Spawn()
	if err := Add(w, e2, Position, testPosition{X: 3, Y: 4}); err != nil {
		t.Fatalf("second Add error: %v", err)
	}
	second, _ := Get(w, e2, Position)

	if first != second {
		t.Fatalf("expected equivalent record contents across destroy/respawn, got %+v and %+v", first, second)
	}
	if e1.row != e2.row {
		t.Fatalf("expected the freed row to be recycled, got rows %d and %d", e1.row, e2.row)
	}
	if e1.generation == e2.generation {
		t.Fatalf("expected a distinct generation for the recycled row")
	}
	if w.Has(e1, Position) {
		t.Fatalf("stale handle e1 must not report Has after being destroyed and recycled")
	}
}

func TestWorldStatsReflectsRegistrations(t *testing.T) {
	w := NewWorld()
	Position := NewTrait("Position", testPosition{})
	tag := NewTag("Flag")

	e := w.Spawn()
	Add(w, e, Position)
	w.Add(e, tag)

	stats := w.Stats()
	if stats.RegisteredTraits != 3 {
		t.Fatalf("expected 3 registered traits (the hidden excludedTag plus Position and Flag), got %d", stats.RegisteredTraits)
	}
	if stats.LiveEntities < 2 {
		t.Fatalf("expected at least 2 live entities (world entity + spawned e), got %d", stats.LiveEntities)
	}
	if stats.RowCapacity < stats.LiveEntities {
		t.Fatalf("RowCapacity must be >= LiveEntities, got capacity=%d live=%d", stats.RowCapacity, stats.LiveEntities)
	}
}
