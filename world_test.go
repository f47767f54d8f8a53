package ecs

import "testing"

func TestSpawnAddRemoveHas(t *testing.T) {
	w := NewWorld()
	tag := NewTag("Flag")

	e := w.Spawn()
	if w.Has(e, tag) {
		t.Fatalf("freshly spawned entity must not carry an unrelated tag")
	}

	if err := w.Add(e, tag); err != nil {
		t.Fatalf("Add() error: %v", err)
	}
	if !w.Has(e, tag) {
		t.Fatalf("entity should carry tag after Add()")
	}

	if err := w.Remove(e, tag); err != nil {
		t.Fatalf("Remove() error: %v", err)
	}
	if w.Has(e, tag) {
		t.Fatalf("entity should not carry tag after Remove()")
	}
}

func TestAddIsNoopWhenAlreadyPresent(t *testing.T) {
	w := NewWorld()
	tag := NewTag("Flag")
	e := w.Spawn()

	var seen []EventKind
	w.Subscribe([]Param{All(tag)}, func(_ Entity, k EventKind) { seen = append(seen, k) })

	if err := w.Add(e, tag); err != nil {
		t.Fatalf("first Add() error: %v", err)
	}
	if err := w.Add(e, tag); err != nil {
		t.Fatalf("second Add() error: %v", err)
	}
	if len(seen) != 1 {
		t.Fatalf("expected exactly one Enter notification for a double Add, got %d", len(seen))
	}
}

func TestStaleEntityAndWrongWorldErrors(t *testing.T) {
	w1 := NewWorld()
	w2 := NewWorld()
	tag := NewTag("Flag")

	e := w1.Spawn()
	w1.Destroy(e)

	if err := w1.Add(e, tag); err == nil {
		t.Fatalf("expected StaleEntity error for a destroyed entity")
	} else if ecsErr, ok := err.(*EcsError); !ok || ecsErr.Kind != StaleEntity {
		t.Fatalf("expected StaleEntity, got %v", err)
	}

	e2 := w1.Spawn()
	if err := w2.Add(e2, tag); err == nil {
		t.Fatalf("expected WrongWorld error for a foreign entity")
	} else if ecsErr, ok := err.(*EcsError); !ok || ecsErr.Kind != WrongWorld {
		t.Fatalf("expected WrongWorld, got %v", err)
	}
}

func TestMaskGrowsToSecondWord(t *testing.T) {
	w := NewWorld()
	var traits []TagTrait
	for i := 0; i < 40; i++ {
		traits = append(traits, NewTag("T"))
	}
	e := w.Spawn()
	for i, tr := range traits {
		if err := w.Add(e, tr); err != nil {
			t.Fatalf("Add(#%d) error: %v", i, err)
		}
	}
	if got := w.maskWordCount(); got != 2 {
		t.Fatalf("expected mask to span exactly 2 words after 40 traits, got %d", got)
	}

	target := traits[33]
	results := w.Query(All(target))
	if len(results) != 1 || results[0] != e {
		t.Fatalf("expected query on trait #33 to return the entity, got %v", results)
	}
}

func TestTraitCapacityPanics(t *testing.T) {
	w := NewWorld()
	prev := Config.MaxTraitsPerWorld
	Config.SetMaxTraitsPerWorld(2)
	defer Config.SetMaxTraitsPerWorld(prev)

	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected a panic once trait capacity is exceeded")
		}
	}()

	e := w.Spawn()
	// excludedTag already consumed one bitflag on the world entity, so
	// the holder entity's own distinct traits exhaust capacity quickly.
	w.Add(e, NewTag("A"))
	w.Add(e, NewTag("B"))
	w.Add(e, NewTag("C"))
}

func TestResetPreservesWorldLevelTraitsButClearsEntities(t *testing.T) {
	worldTag := NewTag("WorldLevel")
	w := NewWorld(worldTag)
	e := w.Spawn()

	w.Reset()

	if w.entities.isAlive(e) {
		t.Fatalf("Reset must clear all previously spawned entities")
	}
	if !w.Has(w.WorldEntity(), worldTag) {
		t.Fatalf("Reset must re-establish initial world-level traits")
	}
}

func TestEntitiesWithMatchesRegistry(t *testing.T) {
	w := NewWorld()
	tag := NewTag("Flag")
	a := w.Spawn()
	b := w.Spawn()
	w.Spawn() // untagged, should not appear

	w.Add(a, tag)
	w.Add(b, tag)

	got := w.EntitiesWith(tag)
	if len(got) != 2 {
		t.Fatalf("expected 2 entities carrying tag, got %v", got)
	}

	w.Remove(a, tag)
	got = w.EntitiesWith(tag)
	if len(got) != 1 || got[0] != b {
		t.Fatalf("expected only b after removing a, got %v", got)
	}
}

func TestDestroyWorldReleasesID(t *testing.T) {
	w := NewWorld()
	id := w.ID()
	w.DestroyWorld()
	if _, ok := worldRegistry[id]; ok {
		t.Fatalf("DestroyWorld must release the world id from the process-wide registry")
	}
}
