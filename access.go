package ecs

import "reflect"

// columnFor returns the typed column backing def in w, or nil if def has
// never been registered in this world.
func columnFor[T any](w *World, def TraitDef[T]) *columnStore[T] {
	rec, ok := w.traits[def.id()]
	if !ok {
		return nil
	}
	cs, _ := rec.store.(*columnStore[T])
	return cs
}

// mergeOverlay returns base with overlay's non-zero exported struct
// fields copied over it. For non-struct T it returns overlay whenever
// overlay is non-zero, else base. This stands in for the source's
// dynamic partial-object merge (§4.2, §4.3) in a statically typed
// setting: reflect.DeepEqual/reflect.Value.IsZero are the idiomatic Go
// substitute for "did this field get supplied".
func mergeOverlay[T any](base, overlay T) T {
	ov := reflect.ValueOf(overlay)
	if ov.Kind() != reflect.Struct {
		if !ov.IsZero() {
			return overlay
		}
		return base
	}
	merged := base
	bv := reflect.ValueOf(&merged).Elem()
	for i := 0; i < ov.NumField(); i++ {
		fv := ov.Field(i)
		if fv.IsZero() {
			continue
		}
		bf := bv.Field(i)
		if bf.CanSet() {
			bf.Set(fv)
		}
	}
	return merged
}

// Add attaches def to e, overlaying def's defaults with the non-zero
// fields of overlay if one is given. Go forbids generic methods, so
// trait-typed access is exposed as package-level functions parameterized
// over the trait's field type, following the GetComponent[T]/
// SetComponent[T] free-function idiom.
//
// If e already carries def, the overlay is applied with the same
// field-wise change detection Set uses: onChange(def) only fires when a
// field's merged value actually differs from what was stored (§4.3).
func Add[T any](w *World, e Entity, def TraitDef[T], overlay ...T) error {
	alreadyPresent := w.Has(e, def)
	if err := w.Add(e, def); err != nil {
		return err
	}
	if len(overlay) == 0 {
		return nil
	}
	if alreadyPresent {
		return Set(w, e, def, overlay[0])
	}
	cs := columnFor(w, def)
	if cs == nil || int(e.row) >= len(cs.data) {
		return nil
	}
	cs.data[e.row] = mergeOverlay(cs.data[e.row], overlay[0])
	return nil
}

// Get reads e's current value for def. The second return is false if e
// does not carry def.
func Get[T any](w *World, e Entity, def TraitDef[T]) (T, bool) {
	var zero T
	if !w.Has(e, def) {
		return zero, false
	}
	cs := columnFor(w, def)
	if cs == nil || int(e.row) >= len(cs.data) {
		return zero, false
	}
	return cs.data[e.row], true
}

// Set applies partial field-wise to e's def value (adding def first if e
// does not already carry it), and fires onChange(def) iff at least one
// field actually differs from the prior value (scenario 6).
func Set[T any](w *World, e Entity, def TraitDef[T], partial T) error {
	if err := w.validate(e); err != nil {
		return err
	}
	if !w.Has(e, def) {
		if err := w.add(e, def); err != nil {
			return err
		}
	}
	cs := columnFor(w, def)
	if cs == nil {
		return nil
	}
	if int(e.row) >= len(cs.data) {
		cs.grow(int(e.row) + 1)
	}
	old := cs.data[e.row]
	merged := mergeOverlay(old, partial)
	if reflect.DeepEqual(old, merged) {
		return nil
	}
	cs.data[e.row] = merged
	w.markChanged(def, e)
	return nil
}

// SetFields writes named fields dynamically, raising SchemaMismatch in
// strict mode (Config.StrictSchema) for any name that is not an
// addressable field of def's schema or whose value has the wrong type.
// This is the dynamic sibling of Set, for callers that only have field
// names at runtime (e.g. a deserialized patch).
func SetFields[T any](w *World, e Entity, def TraitDef[T], fields map[string]any) error {
	if err := w.validate(e); err != nil {
		return err
	}
	if !w.Has(e, def) {
		if err := w.add(e, def); err != nil {
			return err
		}
	}
	cs := columnFor(w, def)
	if cs == nil {
		return nil
	}
	if int(e.row) >= len(cs.data) {
		cs.grow(int(e.row) + 1)
	}
	old := cs.data[e.row]
	updated := old
	rv := reflect.ValueOf(&updated).Elem()
	for name, val := range fields {
		f := rv.FieldByName(name)
		if !f.IsValid() || !f.CanSet() {
			if Config.StrictSchema {
				return &EcsError{Kind: SchemaMismatch, Entity: e, Trait: def}
			}
			continue
		}
		fv := reflect.ValueOf(val)
		if !fv.Type().AssignableTo(f.Type()) {
			if Config.StrictSchema {
				return &EcsError{Kind: SchemaMismatch, Entity: e, Trait: def}
			}
			continue
		}
		f.Set(fv)
	}
	if !reflect.DeepEqual(old, updated) {
		cs.data[e.row] = updated
		w.markChanged(def, e)
	}
	return nil
}
