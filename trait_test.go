package ecs

import "testing"

type testPosition struct{ X, Y float64 }

func TestNewTraitAssignsUniqueIDs(t *testing.T) {
	a := NewTrait("A", testPosition{})
	b := NewTrait("B", testPosition{})
	if a.ID() == b.ID() {
		t.Fatalf("distinct traits must have distinct ids, both got %d", a.ID())
	}
	if a.Name() != "A" || b.Name() != "B" {
		t.Fatalf("unexpected names: %q %q", a.Name(), b.Name())
	}
}

func TestNewTagIsEmptySchema(t *testing.T) {
	tag := NewTag("Marker")
	if !tag.isTag() {
		t.Fatalf("NewTag result must report isTag() true")
	}
	if tag.newColumn(8) != nil {
		t.Fatalf("tag traits must not allocate a column")
	}
}

func TestColumnStoreGrowPreservesData(t *testing.T) {
	cs := newColumnStore(2, testPosition{})
	cs.data[0] = testPosition{X: 1, Y: 2}
	cs.data[1] = testPosition{X: 3, Y: 4}

	cs.grow(10)

	if len(cs.data) < 10 {
		t.Fatalf("expected capacity >= 10, got %d", len(cs.data))
	}
	if cs.data[0] != (testPosition{X: 1, Y: 2}) {
		t.Fatalf("grow must preserve existing row 0")
	}
	if cs.data[1] != (testPosition{X: 3, Y: 4}) {
		t.Fatalf("grow must preserve existing row 1")
	}
}

func TestColumnStoreWriteDefault(t *testing.T) {
	cs := newColumnStore(1, testPosition{X: 9, Y: 9})
	cs.data[0] = testPosition{X: 1, Y: 1}
	cs.writeDefault(0)
	if cs.data[0] != (testPosition{X: 9, Y: 9}) {
		t.Fatalf("writeDefault should reset the row to the column's defaults")
	}
	cs.writeDefault(5)
	if len(cs.data) <= 5 {
		t.Fatalf("writeDefault on an out-of-range row must grow the column first")
	}
	if cs.data[5] != (testPosition{X: 9, Y: 9}) {
		t.Fatalf("grown row must carry defaults")
	}
}
