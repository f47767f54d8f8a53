package ecs_test

import (
	"fmt"

	"github.com/latticeforge/ecs"
)

type examplePosition struct{ X, Y float64 }
type exampleVelocity struct{ X, Y float64 }

// Example_basic shows world creation, trait attachment, and a basic query.
func Example_basic() {
	w := ecs.NewWorld()

	Position := ecs.NewTrait("Position", examplePosition{})
	Velocity := ecs.NewTrait("Velocity", exampleVelocity{})

	moving := w.Spawn()
	ecs.Add(w, moving, Position)
	ecs.Add(w, moving, Velocity, exampleVelocity{X: 1, Y: 0})

	still := w.Spawn()
	ecs.Add(w, still, Position)

	count := 0
	for _, e := range w.Query(ecs.All(Position), ecs.All(Velocity)) {
		vel, _ := ecs.Get(w, e, Velocity)
		pos, _ := ecs.Get(w, e, Position)
		ecs.Set(w, e, Position, examplePosition{X: pos.X + vel.X, Y: pos.Y + vel.Y})
		count++
	}

	fmt.Printf("moved entity count: %d\n", count)
	// Output: moved entity count: 1
}

// Example_queries shows subscribing to membership changes on a query.
func Example_queries() {
	w := ecs.NewWorld()
	Enemy := ecs.NewTag("Enemy")

	var events []string
	w.Subscribe([]ecs.Param{ecs.All(Enemy)}, func(e ecs.Entity, kind ecs.EventKind) {
		switch kind {
		case ecs.EventEnter:
			events = append(events, "enter")
		case ecs.EventExit:
			events = append(events, "exit")
		}
	})

	goblin := w.Spawn()
	w.Add(goblin, Enemy)
	w.Remove(goblin, Enemy)

	for _, evt := range events {
		fmt.Println(evt)
	}
	// Output:
	// enter
	// exit
}
