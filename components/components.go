// Package components defines ECS components for the simulation world.
package components

import "github.com/pthm-cable/grapple/creature"

// Position is a world position in simulation units.
type Position struct {
	X, Y float64
}

// Velocity is in units per second.
type Velocity struct {
	X, Y float64
}

// Strikeable marks a target appendages can hit during an attack.
type Strikeable struct {
	ID     uint32
	Radius float64
	Mass   float64
	Hits   int
}

// Creature links an entity to its simulated body. Position and Velocity of
// a creature entity mirror the body after each movement phase.
type Creature struct {
	Body *creature.Body
}
