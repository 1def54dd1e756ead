package creature

import (
	"sort"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/grapple/geom"
	"github.com/pthm-cable/grapple/tentacle"
)

type attackCandidate struct {
	index    int
	align    float64
	gripping bool
	forward  bool
}

// TriggerAttack assigns attackers toward pos and returns how many were
// started. It does nothing while the cooldown runs.
//
// Candidates are free appendages and gripping appendages at rest, with the
// anchor within AttackRange of pos. Appendages whose anchor faces pos are
// forward candidates, the rest rear; each group is ordered by how well it
// faces the strike. Gripping attackers never take the body below MinGrips.
func (b *Body) TriggerAttack(pos r2.Vec) int {
	p := &b.params
	if b.cooldown > 0 {
		return 0
	}

	strikeDir := geom.Unit(r2.Sub(pos, b.pos))
	if strikeDir == (r2.Vec{}) {
		strikeDir = geom.FromAngle(b.heading)
	}

	var front, rear []attackCandidate
	for i, a := range b.apps {
		if a.IsAttacking() || a.Mode() != tentacle.ModeIdle {
			continue
		}
		anchor := b.AnchorPosition(i)
		if geom.Distance(anchor, pos) > p.AttackRange {
			continue
		}
		dir := geom.Unit(r2.Sub(anchor, b.pos))
		if dir == (r2.Vec{}) {
			dir = strikeDir
		}
		c := attackCandidate{
			index:    i,
			align:    r2.Dot(dir, strikeDir),
			gripping: a.IsGripping(),
		}
		c.forward = c.align >= 0
		if c.forward {
			front = append(front, c)
		} else {
			rear = append(rear, c)
		}
	}
	byAlign := func(cs []attackCandidate) {
		sort.SliceStable(cs, func(i, j int) bool { return cs[i].align > cs[j].align })
	}
	byAlign(front)
	byAlign(rear)

	gripBudget := max(0, b.gripCount-p.MinGrips)
	assigned := 0
	take := func(cs []attackCandidate, limit int) {
		n := 0
		for _, c := range cs {
			if assigned >= p.MaxAttackers || n >= limit {
				return
			}
			if c.gripping {
				if gripBudget == 0 {
					continue
				}
				gripBudget--
			}
			if !b.apps[c.index].InitiateAttack(pos, b.retracts(c.forward)) {
				continue
			}
			n++
			assigned++
			b.emit(Event{Kind: EventAttackAssigned, Index: c.index, Pos: pos})
		}
	}
	take(front, p.MaxForward)
	take(rear, p.MaxRear)

	if assigned > 0 {
		b.cooldown = p.AttackCooldown
		b.logger.Debug("attack assigned", "target", pos, "attackers", assigned)
	}
	return assigned
}

// retracts reports whether an attacker on the given side searches for a
// fresh grip after its strike.
func (b *Body) retracts(forward bool) bool {
	switch b.params.Retractor {
	case RetractFront:
		return forward
	case RetractRear:
		return !forward
	default:
		return false
	}
}

// AttackCooldown returns the remaining cooldown.
func (b *Body) AttackCooldown() float64 { return b.cooldown }
