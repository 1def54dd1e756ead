package creature

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/grapple/config"
	"github.com/pthm-cable/grapple/geom"
	"github.com/pthm-cable/grapple/tentacle"
	"github.com/pthm-cable/grapple/terrain"
)

const dt = 1.0 / 60

// floor is solid everywhere below y=Y.
type floor struct{ Y float64 }

func (f floor) Sweep(from, to r2.Vec) (terrain.Hit, bool) {
	if from.Y >= f.Y {
		return terrain.Hit{Point: from}, true
	}
	if to.Y < f.Y {
		return terrain.Hit{}, false
	}
	t := (f.Y - from.Y) / (to.Y - from.Y)
	p := geom.Lerp(from, to, t)
	p.Y = f.Y
	return terrain.Hit{Point: p, Fraction: t}, true
}

func (floor) OverlapsObstacle(r2.Vec, float64) bool { return false }

type empty struct{}

func (empty) Sweep(r2.Vec, r2.Vec) (terrain.Hit, bool) { return terrain.Hit{}, false }
func (empty) OverlapsObstacle(r2.Vec, float64) bool { return false }

type movable struct{ p r2.Vec }

func (m *movable) TargetPosition() (r2.Vec, bool) { return m.p, true }

type recorder struct{ events []Event }

func (r *recorder) OnBodyEvent(ev Event) { r.events = append(r.events, ev) }

func (r *recorder) count(kind EventKind) int {
	n := 0
	for _, ev := range r.events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

func testParams() Params {
	return ParamsFromConfig(config.Default())
}

func newBody(t *testing.T, p Params, pos r2.Vec, q terrain.Query) *Body {
	t.Helper()
	return New(1, p, pos, Ellipse{RX: 0.9, RY: 0.7, Samples: 48}, q, rand.New(rand.NewSource(7)), nil)
}

func step(b *Body) {
	b.Tick(dt)
	b.UpdateBehavior(dt)
	b.SchedulePhysics(nil, dt, nil)
	b.Complete()
	b.UpdateMovement(dt)
}

func countGripping(b *Body) int {
	n := 0
	for _, a := range b.Appendages() {
		if a.IsGripping() {
			n++
		}
	}
	return n
}

func TestGripCounterMatchesAppendages(t *testing.T) {
	b := newBody(t, testParams(), r2.Vec{X: 10, Y: 6}, floor{Y: 9})
	src := &movable{p: r2.Vec{X: 30, Y: 6}}
	b.SetTarget(src)

	for i := 0; i < 900; i++ {
		if i%200 == 0 {
			b.TriggerAttack(r2.Add(b.Position(), r2.Vec{X: 3, Y: -1}))
		}
		if i == 450 {
			src.p = r2.Vec{X: 2, Y: 6}
			b.NotifyTargetMoved()
		}
		step(b)
		if got, want := b.GripCount(), countGripping(b); got != want {
			t.Fatalf("step %d: grip count %d, %d appendages gripping", i, got, want)
		}
	}

	b.ResetState()
	if b.GripCount() != 0 || countGripping(b) != 0 {
		t.Errorf("after reset: count=%d gripping=%d", b.GripCount(), countGripping(b))
	}
}

func TestGatedBodyNeverApproaches(t *testing.T) {
	b := newBody(t, testParams(), r2.Vec{X: 10, Y: 10}, empty{})
	rec := &recorder{}
	b.SetObserver(rec)
	target := r2.Vec{X: 25, Y: 10}
	src := &movable{p: target}
	b.SetTarget(src)

	prev := geom.Distance(b.Position(), target)
	for i := 0; i < 1200 && !b.GivingUp(); i++ {
		step(b)
		if b.GripCount() != 0 {
			t.Fatalf("step %d: gripped with nothing to grip", i)
		}
		d := geom.Distance(b.Position(), target)
		if d < prev-1e-9 {
			t.Fatalf("step %d: distance fell from %.6f to %.6f with zero grips", i, prev, d)
		}
		prev = d
	}

	if !b.GivingUp() {
		t.Fatalf("never gave up; failures=%d", b.MoveFailures())
	}
	if got := rec.count(EventMoveFailure); got != b.Params().MaxMoveFailures {
		t.Errorf("move failure events = %d, want %d", got, b.Params().MaxMoveFailures)
	}
	if rec.count(EventGaveUp) != 1 {
		t.Errorf("gave-up events = %d, want 1", rec.count(EventGaveUp))
	}

	// A small nudge is not meaningful movement.
	src.p = r2.Add(target, r2.Vec{X: 1})
	b.NotifyTargetMoved()
	if !b.GivingUp() {
		t.Error("resumed on movement below threshold")
	}

	src.p = r2.Add(target, r2.Vec{Y: -8})
	b.NotifyTargetMoved()
	if b.GivingUp() || b.MoveFailures() != 0 {
		t.Errorf("after target moved: givingUp=%v failures=%d", b.GivingUp(), b.MoveFailures())
	}
	if rec.count(EventResumed) != 1 {
		t.Errorf("resumed events = %d, want 1", rec.count(EventResumed))
	}
}

func TestRequiredGrips(t *testing.T) {
	p := testParams()
	b := newBody(t, p, r2.Vec{X: 10, Y: 10}, empty{})

	if got := b.RequiredGrips(); got != p.MinGrips {
		t.Errorf("no target: required = %d, want %d", got, p.MinGrips)
	}
	b.SetTarget(Point{X: 10 + p.FarDistance + 1, Y: 10})
	if got := b.RequiredGrips(); got != p.FarMinGrips {
		t.Errorf("far target: required = %d, want %d", got, p.FarMinGrips)
	}
	b.SetTarget(Point{X: 12, Y: 10})
	if got := b.RequiredGrips(); got != p.MinGrips {
		t.Errorf("near target: required = %d, want %d", got, p.MinGrips)
	}
}

// gripAll grips the first n appendages on points just outside their anchors.
func gripAll(b *Body, n int) {
	for i := 0; i < n; i++ {
		anchor := b.AnchorPosition(i)
		out := geom.Unit(r2.Sub(anchor, b.Position()))
		b.Appendages()[i].Grip(r2.Add(anchor, r2.Scale(2, out)))
	}
}

func TestTriggerAttackGripBudget(t *testing.T) {
	tests := []struct {
		name       string
		appendages int
		minGrips   int
		gripped    int
		wantMax    int
	}{
		{"all gripping at minimum", 3, 3, 3, 0},
		{"one free at minimum", 4, 3, 3, 1},
		{"above minimum", 8, 2, 8, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testParams()
			p.Appendages = tt.appendages
			p.MinGrips = tt.minGrips
			b := newBody(t, p, r2.Vec{X: 10, Y: 10}, empty{})
			gripAll(b, tt.gripped)

			n := b.TriggerAttack(r2.Vec{X: 13, Y: 10})
			if n > tt.wantMax {
				t.Errorf("assigned %d attackers, want at most %d", n, tt.wantMax)
			}
			if n > p.MaxAttackers || n > p.MaxForward+p.MaxRear {
				t.Errorf("assigned %d attackers beyond caps", n)
			}
			if b.GripCount() < min(tt.gripped, p.MinGrips) {
				t.Errorf("grip count %d fell below minimum %d", b.GripCount(), p.MinGrips)
			}
			if b.GripCount() != countGripping(b) {
				t.Errorf("grip count %d, %d gripping", b.GripCount(), countGripping(b))
			}
			attacking := 0
			for _, a := range b.Appendages() {
				if a.IsAttacking() {
					attacking++
				}
			}
			if attacking != n {
				t.Errorf("%d appendages attacking, reported %d", attacking, n)
			}
		})
	}
}

func TestTriggerAttackCooldownAndRange(t *testing.T) {
	p := testParams()
	b := newBody(t, p, r2.Vec{X: 10, Y: 10}, empty{})

	if n := b.TriggerAttack(r2.Vec{X: 10 + p.AttackRange + 5, Y: 10}); n != 0 {
		t.Errorf("out of range: assigned %d", n)
	}
	if n := b.TriggerAttack(r2.Vec{X: 13, Y: 10}); n == 0 {
		t.Fatal("in range: no attackers")
	}
	if b.AttackCooldown() != p.AttackCooldown {
		t.Errorf("cooldown = %v, want %v", b.AttackCooldown(), p.AttackCooldown)
	}
	if n := b.TriggerAttack(r2.Vec{X: 13, Y: 10}); n != 0 {
		t.Errorf("during cooldown: assigned %d", n)
	}
}

func TestRetractorSide(t *testing.T) {
	tests := []struct {
		side        RetractorSide
		front, rear bool
	}{
		{RetractRear, false, true},
		{RetractFront, true, false},
		{RetractNone, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.side.String(), func(t *testing.T) {
			b := &Body{params: Params{Retractor: tt.side}}
			if b.retracts(true) != tt.front || b.retracts(false) != tt.rear {
				t.Errorf("front=%v rear=%v, want %v %v", b.retracts(true), b.retracts(false), tt.front, tt.rear)
			}
			if ParseRetractorSide(tt.side.String()) != tt.side {
				t.Errorf("parse round trip failed for %v", tt.side)
			}
		})
	}
}

func TestReleaseScores(t *testing.T) {
	body := r2.Vec{}
	travel := r2.Vec{X: 1}

	tests := []struct {
		name  string
		grips []r2.Vec
		ref   r2.Vec
		w     float64
		want  []float64
	}{
		{
			name:  "equidistant distance term is one",
			grips: []r2.Vec{{X: 2}, {Y: 2}, {X: -2}},
			ref:   body,
			w:     1,
			want:  []float64{1, 1, 1},
		},
		{
			name:  "rear and far blend",
			grips: []r2.Vec{{X: 2}, {X: -2}},
			ref:   r2.Vec{X: 10},
			w:     0.6,
			want:  []float64{0, 1},
		},
		{
			name:  "rearward only",
			grips: []r2.Vec{{X: 2}, {Y: 2}, {X: -2}},
			ref:   body,
			w:     0,
			want:  []float64{0, 0.5, 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ReleaseScores(tt.grips, body, tt.ref, travel, tt.w)
			for i := range tt.want {
				if math.Abs(got[i]-tt.want[i]) > 1e-9 {
					t.Errorf("score[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestRotateGripPrefersIdle(t *testing.T) {
	p := testParams()
	p.Appendages = 4
	b := newBody(t, p, r2.Vec{X: 10, Y: 10}, empty{})
	gripAll(b, 3)

	b.rotateGrip()
	if b.GripCount() != 3 {
		t.Errorf("grip count = %d, want 3 untouched", b.GripCount())
	}
	if !b.Appendages()[3].Seeking() {
		t.Errorf("idle appendage mode = %v, want seeking", b.Appendages()[3].Mode())
	}
}

func TestRotateGripReleasesRearmost(t *testing.T) {
	p := testParams()
	p.Appendages = 4
	p.MinGrips = 2
	pos := r2.Vec{X: 10, Y: 10}
	b := newBody(t, p, pos, empty{})

	// Heading 0 and no target: travel is +X, so the -X grip is rearmost.
	apps := b.Appendages()
	apps[0].Grip(r2.Add(pos, r2.Vec{X: 3}))
	apps[1].Grip(r2.Add(pos, r2.Vec{Y: 3}))
	apps[2].Grip(r2.Add(pos, r2.Vec{X: -3}))
	apps[3].Grip(r2.Add(pos, r2.Vec{Y: -3}))

	b.rotateGrip()
	if b.GripCount() != 3 {
		t.Fatalf("grip count = %d, want 3", b.GripCount())
	}
	if apps[2].IsGripping() || apps[2].Mode() != tentacle.ModeSearching {
		t.Errorf("rear appendage gripping=%v mode=%v, want released and searching", apps[2].IsGripping(), apps[2].Mode())
	}
}

func TestRotateGripHoldsAtMinimum(t *testing.T) {
	p := testParams()
	p.Appendages = 2
	p.MinGrips = 2
	b := newBody(t, p, r2.Vec{X: 10, Y: 10}, empty{})
	gripAll(b, 2)

	b.rotateGrip()
	if b.GripCount() != 2 {
		t.Errorf("grip count = %d, want 2", b.GripCount())
	}
}

func TestChooseDirectionAvoidsCongestion(t *testing.T) {
	p := testParams()
	p.Appendages = 4
	p.DirectionRetries = 4
	b := newBody(t, p, r2.Vec{X: 10, Y: 10}, empty{})

	// Appendage 1 searches straight along appendage 0's outward direction.
	out := geom.Unit(r2.Sub(b.AnchorPosition(0), b.Position()))
	b.Appendages()[1].RequestNewGrip(out, true)

	for i := 0; i < 20; i++ {
		dir, _ := b.chooseDirection(0)
		if b.congested(0, dir) {
			t.Fatalf("try %d: direction %v within %v of %v", i, dir, p.MinSearchAngle, out)
		}
	}
}

func TestChooseDirectionForwardSeekerBound(t *testing.T) {
	p := testParams()
	p.Appendages = 6
	p.MaxForwardSeekers = 2
	b := newBody(t, p, r2.Vec{X: 10, Y: 10}, empty{})
	b.SetTarget(Point{X: 40, Y: 10})

	back := r2.Vec{X: -1}
	apps := b.Appendages()
	apps[1].RequestNewGrip(back, false)
	apps[1].SetForwardSeeking(true)

	if _, forward := b.chooseDirection(0); !forward {
		t.Error("below bound: want forward direction")
	}

	apps[2].RequestNewGrip(geom.Rotate(back, 1.2), false)
	apps[2].SetForwardSeeking(true)

	for i := 0; i < 10; i++ {
		if _, forward := b.chooseDirection(0); forward {
			t.Fatal("at bound: got forward direction")
		}
	}
}

func TestAnchorOffsets(t *testing.T) {
	square := Polygon{{X: -1, Y: -1}, {X: 1, Y: -1}, {X: 1, Y: 1}, {X: -1, Y: 1}}

	got, err := AnchorOffsets(square, 8)
	if err != nil {
		t.Fatal(err)
	}
	want := []r2.Vec{
		{X: -1, Y: -1}, {X: 0, Y: -1}, {X: 1, Y: -1}, {X: 1, Y: 0},
		{X: 1, Y: 1}, {X: 0, Y: 1}, {X: -1, Y: 1}, {X: -1, Y: 0},
	}
	for i := range want {
		if geom.Distance(got[i], want[i]) > 1e-9 {
			t.Errorf("offset[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	degenerate := []struct {
		name string
		o    Outline
	}{
		{"nil", nil},
		{"single point", Polygon{{X: 1}}},
		{"zero perimeter", Polygon{{X: 1}, {X: 1}}},
		{"undersampled ellipse", Ellipse{RX: 1, RY: 1, Samples: 2}},
	}
	for _, tt := range degenerate {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := AnchorOffsets(tt.o, 4); !errors.Is(err, ErrDegenerateOutline) {
				t.Errorf("err = %v, want ErrDegenerateOutline", err)
			}
		})
	}
}

func TestDegenerateOutlineFallsBackToCentre(t *testing.T) {
	pos := r2.Vec{X: 5, Y: 5}
	b := New(3, testParams(), pos, Polygon{}, empty{}, rand.New(rand.NewSource(1)), nil)
	for i := range b.Appendages() {
		if got := b.AnchorPosition(i); got != pos {
			t.Errorf("anchor %d = %v, want centre %v", i, got, pos)
		}
	}
}

func TestReinitClearsState(t *testing.T) {
	b := newBody(t, testParams(), r2.Vec{X: 10, Y: 10}, empty{})
	gripAll(b, 3)
	b.SetTarget(Point{X: 20, Y: 10})

	b.Reinit(9, r2.Vec{X: 2, Y: 2})
	s := b.Snapshot()
	if s.ID != 9 || s.Pos != (r2.Vec{X: 2, Y: 2}) || s.GripCount != 0 || s.HasTarget {
		t.Errorf("snapshot after reinit = %+v", s)
	}
}
