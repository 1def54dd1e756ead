package tentacle

import (
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/grapple/geom"
	"github.com/pthm-cable/grapple/grip"
	"github.com/pthm-cable/grapple/rope"
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

// empty has nothing to grip.
type empty struct{}

func (empty) Sweep(r2.Vec, r2.Vec) (terrain.Hit, bool) { return terrain.Hit{}, false }
func (empty) OverlapsObstacle(r2.Vec, float64) bool { return false }

type stubHost struct {
	anchor   r2.Vec
	count    int
	minGrips int
	target   r2.Vec
	moving   bool
	apps     []*Appendage
	events   []Event
}

func (h *stubHost) AnchorPosition(int) r2.Vec { return h.anchor }

func (h *stubHost) NotifyGripChanged(_ int, gripping bool) {
	if gripping {
		h.count++
	} else {
		h.count--
	}
}

func (h *stubHost) GripCount() int { return h.count }
func (h *stubHost) MinStableGrips() int { return h.minGrips }

func (h *stubHost) OtherGrips(exclude int, dst []r2.Vec) []r2.Vec {
	for _, a := range h.apps {
		if a.Index() != exclude && a.IsGripping() {
			t, _ := a.GripTarget()
			dst = append(dst, t)
		}
	}
	return dst
}

func (h *stubHost) MovementTarget() (r2.Vec, bool) { return h.target, h.moving }
func (h *stubHost) SuggestDirection(int) r2.Vec { return r2.Vec{Y: 1} }
func (h *stubHost) AppendageEvent(ev Event) { h.events = append(h.events, ev) }

func testParams() Params {
	return Params{
		Points:        26,
		SegmentLength: 0.26,
		Iterations:    15,
		DampingIdle:   0.04,
		DampingReach:  0.12,
		DampingGrip:   0.08,
		DampingHang:   0.02,
		Gravity:       9.8,
		ReachSpeed:    14,
		AttackSpeed:   36,
		MaxStretch:    1.35,
		ArriveEpsilon: 0.05,
		Strike:        rope.StrikeParams{Radius: 0.4, Scale: 0.5, MaxImpulse: 50},

		IdleTimeout:      1.5,
		ReachTimeout:     1.2,
		AttackTimeout:    0.4,
		MaxReachFailures: 3,
		HangDuration:     0.5,
		OperatingRadius:  8,
		Overshoot:        0.5,
		AttackStretchCap: 1.6,

		Search: grip.Params{
			Steps:             6,
			Probes:            4,
			ConeAngle:         0.5,
			Radius:            5,
			ProbeJitter:       0.4,
			MinAnchorDistance: 1,
			MinGripSeparation: 0.8,
			ObstaclePenalty:   1000,
			ObstacleRadius:    0.1,
			MaxReach:          25 * 0.26 * 1.35,
			PostAttackSteps:   4,
			PostAttackRadius:  2,
		},
	}
}

func newTest(t *testing.T, q terrain.Query, host *stubHost, seed int64) *Appendage {
	t.Helper()
	a := New(len(host.apps), testParams(), host, q, rand.New(rand.NewSource(seed)), nil)
	host.apps = append(host.apps, a)
	return a
}

func step(a *Appendage) {
	a.Update(dt)
	a.SchedulePhysics(nil, dt, nil)
}

func TestReachThenGripRoundTrip(t *testing.T) {
	host := &stubHost{anchor: r2.Vec{X: 0, Y: 5}, minGrips: 2}
	a := newTest(t, floor{Y: 10}, host, 1)

	if !a.RequestNewGrip(r2.Vec{Y: 1}, true) {
		t.Fatal("request rejected from idle")
	}
	if a.Mode() != ModeSearching {
		t.Fatalf("mode = %v, want searching", a.Mode())
	}

	seenReaching := false
	for i := 0; i < 300; i++ {
		before := a.Mode()
		a.Update(dt)
		if a.IsGripping() {
			if before != ModeReaching {
				t.Fatalf("gripped from %v, want reaching", before)
			}
			target, ok := a.GripTarget()
			if !ok {
				t.Fatal("gripping without a target")
			}
			if a.Tip() != target {
				t.Fatalf("tip %v != grip target %v when gripping became true", a.Tip(), target)
			}
			if !seenReaching {
				t.Fatal("never observed reaching")
			}
			if host.count != 1 {
				t.Errorf("grip count = %d, want 1", host.count)
			}
			return
		}
		if a.Mode() == ModeReaching {
			seenReaching = true
		}
		a.SchedulePhysics(nil, dt, nil)
	}
	t.Fatalf("never gripped; mode %v", a.Mode())
}

func TestGripCounterNeverDoubleCounts(t *testing.T) {
	host := &stubHost{anchor: r2.Vec{Y: 5}}
	a := newTest(t, floor{Y: 10}, host, 1)
	p := r2.Vec{X: 1, Y: 10}

	a.Grip(p)
	a.Grip(p)
	if host.count != 1 {
		t.Errorf("after two grips count = %d, want 1", host.count)
	}

	a.ForceRelease()
	a.ForceRelease()
	if host.count != 0 {
		t.Errorf("after two releases count = %d, want 0", host.count)
	}

	a.Grip(p)
	a.InitiateAttack(r2.Vec{X: 3, Y: 3}, false)
	if host.count != 0 || a.IsGripping() {
		t.Errorf("attack did not release through notifier: count=%d gripping=%v", host.count, a.IsGripping())
	}
}

func TestRequestIgnoredWhileBusy(t *testing.T) {
	host := &stubHost{anchor: r2.Vec{Y: 5}}
	a := newTest(t, floor{Y: 10}, host, 1)

	a.RequestNewGrip(r2.Vec{Y: 1}, true)
	if a.RequestNewGrip(r2.Vec{X: 1}, true) {
		t.Error("request accepted while searching")
	}
	if got := a.SearchDirection(); got != (r2.Vec{Y: 1}) {
		t.Errorf("search direction changed to %v", got)
	}

	a.ForceRelease()
	a.enterHang()
	if a.RequestNewGrip(r2.Vec{Y: 1}, true) {
		t.Error("request accepted while hanging")
	}
	if a.InitiateAttack(r2.Vec{X: 2}, true) {
		t.Error("attack accepted while hanging")
	}
}

func TestReReachWhileGripping(t *testing.T) {
	host := &stubHost{anchor: r2.Vec{Y: 5}}
	a := newTest(t, floor{Y: 10}, host, 1)
	p := r2.Vec{X: 1, Y: 10}
	a.Grip(p)

	if !a.RequestNewGrip(r2.Vec{X: -1}, false) {
		t.Fatal("re-reach rejected")
	}
	if a.Mode() != ModeReaching || a.IsGripping() {
		t.Fatalf("mode=%v gripping=%v, want reaching without grip", a.Mode(), a.IsGripping())
	}
	if got, _ := a.GripTarget(); got != p {
		t.Errorf("re-reach target = %v, want same point %v", got, p)
	}
	if host.count != 0 {
		t.Errorf("count = %d, want 0 during re-reach", host.count)
	}

	for i := 0; i < 120 && !a.IsGripping(); i++ {
		step(a)
	}
	if !a.IsGripping() || host.count != 1 {
		t.Errorf("re-reach did not re-grip: gripping=%v count=%d", a.IsGripping(), host.count)
	}
}

func TestReachFailuresFallBackToHang(t *testing.T) {
	host := &stubHost{anchor: r2.Vec{Y: 5}}
	a := newTest(t, empty{}, host, 1)
	far := r2.Vec{X: 100, Y: 5}

	for i := 0; i < a.params.MaxReachFailures; i++ {
		a.startReach(far, a.params.ReachTimeout)
		for n := 0; n < 200 && a.Mode() == ModeReaching; n++ {
			step(a)
		}
		if i < a.params.MaxReachFailures-1 && a.Mode() != ModeSearching {
			t.Fatalf("failure %d: mode = %v, want searching retry", i+1, a.Mode())
		}
	}
	if a.Mode() != ModeHanging {
		t.Fatalf("mode = %v, want hanging after %d failures", a.Mode(), a.params.MaxReachFailures)
	}

	for n := 0; n < 100 && a.Mode() == ModeHanging; n++ {
		step(a)
	}
	if a.Mode() != ModeIdle {
		t.Errorf("mode = %v, want idle after hang", a.Mode())
	}
	if a.ReachFailures() != 0 {
		t.Errorf("failures = %d, want reset after hang", a.ReachFailures())
	}
}

func TestSearchExhaustionRetries(t *testing.T) {
	host := &stubHost{anchor: r2.Vec{Y: 5}}
	a := newTest(t, empty{}, host, 1)
	a.RequestNewGrip(r2.Vec{Y: 1}, true)

	for i := 0; i < a.params.Search.Steps*3; i++ {
		step(a)
	}
	if a.Mode() != ModeSearching {
		t.Errorf("mode = %v, want still searching", a.Mode())
	}
	exhausted := 0
	for _, ev := range host.events {
		if ev.Kind == EventSearchExhausted {
			exhausted++
		}
	}
	if exhausted < 2 {
		t.Errorf("exhausted events = %d, want repeated retries", exhausted)
	}
}

func TestIdleTimeoutStartsSearch(t *testing.T) {
	host := &stubHost{anchor: r2.Vec{Y: 5}}
	a := newTest(t, empty{}, host, 1)

	steps := int(a.params.IdleTimeout/dt) + 2
	for i := 0; i < steps && a.Mode() == ModeIdle; i++ {
		step(a)
	}
	if a.Mode() != ModeSearching {
		t.Errorf("mode = %v, want spontaneous search", a.Mode())
	}
}

func TestOverstretchRelease(t *testing.T) {
	tests := []struct {
		name        string
		count       int
		wantRelease bool
	}{
		{"above minimum releases", 3, true},
		{"at minimum holds", 2, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host := &stubHost{anchor: r2.Vec{Y: 5}, minGrips: 2, moving: true, target: r2.Vec{X: 20, Y: 5}}
			a := newTest(t, floor{Y: 10}, host, 1)
			a.Grip(r2.Vec{X: 3, Y: 10})
			host.count = tt.count

			host.anchor = r2.Vec{X: -8, Y: 5} // body moved away
			a.Update(dt)

			if a.IsGripping() == tt.wantRelease {
				t.Errorf("gripping = %v, want release=%v", a.IsGripping(), tt.wantRelease)
			}
			if tt.wantRelease {
				if a.Mode() != ModeSearching {
					t.Errorf("mode = %v, want searching", a.Mode())
				}
				if d := a.SearchDirection(); d.X <= 0 {
					t.Errorf("search direction %v not toward movement target", d)
				}
			}
		})
	}
}

type pointStriker struct {
	center r2.Vec
}

func (s pointStriker) SweepTargets(from, to r2.Vec, radius float64, dst []rope.Contact) []rope.Contact {
	if t, ok := geom.SegmentCircle(from, to, s.center, radius); ok {
		dst = append(dst, rope.Contact{ID: 42, T: t, Point: geom.Lerp(from, to, t)})
	}
	return dst
}

func TestAttackStrikesOnceAndRestoresGrip(t *testing.T) {
	host := &stubHost{anchor: r2.Vec{Y: 5}}
	a := newTest(t, floor{Y: 10}, host, 1)
	hold := r2.Vec{X: 1, Y: 10}
	a.Grip(hold)
	for i := 0; i < 10; i++ {
		step(a)
	}

	strikeAt := r2.Vec{X: 4, Y: 3}
	striker := pointStriker{center: strikeAt}
	if !a.InitiateAttack(strikeAt, false) {
		t.Fatal("attack rejected")
	}
	if !a.IsAttacking() || a.Mode() != ModeReaching {
		t.Fatalf("attacking=%v mode=%v", a.IsAttacking(), a.Mode())
	}

	var strikes []rope.Strike
	for i := 0; i < 60 && a.IsAttacking(); i++ {
		a.Update(dt)
		a.SchedulePhysics(nil, dt, striker)
		strikes = a.DrainStrikes(strikes)
	}
	if a.IsAttacking() {
		t.Fatal("attack never finished")
	}
	if len(strikes) != 1 {
		t.Fatalf("strikes = %d, want exactly 1", len(strikes))
	}
	if strikes[0].TargetID != 42 || r2.Norm(strikes[0].Impulse) == 0 {
		t.Errorf("strike = %+v", strikes[0])
	}

	if got, ok := a.GripTarget(); !ok || got != hold || a.Mode() != ModeReaching {
		t.Fatalf("after attack: mode=%v target=%v, want reaching back to %v", a.Mode(), got, hold)
	}
	for i := 0; i < 120 && !a.IsGripping(); i++ {
		step(a)
	}
	if !a.IsGripping() || host.count != 1 {
		t.Errorf("grip not restored: gripping=%v count=%d", a.IsGripping(), host.count)
	}
}

// alwaysStriker reports the same target on every sweep.
type alwaysStriker struct{}

func (alwaysStriker) SweepTargets(from, to r2.Vec, radius float64, dst []rope.Contact) []rope.Contact {
	return append(dst, rope.Contact{ID: 7, Point: to})
}

func TestReissuedAttackStrikesAgainAndKeepsGrip(t *testing.T) {
	host := &stubHost{anchor: r2.Vec{Y: 5}}
	a := newTest(t, floor{Y: 10}, host, 1)
	hold := r2.Vec{X: 1, Y: 10}
	a.Grip(hold)
	for i := 0; i < 10; i++ {
		step(a)
	}

	strikeAt := r2.Vec{X: 4, Y: 3}
	var striker alwaysStriker
	a.InitiateAttack(strikeAt, false)

	var strikes []rope.Strike
	for i := 0; i < 60 && a.IsAttacking() && len(strikes) == 0; i++ {
		a.Update(dt)
		a.SchedulePhysics(nil, dt, striker)
		strikes = a.DrainStrikes(strikes)
	}
	if len(strikes) != 1 || !a.IsAttacking() {
		t.Fatalf("first attack: strikes=%d attacking=%v", len(strikes), a.IsAttacking())
	}

	// Re-issue while the first whip is still in flight.
	if !a.InitiateAttack(strikeAt, false) {
		t.Fatal("re-issued attack rejected")
	}
	strikes = strikes[:0]
	for i := 0; i < 60 && a.IsAttacking(); i++ {
		a.Update(dt)
		a.SchedulePhysics(nil, dt, striker)
		strikes = a.DrainStrikes(strikes)
	}
	if a.IsAttacking() {
		t.Fatal("attack never finished")
	}
	if len(strikes) != 1 {
		t.Errorf("second attack strikes = %d, want 1", len(strikes))
	}
	if got, ok := a.GripTarget(); !ok || got != hold || a.Mode() != ModeReaching {
		t.Errorf("after attack: mode=%v target=%v, want reaching back to %v", a.Mode(), got, hold)
	}
}

func TestAttackWithoutGripSearchesAfter(t *testing.T) {
	host := &stubHost{anchor: r2.Vec{Y: 5}}
	a := newTest(t, empty{}, host, 1)

	a.InitiateAttack(r2.Vec{X: 5, Y: 5}, true)
	for i := 0; i < 60 && a.IsAttacking(); i++ {
		step(a)
	}
	if a.Mode() != ModeSearchingPostAttack {
		t.Fatalf("mode = %v, want post-attack search", a.Mode())
	}
	for i := 0; i < 20 && a.Mode() == ModeSearchingPostAttack; i++ {
		step(a)
	}
	if a.Mode() != ModeHanging {
		t.Errorf("mode = %v, want hanging after failed post-attack search", a.Mode())
	}
}

func TestAttackWithoutSearchHangs(t *testing.T) {
	host := &stubHost{anchor: r2.Vec{Y: 5}}
	a := newTest(t, empty{}, host, 1)

	a.InitiateAttack(r2.Vec{X: 5, Y: 5}, false)
	for i := 0; i < 60 && a.IsAttacking(); i++ {
		step(a)
	}
	if a.Mode() != ModeHanging {
		t.Errorf("mode = %v, want hanging", a.Mode())
	}
}

type goExecutor struct{}

func (goExecutor) Submit(job func()) { go job() }

func TestParallelPhysicsJoin(t *testing.T) {
	host := &stubHost{anchor: r2.Vec{Y: 5}}
	var apps []*Appendage
	for i := 0; i < 8; i++ {
		apps = append(apps, newTest(t, floor{Y: 10}, host, int64(i)))
	}

	for n := 0; n < 30; n++ {
		for _, a := range apps {
			a.Update(dt)
		}
		for _, a := range apps {
			a.SchedulePhysics(goExecutor{}, dt, nil)
		}
		for _, a := range apps {
			pts := a.Points()
			if pts[0].Pos != host.anchor {
				t.Fatalf("anchor %v not pinned", pts[0].Pos)
			}
		}
	}
}
