package stamina

import (
	"testing"

	"wayfare-backend/internal/planning/domain"
)

func testPolicy() domain.Policy {
	var p domain.Policy
	p.Pacing.HpMax = 100
	p.Pacing.RegenRatePerHour = 0.5
	p.Pacing.ForcedRestIntervalMin = 150
	p.Pacing.ContinuousWalkCapMin = 60
	p.Derived.GroupMobilityWorst = domain.MobilityCityPotato
	return p
}

func TestApplyTravelFatigueClampsToZero(t *testing.T) {
	p := testPolicy()
	s := &State{Hp: 5}
	ApplyTravelFatigue(p, s, TravelLoad{WalkMin: 100}, 120)
	if s.Hp != 0 {
		t.Errorf("Hp = %v, want 0 (clamped)", s.Hp)
	}
	if s.LastBreakAtMin != 120 {
		t.Errorf("LastBreakAtMin = %v, want 120", s.LastBreakAtMin)
	}
}

func TestApplyTravelFatigueContinuousPenalty(t *testing.T) {
	p := testPolicy()
	params := ParamsFor(p.Derived.GroupMobilityWorst)

	short := &State{Hp: 100}
	ApplyTravelFatigue(p, short, TravelLoad{WalkMin: 30}, 30)
	wantShort := 100 - 30*params.WalkHpPerMin
	if short.Hp != wantShort {
		t.Errorf("short walk Hp = %v, want %v", short.Hp, wantShort)
	}

	long := &State{Hp: 100}
	ApplyTravelFatigue(p, long, TravelLoad{WalkMin: 90}, 90)
	wantLong := 100 - 90*params.WalkHpPerMin*params.ContinuousPenalty
	if long.Hp != wantLong {
		t.Errorf("long walk Hp = %v, want %v", long.Hp, wantLong)
	}
}

func TestApplyRestRecoveryClampsToMax(t *testing.T) {
	p := testPolicy()
	s := &State{Hp: 95}
	ApplyRestRecovery(p, s, 60, 200, 0)
	if s.Hp != 100 {
		t.Errorf("Hp = %v, want 100 (clamped)", s.Hp)
	}
	if s.LastRestAtMin != 200 || s.LastBreakAtMin != 200 {
		t.Errorf("rest timers not reset: %+v", s)
	}
}

func TestRestNeededByInterval(t *testing.T) {
	p := testPolicy()
	s := State{LastRestAtMin: 0}
	if !RestNeeded(p, 80, 160, s) {
		t.Errorf("expected forced rest after interval elapsed")
	}
}

func TestRestNeededByHpFloor(t *testing.T) {
	p := testPolicy()
	s := State{LastRestAtMin: 100}
	if !RestNeeded(p, 20, 110, s) {
		t.Errorf("expected forced rest below HP floor")
	}
	if RestNeeded(p, 50, 110, s) {
		t.Errorf("expected no forced rest with ample HP and time")
	}
}
