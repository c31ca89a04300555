package ranking

import (
	"testing"

	"wayfare-backend/internal/planning/domain"
)

func affinityPolicy() domain.Policy {
	var p domain.Policy
	p.Soft.TagAffinity = map[string]float64{"museum": 0.8, "nature": 0.5}
	p.Soft.MustSeeBoost = 5
	p.Soft.OvertimePenaltyPerMin = 2
	return p
}

func TestInterestScoreSumsTags(t *testing.T) {
	p := affinityPolicy()
	poi := &domain.Poi{Tags: []string{"museum", "nature"}}
	got := InterestScore(poi, p, false)
	if got != 1.3 {
		t.Errorf("InterestScore = %v, want 1.3", got)
	}
}

func TestInterestScoreMustSeeBoost(t *testing.T) {
	p := affinityPolicy()
	poi := &domain.Poi{Tags: []string{"museum"}}
	got := InterestScore(poi, p, true)
	if got != 0.8+5 {
		t.Errorf("InterestScore = %v, want %v", got, 0.8+5)
	}
}

func TestInterestScoreHalvedInRainWhenWeatherSensitive(t *testing.T) {
	p := affinityPolicy()
	p.Context.IsRaining = true
	outdoor := &domain.Poi{Tags: []string{"nature"}, WeatherSensitivity: 2}
	indoor := &domain.Poi{Tags: []string{"nature", "indoor"}, WeatherSensitivity: 2}

	gotOutdoor := InterestScore(outdoor, p, false)
	if gotOutdoor != 0.25 {
		t.Errorf("outdoor rained-on score = %v, want 0.25", gotOutdoor)
	}
	gotIndoor := InterestScore(indoor, p, false)
	if gotIndoor != 0.5 {
		t.Errorf("indoor-tagged score = %v, want 0.5 (not halved)", gotIndoor)
	}
}

func TestRankCandidatesOrdersByGainDescending(t *testing.T) {
	p := affinityPolicy()
	candidates := []Candidate{
		{Poi: &domain.Poi{Tags: []string{"museum"}}, TravelCost: 10},
		{Poi: &domain.Poi{Tags: []string{"museum"}}, TravelCost: 1},
	}
	scored := RankCandidates(candidates, p)
	if scored[0].Gain <= scored[1].Gain {
		t.Fatalf("expected descending gain order, got %v then %v", scored[0].Gain, scored[1].Gain)
	}
	if scored[0].Candidate.TravelCost != 1 {
		t.Errorf("expected cheaper candidate to win, got travel cost %v", scored[0].Candidate.TravelCost)
	}
}
