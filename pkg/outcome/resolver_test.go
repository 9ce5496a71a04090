package outcome

import (
	"errors"
	"math/rand"
	"testing"
)

func TestResolve_FixedTiers(t *testing.T) {
	r := NewResolver(rand.New(rand.NewSource(1)))

	for i := 0; i < 50; i++ {
		ok, err := r.Resolve(OddsAccept)
		if err != nil {
			t.Fatalf("Resolve(Accept) failed: %v", err)
		}
		if !ok {
			t.Fatal("Accept must always succeed")
		}

		ok, err = r.Resolve(OddsImpossible)
		if err != nil {
			t.Fatalf("Resolve(Impossible) failed: %v", err)
		}
		if ok {
			t.Fatal("Impossible must always fail")
		}
	}
}

func TestResolve_InvalidOdds(t *testing.T) {
	r := NewResolver(rand.New(rand.NewSource(1)))
	if _, err := r.Resolve("Tricky"); !errors.Is(err, ErrInvalidOdds) {
		t.Errorf("Expected ErrInvalidOdds, got %v", err)
	}
	if _, err := r.Resolve(""); !errors.Is(err, ErrInvalidOdds) {
		t.Errorf("Expected ErrInvalidOdds, got %v", err)
	}
}

func TestResolve_SeededDeterminism(t *testing.T) {
	a := NewResolver(rand.New(rand.NewSource(7)))
	b := NewResolver(rand.New(rand.NewSource(7)))

	for i := 0; i < 20; i++ {
		ra, _ := a.Resolve(OddsMedium)
		rb, _ := b.Resolve(OddsMedium)
		if ra != rb {
			t.Fatalf("Same seed diverged at draw %d", i)
		}
	}
}

func TestProbability_Monotonic(t *testing.T) {
	order := []string{OddsImpossible, OddsDifficult, OddsMedium, OddsEasy, OddsAccept}
	prev := -1.0
	for _, odds := range order {
		p, err := Probability(odds)
		if err != nil {
			t.Fatalf("Probability(%s) failed: %v", odds, err)
		}
		if p <= prev {
			t.Errorf("Probability not increasing at %s: %f <= %f", odds, p, prev)
		}
		prev = p
	}
}

func TestResolve_RoughDistribution(t *testing.T) {
	r := NewResolver(rand.New(rand.NewSource(99)))

	successes := 0
	const draws = 2000
	for i := 0; i < draws; i++ {
		ok, err := r.Resolve(OddsEasy)
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if ok {
			successes++
		}
	}

	rate := float64(successes) / draws
	if rate < 0.68 || rate > 0.82 {
		t.Errorf("Easy success rate %f far from 0.75", rate)
	}
}
