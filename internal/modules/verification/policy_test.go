package verification

import (
	"testing"
	"time"
)

func TestEvaluate(t *testing.T) {
	p := Policy{Probability: 0.15, MinCompleted: 5, After: 45 * time.Second}
	since := time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC)
	due := since.Add(45 * time.Second)

	tests := []struct {
		name  string
		state State
		now   time.Time
		draw  float64
		want  Decision
		draws int
	}{
		{"offline", State{Online: false, OnlineSince: since, CompletedToday: 9}, due, 0, NotYet, 0},
		{"too early", State{Online: true, OnlineSince: since, CompletedToday: 9}, due.Add(-time.Second), 0, NotYet, 0},
		{"already evaluated", State{Online: true, OnlineSince: since, CompletedToday: 9, Evaluated: true}, due, 0, NotYet, 0},
		{"not enough deliveries", State{Online: true, OnlineSince: since, CompletedToday: 5}, due, 0, Skip, 0},
		{"draw below probability", State{Online: true, OnlineSince: since, CompletedToday: 6}, due, 0.1, Prompt, 1},
		{"draw at probability", State{Online: true, OnlineSince: since, CompletedToday: 6}, due, 0.15, Skip, 1},
		{"draw above probability", State{Online: true, OnlineSince: since, CompletedToday: 6}, due, 0.9, Skip, 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			draws := 0
			got := p.Evaluate(tc.state, tc.now, func() float64 {
				draws++
				return tc.draw
			})
			if got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
			if draws != tc.draws {
				t.Fatalf("expected %d draws, got %d", tc.draws, draws)
			}
		})
	}
}

func TestZeroProbabilityNeverPrompts(t *testing.T) {
	p := Policy{Probability: 0, MinCompleted: 0, After: 0}
	s := State{Online: true, CompletedToday: 10}
	if got := p.Evaluate(s, time.Now(), func() float64 { return 0 }); got != Skip {
		t.Fatalf("expected Skip, got %v", got)
	}
}
