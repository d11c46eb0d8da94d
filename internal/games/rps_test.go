package games

import (
	"errors"
	"testing"

	"github.com/MJE43/playdeck/internal/engine"
)

func TestDecideAllPairs(t *testing.T) {
	tests := []struct {
		player, computer Choice
		want             Outcome
	}{
		{Rock, Rock, Tie},
		{Rock, Paper, ComputerWin},
		{Rock, Scissors, PlayerWin},
		{Paper, Rock, PlayerWin},
		{Paper, Paper, Tie},
		{Paper, Scissors, ComputerWin},
		{Scissors, Rock, ComputerWin},
		{Scissors, Paper, PlayerWin},
		{Scissors, Scissors, Tie},
	}

	counts := map[Outcome]int{}
	for _, tt := range tests {
		got := Decide(tt.player, tt.computer)
		if got != tt.want {
			t.Errorf("Decide(%s, %s) = %s, want %s", tt.player, tt.computer, got, tt.want)
		}
		counts[got]++
	}
	for _, o := range []Outcome{PlayerWin, ComputerWin, Tie} {
		if counts[o] != 3 {
			t.Errorf("outcome %s appears %d times, want 3", o, counts[o])
		}
	}
}

func TestPlayUsesSourceForComputerHand(t *testing.T) {
	// Draws 0, 1, 2 select rock, paper, scissors in that order.
	g := NewRPS(engine.NewSequenceSource(0, 1, 2))

	r := g.Play(Paper)
	if r.Computer != Rock || r.Outcome != PlayerWin {
		t.Errorf("round 1 = %+v, want computer rock, player win", r)
	}
	r = g.Play(Paper)
	if r.Computer != Paper || r.Outcome != Tie {
		t.Errorf("round 2 = %+v, want computer paper, tie", r)
	}
	r = g.Play(Paper)
	if r.Computer != Scissors || r.Outcome != ComputerWin {
		t.Errorf("round 3 = %+v, want computer scissors, computer win", r)
	}

	want := Score{Player: 1, Computer: 1, Ties: 1, Rounds: 3}
	if g.Score != want {
		t.Errorf("Score = %+v, want %+v", g.Score, want)
	}
	if g.Last == nil || *g.Last != r {
		t.Errorf("Last = %v, want %+v", g.Last, r)
	}
}

func TestScoreNeverDecreases(t *testing.T) {
	g := NewRPS(engine.NewSeededSource("rps", "score", 0))
	hands := []Choice{Rock, Paper, Scissors}
	prev := g.Score
	for i := 0; i < 300; i++ {
		g.Play(hands[i%3])
		s := g.Score
		if s.Player < prev.Player || s.Computer < prev.Computer || s.Ties < prev.Ties {
			t.Fatalf("score decreased at round %d: %+v -> %+v", i, prev, s)
		}
		if s.Player+s.Computer+s.Ties != s.Rounds {
			t.Fatalf("score %+v does not sum to rounds", s)
		}
		if s.Player+s.Computer > i+1 {
			t.Fatalf("wins %d exceed plays %d", s.Player+s.Computer, i+1)
		}
		prev = s
	}
}

func TestParseChoice(t *testing.T) {
	for _, in := range []string{"rock", "Paper", " SCISSORS "} {
		if _, err := ParseChoice(in); err != nil {
			t.Errorf("ParseChoice(%q) unexpected error: %v", in, err)
		}
	}
	for _, in := range []string{"", "lizard", "rocks"} {
		_, err := ParseChoice(in)
		if !errors.Is(err, ErrInvalidChoice) {
			t.Errorf("ParseChoice(%q) error = %v, want ErrInvalidChoice", in, err)
		}
	}
}

func TestOutcomeMessage(t *testing.T) {
	if PlayerWin.Message() != "You win!" || ComputerWin.Message() != "Computer wins!" || Tie.Message() != "It's a tie!" {
		t.Error("unexpected outcome messages")
	}
}
