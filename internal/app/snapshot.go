package app

import (
	"github.com/MJE43/playdeck/internal/gallery"
	"github.com/MJE43/playdeck/internal/games"
)

// Snapshot is the renderer's view of the whole state. It shares no memory
// with the container.
type Snapshot struct {
	Session    string        `json:"session,omitempty"`
	Version    uint64        `json:"version"`
	Route      Route         `json:"route"`
	Hash       string        `json:"hash"`
	Requested  string        `json:"requested,omitempty"`
	Suggestion Route         `json:"suggestion,omitempty"`
	Counter    string        `json:"counter"`
	Gallery    gallery.State `json:"gallery"`
	RPS        RPSView       `json:"rps"`
	Guess      GuessView     `json:"guess"`
	Memory     MemoryView    `json:"memory"`
}

type RPSView struct {
	Last   *games.Round `json:"last,omitempty"`
	Result string       `json:"result,omitempty"`
	Score  games.Score  `json:"score"`
}

type GuessView struct {
	Attempts   int    `json:"attempts"`
	Message    string `json:"message"`
	Over       bool   `json:"over"`
	Input      string `json:"input"`
	Target     *int   `json:"target,omitempty"`
	QuickPicks []int  `json:"quickPicks"`
}

// MemoryView hides the symbol of every face-down card.
type MemoryView struct {
	Phase         games.Phase  `json:"phase"`
	Cards         []games.Card `json:"cards"`
	Moves         int          `json:"moves"`
	Matches       int          `json:"matches"`
	AwaitingClear bool         `json:"awaitingClear"`
	Message       string       `json:"message,omitempty"`
}

// Snapshot copies the current state.
func (c *Container) Snapshot() Snapshot {
	s := Snapshot{
		Version: c.version,
		Route:   c.route,
		Hash:    c.route.Hash(),
		Counter: c.counter.String(),
		Gallery: c.gallery.State(),
	}
	if c.route == RouteNotFound && c.requestedHash != "" {
		s.Requested = c.requestedHash
		if r, ok := SuggestRoute(c.requestedHash); ok {
			s.Suggestion = r
		}
	}

	s.RPS.Score = c.rps.Score
	if c.rps.Last != nil {
		last := *c.rps.Last
		s.RPS.Last = &last
		s.RPS.Result = last.Outcome.Message()
	}

	g := c.guess
	s.Guess = GuessView{
		Attempts:   g.Attempts,
		Message:    g.Message,
		Over:       g.Over,
		Input:      g.Input,
		QuickPicks: append([]int(nil), games.QuickPicks...),
	}
	if g.Over {
		target := g.Target()
		s.Guess.Target = &target
	}

	m := c.memory
	s.Memory = MemoryView{
		Phase:         m.Phase(),
		Moves:         m.Moves,
		Matches:       m.Matches,
		AwaitingClear: m.AwaitingClear,
		Message:       m.WonMessage(),
	}
	if m.Board != nil {
		s.Memory.Cards = make([]games.Card, len(m.Board))
		for i, card := range m.Board {
			if !card.Revealed && !card.Matched {
				card.Symbol = ""
			}
			s.Memory.Cards[i] = card
		}
	}
	return s
}
