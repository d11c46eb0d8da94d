package games

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidChoice is returned when a string does not name an RPS choice.
	ErrInvalidChoice = errors.New("games: invalid choice")
	// ErrNoBoard is returned when a memory action needs a board and none is dealt.
	ErrNoBoard = errors.New("games: no memory board")
	// ErrCardOutOfRange is wrapped by CardIndexError.
	ErrCardOutOfRange = errors.New("games: card index out of range")
)

// CardIndexError reports a selection outside the dealt board.
type CardIndexError struct {
	Index int
	Size  int
}

func (e *CardIndexError) Error() string {
	return fmt.Sprintf("games: card index %d out of range [0, %d)", e.Index, e.Size)
}

func (e *CardIndexError) Unwrap() error { return ErrCardOutOfRange }

// GameSpec describes a playable game for catalogue listings.
type GameSpec struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Intents     []string `json:"intents"`
}

// ListGames returns the catalogue in display order.
func ListGames() []GameSpec {
	return []GameSpec{
		{
			ID:          "rps",
			Name:        "Rock Paper Scissors",
			Description: "Pick rock, paper or scissors against a random computer hand.",
			Intents:     []string{"rps.play"},
		},
		{
			ID:          "guess",
			Name:        "Number Guessing",
			Description: fmt.Sprintf("Find the hidden number between %d and %d.", GuessMin, GuessMax),
			Intents:     []string{"guess.input", "guess.submit", "guess.pick", "guess.new"},
		},
		{
			ID:          "memory",
			Name:        "Memory Match",
			Description: fmt.Sprintf("Match all %d pairs on a %d-card board.", memoryPairs, memoryPairs*2),
			Intents:     []string{"memory.start", "memory.select", "memory.clear", "memory.reset"},
		},
	}
}
