package games

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/MJE43/playdeck/internal/engine"
)

const (
	GuessMin = 1
	GuessMax = 100
)

// QuickPicks are the one-click guesses offered next to the input box.
var QuickPicks = []int{1, 25, 50, 75, 100}

const (
	guessIntro      = "Guess a number between 1 and 100!"
	guessTooLow     = "📈 Too low! Try a higher number."
	guessTooHigh    = "📉 Too high! Try a lower number."
	guessOutOfRange = "Please enter a number between 1 and 100!"
	guessNotNumber  = "Please enter a valid number!"
)

// Guess is one number-guessing session.
type Guess struct {
	src      engine.Source
	target   int
	Attempts int
	Message  string
	Over     bool
	Input    string
}

// NewGuess creates a session and draws its first target.
func NewGuess(src engine.Source) *Guess {
	g := &Guess{src: src}
	g.NewGame()
	return g
}

// NewGame draws a fresh target and zeroes the session.
func (g *Guess) NewGame() {
	g.target = engine.RandomInt(g.src, GuessMin, GuessMax)
	g.Attempts = 0
	g.Message = guessIntro
	g.Over = false
	g.Input = ""
}

// Target exposes the hidden number. Snapshots only reveal it once the game is over.
func (g *Guess) Target() int { return g.target }

// SetInput replaces the pending input buffer.
func (g *Guess) SetInput(s string) {
	if g.Over {
		return
	}
	g.Input = s
}

// Submit parses the pending input buffer as a guess.
func (g *Guess) Submit() { g.SubmitGuess(g.Input) }

// SubmitGuess parses raw and scores it. Malformed or out-of-range input only
// sets a message; attempts and target are untouched. The input buffer is
// cleared in every case.
func (g *Guess) SubmitGuess(raw string) {
	if g.Over {
		return
	}
	g.Input = ""

	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 32)
	if err != nil {
		g.Message = guessNotNumber
		return
	}
	if n < GuessMin || n > GuessMax {
		g.Message = guessOutOfRange
		return
	}
	g.score(int(n))
}

// GuessNumber scores n without range validation. Quick picks are in range by construction.
func (g *Guess) GuessNumber(n int) {
	if g.Over {
		return
	}
	g.Input = ""
	g.score(n)
}

func (g *Guess) score(n int) {
	g.Attempts++
	switch {
	case n == g.target:
		g.Over = true
		g.Message = fmt.Sprintf("🎉 Correct! You found %d in %d attempts!", g.target, g.Attempts)
	case n < g.target:
		g.Message = guessTooLow
	default:
		g.Message = guessTooHigh
	}
}
