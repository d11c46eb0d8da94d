package games

import (
	"fmt"
	"strings"

	"github.com/MJE43/playdeck/internal/engine"
)

// Choice is a Rock-Paper-Scissors hand.
type Choice string

const (
	Rock     Choice = "rock"
	Paper    Choice = "paper"
	Scissors Choice = "scissors"
)

var choices = [...]Choice{Rock, Paper, Scissors}

// ParseChoice accepts a choice name in any case.
func ParseChoice(s string) (Choice, error) {
	c := Choice(strings.ToLower(strings.TrimSpace(s)))
	switch c {
	case Rock, Paper, Scissors:
		return c, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidChoice, s)
}

// Outcome is the result of one round from the player's side.
type Outcome string

const (
	PlayerWin   Outcome = "player_win"
	ComputerWin Outcome = "computer_win"
	Tie         Outcome = "tie"
)

// Message is the user-facing result line.
func (o Outcome) Message() string {
	switch o {
	case PlayerWin:
		return "You win!"
	case ComputerWin:
		return "Computer wins!"
	default:
		return "It's a tie!"
	}
}

// beats maps each choice to the one it defeats.
var beats = map[Choice]Choice{
	Rock:     Scissors,
	Paper:    Rock,
	Scissors: Paper,
}

// Decide resolves one (player, computer) pair.
func Decide(player, computer Choice) Outcome {
	switch {
	case player == computer:
		return Tie
	case beats[player] == computer:
		return PlayerWin
	default:
		return ComputerWin
	}
}

// Round is the most recent play.
type Round struct {
	Player   Choice  `json:"player"`
	Computer Choice  `json:"computer"`
	Outcome  Outcome `json:"outcome"`
}

// Score accumulates across rounds; no field ever decreases.
type Score struct {
	Player   int `json:"player"`
	Computer int `json:"computer"`
	Ties     int `json:"ties"`
	Rounds   int `json:"rounds"`
}

// RPS holds the last round and the running score.
type RPS struct {
	src   engine.Source
	Last  *Round
	Score Score
}

// NewRPS creates an engine drawing computer hands from src.
func NewRPS(src engine.Source) *RPS {
	return &RPS{src: src}
}

// Play draws the computer hand uniformly and scores the round.
func (g *RPS) Play(player Choice) Round {
	computer := choices[engine.RandomInt(g.src, 0, len(choices)-1)]
	r := Round{Player: player, Computer: computer, Outcome: Decide(player, computer)}

	switch r.Outcome {
	case PlayerWin:
		g.Score.Player++
	case ComputerWin:
		g.Score.Computer++
	default:
		g.Score.Ties++
	}
	g.Score.Rounds++
	g.Last = &r
	return r
}
