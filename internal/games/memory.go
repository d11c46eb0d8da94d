package games

import (
	"fmt"

	"github.com/MJE43/playdeck/internal/engine"
)

const memoryPairs = 8

var memorySymbols = [memoryPairs]string{"🐶", "🐱", "🐭", "🐹", "🐰", "🦊", "🐻", "🐼"}

// Phase is the memory game's lifecycle state.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhasePlaying Phase = "playing"
	PhaseWon     Phase = "won"
)

// Card is one board position.
type Card struct {
	Symbol   string `json:"symbol"`
	Revealed bool   `json:"revealed"`
	Matched  bool   `json:"matched"`
}

// Memory is a paired-card matching session.
//
// A mismatched pair stays face up until the next selection or an explicit
// Clear, so at most two unmatched cards are ever revealed when a third
// selection starts.
type Memory struct {
	src           engine.Source
	Board         []Card
	Moves         int
	Matches       int
	First         *int
	Second        *int
	AwaitingClear bool
}

// NewMemory creates an idle session; call Start to deal.
func NewMemory(src engine.Source) *Memory {
	return &Memory{src: src}
}

// Phase derives the lifecycle state from the board.
func (m *Memory) Phase() Phase {
	switch {
	case m.Board == nil:
		return PhaseIdle
	case m.Matches >= memoryPairs:
		return PhaseWon
	default:
		return PhasePlaying
	}
}

// Over reports whether every pair has been matched.
func (m *Memory) Over() bool { return m.Phase() == PhaseWon }

// WonMessage is the banner shown once the board is cleared.
func (m *Memory) WonMessage() string {
	if !m.Over() {
		return ""
	}
	return fmt.Sprintf("🎉 You won in %d moves!", m.Moves)
}

// Start deals a freshly shuffled board and zeroes all counters.
func (m *Memory) Start() {
	m.deal(m.shuffledBoard())
}

func (m *Memory) deal(board []Card) {
	m.Board = board
	m.Moves = 0
	m.Matches = 0
	m.First = nil
	m.Second = nil
	m.AwaitingClear = false
}

// shuffledBoard builds both copies of every symbol and applies a
// Fisher-Yates shuffle, drawing j from [0, i] for each i from the end down.
func (m *Memory) shuffledBoard() []Card {
	board := make([]Card, 0, memoryPairs*2)
	for _, s := range memorySymbols {
		board = append(board, Card{Symbol: s}, Card{Symbol: s})
	}
	for i := len(board) - 1; i > 0; i-- {
		j := engine.RandomInt(m.src, 0, i)
		board[i], board[j] = board[j], board[i]
	}
	return board
}

// Select plays the card at index. Selecting a card that is already revealed
// or matched is a no-op. Selecting with no board or outside it is an error.
func (m *Memory) Select(index int) error {
	if m.Board == nil {
		return ErrNoBoard
	}
	if index < 0 || index >= len(m.Board) {
		return &CardIndexError{Index: index, Size: len(m.Board)}
	}
	if c := m.Board[index]; c.Revealed || c.Matched {
		return nil
	}

	if m.AwaitingClear {
		m.hidePair()
	}

	m.Board[index].Revealed = true

	if m.First == nil {
		m.First = &index
		return nil
	}

	m.Second = &index
	m.Moves++

	first, second := &m.Board[*m.First], &m.Board[index]
	if first.Symbol == second.Symbol {
		first.Matched = true
		second.Matched = true
		m.Matches++
		m.First, m.Second = nil, nil
		return nil
	}

	m.AwaitingClear = true
	return nil
}

// Clear hides a mismatched pair still on display. It does nothing when no
// pair is waiting, so a lone first selection survives.
func (m *Memory) Clear() error {
	if m.Board == nil {
		return ErrNoBoard
	}
	if m.AwaitingClear {
		m.hidePair()
	}
	return nil
}

func (m *Memory) hidePair() {
	for _, idx := range []*int{m.First, m.Second} {
		if idx == nil {
			continue
		}
		if c := &m.Board[*idx]; !c.Matched {
			c.Revealed = false
		}
	}
	m.First, m.Second = nil, nil
	m.AwaitingClear = false
}

// Reset discards the board and returns to idle.
func (m *Memory) Reset() {
	m.deal(nil)
}
