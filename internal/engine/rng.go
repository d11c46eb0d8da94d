package engine

import (
	"crypto/hmac"
	cryptorand "crypto/rand"
	"crypto/sha256"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"sync"
)

// Source produces uniformly distributed integers in [0, n).
// Every game engine draws through a Source so tests and replays can pin the outcome.
type Source interface {
	IntN(n int) int
}

// RandomInt draws uniformly from the inclusive range [lo, hi].
// A collapsed or inverted range always yields lo.
func RandomInt(src Source, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + src.IntN(hi-lo+1)
}

// systemSource is a ChaCha8 stream keyed from the OS entropy pool.
type systemSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSource returns a non-replayable source for interactive play.
func NewSource() Source {
	var seed [32]byte
	if _, err := cryptorand.Read(seed[:]); err != nil {
		// crypto/rand only fails on broken platforms; fall back to the runtime seed.
		return &systemSource{rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}
	}
	return &systemSource{rng: rand.New(rand.NewChaCha8(seed))}
}

func (s *systemSource) IntN(n int) int {
	if n <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n)
}

// ByteGenerator streams HMAC-SHA256 bytes keyed by a server seed over
// "client:nonce:round" messages. The same seeds always give the same stream.
type ByteGenerator struct {
	serverSeed   string
	clientSeed   string
	nonce        uint64
	currentRound uint64
	currentPos   int
	buffer       [32]byte
}

// NewByteGenerator creates a generator positioned at cursor bytes into the stream.
func NewByteGenerator(serverSeed, clientSeed string, nonce uint64, cursor uint64) *ByteGenerator {
	bg := &ByteGenerator{
		serverSeed:   serverSeed,
		clientSeed:   clientSeed,
		nonce:        nonce,
		currentRound: cursor / 32,
		currentPos:   int(cursor % 32),
	}
	bg.generateRound()
	return bg
}

// Next returns the next byte from the generator.
func (bg *ByteGenerator) Next() byte {
	if bg.currentPos >= 32 {
		bg.currentRound++
		bg.currentPos = 0
		bg.generateRound()
	}

	b := bg.buffer[bg.currentPos]
	bg.currentPos++
	return b
}

// NextFloat consumes exactly 4 bytes and returns a float in [0, 1).
func (bg *ByteGenerator) NextFloat() float64 {
	return bytesToFloat([4]byte{bg.Next(), bg.Next(), bg.Next(), bg.Next()})
}

func (bg *ByteGenerator) generateRound() {
	h := hmac.New(sha256.New, []byte(bg.serverSeed))
	fmt.Fprintf(h, "%s:%d:%d", bg.clientSeed, bg.nonce, bg.currentRound)
	copy(bg.buffer[:], h.Sum(nil))
}

func bytesToFloat(bytes [4]byte) float64 {
	result := 0.0
	for i, b := range bytes {
		result += float64(b) / math.Pow(256, float64(i+1))
	}
	return result
}

// SeededSource is a replayable Source: every draw consumes one float of the
// HMAC stream, so a recorded seed pair reproduces a whole session.
type SeededSource struct {
	mu  sync.Mutex
	gen *ByteGenerator
}

// NewSeededSource starts a replayable stream at the given nonce.
func NewSeededSource(serverSeed, clientSeed string, nonce uint64) *SeededSource {
	return &SeededSource{gen: NewByteGenerator(serverSeed, clientSeed, nonce, 0)}
}

// IntN maps the next stream float onto [0, n).
func (s *SeededSource) IntN(n int) int {
	if n <= 0 {
		return 0
	}
	s.mu.Lock()
	f := s.gen.NextFloat()
	s.mu.Unlock()

	v := int(math.Floor(f * float64(n)))
	if v >= n {
		v = n - 1
	}
	return v
}

// ParseSeed splits a "server:client" pair. The client part may be empty.
func ParseSeed(pair string) (server, client string, err error) {
	pair = strings.TrimSpace(pair)
	if pair == "" {
		return "", "", fmt.Errorf("engine: empty seed")
	}
	server, client, _ = strings.Cut(pair, ":")
	if server == "" {
		return "", "", fmt.Errorf("engine: seed %q has no server part", pair)
	}
	return server, client, nil
}

// SequenceSource replays a fixed list of draws, wrapping around at the end.
// Each value is reduced modulo n, so a scripted value always lands in range.
type SequenceSource struct {
	mu     sync.Mutex
	values []int
	pos    int
}

// NewSequenceSource builds a SequenceSource. With no values it always returns 0.
func NewSequenceSource(values ...int) *SequenceSource {
	return &SequenceSource{values: values}
}

func (s *SequenceSource) IntN(n int) int {
	if n <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.values) == 0 {
		return 0
	}
	v := s.values[s.pos%len(s.values)]
	s.pos++
	v %= n
	if v < 0 {
		v += n
	}
	return v
}

// Draws reports how many values have been consumed.
func (s *SequenceSource) Draws() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos
}
