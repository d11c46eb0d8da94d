// Package app owns the interaction core: the route, the counter, the gallery
// pipeline and the three game engines, mutated only through intents.
package app

import (
	"fmt"
	"log/slog"

	"github.com/MJE43/playdeck/internal/counter"
	"github.com/MJE43/playdeck/internal/engine"
	"github.com/MJE43/playdeck/internal/gallery"
	"github.com/MJE43/playdeck/internal/games"
)

// Event kinds emitted by Dispatch for the activity journal.
const (
	EventRoundPlayed   = "rps.round"
	EventGuessWon      = "guess.won"
	EventMemoryWon     = "memory.won"
	EventGalleryReady  = "gallery.ready"
	EventBatchMerged   = "gallery.merged"
	EventImageFailed   = "gallery.load_failed"
	EventRouteNotFound = "route.not_found"
)

// Event is a notable domain outcome of one intent.
type Event struct {
	Kind    string `json:"kind"`
	Summary string `json:"summary"`
	Payload any    `json:"payload,omitempty"`
}

// Effects are the instructions an intent leaves for the caller: loads for the
// image collaborator and events for the journal.
type Effects struct {
	Loads  []gallery.LoadRequest
	Events []Event
}

func (e *Effects) event(kind, summary string, payload any) {
	e.Events = append(e.Events, Event{Kind: kind, Summary: summary, Payload: payload})
}

// Options configures a Container.
type Options struct {
	// Source feeds every game. Defaults to engine.NewSource().
	Source  engine.Source
	Gallery gallery.Options
	Logger  *slog.Logger
}

// Container is the single mutation point of application state. It is not
// safe for concurrent use; Runtime serializes access to it.
type Container struct {
	log *slog.Logger

	route         Route
	requestedHash string
	counter       counter.Counter
	gallery       *gallery.Pipeline
	rps           *games.RPS
	guess         *games.Guess
	memory        *games.Memory
	version       uint64
}

// NewContainer builds the initial state: home route, zero counter, empty
// gallery, a guessing session with a drawn target and an idle memory board.
func NewContainer(opts Options) *Container {
	if opts.Source == nil {
		opts.Source = engine.NewSource()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Gallery.Logger == nil {
		opts.Gallery.Logger = opts.Logger
	}
	return &Container{
		log:     opts.Logger.With("component", "container"),
		route:   RouteHome,
		gallery: gallery.New(opts.Gallery),
		rps:     games.NewRPS(opts.Source),
		guess:   games.NewGuess(opts.Source),
		memory:  games.NewMemory(opts.Source),
	}
}

// Dispatch applies one intent. A returned error means the intent was rejected
// and state is unchanged.
func (c *Container) Dispatch(in Intent) (Effects, error) {
	var fx Effects
	var err error

	switch in := in.(type) {
	case CounterIncrement:
		c.counter.Increment()
	case CounterDecrement:
		c.counter.Decrement()
	case CounterReset:
		c.counter.Reset()
	case CounterDouble:
		c.counter.Double()
	case CounterHalve:
		c.counter.Halve()
	case CounterDivideByZero:
		err = c.counter.DivideByZero()

	case Navigate:
		c.setRoute(in.Route, in.Route.Hash(), &fx)
	case URLChanged:
		c.setRoute(RouteFromHash(in.Hash), in.Hash, &fx)

	case GalleryAdvance:
		fx.Loads = c.gallery.Advance()
	case ImageLoaded:
		c.imageLoaded(in, &fx)

	case RPSPlay:
		r := c.rps.Play(in.Choice)
		fx.event(EventRoundPlayed,
			fmt.Sprintf("%s vs %s: %s", r.Player, r.Computer, r.Outcome.Message()),
			map[string]any{"round": r, "score": c.rps.Score})

	case GuessInput:
		c.guess.SetInput(in.Value)
	case GuessSubmit:
		c.afterGuess(c.guess.Submit, &fx)
	case GuessPick:
		c.afterGuess(func() { c.guess.GuessNumber(in.Value) }, &fx)
	case GuessNew:
		c.guess.NewGame()

	case MemoryStart:
		c.memory.Start()
	case MemorySelect:
		wasOver := c.memory.Over()
		if err = c.memory.Select(in.Index); err == nil && !wasOver && c.memory.Over() {
			fx.event(EventMemoryWon, c.memory.WonMessage(),
				map[string]any{"moves": c.memory.Moves, "matches": c.memory.Matches})
		}
	case MemoryClear:
		err = c.memory.Clear()
	case MemoryReset:
		c.memory.Reset()

	default:
		err = fmt.Errorf("%w: %T", ErrUnknownIntent, in)
	}

	if err != nil {
		c.log.Debug("intent rejected", "kind", kindOf(in), "error", err)
		return Effects{}, err
	}
	c.version++
	return fx, nil
}

func kindOf(in Intent) string {
	if in == nil {
		return "<nil>"
	}
	return in.Kind()
}

func (c *Container) setRoute(r Route, hash string, fx *Effects) {
	c.route = r
	c.requestedHash = ""
	if r == RouteNotFound {
		c.requestedHash = hash
		fx.event(EventRouteNotFound, "unknown route "+hash, map[string]any{"hash": hash})
	}
}

func (c *Container) imageLoaded(in ImageLoaded, fx *Effects) {
	res := c.gallery.Complete(in.BatchID, in.Index, in.Err)
	if !res.Counted {
		return
	}
	if res.Failed {
		fx.event(EventImageFailed, in.Err.Error(),
			map[string]any{"batchId": in.BatchID, "index": in.Index})
	}
	if res.Ready {
		fx.event(EventGalleryReady, fmt.Sprintf("initial batch of %d ready", c.gallery.Len()),
			map[string]any{"batchId": in.BatchID, "size": c.gallery.Len()})
	}
	if res.Merged > 0 {
		fx.event(EventBatchMerged, fmt.Sprintf("merged %d images, %d total", res.Merged, c.gallery.Len()),
			map[string]any{"batchId": in.BatchID, "merged": res.Merged, "total": c.gallery.Len()})
	}
}

func (c *Container) afterGuess(guess func(), fx *Effects) {
	wasOver := c.guess.Over
	guess()
	if !wasOver && c.guess.Over {
		fx.event(EventGuessWon, c.guess.Message,
			map[string]any{"target": c.guess.Target(), "attempts": c.guess.Attempts})
	}
}

// Route is the active screen.
func (c *Container) Route() Route { return c.route }

// Version counts accepted intents.
func (c *Container) Version() uint64 { return c.version }
