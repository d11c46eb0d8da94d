// Package gallery keeps an unbounded sequence of remote images browsable by
// materializing it in fixed-size batches and prefetching the next batch
// before the viewer reaches the end of the current one.
package gallery

import (
	"log/slog"

	"github.com/google/uuid"
)

const (
	DefaultBatchSize = 10
	DefaultLookahead = 2
)

// LoadRequest asks the image-loading collaborator to fetch one reference.
// The completion must be reported back with the same BatchID and Index.
type LoadRequest struct {
	BatchID uuid.UUID `json:"batchId"`
	Index   int       `json:"index"`
	URL     string    `json:"url"`
}

type batch struct {
	id     uuid.UUID
	urls   []string
	loaded []bool
	count  int
}

func newBatch(urls []string) *batch {
	return &batch{id: uuid.New(), urls: urls, loaded: make([]bool, len(urls))}
}

func (b *batch) done() bool { return b.count >= len(b.urls) }

func (b *batch) requests() []LoadRequest {
	reqs := make([]LoadRequest, len(b.urls))
	for i, u := range b.urls {
		reqs[i] = LoadRequest{BatchID: b.id, Index: i, URL: u}
	}
	return reqs
}

// Options configures a Pipeline. Zero values take the defaults.
type Options struct {
	BatchSize int
	Lookahead int
	Namer     *URLNamer
	Logger    *slog.Logger
}

// Pipeline is the gallery state machine. It is not safe for concurrent use;
// the owning container serializes every call.
type Pipeline struct {
	size      int
	lookahead int
	namer     *URLNamer
	log       *slog.Logger

	current         []string
	index           int
	loadingCurrent  bool
	initial         *batch
	next            *batch
	prefetchingNext bool
	totalEverLoaded int
	failed          int
}

// New creates an empty pipeline.
func New(opts Options) *Pipeline {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Lookahead <= 0 {
		opts.Lookahead = DefaultLookahead
	}
	if opts.Namer == nil {
		opts.Namer = NewURLNamer(DefaultBaseURL, nil)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Pipeline{
		size:      opts.BatchSize,
		lookahead: opts.Lookahead,
		namer:     opts.Namer,
		log:       opts.Logger.With("component", "gallery"),
	}
}

// Start discards any previous state, synthesizes the initial batch and marks
// the gallery as loading. Completions for older batches become stale.
func (p *Pipeline) Start() []LoadRequest {
	b := newBatch(p.namer.Batch(p.size))

	p.current = append([]string(nil), b.urls...)
	p.index = 0
	p.loadingCurrent = true
	p.initial = b
	p.next = nil
	p.prefetchingNext = false
	p.totalEverLoaded = len(b.urls)

	p.log.Debug("initial batch issued", "batch", b.id, "size", len(b.urls))
	return b.requests()
}

// Advance moves to the next image. On an empty gallery it starts the initial
// batch; while that batch is loading it does nothing. Reaching the look-ahead
// window with no prefetch running issues the next batch.
func (p *Pipeline) Advance() []LoadRequest {
	if len(p.current) == 0 {
		return p.Start()
	}
	if p.loadingCurrent {
		return nil
	}

	p.index = (p.index + 1) % len(p.current)

	if p.index >= len(p.current)-p.lookahead && !p.prefetchingNext {
		return p.prefetch()
	}
	return nil
}

func (p *Pipeline) prefetch() []LoadRequest {
	b := newBatch(p.namer.Batch(p.size))
	p.next = b
	p.prefetchingNext = true
	p.log.Debug("look-ahead prefetch issued", "batch", b.id, "index", p.index, "length", len(p.current))
	return b.requests()
}

// Completion describes what a reported load changed.
type Completion struct {
	// Counted is false for stale or duplicate reports, which change nothing.
	Counted bool
	// Failed is set when the load failed and was counted as loaded anyway.
	Failed bool
	// Ready is set when the report finished the initial batch.
	Ready bool
	// Merged is the number of references appended when the report finished a prefetch.
	Merged int
}

// Complete records one load result. A failure is logged and counted as a
// success so a single bad image never blocks its batch. Reports for batches
// that are no longer pending, out-of-range indexes and repeats are ignored.
func (p *Pipeline) Complete(batchID uuid.UUID, index int, loadErr error) Completion {
	var b *batch
	switch {
	case p.initial != nil && p.initial.id == batchID:
		b = p.initial
	case p.next != nil && p.next.id == batchID:
		b = p.next
	default:
		p.log.Debug("stale load completion ignored", "batch", batchID, "index", index)
		return Completion{}
	}
	if index < 0 || index >= len(b.urls) || b.loaded[index] {
		return Completion{}
	}

	b.loaded[index] = true
	b.count++
	c := Completion{Counted: true}
	if loadErr != nil {
		c.Failed = true
		p.failed++
		p.log.Warn("image load failed, counting as loaded",
			"batch", batchID, "index", index, "url", b.urls[index], "error", loadErr)
	}

	if !b.done() {
		return c
	}

	if b == p.initial {
		p.initial = nil
		p.loadingCurrent = false
		p.index = 0
		c.Ready = true
		p.log.Info("initial batch ready", "batch", batchID, "size", len(b.urls))
		return c
	}

	p.current = append(p.current, b.urls...)
	p.totalEverLoaded = len(p.current)
	p.next = nil
	p.prefetchingNext = false
	c.Merged = len(b.urls)
	p.log.Info("prefetched batch merged", "batch", batchID, "total", p.totalEverLoaded)
	return c
}

// State is a read-only copy of the gallery for rendering.
type State struct {
	URLs            []string `json:"urls"`
	Index           int      `json:"index"`
	Current         string   `json:"current,omitempty"`
	LoadingCurrent  bool     `json:"loadingCurrent"`
	PrefetchingNext bool     `json:"prefetchingNext"`
	NextLoaded      int      `json:"nextLoaded"`
	NextSize        int      `json:"nextSize"`
	TotalEverLoaded int      `json:"totalEverLoaded"`
	FailedLoads     int      `json:"failedLoads"`
}

// State copies the current gallery state.
func (p *Pipeline) State() State {
	s := State{
		URLs:            append([]string(nil), p.current...),
		Index:           p.index,
		LoadingCurrent:  p.loadingCurrent,
		PrefetchingNext: p.prefetchingNext,
		TotalEverLoaded: p.totalEverLoaded,
		FailedLoads:     p.failed,
	}
	if len(p.current) > 0 {
		s.Current = p.current[p.index]
	}
	if p.next != nil {
		s.NextLoaded = p.next.count
		s.NextSize = len(p.next.urls)
	}
	return s
}

// Len is the number of references currently browsable.
func (p *Pipeline) Len() int { return len(p.current) }

// Index is the position of the visible image.
func (p *Pipeline) Index() int { return p.index }

// PrefetchingNext reports whether a look-ahead batch is in flight.
func (p *Pipeline) PrefetchingNext() bool { return p.prefetchingNext }

// LoadingCurrent reports whether the initial batch is still loading.
func (p *Pipeline) LoadingCurrent() bool { return p.loadingCurrent }
