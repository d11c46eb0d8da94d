package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/MJE43/playdeck/internal/gallery"
)

var (
	// ErrStopped is returned once the runtime loop has exited.
	ErrStopped = errors.New("app: runtime stopped")
	// ErrRunning is returned when Run is called more than once.
	ErrRunning = errors.New("app: runtime already running")
)

// Recorder receives domain events after the intent that produced them.
type Recorder interface {
	Record(kind, summary string, payload any)
}

type multiRecorder []Recorder

func (m multiRecorder) Record(kind, summary string, payload any) {
	for _, r := range m {
		r.Record(kind, summary, payload)
	}
}

// MultiRecorder fans events out to every non-nil recorder.
func MultiRecorder(recorders ...Recorder) Recorder {
	var m multiRecorder
	for _, r := range recorders {
		if r != nil {
			m = append(m, r)
		}
	}
	return m
}

// Observer receives runtime measurements.
type Observer interface {
	IntentProcessed(kind string, err error, elapsed time.Duration)
	LoadFinished(err error, elapsed time.Duration)
	QueueDepth(n int)
}

// RuntimeOptions configures a Runtime. Only Loader is required.
type RuntimeOptions struct {
	Loader    gallery.Loader
	Recorder  Recorder
	Observer  Observer
	Logger    *slog.Logger
	QueueSize int
}

type request struct {
	intent Intent
	reply  chan result
}

type result struct {
	snap Snapshot
	err  error
}

// Runtime is the single consumer of intents. One goroutine, started by Run,
// owns the container; everything else talks to it through the queue. Image
// loads run on their own goroutines and report back as ImageLoaded intents.
type Runtime struct {
	c        *Container
	loader   gallery.Loader
	recorder Recorder
	observer Observer
	log      *slog.Logger
	session  string

	inbox   chan request
	done    chan struct{}
	running atomic.Bool
	loads   sync.WaitGroup
	latest  atomic.Pointer[Snapshot]

	mu        sync.Mutex
	listeners map[uint64]func(Snapshot)
	nextID    uint64
}

// NewRuntime wraps c. The container must not be touched directly afterwards.
func NewRuntime(c *Container, opts RuntimeOptions) *Runtime {
	if opts.Loader == nil {
		opts.Loader = gallery.SimulatedLoader{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	r := &Runtime{
		c:         c,
		loader:    opts.Loader,
		recorder:  opts.Recorder,
		observer:  opts.Observer,
		session:   uuid.NewString(),
		inbox:     make(chan request, opts.QueueSize),
		done:      make(chan struct{}),
		listeners: make(map[uint64]func(Snapshot)),
	}
	r.log = opts.Logger.With("component", "runtime", "session", r.session)
	r.publish()
	return r
}

// Session identifies this runtime instance.
func (r *Runtime) Session() string { return r.session }

// Run processes intents until ctx is cancelled, then waits for in-flight
// loads to observe the cancellation. A runtime runs at most once.
func (r *Runtime) Run(ctx context.Context) error {
	if !r.running.CompareAndSwap(false, true) {
		return ErrRunning
	}
	loadCtx, cancelLoads := context.WithCancel(ctx)
	defer func() {
		cancelLoads()
		close(r.done)
		r.loads.Wait()
		r.drain()
	}()

	r.log.Info("runtime started")
	for {
		select {
		case <-ctx.Done():
			r.log.Info("runtime stopping", "version", r.c.Version())
			return nil
		case req := <-r.inbox:
			res := r.process(loadCtx, req.intent)
			if req.reply != nil {
				req.reply <- res
			}
		}
	}
}

// drain fails any request still queued after the loop exits.
func (r *Runtime) drain() {
	for {
		select {
		case req := <-r.inbox:
			if req.reply != nil {
				req.reply <- result{err: ErrStopped}
			}
		default:
			return
		}
	}
}

func (r *Runtime) process(loadCtx context.Context, in Intent) result {
	start := time.Now()
	fx, err := r.c.Dispatch(in)
	if r.observer != nil {
		r.observer.IntentProcessed(kindOf(in), err, time.Since(start))
		r.observer.QueueDepth(len(r.inbox))
	}
	if err != nil {
		return result{snap: r.Snapshot(), err: err}
	}

	for _, req := range fx.Loads {
		r.startLoad(loadCtx, req)
	}
	if r.recorder != nil {
		for _, ev := range fx.Events {
			r.recorder.Record(ev.Kind, ev.Summary, ev.Payload)
		}
	}

	snap := r.publish()
	r.notify(snap)
	return result{snap: snap}
}

func (r *Runtime) startLoad(ctx context.Context, req gallery.LoadRequest) {
	r.loads.Add(1)
	go func() {
		defer r.loads.Done()
		start := time.Now()
		err := r.loader.Load(ctx, req.URL)
		if r.observer != nil {
			r.observer.LoadFinished(err, time.Since(start))
		}
		if ctx.Err() != nil {
			return
		}
		if perr := r.Post(ImageLoaded{BatchID: req.BatchID, Index: req.Index, Err: err}); perr != nil {
			r.log.Debug("load completion dropped", "url", req.URL, "error", perr)
		}
	}()
}

func (r *Runtime) publish() Snapshot {
	snap := r.c.Snapshot()
	snap.Session = r.session
	r.latest.Store(&snap)
	return snap
}

func (r *Runtime) notify(snap Snapshot) {
	r.mu.Lock()
	fns := make([]func(Snapshot), 0, len(r.listeners))
	for _, fn := range r.listeners {
		fns = append(fns, fn)
	}
	r.mu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

// Send enqueues in and waits for the resulting snapshot. The error is the
// container's rejection, ErrStopped, or ctx's error.
func (r *Runtime) Send(ctx context.Context, in Intent) (Snapshot, error) {
	if r.stopped() {
		return Snapshot{}, ErrStopped
	}
	reply := make(chan result, 1)
	select {
	case r.inbox <- request{intent: in, reply: reply}:
	case <-r.done:
		return Snapshot{}, ErrStopped
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}

	select {
	case res := <-reply:
		return res.snap, res.err
	case <-r.done:
		select {
		case res := <-reply:
			return res.snap, res.err
		default:
			return Snapshot{}, ErrStopped
		}
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

// Post enqueues in without waiting for it to be processed.
func (r *Runtime) Post(in Intent) error {
	if r.stopped() {
		return ErrStopped
	}
	select {
	case r.inbox <- request{intent: in}:
		return nil
	case <-r.done:
		return ErrStopped
	}
}

func (r *Runtime) stopped() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

// Snapshot returns the state after the most recently processed intent.
// It is safe to call from any goroutine.
func (r *Runtime) Snapshot() Snapshot {
	return *r.latest.Load()
}

// Subscribe registers fn to receive every new snapshot. Listeners run on the
// runtime goroutine and must not call Send. The returned function removes the
// listener and may be called more than once.
func (r *Runtime) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.listeners[id] = fn
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.listeners, id)
			r.mu.Unlock()
		})
	}
}

// Listeners reports how many listeners are registered.
func (r *Runtime) Listeners() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.listeners)
}
