package journal

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Recorder buffers entries and writes them in batches. Record never blocks on
// the database, so it is safe to call from the runtime goroutine. Batches are
// written by one goroutine at a time, in the order they were flushed.
type Recorder struct {
	store     *Store
	log       *slog.Logger
	mu        sync.Mutex
	buffer    []Entry
	queue     [][]Entry
	writing   bool
	flushSize int
	inflight  sync.WaitGroup
}

// NewRecorder creates a recorder. flushSize controls how many entries are
// buffered before a batch insert.
func NewRecorder(store *Store, flushSize int, logger *slog.Logger) *Recorder {
	if flushSize <= 0 {
		flushSize = 20
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		store:     store,
		log:       logger.With("component", "journal"),
		buffer:    make([]Entry, 0, flushSize),
		flushSize: flushSize,
	}
}

// Record adds an entry to the buffer and flushes if the buffer is full.
func (r *Recorder) Record(kind, summary string, payload any) {
	e, err := NewEntry(kind, summary, payload)
	if err != nil {
		r.log.Warn("journal entry dropped", "kind", kind, "error", err)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.buffer = append(r.buffer, e)
	if len(r.buffer) >= r.flushSize {
		r.flushLocked()
	}
}

// Flush persists any buffered entries and waits for every pending write.
func (r *Recorder) Flush() {
	r.mu.Lock()
	r.flushLocked()
	r.mu.Unlock()
	r.inflight.Wait()
}

// Close flushes; the store stays open.
func (r *Recorder) Close() error {
	r.Flush()
	return nil
}

func (r *Recorder) flushLocked() {
	if len(r.buffer) == 0 {
		return
	}
	entries := make([]Entry, len(r.buffer))
	copy(entries, r.buffer)
	r.buffer = r.buffer[:0]

	r.queue = append(r.queue, entries)
	if r.writing {
		return
	}
	r.writing = true
	r.inflight.Add(1)
	go r.drain()
}

// drain writes queued batches until the queue is empty.
func (r *Recorder) drain() {
	defer r.inflight.Done()
	for {
		r.mu.Lock()
		if len(r.queue) == 0 {
			r.writing = false
			r.mu.Unlock()
			return
		}
		entries := r.queue[0]
		r.queue[0] = nil
		r.queue = r.queue[1:]
		r.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := r.store.RecordBatch(ctx, entries); err != nil {
			r.log.Error("journal flush failed", "entries", len(entries), "error", err)
		}
		cancel()
	}
}
