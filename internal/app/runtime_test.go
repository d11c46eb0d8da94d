package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MJE43/playdeck/internal/gallery"
	"github.com/MJE43/playdeck/internal/games"
)

type memRecorder struct {
	mu    sync.Mutex
	kinds []string
}

func (r *memRecorder) Record(kind, _ string, _ any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds = append(r.kinds, kind)
}

func (r *memRecorder) count(kind string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, k := range r.kinds {
		if k == kind {
			n++
		}
	}
	return n
}

func startRuntime(t *testing.T, opts RuntimeOptions) *Runtime {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = quietLogger()
	}
	rt := NewRuntime(newTestContainer(t), opts)
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- rt.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		if err := <-errc; err != nil {
			t.Errorf("Run: %v", err)
		}
	})
	return rt
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestRuntimeSend(t *testing.T) {
	rt := startRuntime(t, RuntimeOptions{})
	ctx := context.Background()

	snap, err := rt.Send(ctx, CounterIncrement{})
	if err != nil {
		t.Fatal(err)
	}
	if snap.Counter != "1" || snap.Version != 1 || snap.Session != rt.Session() {
		t.Errorf("snapshot = %+v", snap)
	}

	_, err = rt.Send(ctx, MemorySelect{Index: 3})
	if !errors.Is(err, games.ErrNoBoard) {
		t.Errorf("rejected intent error = %v", err)
	}
	if rt.Snapshot().Version != 1 {
		t.Error("rejected intent bumped the version")
	}
}

func TestRuntimeAsyncLoadsCompleteThroughQueue(t *testing.T) {
	var mu sync.Mutex
	loaded := map[string]int{}
	loader := gallery.LoaderFunc(func(ctx context.Context, url string) error {
		mu.Lock()
		loaded[url]++
		mu.Unlock()
		if len(url)%2 == 0 {
			return errors.New("flaky host")
		}
		return nil
	})
	rec := &memRecorder{}
	rt := startRuntime(t, RuntimeOptions{Loader: loader, Recorder: rec})

	snap, err := rt.Send(context.Background(), GalleryAdvance{})
	if err != nil {
		t.Fatal(err)
	}
	if !snap.Gallery.LoadingCurrent {
		t.Fatal("gallery should be loading right after the first advance")
	}

	waitFor(t, "initial batch", func() bool { return !rt.Snapshot().Gallery.LoadingCurrent })
	if rec.count(EventGalleryReady) != 1 {
		t.Errorf("ready events = %d", rec.count(EventGalleryReady))
	}

	for i := 0; i < 8; i++ {
		if _, err := rt.Send(context.Background(), GalleryAdvance{}); err != nil {
			t.Fatal(err)
		}
	}
	waitFor(t, "prefetched batch", func() bool { return len(rt.Snapshot().Gallery.URLs) == 20 })
	if got := rt.Snapshot().Gallery.Index; got != 8 {
		t.Errorf("index after merge = %d, want 8", got)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(loaded) != 20 {
		t.Errorf("loader saw %d distinct urls, want 20", len(loaded))
	}
	for url, n := range loaded {
		if n != 1 {
			t.Errorf("%s loaded %d times", url, n)
		}
	}
}

func TestRuntimeSubscribe(t *testing.T) {
	rt := startRuntime(t, RuntimeOptions{})

	var mu sync.Mutex
	var versions []uint64
	unsubscribe := rt.Subscribe(func(s Snapshot) {
		mu.Lock()
		versions = append(versions, s.Version)
		mu.Unlock()
	})
	if rt.Listeners() != 1 {
		t.Fatalf("Listeners = %d", rt.Listeners())
	}

	ctx := context.Background()
	_, _ = rt.Send(ctx, CounterIncrement{})
	_, _ = rt.Send(ctx, CounterIncrement{})

	unsubscribe()
	unsubscribe()
	if rt.Listeners() != 0 {
		t.Fatalf("Listeners after unsubscribe = %d", rt.Listeners())
	}
	_, _ = rt.Send(ctx, CounterIncrement{})

	mu.Lock()
	defer mu.Unlock()
	if len(versions) != 2 || versions[0] != 1 || versions[1] != 2 {
		t.Errorf("listener saw versions %v, want [1 2]", versions)
	}
}

func TestRuntimeSerializesConcurrentSenders(t *testing.T) {
	rt := startRuntime(t, RuntimeOptions{})
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				if _, err := rt.Send(context.Background(), CounterIncrement{}); err != nil {
					t.Error(err)
				}
			}
		}()
	}
	wg.Wait()
	if got := rt.Snapshot().Counter; got != "200" {
		t.Errorf("counter = %s, want 200", got)
	}
}

func TestRuntimeStopped(t *testing.T) {
	rt := NewRuntime(newTestContainer(t), RuntimeOptions{Logger: quietLogger()})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := rt.Run(ctx); err != nil {
		t.Fatalf("Run = %v", err)
	}
	if err := rt.Run(context.Background()); !errors.Is(err, ErrRunning) {
		t.Errorf("second Run = %v, want ErrRunning", err)
	}
	if _, err := rt.Send(context.Background(), CounterIncrement{}); !errors.Is(err, ErrStopped) {
		t.Errorf("Send after stop = %v", err)
	}
	if err := rt.Post(CounterIncrement{}); !errors.Is(err, ErrStopped) {
		t.Errorf("Post after stop = %v", err)
	}
}

func TestRuntimeSendHonoursContext(t *testing.T) {
	rt := NewRuntime(newTestContainer(t), RuntimeOptions{Logger: quietLogger(), QueueSize: 1})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	// Nothing consumes the queue, so the reply never comes.
	if _, err := rt.Send(ctx, CounterIncrement{}); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Send = %v, want deadline exceeded", err)
	}
}
