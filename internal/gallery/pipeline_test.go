package gallery

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func newTestPipeline(t *testing.T) *Pipeline {
	t.Helper()
	clock := func() time.Time { return time.UnixMilli(1_700_000_000_000) }
	return New(Options{
		Namer:  NewURLNamer("https://img.test/cat", clock),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func completeAll(p *Pipeline, reqs []LoadRequest) {
	for _, r := range reqs {
		p.Complete(r.BatchID, r.Index, nil)
	}
}

func TestStartIssuesInitialBatch(t *testing.T) {
	p := newTestPipeline(t)
	reqs := p.Advance()
	if len(reqs) != DefaultBatchSize {
		t.Fatalf("Advance on empty gallery issued %d requests, want %d", len(reqs), DefaultBatchSize)
	}
	seen := map[string]bool{}
	for i, r := range reqs {
		if r.Index != i || r.BatchID != reqs[0].BatchID {
			t.Errorf("request %d = %+v", i, r)
		}
		if seen[r.URL] {
			t.Errorf("duplicate reference %s", r.URL)
		}
		seen[r.URL] = true
	}

	s := p.State()
	if !s.LoadingCurrent || s.TotalEverLoaded != DefaultBatchSize || len(s.URLs) != DefaultBatchSize {
		t.Errorf("state after start = %+v", s)
	}

	// Advancing while loading is a no-op.
	if got := p.Advance(); got != nil || p.Index() != 0 {
		t.Errorf("Advance while loading returned %d requests, index %d", len(got), p.Index())
	}
}

func TestInitialBatchReadyAfterAllCompletions(t *testing.T) {
	p := newTestPipeline(t)
	reqs := p.Start()
	for i, r := range reqs {
		c := p.Complete(r.BatchID, r.Index, nil)
		if !c.Counted {
			t.Fatalf("completion %d not counted", i)
		}
		last := i == len(reqs)-1
		if c.Ready != last || p.LoadingCurrent() == last {
			t.Fatalf("after %d completions: Ready=%v loading=%v", i+1, c.Ready, p.LoadingCurrent())
		}
	}
	if p.Index() != 0 {
		t.Errorf("Index = %d, want 0", p.Index())
	}
}

func TestFailedLoadsCountAsLoaded(t *testing.T) {
	p := newTestPipeline(t)
	reqs := p.Start()
	boom := errors.New("connection reset")
	for i, r := range reqs {
		var err error
		if i%3 == 0 {
			err = boom
		}
		p.Complete(r.BatchID, r.Index, err)
	}
	if p.LoadingCurrent() {
		t.Fatal("failed loads blocked the batch")
	}
	if got := p.State().FailedLoads; got != 4 {
		t.Errorf("FailedLoads = %d, want 4", got)
	}
}

func TestDuplicateAndStaleCompletionsIgnored(t *testing.T) {
	p := newTestPipeline(t)
	old := p.Start()
	reqs := p.Start()

	for _, r := range old {
		if c := p.Complete(r.BatchID, r.Index, nil); c.Counted {
			t.Fatal("completion for a discarded batch was counted")
		}
	}
	for i := 0; i < 5; i++ {
		p.Complete(reqs[0].BatchID, 0, nil)
	}
	if c := p.Complete(reqs[0].BatchID, 99, nil); c.Counted {
		t.Error("out-of-range index was counted")
	}
	if c := p.Complete(uuid.New(), 1, nil); c.Counted {
		t.Error("unknown batch was counted")
	}
	if !p.LoadingCurrent() {
		t.Fatal("repeated reports finished the batch")
	}
}

func TestLookAheadTriggersOnceAndMerges(t *testing.T) {
	p := newTestPipeline(t)
	completeAll(p, p.Advance())

	var prefetch []LoadRequest
	triggers := 0
	for step := 1; step <= 9; step++ {
		reqs := p.Advance()
		if p.Index() != step {
			t.Fatalf("step %d: index %d", step, p.Index())
		}
		if len(reqs) > 0 {
			triggers++
			if p.Index() != DefaultBatchSize-DefaultLookahead {
				t.Errorf("prefetch triggered at index %d, want %d", p.Index(), DefaultBatchSize-DefaultLookahead)
			}
			prefetch = reqs
		}
	}
	if triggers != 1 {
		t.Fatalf("look-ahead triggered %d times, want 1", triggers)
	}
	if !p.PrefetchingNext() || p.Len() != DefaultBatchSize {
		t.Fatalf("before merge: prefetching=%v len=%d", p.PrefetchingNext(), p.Len())
	}

	s := p.State()
	if s.NextSize != DefaultBatchSize || s.NextLoaded != 0 {
		t.Errorf("next batch progress = %d/%d", s.NextLoaded, s.NextSize)
	}

	indexBefore := p.Index()
	var last Completion
	for _, r := range prefetch {
		last = p.Complete(r.BatchID, r.Index, nil)
	}
	if last.Merged != DefaultBatchSize {
		t.Errorf("Merged = %d, want %d", last.Merged, DefaultBatchSize)
	}
	if p.Len() != 2*DefaultBatchSize {
		t.Errorf("Len = %d after merge, want %d", p.Len(), 2*DefaultBatchSize)
	}
	if p.Index() != indexBefore {
		t.Errorf("merge moved index from %d to %d", indexBefore, p.Index())
	}
	if p.PrefetchingNext() || p.State().NextSize != 0 {
		t.Error("next batch not cleared after merge")
	}
	if got := p.State().TotalEverLoaded; got != 2*DefaultBatchSize {
		t.Errorf("TotalEverLoaded = %d", got)
	}
}

func TestIndexWrapsWhilePrefetchPending(t *testing.T) {
	p := newTestPipeline(t)
	completeAll(p, p.Start())
	for i := 0; i < DefaultBatchSize; i++ {
		p.Advance()
	}
	if p.Index() != 0 {
		t.Errorf("Index = %d after a full lap, want 0", p.Index())
	}
	if !p.PrefetchingNext() {
		t.Error("prefetch should still be pending")
	}
}

func TestNextPrefetchTriggersNearNewEnd(t *testing.T) {
	p := newTestPipeline(t)
	completeAll(p, p.Start())

	triggeredAt := []int{}
	for step := 0; step < 2*DefaultBatchSize; step++ {
		if reqs := p.Advance(); len(reqs) > 0 {
			triggeredAt = append(triggeredAt, p.Index())
			completeAll(p, reqs)
		}
	}
	want := []int{8, 18}
	if len(triggeredAt) != len(want) || triggeredAt[0] != want[0] || triggeredAt[1] != want[1] {
		t.Errorf("prefetch triggered at %v, want %v", triggeredAt, want)
	}
	if p.Len() != 3*DefaultBatchSize {
		t.Errorf("Len = %d, want %d", p.Len(), 3*DefaultBatchSize)
	}
}

func TestIndexStaysInBounds(t *testing.T) {
	p := newTestPipeline(t)
	var pending []LoadRequest
	for i := 0; i < 200; i++ {
		pending = append(pending, p.Advance()...)
		if i%7 == 0 {
			completeAll(p, pending)
			pending = nil
		}
		if p.Len() > 0 && (p.Index() < 0 || p.Index() >= p.Len()) {
			t.Fatalf("index %d outside [0, %d)", p.Index(), p.Len())
		}
	}
}

func TestURLNamerUnique(t *testing.T) {
	clock := func() time.Time { return time.UnixMilli(1000) }
	n := NewURLNamer("https://img.test/cat", clock)
	if got := n.Next(); got != "https://img.test/cat?t=1001" {
		t.Errorf("first reference = %s", got)
	}
	seen := map[string]bool{}
	for _, u := range n.Batch(50) {
		if seen[u] {
			t.Fatalf("duplicate %s", u)
		}
		seen[u] = true
	}

	q := NewURLNamer("https://img.test/cat?type=square", clock)
	if got := q.Next(); !strings.HasPrefix(got, "https://img.test/cat?type=square&t=") {
		t.Errorf("reference with query = %s", got)
	}
}
