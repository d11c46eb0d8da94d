package gallery

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// DefaultBaseURL serves a random cat picture per request; the query string
// only has to differ for each reference to defeat caching.
const DefaultBaseURL = "https://cataas.com/cat"

// URLNamer synthesizes unique image references. The disambiguator starts at
// the session epoch in milliseconds and increases by one per reference, so no
// value repeats within a process.
type URLNamer struct {
	mu    sync.Mutex
	base  string
	sep   string
	epoch int64
	seq   int64
}

// NewURLNamer creates a namer. A nil clock uses time.Now.
func NewURLNamer(base string, now func() time.Time) *URLNamer {
	if base == "" {
		base = DefaultBaseURL
	}
	if now == nil {
		now = time.Now
	}
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return &URLNamer{base: base, sep: sep, epoch: now().UnixMilli()}
}

// Next returns the next unique reference.
func (n *URLNamer) Next() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.seq++
	return fmt.Sprintf("%s%st=%d", n.base, n.sep, n.epoch+n.seq)
}

// Batch returns size fresh references.
func (n *URLNamer) Batch(size int) []string {
	urls := make([]string, size)
	for i := range urls {
		urls[i] = n.Next()
	}
	return urls
}
