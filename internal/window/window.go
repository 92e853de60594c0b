// Package window keeps a bounded, time-limited list of recently observed
// posts and searches it for a post carrying the same content.
package window

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/edgard/dukhota/internal/message"
)

// ErrNotComparable is returned by Add for posts that can never match.
var ErrNotComparable = errors.New("message is not comparable")

// Candidate is a post held by the window.
type Candidate struct {
	Message    *message.Message
	ObservedAt time.Time
}

// Window is a ring of recent posts in observation order. It is safe for
// concurrent use.
type Window struct {
	mu      sync.RWMutex
	entries []Candidate

	size        int
	ttl         time.Duration
	concurrency int
	matcher     *message.Matcher
	now         func() time.Time
}

// New creates a window holding at most size posts for at most ttl.
// FindMatch compares against up to concurrency candidates in parallel.
func New(size int, ttl time.Duration, concurrency int, matcher *message.Matcher) *Window {
	if size < 1 {
		size = 1
	}
	if concurrency < 1 {
		concurrency = 1
	}
	if matcher == nil {
		matcher = message.NewMatcher()
	}
	return &Window{
		entries:     make([]Candidate, 0, min(size, 1024)),
		size:        size,
		ttl:         ttl,
		concurrency: concurrency,
		matcher:     matcher,
		now:         time.Now,
	}
}

// Add appends msg as observed at observedAt, evicting the oldest post when
// the window is full. A post already held is not added twice.
func (w *Window) Add(msg *message.Message, observedAt time.Time) error {
	if msg == nil || !msg.Comparable() {
		return ErrNotComparable
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	for _, c := range w.entries {
		if c.Message.SamePost(msg) {
			return nil
		}
	}

	if len(w.entries) >= w.size {
		drop := len(w.entries) - w.size + 1
		clear(w.entries[:drop])
		w.entries = append(w.entries[:0], w.entries[drop:]...)
	}
	w.entries = append(w.entries, Candidate{Message: msg, ObservedAt: observedAt})
	return nil
}

// FindMatch returns the earliest observed live candidate that msg matches,
// with the verdict that decided it. When nothing matches the candidate is
// nil and the verdict is the zero value for incomparable input or a
// NoMatch verdict otherwise.
func (w *Window) FindMatch(ctx context.Context, msg *message.Message) (*Candidate, message.Verdict, error) {
	if msg == nil || !msg.Comparable() {
		return nil, message.Verdict{Result: message.Incomparable}, nil
	}

	candidates := w.live(w.now())
	if len(candidates) == 0 {
		return nil, message.Verdict{Result: message.NoMatch}, nil
	}

	verdicts := make([]message.Verdict, len(candidates))
	var best atomic.Int64
	best.Store(int64(len(candidates)))

	chunk := (len(candidates) + w.concurrency - 1) / w.concurrency

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)

	for start := 0; start < len(candidates); start += chunk {
		end := min(start+chunk, len(candidates))
		g.Go(func() error {
			for i := start; i < end; i++ {
				if int64(i) >= best.Load() {
					return nil
				}
				if err := gCtx.Err(); err != nil {
					return err
				}

				v := w.matcher.Compare(msg, candidates[i].Message)
				if v.Result != message.Match {
					continue
				}
				verdicts[i] = v
				for {
					cur := best.Load()
					if int64(i) >= cur || best.CompareAndSwap(cur, int64(i)) {
						break
					}
				}
				return nil
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, message.Verdict{}, err
	}

	idx := best.Load()
	if idx == int64(len(candidates)) {
		return nil, message.Verdict{Result: message.NoMatch}, nil
	}

	found := candidates[idx]
	return &found, verdicts[idx], nil
}

// Prune drops posts observed more than the TTL before now and returns how
// many were removed.
func (w *Window) Prune(now time.Time) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	cutoff := now.Add(-w.ttl)
	kept := w.entries[:0]
	for _, c := range w.entries {
		if c.ObservedAt.After(cutoff) {
			kept = append(kept, c)
		}
	}
	removed := len(w.entries) - len(kept)
	clear(w.entries[len(kept):])
	w.entries = kept
	return removed
}

// Len returns the number of posts held, expired ones included.
func (w *Window) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.entries)
}

// live snapshots the unexpired candidates in observation order.
func (w *Window) live(now time.Time) []Candidate {
	w.mu.RLock()
	defer w.mu.RUnlock()

	cutoff := now.Add(-w.ttl)
	out := make([]Candidate, 0, len(w.entries))
	for _, c := range w.entries {
		if c.ObservedAt.After(cutoff) {
			out = append(out, c)
		}
	}
	return out
}
