package parrot

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Default delays for the two-stage suggestion policy. The debounce
// window collapses keystroke bursts; the fetch delay holds the request
// back so a suggestion only appears after a perceptible pause.
const (
	DefaultDebounce   = 200 * time.Millisecond
	DefaultFetchDelay = time.Second
)

// Suggester turns a stream of text-change events into at most one
// outstanding suggestion fetch. A new event cancels any pending fetch
// entirely, and a sequence number guards against a superseded fetch
// overwriting a newer result.
type Suggester struct {
	Debounce   time.Duration
	FetchDelay time.Duration
	// OnChange, if set, is called whenever the active suggestion
	// changes, including when it is cleared. It runs with the suggester
	// locked and must not call back into it.
	OnChange func(string)

	client *Client

	mu     sync.Mutex
	cancel context.CancelFunc
	seq    uint64
	active string
}

// NewSuggester creates a suggester with the default delays.
func NewSuggester(client *Client) *Suggester {
	return &Suggester{
		Debounce:   DefaultDebounce,
		FetchDelay: DefaultFetchDelay,
		client:     client,
	}
}

// Update feeds the current full input value on every change event.
func (s *Suggester) Update(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(text) == "" {
		s.clearLocked()
		return
	}

	// A trailing space commits the word: whatever was typed no longer
	// wants completing.
	if strings.HasSuffix(text, " ") {
		s.clearLocked()
		return
	}

	s.cancelPendingLocked()
	s.seq++
	seq := s.seq

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go s.fetch(ctx, seq, text)
}

// fetch waits out both delay stages and then issues the request. The
// context is cancelled by any newer input event, which aborts the
// in-flight HTTP call as well.
func (s *Suggester) fetch(ctx context.Context, seq uint64, query string) {
	if !sleep(ctx, s.Debounce) {
		return
	}
	if !sleep(ctx, s.FetchDelay) {
		return
	}

	suggestions, err := s.client.Suggest(ctx, query)

	s.mu.Lock()
	defer s.mu.Unlock()

	// Stale: a newer query was issued while this one was in flight.
	if seq != s.seq {
		return
	}

	if err != nil {
		s.client.Logger.Debug().Err(err).Str("query", query).Msg("suggestion fetch failed")
		s.setActiveLocked("")
		return
	}
	if len(suggestions) == 0 {
		s.setActiveLocked("")
		return
	}
	s.setActiveLocked(suggestions[0])
}

// Accept returns the active suggestion and clears it. ok is false when
// no suggestion is active.
func (s *Suggester) Accept() (suggestion string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == "" {
		return "", false
	}
	suggestion = s.active
	s.setActiveLocked("")
	return suggestion, true
}

// Active returns the current suggestion, or "" when none is active.
func (s *Suggester) Active() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Close cancels any pending fetch.
func (s *Suggester) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelPendingLocked()
}

// clearLocked cancels any pending fetch and empties the suggestion.
// Bumping seq invalidates fetches whose responses already landed but
// have not taken the lock yet; cancellation alone cannot stop those.
func (s *Suggester) clearLocked() {
	s.cancelPendingLocked()
	s.seq++
	s.setActiveLocked("")
}

func (s *Suggester) cancelPendingLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

func (s *Suggester) setActiveLocked(v string) {
	if s.active == v {
		return
	}
	s.active = v
	if s.OnChange != nil {
		s.OnChange(v)
	}
}

// sleep waits for d or until ctx is cancelled; it reports whether the
// full duration elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
