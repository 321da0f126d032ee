package search

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// fakeScheduler runs timers only when the test advances its clock.
type fakeScheduler struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*fakeTimer
}

type fakeTimer struct {
	s       *fakeScheduler
	at      time.Duration
	fn      func()
	stopped bool
	fired   bool
}

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{s: s, at: s.now + d, fn: f}
	s.timers = append(s.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

// Advance moves the clock by d and runs every timer that comes due, in
// deadline order, on the calling goroutine.
func (s *fakeScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.now + d
	if target > s.now {
		s.now = target
	}
	s.mu.Unlock()

	for {
		s.mu.Lock()
		var due []*fakeTimer
		for _, t := range s.timers {
			if !t.fired && !t.stopped && t.at <= target {
				due = append(due, t)
			}
		}
		if len(due) == 0 {
			s.mu.Unlock()
			return
		}
		sort.SliceStable(due, func(i, j int) bool { return due[i].at < due[j].at })
		next := due[0]
		next.fired = true
		s.mu.Unlock()

		next.fn()
	}
}

// Active counts timers that are neither stopped nor fired.
func (s *fakeScheduler) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.timers {
		if !t.fired && !t.stopped {
			n++
		}
	}
	return n
}

var errBackendDown = errors.New("backend down")

type fakeBackend struct {
	mu       sync.Mutex
	files    map[string][]string
	hits     map[string][]Hit
	content  map[FileRef]string
	gates    map[string]chan struct{}
	listGate map[string]chan struct{}
	started  chan string
	listErr  error
	errQuery string

	searches []string
	opened   []FileRef
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		files:    map[string][]string{},
		hits:     map[string][]Hit{},
		content:  map[FileRef]string{},
		gates:    map[string]chan struct{}{},
		listGate: map[string]chan struct{}{},
	}
}

func (b *fakeBackend) ListFiles(ctx context.Context, folder string) ([]string, error) {
	b.mu.Lock()
	gate := b.listGate[folder]
	b.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.listErr != nil {
		return nil, b.listErr
	}
	return b.files[folder], nil
}

func (b *fakeBackend) SearchContent(ctx context.Context, query string) ([]Hit, error) {
	b.mu.Lock()
	b.searches = append(b.searches, query)
	gate := b.gates[query]
	started := b.started
	fail := b.errQuery == query
	hits := b.hits[query]
	b.mu.Unlock()

	if started != nil {
		started <- query
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if fail {
		return nil, errBackendDown
	}
	return hits, nil
}

func (b *fakeBackend) Open(_ context.Context, filename, folder string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ref := FileRef{Filename: filename, Folder: folder}
	b.opened = append(b.opened, ref)
	c, ok := b.content[ref]
	if !ok {
		return "", errors.New("not found")
	}
	return c, nil
}

func (b *fakeBackend) Searches() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.searches...)
}

type recorder struct {
	mu      sync.Mutex
	queries []string
}

func (r *recorder) RecordQuery(q string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queries = append(r.queries, q)
	return nil
}
