// Package livesync keeps a local view of a remote subject's state fresh
// by polling it on a fixed interval and republishing only when the state
// actually changed.
//
// A Synchronizer tracks at most one subject at a time. Start mounts a
// session for a subject, Stop tears it down, and Refresh forces an
// out-of-band poll that shares the session's single polling loop.
package livesync

import (
	"context"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/txn2/helix/pkg/clock"
)

// DefaultInterval is the poll cadence when Config.Interval is zero.
const DefaultInterval = 10 * time.Second

// Observation is one successful read of a subject.
type Observation[T any] struct {
	State       T
	DisplayName string
}

// Fetcher reads the current representation of a subject.
type Fetcher[T any] interface {
	Fetch(ctx context.Context, subjectID string) (Observation[T], error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc[T any] func(ctx context.Context, subjectID string) (Observation[T], error)

// Fetch calls f.
func (f FetcherFunc[T]) Fetch(ctx context.Context, subjectID string) (Observation[T], error) {
	return f(ctx, subjectID)
}

// View is the consumer-facing state of the current session.
type View[T any] struct {
	SubjectID   string
	State       T
	HasState    bool
	DisplayName string
	IsLoading   bool
	Err         error
}

// Config configures a Synchronizer.
type Config struct {
	// Interval between polls. Zero means DefaultInterval.
	Interval time.Duration

	// FetchTimeout bounds a single fetch. Zero leaves it to the fetcher.
	FetchTimeout time.Duration

	Clock clock.Clock
}

// Synchronizer polls one subject at a time and notifies subscribers when
// the subject's state changes structurally.
type Synchronizer[T any] struct {
	fetcher Fetcher[T]
	cfg     Config
	clock   clock.Clock

	mu      sync.Mutex
	gen     uint64
	current *session
	view    View[T]
	hash    uint64
	hashed  bool
	subs    map[int]func(View[T])
	nextSub int

	wg sync.WaitGroup
}

type session struct {
	gen       uint64
	subjectID string
	cancel    context.CancelFunc
	refresh   chan struct{}
}

// New creates a Synchronizer over fetcher.
func New[T any](fetcher Fetcher[T], cfg Config) *Synchronizer[T] {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	return &Synchronizer[T]{
		fetcher: fetcher,
		cfg:     cfg,
		clock:   clock.OrReal(cfg.Clock),
		subs:    make(map[int]func(View[T])),
	}
}

// Start begins tracking subjectID. Starting the subject already tracked
// is a no-op; starting another subject tears the current session down
// first. An empty subjectID is equivalent to Stop.
func (s *Synchronizer[T]) Start(subjectID string) {
	if subjectID == "" {
		s.Stop()
		return
	}

	s.mu.Lock()
	if s.current != nil && s.current.subjectID == subjectID {
		s.mu.Unlock()
		return
	}
	s.teardownLocked()

	ctx, cancel := context.WithCancel(context.Background())
	s.gen++
	sess := &session{
		gen:       s.gen,
		subjectID: subjectID,
		cancel:    cancel,
		refresh:   make(chan struct{}, 1),
	}
	s.current = sess
	s.view = View[T]{SubjectID: subjectID, IsLoading: true}
	s.hashed = false
	s.wg.Add(1)
	s.mu.Unlock()

	slog.Debug("live sync started", "subject", subjectID, "interval", s.cfg.Interval)
	go s.run(ctx, sess)
}

// Stop tears down the current session. A fetch still in flight is
// cancelled and its result, should it arrive, is discarded.
func (s *Synchronizer[T]) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teardownLocked()
}

// Close stops the session and waits for every polling loop to exit. It
// must not be called from a subscriber.
func (s *Synchronizer[T]) Close() error {
	s.Stop()
	s.wg.Wait()
	return nil
}

// Refresh requests an immediate poll. Requests made while a poll is
// pending or running collapse into one, and the regular timer restarts
// after the refreshed poll.
func (s *Synchronizer[T]) Refresh() {
	s.mu.Lock()
	sess := s.current
	s.mu.Unlock()
	if sess == nil {
		return
	}
	select {
	case sess.refresh <- struct{}{}:
	default:
	}
}

// View returns the current view.
func (s *Synchronizer[T]) View() View[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// Subscribe registers fn to be called with the new view whenever the
// tracked state changes. fn runs on the polling goroutine. The returned
// function removes the subscription.
func (s *Synchronizer[T]) Subscribe(fn func(View[T])) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Synchronizer[T]) teardownLocked() {
	if s.current == nil {
		return
	}
	slog.Debug("live sync stopped", "subject", s.current.subjectID)
	s.current.cancel()
	s.current = nil
	s.gen++
	s.view = View[T]{}
	s.hashed = false
}

// run is the session's only polling loop. Each iteration polls once and
// then waits for the interval timer, a refresh request or teardown.
func (s *Synchronizer[T]) run(ctx context.Context, sess *session) {
	defer s.wg.Done()

	for {
		s.poll(ctx, sess)

		// A fresh channel per iteration keeps a timer that fired during a
		// refresh from waking the next iteration early.
		wake := make(chan struct{}, 1)
		timer := s.clock.AfterFunc(s.cfg.Interval, func() {
			select {
			case wake <- struct{}{}:
			default:
			}
		})

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-wake:
		case <-sess.refresh:
			timer.Stop()
		}
	}
}

func (s *Synchronizer[T]) poll(ctx context.Context, sess *session) {
	fetchCtx := ctx
	if s.cfg.FetchTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, s.cfg.FetchTimeout)
		defer cancel()
	}

	obs, err := s.fetcher.Fetch(fetchCtx, sess.subjectID)
	s.apply(sess, obs, err)
}

// apply folds a fetch result into the view. Results belonging to a torn
// down session are dropped.
func (s *Synchronizer[T]) apply(sess *session, obs Observation[T], err error) {
	s.mu.Lock()
	if s.gen != sess.gen {
		s.mu.Unlock()
		slog.Debug("live sync result dropped after teardown", "subject", sess.subjectID)
		return
	}

	s.view.IsLoading = false
	if err != nil {
		s.view.Err = err
		s.mu.Unlock()
		slog.Warn("live sync fetch failed", "subject", sess.subjectID, "error", err)
		return
	}
	s.view.Err = nil

	if obs.DisplayName != "" && obs.DisplayName != s.view.DisplayName {
		s.view.DisplayName = obs.DisplayName
	}

	h, hashed := fingerprint(obs.State)
	if s.view.HasState && s.unchangedLocked(obs.State, h, hashed) {
		s.mu.Unlock()
		return
	}

	s.view.State = obs.State
	s.view.HasState = true
	s.hash, s.hashed = h, hashed
	view := s.view
	subs := make([]func(View[T]), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	slog.Info("live sync state changed", "subject", sess.subjectID)
	for _, fn := range subs {
		if !s.live(sess) {
			slog.Debug("live sync notification dropped after teardown", "subject", sess.subjectID)
			return
		}
		notify(fn, view)
	}
}

// live reports whether sess is still the active session.
func (s *Synchronizer[T]) live(sess *session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen == sess.gen
}

func (s *Synchronizer[T]) unchangedLocked(next T, h uint64, hashed bool) bool {
	if hashed && s.hashed && h != s.hash {
		return false
	}
	return reflect.DeepEqual(s.view.State, next)
}

func notify[T any](fn func(View[T]), view View[T]) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("live sync subscriber panicked", "subject", view.SubjectID, "panic", r)
		}
	}()
	fn(view)
}
