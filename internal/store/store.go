package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"moments/internal/models"
	"moments/internal/observability"

	"github.com/google/uuid"
)

// ErrClosed is returned for writes submitted after the writer stopped.
var ErrClosed = errors.New("store writer is closed")

// Change is one committed write. Exactly one field is set.
type Change struct {
	Moment *models.Moment
	RSVP   *models.RSVP
	Follow *models.Follow
}

// Kind names the relation the change touches.
func (c Change) Kind() string {
	switch {
	case c.Moment != nil:
		return "moment"
	case c.RSVP != nil:
		return "rsvp"
	case c.Follow != nil:
		return "follow"
	default:
		return "unknown"
	}
}

// Sink persists a change before it becomes visible to readers.
type Sink interface {
	Persist(ctx context.Context, change Change) error
}

type command struct {
	ctx    context.Context
	change Change
	result chan commandResult
}

type commandResult struct {
	change  Change
	version uint64
	err     error
}

// Store publishes the current snapshot to readers and applies writes one at a
// time on the goroutine running Run.
type Store struct {
	current  atomic.Pointer[Snapshot]
	commands chan command
	sink     Sink
	logger   *observability.Logger
	closed   chan struct{}
}

// Option configures a Store.
type Option func(*Store)

// WithSink persists every change through sink before publishing it.
func WithSink(sink Sink) Option {
	return func(s *Store) { s.sink = sink }
}

// WithQueueSize bounds the number of writes waiting for the writer.
func WithQueueSize(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.commands = make(chan command, n)
		}
	}
}

// New returns a store serving snap. Call Run to start accepting writes.
func New(snap *Snapshot, opts ...Option) *Store {
	s := &Store{
		commands: make(chan command, 64),
		logger:   observability.GlobalLogger,
		closed:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if snap == nil {
		snap = Empty()
	}
	snap = snap.clone()
	snap.epoch = uuid.NewString()
	s.current.Store(snap)
	observability.SnapshotVersion.Set(float64(snap.Version()))
	return s
}

// Snapshot returns the latest committed snapshot. It never blocks.
func (s *Store) Snapshot() *Snapshot {
	return s.current.Load()
}

// Run applies queued writes until ctx is cancelled. It must run on exactly one
// goroutine. Writes still queued when it returns fail with ErrClosed.
func (s *Store) Run(ctx context.Context) {
	defer s.drain()
	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-s.commands:
			change, version, err := s.apply(cmd)
			cmd.result <- commandResult{change: change, version: version, err: err}
		}
	}
}

func (s *Store) drain() {
	close(s.closed)
	for {
		select {
		case cmd := <-s.commands:
			observability.StoreWrites.WithLabelValues(cmd.change.Kind(), "closed").Inc()
			cmd.result <- commandResult{err: ErrClosed}
		default:
			return
		}
	}
}

// InsertMoment commits a new moment and returns it as stored.
func (s *Store) InsertMoment(ctx context.Context, m models.Moment) (models.Moment, uint64, error) {
	res, err := s.submit(ctx, Change{Moment: &m})
	if err != nil {
		return models.Moment{}, 0, err
	}
	return *res.change.Moment, res.version, nil
}

// InsertRSVP commits a new RSVP. A second RSVP for the same (user, moment)
// pair fails with a CONFLICT error.
func (s *Store) InsertRSVP(ctx context.Context, r models.RSVP) (models.RSVP, uint64, error) {
	res, err := s.submit(ctx, Change{RSVP: &r})
	if err != nil {
		return models.RSVP{}, 0, err
	}
	return *res.change.RSVP, res.version, nil
}

// InsertFollow commits a new follow edge. Self-follows and duplicate edges fail.
func (s *Store) InsertFollow(ctx context.Context, f models.Follow) (models.Follow, uint64, error) {
	res, err := s.submit(ctx, Change{Follow: &f})
	if err != nil {
		return models.Follow{}, 0, err
	}
	return *res.change.Follow, res.version, nil
}

func (s *Store) submit(ctx context.Context, change Change) (commandResult, error) {
	cmd := command{ctx: ctx, change: change, result: make(chan commandResult, 1)}

	select {
	case <-s.closed:
		return commandResult{}, ErrClosed
	default:
	}

	select {
	case <-ctx.Done():
		return commandResult{}, ctx.Err()
	case <-s.closed:
		return commandResult{}, ErrClosed
	case s.commands <- cmd:
	}

	// A command enqueued after the writer drained is never answered, so a
	// closed writer ends the wait too.
	select {
	case <-ctx.Done():
		return commandResult{}, ctx.Err()
	case res := <-cmd.result:
		return res, res.err
	case <-s.closed:
		select {
		case res := <-cmd.result:
			return res, res.err
		default:
			return commandResult{}, ErrClosed
		}
	}
}

func (s *Store) apply(cmd command) (Change, uint64, error) {
	kind := cmd.change.Kind()
	if err := cmd.ctx.Err(); err != nil {
		observability.StoreWrites.WithLabelValues(kind, "cancelled").Inc()
		return Change{}, 0, err
	}

	next := s.current.Load().clone()

	var appErr *models.AppError
	switch {
	case cmd.change.Moment != nil:
		m := *cmd.change.Moment
		appErr = next.addMoment(&m)
		cmd.change.Moment = &m
	case cmd.change.RSVP != nil:
		r := *cmd.change.RSVP
		if _, ok := next.moments[r.MomentID]; !ok {
			appErr = models.NewNotFoundError("Moment", r.MomentID)
		} else {
			appErr = next.addRSVP(&r)
		}
		cmd.change.RSVP = &r
	case cmd.change.Follow != nil:
		f := *cmd.change.Follow
		appErr = next.addFollow(&f)
		cmd.change.Follow = &f
	default:
		appErr = models.NewValidationError("empty change")
	}
	if appErr != nil {
		observability.StoreWrites.WithLabelValues(kind, "rejected").Inc()
		return Change{}, 0, appErr
	}

	if s.sink != nil {
		if err := s.sink.Persist(cmd.ctx, cmd.change); err != nil {
			observability.StoreWrites.WithLabelValues(kind, "error").Inc()
			s.logger.ErrorContext(cmd.ctx, "failed to persist change",
				slog.String("kind", kind),
				slog.String("error", err.Error()),
			)
			return Change{}, 0, models.NewInternalError(fmt.Errorf("persist %s: %w", kind, err))
		}
	}

	next.version++
	s.current.Store(next)

	observability.StoreWrites.WithLabelValues(kind, "committed").Inc()
	observability.SnapshotVersion.Set(float64(next.version))
	s.logger.DebugContext(cmd.ctx, "change committed",
		slog.String("kind", kind),
		slog.Uint64("version", next.version),
	)
	return cmd.change, next.version, nil
}
