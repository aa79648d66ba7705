package contacts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/contactstore/internal/backend"
	"github.com/roach88/contactstore/internal/request"
)

// Store is the indexed contact store over one backend.
//
// All public operations return a *request.Request immediately and are
// executed in submission order by the single Run goroutine. Only that
// goroutine reads or writes the index and the dirty flag.
//
// Thread-safety model:
//   - Save, Update, Remove, Clear, Flush, readers: safe from any goroutine
//   - Run(): must be called from exactly one goroutine
//   - Stop(), Stats(): safe from any goroutine
type Store struct {
	backend backend.Backend
	gate    gate
	queue   *opQueue
	logger  *slog.Logger
	ids     IDGenerator
	stats   *Stats

	// Owned by the Run goroutine.
	index *Index
	dirty bool
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithIDGenerator sets the generator for operation ids used in log lines.
// Defaults to UUIDv7Generator.
func WithIDGenerator(ids IDGenerator) Option {
	return func(s *Store) {
		s.ids = ids
	}
}

// New creates a Store over b. Nothing touches the backend until the first
// operation runs.
func New(b backend.Backend, opts ...Option) *Store {
	s := &Store{
		backend: b,
		queue:   newOpQueue(),
		logger:  slog.Default(),
		ids:     UUIDv7Generator{},
		stats:   &Stats{},
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Run executes queued operations until ctx is cancelled or Stop is called.
//
// After Stop, operations already queued still run before Run returns nil.
// On ctx cancellation, queued operations are failed with STOPPED and ctx's
// error is returned. The ctx is handed to every backend call.
func (s *Store) Run(ctx context.Context) error {
	s.logger.Debug("contacts store starting")

	for {
		if err := ctx.Err(); err != nil {
			s.logger.Debug("contacts store stopping: context cancelled")
			s.abortPending()
			return err
		}

		op, ok := s.queue.TryDequeue()
		if ok {
			op.run(ctx)
			continue
		}

		select {
		case <-ctx.Done():
			s.logger.Debug("contacts store stopping: context cancelled")
			s.abortPending()
			return ctx.Err()

		case <-s.queue.Wait():
			// The signal channel closes when the queue is closed,
			// which will cause this case to fire immediately.
			if s.queue.Len() == 0 && s.queue.Closed() {
				s.logger.Debug("contacts store stopping: queue closed")
				return nil
			}
		}
	}
}

func (s *Store) abortPending() {
	for _, op := range s.queue.Drain() {
		op.abort(newStoppedError(op.name))
	}
}

// Stop closes the store to new operations. Run returns once the queue is empty.
func (s *Store) Stop() {
	s.queue.Close()
}

// Close stops the store and closes its backend.
func (s *Store) Close() error {
	s.Stop()
	return s.backend.Close()
}

// Stats returns the store's counters.
func (s *Store) Stats() map[string]int64 {
	return s.stats.Snapshot()
}

// currentBackend returns the backend handle. Only valid once the gate is ready.
func (s *Store) currentBackend() backend.Backend {
	if !s.gate.ready() {
		panic("contacts: backend accessed before initialization")
	}
	return s.backend
}

// currentIndex returns the live index. Only valid once the gate is ready.
func (s *Store) currentIndex() *Index {
	if !s.gate.ready() {
		panic("contacts: index accessed before initialization")
	}
	return s.index
}

// ensureReady loads the index on first use.
func (s *Store) ensureReady(ctx context.Context) error {
	return s.gate.ensure(ctx, s.loadIndex)
}

// loadIndex reads the persisted index, creating and persisting an empty one
// when the backend has none.
func (s *Store) loadIndex(ctx context.Context) error {
	s.stats.InitTotal.Add(1)

	data, err := s.backend.Get(ctx, backend.IndexKey)
	if errors.Is(err, backend.ErrNotFound) {
		ix := NewIndex()
		data, err := marshalIndex(ix)
		if err != nil {
			return err
		}
		if err := s.backend.Update(ctx, backend.IndexKey, data); err != nil {
			return fmt.Errorf("create index: %w", err)
		}
		s.index = ix
		s.dirty = false
		s.logger.Debug("contacts index created")
		return nil
	}
	if err != nil {
		return fmt.Errorf("read index: %w", err)
	}

	ix, err := unmarshalIndex(data)
	if err != nil {
		return err
	}
	s.index = ix
	s.dirty = false
	s.logger.Debug("contacts index loaded", "records", ix.Len())
	return nil
}

// submit queues fn and returns the request it will complete. fn runs on the
// Run goroutine after the gate unless skipGate is set.
func submit[T any](s *Store, name string, skipGate bool, fn func(ctx context.Context) (T, error)) *request.Request[T] {
	req, res := request.New[T]()
	id := s.ids.Generate()

	op := operation{
		name: name,
		id:   id,
		run: func(ctx context.Context) {
			s.stats.OpsTotal.Add(1)
			log := s.logger.With("op", name, "op_id", id)

			if !skipGate {
				if err := s.ensureReady(ctx); err != nil {
					s.stats.OpsFailedTotal.Add(1)
					log.Error("initialization failed", "error", err)
					res.Reject(err)
					return
				}
			}

			v, err := fn(ctx)
			if err != nil {
				s.stats.OpsFailedTotal.Add(1)
				var se *Error
				if errors.As(err, &se) {
					log.Warn("operation rejected", "code", se.Code, "uid", se.UID)
				} else {
					log.Error("operation failed", "error", err)
				}
				res.Reject(err)
				return
			}
			log.Debug("operation completed")
			res.Resolve(v)
		},
		abort: func(err error) {
			res.Reject(err)
		},
	}

	if !s.queue.Enqueue(op) {
		res.Reject(newStoppedError(name))
	}
	return req
}
