// internal/historian/historian.go is an asynchronous consumer that pops game
// action records from the Redis queue and persists them to PostgreSQL.
package historian

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/peak/internal/cache"
	"github.com/jason-s-yu/peak/internal/database"
	"github.com/jason-s-yu/peak/internal/game"
	"github.com/sirupsen/logrus"
)

// Source yields queued action records. Pop returns (nil, nil) when timeout
// elapses without data.
type Source interface {
	Pop(ctx context.Context, timeout time.Duration) (*cache.GameActionRecord, error)
}

// Sink persists batches of records.
type Sink interface {
	InsertActions(ctx context.Context, records []cache.GameActionRecord) error
	MarkGameAbandoned(ctx context.Context, gameID uuid.UUID) (bool, error)
}

// DatabaseSink writes through the shared database pool.
type DatabaseSink struct{}

func (DatabaseSink) InsertActions(ctx context.Context, records []cache.GameActionRecord) error {
	return database.InsertActions(ctx, records)
}

func (DatabaseSink) MarkGameAbandoned(ctx context.Context, gameID uuid.UUID) (bool, error) {
	return database.MarkGameAbandoned(ctx, gameID)
}

// Options tune batching and abandonment.
type Options struct {
	BatchSize     int
	FlushDelay    time.Duration
	Inactivity    time.Duration
	SweepInterval time.Duration
	PopTimeout    time.Duration
}

// Service batches records from a Source into a Sink and marks games
// abandoned once they have been silent for longer than Inactivity.
type Service struct {
	source Source
	sink   Sink
	opts   Options
	now    func() time.Time
	logger *logrus.Entry

	mu           sync.Mutex
	batch        []cache.GameActionRecord
	lastActivity map[uuid.UUID]time.Time
}

// NewService builds a Service, filling unset options with defaults.
func NewService(source Source, sink Sink, opts Options) *Service {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 20
	}
	if opts.FlushDelay <= 0 {
		opts.FlushDelay = 500 * time.Millisecond
	}
	if opts.Inactivity <= 0 {
		opts.Inactivity = 10 * time.Minute
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = time.Minute
	}
	if opts.PopTimeout <= 0 {
		opts.PopTimeout = time.Second
	}
	return &Service{
		source:       source,
		sink:         sink,
		opts:         opts,
		now:          time.Now,
		logger:       logrus.WithField("component", "historian"),
		batch:        make([]cache.GameActionRecord, 0, opts.BatchSize),
		lastActivity: make(map[uuid.UUID]time.Time),
	}
}

// Run consumes the source until ctx is cancelled, then flushes what is left.
func (s *Service) Run(ctx context.Context) {
	s.logger.Info("peak-historian service started.")
	lastFlush := s.now()
	lastSweep := s.now()

	for ctx.Err() == nil {
		rec, err := s.source.Pop(ctx, s.opts.PopTimeout)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			s.logger.Errorf("pop: %v", err)
			select {
			case <-ctx.Done():
			case <-time.After(s.opts.FlushDelay):
			}
			continue
		}
		if rec != nil {
			s.Add(ctx, *rec)
		}

		now := s.now()
		if now.Sub(lastFlush) >= s.opts.FlushDelay {
			s.Flush(ctx)
			lastFlush = now
		}
		if now.Sub(lastSweep) >= s.opts.SweepInterval {
			s.SweepInactive(ctx)
			lastSweep = now
		}
	}

	// the run context is gone; give the final flush its own deadline
	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.Flush(flushCtx)
	s.logger.Info("peak-historian shutting down.")
}

// Add appends a record to the batch and flushes once the batch is full.
func (s *Service) Add(ctx context.Context, rec cache.GameActionRecord) {
	s.mu.Lock()
	if rec.ActionType == string(game.EventGameEnd) {
		delete(s.lastActivity, rec.GameID)
	} else {
		s.lastActivity[rec.GameID] = s.now()
	}
	s.batch = append(s.batch, rec)
	full := len(s.batch) >= s.opts.BatchSize
	s.mu.Unlock()

	if full {
		s.Flush(ctx)
	}
}

// Flush writes the pending batch in one call to the sink. A failed batch is
// kept and retried on the next flush.
func (s *Service) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.batch) == 0 {
		return nil
	}
	if err := s.sink.InsertActions(ctx, s.batch); err != nil {
		s.logger.Errorf("flush of %d actions failed: %v", len(s.batch), err)
		return err
	}
	s.logger.Debugf("Flushed %d actions to DB.", len(s.batch))
	s.batch = make([]cache.GameActionRecord, 0, s.opts.BatchSize)
	return nil
}

// Pending returns the number of buffered records.
func (s *Service) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.batch)
}

// SweepInactive marks every game silent for longer than the inactivity
// threshold as abandoned and returns how many were marked.
func (s *Service) SweepInactive(ctx context.Context) int {
	now := s.now()
	var stale []uuid.UUID
	s.mu.Lock()
	for id, last := range s.lastActivity {
		if now.Sub(last) > s.opts.Inactivity {
			stale = append(stale, id)
			delete(s.lastActivity, id)
		}
	}
	s.mu.Unlock()

	marked := 0
	for _, id := range stale {
		changed, err := s.sink.MarkGameAbandoned(ctx, id)
		if err != nil {
			s.logger.Warnf("failed to mark game %v abandoned: %v", id, err)
			continue
		}
		if changed {
			marked++
			s.logger.Infof("Marked game %v as 'abandoned' due to inactivity.", id)
		}
	}
	return marked
}
