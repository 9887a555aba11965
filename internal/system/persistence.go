package system

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/l1jgo/action/internal/action"
	coresys "github.com/l1jgo/action/internal/core/system"
	"github.com/l1jgo/action/internal/persist"
)

// JournalFlushLabel labels the driver task that writes a journal batch. Its
// own record is never journaled.
const JournalFlushLabel = "journal.flush"

// JournalWriter stores a batch of journal entries.
type JournalWriter interface {
	Write(ctx context.Context, entries []persist.JournalEntry) error
}

// JournalSystem buffers driver records and periodically writes them through
// a Task bridge started on the driver itself, so the write runs off the tick
// goroutine while its completion is observed on it. Phase 2 (Persist).
type JournalSystem struct {
	driver   *action.Driver
	writer   JournalWriter
	runID    uuid.UUID
	log      *zap.Logger
	now      func() time.Time
	timeout  time.Duration
	interval int // flush every N ticks

	tickCount int
	buf       []persist.JournalEntry
	inflight  []persist.JournalEntry
	flight    action.Controller

	written uint64
	failed  uint64
}

func NewJournalSystem(driver *action.Driver, writer JournalWriter, runID uuid.UUID, intervalTicks int, log *zap.Logger) *JournalSystem {
	return &JournalSystem{
		driver:   driver,
		writer:   writer,
		runID:    runID,
		log:      log,
		now:      time.Now,
		timeout:  5 * time.Second,
		interval: intervalTicks,
	}
}

func (s *JournalSystem) Phase() coresys.Phase { return coresys.PhasePersist }

// Observe is a driver observer buffering every finished or stopped controller.
func (s *JournalSystem) Observe(rec action.Record) {
	if rec.Label == JournalFlushLabel {
		return
	}
	s.buf = append(s.buf, persist.NewJournalEntry(s.runID, rec, s.now()))
}

func (s *JournalSystem) Update(_ time.Duration) {
	s.tickCount++
	if s.tickCount < s.interval {
		return
	}
	s.tickCount = 0
	s.flush()
}

// flush starts one write task. At most one batch is in flight; entries keep
// buffering until it lands.
func (s *JournalSystem) flush() {
	if len(s.buf) == 0 || s.inflight != nil {
		return
	}
	batch := s.buf
	s.buf = nil

	writer, timeout := s.writer, s.timeout
	task := s.driver.Context().Task(func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return writer.Write(ctx, batch)
	}, func(err error) {
		s.inflight = nil
		if err != nil {
			s.failed += uint64(len(batch))
			s.log.Error("journal write failed", zap.Int("entries", len(batch)), zap.Error(err))
			return
		}
		s.written += uint64(len(batch))
		s.log.Debug("journal written", zap.Int("entries", len(batch)))
	})
	task.SetLabel(JournalFlushLabel)

	c, err := s.driver.Start(task, nil)
	if err != nil {
		s.log.Error("start journal flush", zap.Error(err))
		s.buf = append(batch, s.buf...)
		return
	}
	s.inflight = batch
	s.flight = c
}

// Drain writes everything not yet written, including a batch whose task was
// stopped before it reported back, synchronously. Called on shutdown after
// the driver stopped; a stopped batch that had already committed is written
// twice.
func (s *JournalSystem) Drain(ctx context.Context) error {
	if s.inflight != nil && !s.flight.IsFinished() {
		if err := s.flight.Stop(); err != nil {
			s.log.Warn("stop journal flush", zap.Error(err))
		}
	}
	batch := make([]persist.JournalEntry, 0, len(s.inflight)+len(s.buf))
	batch = append(batch, s.inflight...)
	batch = append(batch, s.buf...)
	s.inflight = nil
	s.buf = nil
	if len(batch) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.writer.Write(ctx, batch); err != nil {
		s.failed += uint64(len(batch))
		return err
	}
	s.written += uint64(len(batch))
	return nil
}

// Buffered returns the number of entries waiting for the next flush.
func (s *JournalSystem) Buffered() int { return len(s.buf) }

// Written returns the number of entries stored so far.
func (s *JournalSystem) Written() uint64 { return s.written }

// Failed returns the number of entries whose write failed.
func (s *JournalSystem) Failed() uint64 { return s.failed }
