// Package scheduler drives the supplemental cron-triggered walk
// runner: on each tick it asks a PendingSessionSource for sessions a
// crashed or suspended process left behind, and resumes each one
// through the same walkTree contract a live process would have used.
// The ticker-driven loop, in-flight dedup set, and Start/Stop/
// RecoverMissed shape center on a PendingSessionSource, since forge
// has no cross-session job definitions to persist — only sessions
// whose walk was interrupted mid-flight.
package scheduler

import (
	"context"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/forgewalk/forge/pkg/forge"
)

// PendingSession is one previously-started walk a scheduler tick
// should attempt to resume.
type PendingSession struct {
	SessionID string
	Tree      forge.ForgeTree
	StartKey  string
}

// PendingSessionSource enumerates sessions eligible for resumption,
// e.g. ones a store marks as "started but not yet terminal" past some
// staleness threshold.
type PendingSessionSource interface {
	ListPending(ctx context.Context) ([]PendingSession, error)
}

// Resumer restarts a walk from startKey — in practice
// internal/walker.Session.WalkTree on a Session rehydrated against
// the same sessionID, which will fast-forward past any already-
// committed actions.
type Resumer interface {
	Resume(ctx context.Context, sessionID string, tree forge.ForgeTree, startKey string) (forge.WalkStatus, error)
}

// Scheduler periodically scans a PendingSessionSource and resumes each
// due session exactly once per tick, deduplicating against sessions
// already in flight from a prior tick.
type Scheduler struct {
	source  PendingSessionSource
	resumer Resumer
	cron    *cron.Cron
	logger  *slog.Logger

	mu      sync.Mutex
	entryID cron.EntryID
	started bool

	inflightMu sync.Mutex
	inflight   map[string]struct{}
}

// NewScheduler creates a Scheduler that is not yet running.
func NewScheduler(source PendingSessionSource, resumer Resumer, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		source:   source,
		resumer:  resumer,
		cron:     cron.New(cron.WithSeconds()),
		logger:   logger,
		inflight: make(map[string]struct{}),
	}
}

// Start schedules the resume scan under spec (a 6-field cron expression
// with a leading seconds field, e.g. "*/30 * * * * *" for every 30 seconds) and
// begins running it. Calling Start twice without Stop returns an
// error.
func (s *Scheduler) Start(spec string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return forge.NewError(forge.ErrCodeConflict, "scheduler already started")
	}

	id, err := s.cron.AddFunc(spec, func() { s.tick(context.Background()) })
	if err != nil {
		return forge.NewErrorf(forge.ErrCodeValidation, "invalid cron expression %q: %s", spec, err.Error()).WithCause(err)
	}

	s.entryID = id
	s.started = true
	s.cron.Start()
	s.logger.Info("scheduler started", "spec", spec)
	return nil
}

// Stop gracefully halts the cron loop, waiting for any in-progress
// tick to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return
	}
	<-s.cron.Stop().Done()
	s.started = false
	s.logger.Info("scheduler stopped")
}

// RecoverMissed runs one resume scan immediately, outside the cron
// schedule — intended for process startup, to pick up sessions left
// pending by a prior crash before the first scheduled tick fires.
func (s *Scheduler) RecoverMissed(ctx context.Context) {
	s.tick(ctx)
}

func (s *Scheduler) tick(ctx context.Context) {
	pending, err := s.source.ListPending(ctx)
	if err != nil {
		s.logger.Error("failed to list pending sessions", "error", err.Error())
		return
	}

	for _, p := range pending {
		if !s.tryAcquire(p.SessionID) {
			continue
		}
		go func(p PendingSession) {
			defer s.release(p.SessionID)
			status, err := s.resumer.Resume(ctx, p.SessionID, p.Tree, p.StartKey)
			if err != nil {
				s.logger.Error("resume failed", "session_id", p.SessionID, "error", err.Error())
				return
			}
			s.logger.Info("resume completed", "session_id", p.SessionID, "status", string(status))
		}(p)
	}
}

func (s *Scheduler) tryAcquire(sessionID string) bool {
	s.inflightMu.Lock()
	defer s.inflightMu.Unlock()
	if _, ok := s.inflight[sessionID]; ok {
		return false
	}
	s.inflight[sessionID] = struct{}{}
	return true
}

func (s *Scheduler) release(sessionID string) {
	s.inflightMu.Lock()
	defer s.inflightMu.Unlock()
	delete(s.inflight, sessionID)
}
