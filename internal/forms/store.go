package forms

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/craftora/backoffice/pkg/config"
	pkgerrors "github.com/craftora/backoffice/pkg/errors"
	"github.com/craftora/backoffice/pkg/logger"
	"github.com/google/uuid"
)

// Session is one open draft: the working copy, its preview registry, and
// the in-flight submission guard. All previews staged on the draft live in
// the session's own registry so expiry can release them in one sweep.
type Session struct {
	ID        uuid.UUID
	OwnerID   uuid.UUID
	Draft     *FormDraft
	Previews  *PreviewRegistry
	ExpiresAt time.Time

	mu       sync.Mutex
	inFlight bool

	draftMu sync.Mutex
}

// LockDraft serializes access to the session's draft. Every read or write
// of Draft after the session is published must hold this lock; a submission
// run holds it end to end, so concurrent requests queue behind it instead
// of racing the orchestrator's walk over the draft.
func (s *Session) LockDraft() {
	s.draftMu.Lock()
}

// UnlockDraft releases the draft lock.
func (s *Session) UnlockDraft() {
	s.draftMu.Unlock()
}

// TryAcquireSubmit marks the session as submitting. It reports false when a
// submission is already running, which callers surface as a conflict rather
// than queueing a second run.
func (s *Session) TryAcquireSubmit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight {
		return false
	}
	s.inFlight = true
	return true
}

// ReleaseSubmit clears the in-flight guard once a run reaches a terminal
// state.
func (s *Session) ReleaseSubmit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight = false
}

// Submitting reports whether a submission is currently running.
func (s *Session) Submitting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight
}

// Store holds open draft sessions in memory with a sliding TTL. Sessions
// are per-instance state, they hold staged image bytes and are not meant to
// survive a restart.
type Store struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
	ttl      time.Duration
	sweep    time.Duration
	now      func() time.Time
}

// NewStore builds a session store from the draft lifecycle settings.
func NewStore(cfg config.DraftsConfig) (*Store, error) {
	if cfg.TTL <= 0 {
		return nil, fmt.Errorf("draft ttl must be positive")
	}
	if cfg.SweepInterval <= 0 {
		return nil, fmt.Errorf("draft sweep interval must be positive")
	}
	return &Store{
		sessions: make(map[uuid.UUID]*Session),
		ttl:      cfg.TTL,
		sweep:    cfg.SweepInterval,
		now:      time.Now,
	}, nil
}

// Open registers a new session for the draft and returns it.
func (s *Store) Open(ownerID uuid.UUID, draft *FormDraft) *Session {
	session := &Session{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Draft:     draft,
		Previews:  NewPreviewRegistry(),
		ExpiresAt: s.now().Add(s.ttl),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session
	return session
}

// Get returns a live session and slides its expiry forward. Sessions opened
// by one admin are not visible to another.
func (s *Store) Get(id, ownerID uuid.UUID) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok || s.now().After(session.ExpiresAt) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("draft %s not found", id))
	}
	if session.OwnerID != ownerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "draft belongs to another admin")
	}
	session.ExpiresAt = s.now().Add(s.ttl)
	return session, nil
}

// Discard removes a session and releases every staged preview it held. The
// ownership check runs before the delete so a non-owner call cannot evict
// the owner's session.
func (s *Store) Discard(id, ownerID uuid.UUID) error {
	s.mu.Lock()
	session, ok := s.sessions[id]
	if !ok {
		s.mu.Unlock()
		return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("draft %s not found", id))
	}
	if session.OwnerID != ownerID {
		s.mu.Unlock()
		return pkgerrors.New(pkgerrors.CodeForbidden, "draft belongs to another admin")
	}
	delete(s.sessions, id)
	s.mu.Unlock()

	session.LockDraft()
	defer session.UnlockDraft()
	return session.Draft.ReleaseAll(session.Previews)
}

// Len reports how many sessions are currently open.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// SweepExpired drops every expired session, releasing its previews, and
// returns how many were removed. Sessions mid-submission are skipped and
// picked up on a later sweep.
func (s *Store) SweepExpired() int {
	now := s.now()

	s.mu.Lock()
	var expired []*Session
	for id, session := range s.sessions {
		if now.After(session.ExpiresAt) && !session.Submitting() {
			expired = append(expired, session)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, session := range expired {
		session.LockDraft()
		// Release errors here mean a handle was already gone, nothing
		// actionable remains.
		_ = session.Draft.ReleaseAll(session.Previews)
		session.UnlockDraft()
	}
	return len(expired)
}

// RunSweeper evicts expired sessions on the configured cadence until the
// context is canceled.
func (s *Store) RunSweeper(ctx context.Context, logg *logger.Logger) {
	ticker := time.NewTicker(s.sweep)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logg.Info(ctx, "draft sweeper stopped")
			return
		case <-ticker.C:
			if removed := s.SweepExpired(); removed > 0 {
				swept := logg.WithField(ctx, "removed", removed)
				logg.Info(swept, "expired drafts swept")
			}
		}
	}
}
