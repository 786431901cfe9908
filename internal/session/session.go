// Package session keeps the single authentication session of the process
// and persists it under common.SessionKey.
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/atelier/internal/common"
	"github.com/dmitrijs2005/atelier/internal/logging"
	"github.com/dmitrijs2005/atelier/internal/models"
	"github.com/dmitrijs2005/atelier/internal/storage/kv"
)

// Store owns the in-memory session and its persisted copy. The in-memory
// value only changes after the store write succeeded.
type Store struct {
	mu      sync.RWMutex
	store   *kv.JSONStore
	logger  logging.Logger
	current models.Session
}

func New(store *kv.JSONStore, logger logging.Logger) *Store {
	return &Store{store: store, logger: logger.With("module", "session")}
}

// Restore reloads the session from the store. An absent, malformed or
// inconsistent record yields the logged-out session. Calling it again just
// re-reads the same record.
func (s *Store) Restore(ctx context.Context) (models.Session, error) {
	var persisted models.Session
	ok, err := s.store.Load(ctx, common.SessionKey, &persisted)
	if err != nil {
		return models.Session{}, fmt.Errorf("restore session: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case !ok || !persisted.IsAuthenticated:
		s.current = models.Session{}
	case !persisted.Valid():
		s.logger.Warn(ctx, "discarding inconsistent session",
			"error", common.ErrMalformedPersistedState)
		s.current = models.Session{}
	default:
		s.current = persisted
	}
	return cloneSession(s.current), nil
}

// Establish persists an authenticated session for info.
func (s *Store) Establish(ctx context.Context, userType models.UserType, info models.UserInfo) error {
	info = info.Clone()
	info.UserType = userType
	next := models.Session{UserType: &userType, UserInfo: &info, IsAuthenticated: true}

	if err := s.store.Save(ctx, common.SessionKey, next); err != nil {
		return fmt.Errorf("establish session: %w", err)
	}

	s.mu.Lock()
	s.current = next
	s.mu.Unlock()
	return nil
}

// UpdateUserInfo merges partial into the session's user info. It fails with
// common.ErrUpdateWithoutSession while logged out.
func (s *Store) UpdateUserInfo(ctx context.Context, partial map[string]any) (models.UserInfo, error) {
	s.mu.RLock()
	cur := cloneSession(s.current)
	s.mu.RUnlock()

	if !cur.IsAuthenticated || cur.UserInfo == nil {
		return models.UserInfo{}, common.ErrUpdateWithoutSession
	}
	if err := cur.UserInfo.Merge(partial); err != nil {
		return models.UserInfo{}, err
	}
	if err := s.store.Save(ctx, common.SessionKey, cur); err != nil {
		return models.UserInfo{}, fmt.Errorf("update session: %w", err)
	}

	s.mu.Lock()
	s.current = cur
	s.mu.Unlock()
	return cur.UserInfo.Clone(), nil
}

// Clear removes the persisted session and logs out.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.store.Remove(ctx, common.SessionKey); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	s.mu.Lock()
	s.current = models.Session{}
	s.mu.Unlock()
	return nil
}

// Current returns a copy of the session.
func (s *Store) Current() models.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneSession(s.current)
}

func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.IsAuthenticated
}

// UserInfo returns a copy of the logged-in user's info, or nil.
func (s *Store) UserInfo() *models.UserInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current.UserInfo == nil {
		return nil
	}
	info := s.current.UserInfo.Clone()
	return &info
}

func cloneSession(in models.Session) models.Session {
	out := models.Session{IsAuthenticated: in.IsAuthenticated}
	if in.UserType != nil {
		t := *in.UserType
		out.UserType = &t
	}
	if in.UserInfo != nil {
		info := in.UserInfo.Clone()
		out.UserInfo = &info
	}
	return out
}
