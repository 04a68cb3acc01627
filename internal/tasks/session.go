package tasks

import (
	"context"
	"sync"

	"github.com/desertthunder/plylist/internal/services"
)

// session caches a platform's authenticated state.
//
// Authentication is lazy, at most one attempt runs at a time, and an auth error from any call drops the cached
// state so the next use authenticates again.
type session struct {
	platform services.Platform

	authMu sync.Mutex // held for the duration of an Authenticate call
	mu     sync.Mutex
	ready  bool
}

func newSession(p services.Platform) *session {
	return &session{platform: p}
}

func (s *session) isReady() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

func (s *session) ensure(ctx context.Context) error {
	if s.isReady() {
		return nil
	}

	s.authMu.Lock()
	defer s.authMu.Unlock()

	if s.isReady() {
		return nil
	}
	if err := s.platform.Authenticate(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	s.ready = true
	s.mu.Unlock()
	return nil
}

func (s *session) invalidate() {
	s.mu.Lock()
	s.ready = false
	s.mu.Unlock()
}

// observe invalidates the session when err is an auth failure.
func (s *session) observe(err error) {
	if err != nil && services.KindOf(err) == services.KindAuth {
		s.invalidate()
	}
}
