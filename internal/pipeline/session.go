package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/couchcryptid/beacon-outage-service/internal/domain"
	"github.com/couchcryptid/beacon-outage-service/internal/lru"
	"github.com/jonboulle/clockwork"
)

// LocalityResolver resolves a viewer id to a locality context.
type LocalityResolver interface {
	Resolve(ctx context.Context, userID string) domain.LocalityContext
}

// resolveTimeout bounds a locality resolution detached from the request.
const resolveTimeout = 5 * time.Second

// Session is one viewer's state. The locality is resolved on first use and
// kept until the viewer logs in or out. Failed resolutions are not kept.
type Session struct {
	resolver LocalityResolver

	mu       sync.Mutex
	userID   string
	locality *domain.LocalityContext
}

// NewSession creates a session for userID; an empty id is a guest.
func NewSession(resolver LocalityResolver, userID string) *Session {
	return &Session{resolver: resolver, userID: userID}
}

// UserID returns the viewer id, empty for a guest.
func (s *Session) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

// Locality returns the viewer's locality, resolving it until a resolution
// succeeds. Resolution outlives a cancelled request but not resolveTimeout.
func (s *Session) Locality(ctx context.Context) domain.LocalityContext {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.locality != nil {
		return *s.locality
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), resolveTimeout)
	defer cancel()

	lc := s.resolver.Resolve(ctx, s.userID)
	if !lc.Failed() {
		s.locality = &lc
	}
	return lc
}

// Login switches the session to userID and forgets the resolved locality.
func (s *Session) Login(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID = userID
	s.locality = nil
}

// Logout turns the session into a guest session.
func (s *Session) Logout() {
	s.Login("")
}

// Sessions keeps recently active sessions by user id.
type Sessions struct {
	resolver LocalityResolver
	cache    *lru.Cache[string, *Session]
}

// NewSessions creates a session registry holding up to size sessions, each
// dropped ttl after it was created so profile edits are picked up.
func NewSessions(resolver LocalityResolver, size int, ttl time.Duration, clock clockwork.Clock) *Sessions {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Sessions{
		resolver: resolver,
		cache:    lru.New[string, *Session](size, lru.WithTTL(ttl), lru.WithClock(clock)),
	}
}

// Get returns the session of userID, creating it on first use. Guests get a
// fresh session every time.
func (s *Sessions) Get(userID string) *Session {
	if userID == "" {
		return NewSession(s.resolver, "")
	}
	if sess, ok := s.cache.Get(userID); ok {
		return sess
	}
	sess := NewSession(s.resolver, userID)
	s.cache.Put(userID, sess)
	return sess
}

// Logout ends a user's session so the next request resolves afresh.
func (s *Sessions) Logout(userID string) {
	if sess, ok := s.cache.Get(userID); ok {
		sess.Logout()
	}
	s.cache.Remove(userID)
}
