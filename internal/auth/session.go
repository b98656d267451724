package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/kiwari-pos/terminal/internal/cache"
	"github.com/kiwari-pos/terminal/internal/enum"
	"github.com/kiwari-pos/terminal/internal/remote"
	"go.uber.org/zap"
)

// Session keeps the login token in the session store. The store is shared
// with the reference-data cache and the table-occupancy list, and ending
// the session clears all of them.
type Session struct {
	store cache.Store
	log   *zap.Logger
	now   func() time.Time
}

// NewSession creates a Session persisting into store.
func NewSession(store cache.Store, log *zap.Logger) *Session {
	return &Session{store: store, log: log, now: time.Now}
}

// Start stores token as the active session and returns its claims.
func (s *Session) Start(ctx context.Context, token string) (*Claims, error) {
	claims, err := ParseToken(token)
	if err != nil {
		return nil, err
	}
	if claims.Expired(s.now()) {
		return nil, ErrSessionExpired
	}

	var ttl time.Duration
	if claims.ExpiresAt != nil {
		ttl = claims.ExpiresAt.Sub(s.now())
	}
	if err := s.store.Set(ctx, enum.CacheKeyAuthToken, []byte(token), ttl); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	s.log.Info("session started", zap.String("username", claims.Username), zap.String("role", claims.Role))
	return claims, nil
}

// Claims returns the claims of the active session.
func (s *Session) Claims(ctx context.Context) (*Claims, error) {
	token, err := s.rawToken(ctx)
	if err != nil {
		return nil, err
	}
	claims, err := ParseToken(token)
	if err != nil {
		return nil, err
	}
	if claims.Expired(s.now()) {
		return nil, ErrSessionExpired
	}
	return claims, nil
}

// Token returns the bearer token for calls to the service.
func (s *Session) Token(ctx context.Context) (string, error) {
	token, err := s.rawToken(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %w", remote.ErrNotAuthenticated, err)
	}
	return token, nil
}

// End clears every session-scoped entry: the token, cached reference data
// and the table-occupancy list.
func (s *Session) End(ctx context.Context) error {
	keys, err := s.store.Keys(ctx, "")
	if err != nil {
		return fmt.Errorf("list session keys: %w", err)
	}
	keys = append(keys, enum.CacheKeyAuthToken)
	if err := s.store.Delete(ctx, keys...); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	s.log.Info("session ended", zap.Int("cleared", len(keys)))
	return nil
}

func (s *Session) rawToken(ctx context.Context) (string, error) {
	b, ok, err := s.store.Get(ctx, enum.CacheKeyAuthToken)
	if err != nil {
		return "", fmt.Errorf("read session: %w", err)
	}
	if !ok || len(b) == 0 {
		return "", ErrNoSession
	}
	return string(b), nil
}
