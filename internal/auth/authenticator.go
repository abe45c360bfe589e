package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/weiawesome/wes-io-chat/internal/cache"
	"github.com/weiawesome/wes-io-chat/internal/domain"
	"github.com/weiawesome/wes-io-chat/internal/repository"
	"github.com/weiawesome/wes-io-chat/pkg/jwt"
	"github.com/weiawesome/wes-io-chat/pkg/log"
)

// TokenVerifier validates a bearer credential and returns its claims.
type TokenVerifier interface {
	ValidateToken(token string) (*jwt.Claims, error)
}

// Authenticator resolves a handshake credential to a stored user.
type Authenticator struct {
	verifier TokenVerifier
	users    repository.UserRepository
	cache    cache.UserCache
	cacheTTL time.Duration
	sf       singleflight.Group
}

// NewAuthenticator builds an Authenticator. userCache may be nil.
func NewAuthenticator(verifier TokenVerifier, users repository.UserRepository, userCache cache.UserCache, cacheTTL time.Duration) *Authenticator {
	return &Authenticator{
		verifier: verifier,
		users:    users,
		cache:    userCache,
		cacheTTL: cacheTTL,
	}
}

// Authenticate returns the user the token was issued for. Every failure
// wraps domain.ErrAuthFailure.
func (a *Authenticator) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: missing token", domain.ErrAuthFailure)
	}

	claims, err := a.verifier.ValidateToken(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrAuthFailure, err)
	}

	result, err, _ := a.sf.Do(claims.UserID, func() (interface{}, error) {
		return a.loadUser(ctx, claims.UserID)
	})
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, fmt.Errorf("%w: user no longer exists", domain.ErrAuthFailure)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrAuthFailure, err)
	}

	user, ok := result.(*domain.User)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected result type from singleflight", domain.ErrAuthFailure)
	}
	return user, nil
}

func (a *Authenticator) loadUser(ctx context.Context, userID string) (*domain.User, error) {
	if a.cache != nil {
		cached, err := a.cache.Get(ctx, userID)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			l := log.Ctx(ctx)
			l.Warn().Err(err).Str(log.FieldUserID, userID).Msg("cache get error")
		}
	}

	user, err := a.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if a.cache != nil {
		if err := a.cache.Set(ctx, user, a.cacheTTL); err != nil {
			l := log.Ctx(ctx)
			l.Warn().Err(err).Str(log.FieldUserID, userID).Msg("cache set error")
		}
	}
	return user, nil
}
