package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
)

// CachedIdentityResolver serves username and id lookups from a cache in
// front of the directory. Cache faults fall through to the directory; only
// found users are cached.
type CachedIdentityResolver struct {
	next   usecase.IdentityResolver
	cache  usecase.Cache
	ttl    time.Duration
	logger zerolog.Logger
}

// NewCachedIdentityResolver wraps next.
func NewCachedIdentityResolver(next usecase.IdentityResolver, cache usecase.Cache, ttl time.Duration, logger zerolog.Logger) *CachedIdentityResolver {
	return &CachedIdentityResolver{
		next:   next,
		cache:  cache,
		ttl:    ttl,
		logger: logger.With().Str("component", "identity_cache").Logger(),
	}
}

// ResolveUsername implements usecase.IdentityResolver.
func (r *CachedIdentityResolver) ResolveUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.lookup(ctx, "user:name:"+username, func() (*domain.User, error) {
		return r.next.ResolveUsername(ctx, username)
	})
}

// GetByID implements usecase.IdentityResolver.
func (r *CachedIdentityResolver) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.lookup(ctx, "user:id:"+id, func() (*domain.User, error) {
		return r.next.GetByID(ctx, id)
	})
}

func (r *CachedIdentityResolver) lookup(ctx context.Context, key string, load func() (*domain.User, error)) (*domain.User, error) {
	raw, err := r.cache.Get(ctx, key)
	switch {
	case err == nil:
		var user domain.User
		if err := json.Unmarshal(raw, &user); err == nil {
			return &user, nil
		}
		r.logger.Warn().Str("key", key).Msg("dropping undecodable cache entry")
	case !errors.Is(err, ErrCacheMiss):
		r.logger.Warn().Err(err).Str("key", key).Msg("identity cache read failed")
	}

	user, err := load()
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(user); err == nil {
		if err := r.cache.Set(ctx, key, raw, r.ttl); err != nil {
			r.logger.Warn().Err(err).Str("key", key).Msg("identity cache write failed")
		}
	}

	return user, nil
}
