package redis

import (
	"context"
	"errors"
	"time"

	"github.com/samber/mo"

	"github.com/sweethome/vacancies-bot/internal/domain/profile"
)

// cachedProfile is the JSON shape of a profile. Optional roles are pointers
// so an absent role round-trips as null.
type cachedProfile struct {
	User      profile.User       `json:"user"`
	Seeker    *profile.Seeker    `json:"seeker,omitempty"`
	Recruiter *profile.Recruiter `json:"recruiter,omitempty"`
}

// ProfileCache implements profile.Cache on top of Cache.
type ProfileCache struct {
	cache *Cache
	ttl   time.Duration
}

// NewProfileCache creates a new ProfileCache.
func NewProfileCache(cache *Cache) *ProfileCache {
	return &ProfileCache{cache: cache, ttl: TTLProfileCache}
}

// WithTTL overrides how long profiles stay cached. Non-positive keeps the
// default.
func (c *ProfileCache) WithTTL(ttl time.Duration) *ProfileCache {
	if ttl > 0 {
		c.ttl = ttl
	}
	return c
}

// Get returns None on a miss.
func (c *ProfileCache) Get(ctx context.Context, userID int64) (mo.Option[profile.Profile], error) {
	var cp cachedProfile
	err := c.cache.Get(ctx, ProfileKey(userID), &cp)
	if errors.Is(err, ErrCacheMiss) {
		return mo.None[profile.Profile](), nil
	}
	if err != nil {
		return mo.None[profile.Profile](), err
	}

	return mo.Some(profile.Profile{
		User:      cp.User,
		Seeker:    mo.PointerToOption(cp.Seeker),
		Recruiter: mo.PointerToOption(cp.Recruiter),
	}), nil
}

// Set stores the profile under the user's key.
func (c *ProfileCache) Set(ctx context.Context, p profile.Profile) error {
	cp := cachedProfile{
		User:      p.User,
		Seeker:    p.Seeker.ToPointer(),
		Recruiter: p.Recruiter.ToPointer(),
	}
	return c.cache.Set(ctx, ProfileKey(p.User.ID), cp, c.ttl)
}

// Invalidate drops the cached profile.
func (c *ProfileCache) Invalidate(ctx context.Context, userID int64) error {
	return c.cache.Delete(ctx, ProfileKey(userID))
}
