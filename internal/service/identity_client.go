package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"trade-service/internal/models"
	"trade-service/internal/redisclient"
	"trade-service/internal/util"

	"go.uber.org/zap"
)

// Profile is the public slice of a user account used to enrich item and
// offer views
type Profile struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Photo    string `json:"photo"`
}

// IdentityClient resolves user IDs to public profiles. Lookups go
// through Redis first and fall back to the database; a missing record
// resolves to nil rather than an error, so callers render blank fields.
type IdentityClient struct {
	users  UserRepository
	cache  *redisclient.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewIdentityClient creates a new identity client; cache may be nil
func NewIdentityClient(users UserRepository, cache *redisclient.Client) *IdentityClient {
	return &IdentityClient{
		users:  users,
		cache:  cache,
		ttl:    10 * time.Minute,
		logger: util.GetLogger(),
	}
}

// Resolve returns the user's public profile, or nil if no record exists
func (ic *IdentityClient) Resolve(ctx context.Context, userID int64) (*Profile, error) {
	ctx, span := util.StartSpan(ctx, "IdentityClient.Resolve")
	defer span.End()

	if ic.cache != nil {
		payload, err := ic.cache.GetProfile(ctx, userID)
		if err != nil {
			ic.logger.Warn("Profile cache read failed, falling back to DB",
				zap.Int64("user_id", userID),
				zap.Error(err))
		} else if payload != nil {
			var profile Profile
			if err := json.Unmarshal(payload, &profile); err == nil {
				util.IdentityCacheHits.Inc()
				return &profile, nil
			}
		}
	}
	util.IdentityCacheMisses.Inc()

	user, err := ic.users.GetByID(ctx, userID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	profile := &Profile{
		ID:       user.ID,
		Username: user.Username,
		Name:     user.Name,
		Photo:    user.Photo,
	}

	if ic.cache != nil {
		go func() {
			cacheCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			payload, err := json.Marshal(profile)
			if err != nil {
				return
			}
			if err := ic.cache.SetProfile(cacheCtx, userID, payload, ic.ttl); err != nil {
				ic.logger.Error("Failed to cache profile",
					zap.Int64("user_id", userID),
					zap.Error(err))
			}
		}()
	}

	return profile, nil
}

// Invalidate drops the cached profile after an account change
func (ic *IdentityClient) Invalidate(ctx context.Context, userID int64) {
	if ic.cache == nil {
		return
	}
	if err := ic.cache.InvalidateProfile(ctx, userID); err != nil {
		ic.logger.Error("Failed to invalidate profile cache",
			zap.Int64("user_id", userID),
			zap.Error(err))
	}
}
