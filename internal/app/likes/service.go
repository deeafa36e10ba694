// Package likes implements the album like counter: writes go to the store,
// reads go through a cache-aside layer keyed by album.
package likes

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"openmusic/internal/apperr"
	"openmusic/internal/metrics"
	"openmusic/internal/store"
)

// DefaultTTL is how long a cached count lives when no TTL is configured.
const DefaultTTL = 30 * time.Minute

// Store captures the persistence needs for like workflows.
type Store interface {
	LikeExists(ctx context.Context, userID, albumID string) (bool, error)
	InsertLike(ctx context.Context, userID, albumID string) (string, error)
	DeleteLike(ctx context.Context, userID, albumID string) error
	CountLikes(ctx context.Context, albumID string) (int, error)
}

// Albums reports whether an album exists.
type Albums interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// Cache is a fail-open cache: reads that fail are misses and failed writes
// are dropped.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string, ttl time.Duration)
	Delete(ctx context.Context, key string)
}

// Source identifies where a count was read from.
type Source string

const (
	SourceCache Source = "cache"
	SourceStore Source = "store"
)

// Count is the number of likes of an album and where it came from.
type Count struct {
	Likes  int
	Source Source
}

// Service coordinates album like operations.
type Service interface {
	Count(ctx context.Context, albumID string) (Count, error)
	Like(ctx context.Context, userID, albumID string) error
	Unlike(ctx context.Context, userID, albumID string) error
	Invalidate(ctx context.Context, albumID string)
}

type service struct {
	store  Store
	albums Albums
	cache  Cache
	ttl    time.Duration
}

// New constructs a Service. A non-positive ttl falls back to DefaultTTL.
func New(store Store, albums Albums, cache Cache, ttl time.Duration) Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &service{store: store, albums: albums, cache: cache, ttl: ttl}
}

// Key returns the cache key holding the like count of albumID.
func Key(albumID string) string {
	return "likes:" + albumID
}

func (s *service) Count(ctx context.Context, albumID string) (Count, error) {
	if err := ctx.Err(); err != nil {
		return Count{}, err
	}
	if strings.TrimSpace(albumID) == "" {
		return Count{}, apperr.New(apperr.KindValidation, "album id is required")
	}

	key := Key(albumID)
	if cached, ok := s.cache.Get(ctx, key); ok {
		if n, err := strconv.Atoi(cached); err == nil && n >= 0 {
			metrics.LikesCountLookups.WithLabelValues(string(SourceCache)).Inc()
			return Count{Likes: n, Source: SourceCache}, nil
		}
		log.Warn().Str("key", key).Str("value", cached).Msg("discarding unparsable cached like count")
	}

	if err := s.ensureAlbum(ctx, albumID); err != nil {
		return Count{}, err
	}

	n, err := s.store.CountLikes(ctx, albumID)
	if err != nil {
		return Count{}, err
	}

	s.cache.Set(ctx, key, strconv.Itoa(n), s.ttl)
	metrics.LikesCountLookups.WithLabelValues(string(SourceStore)).Inc()

	return Count{Likes: n, Source: SourceStore}, nil
}

func (s *service) Like(ctx context.Context, userID, albumID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateIDs(userID, albumID); err != nil {
		return err
	}

	if err := s.ensureAlbum(ctx, albumID); err != nil {
		return err
	}

	liked, err := s.store.LikeExists(ctx, userID, albumID)
	if err != nil {
		return err
	}
	if liked {
		return store.ErrLikeExists
	}

	if _, err := s.store.InsertLike(ctx, userID, albumID); err != nil {
		return err
	}

	s.Invalidate(ctx, albumID)
	return nil
}

func (s *service) Unlike(ctx context.Context, userID, albumID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateIDs(userID, albumID); err != nil {
		return err
	}

	if err := s.store.DeleteLike(ctx, userID, albumID); err != nil {
		return err
	}

	s.Invalidate(ctx, albumID)
	return nil
}

// Invalidate drops the cached count of albumID. It runs after the store
// mutation has committed and is not cancelled with the request.
func (s *service) Invalidate(ctx context.Context, albumID string) {
	s.cache.Delete(context.WithoutCancel(ctx), Key(albumID))
}

func (s *service) ensureAlbum(ctx context.Context, albumID string) error {
	exists, err := s.albums.Exists(ctx, albumID)
	if err != nil {
		return err
	}
	if !exists {
		return store.ErrAlbumNotFound
	}
	return nil
}

func validateIDs(userID, albumID string) error {
	if strings.TrimSpace(userID) == "" {
		return apperr.New(apperr.KindValidation, "user id is required")
	}
	if strings.TrimSpace(albumID) == "" {
		return apperr.New(apperr.KindValidation, "album id is required")
	}
	return nil
}
