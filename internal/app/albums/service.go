package albums

import (
	"context"

	"openmusic/internal/store"
)

// Store captures the persistence needs for album workflows.
type Store interface {
	CreateAlbum(ctx context.Context, album store.Album) (store.Album, error)
	AlbumByID(ctx context.Context, id string) (store.Album, error)
	AlbumExists(ctx context.Context, id string) (bool, error)
}

// Service coordinates album-related operations.
type Service interface {
	Create(ctx context.Context, album store.Album) (store.Album, error)
	Get(ctx context.Context, id string) (store.Album, error)
	Exists(ctx context.Context, id string) (bool, error)
}

type service struct {
	store Store
}

// New constructs a Service backed by the provided Store.
func New(store Store) Service {
	return &service{store: store}
}

func (s *service) Create(ctx context.Context, album store.Album) (store.Album, error) {
	if err := ctx.Err(); err != nil {
		return store.Album{}, err
	}
	return s.store.CreateAlbum(ctx, album)
}

func (s *service) Get(ctx context.Context, id string) (store.Album, error) {
	if err := ctx.Err(); err != nil {
		return store.Album{}, err
	}
	return s.store.AlbumByID(ctx, id)
}

// Exists is the album existence check shared with the likes counter.
func (s *service) Exists(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return s.store.AlbumExists(ctx, id)
}
