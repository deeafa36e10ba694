package playlists

import (
	"context"
	"strings"

	"openmusic/internal/apperr"
	"openmusic/internal/store"
)

// ErrForbidden is returned when a user may not act on a playlist.
var ErrForbidden = apperr.New(apperr.KindAuthorization, "you are not allowed to access this playlist")

// Store captures the persistence needs for playlist workflows.
type Store interface {
	PlaylistOwner(ctx context.Context, playlistID string) (string, error)
	IsCollaborator(ctx context.Context, playlistID, userID string) (bool, error)
	PlaylistSnapshot(ctx context.Context, playlistID string) (store.PlaylistSnapshot, error)
	AddPlaylistSong(ctx context.Context, playlistID, songID, userID string) error
	RemovePlaylistSong(ctx context.Context, playlistID, songID, userID string) error
}

// Service coordinates playlist access checks and song membership.
type Service interface {
	// VerifyOwner fails with a not-found error when the playlist does not
	// exist and with ErrForbidden when userID does not own it.
	VerifyOwner(ctx context.Context, playlistID, userID string) error
	// VerifyAccess additionally admits collaborators.
	VerifyAccess(ctx context.Context, playlistID, userID string) error
	Songs(ctx context.Context, playlistID, userID string) (store.PlaylistSnapshot, error)
	AddSong(ctx context.Context, playlistID, songID, userID string) error
	RemoveSong(ctx context.Context, playlistID, songID, userID string) error
}

type service struct {
	store Store
}

// New constructs a Service backed by the provided Store.
func New(store Store) Service {
	return &service{store: store}
}

func (s *service) VerifyOwner(ctx context.Context, playlistID, userID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	owner, err := s.store.PlaylistOwner(ctx, playlistID)
	if err != nil {
		return err
	}
	if owner != userID {
		return ErrForbidden
	}
	return nil
}

func (s *service) VerifyAccess(ctx context.Context, playlistID, userID string) error {
	err := s.VerifyOwner(ctx, playlistID, userID)
	if err == nil || apperr.KindOf(err) != apperr.KindAuthorization {
		return err
	}

	ok, collabErr := s.store.IsCollaborator(ctx, playlistID, userID)
	if collabErr != nil {
		return collabErr
	}
	if !ok {
		return err
	}
	return nil
}

func (s *service) Songs(ctx context.Context, playlistID, userID string) (store.PlaylistSnapshot, error) {
	if err := s.VerifyAccess(ctx, playlistID, userID); err != nil {
		return store.PlaylistSnapshot{}, err
	}
	return s.store.PlaylistSnapshot(ctx, playlistID)
}

func (s *service) AddSong(ctx context.Context, playlistID, songID, userID string) error {
	if strings.TrimSpace(songID) == "" {
		return apperr.New(apperr.KindValidation, "songId is required")
	}
	if err := s.VerifyAccess(ctx, playlistID, userID); err != nil {
		return err
	}
	return s.store.AddPlaylistSong(ctx, playlistID, songID, userID)
}

func (s *service) RemoveSong(ctx context.Context, playlistID, songID, userID string) error {
	if strings.TrimSpace(songID) == "" {
		return apperr.New(apperr.KindValidation, "songId is required")
	}
	if err := s.VerifyAccess(ctx, playlistID, userID); err != nil {
		return err
	}
	return s.store.RemovePlaylistSong(ctx, playlistID, songID, userID)
}
