package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"openmusic/internal/apperr"
)

// Album represents an album and, when loaded by ID, its songs.
type Album struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Year     int           `json:"year"`
	CoverURL *string       `json:"coverUrl"`
	Songs    []SongSummary `json:"songs,omitempty"`
}

// SongSummary is the short form of a song used inside albums and playlists.
type SongSummary struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Performer string `json:"performer"`
}

// CreateAlbum validates and persists an album, assigning it a new ID.
func (s *Store) CreateAlbum(ctx context.Context, album Album) (Album, error) {
	album.Name = strings.TrimSpace(album.Name)
	if err := validateAlbum(album); err != nil {
		return Album{}, err
	}

	album.ID = newID("album")
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO albums (id, name, year)
		VALUES ($1, $2, $3)
	`, album.ID, album.Name, album.Year); err != nil {
		return Album{}, queryError("insert album", err)
	}

	return album, nil
}

// AlbumByID loads an album together with the songs that reference it.
func (s *Store) AlbumByID(ctx context.Context, id string) (Album, error) {
	var (
		album    Album
		coverURL sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, year, cover_url
		FROM albums
		WHERE id = $1
	`, id).Scan(&album.ID, &album.Name, &album.Year, &coverURL)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Album{}, ErrAlbumNotFound
		}
		return Album{}, queryError("select album", err)
	}
	if coverURL.Valid {
		album.CoverURL = &coverURL.String
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, performer
		FROM songs
		WHERE album_id = $1
	`, id)
	if err != nil {
		return Album{}, queryError("select album songs", err)
	}
	defer rows.Close()

	album.Songs = []SongSummary{}
	for rows.Next() {
		var song SongSummary
		if err := rows.Scan(&song.ID, &song.Title, &song.Performer); err != nil {
			return Album{}, queryError("scan album song", err)
		}
		album.Songs = append(album.Songs, song)
	}
	if err := rows.Err(); err != nil {
		return Album{}, queryError("iterate album songs", err)
	}

	return album, nil
}

// AlbumExists reports whether an album with the given ID is stored.
func (s *Store) AlbumExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	if err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM albums WHERE id = $1)
	`, id).Scan(&exists); err != nil {
		return false, queryError("check album", err)
	}
	return exists, nil
}

func validateAlbum(album Album) error {
	if album.Name == "" {
		return apperr.New(apperr.KindValidation, "album name is required")
	}
	if album.Year < 1900 || album.Year > time.Now().Year()+1 {
		return apperr.New(apperr.KindValidation, fmt.Sprintf("album year must be between 1900 and %d", time.Now().Year()+1))
	}
	return nil
}
