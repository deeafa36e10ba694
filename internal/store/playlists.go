package store

import (
	"context"
	"database/sql"
	"errors"
)

// Playlist activity actions recorded in playlist_song_activities.
const (
	ActivityAdd    = "add"
	ActivityDelete = "delete"
)

// PlaylistSnapshot is a playlist with its songs as read at a point in time.
type PlaylistSnapshot struct {
	ID    string        `json:"id"`
	Name  string        `json:"name"`
	Songs []SongSummary `json:"songs"`
}

// PlaylistOwner returns the user ID owning playlistID.
func (s *Store) PlaylistOwner(ctx context.Context, playlistID string) (string, error) {
	var owner string
	err := s.db.QueryRowContext(ctx, `SELECT owner FROM playlists WHERE id = $1`, playlistID).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrPlaylistNotFound
	}
	if err != nil {
		return "", queryError("check playlist ownership", err)
	}
	return owner, nil
}

// IsCollaborator reports whether userID collaborates on playlistID.
func (s *Store) IsCollaborator(ctx context.Context, playlistID, userID string) (bool, error) {
	var exists bool
	if err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM collaborations WHERE playlist_id = $1 AND user_id = $2
		)
	`, playlistID, userID).Scan(&exists); err != nil {
		return false, queryError("check collaboration", err)
	}
	return exists, nil
}

// PlaylistSnapshot reads a playlist and its songs. Songs is never nil.
func (s *Store) PlaylistSnapshot(ctx context.Context, playlistID string) (PlaylistSnapshot, error) {
	var snapshot PlaylistSnapshot
	err := s.db.QueryRowContext(ctx, `
		SELECT playlists.id, playlists.name
		FROM playlists
		WHERE playlists.id = $1
	`, playlistID).Scan(&snapshot.ID, &snapshot.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return PlaylistSnapshot{}, ErrPlaylistNotFound
	}
	if err != nil {
		return PlaylistSnapshot{}, queryError("select playlist", err)
	}

	songs, err := s.listPlaylistSongs(ctx, playlistID)
	if err != nil {
		return PlaylistSnapshot{}, err
	}
	snapshot.Songs = songs

	return snapshot, nil
}

func (s *Store) listPlaylistSongs(ctx context.Context, playlistID string) ([]SongSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT songs.id, songs.title, songs.performer
		FROM songs
		JOIN playlist_songs ON songs.id = playlist_songs.song_id
		WHERE playlist_songs.playlist_id = $1
	`, playlistID)
	if err != nil {
		return nil, queryError("select playlist songs", err)
	}
	defer rows.Close()

	songs := []SongSummary{}
	for rows.Next() {
		var song SongSummary
		if err := rows.Scan(&song.ID, &song.Title, &song.Performer); err != nil {
			return nil, queryError("scan playlist song", err)
		}
		songs = append(songs, song)
	}
	if err := rows.Err(); err != nil {
		return nil, queryError("iterate playlist songs", err)
	}

	return songs, nil
}

// AddPlaylistSong appends songID to playlistID and records the activity of
// userID in the same transaction.
func (s *Store) AddPlaylistSong(ctx context.Context, playlistID, songID, userID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return queryError("begin tx", err)
	}
	defer func() {
		if tx != nil {
			_ = tx.Rollback()
		}
	}()

	var songExists bool
	if err := tx.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM songs WHERE id = $1)
	`, songID).Scan(&songExists); err != nil {
		return queryError("check song", err)
	}
	if !songExists {
		return ErrSongNotFound
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO playlist_songs (id, playlist_id, song_id)
		VALUES ($1, $2, $3)
	`, newID("playlist-song"), playlistID, songID); err != nil {
		if isUniqueViolation(err) {
			return ErrSongAlreadyInPlaylist
		}
		return queryError("insert playlist song", err)
	}

	if err := recordActivity(ctx, tx, playlistID, songID, userID, ActivityAdd); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return queryError("commit tx", err)
	}
	tx = nil

	return nil
}

// RemovePlaylistSong deletes songID from playlistID and records the activity
// of userID in the same transaction.
func (s *Store) RemovePlaylistSong(ctx context.Context, playlistID, songID, userID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return queryError("begin tx", err)
	}
	defer func() {
		if tx != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `
		DELETE FROM playlist_songs
		WHERE playlist_id = $1 AND song_id = $2
	`, playlistID, songID)
	if err != nil {
		return queryError("delete playlist song", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return queryError("delete playlist song rows affected", err)
	}
	if affected == 0 {
		return ErrPlaylistSongNotFound
	}

	if err := recordActivity(ctx, tx, playlistID, songID, userID, ActivityDelete); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return queryError("commit tx", err)
	}
	tx = nil

	return nil
}

func recordActivity(ctx context.Context, tx *sql.Tx, playlistID, songID, userID, action string) error {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO playlist_song_activities (id, playlist_id, song_id, user_id, action)
		VALUES ($1, $2, $3, $4, $5)
	`, newID("activity"), playlistID, songID, userID, action); err != nil {
		return queryError("insert playlist activity", err)
	}
	return nil
}
