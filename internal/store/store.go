package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"openmusic/internal/apperr"
)

var (
	// ErrAlbumNotFound is returned when an album lookup yields no rows.
	ErrAlbumNotFound = apperr.New(apperr.KindNotFound, "album not found")
	// ErrLikeExists signals the user already likes the album.
	ErrLikeExists = apperr.New(apperr.KindConflict, "album already liked by user")
	// ErrLikeNotFound signals there is no like to remove.
	ErrLikeNotFound = apperr.New(apperr.KindNotFound, "like not found")
	// ErrPlaylistNotFound is returned when a playlist lookup yields no rows.
	ErrPlaylistNotFound = apperr.New(apperr.KindNotFound, "playlist not found")
	// ErrSongNotFound is returned when a song lookup yields no rows.
	ErrSongNotFound = apperr.New(apperr.KindNotFound, "song not found")
	// ErrSongAlreadyInPlaylist signals a duplicate playlist entry.
	ErrSongAlreadyInPlaylist = apperr.New(apperr.KindConflict, "song already in playlist")
	// ErrPlaylistSongNotFound signals the song is not part of the playlist.
	ErrPlaylistSongNotFound = apperr.New(apperr.KindNotFound, "song not in playlist")
)

// Store provides persistence backed by Postgres.
type Store struct {
	db *sql.DB
}

// New sets up a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

// ErrUnavailable wraps failures to reach Postgres at all.
var ErrUnavailable = apperr.New(apperr.KindUnavailable, "database unavailable")

// queryError annotates err with op. Connection-level failures are classified
// as unavailable so callers can tell an outage from a bad query.
func queryError(op string, err error) error {
	wrapped := fmt.Errorf("%s: %w", op, err)
	if isConnFailure(err) {
		return apperr.Wrap(wrapped, apperr.KindUnavailable, ErrUnavailable.Message)
	}
	return wrapped
}

func isConnFailure(err error) bool {
	if errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// newID returns a prefixed identifier with a 16 character random suffix,
// e.g. "like-3f2c9a0d41b84e7a".
func newID(prefix string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")
	return prefix + "-" + suffix[:16]
}
