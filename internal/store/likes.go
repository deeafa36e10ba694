package store

import "context"

// LikeExists reports whether userID already likes albumID.
func (s *Store) LikeExists(ctx context.Context, userID, albumID string) (bool, error) {
	var exists bool
	if err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM user_album_likes WHERE user_id = $1 AND album_id = $2
		)
	`, userID, albumID).Scan(&exists); err != nil {
		return false, queryError("check like", err)
	}
	return exists, nil
}

// InsertLike records that userID likes albumID and returns the new like ID.
// A concurrent duplicate is reported as ErrLikeExists via the unique constraint.
func (s *Store) InsertLike(ctx context.Context, userID, albumID string) (string, error) {
	id := newID("like")
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO user_album_likes (id, user_id, album_id)
		VALUES ($1, $2, $3)
	`, id, userID, albumID); err != nil {
		if isUniqueViolation(err) {
			return "", ErrLikeExists
		}
		return "", queryError("insert like", err)
	}
	return id, nil
}

// DeleteLike removes the like of userID on albumID.
func (s *Store) DeleteLike(ctx context.Context, userID, albumID string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM user_album_likes
		WHERE user_id = $1 AND album_id = $2
	`, userID, albumID)
	if err != nil {
		return queryError("delete like", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return queryError("delete like rows affected", err)
	}
	if affected == 0 {
		return ErrLikeNotFound
	}
	return nil
}

// CountLikes returns the number of users that like albumID.
func (s *Store) CountLikes(ctx context.Context, albumID string) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM user_album_likes
		WHERE album_id = $1
	`, albumID).Scan(&count); err != nil {
		return 0, queryError("count likes", err)
	}
	return count, nil
}
