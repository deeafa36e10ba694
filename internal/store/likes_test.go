package store

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"openmusic/internal/apperr"
)

const insertLikeQuery = `INSERT INTO user_album_likes (id, user_id, album_id) VALUES ($1, $2, $3)`

func TestInsertLike(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	s := New(db)

	mock.ExpectExec(regexp.QuoteMeta(insertLikeQuery)).
		WithArgs(sqlmock.AnyArg(), "user-1", "album-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	id, err := s.InsertLike(context.Background(), "user-1", "album-1")
	if err != nil {
		t.Fatalf("InsertLike error: %v", err)
	}
	if !strings.HasPrefix(id, "like-") {
		t.Fatalf("expected like- prefix, got %q", id)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestInsertLikeUniqueViolation(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	s := New(db)

	mock.ExpectExec(regexp.QuoteMeta(insertLikeQuery)).
		WithArgs(sqlmock.AnyArg(), "user-1", "album-1").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "unique_user_album_likes"})

	_, err = s.InsertLike(context.Background(), "user-1", "album-1")
	if !errors.Is(err, ErrLikeExists) {
		t.Fatalf("expected ErrLikeExists, got %v", err)
	}
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected conflict kind, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestLikeExists(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	s := New(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT 1 FROM user_album_likes WHERE user_id = $1 AND album_id = $2`)).
		WithArgs("user-1", "album-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	exists, err := s.LikeExists(context.Background(), "user-1", "album-1")
	if err != nil {
		t.Fatalf("LikeExists error: %v", err)
	}
	if exists {
		t.Fatalf("expected no like")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDeleteLike(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		wantErr  error
	}{
		{name: "deleted", affected: 1},
		{name: "nothing to delete", affected: 0, wantErr: ErrLikeNotFound},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			if err != nil {
				t.Fatalf("sqlmock.New: %v", err)
			}
			defer db.Close()

			s := New(db)

			mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM user_album_likes WHERE user_id = $1 AND album_id = $2`)).
				WithArgs("user-1", "album-1").
				WillReturnResult(sqlmock.NewResult(0, tc.affected))

			err = s.DeleteLike(context.Background(), "user-1", "album-1")
			if tc.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tc.wantErr != nil && !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}

			if err := mock.ExpectationsWereMet(); err != nil {
				t.Fatalf("unmet expectations: %v", err)
			}
		})
	}
}

func TestCountLikes(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	s := New(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM user_album_likes WHERE album_id = $1`)).
		WithArgs("album-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	count, err := s.CountLikes(context.Background(), "album-1")
	if err != nil {
		t.Fatalf("CountLikes error: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 likes, got %d", count)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
