package store

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"openmusic/internal/apperr"
)

func TestValidateAlbum(t *testing.T) {
	tests := []struct {
		name    string
		album   Album
		wantErr bool
	}{
		{
			name:  "valid album",
			album: Album{Name: "Viva la Vida", Year: 2008},
		},
		{
			name:    "missing name",
			album:   Album{Year: 2008},
			wantErr: true,
		},
		{
			name:    "year too old",
			album:   Album{Name: "Wax Cylinder", Year: 1850},
			wantErr: true,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			err := validateAlbum(tc.album)
			if tc.wantErr && err == nil {
				t.Fatalf("expected error but got nil")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("expected nil error but got %v", err)
			}
			if tc.wantErr && !errors.Is(err, apperr.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestCreateAlbumSuccess(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	s := New(db)

	mock.ExpectExec(regexp.QuoteMeta(`
		INSERT INTO albums (id, name, year)
		VALUES ($1, $2, $3)
	`)).
		WithArgs(sqlmock.AnyArg(), "Parachutes", 2000).
		WillReturnResult(sqlmock.NewResult(0, 1))

	got, err := s.CreateAlbum(context.Background(), Album{Name: "  Parachutes ", Year: 2000})
	if err != nil {
		t.Fatalf("CreateAlbum error: %v", err)
	}

	if !strings.HasPrefix(got.ID, "album-") || len(got.ID) != len("album-")+16 {
		t.Fatalf("unexpected album ID %q", got.ID)
	}
	if got.Name != "Parachutes" {
		t.Fatalf("expected trimmed name, got %q", got.Name)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateAlbumInvalidSkipsInsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	s := New(db)

	if _, err := s.CreateAlbum(context.Background(), Album{Name: " ", Year: 2000}); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAlbumByIDWithSongs(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	s := New(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, name, year, cover_url FROM albums WHERE id = $1`)).
		WithArgs("album-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "year", "cover_url"}).
			AddRow("album-1", "Parachutes", 2000, nil))

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, title, performer FROM songs WHERE album_id = $1`)).
		WithArgs("album-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "performer"}).
			AddRow("song-1", "Yellow", "Coldplay").
			AddRow("song-2", "Trouble", "Coldplay"))

	album, err := s.AlbumByID(context.Background(), "album-1")
	if err != nil {
		t.Fatalf("AlbumByID error: %v", err)
	}

	if album.CoverURL != nil {
		t.Fatalf("expected nil cover url, got %q", *album.CoverURL)
	}
	if len(album.Songs) != 2 || album.Songs[1].Title != "Trouble" {
		t.Fatalf("unexpected songs %+v", album.Songs)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAlbumByIDNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	s := New(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, name, year, cover_url FROM albums WHERE id = $1`)).
		WithArgs("album-missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "year", "cover_url"}))

	_, err = s.AlbumByID(context.Background(), "album-missing")
	if !errors.Is(err, ErrAlbumNotFound) {
		t.Fatalf("expected ErrAlbumNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAlbumExists(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	s := New(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS (SELECT 1 FROM albums WHERE id = $1)`)).
		WithArgs("album-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := s.AlbumExists(context.Background(), "album-1")
	if err != nil {
		t.Fatalf("AlbumExists error: %v", err)
	}
	if !exists {
		t.Fatalf("expected album to exist")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
