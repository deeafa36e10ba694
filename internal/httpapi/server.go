package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"openmusic/internal/app/likes"
	"openmusic/internal/apperr"
	"openmusic/internal/http/middleware"
	"openmusic/internal/logging"
	"openmusic/internal/metrics"
	"openmusic/internal/store"
)

// AlbumService exposes album-specific workflows.
type AlbumService interface {
	Create(ctx context.Context, album store.Album) (store.Album, error)
	Get(ctx context.Context, id string) (store.Album, error)
}

// LikeService coordinates album likes.
type LikeService interface {
	Count(ctx context.Context, albumID string) (likes.Count, error)
	Like(ctx context.Context, userID, albumID string) error
	Unlike(ctx context.Context, userID, albumID string) error
}

// PlaylistService coordinates playlist song membership.
type PlaylistService interface {
	Songs(ctx context.Context, playlistID, userID string) (store.PlaylistSnapshot, error)
	AddSong(ctx context.Context, playlistID, songID, userID string) error
	RemoveSong(ctx context.Context, playlistID, songID, userID string) error
}

// ExportService submits playlist export jobs.
type ExportService interface {
	Submit(ctx context.Context, playlistID, requesterID, targetEmail string) (string, error)
}

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

// Server wires HTTP handlers to the underlying services.
type Server struct {
	albums    AlbumService
	likes     LikeService
	playlists PlaylistService
	exports   ExportService

	verifier       middleware.TokenVerifier
	allowedOrigins []string
	checks         map[string]HealthCheck
}

// Option customises a Server.
type Option func(*Server)

// WithAllowedOrigins enables CORS for the given origins.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) { s.allowedOrigins = origins }
}

// WithHealthCheck adds a named dependency check to GET /health.
func WithHealthCheck(name string, check HealthCheck) Option {
	return func(s *Server) { s.checks[name] = check }
}

// New configures a Server.
func New(
	albums AlbumService,
	likes LikeService,
	playlists PlaylistService,
	exports ExportService,
	verifier middleware.TokenVerifier,
	opts ...Option,
) *Server {
	s := &Server{
		albums:    albums,
		likes:     likes,
		playlists: playlists,
		exports:   exports,
		verifier:  verifier,
		checks:    make(map[string]HealthCheck),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes exposes the HTTP handlers.
func (s *Server) Routes() http.Handler {
	r := mux.NewRouter()
	r.Use(middleware.RequestLogging())
	r.Use(middleware.Recovery())
	r.Use(middleware.Authenticate(s.verifier))

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	r.HandleFunc("/albums", s.handleCreateAlbum).Methods(http.MethodPost)
	r.HandleFunc("/albums/{id}", s.handleGetAlbum).Methods(http.MethodGet)
	r.HandleFunc("/albums/{id}/likes", s.handleLikeAlbum).Methods(http.MethodPost)
	r.HandleFunc("/albums/{id}/likes", s.handleUnlikeAlbum).Methods(http.MethodDelete)
	r.HandleFunc("/albums/{id}/likes", s.handleAlbumLikes).Methods(http.MethodGet)

	r.HandleFunc("/playlists/{id}/songs", s.handlePlaylistSongs).Methods(http.MethodGet)
	r.HandleFunc("/playlists/{id}/songs", s.handleAddPlaylistSong).Methods(http.MethodPost)
	r.HandleFunc("/playlists/{id}/songs", s.handleRemovePlaylistSong).Methods(http.MethodDelete)

	r.HandleFunc("/export/playlists/{playlistId}", s.handleExportPlaylist).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeFail(w, http.StatusNotFound, "resource not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeFail(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	// CORS wraps the router so preflight requests are answered before
	// route matching.
	return middleware.CORS(s.allowedOrigins)(r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(s.checks))
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			status = http.StatusServiceUnavailable
			results[name] = err.Error()
			continue
		}
		results[name] = "ok"
	}

	state := "ok"
	if status != http.StatusOK {
		state = "degraded"
	}
	writeJSON(w, status, struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks,omitempty"`
	}{Status: state, Checks: results})
}

// requireUser returns the authenticated user or answers 401.
func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeFail(w, http.StatusUnauthorized, "missing or invalid access token")
		return "", false
	}
	return userID, true
}

// decodeJSON reads a JSON request body into dst.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	if err := dec.Decode(dst); err != nil {
		return apperr.Wrap(err, apperr.KindValidation, "invalid JSON payload")
	}
	return nil
}

type successResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func writeSuccess(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, successResponse{Status: "success", Message: message, Data: data})
}

func writeFail(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Status: "fail", Message: message})
}

// writeError maps err onto the response envelope. Errors without a known
// kind are logged and answered with a generic 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(apperr.KindOf(err))
	if status >= http.StatusInternalServerError {
		logger := logging.WithContext(r.Context())
		logger.Error().Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("request failed")

		message := "internal server error"
		if errors.Is(err, apperr.ErrUnavailable) {
			message = apperr.MessageOf(err)
		}
		writeJSON(w, status, errorResponse{Status: "error", Message: message})
		return
	}
	writeFail(w, status, apperr.MessageOf(err))
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindAuthentication:
		return http.StatusUnauthorized
	case apperr.KindAuthorization:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}
