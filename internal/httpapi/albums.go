package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"openmusic/internal/app/likes"
	"openmusic/internal/store"
)

type albumRequest struct {
	Name string `json:"name"`
	Year int    `json:"year"`
}

func (s *Server) handleCreateAlbum(w http.ResponseWriter, r *http.Request) {
	var req albumRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	created, err := s.albums.Create(r.Context(), store.Album{Name: req.Name, Year: req.Year})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusCreated, "Album added", map[string]string{"albumId": created.ID})
}

func (s *Server) handleGetAlbum(w http.ResponseWriter, r *http.Request) {
	album, err := s.albums.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, "", map[string]store.Album{"album": album})
}

func (s *Server) handleLikeAlbum(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	if err := s.likes.Like(r.Context(), userID, mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusCreated, "Album liked", nil)
}

func (s *Server) handleUnlikeAlbum(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	if err := s.likes.Unlike(r.Context(), userID, mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, "Album unliked", nil)
}

func (s *Server) handleAlbumLikes(w http.ResponseWriter, r *http.Request) {
	count, err := s.likes.Count(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}

	if count.Source == likes.SourceCache {
		w.Header().Set("X-Data-Source", string(likes.SourceCache))
	}
	writeSuccess(w, http.StatusOK, "", map[string]int{"likes": count.Likes})
}
