package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"openmusic/internal/store"
)

type playlistSongRequest struct {
	SongID string `json:"songId"`
}

func (s *Server) handlePlaylistSongs(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	playlist, err := s.playlists.Songs(r.Context(), mux.Vars(r)["id"], userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, "", map[string]store.PlaylistSnapshot{"playlist": playlist})
}

func (s *Server) handleAddPlaylistSong(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req playlistSongRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.playlists.AddSong(r.Context(), mux.Vars(r)["id"], req.SongID, userID); err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusCreated, "Song added to playlist", nil)
}

func (s *Server) handleRemovePlaylistSong(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req playlistSongRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.playlists.RemoveSong(r.Context(), mux.Vars(r)["id"], req.SongID, userID); err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, "Song removed from playlist", nil)
}
