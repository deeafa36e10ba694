package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
)

type exportRequest struct {
	TargetEmail string `json:"targetEmail"`
}

func (s *Server) handleExportPlaylist(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req exportRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if _, err := s.exports.Submit(r.Context(), mux.Vars(r)["playlistId"], userID, req.TargetEmail); err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusCreated, "Your request is being processed", nil)
}
