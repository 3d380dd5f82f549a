package web

import (
	"net/http"

	"github.com/vbonduro/ecosort/internal/api"
	"github.com/vbonduro/ecosort/internal/auth"
)

func (s *Server) handleSmartBinTable(w http.ResponseWriter, r *http.Request) {
	page, err := s.resources.SmartBins(r.Context(), auth.SessionFrom(r.Context()), tableQuery(r))
	if err != nil {
		s.failure(w, r, err, "Failed to load smart bins.")
		return
	}
	s.showTable(w, r, smartBinView, newTableData(page, smartBinView.path, smartBinView.target()))
}

func (s *Server) handleCreateSmartBin(w http.ResponseWriter, r *http.Request) {
	capacity, err := parseFloatField(r, "capacity")
	if err != nil {
		s.badField(w, r, err)
		return
	}
	bin := api.NewSmartBin{
		Status:   r.FormValue("status"),
		Cover:    r.FormValue("cover"),
		Location: r.FormValue("location"),
		Capacity: capacity,
	}
	if _, err := s.resources.CreateSmartBin(r.Context(), auth.SessionFrom(r.Context()), bin); err != nil {
		s.failure(w, r, err, "Failed to add smart bin.")
		return
	}
	s.afterMutation(w, r, smartBinView, s.handleSmartBinTable)
}

func (s *Server) handleDeleteSmartBin(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.badID(w, r)
		return
	}
	if err := s.resources.DeleteSmartBin(r.Context(), auth.SessionFrom(r.Context()), id); err != nil {
		s.failure(w, r, err, "Failed to delete smart bin.")
		return
	}
	s.afterMutation(w, r, smartBinView, s.handleSmartBinTable)
}

// handleToggleCover opens a closed bin or closes an open one. The form carries
// the cover state the user saw.
func (s *Server) handleToggleCover(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.badID(w, r)
		return
	}
	if _, err := s.resources.ToggleSmartBinCover(r.Context(), auth.SessionFrom(r.Context()), id, r.FormValue("cover")); err != nil {
		s.failure(w, r, err, "Failed to update the bin cover.")
		return
	}
	s.afterMutation(w, r, smartBinView, s.handleSmartBinTable)
}
