package web

import (
	"net/http"

	"github.com/vbonduro/ecosort/internal/api"
	"github.com/vbonduro/ecosort/internal/auth"
)

func (s *Server) handleWasteBinTable(w http.ResponseWriter, r *http.Request) {
	page, err := s.resources.WasteBins(r.Context(), auth.SessionFrom(r.Context()), tableQuery(r))
	if err != nil {
		s.failure(w, r, err, "Failed to load waste bins.")
		return
	}
	s.showTable(w, r, wasteBinView, newTableData(page, wasteBinView.path, wasteBinView.target()))
}

func (s *Server) handleCreateWasteBin(w http.ResponseWriter, r *http.Request) {
	capacity, err := parseFloatField(r, "capacity")
	if err != nil {
		s.badField(w, r, err)
		return
	}
	bin := api.NewWasteBin{
		Type:     r.FormValue("type"),
		Location: r.FormValue("location"),
		Capacity: capacity,
	}
	if _, err := s.resources.CreateWasteBin(r.Context(), auth.SessionFrom(r.Context()), bin); err != nil {
		s.failure(w, r, err, "Failed to add waste bin.")
		return
	}
	s.afterMutation(w, r, wasteBinView, s.handleWasteBinTable)
}

func (s *Server) handleDeleteWasteBin(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.badID(w, r)
		return
	}
	if err := s.resources.DeleteWasteBin(r.Context(), auth.SessionFrom(r.Context()), id); err != nil {
		s.failure(w, r, err, "Failed to delete waste bin.")
		return
	}
	s.afterMutation(w, r, wasteBinView, s.handleWasteBinTable)
}
