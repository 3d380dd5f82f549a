package web

import (
	"net/http"

	"github.com/vbonduro/ecosort/internal/api"
	"github.com/vbonduro/ecosort/internal/auth"
)

func (s *Server) handleWasteBotTable(w http.ResponseWriter, r *http.Request) {
	page, err := s.resources.WasteBots(r.Context(), auth.SessionFrom(r.Context()), tableQuery(r))
	if err != nil {
		s.failure(w, r, err, "Failed to load waste bots.")
		return
	}
	s.showTable(w, r, wasteBotView, newTableData(page, wasteBotView.path, wasteBotView.target()))
}

func (s *Server) handleCreateWasteBot(w http.ResponseWriter, r *http.Request) {
	autonomy, err := parseIntField(r, "autonomy")
	if err != nil {
		s.badField(w, r, err)
		return
	}
	bot := api.NewWasteBot{
		Model:    r.FormValue("model"),
		Status:   r.FormValue("status"),
		Location: r.FormValue("location"),
		Autonomy: autonomy,
	}
	if _, err := s.resources.CreateWasteBot(r.Context(), auth.SessionFrom(r.Context()), bot); err != nil {
		s.failure(w, r, err, "Failed to add waste bot.")
		return
	}
	s.afterMutation(w, r, wasteBotView, s.handleWasteBotTable)
}

func (s *Server) handleDeleteWasteBot(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.badID(w, r)
		return
	}
	if err := s.resources.DeleteWasteBot(r.Context(), auth.SessionFrom(r.Context()), id); err != nil {
		s.failure(w, r, err, "Failed to delete waste bot.")
		return
	}
	s.afterMutation(w, r, wasteBotView, s.handleWasteBotTable)
}

// handleToggleStatus switches a bot between Active and Inactive.
func (s *Server) handleToggleStatus(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.badID(w, r)
		return
	}
	if _, err := s.resources.ToggleWasteBotStatus(r.Context(), auth.SessionFrom(r.Context()), id, r.FormValue("status")); err != nil {
		s.failure(w, r, err, "Failed to switch the waste bot.")
		return
	}
	s.afterMutation(w, r, wasteBotView, s.handleWasteBotTable)
}
