package web

import (
	"net/http"

	"github.com/vbonduro/ecosort/internal/auth"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	sess := auth.SessionFrom(r.Context())
	summary, err := s.resources.Summary(r.Context(), sess)
	if err != nil {
		s.failure(w, r, err, "Failed to load the dashboard.")
		return
	}

	data := s.newPageData(r, "Dashboard", "dashboard")
	data.Data = summary
	if err := s.renderPage(w, http.StatusOK, data,
		"base.html", "pages/dashboard.html", "partials/waste_row.html", "partials/alert.html",
	); err != nil {
		s.logger.Error("render page failed", "error", err)
	}
}
