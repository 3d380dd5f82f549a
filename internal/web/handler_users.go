package web

import (
	"net/http"
	"strings"

	"github.com/vbonduro/ecosort/internal/api"
	"github.com/vbonduro/ecosort/internal/auth"
)

func (s *Server) handleUserTable(w http.ResponseWriter, r *http.Request) {
	page, err := s.resources.Users(r.Context(), auth.SessionFrom(r.Context()), tableQuery(r))
	if err != nil {
		s.failure(w, r, err, "Failed to load users.")
		return
	}
	s.showTable(w, r, userView, newTableData(page, userView.path, userView.target()))
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	u := api.NewUser{
		FirstName: r.FormValue("first_name"),
		LastName:  r.FormValue("last_name"),
		Email:     r.FormValue("email"),
		Password:  r.FormValue("password"),
		Role:      strings.TrimSpace(r.FormValue("role")),
	}
	if u.Role != "" && !signUpRoles[u.Role] {
		s.badField(w, r, errRole)
		return
	}
	if _, err := s.resources.CreateUser(r.Context(), auth.SessionFrom(r.Context()), u); err != nil {
		s.failure(w, r, err, "Failed to add user.")
		return
	}
	s.afterMutation(w, r, userView, s.handleUserTable)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.badID(w, r)
		return
	}
	if err := s.resources.DeleteUser(r.Context(), auth.SessionFrom(r.Context()), id); err != nil {
		s.failure(w, r, err, "Failed to delete user.")
		return
	}
	s.afterMutation(w, r, userView, s.handleUserTable)
}
