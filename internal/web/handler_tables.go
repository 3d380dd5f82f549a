package web

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/vbonduro/ecosort/internal/service"
)

// tableView describes one of the dashboard's list pages.
type tableView struct {
	title   string
	nav     string
	path    string
	page    string
	partial string
}

var (
	userView     = tableView{"Users", "users", "/user-table", "pages/user_table.html", "partials/user_table.html"}
	wasteView    = tableView{"Collected Waste", "waste", "/waste-table", "pages/waste_table.html", "partials/waste_table.html"}
	smartBinView = tableView{"Smart Bins", "smartbins", "/smartbin-table", "pages/smartbin_table.html", "partials/smartbin_table.html"}
	wasteBinView = tableView{"Waste Bins", "wastebins", "/wastebin-table", "pages/wastebin_table.html", "partials/wastebin_table.html"}
	wasteBotView = tableView{"Waste Bots", "wastebots", "/wastebot-table", "pages/wastebot_table.html", "partials/wastebot_table.html"}
)

// target is the element id the table partial replaces.
func (v tableView) target() string { return "#" + partialName(v.partial) }

// showTable renders the whole page, or just the table fragment for HTMX.
func (s *Server) showTable(w http.ResponseWriter, r *http.Request, v tableView, td tableData) {
	data := s.newPageData(r, v.title, v.nav)
	data.Data = td

	var err error
	if isHTMX(r) {
		err = s.renderPartial(w, http.StatusOK, v.partial, data, "partials/pagination.html", "partials/waste_row.html")
	} else {
		err = s.renderPage(w, http.StatusOK, data,
			"base.html", v.page, v.partial, "partials/pagination.html", "partials/alert.html", "partials/waste_row.html")
	}
	if err != nil {
		s.logger.Error("render table failed", "view", v.nav, "error", err)
	}
}

// afterMutation answers a successful create, delete or toggle: HTMX requests
// get the refreshed table, plain form posts are redirected to it.
func (s *Server) afterMutation(w http.ResponseWriter, r *http.Request, v tableView, show http.HandlerFunc) {
	if isHTMX(r) {
		show(w, r)
		return
	}
	q := tableQuery(r)
	vals := url.Values{}
	if q.Search != "" {
		vals.Set("q", q.Search)
	}
	if q.Page > 1 {
		vals.Set("page", strconv.Itoa(q.Page))
	}
	target := v.path
	if len(vals) > 0 {
		target += "?" + vals.Encode()
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (s *Server) badID(w http.ResponseWriter, r *http.Request) {
	s.failure(w, r, fmt.Errorf("%w: invalid id %q", service.ErrInvalidInput, r.PathValue("id")), "")
}

func (s *Server) badField(w http.ResponseWriter, r *http.Request, err error) {
	s.failure(w, r, fmt.Errorf("%w: %v", service.ErrInvalidInput, err), "")
}
