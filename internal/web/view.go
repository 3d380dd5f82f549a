package web

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/vbonduro/ecosort/internal/auth"
	"github.com/vbonduro/ecosort/internal/domain"
	"github.com/vbonduro/ecosort/internal/table"
)

// pageData is the root value of every page and partial.
type pageData struct {
	Title     string
	ActiveNav string
	User      *domain.Claims
	IsAdmin   bool
	Theme     string
	Error     string
	Notice    string
	Data      any
}

func (s *Server) newPageData(r *http.Request, title, nav string) pageData {
	d := pageData{Title: title, ActiveNav: nav, Theme: themeFrom(r)}
	if sess := auth.SessionFrom(r.Context()); sess != nil {
		claims := sess.Claims
		d.User = &claims
		d.IsAdmin = claims.IsAdmin()
	}
	return d
}

// tableData is the Data of a table view.
type tableData struct {
	Rows   any
	Search string
	Pager  pager
}

// pager carries what the pagination footer renders.
type pager struct {
	Path       string
	Target     string
	Search     string
	Page       int
	TotalPages int
	Total      int
	First      int
	Last       int
	Pages      []int
	HasPrev    bool
	HasNext    bool
	Prev       int
	Next       int
}

func newTableData[T any](p table.Page[T], path, target string) tableData {
	return tableData{
		Rows:   p.Rows,
		Search: p.Search,
		Pager: pager{
			Path:       path,
			Target:     target,
			Search:     p.Search,
			Page:       p.Page,
			TotalPages: p.TotalPages,
			Total:      p.Total,
			First:      p.First,
			Last:       p.Last,
			Pages:      p.Pages(),
			HasPrev:    p.HasPrev(),
			HasNext:    p.HasNext(),
			Prev:       p.PrevPage(),
			Next:       p.NextPage(),
		},
	}
}

// URL returns the link for page n that keeps the current search.
func (p pager) URL(n int) string {
	v := url.Values{}
	if p.Search != "" {
		v.Set("q", p.Search)
	}
	v.Set("page", strconv.Itoa(n))
	return p.Path + "?" + v.Encode()
}

// With returns action with the current search and page attached, so that a
// mutation re-renders the page the user is looking at.
func (p pager) With(action string) string {
	v := url.Values{}
	if p.Search != "" {
		v.Set("q", p.Search)
	}
	v.Set("page", strconv.Itoa(p.Page))
	return action + "?" + v.Encode()
}

// tableQuery reads ?q= and ?page= (or the same form fields on a POST).
func tableQuery(r *http.Request) table.Query {
	page, err := strconv.Atoi(r.FormValue("page"))
	if err != nil || page < 1 {
		page = 1
	}
	return table.Query{Search: strings.TrimSpace(r.FormValue("q")), Page: page}
}

// wasteBadge picks the badge colour for a waste type.
func wasteBadge(wasteType string) string {
	switch strings.ToLower(wasteType) {
	case "plastic":
		return "badge-blue"
	case "paper":
		return "badge-green"
	case "metal":
		return "badge-yellow"
	default:
		return "badge-purple"
	}
}

// passwordHint shows a slice of the stored hash rather than the whole value.
func passwordHint(hash string) string {
	r := []rune(hash)
	if len(r) <= 20 {
		return strings.Repeat("•", 8)
	}
	end := min(len(r), 30)
	return string(r[20:end]) + "…"
}

// formatTime renders an API timestamp for display, falling back to the raw
// value when it is not RFC 3339.
func formatTime(s string) string {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return s
	}
	return t.Format("2006-01-02 15:04")
}

func litres(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + " L"
}

func parseFloatField(r *http.Request, name string) (float64, error) {
	raw := strings.TrimSpace(r.FormValue(name))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number", name)
	}
	return v, nil
}

func parseIntField(r *http.Request, name string) (int64, error) {
	raw := strings.TrimSpace(r.FormValue(name))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a whole number", name)
	}
	return v, nil
}

// parseID extracts the {id} path variable and returns it as int64.
func parseID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}
