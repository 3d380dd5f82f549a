// Package table implements the search and pagination shared by the dashboard's
// list views.
package table

import "strings"

// DefaultPerPage is the number of rows each table shows per page.
const DefaultPerPage = 5

// Query is the search text and page requested by the browser.
type Query struct {
	Search  string
	Page    int
	PerPage int
}

// Page is one page of a filtered table together with the numbers the
// pagination footer needs. Page numbers are 1-based.
type Page[T any] struct {
	Rows       []T
	Search     string
	Page       int
	PerPage    int
	TotalPages int
	Total      int
	// First and Last are the 1-based positions of the rows shown; both are 0
	// for an empty table.
	First int
	Last  int
}

// Filter keeps rows where any of the fields returned by fields contains query,
// ignoring case. An empty query keeps everything; an empty field never matches
// a non-empty query.
func Filter[T any](rows []T, query string, fields func(T) []string) []T {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return rows
	}

	out := make([]T, 0, len(rows))
	for _, row := range rows {
		for _, f := range fields(row) {
			if f != "" && strings.Contains(strings.ToLower(f), query) {
				out = append(out, row)
				break
			}
		}
	}
	return out
}

// Paginate slices rows for the requested page. Out-of-range pages are clamped
// to the nearest valid page.
func Paginate[T any](rows []T, page, perPage int) Page[T] {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	total := len(rows)
	totalPages := (total + perPage - 1) / perPage
	if totalPages == 0 {
		totalPages = 1
	}
	page = min(max(page, 1), totalPages)

	start := (page - 1) * perPage
	end := min(start+perPage, total)

	p := Page[T]{
		Rows:       rows[start:end],
		Page:       page,
		PerPage:    perPage,
		TotalPages: totalPages,
		Total:      total,
	}
	if total > 0 {
		p.First = start + 1
		p.Last = end
	}
	return p
}

// Apply filters rows with q.Search and returns the page q.Page.
func Apply[T any](rows []T, q Query, fields func(T) []string) Page[T] {
	p := Paginate(Filter(rows, q.Search, fields), q.Page, q.PerPage)
	p.Search = strings.TrimSpace(q.Search)
	return p
}

func (p Page[T]) HasPrev() bool { return p.Page > 1 }
func (p Page[T]) HasNext() bool { return p.Page < p.TotalPages }
func (p Page[T]) PrevPage() int { return max(p.Page-1, 1) }
func (p Page[T]) NextPage() int { return min(p.Page+1, p.TotalPages) }

// Pages lists every page number for the numbered buttons.
func (p Page[T]) Pages() []int {
	pages := make([]int, p.TotalPages)
	for i := range pages {
		pages[i] = i + 1
	}
	return pages
}
