package request

import (
	"fmt"
	"net/http"
	"strconv"
)

const (
	DefaultPageSize = 100
	MaxPageSize     = 500
)

// Page selects part of a list ordered by id. Cursor is the id of the last
// item of the previous page.
type Page struct {
	Limit  int    `validate:"min=1,max=500"`
	Cursor string `validate:"omitempty,max=64"`
}

// ParsePage reads limit and cursor from the query string. A limit outside
// 1..MaxPageSize is rejected.
func ParsePage(r *http.Request) (Page, error) {
	q := r.URL.Query()
	p := Page{Limit: DefaultPageSize, Cursor: q.Get("cursor")}
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return Page{}, fmt.Errorf("invalid limit %q", s)
		}
		p.Limit = n
	}
	if err := validate.Struct(p); err != nil {
		return Page{}, fmt.Errorf("validation error: %w", err)
	}
	return p, nil
}

// CursorID reads a numeric cursor. An empty cursor is 0.
func (p Page) CursorID() (int64, error) {
	if p.Cursor == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(p.Cursor, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid cursor %q", p.Cursor)
	}
	return id, nil
}
