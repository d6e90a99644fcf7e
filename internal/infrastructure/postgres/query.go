package postgres

import (
	"strconv"
	"strings"
)

// where accumulates AND-joined conditions with positional arguments.
type where struct {
	clauses []string
	args    []any
}

func (w *where) add(column string, value any) {
	w.args = append(w.args, value)
	w.clauses = append(w.clauses, column+"=$"+strconv.Itoa(len(w.args)))
}

func (w *where) sql() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

// page appends ORDER BY, LIMIT and OFFSET to query.
func (w *where) page(query, orderBy string, limit, offset int) (string, []any) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	args := append(w.args, limit, offset)
	n := len(w.args)
	return query + w.sql() + " ORDER BY " + orderBy +
		" LIMIT $" + strconv.Itoa(n+1) + " OFFSET $" + strconv.Itoa(n+2), args
}
