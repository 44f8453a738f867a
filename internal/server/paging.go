package server

import (
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"hotelops/internal/repo"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// keysetPage is one page of a newest-first listing. NextCursor is empty on
// the last page.
type keysetPage[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"`
}

// pageRequest clamps the limit and decodes a created_at|id cursor. The
// returned repo.Page asks for one extra row to detect a following page.
func pageRequest(limit int, cursor string) (repo.Page, int, huma.StatusError) {
	switch {
	case limit <= 0:
		limit = defaultPageSize
	case limit > maxPageSize:
		limit = maxPageSize
	}
	page := repo.Page{Limit: limit + 1}
	if cursor == "" {
		return page, limit, nil
	}
	created, id, ok := strings.Cut(cursor, "|")
	if !ok || created == "" || id == "" {
		return page, limit, newAPIError(http.StatusBadRequest, "bad_request", "invalid cursor", map[string]any{"cursor": cursor})
	}
	page.CursorCreatedAt, page.CursorID = created, id
	return page, limit, nil
}

// splitPage trims the extra row and derives the cursor from the last item kept.
func splitPage[T any](items []T, limit int, key func(T) (createdAt, id string)) keysetPage[T] {
	out := keysetPage[T]{Items: make([]T, 0, len(items))}
	if len(items) > limit {
		items = items[:limit]
		createdAt, id := key(items[limit-1])
		out.NextCursor = createdAt + "|" + id
	}
	out.Items = append(out.Items, items...)
	return out
}
