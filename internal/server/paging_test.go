package server

import (
	"context"
	"testing"

	"github.com/m-mizutani/gt"
)

func TestPageRequest(t *testing.T) {
	page, limit, err := pageRequest(0, "")
	gt.Value(t, err).Nil()
	gt.Value(t, limit).Equal(defaultPageSize)
	gt.Value(t, page.Limit).Equal(defaultPageSize + 1)

	_, limit, _ = pageRequest(5000, "")
	gt.Value(t, limit).Equal(maxPageSize)

	page, _, err = pageRequest(10, "2026-03-01T09:30:00Z|abc")
	gt.Value(t, err).Nil()
	gt.Value(t, page.CursorCreatedAt).Equal("2026-03-01T09:30:00Z")
	gt.Value(t, page.CursorID).Equal("abc")

	for _, bad := range []string{"no-separator", "|abc", "2026-03-01T09:30:00Z|"} {
		_, _, err = pageRequest(10, bad)
		gt.Value(t, err).NotNil()
		gt.Value(t, err.GetStatus()).Equal(400)
	}
}

func TestSplitPage(t *testing.T) {
	type row struct{ at, id string }
	key := func(r row) (string, string) { return r.at, r.id }
	rows := []row{{"t3", "c"}, {"t2", "b"}, {"t1", "a"}}

	full := splitPage(rows, 2, key)
	gt.Array(t, full.Items).Length(2)
	gt.Value(t, full.NextCursor).Equal("t2|b")

	last := splitPage(rows[2:], 2, key)
	gt.Array(t, last.Items).Length(1)
	gt.Value(t, last.NextCursor).Equal("")

	empty := splitPage([]row(nil), 2, key)
	gt.Value(t, empty.Items).NotNil()
}

func TestExplicitNull(t *testing.T) {
	ctx := context.WithValue(context.Background(), bodyKey{}, []byte(`{"assigned_to": null, "summary": "x"}`))
	gt.Bool(t, explicitNull(ctx, "assigned_to")).True()
	gt.Bool(t, explicitNull(ctx, "summary")).False()
	gt.Bool(t, explicitNull(ctx, "detail")).False()
	gt.Bool(t, explicitNull(context.Background(), "assigned_to")).False()
}
