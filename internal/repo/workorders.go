package repo

import (
	"context"
	"database/sql"

	"hotelops/internal/domain"
)

const workOrderColumns = `id,room_id,room_number,stay_from,stay_to,summary,detail,source,category,severity,status,assigned_to,created_by,has_pending_next,note_id,created_at,updated_at,resolved_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkOrder(row rowScanner) (domain.WorkingOrder, error) {
	var wo domain.WorkingOrder
	var detail, category, assignedTo, createdBy, noteID, resolvedAt sql.NullString
	err := row.Scan(&wo.ID, &wo.RoomID, &wo.RoomNumber, &wo.StayFrom, &wo.StayTo, &wo.Summary, &detail, &wo.Source,
		&category, &wo.Severity, &wo.Status, &assignedTo, &createdBy, &wo.HasPendingNext, &noteID,
		&wo.CreatedAt, &wo.UpdatedAt, &resolvedAt)
	if err == sql.ErrNoRows {
		return wo, ErrNotFound
	}
	if err != nil {
		return wo, err
	}
	wo.Detail = detail.String
	wo.Category = category.String
	wo.AssignedTo = stringPtr(assignedTo)
	wo.CreatedBy = stringPtr(createdBy)
	wo.NoteID = stringPtr(noteID)
	wo.ResolvedAt = stringPtr(resolvedAt)
	return wo, nil
}

func (r Repo) InsertWorkOrder(ctx context.Context, tx *sql.Tx, wo domain.WorkingOrder) error {
	_, err := r.q(tx).ExecContext(ctx, `INSERT INTO working_orders(`+workOrderColumns+`)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		wo.ID, wo.RoomID, wo.RoomNumber, wo.StayFrom, wo.StayTo, wo.Summary, nullable(wo.Detail), wo.Source,
		nullable(wo.Category), wo.Severity, wo.Status, nullableStringPtr(wo.AssignedTo), nullableStringPtr(wo.CreatedBy),
		wo.HasPendingNext, nullableStringPtr(wo.NoteID), wo.CreatedAt, wo.UpdatedAt, nullableStringPtr(wo.ResolvedAt))
	return err
}

// UpdateWorkOrder rewrites every mutable column of wo.
func (r Repo) UpdateWorkOrder(ctx context.Context, tx *sql.Tx, wo domain.WorkingOrder) error {
	return affectedOne(r.q(tx).ExecContext(ctx, `UPDATE working_orders SET summary=?, detail=?, category=?, severity=?, status=?, assigned_to=?, has_pending_next=?, note_id=?, updated_at=?, resolved_at=? WHERE id=?`,
		wo.Summary, nullable(wo.Detail), nullable(wo.Category), wo.Severity, wo.Status, nullableStringPtr(wo.AssignedTo),
		wo.HasPendingNext, nullableStringPtr(wo.NoteID), wo.UpdatedAt, nullableStringPtr(wo.ResolvedAt), wo.ID))
}

func (r Repo) GetWorkOrder(ctx context.Context, tx *sql.Tx, id string) (domain.WorkingOrder, error) {
	return scanWorkOrder(r.q(tx).QueryRowContext(ctx, `SELECT `+workOrderColumns+` FROM working_orders WHERE id=?`, id))
}

// GetWorkOrderByNote returns the working order linked to noteID.
func (r Repo) GetWorkOrderByNote(ctx context.Context, tx *sql.Tx, noteID string) (domain.WorkingOrder, error) {
	return scanWorkOrder(r.q(tx).QueryRowContext(ctx, `SELECT `+workOrderColumns+` FROM working_orders WHERE note_id=?`, noteID))
}

func (r Repo) DeleteWorkOrder(ctx context.Context, id string) error {
	return affectedOne(r.DB.ExecContext(ctx, `DELETE FROM working_orders WHERE id=?`, id))
}

type WorkOrderFilters struct {
	Status     string
	Severity   string
	Source     string
	RoomNumber string
	AssignedTo string
	Category   string
	// Linked filters on note linkage when non-nil.
	Linked *bool
	// From/To bound created_at by calendar day, inclusive.
	From string
	To   string
	Page
}

func (r Repo) ListWorkOrders(ctx context.Context, f WorkOrderFilters) ([]domain.WorkingOrder, error) {
	var clauses []string
	var args []any
	add := func(clause string, v string) {
		if v != "" {
			clauses = append(clauses, clause)
			args = append(args, v)
		}
	}
	add("status=?", f.Status)
	add("severity=?", f.Severity)
	add("source=?", f.Source)
	add("room_number=?", f.RoomNumber)
	add("assigned_to=?", f.AssignedTo)
	add("category=?", f.Category)
	add("SUBSTR(created_at,1,10) >= ?", f.From)
	add("SUBSTR(created_at,1,10) <= ?", f.To)
	if f.Linked != nil {
		if *f.Linked {
			clauses = append(clauses, "note_id IS NOT NULL")
		} else {
			clauses = append(clauses, "note_id IS NULL")
		}
	}
	clauses, args = f.Page.apply(clauses, args)
	query := `SELECT ` + workOrderColumns + ` FROM working_orders` + where(clauses) + ` ORDER BY created_at DESC, id DESC`
	query, args = f.Page.limit(query, args)
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.WorkingOrder
	for rows.Next() {
		wo, err := scanWorkOrder(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, wo)
	}
	return res, rows.Err()
}

func (r Repo) InsertWOComment(ctx context.Context, tx *sql.Tx, c domain.WOComment) error {
	_, err := r.q(tx).ExecContext(ctx, `INSERT INTO wo_comments(id,working_order_id,author_id,body,created_at) VALUES (?,?,?,?,?)`,
		c.ID, c.WorkingOrderID, nullableStringPtr(c.AuthorID), c.Body, c.CreatedAt)
	return err
}

func (r Repo) ListWOComments(ctx context.Context, woID string) ([]domain.WOComment, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,working_order_id,author_id,body,created_at FROM wo_comments WHERE working_order_id=? ORDER BY created_at, id`, woID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.WOComment
	for rows.Next() {
		var c domain.WOComment
		var author sql.NullString
		if err := rows.Scan(&c.ID, &c.WorkingOrderID, &author, &c.Body, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.AuthorID = stringPtr(author)
		res = append(res, c)
	}
	return res, rows.Err()
}

func (r Repo) InsertWOImage(ctx context.Context, tx *sql.Tx, img domain.WOImage) error {
	_, err := r.q(tx).ExecContext(ctx, `INSERT INTO wo_images(id,working_order_id,url,created_at) VALUES (?,?,?,?)`,
		img.ID, img.WorkingOrderID, img.URL, img.CreatedAt)
	return err
}

func (r Repo) ListWOImages(ctx context.Context, woID string) ([]domain.WOImage, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,working_order_id,url,created_at FROM wo_images WHERE working_order_id=? ORDER BY created_at, id`, woID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.WOImage
	for rows.Next() {
		var img domain.WOImage
		if err := rows.Scan(&img.ID, &img.WorkingOrderID, &img.URL, &img.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, img)
	}
	return res, rows.Err()
}

// ListStatusLogs returns the audit trail of a working order in append order.
func (r Repo) ListStatusLogs(ctx context.Context, woID string) ([]domain.StatusLog, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,working_order_id,status,note,performed_by,created_at FROM wo_status_logs WHERE working_order_id=? ORDER BY id`, woID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.StatusLog
	for rows.Next() {
		var l domain.StatusLog
		var note, performedBy sql.NullString
		if err := rows.Scan(&l.ID, &l.WorkingOrderID, &l.Status, &note, &performedBy, &l.CreatedAt); err != nil {
			return nil, err
		}
		l.Note = note.String
		l.PerformedBy = stringPtr(performedBy)
		res = append(res, l)
	}
	return res, rows.Err()
}

// WorkOrderStats counts working orders by status and severity.
func (r Repo) WorkOrderStats(ctx context.Context) (domain.WorkOrderStats, error) {
	stats := domain.WorkOrderStats{ByStatus: map[string]int{}, BySeverity: map[string]int{}}
	for _, s := range domain.AllStatuses() {
		stats.ByStatus[string(s)] = 0
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT status,severity,COUNT(*),SUM(CASE WHEN note_id IS NULL THEN 0 ELSE 1 END) FROM working_orders GROUP BY status,severity`)
	if err != nil {
		return stats, err
	}
	defer rows.Close()
	for rows.Next() {
		var status, severity string
		var count, linked int
		if err := rows.Scan(&status, &severity, &count, &linked); err != nil {
			return stats, err
		}
		stats.ByStatus[status] += count
		stats.BySeverity[severity] += count
		stats.Linked += linked
		stats.Total += count
	}
	return stats, rows.Err()
}
