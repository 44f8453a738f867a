package events

import (
	"context"
	"database/sql"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"hotelops/internal/domain"
)

// Writer is the only code path that appends to wo_status_logs. Callers pass
// the transaction that changed the working order so the row and its log
// commit together.
type Writer struct {
	Now func() time.Time
}

func (w Writer) Append(ctx context.Context, tx *sql.Tx, woID string, status domain.Status, note string, performedBy *string) (domain.StatusLog, error) {
	if tx == nil {
		return domain.StatusLog{}, goerr.New("status log requires a transaction", goerr.V("working_order_id", woID))
	}
	now := w.Now
	if now == nil {
		now = time.Now
	}
	entry := domain.StatusLog{
		WorkingOrderID: woID,
		Status:         status,
		Note:           note,
		PerformedBy:    performedBy,
		CreatedAt:      now().UTC().Format(time.RFC3339),
	}
	res, err := tx.ExecContext(ctx, `INSERT INTO wo_status_logs(working_order_id,status,note,performed_by,created_at) VALUES (?,?,?,?,?)`,
		woID, status, nullable(note), nullableStringPtr(performedBy), entry.CreatedAt)
	if err != nil {
		return entry, goerr.Wrap(err, "append status log", goerr.V("working_order_id", woID), goerr.V("status", status))
	}
	if id, err := res.LastInsertId(); err == nil {
		entry.ID = id
	}
	return entry, nil
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableStringPtr(v *string) any {
	if v == nil || *v == "" {
		return nil
	}
	return *v
}
