package repo

import (
	"context"
	"database/sql"
	"encoding/json"

	"hotelops/internal/domain"
)

const noteColumns = `id,supervisor_id,titulo,actividades,fecha,estado,cristal,imagen,created_at,updated_at`

func scanNote(row rowScanner) (domain.Note, error) {
	var n domain.Note
	var actividades, imagen sql.NullString
	err := row.Scan(&n.ID, &n.SupervisorID, &n.Titulo, &actividades, &n.Fecha, &n.Estado, &n.Cristal, &imagen, &n.CreatedAt, &n.UpdatedAt)
	if err == sql.ErrNoRows {
		return n, ErrNotFound
	}
	if err != nil {
		return n, err
	}
	n.Actividades = actividades.String
	n.Imagen = stringPtr(imagen)
	return n, nil
}

func (r Repo) InsertNote(ctx context.Context, tx *sql.Tx, n domain.Note) error {
	_, err := r.q(tx).ExecContext(ctx, `INSERT INTO notes(`+noteColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?)`,
		n.ID, n.SupervisorID, n.Titulo, nullable(n.Actividades), n.Fecha, int(n.Estado), n.Cristal, nullableStringPtr(n.Imagen),
		n.CreatedAt, n.UpdatedAt)
	return err
}

func (r Repo) UpdateNote(ctx context.Context, tx *sql.Tx, n domain.Note) error {
	return affectedOne(r.q(tx).ExecContext(ctx, `UPDATE notes SET titulo=?, actividades=?, fecha=?, estado=?, cristal=?, imagen=?, updated_at=? WHERE id=?`,
		n.Titulo, nullable(n.Actividades), n.Fecha, int(n.Estado), n.Cristal, nullableStringPtr(n.Imagen), n.UpdatedAt, n.ID))
}

// GetNote loads a note with its linked working order id, if any.
func (r Repo) GetNote(ctx context.Context, tx *sql.Tx, id string) (domain.Note, error) {
	n, err := scanNote(r.q(tx).QueryRowContext(ctx, `SELECT `+noteColumns+` FROM notes WHERE id=?`, id))
	if err != nil {
		return n, err
	}
	var woID string
	err = r.q(tx).QueryRowContext(ctx, `SELECT id FROM working_orders WHERE note_id=?`, id).Scan(&woID)
	switch {
	case err == sql.ErrNoRows:
	case err != nil:
		return n, err
	default:
		n.WorkingOrderID = &woID
	}
	return n, nil
}

func (r Repo) DeleteNote(ctx context.Context, id string) error {
	return affectedOne(r.DB.ExecContext(ctx, `DELETE FROM notes WHERE id=?`, id))
}

type NoteFilters struct {
	SupervisorID string
	Estado       *domain.Estado
	Cristal      *bool
	// From/To bound fecha, inclusive.
	From string
	To   string
	Page
}

func (r Repo) ListNotes(ctx context.Context, f NoteFilters) ([]domain.Note, error) {
	var clauses []string
	var args []any
	if f.SupervisorID != "" {
		clauses = append(clauses, "n.supervisor_id=?")
		args = append(args, f.SupervisorID)
	}
	if f.Estado != nil {
		clauses = append(clauses, "n.estado=?")
		args = append(args, int(*f.Estado))
	}
	if f.Cristal != nil {
		clauses = append(clauses, "n.cristal=?")
		args = append(args, *f.Cristal)
	}
	if f.From != "" {
		clauses = append(clauses, "n.fecha >= ?")
		args = append(args, f.From)
	}
	if f.To != "" {
		clauses = append(clauses, "n.fecha <= ?")
		args = append(args, f.To)
	}
	if f.CursorCreatedAt != "" && f.CursorID != "" {
		clauses = append(clauses, "(n.created_at < ? OR (n.created_at = ? AND n.id < ?))")
		args = append(args, f.CursorCreatedAt, f.CursorCreatedAt, f.CursorID)
	}
	query := `SELECT n.id,n.supervisor_id,n.titulo,n.actividades,n.fecha,n.estado,n.cristal,n.imagen,n.created_at,n.updated_at,w.id
FROM notes n LEFT JOIN working_orders w ON w.note_id = n.id` + where(clauses) + ` ORDER BY n.created_at DESC, n.id DESC`
	query, args = f.Page.limit(query, args)
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Note
	for rows.Next() {
		var n domain.Note
		var actividades, imagen, woID sql.NullString
		if err := rows.Scan(&n.ID, &n.SupervisorID, &n.Titulo, &actividades, &n.Fecha, &n.Estado, &n.Cristal, &imagen, &n.CreatedAt, &n.UpdatedAt, &woID); err != nil {
			return nil, err
		}
		n.Actividades = actividades.String
		n.Imagen = stringPtr(imagen)
		n.WorkingOrderID = stringPtr(woID)
		res = append(res, n)
	}
	return res, rows.Err()
}

func (r Repo) InsertNoteComment(ctx context.Context, tx *sql.Tx, c domain.NoteComment) error {
	mentions := c.Mentions
	if mentions == nil {
		mentions = []string{}
	}
	payload, err := json.Marshal(mentions)
	if err != nil {
		return err
	}
	_, err = r.q(tx).ExecContext(ctx, `INSERT INTO note_comments(id,note_id,author_id,body,mentions_json,created_at) VALUES (?,?,?,?,?,?)`,
		c.ID, c.NoteID, nullableStringPtr(c.AuthorID), c.Body, string(payload), c.CreatedAt)
	return err
}

func (r Repo) ListNoteComments(ctx context.Context, noteID string) ([]domain.NoteComment, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,note_id,author_id,body,mentions_json,created_at FROM note_comments WHERE note_id=? ORDER BY created_at, id`, noteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.NoteComment
	for rows.Next() {
		var c domain.NoteComment
		var author sql.NullString
		var mentions string
		if err := rows.Scan(&c.ID, &c.NoteID, &author, &c.Body, &mentions, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.AuthorID = stringPtr(author)
		if err := json.Unmarshal([]byte(mentions), &c.Mentions); err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

func (r Repo) InsertNoteImage(ctx context.Context, tx *sql.Tx, img domain.NoteImage) error {
	_, err := r.q(tx).ExecContext(ctx, `INSERT INTO note_images(id,note_id,url,created_at) VALUES (?,?,?,?)`,
		img.ID, img.NoteID, img.URL, img.CreatedAt)
	return err
}

func (r Repo) ListNoteImages(ctx context.Context, noteID string) ([]domain.NoteImage, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,note_id,url,created_at FROM note_images WHERE note_id=? ORDER BY created_at, id`, noteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.NoteImage
	for rows.Next() {
		var img domain.NoteImage
		if err := rows.Scan(&img.ID, &img.NoteID, &img.URL, &img.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, img)
	}
	return res, rows.Err()
}
