package repo

import (
	"context"
	"database/sql"

	"hotelops/internal/domain"
)

func (r Repo) InsertRoom(ctx context.Context, tx *sql.Tx, room domain.Room) error {
	_, err := r.q(tx).ExecContext(ctx, `INSERT INTO rooms(id,number,tower,floor) VALUES (?,?,?,?)`,
		room.ID, room.Number, nullable(room.Tower), room.Floor)
	return err
}

func scanRoom(row rowScanner) (domain.Room, error) {
	var room domain.Room
	var tower sql.NullString
	err := row.Scan(&room.ID, &room.Number, &tower, &room.Floor)
	if err == sql.ErrNoRows {
		return room, ErrNotFound
	}
	room.Tower = tower.String
	return room, err
}

func (r Repo) GetRoom(ctx context.Context, tx *sql.Tx, id string) (domain.Room, error) {
	return scanRoom(r.q(tx).QueryRowContext(ctx, `SELECT id,number,tower,floor FROM rooms WHERE id=?`, id))
}

func (r Repo) GetRoomByNumber(ctx context.Context, tx *sql.Tx, number string) (domain.Room, error) {
	return scanRoom(r.q(tx).QueryRowContext(ctx, `SELECT id,number,tower,floor FROM rooms WHERE number=?`, number))
}

func (r Repo) ListRooms(ctx context.Context, tower string) ([]domain.Room, error) {
	query := `SELECT id,number,tower,floor FROM rooms`
	var args []any
	if tower != "" {
		query += ` WHERE tower=?`
		args = append(args, tower)
	}
	query += ` ORDER BY number`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, room)
	}
	return res, rows.Err()
}

func (r Repo) InsertSupervisor(ctx context.Context, tx *sql.Tx, s domain.Supervisor) error {
	_, err := r.q(tx).ExecContext(ctx, `INSERT INTO supervisors(id,name,email,role,active,created_at) VALUES (?,?,?,?,?,?)`,
		s.ID, s.Name, nullable(s.Email), s.Role, s.Active, s.CreatedAt)
	return err
}

func scanSupervisor(row rowScanner) (domain.Supervisor, error) {
	var s domain.Supervisor
	var email sql.NullString
	err := row.Scan(&s.ID, &s.Name, &email, &s.Role, &s.Active, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return s, ErrNotFound
	}
	s.Email = email.String
	return s, err
}

func (r Repo) GetSupervisor(ctx context.Context, tx *sql.Tx, id string) (domain.Supervisor, error) {
	return scanSupervisor(r.q(tx).QueryRowContext(ctx, `SELECT id,name,email,role,active,created_at FROM supervisors WHERE id=?`, id))
}

func (r Repo) SetSupervisorActive(ctx context.Context, id string, active bool) error {
	return affectedOne(r.DB.ExecContext(ctx, `UPDATE supervisors SET active=? WHERE id=?`, active, id))
}

// ListSupervisors returns supervisors by name; activeOnly hides deactivated staff.
func (r Repo) ListSupervisors(ctx context.Context, activeOnly bool) ([]domain.Supervisor, error) {
	query := `SELECT id,name,email,role,active,created_at FROM supervisors`
	var args []any
	if activeOnly {
		query += ` WHERE active=?`
		args = append(args, true)
	}
	query += ` ORDER BY name, id`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Supervisor
	for rows.Next() {
		s, err := scanSupervisor(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}
