package classroom

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// Role is a user's role inside one classroom.
type Role string

const (
	RoleTeacher Role = "TEACHER"
	RoleTA      Role = "TA"
	RoleStudent Role = "STUDENT"
)

// ErrNotMember is returned when the user has no membership in the classroom.
var ErrNotMember = errors.New("not a classroom member")

// Staff reports whether the role can read other members' work.
func (r Role) Staff() bool { return r == RoleTeacher || r == RoleTA }

// Directory answers membership questions for a classroom.
type Directory interface {
	Role(ctx context.Context, classroomID, userID string) (Role, error)
}

// SQLDirectory reads the classroom_members table.
type SQLDirectory struct{ db *sql.DB }

func NewSQLDirectory(db *sql.DB) *SQLDirectory { return &SQLDirectory{db: db} }

func (d *SQLDirectory) Role(ctx context.Context, classroomID, userID string) (Role, error) {
	var role string
	err := d.db.QueryRowContext(ctx,
		`SELECT role FROM classroom_members WHERE classroom_id=$1 AND user_id=$2`,
		classroomID, userID,
	).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotMember
	}
	if err != nil {
		return "", fmt.Errorf("lookup membership: %w", err)
	}
	return Role(strings.ToUpper(strings.TrimSpace(role))), nil
}

// AddMember inserts or updates a membership row.
func (d *SQLDirectory) AddMember(ctx context.Context, classroomID, userID string, role Role) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO classroom_members (classroom_id, user_id, role) VALUES ($1,$2,$3)
		 ON CONFLICT (classroom_id, user_id) DO UPDATE SET role=EXCLUDED.role`,
		classroomID, userID, string(role))
	return err
}

// StaticDirectory is a fixed membership table keyed by classroom then user.
type StaticDirectory map[string]map[string]Role

func (d StaticDirectory) Role(_ context.Context, classroomID, userID string) (Role, error) {
	if r, ok := d[classroomID][userID]; ok {
		return r, nil
	}
	return "", ErrNotMember
}
