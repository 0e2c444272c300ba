package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type User struct {
	ID       string
	Username string
	Role     string
}

// Users is the local account table.
type Users struct{ db *sql.DB }

func NewUsers(db *sql.DB) *Users { return &Users{db: db} }

// Authenticate checks password against the stored bcrypt hash. Unknown users
// and wrong passwords both yield ErrInvalidCredentials.
func (u *Users) Authenticate(ctx context.Context, username, password string) (User, error) {
	var (
		usr  User
		hash string
	)
	err := u.db.QueryRowContext(ctx,
		`SELECT id, username, role, password_hash FROM users WHERE username=$1`, username,
	).Scan(&usr.ID, &usr.Username, &usr.Role, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, fmt.Errorf("lookup user: %w", err)
	}
	if hash == "" || bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return User{}, ErrInvalidCredentials
	}
	return usr, nil
}

// Upsert stores a user with an already-hashed password.
func (u *Users) Upsert(ctx context.Context, usr User, passwordHash string) error {
	_, err := u.db.ExecContext(ctx,
		`INSERT INTO users (id, username, password_hash, role, created_at)
		 VALUES ($1,$2,$3,$4,$5)
		 ON CONFLICT (id) DO UPDATE SET username=EXCLUDED.username,
		   password_hash=EXCLUDED.password_hash, role=EXCLUDED.role`,
		usr.ID, usr.Username, passwordHash, usr.Role, time.Now().Unix())
	return err
}

// HashPassword returns a bcrypt hash at cost 12.
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	return string(b), err
}
