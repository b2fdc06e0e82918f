// Package repository provides persistence implementations for the auth server.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/atinyakov/docchat/internal/models"
	"github.com/lib/pq"
)

var (
	// ErrUserExists is returned when the email is already registered.
	ErrUserExists = errors.New("user already exists")
	// ErrUserNotFound is returned when no user matches the lookup.
	ErrUserNotFound = errors.New("user not found")
)

const uniqueViolation = pq.ErrorCode("23505")

// UserRecord is a stored user together with its password hash.
type UserRecord struct {
	models.User
	PasswordHash []byte
}

// PostgresUserRepository stores users in a PostgreSQL database.
type PostgresUserRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresUserRepository creates a repository on top of db.
func NewPostgresUserRepository(db *sql.DB) *PostgresUserRepository {
	return &PostgresUserRepository{DB: db}
}

// CreateUser inserts rec. It returns ErrUserExists when the email is taken.
func (r *PostgresUserRepository) CreateUser(ctx context.Context, rec UserRecord) error {
	_, err := r.DB.ExecContext(
		ctx,
		`INSERT INTO users (id, email, name, avatar, password_hash) VALUES ($1, $2, $3, $4, $5)`,
		rec.ID, rec.Email, rec.Name, nullString(rec.Avatar), rec.PasswordHash,
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return ErrUserExists
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetUserByEmail looks a user up by login email.
func (r *PostgresUserRepository) GetUserByEmail(ctx context.Context, email string) (UserRecord, error) {
	return r.getUser(ctx, `SELECT id, email, name, avatar, password_hash FROM users WHERE email = $1`, email)
}

// GetUserByID looks a user up by id.
func (r *PostgresUserRepository) GetUserByID(ctx context.Context, id string) (UserRecord, error) {
	return r.getUser(ctx, `SELECT id, email, name, avatar, password_hash FROM users WHERE id = $1`, id)
}

func (r *PostgresUserRepository) getUser(ctx context.Context, query, arg string) (UserRecord, error) {
	var (
		rec    UserRecord
		avatar sql.NullString
	)
	err := r.DB.QueryRowContext(ctx, query, arg).
		Scan(&rec.ID, &rec.Email, &rec.Name, &avatar, &rec.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return UserRecord{}, ErrUserNotFound
	}
	if err != nil {
		return UserRecord{}, fmt.Errorf("select user: %w", err)
	}
	rec.Avatar = avatar.String
	return rec, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
