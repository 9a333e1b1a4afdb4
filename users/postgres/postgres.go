// Package postgres implements the UserRepository on PostgreSQL, selected
// when a DSN is configured.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx database/sql driver

	"github.com/gosom/user-directory/users"
)

const uniqueViolationCode = "23505"

type Store struct {
	db *sql.DB
}

func New(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	if err := createSchema(db); err != nil {
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Select(ctx context.Context) ([]users.User, error) {
	const q = `SELECT id, name, email, role, status, bio, created_at, updated_at
	           FROM users ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, storeErr(err)
	}

	defer rows.Close()

	var ans []users.User

	for rows.Next() {
		var u users.User

		err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.Status, &u.Bio, &u.CreatedAt, &u.UpdatedAt)
		if err != nil {
			return nil, storeErr(err)
		}

		ans = append(ans, u)
	}

	if err := rows.Err(); err != nil {
		return nil, storeErr(err)
	}

	return ans, nil
}

func (s *Store) Get(ctx context.Context, id string) (users.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return users.User{}, users.ErrInvalidID
	}

	const q = `SELECT id, name, email, role, status, bio, created_at, updated_at
	           FROM users WHERE id = $1`

	var u users.User

	err := s.db.QueryRowContext(ctx, q, id).
		Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.Status, &u.Bio, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return users.User{}, users.ErrNotFound
		}

		return users.User{}, storeErr(err)
	}

	return u, nil
}

func (s *Store) GetByEmail(ctx context.Context, email, excludeID string) (users.User, error) {
	q := `SELECT id, name, email, role, status, bio, created_at, updated_at
	      FROM users WHERE email = $1`

	args := []any{email}

	if excludeID != "" {
		q += ` AND id != $2`

		args = append(args, excludeID)
	}

	var u users.User

	err := s.db.QueryRowContext(ctx, q, args...).
		Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.Status, &u.Bio, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return users.User{}, users.ErrNotFound
		}

		return users.User{}, storeErr(err)
	}

	return u, nil
}

func (s *Store) Create(ctx context.Context, user *users.User) error {
	if user.Status == "" {
		user.Status = users.StatusActive
	}

	if err := user.Validate(); err != nil {
		return err
	}

	now := time.Now().UTC()
	user.ID = uuid.New().String()
	user.CreatedAt = now
	user.UpdatedAt = now

	const q = `INSERT INTO users (id, name, email, role, status, bio, created_at, updated_at)
	           VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := s.db.ExecContext(ctx, q,
		user.ID, user.Name, user.Email, user.Role, user.Status, user.Bio,
		user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return users.ErrDuplicateEmail
		}

		return storeErr(err)
	}

	return nil
}

func (s *Store) Update(ctx context.Context, user *users.User) error {
	if _, err := uuid.Parse(user.ID); err != nil {
		return users.ErrInvalidID
	}

	if err := user.Validate(); err != nil {
		return err
	}

	user.UpdatedAt = time.Now().UTC()

	const q = `UPDATE users SET name = $1, email = $2, role = $3, status = $4, bio = $5, updated_at = $6
	           WHERE id = $7`

	res, err := s.db.ExecContext(ctx, q,
		user.Name, user.Email, user.Role, user.Status, user.Bio,
		user.UpdatedAt, user.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return users.ErrDuplicateEmail
		}

		return storeErr(err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return storeErr(err)
	}

	if affected == 0 {
		return users.ErrNotFound
	}

	return nil
}

func (s *Store) Delete(ctx context.Context, id string) (users.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return users.User{}, users.ErrInvalidID
	}

	const q = `DELETE FROM users WHERE id = $1
	           RETURNING id, name, email, role, status, bio, created_at, updated_at`

	var u users.User

	err := s.db.QueryRowContext(ctx, q, id).
		Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.Status, &u.Bio, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return users.User{}, users.ErrNotFound
		}

		return users.User{}, storeErr(err)
	}

	return u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError

	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}

func storeErr(err error) error {
	return fmt.Errorf("%w: %v", users.ErrStoreUnavailable, err)
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			role TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'active',
			bio TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)
	`)

	return err
}
