// Package sqlite implements the UserRepository on an embedded sqlite
// database. It is the default store of the web runner.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // sqlite driver

	"github.com/gosom/user-directory/users"
)

type Store struct {
	db *sql.DB
}

func New(path string) (*Store, error) {
	db, err := initDatabase(path)
	if err != nil {
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
		user, err := rowToUser(rows)
		if err != nil {
			return nil, storeErr(err)
		}

		ans = append(ans, user)
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
	           FROM users WHERE id = ?`

	user, err := rowToUser(s.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return users.User{}, users.ErrNotFound
		}

		return users.User{}, storeErr(err)
	}

	return user, nil
}

func (s *Store) GetByEmail(ctx context.Context, email, excludeID string) (users.User, error) {
	q := `SELECT id, name, email, role, status, bio, created_at, updated_at
	      FROM users WHERE email = ?`

	args := []any{email}

	if excludeID != "" {
		q += ` AND id != ?`

		args = append(args, excludeID)
	}

	user, err := rowToUser(s.db.QueryRowContext(ctx, q, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return users.User{}, users.ErrNotFound
		}

		return users.User{}, storeErr(err)
	}

	return user, nil
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
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, q,
		user.ID, user.Name, user.Email, user.Role, user.Status, user.Bio,
		user.CreatedAt.UnixNano(), user.UpdatedAt.UnixNano(),
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

	const q = `UPDATE users SET name = ?, email = ?, role = ?, status = ?, bio = ?, updated_at = ?
	           WHERE id = ?`

	res, err := s.db.ExecContext(ctx, q,
		user.Name, user.Email, user.Role, user.Status, user.Bio,
		user.UpdatedAt.UnixNano(), user.ID,
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
	user, err := s.Get(ctx, id)
	if err != nil {
		return users.User{}, err
	}

	const q = `DELETE FROM users WHERE id = ?`

	if _, err := s.db.ExecContext(ctx, q, id); err != nil {
		return users.User{}, storeErr(err)
	}

	return user, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func rowToUser(row scannable) (users.User, error) {
	var (
		u                    users.User
		createdAt, updatedAt int64
	)

	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.Status, &u.Bio, &createdAt, &updatedAt)
	if err != nil {
		return users.User{}, err
	}

	u.CreatedAt = time.Unix(0, createdAt).UTC()
	u.UpdatedAt = time.Unix(0, updatedAt).UTC()

	return u, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func storeErr(err error) error {
	return fmt.Errorf("%w: %v", users.ErrStoreUnavailable, err)
}

func initDatabase(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(30 * time.Minute)

	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return nil, err
		}
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return db, createSchema(db)
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL,
			role TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'active',
			bio TEXT NOT NULL DEFAULT '',
			created_at INT NOT NULL,
			updated_at INT NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users (email)`)

	return err
}
