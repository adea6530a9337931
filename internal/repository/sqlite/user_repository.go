package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"blog-server/internal/domain"
	"blog-server/internal/repository"
)

const createUsersTable = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	display_name TEXT NOT NULL DEFAULT '',
	intro TEXT NOT NULL DEFAULT '',
	email TEXT NOT NULL DEFAULT '',
	show_email INTEGER NOT NULL DEFAULT 0,
	pw_hash BLOB NOT NULL,
	created_at DATETIME NOT NULL
);
`

// UserRepository is the database-backed variant of the user store. Name
// uniqueness is enforced by the UNIQUE constraint, so a colliding insert or
// rename fails atomically inside the database.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createUsersTable); err != nil {
		return fmt.Errorf("create users table: %w", err)
	}
	return nil
}

func (r *UserRepository) List(ctx context.Context, skip, limit int) ([]domain.User, error) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		return []domain.User{}, nil
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT id, name, display_name, intro, email, show_email, pw_hash, created_at
FROM users
ORDER BY id
LIMIT ? OFFSET ?`,
		limit, skip,
	)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := []domain.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

func (r *UserRepository) Get(ctx context.Context, id domain.UserID) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, name, display_name, intro, email, show_email, pw_hash, created_at
FROM users
WHERE id = ?`,
		id.String(),
	)
	return scanUser(row)
}

func (r *UserRepository) GetByName(ctx context.Context, name domain.UserName) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, name, display_name, intro, email, show_email, pw_hash, created_at
FROM users
WHERE name = ?`,
		name.String(),
	)
	return scanUser(row)
}

func (r *UserRepository) Create(ctx context.Context, name domain.UserName, displayName, intro, email string, showEmail bool, pwHash []byte) (*domain.User, error) {
	user := domain.User{
		ID:          domain.NewUserID(),
		Name:        name,
		DisplayName: displayName,
		Intro:       intro,
		Email:       email,
		ShowEmail:   showEmail,
		PwHash:      append([]byte(nil), pwHash...),
		CreatedAt:   time.Now().UTC(),
	}

	_, err := r.db.ExecContext(ctx, `
INSERT INTO users (id, name, display_name, intro, email, show_email, pw_hash, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID.String(),
		user.Name.String(),
		user.DisplayName,
		user.Intro,
		user.Email,
		user.ShowEmail,
		user.PwHash,
		user.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, repository.ErrUserAlreadyExists
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return &user, nil
}

func (r *UserRepository) Update(ctx context.Context, id domain.UserID, patch domain.UserPatch) (*domain.User, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin update user: %w", err)
	}
	defer tx.Rollback()

	user, err := scanUser(tx.QueryRowContext(ctx, `
SELECT id, name, display_name, intro, email, show_email, pw_hash, created_at
FROM users
WHERE id = ?`,
		id.String(),
	))
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		user.Name = *patch.Name
	}
	if patch.DisplayName != nil {
		user.DisplayName = *patch.DisplayName
	}
	if patch.Intro != nil {
		user.Intro = *patch.Intro
	}
	if patch.Email != nil {
		user.Email = *patch.Email
	}
	if patch.ShowEmail != nil {
		user.ShowEmail = *patch.ShowEmail
	}
	if patch.PwHash != nil {
		user.PwHash = append([]byte(nil), patch.PwHash...)
	}

	if _, err := tx.ExecContext(ctx, `
UPDATE users SET name = ?, display_name = ?, intro = ?, email = ?, show_email = ?, pw_hash = ?
WHERE id = ?`,
		user.Name.String(), user.DisplayName, user.Intro, user.Email, user.ShowEmail, user.PwHash, id.String(),
	); err != nil {
		if isUniqueViolation(err) {
			return nil, repository.ErrUserAlreadyExists
		}
		return nil, fmt.Errorf("update user: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit update user: %w", err)
	}
	return user, nil
}

func (r *UserRepository) Delete(ctx context.Context, id domain.UserID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete user rows affected: %w", err)
	}
	if affected == 0 {
		return repository.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) ValidateName(ctx context.Context, name string) (domain.UserName, error) {
	userName, err := domain.NewUserName(name)
	if err != nil {
		return "", err
	}

	var count int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE name = ?`, userName.String(),
	).Scan(&count); err != nil {
		return "", fmt.Errorf("count users by name: %w", err)
	}
	if count > 0 {
		return "", repository.ErrUserAlreadyExists
	}
	return userName, nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "unique")
}

func scanUser(row interface {
	Scan(dest ...any) error
}) (*domain.User, error) {
	var (
		user    domain.User
		rawID   string
		rawName string
	)
	if err := row.Scan(
		&rawID,
		&rawName,
		&user.DisplayName,
		&user.Intro,
		&user.Email,
		&user.ShowEmail,
		&user.PwHash,
		&user.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrUserNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	id, err := domain.ParseUserID(rawID)
	if err != nil {
		return nil, fmt.Errorf("parse user id %q: %w", rawID, err)
	}
	user.ID = id
	user.Name = domain.UserName(rawName)
	return &user, nil
}

var _ repository.UserRepository = (*UserRepository)(nil)
