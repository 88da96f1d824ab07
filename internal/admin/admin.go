package admin

import (
	"context"
	"database/sql"
	"net/mail"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"schoolportal/internal/auth"
	"schoolportal/internal/store"
)

var (
	// ErrInvalid marks an account that fails validation.
	ErrInvalid = errors.New("invalid admin")
	// ErrBadCredentials is returned for an unknown user, a wrong password or
	// a deactivated account.
	ErrBadCredentials = errors.New("invalid credentials")
)

const minPasswordLen = 8

// Admin is a portal operator account.
type Admin struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks the account fields. Password is checked only when set.
func (a Admin) Validate(password string, requirePassword bool) error {
	if strings.TrimSpace(a.Username) == "" || strings.TrimSpace(a.FullName) == "" {
		return errors.Wrap(ErrInvalid, "username and full name are required")
	}
	if _, err := mail.ParseAddress(a.Email); err != nil {
		return errors.Wrap(ErrInvalid, "email is not valid")
	}
	if !auth.ValidRole(a.Role) {
		return errors.Wrapf(ErrInvalid, "unknown role %q", a.Role)
	}
	if (requirePassword || password != "") && len(password) < minPasswordLen {
		return errors.Wrapf(ErrInvalid, "password must be at least %d characters", minPasswordLen)
	}
	return nil
}

// Repository persists admin accounts and their login activity.
type Repository struct {
	db   *sql.DB
	cost int
}

// NewRepository creates a repo hashing passwords at bcrypt.DefaultCost.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db, cost: bcrypt.DefaultCost}
}

func (r *Repository) hash(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), r.cost)
	if err != nil {
		return "", errors.Wrap(err, "hash password")
	}
	return string(h), nil
}

// Create inserts an account with a hashed password.
func (r *Repository) Create(ctx context.Context, a Admin, password string, now time.Time) (int64, error) {
	h, err := r.hash(password)
	if err != nil {
		return 0, err
	}
	var id int64
	err = r.db.QueryRowContext(ctx, `
		INSERT INTO admins (username, email, full_name, password_hash, role, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, a.Username, a.Email, a.FullName, h, a.Role, now).Scan(&id)
	if err != nil {
		return 0, errors.Wrap(store.Classify(err), "create admin")
	}
	return id, nil
}

// List returns every account, active first.
func (r *Repository) List(ctx context.Context) ([]Admin, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, username, email, full_name, role, is_active, created_at
		FROM admins
		ORDER BY is_active DESC, created_at DESC, id DESC
	`)
	if err != nil {
		return nil, errors.Wrap(err, "list admins")
	}
	defer rows.Close()
	var res []Admin
	for rows.Next() {
		var a Admin
		if err := rows.Scan(&a.ID, &a.Username, &a.Email, &a.FullName, &a.Role, &a.IsActive, &a.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan admin")
		}
		res = append(res, a)
	}
	return res, errors.Wrap(rows.Err(), "iterate admins")
}

// Update replaces profile fields of a.ID, and the password when non-empty.
func (r *Repository) Update(ctx context.Context, a Admin, password string) error {
	query := `UPDATE admins SET username = $1, email = $2, full_name = $3, role = $4, is_active = $5`
	args := []any{a.Username, a.Email, a.FullName, a.Role, a.IsActive}
	if password != "" {
		h, err := r.hash(password)
		if err != nil {
			return err
		}
		query += `, password_hash = $6 WHERE id = $7`
		args = append(args, h, a.ID)
	} else {
		query += ` WHERE id = $6`
		args = append(args, a.ID)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return errors.Wrapf(store.Classify(err), "update admin %d", a.ID)
	}
	return affected(res, a.ID)
}

// Deactivate disables an account. Existing sessions expire on their own.
func (r *Repository) Deactivate(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE admins SET is_active = FALSE WHERE id = $1`, id)
	if err != nil {
		return errors.Wrapf(err, "deactivate admin %d", id)
	}
	return affected(res, id)
}

// Authenticate verifies a username and password against an active account.
func (r *Repository) Authenticate(ctx context.Context, username, password string) (Admin, error) {
	var a Admin
	var hash string
	err := r.db.QueryRowContext(ctx, `
		SELECT id, username, email, full_name, role, is_active, created_at, password_hash
		FROM admins WHERE username = $1
	`, username).Scan(&a.ID, &a.Username, &a.Email, &a.FullName, &a.Role, &a.IsActive, &a.CreatedAt, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return Admin{}, ErrBadCredentials
	}
	if err != nil {
		return Admin{}, errors.Wrap(err, "load admin")
	}
	if !a.IsActive {
		return Admin{}, ErrBadCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return Admin{}, ErrBadCredentials
	}
	return a, nil
}

func affected(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.Wrapf(store.ErrNotFound, "admin %d", id)
	}
	return nil
}
