package admin

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"schoolportal/internal/auth"
	"schoolportal/internal/store"
)

func setupRepo(t *testing.T) *Repository {
	t.Helper()
	db, err := store.NewDB("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(context.Background()))
	repo := NewRepository(db.Client)
	repo.cost = bcrypt.MinCost
	return repo
}

func TestValidate(t *testing.T) {
	ok := Admin{Username: "root", Email: "root@school.edu", FullName: "Root", Role: auth.RoleSuperadmin}
	assert.NoError(t, ok.Validate("longenough", true))
	assert.NoError(t, ok.Validate("", false))
	assert.ErrorIs(t, ok.Validate("short", false), ErrInvalid)
	assert.ErrorIs(t, ok.Validate("", true), ErrInvalid)

	bad := ok
	bad.Role = "janitor"
	assert.ErrorIs(t, bad.Validate("longenough", true), ErrInvalid)
	bad = ok
	bad.Email = "nope"
	assert.ErrorIs(t, bad.Validate("longenough", true), ErrInvalid)
}

func TestCreateAuthenticateDeactivate(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	a := Admin{Username: "registrar", Email: "reg@school.edu", FullName: "Reg Istrar", Role: auth.RoleStudentRegistrar}
	id, err := repo.Create(ctx, a, "s3cretpass", now)
	require.NoError(t, err)

	_, err = repo.Create(ctx, a, "s3cretpass", now)
	assert.True(t, errors.Is(err, store.ErrConflict))

	got, err := repo.Authenticate(ctx, "registrar", "s3cretpass")
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, auth.RoleStudentRegistrar, got.Role)

	_, err = repo.Authenticate(ctx, "registrar", "wrong")
	assert.ErrorIs(t, err, ErrBadCredentials)
	_, err = repo.Authenticate(ctx, "ghost", "s3cretpass")
	assert.ErrorIs(t, err, ErrBadCredentials)

	a.ID = id
	a.IsActive = true
	a.Role = auth.RoleFineManager
	require.NoError(t, repo.Update(ctx, a, "n3wpassword"))
	_, err = repo.Authenticate(ctx, "registrar", "s3cretpass")
	assert.ErrorIs(t, err, ErrBadCredentials)
	got, err = repo.Authenticate(ctx, "registrar", "n3wpassword")
	require.NoError(t, err)
	assert.Equal(t, auth.RoleFineManager, got.Role)

	require.NoError(t, repo.Update(ctx, a, ""))
	_, err = repo.Authenticate(ctx, "registrar", "n3wpassword")
	require.NoError(t, err, "empty password keeps the old hash")

	require.NoError(t, repo.Deactivate(ctx, id))
	_, err = repo.Authenticate(ctx, "registrar", "n3wpassword")
	assert.ErrorIs(t, err, ErrBadCredentials)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.False(t, list[0].IsActive)

	assert.True(t, errors.Is(repo.Deactivate(ctx, 99), store.ErrNotFound))
}

func TestLoginStats(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC)

	root, err := repo.Create(ctx, Admin{Username: "root", Email: "root@school.edu", FullName: "Root", Role: auth.RoleSuperadmin}, "password1", now)
	require.NoError(t, err)
	fm, err := repo.Create(ctx, Admin{Username: "fm", Email: "fm@school.edu", FullName: "Fine Manager", Role: auth.RoleFineManager}, "password1", now)
	require.NoError(t, err)

	require.NoError(t, repo.RecordActivity(ctx, root, ActivityLogin, now.Add(-time.Hour)))
	require.NoError(t, repo.RecordActivity(ctx, root, ActivityLogout, now.Add(-time.Minute)))
	require.NoError(t, repo.RecordActivity(ctx, fm, ActivityLogin, now.Add(-24*time.Hour)))
	require.NoError(t, repo.RecordActivity(ctx, fm, ActivityLogin, now.Add(-2*time.Hour)))
	require.NoError(t, repo.RecordActivity(ctx, fm, ActivityLogin, now.Add(-40*24*time.Hour)))

	all, err := repo.LoginStats(ctx, "", now)
	require.NoError(t, err)
	assert.Equal(t, []LoginStat{{Role: auth.RoleFineManager, Logins: 2}, {Role: auth.RoleSuperadmin, Logins: 1}}, all)

	own, err := repo.LoginStats(ctx, auth.RoleFineManager, now)
	require.NoError(t, err)
	assert.Equal(t, []LoginStat{{Role: auth.RoleFineManager, Logins: 2}}, own)
}
