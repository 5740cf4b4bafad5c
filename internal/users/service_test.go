package users

import (
	"context"
	"errors"
	"testing"

	"github.com/lendinghub/lending-service/internal/models"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestService() *Service {
	s := NewService(NewMemoryUserRepository())
	s.cost = bcrypt.MinCost
	return s
}

func TestSignupAndAuthenticate(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	u, err := svc.Signup(ctx, "  alice ", "correct-horse", models.RoleUser)
	require.NoError(t, err)
	require.NotEmpty(t, u.ID)
	require.Equal(t, "alice", u.Username)
	require.NotEqual(t, "correct-horse", u.PasswordHash)
	require.False(t, u.CreatedAt.IsZero())

	got, err := svc.Authenticate(ctx, "alice", "correct-horse")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)

	_, err = svc.Authenticate(ctx, "alice", "wrong-password")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "bob", "correct-horse")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	byID, err := svc.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "alice", byID.Username)
}

func TestSignup_Rejections(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.Signup(ctx, "", "long-enough", models.RoleUser)
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Signup(ctx, "carol", "short", models.RoleUser)
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Signup(ctx, "carol", "long-enough", models.Role("ROOT"))
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Signup(ctx, "carol", "long-enough", models.RoleAdmin)
	require.NoError(t, err)
	_, err = svc.Signup(ctx, "carol", "another-pass", models.RoleUser)
	require.ErrorIs(t, err, ErrUserExists)
}

type failingRepo struct{ MemoryUserRepository }

func (f *failingRepo) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return nil, errors.New("store down")
}

func TestAuthenticate_PropagatesStoreErrors(t *testing.T) {
	svc := NewService(&failingRepo{})
	_, err := svc.Authenticate(context.Background(), "x", "y")
	require.EqualError(t, err, "store down")
}

func TestMemoryUserRepository_DuplicateUsername(t *testing.T) {
	repo := NewMemoryUserRepository()
	ctx := context.Background()
	_, err := repo.Save(ctx, &models.User{ID: "1", Username: "dup"})
	require.NoError(t, err)
	_, err = repo.Save(ctx, &models.User{ID: "2", Username: "dup"})
	require.ErrorIs(t, err, ErrDuplicateUsername)

	// re-saving the same user is an update
	_, err = repo.Save(ctx, &models.User{ID: "1", Username: "dup", Role: models.RoleAdmin})
	require.NoError(t, err)
	u, err := repo.GetByID(ctx, "1")
	require.NoError(t, err)
	require.Equal(t, models.RoleAdmin, u.Role)

	missing, err := repo.FindByUsername(ctx, "nobody")
	require.NoError(t, err)
	require.Nil(t, missing)
}
