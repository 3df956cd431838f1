package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/user-api/internal/auth"
	"github.com/spec-kit/user-api/internal/config"
	"github.com/spec-kit/user-api/internal/events"
	"github.com/spec-kit/user-api/internal/repository"
)

type userFixture struct {
	svc    *UserService
	repo   *repository.MemoryUserRepository
	hasher *auth.PasswordHasher
	events []events.Event
}

func newUserFixture(t *testing.T) *userFixture {
	t.Helper()
	f := &userFixture{
		repo:   repository.NewMemoryUserRepository(),
		hasher: auth.NewPasswordHasher(bcrypt.MinCost),
	}
	d := events.NewInMemoryDispatcher()
	record := func(_ context.Context, e events.Event) error {
		f.events = append(f.events, e)
		return nil
	}
	d.Subscribe(events.EventUserCreated, record)
	d.Subscribe(events.EventUserUpdated, record)
	d.Subscribe(events.EventUserDeleted, record)
	f.svc = NewUserService(f.repo, f.hasher, d, nil)
	return f
}

func TestUserServiceCreateHashesPassword(t *testing.T) {
	f := newUserFixture(t)
	ctx := auth.WithPrincipal(context.Background(), auth.NewPrincipal("admin", "ADMIN"))

	user, err := f.svc.Create(ctx, UserInput{Username: "jaques", Email: "jaques@teste.com", Role: "Desenvolvedor", Password: "root"})
	require.NoError(t, err)
	assert.NotEqual(t, "root", user.PasswordHash)
	assert.True(t, f.hasher.Verify("root", user.PasswordHash))

	require.Len(t, f.events, 1)
	assert.Equal(t, events.EventUserCreated, f.events[0].Type)
	assert.Equal(t, "admin", f.events[0].Actor)
	assert.Equal(t, user.ID, f.events[0].UserID)
}

func TestUserServiceCreateConflict(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, UserInput{Username: "jaques", Email: "jaques@teste.com", Role: "Dev", Password: "root"})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, UserInput{Username: "jaques", Email: "other@teste.com", Role: "Dev", Password: "root"})
	assert.ErrorIs(t, err, repository.ErrUserConflict)
	assert.Len(t, f.events, 1)
}

func TestUserServiceUpdate(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()
	created, err := f.svc.Create(ctx, UserInput{Username: "jaques", Email: "jaques@teste.com", Role: "Dev", Password: "root"})
	require.NoError(t, err)
	originalHash := created.PasswordHash

	updated, err := f.svc.Update(ctx, created.ID, UserInput{Username: "jaques", Email: "jaques@teste.com", Role: "Lead"})
	require.NoError(t, err)
	assert.Equal(t, "Lead", updated.Role)
	assert.Equal(t, originalHash, updated.PasswordHash)

	renamed, err := f.svc.Update(ctx, created.ID, UserInput{Username: "jaques2", Email: "jaques@teste.com", Role: "Lead", Password: "new"})
	require.NoError(t, err)
	assert.True(t, f.hasher.Verify("new", renamed.PasswordHash))

	require.Len(t, f.events, 3)
	first := f.events[1].Payload.(events.UserChangedPayload)
	assert.Empty(t, first.PreviousUsername)
	second := f.events[2].Payload.(events.UserChangedPayload)
	assert.Equal(t, "jaques", second.PreviousUsername)
	assert.Equal(t, "jaques2", second.Username)
}

func TestUserServiceUpdateMissing(t *testing.T) {
	f := newUserFixture(t)
	_, err := f.svc.Update(context.Background(), "missing", UserInput{Username: "x", Email: "x@x", Role: "r"})
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestUserServiceDelete(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()
	created, err := f.svc.Create(ctx, UserInput{Username: "jaques", Email: "jaques@teste.com", Role: "Dev", Password: "root"})
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, created.ID))
	assert.ErrorIs(t, f.svc.Delete(ctx, created.ID), repository.ErrUserNotFound)

	require.Len(t, f.events, 2)
	assert.Equal(t, events.EventUserDeleted, f.events[1].Type)
	assert.Equal(t, "jaques", f.events[1].Payload.(events.UserChangedPayload).Username)
}

func TestEnsureBootstrap(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()
	b := config.BootstrapUser{Username: "jaques", Password: "root", Role: "Desenvolvedor"}

	created, err := f.svc.EnsureBootstrap(ctx, b)
	require.NoError(t, err)
	assert.True(t, created)

	user, err := f.repo.GetByUsername(ctx, "jaques")
	require.NoError(t, err)
	assert.Equal(t, "jaques@localhost", user.Email)
	assert.True(t, f.hasher.Verify("root", user.PasswordHash))

	created, err = f.svc.EnsureBootstrap(ctx, b)
	require.NoError(t, err)
	assert.False(t, created)

	created, err = f.svc.EnsureBootstrap(ctx, config.BootstrapUser{})
	require.NoError(t, err)
	assert.False(t, created)
}
