package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"blog-server/internal/domain"
	"blog-server/internal/repository"
	"blog-server/internal/repository/memory"
)

func strPtr(s string) *string { return &s }

func TestCreateUserHashesPassword(t *testing.T) {
	ctx := context.Background()
	svc := NewUserService(memory.NewUserRepository())

	user, err := svc.CreateUser(ctx, "akkey", "Akkey", "hello", "akkey@example.com", true, "correct horse battery")
	require.NoError(t, err)

	assert.NotContains(t, string(user.PwHash), "correct horse battery")
	assert.NoError(t, bcrypt.CompareHashAndPassword(user.PwHash, []byte("correct horse battery")))
}

func TestCreateUserValidation(t *testing.T) {
	ctx := context.Background()
	svc := NewUserService(memory.NewUserRepository())

	_, err := svc.CreateUser(ctx, "  ", "x", "", "", false, "password123")
	assert.ErrorIs(t, err, domain.ErrEmptyUserName)

	_, err = svc.CreateUser(ctx, "akkey", "x", "", "", false, "")
	assert.Error(t, err)

	_, err = svc.CreateUser(ctx, "akkey", "x", "", "", false, "short")
	assert.Error(t, err)
}

func TestCreateUserDuplicate(t *testing.T) {
	ctx := context.Background()
	svc := NewUserService(memory.NewUserRepository())

	_, err := svc.CreateUser(ctx, "akkey", "Akkey", "", "", false, "password123")
	require.NoError(t, err)

	_, err = svc.CreateUser(ctx, "akkey", "Imposter", "", "", false, "password456")
	assert.ErrorIs(t, err, repository.ErrUserAlreadyExists)
}

func TestUpdateUserByName(t *testing.T) {
	ctx := context.Background()
	svc := NewUserService(memory.NewUserRepository())

	created, err := svc.CreateUser(ctx, "akkey", "Akkey", "", "", false, "password123")
	require.NoError(t, err)

	updated, err := svc.UpdateUser(ctx, "akkey", UserUpdate{
		DisplayName: strPtr("AK"),
		Password:    strPtr("new password 42"),
	})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "AK", updated.DisplayName)
	assert.NoError(t, bcrypt.CompareHashAndPassword(updated.PwHash, []byte("new password 42")))

	_, err = svc.UpdateUser(ctx, "nobody", UserUpdate{DisplayName: strPtr("x")})
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestUpdateUserRename(t *testing.T) {
	ctx := context.Background()
	svc := NewUserService(memory.NewUserRepository())

	_, err := svc.CreateUser(ctx, "akkey", "Akkey", "", "", false, "password123")
	require.NoError(t, err)
	_, err = svc.CreateUser(ctx, "furakuta", "Furakuta", "", "", false, "password123")
	require.NoError(t, err)

	_, err = svc.UpdateUser(ctx, "akkey", UserUpdate{Name: strPtr("furakuta")})
	assert.ErrorIs(t, err, repository.ErrUserAlreadyExists)

	renamed, err := svc.UpdateUser(ctx, "akkey", UserUpdate{Name: strPtr("akkey2")})
	require.NoError(t, err)
	assert.Equal(t, domain.UserName("akkey2"), renamed.Name)

	_, err = svc.GetUserByName(ctx, "akkey")
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestDeleteUserByName(t *testing.T) {
	ctx := context.Background()
	svc := NewUserService(memory.NewUserRepository())

	_, err := svc.CreateUser(ctx, "akkey", "Akkey", "", "", false, "password123")
	require.NoError(t, err)

	require.NoError(t, svc.DeleteUser(ctx, "akkey"))
	assert.ErrorIs(t, svc.DeleteUser(ctx, "akkey"), repository.ErrUserNotFound)
}

func TestValidateUserName(t *testing.T) {
	ctx := context.Background()
	svc := NewUserService(memory.NewUserRepository())

	name, err := svc.ValidateUserName(ctx, "akkey")
	require.NoError(t, err)
	assert.Equal(t, domain.UserName("akkey"), name)

	_, err = svc.CreateUser(ctx, "akkey", "Akkey", "", "", false, "password123")
	require.NoError(t, err)

	_, err = svc.ValidateUserName(ctx, "akkey")
	assert.ErrorIs(t, err, repository.ErrUserAlreadyExists)
}
