package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blog-server/internal/domain"
	"blog-server/internal/repository"
)

func boolPtr(b bool) *bool { return &b }

func mustCreate(t *testing.T, repo *UserRepository, name string) *domain.User {
	t.Helper()
	user, err := repo.Create(context.Background(), domain.UserName(name), name, "intro", name+"@example.com", false, []byte("hash"))
	require.NoError(t, err)
	return user
}

func TestUserCreateAndLookups(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository()

	created, err := repo.Create(ctx, "akkey", "Akkey", "hello", "akkey@example.com", true, []byte("bcrypt-digest"))
	require.NoError(t, err)
	assert.Equal(t, domain.UserName("akkey"), created.Name)
	assert.Equal(t, "Akkey", created.DisplayName)
	assert.True(t, created.ShowEmail)
	assert.NotEmpty(t, created.PwHash)
	assert.False(t, created.CreatedAt.IsZero())

	byID, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Name, byID.Name)

	byName, err := repo.GetByName(ctx, "akkey")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byName.ID)

	_, err = repo.Get(ctx, domain.NewUserID())
	assert.ErrorIs(t, err, repository.ErrUserNotFound)

	_, err = repo.GetByName(ctx, "nobody")
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestUserDistinctNamesAllSucceed(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository()

	want := map[domain.UserName]bool{}
	for i := 0; i < 20; i++ {
		name := fmt.Sprintf("user-%02d", i)
		mustCreate(t, repo, name)
		want[domain.UserName(name)] = true
	}

	users, err := repo.List(ctx, 0, 100)
	require.NoError(t, err)
	require.Len(t, users, len(want))
	for _, user := range users {
		assert.True(t, want[user.Name], "unexpected user %s", user.Name)
	}
}

func TestUserDuplicateNameRejected(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository()

	mustCreate(t, repo, "akkey")
	_, err := repo.Create(ctx, "akkey", "Someone Else", "", "", false, []byte("hash"))
	assert.ErrorIs(t, err, repository.ErrUserAlreadyExists)
}

func TestUserConcurrentDuplicateCreateExactlyOneWins(t *testing.T) {
	ctx := context.Background()

	// repeat to give an actual race a chance to show up
	for round := 0; round < 20; round++ {
		repo := NewUserRepository()

		const contenders = 8
		errs := make([]error, contenders)
		var wg sync.WaitGroup
		for i := 0; i < contenders; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = repo.Create(ctx, "akkey", "Akkey", "", "", false, []byte("hash"))
			}(i)
		}
		wg.Wait()

		winners := 0
		for _, err := range errs {
			if err == nil {
				winners++
			} else {
				assert.ErrorIs(t, err, repository.ErrUserAlreadyExists)
			}
		}
		assert.Equal(t, 1, winners)

		users, err := repo.List(ctx, 0, 10)
		require.NoError(t, err)
		assert.Len(t, users, 1)
	}
}

func TestUserListPagination(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository()

	var ids []domain.UserID
	for i := 0; i < 5; i++ {
		ids = append(ids, mustCreate(t, repo, fmt.Sprintf("user-%d", i)).ID)
	}

	page, err := repo.List(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, ids[2], page[0].ID)
	assert.Equal(t, ids[3], page[1].ID)

	empty, err := repo.List(ctx, 10, 5)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestUserUpdatePartial(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository()

	created := mustCreate(t, repo, "akkey")

	updated, err := repo.Update(ctx, created.ID, domain.UserPatch{
		DisplayName: strPtr("AK"),
		ShowEmail:   boolPtr(true),
	})
	require.NoError(t, err)
	assert.Equal(t, "AK", updated.DisplayName)
	assert.True(t, updated.ShowEmail)
	assert.Equal(t, created.Name, updated.Name)
	assert.Equal(t, created.Intro, updated.Intro)
	assert.Equal(t, created.Email, updated.Email)

	// empty string is a real value, not "leave unchanged"
	cleared, err := repo.Update(ctx, created.ID, domain.UserPatch{Intro: strPtr("")})
	require.NoError(t, err)
	assert.Equal(t, "", cleared.Intro)

	rehashed, err := repo.Update(ctx, created.ID, domain.UserPatch{PwHash: []byte("new-digest")})
	require.NoError(t, err)
	assert.Equal(t, []byte("new-digest"), rehashed.PwHash)

	_, err = repo.Update(ctx, domain.NewUserID(), domain.UserPatch{Intro: strPtr("x")})
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestUserRename(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository()

	akkey := mustCreate(t, repo, "akkey")
	furakuta := mustCreate(t, repo, "furakuta")

	// rename onto a taken name fails and changes nothing
	_, err := repo.Update(ctx, akkey.ID, domain.UserPatch{Name: namePtr("furakuta")})
	assert.ErrorIs(t, err, repository.ErrUserAlreadyExists)

	unchanged, err := repo.Get(ctx, akkey.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.UserName("akkey"), unchanged.Name)
	other, err := repo.Get(ctx, furakuta.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.UserName("furakuta"), other.Name)

	// renaming to a free name succeeds
	renamed, err := repo.Update(ctx, akkey.ID, domain.UserPatch{Name: namePtr("akkey2")})
	require.NoError(t, err)
	assert.Equal(t, domain.UserName("akkey2"), renamed.Name)

	// renaming to your own current name is not a collision
	self, err := repo.Update(ctx, akkey.ID, domain.UserPatch{Name: namePtr("akkey2")})
	require.NoError(t, err)
	assert.Equal(t, domain.UserName("akkey2"), self.Name)
}

func TestUserDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository()

	created := mustCreate(t, repo, "akkey")
	require.NoError(t, repo.Delete(ctx, created.ID))

	_, err := repo.Get(ctx, created.ID)
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, created.ID), repository.ErrUserNotFound)

	// the name is free again
	recreated, err := repo.Create(context.Background(), "akkey", "Akkey", "", "", false, []byte("hash"))
	require.NoError(t, err)
	assert.NotEqual(t, created.ID, recreated.ID)
}

func TestUserValidateName(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository()

	name, err := repo.ValidateName(ctx, "akkey")
	require.NoError(t, err)
	assert.Equal(t, domain.UserName("akkey"), name)

	mustCreate(t, repo, "akkey")

	_, err = repo.ValidateName(ctx, "akkey")
	assert.ErrorIs(t, err, repository.ErrUserAlreadyExists)

	_, err = repo.ValidateName(ctx, "   ")
	assert.ErrorIs(t, err, domain.ErrEmptyUserName)
}

func TestUserCopiesDoNotAliasStore(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository()

	created := mustCreate(t, repo, "akkey")
	created.PwHash[0] ^= 0xff

	stored, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("hash"), stored.PwHash)

	stored.DisplayName = "tampered"
	again, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "akkey", again.DisplayName)
}
