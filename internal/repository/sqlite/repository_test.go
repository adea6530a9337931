package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blog-server/internal/domain"
	"blog-server/internal/repository"
)

func strPtr(s string) *string { return &s }

func openTestDB(t *testing.T) (*ArticleRepository, *UserRepository) {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "blog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	articles := NewArticleRepository(db)
	users := NewUserRepository(db)
	require.NoError(t, articles.Init(context.Background()))
	require.NoError(t, users.Init(context.Background()))
	return articles, users
}

func TestSQLiteArticleCRUD(t *testing.T) {
	ctx := context.Background()
	articles, _ := openTestDB(t)

	created, err := articles.Create(ctx, "T", "akkey", "C")
	require.NoError(t, err)

	got, err := articles.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "T", got.Title)
	assert.Equal(t, domain.UserName("akkey"), got.Author)

	updated, err := articles.Update(ctx, created.ID, domain.ArticlePatch{Title: strPtr("T2")})
	require.NoError(t, err)
	assert.Equal(t, "T2", updated.Title)
	assert.Equal(t, "C", updated.Content)
	assert.True(t, updated.UpdatedAt.After(got.CreatedAt))

	_, err = articles.Update(ctx, domain.NewArticleID(), domain.ArticlePatch{})
	assert.ErrorIs(t, err, repository.ErrArticleNotFound)

	require.NoError(t, articles.Delete(ctx, created.ID))
	assert.ErrorIs(t, articles.Delete(ctx, created.ID), repository.ErrArticleNotFound)
	_, err = articles.Get(ctx, created.ID)
	assert.ErrorIs(t, err, repository.ErrArticleNotFound)
}

func TestSQLiteArticleListAndSearch(t *testing.T) {
	ctx := context.Background()
	articles, _ := openTestDB(t)

	var ids []domain.ArticleID
	for _, title := range []string{"Rust最高", "Python", "Rustの所有権システム", "four", "five"} {
		a, err := articles.Create(ctx, title, "furakuta", "content")
		require.NoError(t, err)
		ids = append(ids, a.ID)
	}

	page, err := articles.List(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, ids[2], page[0].ID)
	assert.Equal(t, ids[3], page[1].ID)

	empty, err := articles.List(ctx, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, empty)

	found, err := articles.Search(ctx, 0, 10, domain.ArticleQuery{Title: strPtr("Rust")})
	require.NoError(t, err)
	assert.Len(t, found, 2)

	// instr() is case-sensitive, matching the in-memory behavior
	none, err := articles.Search(ctx, 0, 10, domain.ArticleQuery{Title: strPtr("rust")})
	require.NoError(t, err)
	assert.Empty(t, none)

	author := domain.UserName("nobody")
	noAuthor, err := articles.Search(ctx, 0, 10, domain.ArticleQuery{Author: &author})
	require.NoError(t, err)
	assert.Empty(t, noAuthor)
}

func TestSQLiteUserCRUDAndUniqueness(t *testing.T) {
	ctx := context.Background()
	_, users := openTestDB(t)

	created, err := users.Create(ctx, "akkey", "Akkey", "hello", "akkey@example.com", true, []byte("digest"))
	require.NoError(t, err)

	_, err = users.Create(ctx, "akkey", "Imposter", "", "", false, []byte("digest"))
	assert.ErrorIs(t, err, repository.ErrUserAlreadyExists)

	byName, err := users.GetByName(ctx, "akkey")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byName.ID)
	assert.Equal(t, []byte("digest"), byName.PwHash)
	assert.True(t, byName.ShowEmail)

	other, err := users.Create(ctx, "furakuta", "Furakuta", "", "", false, []byte("digest"))
	require.NoError(t, err)

	// rename onto a taken name is rejected by the unique constraint
	name := domain.UserName("akkey")
	_, err = users.Update(ctx, other.ID, domain.UserPatch{Name: &name})
	assert.ErrorIs(t, err, repository.ErrUserAlreadyExists)

	still, err := users.Get(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.UserName("furakuta"), still.Name)

	updated, err := users.Update(ctx, other.ID, domain.UserPatch{Intro: strPtr("hi"), PwHash: []byte("new")})
	require.NoError(t, err)
	assert.Equal(t, "hi", updated.Intro)
	assert.Equal(t, []byte("new"), updated.PwHash)

	require.NoError(t, users.Delete(ctx, created.ID))
	assert.ErrorIs(t, users.Delete(ctx, created.ID), repository.ErrUserNotFound)
}

func TestSQLiteUserListOrder(t *testing.T) {
	ctx := context.Background()
	_, users := openTestDB(t)

	var ids []domain.UserID
	for _, name := range []string{"a", "b", "c"} {
		u, err := users.Create(ctx, domain.UserName(name), name, "", "", false, []byte("digest"))
		require.NoError(t, err)
		ids = append(ids, u.ID)
	}

	list, err := users.List(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, list, 3)
	for i := range ids {
		assert.Equal(t, ids[i], list[i].ID)
	}
}

func TestSQLiteValidateName(t *testing.T) {
	ctx := context.Background()
	_, users := openTestDB(t)

	name, err := users.ValidateName(ctx, "akkey")
	require.NoError(t, err)
	assert.Equal(t, domain.UserName("akkey"), name)

	_, err = users.Create(ctx, "akkey", "Akkey", "", "", false, []byte("digest"))
	require.NoError(t, err)

	_, err = users.ValidateName(ctx, "akkey")
	assert.ErrorIs(t, err, repository.ErrUserAlreadyExists)
}
