package repository

import (
	"context"
	"errors"

	"blog-server/internal/domain"
)

// ErrArticleNotFound is returned when no article exists for the given id.
var ErrArticleNotFound = errors.New("article not found")

// ArticleRepository defines persistence operations for Article entities.
// Implementations must make each operation atomic with respect to the
// others: a caller never observes a partially applied update.
type ArticleRepository interface {
	// List returns articles ordered by ascending creation time (ties broken
	// by id) after skipping the first skip entries, at most limit of them.
	// A window past the end of the collection yields an empty slice.
	List(ctx context.Context, skip, limit int) ([]domain.Article, error)

	// Get looks up a single article by id.
	Get(ctx context.Context, id domain.ArticleID) (*domain.Article, error)

	// Create stores a new article with a fresh id and returns a copy of the
	// stored value. CreatedAt and UpdatedAt are stamped with the same instant.
	Create(ctx context.Context, title string, author domain.UserName, content string) (*domain.Article, error)

	// Update applies the patch to an existing article. UpdatedAt advances on
	// every successful call, even when the patch is empty.
	Update(ctx context.Context, id domain.ArticleID, patch domain.ArticlePatch) (*domain.Article, error)

	// Delete removes the article.
	Delete(ctx context.Context, id domain.ArticleID) error

	// Search behaves like List with the query's filters applied first.
	Search(ctx context.Context, skip, limit int, query domain.ArticleQuery) ([]domain.Article, error)
}
