package service

import (
	"context"
	"errors"
	"strings"

	"blog-server/internal/domain"
	"blog-server/internal/repository"
)

// ArticleService coordinates article operations backed by the repositories.
type ArticleService interface {
	GetArticles(ctx context.Context, skip, limit int) ([]domain.Article, error)
	GetArticleByID(ctx context.Context, id domain.ArticleID) (*domain.Article, error)
	// CreateArticle resolves the author by name first; an unknown author
	// fails with repository.ErrUserNotFound. The stored author is a snapshot
	// of the name, so later renames or deletions of the user do not touch
	// the article.
	CreateArticle(ctx context.Context, author, title, content string) (*domain.Article, error)
	UpdateArticle(ctx context.Context, id domain.ArticleID, patch domain.ArticlePatch) (*domain.Article, error)
	DeleteArticle(ctx context.Context, id domain.ArticleID) error
	SearchArticles(ctx context.Context, skip, limit int, query domain.ArticleQuery) ([]domain.Article, error)
}

type articleService struct {
	articles repository.ArticleRepository
	users    repository.UserRepository
}

func NewArticleService(articles repository.ArticleRepository, users repository.UserRepository) ArticleService {
	return &articleService{
		articles: articles,
		users:    users,
	}
}

func (s *articleService) GetArticles(ctx context.Context, skip, limit int) ([]domain.Article, error) {
	return s.articles.List(ctx, skip, limit)
}

func (s *articleService) GetArticleByID(ctx context.Context, id domain.ArticleID) (*domain.Article, error) {
	return s.articles.Get(ctx, id)
}

func (s *articleService) CreateArticle(ctx context.Context, author, title, content string) (*domain.Article, error) {
	if strings.TrimSpace(title) == "" {
		return nil, errors.New("title is required")
	}

	// No cross-store atomicity: the author could be deleted between this
	// check and the insert, in which case the article simply keeps a stale
	// name snapshot.
	user, err := s.users.GetByName(ctx, domain.UserName(author))
	if err != nil {
		return nil, err
	}

	return s.articles.Create(ctx, title, user.Name, content)
}

func (s *articleService) UpdateArticle(ctx context.Context, id domain.ArticleID, patch domain.ArticlePatch) (*domain.Article, error) {
	return s.articles.Update(ctx, id, patch)
}

func (s *articleService) DeleteArticle(ctx context.Context, id domain.ArticleID) error {
	return s.articles.Delete(ctx, id)
}

func (s *articleService) SearchArticles(ctx context.Context, skip, limit int, query domain.ArticleQuery) ([]domain.Article, error) {
	return s.articles.Search(ctx, skip, limit, query)
}
