package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"blog-server/internal/domain"
	"blog-server/internal/repository"
)

// ArticleRepository keeps all articles in a map guarded by a single
// reader-writer lock. Reads share the lock; every mutation, including its
// preceding existence check, runs under one exclusive acquisition so a
// concurrent delete cannot slip between check and commit. Nothing inside a
// critical section blocks.
type ArticleRepository struct {
	mu       sync.RWMutex
	articles map[domain.ArticleID]domain.Article
}

func NewArticleRepository() *ArticleRepository {
	return &ArticleRepository{
		articles: make(map[domain.ArticleID]domain.Article),
	}
}

func (r *ArticleRepository) List(ctx context.Context, skip, limit int) ([]domain.Article, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return page(r.collect(nil), skip, limit), nil
}

func (r *ArticleRepository) Get(ctx context.Context, id domain.ArticleID) (*domain.Article, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	article, ok := r.articles[id]
	if !ok {
		return nil, repository.ErrArticleNotFound
	}
	return &article, nil
}

func (r *ArticleRepository) Create(ctx context.Context, title string, author domain.UserName, content string) (*domain.Article, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	article := domain.Article{
		ID:        domain.NewArticleID(),
		Author:    author,
		Title:     title,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.articles[article.ID] = article
	return &article, nil
}

func (r *ArticleRepository) Update(ctx context.Context, id domain.ArticleID, patch domain.ArticlePatch) (*domain.Article, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	article, ok := r.articles[id]
	if !ok {
		return nil, repository.ErrArticleNotFound
	}

	if patch.Title != nil {
		article.Title = *patch.Title
	}
	if patch.Content != nil {
		article.Content = *patch.Content
	}
	// UpdatedAt advances even when the patch is empty.
	article.UpdatedAt = time.Now().UTC()

	r.articles[id] = article
	return &article, nil
}

func (r *ArticleRepository) Delete(ctx context.Context, id domain.ArticleID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.articles[id]; !ok {
		return repository.ErrArticleNotFound
	}
	delete(r.articles, id)
	return nil
}

func (r *ArticleRepository) Search(ctx context.Context, skip, limit int, query domain.ArticleQuery) ([]domain.Article, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	match := func(article domain.Article) bool {
		if query.Title != nil && !strings.Contains(article.Title, *query.Title) {
			return false
		}
		if query.Author != nil && article.Author != *query.Author {
			return false
		}
		return true
	}
	return page(r.collect(match), skip, limit), nil
}

// collect snapshots matching articles in creation order. Callers must hold
// at least the read lock.
func (r *ArticleRepository) collect(match func(domain.Article) bool) []domain.Article {
	articles := make([]domain.Article, 0, len(r.articles))
	for _, article := range r.articles {
		if match != nil && !match(article) {
			continue
		}
		articles = append(articles, article)
	}
	sort.Slice(articles, func(i, j int) bool {
		if articles[i].CreatedAt.Equal(articles[j].CreatedAt) {
			return articles[i].ID.Compare(articles[j].ID) < 0
		}
		return articles[i].CreatedAt.Before(articles[j].CreatedAt)
	})
	return articles
}

func page(articles []domain.Article, skip, limit int) []domain.Article {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 || skip >= len(articles) {
		return []domain.Article{}
	}
	end := skip + limit
	if end > len(articles) {
		end = len(articles)
	}
	return articles[skip:end]
}

var _ repository.ArticleRepository = (*ArticleRepository)(nil)
