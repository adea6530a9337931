package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"blog-server/internal/domain"
	"blog-server/internal/repository"
)

const createArticlesTable = `
CREATE TABLE IF NOT EXISTS articles (
	id TEXT PRIMARY KEY,
	author TEXT NOT NULL,
	title TEXT NOT NULL,
	content TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_articles_created_at ON articles (created_at, id);
`

// ArticleRepository is the database-backed variant of the article store.
// Ordering and windowing semantics match the in-memory implementation.
type ArticleRepository struct {
	db *sql.DB
}

func NewArticleRepository(db *sql.DB) *ArticleRepository {
	return &ArticleRepository{db: db}
}

func (r *ArticleRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createArticlesTable); err != nil {
		return fmt.Errorf("create articles table: %w", err)
	}
	return nil
}

func (r *ArticleRepository) List(ctx context.Context, skip, limit int) ([]domain.Article, error) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		return []domain.Article{}, nil
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT id, author, title, content, created_at, updated_at
FROM articles
ORDER BY created_at, id
LIMIT ? OFFSET ?`,
		limit, skip,
	)
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	defer rows.Close()

	return collectArticles(rows)
}

func (r *ArticleRepository) Get(ctx context.Context, id domain.ArticleID) (*domain.Article, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, author, title, content, created_at, updated_at
FROM articles
WHERE id = ?`,
		id.String(),
	)
	return scanArticle(row)
}

func (r *ArticleRepository) Create(ctx context.Context, title string, author domain.UserName, content string) (*domain.Article, error) {
	now := time.Now().UTC()
	article := domain.Article{
		ID:        domain.NewArticleID(),
		Author:    author,
		Title:     title,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := r.db.ExecContext(ctx, `
INSERT INTO articles (id, author, title, content, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)`,
		article.ID.String(),
		article.Author.String(),
		article.Title,
		article.Content,
		article.CreatedAt,
		article.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert article: %w", err)
	}
	return &article, nil
}

func (r *ArticleRepository) Update(ctx context.Context, id domain.ArticleID, patch domain.ArticlePatch) (*domain.Article, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin update article: %w", err)
	}
	defer tx.Rollback()

	article, err := scanArticle(tx.QueryRowContext(ctx, `
SELECT id, author, title, content, created_at, updated_at
FROM articles
WHERE id = ?`,
		id.String(),
	))
	if err != nil {
		return nil, err
	}

	if patch.Title != nil {
		article.Title = *patch.Title
	}
	if patch.Content != nil {
		article.Content = *patch.Content
	}
	article.UpdatedAt = time.Now().UTC()

	if _, err := tx.ExecContext(ctx, `
UPDATE articles SET title = ?, content = ?, updated_at = ?
WHERE id = ?`,
		article.Title, article.Content, article.UpdatedAt, id.String(),
	); err != nil {
		return nil, fmt.Errorf("update article: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit update article: %w", err)
	}
	return article, nil
}

func (r *ArticleRepository) Delete(ctx context.Context, id domain.ArticleID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM articles WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("delete article: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete article rows affected: %w", err)
	}
	if affected == 0 {
		return repository.ErrArticleNotFound
	}
	return nil
}

func (r *ArticleRepository) Search(ctx context.Context, skip, limit int, query domain.ArticleQuery) ([]domain.Article, error) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		return []domain.Article{}, nil
	}

	where := "1 = 1"
	args := []any{}
	if query.Title != nil {
		// instr() is a case-sensitive containment check, unlike LIKE
		where += " AND instr(title, ?) > 0"
		args = append(args, *query.Title)
	}
	if query.Author != nil {
		where += " AND author = ?"
		args = append(args, query.Author.String())
	}
	args = append(args, limit, skip)

	rows, err := r.db.QueryContext(ctx, `
SELECT id, author, title, content, created_at, updated_at
FROM articles
WHERE `+where+`
ORDER BY created_at, id
LIMIT ? OFFSET ?`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("search articles: %w", err)
	}
	defer rows.Close()

	return collectArticles(rows)
}

func collectArticles(rows *sql.Rows) ([]domain.Article, error) {
	articles := []domain.Article{}
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, *article)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate articles: %w", err)
	}
	return articles, nil
}

func scanArticle(row interface {
	Scan(dest ...any) error
}) (*domain.Article, error) {
	var (
		article   domain.Article
		rawID     string
		rawAuthor string
	)
	if err := row.Scan(
		&rawID,
		&rawAuthor,
		&article.Title,
		&article.Content,
		&article.CreatedAt,
		&article.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrArticleNotFound
		}
		return nil, fmt.Errorf("scan article: %w", err)
	}

	id, err := domain.ParseArticleID(rawID)
	if err != nil {
		return nil, fmt.Errorf("parse article id %q: %w", rawID, err)
	}
	article.ID = id
	article.Author = domain.UserName(rawAuthor)
	return &article, nil
}

var _ repository.ArticleRepository = (*ArticleRepository)(nil)
