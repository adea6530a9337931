package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"blog-server/internal/domain"
	"blog-server/internal/repository"
	"blog-server/internal/service"
	"blog-server/internal/storage"
)

const (
	defaultSkip  = 0
	defaultLimit = 10

	attachmentURLTTL = 15 * time.Minute
)

// Handler wires HTTP routes to domain services.
type Handler struct {
	articles  service.ArticleService
	users     service.UserService
	media     storage.Service
	bucket    string
	keyPrefix string
}

func NewHandler(articles service.ArticleService, users service.UserService, media storage.Service, bucket, keyPrefix string) *Handler {
	return &Handler{
		articles:  articles,
		users:     users,
		media:     media,
		bucket:    bucket,
		keyPrefix: keyPrefix,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(corsMiddleware())

	api := router.Group("/api")
	{
		api.GET("/articles", h.listArticles)
		api.POST("/articles", h.createArticle)
		api.GET("/articles/search", h.searchArticles)
		api.GET("/articles/:id", h.getArticle)
		api.PATCH("/articles/:id", h.updateArticle)
		api.DELETE("/articles/:id", h.deleteArticle)
		api.POST("/articles/:id/attachments", h.uploadAttachment)
		api.GET("/articles/:id/attachments", h.listAttachments)

		api.GET("/users", h.listUsers)
		api.POST("/users", h.createUser)
		api.POST("/users/validate", h.validateUserName)
		api.GET("/users/:name", h.getUser)
		api.PATCH("/users/:name", h.updateUser)
		api.DELETE("/users/:name", h.deleteUser)

		api.GET("/health", func(ctx *gin.Context) {
			ctx.JSON(http.StatusOK, gin.H{"ok": "ok"})
		})
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func pagination(c *gin.Context) (skip, limit int, err error) {
	skip, err = strconv.Atoi(c.DefaultQuery("skip", strconv.Itoa(defaultSkip)))
	if err != nil || skip < 0 {
		return 0, 0, fmt.Errorf("invalid skip")
	}
	limit, err = strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))
	if err != nil || limit < 0 {
		return 0, 0, fmt.Errorf("invalid limit")
	}
	return skip, limit, nil
}

// --- articles ---

type ArticleResponse struct {
	ID        string `json:"id"`
	Author    string `json:"author"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func articleToResponse(article domain.Article) ArticleResponse {
	return ArticleResponse{
		ID:        article.ID.String(),
		Author:    article.Author.String(),
		Title:     article.Title,
		Content:   article.Content,
		CreatedAt: article.CreatedAt.Format(time.RFC3339),
		UpdatedAt: article.UpdatedAt.Format(time.RFC3339),
	}
}

func articlesToResponse(articles []domain.Article) []ArticleResponse {
	resp := make([]ArticleResponse, len(articles))
	for i := range articles {
		resp[i] = articleToResponse(articles[i])
	}
	return resp
}

func (h *Handler) listArticles(c *gin.Context) {
	skip, limit, err := pagination(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	articles, err := h.articles.GetArticles(c.Request.Context(), skip, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, articlesToResponse(articles))
}

type createArticleRequest struct {
	Author  string `json:"author" binding:"required"`
	Title   string `json:"title" binding:"required"`
	Content string `json:"content"`
}

func (h *Handler) createArticle(c *gin.Context) {
	var req createArticleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	article, err := h.articles.CreateArticle(c.Request.Context(), req.Author, req.Title, req.Content)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("user %q not found", req.Author)})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, articleToResponse(*article))
}

func (h *Handler) getArticle(c *gin.Context) {
	id, err := domain.ParseArticleID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid article id"})
		return
	}

	article, err := h.articles.GetArticleByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrArticleNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "article not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, articleToResponse(*article))
}

type updateArticleRequest struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
}

func (h *Handler) updateArticle(c *gin.Context) {
	id, err := domain.ParseArticleID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid article id"})
		return
	}

	var req updateArticleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	article, err := h.articles.UpdateArticle(c.Request.Context(), id, domain.ArticlePatch{
		Title:   req.Title,
		Content: req.Content,
	})
	if err != nil {
		if errors.Is(err, repository.ErrArticleNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "article not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, articleToResponse(*article))
}

func (h *Handler) deleteArticle(c *gin.Context) {
	id, err := domain.ParseArticleID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid article id"})
		return
	}

	deleteAttachments, err := strconv.ParseBool(c.DefaultQuery("delete_attachments", "false"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid flag delete_attachments"})
		return
	}

	if err := h.articles.DeleteArticle(c.Request.Context(), id); err != nil {
		if errors.Is(err, repository.ErrArticleNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "article not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var warnings []string
	if deleteAttachments && h.media != nil && h.bucket != "" {
		if err := h.media.DeletePrefix(c.Request.Context(), h.bucket, h.attachmentPrefix(id)); err != nil {
			warnings = append(warnings, fmt.Sprintf("delete attachments: %v", err))
		}
	}

	if len(warnings) > 0 {
		c.JSON(http.StatusOK, gin.H{"deleted": id.String(), "warnings": warnings})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) searchArticles(c *gin.Context) {
	skip, limit, err := pagination(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var query domain.ArticleQuery
	if title, ok := c.GetQuery("title_q"); ok {
		query.Title = &title
	}
	if author, ok := c.GetQuery("author"); ok {
		name := domain.UserName(author)
		query.Author = &name
	}

	articles, err := h.articles.SearchArticles(c.Request.Context(), skip, limit, query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, articlesToResponse(articles))
}

// --- attachments ---

type AttachmentResponse struct {
	Key          string  `json:"key"`
	Size         int64   `json:"size"`
	URL          string  `json:"url,omitempty"`
	LastModified *string `json:"last_modified,omitempty"`
}

func (h *Handler) attachmentPrefix(id domain.ArticleID) string {
	if h.keyPrefix == "" {
		return id.String()
	}
	return h.keyPrefix + "/" + id.String()
}

func (h *Handler) uploadAttachment(c *gin.Context) {
	if h.media == nil || h.bucket == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage service not configured"})
		return
	}

	id, err := domain.ParseArticleID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid article id"})
		return
	}
	if _, err := h.articles.GetArticleByID(c.Request.Context(), id); err != nil {
		if errors.Is(err, repository.ErrArticleNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "article not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer file.Close()

	key := h.attachmentPrefix(id) + "/" + fileHeader.Filename
	location, err := h.media.UploadObject(c.Request.Context(), h.bucket, key, file, fileHeader.Header.Get("Content-Type"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"location": location})
}

func (h *Handler) listAttachments(c *gin.Context) {
	if h.media == nil || h.bucket == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage service not configured"})
		return
	}

	id, err := domain.ParseArticleID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid article id"})
		return
	}

	objects, err := h.media.ListObjects(c.Request.Context(), h.bucket, h.attachmentPrefix(id))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]AttachmentResponse, len(objects))
	for i, obj := range objects {
		resp[i] = AttachmentResponse{
			Key:  obj.Key,
			Size: obj.Size,
		}
		if obj.LastModified != nil && !obj.LastModified.IsZero() {
			v := obj.LastModified.Format(time.RFC3339)
			resp[i].LastModified = &v
		}
		if url, err := h.media.GetObjectURL(c.Request.Context(), h.bucket, obj.Key, attachmentURLTTL); err == nil {
			resp[i].URL = url
		}
	}
	c.JSON(http.StatusOK, resp)
}

// --- users ---

// UserResponse never carries the password hash, and carries the email only
// when the user opted in with show_email.
type UserResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	DisplayName string  `json:"display_name"`
	Intro       string  `json:"intro"`
	Email       *string `json:"email,omitempty"`
	CreatedAt   string  `json:"created_at"`
}

func userToResponse(user domain.User) UserResponse {
	resp := UserResponse{
		ID:          user.ID.String(),
		Name:        user.Name.String(),
		DisplayName: user.DisplayName,
		Intro:       user.Intro,
		CreatedAt:   user.CreatedAt.Format(time.RFC3339),
	}
	if user.ShowEmail {
		resp.Email = &user.Email
	}
	return resp
}

func (h *Handler) listUsers(c *gin.Context) {
	skip, limit, err := pagination(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	users, err := h.users.GetUsers(c.Request.Context(), skip, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]UserResponse, len(users))
	for i := range users {
		resp[i] = userToResponse(users[i])
	}
	c.JSON(http.StatusOK, resp)
}

type createUserRequest struct {
	Name        string `json:"name" binding:"required"`
	DisplayName string `json:"display_name"`
	Intro       string `json:"intro"`
	Email       string `json:"email"`
	ShowEmail   bool   `json:"show_email"`
	Password    string `json:"password" binding:"required"`
}

func (h *Handler) createUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.CreateUser(c.Request.Context(), req.Name, req.DisplayName, req.Intro, req.Email, req.ShowEmail, req.Password)
	if err != nil {
		if errors.Is(err, repository.ErrUserAlreadyExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "user already exists"})
			return
		}
		if errors.Is(err, domain.ErrEmptyUserName) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, userToResponse(*user))
}

func (h *Handler) getUser(c *gin.Context) {
	user, err := h.users.GetUserByName(c.Request.Context(), c.Param("name"))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, userToResponse(*user))
}

type updateUserRequest struct {
	Name        *string `json:"name"`
	DisplayName *string `json:"display_name"`
	Intro       *string `json:"intro"`
	Email       *string `json:"email"`
	ShowEmail   *bool   `json:"show_email"`
	Password    *string `json:"password"`
}

func (h *Handler) updateUser(c *gin.Context) {
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.UpdateUser(c.Request.Context(), c.Param("name"), service.UserUpdate{
		Name:        req.Name,
		DisplayName: req.DisplayName,
		Intro:       req.Intro,
		Email:       req.Email,
		ShowEmail:   req.ShowEmail,
		Password:    req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		case errors.Is(err, repository.ErrUserAlreadyExists):
			c.JSON(http.StatusConflict, gin.H{"error": "user already exists"})
		case errors.Is(err, domain.ErrEmptyUserName):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, userToResponse(*user))
}

func (h *Handler) deleteUser(c *gin.Context) {
	if err := h.users.DeleteUser(c.Request.Context(), c.Param("name")); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

type validateUserNameRequest struct {
	Name string `json:"name" binding:"required"`
}

// validateUserName is a pre-flight check only; creation re-validates
// atomically, so a 200 here does not reserve the name.
func (h *Handler) validateUserName(c *gin.Context) {
	var req validateUserNameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	name, err := h.users.ValidateUserName(c.Request.Context(), req.Name)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrUserAlreadyExists):
			c.JSON(http.StatusConflict, gin.H{"error": "user already exists"})
		case errors.Is(err, domain.ErrEmptyUserName):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"name": name.String(), "available": true})
}
