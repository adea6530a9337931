package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"blog-server/internal/config"
	apphttp "blog-server/internal/http"
	"blog-server/internal/repository"
	"blog-server/internal/repository/memory"
	"blog-server/internal/repository/sqlite"
	"blog-server/internal/service"
	"blog-server/internal/storage"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	articleRepo, userRepo, closeRepos, err := buildRepositories(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("setup storage backend: %v", err)
	}
	defer closeRepos()

	articleService := service.NewArticleService(articleRepo, userRepo)
	userService := service.NewUserService(userRepo)

	var mediaSvc storage.Service
	if cfg.Media.Bucket != "" {
		mediaSvc, err = buildMediaStorage(ctx, cfg, logger)
		if err != nil {
			logger.Fatalf("setup media storage: %v", err)
		}
	} else {
		logger.Info("media bucket not configured; attachment endpoints disabled")
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	handler := apphttp.NewHandler(
		articleService,
		userService,
		mediaSvc,
		cfg.Media.Bucket,
		cfg.Media.KeyPrefix,
	)
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	go func() {
		logger.Infof("listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}

	logger.Info("bye")
}

func buildRepositories(ctx context.Context, cfg config.Config, logger *logrus.Logger) (repository.ArticleRepository, repository.UserRepository, func(), error) {
	switch cfg.Storage.Backend {
	case config.StorageBackendMemory:
		logger.Info("using in-memory storage backend")
		return memory.NewArticleRepository(), memory.NewUserRepository(), func() {}, nil

	case config.StorageBackendSQLite:
		db, err := sqlite.Open(cfg.Database.Path)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open database: %w", err)
		}

		articleRepo := sqlite.NewArticleRepository(db)
		userRepo := sqlite.NewUserRepository(db)
		if err := articleRepo.Init(ctx); err != nil {
			db.Close()
			return nil, nil, nil, fmt.Errorf("init article repository: %w", err)
		}
		if err := userRepo.Init(ctx); err != nil {
			db.Close()
			return nil, nil, nil, fmt.Errorf("init user repository: %w", err)
		}

		logger.Infof("using sqlite storage backend at %s", cfg.Database.Path)
		return articleRepo, userRepo, func() { db.Close() }, nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

func buildMediaStorage(ctx context.Context, cfg config.Config, logger *logrus.Logger) (storage.Service, error) {
	loadOpts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(cfg.Media.Region),
	}
	if cfg.AWS.Profile != "" {
		loadOpts = append(loadOpts, awscfg.WithSharedConfigProfile(cfg.AWS.Profile))
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Media.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Media.Endpoint)
			o.UsePathStyle = true
		}
	})
	logger.Infof("using s3 bucket %s (region %s) for attachments", cfg.Media.Bucket, cfg.Media.Region)
	return storage.NewS3Service(client), nil
}
