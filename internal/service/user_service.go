package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"blog-server/internal/domain"
	"blog-server/internal/repository"
)

// UserUpdate is the service-level patch: like domain.UserPatch but carrying
// a plaintext password that is hashed here before it reaches storage.
type UserUpdate struct {
	Name        *string
	DisplayName *string
	Intro       *string
	Email       *string
	ShowEmail   *bool
	Password    *string
}

// UserService describes user lifecycle operations. Users are addressed by
// name at this level; resolution to ids happens internally.
type UserService interface {
	GetUsers(ctx context.Context, skip, limit int) ([]domain.User, error)
	GetUserByName(ctx context.Context, name string) (*domain.User, error)
	CreateUser(ctx context.Context, name, displayName, intro, email string, showEmail bool, password string) (*domain.User, error)
	UpdateUser(ctx context.Context, name string, update UserUpdate) (*domain.User, error)
	DeleteUser(ctx context.Context, name string) error
	ValidateUserName(ctx context.Context, name string) (domain.UserName, error)
}

type userService struct {
	users repository.UserRepository
}

func NewUserService(users repository.UserRepository) UserService {
	return &userService{users: users}
}

func (s *userService) GetUsers(ctx context.Context, skip, limit int) ([]domain.User, error) {
	return s.users.List(ctx, skip, limit)
}

func (s *userService) GetUserByName(ctx context.Context, name string) (*domain.User, error) {
	return s.users.GetByName(ctx, domain.UserName(name))
}

func (s *userService) CreateUser(ctx context.Context, name, displayName, intro, email string, showEmail bool, password string) (*domain.User, error) {
	userName, err := domain.NewUserName(strings.TrimSpace(name))
	if err != nil {
		return nil, err
	}

	password = strings.TrimSpace(password)
	if password == "" {
		return nil, errors.New("password is required")
	}
	if len(password) < 8 {
		return nil, errors.New("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	// The repository performs the uniqueness check atomically with the
	// insert; checking here first would just open a race window.
	return s.users.Create(ctx, userName, displayName, intro, email, showEmail, hash)
}

func (s *userService) UpdateUser(ctx context.Context, name string, update UserUpdate) (*domain.User, error) {
	user, err := s.users.GetByName(ctx, domain.UserName(name))
	if err != nil {
		return nil, err
	}

	patch := domain.UserPatch{
		DisplayName: update.DisplayName,
		Intro:       update.Intro,
		Email:       update.Email,
		ShowEmail:   update.ShowEmail,
	}

	if update.Name != nil {
		newName, err := domain.NewUserName(strings.TrimSpace(*update.Name))
		if err != nil {
			return nil, err
		}
		patch.Name = &newName
	}

	if update.Password != nil {
		password := strings.TrimSpace(*update.Password)
		if len(password) < 8 {
			return nil, errors.New("password must be at least 8 characters")
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		patch.PwHash = hash
	}

	return s.users.Update(ctx, user.ID, patch)
}

func (s *userService) DeleteUser(ctx context.Context, name string) error {
	user, err := s.users.GetByName(ctx, domain.UserName(name))
	if err != nil {
		return err
	}
	return s.users.Delete(ctx, user.ID)
}

func (s *userService) ValidateUserName(ctx context.Context, name string) (domain.UserName, error) {
	return s.users.ValidateName(ctx, name)
}
