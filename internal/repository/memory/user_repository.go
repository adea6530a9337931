package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"blog-server/internal/domain"
	"blog-server/internal/repository"
)

// UserRepository keeps all users in a map guarded by a single reader-writer
// lock, plus the invariant that no two live users share a name. The
// uniqueness check and the mutation it protects always run under the same
// exclusive acquisition; checking, releasing and re-acquiring would let two
// concurrent creates claim the same name.
type UserRepository struct {
	mu    sync.RWMutex
	users map[domain.UserID]domain.User
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		users: make(map[domain.UserID]domain.User),
	}
}

func (r *UserRepository) List(ctx context.Context, skip, limit int) ([]domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]domain.User, 0, len(r.users))
	for _, user := range r.users {
		users = append(users, cloneUser(user))
	}
	// Ids are time-ordered, so this is creation order.
	sort.Slice(users, func(i, j int) bool {
		return users[i].ID.Compare(users[j].ID) < 0
	})

	if skip < 0 {
		skip = 0
	}
	if limit <= 0 || skip >= len(users) {
		return []domain.User{}, nil
	}
	end := skip + limit
	if end > len(users) {
		end = len(users)
	}
	return users[skip:end], nil
}

func (r *UserRepository) Get(ctx context.Context, id domain.UserID) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	copied := cloneUser(user)
	return &copied, nil
}

func (r *UserRepository) GetByName(ctx context.Context, name domain.UserName) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.users {
		if user.Name == name {
			copied := cloneUser(user)
			return &copied, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (r *UserRepository) Create(ctx context.Context, name domain.UserName, displayName, intro, email string, showEmail bool, pwHash []byte) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.nameTaken(name, nil) {
		return nil, repository.ErrUserAlreadyExists
	}

	user := domain.User{
		ID:          domain.NewUserID(),
		Name:        name,
		DisplayName: displayName,
		Intro:       intro,
		Email:       email,
		ShowEmail:   showEmail,
		PwHash:      append([]byte(nil), pwHash...),
		CreatedAt:   time.Now().UTC(),
	}
	r.users[user.ID] = user

	copied := cloneUser(user)
	return &copied, nil
}

func (r *UserRepository) Update(ctx context.Context, id domain.UserID, patch domain.UserPatch) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}

	if patch.Name != nil && r.nameTaken(*patch.Name, &id) {
		return nil, repository.ErrUserAlreadyExists
	}

	if patch.Name != nil {
		user.Name = *patch.Name
	}
	if patch.DisplayName != nil {
		user.DisplayName = *patch.DisplayName
	}
	if patch.Intro != nil {
		user.Intro = *patch.Intro
	}
	if patch.Email != nil {
		user.Email = *patch.Email
	}
	if patch.ShowEmail != nil {
		user.ShowEmail = *patch.ShowEmail
	}
	if patch.PwHash != nil {
		user.PwHash = append([]byte(nil), patch.PwHash...)
	}

	r.users[id] = user
	copied := cloneUser(user)
	return &copied, nil
}

func (r *UserRepository) Delete(ctx context.Context, id domain.UserID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return repository.ErrUserNotFound
	}
	delete(r.users, id)
	return nil
}

// ValidateName reports whether the name is currently free. Advisory only:
// the mutating operations re-check under their own lock.
func (r *UserRepository) ValidateName(ctx context.Context, name string) (domain.UserName, error) {
	userName, err := domain.NewUserName(name)
	if err != nil {
		return "", err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.nameTaken(userName, nil) {
		return "", repository.ErrUserAlreadyExists
	}
	return userName, nil
}

// nameTaken reports whether a user other than exclude holds the name.
// Callers must hold the lock.
func (r *UserRepository) nameTaken(name domain.UserName, exclude *domain.UserID) bool {
	for id, user := range r.users {
		if exclude != nil && id == *exclude {
			continue
		}
		if user.Name == name {
			return true
		}
	}
	return false
}

func cloneUser(user domain.User) domain.User {
	user.PwHash = append([]byte(nil), user.PwHash...)
	return user
}

var _ repository.UserRepository = (*UserRepository)(nil)
