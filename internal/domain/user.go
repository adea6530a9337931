package domain

import (
	"bytes"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrEmptyUserName is returned when a user name fails validation.
var ErrEmptyUserName = errors.New("user name must not be empty")

// UserID identifies a stored user. Same UUIDv7 scheme as ArticleID.
type UserID uuid.UUID

// NewUserID allocates a fresh time-ordered identifier.
func NewUserID() UserID {
	return UserID(uuid.Must(uuid.NewV7()))
}

// ParseUserID parses the canonical string form produced by String.
func ParseUserID(s string) (UserID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return UserID{}, err
	}
	return UserID(id), nil
}

func (id UserID) String() string {
	return uuid.UUID(id).String()
}

// Compare orders two identifiers byte-wise.
func (id UserID) Compare(other UserID) int {
	return bytes.Compare(id[:], other[:])
}

// UserName is the unique handle a user is addressed by, distinct from the
// display name shown on their profile. The type only guarantees
// non-emptiness; uniqueness across users is enforced by the repositories.
type UserName string

// NewUserName validates and wraps a raw name.
func NewUserName(s string) (UserName, error) {
	if strings.TrimSpace(s) == "" {
		return "", ErrEmptyUserName
	}
	return UserName(s), nil
}

func (n UserName) String() string {
	return string(n)
}

// User is an account on the platform. PwHash holds the bcrypt digest of the
// password; the plaintext never reaches the domain layer. Email is shown to
// other users only when ShowEmail is set, which is the HTTP layer's job to
// honor.
type User struct {
	ID          UserID
	Name        UserName
	DisplayName string
	Intro       string
	Email       string
	ShowEmail   bool
	PwHash      []byte
	CreatedAt   time.Time
}

// UserPatch describes a partial update. Nil fields are left unchanged. A
// non-nil Name triggers a rename, which re-runs the uniqueness check.
type UserPatch struct {
	Name        *UserName
	DisplayName *string
	Intro       *string
	Email       *string
	ShowEmail   *bool
	PwHash      []byte // nil means unchanged
}
