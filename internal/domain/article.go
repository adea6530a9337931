package domain

import (
	"bytes"
	"time"

	"github.com/google/uuid"
)

// ArticleID identifies a stored article. IDs are UUIDv7, so sorting them
// byte-wise follows creation order.
type ArticleID uuid.UUID

// NewArticleID allocates a fresh time-ordered identifier.
func NewArticleID() ArticleID {
	return ArticleID(uuid.Must(uuid.NewV7()))
}

// ParseArticleID parses the canonical string form produced by String.
func ParseArticleID(s string) (ArticleID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return ArticleID{}, err
	}
	return ArticleID(id), nil
}

func (id ArticleID) String() string {
	return uuid.UUID(id).String()
}

// Compare orders two identifiers byte-wise; used to break ordering ties.
func (id ArticleID) Compare(other ArticleID) int {
	return bytes.Compare(id[:], other[:])
}

// Article is a blog entry. Author is a snapshot of the writer's user name
// at creation time, not a live reference; deleting the user leaves the
// article in place.
type Article struct {
	ID        ArticleID
	Author    UserName
	Title     string
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ArticleQuery filters article listings. A nil field matches everything on
// that dimension; both filters are combined with AND.
type ArticleQuery struct {
	Title  *string   // case-sensitive substring match on the title
	Author *UserName // exact match on the author name
}

// ArticlePatch describes a partial update. Nil fields are left unchanged;
// a non-nil field overwrites, even with an empty value.
type ArticlePatch struct {
	Title   *string
	Content *string
}
