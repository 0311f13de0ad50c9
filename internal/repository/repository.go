// Package repository declares the persistence interfaces the service layer
// programs against. The sqlite subpackage provides the production
// implementation; tests substitute in-memory mocks.
package repository

import (
	"context"

	"github.com/sakif/poetry-share/internal/model"
)

// UserRepository method names carry the User prefix because the sqlite
// implementation shares one receiver with PoemRepository.
type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByGitHubID(ctx context.Context, githubID int64) (*model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	UpdateUser(ctx context.Context, user *model.User) error
	DeleteUser(ctx context.Context, id string) error
	UserExists(ctx context.Context, id string) (bool, error)
}

type PoemRepository interface {
	Create(ctx context.Context, poem *model.Poem) error
	GetByID(ctx context.Context, id string) (*model.Poem, error)
	List(ctx context.Context) ([]model.Poem, error)
	ListByAuthor(ctx context.Context, authorID string) ([]model.Poem, error)
	ListLikedBy(ctx context.Context, userID string) ([]model.Poem, error)
	Update(ctx context.Context, poem *model.Poem) error
	Delete(ctx context.Context, id string) error

	// AddLike and RemoveLike are the atomic set operations behind the like
	// toggle. AddLike is idempotent (adding a present pair is a no-op);
	// RemoveLike deletes exactly the matching (poem, user) pair.
	AddLike(ctx context.Context, poemID, userID string) error
	RemoveLike(ctx context.Context, poemID, userID string) error
}
