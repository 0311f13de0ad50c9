package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/poetry-share/internal/apperror"
	"github.com/sakif/poetry-share/internal/auth"
	"github.com/sakif/poetry-share/internal/authz"
	"github.com/sakif/poetry-share/internal/model"
	"github.com/sakif/poetry-share/internal/repository"
)

const MaxTitleLength = 200

// PoemService handles poem CRUD, the like toggle, and lazy orphan pruning.
// Mutations pass through the authz decision functions before any write.
type PoemService struct {
	poems  repository.PoemRepository
	users  repository.UserRepository
	logger *slog.Logger
}

func NewPoemService(
	poems repository.PoemRepository,
	users repository.UserRepository,
	logger *slog.Logger,
) *PoemService {
	return &PoemService{
		poems:  poems,
		users:  users,
		logger: logger,
	}
}

// Create validates and saves a new poem authored by the caller.
func (s *PoemService) Create(ctx context.Context, caller auth.Identity, title, body string) (*model.Poem, error) {
	if err := authz.RequiredText("title", title); err != nil {
		return nil, err
	}
	if err := authz.RequiredText("poem", body); err != nil {
		return nil, err
	}

	title = strings.TrimSpace(title)
	if len(title) > MaxTitleLength {
		return nil, apperror.ValidationFailed("title",
			fmt.Sprintf("title must be %d characters or less", MaxTitleLength))
	}

	poem := &model.Poem{
		Title:    title,
		Poem:     body,
		AuthorID: caller.UserID,
	}

	if err := s.poems.Create(ctx, poem); err != nil {
		s.logger.Error("failed to create poem",
			slog.String("authorID", caller.UserID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating poem: %w", err)
	}

	s.logger.Info("poem created",
		slog.String("id", poem.ID),
		slog.String("authorID", poem.AuthorID),
	)

	return poem, nil
}

// GetByID retrieves a single poem. A poem whose author has disappeared is
// purged here too, so a direct read can't resurrect an orphan a listing
// would hide.
func (s *PoemService) GetByID(ctx context.Context, id string) (*model.Poem, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "poem ID is required")
	}

	poem, err := s.poems.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	exists, err := s.users.UserExists(ctx, poem.AuthorID)
	if err != nil {
		return nil, fmt.Errorf("checking author of poem %s: %w", id, err)
	}
	if !exists {
		s.deleteOrphans(ctx, []string{poem.ID})
		return nil, apperror.NotFound("poem", id)
	}

	return poem, nil
}

// List returns all poems, pruning orphans as it goes.
func (s *PoemService) List(ctx context.Context) ([]model.Poem, error) {
	poems, err := s.poems.List(ctx)
	if err != nil {
		s.logger.Error("failed to list poems", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing poems: %w", err)
	}
	return s.prune(ctx, poems)
}

// ListByAuthor returns the given account's poems. If the account itself is
// gone the whole result set is orphaned, so this prunes too.
func (s *PoemService) ListByAuthor(ctx context.Context, authorID string) ([]model.Poem, error) {
	authorID = strings.TrimSpace(authorID)
	if authorID == "" {
		return nil, apperror.ValidationFailed("id", "author ID is required")
	}

	poems, err := s.poems.ListByAuthor(ctx, authorID)
	if err != nil {
		return nil, fmt.Errorf("listing poems by author %s: %w", authorID, err)
	}
	return s.prune(ctx, poems)
}

// ListLikedBy returns the poems the given account has liked.
func (s *PoemService) ListLikedBy(ctx context.Context, userID string) ([]model.Poem, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apperror.ValidationFailed("id", "user ID is required")
	}

	poems, err := s.poems.ListLikedBy(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing poems liked by %s: %w", userID, err)
	}
	return s.prune(ctx, poems)
}

// prune runs the orphan filter over a listing and deletes whatever it
// flags. Deletion failures are logged, not returned — the listing itself
// is still correct, and the orphan will be flagged again next read.
func (s *PoemService) prune(ctx context.Context, poems []model.Poem) ([]model.Poem, error) {
	valid, orphanIDs, err := authz.PruneOrphans(poems, func(id string) (bool, error) {
		return s.users.UserExists(ctx, id)
	})
	if err != nil {
		return nil, err
	}

	if len(orphanIDs) > 0 {
		s.deleteOrphans(ctx, orphanIDs)
	}

	if valid == nil {
		valid = []model.Poem{}
	}
	return valid, nil
}

func (s *PoemService) deleteOrphans(ctx context.Context, ids []string) {
	for _, id := range ids {
		if err := s.poems.Delete(ctx, id); err != nil {
			s.logger.Warn("failed to purge orphaned poem",
				slog.String("poemID", id),
				slog.String("error", err.Error()),
			)
			continue
		}
		s.logger.Info("purged orphaned poem", slog.String("poemID", id))
	}
}

// Update edits a poem's title and body. Fetch first so a missing poem is
// NotFound before ownership is evaluated; then only the author passes
// CanMutate for update.
func (s *PoemService) Update(ctx context.Context, caller auth.Identity, id, title, body string) (*model.Poem, error) {
	if err := authz.RequiredText("title", title); err != nil {
		return nil, err
	}
	if err := authz.RequiredText("poem", body); err != nil {
		return nil, err
	}

	poem, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := authz.CanMutate(caller, poem, authz.ActionUpdate); err != nil {
		return nil, err
	}

	poem.Title = strings.TrimSpace(title)
	poem.Poem = body

	if err := s.poems.Update(ctx, poem); err != nil {
		s.logger.Error("failed to update poem",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("updating poem: %w", err)
	}

	s.logger.Info("poem updated", slog.String("id", poem.ID))
	return poem, nil
}

// Delete removes a poem: the author, or an admin moderating content.
func (s *PoemService) Delete(ctx context.Context, caller auth.Identity, id string) error {
	poem, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := authz.CanMutate(caller, poem, authz.ActionDelete); err != nil {
		return err
	}

	if err := s.poems.Delete(ctx, poem.ID); err != nil {
		return err
	}

	s.logger.Info("poem deleted",
		slog.String("id", poem.ID),
		slog.String("deletedBy", caller.UserID),
	)
	return nil
}

// ToggleLike flips the caller's membership in the poem's like-set and
// returns the refreshed poem plus which way the toggle went.
//
// The decision is computed by authz.ToggleLike; the write is a single
// atomic set operation in the repository (INSERT OR IGNORE / keyed
// DELETE), so concurrent retries of the same request can't produce a
// duplicate entry.
func (s *PoemService) ToggleLike(ctx context.Context, caller auth.Identity, id string) (*model.Poem, authz.LikeAction, error) {
	poem, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, "", err
	}

	decision, err := authz.ToggleLike(caller, poem, time.Now())
	if err != nil {
		return nil, "", err
	}

	switch decision.Action {
	case authz.Liked:
		err = s.poems.AddLike(ctx, poem.ID, caller.UserID)
	case authz.Unliked:
		err = s.poems.RemoveLike(ctx, poem.ID, caller.UserID)
	}
	if err != nil {
		return nil, "", fmt.Errorf("toggling like on poem %s: %w", id, err)
	}

	updated, err := s.poems.GetByID(ctx, poem.ID)
	if err != nil {
		return nil, "", err
	}

	s.logger.Info("poem like toggled",
		slog.String("poemID", poem.ID),
		slog.String("userID", caller.UserID),
		slog.String("action", string(decision.Action)),
	)

	return updated, decision.Action, nil
}
