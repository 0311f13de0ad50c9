// Package authz is the poem authorization engine: pure decision functions
// that answer "may this caller do this to this poem, and what changes if
// they may". Handlers and services feed it a verified identity and a poem;
// it never touches HTTP or the database, which keeps every rule testable
// with plain function calls.
package authz

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/sakif/poetry-share/internal/apperror"
	"github.com/sakif/poetry-share/internal/auth"
	"github.com/sakif/poetry-share/internal/model"
)

// Action is a mutating operation on a poem.
type Action string

const (
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// CanMutate decides whether the caller may update or delete the poem.
//
// Rules:
//   - update: the caller must be the poem's author. Nobody else — not even
//     a super-admin — edits someone else's words.
//   - delete: the author, or any caller with rank >= admin (moderation).
//
// The caller is assumed to hold a verified identity and the poem is assumed
// to exist; the service layer fetches the poem first, so a missing poem
// surfaces as NotFound before ownership is ever evaluated.
func CanMutate(caller auth.Identity, poem *model.Poem, action Action) error {
	if caller.UserID == poem.AuthorID {
		return nil
	}

	if action == ActionDelete && caller.Role.AtLeast(model.RoleAdmin) {
		return nil
	}

	return apperror.Forbidden("the author does not match the person logged in")
}

// LikeAction says which way a like toggle went.
type LikeAction string

const (
	Liked   LikeAction = "liked"
	Unliked LikeAction = "unliked"
)

// LikeDecision is the computed result of a like toggle: the action taken
// and the like-set the poem should end up with.
type LikeDecision struct {
	Action LikeAction
	Likes  []model.Like
}

// ToggleLike computes the like-set mutation for the caller against the poem.
//
// An author can never like their own poem, regardless of role. Otherwise
// the toggle flips membership: present → removed (exactly the matching
// entry, an exact-ID set difference), absent → added with the given
// timestamp. The repository applies the add as an idempotent set insert,
// so a retried "liked" decision cannot grow the set twice.
func ToggleLike(caller auth.Identity, poem *model.Poem, now time.Time) (LikeDecision, error) {
	if caller.UserID == poem.AuthorID {
		return LikeDecision{}, apperror.Forbidden("the author can't like their own poem")
	}

	if poem.LikedBy(caller.UserID) {
		kept := make([]model.Like, 0, len(poem.Likes)-1)
		for _, l := range poem.Likes {
			if l.UserID != caller.UserID {
				kept = append(kept, l)
			}
		}
		return LikeDecision{Action: Unliked, Likes: kept}, nil
	}

	added := make([]model.Like, 0, len(poem.Likes)+1)
	added = append(added, poem.Likes...)
	added = append(added, model.Like{UserID: caller.UserID, LikedAt: now})
	return LikeDecision{Action: Liked, Likes: added}, nil
}

// authorNamePattern matches a human name supplied as free text: an
// uppercase letter followed by letters, hyphens, apostrophes, or spaces.
var authorNamePattern = regexp.MustCompile(`^[A-Z][a-zA-Z' -]*$`)

// RequiredText validates that a required text field is non-empty after
// trimming; a field of nothing but whitespace counts as missing.
func RequiredText(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return apperror.ValidationFailed(field, fmt.Sprintf("the %s field is required", field))
	}
	return nil
}

// AuthorName validates a free-text author display name. Only used by the
// legacy submission path where a poem carries a name instead of an account
// reference.
func AuthorName(name string) error {
	if err := RequiredText("author", name); err != nil {
		return err
	}
	if !authorNamePattern.MatchString(strings.TrimSpace(name)) {
		return apperror.ValidationFailed("author", "the author name is not a valid name")
	}
	return nil
}

// PruneOrphans filters out poems whose author account no longer exists.
// It returns the surviving poems in their original order, plus the IDs of
// the orphans so the caller can delete them from storage.
//
// This is the lazy garbage-collection pass run on every listing read —
// O(n) existence checks per call. Deleting the orphans afterwards is
// best-effort: the predicate (author missing) is idempotent, so anything
// missed is caught on the next read.
func PruneOrphans(poems []model.Poem, accountExists func(id string) (bool, error)) (valid []model.Poem, orphanIDs []string, err error) {
	valid = make([]model.Poem, 0, len(poems))
	for _, p := range poems {
		exists, err := accountExists(p.AuthorID)
		if err != nil {
			return nil, nil, fmt.Errorf("authz: checking author %s: %w", p.AuthorID, err)
		}
		if exists {
			valid = append(valid, p)
		} else {
			orphanIDs = append(orphanIDs, p.ID)
		}
	}
	return valid, orphanIDs, nil
}
