package authz

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/sakif/poetry-share/internal/apperror"
	"github.com/sakif/poetry-share/internal/auth"
	"github.com/sakif/poetry-share/internal/model"
)

func caller(id string, role model.Role) auth.Identity {
	return auth.Identity{UserID: id, Email: id + "@example.com", Role: role}
}

func testPoem(authorID string, likes ...model.Like) *model.Poem {
	return &model.Poem{
		ID:        "poem-1",
		Title:     "Ode",
		Poem:      "words",
		AuthorID:  authorID,
		Likes:     likes,
		LikeCount: len(likes),
	}
}

// =========================================================================
// CAN MUTATE
// =========================================================================

func TestCanMutate(t *testing.T) {
	tests := []struct {
		name      string
		caller    auth.Identity
		action    Action
		wantAllow bool
	}{
		{"author can update", caller("author", model.RoleUser), ActionUpdate, true},
		{"author can delete", caller("author", model.RoleUser), ActionDelete, true},
		{"other user cannot update", caller("someone", model.RoleUser), ActionUpdate, false},
		{"other user cannot delete", caller("someone", model.RoleUser), ActionDelete, false},
		{"admin cannot update others", caller("mod", model.RoleAdmin), ActionUpdate, false},
		{"admin can delete others", caller("mod", model.RoleAdmin), ActionDelete, true},
		{"super-admin cannot update others", caller("root", model.RoleSuperAdmin), ActionUpdate, false},
		{"super-admin can delete others", caller("root", model.RoleSuperAdmin), ActionDelete, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CanMutate(tt.caller, testPoem("author"), tt.action)
			if tt.wantAllow && err != nil {
				t.Errorf("CanMutate() = %v, want allow", err)
			}
			if !tt.wantAllow {
				if err == nil {
					t.Fatal("CanMutate() allowed, want deny")
				}
				if !errors.Is(err, apperror.ErrForbidden) {
					t.Errorf("deny reason = %v, want ErrForbidden", err)
				}
			}
		})
	}
}

// =========================================================================
// TOGGLE LIKE
// =========================================================================

func TestToggleLike_SelfLikeAlwaysDenied(t *testing.T) {
	for _, role := range []model.Role{model.RoleUser, model.RoleAdmin, model.RoleSuperAdmin} {
		t.Run(string(role), func(t *testing.T) {
			_, err := ToggleLike(caller("author", role), testPoem("author"), time.Now())
			if !errors.Is(err, apperror.ErrForbidden) {
				t.Errorf("self-like error = %v, want ErrForbidden", err)
			}
		})
	}
}

func TestToggleLike_AddsWhenAbsent(t *testing.T) {
	now := time.Now()

	d, err := ToggleLike(caller("reader", model.RoleUser), testPoem("author"), now)
	if err != nil {
		t.Fatalf("ToggleLike() error = %v", err)
	}

	if d.Action != Liked {
		t.Errorf("Action = %q, want %q", d.Action, Liked)
	}
	if len(d.Likes) != 1 {
		t.Fatalf("len(Likes) = %d, want 1", len(d.Likes))
	}
	if d.Likes[0].UserID != "reader" || !d.Likes[0].LikedAt.Equal(now) {
		t.Errorf("Likes[0] = %+v, want reader at %v", d.Likes[0], now)
	}
}

func TestToggleLike_RemovesExactlyTheCaller(t *testing.T) {
	// "reader" must not drag out "reader2" — exact-match set difference,
	// not a prefix match.
	poem := testPoem("author",
		model.Like{UserID: "reader", LikedAt: time.Now()},
		model.Like{UserID: "reader2", LikedAt: time.Now()},
	)

	d, err := ToggleLike(caller("reader", model.RoleUser), poem, time.Now())
	if err != nil {
		t.Fatalf("ToggleLike() error = %v", err)
	}

	if d.Action != Unliked {
		t.Errorf("Action = %q, want %q", d.Action, Unliked)
	}
	if len(d.Likes) != 1 || d.Likes[0].UserID != "reader2" {
		t.Errorf("Likes = %+v, want only reader2", d.Likes)
	}
}

func TestToggleLike_RoundTrip(t *testing.T) {
	// like then unlike returns to the original set
	c := caller("reader", model.RoleUser)
	poem := testPoem("author")

	first, err := ToggleLike(c, poem, time.Now())
	if err != nil {
		t.Fatalf("first toggle error = %v", err)
	}
	poem.Likes = first.Likes

	second, err := ToggleLike(c, poem, time.Now())
	if err != nil {
		t.Fatalf("second toggle error = %v", err)
	}

	if second.Action != Unliked {
		t.Errorf("second Action = %q, want %q", second.Action, Unliked)
	}
	if len(second.Likes) != 0 {
		t.Errorf("after round trip len(Likes) = %d, want 0", len(second.Likes))
	}
}

// =========================================================================
// CONTENT VALIDATION
// =========================================================================

func TestRequiredText(t *testing.T) {
	tests := []struct {
		name   string
		value  string
		wantOK bool
	}{
		{"plain text", "The Raven", true},
		{"padded text", "  The Raven  ", true},
		{"empty", "", false},
		{"spaces only", "    ", false},
		{"tabs and newlines", "\t\n ", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := RequiredText("title", tt.value)
			if tt.wantOK && err != nil {
				t.Errorf("RequiredText(%q) = %v, want ok", tt.value, err)
			}
			if !tt.wantOK && !errors.Is(err, apperror.ErrValidation) {
				t.Errorf("RequiredText(%q) = %v, want ErrValidation", tt.value, err)
			}
		})
	}
}

func TestAuthorName(t *testing.T) {
	tests := []struct {
		name   string
		value  string
		wantOK bool
	}{
		{"simple", "Edgar", true},
		{"full name", "Edgar Allan Poe", true},
		{"hyphenated", "Mary-Jane Smith", true},
		{"apostrophe", "Flannery O'Connor", true},
		{"lowercase start", "edgar", false},
		{"digits", "Edgar2", false},
		{"empty", "", false},
		{"whitespace only", "   ", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := AuthorName(tt.value)
			if tt.wantOK && err != nil {
				t.Errorf("AuthorName(%q) = %v, want ok", tt.value, err)
			}
			if !tt.wantOK && !errors.Is(err, apperror.ErrValidation) {
				t.Errorf("AuthorName(%q) = %v, want ErrValidation", tt.value, err)
			}
		})
	}
}

// =========================================================================
// ORPHAN PRUNING
// =========================================================================

func TestPruneOrphans(t *testing.T) {
	poems := []model.Poem{
		{ID: "p1", AuthorID: "alive"},
		{ID: "p2", AuthorID: "gone"},
		{ID: "p3", AuthorID: "alive"},
		{ID: "p4", AuthorID: "gone-too"},
	}
	existing := map[string]bool{"alive": true}

	valid, orphans, err := PruneOrphans(poems, func(id string) (bool, error) {
		return existing[id], nil
	})
	if err != nil {
		t.Fatalf("PruneOrphans() error = %v", err)
	}

	// survivors keep their order
	if len(valid) != 2 || valid[0].ID != "p1" || valid[1].ID != "p3" {
		t.Errorf("valid = %+v, want [p1 p3]", valid)
	}
	if len(orphans) != 2 || orphans[0] != "p2" || orphans[1] != "p4" {
		t.Errorf("orphans = %v, want [p2 p4]", orphans)
	}
}

func TestPruneOrphans_PropagatesLookupErrors(t *testing.T) {
	poems := []model.Poem{{ID: "p1", AuthorID: "a"}}

	_, _, err := PruneOrphans(poems, func(id string) (bool, error) {
		return false, fmt.Errorf("store is down")
	})
	if err == nil {
		t.Fatal("PruneOrphans() should propagate existence-check errors")
	}
}

func TestPruneOrphans_EmptyInput(t *testing.T) {
	valid, orphans, err := PruneOrphans(nil, func(string) (bool, error) {
		t.Fatal("existence check should not run for empty input")
		return false, nil
	})
	if err != nil {
		t.Fatalf("PruneOrphans() error = %v", err)
	}
	if len(valid) != 0 || len(orphans) != 0 {
		t.Errorf("valid = %v, orphans = %v, want both empty", valid, orphans)
	}
}
