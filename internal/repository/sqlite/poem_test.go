package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/poetry-share/internal/apperror"
	"github.com/sakif/poetry-share/internal/model"
)

func seedPoem(t *testing.T, db *DB, title, authorID string) *model.Poem {
	t.Helper()
	p := &model.Poem{Title: title, Poem: "some verses", AuthorID: authorID}
	if err := db.Create(context.Background(), p); err != nil {
		t.Fatalf("Create(%s) error = %v", title, err)
	}
	return p
}

func TestPoemCreate(t *testing.T) {
	db := newTestDB(t)

	p := seedPoem(t, db, "The Raven", "author-1")

	if p.ID == "" {
		t.Error("Create() did not assign an ID")
	}
	if p.Likes == nil {
		t.Error("Create() left Likes nil, want empty slice")
	}
	if p.CreatedAt.IsZero() || p.UpdatedAt.IsZero() {
		t.Error("Create() did not stamp timestamps")
	}
}

func TestPoemGetByID(t *testing.T) {
	db := newTestDB(t)
	created := seedPoem(t, db, "The Raven", "author-1")

	got, err := db.GetByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Title != "The Raven" || got.AuthorID != "author-1" {
		t.Errorf("GetByID() = %+v, want seeded poem", got)
	}
	if got.Likes == nil || got.LikeCount != 0 {
		t.Errorf("fresh poem Likes = %v, LikeCount = %d, want empty and 0", got.Likes, got.LikeCount)
	}
}

func TestPoemGetByID_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetByID(context.Background(), "missing")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByID(missing) = %v, want ErrNotFound", err)
	}
}

func TestPoemList(t *testing.T) {
	db := newTestDB(t)
	seedPoem(t, db, "First", "author-1")
	seedPoem(t, db, "Second", "author-2")

	poems, err := db.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(poems) != 2 {
		t.Errorf("List() returned %d poems, want 2", len(poems))
	}
}

func TestPoemListByAuthor(t *testing.T) {
	db := newTestDB(t)
	seedPoem(t, db, "Mine", "author-1")
	seedPoem(t, db, "Also mine", "author-1")
	seedPoem(t, db, "Someone else's", "author-2")

	poems, err := db.ListByAuthor(context.Background(), "author-1")
	if err != nil {
		t.Fatalf("ListByAuthor() error = %v", err)
	}
	if len(poems) != 2 {
		t.Fatalf("ListByAuthor() returned %d poems, want 2", len(poems))
	}
	for _, p := range poems {
		if p.AuthorID != "author-1" {
			t.Errorf("ListByAuthor() returned poem by %q", p.AuthorID)
		}
	}
}

func TestPoemUpdate(t *testing.T) {
	db := newTestDB(t)
	p := seedPoem(t, db, "Draft", "author-1")

	p.Title = "Final"
	p.Poem = "revised verses"
	if err := db.Update(context.Background(), p); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, err := db.GetByID(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Title != "Final" || got.Poem != "revised verses" {
		t.Errorf("after update got %+v", got)
	}
}

func TestPoemUpdate_NotFound(t *testing.T) {
	db := newTestDB(t)

	err := db.Update(context.Background(), &model.Poem{ID: "missing"})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Update(missing) = %v, want ErrNotFound", err)
	}
}

func TestPoemDelete_RemovesLikeRows(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	p := seedPoem(t, db, "Doomed", "author-1")
	if err := db.AddLike(ctx, p.ID, "reader-1"); err != nil {
		t.Fatalf("AddLike() error = %v", err)
	}

	if err := db.Delete(ctx, p.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if _, err := db.GetByID(ctx, p.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByID() after delete = %v, want ErrNotFound", err)
	}

	// the like rows went with the poem, so the reader's liked list is empty
	liked, err := db.ListLikedBy(ctx, "reader-1")
	if err != nil {
		t.Fatalf("ListLikedBy() error = %v", err)
	}
	if len(liked) != 0 {
		t.Errorf("ListLikedBy() after poem deletion = %d poems, want 0", len(liked))
	}
}

func TestPoemDelete_NotFound(t *testing.T) {
	db := newTestDB(t)

	err := db.Delete(context.Background(), "missing")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Delete(missing) = %v, want ErrNotFound", err)
	}
}

func TestAddLike_Idempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	p := seedPoem(t, db, "Popular", "author-1")

	// the same pair twice must end with exactly one like
	if err := db.AddLike(ctx, p.ID, "reader-1"); err != nil {
		t.Fatalf("AddLike() error = %v", err)
	}
	if err := db.AddLike(ctx, p.ID, "reader-1"); err != nil {
		t.Fatalf("AddLike() retry error = %v", err)
	}

	got, err := db.GetByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.LikeCount != 1 {
		t.Errorf("LikeCount after duplicate AddLike = %d, want 1", got.LikeCount)
	}
}

func TestRemoveLike_ExactPairOnly(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	p := seedPoem(t, db, "Shared", "author-1")
	other := seedPoem(t, db, "Other", "author-1")

	if err := db.AddLike(ctx, p.ID, "reader-1"); err != nil {
		t.Fatalf("AddLike() error = %v", err)
	}
	if err := db.AddLike(ctx, p.ID, "reader-2"); err != nil {
		t.Fatalf("AddLike() error = %v", err)
	}
	if err := db.AddLike(ctx, other.ID, "reader-1"); err != nil {
		t.Fatalf("AddLike() error = %v", err)
	}

	if err := db.RemoveLike(ctx, p.ID, "reader-1"); err != nil {
		t.Fatalf("RemoveLike() error = %v", err)
	}

	got, err := db.GetByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.LikeCount != 1 || got.Likes[0].UserID != "reader-2" {
		t.Errorf("after RemoveLike got likes %+v, want only reader-2", got.Likes)
	}

	// reader-1's like on the other poem is untouched
	otherGot, err := db.GetByID(ctx, other.ID)
	if err != nil {
		t.Fatalf("GetByID(other) error = %v", err)
	}
	if otherGot.LikeCount != 1 {
		t.Errorf("other poem LikeCount = %d, want 1", otherGot.LikeCount)
	}
}

func TestRemoveLike_AbsentPairIsNoop(t *testing.T) {
	db := newTestDB(t)
	p := seedPoem(t, db, "Unliked", "author-1")

	if err := db.RemoveLike(context.Background(), p.ID, "nobody"); err != nil {
		t.Errorf("RemoveLike() of absent pair = %v, want nil", err)
	}
}

func TestListLikedBy(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	first := seedPoem(t, db, "First", "author-1")
	second := seedPoem(t, db, "Second", "author-2")
	seedPoem(t, db, "Never liked", "author-3")

	if err := db.AddLike(ctx, first.ID, "reader-1"); err != nil {
		t.Fatalf("AddLike() error = %v", err)
	}
	if err := db.AddLike(ctx, second.ID, "reader-1"); err != nil {
		t.Fatalf("AddLike() error = %v", err)
	}

	liked, err := db.ListLikedBy(ctx, "reader-1")
	if err != nil {
		t.Fatalf("ListLikedBy() error = %v", err)
	}
	if len(liked) != 2 {
		t.Fatalf("ListLikedBy() returned %d poems, want 2", len(liked))
	}

	liked, err = db.ListLikedBy(ctx, "reader-without-likes")
	if err != nil {
		t.Fatalf("ListLikedBy(no likes) error = %v", err)
	}
	if len(liked) != 0 {
		t.Errorf("ListLikedBy(no likes) returned %d poems, want 0", len(liked))
	}
}

func TestAttachLikes_CountsMatchSets(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	p := seedPoem(t, db, "Counted", "author-1")
	for _, reader := range []string{"r1", "r2", "r3"} {
		if err := db.AddLike(ctx, p.ID, reader); err != nil {
			t.Fatalf("AddLike(%s) error = %v", reader, err)
		}
	}

	poems, err := db.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	for _, got := range poems {
		if got.LikeCount != len(got.Likes) {
			t.Errorf("poem %s LikeCount = %d but len(Likes) = %d", got.ID, got.LikeCount, len(got.Likes))
		}
	}
	if poems[0].LikeCount != 3 {
		t.Errorf("LikeCount = %d, want 3", poems[0].LikeCount)
	}
}
