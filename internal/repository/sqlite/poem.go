package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/poetry-share/internal/apperror"
	"github.com/sakif/poetry-share/internal/model"
	"github.com/sakif/poetry-share/internal/repository"
)

// compile-time check that *DB implements repository.PoemRepository
var _ repository.PoemRepository = (*DB)(nil)

// Create inserts a new poem with a generated ID and timestamps.
func (db *DB) Create(ctx context.Context, poem *model.Poem) error {
	poem.ID = xid.New().String()

	now := time.Now()
	poem.CreatedAt = now
	poem.UpdatedAt = now
	if poem.Likes == nil {
		poem.Likes = []model.Like{}
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO poems (id, title, poem, author_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		poem.ID,
		poem.Title,
		poem.Poem,
		poem.AuthorID,
		poem.CreatedAt,
		poem.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating poem: %w", err)
	}

	return nil
}

// GetByID retrieves a single poem with its full like-set.
func (db *DB) GetByID(ctx context.Context, id string) (*model.Poem, error) {
	var p model.Poem

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, title, poem, author_id, created_at, updated_at
		 FROM poems WHERE id = ?`,
		id,
	).Scan(&p.ID, &p.Title, &p.Poem, &p.AuthorID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("poem", id)
		}
		return nil, fmt.Errorf("sqlite: getting poem %s: %w", id, err)
	}

	if err := db.attachLikes(ctx, []*model.Poem{&p}); err != nil {
		return nil, err
	}

	return &p, nil
}

// List returns all poems, newest first, with like-sets attached.
func (db *DB) List(ctx context.Context) ([]model.Poem, error) {
	return db.listPoems(ctx,
		`SELECT id, title, poem, author_id, created_at, updated_at
		 FROM poems ORDER BY created_at DESC`)
}

// ListByAuthor returns the poems written by the given account.
func (db *DB) ListByAuthor(ctx context.Context, authorID string) ([]model.Poem, error) {
	return db.listPoems(ctx,
		`SELECT id, title, poem, author_id, created_at, updated_at
		 FROM poems WHERE author_id = ? ORDER BY created_at DESC`,
		authorID)
}

// ListLikedBy returns the poems the given account has liked, most recent
// like first.
func (db *DB) ListLikedBy(ctx context.Context, userID string) ([]model.Poem, error) {
	return db.listPoems(ctx,
		`SELECT p.id, p.title, p.poem, p.author_id, p.created_at, p.updated_at
		 FROM poems p
		 JOIN poem_likes l ON l.poem_id = p.id
		 WHERE l.user_id = ?
		 ORDER BY l.liked_at DESC`,
		userID)
}

func (db *DB) listPoems(ctx context.Context, query string, args ...any) ([]model.Poem, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing poems: %w", err)
	}
	defer rows.Close()

	var poems []model.Poem
	for rows.Next() {
		var p model.Poem
		if err := rows.Scan(&p.ID, &p.Title, &p.Poem, &p.AuthorID,
			&p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning poem row: %w", err)
		}
		poems = append(poems, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating poems: %w", err)
	}

	ptrs := make([]*model.Poem, len(poems))
	for i := range poems {
		ptrs[i] = &poems[i]
	}
	if err := db.attachLikes(ctx, ptrs); err != nil {
		return nil, err
	}

	return poems, nil
}

// attachLikes loads the like records for the given poems and fills in
// Likes and LikeCount. One query per poem keeps the code simple; listing
// volume here is small enough that the N+1 shape hasn't hurt yet.
//
// TODO: batch this into a single IN query if poem listings grow.
func (db *DB) attachLikes(ctx context.Context, poems []*model.Poem) error {
	for _, p := range poems {
		rows, err := db.conn.QueryContext(ctx,
			`SELECT user_id, liked_at FROM poem_likes
			 WHERE poem_id = ? ORDER BY liked_at`,
			p.ID)
		if err != nil {
			return fmt.Errorf("sqlite: loading likes for poem %s: %w", p.ID, err)
		}

		likes := []model.Like{}
		for rows.Next() {
			var l model.Like
			if err := rows.Scan(&l.UserID, &l.LikedAt); err != nil {
				rows.Close()
				return fmt.Errorf("sqlite: scanning like row: %w", err)
			}
			likes = append(likes, l)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return fmt.Errorf("sqlite: iterating likes: %w", err)
		}
		rows.Close()

		p.Likes = likes
		p.LikeCount = len(likes)
	}
	return nil
}

// Update persists title and body edits. ID, author_id, and created_at are
// immutable; likes change only through AddLike/RemoveLike.
func (db *DB) Update(ctx context.Context, poem *model.Poem) error {
	poem.UpdatedAt = time.Now()

	result, err := db.conn.ExecContext(ctx,
		`UPDATE poems SET title = ?, poem = ?, updated_at = ? WHERE id = ?`,
		poem.Title,
		poem.Poem,
		poem.UpdatedAt,
		poem.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating poem %s: %w", poem.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("poem", poem.ID)
	}

	return nil
}

// Delete removes a poem and its like rows.
func (db *DB) Delete(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM poems WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting poem %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("poem", id)
	}

	if _, err := db.conn.ExecContext(ctx,
		`DELETE FROM poem_likes WHERE poem_id = ?`, id); err != nil {
		return fmt.Errorf("sqlite: removing likes of poem %s: %w", id, err)
	}

	return nil
}

// AddLike adds (poemID, userID) to the like-set. INSERT OR IGNORE makes it
// an idempotent single-statement set-add: a concurrent retry of the same
// like finds the primary key taken and changes nothing.
func (db *DB) AddLike(ctx context.Context, poemID, userID string) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT OR IGNORE INTO poem_likes (poem_id, user_id, liked_at)
		 VALUES (?, ?, ?)`,
		poemID, userID, time.Now())
	if err != nil {
		return fmt.Errorf("sqlite: liking poem %s: %w", poemID, err)
	}
	return nil
}

// RemoveLike removes exactly the matching (poemID, userID) pair — a keyed
// set-difference, never a prefix or partial match.
func (db *DB) RemoveLike(ctx context.Context, poemID, userID string) error {
	_, err := db.conn.ExecContext(ctx,
		`DELETE FROM poem_likes WHERE poem_id = ? AND user_id = ?`,
		poemID, userID)
	if err != nil {
		return fmt.Errorf("sqlite: unliking poem %s: %w", poemID, err)
	}
	return nil
}
