package model

import "time"

// Like records one account's like of a poem, with the moment it happened.
// A (poem, user) pair appears at most once — the database enforces it with
// a composite primary key, so retried like requests can't create duplicates.
type Like struct {
	UserID  string    `json:"userId"`
	LikedAt time.Time `json:"likedAt"`
}

// Poem is a user-authored text with a like-set.
//
// AuthorID references a User. There is no cascade on account deletion:
// a poem whose author has been removed is an orphan, and the poem service
// purges orphans lazily on every listing read.
//
// Likes carries the full metadata-bearing like records; LikeCount is
// derived from it (len(Likes)) and kept on the struct so list responses
// don't force clients to count.
type Poem struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Poem      string    `json:"poem"`
	AuthorID  string    `json:"authorId"`
	Likes     []Like    `json:"likes"`
	LikeCount int       `json:"likeCount"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// LikedBy reports whether the given account is in the poem's like-set.
func (p *Poem) LikedBy(userID string) bool {
	for _, l := range p.Likes {
		if l.UserID == userID {
			return true
		}
	}
	return false
}
