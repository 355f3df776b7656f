package models

import "time"

// Comment is a reply attached to a post.
type Comment struct {
	ID        uint      `json:"id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	Author    User      `json:"author"`
}

// OwnedBy reports whether the given user wrote the comment.
func (c Comment) OwnedBy(userID uint) bool {
	return userID != 0 && c.Author.ID == userID
}
