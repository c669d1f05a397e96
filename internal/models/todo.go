package models

import (
	"time"
)

type Todo struct {
	ID       int64
	Title    string
	Body     string
	Created  time.Time
	AuthorID int64
}

// Todo is owned by the user if it was authored by them
func (t Todo) OwnedBy(userID int64) bool {
	return t.AuthorID == userID
}
