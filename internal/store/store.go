package store

import "time"

// MessageFilter controls searching and pagination for message listings.
type MessageFilter struct {
	// Query matches subject and author.
	Query  string
	Limit  int
	Offset int
}

// MessageSummary is one row of a message listing.
type MessageSummary struct {
	ID         string    `db:"id"`
	Subject    string    `db:"subject"`
	Author     string    `db:"author"`
	Date       time.Time `db:"date"`
	Size       int64     `db:"size"`
	ImportedAt time.Time `db:"imported_at"`
}
