package model

// MailTag is a label in the mail host's tag catalogue.
type MailTag struct {
	// Key is the host's stable identifier, e.g. an IMAP keyword.
	Key string `json:"key" db:"key"`

	// Label is the human-readable name.
	Label string `json:"label" db:"label"`

	// Color is a CSS hex colour such as "#17a2b8". Hosts without colour
	// support leave it empty.
	Color string `json:"color" db:"color"`
}
