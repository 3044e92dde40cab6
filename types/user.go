package types

import (
	"encoding/json"
	"time"
)

// TimestampLayout is the ISO-8601 layout used for every persisted timestamp.
// Times are always formatted in UTC with millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// FormatTimestamp renders t using TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// Document is the single JSON document that holds every user.
type Document struct {
	// Users is the full user collection. It is never nil after a load.
	Users []User `json:"users"`

	// Extra holds top-level members other than users. They are written
	// back unchanged.
	Extra map[string]json.RawMessage `json:"-"`
}

type documentFields Document

// MarshalJSON writes users followed by any extra members.
func (d Document) MarshalJSON() ([]byte, error) {
	return encodeObject(documentFields(d), d.Extra)
}

// NewDocument returns an empty document.
func NewDocument() Document {
	return Document{Users: []User{}}
}

// FindUser returns the index of the user with the given ID, or -1.
func (d *Document) FindUser(userID string) int {
	for i := range d.Users {
		if !d.Users[i].Malformed() && d.Users[i].UserID == userID {
			return i
		}
	}
	return -1
}

// User represents a registered user and their code run history.
type User struct {
	// UserID is the caller-supplied unique key of the user.
	// It never changes after the record is created.
	UserID string `json:"userID"`

	// Email is the user's email address. It may be empty.
	Email string `json:"email"`

	// CreatedAt is the ISO-8601 timestamp of the first registration
	// or the first code run, whichever happened first.
	CreatedAt string `json:"createdAt"`

	// UpdatedAt is the ISO-8601 timestamp of the most recent change.
	UpdatedAt string `json:"updatedAt"`

	// CodeRuns holds the user's submissions in insertion order,
	// oldest first.
	CodeRuns []CodeRun `json:"codeRuns"`

	// Extra holds members this type has no field for.
	Extra map[string]json.RawMessage `json:"-"`

	// raw is set when the stored entry could not be decoded as a user.
	raw json.RawMessage
}

type userFields User

var userKeys = []string{"userID", "email", "createdAt", "updatedAt", "codeRuns"}

// UnmarshalJSON never fails. An entry that does not decode as a user is
// kept verbatim and reported by Malformed.
func (u *User) UnmarshalJSON(data []byte) error {
	var fields userFields
	extra, err := decodeObject(data, &fields, userKeys...)
	if err != nil {
		*u = User{raw: append(json.RawMessage(nil), data...)}
		return nil
	}
	*u = User(fields)
	u.Extra = extra
	return nil
}

// MarshalJSON writes malformed entries back exactly as they were read.
func (u User) MarshalJSON() ([]byte, error) {
	if u.raw != nil {
		return u.raw, nil
	}
	return encodeObject(userFields(u), u.Extra)
}

// Malformed reports whether the entry was stored in a shape that is not a
// user. Such entries never match a lookup.
func (u User) Malformed() bool {
	return u.raw != nil
}
