// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents an account, however it was created.
//
// PasswordHash and ExternalID are both optional in storage (nullable
// columns). As with the other optional strings in this package, the empty
// string is the zero value meaning "absent" rather than a *string.
//
// WHY NOT A USER TYPE COLUMN?
// Whether an account is a password account, a Google account, or both is
// fully determined by which of the two fields is set. Kind() derives it, so
// the two can never disagree.
type User struct {
	ID           string      `json:"id"`
	Email        string      `json:"email"`
	PasswordHash string      `json:"-"` // bcrypt digest, never serialized
	ExternalID   string      `json:"external_id,omitempty"`
	Preferences  Preferences `json:"preferences"`
	SavedPlaces  []any       `json:"saved_places"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// AccountKind tells how a user can sign in.
type AccountKind int

const (
	// AccountIncomplete has neither a password nor an external identity.
	// The schema allows it; no endpoint produces it.
	AccountIncomplete AccountKind = iota
	// AccountPassword signs in with email and password only.
	AccountPassword
	// AccountExternal signs in through the identity provider only.
	AccountExternal
	// AccountLinked has both: a password account later linked to the
	// identity provider by a handshake with a matching email.
	AccountLinked
)

func (k AccountKind) String() string {
	switch k {
	case AccountPassword:
		return "password"
	case AccountExternal:
		return "external"
	case AccountLinked:
		return "linked"
	default:
		return "incomplete"
	}
}

// Kind derives the account kind from the optional credential fields.
func (u *User) Kind() AccountKind {
	switch {
	case u.PasswordHash != "" && u.ExternalID != "":
		return AccountLinked
	case u.PasswordHash != "":
		return AccountPassword
	case u.ExternalID != "":
		return AccountExternal
	default:
		return AccountIncomplete
	}
}

// HasPassword reports whether password login is possible for this account.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}
