package session

import "errors"

// ErrNotFound is returned for unknown session ids.
var ErrNotFound = errors.New("session not found")

// Store tracks authenticated sessions across stateless requests.
// Implementations expire entries after a TTL of inactivity.
type Store interface {
	// Create registers a session for a freshly authenticated login and
	// returns it with a newly minted id.
	Create(login int64, server string) (*Session, error)
	// Get returns the session or ErrNotFound.
	Get(id string) (*Session, error)
	// Touch bumps last_activity; reports whether the id was found.
	Touch(id string) bool
	// Exists reports whether the id is registered without touching it.
	Exists(id string) bool
	// Delete removes a session. Deleting an unknown id is not an error.
	Delete(id string) error
	// List returns all live sessions.
	List() ([]Session, error)
	// Len returns the live session count.
	Len() int
	Close() error
}
