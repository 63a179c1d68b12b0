package model

// Credentials is the login pair the front end remembers for session recovery.
// It only ever exists in memory; the vault persists it encrypted.
type Credentials struct {
	Login    string
	Password string
}

// IsZero reports whether no login is set.
func (c Credentials) IsZero() bool {
	return c.Login == ""
}
