package model

import "time"

// StoredRecordVersion is the schema version written by the current vault.
const StoredRecordVersion = 1

// StoredRecord is the single persisted "remember me" entry. Ciphertext holds
// the sealed Credentials; Nonce and Salt are regenerated on every save.
type StoredRecord struct {
	Version    int
	ID         string
	Ciphertext []byte
	Nonce      []byte
	Salt       []byte
	ExpiresAt  time.Time
	CreatedAt  time.Time
}

// Expired reports whether the record must no longer be trusted at now.
func (r StoredRecord) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}
