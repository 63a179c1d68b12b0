package sqlite

import (
	"context"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ericfisherdev/crmvault/internal/domain/model"
	"github.com/ericfisherdev/crmvault/internal/domain/port/driven"
)

const (
	// recordKey is the well-known key of the singleton record.
	recordKey = "remembered-credentials"

	// DefaultOpenTimeout bounds how long an operation waits for a connection.
	DefaultOpenTimeout = 5 * time.Second

	nonceSize = 12
	saltSize  = 16
)

// Compile-time interface satisfaction check.
var _ driven.RecordStore = (*RecordRepo)(nil)

// RecordRepo is the SQLite implementation of the RecordStore port interface.
// Every call acquires its own connection under openTimeout and releases it
// before returning.
type RecordRepo struct {
	db          *DB
	openTimeout time.Duration
}

// NewRecordRepo creates a new RecordRepo. A non-positive openTimeout selects
// DefaultOpenTimeout.
func NewRecordRepo(db *DB, openTimeout time.Duration) *RecordRepo {
	if openTimeout <= 0 {
		openTimeout = DefaultOpenTimeout
	}
	return &RecordRepo{db: db, openTimeout: openTimeout}
}

// recordValue is the JSON entry stored under recordKey.
type recordValue struct {
	Version       int    `json:"version"`
	ID            string `json:"id,omitempty"`
	EncryptedData string `json:"encryptedData"`
	IV            string `json:"iv"`
	Salt          string `json:"salt"`
	ExpiresAt     int64  `json:"expiresAt"`
	CreatedAt     int64  `json:"createdAt,omitempty"`
}

// Ping acquires and releases a writer connection.
func (r *RecordRepo) Ping(ctx context.Context) error {
	conn, err := r.acquire(ctx, r.db.Writer)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: ping: %w", driven.ErrStoreUnavailable, err)
	}
	return nil
}

// Put replaces the singleton record.
func (r *RecordRepo) Put(ctx context.Context, record model.StoredRecord) error {
	value, err := json.Marshal(encodeRecord(record))
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	conn, err := r.acquire(ctx, r.db.Writer)
	if err != nil {
		return err
	}
	defer conn.Close()

	const query = `INSERT OR REPLACE INTO credential_store (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)`
	if _, err := conn.ExecContext(ctx, query, recordKey, string(value)); err != nil {
		return fmt.Errorf("%w: put record: %w", driven.ErrStoreUnavailable, err)
	}
	return nil
}

// Get returns the singleton record, or (nil, nil) if none is stored.
func (r *RecordRepo) Get(ctx context.Context) (*model.StoredRecord, error) {
	conn, err := r.acquire(ctx, r.db.Reader)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	const query = `SELECT value FROM credential_store WHERE key = ?`
	var raw string
	err = conn.QueryRowContext(ctx, query, recordKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get record: %w", driven.ErrStoreUnavailable, err)
	}

	record, err := decodeRecord(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", driven.ErrRecordCorrupt, err)
	}
	return record, nil
}

// Delete removes the singleton record. Deleting an absent record succeeds.
func (r *RecordRepo) Delete(ctx context.Context) error {
	conn, err := r.acquire(ctx, r.db.Writer)
	if err != nil {
		return err
	}
	defer conn.Close()

	const query = `DELETE FROM credential_store WHERE key = ?`
	if _, err := conn.ExecContext(ctx, query, recordKey); err != nil {
		return fmt.Errorf("%w: delete record: %w", driven.ErrStoreUnavailable, err)
	}
	return nil
}

// acquire takes a dedicated connection from pool, giving up after openTimeout.
// The returned connection outlives the timeout; callers must Close it.
func (r *RecordRepo) acquire(ctx context.Context, pool *sql.DB) (*sql.Conn, error) {
	openCtx, cancel := context.WithTimeout(ctx, r.openTimeout)
	defer cancel()

	conn, err := pool.Conn(openCtx)
	if err != nil {
		return nil, fmt.Errorf("%w: open: %w", driven.ErrStoreUnavailable, err)
	}
	return conn, nil
}

func encodeRecord(record model.StoredRecord) recordValue {
	version := record.Version
	if version == 0 {
		version = model.StoredRecordVersion
	}

	v := recordValue{
		Version:       version,
		ID:            record.ID,
		EncryptedData: base64.StdEncoding.EncodeToString(record.Ciphertext),
		IV:            base64.StdEncoding.EncodeToString(record.Nonce),
		Salt:          base64.StdEncoding.EncodeToString(record.Salt),
		ExpiresAt:     record.ExpiresAt.UnixMilli(),
	}
	if !record.CreatedAt.IsZero() {
		v.CreatedAt = record.CreatedAt.UnixMilli()
	}
	return v
}

// decodeRecord parses a stored entry. Entries written before the version tag
// existed carry version 0 and share the version 1 layout.
func decodeRecord(raw string) (*model.StoredRecord, error) {
	var v recordValue
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("unmarshal record: %w", err)
	}

	switch v.Version {
	case 0, model.StoredRecordVersion:
	default:
		return nil, fmt.Errorf("unsupported record version %d", v.Version)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(v.EncryptedData)
	if err != nil {
		return nil, fmt.Errorf("decode encryptedData: %w", err)
	}
	if len(ciphertext) == 0 {
		return nil, errors.New("empty encryptedData")
	}
	nonce, err := base64.StdEncoding.DecodeString(v.IV)
	if err != nil {
		return nil, fmt.Errorf("decode iv: %w", err)
	}
	if len(nonce) != nonceSize {
		return nil, fmt.Errorf("iv is %d bytes, want %d", len(nonce), nonceSize)
	}
	salt, err := base64.StdEncoding.DecodeString(v.Salt)
	if err != nil {
		return nil, fmt.Errorf("decode salt: %w", err)
	}
	if len(salt) != saltSize {
		return nil, fmt.Errorf("salt is %d bytes, want %d", len(salt), saltSize)
	}
	if v.ExpiresAt <= 0 {
		return nil, errors.New("missing expiresAt")
	}

	record := &model.StoredRecord{
		Version:    model.StoredRecordVersion,
		ID:         v.ID,
		Ciphertext: ciphertext,
		Nonce:      nonce,
		Salt:       salt,
		ExpiresAt:  time.UnixMilli(v.ExpiresAt).UTC(),
	}
	if v.CreatedAt > 0 {
		record.CreatedAt = time.UnixMilli(v.CreatedAt).UTC()
	}
	return record, nil
}
