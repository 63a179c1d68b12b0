package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ericfisherdev/crmvault/internal/domain/model"
	"github.com/ericfisherdev/crmvault/internal/domain/port/driven"
)

// DefaultRememberTTL is how long a saved login stays usable.
const DefaultRememberTTL = 90 * 24 * time.Hour

var (
	// ErrNoSavedCredentials is returned by Load when nothing is stored.
	ErrNoSavedCredentials = errors.New("no saved credentials")

	// ErrExpired is returned by Load when the stored record is past its expiry.
	ErrExpired = errors.New("saved credentials expired")

	// ErrInvalidCredentials is returned by Save for an empty login.
	ErrInvalidCredentials = errors.New("login must not be empty")
)

// VaultState is the operation the vault is currently running.
type VaultState string

// Vault states.
const (
	VaultIdle     VaultState = "idle"
	VaultSaving   VaultState = "saving"
	VaultLoading  VaultState = "loading"
	VaultClearing VaultState = "clearing"
)

// Operation outcomes reported to VaultMetrics.
const (
	OutcomeOK          = "ok"
	OutcomeMiss        = "miss"
	OutcomeExpired     = "expired"
	OutcomeCorrupt     = "corrupt"
	OutcomeUndecrypted = "undecryptable"
	OutcomeUnsupported = "unsupported"
	OutcomeUnavailable = "unavailable"
	OutcomeRejected    = "rejected"
	OutcomeError       = "error"
)

// VaultConfig holds per-instance vault settings.
type VaultConfig struct {
	// Environment is fingerprinted to derive encryption keys.
	Environment model.Environment
	// TTL is added to the save time to compute the record expiry.
	// Zero selects DefaultRememberTTL.
	TTL time.Duration
	// Now returns the current time. Nil selects time.Now.
	Now func() time.Time
}

// credentialsPayload is the plaintext sealed into a StoredRecord.
type credentialsPayload struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// VaultService remembers one login pair, encrypted under a key derived from
// the device fingerprint, for session recovery when server cookies are gone.
// Operations are serialized; the exported *Credentials methods never fail.
type VaultService struct {
	store       driven.RecordStore
	sealer      driven.Sealer
	metrics     driven.VaultMetrics
	fingerprint string
	ttl         time.Duration
	now         func() time.Time
	logger      *slog.Logger

	mu    sync.Mutex // serializes operations
	state atomic.Value
}

// NewVaultService creates a VaultService. A nil store or sealer leaves the
// vault permanently unsupported; a nil metrics recorder disables metrics.
func NewVaultService(
	store driven.RecordStore,
	sealer driven.Sealer,
	metrics driven.VaultMetrics,
	cfg VaultConfig,
	logger *slog.Logger,
) *VaultService {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultRememberTTL
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &VaultService{
		store:       store,
		sealer:      sealer,
		metrics:     metrics,
		fingerprint: Fingerprint(cfg.Environment),
		ttl:         ttl,
		now:         now,
		logger:      logger,
	}
	s.state.Store(VaultIdle)
	return s
}

// State returns the operation currently in progress.
func (s *VaultService) State() VaultState {
	return s.state.Load().(VaultState)
}

// TTL returns the lifetime given to newly saved records.
func (s *VaultService) TTL() time.Duration {
	return s.ttl
}

// SaveCredentials remembers login and password. Failures are logged, never
// returned: a failed save must not fail the login that triggered it.
func (s *VaultService) SaveCredentials(ctx context.Context, login, password string) {
	if err := s.Save(ctx, model.Credentials{Login: login, Password: password}); err != nil {
		s.logFailure("save credentials", err)
	}
}

// GetSavedCredentials returns the remembered login pair, or nil when nothing
// usable is stored.
func (s *VaultService) GetSavedCredentials(ctx context.Context) *model.Credentials {
	creds, err := s.Load(ctx)
	if err != nil {
		s.logFailure("load credentials", err)
		return nil
	}
	return &creds
}

// ClearSavedCredentials forgets the remembered login pair.
func (s *VaultService) ClearSavedCredentials(ctx context.Context) {
	if err := s.Clear(ctx); err != nil {
		s.logFailure("clear credentials", err)
	}
}

// HasSavedCredentials reports whether an unexpired, decryptable login pair is stored.
func (s *VaultService) HasSavedCredentials(ctx context.Context) bool {
	return s.GetSavedCredentials(ctx) != nil
}

// Save encrypts creds under a fresh salt and nonce and replaces the stored record.
func (s *VaultService) Save(ctx context.Context, creds model.Credentials) (err error) {
	done := s.begin(VaultSaving, "save")
	defer func() { done(err) }()

	if creds.IsZero() {
		return ErrInvalidCredentials
	}
	if err := s.probe(ctx); err != nil {
		return err
	}

	salt, err := s.sealer.NewSalt()
	if err != nil {
		return fmt.Errorf("generate salt: %w", err)
	}
	nonce, err := s.sealer.NewNonce()
	if err != nil {
		return fmt.Errorf("generate nonce: %w", err)
	}

	plaintext, err := json.Marshal(credentialsPayload{Login: creds.Login, Password: creds.Password})
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}
	defer clear(plaintext)

	ciphertext, err := s.sealer.Seal(ctx, s.fingerprint, salt, nonce, plaintext)
	if err != nil {
		return fmt.Errorf("seal credentials: %w", err)
	}

	now := s.now()
	record := model.StoredRecord{
		Version:    model.StoredRecordVersion,
		ID:         uuid.NewString(),
		Ciphertext: ciphertext,
		Nonce:      nonce,
		Salt:       salt,
		ExpiresAt:  now.Add(s.ttl),
		CreatedAt:  now,
	}
	if err := s.store.Put(ctx, record); err != nil {
		return err
	}

	s.logger.Debug("credentials remembered", "record_id", record.ID, "expires_at", record.ExpiresAt)
	return nil
}

// Load returns the stored credentials. Expiry is checked before any key is
// derived; expired and corrupt records are removed on the way out.
func (s *VaultService) Load(ctx context.Context) (creds model.Credentials, err error) {
	done := s.begin(VaultLoading, "load")
	defer func() { done(err) }()

	if err := s.probe(ctx); err != nil {
		return model.Credentials{}, err
	}

	record, err := s.store.Get(ctx)
	if errors.Is(err, driven.ErrRecordCorrupt) {
		s.discard(ctx, "corrupt")
		return model.Credentials{}, err
	}
	if err != nil {
		return model.Credentials{}, err
	}
	if record == nil {
		return model.Credentials{}, ErrNoSavedCredentials
	}
	if record.Expired(s.now()) {
		s.discard(ctx, "expired")
		return model.Credentials{}, fmt.Errorf("%w at %s", ErrExpired, record.ExpiresAt.Format(time.RFC3339))
	}

	plaintext, err := s.sealer.Open(ctx, s.fingerprint, record.Salt, record.Nonce, record.Ciphertext)
	if err != nil {
		return model.Credentials{}, fmt.Errorf("open record %s: %w", record.ID, err)
	}
	defer clear(plaintext)

	var payload credentialsPayload
	if err := json.Unmarshal(plaintext, &payload); err != nil || payload.Login == "" {
		s.discard(ctx, "corrupt")
		return model.Credentials{}, fmt.Errorf("%w: undecodable payload", driven.ErrRecordCorrupt)
	}

	return model.Credentials{Login: payload.Login, Password: payload.Password}, nil
}

// Clear deletes the stored record.
func (s *VaultService) Clear(ctx context.Context) (err error) {
	done := s.begin(VaultClearing, "clear")
	defer func() { done(err) }()

	if err := s.probe(ctx); err != nil {
		return err
	}
	return s.store.Delete(ctx)
}

// begin locks the vault for one operation and returns the function that
// records its outcome and unlocks it.
func (s *VaultService) begin(state VaultState, operation string) func(error) {
	s.mu.Lock()
	s.state.Store(state)
	start := time.Now()

	return func(err error) {
		if s.metrics != nil {
			s.metrics.ObserveOperation(operation, outcomeOf(err), time.Since(start))
		}
		s.state.Store(VaultIdle)
		s.mu.Unlock()
	}
}

// probe checks that both crypto and storage are usable.
func (s *VaultService) probe(ctx context.Context) error {
	if s.sealer == nil || s.store == nil {
		return driven.ErrUnsupportedEnvironment
	}
	if err := s.sealer.Probe(); err != nil {
		return err
	}
	return s.store.Ping(ctx)
}

// discard opportunistically removes a record that can never be used.
func (s *VaultService) discard(ctx context.Context, reason string) {
	if err := s.store.Delete(ctx); err != nil {
		s.logger.Warn("failed to discard stored credentials", "reason", reason, "error", err)
		return
	}
	s.logger.Debug("discarded stored credentials", "reason", reason)
}

func (s *VaultService) logFailure(op string, err error) {
	switch {
	case errors.Is(err, ErrNoSavedCredentials),
		errors.Is(err, ErrExpired),
		errors.Is(err, driven.ErrDecryption),
		errors.Is(err, driven.ErrUnsupportedEnvironment):
		s.logger.Debug(op, "outcome", outcomeOf(err), "error", err)
	default:
		s.logger.Warn(op+" failed", "outcome", outcomeOf(err), "error", err)
	}
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ErrNoSavedCredentials):
		return OutcomeMiss
	case errors.Is(err, ErrExpired):
		return OutcomeExpired
	case errors.Is(err, driven.ErrRecordCorrupt):
		return OutcomeCorrupt
	case errors.Is(err, driven.ErrDecryption):
		return OutcomeUndecrypted
	case errors.Is(err, driven.ErrUnsupportedEnvironment):
		return OutcomeUnsupported
	case errors.Is(err, driven.ErrStoreUnavailable):
		return OutcomeUnavailable
	case errors.Is(err, ErrInvalidCredentials):
		return OutcomeRejected
	default:
		return OutcomeError
	}
}
