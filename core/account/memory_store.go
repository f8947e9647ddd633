package account

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/lifevault/core/autherr"
	"github.com/dmitrymomot/lifevault/pkg/hasher"
)

type memoryRecord struct {
	account      Account
	passwordHash string
	devices      []string
	pin          PinRecord
	pinSet       bool
}

// MemoryStore implements Directory, CredentialStore, ProfileStore, TrustedDeviceStore and PinStore
// in process memory. All methods are safe for concurrent use.
type MemoryStore struct {
	mu       sync.Mutex
	hasher   *hasher.Hasher
	byID     map[string]*memoryRecord
	byEmail  map[string]string
	sessions map[string]CredentialSession
}

// NewMemoryStore creates an empty store that hashes passwords with h.
func NewMemoryStore(h *hasher.Hasher) *MemoryStore {
	return &MemoryStore{
		hasher:   h,
		byID:     make(map[string]*memoryRecord),
		byEmail:  make(map[string]string),
		sessions: make(map[string]CredentialSession),
	}
}

// Create registers a new account.
func (s *MemoryStore) Create(ctx context.Context, email, password string, profile Profile) (Account, error) {
	if err := ctx.Err(); err != nil {
		return Account{}, err
	}
	if err := ValidateEmail(email); err != nil {
		return Account{}, err
	}
	if len(password) < MinPasswordLength {
		return Account{}, ErrWeakPassword
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return Account{}, fmt.Errorf("hash password: %w", err)
	}

	email = NormalizeEmail(email)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[email]; ok {
		return Account{}, ErrEmailTaken
	}

	acc := Account{
		ID:        uuid.NewString(),
		Email:     email,
		Profile:   cloneProfile(profile),
		CreatedAt: time.Now(),
	}
	s.byID[acc.ID] = &memoryRecord{account: acc, passwordHash: hash}
	s.byEmail[email] = acc.ID

	return acc, nil
}

func (s *MemoryStore) LookupAccount(ctx context.Context, email string) (Account, error) {
	if err := ctx.Err(); err != nil {
		return Account{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.byEmailLocked(email)
	if err != nil {
		return Account{}, err
	}
	acc := rec.account
	acc.Profile = cloneProfile(acc.Profile)
	return acc, nil
}

func (s *MemoryStore) VerifyPassword(ctx context.Context, email, password string) (CredentialSession, error) {
	if err := ctx.Err(); err != nil {
		return CredentialSession{}, err
	}

	s.mu.Lock()
	rec, err := s.byEmailLocked(email)
	var hash string
	if err == nil {
		hash = rec.passwordHash
	}
	s.mu.Unlock()

	if err != nil {
		return CredentialSession{}, autherr.ErrInvalidCredential
	}

	ok, err := s.hasher.Verify(password, hash)
	if err != nil {
		return CredentialSession{}, autherr.Unavailable(err)
	}
	if !ok {
		return CredentialSession{}, autherr.ErrInvalidCredential
	}

	token, err := randomToken()
	if err != nil {
		return CredentialSession{}, autherr.Unavailable(err)
	}
	sess := CredentialSession{
		AccountID: rec.account.ID,
		Email:     rec.account.Email,
		Token:     token,
		IssuedAt:  time.Now(),
	}

	s.mu.Lock()
	s.sessions[token] = sess
	s.mu.Unlock()

	return sess, nil
}

func (s *MemoryStore) UpdatePassword(ctx context.Context, sess CredentialSession, newPassword string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(newPassword) < MinPasswordLength {
		return ErrWeakPassword
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sess.Token]; !ok {
		return autherr.ErrInvalidCredential
	}
	rec, ok := s.byID[sess.AccountID]
	if !ok {
		return ErrNotFound
	}
	rec.passwordHash = hash
	return nil
}

func (s *MemoryStore) EndSession(ctx context.Context, sess CredentialSession) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sess.Token)
	return nil
}

func (s *MemoryStore) GetProfile(ctx context.Context, accountID string) (Profile, error) {
	if err := ctx.Err(); err != nil {
		return Profile{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byID[accountID]
	if !ok {
		return Profile{}, ErrNotFound
	}
	return cloneProfile(rec.account.Profile), nil
}

func (s *MemoryStore) UpdateProfile(ctx context.Context, accountID string, fn func(*Profile)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byID[accountID]
	if !ok {
		return ErrNotFound
	}
	p := cloneProfile(rec.account.Profile)
	fn(&p)
	rec.account.Profile = p
	return nil
}

func (s *MemoryStore) TrustedDevices(ctx context.Context, accountID string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byID[accountID]
	if !ok {
		return nil, ErrNotFound
	}
	return slices.Clone(rec.devices), nil
}

func (s *MemoryStore) UpdateTrustedDevices(ctx context.Context, accountID string, fn func([]string) []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byID[accountID]
	if !ok {
		return ErrNotFound
	}
	rec.devices = slices.Clone(fn(slices.Clone(rec.devices)))
	return nil
}

func (s *MemoryStore) GetPin(ctx context.Context, accountID string) (PinRecord, error) {
	if err := ctx.Err(); err != nil {
		return PinRecord{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byID[accountID]
	if !ok {
		return PinRecord{}, ErrNotFound
	}
	if !rec.pinSet {
		return PinRecord{}, ErrPinNotSet
	}
	return rec.pin, nil
}

func (s *MemoryStore) SavePin(ctx context.Context, accountID string, pin PinRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byID[accountID]
	if !ok {
		return ErrNotFound
	}
	rec.pin = pin
	rec.pinSet = true
	return nil
}

func (s *MemoryStore) byEmailLocked(email string) (*memoryRecord, error) {
	id, ok := s.byEmail[NormalizeEmail(email)]
	if !ok {
		return nil, ErrNotFound
	}
	return s.byID[id], nil
}

func cloneProfile(p Profile) Profile {
	if p.Notifications != nil {
		p.Notifications = maps.Clone(p.Notifications)
	}
	return p
}

func randomToken() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
