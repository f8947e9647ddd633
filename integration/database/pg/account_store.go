package pg

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/lifevault/core/account"
	"github.com/dmitrymomot/lifevault/core/autherr"
	"github.com/dmitrymomot/lifevault/pkg/hasher"
)

// metadata is the JSONB document stored with each account.
type metadata struct {
	account.Profile
	TrustedDevices []string `json:"trusted_devices,omitempty"`
	account.PinRecord
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// AccountStore implements the account directory, credential, profile, trusted-device and PIN
// stores on the accounts table. Metadata updates lock the account row, so concurrent writers
// never lose an update.
type AccountStore struct {
	pool   *pgxpool.Pool
	hasher *hasher.Hasher
}

// NewAccountStore creates an AccountStore. h hashes passwords.
func NewAccountStore(pool *pgxpool.Pool, h *hasher.Hasher) *AccountStore {
	return &AccountStore{pool: pool, hasher: h}
}

// Create registers an account.
func (s *AccountStore) Create(ctx context.Context, email, password string, profile account.Profile) (account.Account, error) {
	email = account.NormalizeEmail(email)
	if err := account.ValidateEmail(email); err != nil {
		return account.Account{}, err
	}
	if len(password) < account.MinPasswordLength {
		return account.Account{}, account.ErrWeakPassword
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return account.Account{}, err
	}
	meta, err := json.Marshal(metadata{Profile: profile})
	if err != nil {
		return account.Account{}, err
	}

	acc := account.Account{Email: email, Profile: profile}
	err = s.q(ctx).QueryRow(ctx,
		`INSERT INTO accounts (email, password_hash, metadata) VALUES ($1, $2, $3) RETURNING id, created_at`,
		email, hash, meta,
	).Scan(&acc.ID, &acc.CreatedAt)
	if IsDuplicateKeyError(err) {
		return account.Account{}, account.ErrEmailTaken
	}
	if err != nil {
		return account.Account{}, fmt.Errorf("insert account: %w", err)
	}
	return acc, nil
}

func (s *AccountStore) LookupAccount(ctx context.Context, email string) (account.Account, error) {
	var (
		acc account.Account
		raw []byte
	)
	err := s.q(ctx).QueryRow(ctx,
		`SELECT id, email, metadata, created_at FROM accounts WHERE email = $1`,
		account.NormalizeEmail(email),
	).Scan(&acc.ID, &acc.Email, &raw, &acc.CreatedAt)
	if IsNotFoundError(err) {
		return account.Account{}, account.ErrNotFound
	}
	if err != nil {
		return account.Account{}, fmt.Errorf("lookup account: %w", err)
	}

	var meta metadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return account.Account{}, fmt.Errorf("decode metadata: %w", err)
	}
	acc.Profile = meta.Profile
	return acc, nil
}

func (s *AccountStore) VerifyPassword(ctx context.Context, email, password string) (account.CredentialSession, error) {
	var id, stored, hash string
	err := s.q(ctx).QueryRow(ctx,
		`SELECT id, email, password_hash FROM accounts WHERE email = $1`,
		account.NormalizeEmail(email),
	).Scan(&id, &stored, &hash)
	if IsNotFoundError(err) {
		return account.CredentialSession{}, autherr.ErrInvalidCredential
	}
	if err != nil {
		return account.CredentialSession{}, fmt.Errorf("load credentials: %w", err)
	}

	ok, err := s.hasher.Verify(password, hash)
	if err != nil {
		return account.CredentialSession{}, err
	}
	if !ok {
		return account.CredentialSession{}, autherr.ErrInvalidCredential
	}

	token, err := randomToken()
	if err != nil {
		return account.CredentialSession{}, err
	}
	sess := account.CredentialSession{AccountID: id, Email: stored, Token: token}
	err = s.q(ctx).QueryRow(ctx,
		`INSERT INTO credential_sessions (token, account_id) VALUES ($1, $2) RETURNING created_at`,
		token, id,
	).Scan(&sess.IssuedAt)
	if err != nil {
		return account.CredentialSession{}, fmt.Errorf("create credential session: %w", err)
	}
	return sess, nil
}

// UpdatePassword requires a live credential session for the account.
func (s *AccountStore) UpdatePassword(ctx context.Context, sess account.CredentialSession, newPassword string) error {
	if len(newPassword) < account.MinPasswordLength {
		return account.ErrWeakPassword
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	tag, err := s.q(ctx).Exec(ctx,
		`UPDATE accounts SET password_hash = $1, updated_at = now()
		 WHERE id = $2 AND EXISTS (
			SELECT 1 FROM credential_sessions WHERE token = $3 AND account_id = $2
		 )`,
		hash, sess.AccountID, sess.Token,
	)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return autherr.ErrInvalidCredential
	}
	return nil
}

func (s *AccountStore) EndSession(ctx context.Context, sess account.CredentialSession) error {
	if _, err := s.q(ctx).Exec(ctx, `DELETE FROM credential_sessions WHERE token = $1`, sess.Token); err != nil {
		return fmt.Errorf("end credential session: %w", err)
	}
	return nil
}

func (s *AccountStore) GetProfile(ctx context.Context, accountID string) (account.Profile, error) {
	meta, err := s.metadata(ctx, s.q(ctx), accountID, false)
	if err != nil {
		return account.Profile{}, err
	}
	return meta.Profile, nil
}

func (s *AccountStore) UpdateProfile(ctx context.Context, accountID string, fn func(*account.Profile)) error {
	return s.updateMetadata(ctx, accountID, func(m *metadata) {
		fn(&m.Profile)
	})
}

func (s *AccountStore) TrustedDevices(ctx context.Context, accountID string) ([]string, error) {
	meta, err := s.metadata(ctx, s.q(ctx), accountID, false)
	if err != nil {
		return nil, err
	}
	return meta.TrustedDevices, nil
}

func (s *AccountStore) UpdateTrustedDevices(ctx context.Context, accountID string, fn func([]string) []string) error {
	return s.updateMetadata(ctx, accountID, func(m *metadata) {
		m.TrustedDevices = fn(m.TrustedDevices)
	})
}

func (s *AccountStore) GetPin(ctx context.Context, accountID string) (account.PinRecord, error) {
	meta, err := s.metadata(ctx, s.q(ctx), accountID, false)
	if err != nil {
		return account.PinRecord{}, err
	}
	if meta.Hash == "" {
		return account.PinRecord{}, account.ErrPinNotSet
	}
	return meta.PinRecord, nil
}

func (s *AccountStore) SavePin(ctx context.Context, accountID string, rec account.PinRecord) error {
	return s.updateMetadata(ctx, accountID, func(m *metadata) {
		m.PinRecord = rec
	})
}

func (s *AccountStore) metadata(ctx context.Context, q querier, accountID string, lock bool) (metadata, error) {
	query := `SELECT metadata FROM accounts WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}

	var raw []byte
	err := q.QueryRow(ctx, query, accountID).Scan(&raw)
	if IsNotFoundError(err) {
		return metadata{}, account.ErrNotFound
	}
	if err != nil {
		return metadata{}, fmt.Errorf("load metadata: %w", err)
	}

	var meta metadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return metadata{}, fmt.Errorf("decode metadata: %w", err)
	}
	return meta, nil
}

// updateMetadata applies fn under a row lock.
func (s *AccountStore) updateMetadata(ctx context.Context, accountID string, fn func(*metadata)) error {
	return s.inTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		meta, err := s.metadata(ctx, tx, accountID, true)
		if err != nil {
			return err
		}
		fn(&meta)

		raw, err := json.Marshal(meta)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`UPDATE accounts SET metadata = $1, updated_at = now() WHERE id = $2`,
			raw, accountID,
		); err != nil {
			return fmt.Errorf("update metadata: %w", err)
		}
		return nil
	})
}

// inTx runs fn in the transaction carried by ctx, or in a new one committed on success.
func (s *AccountStore) inTx(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
	if tx, ok := TxFromContext(ctx); ok {
		return fn(ctx, tx)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

	if err := fn(WithTx(ctx, tx), tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *AccountStore) q(ctx context.Context) querier {
	if tx, ok := TxFromContext(ctx); ok {
		return tx
	}
	return s.pool
}

func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

var (
	_ account.Directory          = (*AccountStore)(nil)
	_ account.CredentialStore    = (*AccountStore)(nil)
	_ account.ProfileStore       = (*AccountStore)(nil)
	_ account.TrustedDeviceStore = (*AccountStore)(nil)
	_ account.PinStore           = (*AccountStore)(nil)
)
