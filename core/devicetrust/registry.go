package devicetrust

import (
	"context"
	"io"
	"log/slog"
	"slices"

	"github.com/dmitrymomot/lifevault/core/account"
	"github.com/dmitrymomot/lifevault/core/autherr"
	"github.com/dmitrymomot/lifevault/core/logger"
)

// MaxDevices is the capacity of an account's trusted device list.
const MaxDevices = 10

// Registry answers and records device trust for accounts.
type Registry struct {
	store  account.TrustedDeviceStore
	limit  int
	logger *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the registry logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithLimit overrides the list capacity. Values below 1 are ignored.
func WithLimit(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.limit = n
		}
	}
}

// New creates a Registry over store.
func New(store account.TrustedDeviceStore, opts ...Option) *Registry {
	r := &Registry{
		store:  store,
		limit:  MaxDevices,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With(logger.Component("devicetrust"))
	return r
}

// IsTrusted reports whether deviceID is on the account's list.
// Any read failure is logged and reported as untrusted.
func (r *Registry) IsTrusted(ctx context.Context, accountID, deviceID string) bool {
	if accountID == "" || deviceID == "" {
		return false
	}

	devices, err := r.store.TrustedDevices(ctx, accountID)
	if err != nil {
		r.logger.WarnContext(ctx, "trusted device list unavailable, treating device as untrusted",
			logger.AccountID(accountID),
			logger.Error(err),
		)
		return false
	}
	return slices.Contains(devices, deviceID)
}

// Register adds deviceID to the account's list. It is a no-op when the device is already listed.
func (r *Registry) Register(ctx context.Context, accountID, deviceID string) error {
	if accountID == "" {
		return ErrEmptyAccount
	}
	if deviceID == "" {
		return ErrEmptyDeviceID
	}

	err := r.store.UpdateTrustedDevices(ctx, accountID, func(list []string) []string {
		return Append(list, deviceID, r.limit)
	})
	if err != nil {
		return autherr.Unavailable(err)
	}

	r.logger.InfoContext(ctx, "device registered",
		logger.AccountID(accountID),
		logger.DeviceID(deviceID),
	)
	return nil
}

// Devices returns the account's trusted devices, oldest first.
func (r *Registry) Devices(ctx context.Context, accountID string) ([]string, error) {
	devices, err := r.store.TrustedDevices(ctx, accountID)
	if err != nil {
		return nil, autherr.Unavailable(err)
	}
	return devices, nil
}

// Revoke removes deviceID from the account's list. Removing an unknown device is a no-op.
func (r *Registry) Revoke(ctx context.Context, accountID, deviceID string) error {
	if deviceID == "" {
		return ErrEmptyDeviceID
	}

	err := r.store.UpdateTrustedDevices(ctx, accountID, func(list []string) []string {
		return slices.DeleteFunc(list, func(d string) bool { return d == deviceID })
	})
	if err != nil {
		return autherr.Unavailable(err)
	}

	r.logger.InfoContext(ctx, "device revoked",
		logger.AccountID(accountID),
		logger.DeviceID(deviceID),
	)
	return nil
}

// Append returns list with deviceID appended unless already present, keeping only the most recent
// limit entries. The input slice is not modified.
func Append(list []string, deviceID string, limit int) []string {
	if slices.Contains(list, deviceID) {
		return slices.Clone(list)
	}
	out := append(slices.Clone(list), deviceID)
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}
