package session

import (
	"log/slog"
	"time"
)

// Config holds session manager configuration.
type Config struct {
	TTL             time.Duration `env:"SESSION_TTL" envDefault:"24h"`             // Idle timeout
	TouchInterval   time.Duration `env:"SESSION_TOUCH_INTERVAL" envDefault:"5m"`   // Min time between expiry extensions (0 = every access)
	CleanupInterval time.Duration `env:"SESSION_CLEANUP_INTERVAL" envDefault:"10m"` // Period of the expired-session purge
}

func defaultConfig() Config {
	return Config{
		TTL:             24 * time.Hour,
		TouchInterval:   5 * time.Minute,
		CleanupInterval: 10 * time.Minute,
	}
}

type settings struct {
	cfg    Config
	logger *slog.Logger
}

// Option is a functional option for configuring the session manager.
type Option func(*settings)

// WithConfig replaces the whole configuration. Zero fields keep their defaults.
func WithConfig(cfg Config) Option {
	return func(s *settings) {
		if cfg.TTL > 0 {
			s.cfg.TTL = cfg.TTL
		}
		if cfg.TouchInterval > 0 {
			s.cfg.TouchInterval = cfg.TouchInterval
		}
		if cfg.CleanupInterval > 0 {
			s.cfg.CleanupInterval = cfg.CleanupInterval
		}
	}
}

// WithTTL sets the session time-to-live.
func WithTTL(ttl time.Duration) Option {
	return func(s *settings) {
		s.cfg.TTL = ttl
	}
}

// WithTouchInterval sets the minimum time between session expiry extensions.
// Set to 0 to extend on every save.
func WithTouchInterval(interval time.Duration) Option {
	return func(s *settings) {
		s.cfg.TouchInterval = interval
	}
}

// WithCleanupInterval sets how often Run purges expired sessions.
func WithCleanupInterval(interval time.Duration) Option {
	return func(s *settings) {
		s.cfg.CleanupInterval = interval
	}
}

// WithLogger sets the logger used by the cleanup loop.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}
