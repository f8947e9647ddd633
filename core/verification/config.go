package verification

import "time"

// Config controls code lifetime and abuse limits.
type Config struct {
	CodeTTL        time.Duration `env:"VERIFICATION_CODE_TTL" envDefault:"10m"`
	ResendCooldown time.Duration `env:"VERIFICATION_RESEND_COOLDOWN" envDefault:"60s"`
	MaxAttempts    int           `env:"VERIFICATION_MAX_ATTEMPTS" envDefault:"5"`
	CodeLength     int           `env:"VERIFICATION_CODE_LENGTH" envDefault:"6"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		CodeTTL:        10 * time.Minute,
		ResendCooldown: 60 * time.Second,
		MaxAttempts:    5,
		CodeLength:     6,
	}
}

// Retention is how long a record is kept after issue.
func (c Config) Retention() time.Duration {
	return 2 * c.CodeTTL
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.CodeTTL <= 0 {
		c.CodeTTL = d.CodeTTL
	}
	if c.ResendCooldown < 0 {
		c.ResendCooldown = 0
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.CodeLength <= 0 {
		c.CodeLength = d.CodeLength
	}
	return c
}
