package login

import "time"

// Config bounds password attempts per email.
type Config struct {
	PasswordMaxAttempts int           `env:"LOGIN_PASSWORD_MAX_ATTEMPTS" envDefault:"10"`
	PasswordWindow      time.Duration `env:"LOGIN_PASSWORD_WINDOW" envDefault:"15m"`
}

// DefaultConfig allows 10 password attempts per 15 minutes.
func DefaultConfig() Config {
	return Config{PasswordMaxAttempts: 10, PasswordWindow: 15 * time.Minute}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.PasswordMaxAttempts <= 0 {
		c.PasswordMaxAttempts = d.PasswordMaxAttempts
	}
	if c.PasswordWindow <= 0 {
		c.PasswordWindow = d.PasswordWindow
	}
	return c
}
