package vault

import (
	"github.com/dmitrymomot/lifevault/core/login"
	"github.com/dmitrymomot/lifevault/core/pushauth"
	"github.com/dmitrymomot/lifevault/core/server"
	"github.com/dmitrymomot/lifevault/core/session"
	"github.com/dmitrymomot/lifevault/core/vaultpin"
	"github.com/dmitrymomot/lifevault/core/verification"
)

// Backends accepted by Config.AccountBackend and Config.StateBackend.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Mail drivers accepted by Config.MailDriver.
const (
	MailDev      = "dev"
	MailSMTP     = "smtp"
	MailPostmark = "postmark"
)

// Config is the top-level application configuration. Connection settings for the selected
// backends and mail driver are loaded separately, only when they are in use.
type Config struct {
	AppName  string `env:"APP_NAME" envDefault:"lifevault"`
	Env      string `env:"APP_ENV" envDefault:"development"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// AppKey is the hex-encoded key sealing stored TOTP secrets. A random key is generated
	// when empty, which only suits development: sealed secrets do not survive a restart.
	AppKey string `env:"SECRETS_APP_KEY"`

	AccountBackend string `env:"ACCOUNT_BACKEND" envDefault:"memory"` // memory or postgres
	StateBackend   string `env:"STATE_BACKEND" envDefault:"memory"`   // memory or redis
	MailDriver     string `env:"MAIL_DRIVER" envDefault:"dev"`        // dev, smtp or postmark
	EmailDevDir    string `env:"EMAIL_DEV_DIR" envDefault:"./dev_emails"`
	ProductName    string `env:"PRODUCT_NAME" envDefault:"LifeVault"`
	TOTPCacheSize  int    `env:"TOTP_SECRET_CACHE_SIZE" envDefault:"256"`
	PushBuffer     int    `env:"PUSH_NOTIFY_BUFFER" envDefault:"16"`

	Login        login.Config
	Verification verification.Config
	Push         pushauth.Config
	Pin          vaultpin.Config
	Session      session.Config
	Ops          server.Config
}

func (c Config) isProduction() bool {
	return c.Env == "production"
}
