package smtp

import "time"

// TLS modes accepted by Config.TLSMode.
const (
	TLSModeStartTLS = "starttls"
	TLSModeTLS      = "tls"
	TLSModePlain    = "plain"
)

// Config holds SMTP relay settings. Username may be empty for relays that accept
// unauthenticated mail, such as a local mail catcher.
type Config struct {
	Host         string        `env:"SMTP_HOST,required"`
	Port         int           `env:"SMTP_PORT" envDefault:"587"`
	Username     string        `env:"SMTP_USERNAME"`
	Password     string        `env:"SMTP_PASSWORD"`
	TLSMode      string        `env:"SMTP_TLS_MODE" envDefault:"starttls"`
	Timeout      time.Duration `env:"SMTP_TIMEOUT" envDefault:"15s"`
	SenderEmail  string        `env:"SENDER_EMAIL,required"`
	SupportEmail string        `env:"SUPPORT_EMAIL,required"`
}
