package verification

import (
	"context"
	"fmt"
	"time"

	"github.com/a-h/templ"

	"github.com/dmitrymomot/lifevault/core/email"
	"github.com/dmitrymomot/lifevault/core/email/templates"
	"github.com/dmitrymomot/lifevault/core/email/templates/components"
)

// EmailDispatcher delivers codes as HTML email through an email.EmailSender.
type EmailDispatcher struct {
	sender  email.EmailSender
	product string
	ttl     time.Duration
}

// EmailDispatcherOption configures an EmailDispatcher.
type EmailDispatcherOption func(*EmailDispatcher)

// WithProductName sets the name shown in subjects and headers.
func WithProductName(name string) EmailDispatcherOption {
	return func(d *EmailDispatcher) {
		if name != "" {
			d.product = name
		}
	}
}

// WithCodeTTL sets the lifetime mentioned in the message body.
func WithCodeTTL(ttl time.Duration) EmailDispatcherOption {
	return func(d *EmailDispatcher) {
		if ttl > 0 {
			d.ttl = ttl
		}
	}
}

// NewEmailDispatcher creates a dispatcher on top of sender.
func NewEmailDispatcher(sender email.EmailSender, opts ...EmailDispatcherOption) *EmailDispatcher {
	d := &EmailDispatcher{
		sender:  sender,
		product: "LifeVault",
		ttl:     DefaultConfig().CodeTTL,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SendCode renders the message for purpose and sends it to to.
func (d *EmailDispatcher) SendCode(ctx context.Context, to, code string, purpose Purpose) error {
	subject, body := d.message(code, purpose)

	html, err := templates.Render(ctx, body)
	if err != nil {
		return fmt.Errorf("render verification email: %w", err)
	}

	return d.sender.SendEmail(ctx, email.SendEmailParams{
		SendTo:   to,
		Subject:  subject,
		BodyHTML: html,
		Tag:      string(purpose),
	})
}

func (d *EmailDispatcher) message(code string, purpose Purpose) (string, templ.Component) {
	expires := fmt.Sprintf("This code expires in %s. If you did not request it, you can ignore this email.", humanDuration(d.ttl))

	switch purpose {
	case PurposeRegistration:
		subject := fmt.Sprintf("Confirm your %s account", d.product)
		return subject, components.Layout(subject,
			components.Header("Confirm your email", d.product),
			components.Text("Enter this code to finish creating your account:"),
			components.OTP(code),
			components.TextSecondary(expires),
		)
	default:
		subject := fmt.Sprintf("Your %s sign-in code", d.product)
		return subject, components.Layout(subject,
			components.Header("Sign-in code", d.product),
			components.Text("Someone is signing in to your account from a new device. Enter this code to continue:"),
			components.OTP(code),
			components.TextSecondary(expires),
			components.Footer("Never share this code. We will never ask you for it."),
		)
	}
}

func humanDuration(d time.Duration) string {
	if d%time.Minute == 0 {
		m := int(d / time.Minute)
		if m == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", m)
	}
	return d.Round(time.Second).String()
}
