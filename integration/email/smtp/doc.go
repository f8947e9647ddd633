// Package smtp delivers verification email through an SMTP relay.
//
// Client implements email.EmailSender. It supports STARTTLS, implicit TLS and plain
// connections, and skips authentication when no username is configured:
//
//	client, err := smtp.New(smtp.Config{
//		Host:         "smtp.example.com",
//		Port:         587,
//		Username:     "vault",
//		Password:     os.Getenv("SMTP_PASSWORD"),
//		TLSMode:      smtp.TLSModeStartTLS,
//		SenderEmail:  "no-reply@example.com",
//		SupportEmail: "support@example.com",
//	})
//	if err != nil {
//		return err
//	}
//	dispatcher := verification.NewEmailDispatcher(client)
//
// Each message uses its own connection, bounded by the caller's context and Config.Timeout.
// Failures wrap email.ErrFailedToSendEmail; bad configuration wraps email.ErrInvalidConfig.
package smtp
