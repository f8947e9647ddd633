// Package email defines the outbound mail abstraction used to deliver verification codes.
//
// EmailSender is implemented by the SMTP and Postmark clients under integration/email, by
// DevSender (writes every message to disk as HTML plus JSON metadata) and by MemorySender
// (keeps messages in memory for tests).
//
//	sender := email.NewDevSender("./dev_emails")
//
//	err := sender.SendEmail(ctx, email.SendEmailParams{
//		SendTo:   "user@example.com",
//		Subject:  "Your sign-in code",
//		BodyHTML: html,
//		Tag:      "login-2fa",
//	})
//	if errors.Is(err, email.ErrInvalidParams) {
//		// caller bug
//	}
//
// Message bodies are rendered from templ components, see the templates subpackage.
package email
