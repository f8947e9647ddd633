// Package postmark delivers verification email through Postmark.
//
// Client implements email.EmailSender and plugs into verification.NewEmailDispatcher:
//
//	client, err := postmark.New(postmark.Config{
//		PostmarkServerToken:  os.Getenv("POSTMARK_SERVER_TOKEN"),
//		PostmarkAccountToken: os.Getenv("POSTMARK_ACCOUNT_TOKEN"),
//		SenderEmail:          "no-reply@example.com",
//		SupportEmail:         "support@example.com",
//	})
//	if err != nil {
//		return err
//	}
//	dispatcher := verification.NewEmailDispatcher(client)
//
// Replies go to SupportEmail. Tracking is disabled. Transport failures and Postmark error codes
// both wrap email.ErrFailedToSendEmail.
package postmark
