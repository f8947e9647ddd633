// Package session issues and tracks explicit, server-side session tokens.
//
// A session is created by the login orchestrator once an account is fully authenticated and is
// passed explicitly to every subsequent call that needs an authenticated caller (vault PIN gate,
// push approval, password change). Nothing is read from ambient client storage.
//
// # Core Components
//
//   - Session[Data]: session value with application-defined data
//   - Manager[Data]: issues, loads, saves and revokes sessions, and purges expired ones
//   - Store[Data]: persistence interface (MemoryStore here, Redis in integration/database/redis)
//
// # Usage
//
//	type Data struct {
//		VaultUnlockedAt time.Time `json:"vault_unlocked_at"`
//	}
//
//	manager := session.NewManager[Data](session.NewMemoryStore[Data](),
//		session.WithTTL(24*time.Hour),
//		session.WithTouchInterval(5*time.Minute),
//	)
//
//	sess, err := manager.Issue(ctx, accountID, deviceID, Data{})
//	// hand sess.Token to the client
//
//	sess, err = manager.GetByToken(ctx, token)
//	if errors.Is(err, session.ErrExpired) {
//		// ask the user to sign in again
//	}
//
// Tokens are 32 random bytes encoded as unpadded base64url. Refresh rotates the token while the
// session ID stays stable. Touch extends the expiry at most once per touch interval, which keeps
// store writes bounded for busy sessions.
//
// # Cleanup
//
// Manager.Run purges expired sessions on a ticker and is meant to be started through an
// errgroup next to the other background loops of the application.
package session
