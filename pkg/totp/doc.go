// Package totp provides RFC 6238 compliant Time-based One-Time Password (TOTP) generation and
// validation, plus the uniformly random numeric codes used for email verification.
//
// Codes generated here validate against any standards-compliant authenticator app, so every
// function is pure and bit-for-bit deterministic for a given secret and timestamp.
//
// # Basic Usage
//
//	import "github.com/dmitrymomot/lifevault/pkg/totp"
//
//	// Generate a new base32 secret
//	secret, err := totp.GenerateSecretKey()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Current code with default parameters (SHA1, 6 digits, 30 seconds)
//	code, err := totp.GenerateTOTP(secret)
//
//	// Validate user input (one step of clock skew tolerated)
//	valid, err := totp.ValidateTOTP(secret, "123456")
//
// # Custom Parameters
//
// Authenticator entries may use other digit counts, periods or hash algorithms:
//
//	key, _ := totp.DecodeSecret(secret)
//	params := totp.Params{Period: 60, Digits: 8, Algorithm: totp.AlgorithmSHA256}
//	code, err := totp.Generate(key, params, time.Now())
//
// RemainingSeconds reports how long the current code stays valid. It exists for UI countdowns
// only and is not a security boundary:
//
//	left := totp.RemainingSeconds(30, time.Now()) // 1..30
//
// # Provisioning
//
// GetTOTPURI builds an otpauth:// URI suitable for QR codes:
//
//	uri, err := totp.GetTOTPURI(totp.TOTPParams{
//		Secret:      secret,
//		AccountName: "user@example.com",
//		Issuer:      "LifeVault",
//	})
//
// # Verification Codes
//
// GenerateNumericCode returns a uniformly random decimal string drawn from crypto/rand:
//
//	code, err := totp.GenerateNumericCode(6) // e.g. "048213"
package totp
