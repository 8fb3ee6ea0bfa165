// Package totp wraps time-based one-time password enrollment and
// verification for two-factor authentication.
package totp

import (
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	// period is the TOTP time step in seconds.
	period = 30
	// skew is how many adjacent time steps are accepted on verification.
	// One step in each direction tolerates realistic clock drift between
	// the server and the authenticator device.
	skew = 1
	// secretSize is the TOTP secret length in bytes before base32 encoding.
	secretSize = 20
)

// Service issues enrollment secrets and validates 6-digit codes.
type Service struct {
	issuer string
}

// NewService returns a Service whose provisioning URIs carry the given
// issuer name, shown in authenticator apps.
func NewService(issuer string) *Service {
	return &Service{issuer: issuer}
}

// GenerateEnrollment produces a fresh random base32 secret and an
// otpauth:// provisioning URI for the given account label (typically the
// user's email). QR rendering of the URI is up to the caller.
func (s *Service) GenerateEnrollment(accountLabel string) (secret, provisioningURI string, err error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.issuer,
		AccountName: accountLabel,
		Period:      period,
		SecretSize:  secretSize,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", "", err
	}
	return key.Secret(), key.URL(), nil
}

// VerifyCode reports whether code is valid for secret at the current time,
// accepting codes from the current time step and one step either side.
// An undecodable secret counts as a failed verification.
func (s *Service) VerifyCode(secret, code string) bool {
	ok, err := totp.ValidateCustom(code, secret, time.Now().UTC(), totp.ValidateOpts{
		Period:    period,
		Skew:      skew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}
