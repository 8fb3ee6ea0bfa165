package auth

import (
	"time"

	"github.com/avolkovs/authcore/internal/common"
)

// ResetTokenSource produces opaque single-use password-reset tokens. Tokens
// are plain random hex strings, not JWTs, so clearing the stored value
// revokes one immediately.
type ResetTokenSource struct {
	length   int
	validity time.Duration
}

// NewResetTokenSource returns a source generating tokens of length random
// bytes that expire after validity.
func NewResetTokenSource(length int, validity time.Duration) *ResetTokenSource {
	return &ResetTokenSource{length: length, validity: validity}
}

// Generate returns a fresh token and its expiry timestamp. Expiry
// enforcement is the caller's job; the source never tracks issued tokens.
func (s *ResetTokenSource) Generate() (string, time.Time, error) {
	token, err := common.MakeRandHexString(s.length)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, time.Now().Add(s.validity), nil
}
