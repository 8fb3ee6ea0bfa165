// Package auth implements the credential primitives of the server: signed
// bearer tokens of three distinct kinds, bcrypt password hashing, and opaque
// password-reset tokens.
package auth

import (
	"fmt"
	"time"

	"github.com/avolkovs/authcore/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// TokenKind selects one of the three signing contexts. Each kind has its own
// secret and lifetime, so a token minted as one kind never verifies as
// another: Verify only accepts a signature produced with the matching secret.
type TokenKind int

const (
	// TokenAccess is the short-lived credential authorizing API calls.
	TokenAccess TokenKind = iota
	// TokenRefresh is the long-lived credential exchanged for a new pair.
	TokenRefresh
	// TokenTemp2FA is issued after password verification when two-factor
	// authentication is enabled, and is valid only for completing it.
	TokenTemp2FA
)

func (k TokenKind) String() string {
	switch k {
	case TokenAccess:
		return "access"
	case TokenRefresh:
		return "refresh"
	case TokenTemp2FA:
		return "temp2fa"
	default:
		return "unknown"
	}
}

// Claims includes the standard registered claims plus the user ID the token
// is bound to. The token kind is implicit via the signing secret and is not
// carried in the payload.
type Claims struct {
	jwt.RegisteredClaims
	UserID string
}

type kindContext struct {
	secret   []byte
	validity time.Duration
}

// TokenService mints and verifies JWTs for the three token kinds.
type TokenService struct {
	kinds map[TokenKind]kindContext
}

// NewTokenService builds a TokenService from explicitly injected secrets and
// lifetimes. Secrets are never read from ambient state.
func NewTokenService(accessSecret, refreshSecret, tempSecret string,
	accessValidity, refreshValidity, tempValidity time.Duration) *TokenService {
	return &TokenService{
		kinds: map[TokenKind]kindContext{
			TokenAccess:  {secret: []byte(accessSecret), validity: accessValidity},
			TokenRefresh: {secret: []byte(refreshSecret), validity: refreshValidity},
			TokenTemp2FA: {secret: []byte(tempSecret), validity: tempValidity},
		},
	}
}

// Mint signs a token of the given kind for userID, expiring after the kind's
// configured lifetime.
func (s *TokenService) Mint(kind TokenKind, userID string) (string, error) {
	kc, ok := s.kinds[kind]
	if !ok {
		return "", common.ErrorInternal
	}
	return generateToken(userID, kc.secret, kc.validity)
}

// Verify parses and validates a token under the given kind's secret and
// returns the embedded user ID. Malformed, tampered, expired, and
// wrong-kind tokens all match common.ErrorInvalidToken with errors.Is; the
// returned error message carries the underlying cause for logging.
func (s *TokenService) Verify(kind TokenKind, tokenString string) (string, error) {
	kc, ok := s.kinds[kind]
	if !ok {
		return "", common.ErrorInternal
	}
	userID, err := getUserIDFromToken(tokenString, kc.secret)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrorInvalidToken, err)
	}
	return userID, nil
}

func generateToken(userID string, secretKey []byte, validityDuration time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validityDuration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		UserID: userID,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

func getUserIDFromToken(tokenString string, secretKey []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}

	if !token.Valid {
		return "", common.ErrorInvalidToken
	}

	return claims.UserID, nil
}
