// Package services contains the server-side business logic. This file
// implements AuthService, the state machine that moves a login attempt from
// anonymous through password verification and an optional two-factor
// challenge to a full session, and that drives the password-reset lifecycle.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/avolkovs/authcore/internal/common"
	"github.com/avolkovs/authcore/internal/dbx"
	"github.com/avolkovs/authcore/internal/logging"
	"github.com/avolkovs/authcore/internal/server/auth"
	"github.com/avolkovs/authcore/internal/server/models"
	"github.com/avolkovs/authcore/internal/server/notify"
	"github.com/avolkovs/authcore/internal/server/repositories/repomanager"
	"github.com/avolkovs/authcore/internal/server/totp"
	"github.com/google/uuid"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// LoginResult is the outcome of a successful password check. When the user
// has two-factor authentication enabled, Requires2FA is true, TempToken
// carries the short-lived challenge credential, and Tokens is nil; the
// session tokens are only minted after the TOTP code checks out.
type LoginResult struct {
	Requires2FA bool
	TempToken   string
	Tokens      *TokenPair
}

// AuthService provides signup, login, token refresh, and password reset.
// It holds no per-request state; the user store is the only shared mutable
// resource.
type AuthService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	tokens      *auth.TokenService
	resetTokens *auth.ResetTokenSource
	totp        *totp.Service
	notifier    notify.ResetTokenNotifier
	logger      logging.Logger

	publicBaseURL string
}

// NewAuthService constructs an AuthService. All signing material reaches the
// service through the injected TokenService; nothing is read from ambient
// state.
func NewAuthService(db *sql.DB, m repomanager.RepositoryManager,
	tokens *auth.TokenService, resetTokens *auth.ResetTokenSource,
	totpService *totp.Service, notifier notify.ResetTokenNotifier,
	logger logging.Logger, publicBaseURL string) *AuthService {
	return &AuthService{
		db:            db,
		repomanager:   m,
		tokens:        tokens,
		resetTokens:   resetTokens,
		totp:          totpService,
		notifier:      notifier,
		logger:        logger.With("module", "authsvc"),
		publicBaseURL: publicBaseURL,
	}
}

// Signup registers a new user and immediately opens a session. An already
// registered email yields common.ErrorAlreadyExists; the database's unique
// index on email is the consistency guarantee, there is no separate
// existence check racing against the insert.
func (s *AuthService) Signup(ctx context.Context, name, email, password string) (*TokenPair, error) {
	if email == "" || password == "" {
		return nil, common.ErrorValidation
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		s.logger.Error(ctx, "password hashing failed", "err", err)
		return nil, common.ErrorInternal
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
	}

	repo := s.repomanager.Users(s.db)
	if _, err := repo.Create(ctx, user); err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, common.ErrorAlreadyExists
		}
		s.logger.Error(ctx, "user creation failed", "err", err)
		return nil, common.ErrorInternal
	}

	return s.mintPair(ctx, user.ID)
}

// Login verifies credentials. Unknown email and wrong password produce the
// same ErrorInvalidCredentials so callers cannot enumerate accounts; the
// real cause goes to the log only. With two-factor enabled the result is a
// temp token instead of a session.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if email == "" || password == "" {
		return nil, common.ErrorValidation
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.logger.Info(ctx, "login rejected", "cause", "unknown email")
			return nil, common.ErrorInvalidCredentials
		}
		s.logger.Error(ctx, "user lookup failed", "err", err)
		return nil, common.ErrorInternal
	}

	if !auth.CheckPassword(user.PasswordHash, password) {
		s.logger.Info(ctx, "login rejected", "cause", "wrong password", "user_id", user.ID)
		return nil, common.ErrorInvalidCredentials
	}

	if user.TwoFactor.Enabled() {
		tempToken, err := s.tokens.Mint(auth.TokenTemp2FA, user.ID)
		if err != nil {
			s.logger.Error(ctx, "temp token minting failed", "err", err)
			return nil, common.ErrorInternal
		}
		return &LoginResult{Requires2FA: true, TempToken: tempToken}, nil
	}

	pair, err := s.mintPair(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Tokens: pair}, nil
}

// CompleteTwoFactorLogin finishes a two-factor login. userID must come from
// a temp token the transport layer has already verified under the temp-2FA
// secret; the service trusts it. A valid code turns the pending challenge
// into a full session.
func (s *AuthService) CompleteTwoFactorLogin(ctx context.Context, userID, code string) (*TokenPair, error) {
	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorTwoFactorNotEnabled
		}
		s.logger.Error(ctx, "user lookup failed", "err", err)
		return nil, common.ErrorInternal
	}

	if !user.TwoFactor.Enabled() {
		return nil, common.ErrorTwoFactorNotEnabled
	}

	if !s.totp.VerifyCode(user.TwoFactor.Secret, code) {
		s.logger.Info(ctx, "two-factor login rejected", "user_id", user.ID)
		return nil, common.ErrorInvalidTOTPCode
	}

	return s.mintPair(ctx, user.ID)
}

// Refresh exchanges a valid refresh token for a rotated access/refresh pair
// bound to the same user. Refresh tokens are stateless, so the old one is
// not tracked after rotation and stays usable until its natural expiry.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, common.ErrorInvalidToken
	}

	userID, err := s.tokens.Verify(auth.TokenRefresh, refreshToken)
	if err != nil {
		s.logger.Info(ctx, "refresh rejected", "err", err)
		return nil, common.ErrorInvalidToken
	}

	return s.mintPair(ctx, userID)
}

// ForgotPassword starts a reset flow. It reports success whether or not the
// email is registered, so it leaks nothing about account existence; for a
// known user it stores a fresh single-use token and hands the reset link to
// the notification sink.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	if email == "" {
		return common.ErrorValidation
	}

	var token string
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)
		user, err := repo.GetByEmail(ctx, email)
		if err != nil {
			return err
		}

		tok, exp, err := s.resetTokens.Generate()
		if err != nil {
			return err
		}
		if err := repo.SetResetToken(ctx, user.ID, tok, exp); err != nil {
			return err
		}
		token = tok
		return nil
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// Same outcome as success from the caller's perspective.
			s.logger.Info(ctx, "password reset requested for unknown email")
			return nil
		}
		s.logger.Error(ctx, "password reset setup failed", "err", err)
		return common.ErrorInternal
	}

	link := fmt.Sprintf("%s/reset-password?token=%s", s.publicBaseURL, token)
	if err := s.notifier.SendPasswordReset(ctx, email, link); err != nil {
		// The token is already stored; a delivery failure must not reveal
		// anything either, but it is worth an operator's attention.
		s.logger.Error(ctx, "reset link delivery failed", "err", err)
	}
	return nil
}

// ResetPassword consumes a reset token. The store performs the match,
// expiry check, password swap, and token clearing in one atomic step, which
// makes the token single-use.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if token == "" || newPassword == "" {
		return common.ErrorValidation
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		s.logger.Error(ctx, "password hashing failed", "err", err)
		return common.ErrorInternal
	}

	repo := s.repomanager.Users(s.db)
	if err := repo.ConsumeResetToken(ctx, token, hash); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorInvalidResetToken
		}
		s.logger.Error(ctx, "password reset failed", "err", err)
		return common.ErrorInternal
	}
	return nil
}

// CurrentUser returns the profile for a verified access-token user ID.
func (s *AuthService) CurrentUser(ctx context.Context, userID string) (*models.User, error) {
	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		s.logger.Error(ctx, "user lookup failed", "err", err)
		return nil, common.ErrorInternal
	}
	return user, nil
}

func (s *AuthService) mintPair(ctx context.Context, userID string) (*TokenPair, error) {
	access, err := s.tokens.Mint(auth.TokenAccess, userID)
	if err != nil {
		s.logger.Error(ctx, "access token minting failed", "err", err)
		return nil, common.ErrorInternal
	}
	refresh, err := s.tokens.Mint(auth.TokenRefresh, userID)
	if err != nil {
		s.logger.Error(ctx, "refresh token minting failed", "err", err)
		return nil, common.ErrorInternal
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
