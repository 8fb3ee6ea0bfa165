package services

import (
	"context"
	"database/sql"
	"errors"

	"github.com/avolkovs/authcore/internal/common"
	"github.com/avolkovs/authcore/internal/logging"
	"github.com/avolkovs/authcore/internal/server/models"
	"github.com/avolkovs/authcore/internal/server/repositories/repomanager"
	"github.com/avolkovs/authcore/internal/server/totp"
)

// EnrollmentSetup is handed to the caller so it can render the provisioning
// URI as a QR code; rendering itself is outside the core.
type EnrollmentSetup struct {
	Secret          string
	ProvisioningURI string
}

// TwoFactorService manages the two-phase TOTP enrollment: a generated
// secret stays pending until the user proves possession with a valid code,
// only then does it start gating logins.
type TwoFactorService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	totp        *totp.Service
	logger      logging.Logger
}

func NewTwoFactorService(db *sql.DB, m repomanager.RepositoryManager,
	totpService *totp.Service, logger logging.Logger) *TwoFactorService {
	return &TwoFactorService{
		db:          db,
		repomanager: m,
		totp:        totpService,
		logger:      logger.With("module", "twofasvc"),
	}
}

// GenerateSetup starts (or restarts) enrollment for the user: a fresh secret
// is stored as pending and the previous pending secret, if any, is replaced.
// Login behavior does not change until VerifySetup succeeds.
func (s *TwoFactorService) GenerateSetup(ctx context.Context, userID string) (*EnrollmentSetup, error) {
	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		s.logger.Error(ctx, "user lookup failed", "err", err)
		return nil, common.ErrorInternal
	}

	secret, uri, err := s.totp.GenerateEnrollment(user.Email)
	if err != nil {
		s.logger.Error(ctx, "enrollment generation failed", "err", err)
		return nil, common.ErrorInternal
	}

	if err := repo.SetTwoFactorPending(ctx, user.ID, secret); err != nil {
		s.logger.Error(ctx, "storing pending secret failed", "err", err)
		return nil, common.ErrorInternal
	}

	return &EnrollmentSetup{Secret: secret, ProvisioningURI: uri}, nil
}

// VerifySetup confirms enrollment. A wrong code leaves the pending secret
// untouched so the user can retry; a correct one promotes it and flips
// two-factor on for every future login.
func (s *TwoFactorService) VerifySetup(ctx context.Context, userID, code string) error {
	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorTwoFactorNotEnabled
		}
		s.logger.Error(ctx, "user lookup failed", "err", err)
		return common.ErrorInternal
	}

	if user.TwoFactor.State != models.TwoFactorPending {
		return common.ErrorTwoFactorNotEnabled
	}

	if !s.totp.VerifyCode(user.TwoFactor.Secret, code) {
		return common.ErrorInvalidTOTPCode
	}

	if err := repo.ConfirmTwoFactor(ctx, user.ID); err != nil {
		s.logger.Error(ctx, "confirming enrollment failed", "err", err)
		return common.ErrorInternal
	}
	return nil
}

// Disable turns two-factor off and discards any stored secret, pending or
// confirmed. The caller already holds a valid access token; no extra
// re-authentication challenge is required.
func (s *TwoFactorService) Disable(ctx context.Context, userID string) error {
	repo := s.repomanager.Users(s.db)
	if err := repo.DisableTwoFactor(ctx, userID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		s.logger.Error(ctx, "disabling two-factor failed", "err", err)
		return common.ErrorInternal
	}
	return nil
}
