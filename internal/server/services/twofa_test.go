package services

import (
	"context"
	"strings"
	"testing"

	"github.com/avolkovs/authcore/internal/common"
	"github.com/avolkovs/authcore/internal/server/auth"
	"github.com/avolkovs/authcore/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signupUser(t *testing.T, env *testEnv, email string) string {
	t.Helper()
	pair, err := env.auth.Signup(context.Background(), "", email, "secret1")
	require.NoError(t, err)
	userID, err := env.tokens.Verify(auth.TokenAccess, pair.AccessToken)
	require.NoError(t, err)
	return userID
}

func TestGenerateSetup_StoresPendingSecret(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	userID := signupUser(t, env, "a@x.com")

	setup, err := env.twofa.GenerateSetup(ctx, userID)
	require.NoError(t, err)
	require.NotEmpty(t, setup.Secret)
	assert.True(t, strings.HasPrefix(setup.ProvisioningURI, "otpauth://totp/"))
	assert.Contains(t, setup.ProvisioningURI, "a%40x.com")

	u, err := env.repo.GetByID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, models.TwoFactorPending, u.TwoFactor.State)
	assert.Equal(t, setup.Secret, u.TwoFactor.Secret)
}

func TestGenerateSetup_RestartReplacesPendingSecret(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	userID := signupUser(t, env, "a@x.com")

	first, err := env.twofa.GenerateSetup(ctx, userID)
	require.NoError(t, err)
	second, err := env.twofa.GenerateSetup(ctx, userID)
	require.NoError(t, err)
	require.NotEqual(t, first.Secret, second.Secret)

	u, err := env.repo.GetByID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, second.Secret, u.TwoFactor.Secret)
}

func TestGenerateSetup_UnknownUser(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.twofa.GenerateSetup(context.Background(), "missing")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestVerifySetup_PromotesPendingSecret(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	userID := signupUser(t, env, "a@x.com")

	setup, err := env.twofa.GenerateSetup(ctx, userID)
	require.NoError(t, err)

	require.NoError(t, env.twofa.VerifySetup(ctx, userID, currentCode(t, setup.Secret)))

	u, err := env.repo.GetByID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, models.TwoFactorEnabled, u.TwoFactor.State)
	assert.Equal(t, setup.Secret, u.TwoFactor.Secret)
}

func TestVerifySetup_WrongCodeKeepsPendingSecret(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	userID := signupUser(t, env, "a@x.com")

	setup, err := env.twofa.GenerateSetup(ctx, userID)
	require.NoError(t, err)

	err = env.twofa.VerifySetup(ctx, userID, "000000")
	assert.ErrorIs(t, err, common.ErrorInvalidTOTPCode)

	// the pending secret survives, so the user can retry
	u, err := env.repo.GetByID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, models.TwoFactorPending, u.TwoFactor.State)
	assert.Equal(t, setup.Secret, u.TwoFactor.Secret)

	require.NoError(t, env.twofa.VerifySetup(ctx, userID, currentCode(t, setup.Secret)))
}

func TestVerifySetup_WithoutEnrollment(t *testing.T) {
	env := newTestEnv(t)
	userID := signupUser(t, env, "a@x.com")

	err := env.twofa.VerifySetup(context.Background(), userID, "123456")
	assert.ErrorIs(t, err, common.ErrorTwoFactorNotEnabled)

	err = env.twofa.VerifySetup(context.Background(), "missing", "123456")
	assert.ErrorIs(t, err, common.ErrorTwoFactorNotEnabled)
}

func TestDisable_ClearsSecretAndFlag(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	userID := signupUser(t, env, "a@x.com")

	setup, err := env.twofa.GenerateSetup(ctx, userID)
	require.NoError(t, err)
	require.NoError(t, env.twofa.VerifySetup(ctx, userID, currentCode(t, setup.Secret)))

	require.NoError(t, env.twofa.Disable(ctx, userID))

	u, err := env.repo.GetByID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, models.TwoFactorOff, u.TwoFactor.State)
	assert.Empty(t, u.TwoFactor.Secret)

	// logins go back to password-only
	res, err := env.auth.Login(ctx, "a@x.com", "secret1")
	require.NoError(t, err)
	assert.False(t, res.Requires2FA)
	assert.NotNil(t, res.Tokens)
}

func TestDisable_UnknownUser(t *testing.T) {
	env := newTestEnv(t)

	err := env.twofa.Disable(context.Background(), "missing")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}
