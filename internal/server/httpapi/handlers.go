package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/avolkovs/authcore/internal/common"
)

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type totpCodeRequest struct {
	Code string `json:"code"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type accessTokenResponse struct {
	AccessToken string `json:"accessToken"`
}

type twoFactorChallengeResponse struct {
	Requires2FA bool   `json:"requires2FA"`
	TempToken   string `json:"tempToken"`
}

type enrollmentResponse struct {
	Secret          string `json:"secret"`
	ProvisioningURI string `json:"provisioningUri"`
}

type userResponse struct {
	ID               string `json:"id"`
	Email            string `json:"email"`
	Name             string `json:"name"`
	TwoFactorEnabled bool   `json:"twoFactorEnabled"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !s.decode(w, r, &req) {
		return
	}

	pair, err := s.auth.Signup(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.setRefreshCookie(w, pair.RefreshToken)
	s.writeJSON(w, http.StatusCreated, accessTokenResponse{AccessToken: pair.AccessToken})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !s.decode(w, r, &req) {
		return
	}

	result, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if result.Requires2FA {
		s.writeJSON(w, http.StatusOK, twoFactorChallengeResponse{
			Requires2FA: true,
			TempToken:   result.TempToken,
		})
		return
	}

	s.setRefreshCookie(w, result.Tokens.RefreshToken)
	s.writeJSON(w, http.StatusOK, accessTokenResponse{AccessToken: result.Tokens.AccessToken})
}

func (s *Server) handleTwoFactorLogin(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		s.writeError(w, r, common.ErrorInvalidToken)
		return
	}

	var req totpCodeRequest
	if !s.decode(w, r, &req) {
		return
	}

	pair, err := s.auth.CompleteTwoFactorLogin(r.Context(), userID, req.Code)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.setRefreshCookie(w, pair.RefreshToken)
	s.writeJSON(w, http.StatusOK, accessTokenResponse{AccessToken: pair.AccessToken})
}

// handleLogout clears the refresh cookie. There is no server-side session to
// tear down; the access token simply runs out.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.clearRefreshCookie(w)
	s.writeJSON(w, http.StatusOK, messageResponse{Message: "logged out"})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(refreshCookieName)
	if err != nil {
		s.writeError(w, r, common.ErrorInvalidToken)
		return
	}

	pair, err := s.auth.Refresh(r.Context(), cookie.Value)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.setRefreshCookie(w, pair.RefreshToken)
	s.writeJSON(w, http.StatusOK, accessTokenResponse{AccessToken: pair.AccessToken})
}

func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if !s.decode(w, r, &req) {
		return
	}

	if err := s.auth.ForgotPassword(r.Context(), req.Email); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, messageResponse{
		Message: "If the user exists, a reset link has been sent.",
	})
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if !s.decode(w, r, &req) {
		return
	}
	token := req.Token
	if token == "" {
		token = r.URL.Query().Get("token")
	}

	if err := s.auth.ResetPassword(r.Context(), token, req.Password); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, messageResponse{Message: "password updated"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		s.writeError(w, r, common.ErrorInvalidToken)
		return
	}

	user, err := s.auth.CurrentUser(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, userResponse{
		ID:               user.ID,
		Email:            user.Email,
		Name:             user.Name,
		TwoFactorEnabled: user.TwoFactor.Enabled(),
	})
}

func (s *Server) handleTwoFactorSetup(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		s.writeError(w, r, common.ErrorInvalidToken)
		return
	}

	setup, err := s.twofa.GenerateSetup(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, enrollmentResponse{
		Secret:          setup.Secret,
		ProvisioningURI: setup.ProvisioningURI,
	})
}

func (s *Server) handleTwoFactorVerifySetup(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		s.writeError(w, r, common.ErrorInvalidToken)
		return
	}

	var req totpCodeRequest
	if !s.decode(w, r, &req) {
		return
	}

	if err := s.twofa.VerifySetup(r.Context(), userID, req.Code); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, messageResponse{Message: "two-factor authentication enabled"})
}

func (s *Server) handleTwoFactorDisable(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		s.writeError(w, r, common.ErrorInvalidToken)
		return
	}

	if err := s.twofa.Disable(r.Context(), userID); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, messageResponse{Message: "two-factor authentication disabled"})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.writeError(w, r, common.ErrorValidation)
		return false
	}
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error(context.Background(), "response encoding failed", "err", err)
	}
}

type errorResponse struct {
	Message string `json:"message"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, common.ErrorValidation):
		status = http.StatusBadRequest
	case errors.Is(err, common.ErrorAlreadyExists):
		status = http.StatusConflict
	case errors.Is(err, common.ErrorInvalidCredentials),
		errors.Is(err, common.ErrorInvalidToken),
		errors.Is(err, common.ErrorInvalidTOTPCode):
		status = http.StatusUnauthorized
	case errors.Is(err, common.ErrorTwoFactorNotEnabled),
		errors.Is(err, common.ErrorInvalidResetToken):
		status = http.StatusBadRequest
	case errors.Is(err, common.ErrorNotFound):
		status = http.StatusNotFound
	}

	if status == http.StatusInternalServerError {
		s.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "err", err)
		err = common.ErrorInternal
	}

	s.writeJSON(w, status, errorResponse{Message: err.Error()})
}
