package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/schoolhub-api/internal/models"
	"github.com/noah-isme/schoolhub-api/internal/service"
	"github.com/noah-isme/schoolhub-api/pkg/response"
)

type authService interface {
	Login(ctx context.Context, req service.LoginRequest) (*models.Identity, error)
}

type passwordService interface {
	RequestOTP(ctx context.Context, req service.OTPRequest) error
	ResendOTP(ctx context.Context, req service.OTPRequest) error
	VerifyOTP(ctx context.Context, req service.VerifyOTPRequest) error
}

// AuthHandler exposes login and the password reset flow.
type AuthHandler struct {
	auth      authService
	passwords passwordService
}

// NewAuthHandler constructs AuthHandler.
func NewAuthHandler(auth authService, passwords passwordService) *AuthHandler {
	return &AuthHandler{auth: auth, passwords: passwords}
}

// Login godoc
// @Summary Check credentials
// @Description Returns the caller identity to echo in X-Actor-Id, X-Actor-Role and X-School-Id.
// @Tags Auth
// @Accept json
// @Produce json
// @Param payload body service.LoginRequest true "Credentials"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req service.LoginRequest
	if !bindJSON(c, &req) {
		return
	}
	identity, err := h.auth.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, identity, nil)
}

// RequestOTP godoc
// @Summary Email a password reset code
// @Tags Auth
// @Accept json
// @Produce json
// @Param payload body service.OTPRequest true "Account"
// @Success 200 {object} response.Envelope
// @Router /password/request-otp [post]
func (h *AuthHandler) RequestOTP(c *gin.Context) {
	var req service.OTPRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.passwords.RequestOTP(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "reset code sent", nil)
}

// ResendOTP godoc
// @Summary Email a fresh password reset code
// @Tags Auth
// @Accept json
// @Produce json
// @Param payload body service.OTPRequest true "Account"
// @Success 200 {object} response.Envelope
// @Router /password/resend-otp [post]
func (h *AuthHandler) ResendOTP(c *gin.Context) {
	var req service.OTPRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.passwords.ResendOTP(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "reset code resent", nil)
}

// VerifyOTP godoc
// @Summary Reset a password with an emailed code
// @Tags Auth
// @Accept json
// @Produce json
// @Param payload body service.VerifyOTPRequest true "Code and new password"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /password/verify-otp [post]
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req service.VerifyOTPRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.passwords.VerifyOTP(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "password updated", nil)
}
