// Package http provides the sign-in routes.
package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	authUseCase "github.com/allisson/txgateway/internal/auth/usecase"
	cryptoDomain "github.com/allisson/txgateway/internal/crypto/domain"
	"github.com/allisson/txgateway/internal/httputil"
	transactionDomain "github.com/allisson/txgateway/internal/transaction/domain"
	transactionHTTP "github.com/allisson/txgateway/internal/transaction/http"
	"github.com/allisson/txgateway/internal/transaction/http/dto"
)

// AuthHandler handles the sealed sign-in flows.
type AuthHandler struct {
	auth   authUseCase.AuthUseCase
	logger *slog.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(auth authUseCase.AuthUseCase, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, logger: logger}
}

type sealedFlow func(context.Context, *cryptoDomain.Envelope, *transactionDomain.Caller) (*cryptoDomain.Envelope, error)

// serve binds the envelope, runs flow and writes {"message": sealed}.
func (h *AuthHandler) serve(c *gin.Context, flow sealedFlow) {
	req, ok := transactionHTTP.BindEnvelope(c, h.logger)
	if !ok {
		return
	}

	sealed, err := flow(c.Request.Context(), req.Payload, transactionHTTP.CallerFrom(c))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, dto.EnvelopeResponse{Message: sealed})
}

// LoginHandler signs a user in.
// POST /{app}/auth/login - Unauthenticated, IP rate limited.
func (h *AuthHandler) LoginHandler(c *gin.Context) {
	h.serve(c, h.auth.Login)
}

// FetchPublicKeyHandler returns the gateway public key PEM, base64 encoded, as plain text.
// POST /{app}/auth/fetch-public-key - Unauthenticated.
func (h *AuthHandler) FetchPublicKeyHandler(c *gin.Context) {
	c.String(http.StatusOK, h.auth.PublicKey())
}

// AuditTrailHandler records a client activity.
// POST /{app}/auth/audit-trail and /{app}/main/audit-trail.
func (h *AuthHandler) AuditTrailHandler(c *gin.Context) {
	h.serve(c, h.auth.AuditTrail)
}

// VerifySessionHandler checks or ends the caller's session.
// POST /{app}/main/session-auth - Requires a bearer token.
func (h *AuthHandler) VerifySessionHandler(c *gin.Context) {
	h.serve(c, h.auth.VerifySession)
}

// ValidateOTPHandler checks a one-time password.
// POST /{app}/main/validate-otp - Requires a bearer token.
func (h *AuthHandler) ValidateOTPHandler(c *gin.Context) {
	h.serve(c, h.auth.VerifyOTP)
}

// FirstLoginHandler changes the first-login password.
// POST /{app}/main/first-login - Requires a bearer token.
func (h *AuthHandler) FirstLoginHandler(c *gin.Context) {
	h.serve(c, h.auth.ChangePassword)
}

// GenerateOTPHandler requests a new one-time password.
// POST /{app}/main/generate-otp - Requires a bearer token.
func (h *AuthHandler) GenerateOTPHandler(c *gin.Context) {
	h.serve(c, h.auth.SendOTP)
}
