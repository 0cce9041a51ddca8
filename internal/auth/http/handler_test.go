package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/allisson/txgateway/internal/auth/usecase/mocks"
	cryptoDomain "github.com/allisson/txgateway/internal/crypto/domain"
	"github.com/allisson/txgateway/internal/device"
	sessionDomain "github.com/allisson/txgateway/internal/session/domain"
	sessionHTTP "github.com/allisson/txgateway/internal/session/http"
	transactionDomain "github.com/allisson/txgateway/internal/transaction/domain"
	"github.com/allisson/txgateway/internal/transaction/http/dto"
)

func setupTestHandler(t *testing.T) (*AuthHandler, *mocks.MockAuthUseCase) {
	t.Helper()

	gin.SetMode(gin.TestMode)
	mockUseCase := &mocks.MockAuthUseCase{}
	t.Cleanup(func() { mockUseCase.AssertExpectations(t) })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewAuthHandler(mockUseCase, logger), mockUseCase
}

func createTestContext(t *testing.T, body string, authenticated bool) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/teller/auth/login", bytes.NewReader([]byte(body)))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Request.RemoteAddr = "10.0.0.7:5000"

	ctx := device.WithInfo(c.Request.Context(), device.Info{DeviceType: "desktop", ClientIP: "10.0.0.7"})
	if authenticated {
		ctx = sessionHTTP.WithClaims(ctx, &sessionDomain.Claims{
			Username:  "jdoe",
			ExpiresAt: time.Now().Add(time.Minute),
		}, "raw-token")
	}
	c.Request = c.Request.WithContext(ctx)
	return c, w
}

func validBody(t *testing.T) string {
	t.Helper()
	raw, err := json.Marshal(dto.EnvelopeRequest{
		Payload: &cryptoDomain.Envelope{SecureKeys: "a2V5cw==", Data: "abcd", PublicKey: "jwk"},
	})
	require.NoError(t, err)
	return string(raw)
}

func TestAuthHandler_SealedFlows(t *testing.T) {
	tests := []struct {
		name          string
		method        string
		authenticated bool
		handle        func(h *AuthHandler, c *gin.Context)
	}{
		{"login", "Login", false, (*AuthHandler).LoginHandler},
		{"audit trail", "AuditTrail", false, (*AuthHandler).AuditTrailHandler},
		{"session auth", "VerifySession", true, (*AuthHandler).VerifySessionHandler},
		{"validate otp", "VerifyOTP", true, (*AuthHandler).ValidateOTPHandler},
		{"first login", "ChangePassword", true, (*AuthHandler).FirstLoginHandler},
		{"generate otp", "SendOTP", true, (*AuthHandler).GenerateOTPHandler},
	}

	for _, tt := range tests {
		t.Run(tt.name+" success", func(t *testing.T) {
			handler, mockUseCase := setupTestHandler(t)
			sealed := &cryptoDomain.Envelope{SecureKeys: "reply", Data: "ffff"}
			wantSubject := ""
			if tt.authenticated {
				wantSubject = "jdoe"
			}

			mockUseCase.On(tt.method,
				mock.Anything,
				&cryptoDomain.Envelope{SecureKeys: "a2V5cw==", Data: "abcd", PublicKey: "jwk"},
				mock.MatchedBy(func(caller *transactionDomain.Caller) bool {
					return caller.ClientIP == "10.0.0.7" &&
						caller.Device.DeviceType == "desktop" &&
						caller.TokenSubject == wantSubject
				}),
			).Return(sealed, nil).Once()

			c, w := createTestContext(t, validBody(t), tt.authenticated)
			tt.handle(handler, c)

			assert.Equal(t, http.StatusOK, w.Code)
			var response dto.EnvelopeResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
			assert.Equal(t, sealed, response.Message)
		})

		t.Run(tt.name+" envelope failure", func(t *testing.T) {
			handler, mockUseCase := setupTestHandler(t)
			mockUseCase.On(tt.method, mock.Anything, mock.Anything, mock.Anything).
				Return(nil, cryptoDomain.ErrEnvelopeDecode).Once()

			c, w := createTestContext(t, validBody(t), tt.authenticated)
			tt.handle(handler, c)

			assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		})
	}
}

func TestAuthHandler_LoginHandler_BadRequests(t *testing.T) {
	t.Run("Error_MalformedJSON", func(t *testing.T) {
		handler, _ := setupTestHandler(t)

		c, w := createTestContext(t, "{", false)
		handler.LoginHandler(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Error_MissingPayload", func(t *testing.T) {
		handler, _ := setupTestHandler(t)

		c, w := createTestContext(t, `{}`, false)
		handler.LoginHandler(c)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestAuthHandler_FetchPublicKeyHandler(t *testing.T) {
	handler, mockUseCase := setupTestHandler(t)
	mockUseCase.On("PublicKey").Return("LS0tLS1CRUdJTg==").Once()

	c, w := createTestContext(t, "", false)
	handler.FetchPublicKeyHandler(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "LS0tLS1CRUdJTg==", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
}
