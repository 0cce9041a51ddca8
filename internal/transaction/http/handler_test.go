package http

import (
	"bytes"
	"context"
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

	cryptoDomain "github.com/allisson/txgateway/internal/crypto/domain"
	"github.com/allisson/txgateway/internal/device"
	sessionDomain "github.com/allisson/txgateway/internal/session/domain"
	sessionHTTP "github.com/allisson/txgateway/internal/session/http"
	transactionDomain "github.com/allisson/txgateway/internal/transaction/domain"
	"github.com/allisson/txgateway/internal/transaction/http/dto"
	transactionService "github.com/allisson/txgateway/internal/transaction/service"
	"github.com/allisson/txgateway/internal/transaction/usecase/mocks"
)

func setupTestHandler(t *testing.T) (*TransactionHandler, *mocks.MockTransactionUseCase) {
	t.Helper()

	gin.SetMode(gin.TestMode)
	mockUseCase := &mocks.MockTransactionUseCase{}
	t.Cleanup(func() { mockUseCase.AssertExpectations(t) })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewTransactionHandler(mockUseCase, logger), mockUseCase
}

func createTestContext(t *testing.T, body any, authenticated bool) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()

	var raw []byte
	switch b := body.(type) {
	case string:
		raw = []byte(b)
	default:
		var err error
		raw, err = json.Marshal(b)
		require.NoError(t, err)
	}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/teller/main/transactions", bytes.NewReader(raw))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Request.RemoteAddr = "10.0.0.1:5000"

	ctx := device.WithInfo(c.Request.Context(), device.Info{DeviceType: "smartphone", ClientIP: "10.0.0.1"})
	if authenticated {
		ctx = sessionHTTP.WithClaims(ctx, &sessionDomain.Claims{
			Username:  "jdoe",
			ExpiresAt: time.Now().Add(time.Minute),
		}, "raw-token")
	}
	c.Request = c.Request.WithContext(ctx)
	return c, w
}

func validEnvelope() dto.EnvelopeRequest {
	return dto.EnvelopeRequest{Payload: &cryptoDomain.Envelope{SecureKeys: "a2V5cw==", Data: "abcd", PublicKey: "jwk"}}
}

func TestTransactionHandler_TransactHandler(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		handler, mockUseCase := setupTestHandler(t)
		sealed := &cryptoDomain.Envelope{SecureKeys: "reply", Data: "ffff"}

		mockUseCase.On("HandleEnvelope",
			mock.Anything,
			validEnvelope().Payload,
			mock.MatchedBy(func(caller *transactionDomain.Caller) bool {
				return caller.Token == "raw-token" &&
					caller.TokenSubject == "jdoe" &&
					caller.ClientIP == "10.0.0.1" &&
					caller.Device.DeviceType == "smartphone"
			}),
		).Return(sealed, nil).Once()

		c, w := createTestContext(t, validEnvelope(), true)
		handler.TransactHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)
		var response dto.EnvelopeResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, sealed, response.Message)
	})

	t.Run("Error_MalformedJSON", func(t *testing.T) {
		handler, _ := setupTestHandler(t)

		c, w := createTestContext(t, "{", true)
		handler.TransactHandler(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Error_MissingEnvelopeParts", func(t *testing.T) {
		handler, _ := setupTestHandler(t)

		c, w := createTestContext(t, dto.EnvelopeRequest{Payload: &cryptoDomain.Envelope{Data: "abcd"}}, true)
		handler.TransactHandler(c)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("Error_EnvelopeDecode", func(t *testing.T) {
		handler, mockUseCase := setupTestHandler(t)
		mockUseCase.On("HandleEnvelope", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, cryptoDomain.ErrEnvelopeDecode).Once()

		c, w := createTestContext(t, validEnvelope(), true)
		handler.TransactHandler(c)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestTransactionHandler_PrintReceiptHandler(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		handler, mockUseCase := setupTestHandler(t)
		mockUseCase.On("PrintReceipt", mock.Anything, mock.Anything, mock.Anything).
			Return(&transactionService.RawResponse{
				StatusCode:  http.StatusOK,
				ContentType: "application/pdf",
				Body:        []byte("%PDF"),
			}, nil).Once()

		c, w := createTestContext(t, validEnvelope(), true)
		handler.PrintReceiptHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
		assert.Equal(t, "%PDF", w.Body.String())
	})

	t.Run("Error_BackendUnreachable", func(t *testing.T) {
		handler, mockUseCase := setupTestHandler(t)
		mockUseCase.On("PrintReceipt", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, transactionDomain.ErrBackendUnreachable).Once()

		c, w := createTestContext(t, validEnvelope(), true)
		handler.PrintReceiptHandler(c)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestCallerFrom(t *testing.T) {
	gin.SetMode(gin.TestMode)

	c, _ := createTestContext(t, validEnvelope(), false)
	caller := CallerFrom(c)
	assert.Empty(t, caller.Token)
	assert.Empty(t, caller.TokenSubject)
	assert.Equal(t, "10.0.0.1", caller.ClientIP)

	c.Request = c.Request.WithContext(context.Background())
	assert.Equal(t, device.Info{}, CallerFrom(c).Device)
}
