// Package http provides the sealed transaction routes.
package http

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"github.com/allisson/txgateway/internal/device"
	"github.com/allisson/txgateway/internal/httputil"
	sessionHTTP "github.com/allisson/txgateway/internal/session/http"
	transactionDomain "github.com/allisson/txgateway/internal/transaction/domain"
	"github.com/allisson/txgateway/internal/transaction/http/dto"
	transactionUseCase "github.com/allisson/txgateway/internal/transaction/usecase"
	customValidation "github.com/allisson/txgateway/internal/validation"
)

// TransactionHandler handles sealed transaction requests.
type TransactionHandler struct {
	transactions transactionUseCase.TransactionUseCase
	logger       *slog.Logger
}

// NewTransactionHandler creates a TransactionHandler.
func NewTransactionHandler(transactions transactionUseCase.TransactionUseCase, logger *slog.Logger) *TransactionHandler {
	return &TransactionHandler{transactions: transactions, logger: logger}
}

// CallerFrom collects the caller identity set by the authentication and device
// middlewares. Token fields are empty on unauthenticated routes.
func CallerFrom(c *gin.Context) *transactionDomain.Caller {
	ctx := c.Request.Context()
	caller := &transactionDomain.Caller{
		ClientIP: c.ClientIP(),
		Device:   device.FromContext(ctx),
	}
	if claims, ok := sessionHTTP.GetClaims(ctx); ok {
		caller.TokenSubject = claims.Username
	}
	if token, ok := sessionHTTP.GetToken(ctx); ok {
		caller.Token = token
	}
	return caller
}

// BindEnvelope parses and validates {"payload": Envelope}. It writes the error
// response and returns false on failure.
func BindEnvelope(c *gin.Context, logger *slog.Logger) (*dto.EnvelopeRequest, bool) {
	var req dto.EnvelopeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, logger)
		return nil, false
	}
	if err := req.Validate(); err != nil {
		httputil.HandleErrorGin(c, customValidation.WrapValidationError(err), logger)
		return nil, false
	}
	return &req, true
}

// TransactHandler runs a sealed transaction.
// POST /{app}/main/transactions - Requires a bearer token.
// Returns 200 OK with the sealed feedback; business failures are inside the envelope.
func (h *TransactionHandler) TransactHandler(c *gin.Context) {
	req, ok := BindEnvelope(c, h.logger)
	if !ok {
		return
	}

	sealed, err := h.transactions.HandleEnvelope(c.Request.Context(), req.Payload, CallerFrom(c))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, dto.EnvelopeResponse{Message: sealed})
}

// PrintReceiptHandler streams a receipt document from the backend.
// POST /{app}/main/print-receipt - Requires a bearer token.
func (h *TransactionHandler) PrintReceiptHandler(c *gin.Context) {
	req, ok := BindEnvelope(c, h.logger)
	if !ok {
		return
	}

	resp, err := h.transactions.PrintReceipt(c.Request.Context(), req.Payload, CallerFrom(c))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	contentType := resp.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Data(http.StatusOK, contentType, resp.Body)
}

// UploadHandler accepts a document upload for profile: a multipart form with
// a JSON "payload" field and up to profile.MaxFiles file parts.
// POST /{app}/main/<profile.Route> - Requires a bearer token.
// Returns 200 OK with the plain feedback, 422 when the files break the route rules.
func (h *TransactionHandler) UploadHandler(profile transactionDomain.UploadProfile) gin.HandlerFunc {
	return func(c *gin.Context) {
		form, err := c.MultipartForm()
		if err != nil {
			httputil.HandleBadRequestGin(c, err, h.logger)
			return
		}
		defer func() {
			_ = form.RemoveAll()
		}()

		payload, err := uploadPayload(form.Value["payload"])
		if err != nil {
			httputil.HandleErrorGin(c, err, h.logger)
			return
		}

		fields := make([]string, 0, len(form.File))
		for field := range form.File {
			fields = append(fields, field)
		}
		sort.Strings(fields)

		var files []transactionDomain.UploadedFile
		for _, field := range fields {
			for _, fh := range form.File[field] {
				files = append(files, transactionDomain.UploadedFile{
					FieldName: field,
					FileName:  fh.Filename,
					MimeType:  fh.Header.Get("Content-Type"),
					Size:      fh.Size,
					Open: func() (io.ReadCloser, error) {
						return fh.Open()
					},
				})
			}
		}

		feedback, err := h.transactions.Upload(c.Request.Context(), &transactionDomain.UploadInput{
			Profile: profile,
			Payload: payload,
			Files:   files,
		}, CallerFrom(c))
		if err != nil {
			httputil.HandleErrorGin(c, err, h.logger)
			return
		}
		c.JSON(http.StatusOK, feedback)
	}
}

// uploadPayload decodes the "payload" form field. A missing field is an empty payload.
func uploadPayload(values []string) (map[string]any, error) {
	payload := map[string]any{}
	if len(values) == 0 || values[0] == "" {
		return payload, nil
	}
	if err := json.Unmarshal([]byte(values[0]), &payload); err != nil {
		return nil, fmt.Errorf("%w: payload must be a JSON object", transactionDomain.ErrUploadRejected)
	}
	return payload, nil
}
