// Package domain defines transaction requests, backend exchanges and the
// feedback returned to clients.
package domain

import (
	"encoding/json"
	"fmt"

	"github.com/allisson/txgateway/internal/device"
)

// Outcomes of a backend exchange, used as log attributes and metric statuses.
const (
	OutcomeSuccess     = "success"
	OutcomeRejected    = "rejected"
	OutcomeUnreachable = "unreachable"
	OutcomeError       = "error"
)

// Request is the decrypted client payload.
type Request struct {
	TransactionType string         `json:"transactionType"`
	Payload         map[string]any `json:"payload"`
	// RequestID is echoed back in the sealed response. Clients send strings or numbers.
	RequestID any `json:"requestId,omitempty"`
	// Attachments are stored uploads. Only the upload intake sets them; they are
	// never decoded from a client payload.
	Attachments []Attachment `json:"-"`
}

// ParseRequest decodes a decrypted payload. A missing payload object is empty.
func ParseRequest(plaintext []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(plaintext, &req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPayloadDecryption, err)
	}
	if req.Payload == nil {
		req.Payload = map[string]any{}
	}
	return &req, nil
}

// Username returns the username claimed inside the payload.
func (r *Request) Username() string {
	s, _ := r.Payload["username"].(string)
	return s
}

// Feedback is the uniform client-facing result of a transaction.
type Feedback struct {
	Success bool `json:"success"`
	Status  int  `json:"status"`
	// Message is the status text, or the backend error when one was extracted.
	// Backend errors configured as "responseData" are whole documents.
	Message any `json:"message"`
	// Error carries the validation or configuration failure text.
	Error string `json:"error,omitempty"`
	Data  any    `json:"data,omitempty"`
}

// Attachment describes a stored upload forwarded in a multipart body. Path is
// relative to the upload directory.
type Attachment struct {
	FieldName string `json:"fieldname"`
	FileName  string `json:"filename"`
	MimeType  string `json:"mimetype"`
	Path      string `json:"path"`
}

// OutboundRequest is a fully resolved backend call.
type OutboundRequest struct {
	Method  string            `json:"method"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers"`
	// Data is the body as it is logged; Body is what goes on the wire.
	Data any    `json:"data"`
	Body []byte `json:"-"`
}

// Timing records when a backend call was sent and answered.
type Timing struct {
	Sent     string `json:"sent"`
	Received string `json:"received"`
	Latency  string `json:"latency"`
}

// Exchange is the normalized outcome of one backend call.
type Exchange struct {
	Success bool `json:"success"`
	Code    int  `json:"code,omitempty"`
	Data    any  `json:"data"`
	// Message is the status code reported to the client.
	Message      int              `json:"message"`
	ErrorMessage any              `json:"errorMessage,omitempty"`
	NotReceived  bool             `json:"requestNotRec,omitempty"`
	Request      *OutboundRequest `json:"request,omitempty"`
	RequestTime  Timing           `json:"requestTime"`

	Outcome string `json:"-"`
	Err     error  `json:"-"`
}

// ErrorText returns the extracted backend error when it is non-empty.
func (e *Exchange) ErrorText() (any, bool) {
	switch v := e.ErrorMessage.(type) {
	case nil:
		return nil, false
	case string:
		return v, v != ""
	default:
		return v, true
	}
}

// Reply is the sealed response body: the feedback plus the echoed request id.
type Reply struct {
	Feedback
	RequestID any `json:"requestId,omitempty"`
}

// Caller identifies who sent a transaction. Token and TokenSubject are empty on
// routes that skip bearer authentication.
type Caller struct {
	Token        string
	TokenSubject string
	ClientIP     string
	Device       device.Info
}
