// Package service builds backend requests from configuration, sends them and
// normalizes the responses.
package service

import (
	"context"
	"io"
	"net/http"

	settingsDomain "github.com/allisson/txgateway/internal/settings/domain"
	"github.com/allisson/txgateway/internal/template"
	transactionDomain "github.com/allisson/txgateway/internal/transaction/domain"
)

// Resolver resolves request templates. *template.Engine implements it.
type Resolver interface {
	Resolve(tmpl, payload map[string]any, rc template.Context) (map[string]any, error)
}

// PayloadCipher applies the "encrypt" permission to backend bodies.
type PayloadCipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// HTTPDoer sends backend requests. *http.Client implements it.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// AttachmentOpener reads stored uploads. *FileStore implements it.
type AttachmentOpener interface {
	Open(path string) (io.ReadCloser, error)
}

// Call is one transaction dispatched to the backend.
type Call struct {
	TransactionType string
	Endpoint        *settingsDomain.Endpoint
	// Params is the validated transaction data the template resolves against.
	Params map[string]any
	// Attachments are stored uploads sent as file parts of a multipart body.
	Attachments []transactionDomain.Attachment
}

// RawResponse is an unparsed backend answer.
type RawResponse struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// Dispatcher translates transactions into backend calls.
type Dispatcher interface {
	// GenerateRequest turns resolved request data into a concrete backend call:
	// payload format, permissions, data source, path parameters, headers
	// (fetching a bearer token when configured) and multipart or form bodies.
	// attachments are only read for multipart bodies.
	GenerateRequest(
		ctx context.Context,
		tree *settingsDomain.Tree,
		endpoint *settingsDomain.Endpoint,
		pathParams map[string]any,
		data map[string]any,
		attachments []transactionDomain.Attachment,
	) (*transactionDomain.OutboundRequest, error)

	// SendRequest resolves the endpoint template, applies pre-hooks, sends the
	// request and parses the answer. Failures are reported in the Exchange.
	SendRequest(ctx context.Context, tree *settingsDomain.Tree, call *Call) *transactionDomain.Exchange

	// ParseResponse decodes a backend answer and evaluates the endpoint's success rule.
	ParseResponse(
		tree *settingsDomain.Tree,
		endpoint *settingsDomain.Endpoint,
		statusCode int,
		body []byte,
	) *transactionDomain.Exchange

	// Fetch posts payload as JSON to a named data source and returns the raw answer.
	Fetch(ctx context.Context, tree *settingsDomain.Tree, source string, payload any) (*RawResponse, error)
}
