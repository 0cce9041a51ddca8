// Package service provides the external checks run before a login reaches the backend.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/tidwall/gjson"

	authDomain "github.com/allisson/txgateway/internal/auth/domain"
)

// maxRecaptchaBody bounds the verification response read into memory.
const maxRecaptchaBody = 64 << 10

// HTTPDoer sends the verification request. *http.Client implements it.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// RecaptchaResult is the verification outcome and the provider's response document.
type RecaptchaResult struct {
	Success bool
	Data    map[string]any
}

// RecaptchaVerifier checks a client recaptcha token.
type RecaptchaVerifier interface {
	Verify(ctx context.Context, token, remoteIP string) (*RecaptchaResult, error)
}

type recaptchaVerifier struct {
	client   HTTPDoer
	endpoint string
	secret   string
}

// NewRecaptchaVerifier creates a verifier posting to endpoint with the server secret.
func NewRecaptchaVerifier(client HTTPDoer, endpoint, secret string) RecaptchaVerifier {
	return &recaptchaVerifier{client: client, endpoint: endpoint, secret: secret}
}

// Verify posts secret, response and remoteip as query parameters with an empty body.
func (r *recaptchaVerifier) Verify(ctx context.Context, token, remoteIP string) (*RecaptchaResult, error) {
	target, err := url.Parse(r.endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", authDomain.ErrRecaptchaFailed, err)
	}
	query := target.Query()
	query.Set("secret", r.secret)
	query.Set("response", token)
	query.Set("remoteip", remoteIP)
	target.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.String(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", authDomain.ErrRecaptchaFailed, err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", authDomain.ErrRecaptchaFailed, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRecaptchaBody))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", authDomain.ErrRecaptchaFailed, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", authDomain.ErrRecaptchaFailed, resp.StatusCode)
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: malformed response", authDomain.ErrRecaptchaFailed)
	}

	result := &RecaptchaResult{Success: gjson.GetBytes(body, "success").Bool()}
	_ = json.Unmarshal(body, &result.Data)
	return result, nil
}
