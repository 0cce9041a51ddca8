// Package domain defines session records, token claims and the binding rules
// that tie a bearer token to a user and an IP address.
package domain

import (
	"time"
)

// Field names of a session record in the cache.
const (
	FieldIPAddress      = "ipAddress"
	FieldAccessToken    = "accessToken"
	FieldUsername       = "username"
	FieldTimestamp      = "timestamp"
	FieldAccountDetails = "accountDetails"
	FieldFloatAccount   = "floatAccount"
	FieldRequestDetails = "requestDetails"
)

// Record is the cached authentication state of a signed-in user. Each field is
// encrypted independently before it is written.
type Record struct {
	IPAddress      string
	AccessToken    string
	Username       string
	Timestamp      string
	AccountDetails map[string]any
	FloatAccount   string
	RequestDetails map[string]any
}

// Claims are the verified contents of a session token.
type Claims struct {
	Username  string
	ID        string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// SignInInput contains the data written to a new session.
type SignInInput struct {
	Username       string
	IPAddress      string
	AccountDetails map[string]any
	FloatAccount   string
}

// SignInOutput is the issued token.
type SignInOutput struct {
	Token  string
	Claims *Claims
}

// BindInput is what a protected call presents.
type BindInput struct {
	// Token is the raw bearer token and TokenSubject its verified username.
	Token        string
	TokenSubject string
	// ClaimedUsername is the username sent inside the request payload.
	ClaimedUsername string
	IPAddress       string
}

// Binding is the outcome of a successful bind.
type Binding struct {
	Record       *Record
	Meta         map[string]any
	FloatAccount string
}

// Matches reports whether the record binds the presented credentials: token,
// IP address and both usernames must all be equal to the stored values.
func (r *Record) Matches(in *BindInput, tokenEqual func(a, b string) bool) bool {
	if r == nil || in == nil {
		return false
	}
	return r.Username != "" &&
		tokenEqual(in.Token, r.AccessToken) &&
		in.IPAddress == r.IPAddress &&
		in.ClaimedUsername == r.Username &&
		in.TokenSubject == r.Username
}
