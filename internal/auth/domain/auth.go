// Package domain defines the sign-in flows that wrap backend transactions: login,
// one-time password checks, password changes, session verification and the
// customer audit trail.
package domain

import (
	"strings"
)

// Transaction types the auth flows run through the transaction pipeline.
const (
	TransactionLogin          = "login"
	TransactionVerifyOTP      = "verify-otp"
	TransactionVerifyTOTP     = "verify-totp"
	TransactionChangePassword = "change-password"
	TransactionSendOTP        = "send-otp"
	TransactionAuditTrail     = "customer-audit-trail"
)

// Event types specific to login rejections.
const (
	LevelBot    = "error-bot"
	LevelAccess = "error-access"
)

// Reply texts.
const (
	LoginFailedText          = "Login Failed. Try again.."
	LoginSuccessText         = "Login successful"
	VerificationSuccessText  = "Verification successful"
	SessionFailedText        = "session authentication failed"
	SessionSuccessTextFormat = "session authentication successful. User: %s"
	RequestFailedText        = "Request failed"

	// SessionID is the placeholder session id returned with every login.
	SessionID = "session-id"

	// TOTP selects the verify-totp transaction.
	TOTP = "TOTP"

	// DefaultModuleID is used for audit trail modules outside the table.
	DefaultModuleID = "3333"
)

// moduleIDs maps audit trail module names (lowercase) to backend module ids.
var moduleIDs = map[string]string{
	"transaction charges":            "3001",
	"stage transaction":              "3002",
	"submit transaction":             "3003",
	"login":                          "3004",
	"otp":                            "3005",
	"password reset":                 "3006",
	"registration":                   "3007",
	"acccount linking":               "3008",
	"bulk upload":                    "3009",
	"password change":                "3010",
	"calculator":                     "3011",
	"change account limits":          "3012",
	"account mandates authorization": "3013",
	"account beneficiaries":          "3014",
	"account mandatees":              "3015",
	"customer reports":               "3016",
	"view page":                      "3017",
	"canceled transaction":           "3018",
	"print receipt":                  "3019",
	"account activation":             "3020",
}

// ModuleID returns the backend id of an audit trail module, case-insensitively.
func ModuleID(module string) string {
	if id, ok := moduleIDs[strings.ToLower(module)]; ok {
		return id
	}
	return DefaultModuleID
}

// VerificationTransaction picks the OTP transaction for a verification type.
func VerificationTransaction(verificationType string) string {
	if verificationType == TOTP {
		return TransactionVerifyTOTP
	}
	return TransactionVerifyOTP
}

// Reply is the sealed response of every auth flow.
type Reply struct {
	Success   bool   `json:"success"`
	Message   any    `json:"message,omitempty"`
	Data      any    `json:"data,omitempty"`
	RequestID any    `json:"requestId,omitempty"`
	Token     string `json:"token,omitempty"`
}

// LoginInput is the decrypted login payload.
type LoginInput struct {
	Username       string `json:"username"`
	Password       string `json:"password"`
	RecaptchaToken string `json:"recaptchaToken"`
	LoginID        any    `json:"loginId,omitempty"`
	RequestID      any    `json:"requestId,omitempty"`
}

// OTPInput is the decrypted one-time password check.
type OTPInput struct {
	Username         string `json:"username"`
	OTP              string `json:"otp"`
	VerificationType string `json:"verificationType"`
	RequestID        any    `json:"requestId,omitempty"`
}

// ChangePasswordInput is the decrypted first-login password change.
type ChangePasswordInput struct {
	Username        string         `json:"username"`
	CurrentPassword string         `json:"currentPassword"`
	ConfirmPassword string         `json:"confirmPassword"`
	Meta            map[string]any `json:"meta,omitempty"`
	RequestID       any            `json:"requestId,omitempty"`
}

// SendOTPInput is the decrypted request for a new one-time password.
type SendOTPInput struct {
	Username    string `json:"username"`
	PhoneNumber string `json:"phoneNumber"`
	AgentName   string `json:"agentName"`
	Direction   string `json:"direction"`
	Email       string `json:"email"`
	RequestID   any    `json:"requestId,omitempty"`
}

// SessionCheckInput is the decrypted session verification, optionally a sign-out.
type SessionCheckInput struct {
	Username string `json:"username"`
	Module   string `json:"module,omitempty"`
	SignOut  bool   `json:"signout"`
}

// AuditTrailInput is a page or action recorded by the client.
type AuditTrailInput struct {
	Username string `json:"username"`
	Module   string `json:"module"`
	Page     string `json:"page"`
	Account  any    `json:"account"`
	Activity any    `json:"activity"`
}
