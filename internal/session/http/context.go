// Package http provides the bearer token middleware for session-protected routes.
package http

import (
	"context"

	sessionDomain "github.com/allisson/txgateway/internal/session/domain"
)

type claimsKey struct{}

type tokenKey struct{}

// WithClaims stores verified token claims and the raw token in the context.
func WithClaims(ctx context.Context, claims *sessionDomain.Claims, token string) context.Context {
	ctx = context.WithValue(ctx, claimsKey{}, claims)
	return context.WithValue(ctx, tokenKey{}, token)
}

// GetClaims retrieves the verified claims stored by AuthenticationMiddleware.
func GetClaims(ctx context.Context) (*sessionDomain.Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(*sessionDomain.Claims)
	return claims, ok
}

// GetToken retrieves the raw bearer token stored by AuthenticationMiddleware.
func GetToken(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(tokenKey{}).(string)
	return token, ok
}
