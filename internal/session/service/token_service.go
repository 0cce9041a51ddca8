package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	sessionDomain "github.com/allisson/txgateway/internal/session/domain"
)

// tokenClaims is the JWT body: {"data":{"username":...},"jti","iat","exp"}.
type tokenClaims struct {
	Data struct {
		Username string `json:"username"`
	} `json:"data"`
	jwt.RegisteredClaims
}

// jwtTokenService implements TokenService with HMAC-SHA512 signed JWTs.
type jwtTokenService struct {
	secret     []byte
	expiration time.Duration
}

// NewTokenService creates a TokenService signing with secret.
func NewTokenService(secret string, expiration time.Duration) TokenService {
	return &jwtTokenService{secret: []byte(secret), expiration: expiration}
}

func (s *jwtTokenService) Issue(username string, now time.Time) (string, *sessionDomain.Claims, error) {
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiration)),
		},
	}
	claims.Data.Username = username

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(s.secret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, &sessionDomain.Claims{
		Username:  username,
		ID:        claims.ID,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (s *jwtTokenService) Verify(token string) (*sessionDomain.Claims, error) {
	var claims tokenClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sessionDomain.ErrAuthentication, err)
	}
	if !parsed.Valid || claims.Data.Username == "" {
		return nil, fmt.Errorf("%w: invalid token claims", sessionDomain.ErrAuthentication)
	}

	out := &sessionDomain.Claims{Username: claims.Data.Username, ID: claims.ID}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}
