package usecase

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"time"

	"github.com/allisson/txgateway/internal/cache"
	apperrors "github.com/allisson/txgateway/internal/errors"
	sessionDomain "github.com/allisson/txgateway/internal/session/domain"
	sessionService "github.com/allisson/txgateway/internal/session/service"
)

type sessionUseCase struct {
	appName string
	store   SessionStore
	tokens  sessionService.TokenService
	codec   sessionService.RecordCodec
	ttl     time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

// NewSessionUseCase creates a SessionUseCase. Records expire after ttl.
func NewSessionUseCase(
	appName string,
	store SessionStore,
	tokens sessionService.TokenService,
	codec sessionService.RecordCodec,
	ttl time.Duration,
	logger *slog.Logger,
) SessionUseCase {
	return &sessionUseCase{
		appName: appName,
		store:   store,
		tokens:  tokens,
		codec:   codec,
		ttl:     ttl,
		logger:  logger,
		now:     time.Now,
	}
}

func (s *sessionUseCase) SignIn(
	ctx context.Context,
	input *sessionDomain.SignInInput,
) (*sessionDomain.SignInOutput, error) {
	now := s.now()
	token, claims, err := s.tokens.Issue(input.Username, now)
	if err != nil {
		return nil, err
	}

	fields, err := s.codec.Encode(&sessionDomain.Record{
		IPAddress:      input.IPAddress,
		AccessToken:    token,
		Username:       input.Username,
		Timestamp:      now.Format(time.RFC3339),
		AccountDetails: input.AccountDetails,
		FloatAccount:   input.FloatAccount,
		RequestDetails: map[string]any{},
	})
	if err != nil {
		return nil, err
	}

	if err := s.store.SetHash(ctx, cache.SessionKey(s.appName, input.Username), fields, s.ttl); err != nil {
		return nil, fmt.Errorf("failed to write session: %w", err)
	}
	return &sessionDomain.SignInOutput{Token: token, Claims: claims}, nil
}

func (s *sessionUseCase) VerifyToken(_ context.Context, token string) (*sessionDomain.Claims, error) {
	return s.tokens.Verify(token)
}

func (s *sessionUseCase) Bind(
	ctx context.Context,
	input *sessionDomain.BindInput,
) (*sessionDomain.Binding, error) {
	record, err := s.Fetch(ctx, input.ClaimedUsername)
	if err == nil && record.Matches(input, tokenEqual) {
		return &sessionDomain.Binding{
			Record:       record,
			Meta:         sessionDomain.ExtractMeta(input.TokenSubject, record.AccountDetails),
			FloatAccount: record.FloatAccount,
		}, nil
	}

	// A cache outage is not a binding failure: nothing is deleted.
	if apperrors.Is(err, cache.ErrUnavailable) {
		return nil, err
	}

	s.logger.Debug("session binding failed",
		slog.String("username", input.TokenSubject),
		slog.String("claimed_username", input.ClaimedUsername),
		slog.String("ip_address", input.IPAddress),
		slog.Bool("record_found", err == nil),
	)
	if delErr := s.SignOut(ctx, input.TokenSubject); delErr != nil {
		s.logger.Error("failed to delete session", slog.String("username", input.TokenSubject), slog.Any("error", delErr))
	}
	return nil, sessionDomain.ErrSessionBinding
}

func (s *sessionUseCase) SignOut(ctx context.Context, username string) error {
	if username == "" {
		return nil
	}
	return s.store.Delete(ctx, cache.SessionKey(s.appName, username))
}

func (s *sessionUseCase) Fetch(ctx context.Context, username string) (*sessionDomain.Record, error) {
	if username == "" {
		return nil, sessionDomain.ErrSessionNotFound
	}

	fields, err := s.store.GetHash(ctx, cache.SessionKey(s.appName, username))
	if apperrors.Is(err, cache.ErrNotFound) {
		return nil, sessionDomain.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.codec.Decode(fields)
}

func tokenEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
