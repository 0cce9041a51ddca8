package usecase

import (
	"context"
	"time"

	"github.com/allisson/txgateway/internal/metrics"
	sessionDomain "github.com/allisson/txgateway/internal/session/domain"
)

// sessionUseCaseWithMetrics decorates SessionUseCase with metrics instrumentation.
type sessionUseCaseWithMetrics struct {
	next    SessionUseCase
	metrics metrics.BusinessMetrics
}

// NewSessionUseCaseWithMetrics wraps a SessionUseCase with metrics recording.
func NewSessionUseCaseWithMetrics(useCase SessionUseCase, m metrics.BusinessMetrics) SessionUseCase {
	return &sessionUseCaseWithMetrics{next: useCase, metrics: m}
}

func (s *sessionUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	s.metrics.RecordOperation(ctx, "session", operation, status)
	s.metrics.RecordDuration(ctx, "session", operation, time.Since(start), status)
}

func (s *sessionUseCaseWithMetrics) SignIn(
	ctx context.Context,
	input *sessionDomain.SignInInput,
) (*sessionDomain.SignInOutput, error) {
	start := time.Now()
	out, err := s.next.SignIn(ctx, input)
	s.record(ctx, "sign_in", start, err)
	return out, err
}

func (s *sessionUseCaseWithMetrics) VerifyToken(ctx context.Context, token string) (*sessionDomain.Claims, error) {
	start := time.Now()
	claims, err := s.next.VerifyToken(ctx, token)
	s.record(ctx, "verify_token", start, err)
	return claims, err
}

func (s *sessionUseCaseWithMetrics) Bind(
	ctx context.Context,
	input *sessionDomain.BindInput,
) (*sessionDomain.Binding, error) {
	start := time.Now()
	binding, err := s.next.Bind(ctx, input)
	s.record(ctx, "bind", start, err)
	return binding, err
}

func (s *sessionUseCaseWithMetrics) SignOut(ctx context.Context, username string) error {
	start := time.Now()
	err := s.next.SignOut(ctx, username)
	s.record(ctx, "sign_out", start, err)
	return err
}

func (s *sessionUseCaseWithMetrics) Fetch(ctx context.Context, username string) (*sessionDomain.Record, error) {
	start := time.Now()
	record, err := s.next.Fetch(ctx, username)
	s.record(ctx, "fetch", start, err)
	return record, err
}
