package usecase

import (
	"context"
	"time"

	cryptoDomain "github.com/allisson/txgateway/internal/crypto/domain"
	"github.com/allisson/txgateway/internal/metrics"
	transactionDomain "github.com/allisson/txgateway/internal/transaction/domain"
)

// authUseCaseWithMetrics decorates AuthUseCase with metrics instrumentation.
type authUseCaseWithMetrics struct {
	next    AuthUseCase
	metrics metrics.BusinessMetrics
}

// NewAuthUseCaseWithMetrics wraps an AuthUseCase with metrics recording.
func NewAuthUseCaseWithMetrics(useCase AuthUseCase, m metrics.BusinessMetrics) AuthUseCase {
	return &authUseCaseWithMetrics{next: useCase, metrics: m}
}

type sealedFlow func(context.Context, *cryptoDomain.Envelope, *transactionDomain.Caller) (*cryptoDomain.Envelope, error)

func (a *authUseCaseWithMetrics) observe(
	ctx context.Context,
	operation string,
	flow sealedFlow,
	envelope *cryptoDomain.Envelope,
	caller *transactionDomain.Caller,
) (*cryptoDomain.Envelope, error) {
	start := time.Now()
	sealed, err := flow(ctx, envelope, caller)

	status := "success"
	if err != nil {
		status = "error"
	}
	a.metrics.RecordOperation(ctx, "auth", operation, status)
	a.metrics.RecordDuration(ctx, "auth", operation, time.Since(start), status)
	return sealed, err
}

func (a *authUseCaseWithMetrics) Login(
	ctx context.Context,
	envelope *cryptoDomain.Envelope,
	caller *transactionDomain.Caller,
) (*cryptoDomain.Envelope, error) {
	return a.observe(ctx, "login", a.next.Login, envelope, caller)
}

func (a *authUseCaseWithMetrics) VerifyOTP(
	ctx context.Context,
	envelope *cryptoDomain.Envelope,
	caller *transactionDomain.Caller,
) (*cryptoDomain.Envelope, error) {
	return a.observe(ctx, "verify_otp", a.next.VerifyOTP, envelope, caller)
}

func (a *authUseCaseWithMetrics) ChangePassword(
	ctx context.Context,
	envelope *cryptoDomain.Envelope,
	caller *transactionDomain.Caller,
) (*cryptoDomain.Envelope, error) {
	return a.observe(ctx, "change_password", a.next.ChangePassword, envelope, caller)
}

func (a *authUseCaseWithMetrics) SendOTP(
	ctx context.Context,
	envelope *cryptoDomain.Envelope,
	caller *transactionDomain.Caller,
) (*cryptoDomain.Envelope, error) {
	return a.observe(ctx, "send_otp", a.next.SendOTP, envelope, caller)
}

func (a *authUseCaseWithMetrics) VerifySession(
	ctx context.Context,
	envelope *cryptoDomain.Envelope,
	caller *transactionDomain.Caller,
) (*cryptoDomain.Envelope, error) {
	return a.observe(ctx, "verify_session", a.next.VerifySession, envelope, caller)
}

func (a *authUseCaseWithMetrics) AuditTrail(
	ctx context.Context,
	envelope *cryptoDomain.Envelope,
	caller *transactionDomain.Caller,
) (*cryptoDomain.Envelope, error) {
	return a.observe(ctx, "audit_trail", a.next.AuditTrail, envelope, caller)
}

func (a *authUseCaseWithMetrics) PublicKey() string {
	return a.next.PublicKey()
}
