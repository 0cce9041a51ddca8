package usecase

import (
	"context"
	"time"

	cryptoDomain "github.com/allisson/txgateway/internal/crypto/domain"
	"github.com/allisson/txgateway/internal/metrics"
	transactionDomain "github.com/allisson/txgateway/internal/transaction/domain"
	transactionService "github.com/allisson/txgateway/internal/transaction/service"
)

// transactionUseCaseWithMetrics decorates TransactionUseCase with metrics instrumentation.
type transactionUseCaseWithMetrics struct {
	next    TransactionUseCase
	metrics metrics.BusinessMetrics
}

// NewTransactionUseCaseWithMetrics wraps a TransactionUseCase with metrics recording.
func NewTransactionUseCaseWithMetrics(useCase TransactionUseCase, m metrics.BusinessMetrics) TransactionUseCase {
	return &transactionUseCaseWithMetrics{next: useCase, metrics: m}
}

func (t *transactionUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, status string) {
	t.metrics.RecordOperation(ctx, "transaction", operation, status)
	t.metrics.RecordDuration(ctx, "transaction", operation, time.Since(start), status)
}

func errorStatus(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func (t *transactionUseCaseWithMetrics) HandleEnvelope(
	ctx context.Context,
	envelope *cryptoDomain.Envelope,
	caller *transactionDomain.Caller,
) (*cryptoDomain.Envelope, error) {
	start := time.Now()
	sealed, err := t.next.HandleEnvelope(ctx, envelope, caller)
	t.record(ctx, "handle_envelope", start, errorStatus(err))
	return sealed, err
}

// Execute is recorded per transaction type; declined is a feedback without success.
func (t *transactionUseCaseWithMetrics) Execute(
	ctx context.Context,
	req *transactionDomain.Request,
	caller *transactionDomain.Caller,
) *transactionDomain.Feedback {
	start := time.Now()
	feedback := t.next.Execute(ctx, req, caller)
	status := "success"
	if !feedback.Success {
		status = "declined"
	}
	t.record(ctx, req.TransactionType, start, status)
	return feedback
}

func (t *transactionUseCaseWithMetrics) Upload(
	ctx context.Context,
	in *transactionDomain.UploadInput,
	caller *transactionDomain.Caller,
) (*transactionDomain.Feedback, error) {
	start := time.Now()
	feedback, err := t.next.Upload(ctx, in, caller)
	t.record(ctx, "upload", start, errorStatus(err))
	return feedback, err
}

func (t *transactionUseCaseWithMetrics) PrintReceipt(
	ctx context.Context,
	envelope *cryptoDomain.Envelope,
	caller *transactionDomain.Caller,
) (*transactionService.RawResponse, error) {
	start := time.Now()
	resp, err := t.next.PrintReceipt(ctx, envelope, caller)
	t.record(ctx, "print_receipt", start, errorStatus(err))
	return resp, err
}
