package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	auditDomain "github.com/allisson/txgateway/internal/audit/domain"
	auditService "github.com/allisson/txgateway/internal/audit/service"
	"github.com/allisson/txgateway/internal/database"
)

// Config holds outbox worker configuration.
type Config struct {
	Interval   time.Duration
	BatchSize  int
	MaxRetries int
}

// OutboxSink persists events as signed pending records. It is the processor of
// the in-process queue when audit events go to the database.
type OutboxSink struct {
	repo   Repository
	signer auditService.Signer
}

// NewOutboxSink creates an OutboxSink.
func NewOutboxSink(repo Repository, signer auditService.Signer) *OutboxSink {
	return &OutboxSink{repo: repo, signer: signer}
}

func (s *OutboxSink) Process(ctx context.Context, event *auditDomain.Event) error {
	record, err := auditDomain.NewRecord(event)
	if err != nil {
		return fmt.Errorf("failed to encode audit event: %w", err)
	}
	if record.Signature, err = s.signer.Sign(record); err != nil {
		return fmt.Errorf("failed to sign audit event: %w", err)
	}
	return s.repo.Create(ctx, record)
}

type outboxUseCase struct {
	config    Config
	txManager database.TxManager
	repo      Repository
	signer    auditService.Signer
	processor Processor
	logger    *slog.Logger
}

// NewOutboxUseCase creates the outbox worker.
func NewOutboxUseCase(
	config Config,
	txManager database.TxManager,
	repo Repository,
	signer auditService.Signer,
	processor Processor,
	logger *slog.Logger,
) OutboxUseCase {
	return &outboxUseCase{
		config:    config,
		txManager: txManager,
		repo:      repo,
		signer:    signer,
		processor: processor,
		logger:    logger,
	}
}

// Start runs ProcessEvents on every tick until ctx is cancelled.
func (uc *outboxUseCase) Start(ctx context.Context) error {
	uc.logger.Info("starting audit outbox processor",
		slog.Duration("interval", uc.config.Interval),
		slog.Int("batch_size", uc.config.BatchSize),
	)

	ticker := time.NewTicker(uc.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			uc.logger.Info("stopping audit outbox processor")
			return ctx.Err()
		case <-ticker.C:
			if err := uc.ProcessEvents(ctx); err != nil {
				uc.logger.Error("failed to process audit events", slog.Any("error", err))
			}
		}
	}
}

// ProcessEvents delivers one batch of pending records inside a transaction.
// Records with a bad signature are marked failed without delivery.
func (uc *outboxUseCase) ProcessEvents(ctx context.Context) error {
	return uc.txManager.WithTx(ctx, func(ctx context.Context) error {
		records, err := uc.repo.GetPending(ctx, uc.config.BatchSize)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}

		uc.logger.Debug("processing audit events", slog.Int("count", len(records)))

		for _, record := range records {
			if err := uc.deliver(ctx, record); err != nil {
				uc.logger.Error("failed to deliver audit event",
					slog.String("event_id", record.ID.String()),
					slog.String("action", record.Action),
					slog.Any("error", err),
				)

				record.Retries++
				msg := err.Error()
				record.LastError = &msg
				if record.Retries >= uc.config.MaxRetries || errors.Is(err, auditDomain.ErrSignatureInvalid) {
					record.Status = auditDomain.StatusFailed
				}
			} else {
				now := time.Now().UTC()
				record.Status = auditDomain.StatusProcessed
				record.ProcessedAt = &now
			}

			if err := uc.repo.Update(ctx, record); err != nil {
				return err
			}
		}
		return nil
	})
}

func (uc *outboxUseCase) deliver(ctx context.Context, record *auditDomain.Record) error {
	if err := uc.signer.Verify(record); err != nil {
		return err
	}
	event, err := record.Event()
	if err != nil {
		return fmt.Errorf("failed to decode audit event: %w", err)
	}
	return uc.processor.Process(ctx, event)
}

// VerifyBatch checks the signature of every record created within [start, end].
func (uc *outboxUseCase) VerifyBatch(ctx context.Context, start, end time.Time) (*VerificationReport, error) {
	records, err := uc.repo.ListByRange(ctx, start, end)
	if err != nil {
		return nil, err
	}

	report := &VerificationReport{InvalidEvents: []string{}}
	for _, record := range records {
		report.TotalChecked++
		if len(record.Signature) == 0 {
			report.UnsignedCount++
			continue
		}
		report.SignedCount++
		if err := uc.signer.Verify(record); err != nil {
			report.InvalidCount++
			report.InvalidEvents = append(report.InvalidEvents, record.ID.String())
			continue
		}
		report.ValidCount++
	}
	return report, nil
}
