// Package usecase implements the audit pipeline: an explicit queue between the
// request path and the sinks, the outbox worker that drains persisted events,
// and the processors that deliver them.
package usecase

import (
	"context"
	"time"

	auditDomain "github.com/allisson/txgateway/internal/audit/domain"
)

// Queue accepts events from the request path. Enqueue never blocks on delivery.
type Queue interface {
	Enqueue(ctx context.Context, event *auditDomain.Event) error
}

// Processor delivers a single event.
type Processor interface {
	Process(ctx context.Context, event *auditDomain.Event) error
}

// Repository persists outbox records.
type Repository interface {
	Create(ctx context.Context, record *auditDomain.Record) error
	GetPending(ctx context.Context, limit int) ([]*auditDomain.Record, error)
	Update(ctx context.Context, record *auditDomain.Record) error
	ListByRange(ctx context.Context, start, end time.Time) ([]*auditDomain.Record, error)
}

// OutboxUseCase drains persisted events and verifies their signatures.
type OutboxUseCase interface {
	Start(ctx context.Context) error
	ProcessEvents(ctx context.Context) error
	VerifyBatch(ctx context.Context, start, end time.Time) (*VerificationReport, error)
}

// VerificationReport summarizes a signature check over a time range.
type VerificationReport struct {
	TotalChecked  int64
	SignedCount   int64
	UnsignedCount int64
	ValidCount    int64
	InvalidCount  int64
	InvalidEvents []string
}
