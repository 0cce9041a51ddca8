package usecase

import (
	"context"
	"log/slog"

	auditDomain "github.com/allisson/txgateway/internal/audit/domain"
	"github.com/allisson/txgateway/internal/metrics"
)

// LogProcessor writes log events to the audit logger.
type LogProcessor struct {
	logger *slog.Logger
}

// NewLogProcessor creates a LogProcessor. Entries carry logger=audit.
func NewLogProcessor(logger *slog.Logger) *LogProcessor {
	return &LogProcessor{logger: logger.With(slog.String("logger", "audit"))}
}

func (p *LogProcessor) Process(ctx context.Context, event *auditDomain.Event) error {
	attrs := []slog.Attr{
		slog.String("event_id", event.ID.String()),
		slog.String("action", event.Action),
		slog.String("service", event.Service),
		slog.Time("timestamp", event.Timestamp),
	}
	if event.TxnType != "" {
		attrs = append(attrs, slog.String("txn_type", event.TxnType))
	}
	if event.ClientIP != "" {
		attrs = append(attrs, slog.String("client_ip", event.ClientIP))
	}
	if event.RequestParams != nil {
		attrs = append(attrs, slog.Any("request_params", event.RequestParams))
	}
	if event.UserDevice != nil {
		attrs = append(attrs, slog.Any("user_device", event.UserDevice))
	}
	if event.Backend != nil {
		attrs = append(attrs, slog.Any("esb_request", event.Backend))
	}
	if event.ClientResponse != nil {
		attrs = append(attrs, slog.Any("client_response", event.ClientResponse))
	}
	if event.ResponseData != nil {
		attrs = append(attrs, slog.Any("response", event.ResponseData))
	}
	if event.Error != "" {
		attrs = append(attrs, slog.String("error", event.Error))
	}

	p.logger.LogAttrs(ctx, levelOf(event.Type), "transaction log", attrs...)
	return nil
}

func levelOf(eventType string) slog.Level {
	switch eventType {
	case auditDomain.LevelError:
		return slog.LevelError
	case auditDomain.LevelDebug:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

// AnalyticsProcessor counts usage events per transaction type and outcome.
type AnalyticsProcessor struct {
	metrics metrics.BusinessMetrics
	logger  *slog.Logger
}

// NewAnalyticsProcessor creates an AnalyticsProcessor.
func NewAnalyticsProcessor(businessMetrics metrics.BusinessMetrics, logger *slog.Logger) *AnalyticsProcessor {
	return &AnalyticsProcessor{metrics: businessMetrics, logger: logger}
}

func (p *AnalyticsProcessor) Process(ctx context.Context, event *auditDomain.Event) error {
	status := "success"
	if event.Type == auditDomain.LevelError {
		status = "error"
	} else if resp, ok := event.ClientResponse.(map[string]any); ok {
		if success, _ := resp["success"].(bool); !success {
			status = "declined"
		}
	}

	p.metrics.RecordOperation(ctx, "analytics", event.Action, status)
	p.logger.Debug("analytics event",
		slog.String("action", event.Action),
		slog.String("status", status),
	)
	return nil
}

// KindRouter dispatches events to the processor registered for their kind.
// Events of an unregistered kind are ignored.
type KindRouter map[string]Processor

func (r KindRouter) Process(ctx context.Context, event *auditDomain.Event) error {
	p, ok := r[event.Kind]
	if !ok {
		return nil
	}
	return p.Process(ctx, event)
}
