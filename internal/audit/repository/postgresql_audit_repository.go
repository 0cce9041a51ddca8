// Package repository persists audit outbox records.
package repository

import (
	"context"
	"database/sql"
	"time"

	auditDomain "github.com/allisson/txgateway/internal/audit/domain"
	"github.com/allisson/txgateway/internal/database"
	apperrors "github.com/allisson/txgateway/internal/errors"
)

// PostgreSQLAuditRepository stores audit records in PostgreSQL. The payload is
// kept as TEXT so the signed bytes are returned unchanged.
type PostgreSQLAuditRepository struct {
	db *sql.DB
}

// NewPostgreSQLAuditRepository creates a new PostgreSQLAuditRepository.
func NewPostgreSQLAuditRepository(db *sql.DB) *PostgreSQLAuditRepository {
	return &PostgreSQLAuditRepository{db: db}
}

// Create inserts a record.
func (r *PostgreSQLAuditRepository) Create(ctx context.Context, record *auditDomain.Record) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO audit_events (id, kind, action, payload, signature, status, retries, last_error, processed_at, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := querier.ExecContext(
		ctx,
		query,
		record.ID,
		record.Kind,
		record.Action,
		string(record.Payload),
		record.Signature,
		string(record.Status),
		record.Retries,
		record.LastError,
		record.ProcessedAt,
		record.CreatedAt,
		record.UpdatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create audit event")
	}
	return nil
}

// GetPending locks up to limit pending records, oldest first.
func (r *PostgreSQLAuditRepository) GetPending(ctx context.Context, limit int) ([]*auditDomain.Record, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, kind, action, payload, signature, status, retries, last_error, processed_at, created_at, updated_at
			  FROM audit_events
			  WHERE status = $1
			  ORDER BY created_at ASC
			  LIMIT $2
			  FOR UPDATE SKIP LOCKED`

	rows, err := querier.QueryContext(ctx, query, string(auditDomain.StatusPending), limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to get pending audit events")
	}
	return scanPostgreSQLRecords(rows)
}

// Update persists the processing state of a record.
func (r *PostgreSQLAuditRepository) Update(ctx context.Context, record *auditDomain.Record) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE audit_events
			  SET status = $1, retries = $2, last_error = $3, processed_at = $4, updated_at = NOW()
			  WHERE id = $5`

	_, err := querier.ExecContext(
		ctx,
		query,
		string(record.Status),
		record.Retries,
		record.LastError,
		record.ProcessedAt,
		record.ID,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update audit event")
	}
	return nil
}

// ListByRange returns the records created within [start, end], oldest first.
func (r *PostgreSQLAuditRepository) ListByRange(
	ctx context.Context,
	start, end time.Time,
) ([]*auditDomain.Record, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, kind, action, payload, signature, status, retries, last_error, processed_at, created_at, updated_at
			  FROM audit_events
			  WHERE created_at >= $1 AND created_at <= $2
			  ORDER BY created_at ASC`

	rows, err := querier.QueryContext(ctx, query, start, end)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit events")
	}
	return scanPostgreSQLRecords(rows)
}

func scanPostgreSQLRecords(rows *sql.Rows) ([]*auditDomain.Record, error) {
	defer func() {
		_ = rows.Close()
	}()

	records := make([]*auditDomain.Record, 0)
	for rows.Next() {
		var record auditDomain.Record
		var payload, status string
		if err := rows.Scan(
			&record.ID,
			&record.Kind,
			&record.Action,
			&payload,
			&record.Signature,
			&status,
			&record.Retries,
			&record.LastError,
			&record.ProcessedAt,
			&record.CreatedAt,
			&record.UpdatedAt,
		); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan audit event")
		}
		record.Payload = []byte(payload)
		record.Status = auditDomain.Status(status)
		record.CreatedAt = record.CreatedAt.UTC()
		records = append(records, &record)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate audit events")
	}
	return records, nil
}
