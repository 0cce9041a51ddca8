package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/allisson/txgateway/internal/audit/domain"
	"github.com/allisson/txgateway/internal/database"
	apperrors "github.com/allisson/txgateway/internal/errors"
)

// MySQLAuditRepository stores audit records in MySQL. Ids are BINARY(16).
type MySQLAuditRepository struct {
	db *sql.DB
}

// NewMySQLAuditRepository creates a new MySQLAuditRepository.
func NewMySQLAuditRepository(db *sql.DB) *MySQLAuditRepository {
	return &MySQLAuditRepository{db: db}
}

// Create inserts a record.
func (r *MySQLAuditRepository) Create(ctx context.Context, record *auditDomain.Record) error {
	querier := database.GetTx(ctx, r.db)

	idBytes, err := record.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal audit event id")
	}

	query := `INSERT INTO audit_events (id, kind, action, payload, signature, status, retries, last_error, processed_at, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		idBytes,
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
func (r *MySQLAuditRepository) GetPending(ctx context.Context, limit int) ([]*auditDomain.Record, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, kind, action, payload, signature, status, retries, last_error, processed_at, created_at, updated_at
			  FROM audit_events
			  WHERE status = ?
			  ORDER BY created_at ASC
			  LIMIT ?
			  FOR UPDATE SKIP LOCKED`

	rows, err := querier.QueryContext(ctx, query, string(auditDomain.StatusPending), limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to get pending audit events")
	}
	return scanMySQLRecords(rows)
}

// Update persists the processing state of a record.
func (r *MySQLAuditRepository) Update(ctx context.Context, record *auditDomain.Record) error {
	querier := database.GetTx(ctx, r.db)

	idBytes, err := record.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal audit event id")
	}

	query := `UPDATE audit_events
			  SET status = ?, retries = ?, last_error = ?, processed_at = ?, updated_at = NOW(6)
			  WHERE id = ?`

	_, err = querier.ExecContext(
		ctx,
		query,
		string(record.Status),
		record.Retries,
		record.LastError,
		record.ProcessedAt,
		idBytes,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update audit event")
	}
	return nil
}

// ListByRange returns the records created within [start, end], oldest first.
func (r *MySQLAuditRepository) ListByRange(
	ctx context.Context,
	start, end time.Time,
) ([]*auditDomain.Record, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, kind, action, payload, signature, status, retries, last_error, processed_at, created_at, updated_at
			  FROM audit_events
			  WHERE created_at >= ? AND created_at <= ?
			  ORDER BY created_at ASC`

	rows, err := querier.QueryContext(ctx, query, start, end)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit events")
	}
	return scanMySQLRecords(rows)
}

func scanMySQLRecords(rows *sql.Rows) ([]*auditDomain.Record, error) {
	defer func() {
		_ = rows.Close()
	}()

	records := make([]*auditDomain.Record, 0)
	for rows.Next() {
		var record auditDomain.Record
		var idBytes []byte
		var payload, status string
		if err := rows.Scan(
			&idBytes,
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

		id, err := uuid.FromBytes(idBytes)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to parse audit event id")
		}
		record.ID = id
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
