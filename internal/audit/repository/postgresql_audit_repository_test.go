package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auditDomain "github.com/allisson/txgateway/internal/audit/domain"
	"github.com/allisson/txgateway/internal/database"
)

var recordColumns = []string{
	"id", "kind", "action", "payload", "signature", "status",
	"retries", "last_error", "processed_at", "created_at", "updated_at",
}

func testRecord(t *testing.T) *auditDomain.Record {
	t.Helper()
	record, err := auditDomain.NewRecord(auditDomain.NewEvent(auditDomain.KindLog, "balance", "transactions"))
	require.NoError(t, err)
	record.Signature = []byte{1, 2, 3}
	return record
}

func TestPostgreSQLAuditRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	repo := NewPostgreSQLAuditRepository(db)
	record := testRecord(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_events")).
		WithArgs(
			record.ID, record.Kind, record.Action, string(record.Payload), record.Signature,
			"pending", 0, nil, nil, record.CreatedAt, record.UpdatedAt,
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.Create(context.Background(), record))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLAuditRepository_CreateError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_events")).WillReturnError(errors.New("db down"))

	err = NewPostgreSQLAuditRepository(db).Create(context.Background(), testRecord(t))
	assert.ErrorContains(t, err, "failed to create audit event")
}

func TestPostgreSQLAuditRepository_GetPendingInTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	repo := NewPostgreSQLAuditRepository(db)
	record := testRecord(t)
	lastError := "sink down"

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE SKIP LOCKED")).
		WithArgs("pending", 10).
		WillReturnRows(sqlmock.NewRows(recordColumns).AddRow(
			record.ID.String(), record.Kind, record.Action, string(record.Payload), record.Signature,
			"pending", 1, lastError, nil, record.CreatedAt, record.UpdatedAt,
		))
	mock.ExpectCommit()

	var got []*auditDomain.Record
	err = database.NewTxManager(db).WithTx(context.Background(), func(ctx context.Context) error {
		var err error
		got, err = repo.GetPending(ctx, 10)
		return err
	})
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, record.ID, got[0].ID)
	assert.Equal(t, record.Payload, got[0].Payload)
	assert.Equal(t, auditDomain.StatusPending, got[0].Status)
	assert.Equal(t, 1, got[0].Retries)
	require.NotNil(t, got[0].LastError)
	assert.Equal(t, lastError, *got[0].LastError)
	assert.Nil(t, got[0].ProcessedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLAuditRepository_Update(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	record := testRecord(t)
	now := time.Now().UTC()
	record.Status = auditDomain.StatusProcessed
	record.ProcessedAt = &now

	mock.ExpectExec(regexp.QuoteMeta("UPDATE audit_events")).
		WithArgs("processed", 0, nil, &now, record.ID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, NewPostgreSQLAuditRepository(db).Update(context.Background(), record))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLAuditRepository_ListByRange(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE created_at >= $1 AND created_at <= $2")).
		WithArgs(start, end).
		WillReturnRows(sqlmock.NewRows(recordColumns))

	got, err := NewPostgreSQLAuditRepository(db).ListByRange(context.Background(), start, end)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NotNil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}
