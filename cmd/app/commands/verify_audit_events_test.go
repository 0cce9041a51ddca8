package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	auditUseCase "github.com/allisson/txgateway/internal/audit/usecase"
)

type MockOutboxUseCase struct {
	mock.Mock
}

func (m *MockOutboxUseCase) Start(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockOutboxUseCase) ProcessEvents(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockOutboxUseCase) VerifyBatch(
	ctx context.Context,
	start, end time.Time,
) (*auditUseCase.VerificationReport, error) {
	args := m.Called(ctx, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auditUseCase.VerificationReport), args.Error(1)
}

func TestRunVerifyAuditEvents(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	startDate := "2025-01-01"
	endDate := "2025-01-02 12:00:00"

	report := &auditUseCase.VerificationReport{
		TotalChecked:  10,
		SignedCount:   10,
		ValidCount:    10,
		InvalidEvents: []string{},
	}

	t.Run("success-text", func(t *testing.T) {
		mockUseCase := &MockOutboxUseCase{}
		mockUseCase.On("VerifyBatch", ctx,
			time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2025, 1, 2, 12, 0, 0, 0, time.UTC),
		).Return(report, nil)

		var out bytes.Buffer
		err := RunVerifyAuditEvents(ctx, mockUseCase, logger, &out, startDate, endDate, "text")
		require.NoError(t, err)
		assert.Contains(t, out.String(), "Audit Event Integrity Verification")
		assert.Contains(t, out.String(), "Status: PASSED")
		mockUseCase.AssertExpectations(t)
	})

	t.Run("success-json", func(t *testing.T) {
		mockUseCase := &MockOutboxUseCase{}
		mockUseCase.On("VerifyBatch", ctx, mock.AnythingOfType("time.Time"), mock.AnythingOfType("time.Time")).
			Return(report, nil)

		var out bytes.Buffer
		err := RunVerifyAuditEvents(ctx, mockUseCase, logger, &out, startDate, endDate, "json")
		require.NoError(t, err)

		var result map[string]any
		require.NoError(t, json.Unmarshal(out.Bytes(), &result))
		assert.Equal(t, float64(10), result["total_checked"])
		assert.Equal(t, true, result["passed"])
		mockUseCase.AssertExpectations(t)
	})

	t.Run("no-events", func(t *testing.T) {
		mockUseCase := &MockOutboxUseCase{}
		mockUseCase.On("VerifyBatch", ctx, mock.Anything, mock.Anything).
			Return(&auditUseCase.VerificationReport{InvalidEvents: []string{}}, nil)

		var out bytes.Buffer
		err := RunVerifyAuditEvents(ctx, mockUseCase, logger, &out, startDate, endDate, "text")
		require.NoError(t, err)
		assert.Contains(t, out.String(), "No events found")
	})

	t.Run("invalid-dates", func(t *testing.T) {
		err := RunVerifyAuditEvents(ctx, nil, logger, nil, "invalid", endDate, "text")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid start date")

		err = RunVerifyAuditEvents(ctx, nil, logger, nil, startDate, "02/01/2025", "text")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid end date")

		err = RunVerifyAuditEvents(ctx, nil, logger, nil, endDate, startDate, "text")
		require.EqualError(t, err, "end date must be after start date")
	})

	t.Run("repository-error", func(t *testing.T) {
		mockUseCase := &MockOutboxUseCase{}
		mockUseCase.On("VerifyBatch", ctx, mock.Anything, mock.Anything).
			Return(nil, errors.New("database down"))

		err := RunVerifyAuditEvents(ctx, mockUseCase, logger, &bytes.Buffer{}, startDate, endDate, "text")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to verify audit events")
	})

	t.Run("integrity-failure", func(t *testing.T) {
		mockUseCase := &MockOutboxUseCase{}
		failureReport := &auditUseCase.VerificationReport{
			TotalChecked:  10,
			SignedCount:   10,
			ValidCount:    8,
			InvalidCount:  2,
			InvalidEvents: []string{uuid.NewString(), uuid.NewString()},
		}
		mockUseCase.On("VerifyBatch", ctx, mock.Anything, mock.Anything).Return(failureReport, nil)

		var out bytes.Buffer
		err := RunVerifyAuditEvents(ctx, mockUseCase, logger, &out, startDate, endDate, "text")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "integrity check failed")
		assert.Contains(t, out.String(), "WARNING: 2 event(s) failed integrity check!")
		assert.Contains(t, out.String(), failureReport.InvalidEvents[0])
	})
}
