// Package usecase orchestrates a transaction from the sealed client envelope to
// the sealed reply: authorization, schema validation, dispatch, post-hooks and
// audit emission.
package usecase

import (
	"context"
	"io"

	cryptoDomain "github.com/allisson/txgateway/internal/crypto/domain"
	transactionDomain "github.com/allisson/txgateway/internal/transaction/domain"
	transactionService "github.com/allisson/txgateway/internal/transaction/service"
)

// TransactionUseCase runs client transactions.
type TransactionUseCase interface {
	// HandleEnvelope opens a sealed request, executes it and seals the reply for
	// the sender's public key. Only envelope failures are returned as errors.
	HandleEnvelope(
		ctx context.Context,
		envelope *cryptoDomain.Envelope,
		caller *transactionDomain.Caller,
	) (*cryptoDomain.Envelope, error)

	// Execute runs a decrypted request. Every failure is reported in the feedback.
	Execute(
		ctx context.Context,
		req *transactionDomain.Request,
		caller *transactionDomain.Caller,
	) *transactionDomain.Feedback

	// Upload stores the files of a document upload, runs the route's transaction
	// type with them attached and deletes them afterwards. Only file rule
	// violations and storage failures are returned as errors.
	Upload(
		ctx context.Context,
		in *transactionDomain.UploadInput,
		caller *transactionDomain.Caller,
	) (*transactionDomain.Feedback, error)

	// PrintReceipt forwards a sealed receipt request to the receipt source and
	// returns the document as the backend sent it.
	PrintReceipt(
		ctx context.Context,
		envelope *cryptoDomain.Envelope,
		caller *transactionDomain.Caller,
	) (*transactionService.RawResponse, error)
}

// FileStore keeps uploads for the duration of a transaction.
// *transactionService.FileStore implements it.
type FileStore interface {
	Save(sub, fileName string, r io.Reader, limit int64) (string, error)
	Remove(paths ...string)
}
