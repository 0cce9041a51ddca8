package usecase

import (
	"context"
	"fmt"

	auditDomain "github.com/allisson/txgateway/internal/audit/domain"
	transactionDomain "github.com/allisson/txgateway/internal/transaction/domain"
)

const uploadService = "uploads"

func (t *transactionUseCase) Upload(
	ctx context.Context,
	in *transactionDomain.UploadInput,
	caller *transactionDomain.Caller,
) (*transactionDomain.Feedback, error) {
	payload := in.Payload
	if payload == nil {
		payload = map[string]any{}
	}

	if err := t.checkUpload(in); err != nil {
		event := auditDomain.NewEvent(auditDomain.KindLog, in.Profile.TransactionType, uploadService)
		event.Type = auditDomain.LevelError
		event.ClientIP = caller.ClientIP
		event.UserDevice = caller.Device.Map()
		event.RequestParams = payload
		event.Error = err.Error()
		t.emit(ctx, event)
		return nil, err
	}

	attachments := make([]transactionDomain.Attachment, 0, len(in.Files))
	paths := make([]string, 0, len(in.Files))
	defer func() {
		t.files.Remove(paths...)
	}()

	for _, file := range in.Files {
		path, err := t.store(in.Profile, file)
		if err != nil {
			return nil, err
		}
		paths = append(paths, path)
		attachments = append(attachments, transactionDomain.Attachment{
			FieldName: file.FieldName,
			FileName:  in.Profile.WireName(file.FieldName, file.FileName, payload),
			MimeType:  file.MimeType,
			Path:      path,
		})
	}

	return t.Execute(ctx, &transactionDomain.Request{
		TransactionType: in.Profile.TransactionType,
		Payload:         payload,
		RequestID:       payload["requestId"],
		Attachments:     attachments,
	}, caller), nil
}

// checkUpload enforces the route's file count, size and type rules.
func (t *transactionUseCase) checkUpload(in *transactionDomain.UploadInput) error {
	if t.files == nil {
		return fmt.Errorf("%w: uploads are not enabled", transactionDomain.ErrUploadRejected)
	}
	p := in.Profile
	switch {
	case len(in.Files) == 0:
		return fmt.Errorf("%w: no file received", transactionDomain.ErrUploadRejected)
	case len(in.Files) > p.MaxFiles:
		return fmt.Errorf("%w: at most %d files are accepted", transactionDomain.ErrUploadRejected, p.MaxFiles)
	}
	for _, file := range in.Files {
		if !p.Allows(file.MimeType) {
			return fmt.Errorf("%w: %s is not allowed for %s - %s",
				transactionDomain.ErrUploadRejected, file.MimeType, file.FieldName, file.FileName)
		}
		if file.Size > p.MaxFileSize {
			return fmt.Errorf("%w: %s exceeds %d bytes",
				transactionDomain.ErrUploadRejected, file.FileName, p.MaxFileSize)
		}
	}
	return nil
}

func (t *transactionUseCase) store(p transactionDomain.UploadProfile, file transactionDomain.UploadedFile) (string, error) {
	r, err := file.Open()
	if err != nil {
		return "", err
	}
	defer func() {
		_ = r.Close()
	}()
	return t.files.Save(p.Dir, file.FileName, r, p.MaxFileSize)
}
