package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	auditDomain "github.com/allisson/txgateway/internal/audit/domain"
	auditUseCase "github.com/allisson/txgateway/internal/audit/usecase"
	cryptoDomain "github.com/allisson/txgateway/internal/crypto/domain"
	cryptoService "github.com/allisson/txgateway/internal/crypto/service"
	sessionDomain "github.com/allisson/txgateway/internal/session/domain"
	sessionUseCase "github.com/allisson/txgateway/internal/session/usecase"
	settingsDomain "github.com/allisson/txgateway/internal/settings/domain"
	settingsUseCase "github.com/allisson/txgateway/internal/settings/usecase"
	transactionDomain "github.com/allisson/txgateway/internal/transaction/domain"
	transactionService "github.com/allisson/txgateway/internal/transaction/service"
	"github.com/allisson/txgateway/internal/validation"
)

const (
	serviceName        = "transactions"
	receiptService     = "receipt"
	receiptSource      = "download-receipt"
	defaultDeviceType  = "Computer"
	auditTrailType     = "customer-audit-trail"
	schemaMissingText  = "Schema does not exist"
	endpointMissing    = "Endpoint does not exist"
	configMissingText  = "Configuration is not loaded"
	decryptFailureText = "Payload decryption failed"
	sessionFailureText = "Failed user validation session"
)

// Config holds the orchestrator settings.
type Config struct {
	// UnprotectedTypes skip session binding.
	UnprotectedTypes []string
	// AnalyticsEnabled emits an analytics event per transaction.
	AnalyticsEnabled bool
}

type transactionUseCase struct {
	envelopes  cryptoService.EnvelopeService
	sessions   sessionUseCase.SessionUseCase
	settings   settingsUseCase.Source
	dispatcher transactionService.Dispatcher
	files      FileStore
	queue      auditUseCase.Queue
	masker     *auditUseCase.Masker
	config     Config
	logger     *slog.Logger

	unprotected map[string]bool
}

// NewTransactionUseCase creates a TransactionUseCase. files may be nil when no
// upload route is served.
func NewTransactionUseCase(
	envelopes cryptoService.EnvelopeService,
	sessions sessionUseCase.SessionUseCase,
	settings settingsUseCase.Source,
	dispatcher transactionService.Dispatcher,
	files FileStore,
	queue auditUseCase.Queue,
	masker *auditUseCase.Masker,
	config Config,
	logger *slog.Logger,
) TransactionUseCase {
	unprotected := make(map[string]bool, len(config.UnprotectedTypes))
	for _, t := range config.UnprotectedTypes {
		unprotected[t] = true
	}
	return &transactionUseCase{
		envelopes:   envelopes,
		sessions:    sessions,
		settings:    settings,
		dispatcher:  dispatcher,
		files:       files,
		queue:       queue,
		masker:      masker,
		config:      config,
		logger:      logger,
		unprotected: unprotected,
	}
}

func (t *transactionUseCase) HandleEnvelope(
	ctx context.Context,
	envelope *cryptoDomain.Envelope,
	caller *transactionDomain.Caller,
) (*cryptoDomain.Envelope, error) {
	opened, req, err := t.open(ctx, envelope, caller, serviceName)
	if err != nil {
		return nil, err
	}

	feedback := t.Execute(ctx, req, caller)

	plaintext, err := json.Marshal(transactionDomain.Reply{Feedback: *feedback, RequestID: req.RequestID})
	if err != nil {
		return nil, err
	}
	return t.envelopes.Seal(plaintext, opened.PublicKey)
}

// open decrypts and parses an envelope, logging the failure as an audit event.
func (t *transactionUseCase) open(
	ctx context.Context,
	envelope *cryptoDomain.Envelope,
	caller *transactionDomain.Caller,
	service string,
) (*cryptoDomain.Opened, *transactionDomain.Request, error) {
	opened, err := t.envelopes.Open(envelope)
	if err == nil {
		var req *transactionDomain.Request
		if req, err = transactionDomain.ParseRequest(opened.Plaintext); err == nil {
			return opened, req, nil
		}
	}

	event := auditDomain.NewEvent(auditDomain.KindLog, "", service)
	event.Type = auditDomain.LevelError
	event.ClientIP = caller.ClientIP
	event.UserDevice = caller.Device.Map()
	event.ResponseData = decryptFailureText
	event.Error = err.Error()
	t.emit(ctx, event)
	return nil, nil, err
}

func (t *transactionUseCase) Execute(
	ctx context.Context,
	req *transactionDomain.Request,
	caller *transactionDomain.Caller,
) (feedback *transactionDomain.Feedback) {
	tree := t.settings.Current()
	statusMessage := func(code int) string {
		if tree == nil {
			return settingsDomain.DefaultStatusMessages[code]
		}
		return tree.StatusMessage(code)
	}

	feedback = &transactionDomain.Feedback{
		Status:  settingsDomain.StatusFailed,
		Message: statusMessage(settingsDomain.StatusFailed),
	}

	event := auditDomain.NewEvent(auditDomain.KindLog, req.TransactionType, serviceName)
	event.RequestParams = map[string]any{
		"transactionType": req.TransactionType,
		"payload":         req.Payload,
		"requestId":       req.RequestID,
	}
	event.ClientIP = caller.ClientIP
	event.UserDevice = caller.Device.Map()

	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("transaction panicked",
				slog.String("transaction_type", req.TransactionType),
				slog.Any("panic", r),
			)
			feedback = &transactionDomain.Feedback{
				Status:  settingsDomain.StatusInternalFailure,
				Message: statusMessage(settingsDomain.StatusInternalFailure),
				Error:   fmt.Sprint(r),
			}
			event.Type = auditDomain.LevelError
			event.Error = fmt.Sprint(r)
			event.ClientResponse = toDocument(feedback)
		}
		t.emit(ctx, event)
		if t.config.AnalyticsEnabled && req.TransactionType != auditTrailType {
			analytics := *event
			analytics.ID = uuid.Must(uuid.NewV7())
			analytics.Kind = auditDomain.KindAnalytics
			t.emit(ctx, &analytics)
		}
	}()

	binding, err := t.authorize(ctx, req, caller)
	if err != nil {
		event.Type = auditDomain.LevelError
		event.ResponseData = sessionFailureText
		event.Error = err.Error()
		event.ClientResponse = toDocument(feedback)
		return feedback
	}

	t.run(ctx, tree, req, caller, binding, feedback, event)
	event.ClientResponse = toDocument(feedback)
	t.masker.Apply(event, feedback.Success)
	return feedback
}

// run fills feedback and event for an authorized request.
func (t *transactionUseCase) run(
	ctx context.Context,
	tree *settingsDomain.Tree,
	req *transactionDomain.Request,
	caller *transactionDomain.Caller,
	binding *sessionDomain.Binding,
	feedback *transactionDomain.Feedback,
	event *auditDomain.Event,
) {
	event.Type = auditDomain.LevelError

	if tree == nil {
		feedback.Status = settingsDomain.StatusInternalFailure
		feedback.Message = settingsDomain.DefaultStatusMessages[settingsDomain.StatusInternalFailure]
		feedback.Error = configMissingText
		return
	}

	schema, ok := tree.Schema(req.TransactionType)
	if !ok {
		feedback.Status = settingsDomain.StatusSchemaMissing
		feedback.Message = tree.StatusMessage(settingsDomain.StatusSchemaMissing)
		feedback.Error = schemaMissingText
		return
	}
	endpoint, ok := tree.Endpoint(req.TransactionType)
	if !ok {
		feedback.Status = settingsDomain.StatusSchemaMissing
		feedback.Message = tree.StatusMessage(settingsDomain.StatusSchemaMissing)
		feedback.Error = endpointMissing
		return
	}

	serviceData := t.serviceData(req, caller, binding)
	if err := schema.Validate(serviceData); err != nil {
		feedback.Status = settingsDomain.StatusValidation
		feedback.Message = tree.StatusMessage(settingsDomain.StatusValidation)
		feedback.Error = validation.FirstError(err)
		event.Error = fmt.Errorf("%w: %s", transactionDomain.ErrValidation, feedback.Error).Error()
		return
	}

	exchange := t.dispatcher.SendRequest(ctx, tree, &transactionService.Call{
		TransactionType: req.TransactionType,
		Endpoint:        endpoint,
		Params:          serviceData,
		Attachments:     req.Attachments,
	})

	feedback.Status = exchange.Message
	feedback.Success = exchange.Success
	if text, ok := exchange.ErrorText(); ok {
		feedback.Message = text
	} else {
		feedback.Message = tree.StatusMessage(exchange.Message)
	}
	feedback.Data = transactionService.ApplyPosthooks(exchange.Data, req.TransactionType, endpoint.Posthook)

	event.TxnType = req.TransactionType
	if code, ok := endpoint.Request["field100"].(string); ok && code != "" {
		event.TxnType = code
	}
	event.Backend = toDocument(exchange)
	if event.Backend != nil {
		event.Backend["message"] = tree.StatusMessage(exchange.Message)
		event.Backend["error"] = exchange.ErrorMessage
		event.Backend["esbDuration"] = event.Backend["requestTime"]
	}

	switch {
	case exchange.NotReceived:
		event.Type = auditDomain.LevelError
	case !exchange.Success:
		event.Type = auditDomain.LevelDebug
	default:
		event.Type = auditDomain.LevelInfo
	}
	if exchange.Err != nil {
		event.Error = exchange.Err.Error()
	}
}

// authorize binds the caller's session unless the transaction type is unprotected.
func (t *transactionUseCase) authorize(
	ctx context.Context,
	req *transactionDomain.Request,
	caller *transactionDomain.Caller,
) (*sessionDomain.Binding, error) {
	if t.unprotected[req.TransactionType] {
		return &sessionDomain.Binding{Meta: map[string]any{}}, nil
	}

	binding, err := t.sessions.Bind(ctx, &sessionDomain.BindInput{
		Token:           caller.Token,
		TokenSubject:    caller.TokenSubject,
		ClaimedUsername: req.Username(),
		IPAddress:       caller.ClientIP,
	})
	if err != nil {
		t.logger.Info("transaction authorization failed",
			slog.String("transaction_type", req.TransactionType),
			slog.Any("error", err),
		)
		return nil, fmt.Errorf("%w: %v", transactionDomain.ErrUnauthorizedTransaction, err)
	}
	return binding, nil
}

// serviceData is the parameter set templates and schemas see: device details,
// session meta, the client payload and the float account, later keys winning.
func (t *transactionUseCase) serviceData(
	req *transactionDomain.Request,
	caller *transactionDomain.Caller,
	binding *sessionDomain.Binding,
) map[string]any {
	deviceType := caller.Device.DeviceType
	if deviceType == "" {
		deviceType = defaultDeviceType
	}

	data := map[string]any{
		"clientIp":   caller.ClientIP,
		"deviceType": deviceType,
		"deviceInfo": caller.Device.Description(),
	}
	for k, v := range binding.Meta {
		data[k] = v
	}
	for k, v := range req.Payload {
		data[k] = v
	}
	data["floatAccount"] = binding.FloatAccount
	return data
}

func (t *transactionUseCase) PrintReceipt(
	ctx context.Context,
	envelope *cryptoDomain.Envelope,
	caller *transactionDomain.Caller,
) (*transactionService.RawResponse, error) {
	_, req, err := t.open(ctx, envelope, caller, receiptService)
	if err != nil {
		return nil, err
	}

	tree := t.settings.Current()
	if tree == nil {
		return nil, transactionDomain.ErrConfiguration
	}

	// The receipt service receives the whole decrypted request.
	payload := map[string]any{
		"transactionType": req.TransactionType,
		"payload":         req.Payload,
	}
	if req.RequestID != nil {
		payload["requestId"] = req.RequestID
	}

	resp, err := t.dispatcher.Fetch(ctx, tree, receiptSource, payload)

	event := auditDomain.NewEvent(auditDomain.KindLog, req.TransactionType, receiptService)
	event.RequestParams = payload
	event.ClientIP = caller.ClientIP
	event.UserDevice = caller.Device.Map()
	if err != nil {
		event.Type = auditDomain.LevelError
		event.Error = err.Error()
	} else {
		event.ResponseData = map[string]any{"status": resp.StatusCode, "contentType": resp.ContentType}
	}
	t.emit(ctx, event)

	return resp, err
}

// emit enqueues an audit event. Queue failures are logged and never change the result.
func (t *transactionUseCase) emit(ctx context.Context, event *auditDomain.Event) {
	if err := t.queue.Enqueue(ctx, event); err != nil {
		t.logger.Warn("failed to enqueue audit event",
			slog.String("event_id", event.ID.String()),
			slog.String("kind", event.Kind),
			slog.Any("error", err),
		)
	}
}

// toDocument converts a value to its JSON object form, as it is logged.
func toDocument(v any) map[string]any {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil
	}
	return doc
}
