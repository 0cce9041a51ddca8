package usecase

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"

	"github.com/tidwall/gjson"

	auditDomain "github.com/allisson/txgateway/internal/audit/domain"
	auditUseCase "github.com/allisson/txgateway/internal/audit/usecase"
	authDomain "github.com/allisson/txgateway/internal/auth/domain"
	authService "github.com/allisson/txgateway/internal/auth/service"
	"github.com/allisson/txgateway/internal/cache"
	cryptoDomain "github.com/allisson/txgateway/internal/crypto/domain"
	cryptoService "github.com/allisson/txgateway/internal/crypto/service"
	apperrors "github.com/allisson/txgateway/internal/errors"
	sessionDomain "github.com/allisson/txgateway/internal/session/domain"
	sessionUseCase "github.com/allisson/txgateway/internal/session/usecase"
	transactionDomain "github.com/allisson/txgateway/internal/transaction/domain"
	transactionUseCase "github.com/allisson/txgateway/internal/transaction/usecase"
)

const (
	serviceName        = "auth"
	decryptFailureText = "Payload decryption failed"
)

// auditMetaFields are the session meta values copied into audit trail records.
var auditMetaFields = []string{
	"agentName",
	"phoneNumber",
	"agentCode",
	"outletCode",
	"operatorCode",
	"businessName",
	"branchName",
	"outletName",
	"operatorCity",
	"operatorRegion",
}

// Config holds the login guards.
type Config struct {
	AppName          string
	RecaptchaEnabled bool
	WhitelistEnabled bool
}

type authUseCase struct {
	envelopes    cryptoService.EnvelopeService
	sessions     sessionUseCase.SessionUseCase
	transactions transactionUseCase.TransactionUseCase
	passwords    cryptoService.Digester
	recaptcha    authService.RecaptchaVerifier
	whitelist    Whitelist
	queue        auditUseCase.Queue
	config       Config
	logger       *slog.Logger
}

// NewAuthUseCase creates an AuthUseCase. recaptcha and whitelist may be nil when
// the matching guard is disabled.
func NewAuthUseCase(
	envelopes cryptoService.EnvelopeService,
	sessions sessionUseCase.SessionUseCase,
	transactions transactionUseCase.TransactionUseCase,
	passwords cryptoService.Digester,
	recaptcha authService.RecaptchaVerifier,
	whitelist Whitelist,
	queue auditUseCase.Queue,
	config Config,
	logger *slog.Logger,
) AuthUseCase {
	return &authUseCase{
		envelopes:    envelopes,
		sessions:     sessions,
		transactions: transactions,
		passwords:    passwords,
		recaptcha:    recaptcha,
		whitelist:    whitelist,
		queue:        queue,
		config:       config,
		logger:       logger,
	}
}

func (a *authUseCase) Login(
	ctx context.Context,
	envelope *cryptoDomain.Envelope,
	caller *transactionDomain.Caller,
) (*cryptoDomain.Envelope, error) {
	var in authDomain.LoginInput
	opened, err := a.open(ctx, envelope, caller, "fetch-token", &in)
	if err != nil {
		return nil, err
	}

	event := a.newEvent("fetch-token", caller)
	event.RequestParams = map[string]any{
		"username":  in.Username,
		"loginId":   in.LoginID,
		"requestId": in.RequestID,
	}

	reply := a.login(ctx, &in, caller, event)
	a.emit(ctx, event)
	return a.seal(reply, opened)
}

func (a *authUseCase) login(
	ctx context.Context,
	in *authDomain.LoginInput,
	caller *transactionDomain.Caller,
	event *auditDomain.Event,
) *authDomain.Reply {
	rejected := &authDomain.Reply{Message: authDomain.LoginFailedText}

	if a.config.RecaptchaEnabled {
		result, err := a.recaptcha.Verify(ctx, in.RecaptchaToken, caller.ClientIP)
		if err == nil && !result.Success {
			event.ResponseData = result.Data
			err = authDomain.ErrRecaptchaFailed
		}
		if err != nil {
			event.Type = authDomain.LevelBot
			event.Error = err.Error()
			return rejected
		}
	}

	if a.config.WhitelistEnabled {
		allowed, err := a.whitelist.IsMember(ctx, cache.WhitelistKey(a.config.AppName), in.Username)
		if err == nil && !allowed {
			err = authDomain.ErrNotWhitelisted
		}
		if err != nil {
			event.Type = authDomain.LevelAccess
			event.Error = err.Error()
			return rejected
		}
	}

	feedback := a.transactions.Execute(ctx, &transactionDomain.Request{
		TransactionType: authDomain.TransactionLogin,
		Payload: map[string]any{
			"username":  in.Username,
			"password":  a.hash(in.Password, in.Username),
			"ipAddress": caller.ClientIP,
		},
		RequestID: in.RequestID,
	}, caller)

	if !feedback.Success {
		event.Type = auditDomain.LevelDebug
		event.ResponseData = fmt.Sprintf("Login failed. %v", feedback.Message)
		return &authDomain.Reply{
			Data:      feedback.Data,
			Message:   feedback.Message,
			RequestID: in.RequestID,
		}
	}

	accountDetails, floatAccount := accountOf(feedback.Data)
	out, err := a.sessions.SignIn(ctx, &sessionDomain.SignInInput{
		Username:       in.Username,
		IPAddress:      caller.ClientIP,
		AccountDetails: accountDetails,
		FloatAccount:   floatAccount,
	})
	if err != nil {
		a.logger.Error("failed to open session",
			slog.String("username", in.Username),
			slog.Any("error", err),
		)
		event.Type = auditDomain.LevelError
		event.Error = err.Error()
		event.ResponseData = "Login failed. Session could not be created"
		rejected.RequestID = in.RequestID
		return rejected
	}

	data := maps.Clone(accountDetails)
	if info, ok := accountDetails["accountInfo"].(map[string]any); ok {
		masked := maps.Clone(info)
		masked["floatAccount"] = sessionDomain.ObscureAccount(floatAccount)
		data["accountInfo"] = masked
	}
	data["sessionId"] = authDomain.SessionID
	data["token"] = out.Token

	event.ResponseData = "Login successful. Token generation successful"
	return &authDomain.Reply{
		Success:   true,
		Data:      data,
		Message:   authDomain.LoginSuccessText,
		RequestID: in.RequestID,
		Token:     out.Token,
	}
}

func (a *authUseCase) VerifyOTP(
	ctx context.Context,
	envelope *cryptoDomain.Envelope,
	caller *transactionDomain.Caller,
) (*cryptoDomain.Envelope, error) {
	var in authDomain.OTPInput
	opened, err := a.open(ctx, envelope, caller, "verify-otp", &in)
	if err != nil {
		return nil, err
	}

	event := a.newEvent("verify-otp", caller)
	event.RequestParams = map[string]any{
		"username":         in.Username,
		"verificationType": in.VerificationType,
		"requestId":        in.RequestID,
	}

	feedback := a.transactions.Execute(ctx, &transactionDomain.Request{
		TransactionType: authDomain.VerificationTransaction(in.VerificationType),
		Payload: map[string]any{
			"username":  in.Username,
			"direction": in.VerificationType,
			"token":     a.hash(in.OTP, in.Username),
			"ipAddress": caller.ClientIP,
		},
		RequestID: in.RequestID,
	}, caller)

	reply := outcome(feedback, authDomain.VerificationSuccessText, in.RequestID, event)
	a.emit(ctx, event)
	return a.seal(reply, opened)
}

func (a *authUseCase) ChangePassword(
	ctx context.Context,
	envelope *cryptoDomain.Envelope,
	caller *transactionDomain.Caller,
) (*cryptoDomain.Envelope, error) {
	var in authDomain.ChangePasswordInput
	opened, err := a.open(ctx, envelope, caller, "change-password", &in)
	if err != nil {
		return nil, err
	}

	event := a.newEvent("change-password", caller)
	event.RequestParams = map[string]any{"username": in.Username, "requestId": in.RequestID}

	// Client meta becomes template parameters; the hashed fields always win.
	payload := make(map[string]any, len(in.Meta)+3)
	maps.Copy(payload, in.Meta)
	payload["username"] = in.Username
	payload["currentPassword"] = a.hash(in.CurrentPassword, in.Username)
	payload["newPassword"] = a.hash(in.ConfirmPassword, in.Username)

	feedback := a.transactions.Execute(ctx, &transactionDomain.Request{
		TransactionType: authDomain.TransactionChangePassword,
		Payload:         payload,
		RequestID:       in.RequestID,
	}, caller)

	reply := outcome(feedback, authDomain.VerificationSuccessText, in.RequestID, event)
	a.emit(ctx, event)
	return a.seal(reply, opened)
}

func (a *authUseCase) SendOTP(
	ctx context.Context,
	envelope *cryptoDomain.Envelope,
	caller *transactionDomain.Caller,
) (*cryptoDomain.Envelope, error) {
	var in authDomain.SendOTPInput
	opened, err := a.open(ctx, envelope, caller, "send-otp", &in)
	if err != nil {
		return nil, err
	}

	event := a.newEvent("send-otp", caller)
	event.RequestParams = map[string]any{"username": in.Username, "direction": in.Direction}

	feedback := a.transactions.Execute(ctx, &transactionDomain.Request{
		TransactionType: authDomain.TransactionSendOTP,
		Payload: map[string]any{
			"username":    in.Username,
			"phoneNumber": in.PhoneNumber,
			"agentName":   in.AgentName,
			"direction":   in.Direction,
			"email":       in.Email,
		},
		RequestID: in.RequestID,
	}, caller)

	// The backend message is the reply in both outcomes.
	reply := &authDomain.Reply{Success: feedback.Success, Message: feedback.Message, RequestID: in.RequestID}
	if !feedback.Success {
		event.Type = auditDomain.LevelDebug
	}
	event.ClientResponse = reply
	a.emit(ctx, event)
	return a.seal(reply, opened)
}

func (a *authUseCase) VerifySession(
	ctx context.Context,
	envelope *cryptoDomain.Envelope,
	caller *transactionDomain.Caller,
) (*cryptoDomain.Envelope, error) {
	var in authDomain.SessionCheckInput
	opened, err := a.open(ctx, envelope, caller, "verify-session", &in)
	if err != nil {
		return nil, err
	}

	event := a.newEvent("verify-session", caller)
	event.RequestParams = map[string]any{"username": in.Username, "module": in.Module, "signout": in.SignOut}

	reply := &authDomain.Reply{Message: authDomain.SessionFailedText}
	switch {
	case in.SignOut:
		a.signOut(ctx, in.Username)
		event.ResponseData = "session signed out"
	default:
		_, err := a.sessions.Bind(ctx, &sessionDomain.BindInput{
			Token:           caller.Token,
			TokenSubject:    caller.TokenSubject,
			ClaimedUsername: in.Username,
			IPAddress:       caller.ClientIP,
		})
		if err != nil {
			event.Type = auditDomain.LevelDebug
			event.Error = err.Error()
			a.signOut(ctx, in.Username)
			break
		}
		reply = &authDomain.Reply{
			Success: true,
			Message: fmt.Sprintf(authDomain.SessionSuccessTextFormat, in.Username),
		}
	}

	event.ClientResponse = reply
	a.emit(ctx, event)
	return a.seal(reply, opened)
}

func (a *authUseCase) AuditTrail(
	ctx context.Context,
	envelope *cryptoDomain.Envelope,
	caller *transactionDomain.Caller,
) (*cryptoDomain.Envelope, error) {
	var in authDomain.AuditTrailInput
	opened, err := a.open(ctx, envelope, caller, authDomain.TransactionAuditTrail, &in)
	if err != nil {
		return nil, err
	}

	payload := map[string]any{
		"username":        in.Username,
		"moduleName":      in.Module,
		"moduleId":        authDomain.ModuleID(in.Module),
		"activePage":      in.Page,
		"customerAccount": in.Account,
		"activity":        in.Activity,
		"floatAccount":    "",
		"ip":              caller.ClientIP,
		"device":          caller.Device.Description(),
	}
	for _, name := range auditMetaFields {
		payload[name] = ""
	}

	record, err := a.sessions.Fetch(ctx, in.Username)
	switch {
	case err == nil:
		meta := sessionDomain.ExtractMeta(in.Username, record.AccountDetails)
		for _, name := range auditMetaFields {
			payload[name] = meta[name]
		}
		payload["floatAccount"] = record.FloatAccount
	case !apperrors.Is(err, apperrors.ErrNotFound):
		a.logger.Debug("audit trail without session details",
			slog.String("username", in.Username),
			slog.Any("error", err),
		)
	}

	a.transactions.Execute(ctx, &transactionDomain.Request{
		TransactionType: authDomain.TransactionAuditTrail,
		Payload:         payload,
	}, caller)

	return a.seal(&authDomain.Reply{Success: true}, opened)
}

func (a *authUseCase) PublicKey() string {
	return base64.StdEncoding.EncodeToString(a.envelopes.PublicKeyPEM())
}

// hash is the keyed digest the backend expects for passwords and one-time codes.
func (a *authUseCase) hash(secret, username string) string {
	return a.passwords.Digest(secret + username)
}

func (a *authUseCase) signOut(ctx context.Context, username string) {
	if err := a.sessions.SignOut(ctx, username); err != nil {
		a.logger.Warn("failed to delete session",
			slog.String("username", username),
			slog.Any("error", err),
		)
	}
}

// open decrypts an envelope into target. Failures are audited and returned.
func (a *authUseCase) open(
	ctx context.Context,
	envelope *cryptoDomain.Envelope,
	caller *transactionDomain.Caller,
	action string,
	target any,
) (*cryptoDomain.Opened, error) {
	opened, err := a.envelopes.Open(envelope)
	if err == nil {
		if err = json.Unmarshal(opened.Plaintext, target); err == nil {
			return opened, nil
		}
		err = fmt.Errorf("%w: %v", authDomain.ErrPayloadDecode, err)
	}

	event := a.newEvent(action, caller)
	event.Type = auditDomain.LevelError
	event.ResponseData = decryptFailureText
	event.Error = err.Error()
	a.emit(ctx, event)
	return nil, err
}

func (a *authUseCase) seal(reply *authDomain.Reply, opened *cryptoDomain.Opened) (*cryptoDomain.Envelope, error) {
	plaintext, err := json.Marshal(reply)
	if err != nil {
		return nil, err
	}
	return a.envelopes.Seal(plaintext, opened.PublicKey)
}

func (a *authUseCase) newEvent(action string, caller *transactionDomain.Caller) *auditDomain.Event {
	event := auditDomain.NewEvent(auditDomain.KindLog, action, serviceName)
	event.ClientIP = caller.ClientIP
	event.UserDevice = caller.Device.Map()
	return event
}

// emit enqueues an audit event. Queue failures are logged and never change the result.
func (a *authUseCase) emit(ctx context.Context, event *auditDomain.Event) {
	if err := a.queue.Enqueue(ctx, event); err != nil {
		a.logger.Warn("failed to enqueue audit event",
			slog.String("event_id", event.ID.String()),
			slog.String("action", event.Action),
			slog.Any("error", err),
		)
	}
}

// outcome builds the reply of a verification flow and records it on the event.
func outcome(
	feedback *transactionDomain.Feedback,
	successText string,
	requestID any,
	event *auditDomain.Event,
) *authDomain.Reply {
	reply := &authDomain.Reply{
		Success:   feedback.Success,
		Data:      feedback.Data,
		Message:   feedback.Message,
		RequestID: requestID,
	}
	if feedback.Success {
		reply.Message = successText
	} else {
		event.Type = auditDomain.LevelDebug
	}
	event.ClientResponse = reply
	return reply
}

// accountOf returns the login data as a document and its float account. The
// backend may send the float account as a number.
func accountOf(data any) (map[string]any, string) {
	raw, err := json.Marshal(data)
	if err != nil {
		return map[string]any{}, ""
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil || doc == nil {
		doc = map[string]any{}
	}
	return doc, gjson.GetBytes(raw, "accountInfo.floatAccount").String()
}
