package service

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/allisson/txgateway/internal/metrics"
	settingsDomain "github.com/allisson/txgateway/internal/settings/domain"
	"github.com/allisson/txgateway/internal/template"
	transactionDomain "github.com/allisson/txgateway/internal/transaction/domain"
)

const (
	defaultSource      = "default"
	defaultHeaders     = "default"
	tokenSource        = "jwtToken"
	fetchAuthorization = "fetch"
	pathParamMarker    = "%@"

	contentTypeMultipart = "multipart/form-data"
	contentTypeForm      = "application/x-www-form-urlencoded"

	timingLayout   = "YYYY-MM-DD HH:mm:ss:SSSS"
	maxBodyBytes   = 10 << 20
	metricsDomain  = "backend"
	genericFailure = "request was unsuccessful"
	parseFailure   = "request unsuccessful"
)

// NewHTTPClient returns the client used for backend calls. Every call is bounded
// by timeout; skipVerify disables certificate checks for self-signed backends.
func NewHTTPClient(timeout time.Duration, skipVerify bool) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if skipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in through BACKEND_TLS_SKIP_VERIFY
	}
	return &http.Client{Timeout: timeout, Transport: transport}
}

// dispatcher implements Dispatcher over an HTTP client.
type dispatcher struct {
	client   HTTPDoer
	resolver Resolver
	adapters *AdapterRegistry
	cipher   PayloadCipher
	files    AttachmentOpener
	metrics  metrics.BusinessMetrics
	logger   *slog.Logger
	now      func() time.Time
}

// NewDispatcher creates a Dispatcher. cipher may be nil when no configuration
// enables the "encrypt" permission; files may be nil when no route uploads
// documents, in which case multipart calls carry no files.
func NewDispatcher(
	client HTTPDoer,
	resolver Resolver,
	adapters *AdapterRegistry,
	cipher PayloadCipher,
	files AttachmentOpener,
	businessMetrics metrics.BusinessMetrics,
	logger *slog.Logger,
) Dispatcher {
	return &dispatcher{
		client:   client,
		resolver: resolver,
		adapters: adapters,
		cipher:   cipher,
		files:    files,
		metrics:  businessMetrics,
		logger:   logger,
		now:      time.Now,
	}
}

func (d *dispatcher) GenerateRequest(
	ctx context.Context,
	tree *settingsDomain.Tree,
	endpoint *settingsDomain.Endpoint,
	pathParams map[string]any,
	data map[string]any,
	attachments []transactionDomain.Attachment,
) (*transactionDomain.OutboundRequest, error) {
	format := tree.PayloadFormat()
	if endpoint.OverridePayloadFormat != "" {
		format = endpoint.OverridePayloadFormat
	}

	body, err := encodeFormat(format, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", transactionDomain.ErrRequestGeneration, err)
	}
	if !endpoint.IgnorePermissions {
		if body, err = applyPermissions(tree.Permissions, d.cipher, body); err != nil {
			return nil, fmt.Errorf("%w: %v", transactionDomain.ErrRequestGeneration, err)
		}
	}

	source := defaultSource
	if endpoint.OverrideSource != "" {
		source = endpoint.OverrideSource
	}
	method, target, err := tree.ResolveSource(source)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", transactionDomain.ErrRequestGeneration, err)
	}
	target = substitutePathParams(target, pathParams)

	profile := defaultHeaders
	if endpoint.OverrideHeaders != "" {
		profile = endpoint.OverrideHeaders
	}
	headers, err := d.applyHeaders(ctx, tree, tree.Headers(profile), data)
	if err != nil {
		return nil, err
	}

	out := &transactionDomain.OutboundRequest{
		Method:  method,
		URL:     target,
		Headers: headers,
		Data:    body,
	}

	switch strings.ToLower(headerValue(headers, "content-type")) {
	case contentTypeMultipart:
		if err := d.buildMultipart(out, body, attachments); err != nil {
			return nil, fmt.Errorf("%w: %v", transactionDomain.ErrRequestGeneration, err)
		}
	case contentTypeForm:
		out.Body = []byte(formEncode(body))
	default:
		if out.Body, err = rawBody(body); err != nil {
			return nil, fmt.Errorf("%w: %v", transactionDomain.ErrRequestGeneration, err)
		}
	}
	return out, nil
}

// applyHeaders replaces an "Authorization: fetch" marker with a bearer token
// obtained from the token endpoint. A failed token call still proceeds with
// whatever the endpoint answered.
func (d *dispatcher) applyHeaders(
	ctx context.Context,
	tree *settingsDomain.Tree,
	headers map[string]string,
	payload map[string]any,
) (map[string]string, error) {
	if headers["Authorization"] != fetchAuthorization {
		return headers, nil
	}

	te := tree.RequestSettings.JWTToken
	if te == nil {
		return nil, fmt.Errorf("%w: token endpoint is not configured", transactionDomain.ErrConfiguration)
	}
	method, target, err := tree.ResolveSource(tokenSource)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", transactionDomain.ErrRequestGeneration, err)
	}

	tokenData, err := d.resolver.Resolve(te.Data, payload, template.Context{Meta: tree.Meta, Config: tree.Config})
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(tokenData)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", transactionDomain.ErrRequestGeneration, err)
	}

	tokenHeaders := map[string]string{}
	for k, v := range te.Headers {
		tokenHeaders[k] = v
	}
	if headerValue(tokenHeaders, "content-type") == "" {
		tokenHeaders["Content-Type"] = "application/json"
	}

	var token any
	resp, err := d.do(ctx, method, target, tokenHeaders, body)
	if err != nil {
		d.logger.Warn("token fetch failed", slog.String("url", target), slog.Any("error", err))
	} else {
		data := fromJSON(string(resp.Body))
		field := te.Response.Token.Field
		token = data
		if resp.StatusCode == http.StatusOK && field != "" && field != errorResponseData {
			if obj, ok := data.(map[string]any); ok {
				token = obj[field]
			}
		}
	}

	headers["Authorization"] = "Bearer " + textOf(token)
	return headers, nil
}

func (d *dispatcher) SendRequest(
	ctx context.Context,
	tree *settingsDomain.Tree,
	call *Call,
) *transactionDomain.Exchange {
	endpoint := call.Endpoint
	rc := template.Context{Meta: tree.Meta, Config: tree.Config}

	requestData := map[string]any{}
	if !endpoint.RemoveTemplate {
		merge(requestData, tree.RequestSettings.Template)
	}
	merge(requestData, endpoint.Request)
	if endpoint.IncludeAllFields {
		merge(requestData, call.Params)
	}

	resolved, err := d.resolver.Resolve(requestData, call.Params, rc)
	if err != nil {
		return d.failed(ctx, call, err)
	}

	hookParams := map[string]any{}
	merge(hookParams, call.Params)
	merge(hookParams, resolved)
	resolved = ApplyPrehooks(resolved, hookParams)

	var pathParams map[string]any
	if endpoint.PathParams != nil {
		if pathParams, err = d.resolver.Resolve(endpoint.PathParams, call.Params, rc); err != nil {
			return d.failed(ctx, call, err)
		}
	}

	outbound, err := d.GenerateRequest(ctx, tree, endpoint, pathParams, resolved, call.Attachments)
	if err != nil {
		return d.failed(ctx, call, err)
	}

	sent := d.now()
	resp, err := d.do(ctx, outbound.Method, outbound.URL, outbound.Headers, outbound.Body)
	received := d.now()
	timing := transactionDomain.Timing{
		Sent:     template.FormatMoment(sent, timingLayout),
		Received: template.FormatMoment(received, timingLayout),
		Latency:  fmt.Sprintf("%d ms", received.Sub(sent).Milliseconds()),
	}

	var exchange *transactionDomain.Exchange
	if err != nil {
		d.logger.Warn("backend call failed",
			slog.String("transaction_type", call.TransactionType),
			slog.String("outcome", transactionDomain.OutcomeUnreachable),
			slog.String("url", outbound.URL),
			slog.Any("error", err),
		)
		exchange = &transactionDomain.Exchange{
			Success:      false,
			Message:      settingsDomain.StatusFailed,
			ErrorMessage: genericFailure,
			NotReceived:  true,
			Outcome:      transactionDomain.OutcomeUnreachable,
			Err:          err,
		}
	} else {
		exchange = d.ParseResponse(tree, endpoint, resp.StatusCode, resp.Body)
		exchange.Code = resp.StatusCode
	}

	exchange.Request = outbound
	exchange.RequestTime = timing

	d.metrics.RecordOperation(ctx, metricsDomain, call.TransactionType, exchange.Outcome)
	d.metrics.RecordDuration(ctx, metricsDomain, call.TransactionType, received.Sub(sent), exchange.Outcome)
	return exchange
}

// failed reports a call that never left the gateway.
func (d *dispatcher) failed(ctx context.Context, call *Call, err error) *transactionDomain.Exchange {
	d.logger.Error("backend request could not be built",
		slog.String("transaction_type", call.TransactionType),
		slog.Any("error", err),
	)
	d.metrics.RecordOperation(ctx, metricsDomain, call.TransactionType, transactionDomain.OutcomeError)
	return &transactionDomain.Exchange{
		Success:      false,
		Message:      settingsDomain.StatusFailed,
		ErrorMessage: genericFailure,
		NotReceived:  true,
		Outcome:      transactionDomain.OutcomeError,
		Err:          err,
	}
}

func (d *dispatcher) ParseResponse(
	tree *settingsDomain.Tree,
	endpoint *settingsDomain.Endpoint,
	statusCode int,
	body []byte,
) *transactionDomain.Exchange {
	format := tree.PayloadFormat()
	if endpoint.OverridePayloadFormat != "" {
		format = endpoint.OverridePayloadFormat
	}
	perm := tree.Permissions
	if endpoint.IgnorePermissions {
		perm = settingsDomain.Permissions{}
	}

	unparsed := func(err error) *transactionDomain.Exchange {
		return &transactionDomain.Exchange{
			Success:      false,
			Message:      settingsDomain.StatusFailed,
			Data:         fromJSON(string(body)),
			ErrorMessage: parseFailure,
			Outcome:      transactionDomain.OutcomeRejected,
			Err:          fmt.Errorf("%w: %v", transactionDomain.ErrResponseParse, err),
		}
	}

	data, err := decodeBody(perm, d.cipher, format, body)
	if err != nil {
		return unparsed(err)
	}

	rule := endpoint.Response.Status
	success := evaluateStatus(rule, statusCode, data)

	exchange := &transactionDomain.Exchange{
		Success: success,
		Message: rule.StatusMessage,
		Outcome: transactionDomain.OutcomeSuccess,
	}

	if !success {
		exchange.ErrorMessage = extractError(rule.Error, data)
		exchange.Message = settingsDomain.StatusFailed
		if rule.Error.StatusMessage != nil {
			exchange.Message = *rule.Error.StatusMessage
		}
		exchange.Outcome = transactionDomain.OutcomeRejected
		exchange.Err = transactionDomain.ErrBackendRejected
	}

	if success && endpoint.Response.Adapter != "" {
		name, ok := tree.Code[endpoint.Response.Adapter]
		if !ok {
			return unparsed(fmt.Errorf("%w: %s", transactionDomain.ErrUnknownAdapter, endpoint.Response.Adapter))
		}
		if data, err = d.adapters.Apply(name, data); err != nil {
			return unparsed(err)
		}
	}

	exchange.Data = data
	return exchange
}

func (d *dispatcher) Fetch(
	ctx context.Context,
	tree *settingsDomain.Tree,
	source string,
	payload any,
) (*RawResponse, error) {
	_, target, err := tree.ResolveSource(source)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", transactionDomain.ErrConfiguration, err)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", transactionDomain.ErrRequestGeneration, err)
	}
	return d.do(ctx, http.MethodPost, target, map[string]string{"Content-Type": "application/json"}, body)
}

// do sends one request. Transport failures and timeouts wrap ErrBackendUnreachable;
// any HTTP status is returned as a response.
func (d *dispatcher) do(
	ctx context.Context,
	method, target string,
	headers map[string]string,
	body []byte,
) (*RawResponse, error) {
	var reader io.Reader
	if method != http.MethodGet && body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", transactionDomain.ErrRequestGeneration, err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", transactionDomain.ErrBackendUnreachable, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", transactionDomain.ErrBackendUnreachable, err)
	}
	return &RawResponse{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        raw,
	}, nil
}

// substitutePathParams replaces "%@name" segments after the host with resolved
// path parameters. Unknown names are left in place.
func substitutePathParams(target string, params map[string]any) string {
	if len(params) == 0 || !strings.Contains(target, pathParamMarker) {
		return target
	}
	parts := strings.Split(target, pathParamMarker)
	for _, part := range parts[1:] {
		name := part
		if i := strings.IndexFunc(part, func(r rune) bool {
			return !(r == '_' || r == '-' || r == '.' ||
				(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'))
		}); i >= 0 {
			name = part[:i]
		}
		if value, ok := params[name]; ok && name != "" {
			target = strings.ReplaceAll(target, pathParamMarker+name, url.PathEscape(textOf(value)))
		}
	}
	return target
}

func (d *dispatcher) buildMultipart(
	out *transactionDomain.OutboundRequest,
	body any,
	attachments []transactionDomain.Attachment,
) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	files := make([]string, 0, len(attachments))
	for _, a := range attachments {
		if err := d.appendFile(w, a); err != nil {
			return err
		}
		files = append(files, a.FileName)
	}

	message, err := rawBody(body)
	if err != nil {
		return err
	}
	if err := w.WriteField("message", string(message)); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	for k := range out.Headers {
		if strings.EqualFold(k, "content-type") {
			delete(out.Headers, k)
		}
	}
	out.Headers["Content-Type"] = w.FormDataContentType()
	out.Data = map[string]any{"message": body, "files": files}
	out.Body = buf.Bytes()
	return nil
}

// appendFile streams a stored upload into the body. Paths are resolved by the
// upload store and never leave its directory.
func (d *dispatcher) appendFile(w *multipart.Writer, a transactionDomain.Attachment) error {
	if d.files == nil {
		return fmt.Errorf("%w: no upload store configured", transactionDomain.ErrAttachmentOutsideStore)
	}
	f, err := d.files.Open(a.Path)
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()

	field := a.FieldName
	if field == "" {
		field = "file"
	}
	name := a.FileName
	if name == "" {
		name = filepath.Base(a.Path)
	}
	part, err := w.CreateFormFile(field, name)
	if err != nil {
		return err
	}
	_, err = io.Copy(part, f)
	return err
}

// formEncode renders object members as form fields in key order.
func formEncode(body any) string {
	obj, ok := body.(map[string]any)
	if !ok {
		return textOf(body)
	}
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	values := url.Values{}
	for _, k := range keys {
		values.Set(k, textOf(obj[k]))
	}
	return values.Encode()
}

func rawBody(body any) ([]byte, error) {
	if s, ok := body.(string); ok {
		return []byte(s), nil
	}
	return json.Marshal(body)
}

func headerValue(headers map[string]string, name string) string {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

func merge(dst, src map[string]any) {
	for k, v := range src {
		dst[k] = v
	}
}
