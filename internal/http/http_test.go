package http

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	authHTTP "github.com/allisson/txgateway/internal/auth/http"
	authMocks "github.com/allisson/txgateway/internal/auth/usecase/mocks"
	"github.com/allisson/txgateway/internal/config"
	cryptoDomain "github.com/allisson/txgateway/internal/crypto/domain"
	"github.com/allisson/txgateway/internal/metrics"
	sessionDomain "github.com/allisson/txgateway/internal/session/domain"
	sessionMocks "github.com/allisson/txgateway/internal/session/usecase/mocks"
	transactionDomain "github.com/allisson/txgateway/internal/transaction/domain"
	transactionHTTP "github.com/allisson/txgateway/internal/transaction/http"
	transactionMocks "github.com/allisson/txgateway/internal/transaction/usecase/mocks"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	goleak.VerifyTestMain(m)
}

type stubPinger struct {
	err error
}

func (s stubPinger) Ping(ctx context.Context) error {
	return s.err
}

type sqlmockDB struct {
	db   *sql.DB
	mock sqlmock.Sqlmock
}

func newSQLMockDB(t *testing.T) *sqlmockDB {
	t.Helper()
	db, sqlMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return &sqlmockDB{db: db, mock: sqlMock}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHealthHandler(t *testing.T) {
	server := NewServer(stubPinger{}, nil, "localhost", 8080, discardLogger())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)

	server.healthHandler(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, w.Body.String())
}

func TestReadinessHandler(t *testing.T) {
	tests := []struct {
		name       string
		cache      Pinger
		setupDB    func(t *testing.T) *sqlmockDB
		wantStatus int
		wantState  string
		wantCache  string
		wantDB     string
	}{
		{
			name:       "cache up without database",
			cache:      stubPinger{},
			wantStatus: http.StatusOK,
			wantState:  "ready",
			wantCache:  "ok",
			wantDB:     "disabled",
		},
		{
			name:       "cache down",
			cache:      stubPinger{err: errors.New("connection refused")},
			wantStatus: http.StatusServiceUnavailable,
			wantState:  "not_ready",
			wantCache:  "error",
			wantDB:     "disabled",
		},
		{
			name:       "no cache configured",
			cache:      nil,
			wantStatus: http.StatusServiceUnavailable,
			wantState:  "not_ready",
			wantCache:  "error",
			wantDB:     "disabled",
		},
		{
			name:  "database up",
			cache: stubPinger{},
			setupDB: func(t *testing.T) *sqlmockDB {
				db := newSQLMockDB(t)
				db.mock.ExpectPing()
				return db
			},
			wantStatus: http.StatusOK,
			wantState:  "ready",
			wantCache:  "ok",
			wantDB:     "ok",
		},
		{
			name:  "database down",
			cache: stubPinger{},
			setupDB: func(t *testing.T) *sqlmockDB {
				db := newSQLMockDB(t)
				db.mock.ExpectPing().WillReturnError(errors.New("bad connection"))
				return db
			},
			wantStatus: http.StatusServiceUnavailable,
			wantState:  "not_ready",
			wantCache:  "ok",
			wantDB:     "error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := NewServer(tt.cache, nil, "localhost", 8080, discardLogger())
			var db *sqlmockDB
			if tt.setupDB != nil {
				db = tt.setupDB(t)
				server.db = db.db
			}

			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/ready", nil)

			server.readinessHandler(c)

			assert.Equal(t, tt.wantStatus, w.Code)

			var response struct {
				Status     string            `json:"status"`
				Components map[string]string `json:"components"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
			assert.Equal(t, tt.wantState, response.Status)
			assert.Equal(t, tt.wantCache, response.Components["cache"])
			assert.Equal(t, tt.wantDB, response.Components["database"])

			if db != nil {
				assert.NoError(t, db.mock.ExpectationsWereMet())
			}
		})
	}
}

func TestCustomLoggerMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	router := gin.New()
	router.Use(requestid.New(requestid.WithGenerator(func() string { return "req-123" })))
	router.Use(CustomLoggerMiddleware(logger))
	router.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/fail", func(c *gin.Context) { c.Status(http.StatusBadGateway) })

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/fail", nil))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var first, second map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))

	assert.Equal(t, "INFO", first["level"])
	assert.Equal(t, "req-123", first["request_id"])
	assert.Equal(t, "/ok", first["path"])
	assert.EqualValues(t, http.StatusOK, first["status"])

	assert.Equal(t, "ERROR", second["level"])
	assert.EqualValues(t, http.StatusBadGateway, second["status"])
}

func TestRecoveryMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(CustomLoggerMiddleware(discardLogger()))
	router.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestSecurityHeadersMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(SecurityHeadersMiddleware())
	router.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.Equal(t, "default-src 'self'; frame-ancestors 'none'", w.Header().Get("Content-Security-Policy"))
	assert.Equal(t, "max-age=86400; includeSubDomains", w.Header().Get("Strict-Transport-Security"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-referrer", w.Header().Get("Referrer-Policy"))
}

func TestBodyLimitMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(BodyLimitMiddleware(16))
	router.POST("/echo", func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}
		c.String(http.StatusOK, string(body))
	})

	t.Run("WithinLimit", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(`{"a":1}`)))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, `{"a":1}`, w.Body.String())
	})

	t.Run("DeclaredLengthTooLarge", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(strings.Repeat("x", 32))))

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.Contains(t, w.Body.String(), "payload_too_large")
	})

	t.Run("UndeclaredLengthTooLarge", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(strings.Repeat("x", 32)))
		req.ContentLength = -1

		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})
}

func TestIPRateLimitMiddleware(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	router := gin.New()
	router.Use(IPRateLimitMiddleware(ctx, 0.01, 2, discardLogger()))
	router.GET("/limited", func(c *gin.Context) { c.Status(http.StatusOK) })

	call := func(remoteAddr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/limited", nil)
		req.RemoteAddr = remoteAddr
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, call("10.0.0.1:1000").Code)
	assert.Equal(t, http.StatusOK, call("10.0.0.1:1001").Code)

	limited := call("10.0.0.1:1002")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.NotEmpty(t, limited.Header().Get("Retry-After"))
	assert.Contains(t, limited.Body.String(), "rate_limit_exceeded")

	// Buckets are per client IP.
	assert.Equal(t, http.StatusOK, call("10.0.0.2:1000").Code)
}

func TestRateLimiterStore_Sweep(t *testing.T) {
	store := &rateLimiterStore{rps: 1, burst: 1}
	store.getLimiter("10.0.0.1")
	store.getLimiter("10.0.0.2")

	store.sweep(time.Now().Add(-time.Hour))
	_, kept := store.limiters.Load("10.0.0.1")
	assert.True(t, kept)

	store.sweep(time.Now().Add(time.Minute))
	_, kept = store.limiters.Load("10.0.0.1")
	assert.False(t, kept)
	_, kept = store.limiters.Load("10.0.0.2")
	assert.False(t, kept)
}

type routerFixture struct {
	router       http.Handler
	auth         *authMocks.MockAuthUseCase
	sessions     *sessionMocks.MockSessionUseCase
	transactions *transactionMocks.MockTransactionUseCase
}

func newRouterFixture(t *testing.T, cfg *config.Config) *routerFixture {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	logger := discardLogger()
	f := &routerFixture{
		auth:         &authMocks.MockAuthUseCase{},
		sessions:     &sessionMocks.MockSessionUseCase{},
		transactions: &transactionMocks.MockTransactionUseCase{},
	}
	t.Cleanup(func() {
		f.auth.AssertExpectations(t)
		f.sessions.AssertExpectations(t)
		f.transactions.AssertExpectations(t)
	})

	server := NewServer(stubPinger{}, nil, "localhost", 8080, logger)
	server.SetupRouter(
		ctx,
		cfg,
		transactionHTTP.NewTransactionHandler(f.transactions, logger),
		authHTTP.NewAuthHandler(f.auth, logger),
		f.sessions,
		nil,
	)
	f.router = server.GetHandler()
	return f
}

func routerConfig() *config.Config {
	return &config.Config{AppName: "teller"}
}

func envelopeBody(t *testing.T) io.Reader {
	t.Helper()
	raw, err := json.Marshal(map[string]any{
		"payload": cryptoDomain.Envelope{SecureKeys: "a2V5cw==", Data: "abcd", PublicKey: "jwk"},
	})
	require.NoError(t, err)
	return bytes.NewReader(raw)
}

func TestRouter_PublicRoutes(t *testing.T) {
	f := newRouterFixture(t, routerConfig())

	t.Run("Health", func(t *testing.T) {
		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, w.Header().Get("X-Request-Id"))
		assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	})

	t.Run("FetchPublicKey", func(t *testing.T) {
		f.auth.On("PublicKey").Return("cHVibGljLWtleQ==").Once()

		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/teller/auth/fetch-public-key", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "cHVibGljLWtleQ==", w.Body.String())
	})

	t.Run("Login", func(t *testing.T) {
		sealed := &cryptoDomain.Envelope{SecureKeys: "sealed-keys", Data: "sealed-data"}
		f.auth.On("Login", mock.Anything, mock.Anything, mock.Anything).Return(sealed, nil).Once()

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/teller/auth/login", envelopeBody(t))
		req.Header.Set("Content-Type", "application/json")
		f.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "sealed-data")
	})

	t.Run("UnknownRoute", func(t *testing.T) {
		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/teller/unknown", nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("NoMetricsOnMainRouter", func(t *testing.T) {
		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestRouter_AuthenticatedRoutes(t *testing.T) {
	f := newRouterFixture(t, routerConfig())

	t.Run("MissingBearer", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/teller/main/transactions", envelopeBody(t))
		req.Header.Set("Content-Type", "application/json")
		f.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("RejectedToken", func(t *testing.T) {
		f.sessions.On("VerifyToken", mock.Anything, "stale-token").
			Return(nil, sessionDomain.ErrAuthentication).Once()

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/teller/main/transactions", envelopeBody(t))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer stale-token")
		f.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Transaction", func(t *testing.T) {
		claims := &sessionDomain.Claims{Username: "jdoe", ExpiresAt: time.Now().Add(time.Minute)}
		f.sessions.On("VerifyToken", mock.Anything, "good-token").Return(claims, nil).Once()

		sealed := &cryptoDomain.Envelope{SecureKeys: "sealed-keys", Data: "sealed-feedback"}
		f.transactions.On("HandleEnvelope", mock.Anything, mock.Anything, mock.Anything).
			Return(sealed, nil).Once()

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/teller/main/transactions", envelopeBody(t))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer good-token")
		f.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "sealed-feedback")
	})

	t.Run("SessionAuth", func(t *testing.T) {
		claims := &sessionDomain.Claims{Username: "jdoe", ExpiresAt: time.Now().Add(time.Minute)}
		f.sessions.On("VerifyToken", mock.Anything, "good-token").Return(claims, nil).Once()

		sealed := &cryptoDomain.Envelope{SecureKeys: "sealed-keys", Data: "sealed-session"}
		f.auth.On("VerifySession", mock.Anything, mock.Anything, mock.Anything).Return(sealed, nil).Once()

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/teller/main/session-auth", envelopeBody(t))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer good-token")
		f.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "sealed-session")
	})
}

func TestRouter_UploadRoutes(t *testing.T) {
	f := newRouterFixture(t, routerConfig())

	uploadRequest := func(t *testing.T, route string, size int) *http.Request {
		t.Helper()
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		require.NoError(t, w.WriteField("payload", `{"username":"jdoe"}`))
		part, err := w.CreateFormFile("file", "doc.pdf")
		require.NoError(t, err)
		_, err = part.Write(bytes.Repeat([]byte("a"), size))
		require.NoError(t, err)
		require.NoError(t, w.Close())

		req := httptest.NewRequest(http.MethodPost, "/teller/main/"+route, &buf)
		req.Header.Set("Content-Type", w.FormDataContentType())
		req.Header.Set("Authorization", "Bearer good-token")
		return req
	}

	claims := &sessionDomain.Claims{Username: "jdoe", ExpiresAt: time.Now().Add(time.Minute)}

	for _, profile := range transactionDomain.UploadProfiles {
		t.Run(profile.Route, func(t *testing.T) {
			f.sessions.On("VerifyToken", mock.Anything, "good-token").Return(claims, nil).Once()
			f.transactions.On("Upload",
				mock.Anything,
				mock.MatchedBy(func(in *transactionDomain.UploadInput) bool {
					return in.Profile.Route == profile.Route && len(in.Files) == 1
				}),
				mock.Anything,
			).Return(&transactionDomain.Feedback{Success: true}, nil).Once()

			// Larger than the JSON route limit, within the upload limit.
			w := httptest.NewRecorder()
			f.router.ServeHTTP(w, uploadRequest(t, profile.Route, 2<<20))

			assert.Equal(t, http.StatusOK, w.Code)
		})
	}

	t.Run("TransactionsKeepTheirLimit", func(t *testing.T) {
		f.sessions.On("VerifyToken", mock.Anything, "good-token").Return(claims, nil).Once()

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/teller/main/transactions", bytes.NewReader(bytes.Repeat([]byte("a"), 2<<20)))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer good-token")
		f.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})
}

func TestRouter_AuthRateLimit(t *testing.T) {
	cfg := routerConfig()
	cfg.RateLimitAuthEnabled = true
	cfg.RateLimitAuthRequestsPerSec = 0.01
	cfg.RateLimitAuthBurst = 1

	f := newRouterFixture(t, cfg)
	f.auth.On("PublicKey").Return("a2V5").Once()

	first := httptest.NewRecorder()
	f.router.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/teller/auth/fetch-public-key", nil))
	assert.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	f.router.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/teller/auth/fetch-public-key", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestServer_StartWithoutRouter(t *testing.T) {
	server := NewServer(stubPinger{}, nil, "localhost", 0, discardLogger())

	err := server.Start(context.Background())
	assert.EqualError(t, err, "router not initialized")
	assert.NoError(t, server.Shutdown(context.Background()))
}

func TestMetricsServer(t *testing.T) {
	logger := discardLogger()

	t.Run("ExposesMetrics", func(t *testing.T) {
		provider, err := metrics.NewProvider("txgateway_test")
		require.NoError(t, err)
		defer func() {
			assert.NoError(t, provider.Shutdown(context.Background()))
		}()

		w := httptest.NewRecorder()
		NewMetricsServer("localhost", 8081, logger, provider).
			GetHandler().
			ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
	})

	t.Run("NilProvider", func(t *testing.T) {
		w := httptest.NewRecorder()
		NewMetricsServer("localhost", 8081, logger, nil).
			GetHandler().
			ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
