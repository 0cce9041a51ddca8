package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		validate func(t *testing.T, cfg *Config)
	}{
		{
			name:    "load default configuration",
			envVars: map[string]string{},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "0.0.0.0", cfg.ServerHost)
				assert.Equal(t, 4000, cfg.ServerPort)
				assert.Equal(t, "info", cfg.LogLevel)
				assert.Equal(t, "eef-teller-api", cfg.AppName)
				assert.Equal(t, 2700*time.Second, cfg.SessionExpiry)
				assert.Equal(t, 45*time.Minute, cfg.AuthTokenExpiration)
				assert.Equal(t, "localhost:6379", cfg.RedisAddr)
				assert.Equal(t, 60*time.Second, cfg.BackendTimeout)
				assert.Equal(t, "store", cfg.UploadDir)
				assert.False(t, cfg.BackendTLSSkipVerify)
				assert.Equal(
					t,
					[]string{"login", "verify-otp", "verify-totp", "send-otp", "change-password", "customer-audit-trail"},
					cfg.UnprotectedTransactions,
				)
				assert.Equal(t, []string{"login"}, cfg.SecureLogTransactions)
				assert.Equal(t, "log", cfg.AuditSink)
				assert.False(t, cfg.AuditUsesDatabase())
				assert.Equal(t, "postgres", cfg.DBDriver)
				assert.Equal(t, 5*time.Minute, cfg.DBConnMaxLifetime)
				assert.Equal(t, "gateway", cfg.MetricsNamespace)
			},
		},
		{
			name: "load custom server configuration",
			envVars: map[string]string{
				"SERVER_HOST": "localhost",
				"SERVER_PORT": "9090",
				"APP_NAME":    "teller",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "localhost", cfg.ServerHost)
				assert.Equal(t, 9090, cfg.ServerPort)
				assert.Equal(t, "teller", cfg.AppName)
			},
		},
		{
			name: "load session and token lifetimes",
			envVars: map[string]string{
				"SESSION_EXPIRY_SECONDS":        "600",
				"AUTH_TOKEN_EXPIRATION_MINUTES": "10",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 600*time.Second, cfg.SessionExpiry)
				assert.Equal(t, 10*time.Minute, cfg.AuthTokenExpiration)
			},
		},
		{
			name: "load transaction lists with blanks",
			envVars: map[string]string{
				"UNPROTECTED_TRANSACTIONS": " login , ,send-otp",
				"SECURE_LOG_TRANSACTIONS":  "",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, []string{"login", "send-otp"}, cfg.UnprotectedTransactions)
				assert.Nil(t, cfg.SecureLogTransactions)
			},
		},
		{
			name: "load database audit sink",
			envVars: map[string]string{
				"AUDIT_SINK":           "database",
				"DB_DRIVER":            "mysql",
				"DB_CONNECTION_STRING": "user:password@tcp(localhost:3306)/gateway",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.True(t, cfg.AuditUsesDatabase())
				assert.Equal(t, "mysql", cfg.DBDriver)
				assert.Equal(t, "user:password@tcp(localhost:3306)/gateway", cfg.DBConnectionString)
			},
		},
		{
			name: "load custom log level",
			envVars: map[string]string{
				"LOG_LEVEL": "debug",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "debug", cfg.LogLevel)
				assert.Equal(t, "debug", cfg.GetGinMode())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()

			for key, value := range tt.envVars {
				err := os.Setenv(key, value)
				require.NoError(t, err)
			}

			cfg := Load()

			tt.validate(t, cfg)
		})
	}
}

func TestGetGinMode(t *testing.T) {
	for _, level := range []string{"info", "warn", "error", "unknown"} {
		cfg := &Config{LogLevel: level}
		assert.Equal(t, "release", cfg.GetGinMode(), level)
	}
}
