package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"

	auditDomain "github.com/allisson/txgateway/internal/audit/domain"
)

func backendExchange() map[string]any {
	return map[string]any{
		"request": map[string]any{
			"headers": map[string]any{"Authorization": "Bearer secret", "Content-Type": "application/json"},
		},
		"data": map[string]any{"field39": "00"},
	}
}

func TestMasker_Apply(t *testing.T) {
	m := NewMasker([]string{"login"})

	t.Run("masks authorization header", func(t *testing.T) {
		event := auditDomain.NewEvent(auditDomain.KindLog, "balance", "transactions")
		event.Backend = backendExchange()
		event.ClientResponse = map[string]any{"success": true}

		m.Apply(event, true)

		headers := event.Backend["request"].(map[string]any)["headers"].(map[string]any)
		assert.Equal(t, "Auth token", headers["Authorization"])
		assert.Equal(t, "application/json", headers["Content-Type"])
		assert.Equal(t, map[string]any{"success": true}, event.ClientResponse)
		assert.Equal(t, map[string]any{"field39": "00"}, event.Backend["data"])
	})

	t.Run("masks string header maps", func(t *testing.T) {
		event := auditDomain.NewEvent(auditDomain.KindLog, "balance", "transactions")
		event.Backend = map[string]any{
			"request": map[string]any{"headers": map[string]string{"Authorization": "Bearer x"}},
		}
		m.Apply(event, false)
		assert.Equal(t, "Auth token", event.Backend["request"].(map[string]any)["headers"].(map[string]string)["Authorization"])
	})

	t.Run("secure type success", func(t *testing.T) {
		event := auditDomain.NewEvent(auditDomain.KindLog, "login", "transactions")
		event.Backend = backendExchange()
		event.ClientResponse = map[string]any{"success": true, "data": map[string]any{"token": "t"}}

		m.Apply(event, true)

		assert.Equal(t, "login successful", event.ClientResponse)
		assert.Equal(t, map[string]any{}, event.Backend["data"])
	})

	t.Run("secure type declined keeps backend data", func(t *testing.T) {
		event := auditDomain.NewEvent(auditDomain.KindLog, "login", "transactions")
		event.Backend = backendExchange()

		m.Apply(event, false)

		assert.Equal(t, "login successful", event.ClientResponse)
		assert.Equal(t, map[string]any{"field39": "00"}, event.Backend["data"])
	})

	t.Run("secure type at error level is untouched", func(t *testing.T) {
		event := auditDomain.NewEvent(auditDomain.KindLog, "login", "transactions")
		event.Type = auditDomain.LevelError
		event.ClientResponse = map[string]any{"success": false}

		m.Apply(event, false)

		assert.Equal(t, map[string]any{"success": false}, event.ClientResponse)
	})

	assert.True(t, m.IsSecure("login"))
	assert.False(t, m.IsSecure("balance"))
}
