package usecase

import (
	"fmt"

	auditDomain "github.com/allisson/txgateway/internal/audit/domain"
)

const maskedAuthorization = "Auth token"

// Masker removes credentials and sensitive responses from log events.
type Masker struct {
	secure map[string]bool
}

// NewMasker creates a Masker. secureTypes lists transaction types whose client
// responses never reach the logs.
func NewMasker(secureTypes []string) *Masker {
	secure := make(map[string]bool, len(secureTypes))
	for _, t := range secureTypes {
		secure[t] = true
	}
	return &Masker{secure: secure}
}

// IsSecure reports whether transactionType is a secure-log type.
func (m *Masker) IsSecure(transactionType string) bool {
	return m.secure[transactionType]
}

// Apply masks the outbound Authorization header. For secure-log types logged at
// info level the client response is replaced by "<type> successful", and the
// backend data is dropped when the transaction succeeded.
func (m *Masker) Apply(event *auditDomain.Event, success bool) {
	if request, ok := event.Backend["request"].(map[string]any); ok {
		switch headers := request["headers"].(type) {
		case map[string]any:
			if _, ok := headers["Authorization"]; ok {
				headers["Authorization"] = maskedAuthorization
			}
		case map[string]string:
			if _, ok := headers["Authorization"]; ok {
				headers["Authorization"] = maskedAuthorization
			}
		}
	}

	if !m.secure[event.Action] || event.Type != auditDomain.LevelInfo {
		return
	}
	event.ClientResponse = fmt.Sprintf("%s successful", event.Action)
	if success && event.Backend != nil {
		event.Backend["data"] = map[string]any{}
	}
}
