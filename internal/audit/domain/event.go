// Package domain defines audit events and the outbox records that persist them.
package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event kinds.
const (
	// KindLog is a transaction log entry.
	KindLog = "log"
	// KindAnalytics is a usage record forwarded to analytics.
	KindAnalytics = "analytics"
)

// Event levels, carried in Event.Type.
const (
	LevelInfo  = "info"
	LevelDebug = "debug"
	LevelError = "error"
)

// Event is a single audit or analytics emission.
type Event struct {
	ID      uuid.UUID `json:"id"`
	Kind    string    `json:"kind"`
	Type    string    `json:"type"`
	Action  string    `json:"action"`
	Service string    `json:"service"`
	// TxnType is the backend transaction code (field100) when the template sets one.
	TxnType       string         `json:"txnType,omitempty"`
	RequestParams map[string]any `json:"requestParams,omitempty"`
	ClientIP      string         `json:"clientIp,omitempty"`
	UserDevice    map[string]any `json:"userDevice,omitempty"`
	// Backend is the outbound exchange (request, response, timing).
	Backend        map[string]any `json:"esb-request,omitempty"`
	ClientResponse any            `json:"clientResponse,omitempty"`
	ResponseData   any            `json:"responseData,omitempty"`
	Error          string         `json:"error,omitempty"`
	Timestamp      time.Time      `json:"timestamp"`
}

// NewEvent returns an event stamped with a UUIDv7 and the current time.
func NewEvent(kind, action, service string) *Event {
	return &Event{
		ID:        uuid.Must(uuid.NewV7()),
		Kind:      kind,
		Type:      LevelInfo,
		Action:    action,
		Service:   service,
		Timestamp: time.Now().UTC(),
	}
}

// Status is the processing state of an outbox record.
type Status string

const (
	StatusPending   Status = "pending"
	StatusProcessed Status = "processed"
	StatusFailed    Status = "failed"
)

// Record is an event persisted in the audit_events outbox table.
type Record struct {
	ID          uuid.UUID
	Kind        string
	Action      string
	Payload     []byte
	Signature   []byte
	Status      Status
	Retries     int
	LastError   *string
	ProcessedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewRecord serializes an event into a pending record. CreatedAt is truncated to
// microseconds, the precision both supported databases keep.
func NewRecord(event *Event) (*Record, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &Record{
		ID:        event.ID,
		Kind:      event.Kind,
		Action:    event.Action,
		Payload:   payload,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Event decodes the stored payload.
func (r *Record) Event() (*Event, error) {
	var event Event
	if err := json.Unmarshal(r.Payload, &event); err != nil {
		return nil, err
	}
	return &event, nil
}
