package db

import (
	"time"

	"github.com/google/uuid"

	"github.com/morezero/fred-gateway/pkg/events"
)

// DispatchRecord is a row in the dispatch_log table.
type DispatchRecord struct {
	ID         uuid.UUID `json:"id"`
	RequestID  string    `json:"request_id"`
	Transport  string    `json:"transport"`
	Operation  string    `json:"operation"`
	Variant    string    `json:"variant,omitempty"`
	Outcome    string    `json:"outcome"`
	Message    string    `json:"message,omitempty"`
	DurationMs int64     `json:"duration_ms"`
	Created    time.Time `json:"created"`
}

// OutcomeCount is one row of an outcome summary.
type OutcomeCount struct {
	Operation string `json:"operation"`
	Outcome   string `json:"outcome"`
	Count     int64  `json:"count"`
}

// RecordFromEvent converts a dispatch event into a new record. An event
// timestamp that does not parse falls back to now.
func RecordFromEvent(e *events.DispatchEvent, now time.Time) *DispatchRecord {
	created := now.UTC()
	if ts, err := time.Parse(time.RFC3339Nano, e.Timestamp); err == nil {
		created = ts.UTC()
	}
	return &DispatchRecord{
		ID:         uuid.New(),
		RequestID:  e.RequestID,
		Transport:  e.Transport,
		Operation:  e.Operation,
		Variant:    e.Variant,
		Outcome:    e.Outcome,
		Message:    e.Message,
		DurationMs: e.DurationMs,
		Created:    created,
	}
}
