// Package events defines the dispatch event emitted after every dispatch and
// the publishers that forward it (NATS, metrics, audit log).
package events

// DispatchEvent describes one completed dispatch.
type DispatchEvent struct {
	RequestID  string `json:"requestId"`
	Transport  string `json:"transport"`
	Operation  string `json:"operation"`
	Variant    string `json:"variant,omitempty"`
	Outcome    string `json:"outcome"`
	Message    string `json:"message,omitempty"`
	DurationMs int64  `json:"durationMs"`
	Timestamp  string `json:"timestamp"`
}

// OK reports whether the dispatch succeeded.
func (e *DispatchEvent) OK() bool {
	return e.Outcome == "ok"
}
