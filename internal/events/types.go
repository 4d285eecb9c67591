package events

// Event type identifiers for kelindar/event.
const (
	TypeKeyStatusChanged uint32 = iota + 1
	TypeKeyStateChanged
	TypeKeymapReset
	TypeLogEntry
)

// Event is implemented by everything published on the Bus.
type Event interface {
	Type() uint32
}

// KeyStatusChangedEvent is published when a reload observes a key in a different
// state than the previous reload.
type KeyStatusChangedEvent struct {
	Key       string `json:"key" example:"Num Lock" doc:"Key name"`
	ID        string `json:"id" example:"1" doc:"Key id reported by the status source"`
	Enabled   bool   `json:"enabled" doc:"Whether the key is on"`
	Timestamp string `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Observation time"`
}

// Type returns TypeKeyStatusChanged.
func (e KeyStatusChangedEvent) Type() uint32 { return TypeKeyStatusChanged }

// KeyStateChangedEvent is published when a Set request on a key settles.
type KeyStateChangedEvent struct {
	DriveID   string `json:"drive_id" example:"9b2f1c4e-0d7a-4a55-a1a8-2c1f5e0b7d11" doc:"Identifier of the set request"`
	Key       string `json:"key" example:"Num Lock" doc:"Key name"`
	Target    bool   `json:"target" doc:"Requested state"`
	Enabled   bool   `json:"enabled" doc:"State observed after the request settled"`
	Outcome   string `json:"outcome" example:"converged" enum:"unchanged,converged,cancelled,exhausted,failed" doc:"How the request settled"`
	Attempts  int    `json:"attempts" example:"1" doc:"Number of on/off actions run"`
	Error     string `json:"error,omitempty" doc:"Error message for exhausted or failed requests"`
	Timestamp string `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Settle time"`
}

// Type returns TypeKeyStateChanged.
func (e KeyStateChangedEvent) Type() uint32 { return TypeKeyStateChanged }

// KeymapResetEvent is published after the keymap was prepared again.
type KeymapResetEvent struct {
	Error     string `json:"error,omitempty" doc:"Error message if the reset failed"`
	Timestamp string `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Reset time"`
}

// Type returns TypeKeymapReset.
func (e KeymapResetEvent) Type() uint32 { return TypeKeymapReset }

// LogEntryEvent carries one log record to log stream clients.
type LogEntryEvent struct {
	Timestamp  string         `json:"timestamp" example:"2026-01-27T10:30:00.123456789Z" doc:"Record time"`
	Level      string         `json:"level" example:"info" doc:"Log level"`
	Module     string         `json:"module" example:"keyboard" doc:"Module that logged the record"`
	Message    string         `json:"message" doc:"Log message"`
	Attributes map[string]any `json:"attributes,omitempty" doc:"Structured attributes"`
}

// Type returns TypeLogEntry.
func (e LogEntryEvent) Type() uint32 { return TypeLogEntry }
