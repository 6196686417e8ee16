package app

import "time"

// Event type identifiers published on the event bus.
const (
	EventSyncCompleted    = "sync.completed"
	EventConflictDetected = "sync.conflict_detected"
	EventConflictResolved = "sync.conflict_resolved"
)

// SyncCompletedEvent announces a merged sync cycle. Published only after the
// new baseline has been persisted.
type SyncCompletedEvent struct {
	Added       int       `json:"added"`
	Skipped     int       `json:"skipped"`
	RemoteCount int       `json:"remote_count"`
	FirstSync   bool      `json:"first_sync"`
	Pushed      bool      `json:"pushed"`
	CompletedAt time.Time `json:"completed_at"`
}

// EventType implements ports.Event.
func (e SyncCompletedEvent) EventType() string { return EventSyncCompleted }

// Payload implements ports.Event.
func (e SyncCompletedEvent) Payload() any { return e }

// ConflictDetectedEvent announces a divergence that suspended merging.
// The counts mirror the ConflictRecord surfaced to the collaborator.
type ConflictDetectedEvent struct {
	LocalCount    int       `json:"local_count"`
	RemoteCount   int       `json:"remote_count"`
	BaselineCount int       `json:"baseline_count"`
	DetectedAt    time.Time `json:"detected_at"`
}

// EventType implements ports.Event.
func (e ConflictDetectedEvent) EventType() string { return EventConflictDetected }

// Payload implements ports.Event.
func (e ConflictDetectedEvent) Payload() any { return e }

// ConflictResolvedEvent announces that a pending conflict was cleared.
type ConflictResolvedEvent struct {
	UseRemote  bool      `json:"use_remote"`
	QuoteCount int       `json:"quote_count"`
	ResolvedAt time.Time `json:"resolved_at"`
}

// EventType implements ports.Event.
func (e ConflictResolvedEvent) EventType() string { return EventConflictResolved }

// Payload implements ports.Event.
func (e ConflictResolvedEvent) Payload() any { return e }
