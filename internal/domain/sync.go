package domain

import "time"

// SyncState is the sync engine's state machine position.
type SyncState string

// Sync engine states. Transitions: Idle -> Syncing -> {Idle, ConflictPending},
// ConflictPending -> Idle (resolution only).
const (
	SyncIdle            SyncState = "idle"
	SyncSyncing         SyncState = "syncing"
	SyncConflictPending SyncState = "conflict_pending"
)

// SyncStatus classifies the outcome of one sync cycle.
type SyncStatus string

const (
	// SyncMerged means the remote snapshot was folded into the local
	// collection and new baselines were persisted.
	SyncMerged SyncStatus = "merged"

	// SyncConflict means both sides diverged from the baseline; merging is
	// suspended until the conflict is resolved.
	SyncConflict SyncStatus = "conflict"

	// SyncSkipped means the trigger was coalesced because a cycle was
	// already in flight.
	SyncSkipped SyncStatus = "skipped"
)

// ChangeReport captures which sides diverged from the stored baseline.
// Local divergence is judged by collection length against the baseline
// length; remote divergence by comparing the serialized snapshots. The two
// checks are independent and only ever reference the previous remote
// snapshot, never a previous local state: a local-only edit with a frozen
// remote merges silently. That asymmetry is intended behavior.
type ChangeReport struct {
	LocalChanged  bool
	RemoteChanged bool
}

// Conflict reports whether both sides diverged.
func (r ChangeReport) Conflict() bool {
	return r.LocalChanged && r.RemoteChanged
}

// DetectChanges compares the current local collection length and the freshly
// serialized remote snapshot against the stored baseline.
func DetectChanges(localCount, baselineCount int, baselineRaw, remoteRaw string) ChangeReport {
	return ChangeReport{
		LocalChanged:  localCount != baselineCount,
		RemoteChanged: remoteRaw != baselineRaw,
	}
}

// ConflictRecord describes a detected-but-unresolved divergence. It is
// session-scoped: it lives only in memory and does not survive a restart.
type ConflictRecord struct {
	// LocalCount is the local collection size at detection time.
	LocalCount int

	// RemoteCount is the size of the freshly fetched remote snapshot.
	RemoteCount int

	// BaselineCount is the size of the stored baseline snapshot.
	BaselineCount int

	// RemoteQuotes is the held remote snapshot a resolution applies.
	RemoteQuotes []*Quote

	// DetectedAt is when the divergence was observed.
	DetectedAt time.Time
}

// SyncOutcome summarizes one completed sync cycle or resolution.
type SyncOutcome struct {
	Status      SyncStatus
	Added       int
	Skipped     int
	RemoteCount int

	// FirstSync is true when no baseline existed before this cycle.
	FirstSync bool

	// Pushed reports whether the best-effort push succeeded.
	Pushed bool

	// Conflict is set when Status is SyncConflict.
	Conflict *ConflictRecord

	CompletedAt time.Time
}
