package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeSnapshot builds n quotes with distinct keys and returns both the slice
// and its serialized form.
func makeSnapshot(t *testing.T, n int, category string) ([]*Quote, string) {
	t.Helper()

	quotes := make([]*Quote, n)
	for i := range quotes {
		quotes[i] = &Quote{
			Text:     category + "-" + string(rune('a'+i)),
			Category: category,
			ServerID: int64(i + 1),
		}
	}

	raw, err := MarshalQuotes(quotes)
	require.NoError(t, err)

	return quotes, raw
}

func TestDetectChanges(t *testing.T) {
	_, baselineRaw := makeSnapshot(t, 5, "Server")

	tests := []struct {
		name          string
		localCount    int
		baselineCount int
		remoteRaw     func(t *testing.T) string
		wantLocal     bool
		wantRemote    bool
		wantConflict  bool
	}{
		{
			name:          "local grew and remote changed",
			localCount:    7,
			baselineCount: 5,
			remoteRaw: func(t *testing.T) string {
				t.Helper()
				_, raw := makeSnapshot(t, 6, "Server")
				return raw
			},
			wantLocal:    true,
			wantRemote:   true,
			wantConflict: true,
		},
		{
			name:          "local unchanged while remote changed",
			localCount:    5,
			baselineCount: 5,
			remoteRaw: func(t *testing.T) string {
				t.Helper()
				_, raw := makeSnapshot(t, 6, "Server")
				return raw
			},
			wantLocal:    false,
			wantRemote:   true,
			wantConflict: false,
		},
		{
			name:          "local changed while remote frozen",
			localCount:    9,
			baselineCount: 5,
			remoteRaw:     func(*testing.T) string { return baselineRaw },
			wantLocal:     true,
			wantRemote:    false,
			wantConflict:  false,
		},
		{
			name:          "nothing changed",
			localCount:    5,
			baselineCount: 5,
			remoteRaw:     func(*testing.T) string { return baselineRaw },
			wantLocal:     false,
			wantRemote:    false,
			wantConflict:  false,
		},
		{
			name:          "same count different content still flags remote",
			localCount:    5,
			baselineCount: 5,
			remoteRaw: func(t *testing.T) string {
				t.Helper()
				_, raw := makeSnapshot(t, 5, "Remote")
				return raw
			},
			wantLocal:    false,
			wantRemote:   true,
			wantConflict: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := DetectChanges(tt.localCount, tt.baselineCount, baselineRaw, tt.remoteRaw(t))

			assert.Equal(t, tt.wantLocal, report.LocalChanged)
			assert.Equal(t, tt.wantRemote, report.RemoteChanged)
			assert.Equal(t, tt.wantConflict, report.Conflict())
		})
	}
}

// Local divergence is judged by count alone: replacing a quote while keeping
// the collection size constant is invisible to detection. The asymmetry is
// deliberate and must not be "fixed" into content comparison.
func TestDetectChanges_LocalCountOnlyPolicy(t *testing.T) {
	_, baselineRaw := makeSnapshot(t, 5, "Server")
	_, changedRemote := makeSnapshot(t, 6, "Server")

	// Local content was edited but the count matches the baseline count,
	// so only the remote side registers as changed: auto-merge path.
	report := DetectChanges(5, 5, baselineRaw, changedRemote)

	assert.False(t, report.LocalChanged)
	assert.True(t, report.RemoteChanged)
	assert.False(t, report.Conflict())
}
