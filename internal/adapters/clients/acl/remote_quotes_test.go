package acl

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quote-sync/internal/adapters/clients"
	"github.com/jsamuelsen/quote-sync/internal/domain"
)

// newRemoteQuotesAdapter starts a test server with the given handler and
// returns an adapter pointed at it.
func newRemoteQuotesAdapter(t *testing.T, handler http.HandlerFunc) *RemoteQuotesAdapter {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := clients.New(testConfig(server.URL))
	require.NoError(t, err)

	return NewRemoteQuotes(RemoteQuotesConfig{Client: client})
}

func TestNewRemoteQuotes_RequiresClient(t *testing.T) {
	assert.Panics(t, func() {
		NewRemoteQuotes(RemoteQuotesConfig{})
	})
}

func TestNewRemoteQuotes_Defaults(t *testing.T) {
	client, err := clients.New(testConfig("http://localhost:1"))
	require.NoError(t, err)

	adapter := NewRemoteQuotes(RemoteQuotesConfig{Client: client})

	assert.Equal(t, "remote-quotes", adapter.Name())
	assert.NotNil(t, adapter.logger)
	assert.NotNil(t, adapter.now)
}

func TestNewRemoteQuotes_CustomServiceName(t *testing.T) {
	client, err := clients.New(testConfig("http://localhost:1"))
	require.NoError(t, err)

	adapter := NewRemoteQuotes(RemoteQuotesConfig{Client: client, ServiceName: "quote-feed"})

	assert.Equal(t, "quote-feed", adapter.Name())
}

func TestRemoteQuotesAdapter_FetchSnapshot(t *testing.T) {
	adapter := newRemoteQuotesAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/posts", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id": 1, "userId": 1, "title": "The obstacle is the way"},
			{"id": 2, "userId": 2, "title": "What we think, we become"}
		]`))
	})

	fetchedAt := time.UnixMilli(1700000000000)
	adapter.now = func() time.Time { return fetchedAt }

	quotes, err := adapter.FetchSnapshot(context.Background())

	require.NoError(t, err)
	require.Len(t, quotes, 2)

	// Odd author ids map to "Remote", even to "Server".
	assert.Equal(t, "The obstacle is the way", quotes[0].Text)
	assert.Equal(t, "Remote", quotes[0].Category)
	assert.Equal(t, int64(1), quotes[0].ServerID)
	assert.Equal(t, int64(1700000000000), quotes[0].ServerTimestamp)

	assert.Equal(t, "What we think, we become", quotes[1].Text)
	assert.Equal(t, "Server", quotes[1].Category)
	assert.Equal(t, int64(2), quotes[1].ServerID)
	assert.Equal(t, int64(1700000000000), quotes[1].ServerTimestamp)
}

func TestRemoteQuotesAdapter_FetchSnapshot_CapsSnapshotSize(t *testing.T) {
	adapter := newRemoteQuotesAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		posts := make([]remotePost, 0, fetchLimit+5)
		for i := 1; i <= fetchLimit+5; i++ {
			posts = append(posts, remotePost{
				ID:     int64(i),
				UserID: int64(i),
				Title:  fmt.Sprintf("quote %d", i),
			})
		}

		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(posts))
	})

	quotes, err := adapter.FetchSnapshot(context.Background())

	require.NoError(t, err)
	require.Len(t, quotes, fetchLimit)
	assert.Equal(t, "quote 1", quotes[0].Text)
	assert.Equal(t, fmt.Sprintf("quote %d", fetchLimit), quotes[fetchLimit-1].Text)
}

func TestRemoteQuotesAdapter_FetchSnapshot_ServerError(t *testing.T) {
	adapter := newRemoteQuotesAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := adapter.FetchSnapshot(context.Background())

	require.Error(t, err)
	assert.True(t, domain.IsUnavailable(err), "expected UnavailableError, got: %v", err)
}

func TestRemoteQuotesAdapter_FetchSnapshot_MalformedBody(t *testing.T) {
	adapter := newRemoteQuotesAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`not json {`))
	})

	_, err := adapter.FetchSnapshot(context.Background())

	require.Error(t, err)
	assert.True(t, domain.IsUnavailable(err), "expected UnavailableError, got: %v", err)
	assert.Contains(t, err.Error(), "decoding response")
}

func TestRemoteQuotesAdapter_FetchSnapshot_RecordMissingTitle(t *testing.T) {
	adapter := newRemoteQuotesAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id": 1, "userId": 1, "title": "valid"},
			{"id": 2, "userId": 2, "title": ""}
		]`))
	})

	_, err := adapter.FetchSnapshot(context.Background())

	require.Error(t, err)
	assert.True(t, domain.IsUnavailable(err), "expected UnavailableError, got: %v", err)
	assert.Contains(t, err.Error(), "title")
}

func TestRemoteQuotesAdapter_PushSnapshot(t *testing.T) {
	var (
		gotMethod  string
		gotPath    string
		gotPayload pushPayload
	)

	adapter := newRemoteQuotesAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": 101}`))
	})

	quotes := []*domain.Quote{
		{Text: "first", Category: "Wisdom"},
		{Text: "second", Category: "Life", ServerID: 7, ServerTimestamp: 1700000000000},
	}
	at := time.UnixMilli(1700000050000)

	err := adapter.PushSnapshot(context.Background(), quotes, at)

	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/posts", gotPath)
	assert.Equal(t, int64(1700000050000), gotPayload.Timestamp)
	require.Len(t, gotPayload.Quotes, 2)
	assert.Equal(t, "first", gotPayload.Quotes[0].Text)
	assert.Equal(t, "Wisdom", gotPayload.Quotes[0].Category)
	assert.Equal(t, int64(7), gotPayload.Quotes[1].ServerID)
}

func TestRemoteQuotesAdapter_PushSnapshot_ServerError(t *testing.T) {
	adapter := newRemoteQuotesAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	err := adapter.PushSnapshot(context.Background(), []*domain.Quote{{Text: "q", Category: "c"}}, time.Now())

	require.Error(t, err)
	assert.True(t, domain.IsUnavailable(err), "expected UnavailableError, got: %v", err)
}

func TestRemoteQuotesAdapter_Check(t *testing.T) {
	adapter := newRemoteQuotesAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})

	assert.NoError(t, adapter.Check(context.Background()))
}

func TestRemoteQuotesAdapter_Check_Unhealthy(t *testing.T) {
	adapter := newRemoteQuotesAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	err := adapter.Check(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}
