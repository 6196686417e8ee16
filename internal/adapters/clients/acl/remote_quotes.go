package acl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jsamuelsen/quote-sync/internal/adapters/clients"
	"github.com/jsamuelsen/quote-sync/internal/domain"
	"github.com/jsamuelsen/quote-sync/internal/platform/logging"
)

const (
	// fetchLimit caps how many remote records one snapshot may contain.
	fetchLimit = 10

	// defaultServiceName identifies the endpoint when none is configured.
	defaultServiceName = "remote-quotes"
)

// Categories derived from remote records. The parity split is arbitrary but
// deterministic, simulating heterogeneous remote data.
const (
	categoryServer = "Server"
	categoryRemote = "Remote"
)

// RemoteQuotesConfig contains configuration for the remote quotes adapter.
type RemoteQuotesConfig struct {
	// Client is the HTTP client to use for requests.
	// The client's BaseURL should point at the remote endpoint.
	Client *clients.Client

	// ServiceName identifies the endpoint in errors and health checks.
	// Defaults to "remote-quotes".
	ServiceName string

	// Logger is the structured logger.
	Logger *slog.Logger
}

// RemoteQuotesAdapter implements ports.RemoteQuotes against a posts-style
// JSON endpoint. It demonstrates the ACL pattern by translating external
// records to domain quotes and external failures to domain errors.
type RemoteQuotesAdapter struct {
	BaseAdapter

	logger *slog.Logger

	// now stamps fetched quotes. Overridable for testing.
	now func() time.Time
}

// NewRemoteQuotes creates a new remote quotes adapter.
// Panics if Client is nil. Defaults logger to slog.Default() if nil.
func NewRemoteQuotes(cfg RemoteQuotesConfig) *RemoteQuotesAdapter {
	if cfg.Client == nil {
		panic("RemoteQuotesAdapter: Client is required")
	}

	name := cfg.ServiceName
	if name == "" {
		name = defaultServiceName
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &RemoteQuotesAdapter{
		BaseAdapter: NewBaseAdapter(cfg.Client, name),
		logger:      logger,
		now:         time.Now,
	}
}

// remotePost is the external DTO from the posts endpoint.
// This is an internal type - never exposed outside the ACL.
type remotePost struct {
	ID     int64  `json:"id"`
	UserID int64  `json:"userId"`
	Title  string `json:"title"`
}

// pushPayload is the write-side body for PushSnapshot. The quote shape on
// the wire matches the domain storage format.
type pushPayload struct {
	Quotes    []*domain.Quote `json:"quotes"`
	Timestamp int64           `json:"timestamp"`
}

// FetchSnapshot retrieves the remote snapshot, mapped into domain quotes and
// capped at the fetch limit.
// Implements ports.RemoteQuotes.
func (a *RemoteQuotesAdapter) FetchSnapshot(ctx context.Context) ([]*domain.Quote, error) {
	const path = "/posts"
	a.logger.Log(ctx, logging.LevelTrace, "starting request", slog.String("path", path))
	a.logger.DebugContext(ctx, "fetching remote snapshot")

	body, err := a.Get(ctx, path, "fetch snapshot")
	if err != nil {
		return nil, err // Already a domain error
	}

	posts, err := DecodeResponse[[]remotePost](body)
	if err != nil {
		return nil, domain.NewUnavailableError(a.ServiceName(), err.Error())
	}

	records := *posts
	if len(records) > fetchLimit {
		records = records[:fetchLimit]
	}

	fetchedAt := a.now()

	quotes, err := TranslateSlice(records, func(ext *remotePost) (*domain.Quote, error) {
		return translatePost(ext, fetchedAt)
	})
	if err != nil {
		// A record missing its contract fields means the endpoint is not
		// usable, not that the caller's input was invalid.
		return nil, domain.NewUnavailableError(a.ServiceName(), err.Error())
	}

	a.logger.Log(ctx, logging.LevelTrace, "translated remote records",
		slog.Int("count", len(quotes)))

	return quotes, nil
}

// PushSnapshot uploads the full local collection with a timestamp. The
// response body is ignored beyond the success status.
// Implements ports.RemoteQuotes.
func (a *RemoteQuotesAdapter) PushSnapshot(ctx context.Context, quotes []*domain.Quote, at time.Time) error {
	const path = "/posts"

	payload := pushPayload{
		Quotes:    quotes,
		Timestamp: at.UnixMilli(),
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return domain.NewParseError("push payload", err)
	}

	a.logger.DebugContext(ctx, "pushing local snapshot", slog.Int("count", len(quotes)))

	body, err := a.Post(ctx, path, bytes.NewReader(raw), "push snapshot")
	if err != nil {
		return err // Already a domain error
	}

	return body.Close()
}

// translatePost converts an external post record to a domain Quote.
// This is the core ACL translation: title becomes the text, the author id
// parity picks the category, and the fetch instant becomes the server
// timestamp.
func translatePost(ext *remotePost, fetchedAt time.Time) (*domain.Quote, error) {
	if err := ValidateRequired(ext.Title, "title"); err != nil {
		return nil, err
	}

	if err := ValidatePositive(ext.ID, "id"); err != nil {
		return nil, err
	}

	category := categoryRemote
	if ext.UserID%2 == 0 {
		category = categoryServer
	}

	return &domain.Quote{
		Text:            ext.Title,
		Category:        category,
		ServerID:        ext.ID,
		ServerTimestamp: fetchedAt.UnixMilli(),
	}, nil
}

// Name returns the health check name for this client.
// Implements ports.HealthChecker.
func (a *RemoteQuotesAdapter) Name() string {
	return a.ServiceName()
}

// Check performs a health check by listing the remote records.
// Implements ports.HealthChecker.
func (a *RemoteQuotesAdapter) Check(ctx context.Context) error {
	resp, err := a.Client().Get(ctx, "/posts")
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("remote endpoint returned status %d", resp.StatusCode)
	}

	return nil
}
