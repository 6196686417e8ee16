package app

import (
	"context"
	"log/slog"
	"sync"

	"github.com/jsamuelsen/quote-sync/internal/domain"
	"github.com/jsamuelsen/quote-sync/internal/ports"
)

// keyQuotes is the persistent store key holding the serialized collection.
const keyQuotes = "quotes"

// CollectionConfig contains configuration for the collection manager.
type CollectionConfig struct {
	// Store is the persistent key/value store backing the collection.
	Store ports.KeyValue

	// Logger is the structured logger.
	Logger *slog.Logger
}

// Collection owns the in-memory quote list and mediates every persistent
// read and write of it. The in-memory list is authoritative: store write
// failures are reported as StorageError but never roll an operation back.
type Collection struct {
	mu     sync.RWMutex
	quotes []*domain.Quote

	store  ports.KeyValue
	logger *slog.Logger
}

// NewCollection creates a new collection manager.
// Panics if Store is nil. Defaults logger to slog.Default() if nil.
func NewCollection(cfg CollectionConfig) *Collection {
	if cfg.Store == nil {
		panic("Collection: Store is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Collection{
		store:  cfg.Store,
		logger: logger.With(slog.String("component", "app.Collection")),
	}
}

// Load installs the stored collection, or the default seed when nothing
// usable is stored. Corrupt or unreadable data never fails the load; the
// only possible error is a non-fatal StorageError from persisting the seed,
// which callers log and ignore.
func (c *Collection) Load(ctx context.Context) error {
	raw, err := c.store.Get(ctx, keyQuotes)

	switch {
	case err == nil:
		quotes, parseErr := domain.UnmarshalQuotes(raw)
		if parseErr == nil {
			c.mu.Lock()
			c.quotes = quotes
			c.mu.Unlock()

			c.logger.DebugContext(ctx, "collection loaded",
				slog.Int("count", len(quotes)))

			return nil
		}

		c.logger.WarnContext(ctx, "stored collection is corrupt, seeding defaults",
			slog.Any("error", parseErr))

	case domain.IsNotFound(err):
		c.logger.InfoContext(ctx, "no stored collection, seeding defaults")

	default:
		c.logger.WarnContext(ctx, "collection read failed, seeding defaults",
			slog.Any("error", err))
	}

	c.mu.Lock()
	c.quotes = domain.DefaultQuotes()
	raw, marshalErr := domain.MarshalQuotes(c.quotes)
	c.mu.Unlock()

	if marshalErr != nil {
		return marshalErr
	}

	return c.persist(ctx, raw)
}

// Count returns the number of quotes in the collection.
func (c *Collection) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.quotes)
}

// Quotes returns the collection in insertion order. The slice is a copy but
// shares quote pointers, preserving identity for random-pick comparisons.
func (c *Collection) Quotes() []*domain.Quote {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*domain.Quote, len(c.quotes))
	copy(out, c.quotes)

	return out
}

// Categories returns the distinct categories, sorted, "all" sentinel first.
func (c *Collection) Categories() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return domain.Categories(c.quotes)
}

// FilteredBy returns the quotes matching category, or the full collection
// for the "all" sentinel or an empty category.
func (c *Collection) FilteredBy(category string) []*domain.Quote {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return domain.FilterByCategory(c.quotes, category)
}

// Add validates and appends a new quote, reporting whether its category was
// absent before the append. A ValidationError aborts with no state change.
// A persist failure keeps the quote in memory and returns it together with
// the StorageError.
func (c *Collection) Add(ctx context.Context, text, category string) (*domain.Quote, bool, error) {
	quote, err := domain.NewQuote(text, category)
	if err != nil {
		return nil, false, err
	}

	c.mu.Lock()

	newCategory := true

	for _, q := range c.quotes {
		if q.Category == quote.Category {
			newCategory = false

			break
		}
	}

	c.quotes = append(c.quotes, quote)
	raw, marshalErr := domain.MarshalQuotes(c.quotes)

	c.mu.Unlock()

	if marshalErr != nil {
		return quote, newCategory, marshalErr
	}

	return quote, newCategory, c.persist(ctx, raw)
}

// MergeIn folds incoming quotes into the collection, skipping entries whose
// (text, category) key already exists. Returns the added and skipped counts;
// a non-nil error is a non-fatal StorageError from persisting.
func (c *Collection) MergeIn(ctx context.Context, incoming []*domain.Quote) (int, int, error) {
	c.mu.Lock()

	merged, added, skipped := domain.MergeQuotes(c.quotes, incoming)
	c.quotes = merged
	raw, marshalErr := domain.MarshalQuotes(c.quotes)

	c.mu.Unlock()

	if marshalErr != nil {
		return added, skipped, marshalErr
	}

	return added, skipped, c.persist(ctx, raw)
}

// ReplaceAll discards the current collection in favor of quotes. A non-nil
// error is a non-fatal StorageError from persisting.
func (c *Collection) ReplaceAll(ctx context.Context, quotes []*domain.Quote) error {
	c.mu.Lock()

	c.quotes = make([]*domain.Quote, len(quotes))
	copy(c.quotes, quotes)
	raw, marshalErr := domain.MarshalQuotes(c.quotes)

	c.mu.Unlock()

	if marshalErr != nil {
		return marshalErr
	}

	return c.persist(ctx, raw)
}

// persist writes the serialized collection to the store. Failures are
// logged and returned for the caller to surface as a warning.
func (c *Collection) persist(ctx context.Context, raw string) error {
	if err := c.store.Set(ctx, keyQuotes, raw); err != nil {
		c.logger.WarnContext(ctx, "collection persist failed, memory stays authoritative",
			slog.Any("error", err))

		return err
	}

	return nil
}
