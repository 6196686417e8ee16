package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/jsamuelsen/quote-sync/internal/domain"
	"github.com/jsamuelsen/quote-sync/internal/ports"
)

// Prefs implements ports.Preferences over a key/value store. Reads degrade
// to the caller's default on any failure; only writes surface errors.
type Prefs struct {
	kv     ports.KeyValue
	logger *slog.Logger
}

// NewPrefs creates a preference accessor backed by kv.
func NewPrefs(kv ports.KeyValue, logger *slog.Logger) *Prefs {
	if logger == nil {
		logger = slog.Default()
	}

	return &Prefs{kv: kv, logger: logger}
}

// Bool retrieves a boolean preference, returning defaultValue when the key
// is absent, unreadable, or not a valid boolean.
func (p *Prefs) Bool(ctx context.Context, key string, defaultValue bool) bool {
	raw, err := p.kv.Get(ctx, key)
	if err != nil {
		if !domain.IsNotFound(err) {
			p.logger.Warn("preference read failed, using default",
				slog.String("key", key),
				slog.String("error", err.Error()))
		}

		return defaultValue
	}

	value, err := strconv.ParseBool(raw)
	if err != nil {
		p.logger.Warn("preference is not a boolean, using default",
			slog.String("key", key),
			slog.String("value", raw))

		return defaultValue
	}

	return value
}

// SetBool persists a boolean preference as "true"/"false".
func (p *Prefs) SetBool(ctx context.Context, key string, value bool) error {
	if err := p.kv.Set(ctx, key, strconv.FormatBool(value)); err != nil {
		return fmt.Errorf("failed to persist preference %q: %w", key, err)
	}

	return nil
}

// String retrieves a string preference, returning defaultValue when the key
// is absent or unreadable.
func (p *Prefs) String(ctx context.Context, key string, defaultValue string) string {
	raw, err := p.kv.Get(ctx, key)
	if err != nil {
		if !domain.IsNotFound(err) {
			p.logger.Warn("preference read failed, using default",
				slog.String("key", key),
				slog.String("error", err.Error()))
		}

		return defaultValue
	}

	return raw
}

// SetString persists a string preference.
func (p *Prefs) SetString(ctx context.Context, key, value string) error {
	if err := p.kv.Set(ctx, key, value); err != nil {
		return fmt.Errorf("failed to persist preference %q: %w", key, err)
	}

	return nil
}
