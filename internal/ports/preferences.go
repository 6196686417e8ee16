package ports

import (
	"context"
)

// Preferences defines the contract for persisted user preferences such as
// the auto-sync flag and the last-selected category. Reads always take a
// default so a missing or unreadable preference degrades gracefully instead
// of failing the caller.
//
// Example usage:
//
//	if prefs.Bool(ctx, "auto_sync_enabled", false) {
//	    scheduler.Start()
//	}
type Preferences interface {
	// Bool retrieves a boolean preference.
	// Returns defaultValue if the preference is absent or unreadable.
	Bool(ctx context.Context, key string, defaultValue bool) bool

	// SetBool persists a boolean preference.
	// Returns domain.ErrStorage on write failure.
	SetBool(ctx context.Context, key string, value bool) error

	// String retrieves a string preference.
	// Returns defaultValue if the preference is absent or unreadable.
	String(ctx context.Context, key string, defaultValue string) string

	// SetString persists a string preference.
	// Returns domain.ErrStorage on write failure.
	SetString(ctx context.Context, key, value string) error
}
