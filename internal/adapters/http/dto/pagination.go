package dto

import (
	"encoding/base64"
	"encoding/json"
	"errors"
)

// DefaultLimit is the default number of items per page.
const DefaultLimit = 20

// MaxLimit is the maximum allowed items per page.
const MaxLimit = 100

// ErrInvalidCursor is returned when cursor decoding fails or the cursor
// was issued for a different category filter.
var ErrInvalidCursor = errors.New("invalid cursor")

// PaginationRequest represents pagination parameters from the request.
type PaginationRequest struct {
	// Cursor is an opaque string from a previous response's NextCursor.
	Cursor string `form:"cursor" json:"cursor"`

	// Limit is the maximum number of items to return (1-100, default 20).
	Limit int `form:"limit" json:"limit" validate:"omitempty,gte=1,lte=100"`
}

// GetLimit returns the limit with defaults applied.
func (p *PaginationRequest) GetLimit() int {
	if p.Limit <= 0 {
		return DefaultLimit
	}

	if p.Limit > MaxLimit {
		return MaxLimit
	}

	return p.Limit
}

// Position returns the list offset encoded in the cursor.
// An empty cursor means the first page. A cursor issued for a different
// category filter is rejected, since positions are only stable within
// one filtered view.
func (p *PaginationRequest) Position(category string) (int, error) {
	if p.Cursor == "" {
		return 0, nil
	}

	data, err := decodeCursor(p.Cursor)
	if err != nil {
		return 0, err
	}

	if data.Category != category || data.Offset < 0 {
		return 0, ErrInvalidCursor
	}

	return data.Offset, nil
}

// PaginatedResponse is a generic paginated response structure.
type PaginatedResponse[T any] struct {
	// Items is the array of items for this page.
	Items []T `json:"items"`

	// NextCursor is the cursor to use for the next page.
	// Empty if there are no more items.
	NextCursor string `json:"nextCursor,omitempty"`

	// HasMore indicates whether there are more items after this page.
	HasMore bool `json:"hasMore"`

	// Total is the number of items in the full filtered view.
	Total int `json:"total"`
}

// NewPaginatedResponse creates a paginated response for one page of a
// filtered view. Items must already be trimmed to the page; offset is the
// position of the first item and total the size of the whole view.
func NewPaginatedResponse[T any](items []T, category string, offset, total int) *PaginatedResponse[T] {
	if items == nil {
		items = []T{}
	}

	hasMore := offset+len(items) < total

	var nextCursor string
	if hasMore {
		nextCursor = EncodeCursor(category, offset+len(items))
	}

	return &PaginatedResponse[T]{
		Items:      items,
		NextCursor: nextCursor,
		HasMore:    hasMore,
		Total:      total,
	}
}

// cursorData is the payload encoded in a pagination cursor.
type cursorData struct {
	// Category is the filter the cursor was issued for.
	Category string `json:"c"`

	// Offset is the position of the next page's first item.
	Offset int `json:"o"`
}

// EncodeCursor encodes a category filter and list offset to an opaque
// base64 cursor.
func EncodeCursor(category string, offset int) string {
	jsonBytes, err := json.Marshal(cursorData{Category: category, Offset: offset})
	if err != nil {
		return ""
	}

	return base64.URLEncoding.EncodeToString(jsonBytes)
}

// decodeCursor decodes a base64 cursor string.
func decodeCursor(encoded string) (*cursorData, error) {
	jsonBytes, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	var data cursorData

	err = json.Unmarshal(jsonBytes, &data)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	return &data, nil
}
