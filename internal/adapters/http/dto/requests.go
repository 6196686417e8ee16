package dto

// AddQuoteRequest is the body for adding a quote to the collection.
// The domain layer trims and re-validates; the tags here reject the
// obviously malformed payloads at the edge.
type AddQuoteRequest struct {
	Text     string `json:"text"     validate:"required,notempty"`
	Category string `json:"category" validate:"required,notempty"`
}

// ListQuotesRequest carries the query parameters for the quote listing.
// An empty category means the full collection.
type ListQuotesRequest struct {
	Category string `form:"category" json:"category"`

	PaginationRequest
}

// ResolveConflictRequest selects which side wins a pending sync conflict.
// UseRemote is a pointer so that an absent field fails validation instead
// of silently resolving in favor of local.
type ResolveConflictRequest struct {
	UseRemote *bool `json:"useRemote" validate:"required"`
}

// AutoSyncRequest toggles the background sync scheduler.
type AutoSyncRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}
