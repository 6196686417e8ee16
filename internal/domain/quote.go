// Package domain contains core business entities and rules.
package domain

import (
	"encoding/json"
	"math/rand/v2"
	"sort"
	"strings"
)

// AllCategory is the synthetic category meaning "no filter". It is never
// stored on a quote; it only appears in category listings and filter input.
const AllCategory = "all"

// Quote represents a single quotation tagged with a category.
// The JSON tags define the storage and wire shape of the collection.
type Quote struct {
	// Text is the quotation itself. Never empty.
	Text string `json:"text"`

	// Category groups quotes for filtering. Never empty.
	Category string `json:"category"`

	// ServerID is the remote record identifier, present only on quotes
	// that originated from a remote fetch.
	ServerID int64 `json:"serverId,omitempty"`

	// ServerTimestamp is the fetch instant in epoch milliseconds, present
	// only on quotes that originated from a remote fetch.
	ServerTimestamp int64 `json:"serverTimestamp,omitempty"`
}

// QuoteKey identifies a quote for deduplication. Two quotes are the same
// entry when both text and category match; server identifiers do not
// participate in identity.
type QuoteKey struct {
	Text     string
	Category string
}

// Key returns the deduplication identity of the quote.
func (q *Quote) Key() QuoteKey {
	return QuoteKey{Text: q.Text, Category: q.Category}
}

// NewQuote builds a quote from user input, trimming surrounding whitespace.
// Returns a ValidationError when either field is empty after trimming.
func NewQuote(text, category string) (*Quote, error) {
	text = strings.TrimSpace(text)
	category = strings.TrimSpace(category)

	if text == "" {
		return nil, NewValidationError("text", "must not be empty")
	}

	if category == "" {
		return nil, NewValidationError("category", "must not be empty")
	}

	return &Quote{Text: text, Category: category}, nil
}

// DefaultQuotes returns the built-in seed collection installed when no
// stored collection exists or the stored data cannot be parsed.
func DefaultQuotes() []*Quote {
	return []*Quote{
		{Text: "The best way to predict the future is to invent it.", Category: "motivation"},
		{Text: "Simplicity is the ultimate sophistication.", Category: "wisdom"},
		{Text: "What we think, we become.", Category: "wisdom"},
		{Text: "Well done is better than well said.", Category: "motivation"},
		{Text: "It always seems impossible until it is done.", Category: "perseverance"},
		{Text: "Fall seven times, stand up eight.", Category: "perseverance"},
		{Text: "Life is what happens while you are busy making other plans.", Category: "life"},
		{Text: "The unexamined life is not worth living.", Category: "life"},
		{Text: "Whether you think you can or you think you can't, you're right.", Category: "success"},
		{Text: "I have not failed. I've just found ten thousand ways that won't work.", Category: "humor"},
	}
}

// Categories returns the distinct category values of the collection, sorted,
// with the "all" sentinel always first.
func Categories(quotes []*Quote) []string {
	seen := make(map[string]struct{}, len(quotes))
	names := make([]string, 0, len(quotes))

	for _, q := range quotes {
		if _, ok := seen[q.Category]; ok {
			continue
		}

		seen[q.Category] = struct{}{}
		names = append(names, q.Category)
	}

	sort.Strings(names)

	return append([]string{AllCategory}, names...)
}

// FilterByCategory returns the subsequence of quotes matching category, or
// the full collection for the "all" sentinel. The returned slice shares the
// underlying quote pointers so identity comparisons against a previously
// shown quote remain valid.
func FilterByCategory(quotes []*Quote, category string) []*Quote {
	if category == "" || category == AllCategory {
		out := make([]*Quote, len(quotes))
		copy(out, quotes)

		return out
	}

	out := make([]*Quote, 0, len(quotes))

	for _, q := range quotes {
		if q.Category == category {
			out = append(out, q)
		}
	}

	return out
}

// MergeQuotes appends to existing every incoming quote whose (text, category)
// key is absent, preserving order within each input. Existing entries are
// never overwritten. Returns the merged collection and the added/skipped
// counts. Merging the same input twice yields the same result as once.
func MergeQuotes(existing, incoming []*Quote) (merged []*Quote, added, skipped int) {
	keys := make(map[QuoteKey]struct{}, len(existing))
	for _, q := range existing {
		keys[q.Key()] = struct{}{}
	}

	merged = make([]*Quote, len(existing), len(existing)+len(incoming))
	copy(merged, existing)

	for _, q := range incoming {
		if _, ok := keys[q.Key()]; ok {
			skipped++

			continue
		}

		keys[q.Key()] = struct{}{}
		merged = append(merged, q)
		added++
	}

	return merged, added, skipped
}

// PickRandomDistinct selects a uniformly random element of pool, re-drawing
// until the result differs from prev by pointer identity. Rejection sampling
// terminates in O(1) expected draws; even with a pool of two elements the
// loop ends almost surely. A pool of exactly one element returns that
// element regardless of prev. Returns nil for an empty pool.
func PickRandomDistinct(prev *Quote, pool []*Quote) *Quote {
	switch len(pool) {
	case 0:
		return nil
	case 1:
		return pool[0]
	}

	for {
		q := pool[rand.IntN(len(pool))]
		if q != prev {
			return q
		}
	}
}

// MarshalQuotes serializes a collection into the storage format: a JSON
// array of {text, category, serverId?, serverTimestamp?} objects.
func MarshalQuotes(quotes []*Quote) (string, error) {
	if quotes == nil {
		quotes = []*Quote{}
	}

	raw, err := json.Marshal(quotes)
	if err != nil {
		return "", NewParseError("quotes", err)
	}

	return string(raw), nil
}

// UnmarshalQuotes parses the storage format back into a collection.
// Returns a ParseError on malformed input.
func UnmarshalQuotes(raw string) ([]*Quote, error) {
	var quotes []*Quote
	if err := json.Unmarshal([]byte(raw), &quotes); err != nil {
		return nil, NewParseError("quotes", err)
	}

	return quotes, nil
}
