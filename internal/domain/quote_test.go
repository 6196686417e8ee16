package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewQuote(t *testing.T) {
	tests := []struct {
		name         string
		text         string
		category     string
		wantErr      bool
		wantText     string
		wantCategory string
	}{
		{
			name:         "valid input",
			text:         "stay hungry",
			category:     "motivation",
			wantText:     "stay hungry",
			wantCategory: "motivation",
		},
		{
			name:         "trims whitespace",
			text:         "  stay hungry  ",
			category:     "\tmotivation\n",
			wantText:     "stay hungry",
			wantCategory: "motivation",
		},
		{
			name:     "empty text",
			text:     "",
			category: "motivation",
			wantErr:  true,
		},
		{
			name:     "whitespace-only text",
			text:     "   ",
			category: "motivation",
			wantErr:  true,
		},
		{
			name:     "empty category",
			text:     "stay hungry",
			category: "",
			wantErr:  true,
		},
		{
			name:     "whitespace-only category",
			text:     "stay hungry",
			category: " \t ",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := NewQuote(tt.text, tt.category)

			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, IsValidation(err))
				assert.Nil(t, q)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantText, q.Text)
			assert.Equal(t, tt.wantCategory, q.Category)
			assert.Zero(t, q.ServerID)
			assert.Zero(t, q.ServerTimestamp)
		})
	}
}

func TestQuote_Key(t *testing.T) {
	a := &Quote{Text: "t", Category: "c", ServerID: 1, ServerTimestamp: 100}
	b := &Quote{Text: "t", Category: "c", ServerID: 99, ServerTimestamp: 999}
	c := &Quote{Text: "t", Category: "other"}

	assert.Equal(t, a.Key(), b.Key(), "server fields must not affect identity")
	assert.NotEqual(t, a.Key(), c.Key())
}

func TestDefaultQuotes(t *testing.T) {
	defaults := DefaultQuotes()

	require.Len(t, defaults, 10)

	keys := make(map[QuoteKey]struct{})
	for _, q := range defaults {
		assert.NotEmpty(t, q.Text)
		assert.NotEmpty(t, q.Category)
		keys[q.Key()] = struct{}{}
	}

	assert.Len(t, keys, 10, "default quotes must have distinct keys")

	// Each call returns fresh instances so one collection's mutations
	// cannot leak into another.
	again := DefaultQuotes()
	assert.NotSame(t, defaults[0], again[0])
}

func TestCategories(t *testing.T) {
	tests := []struct {
		name   string
		quotes []*Quote
		want   []string
	}{
		{
			name:   "empty collection",
			quotes: nil,
			want:   []string{AllCategory},
		},
		{
			name: "distinct sorted with sentinel first",
			quotes: []*Quote{
				{Text: "a", Category: "wisdom"},
				{Text: "b", Category: "humor"},
				{Text: "c", Category: "motivation"},
			},
			want: []string{AllCategory, "humor", "motivation", "wisdom"},
		},
		{
			name: "duplicates collapse",
			quotes: []*Quote{
				{Text: "a", Category: "life"},
				{Text: "b", Category: "life"},
				{Text: "c", Category: "life"},
			},
			want: []string{AllCategory, "life"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Categories(tt.quotes)

			assert.Equal(t, tt.want, got)
			assert.Equal(t, AllCategory, got[0])

			seen := map[string]int{}
			for _, c := range got {
				seen[c]++
			}
			for c, n := range seen {
				assert.Equal(t, 1, n, "category %q appears more than once", c)
			}
		})
	}
}

func TestFilterByCategory(t *testing.T) {
	quotes := []*Quote{
		{Text: "a", Category: "wisdom"},
		{Text: "b", Category: "humor"},
		{Text: "c", Category: "wisdom"},
	}

	t.Run("matching subsequence", func(t *testing.T) {
		got := FilterByCategory(quotes, "wisdom")

		require.Len(t, got, 2)
		assert.Same(t, quotes[0], got[0], "filtered view must share quote identity")
		assert.Same(t, quotes[2], got[1])
	})

	t.Run("all sentinel returns full collection", func(t *testing.T) {
		got := FilterByCategory(quotes, AllCategory)

		require.Len(t, got, 3)
		assert.Same(t, quotes[1], got[1])
	})

	t.Run("empty category treated as all", func(t *testing.T) {
		assert.Len(t, FilterByCategory(quotes, ""), 3)
	})

	t.Run("unknown category yields empty", func(t *testing.T) {
		assert.Empty(t, FilterByCategory(quotes, "nope"))
	})
}

func TestMergeQuotes(t *testing.T) {
	existing := []*Quote{
		{Text: "a", Category: "x"},
		{Text: "b", Category: "y"},
	}
	incoming := []*Quote{
		{Text: "a", Category: "x"}, // duplicate key
		{Text: "c", Category: "z"},
	}

	merged, added, skipped := MergeQuotes(existing, incoming)

	assert.Equal(t, 1, added)
	assert.Equal(t, 1, skipped)
	require.Len(t, merged, 3)
	assert.Same(t, existing[0], merged[0], "existing entries are never replaced")
	assert.Equal(t, "c", merged[2].Text)
}

func TestMergeQuotes_Idempotent(t *testing.T) {
	base := []*Quote{
		{Text: "a", Category: "x"},
		{Text: "b", Category: "y"},
	}
	snapshot := []*Quote{
		{Text: "b", Category: "y"},
		{Text: "c", Category: "z"},
		{Text: "d", Category: "z"},
	}

	once, added1, _ := MergeQuotes(base, snapshot)
	twice, added2, skipped2 := MergeQuotes(once, snapshot)

	assert.Equal(t, 2, added1)
	assert.Zero(t, added2, "second merge of the same snapshot adds nothing")
	assert.Equal(t, len(snapshot), skipped2)
	assert.Equal(t, once, twice)
}

func TestMergeQuotes_DuplicateKeysWithinIncoming(t *testing.T) {
	incoming := []*Quote{
		{Text: "a", Category: "x"},
		{Text: "a", Category: "x"},
	}

	merged, added, skipped := MergeQuotes(nil, incoming)

	assert.Equal(t, 1, added)
	assert.Equal(t, 1, skipped)
	assert.Len(t, merged, 1)
}

func TestPickRandomDistinct(t *testing.T) {
	t.Run("empty pool returns nil", func(t *testing.T) {
		assert.Nil(t, PickRandomDistinct(nil, nil))
	})

	t.Run("single-element pool returns that element", func(t *testing.T) {
		only := &Quote{Text: "solo", Category: "x"}
		pool := []*Quote{only}

		for range 20 {
			assert.Same(t, only, PickRandomDistinct(only, pool))
		}
	})

	t.Run("never returns the previous quote for pools of two or more", func(t *testing.T) {
		pool := []*Quote{
			{Text: "a", Category: "x"},
			{Text: "b", Category: "x"},
		}

		prev := pool[0]
		for range 500 {
			got := PickRandomDistinct(prev, pool)
			require.NotNil(t, got)
			assert.NotSame(t, prev, got)
			prev = got
		}
	})

	t.Run("identity not field equality", func(t *testing.T) {
		// Two quotes with equal fields are still distinct picks.
		a := &Quote{Text: "same", Category: "x"}
		b := &Quote{Text: "same", Category: "x"}
		pool := []*Quote{a, b}

		got := PickRandomDistinct(a, pool)
		assert.Same(t, b, got)
	})

	t.Run("roughly uniform over a larger pool", func(t *testing.T) {
		pool := make([]*Quote, 5)
		for i := range pool {
			pool[i] = &Quote{Text: string(rune('a' + i)), Category: "x"}
		}

		counts := make(map[*Quote]int)
		var prev *Quote
		const trials = 5000
		for range trials {
			q := PickRandomDistinct(prev, pool)
			counts[q]++
			prev = q
		}

		for _, q := range pool {
			// Expected share is trials/5; allow a generous band since
			// this is statistical.
			assert.Greater(t, counts[q], trials/10, "quote %q starved", q.Text)
		}
	})
}

func TestMarshalQuotes_StorageFormat(t *testing.T) {
	quotes := []*Quote{
		{Text: "a", Category: "x"},
		{Text: "b", Category: "y", ServerID: 7, ServerTimestamp: 1700000000000},
	}

	raw, err := MarshalQuotes(quotes)
	require.NoError(t, err)

	var shapes []map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &shapes))
	require.Len(t, shapes, 2)

	assert.Equal(t, "a", shapes[0]["text"])
	assert.Equal(t, "x", shapes[0]["category"])
	assert.NotContains(t, shapes[0], "serverId", "zero server fields are omitted")
	assert.NotContains(t, shapes[0], "serverTimestamp")

	assert.Equal(t, float64(7), shapes[1]["serverId"])
	assert.Equal(t, float64(1700000000000), shapes[1]["serverTimestamp"])
}

func TestMarshalQuotes_NilCollection(t *testing.T) {
	raw, err := MarshalQuotes(nil)

	require.NoError(t, err)
	assert.Equal(t, "[]", raw)
}

func TestUnmarshalQuotes(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		original := []*Quote{
			{Text: "a", Category: "x"},
			{Text: "b", Category: "y", ServerID: 3, ServerTimestamp: 99},
		}

		raw, err := MarshalQuotes(original)
		require.NoError(t, err)

		got, err := UnmarshalQuotes(raw)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, *original[0], *got[0])
		assert.Equal(t, *original[1], *got[1])
	})

	t.Run("malformed input is a parse error", func(t *testing.T) {
		_, err := UnmarshalQuotes("{not json")

		require.Error(t, err)
		assert.True(t, IsParse(err))
	})
}
