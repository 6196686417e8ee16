package app

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/jsamuelsen/quote-sync/internal/domain"
)

// ImportMode selects how imported quotes combine with the collection.
type ImportMode string

const (
	// ImportModeMerge folds imported quotes in, skipping existing keys.
	ImportModeMerge ImportMode = "merge"

	// ImportModeReplace discards the collection in favor of the import.
	ImportModeReplace ImportMode = "replace"
)

// transferQuote is the import/export file shape: text and category only.
// Server bookkeeping fields never leave the process through files.
type transferQuote struct {
	Text     string `json:"text"`
	Category string `json:"category"`
}

// ImportInput is one uploaded file plus its mode.
type ImportInput struct {
	Filename string
	Data     []byte
	Mode     ImportMode
}

// ImportResult reports what an import did.
type ImportResult struct {
	// Added counts inserted quotes; for replace mode, the new collection
	// size.
	Added int

	// Skipped counts elements not inserted: invalid entries dropped during
	// parsing plus duplicate keys.
	Skipped int

	// Replaced is true for replace mode.
	Replaced bool

	// Total is the collection size after the import.
	Total int

	// Warning carries a non-fatal StorageError when the imported state was
	// not persisted.
	Warning error
}

// parsedImport is the perform-stage result of an import.
type parsedImport struct {
	valid   []*domain.Quote
	dropped int
}

// ExportQuotes serializes quotes into the interchange format: a pretty
// JSON array of {text, category} objects.
func ExportQuotes(quotes []*domain.Quote) ([]byte, error) {
	out := make([]transferQuote, 0, len(quotes))
	for _, q := range quotes {
		out = append(out, transferQuote{Text: q.Text, Category: q.Category})
	}

	raw, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, domain.NewParseError("export", err)
	}

	return raw, nil
}

// importOperation builds the staged import: validate the filename and mode,
// parse the array element by element dropping invalid entries, then merge or
// replace. Zero valid elements fail the import with ImportFormatError and no
// mutation.
func importOperation(collection *Collection) Operation[ImportInput, parsedImport, *ImportResult, *ImportResult] {
	return Operation[ImportInput, parsedImport, *ImportResult, *ImportResult]{
		Name: "import_quotes",

		Validate: func(_ context.Context, in ImportInput) error {
			if !strings.HasSuffix(strings.ToLower(in.Filename), ".json") {
				return domain.NewValidationError("file", "must be a .json file")
			}

			if in.Mode != ImportModeMerge && in.Mode != ImportModeReplace {
				return domain.NewValidationError("mode", "must be merge or replace")
			}

			return nil
		},

		Perform: func(_ context.Context, in ImportInput) (parsedImport, error) {
			return parseImport(in.Data)
		},

		Apply: func(ctx context.Context, in ImportInput, parsed parsedImport) (*ImportResult, error) {
			if len(parsed.valid) == 0 {
				return nil, domain.NewImportFormatError("no valid quotes in file")
			}

			result := &ImportResult{
				Replaced: in.Mode == ImportModeReplace,
				Skipped:  parsed.dropped,
			}

			if in.Mode == ImportModeReplace {
				// Deduplicate within the input before replacing.
				deduped, _, dupes := domain.MergeQuotes(nil, parsed.valid)

				result.Added = len(deduped)
				result.Skipped += dupes
				result.Warning = collection.ReplaceAll(ctx, deduped)
			} else {
				added, skipped, warning := collection.MergeIn(ctx, parsed.valid)

				result.Added = added
				result.Skipped += skipped
				result.Warning = warning
			}

			result.Total = collection.Count()

			return result, nil
		},

		Respond: func(_ context.Context, _ ImportInput, applied *ImportResult) (*ImportResult, error) {
			return applied, nil
		},
	}
}

// parseImport decodes the interchange format. The top level must be a JSON
// array; elements that are not objects or lack non-empty text/category are
// silently dropped.
func parseImport(data []byte) (parsedImport, error) {
	var elements []json.RawMessage
	if err := json.Unmarshal(data, &elements); err != nil {
		return parsedImport{}, domain.NewImportFormatError("top level must be a JSON array")
	}

	parsed := parsedImport{valid: make([]*domain.Quote, 0, len(elements))}

	for _, element := range elements {
		var item transferQuote
		if err := json.Unmarshal(element, &item); err != nil {
			parsed.dropped++

			continue
		}

		quote, err := domain.NewQuote(item.Text, item.Category)
		if err != nil {
			parsed.dropped++

			continue
		}

		parsed.valid = append(parsed.valid, quote)
	}

	return parsed, nil
}
