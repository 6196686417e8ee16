package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/jsamuelsen/quote-sync/internal/domain"
	"github.com/jsamuelsen/quote-sync/internal/ports"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var errStoreDown = errors.New("store down")

// fakeStore is an in-memory ports.KeyValue with per-key failure switches.
type fakeStore struct {
	mu      sync.Mutex
	values  map[string]string
	failGet map[string]bool
	failSet map[string]bool

	getCalls int
	setCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		values:  make(map[string]string),
		failGet: make(map[string]bool),
		failSet: make(map[string]bool),
	}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.getCalls++

	if f.failGet[key] {
		return "", domain.NewStorageError("get", key, errStoreDown)
	}

	value, ok := f.values[key]
	if !ok {
		return "", domain.NewNotFoundError("key", key)
	}

	return value, nil
}

func (f *fakeStore) Set(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.setCalls++

	if f.failSet[key] {
		return domain.NewStorageError("set", key, errStoreDown)
	}

	f.values[key] = value

	return nil
}

func (f *fakeStore) Has(_ context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, ok := f.values[key]

	return ok, nil
}

func (f *fakeStore) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.values, key)

	return nil
}

func (f *fakeStore) value(key string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	value, ok := f.values[key]

	return value, ok
}

func (f *fakeStore) put(key, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.values[key] = value
}

// pushRecord captures one PushSnapshot call.
type pushRecord struct {
	quotes []*domain.Quote
	at     time.Time
}

// fakeRemote is a scripted ports.RemoteQuotes.
type fakeRemote struct {
	mu       sync.Mutex
	snapshot []*domain.Quote
	fetchErr error
	pushErr  error

	fetchCalls int
	pushes     []pushRecord

	// fetched signals each FetchSnapshot call when set.
	fetched chan struct{}
}

func newFakeRemote(snapshot []*domain.Quote) *fakeRemote {
	return &fakeRemote{snapshot: snapshot}
}

func (f *fakeRemote) FetchSnapshot(_ context.Context) ([]*domain.Quote, error) {
	f.mu.Lock()
	f.fetchCalls++
	snapshot, err, fetched := f.snapshot, f.fetchErr, f.fetched
	f.mu.Unlock()

	if fetched != nil {
		select {
		case fetched <- struct{}{}:
		default:
		}
	}

	if err != nil {
		return nil, err
	}

	out := make([]*domain.Quote, len(snapshot))
	copy(out, snapshot)

	return out, nil
}

func (f *fakeRemote) PushSnapshot(_ context.Context, quotes []*domain.Quote, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.pushErr != nil {
		return f.pushErr
	}

	copied := make([]*domain.Quote, len(quotes))
	copy(copied, quotes)
	f.pushes = append(f.pushes, pushRecord{quotes: copied, at: at})

	return nil
}

func (f *fakeRemote) setSnapshot(snapshot []*domain.Quote) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.snapshot = snapshot
}

func (f *fakeRemote) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.fetchCalls
}

func (f *fakeRemote) pushCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.pushes)
}

func (f *fakeRemote) lastPush() pushRecord {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.pushes[len(f.pushes)-1]
}

// fakePublisher records published events.
type fakePublisher struct {
	mu     sync.Mutex
	events []ports.Event
	err    error
}

func (f *fakePublisher) Publish(_ context.Context, event ports.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return f.err
	}

	f.events = append(f.events, event)

	return nil
}

func (f *fakePublisher) published() []ports.Event {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]ports.Event, len(f.events))
	copy(out, f.events)

	return out
}

// fakePrefs is an in-memory ports.Preferences.
type fakePrefs struct {
	mu      sync.Mutex
	bools   map[string]bool
	strings map[string]string
	setErr  error

	setBoolCalls int
}

func newFakePrefs() *fakePrefs {
	return &fakePrefs{
		bools:   make(map[string]bool),
		strings: make(map[string]string),
	}
}

func (f *fakePrefs) Bool(_ context.Context, key string, defaultValue bool) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	value, ok := f.bools[key]
	if !ok {
		return defaultValue
	}

	return value
}

func (f *fakePrefs) SetBool(_ context.Context, key string, value bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.setBoolCalls++

	if f.setErr != nil {
		return f.setErr
	}

	f.bools[key] = value

	return nil
}

func (f *fakePrefs) String(_ context.Context, key, defaultValue string) string {
	f.mu.Lock()
	defer f.mu.Unlock()

	value, ok := f.strings[key]
	if !ok {
		return defaultValue
	}

	return value
}

func (f *fakePrefs) SetString(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.setErr != nil {
		return f.setErr
	}

	f.strings[key] = value

	return nil
}

func (f *fakePrefs) boolValue(key string) (bool, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	value, ok := f.bools[key]

	return value, ok
}

func (f *fakePrefs) stringValue(key string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	value, ok := f.strings[key]

	return value, ok
}

// quoteSet builds quotes for test scenarios, panicking on invalid input.
func quoteSet(pairs ...string) []*domain.Quote {
	if len(pairs)%2 != 0 {
		panic("quoteSet: need text/category pairs")
	}

	quotes := make([]*domain.Quote, 0, len(pairs)/2)

	for i := 0; i < len(pairs); i += 2 {
		quote, err := domain.NewQuote(pairs[i], pairs[i+1])
		if err != nil {
			panic(err)
		}

		quotes = append(quotes, quote)
	}

	return quotes
}

// mustMarshal serializes quotes, panicking on failure.
func mustMarshal(quotes []*domain.Quote) string {
	raw, err := domain.MarshalQuotes(quotes)
	if err != nil {
		panic(err)
	}

	return raw
}
