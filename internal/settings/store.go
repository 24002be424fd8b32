package settings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	logx "octolabel/pkg/logx"
)

var (
	ErrUnknownDriver = errors.New("unknown settings driver")
	ErrClosed        = errors.New("settings store closed")
)

// Config configures the settings store.
//
// Driver values:
//   - "file" (default): JSON document at Path
//   - "sqlite": SQLite database file at Path (build tag sqlite)
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Store persists the settings document.
//
// Update runs a read-modify-write under the store's lock; fn receives the
// current document and may mutate it. If fn returns an error nothing is written.
type Store interface {
	Load(ctx context.Context) (Values, error)
	Update(ctx context.Context, fn func(v *Values) error) error
	Close() error
}

// Open initializes the configured store.
func Open(cfg Config, log logx.Logger) (Store, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	switch driver {
	case "", "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, driver)
	}
}

// MemoryStore keeps the document in memory. It backs tests and one-shot CLI
// commands that run without a settings file.
type MemoryStore struct {
	mu sync.Mutex
	v  Values
}

func NewMemoryStore(initial Values) *MemoryStore {
	m := &MemoryStore{}
	m.v.Apply(initial)
	return m
}

func (m *MemoryStore) Load(ctx context.Context) (Values, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out Values
	out.Apply(m.v)
	return out, nil
}

func (m *MemoryStore) Update(ctx context.Context, fn func(v *Values) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var next Values
	next.Apply(m.v)
	if err := fn(&next); err != nil {
		return err
	}
	m.v = next
	return nil
}

func (m *MemoryStore) Close() error { return nil }
