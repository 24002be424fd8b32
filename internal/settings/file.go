package settings

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	logx "octolabel/pkg/logx"
)

// lockRetryDelay is the poll interval while waiting for the lock file.
const lockRetryDelay = 25 * time.Millisecond

// fileStore keeps the settings document as pretty JSON.
//
// Files:
//   - <path>      the document
//   - <path>.lock flock lock shared with other writers (e.g. the host UI)
//
// Writes go to <path>.tmp and are renamed into place.
type fileStore struct {
	log  logx.Logger
	path string

	mu     sync.Mutex
	lock   *flock.Flock
	closed bool
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("settings.path is required for file driver")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return &fileStore{
		log:  log,
		path: path,
		lock: flock.New(path + ".lock"),
	}, nil
}

func (s *fileStore) Load(ctx context.Context) (Values, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Values{}, ErrClosed
	}
	ok, err := s.lock.TryRLockContext(ctx, lockRetryDelay)
	if err != nil {
		return Values{}, fmt.Errorf("settings read lock: %w", err)
	}
	if !ok {
		return Values{}, errors.New("settings read lock not acquired")
	}
	defer func() { _ = s.lock.Unlock() }()
	return s.readLocked()
}

func (s *fileStore) Update(ctx context.Context, fn func(v *Values) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	ok, err := s.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("settings write lock: %w", err)
	}
	if !ok {
		return errors.New("settings write lock not acquired")
	}
	defer func() { _ = s.lock.Unlock() }()

	cur, err := s.readLocked()
	if err != nil {
		return err
	}
	if err := fn(&cur); err != nil {
		return err
	}
	return s.writeLocked(cur)
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return s.lock.Close()
}

func (s *fileStore) readLocked() (Values, error) {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Values{}, nil
	}
	if err != nil {
		return Values{}, err
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return Values{}, nil
	}
	var v Values
	if err := json.Unmarshal(b, &v); err != nil {
		return Values{}, fmt.Errorf("decode %s: %w", s.path, err)
	}
	return v, nil
}

func (s *fileStore) writeLocked(v Values) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	s.log.Debug("settings written", logx.String("path", s.path), logx.Int("bytes", len(b)))
	return nil
}
