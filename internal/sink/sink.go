// Package sink persists response bodies into per-bucket JSON list files.
//
// Each bucket is one file, <dir>/<bucket>.json, holding a 4-space indented JSON
// array. Append reads the list, adds the body and rewrites the file through a
// temp file and rename. Appends to one bucket are serialized in-process by a
// reference-counted lock map and across processes by a flock on
// <dir>/.locks/<bucket>.lock, so the output directory itself holds only buckets.
package sink

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gofrs/flock"
)

// Sink accepts response bodies for a bucket.
type Sink interface {
	Append(bucket string, body json.RawMessage) error
}

// LockDir is the subdirectory of the output directory holding flock files.
const LockDir = ".locks"

// Errors that no retry can fix.
var (
	ErrEmptyBucket = errors.New("empty bucket name")
	ErrInvalidBody = errors.New("body is not valid json")
)

var nameReplacer = strings.NewReplacer(
	"|", "_", `\`, "_", "/", "_", "?", "_", "*", "_", ":", "_", `"`, "_",
	"<", "_", ">", "_", "+", "_", "[", "_", "]", "_", " ", "_",
)

// SanitizeName makes s safe to use as a file name.
func SanitizeName(s string) string {
	return nameReplacer.Replace(s)
}

// FileSink writes buckets under a directory.
type FileSink struct {
	dir    string
	logger *slog.Logger

	mu    sync.Mutex
	locks map[string]*bucketLock
}

type bucketLock struct {
	mu   sync.Mutex
	refs int
}

// NewFileSink creates the output directory if needed.
func NewFileSink(dir string, logger *slog.Logger) (*FileSink, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Join(dir, LockDir), 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &FileSink{
		dir:    dir,
		logger: logger,
		locks:  make(map[string]*bucketLock),
	}, nil
}

// Dir returns the output directory.
func (s *FileSink) Dir() string {
	return s.dir
}

// Path returns the file that holds bucket.
func (s *FileSink) Path(bucket string) string {
	return filepath.Join(s.dir, SanitizeName(bucket)+".json")
}

func (s *FileSink) lockPath(bucket string) string {
	return filepath.Join(s.dir, LockDir, SanitizeName(bucket)+".lock")
}

// Append adds body to the end of bucket's list.
func (s *FileSink) Append(bucket string, body json.RawMessage) error {
	if bucket == "" {
		return ErrEmptyBucket
	}
	if !json.Valid(body) {
		return fmt.Errorf("bucket %s: %w", bucket, ErrInvalidBody)
	}

	unlock := s.lock(bucket)
	defer unlock()

	path := s.Path(bucket)
	fl := flock.New(s.lockPath(bucket))
	if err := fl.Lock(); err != nil {
		return fmt.Errorf("lock %s: %w", path, err)
	}
	defer fl.Unlock()

	list := s.load(path)
	list = append(list, body)

	data, err := json.MarshalIndent(list, "", "    ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

// Read returns the stored list for bucket. A missing bucket is an empty list.
func (s *FileSink) Read(bucket string) ([]json.RawMessage, error) {
	data, err := os.ReadFile(s.Path(bucket))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var list []json.RawMessage
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("bucket %s: %w", bucket, err)
	}
	return list, nil
}

// load reads the current list. Missing or unreadable content starts a new list.
func (s *FileSink) load(path string) []json.RawMessage {
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("bucket unreadable, starting new list", "path", path, "error", err)
		}
		return nil
	}

	var list []json.RawMessage
	if err := json.Unmarshal(data, &list); err != nil {
		s.logger.Warn("bucket corrupt, starting new list", "path", path, "error", err)
		return nil
	}
	return list
}

// lock acquires the in-process lock for bucket and returns its release func.
func (s *FileSink) lock(bucket string) func() {
	key := SanitizeName(bucket)

	s.mu.Lock()
	l, ok := s.locks[key]
	if !ok {
		l = &bucketLock{}
		s.locks[key] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, key)
		}
		s.mu.Unlock()
	}
}

// lockCount reports live lock entries.
func (s *FileSink) lockCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.locks)
}
