// Package journal implements the append-only record log backing durable
// session transcripts. Records are CRC-framed so a crash mid-append is
// detected and the dangling tail dropped on reopen.
package journal

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// ErrClosed indicates that the journal has already been closed.
var ErrClosed = errors.New("journal: closed")

type config struct {
	disableSync bool
	fileMode    os.FileMode
}

// Option configures journal instances.
type Option func(*config)

// WithDisabledSync turns off fsync (tests only).
func WithDisabledSync() Option {
	return func(cfg *config) {
		cfg.disableSync = true
	}
}

// WithFileMode sets the permission bits applied to the journal file.
func WithFileMode(mode os.FileMode) Option {
	return func(cfg *config) {
		cfg.fileMode = mode
	}
}

// Journal is a single-file append-only record log.
type Journal struct {
	path string
	cfg  config

	mu     sync.Mutex
	file   *os.File
	writer *bufio.Writer
	count  int64
	closed bool
}

// Open initializes a journal at path, creating parent directories and the
// file itself as needed. A trailing partial record left by a crash is
// truncated away.
func Open(path string, opts ...Option) (*Journal, error) {
	cfg := config{fileMode: 0o600}
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("journal: mkdir %s: %w", filepath.Dir(path), err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, cfg.fileMode)
	if err != nil {
		return nil, fmt.Errorf("journal: open %s: %w", path, err)
	}

	j := &Journal{path: path, cfg: cfg, file: file}
	if err := j.recover(); err != nil {
		_ = file.Close()
		return nil, err
	}
	j.writer = bufio.NewWriter(file)
	return j, nil
}

// recover scans existing records, counts them, and truncates any dangling
// partial tail so appends continue from a clean boundary.
func (j *Journal) recover() error {
	reader := bufio.NewReader(j.file)
	var offset int64
	for {
		_, read, err := decodeRecord(reader)
		if err == io.EOF {
			break
		}
		if errors.Is(err, errPartial) || errors.Is(err, ErrCorrupt) {
			if truncErr := j.file.Truncate(offset); truncErr != nil {
				return fmt.Errorf("journal: truncate partial tail: %w", truncErr)
			}
			break
		}
		if err != nil {
			return err
		}
		offset += read
		j.count++
	}
	if _, err := j.file.Seek(offset, io.SeekStart); err != nil {
		return fmt.Errorf("journal: seek: %w", err)
	}
	return nil
}

// Append writes rec to the journal and returns its zero-based index.
func (j *Journal) Append(rec Record) (int64, error) {
	if len(rec.Type) == 0 {
		return 0, fmt.Errorf("journal: record type required")
	}
	raw, err := rec.encode()
	if err != nil {
		return 0, err
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return 0, ErrClosed
	}
	idx := j.count
	n, err := j.writer.Write(raw)
	if err != nil {
		return 0, err
	}
	if n != len(raw) {
		return 0, io.ErrShortWrite
	}
	if err := j.writer.Flush(); err != nil {
		return 0, err
	}
	j.count++
	return idx, nil
}

// Sync flushes buffered writes and issues fsync unless disabled.
func (j *Journal) Sync() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return ErrClosed
	}
	return j.syncLocked()
}

// Replay iterates through every record in append order.
func (j *Journal) Replay(apply func(Record) error) error {
	if apply == nil {
		return fmt.Errorf("journal: replay callback required")
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return ErrClosed
	}
	if err := j.syncLocked(); err != nil {
		return err
	}

	file, err := os.Open(j.path)
	if err != nil {
		return err
	}
	defer file.Close()

	reader := bufio.NewReader(file)
	var idx int64
	for {
		rec, _, err := decodeRecord(reader)
		if err == io.EOF {
			break
		}
		if errors.Is(err, errPartial) {
			// dangling bytes from an in-flight append
			break
		}
		if err != nil {
			return err
		}
		rec.Index = idx
		if err := apply(rec); err != nil {
			return err
		}
		idx++
	}
	return nil
}

// Len returns the number of complete records.
func (j *Journal) Len() int64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.count
}

// Close flushes and releases underlying resources.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return nil
	}
	j.closed = true

	var err error
	if syncErr := j.syncLocked(); syncErr != nil {
		err = syncErr
	}
	if closeErr := j.file.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	j.file = nil
	j.writer = nil
	return err
}

func (j *Journal) syncLocked() error {
	if j.writer != nil {
		if err := j.writer.Flush(); err != nil {
			return err
		}
	}
	if j.file != nil && !j.cfg.disableSync {
		return j.file.Sync()
	}
	return nil
}
