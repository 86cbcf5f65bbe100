package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cexll/architect-go/pkg/journal"
)

const recordMessage = "message"

// FileSession persists the transcript through an append-only journal so a
// reopened session resumes with its full history.
type FileSession struct {
	id   string
	root string
	log  *journal.Journal

	mu       sync.RWMutex
	messages []Message
	seq      uint64
	closed   bool
	now      func() time.Time
}

// NewFileSession creates (or re-opens) a durable session located at root/id.
func NewFileSession(id, root string, opts ...journal.Option) (*FileSession, error) {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return nil, ErrInvalidSessionID
	}
	dir := filepath.Join(root, trimmed)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("session: mkdir %s: %w", dir, err)
	}
	log, err := journal.Open(filepath.Join(dir, "transcript.log"), opts...)
	if err != nil {
		return nil, err
	}
	fs := &FileSession{
		id:   trimmed,
		root: root,
		log:  log,
		now:  time.Now,
	}
	if err := fs.reload(); err != nil {
		_ = log.Close()
		return nil, err
	}
	return fs, nil
}

// ID returns the session identifier.
func (s *FileSession) ID() string { return s.id }

// Append appends a message to the persistent transcript.
func (s *FileSession) Append(msg Message) error {
	if strings.TrimSpace(msg.Role) == "" {
		return fmt.Errorf("%w: role is required", ErrInvalidMessage)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}

	clone := cloneMessage(msg)
	s.seq++
	if clone.ID == "" {
		clone.ID = fmt.Sprintf("%s-%06d", s.id, s.seq)
	}
	if clone.Timestamp.IsZero() {
		clone.Timestamp = s.now().UTC()
	} else {
		clone.Timestamp = clone.Timestamp.UTC()
	}

	payload, err := json.Marshal(&clone)
	if err != nil {
		return err
	}
	if _, err := s.log.Append(journal.Record{Type: recordMessage, Data: payload}); err != nil {
		return err
	}
	if err := s.log.Sync(); err != nil {
		return err
	}
	s.messages = append(s.messages, clone)
	return nil
}

// List returns messages matching the filter.
func (s *FileSession) List(filter Filter) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrSessionClosed
	}
	return applyFilter(s.messages, filter), nil
}

// Close releases underlying resources.
func (s *FileSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.log.Close()
}

func (s *FileSession) reload() error {
	var messages []Message
	err := s.log.Replay(func(rec journal.Record) error {
		if rec.Type != recordMessage {
			return fmt.Errorf("session: unknown journal record %s", rec.Type)
		}
		var msg Message
		if err := json.Unmarshal(rec.Data, &msg); err != nil {
			return err
		}
		msg.Timestamp = msg.Timestamp.UTC()
		messages = append(messages, msg)
		return nil
	})
	if err != nil {
		return err
	}
	s.messages = messages
	s.seq = uint64(len(messages))
	return nil
}

var _ Session = (*FileSession)(nil)
