package session

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// MemorySession keeps the transcript in process memory only.
type MemorySession struct {
	id string

	mu       sync.RWMutex
	messages []Message
	seq      uint64
	closed   bool
	now      func() time.Time
}

// NewMemorySession creates an ephemeral session.
func NewMemorySession(id string) (*MemorySession, error) {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return nil, ErrInvalidSessionID
	}
	return &MemorySession{id: trimmed, now: time.Now}, nil
}

// ID returns the session identifier.
func (s *MemorySession) ID() string { return s.id }

// Append appends a message to the transcript.
func (s *MemorySession) Append(msg Message) error {
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
	s.messages = append(s.messages, clone)
	return nil
}

// List returns messages matching the filter.
func (s *MemorySession) List(filter Filter) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrSessionClosed
	}
	return applyFilter(s.messages, filter), nil
}

// Close marks the session unusable.
func (s *MemorySession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

var _ Session = (*MemorySession)(nil)
