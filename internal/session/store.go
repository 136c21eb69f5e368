// Package session holds the in-memory registry of contract-editing sessions.
// Nothing here survives a process restart; the system is deliberately
// persistence-free.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/procurement-tools/contractpilot/internal/agent"
	"github.com/procurement-tools/contractpilot/internal/chat"
	"github.com/procurement-tools/contractpilot/internal/domain"
	"go.uber.org/zap"
)

// Session is one contract-editing session: a document plus its conversation.
type Session struct {
	ID           string
	CreatedAt    time.Time
	Document     *chat.Document
	Conversation *chat.Conversation
}

// Store is the process-wide session registry.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	manager  *agent.Manager
	logger   *zap.Logger

	suggestionMaxLength int
}

// Option configures a Store.
type Option func(*Store)

// WithSuggestionMaxLength sets the completion length bound applied to every
// conversation the store creates.
func WithSuggestionMaxLength(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.suggestionMaxLength = n
		}
	}
}

// NewStore creates an empty store bound to the agent manager.
func NewStore(manager *agent.Manager, logger *zap.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		sessions: make(map[string]*Session),
		manager:  manager,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create starts a new session with an empty document.
func (s *Store) Create() *Session {
	doc := chat.NewDocument()
	conv := chat.NewConversation(s.manager, doc, s.logger)
	if s.suggestionMaxLength > 0 {
		conv.SetSuggestionMaxLength(s.suggestionMaxLength)
	}
	sess := &Session{
		ID:           uuid.New().String(),
		CreatedAt:    time.Now(),
		Document:     doc,
		Conversation: conv,
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	s.logger.Info("session created", zap.String("session_id", sess.ID))
	return sess
}

// Get retrieves a session by ID.
func (s *Store) Get(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return sess, nil
}

// Delete removes a session.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.sessions, id)
	return nil
}

// Count returns the number of live sessions.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
