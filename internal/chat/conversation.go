package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/procurement-tools/contractpilot/internal/agent"
	"github.com/procurement-tools/contractpilot/internal/domain"
	"go.uber.org/zap"
)

// defaultSuggestionMaxLength bounds accepted predictive completions.
const defaultSuggestionMaxLength = 120

// Conversation owns the chat history of one contract-editing session and
// turns assistant suggestions into document mutations. All methods are safe
// for concurrent use.
type Conversation struct {
	mu       sync.Mutex
	messages []*domain.Message

	doc     *Document
	manager *agent.Manager
	logger  *zap.Logger

	suggestionMaxLength int
	suggestSeq          atomic.Uint64
}

// NewConversation creates an empty conversation bound to a document and the
// agent manager.
func NewConversation(manager *agent.Manager, doc *Document, logger *zap.Logger) *Conversation {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Conversation{
		doc:                 doc,
		manager:             manager,
		logger:              logger,
		suggestionMaxLength: defaultSuggestionMaxLength,
	}
}

// SetSuggestionMaxLength overrides the accepted completion length bound.
func (c *Conversation) SetSuggestionMaxLength(n int) {
	if n > 0 {
		c.suggestionMaxLength = n
	}
}

// Messages returns a snapshot of the history.
func (c *Conversation) Messages() []*domain.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*domain.Message, len(c.messages))
	for i, m := range c.messages {
		copied := *m
		out[i] = &copied
	}
	return out
}

// Send appends a user turn, asks the active model with the current document
// as context, and appends the assistant reply. The reply doubles as an
// applicable contract suggestion. On failure the user turn stays and no
// assistant turn is appended; history is never corrupted by a failed call.
func (c *Conversation) Send(ctx context.Context, content string) (*domain.Message, error) {
	userMsg := &domain.Message{
		ID:        uuid.New().String(),
		Role:      domain.RoleUser,
		Content:   content,
		Timestamp: time.Now(),
	}

	c.mu.Lock()
	c.messages = append(c.messages, userMsg)
	c.mu.Unlock()

	docContent, _ := c.doc.Content()
	env := c.manager.Chat(ctx, content, docContent)
	if !env.Success {
		return nil, errors.New(env.Error)
	}

	assistantMsg := &domain.Message{
		ID:                uuid.New().String(),
		Role:              domain.RoleAssistant,
		Content:           env.Content,
		AppliedSuggestion: env.Content,
		Timestamp:         time.Now(),
	}

	c.mu.Lock()
	c.messages = append(c.messages, assistantMsg)
	c.mu.Unlock()

	return assistantMsg, nil
}

// EditMessage rewrites a user turn and regenerates its reply, atomically
// replacing exactly the one assistant turn that immediately follows it (or
// inserting one if none existed). The old reply survives a failed
// regeneration.
func (c *Conversation) EditMessage(ctx context.Context, id, content string) (*domain.Message, error) {
	c.mu.Lock()
	idx := c.indexOf(id)
	if idx < 0 {
		c.mu.Unlock()
		return nil, domain.ErrNotFound
	}
	msg := c.messages[idx]
	if msg.Role != domain.RoleUser {
		c.mu.Unlock()
		return nil, &domain.ValidationError{Reason: "only user messages can be edited"}
	}
	c.mu.Unlock()

	docContent, _ := c.doc.Content()
	env := c.manager.Chat(ctx, content, docContent)
	if !env.Success {
		return nil, errors.New(env.Error)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Re-locate: the history may have shifted while the model was thinking.
	idx = c.indexOf(id)
	if idx < 0 {
		return nil, domain.ErrNotFound
	}
	msg = c.messages[idx]

	now := time.Now()
	msg.Content = content
	msg.Edited = true
	msg.EditedAt = &now

	reply := &domain.Message{
		ID:                uuid.New().String(),
		Role:              domain.RoleAssistant,
		Content:           env.Content,
		AppliedSuggestion: env.Content,
		Timestamp:         now,
	}

	if idx+1 < len(c.messages) && c.messages[idx+1].Role == domain.RoleAssistant {
		c.messages[idx+1] = reply
	} else {
		c.messages = append(c.messages[:idx+1], append([]*domain.Message{reply}, c.messages[idx+1:]...)...)
	}
	return reply, nil
}

// DeleteMessage removes a turn. Deleting a user turn cascades to its paired
// assistant reply when one immediately follows; any other turn is removed
// alone.
func (c *Conversation) DeleteMessage(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.indexOf(id)
	if idx < 0 {
		return domain.ErrNotFound
	}

	end := idx + 1
	if c.messages[idx].Role == domain.RoleUser &&
		end < len(c.messages) && c.messages[end].Role == domain.RoleAssistant {
		end++
	}
	c.messages = append(c.messages[:idx], c.messages[end:]...)
	return nil
}

// ApplySuggestion turns an assistant turn's suggestion into a document
// mutation through the modify operation and the document's single update
// entry point. This is the only path from chat output to contract content.
func (c *Conversation) ApplySuggestion(ctx context.Context, id string) (int, error) {
	c.mu.Lock()
	idx := c.indexOf(id)
	if idx < 0 {
		c.mu.Unlock()
		return 0, domain.ErrNotFound
	}
	msg := c.messages[idx]
	if msg.Role != domain.RoleAssistant || msg.AppliedSuggestion == "" {
		c.mu.Unlock()
		return 0, &domain.ValidationError{Reason: "message carries no applicable suggestion"}
	}
	suggestion := msg.AppliedSuggestion
	c.mu.Unlock()

	docContent, _ := c.doc.Content()
	env := c.manager.ModifyContract(ctx, docContent, suggestion)
	if !env.Success {
		return 0, errors.New(env.Error)
	}
	return c.doc.Update(env.Content), nil
}

// Suggest asks the model to complete partial input. Last input wins: a
// result that was superseded by a newer call is discarded. A candidate is
// accepted only when it case-insensitively extends the input and stays under
// the length bound; everything else is dropped silently, including backend
// failures, because a missing suggestion is not an error the user should see.
func (c *Conversation) Suggest(ctx context.Context, input string) string {
	seq := c.suggestSeq.Add(1)

	candidate, err := c.manager.Suggest(ctx, input)
	if err != nil {
		c.logger.Debug("suggestion dropped", zap.Error(err))
		return ""
	}
	if c.suggestSeq.Load() != seq {
		// Newer input superseded this request while it was in flight.
		return ""
	}
	if !acceptableSuggestion(input, candidate, c.suggestionMaxLength) {
		return ""
	}
	return candidate
}

func acceptableSuggestion(input, candidate string, maxLen int) bool {
	if candidate == "" || len(candidate) > maxLen {
		return false
	}
	if len(candidate) <= len(input) {
		return false
	}
	return strings.HasPrefix(strings.ToLower(candidate), strings.ToLower(input))
}

// indexOf must be called with the lock held.
func (c *Conversation) indexOf(id string) int {
	for i, m := range c.messages {
		if m.ID == id {
			return i
		}
	}
	return -1
}
