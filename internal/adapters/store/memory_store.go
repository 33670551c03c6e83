package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/salmadev/dealer-chat/internal/core"
	"go.uber.org/zap"
)

// MemoryStore is an in-memory implementation of the LeadStore interface.
// Used for tests and single-process deployments that can afford to lose
// history on restart.
type MemoryStore struct {
	logger *zap.Logger

	mu            sync.RWMutex
	leads         map[string]*core.Lead
	conversations map[string]*core.Conversation
	messages      map[string][]core.ChatMessage
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore(logger *zap.Logger) *MemoryStore {
	return &MemoryStore{
		logger:        logger,
		leads:         make(map[string]*core.Lead),
		conversations: make(map[string]*core.Conversation),
		messages:      make(map[string][]core.ChatMessage),
	}
}

// FindLeadByConversation returns the lead linked to a conversation, or nil
func (s *MemoryStore) FindLeadByConversation(ctx context.Context, conversationID string) (*core.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[conversationID]
	if !ok || conv.LeadID == "" {
		return nil, nil
	}
	if lead, ok := s.leads[conv.LeadID]; ok {
		copied := *lead
		return &copied, nil
	}
	return nil, nil
}

// FindLeadByContact returns a lead matching the given email or phone, or nil
func (s *MemoryStore) FindLeadByContact(ctx context.Context, email, phone string) (*core.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, lead := range s.leads {
		if (email != "" && lead.Email == email) || (phone != "" && lead.Phone == phone) {
			copied := *lead
			return &copied, nil
		}
	}
	return nil, nil
}

// UpsertLead creates or updates a lead, never clearing populated fields
func (s *MemoryStore) UpsertLead(ctx context.Context, lead *core.Lead) (*core.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if lead.ID == "" {
		created := *lead
		created.ID = uuid.NewString()
		created.CreatedAt = now
		created.UpdatedAt = now
		s.leads[created.ID] = &created
		result := created
		return &result, nil
	}

	existing, ok := s.leads[lead.ID]
	if !ok {
		created := *lead
		created.CreatedAt = now
		created.UpdatedAt = now
		s.leads[created.ID] = &created
		result := created
		return &result, nil
	}

	if lead.Name != "" {
		existing.Name = lead.Name
	}
	if lead.Phone != "" {
		existing.Phone = lead.Phone
	}
	if lead.Email != "" {
		existing.Email = lead.Email
	}
	existing.UpdatedAt = now
	result := *existing
	return &result, nil
}

// LinkLeadToConversation attaches a lead to a conversation
func (s *MemoryStore) LinkLeadToConversation(ctx context.Context, conversationID, leadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		conv = &core.Conversation{ID: conversationID, CreatedAt: time.Now()}
		s.conversations[conversationID] = conv
	}
	conv.LeadID = leadID
	return nil
}

// CountAssistantMessages counts assistant-role messages in a conversation
func (s *MemoryStore) CountAssistantMessages(ctx context.Context, conversationID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, msg := range s.messages[conversationID] {
		if msg.Role == "assistant" {
			count++
		}
	}
	return count, nil
}

// AppendMessage stores a message and bumps the conversation counters
func (s *MemoryStore) AppendMessage(ctx context.Context, msg *core.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *msg
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	s.messages[msg.ConversationID] = append(s.messages[msg.ConversationID], stored)

	if conv, ok := s.conversations[msg.ConversationID]; ok {
		conv.TotalMessages++
		conv.TotalTokensUsed += msg.TokensUsed
	}
	return nil
}

// FetchRecentHistory returns the most recent messages in chronological order
func (s *MemoryStore) FetchRecentHistory(ctx context.Context, conversationID string, limit int) ([]core.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := s.messages[conversationID]
	out := make([]core.ChatMessage, len(msgs))
	copy(out, msgs)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

// CreateConversation starts a new conversation and returns its id
func (s *MemoryStore) CreateConversation(ctx context.Context, meta core.SenderMeta) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := &core.Conversation{
		ID:        uuid.NewString(),
		SessionID: meta.SessionID,
		IPAddress: meta.Address,
		UserAgent: meta.UserAgent,
		CreatedAt: time.Now(),
	}
	s.conversations[conv.ID] = conv
	s.logger.Debug("Conversation created", zap.String("conversation_id", conv.ID))
	return conv.ID, nil
}
