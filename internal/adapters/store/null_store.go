package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/salmadev/dealer-chat/internal/core"
	"go.uber.org/zap"
)

// NullStore is the degraded-mode LeadStore used when no database is
// configured or the configured one cannot be reached. The chat keeps
// answering; leads and history are simply not persisted.
type NullStore struct {
	logger *zap.Logger
}

// NewNullStore creates the degraded-mode store
func NewNullStore(logger *zap.Logger) *NullStore {
	logger.Warn("Lead store disabled: conversations will not be persisted")
	return &NullStore{logger: logger}
}

func (s *NullStore) FindLeadByConversation(ctx context.Context, conversationID string) (*core.Lead, error) {
	return nil, nil
}

func (s *NullStore) FindLeadByContact(ctx context.Context, email, phone string) (*core.Lead, error) {
	return nil, nil
}

// UpsertLead assigns an id so callers see a saved-looking lead, but nothing
// is kept
func (s *NullStore) UpsertLead(ctx context.Context, lead *core.Lead) (*core.Lead, error) {
	saved := *lead
	if saved.ID == "" {
		saved.ID = uuid.NewString()
	}
	return &saved, nil
}

func (s *NullStore) LinkLeadToConversation(ctx context.Context, conversationID, leadID string) error {
	return nil
}

func (s *NullStore) CountAssistantMessages(ctx context.Context, conversationID string) (int, error) {
	return 0, nil
}

func (s *NullStore) AppendMessage(ctx context.Context, msg *core.ChatMessage) error {
	return nil
}

func (s *NullStore) FetchRecentHistory(ctx context.Context, conversationID string, limit int) ([]core.ChatMessage, error) {
	return nil, nil
}

func (s *NullStore) CreateConversation(ctx context.Context, meta core.SenderMeta) (string, error) {
	return uuid.NewString(), nil
}
