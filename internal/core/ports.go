package core

import (
	"context"
)

// LLMClient defines the interface for the external language-model provider
type LLMClient interface {
	// Generate produces the assistant reply for a new user message given the
	// system prompt and recent history
	Generate(ctx context.Context, systemPrompt string, history []ChatMessage, userMessage string) (*Generation, error)
}

// LeadStore defines the interface for the external relational store holding
// leads, conversations and messages
type LeadStore interface {
	// FindLeadByConversation returns the lead linked to a conversation, or nil
	FindLeadByConversation(ctx context.Context, conversationID string) (*Lead, error)

	// FindLeadByContact returns a lead matching the given email or phone, or nil
	FindLeadByContact(ctx context.Context, email, phone string) (*Lead, error)

	// UpsertLead creates or updates a lead, never overwriting existing
	// fields with empty values
	UpsertLead(ctx context.Context, lead *Lead) (*Lead, error)

	// LinkLeadToConversation attaches a lead to a conversation
	LinkLeadToConversation(ctx context.Context, conversationID, leadID string) error

	// CountAssistantMessages counts assistant-role messages in a conversation
	CountAssistantMessages(ctx context.Context, conversationID string) (int, error)

	// AppendMessage stores a message and bumps the conversation counters
	AppendMessage(ctx context.Context, msg *ChatMessage) error

	// FetchRecentHistory returns the most recent messages in chronological order
	FetchRecentHistory(ctx context.Context, conversationID string, limit int) ([]ChatMessage, error)

	// CreateConversation starts a new conversation and returns its id
	CreateConversation(ctx context.Context, meta SenderMeta) (string, error)
}

// LeadNotifier is the outbound side-channel fired when a lead becomes
// complete. Delivery is best-effort; failures must never fail the request.
type LeadNotifier interface {
	NotifyLeadCaptured(ctx context.Context, lead *Lead, modelInterest string) error
}
