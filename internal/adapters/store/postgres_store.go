package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/salmadev/dealer-chat/internal/core"
	"go.uber.org/zap"
)

// PostgresStore is a LeadStore backed by PostgreSQL via pgx
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS leads (
	id UUID PRIMARY KEY,
	name TEXT NOT NULL DEFAULT '',
	phone TEXT NOT NULL DEFAULT '',
	email TEXT NOT NULL DEFAULT '',
	source TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_leads_email ON leads(email);
CREATE INDEX IF NOT EXISTS idx_leads_phone ON leads(phone);

CREATE TABLE IF NOT EXISTS conversations (
	id UUID PRIMARY KEY,
	session_id TEXT NOT NULL DEFAULT '',
	lead_id UUID,
	ip_address TEXT NOT NULL DEFAULT '',
	user_agent TEXT NOT NULL DEFAULT '',
	total_messages INT NOT NULL DEFAULT 0,
	total_tokens_used INT NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
	id UUID PRIMARY KEY,
	conversation_id UUID NOT NULL,
	role TEXT NOT NULL,
	content TEXT NOT NULL,
	tokens_used INT NOT NULL DEFAULT 0,
	intent TEXT NOT NULL DEFAULT '',
	confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
	entities JSONB NOT NULL DEFAULT '{}',
	source TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, created_at);
`

// NewPostgresStore connects to PostgreSQL and ensures the schema exists
func NewPostgresStore(ctx context.Context, connString string, logger *zap.Logger) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create postgres schema: %w", err)
	}
	logger.Info("Postgres lead store ready")
	return &PostgresStore{pool: pool, logger: logger}, nil
}

// Close releases the connection pool
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// FindLeadByConversation returns the lead linked to a conversation, or nil
func (s *PostgresStore) FindLeadByConversation(ctx context.Context, conversationID string) (*core.Lead, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT l.id, l.name, l.phone, l.email, l.source, l.created_at, l.updated_at
		FROM leads l JOIN conversations c ON c.lead_id = l.id
		WHERE c.id = $1`, conversationID)
	return scanPgLead(row)
}

// FindLeadByContact returns a lead matching the given email or phone, or nil
func (s *PostgresStore) FindLeadByContact(ctx context.Context, email, phone string) (*core.Lead, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, phone, email, source, created_at, updated_at
		FROM leads
		WHERE ($1 <> '' AND email = $1) OR ($2 <> '' AND phone = $2)
		LIMIT 1`, email, phone)
	return scanPgLead(row)
}

// UpsertLead creates or updates a lead. COALESCE/NULLIF keeps populated
// columns from being cleared by empty incoming values.
func (s *PostgresStore) UpsertLead(ctx context.Context, lead *core.Lead) (*core.Lead, error) {
	now := time.Now()
	if lead.ID == "" {
		saved := *lead
		saved.ID = uuid.NewString()
		saved.CreatedAt = now
		saved.UpdatedAt = now
		_, err := s.pool.Exec(ctx, `
			INSERT INTO leads (id, name, phone, email, source, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			saved.ID, saved.Name, saved.Phone, saved.Email, saved.Source, saved.CreatedAt, saved.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to insert lead: %w", err)
		}
		return &saved, nil
	}

	row := s.pool.QueryRow(ctx, `
		UPDATE leads SET
			name = COALESCE(NULLIF($2, ''), name),
			phone = COALESCE(NULLIF($3, ''), phone),
			email = COALESCE(NULLIF($4, ''), email),
			updated_at = $5
		WHERE id = $1
		RETURNING id, name, phone, email, source, created_at, updated_at`,
		lead.ID, lead.Name, lead.Phone, lead.Email, now)
	saved, err := scanPgLead(row)
	if err != nil {
		return nil, err
	}
	if saved == nil {
		return nil, fmt.Errorf("lead %s not found for update", lead.ID)
	}
	return saved, nil
}

// LinkLeadToConversation attaches a lead to a conversation
func (s *PostgresStore) LinkLeadToConversation(ctx context.Context, conversationID, leadID string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE conversations SET lead_id = $1 WHERE id = $2`, leadID, conversationID)
	if err != nil {
		return fmt.Errorf("failed to link lead to conversation: %w", err)
	}
	return nil
}

// CountAssistantMessages counts assistant-role messages in a conversation
func (s *PostgresStore) CountAssistantMessages(ctx context.Context, conversationID string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM messages WHERE conversation_id = $1 AND role = 'assistant'`,
		conversationID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return count, nil
}

// AppendMessage stores a message and bumps the conversation counters
func (s *PostgresStore) AppendMessage(ctx context.Context, msg *core.ChatMessage) error {
	entities, err := json.Marshal(msg.Entities)
	if err != nil {
		return fmt.Errorf("failed to marshal entities: %w", err)
	}
	id := msg.ID
	if id == "" {
		id = uuid.NewString()
	}
	createdAt := msg.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO messages (id, conversation_id, role, content, tokens_used, intent, confidence, entities, source, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		id, msg.ConversationID, msg.Role, msg.Content, msg.TokensUsed,
		msg.Intent, msg.Confidence, entities, msg.Source, createdAt)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		UPDATE conversations
		SET total_messages = total_messages + 1, total_tokens_used = total_tokens_used + $1
		WHERE id = $2`, msg.TokensUsed, msg.ConversationID)
	if err != nil {
		return fmt.Errorf("failed to update conversation counters: %w", err)
	}
	return nil
}

// FetchRecentHistory returns the most recent messages in chronological order
func (s *PostgresStore) FetchRecentHistory(ctx context.Context, conversationID string, limit int) ([]core.ChatMessage, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, conversation_id, role, content, tokens_used, intent, confidence, entities, source, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var msgs []core.ChatMessage
	for rows.Next() {
		var msg core.ChatMessage
		var entities []byte
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.Role, &msg.Content,
			&msg.TokensUsed, &msg.Intent, &msg.Confidence, &entities, &msg.Source, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		if err := json.Unmarshal(entities, &msg.Entities); err != nil {
			s.logger.Warn("Malformed entities payload in message",
				zap.String("message_id", msg.ID), zap.Error(err))
		}
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history rows: %w", err)
	}

	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// CreateConversation starts a new conversation and returns its id
func (s *PostgresStore) CreateConversation(ctx context.Context, meta core.SenderMeta) (string, error) {
	id := uuid.NewString()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO conversations (id, session_id, ip_address, user_agent, total_messages, total_tokens_used, created_at)
		VALUES ($1, $2, $3, $4, 0, 0, $5)`,
		id, meta.SessionID, meta.Address, meta.UserAgent, time.Now())
	if err != nil {
		return "", fmt.Errorf("failed to create conversation: %w", err)
	}
	return id, nil
}

func scanPgLead(row pgx.Row) (*core.Lead, error) {
	var lead core.Lead
	err := row.Scan(&lead.ID, &lead.Name, &lead.Phone, &lead.Email, &lead.Source,
		&lead.CreatedAt, &lead.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan lead: %w", err)
	}
	return &lead, nil
}
