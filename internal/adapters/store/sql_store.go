package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/salmadev/dealer-chat/internal/core"
	"go.uber.org/zap"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
)

// SQLStore is a LeadStore over database/sql, shared by the SQLite and MySQL
// adapters. Both dialects take ? placeholders; only the DDL differs.
type SQLStore struct {
	db     *sql.DB
	logger *zap.Logger
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS leads (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL DEFAULT '',
	phone TEXT NOT NULL DEFAULT '',
	email TEXT NOT NULL DEFAULT '',
	source TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_leads_email ON leads(email);
CREATE INDEX IF NOT EXISTS idx_leads_phone ON leads(phone);

CREATE TABLE IF NOT EXISTS conversations (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL DEFAULT '',
	lead_id TEXT NOT NULL DEFAULT '',
	ip_address TEXT NOT NULL DEFAULT '',
	user_agent TEXT NOT NULL DEFAULT '',
	total_messages INTEGER NOT NULL DEFAULT 0,
	total_tokens_used INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
	id TEXT PRIMARY KEY,
	conversation_id TEXT NOT NULL,
	role TEXT NOT NULL,
	content TEXT NOT NULL,
	tokens_used INTEGER NOT NULL DEFAULT 0,
	intent TEXT NOT NULL DEFAULT '',
	confidence REAL NOT NULL DEFAULT 0,
	entities TEXT NOT NULL DEFAULT '{}',
	source TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, created_at);
`

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS leads (
		id VARCHAR(36) PRIMARY KEY,
		name VARCHAR(255) NOT NULL DEFAULT '',
		phone VARCHAR(32) NOT NULL DEFAULT '',
		email VARCHAR(255) NOT NULL DEFAULT '',
		source VARCHAR(64) NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		INDEX idx_leads_email (email),
		INDEX idx_leads_phone (phone)
	)`,
	`CREATE TABLE IF NOT EXISTS conversations (
		id VARCHAR(36) PRIMARY KEY,
		session_id VARCHAR(128) NOT NULL DEFAULT '',
		lead_id VARCHAR(36) NOT NULL DEFAULT '',
		ip_address VARCHAR(64) NOT NULL DEFAULT '',
		user_agent VARCHAR(512) NOT NULL DEFAULT '',
		total_messages INT NOT NULL DEFAULT 0,
		total_tokens_used INT NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS messages (
		id VARCHAR(36) PRIMARY KEY,
		conversation_id VARCHAR(36) NOT NULL,
		role VARCHAR(16) NOT NULL,
		content TEXT NOT NULL,
		tokens_used INT NOT NULL DEFAULT 0,
		intent VARCHAR(64) NOT NULL DEFAULT '',
		confidence DOUBLE NOT NULL DEFAULT 0,
		entities TEXT NOT NULL,
		source VARCHAR(32) NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		INDEX idx_messages_conversation (conversation_id, created_at)
	)`,
}

// NewSQLiteStore opens (or creates) a SQLite-backed store
func NewSQLiteStore(path string, logger *zap.Logger) (*SQLStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create sqlite schema: %w", err)
	}
	logger.Info("SQLite lead store ready", zap.String("path", path))
	return &SQLStore{db: db, logger: logger}, nil
}

// NewMySQLStore connects to a MySQL-backed store. The DSN must carry
// parseTime=true so DATETIME columns scan into time.Time.
func NewMySQLStore(dsn string, logger *zap.Logger) (*SQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open mysql connection: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping mysql: %w", err)
	}
	for _, stmt := range mysqlSchema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create mysql schema: %w", err)
		}
	}
	logger.Info("MySQL lead store ready")
	return &SQLStore{db: db, logger: logger}, nil
}

// Close releases the underlying connection pool
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// FindLeadByConversation returns the lead linked to a conversation, or nil
func (s *SQLStore) FindLeadByConversation(ctx context.Context, conversationID string) (*core.Lead, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT l.id, l.name, l.phone, l.email, l.source, l.created_at, l.updated_at
		FROM leads l JOIN conversations c ON c.lead_id = l.id
		WHERE c.id = ?`, conversationID)
	return scanLead(row)
}

// FindLeadByContact returns a lead matching the given email or phone, or nil
func (s *SQLStore) FindLeadByContact(ctx context.Context, email, phone string) (*core.Lead, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, phone, email, source, created_at, updated_at
		FROM leads
		WHERE (? <> '' AND email = ?) OR (? <> '' AND phone = ?)
		LIMIT 1`, email, email, phone, phone)
	return scanLead(row)
}

// UpsertLead creates or updates a lead. Updates only fill fields the caller
// provided; a populated column is never cleared by an empty value.
func (s *SQLStore) UpsertLead(ctx context.Context, lead *core.Lead) (*core.Lead, error) {
	now := time.Now()
	if lead.ID == "" {
		saved := *lead
		saved.ID = uuid.NewString()
		saved.CreatedAt = now
		saved.UpdatedAt = now
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO leads (id, name, phone, email, source, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			saved.ID, saved.Name, saved.Phone, saved.Email, saved.Source, saved.CreatedAt, saved.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to insert lead: %w", err)
		}
		return &saved, nil
	}

	_, err := s.db.ExecContext(ctx, `
		UPDATE leads SET
			name = CASE WHEN ? <> '' THEN ? ELSE name END,
			phone = CASE WHEN ? <> '' THEN ? ELSE phone END,
			email = CASE WHEN ? <> '' THEN ? ELSE email END,
			updated_at = ?
		WHERE id = ?`,
		lead.Name, lead.Name, lead.Phone, lead.Phone, lead.Email, lead.Email, now, lead.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to update lead: %w", err)
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, phone, email, source, created_at, updated_at
		FROM leads WHERE id = ?`, lead.ID)
	saved, err := scanLead(row)
	if err != nil {
		return nil, err
	}
	if saved == nil {
		return nil, fmt.Errorf("lead %s vanished during update", lead.ID)
	}
	return saved, nil
}

// LinkLeadToConversation attaches a lead to a conversation
func (s *SQLStore) LinkLeadToConversation(ctx context.Context, conversationID, leadID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE conversations SET lead_id = ? WHERE id = ?`, leadID, conversationID)
	if err != nil {
		return fmt.Errorf("failed to link lead to conversation: %w", err)
	}
	return nil
}

// CountAssistantMessages counts assistant-role messages in a conversation
func (s *SQLStore) CountAssistantMessages(ctx context.Context, conversationID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages WHERE conversation_id = ? AND role = 'assistant'`,
		conversationID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return count, nil
}

// AppendMessage stores a message and bumps the conversation counters
func (s *SQLStore) AppendMessage(ctx context.Context, msg *core.ChatMessage) error {
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

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO messages (id, conversation_id, role, content, tokens_used, intent, confidence, entities, source, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, msg.ConversationID, msg.Role, msg.Content, msg.TokensUsed,
		msg.Intent, msg.Confidence, string(entities), msg.Source, createdAt)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE conversations
		SET total_messages = total_messages + 1, total_tokens_used = total_tokens_used + ?
		WHERE id = ?`, msg.TokensUsed, msg.ConversationID)
	if err != nil {
		return fmt.Errorf("failed to update conversation counters: %w", err)
	}
	return nil
}

// FetchRecentHistory returns the most recent messages in chronological order
func (s *SQLStore) FetchRecentHistory(ctx context.Context, conversationID string, limit int) ([]core.ChatMessage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, conversation_id, role, content, tokens_used, intent, confidence, entities, source, created_at
		FROM messages
		WHERE conversation_id = ?
		ORDER BY created_at DESC
		LIMIT ?`, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var msgs []core.ChatMessage
	for rows.Next() {
		var msg core.ChatMessage
		var entities string
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.Role, &msg.Content,
			&msg.TokensUsed, &msg.Intent, &msg.Confidence, &entities, &msg.Source, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		if err := json.Unmarshal([]byte(entities), &msg.Entities); err != nil {
			s.logger.Warn("Malformed entities payload in message",
				zap.String("message_id", msg.ID), zap.Error(err))
		}
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history rows: %w", err)
	}

	// Rows arrive newest-first; hand them back oldest-first
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// CreateConversation starts a new conversation and returns its id
func (s *SQLStore) CreateConversation(ctx context.Context, meta core.SenderMeta) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversations (id, session_id, lead_id, ip_address, user_agent, total_messages, total_tokens_used, created_at)
		VALUES (?, ?, '', ?, ?, 0, 0, ?)`,
		id, meta.SessionID, meta.Address, meta.UserAgent, time.Now())
	if err != nil {
		return "", fmt.Errorf("failed to create conversation: %w", err)
	}
	return id, nil
}

func scanLead(row *sql.Row) (*core.Lead, error) {
	var lead core.Lead
	err := row.Scan(&lead.ID, &lead.Name, &lead.Phone, &lead.Email, &lead.Source,
		&lead.CreatedAt, &lead.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan lead: %w", err)
	}
	return &lead, nil
}
