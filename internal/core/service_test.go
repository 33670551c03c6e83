package core

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/salmadev/dealer-chat/internal/utils"
	"go.uber.org/zap"
)

// Mock implementations

type mockStore struct {
	leads         map[string]*Lead // keyed by lead id
	conversations map[string]string
	messages      map[string][]ChatMessage
	nextID        int
}

func newMockStore() *mockStore {
	return &mockStore{
		leads:         make(map[string]*Lead),
		conversations: make(map[string]string),
		messages:      make(map[string][]ChatMessage),
	}
}

func (m *mockStore) FindLeadByConversation(ctx context.Context, conversationID string) (*Lead, error) {
	if leadID, ok := m.conversations[conversationID]; ok {
		return m.leads[leadID], nil
	}
	return nil, nil
}

func (m *mockStore) FindLeadByContact(ctx context.Context, email, phone string) (*Lead, error) {
	for _, lead := range m.leads {
		if (email != "" && lead.Email == email) || (phone != "" && lead.Phone == phone) {
			return lead, nil
		}
	}
	return nil, nil
}

func (m *mockStore) UpsertLead(ctx context.Context, lead *Lead) (*Lead, error) {
	if lead.ID == "" {
		m.nextID++
		lead.ID = fmt.Sprintf("lead-%d", m.nextID)
	}
	m.leads[lead.ID] = lead
	return lead, nil
}

func (m *mockStore) LinkLeadToConversation(ctx context.Context, conversationID, leadID string) error {
	m.conversations[conversationID] = leadID
	return nil
}

func (m *mockStore) CountAssistantMessages(ctx context.Context, conversationID string) (int, error) {
	count := 0
	for _, msg := range m.messages[conversationID] {
		if msg.Role == "assistant" {
			count++
		}
	}
	return count, nil
}

func (m *mockStore) AppendMessage(ctx context.Context, msg *ChatMessage) error {
	m.messages[msg.ConversationID] = append(m.messages[msg.ConversationID], *msg)
	return nil
}

func (m *mockStore) FetchRecentHistory(ctx context.Context, conversationID string, limit int) ([]ChatMessage, error) {
	msgs := m.messages[conversationID]
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return msgs, nil
}

func (m *mockStore) CreateConversation(ctx context.Context, meta SenderMeta) (string, error) {
	m.nextID++
	return fmt.Sprintf("conv-%d", m.nextID), nil
}

type mockLLM struct {
	response string
	err      error
	calls    int
}

func (m *mockLLM) Generate(ctx context.Context, systemPrompt string, history []ChatMessage, userMessage string) (*Generation, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return &Generation{Text: m.response, InputTokens: 100, OutputTokens: 50, ModelUsed: "claude-3-5-haiku"}, nil
}

type mockNotifier struct {
	notified chan *Lead
}

func newMockNotifier() *mockNotifier {
	return &mockNotifier{notified: make(chan *Lead, 4)}
}

func (m *mockNotifier) NotifyLeadCaptured(ctx context.Context, lead *Lead, modelInterest string) error {
	m.notified <- lead
	return nil
}

type serviceFixture struct {
	service  *ChatService
	store    *mockStore
	llm      *mockLLM
	notifier *mockNotifier
	guard    *AbuseGuard
}

func newFixture(t *testing.T) *serviceFixture {
	t.Helper()
	logger := zap.NewNop()
	normalizer := utils.NewTextNormalizer(logger)
	catalog := NewCatalog()
	clock := fixedClock(time.Date(2025, time.May, 10, 9, 0, 0, 0, time.UTC))

	store := newMockStore()
	llm := &mockLLM{response: "¡Con gusto te ayudo con eso!"}
	notifier := newMockNotifier()
	guard := NewAbuseGuard(DefaultAbuseConfig(), normalizer, logger)
	t.Cleanup(guard.Stop)

	cfg := PipelineConfig{
		HistoryLimit:            10,
		CaptureMessageThreshold: 2,
		FollowUpMessageLimit:    5,
		ModelSpecificSkip:       []string{"modelos", "precios_generales", "autonomia"},
	}

	promotions := NewPromotions(clock)
	service := NewChatService(
		cfg,
		guard,
		NewTemplateMatcher(normalizer, logger),
		NewObjectionHandler(normalizer, rand.New(rand.NewSource(1)), logger),
		NewIntentClassifier(catalog, normalizer, logger),
		NewEntityExtractor(catalog, logger),
		NewPromptBuilder(catalog, promotions, cfg.CaptureMessageThreshold),
		promotions,
		llm,
		store,
		notifier,
		normalizer,
		logger,
	)
	return &serviceFixture{service: service, store: store, llm: llm, notifier: notifier, guard: guard}
}

func TestProcessMessageTemplateLayer(t *testing.T) {
	f := newFixture(t)

	reply := f.service.ProcessMessage(context.Background(), ChatRequest{
		ConversationID: "conv-1",
		Message:        "hola",
		Sender:         SenderMeta{Address: "1.2.3.4"},
	})

	if !reply.Success {
		t.Fatal("expected success")
	}
	if reply.Source != SourceTemplate {
		t.Errorf("expected source %s, got %s", SourceTemplate, reply.Source)
	}
	if reply.Category != "saludos" {
		t.Errorf("expected saludos, got %s", reply.Category)
	}
	if f.llm.calls != 0 {
		t.Errorf("template reply must not touch the LLM, got %d calls", f.llm.calls)
	}
	if len(f.store.messages["conv-1"]) != 2 {
		t.Errorf("expected user+assistant stored, got %d", len(f.store.messages["conv-1"]))
	}
}

func TestProcessMessageAbuseLayer(t *testing.T) {
	f := newFixture(t)

	reply := f.service.ProcessMessage(context.Background(), ChatRequest{
		ConversationID: "conv-1",
		Message:        "aaaaa",
		Sender:         SenderMeta{Address: "1.2.3.4"},
	})

	if reply.Success {
		t.Fatal("expected rejection")
	}
	if reply.Source != SourceAbuseDetector {
		t.Errorf("expected source %s, got %s", SourceAbuseDetector, reply.Source)
	}
	if reply.Category != AbuseSourceSpam {
		t.Errorf("expected category %s, got %s", AbuseSourceSpam, reply.Category)
	}
	if len(f.store.messages["conv-1"]) != 0 {
		t.Error("rejected messages must not be stored")
	}
	if f.llm.calls != 0 {
		t.Error("rejected messages must not reach the LLM")
	}
}

func TestProcessMessageObjectionLayer(t *testing.T) {
	f := newFixture(t)

	reply := f.service.ProcessMessage(context.Background(), ChatRequest{
		ConversationID: "conv-1",
		Message:        "esta demasiado caro para mi",
		Sender:         SenderMeta{Address: "1.2.3.4"},
	})

	if reply.Source != SourceSalesEngine {
		t.Fatalf("expected source %s, got %s", SourceSalesEngine, reply.Source)
	}
	if reply.ObjectionType != "precio_alto" {
		t.Errorf("expected precio_alto, got %s", reply.ObjectionType)
	}
	// Early in the conversation the follow-up question is appended
	if !strings.Contains(reply.Message, "?") {
		t.Error("expected follow-up question in early-conversation objection reply")
	}
	if f.llm.calls != 0 {
		t.Error("objection reply must not touch the LLM")
	}
}

func TestProcessMessageObjectionPersonalized(t *testing.T) {
	f := newFixture(t)

	// Seed a known lead for the conversation
	lead, _ := f.store.UpsertLead(context.Background(), &Lead{Name: "Juan Pérez", Phone: "8112345678"})
	f.store.LinkLeadToConversation(context.Background(), "conv-1", lead.ID)

	reply := f.service.ProcessMessage(context.Background(), ChatRequest{
		ConversationID: "conv-1",
		Message:        "me parece muy caro",
		Sender:         SenderMeta{Address: "1.2.3.4"},
	})

	if !strings.HasPrefix(reply.Message, "Juan, ") {
		t.Errorf("expected reply personalized with first name, got %q", reply.Message[:40])
	}
}

func TestProcessMessageLLMLayer(t *testing.T) {
	f := newFixture(t)

	reply := f.service.ProcessMessage(context.Background(), ChatRequest{
		ConversationID: "conv-1",
		Message:        "platicame de la experiencia de manejo en general",
		Sender:         SenderMeta{Address: "1.2.3.4"},
	})

	if !reply.Success {
		t.Fatal("expected success")
	}
	if reply.Source != SourceLLM {
		t.Errorf("expected source %s, got %s", SourceLLM, reply.Source)
	}
	if reply.TokensUsed != 150 {
		t.Errorf("expected 150 tokens, got %d", reply.TokensUsed)
	}
	if f.llm.calls != 1 {
		t.Errorf("expected one LLM call, got %d", f.llm.calls)
	}
}

func TestProcessMessageLLMFailureFallsBack(t *testing.T) {
	f := newFixture(t)
	f.llm.err = errors.New("upstream timeout")

	reply := f.service.ProcessMessage(context.Background(), ChatRequest{
		ConversationID: "conv-1",
		Message:        "platicame de la experiencia de manejo en general",
		Sender:         SenderMeta{Address: "1.2.3.4"},
	})

	if reply.Success {
		t.Fatal("expected failure reply")
	}
	if reply.Source != SourceErrorFallback {
		t.Errorf("expected source %s, got %s", SourceErrorFallback, reply.Source)
	}
	if !strings.Contains(reply.Message, "WhatsApp") {
		t.Error("fallback must include direct contact channel")
	}
}

func TestProcessMessageCapturesLeadAndNotifies(t *testing.T) {
	f := newFixture(t)

	reply := f.service.ProcessMessage(context.Background(), ChatRequest{
		ConversationID: "conv-1",
		Message:        "Me llamo Juan Pérez y mi teléfono es 8112345678",
		Sender:         SenderMeta{Address: "1.2.3.4"},
	})

	if !reply.LeadCaptured {
		t.Error("expected LeadCaptured")
	}

	select {
	case lead := <-f.notifier.notified:
		if lead.Name != "Juan Pérez" {
			t.Errorf("notified wrong lead: %+v", lead)
		}
		if lead.Phone != "8112345678" {
			t.Errorf("expected phone on notified lead, got %q", lead.Phone)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected lead notification")
	}

	stored, _ := f.store.FindLeadByConversation(context.Background(), "conv-1")
	if stored == nil || !stored.Complete() {
		t.Errorf("expected complete lead linked to conversation, got %+v", stored)
	}
}

func TestProcessMessageExtractsLLMLeadData(t *testing.T) {
	f := newFixture(t)
	f.llm.response = `¡Perfecto Ana! Un asesor te contactara pronto.

[LEAD_DATA]
nombre: Ana Gutierrez
telefono: 81-9876-5432
[/LEAD_DATA]`

	reply := f.service.ProcessMessage(context.Background(), ChatRequest{
		ConversationID: "conv-1",
		Message:        "claro, apunta mis datos para la visita de la proxima semana",
		Sender:         SenderMeta{Address: "1.2.3.4"},
	})

	if strings.Contains(reply.Message, "LEAD_DATA") {
		t.Error("hidden block must be stripped from the visible reply")
	}
	if !reply.LeadCaptured {
		t.Error("expected lead captured from LLM block")
	}

	stored, _ := f.store.FindLeadByConversation(context.Background(), "conv-1")
	if stored == nil {
		t.Fatal("expected stored lead")
	}
	if stored.Phone != "8198765432" {
		t.Errorf("expected normalized phone, got %q", stored.Phone)
	}
}

func TestProcessMessageHotLeadHandoff(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	lead, _ := f.store.UpsertLead(ctx, &Lead{Name: "Juan Pérez", Phone: "8112345678"})
	f.store.LinkLeadToConversation(ctx, "conv-1", lead.ID)
	// Ten assistant turns plus a quote request puts the score at 80
	for i := 0; i < 10; i++ {
		f.store.AppendMessage(ctx, &ChatMessage{ConversationID: "conv-1", Role: "assistant", Content: "ok"})
	}

	reply := f.service.ProcessMessage(ctx, ChatRequest{
		ConversationID: "conv-1",
		Message:        "ya quiero una cotizacion formal del vehiculo",
		Sender:         SenderMeta{Address: "1.2.3.4"},
	})

	if reply.Source != SourceHandoffOffer {
		t.Fatalf("expected source %s, got %s", SourceHandoffOffer, reply.Source)
	}
	if !reply.CanHandoff {
		t.Error("expected CanHandoff")
	}
	if !strings.Contains(reply.Message, "Juan") {
		t.Error("handoff message must address the customer by name")
	}
	if !strings.Contains(reply.Message, "promociones") {
		t.Error("hot handoff must carry the running promotions urgency")
	}
	if reply.LeadScore == nil || reply.LeadScore.Category != "hot" {
		t.Errorf("expected hot lead score, got %+v", reply.LeadScore)
	}
	if f.llm.calls != 0 {
		t.Error("handoff must not spend LLM tokens")
	}
}

func TestProcessMessageStandardHandoff(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	lead, _ := f.store.UpsertLead(ctx, &Lead{Name: "Juan Pérez", Phone: "8112345678"})
	f.store.LinkLeadToConversation(ctx, "conv-1", lead.ID)
	for i := 0; i < 2; i++ {
		f.store.AppendMessage(ctx, &ChatMessage{ConversationID: "conv-1", Role: "assistant", Content: "ok"})
	}

	reply := f.service.ProcessMessage(ctx, ChatRequest{
		ConversationID: "conv-1",
		Message:        "cuanto cuesta el auto",
		Sender:         SenderMeta{Address: "1.2.3.4"},
	})

	// Complete lead + two assistant turns + pricing question: the advisor
	// takes over, no tokens spent
	if reply.Source != SourceHandoffOffer {
		t.Fatalf("expected source %s, got %s", SourceHandoffOffer, reply.Source)
	}
	if !reply.CanHandoff {
		t.Error("expected CanHandoff")
	}
	if !strings.Contains(reply.Message, "asesores") {
		t.Error("standard handoff must hand the customer to an advisor")
	}
	if f.llm.calls != 0 {
		t.Errorf("standard handoff must not reach the LLM, got %d calls", f.llm.calls)
	}
}

func TestProcessMessageWarmLeadStaysWithLLM(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	lead, _ := f.store.UpsertLead(ctx, &Lead{Name: "Juan Pérez", Phone: "8112345678"})
	f.store.LinkLeadToConversation(ctx, "conv-1", lead.ID)
	for i := 0; i < 5; i++ {
		f.store.AppendMessage(ctx, &ChatMessage{ConversationID: "conv-1", Role: "assistant", Content: "ok"})
	}

	reply := f.service.ProcessMessage(ctx, ChatRequest{
		ConversationID: "conv-1",
		Message:        "me interesa agendar cita para manejarlo",
		Sender:         SenderMeta{Address: "1.2.3.4"},
	})

	// A test-drive request scores warm, not hot, and is not a pricing
	// question: the conversation stays with the model
	if reply.LeadScore == nil || reply.LeadScore.Category != "warm" {
		t.Fatalf("expected warm lead score, got %+v", reply.LeadScore)
	}
	if reply.Source != SourceLLM {
		t.Errorf("expected source %s, got %s", SourceLLM, reply.Source)
	}
	if f.llm.calls != 1 {
		t.Errorf("expected one LLM call, got %d", f.llm.calls)
	}
}

func TestProcessMessageCreatesConversationWhenMissing(t *testing.T) {
	f := newFixture(t)

	reply := f.service.ProcessMessage(context.Background(), ChatRequest{
		Message: "hola",
		Sender:  SenderMeta{Address: "1.2.3.4"},
	})
	if !reply.Success {
		t.Fatal("expected success")
	}
	if reply.ConversationID == "" {
		t.Error("expected reply to carry the new conversation id")
	}

	total := 0
	for _, msgs := range f.store.messages {
		total += len(msgs)
	}
	if total != 2 {
		t.Errorf("expected exchange stored under new conversation, got %d messages", total)
	}
}

func TestServiceStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.service.ProcessMessage(ctx, ChatRequest{ConversationID: "c1", Message: "hola", Sender: SenderMeta{Address: "1.1.1.1"}})
	f.service.ProcessMessage(ctx, ChatRequest{ConversationID: "c2", Message: "aaaaa", Sender: SenderMeta{Address: "2.2.2.2"}})
	f.service.ProcessMessage(ctx, ChatRequest{ConversationID: "c3", Message: "platicame de la experiencia de manejo en general", Sender: SenderMeta{Address: "3.3.3.3"}})

	stats := f.service.Stats()
	if stats.TotalMessages != 3 {
		t.Errorf("expected 3 total, got %d", stats.TotalMessages)
	}
	if stats.TemplateReplies != 1 {
		t.Errorf("expected 1 template reply, got %d", stats.TemplateReplies)
	}
	if stats.AbuseRejected != 1 {
		t.Errorf("expected 1 rejection, got %d", stats.AbuseRejected)
	}
	if stats.LLMReplies != 1 {
		t.Errorf("expected 1 LLM reply, got %d", stats.LLMReplies)
	}
	if stats.TokensUsed != 150 {
		t.Errorf("expected 150 tokens, got %d", stats.TokensUsed)
	}
}
