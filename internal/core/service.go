package core

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/salmadev/dealer-chat/internal/utils"
	"go.uber.org/zap"
)

// ChatRequest is one incoming widget message
type ChatRequest struct {
	ConversationID string
	Message        string
	Sender         SenderMeta
}

// PipelineConfig tunes the orchestration layer
type PipelineConfig struct {
	HistoryLimit             int
	CaptureMessageThreshold  int
	FollowUpMessageLimit     int
	ModelSpecificSkip        []string
}

// ChatService runs every message through the layered pipeline: abuse guard,
// template matcher, objection handler, handoff check, and only then the LLM.
// Each layer that answers saves the cost of the layers below it.
type ChatService struct {
	cfg        PipelineConfig
	abuse      *AbuseGuard
	templates  *TemplateMatcher
	objections *ObjectionHandler
	intents    *IntentClassifier
	extractor  *EntityExtractor
	prompts    *PromptBuilder
	promotions *Promotions
	llm        LLMClient
	store      LeadStore
	notifier   LeadNotifier
	normalizer *utils.TextNormalizer
	logger     *zap.Logger

	mu    sync.Mutex
	stats ServiceStats
}

// ServiceStats counts replies by the pipeline layer that produced them
type ServiceStats struct {
	TotalMessages   int `json:"total_messages"`
	AbuseRejected   int `json:"abuse_rejected"`
	TemplateReplies int `json:"template_replies"`
	ObjectionReplies int `json:"objection_replies"`
	HandoffOffers   int `json:"handoff_offers"`
	LLMReplies      int `json:"llm_replies"`
	LLMErrors       int `json:"llm_errors"`
	LeadsCaptured   int `json:"leads_captured"`
	TokensUsed      int `json:"tokens_used"`
}

// NewChatService creates the orchestrator
func NewChatService(
	cfg PipelineConfig,
	abuse *AbuseGuard,
	templates *TemplateMatcher,
	objections *ObjectionHandler,
	intents *IntentClassifier,
	extractor *EntityExtractor,
	prompts *PromptBuilder,
	promotions *Promotions,
	llm LLMClient,
	store LeadStore,
	notifier LeadNotifier,
	normalizer *utils.TextNormalizer,
	logger *zap.Logger,
) *ChatService {
	return &ChatService{
		cfg:        cfg,
		abuse:      abuse,
		templates:  templates,
		objections: objections,
		intents:    intents,
		extractor:  extractor,
		prompts:    prompts,
		promotions: promotions,
		llm:        llm,
		store:      store,
		notifier:   notifier,
		normalizer: normalizer,
		logger:     logger,
	}
}

// ProcessMessage runs one message through the pipeline and returns the reply
func (s *ChatService) ProcessMessage(ctx context.Context, req ChatRequest) *Reply {
	start := time.Now()
	s.bump(func(st *ServiceStats) { st.TotalMessages++ })

	conversationID := req.ConversationID
	if conversationID == "" {
		id, err := s.store.CreateConversation(ctx, req.Sender)
		if err != nil {
			s.logger.Error("Failed to create conversation", zap.Error(err))
		}
		conversationID = id
	}

	reply := s.process(ctx, req, conversationID, start)
	reply.ConversationID = conversationID
	return reply
}

func (s *ChatService) process(ctx context.Context, req ChatRequest, conversationID string, start time.Time) *Reply {
	// Layer 1: abuse guard. Rejected messages are never stored.
	verdict := s.abuse.Check(req.Sender.Address, req.Message, conversationID)
	if verdict.IsAbuse {
		s.bump(func(st *ServiceStats) { st.AbuseRejected++ })
		s.logger.Info("Message rejected by abuse guard",
			zap.String("reason", verdict.Reason),
			zap.String("sender", req.Sender.Address))
		return &Reply{
			Success:        false,
			Message:        abuseMessage(verdict),
			Source:         SourceAbuseDetector,
			Category:       verdict.Source,
			ProcessingTime: time.Since(start),
		}
	}

	normalized := s.normalizer.Normalize(req.Message)
	entities := s.extractor.Extract(req.Message, normalized)
	intent := s.intents.Classify(req.Message)

	lead := s.loadLead(ctx, conversationID)
	messageCount := s.assistantCount(ctx, conversationID)

	// Capture contact data as soon as the customer volunteers it
	var captured bool
	lead, captured = s.captureLead(ctx, conversationID, entities, lead)

	// Layer 2: template responses for common questions
	if match := s.templates.Match(req.Message); match != nil && s.shouldUseTemplate(match, intent, lead) {
		s.bump(func(st *ServiceStats) { st.TemplateReplies++ })
		s.storeExchange(ctx, conversationID, req.Message, match.Response, intent, entities, SourceTemplate, 0)
		return &Reply{
			Success:        true,
			Message:        match.Response,
			Source:         SourceTemplate,
			Category:       match.Category,
			LeadCaptured:   captured,
			ProcessingTime: time.Since(start),
		}
	}

	// Layer 3: scripted objection handling
	if objection := s.objections.Handle(req.Message); objection != nil {
		s.bump(func(st *ServiceStats) { st.ObjectionReplies++ })
		response := s.personalizeObjection(objection, lead, messageCount)
		s.storeExchange(ctx, conversationID, req.Message, response, intent, entities, SourceSalesEngine, 0)
		return &Reply{
			Success:        true,
			Message:        response,
			Source:         SourceSalesEngine,
			ObjectionType:  objection.ObjectionType,
			LeadCaptured:   captured,
			ProcessingTime: time.Since(start),
		}
	}

	meta := s.conversationMeta(ctx, conversationID, messageCount, intent)
	score := ScoreLead(lead, meta, entities)

	// Layer 4: hot leads with full contact data get routed to a human
	// instead of burning more tokens
	if lead.Complete() && score.Category == "hot" {
		s.bump(func(st *ServiceStats) { st.HandoffOffers++ })
		message := s.hotHandoffMessage(lead)
		s.storeExchange(ctx, conversationID, req.Message, message, intent, entities, SourceHandoffOffer, 0)
		return &Reply{
			Success:        true,
			Message:        message,
			Source:         SourceHandoffOffer,
			CanHandoff:     true,
			LeadCaptured:   captured,
			LeadScore:      &score,
			ProcessingTime: time.Since(start),
		}
	}

	// Complete leads asking for pricing after a couple of exchanges get the
	// standard handoff: pricing detail is the advisor's job, not the model's
	if lead.Complete() && messageCount >= s.cfg.CaptureMessageThreshold && intent.RequiresPremiumInfo {
		s.bump(func(st *ServiceStats) { st.HandoffOffers++ })
		s.storeExchange(ctx, conversationID, req.Message, standardHandoffMessage, intent, entities, SourceHandoffOffer, 0)
		return &Reply{
			Success:        true,
			Message:        standardHandoffMessage,
			Source:         SourceHandoffOffer,
			CanHandoff:     true,
			LeadCaptured:   captured,
			LeadScore:      &score,
			ProcessingTime: time.Since(start),
		}
	}

	// Layer 5: the LLM
	history, err := s.store.FetchRecentHistory(ctx, conversationID, s.cfg.HistoryLimit)
	if err != nil {
		s.logger.Warn("Failed to fetch history, continuing without it", zap.Error(err))
	}

	systemPrompt := s.prompts.Build(intent, lead, meta, messageCount)
	generation, err := s.llm.Generate(ctx, systemPrompt, history, req.Message)
	if err != nil {
		s.bump(func(st *ServiceStats) { st.LLMErrors++ })
		s.logger.Error("LLM call failed", zap.Error(err),
			zap.String("conversation_id", conversationID))
		return &Reply{
			Success:        false,
			Message:        fallbackMessage,
			Source:         SourceErrorFallback,
			LeadCaptured:   captured,
			ProcessingTime: time.Since(start),
		}
	}

	// The model may have captured contact data the regexes missed
	responseText, llmEntities := extractLeadData(generation.Text)
	if !llmEntities.Empty() {
		var llmCaptured bool
		lead, llmCaptured = s.captureLead(ctx, conversationID, llmEntities, lead)
		captured = captured || llmCaptured
	}

	tokens := generation.InputTokens + generation.OutputTokens
	source := SourceLLM
	if generation.ModelUsed == "test_mode" {
		source = SourceTestMode
	}

	s.bump(func(st *ServiceStats) {
		st.LLMReplies++
		st.TokensUsed += tokens
	})
	s.storeExchange(ctx, conversationID, req.Message, responseText, intent, entities, source, tokens)

	return &Reply{
		Success:        true,
		Message:        responseText,
		TokensUsed:     tokens,
		Source:         source,
		LeadCaptured:   captured,
		LeadScore:      &score,
		ProcessingTime: time.Since(start),
	}
}

// shouldUseTemplate suppresses templates when a model-specific question would
// get a generic answer, and when a known lead asks for contact info they
// already traded their data for.
func (s *ChatService) shouldUseTemplate(match *TemplateMatch, intent IntentResult, lead *Lead) bool {
	if intent.ModelInterest != "" {
		for _, category := range s.cfg.ModelSpecificSkip {
			if match.Category == category {
				return false
			}
		}
	}
	if match.Category == "contacto" && lead != nil && (lead.Name != "" || lead.Phone != "") {
		return false
	}
	return true
}

// personalizeObjection prefixes the rebuttal with the customer's name when
// known, and appends the follow-up question early in the conversation.
func (s *ChatService) personalizeObjection(objection *ObjectionResult, lead *Lead, messageCount int) string {
	response := objection.Response
	if lead != nil && lead.Name != "" {
		firstName := strings.Fields(lead.Name)[0]
		response = firstName + ", " + lowerFirst(response)
	}
	if messageCount < s.cfg.FollowUpMessageLimit && objection.FollowUp != "" {
		response += "\n\n" + objection.FollowUp
	}
	return response
}

func (s *ChatService) loadLead(ctx context.Context, conversationID string) *Lead {
	if conversationID == "" {
		return nil
	}
	lead, err := s.store.FindLeadByConversation(ctx, conversationID)
	if err != nil {
		s.logger.Warn("Failed to load lead", zap.Error(err))
		return nil
	}
	return lead
}

func (s *ChatService) assistantCount(ctx context.Context, conversationID string) int {
	if conversationID == "" {
		return 0
	}
	count, err := s.store.CountAssistantMessages(ctx, conversationID)
	if err != nil {
		s.logger.Warn("Failed to count messages", zap.Error(err))
		return 0
	}
	return count
}

// captureLead persists newly extracted contact data. It reports whether the
// lead went from incomplete to complete on this call, which also fires the
// sales notification.
func (s *ChatService) captureLead(ctx context.Context, conversationID string, entities ExtractedEntities, current *Lead) (*Lead, bool) {
	if !entities.HasContact() {
		return current, false
	}

	lead := current
	if lead == nil && (entities.Email != "" || entities.Phone != "") {
		found, err := s.store.FindLeadByContact(ctx, entities.Email, entities.Phone)
		if err != nil {
			s.logger.Warn("Lead lookup by contact failed", zap.Error(err))
		} else {
			lead = found
		}
	}

	wasComplete := lead.Complete()

	if lead == nil {
		lead = &Lead{
			Name:   entities.Name,
			Phone:  entities.Phone,
			Email:  entities.Email,
			Source: "chatbot",
		}
		if lead.Email == "" {
			lead.Email = placeholderEmail(conversationID)
		}
	} else {
		if entities.Name != "" && lead.Name == "" {
			lead.Name = entities.Name
		}
		if entities.Phone != "" && lead.Phone == "" {
			lead.Phone = entities.Phone
		}
		if entities.Email != "" && (lead.Email == "" || isPlaceholderEmail(lead.Email)) {
			lead.Email = entities.Email
		}
	}

	saved, err := s.store.UpsertLead(ctx, lead)
	if err != nil {
		s.logger.Error("Failed to save lead", zap.Error(err))
		return current, false
	}
	if conversationID != "" {
		if err := s.store.LinkLeadToConversation(ctx, conversationID, saved.ID); err != nil {
			s.logger.Warn("Failed to link lead to conversation", zap.Error(err))
		}
	}

	becameComplete := !wasComplete && saved.Complete()
	if becameComplete {
		s.bump(func(st *ServiceStats) { st.LeadsCaptured++ })
		s.logger.Info("Lead captured",
			zap.String("lead_id", saved.ID),
			zap.String("name", saved.Name))
		go s.notifyLead(saved, entities.ModelInterest)
	}
	return saved, becameComplete
}

// notifyLead runs in its own goroutine with a fresh timeout so a slow
// notifier never delays the chat reply
func (s *ChatService) notifyLead(lead *Lead, modelInterest string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.notifier.NotifyLeadCaptured(ctx, lead, modelInterest); err != nil {
		s.logger.Warn("Lead notification failed", zap.Error(err),
			zap.String("lead_id", lead.ID))
	}
}

func (s *ChatService) conversationMeta(ctx context.Context, conversationID string, messageCount int, current IntentResult) ConversationMeta {
	meta := ConversationMeta{
		// user turns track assistant turns one-to-one, plus this message
		MessageCount:  messageCount + 1,
		Intents:       []string{current.Intent},
		ModelInterest: current.ModelInterest,
	}
	history, err := s.store.FetchRecentHistory(ctx, conversationID, s.cfg.HistoryLimit)
	if err != nil {
		return meta
	}
	for _, msg := range history {
		if msg.Role == "user" && msg.Intent != "" {
			meta.Intents = append(meta.Intents, msg.Intent)
		}
		if msg.Entities.ModelInterest != "" && meta.ModelInterest == "" {
			meta.ModelInterest = msg.Entities.ModelInterest
		}
	}
	return meta
}

// storeExchange persists the user message and the reply. Storage failures are
// logged and swallowed: replying matters more than remembering.
func (s *ChatService) storeExchange(ctx context.Context, conversationID, userMessage, reply string, intent IntentResult, entities ExtractedEntities, source string, tokens int) {
	if conversationID == "" {
		return
	}
	userMsg := &ChatMessage{
		ConversationID: conversationID,
		Role:           "user",
		Content:        userMessage,
		Intent:         intent.Intent,
		Confidence:     intent.Confidence,
		Entities:       entities,
		Source:         SourceUserInput,
	}
	if err := s.store.AppendMessage(ctx, userMsg); err != nil {
		s.logger.Warn("Failed to store user message", zap.Error(err))
	}
	assistantMsg := &ChatMessage{
		ConversationID: conversationID,
		Role:           "assistant",
		Content:        reply,
		TokensUsed:     tokens,
		Source:         source,
	}
	if err := s.store.AppendMessage(ctx, assistantMsg); err != nil {
		s.logger.Warn("Failed to store assistant message", zap.Error(err))
	}
}

// ScoreConversation recomputes the current lead score for a conversation.
// Exposed for the stats and handoff endpoints.
func (s *ChatService) ScoreConversation(ctx context.Context, conversationID string) (*LeadScore, error) {
	lead, err := s.store.FindLeadByConversation(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load lead: %w", err)
	}
	count, err := s.store.CountAssistantMessages(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to count messages: %w", err)
	}
	meta := s.conversationMeta(ctx, conversationID, count, IntentResult{Intent: "informacion"})
	meta.MessageCount = count
	meta.Intents = meta.Intents[1:] // drop the synthetic current intent
	score := ScoreLead(lead, meta, ExtractedEntities{})
	return &score, nil
}

// History returns the stored transcript for a conversation
func (s *ChatService) History(ctx context.Context, conversationID string) ([]ChatMessage, error) {
	return s.store.FetchRecentHistory(ctx, conversationID, s.cfg.HistoryLimit)
}

// Stats returns a snapshot of pipeline counters
func (s *ChatService) Stats() ServiceStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

func (s *ChatService) bump(fn func(*ServiceStats)) {
	s.mu.Lock()
	fn(&s.stats)
	s.mu.Unlock()
}

const fallbackMessage = `Disculpa, estoy teniendo problemas tecnicos en este momento.

Puedes contactarnos directamente:
WhatsApp: +52 81 2027 2752
Visitanos: Avenida las Americas Norte & Malaga, Guadalupe, N.L.

O intenta de nuevo en unos minutos. ¡Gracias por tu paciencia!`

// abuseMessage maps a rejection to the message the widget shows
func abuseMessage(verdict AbuseResult) string {
	switch verdict.Source {
	case AbuseSourceBlocked:
		return fmt.Sprintf("Has sido bloqueado temporalmente por uso indebido del chat. Intenta de nuevo en %d minutos.", verdict.BlockMinutesRemaining)
	case AbuseSourceLength:
		return "Tu mensaje es muy corto. Cuentame con mas detalle en que puedo ayudarte."
	case AbuseSourceSpam:
		return "No pude entender tu mensaje. ¿Podrias escribirlo de otra forma?"
	case AbuseSourceRate:
		return "Estas enviando mensajes muy rapido. Espera un momento antes de escribir de nuevo."
	case AbuseSourceRepeated:
		return "Ya recibi ese mensaje. ¿Hay algo mas en lo que pueda ayudarte?"
	default:
		return "No pude procesar tu mensaje. Intenta de nuevo."
	}
}

// hotHandoffMessage leads with the running promotions so the urgency that
// made the lead hot carries into the handoff
func (s *ChatService) hotHandoffMessage(lead *Lead) string {
	firstName := strings.Fields(lead.Name)[0]
	var sb strings.Builder
	fmt.Fprintf(&sb, "¡%s, veo que estas muy interesado!\n\n", firstName)
	if urgency := s.promotions.UrgencyMessage(); urgency != "" {
		sb.WriteString(urgency + "\n\n")
	}
	sb.WriteString(`Ya tengo tus datos y un asesor especializado te contactara en los proximos minutos para darte atencion personalizada, precio final con descuentos, opciones de financiamiento y agendar tu prueba de manejo.

Si prefieres, tambien puedes llamarnos directamente:
WhatsApp: +52 81 2027 2752

¡Gracias por tu confianza!`)
	return sb.String()
}

const standardHandoffMessage = `¡Perfecto! Ya tengo tus datos de contacto.

Para darte informacion detallada de precios, financiamiento y promociones especiales, te voy a conectar con uno de nuestros asesores especialistas.

¿Prefieres que te llamemos o te enviamos la informacion por WhatsApp?`

func placeholderEmail(conversationID string) string {
	id := conversationID
	if len(id) > 8 {
		id = id[:8]
	}
	if id == "" {
		id = "unknown"
	}
	return fmt.Sprintf("lead_%s@noemail-chatbot.com", id)
}

func isPlaceholderEmail(email string) bool {
	return strings.HasPrefix(email, "lead_") && strings.HasSuffix(email, "@noemail-chatbot.com")
}

var leadDataBlock = regexp.MustCompile(`(?s)\[LEAD_DATA\](.*?)\[/LEAD_DATA\]`)

// extractLeadData pulls the hidden [LEAD_DATA] block out of an LLM reply.
// Returns the visible text with the block removed plus whatever fields the
// block carried. Values containing "(" are model hedges ("(no proporcionado)")
// and are dropped; phones must reduce to at least 10 digits.
func extractLeadData(text string) (string, ExtractedEntities) {
	match := leadDataBlock.FindStringSubmatch(text)
	if match == nil {
		return text, ExtractedEntities{}
	}

	var entities ExtractedEntities
	for _, line := range strings.Split(match[1], "\n") {
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		value = strings.TrimSpace(value)
		if value == "" || strings.Contains(value, "(") {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "nombre":
			entities.Name = value
		case "telefono":
			digits := nonDigits.ReplaceAllString(value, "")
			if len(digits) >= 10 {
				entities.Phone = digits[len(digits)-10:]
			}
		case "email":
			entities.Email = value
		case "modelo":
			entities.ModelInterest = strings.ToLower(value)
		}
	}

	cleaned := strings.TrimSpace(leadDataBlock.ReplaceAllString(text, ""))
	return cleaned, entities
}

func lowerFirst(s string) string {
	runes := []rune(s)
	if len(runes) == 0 {
		return s
	}
	runes[0] = []rune(strings.ToLower(string(runes[0])))[0]
	return string(runes)
}
