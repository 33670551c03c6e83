package frontend

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/salmadev/dealer-chat/internal/core"
	"go.uber.org/zap"
)

// HTTPFrontend serves the chat widget API over HTTP
type HTTPFrontend struct {
	service *core.ChatService
	guard   *core.AbuseGuard
	server  *http.Server
	logger  *zap.Logger
}

// HTTPConfig tunes the HTTP frontend
type HTTPConfig struct {
	ListenAddr     string
	AllowedOrigins []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
}

// NewHTTPFrontend creates the widget API frontend
func NewHTTPFrontend(cfg HTTPConfig, service *core.ChatService, guard *core.AbuseGuard, logger *zap.Logger) *HTTPFrontend {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) == 0 || cfg.AllowedOrigins[0] == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	}
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "X-Session-ID")
	router.Use(cors.New(corsConfig))

	f := &HTTPFrontend{
		service: service,
		guard:   guard,
		logger:  logger,
		server: &http.Server{
			Addr:         cfg.ListenAddr,
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
	}

	router.GET("/health", f.handleHealth)
	api := router.Group("/api/chat")
	{
		api.POST("", f.handleChat)
		api.GET("/conversation/:id", f.handleHistory)
		api.GET("/stats", f.handleStats)
		api.POST("/handoff", f.handleHandoff)
	}
	return f
}

// Start launches the server and returns; the caller owns the shutdown signal
func (f *HTTPFrontend) Start() error {
	f.logger.Info("HTTP frontend listening", zap.String("addr", f.server.Addr))
	go func() {
		if err := f.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			f.logger.Error("HTTP server error", zap.Error(err))
		}
	}()
	return nil
}

// Stop shuts the server down gracefully
func (f *HTTPFrontend) Stop(ctx context.Context) error {
	f.logger.Info("Shutting down HTTP frontend")
	return f.server.Shutdown(ctx)
}

type chatRequest struct {
	ConversationID string `json:"conversation_id"`
	Message        string `json:"message" binding:"required"`
	SessionID      string `json:"session_id"`
}

type chatResponse struct {
	Success        bool            `json:"success"`
	ConversationID string          `json:"conversation_id"`
	Message        string          `json:"message"`
	TokensUsed     int             `json:"tokens_used,omitempty"`
	Source         string          `json:"source"`
	Category       string          `json:"category,omitempty"`
	ObjectionType  string          `json:"objection_type,omitempty"`
	CanHandoff     bool            `json:"can_handoff"`
	LeadCaptured   bool            `json:"lead_captured"`
	LeadScore      *core.LeadScore `json:"lead_score,omitempty"`
	ProcessingMS   int64           `json:"processing_ms"`
}

func (f *HTTPFrontend) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "message is required"})
		return
	}

	reply := f.service.ProcessMessage(c.Request.Context(), core.ChatRequest{
		ConversationID: req.ConversationID,
		Message:        req.Message,
		Sender: core.SenderMeta{
			Address:   c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
			SessionID: req.SessionID,
		},
	})

	status := http.StatusOK
	if !reply.Success && reply.Source == core.SourceAbuseDetector {
		status = http.StatusTooManyRequests
	}
	c.JSON(status, chatResponse{
		Success:        reply.Success,
		ConversationID: reply.ConversationID,
		Message:        reply.Message,
		TokensUsed:     reply.TokensUsed,
		Source:         reply.Source,
		Category:       reply.Category,
		ObjectionType:  reply.ObjectionType,
		CanHandoff:     reply.CanHandoff,
		LeadCaptured:   reply.LeadCaptured,
		LeadScore:      reply.LeadScore,
		ProcessingMS:   reply.ProcessingTime.Milliseconds(),
	})
}

func (f *HTTPFrontend) handleHistory(c *gin.Context) {
	conversationID := c.Param("id")
	history, err := f.service.History(c.Request.Context(), conversationID)
	if err != nil {
		f.logger.Error("Failed to fetch history", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to fetch history"})
		return
	}

	type messageView struct {
		Role      string    `json:"role"`
		Content   string    `json:"content"`
		Source    string    `json:"source,omitempty"`
		CreatedAt time.Time `json:"created_at"`
	}
	out := make([]messageView, 0, len(history))
	for _, msg := range history {
		out = append(out, messageView{
			Role:      msg.Role,
			Content:   msg.Content,
			Source:    msg.Source,
			CreatedAt: msg.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "conversation_id": conversationID, "messages": out})
}

func (f *HTTPFrontend) handleStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"pipeline": f.service.Stats(),
		"abuse":    f.guard.Stats(),
	})
}

type handoffRequest struct {
	ConversationID string `json:"conversation_id" binding:"required"`
}

func (f *HTTPFrontend) handleHandoff(c *gin.Context) {
	var req handoffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "conversation_id is required"})
		return
	}

	score, err := f.service.ScoreConversation(c.Request.Context(), req.ConversationID)
	if err != nil {
		f.logger.Error("Failed to score conversation", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to score conversation"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "lead_score": score})
}

func (f *HTTPFrontend) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
