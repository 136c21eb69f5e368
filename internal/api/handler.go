// Package api exposes the HTTP surface over the agent manager and session
// store.
package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/procurement-tools/contractpilot/internal/agent"
	"github.com/procurement-tools/contractpilot/internal/domain"
	"github.com/procurement-tools/contractpilot/internal/normalizer"
	"github.com/procurement-tools/contractpilot/internal/session"
	"go.uber.org/zap"
)

// Handler handles API requests
type Handler struct {
	manager    *agent.Manager
	store      *session.Store
	normalizer *normalizer.Normalizer
	logger     *zap.Logger
	cfg        RouterConfig
}

// NewHandler creates a new API handler
func NewHandler(manager *agent.Manager, store *session.Store, n *normalizer.Normalizer, logger *zap.Logger, cfg RouterConfig) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		manager:    manager,
		store:      store,
		normalizer: n,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterRoutes registers API routes
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	models := r.Group("/models")
	{
		models.GET("", h.ListModels)
		models.POST("/select", h.SelectModel)
	}

	sessions := r.Group("/sessions")
	{
		sessions.POST("", h.CreateSession)
		sessions.GET("/:id", h.GetSession)
		sessions.DELETE("/:id", h.DeleteSession)
		sessions.POST("/:id/upload", h.Upload)
		sessions.POST("/:id/regenerate", h.Regenerate)
		sessions.POST("/:id/modify", h.Modify)
		sessions.POST("/:id/analyze", h.Analyze)
		sessions.PUT("/:id/document", h.SaveDocument)
		sessions.POST("/:id/messages", h.SendMessage)
		sessions.PUT("/:id/messages/:mid", h.EditMessage)
		sessions.DELETE("/:id/messages/:mid", h.DeleteMessage)
		sessions.POST("/:id/messages/:mid/apply", h.ApplySuggestion)
		sessions.POST("/:id/suggest", h.Suggest)
	}

	r.POST("/tables/summary", h.SummarizeTable)
	r.GET("/config", h.ClientConfig)
}

// ClientConfig reports the settings the browser client needs: how long to
// wait after a keystroke before asking for a completion, and the length bound
// the server will enforce on the answer.
func (h *Handler) ClientConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"suggestion_debounce_ms": h.cfg.SuggestionDebounceMS,
		"suggestion_max_length":  h.cfg.SuggestionMaxLength,
	})
}

// Model handlers

func (h *Handler) ListModels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"models":  h.manager.Models(),
		"current": h.manager.CurrentModelName(),
	})
}

func (h *Handler) SelectModel(c *gin.Context) {
	var req struct {
		Model string `json:"model" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.manager.SelectModel(c.Request.Context(), req.Model); err != nil {
		c.JSON(selectStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "model": req.Model})
}

// selectStatus maps the initialize error taxonomy to distinguishable HTTP
// statuses.
func selectStatus(err error) int {
	var notInstalled *domain.ModelNotAvailableError
	var unavailable *domain.ServiceUnavailableError
	switch {
	case errors.Is(err, domain.ErrModelNotFound):
		return http.StatusNotFound
	case errors.As(err, &notInstalled):
		return http.StatusNotFound
	case errors.As(err, &unavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Session handlers

func (h *Handler) CreateSession(c *gin.Context) {
	sess := h.store.Create()
	c.JSON(http.StatusCreated, gin.H{"session_id": sess.ID})
}

func (h *Handler) GetSession(c *gin.Context) {
	sess, err := h.store.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	content, revision := sess.Document.Content()
	c.JSON(http.StatusOK, gin.H{
		"session_id": sess.ID,
		"content":    content,
		"revision":   revision,
		"messages":   sess.Conversation.Messages(),
	})
}

func (h *Handler) DeleteSession(c *gin.Context) {
	if err := h.store.Delete(c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "session deleted"})
}

// Upload runs the full pipeline over an uploaded table. The response is the
// uniform success/error envelope; file validation fails locally before any
// model traffic.
func (h *Handler) Upload(c *gin.Context) {
	sess, err := h.store.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "file is required"})
		return
	}

	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "failed to open upload"})
		return
	}
	defer f.Close()

	env := h.manager.ProcessFile(c.Request.Context(), file.Filename, file.Size, f)
	if env.Success {
		revision := sess.Document.Update(env.Contract)
		c.JSON(http.StatusOK, gin.H{
			"success":  true,
			"rows":     env.Rows,
			"data":     env.Data,
			"contract": env.Contract,
			"revision": revision,
		})
		return
	}
	c.JSON(http.StatusOK, env)
}

// Regenerate rebuilds the contract from its current content, preserving
// substance while improving language and structure.
func (h *Handler) Regenerate(c *gin.Context) {
	sess, err := h.store.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	content, _ := sess.Document.Content()
	env := h.manager.GenerateContract(c.Request.Context(), domain.GenerateRequest{
		Type:    domain.GenerateTypeRegenerate,
		Content: content,
	})
	if env.Success {
		revision := sess.Document.Update(env.Content)
		c.JSON(http.StatusOK, gin.H{"success": true, "content": env.Content, "revision": revision})
		return
	}
	c.JSON(http.StatusOK, env)
}

func (h *Handler) Modify(c *gin.Context) {
	sess, err := h.store.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	// Empty instruction is valid input, not a validation error.
	var req domain.ModifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	content, _ := sess.Document.Content()
	env := h.manager.ModifyContract(c.Request.Context(), content, req.Instruction)
	if env.Success {
		revision := sess.Document.Update(env.Content)
		c.JSON(http.StatusOK, gin.H{"success": true, "content": env.Content, "revision": revision})
		return
	}
	c.JSON(http.StatusOK, env)
}

func (h *Handler) Analyze(c *gin.Context) {
	sess, err := h.store.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	content, _ := sess.Document.Content()
	env := h.manager.AnalyzeContract(c.Request.Context(), content)
	c.JSON(http.StatusOK, env)
}

// SaveDocument is the editor-save path through the document's single update
// entry point, with optional revision compare-and-set.
func (h *Handler) SaveDocument(c *gin.Context) {
	sess, err := h.store.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	var req domain.SaveDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var revision int
	if req.Revision != nil {
		revision, err = sess.Document.Save(req.Content, *req.Revision)
		if err != nil {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "revision": revision})
			return
		}
	} else {
		revision = sess.Document.Update(req.Content)
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "revision": revision})
}

// Chat handlers

func (h *Handler) SendMessage(c *gin.Context) {
	sess, err := h.store.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	var req domain.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reply, err := sess.Conversation.Send(c.Request.Context(), req.Content)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": reply})
}

func (h *Handler) EditMessage(c *gin.Context) {
	sess, err := h.store.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	var req domain.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reply, err := sess.Conversation.EditMessage(c.Request.Context(), c.Param("mid"), req.Content)
	if err != nil {
		c.JSON(messageStatus(err), gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": reply})
}

func (h *Handler) DeleteMessage(c *gin.Context) {
	sess, err := h.store.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	if err := sess.Conversation.DeleteMessage(c.Param("mid")); err != nil {
		c.JSON(messageStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "message deleted"})
}

func (h *Handler) ApplySuggestion(c *gin.Context) {
	sess, err := h.store.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	revision, err := sess.Conversation.ApplySuggestion(c.Request.Context(), c.Param("mid"))
	if err != nil {
		c.JSON(messageStatus(err), gin.H{"success": false, "error": err.Error()})
		return
	}
	content, _ := sess.Document.Content()
	c.JSON(http.StatusOK, gin.H{"success": true, "content": content, "revision": revision})
}

func (h *Handler) Suggest(c *gin.Context) {
	sess, err := h.store.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	var req domain.SuggestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	suggestion := sess.Conversation.Suggest(c.Request.Context(), req.Input)
	c.JSON(http.StatusOK, gin.H{"suggestion": suggestion})
}

func messageStatus(err error) int {
	var validation *domain.ValidationError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &validation):
		return http.StatusBadRequest
	default:
		return http.StatusOK
	}
}

// Table analytics

// SummarizeTable parses an uploaded table and returns read-only analytics:
// totals, supplier grouping and the calculation-consistency check. No model
// traffic.
func (h *Handler) SummarizeTable(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	if err := h.normalizer.ValidateFile(file.Filename, file.Size); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to open upload"})
		return
	}
	defer f.Close()

	rows, err := h.normalizer.Parse(file.Filename, f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"summary":    h.normalizer.Totals(rows),
		"validation": h.normalizer.ValidateCalculations(rows),
		"suppliers":  h.normalizer.GroupBySupplier(rows),
	})
}
