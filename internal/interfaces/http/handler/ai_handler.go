package handler

import (
	appintegration "github.com/fieldline/backend/internal/application/integration"
	"github.com/fieldline/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AIHandler exposes the metered LLM endpoints
type AIHandler struct {
	BaseHandler
	chat   *appintegration.ChatService
	vision *appintegration.VisionService
}

// NewAIHandler creates a new AI handler
func NewAIHandler(chat *appintegration.ChatService, vision *appintegration.VisionService, logger *zap.Logger) *AIHandler {
	return &AIHandler{
		BaseHandler: NewBaseHandler(logger),
		chat:        chat,
		vision:      vision,
	}
}

// Chat godoc
// @ID           postAIChat
// @Summary      Run a chat completion
// @Description  Runs one metered chat completion against the LLM provider. Counts one llm_completion unit.
// @Tags         ai
// @Accept       json
// @Produce      json
// @Param        request body integration.ChatCompletionRequest true "Chat completion request"
// @Success      200 {object} dto.Response
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      429 {object} dto.QuotaExceededResponse
// @Failure      502 {object} dto.Response
// @Security     BearerAuth
// @Router       /ai/chat [post]
func (h *AIHandler) Chat(c *gin.Context) {
	var req appintegration.ChatCompletionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	resp, err := h.chat.Complete(c.Request.Context(), callerFromContext(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// Vision godoc
// @ID           postAIVision
// @Summary      Analyze an image
// @Description  Runs one metered image analysis against the LLM provider. Counts five llm_completion units.
// @Tags         ai
// @Accept       json
// @Produce      json
// @Param        request body integration.VisionRequest true "Vision request"
// @Success      200 {object} dto.Response
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      429 {object} dto.QuotaExceededResponse
// @Failure      502 {object} dto.Response
// @Security     BearerAuth
// @Router       /ai/vision [post]
func (h *AIHandler) Vision(c *gin.Context) {
	var req appintegration.VisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	resp, err := h.vision.Analyze(c.Request.Context(), callerFromContext(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// RegisterRoutes registers the AI routes
func (h *AIHandler) RegisterRoutes(rg *gin.RouterGroup) {
	ai := rg.Group("/ai")
	{
		ai.POST("/chat", h.Chat)
		ai.POST("/vision", h.Vision)
	}
}

// callerFromContext builds the metering caller from JWT context. A
// request without a tenant claim produces an unmetered caller; routes
// behind the JWT middleware always carry one.
func callerFromContext(c *gin.Context) appintegration.Caller {
	tenantID := middleware.GetJWTTenantUUID(c)
	if tenantID == uuid.Nil {
		return appintegration.SystemCaller()
	}

	var userID *uuid.UUID
	if id := middleware.GetJWTUserUUID(c); id != uuid.Nil {
		userID = &id
	}
	return appintegration.TenantCaller(tenantID, userID)
}
