package handler

import (
	appintegration "github.com/fieldline/backend/internal/application/integration"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// MessagingHandler exposes the metered SMS, voice and email endpoints
type MessagingHandler struct {
	BaseHandler
	sms   *appintegration.SMSService
	voice *appintegration.VoiceService
	email *appintegration.EmailService
}

// NewMessagingHandler creates a new messaging handler
func NewMessagingHandler(
	sms *appintegration.SMSService,
	voice *appintegration.VoiceService,
	email *appintegration.EmailService,
	logger *zap.Logger,
) *MessagingHandler {
	return &MessagingHandler{
		BaseHandler: NewBaseHandler(logger),
		sms:         sms,
		voice:       voice,
		email:       email,
	}
}

// RegisterRoutes registers the messaging routes
func (h *MessagingHandler) RegisterRoutes(rg *gin.RouterGroup) {
	messaging := rg.Group("/messaging")
	{
		messaging.POST("/sms", h.SendSMS)
		messaging.POST("/voice", h.PlaceCall)
		messaging.POST("/email", h.SendEmail)
	}
}

// SendSMS godoc
// @ID           postMessagingSMS
// @Summary      Send a text message
// @Description  Sends one metered SMS. Quota units are GSM-7 message segments.
// @Tags         messaging
// @Accept       json
// @Produce      json
// @Param        request body integration.SMSRequest true "SMS request"
// @Success      200 {object} dto.Response
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      429 {object} dto.QuotaExceededResponse
// @Failure      502 {object} dto.Response
// @Security     BearerAuth
// @Router       /messaging/sms [post]
func (h *MessagingHandler) SendSMS(c *gin.Context) {
	var req appintegration.SMSRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	resp, err := h.sms.Send(c.Request.Context(), callerFromContext(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// PlaceCall godoc
// @ID           postMessagingVoice
// @Summary      Place an outbound voice call
// @Description  Places one metered call. Quota units are rounded-up call minutes; one minute is reserved up front.
// @Tags         messaging
// @Accept       json
// @Produce      json
// @Param        request body integration.VoiceCallRequest true "Voice call request"
// @Success      200 {object} dto.Response
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      429 {object} dto.QuotaExceededResponse
// @Failure      502 {object} dto.Response
// @Security     BearerAuth
// @Router       /messaging/voice [post]
func (h *MessagingHandler) PlaceCall(c *gin.Context) {
	var req appintegration.VoiceCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	resp, err := h.voice.Call(c.Request.Context(), callerFromContext(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// SendEmail godoc
// @ID           postMessagingEmail
// @Summary      Send a transactional email
// @Description  Sends one metered email. Quota units are recipient addresses.
// @Tags         messaging
// @Accept       json
// @Produce      json
// @Param        request body integration.EmailRequest true "Email request"
// @Success      200 {object} dto.Response
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      429 {object} dto.QuotaExceededResponse
// @Failure      502 {object} dto.Response
// @Security     BearerAuth
// @Router       /messaging/email [post]
func (h *MessagingHandler) SendEmail(c *gin.Context) {
	var req appintegration.EmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	resp, err := h.email.Send(c.Request.Context(), callerFromContext(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}
