package handler

import (
	"fmt"
	"time"

	appmetering "github.com/fieldline/backend/internal/application/metering"
	"github.com/fieldline/backend/internal/domain/metering"
	"github.com/fieldline/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MeteringHandler serves the usage dashboard: quota snapshots, usage
// history and the monthly summary
type MeteringHandler struct {
	BaseHandler
	queries *appmetering.UsageQueryService
}

// NewMeteringHandler creates a new metering handler
func NewMeteringHandler(queries *appmetering.UsageQueryService, logger *zap.Logger) *MeteringHandler {
	return &MeteringHandler{
		BaseHandler: NewBaseHandler(logger),
		queries:     queries,
	}
}

// UsageHistoryRequest holds query parameters for the usage history
// endpoint
type UsageHistoryRequest struct {
	Service   string `form:"service" binding:"omitempty,oneof=llm_completion sms voice_call transactional_email"`
	Operation string `form:"operation"`
	StartTime string `form:"start_time"` // RFC 3339
	EndTime   string `form:"end_time"`   // RFC 3339
	Page      int    `form:"page" binding:"omitempty,min=1"`
	PageSize  int    `form:"page_size" binding:"omitempty,min=1,max=200"`
}

// GetQuotas godoc
// @ID           getMeteringQuotas
// @Summary      Get quota statuses for the current tenant
// @Description  Returns per-service quota usage for the current calendar month
// @Tags         metering
// @Produce      json
// @Success      200 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Security     BearerAuth
// @Router       /metering/quotas [get]
func (h *MeteringHandler) GetQuotas(c *gin.Context) {
	tenantID, ok := h.tenantFromContext(c)
	if !ok {
		return
	}

	statuses, err := h.queries.QuotaStatuses(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, statuses)
}

// GetUsageHistory godoc
// @ID           getMeteringUsageHistory
// @Summary      Get usage history for the current tenant
// @Description  Returns a page of usage events, newest first, with optional service, operation and time filters
// @Tags         metering
// @Produce      json
// @Param        service    query string false "Metered service" Enums(llm_completion, sms, voice_call, transactional_email)
// @Param        operation  query string false "Operation name"
// @Param        start_time query string false "RFC 3339 lower bound"
// @Param        end_time   query string false "RFC 3339 upper bound"
// @Param        page       query int    false "Page (1-based)"
// @Param        page_size  query int    false "Page size (max 200)"
// @Success      200 {object} dto.Response
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Security     BearerAuth
// @Router       /metering/usage [get]
func (h *MeteringHandler) GetUsageHistory(c *gin.Context) {
	tenantID, ok := h.tenantFromContext(c)
	if !ok {
		return
	}

	var req UsageHistoryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	filter, err := req.toFilter()
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	page, err := h.queries.UsageHistory(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, page.Events, page.TotalCount, page.Page, page.PageSize)
}

// GetUsageSummary godoc
// @ID           getMeteringUsageSummary
// @Summary      Get the current month's usage summary
// @Description  Returns total events, total estimated cost and per-service unit totals for the current calendar month
// @Tags         metering
// @Produce      json
// @Success      200 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Security     BearerAuth
// @Router       /metering/usage/summary [get]
func (h *MeteringHandler) GetUsageSummary(c *gin.Context) {
	tenantID, ok := h.tenantFromContext(c)
	if !ok {
		return
	}

	summary, err := h.queries.UsageSummary(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, summary)
}

// RegisterRoutes registers the metering dashboard routes
func (h *MeteringHandler) RegisterRoutes(rg *gin.RouterGroup) {
	metering := rg.Group("/metering")
	{
		metering.GET("/quotas", h.GetQuotas)
		metering.GET("/usage", h.GetUsageHistory)
		metering.GET("/usage/summary", h.GetUsageSummary)
	}
}

// tenantFromContext resolves the authenticated tenant or writes a 401
func (h *MeteringHandler) tenantFromContext(c *gin.Context) (uuid.UUID, bool) {
	tenantID := middleware.GetJWTTenantUUID(c)
	if tenantID == uuid.Nil {
		h.Unauthorized(c, "Tenant ID not found in token")
		return uuid.Nil, false
	}
	return tenantID, true
}

// toFilter converts the bound query parameters to a ledger filter
func (r UsageHistoryRequest) toFilter() (metering.UsageEventFilter, error) {
	filter := metering.DefaultUsageEventFilter()
	if r.Page > 0 {
		filter.Page = r.Page
	}
	if r.PageSize > 0 {
		filter.PageSize = r.PageSize
	}
	filter.Operation = r.Operation

	if r.Service != "" {
		service, err := metering.ParseMeteredService(r.Service)
		if err != nil {
			return filter, err
		}
		filter.Service = &service
	}
	if r.StartTime != "" {
		start, err := time.Parse(time.RFC3339, r.StartTime)
		if err != nil {
			return filter, fmt.Errorf("invalid start_time: must be RFC 3339")
		}
		filter.StartTime = &start
	}
	if r.EndTime != "" {
		end, err := time.Parse(time.RFC3339, r.EndTime)
		if err != nil {
			return filter, fmt.Errorf("invalid end_time: must be RFC 3339")
		}
		filter.EndTime = &end
	}
	return filter, nil
}
