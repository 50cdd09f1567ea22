package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	appintegration "github.com/fieldline/backend/internal/application/integration"
	"github.com/fieldline/backend/internal/domain/billing"
	"github.com/fieldline/backend/internal/domain/metering"
	"github.com/fieldline/backend/internal/domain/shared"
	"github.com/fieldline/backend/internal/interfaces/http/dto"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type aiFixture struct {
	*handlerFixture
	chatClient   *mockChatClient
	visionClient *mockVisionClient
	handler      *AIHandler
}

func newAIFixture() *aiFixture {
	f := newHandlerFixture()
	chatClient := new(mockChatClient)
	visionClient := new(mockVisionClient)
	logger := zap.NewNop()

	chat := appintegration.NewChatService(chatClient, f.governor, logger)
	vision := appintegration.NewVisionService(visionClient, f.governor, logger)

	return &aiFixture{
		handlerFixture: f,
		chatClient:     chatClient,
		visionClient:   visionClient,
		handler:        NewAIHandler(chat, vision, logger),
	}
}

// allowStarterQuota lets the starter tier through with the given usage
// and limit for a service
func (f *aiFixture) allowStarterQuota(tenantID uuid.UUID, service metering.MeteredService, used, limit int64) {
	f.subs.On("FindLatestActiveByTenant", mock.Anything, tenantID).
		Return(nil, shared.ErrNotFound)
	f.limits.On("FindByTierAndService", mock.Anything, billing.TierStarter, service).
		Return(limitRow(billing.TierStarter, service, limit), nil)
	f.events.On("SumUnitsForPeriod", mock.Anything, tenantID, service, mock.Anything, mock.Anything).
		Return(used, nil)
}

func TestAIHandler_Chat(t *testing.T) {
	f := newAIFixture()
	tenantID := uuid.New()

	f.allowStarterQuota(tenantID, metering.ServiceLLMCompletion, 10, 1000)
	f.chatClient.On("Complete", mock.Anything, mock.Anything).
		Return(&appintegration.ChatCompletionResponse{
			Model:            "gpt-4o-mini",
			Content:          "Hello!",
			PromptTokens:     12,
			CompletionTokens: 8,
			TotalTokens:      20,
		}, nil)
	f.events.On("Save", mock.Anything, mock.Anything).Return(nil)

	body := `{"messages":[{"role":"user","content":"Say hello"}]}`
	w := serveRequest(f.handler.RegisterRoutes, &tenantID, http.MethodPost, "/api/v1/ai/chat", strings.NewReader(body))

	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "Hello!", data["content"])
	assert.Equal(t, float64(20), data["total_tokens"])

	f.events.AssertCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestAIHandler_Chat_QuotaExceeded(t *testing.T) {
	f := newAIFixture()
	tenantID := uuid.New()

	f.allowStarterQuota(tenantID, metering.ServiceLLMCompletion, 1000, 1000)

	body := `{"messages":[{"role":"user","content":"Say hello"}]}`
	w := serveRequest(f.handler.RegisterRoutes, &tenantID, http.MethodPost, "/api/v1/ai/chat", strings.NewReader(body))

	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	var resp dto.QuotaExceededResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Usage limit exceeded", resp.Error)
	assert.Equal(t, int64(1000), resp.CurrentUsage)
	assert.Equal(t, int64(1000), resp.Limit)
	assert.Equal(t, float64(100), resp.PercentageUsed)
	assert.Contains(t, resp.Message, "AI Completions")

	f.chatClient.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
	f.events.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestAIHandler_Chat_InvalidBody(t *testing.T) {
	f := newAIFixture()
	tenantID := uuid.New()

	w := serveRequest(f.handler.RegisterRoutes, &tenantID, http.MethodPost, "/api/v1/ai/chat",
		strings.NewReader(`{"messages":[]}`))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	f.chatClient.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestAIHandler_Chat_ProviderError(t *testing.T) {
	f := newAIFixture()
	tenantID := uuid.New()

	f.allowStarterQuota(tenantID, metering.ServiceLLMCompletion, 0, 1000)
	f.chatClient.On("Complete", mock.Anything, mock.Anything).
		Return(nil, assert.AnError)

	body := `{"messages":[{"role":"user","content":"Say hello"}]}`
	w := serveRequest(f.handler.RegisterRoutes, &tenantID, http.MethodPost, "/api/v1/ai/chat", strings.NewReader(body))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	f.events.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestAIHandler_Vision(t *testing.T) {
	f := newAIFixture()
	tenantID := uuid.New()

	f.allowStarterQuota(tenantID, metering.ServiceLLMCompletion, 0, 1000)
	f.visionClient.On("Analyze", mock.Anything, mock.Anything).
		Return(&appintegration.VisionResponse{
			Model:       "gpt-4o",
			Description: "A red tractor in a field",
			TotalTokens: 400,
		}, nil)
	f.events.On("Save", mock.Anything, mock.Anything).Return(nil)

	body := `{"image_url":"https://example.com/tractor.jpg","prompt":"What is this?"}`
	w := serveRequest(f.handler.RegisterRoutes, &tenantID, http.MethodPost, "/api/v1/ai/vision", strings.NewReader(body))

	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "A red tractor in a field", data["description"])
}

func TestAIHandler_Vision_QuotaExceededAtWeight(t *testing.T) {
	f := newAIFixture()
	tenantID := uuid.New()

	// Vision requests five llm_completion units, so 996/1000 denies.
	f.allowStarterQuota(tenantID, metering.ServiceLLMCompletion, 996, 1000)

	body := `{"image_url":"https://example.com/tractor.jpg","prompt":"What is this?"}`
	w := serveRequest(f.handler.RegisterRoutes, &tenantID, http.MethodPost, "/api/v1/ai/vision", strings.NewReader(body))

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	f.visionClient.AssertNotCalled(t, "Analyze", mock.Anything, mock.Anything)
}
