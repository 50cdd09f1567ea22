package handler

import (
	"context"
	"io"
	"net/http/httptest"
	"time"

	appintegration "github.com/fieldline/backend/internal/application/integration"
	appmetering "github.com/fieldline/backend/internal/application/metering"
	"github.com/fieldline/backend/internal/domain/billing"
	"github.com/fieldline/backend/internal/domain/metering"
	"github.com/fieldline/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

// ---------------------------------------------------------------------------
// Repository mocks
// ---------------------------------------------------------------------------

type mockSubscriptionRepository struct {
	mock.Mock
}

func (m *mockSubscriptionRepository) FindLatestActiveByTenant(ctx context.Context, tenantID uuid.UUID) (*billing.Subscription, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Subscription), args.Error(1)
}

type mockQuotaLimitRepository struct {
	mock.Mock
}

func (m *mockQuotaLimitRepository) FindByTierAndService(ctx context.Context, tier billing.Tier, service metering.MeteredService) (*metering.QuotaLimit, error) {
	args := m.Called(ctx, tier, service)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*metering.QuotaLimit), args.Error(1)
}

func (m *mockQuotaLimitRepository) FindByTier(ctx context.Context, tier billing.Tier) ([]*metering.QuotaLimit, error) {
	args := m.Called(ctx, tier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*metering.QuotaLimit), args.Error(1)
}

type mockUsageEventRepository struct {
	mock.Mock
}

func (m *mockUsageEventRepository) Save(ctx context.Context, event *metering.UsageEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *mockUsageEventRepository) FindByTenant(ctx context.Context, tenantID uuid.UUID, filter metering.UsageEventFilter) ([]*metering.UsageEvent, error) {
	args := m.Called(ctx, tenantID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*metering.UsageEvent), args.Error(1)
}

func (m *mockUsageEventRepository) CountByTenant(ctx context.Context, tenantID uuid.UUID, filter metering.UsageEventFilter) (int64, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockUsageEventRepository) SumUnitsForPeriod(ctx context.Context, tenantID uuid.UUID, service metering.MeteredService, start, end time.Time) (int64, error) {
	args := m.Called(ctx, tenantID, service, start, end)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockUsageEventRepository) SumCostForPeriod(ctx context.Context, tenantID uuid.UUID, start, end time.Time) (int64, error) {
	args := m.Called(ctx, tenantID, start, end)
	return args.Get(0).(int64), args.Error(1)
}

// ---------------------------------------------------------------------------
// Provider client mocks
// ---------------------------------------------------------------------------

type mockChatClient struct {
	mock.Mock
}

func (m *mockChatClient) Complete(ctx context.Context, req appintegration.ChatCompletionRequest) (*appintegration.ChatCompletionResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appintegration.ChatCompletionResponse), args.Error(1)
}

type mockVisionClient struct {
	mock.Mock
}

func (m *mockVisionClient) Analyze(ctx context.Context, req appintegration.VisionRequest) (*appintegration.VisionResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appintegration.VisionResponse), args.Error(1)
}

type mockSMSClient struct {
	mock.Mock
}

func (m *mockSMSClient) Send(ctx context.Context, req appintegration.SMSRequest) (*appintegration.SMSResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appintegration.SMSResponse), args.Error(1)
}

type mockVoiceClient struct {
	mock.Mock
}

func (m *mockVoiceClient) Call(ctx context.Context, req appintegration.VoiceCallRequest) (*appintegration.VoiceCallResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appintegration.VoiceCallResponse), args.Error(1)
}

type mockEmailClient struct {
	mock.Mock
}

func (m *mockEmailClient) Send(ctx context.Context, req appintegration.EmailRequest) (*appintegration.EmailResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appintegration.EmailResponse), args.Error(1)
}

// ---------------------------------------------------------------------------
// Fixture
// ---------------------------------------------------------------------------

// handlerFixture assembles a real governor stack over mocked
// repositories and provider clients, mirroring the production wiring
type handlerFixture struct {
	subs     *mockSubscriptionRepository
	limits   *mockQuotaLimitRepository
	events   *mockUsageEventRepository
	governor *appmetering.Governor
	queries  *appmetering.UsageQueryService
}

func newHandlerFixture() *handlerFixture {
	logger := zap.NewNop()
	subs := new(mockSubscriptionRepository)
	limits := new(mockQuotaLimitRepository)
	events := new(mockUsageEventRepository)

	tiers := appmetering.NewTierResolver(subs, logger)
	quotas := appmetering.NewQuotaService(limits, events, logger, appmetering.DefaultQuotaServiceConfig())
	recorder := appmetering.NewUsageRecorder(events, logger)

	return &handlerFixture{
		subs:     subs,
		limits:   limits,
		events:   events,
		governor: appmetering.NewGovernor(tiers, quotas, recorder, logger),
		queries:  appmetering.NewUsageQueryService(tiers, limits, events, nil, time.Minute, logger),
	}
}

// serveRequest runs one request through a fresh engine with the given
// routes. A non-nil tenantID installs a stub auth middleware that sets
// the JWT context keys the real middleware would.
func serveRequest(register func(rg *gin.RouterGroup), tenantID *uuid.UUID, method, target string, body io.Reader) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	api := engine.Group("/api/v1")
	if tenantID != nil {
		userID := uuid.New()
		api.Use(func(c *gin.Context) {
			c.Set(middleware.JWTTenantIDKey, tenantID.String())
			c.Set(middleware.JWTUserIDKey, userID.String())
			c.Next()
		})
	}
	register(api)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	engine.ServeHTTP(w, req)
	return w
}

// limitRow builds an active quota limit for a tier and service
func limitRow(tier billing.Tier, service metering.MeteredService, monthly int64) *metering.QuotaLimit {
	limit, err := metering.NewQuotaLimit(tier, service, monthly)
	if err != nil {
		panic(err)
	}
	return limit
}
