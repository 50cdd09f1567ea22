package integration

import (
	"context"
	"testing"
	"time"

	appmetering "github.com/fieldline/backend/internal/application/metering"
	"github.com/fieldline/backend/internal/domain/billing"
	"github.com/fieldline/backend/internal/domain/metering"
	"github.com/fieldline/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Repository mocks backing a real governor stack

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

// Provider client mocks

type mockChatClient struct {
	mock.Mock
}

func (m *mockChatClient) Complete(ctx context.Context, req ChatCompletionRequest) (*ChatCompletionResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ChatCompletionResponse), args.Error(1)
}

type mockVisionClient struct {
	mock.Mock
}

func (m *mockVisionClient) Analyze(ctx context.Context, req VisionRequest) (*VisionResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*VisionResponse), args.Error(1)
}

type mockSMSClient struct {
	mock.Mock
}

func (m *mockSMSClient) Send(ctx context.Context, req SMSRequest) (*SMSResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*SMSResponse), args.Error(1)
}

type mockVoiceClient struct {
	mock.Mock
}

func (m *mockVoiceClient) Call(ctx context.Context, req VoiceCallRequest) (*VoiceCallResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*VoiceCallResponse), args.Error(1)
}

type mockEmailClient struct {
	mock.Mock
}

func (m *mockEmailClient) Send(ctx context.Context, req EmailRequest) (*EmailResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*EmailResponse), args.Error(1)
}

// adapterFixture assembles a real governor over mocked repositories so
// adapter tests exercise the full metering sequence.
type adapterFixture struct {
	subs     *mockSubscriptionRepository
	limits   *mockQuotaLimitRepository
	events   *mockUsageEventRepository
	governor *appmetering.Governor
}

func newAdapterFixture() *adapterFixture {
	logger := zap.NewNop()
	f := &adapterFixture{
		subs:   new(mockSubscriptionRepository),
		limits: new(mockQuotaLimitRepository),
		events: new(mockUsageEventRepository),
	}
	f.governor = appmetering.NewGovernor(
		appmetering.NewTierResolver(f.subs, logger),
		appmetering.NewQuotaService(f.limits, f.events, logger, appmetering.DefaultQuotaServiceConfig()),
		appmetering.NewUsageRecorder(f.events, logger),
		logger,
	)
	return f
}

// allowService wires the fixture so tenantID is on the starter tier with
// the given current usage against the given monthly limit.
func (f *adapterFixture) allowService(t *testing.T, tenantID uuid.UUID, service metering.MeteredService, limit, current int64) {
	t.Helper()
	f.subs.On("FindLatestActiveByTenant", mock.Anything, tenantID).Return(nil, shared.ErrNotFound)
	ql, err := metering.NewQuotaLimit(billing.TierStarter, service, limit)
	require.NoError(t, err)
	f.limits.On("FindByTierAndService", mock.Anything, billing.TierStarter, service).Return(ql, nil)
	f.events.On("SumUnitsForPeriod", mock.Anything, tenantID, service, mock.Anything, mock.Anything).
		Return(current, nil)
}

// captureSave records the saved usage event into the returned pointer
func (f *adapterFixture) captureSave() **metering.UsageEvent {
	var saved *metering.UsageEvent
	ptr := &saved
	f.events.On("Save", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { *ptr = args.Get(1).(*metering.UsageEvent) }).
		Return(nil)
	return ptr
}
