package metering

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fieldline/backend/internal/domain/billing"
	"github.com/fieldline/backend/internal/domain/metering"
	"github.com/fieldline/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Mock implementations

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

func mustQuotaLimit(t *testing.T, tier billing.Tier, service metering.MeteredService, limit int64) *metering.QuotaLimit {
	t.Helper()
	ql, err := metering.NewQuotaLimit(tier, service, limit)
	require.NoError(t, err)
	return ql
}

func newQuotaService(limits *mockQuotaLimitRepository, usage *mockUsageEventRepository, failOpen bool) *QuotaService {
	return NewQuotaService(limits, usage, zap.NewNop(), QuotaServiceConfig{FailOpen: failOpen})
}

func TestQuotaService_Evaluate_WithinLimit(t *testing.T) {
	limits := new(mockQuotaLimitRepository)
	usage := new(mockUsageEventRepository)
	service := newQuotaService(limits, usage, true)
	tenantID := uuid.New()

	limits.On("FindByTierAndService", mock.Anything, billing.TierStarter, metering.ServiceSMS).
		Return(mustQuotaLimit(t, billing.TierStarter, metering.ServiceSMS, 100), nil)
	usage.On("SumUnitsForPeriod", mock.Anything, tenantID, metering.ServiceSMS, mock.Anything, mock.Anything).
		Return(int64(40), nil)

	decision := service.Evaluate(context.Background(), tenantID, billing.TierStarter, metering.ServiceSMS, 5)

	assert.True(t, decision.Allowed)
	assert.Equal(t, int64(40), decision.CurrentUsage)
	assert.Equal(t, int64(100), decision.Limit)
	assert.Equal(t, int64(60), decision.Remaining)
	limits.AssertExpectations(t)
	usage.AssertExpectations(t)
}

func TestQuotaService_Evaluate_Denied(t *testing.T) {
	limits := new(mockQuotaLimitRepository)
	usage := new(mockUsageEventRepository)
	service := newQuotaService(limits, usage, true)
	tenantID := uuid.New()

	limits.On("FindByTierAndService", mock.Anything, billing.TierStarter, metering.ServiceSMS).
		Return(mustQuotaLimit(t, billing.TierStarter, metering.ServiceSMS, 100), nil)
	usage.On("SumUnitsForPeriod", mock.Anything, tenantID, metering.ServiceSMS, mock.Anything, mock.Anything).
		Return(int64(100), nil)

	decision := service.Evaluate(context.Background(), tenantID, billing.TierStarter, metering.ServiceSMS, 1)

	assert.False(t, decision.Allowed)
	assert.Equal(t, int64(100), decision.CurrentUsage)
	assert.Zero(t, decision.Remaining)
}

func TestQuotaService_Evaluate_DefaultsRequestedToOne(t *testing.T) {
	limits := new(mockQuotaLimitRepository)
	usage := new(mockUsageEventRepository)
	service := newQuotaService(limits, usage, true)
	tenantID := uuid.New()

	limits.On("FindByTierAndService", mock.Anything, billing.TierGrowth, metering.ServiceVoiceCall).
		Return(mustQuotaLimit(t, billing.TierGrowth, metering.ServiceVoiceCall, 10), nil)
	usage.On("SumUnitsForPeriod", mock.Anything, tenantID, metering.ServiceVoiceCall, mock.Anything, mock.Anything).
		Return(int64(9), nil)

	// Zero requested units is treated as a request for one.
	decision := service.Evaluate(context.Background(), tenantID, billing.TierGrowth, metering.ServiceVoiceCall, 0)
	assert.True(t, decision.Allowed)
	assert.Equal(t, int64(1), decision.Remaining)
}

func TestQuotaService_Evaluate_MissingLimitAllowsUnlimited(t *testing.T) {
	limits := new(mockQuotaLimitRepository)
	usage := new(mockUsageEventRepository)
	service := newQuotaService(limits, usage, true)
	tenantID := uuid.New()

	limits.On("FindByTierAndService", mock.Anything, billing.TierEnterprise, metering.ServiceTransactionalEmail).
		Return(nil, shared.ErrNotFound)

	decision := service.Evaluate(context.Background(), tenantID, billing.TierEnterprise, metering.ServiceTransactionalEmail, 1)

	assert.True(t, decision.Allowed)
	assert.Equal(t, metering.UnlimitedQuota, decision.Limit)
	// No limit means no aggregation query is spent either.
	usage.AssertNotCalled(t, "SumUnitsForPeriod", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestQuotaService_Evaluate_UnlimitedLimitSkipsAggregation(t *testing.T) {
	limits := new(mockQuotaLimitRepository)
	usage := new(mockUsageEventRepository)
	service := newQuotaService(limits, usage, true)
	tenantID := uuid.New()

	limits.On("FindByTierAndService", mock.Anything, billing.TierEnterprise, metering.ServiceLLMCompletion).
		Return(mustQuotaLimit(t, billing.TierEnterprise, metering.ServiceLLMCompletion, -1), nil)

	decision := service.Evaluate(context.Background(), tenantID, billing.TierEnterprise, metering.ServiceLLMCompletion, 1)

	assert.True(t, decision.Allowed)
	usage.AssertNotCalled(t, "SumUnitsForPeriod", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestQuotaService_Evaluate_InactiveLimitAllows(t *testing.T) {
	limits := new(mockQuotaLimitRepository)
	usage := new(mockUsageEventRepository)
	service := newQuotaService(limits, usage, true)
	tenantID := uuid.New()

	limit := mustQuotaLimit(t, billing.TierStarter, metering.ServiceSMS, 100)
	limit.IsActive = false
	limits.On("FindByTierAndService", mock.Anything, billing.TierStarter, metering.ServiceSMS).
		Return(limit, nil)

	decision := service.Evaluate(context.Background(), tenantID, billing.TierStarter, metering.ServiceSMS, 1)
	assert.True(t, decision.Allowed)
}

func TestQuotaService_Evaluate_FailOpenOnLimitError(t *testing.T) {
	limits := new(mockQuotaLimitRepository)
	usage := new(mockUsageEventRepository)
	service := newQuotaService(limits, usage, true)
	tenantID := uuid.New()

	limits.On("FindByTierAndService", mock.Anything, billing.TierStarter, metering.ServiceSMS).
		Return(nil, errors.New("connection refused"))

	decision := service.Evaluate(context.Background(), tenantID, billing.TierStarter, metering.ServiceSMS, 1)

	assert.True(t, decision.Allowed)
	assert.Equal(t, metering.UnlimitedQuota, decision.Limit)
}

func TestQuotaService_Evaluate_FailOpenOnAggregationError(t *testing.T) {
	limits := new(mockQuotaLimitRepository)
	usage := new(mockUsageEventRepository)
	service := newQuotaService(limits, usage, true)
	tenantID := uuid.New()

	limits.On("FindByTierAndService", mock.Anything, billing.TierStarter, metering.ServiceSMS).
		Return(mustQuotaLimit(t, billing.TierStarter, metering.ServiceSMS, 100), nil)
	usage.On("SumUnitsForPeriod", mock.Anything, tenantID, metering.ServiceSMS, mock.Anything, mock.Anything).
		Return(int64(0), errors.New("query timeout"))

	decision := service.Evaluate(context.Background(), tenantID, billing.TierStarter, metering.ServiceSMS, 1)
	assert.True(t, decision.Allowed)
}

func TestQuotaService_Evaluate_FailClosedDenies(t *testing.T) {
	limits := new(mockQuotaLimitRepository)
	usage := new(mockUsageEventRepository)
	service := newQuotaService(limits, usage, false)
	tenantID := uuid.New()

	limits.On("FindByTierAndService", mock.Anything, billing.TierStarter, metering.ServiceSMS).
		Return(nil, errors.New("connection refused"))

	decision := service.Evaluate(context.Background(), tenantID, billing.TierStarter, metering.ServiceSMS, 1)

	assert.False(t, decision.Allowed)
	assert.Zero(t, decision.Limit)
}

func TestQuotaService_Evaluate_QueriesCurrentCalendarMonth(t *testing.T) {
	limits := new(mockQuotaLimitRepository)
	usage := new(mockUsageEventRepository)
	service := newQuotaService(limits, usage, true)
	tenantID := uuid.New()

	limits.On("FindByTierAndService", mock.Anything, billing.TierStarter, metering.ServiceSMS).
		Return(mustQuotaLimit(t, billing.TierStarter, metering.ServiceSMS, 100), nil)

	wantStart, wantEnd := metering.CurrentPeriod()
	usage.On("SumUnitsForPeriod", mock.Anything, tenantID, metering.ServiceSMS,
		mock.MatchedBy(func(start time.Time) bool { return start.Equal(wantStart) }),
		mock.MatchedBy(func(end time.Time) bool { return end.Equal(wantEnd) })).
		Return(int64(0), nil)

	service.Evaluate(context.Background(), tenantID, billing.TierStarter, metering.ServiceSMS, 1)
	usage.AssertExpectations(t)
}

func TestNewQuotaExceededError(t *testing.T) {
	decision := metering.Decide(metering.ServiceSMS, 100, 100, 1)
	err := NewQuotaExceededError(metering.ServiceSMS, decision)

	assert.Contains(t, err.Error(), "quota exceeded")
	assert.Equal(t, 429, err.HTTPStatusCode())
	assert.Equal(t, decision, err.Decision)
}
