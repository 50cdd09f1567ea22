package integration

import (
	"context"
	"testing"

	appmetering "github.com/fieldline/backend/internal/application/metering"
	"github.com/fieldline/backend/internal/domain/metering"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestVoiceService_Call(t *testing.T) {
	f := newAdapterFixture()
	tenantID := uuid.New()
	f.allowService(t, tenantID, metering.ServiceVoiceCall, 60, 0)
	saved := f.captureSave()

	client := new(mockVoiceClient)
	// 150 seconds rounds up to 3 billable minutes.
	client.On("Call", mock.Anything, mock.Anything).Return(&VoiceCallResponse{
		CallID:          "CA001",
		DurationSeconds: 150,
	}, nil)

	service := NewVoiceService(client, f.governor, zap.NewNop())
	resp, err := service.Call(context.Background(), TenantCaller(tenantID, nil), VoiceCallRequest{
		To:      "+15555550100",
		Message: "Your technician is on the way",
	})

	require.NoError(t, err)
	assert.Equal(t, "CA001", resp.CallID)

	event := *saved
	require.NotNil(t, event)
	assert.Equal(t, metering.ServiceVoiceCall, event.Service)
	assert.Equal(t, "voice.call", event.Operation)
	assert.Equal(t, int64(3), event.UnitsUsed)
	assert.Equal(t, metering.CostForVoiceMinutes(3), event.EstimatedCostCents)
	assert.Equal(t, int64(150), event.Metadata["duration_seconds"])
}

func TestVoiceService_Call_QuotaDenied(t *testing.T) {
	f := newAdapterFixture()
	tenantID := uuid.New()
	f.allowService(t, tenantID, metering.ServiceVoiceCall, 60, 60)

	client := new(mockVoiceClient)
	service := NewVoiceService(client, f.governor, zap.NewNop())

	_, err := service.Call(context.Background(), TenantCaller(tenantID, nil), VoiceCallRequest{
		To:      "+15555550100",
		Message: "Reminder",
	})

	var quotaErr *appmetering.QuotaExceededError
	require.ErrorAs(t, err, &quotaErr)
	client.AssertNotCalled(t, "Call", mock.Anything, mock.Anything)
}

func TestVoiceService_Call_Validation(t *testing.T) {
	f := newAdapterFixture()
	service := NewVoiceService(new(mockVoiceClient), f.governor, zap.NewNop())

	_, err := service.Call(context.Background(), SystemCaller(), VoiceCallRequest{Message: "hi"})
	assert.Error(t, err)

	_, err = service.Call(context.Background(), SystemCaller(), VoiceCallRequest{To: "+15555550100"})
	assert.Error(t, err)
}

func TestBillableMinutes(t *testing.T) {
	tests := []struct {
		name    string
		seconds int64
		want    int64
	}{
		{"connected zero-length call bills one minute", 0, 1},
		{"under a minute", 30, 1},
		{"exactly one minute", 60, 1},
		{"just over a minute", 61, 2},
		{"two and a half minutes", 150, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, billableMinutes(tt.seconds))
		})
	}
}
