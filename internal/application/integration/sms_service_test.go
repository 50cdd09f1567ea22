package integration

import (
	"context"
	"errors"
	"strings"
	"testing"

	appmetering "github.com/fieldline/backend/internal/application/metering"
	"github.com/fieldline/backend/internal/domain/metering"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSMSService_Send(t *testing.T) {
	f := newAdapterFixture()
	tenantID := uuid.New()
	f.allowService(t, tenantID, metering.ServiceSMS, 100, 0)
	saved := f.captureSave()

	client := new(mockSMSClient)
	client.On("Send", mock.Anything, mock.Anything).Return(&SMSResponse{MessageID: "SM123", Segments: 4}, nil)

	service := NewSMSService(client, f.governor, zap.NewNop())
	body := strings.Repeat("x", 500)
	resp, err := service.Send(context.Background(), TenantCaller(tenantID, nil), SMSRequest{
		To:   "+15555550100",
		Body: body,
	})

	require.NoError(t, err)
	assert.Equal(t, "SM123", resp.MessageID)

	event := *saved
	require.NotNil(t, event)
	assert.Equal(t, metering.ServiceSMS, event.Service)
	assert.Equal(t, "sms.send", event.Operation)
	assert.Equal(t, int64(4), event.UnitsUsed)
	assert.Equal(t, int64(4), event.EstimatedCostCents)
	assert.Equal(t, "SM123", event.Metadata["message_id"])
	assert.Equal(t, "********0100", event.Metadata["to"])
}

func TestSMSService_Send_RequestsSegmentEstimate(t *testing.T) {
	f := newAdapterFixture()
	tenantID := uuid.New()
	// 2 segments remaining; a 500-char body needs 4, so the check denies
	// before the provider is called.
	f.allowService(t, tenantID, metering.ServiceSMS, 100, 98)

	client := new(mockSMSClient)
	service := NewSMSService(client, f.governor, zap.NewNop())

	_, err := service.Send(context.Background(), TenantCaller(tenantID, nil), SMSRequest{
		To:   "+15555550100",
		Body: strings.Repeat("x", 500),
	})

	var quotaErr *appmetering.QuotaExceededError
	require.ErrorAs(t, err, &quotaErr)
	client.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestSMSService_Send_FallsBackToEstimatedSegments(t *testing.T) {
	f := newAdapterFixture()
	tenantID := uuid.New()
	f.allowService(t, tenantID, metering.ServiceSMS, 100, 0)
	saved := f.captureSave()

	client := new(mockSMSClient)
	// Provider did not report a segment count.
	client.On("Send", mock.Anything, mock.Anything).Return(&SMSResponse{MessageID: "SM124"}, nil)

	service := NewSMSService(client, f.governor, zap.NewNop())
	_, err := service.Send(context.Background(), TenantCaller(tenantID, nil), SMSRequest{
		To:   "+15555550100",
		Body: strings.Repeat("x", 200),
	})

	require.NoError(t, err)
	assert.Equal(t, int64(2), (*saved).UnitsUsed)
}

func TestSMSService_Send_ProviderError(t *testing.T) {
	f := newAdapterFixture()
	tenantID := uuid.New()
	f.allowService(t, tenantID, metering.ServiceSMS, 100, 0)

	client := new(mockSMSClient)
	providerErr := errors.New("carrier rejected")
	client.On("Send", mock.Anything, mock.Anything).Return(nil, providerErr)

	service := NewSMSService(client, f.governor, zap.NewNop())
	_, err := service.Send(context.Background(), TenantCaller(tenantID, nil), SMSRequest{
		To:   "+15555550100",
		Body: "hello",
	})

	assert.ErrorIs(t, err, providerErr)
	f.events.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestSMSService_Send_Validation(t *testing.T) {
	f := newAdapterFixture()
	service := NewSMSService(new(mockSMSClient), f.governor, zap.NewNop())

	_, err := service.Send(context.Background(), SystemCaller(), SMSRequest{Body: "hi"})
	assert.Error(t, err)

	_, err = service.Send(context.Background(), SystemCaller(), SMSRequest{To: "+15555550100"})
	assert.Error(t, err)
}

func TestMaskRecipient(t *testing.T) {
	assert.Equal(t, "********0100", maskRecipient("+15555550100"))
	assert.Equal(t, "100", maskRecipient("100"))
}
