package integration

import (
	"context"

	appmetering "github.com/fieldline/backend/internal/application/metering"
	"github.com/fieldline/backend/internal/domain/metering"
	"github.com/fieldline/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// SMSService meters outbound text messages. Quota units are message
// segments, estimated from the body length before sending and replaced
// by the provider's segment count when it reports one.
type SMSService struct {
	client   SMSClient
	governor *appmetering.Governor
	logger   *zap.Logger
}

// NewSMSService creates a new SMSService
func NewSMSService(client SMSClient, governor *appmetering.Governor, logger *zap.Logger) *SMSService {
	return &SMSService{
		client:   client,
		governor: governor,
		logger:   logger,
	}
}

// Send sends one governed text message for the caller
func (s *SMSService) Send(ctx context.Context, caller Caller, req SMSRequest) (*SMSResponse, error) {
	if req.To == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Recipient cannot be empty")
	}
	if req.Body == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Message body cannot be empty")
	}
	segments := metering.SegmentsForMessage(req.Body)

	var resp *SMSResponse
	_, err := s.governor.Meter(ctx, appmetering.MeterRequest{
		TenantID:       caller.TenantID,
		UserID:         caller.UserID,
		Service:        metering.ServiceSMS,
		Operation:      "sms.send",
		RequestedUnits: segments,
	}, func(ctx context.Context) (appmetering.Consumption, error) {
		result, err := s.client.Send(ctx, req)
		if err != nil {
			return appmetering.Consumption{}, err
		}
		resp = result

		units := result.Segments
		if units <= 0 {
			units = segments
		}
		return appmetering.Consumption{
			UnitsUsed: units,
			Metadata: map[string]any{
				"message_id": result.MessageID,
				"to":         maskRecipient(req.To),
				"segments":   units,
			},
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// maskRecipient keeps the last four characters of a phone number for
// ledger metadata
func maskRecipient(to string) string {
	if len(to) <= 4 {
		return to
	}
	masked := make([]byte, len(to)-4)
	for i := range masked {
		masked[i] = '*'
	}
	return string(masked) + to[len(to)-4:]
}
