package integration

import (
	"context"

	appmetering "github.com/fieldline/backend/internal/application/metering"
	"github.com/fieldline/backend/internal/domain/metering"
	"github.com/fieldline/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// VoiceService meters outbound calls. Duration is unknown before the
// call completes, so the quota check reserves a single minute and the
// ledger records the actual rounded-up minutes afterwards.
type VoiceService struct {
	client   VoiceClient
	governor *appmetering.Governor
	logger   *zap.Logger
}

// NewVoiceService creates a new VoiceService
func NewVoiceService(client VoiceClient, governor *appmetering.Governor, logger *zap.Logger) *VoiceService {
	return &VoiceService{
		client:   client,
		governor: governor,
		logger:   logger,
	}
}

// Call places one governed outbound call for the caller
func (s *VoiceService) Call(ctx context.Context, caller Caller, req VoiceCallRequest) (*VoiceCallResponse, error) {
	if req.To == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Recipient cannot be empty")
	}
	if req.Message == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Message cannot be empty")
	}

	var resp *VoiceCallResponse
	_, err := s.governor.Meter(ctx, appmetering.MeterRequest{
		TenantID:       caller.TenantID,
		UserID:         caller.UserID,
		Service:        metering.ServiceVoiceCall,
		Operation:      "voice.call",
		RequestedUnits: 1,
	}, func(ctx context.Context) (appmetering.Consumption, error) {
		result, err := s.client.Call(ctx, req)
		if err != nil {
			return appmetering.Consumption{}, err
		}
		resp = result

		minutes := billableMinutes(result.DurationSeconds)
		return appmetering.Consumption{
			UnitsUsed: minutes,
			Metadata: map[string]any{
				"call_id":          result.CallID,
				"to":               maskRecipient(req.To),
				"duration_seconds": result.DurationSeconds,
			},
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// billableMinutes rounds a call duration up to whole minutes. A
// connected call is billed at least one minute.
func billableMinutes(seconds int64) int64 {
	if seconds <= 0 {
		return 1
	}
	return (seconds + 59) / 60
}
