package integration

import (
	"context"

	appmetering "github.com/fieldline/backend/internal/application/metering"
	"github.com/fieldline/backend/internal/domain/metering"
	"github.com/fieldline/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// EmailService meters transactional email. Quota units are recipient
// addresses; a message to three recipients consumes three emails.
type EmailService struct {
	client   EmailClient
	governor *appmetering.Governor
	logger   *zap.Logger
}

// NewEmailService creates a new EmailService
func NewEmailService(client EmailClient, governor *appmetering.Governor, logger *zap.Logger) *EmailService {
	return &EmailService{
		client:   client,
		governor: governor,
		logger:   logger,
	}
}

// Send sends one governed transactional email for the caller
func (s *EmailService) Send(ctx context.Context, caller Caller, req EmailRequest) (*EmailResponse, error) {
	if len(req.To) == 0 {
		return nil, shared.NewDomainError("INVALID_INPUT", "At least one recipient is required")
	}
	if req.Subject == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Subject cannot be empty")
	}
	recipients := int64(len(req.To))

	var resp *EmailResponse
	_, err := s.governor.Meter(ctx, appmetering.MeterRequest{
		TenantID:       caller.TenantID,
		UserID:         caller.UserID,
		Service:        metering.ServiceTransactionalEmail,
		Operation:      "email.send",
		RequestedUnits: recipients,
	}, func(ctx context.Context) (appmetering.Consumption, error) {
		result, err := s.client.Send(ctx, req)
		if err != nil {
			return appmetering.Consumption{}, err
		}
		resp = result

		units := result.Accepted
		if units <= 0 {
			units = recipients
		}
		return appmetering.Consumption{
			UnitsUsed: units,
			Metadata: map[string]any{
				"message_id": result.MessageID,
				"recipients": recipients,
			},
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}
