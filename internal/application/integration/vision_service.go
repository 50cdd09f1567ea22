package integration

import (
	"context"

	appmetering "github.com/fieldline/backend/internal/application/metering"
	"github.com/fieldline/backend/internal/domain/metering"
	"github.com/fieldline/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// Image analysis is priced against the llm_completion quota at a fixed
// five units per request, reflecting its heavier token footprint.
const visionUnitWeight int64 = 5

// VisionService meters image analysis calls
type VisionService struct {
	client   VisionClient
	governor *appmetering.Governor
	logger   *zap.Logger
}

// NewVisionService creates a new VisionService
func NewVisionService(client VisionClient, governor *appmetering.Governor, logger *zap.Logger) *VisionService {
	return &VisionService{
		client:   client,
		governor: governor,
		logger:   logger,
	}
}

// Analyze runs one governed image analysis for the caller
func (s *VisionService) Analyze(ctx context.Context, caller Caller, req VisionRequest) (*VisionResponse, error) {
	if req.ImageURL == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Image URL cannot be empty")
	}

	var resp *VisionResponse
	_, err := s.governor.Meter(ctx, appmetering.MeterRequest{
		TenantID:       caller.TenantID,
		UserID:         caller.UserID,
		Service:        metering.ServiceLLMCompletion,
		Operation:      "vision.analyze",
		RequestedUnits: visionUnitWeight,
	}, func(ctx context.Context) (appmetering.Consumption, error) {
		result, err := s.client.Analyze(ctx, req)
		if err != nil {
			return appmetering.Consumption{}, err
		}
		resp = result
		return appmetering.Consumption{
			TokensUsed: result.TotalTokens,
			UnitsUsed:  visionUnitWeight,
			Metadata: map[string]any{
				"model": result.Model,
			},
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}
