package integration

import (
	"context"

	appmetering "github.com/fieldline/backend/internal/application/metering"
	"github.com/fieldline/backend/internal/domain/metering"
	"github.com/fieldline/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// ChatService meters chat completions. One completion consumes one
// llm_completion unit regardless of its token count; tokens drive cost,
// not quota.
type ChatService struct {
	client   ChatClient
	governor *appmetering.Governor
	logger   *zap.Logger
}

// NewChatService creates a new ChatService
func NewChatService(client ChatClient, governor *appmetering.Governor, logger *zap.Logger) *ChatService {
	return &ChatService{
		client:   client,
		governor: governor,
		logger:   logger,
	}
}

// Complete runs one governed chat completion for the caller
func (s *ChatService) Complete(ctx context.Context, caller Caller, req ChatCompletionRequest) (*ChatCompletionResponse, error) {
	if len(req.Messages) == 0 {
		return nil, shared.NewDomainError("INVALID_INPUT", "Messages cannot be empty")
	}

	var resp *ChatCompletionResponse
	_, err := s.governor.Meter(ctx, appmetering.MeterRequest{
		TenantID:       caller.TenantID,
		UserID:         caller.UserID,
		Service:        metering.ServiceLLMCompletion,
		Operation:      "chat.completion",
		RequestedUnits: 1,
	}, func(ctx context.Context) (appmetering.Consumption, error) {
		result, err := s.client.Complete(ctx, req)
		if err != nil {
			return appmetering.Consumption{}, err
		}
		resp = result
		return appmetering.Consumption{
			TokensUsed: result.TotalTokens,
			UnitsUsed:  1,
			Metadata: map[string]any{
				"model":             result.Model,
				"prompt_tokens":     result.PromptTokens,
				"completion_tokens": result.CompletionTokens,
			},
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}
