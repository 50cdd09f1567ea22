package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/fieldline/backend/internal/application/integration"
	"github.com/fieldline/backend/internal/domain/metering"
)

// Local stand-in provider clients. Real deployments replace these with
// wrappers over the configured providers (OpenAI, Twilio, SendGrid);
// the stand-ins answer locally so the full metering path can run
// without provider credentials.

type providerClients struct {
	chat   integration.ChatClient
	vision integration.VisionClient
	sms    integration.SMSClient
	voice  integration.VoiceClient
	email  integration.EmailClient
}

func newLocalProviderClients() providerClients {
	return providerClients{
		chat:   localChatClient{},
		vision: localVisionClient{},
		sms:    localSMSClient{},
		voice:  localVoiceClient{},
		email:  localEmailClient{},
	}
}

type localChatClient struct{}

func (localChatClient) Complete(_ context.Context, req integration.ChatCompletionRequest) (*integration.ChatCompletionResponse, error) {
	var promptChars int
	for _, msg := range req.Messages {
		promptChars += len(msg.Content)
	}
	// Rough 4-chars-per-token estimate, same heuristic the dashboards use
	promptTokens := int64(promptChars/4) + 1
	completionTokens := int64(32)
	return &integration.ChatCompletionResponse{
		Model:            req.Model,
		Content:          "This is a locally generated completion.",
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		TotalTokens:      promptTokens + completionTokens,
	}, nil
}

type localVisionClient struct{}

func (localVisionClient) Analyze(_ context.Context, req integration.VisionRequest) (*integration.VisionResponse, error) {
	return &integration.VisionResponse{
		Model:       req.Model,
		Description: fmt.Sprintf("Locally generated description of %s", req.ImageURL),
		TotalTokens: int64(len(req.Prompt)/4) + 64,
	}, nil
}

type localSMSClient struct{}

func (localSMSClient) Send(_ context.Context, req integration.SMSRequest) (*integration.SMSResponse, error) {
	return &integration.SMSResponse{
		MessageID: uuid.NewString(),
		Segments:  metering.SegmentsForMessage(req.Body),
	}, nil
}

type localVoiceClient struct{}

func (localVoiceClient) Call(_ context.Context, _ integration.VoiceCallRequest) (*integration.VoiceCallResponse, error) {
	return &integration.VoiceCallResponse{
		CallID:          uuid.NewString(),
		DurationSeconds: 30,
	}, nil
}

type localEmailClient struct{}

func (localEmailClient) Send(_ context.Context, req integration.EmailRequest) (*integration.EmailResponse, error) {
	return &integration.EmailResponse{
		MessageID: uuid.NewString(),
		Accepted:  int64(len(req.To)),
	}, nil
}
