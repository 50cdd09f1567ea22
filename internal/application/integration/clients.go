package integration

import (
	"context"
)

// Provider client interfaces. Concrete implementations (OpenAI, Twilio,
// SendGrid wrappers) live with the deployment that configures them;
// this package only depends on the shapes below.

// ChatMessage is one turn of a chat completion conversation
type ChatMessage struct {
	Role    string `json:"role" binding:"required,oneof=system user assistant"`
	Content string `json:"content" binding:"required"`
}

// ChatCompletionRequest is a request to the LLM chat endpoint
type ChatCompletionRequest struct {
	Model     string        `json:"model"`
	Messages  []ChatMessage `json:"messages" binding:"required,min=1,dive"`
	MaxTokens int           `json:"max_tokens"`
}

// ChatCompletionResponse carries the completion and the token counts
// reported by the provider
type ChatCompletionResponse struct {
	Model            string `json:"model"`
	Content          string `json:"content"`
	PromptTokens     int64  `json:"prompt_tokens"`
	CompletionTokens int64  `json:"completion_tokens"`
	TotalTokens      int64  `json:"total_tokens"`
}

// ChatClient performs chat completions against the LLM provider
type ChatClient interface {
	Complete(ctx context.Context, req ChatCompletionRequest) (*ChatCompletionResponse, error)
}

// VisionRequest asks the LLM provider to analyze an image
type VisionRequest struct {
	Model    string `json:"model"`
	ImageURL string `json:"image_url" binding:"required,url"`
	Prompt   string `json:"prompt" binding:"required"`
}

// VisionResponse carries the analysis and token counts
type VisionResponse struct {
	Model       string `json:"model"`
	Description string `json:"description"`
	TotalTokens int64  `json:"total_tokens"`
}

// VisionClient performs image analysis against the LLM provider
type VisionClient interface {
	Analyze(ctx context.Context, req VisionRequest) (*VisionResponse, error)
}

// SMSRequest sends one text message
type SMSRequest struct {
	To   string `json:"to" binding:"required,e164"`
	Body string `json:"body" binding:"required"`
}

// SMSResponse reports the provider's view of the sent message.
// Segments may be zero when the provider does not report it.
type SMSResponse struct {
	MessageID string `json:"message_id"`
	Segments  int64  `json:"segments"`
}

// SMSClient sends text messages through the SMS provider
type SMSClient interface {
	Send(ctx context.Context, req SMSRequest) (*SMSResponse, error)
}

// VoiceCallRequest places an outbound call
type VoiceCallRequest struct {
	To      string `json:"to" binding:"required,e164"`
	Message string `json:"message" binding:"required"`
}

// VoiceCallResponse reports the completed call
type VoiceCallResponse struct {
	CallID          string `json:"call_id"`
	DurationSeconds int64  `json:"duration_seconds"`
}

// VoiceClient places calls through the telephony provider
type VoiceClient interface {
	Call(ctx context.Context, req VoiceCallRequest) (*VoiceCallResponse, error)
}

// EmailRequest sends one transactional email to one or more recipients
type EmailRequest struct {
	To      []string `json:"to" binding:"required,min=1,dive,email"`
	Subject string   `json:"subject" binding:"required"`
	Body    string   `json:"body" binding:"required"`
}

// EmailResponse reports how many recipients the provider accepted
type EmailResponse struct {
	MessageID string `json:"message_id"`
	Accepted  int64  `json:"accepted"`
}

// EmailClient sends email through the transactional email provider
type EmailClient interface {
	Send(ctx context.Context, req EmailRequest) (*EmailResponse, error)
}
