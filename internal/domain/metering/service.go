package metering

import "fmt"

// MeteredService identifies a category of paid third-party API call.
// The set is closed: adding a service means extending every exhaustive
// switch in this package, which the compiler will point out.
type MeteredService string

const (
	// ServiceLLMCompletion tracks large-language-model completion and vision calls
	ServiceLLMCompletion MeteredService = "llm_completion"

	// ServiceSMS tracks outbound SMS messages, metered per GSM-7 segment
	ServiceSMS MeteredService = "sms"

	// ServiceVoiceCall tracks outbound voice calls, metered per minute
	ServiceVoiceCall MeteredService = "voice_call"

	// ServiceTransactionalEmail tracks transactional email sends
	ServiceTransactionalEmail MeteredService = "transactional_email"
)

// String returns the string representation of MeteredService
func (s MeteredService) String() string {
	return string(s)
}

// IsValid returns true if the metered service is one of the known services
func (s MeteredService) IsValid() bool {
	switch s {
	case ServiceLLMCompletion, ServiceSMS, ServiceVoiceCall, ServiceTransactionalEmail:
		return true
	}
	return false
}

// QuotaUnit names what one quota unit means for this service
func (s MeteredService) QuotaUnit() string {
	switch s {
	case ServiceLLMCompletion:
		return "calls"
	case ServiceSMS:
		return "segments"
	case ServiceVoiceCall:
		return "minutes"
	case ServiceTransactionalEmail:
		return "emails"
	default:
		return "units"
	}
}

// DisplayName returns a human-readable name for the metered service
func (s MeteredService) DisplayName() string {
	switch s {
	case ServiceLLMCompletion:
		return "AI Completions"
	case ServiceSMS:
		return "SMS Messages"
	case ServiceVoiceCall:
		return "Voice Calls"
	case ServiceTransactionalEmail:
		return "Transactional Email"
	default:
		return string(s)
	}
}

// AllMeteredServices returns all known metered services
func AllMeteredServices() []MeteredService {
	return []MeteredService{
		ServiceLLMCompletion,
		ServiceSMS,
		ServiceVoiceCall,
		ServiceTransactionalEmail,
	}
}

// ParseMeteredService parses a string into a MeteredService
func ParseMeteredService(s string) (MeteredService, error) {
	m := MeteredService(s)
	if !m.IsValid() {
		return "", fmt.Errorf("invalid metered service: %s", s)
	}
	return m, nil
}
