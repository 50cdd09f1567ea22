package metering

import "github.com/shopspring/decimal"

// Per-unit rates in cents. Kept as decimals so fractional-cent rates
// (0.79 cents per SMS segment) stay exact until the final rounding.
var (
	// RateCentsPerThousandTokens is the LLM completion rate per 1000 tokens
	RateCentsPerThousandTokens = decimal.RequireFromString("0.2")

	// RateCentsPerSMSSegment is the rate per 160-character GSM-7 segment
	RateCentsPerSMSSegment = decimal.RequireFromString("0.79")

	// RateCentsPerVoiceMinute is the rate per voice-call minute
	RateCentsPerVoiceMinute = decimal.RequireFromString("1.3")

	// RateCentsPerEmail is the rate per transactional email
	RateCentsPerEmail = decimal.RequireFromString("0.028")
)

// SMSSegmentSize is the GSM-7 segment size in characters. Segment
// estimates assume GSM-7 encoding and under-count for Unicode bodies;
// the provider's own billing is authoritative either way.
const SMSSegmentSize = 160

// ceilCents rounds a cost up to whole cents. Costs are never rounded
// down so estimates never undershoot what the provider bills.
func ceilCents(d decimal.Decimal) int64 {
	return d.Ceil().IntPart()
}

// CostForTokens estimates the cost in cents of an LLM call that
// consumed the given number of tokens.
func CostForTokens(tokens int64) int64 {
	if tokens <= 0 {
		return 0
	}
	cost := decimal.NewFromInt(tokens).
		Div(decimal.NewFromInt(1000)).
		Mul(RateCentsPerThousandTokens)
	return ceilCents(cost)
}

// CostForSMSSegments estimates the cost in cents of sending the given
// number of SMS segments.
func CostForSMSSegments(segments int64) int64 {
	if segments <= 0 {
		return 0
	}
	return ceilCents(decimal.NewFromInt(segments).Mul(RateCentsPerSMSSegment))
}

// CostForVoiceMinutes estimates the cost in cents of a voice call of
// the given duration in whole minutes.
func CostForVoiceMinutes(minutes int64) int64 {
	if minutes <= 0 {
		return 0
	}
	return ceilCents(decimal.NewFromInt(minutes).Mul(RateCentsPerVoiceMinute))
}

// CostForEmails estimates the cost in cents of sending the given number
// of transactional emails.
func CostForEmails(emails int64) int64 {
	if emails <= 0 {
		return 0
	}
	return ceilCents(decimal.NewFromInt(emails).Mul(RateCentsPerEmail))
}

// EstimatedCost estimates the cost in cents of consuming the given
// quantity of a metered service's native unit.
func EstimatedCost(service MeteredService, quantity int64) int64 {
	switch service {
	case ServiceLLMCompletion:
		return CostForTokens(quantity)
	case ServiceSMS:
		return CostForSMSSegments(quantity)
	case ServiceVoiceCall:
		return CostForVoiceMinutes(quantity)
	case ServiceTransactionalEmail:
		return CostForEmails(quantity)
	default:
		return 0
	}
}

// SegmentsForMessage returns the number of SMS segments needed for the
// given message body, assuming GSM-7 encoding.
func SegmentsForMessage(body string) int64 {
	if len(body) == 0 {
		return 0
	}
	return int64((len(body) + SMSSegmentSize - 1) / SMSSegmentSize)
}
