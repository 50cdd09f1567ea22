// Package billing holds the subscription side of the usage governor:
// billing tiers and the subscription records they are resolved from.
// Quota ceilings per tier live in the metering package; invoicing and
// payment collection are handled outside this service.
package billing
