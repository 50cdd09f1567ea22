package integration

import (
	"github.com/google/uuid"
)

// Caller identifies who triggered a paid integration call. A nil
// TenantID marks the call as unmetered (internal jobs, system flows).
type Caller struct {
	TenantID *uuid.UUID
	UserID   *uuid.UUID
}

// TenantCaller builds a Caller for a tenant-scoped request
func TenantCaller(tenantID uuid.UUID, userID *uuid.UUID) Caller {
	return Caller{TenantID: &tenantID, UserID: userID}
}

// SystemCaller builds an unmetered Caller
func SystemCaller() Caller {
	return Caller{}
}
