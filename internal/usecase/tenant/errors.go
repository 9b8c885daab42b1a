// Package tenant provides the account use cases behind the settings API:
// GitHub sign-in with first-login registration, tenant settings, callback key
// reset and channel credential management.
package tenant

import (
	"fmt"

	"pipehub/internal/domain/entity"
)

// ErrTenantNotFound is returned when a session refers to a tenant that no longer exists.
// It matches entity.ErrNotFound with errors.Is.
var ErrTenantNotFound = fmt.Errorf("tenant %w", entity.ErrNotFound)
