// Package dispatch relays a tenant's message to every messaging channel the
// tenant has configured.
//
// A dispatch decodes the tenant key, loads the tenant and its channel
// configuration, applies the tenant's content policy and then fans the message
// out to all enabled channels concurrently. The request succeeds when at least
// one channel accepted the message.
package dispatch

import (
	"context"

	"pipehub/internal/domain/entity"
)

// Delivery is a message that passed content policy, addressed to one tenant.
type Delivery struct {
	TenantID int64
	AppID    int64
	Message  string
	ToParty  string
}

// Channel represents one messaging provider a delivery can be sent through.
//
// Thread Safety:
//   - All methods must be safe for concurrent use by multiple goroutines
//
// Context Handling:
//   - Implementations must respect context cancellation and timeout
type Channel interface {
	// Name returns the channel identifier used in logs, metrics and span names.
	Name() string

	// Enabled reports whether cfg holds usable credentials for this channel.
	Enabled(cfg *entity.ChannelConfig) bool

	// Send delivers d using cfg, applying the channel's own retry policy.
	// It returns the number of provider send attempts made and the last error.
	Send(ctx context.Context, cfg *entity.ChannelConfig, d Delivery) (attempts int, err error)
}
