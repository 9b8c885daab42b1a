package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"pipehub/internal/domain/entity"
	"pipehub/internal/domain/policy"
	"pipehub/internal/domain/tenantkey"
	"pipehub/internal/observability/tracing"
)

// ConfigStore is the read side of tenant configuration the dispatcher needs.
// Both lookups return (nil, nil) when nothing matches.
type ConfigStore interface {
	FindTenantByAppID(ctx context.Context, appID int64) (*entity.Tenant, error)
	FindChannelByAppID(ctx context.Context, appID int64) (*entity.ChannelConfig, error)
}

// Request is one inbound message.
type Request struct {
	// Key is the opaque tenant key from the URL
	Key string

	// Payload is the raw request body, used when Text is nil
	Payload []byte

	// Text is the text query parameter; nil when absent
	Text *string

	// ToParty optionally narrows enterprise chat delivery to a department
	ToParty string
}

// ChannelResult is the result of delivering to one channel.
type ChannelResult struct {
	Channel  string
	Attempts int
	Duration time.Duration
	Err      error
}

// Outcome aggregates the channel results of a dispatch.
type Outcome struct {
	// Success is true when at least one channel delivered the message
	Success bool
	Results []ChannelResult
}

// Service dispatches messages to every enabled channel of a tenant.
type Service struct {
	store    ConfigStore
	channels []Channel
	tracer   trace.Tracer
}

// Option configures a Service.
type Option func(*Service)

// WithTracer sets the tracer used for dispatch spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

// NewService creates a dispatch service over the given channels.
func NewService(store ConfigStore, channels []Channel, opts ...Option) *Service {
	s := &Service{
		store:    store,
		channels: channels,
		tracer:   tracing.GetTracer(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dispatch validates req against the tenant's configuration and policy and
// delivers it to all enabled channels.
//
// A *entity.UserError is returned when the request itself is unacceptable.
// Any other error comes from the configuration store. Channel failures never
// produce an error; they are reported in the Outcome.
//
// Once started, a dispatch runs to completion even if ctx is cancelled: the
// caller going away or the server shutting down must not cut the retry budget
// short. Provider HTTP timeouts bound every call.
func (s *Service) Dispatch(ctx context.Context, req Request) (Outcome, error) {
	ctx = context.WithoutCancel(ctx)
	ctx, span := s.tracer.Start(ctx, "dispatch.Dispatch")
	defer span.End()

	tenant, cfg, message, err := s.prepare(ctx, req)
	if err != nil {
		if entity.IsUserError(err) {
			RecordDispatch(resultRejected)
			span.SetStatus(codes.Error, err.Error())
		} else {
			RecordDispatch(resultError)
			span.RecordError(err)
			span.SetStatus(codes.Error, "config store error")
		}
		return Outcome{}, err
	}
	span.SetAttributes(attribute.Int64("tenant.id", tenant.ID))

	delivery := Delivery{
		TenantID: tenant.ID,
		AppID:    tenant.AppID,
		Message:  message,
		ToParty:  req.ToParty,
	}

	outcome := s.fanOut(ctx, cfg, delivery)

	result := resultFailed
	if outcome.Success {
		result = resultDelivered
	}
	RecordDispatch(result)
	span.SetAttributes(
		attribute.Bool("dispatch.success", outcome.Success),
		attribute.Int("dispatch.channels", len(outcome.Results)),
	)

	slog.InfoContext(ctx, "dispatch finished",
		slog.Int64("tenant_id", tenant.ID),
		slog.Int("channels", len(outcome.Results)),
		slog.Bool("success", outcome.Success))

	return outcome, nil
}

// prepare runs every check that can reject the request before any provider is contacted.
func (s *Service) prepare(ctx context.Context, req Request) (*entity.Tenant, *entity.ChannelConfig, string, error) {
	appID, err := tenantkey.Decode(req.Key)
	if err != nil {
		return nil, nil, "", entity.NewUserError(MsgInvalidKey, err)
	}

	tenant, err := s.store.FindTenantByAppID(ctx, appID)
	if err != nil {
		return nil, nil, "", fmt.Errorf("find tenant: %w", err)
	}
	if tenant == nil {
		return nil, nil, "", entity.NewUserError(MsgUnknownAppID, entity.ErrNotFound)
	}

	cfg, err := s.store.FindChannelByAppID(ctx, appID)
	if err != nil {
		return nil, nil, "", fmt.Errorf("find channel config: %w", err)
	}
	if cfg == nil {
		return nil, nil, "", entity.NewUserError(MsgNoCredentials, entity.ErrNotFound)
	}

	message, ok := messageFrom(req)
	if !ok {
		return nil, nil, "", entity.NewUserError(MsgNoMessage, entity.ErrInvalidInput)
	}

	message, err = policy.ApplyBlockList(message, tenant.BlockList)
	if err != nil {
		return nil, nil, "", entity.NewUserError(MsgBlocked, err)
	}
	if tenant.Captcha {
		message = policy.ApplyCaptcha(message)
	}

	return tenant, cfg, message, nil
}

// messageFrom prefers the text parameter and falls back to a non-empty UTF-8 body.
func messageFrom(req Request) (string, bool) {
	if req.Text != nil {
		return *req.Text, true
	}
	if len(req.Payload) == 0 || !utf8.Valid(req.Payload) {
		return "", false
	}
	return string(req.Payload), true
}

// fanOut sends d to every enabled channel concurrently and waits for all of them.
// Channels do not cancel each other: every goroutine records its own result
// and returns nil.
func (s *Service) fanOut(ctx context.Context, cfg *entity.ChannelConfig, d Delivery) Outcome {
	enabled := make([]Channel, 0, len(s.channels))
	for _, ch := range s.channels {
		if ch.Enabled(cfg) {
			enabled = append(enabled, ch)
		}
	}

	results := make([]ChannelResult, len(enabled))
	var g errgroup.Group
	for i, ch := range enabled {
		g.Go(func() error {
			results[i] = s.deliver(ctx, ch, cfg, d)
			return nil
		})
	}
	_ = g.Wait()

	outcome := Outcome{Results: results}
	for _, r := range results {
		if r.Err == nil {
			outcome.Success = true
			break
		}
	}
	return outcome
}

// deliver runs one channel, converting a panic into a failed result.
func (s *Service) deliver(ctx context.Context, ch Channel, cfg *entity.ChannelConfig, d Delivery) (result ChannelResult) {
	ctx, span := s.tracer.Start(ctx, "dispatch.channel."+ch.Name(),
		trace.WithAttributes(attribute.String("channel", ch.Name())))
	defer span.End()

	result.Channel = ch.Name()
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "panic in dispatch channel",
				slog.String("channel", ch.Name()),
				slog.Int64("tenant_id", d.TenantID),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
			result.Err = fmt.Errorf("channel %s panicked: %v", ch.Name(), r)
		}

		result.Duration = time.Since(start)
		RecordChannelResult(ch.Name(), result.Err == nil, result.Duration)
		span.SetAttributes(attribute.Int("channel.attempts", result.Attempts))
		if result.Err != nil {
			span.RecordError(result.Err)
			span.SetStatus(codes.Error, "delivery failed")
		}
	}()

	result.Attempts, result.Err = ch.Send(ctx, cfg, d)

	if result.Err != nil {
		var depErr *entity.DependencyError
		attrs := []any{
			slog.String("channel", ch.Name()),
			slog.Int64("tenant_id", d.TenantID),
			slog.Int("attempts", result.Attempts),
			slog.Any("error", result.Err),
		}
		if errors.As(result.Err, &depErr) {
			attrs = append(attrs, slog.Bool("transport", depErr.IsTransport()), slog.Int("code", depErr.Code))
		}
		slog.WarnContext(ctx, "channel delivery failed", attrs...)
	}
	return result
}
