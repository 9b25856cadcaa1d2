// Package push delivers task events to registered webhooks.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/gate4ai/a2a/schema"
	"github.com/gate4ai/a2a/server/store"
	"github.com/gate4ai/a2a/server/tasks"
)

// DeliveryTimeout bounds each webhook POST.
const DeliveryTimeout = 10 * time.Second

// DefaultAPIKeyHeader is used by apiKey configs without an explicit header
// name.
const DefaultAPIKeyHeader = "X-API-Key"

// Dispatcher mirrors status and artifact events (never tokens) to every
// webhook config registered for the event's task. Deliveries are concurrent,
// fire and forget: no retries, failures are logged and swallowed.
type Dispatcher struct {
	configs store.PushConfigStore
	client  *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
	unsub   func()
}

type Option func(*Dispatcher)

// WithHTTPClient overrides the outbound HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(d *Dispatcher) { d.client = client }
}

// WithRateLimit bounds the aggregate webhook send rate.
func WithRateLimit(rps float64, burst int) Option {
	return func(d *Dispatcher) { d.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

func NewDispatcher(configs store.PushConfigStore, logger *zap.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		configs: configs,
		client:  &http.Client{Timeout: DeliveryTimeout},
		logger:  logger.Named("push-dispatcher"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start subscribes the dispatcher to the bus. Call Stop to unsubscribe.
func (d *Dispatcher) Start(bus *tasks.Bus) {
	d.unsub = bus.Subscribe(d.onEvent)
}

func (d *Dispatcher) Stop() {
	if d.unsub != nil {
		d.unsub()
		d.unsub = nil
	}
}

// onEvent runs on the emitter's goroutine and must not block: lookups and
// deliveries happen on a spawned goroutine.
func (d *Dispatcher) onEvent(event tasks.Event) {
	switch event.Type {
	case schema.EventTypeStatusUpdate, schema.EventTypeArtifactUpdate:
	default:
		return
	}
	go d.dispatch(event)
}

func (d *Dispatcher) dispatch(event tasks.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), DeliveryTimeout)
	defer cancel()

	configs, err := d.configs.List(ctx, event.TaskID)
	if err != nil {
		d.logger.Warn("Failed to load webhook configs",
			zap.String("taskID", event.TaskID), zap.Error(err))
		return
	}
	if len(configs) == 0 {
		return
	}

	body, err := json.Marshal(event.Payload)
	if err != nil {
		d.logger.Error("Failed to marshal event payload",
			zap.String("taskID", event.TaskID), zap.Error(err))
		return
	}

	for _, config := range configs {
		go d.deliver(config, event, body)
	}
}

func (d *Dispatcher) deliver(config *schema.PushNotificationConfig, event tasks.Event, body []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), DeliveryTimeout)
	defer cancel()

	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			d.logger.Debug("Webhook delivery dropped by rate limiter",
				zap.String("taskID", event.TaskID),
				zap.String("configID", config.ID))
			return
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, config.URL, bytes.NewReader(body))
	if err != nil {
		d.logger.Warn("Failed to build webhook request",
			zap.String("configID", config.ID), zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")
	applyAuth(req, config.Authentication)

	resp, err := d.client.Do(req)
	if err != nil {
		d.logger.Warn("Webhook delivery failed",
			zap.String("taskID", event.TaskID),
			zap.String("configID", config.ID),
			zap.Error(err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		d.logger.Warn("Webhook returned non-success status",
			zap.String("taskID", event.TaskID),
			zap.String("configID", config.ID),
			zap.Int("status", resp.StatusCode))
		return
	}
	d.logger.Debug("Webhook delivered",
		zap.String("taskID", event.TaskID),
		zap.String("configID", config.ID),
		zap.String("type", event.Type))
}

func applyAuth(req *http.Request, auth *schema.PushNotificationAuth) {
	if auth == nil {
		return
	}
	switch auth.Scheme {
	case schema.PushAuthSchemeBearer:
		if auth.Token != nil {
			req.Header.Set("Authorization", "Bearer "+*auth.Token)
		}
	case schema.PushAuthSchemeBasic:
		if auth.Username != nil && auth.Password != nil {
			req.SetBasicAuth(*auth.Username, *auth.Password)
		}
	case schema.PushAuthSchemeAPIKey:
		if auth.Key != nil {
			header := DefaultAPIKeyHeader
			if auth.HeaderName != nil && *auth.HeaderName != "" {
				header = *auth.HeaderName
			}
			req.Header.Set(header, *auth.Key)
		}
	}
}
