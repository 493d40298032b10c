package monitoring

import (
	"fmt"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
)

// Config holds New Relic configuration
type Config struct {
	LicenseKey string
	AppName    string
	Enabled    bool
	LogLevel   string
}

// NewRelicApp wraps the New Relic application. A disabled app accepts every
// call and does nothing, so callers never check for nil.
type NewRelicApp struct {
	*newrelic.Application
	enabled bool
}

// New creates a new New Relic application
func New(cfg Config) (*NewRelicApp, error) {
	if !cfg.Enabled || cfg.LicenseKey == "" {
		return Disabled(), nil
	}

	app, err := newrelic.NewApplication(
		newrelic.ConfigAppName(cfg.AppName),
		newrelic.ConfigLicense(cfg.LicenseKey),
		newrelic.ConfigAppLogForwardingEnabled(true),
		newrelic.ConfigDistributedTracerEnabled(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create New Relic application: %w", err)
	}

	return &NewRelicApp{app, true}, nil
}

// Disabled returns an app that records nothing
func Disabled() *NewRelicApp {
	return &NewRelicApp{nil, false}
}

// RecordCustomEvent records a custom event
func (nr *NewRelicApp) RecordCustomEvent(eventType string, params map[string]interface{}) {
	if nr == nil || !nr.enabled || nr.Application == nil {
		return
	}
	nr.Application.RecordCustomEvent(eventType, params)
}

// RecordCustomMetric records a custom metric
func (nr *NewRelicApp) RecordCustomMetric(name string, value float64) {
	if nr == nil || !nr.enabled || nr.Application == nil {
		return
	}
	nr.Application.RecordCustomMetric(name, value)
}

// Shutdown gracefully shuts down the New Relic application
func (nr *NewRelicApp) Shutdown(timeout time.Duration) {
	if nr == nil || !nr.enabled || nr.Application == nil {
		return
	}
	nr.Application.Shutdown(timeout)
}

// RecordRequestCreated records a new ride request
func (nr *NewRelicApp) RecordRequestCreated(category string) {
	nr.RecordCustomEvent("RideRequestCreated", map[string]interface{}{
		"category":  category,
		"timestamp": time.Now().Unix(),
	})
}

// RecordAcceptLatency records how long an accept took including retries
func (nr *NewRelicApp) RecordAcceptLatency(latency time.Duration, attempts int, outcome string) {
	nr.RecordCustomMetric("custom/ride/accept_latency_ms", float64(latency.Milliseconds()))
	nr.RecordCustomEvent("RideAccept", map[string]interface{}{
		"attempts":   attempts,
		"outcome":    outcome,
		"latency_ms": latency.Milliseconds(),
	})
}

// RecordTripCompleted records trip completion
func (nr *NewRelicApp) RecordTripCompleted(requestID, category string, fare float64) {
	nr.RecordCustomEvent("TripCompleted", map[string]interface{}{
		"request_id": requestID,
		"category":   category,
		"fare":       fare,
	})
}

// RecordLocationPing records a presence ping
func (nr *NewRelicApp) RecordLocationPing() {
	nr.RecordCustomMetric("custom/trip/location_ping", 1)
}

// RecordRedisPoolStats records Redis pool statistics
func (nr *NewRelicApp) RecordRedisPoolStats(stats map[string]interface{}) {
	if hits, ok := stats["hits"].(uint32); ok {
		nr.RecordCustomMetric("custom/redis/cache_hits", float64(hits))
	}
	if misses, ok := stats["misses"].(uint32); ok {
		nr.RecordCustomMetric("custom/redis/cache_misses", float64(misses))
	}
	if timeouts, ok := stats["timeouts"].(uint32); ok {
		nr.RecordCustomMetric("custom/redis/timeouts", float64(timeouts))
	}
}

// IsEnabled returns whether New Relic is enabled
func (nr *NewRelicApp) IsEnabled() bool {
	return nr != nil && nr.enabled
}
