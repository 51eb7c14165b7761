package api

import (
	"log/slog"
	"time"
)

// HTTPServerConfig configures the registry API server.
type HTTPServerConfig struct {
	// ListenAddr is the address the API listens on.
	ListenAddr string

	// MetricsAddr is the address of the Prometheus listener. Metrics are not
	// served when empty.
	MetricsAddr string

	// EnablePprof mounts the pprof handlers under /debug.
	EnablePprof bool

	Log *slog.Logger

	// DrainDuration is how long the server reports not ready before shutting
	// down, so load balancers can take it out of rotation.
	DrainDuration time.Duration

	// GracefulShutdownDuration bounds the wait for in-flight requests.
	GracefulShutdownDuration time.Duration

	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// MaxClockSkew is the accepted distance between a signed request's
	// timestamp and the server clock.
	MaxClockSkew time.Duration

	// RateLimitPerSecond and RateLimitBurst bound requests per caller.
	// Rate limiting is off when either is zero.
	RateLimitPerSecond float64
	RateLimitBurst     int
}
