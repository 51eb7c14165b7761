/*
Package httpserver runs the identity registry API.

The server wraps the API routes with request logging and a per-caller rate
limit, and adds the operational endpoints:

  - GET /livez: always 200 while the process serves requests
  - GET /readyz: 200 when ready, 503 while draining
  - GET /drain and /undrain: toggle readiness
  - /debug/*: pprof, when enabled

Prometheus metrics are served by a separate listener on MetricsAddr.
*/
package httpserver
