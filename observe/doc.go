// Package observe provides telemetry for authentication operations.
//
// It wraps OpenTelemetry tracing and metrics behind a small Observer surface
// and provides a structured JSON logger that redacts credential-bearing
// fields. Auth operations (authenticate, validate, authorize) are wrapped by
// Middleware so every call is traced, counted, and logged consistently.
package observe
