// Package health provides readiness and liveness checking for the auth
// service and its upstream dependencies.
//
// A Checker reports the health of one component: the auth service state,
// the issuer's JWKS endpoint, or the group directory behind the role
// manager. The Status type represents the health state: Healthy,
// Degraded, or Unhealthy.
//
// # Basic Usage
//
//	svcCheck := health.NewServiceChecker(authService)
//
//	result := svcCheck.Check(ctx)
//	if result.Status == health.StatusUnhealthy {
//	    log.Printf("auth unavailable: %s", result.Message)
//	}
//
// # Aggregating Health Checks
//
// Use Aggregator to combine checks into one composite answer:
//
//	agg := health.NewAggregator()
//	agg.Register("auth_service", health.NewServiceChecker(authService))
//	agg.Register("jwks", health.NewJWKSChecker(identityProvider))
//	agg.Register("group_directory", health.NewDirectoryChecker(directory))
//
//	results := agg.CheckAll(ctx)
//	overall := agg.OverallStatus(results)
//
// # HTTP Endpoints
//
// The package provides HTTP handlers for the common probe patterns:
//
//	// Liveness probe (for Kubernetes)
//	http.Handle("/healthz", health.LivenessHandler())
//
//	// Readiness probe with component checks
//	http.Handle("/readyz", health.ReadinessHandler(aggregator))
//
//	// Detailed health status
//	http.Handle("/health", health.DetailedHandler(aggregator))
package health
