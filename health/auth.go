package health

import (
	"context"

	"github.com/jonwraymond/agentauth/rbac"
)

// Prober reports whether a component is ready to serve. The auth service
// satisfies this interface.
type Prober interface {
	Ready() bool
}

// ServiceChecker reports the auth service lifecycle state as a health check.
type ServiceChecker struct {
	prober Prober
}

// NewServiceChecker creates a checker over the auth service.
func NewServiceChecker(prober Prober) *ServiceChecker {
	return &ServiceChecker{prober: prober}
}

// Name returns the name of this checker.
func (c *ServiceChecker) Name() string {
	return "auth_service"
}

// Check reports healthy only when the service accepts auth operations.
func (c *ServiceChecker) Check(ctx context.Context) Result {
	if c.prober == nil {
		return Unhealthy("auth service not wired", ErrCheckFailed)
	}

	if !c.prober.Ready() {
		return Unhealthy("auth service not ready", nil)
	}
	return Healthy("auth service ready")
}

// JWKSSource fetches the signing key set for the configured issuer.
// Identity providers satisfy this interface.
type JWKSSource interface {
	GetJWKS(ctx context.Context) ([]byte, error)
}

// JWKSSourceFunc adapts a function to a JWKSSource.
type JWKSSourceFunc func(ctx context.Context) ([]byte, error)

func (f JWKSSourceFunc) GetJWKS(ctx context.Context) ([]byte, error) { return f(ctx) }

// JWKSChecker probes the issuer's key endpoint. An unreachable endpoint
// means freshly seen key ids cannot be resolved, so token validation will
// degrade as cached documents expire.
type JWKSChecker struct {
	source JWKSSource
}

// NewJWKSChecker creates a checker over a key set source.
func NewJWKSChecker(source JWKSSource) *JWKSChecker {
	return &JWKSChecker{source: source}
}

// Name returns the name of this checker.
func (c *JWKSChecker) Name() string {
	return "jwks"
}

// Check fetches the key set and reports reachability.
func (c *JWKSChecker) Check(ctx context.Context) Result {
	if c.source == nil {
		return Unhealthy("key set source not wired", ErrCheckFailed)
	}

	doc, err := c.source.GetJWKS(ctx)
	if err != nil {
		return Unhealthy("key set fetch failed", err)
	}
	if len(doc) == 0 {
		return Degraded("key set document is empty")
	}

	return Healthy("key set reachable").WithDetails(map[string]any{
		"document_bytes": len(doc),
	})
}

// DirectoryChecker pings the group directory backing the role manager.
// A failing directory does not block token validation, only role
// enrichment, so failures report degraded rather than unhealthy.
type DirectoryChecker struct {
	directory rbac.GroupDirectory
}

// NewDirectoryChecker creates a checker over a group directory.
func NewDirectoryChecker(directory rbac.GroupDirectory) *DirectoryChecker {
	return &DirectoryChecker{directory: directory}
}

// Name returns the name of this checker.
func (c *DirectoryChecker) Name() string {
	return "group_directory"
}

// Check lists groups as a reachability probe.
func (c *DirectoryChecker) Check(ctx context.Context) Result {
	if c.directory == nil {
		return Unhealthy("group directory not wired", ErrCheckFailed)
	}

	groups, err := c.directory.ListGroups(ctx)
	if err != nil {
		return Degraded("group directory unreachable").WithDetails(map[string]any{
			"error": err.Error(),
		})
	}

	return Healthy("group directory reachable").WithDetails(map[string]any{
		"groups": len(groups),
	})
}
