package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonwraymond/agentauth/auth"
	"github.com/jonwraymond/agentauth/observe"
	"github.com/jonwraymond/agentauth/provider"
	"github.com/jonwraymond/agentauth/rbac"
	"github.com/jonwraymond/agentauth/resilience"
	"github.com/jonwraymond/agentauth/secret"
)

// State is the service lifecycle state.
type State int

const (
	StateNotInitialized State = iota
	StateInitializing
	StateReady
	StateFailedInit
)

func (s State) String() string {
	switch s {
	case StateNotInitialized:
		return "not_initialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateFailedInit:
		return "failed_init"
	default:
		return "unknown"
	}
}

// RoleManagerInitTimeout bounds role-manager initialization so a slow
// directory cannot stall service startup.
const RoleManagerInitTimeout = 30 * time.Second

// Options configures the auth service. One service is constructed
// explicitly per process; there are no hidden globals.
type Options struct {
	// Config is the direct configuration, highest priority.
	Config *Config

	// SecretRef is a "secretref:<provider>:<ref>" pointing at the pool
	// bootstrap JSON. Consulted when Config is nil.
	SecretRef string

	// Resolver resolves SecretRef. Required when SecretRef is set.
	Resolver *secret.Resolver

	// Registry creates the identity provider. Default: provider.DefaultRegistry.
	Registry *provider.Registry

	// Directory overrides the group directory backing the role manager.
	// Default: a Cognito directory against the configured pool.
	Directory rbac.GroupDirectory

	// Logger receives service diagnostics. Default: discard.
	Logger observe.Logger

	// Middleware instruments service operations. Default: no-op.
	Middleware *observe.Middleware
}

// Service orchestrates one identity provider, one token validator, and at
// most one role manager.
type Service struct {
	opts   Options
	logger observe.Logger
	mw     *observe.Middleware

	mu       sync.RWMutex
	state    State
	config   *Config
	identity provider.IdentityProvider
	roles    *rbac.Manager
}

// New creates an auth service. Call Initialize before use.
func New(opts Options) *Service {
	if opts.Registry == nil {
		opts.Registry = provider.DefaultRegistry
	}
	if opts.Logger == nil {
		opts.Logger = observe.NopLogger()
	}
	if opts.Middleware == nil {
		opts.Middleware = observe.NopMiddleware()
	}

	return &Service{
		opts:   opts,
		logger: opts.Logger,
		mw:     opts.Middleware,
		state:  StateNotInitialized,
	}
}

// State returns the current lifecycle state.
func (s *Service) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Ready reports whether the service accepts auth operations.
func (s *Service) Ready() bool {
	return s.State() == StateReady
}

// Initialize resolves configuration and builds the provider chain.
// Returns false instead of an error so the host can run degraded; a
// failed initialization may be retried.
func (s *Service) Initialize(ctx context.Context) bool {
	s.mu.Lock()
	switch s.state {
	case StateReady:
		s.mu.Unlock()
		return true
	case StateInitializing:
		s.mu.Unlock()
		return false
	}
	s.state = StateInitializing
	s.mu.Unlock()

	cfg, err := s.resolveConfig(ctx)
	if err != nil {
		s.failInit(ctx, "configuration", err)
		return false
	}
	if err := cfg.Validate(); err != nil {
		s.failInit(ctx, "configuration", err)
		return false
	}

	identity, err := s.opts.Registry.New(cfg.ProviderType, cfg.ProviderConfig())
	if err != nil {
		s.failInit(ctx, "provider construction", err)
		return false
	}
	if err := identity.Initialize(ctx); err != nil {
		s.failInit(ctx, "provider initialization", err)
		return false
	}

	// The role manager is optional: only pools expose a group directory.
	// A directory failure here leaves it nil for a lazy retry later.
	var roles *rbac.Manager
	if cfg.PoolID != "" || s.opts.Directory != nil {
		roles = s.buildRoleManager(ctx, cfg)
	}

	s.mu.Lock()
	s.config = cfg
	s.identity = identity
	s.roles = roles
	s.state = StateReady
	s.mu.Unlock()

	s.logger.Info(ctx, "auth service ready",
		observe.Field{Key: "provider", Value: identity.Name()},
		observe.Field{Key: "rbac_enabled", Value: roles != nil},
	)
	return true
}

// resolveConfig applies the source priority: direct, secret-ref, env.
func (s *Service) resolveConfig(ctx context.Context) (*Config, error) {
	if s.opts.Config != nil {
		return s.opts.Config, nil
	}
	if s.opts.SecretRef != "" {
		return ConfigFromSecretRef(ctx, s.opts.Resolver, s.opts.SecretRef)
	}
	return ConfigFromEnv()
}

func (s *Service) failInit(ctx context.Context, stage string, err error) {
	s.logger.Error(ctx, "auth service initialization failed",
		observe.Field{Key: "stage", Value: stage},
		observe.Field{Key: "error", Value: err.Error()},
	)

	s.mu.Lock()
	s.state = StateFailedInit
	s.mu.Unlock()
}

// buildRoleManager constructs and seeds the role manager within the init
// timeout. Returns nil on failure.
func (s *Service) buildRoleManager(ctx context.Context, cfg *Config) *rbac.Manager {
	dir := s.opts.Directory
	if dir == nil {
		cognito, err := rbac.NewCognitoDirectory(rbac.CognitoDirectoryConfig{
			PoolID: cfg.PoolID,
			Region: cfg.Region,
		})
		if err != nil {
			s.logger.Warn(ctx, "group directory unavailable",
				observe.Field{Key: "error", Value: err.Error()},
			)
			return nil
		}
		dir = cognito
	}

	mgr, err := rbac.NewManager(rbac.ManagerConfig{
		Directory: dir,
		Logger:    s.logger,
	})
	if err != nil {
		s.logger.Warn(ctx, "role manager construction failed",
			observe.Field{Key: "error", Value: err.Error()},
		)
		return nil
	}

	err = resilience.ExecuteWithTimeout(ctx, RoleManagerInitTimeout, func(ctx context.Context) error {
		return mgr.InitializeRoles(ctx)
	})
	if err != nil {
		s.logger.Warn(ctx, "role initialization failed, deferring",
			observe.Field{Key: "error", Value: err.Error()},
		)
		return nil
	}

	return mgr
}

// roleManager returns the role manager, lazily retrying construction when
// the initial attempt failed. Returns nil when RBAC is not configured.
func (s *Service) roleManager(ctx context.Context) *rbac.Manager {
	s.mu.RLock()
	mgr := s.roles
	cfg := s.config
	s.mu.RUnlock()

	if mgr != nil || cfg == nil {
		return mgr
	}
	if cfg.PoolID == "" && s.opts.Directory == nil {
		return nil
	}

	mgr = s.buildRoleManager(ctx, cfg)
	if mgr != nil {
		s.mu.Lock()
		if s.roles == nil {
			s.roles = mgr
		} else {
			mgr = s.roles
		}
		s.mu.Unlock()
	}
	return mgr
}

// Authenticate verifies user credentials through the provider and
// enriches the principal with RBAC answers.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*provider.Result, error) {
	identity, err := s.readyProvider()
	if err != nil {
		return nil, err
	}

	var result *provider.Result
	meta := observe.OpMeta{Component: "service", Op: "authenticate", Provider: identity.Name()}

	opErr := s.mw.Do(ctx, meta, func(ctx context.Context) error {
		var err error
		result, err = identity.Authenticate(ctx, username, password)
		return err
	})
	if opErr != nil {
		return nil, opErr
	}

	if result.Success && result.Principal != nil {
		s.enrich(ctx, result.Principal)
	}
	return result, nil
}

// ValidateToken verifies a raw access token and returns the enriched
// principal.
func (s *Service) ValidateToken(ctx context.Context, raw string) (*auth.Principal, error) {
	identity, err := s.readyProvider()
	if err != nil {
		return nil, err
	}

	var principal *auth.Principal
	meta := observe.OpMeta{Component: "service", Op: "validate_token", Provider: identity.Name()}

	opErr := s.mw.Do(ctx, meta, func(ctx context.Context) error {
		token, err := identity.ValidateToken(ctx, raw, provider.TokenUseAccess)
		if err != nil {
			return err
		}
		principal = auth.PrincipalFromToken(token)
		return nil
	})
	if opErr != nil {
		return nil, opErr
	}

	s.enrich(ctx, principal)
	return principal, nil
}

// RefreshToken exchanges a refresh token through the provider.
func (s *Service) RefreshToken(ctx context.Context, refreshToken string) (*provider.Result, error) {
	identity, err := s.readyProvider()
	if err != nil {
		return nil, err
	}

	var result *provider.Result
	meta := observe.OpMeta{Component: "service", Op: "refresh_token", Provider: identity.Name()}

	opErr := s.mw.Do(ctx, meta, func(ctx context.Context) error {
		var err error
		result, err = identity.RefreshToken(ctx, refreshToken)
		return err
	})
	if opErr != nil {
		return nil, opErr
	}

	if result.Success && result.Principal != nil {
		s.enrich(ctx, result.Principal)
	}
	return result, nil
}

// Logout invalidates the session behind an access token.
func (s *Service) Logout(ctx context.Context, accessToken string) error {
	identity, err := s.readyProvider()
	if err != nil {
		return err
	}

	meta := observe.OpMeta{Component: "service", Op: "logout", Provider: identity.Name()}
	return s.mw.Do(ctx, meta, func(ctx context.Context) error {
		return identity.Logout(ctx, accessToken)
	})
}

// CheckPermission reports whether the user may perform (resource, action).
// Requires a configured role manager; without one the answer is false.
func (s *Service) CheckPermission(ctx context.Context, userID, resource, action string) bool {
	if !s.Ready() {
		return false
	}

	mgr := s.roleManager(ctx)
	if mgr == nil {
		s.logger.Warn(ctx, "permission check without role manager, denying",
			observe.Field{Key: "user_id", Value: userID},
			observe.Field{Key: "resource", Value: resource},
			observe.Field{Key: "action", Value: action},
		)
		return false
	}

	var allowed bool
	meta := observe.OpMeta{Component: "service", Op: "check_permission"}
	_ = s.mw.Do(ctx, meta, func(ctx context.Context) error {
		allowed = mgr.CheckPermission(ctx, userID, resource, action)
		return nil
	})
	return allowed
}

// Provider returns the configured identity provider, or an error when the
// service is not ready.
func (s *Service) Provider() (provider.IdentityProvider, error) {
	return s.readyProvider()
}

func (s *Service) readyProvider() (provider.IdentityProvider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.state != StateReady || s.identity == nil {
		return nil, fmt.Errorf("%w: state %s", auth.ErrNotInitialized, s.state)
	}
	return s.identity, nil
}

// enrich overwrites provider-asserted roles and permissions with the role
// manager's computed answer. All-or-nothing: without a manager, or when
// the directory fails, raw token groups pass through untouched.
func (s *Service) enrich(ctx context.Context, principal *auth.Principal) {
	if principal == nil {
		return
	}

	mgr := s.roleManager(ctx)
	if mgr == nil {
		return
	}

	roles, err := mgr.GetUserRoles(ctx, principal.UserID)
	if err != nil {
		s.logger.Warn(ctx, "role resolution failed, keeping token groups",
			observe.Field{Key: "user_id", Value: principal.UserID},
			observe.Field{Key: "error", Value: err.Error()},
		)
		return
	}
	perms, err := mgr.GetUserPermissions(ctx, principal.UserID)
	if err != nil {
		s.logger.Warn(ctx, "permission resolution failed, keeping token groups",
			observe.Field{Key: "user_id", Value: principal.UserID},
			observe.Field{Key: "error", Value: err.Error()},
		)
		return
	}

	principal.Roles = make([]string, 0, len(roles))
	for _, r := range roles {
		principal.Roles = append(principal.Roles, r.Name)
	}
	principal.Permissions = make([]string, 0, len(perms))
	for _, p := range perms {
		principal.Permissions = append(principal.Permissions, p.String())
	}
}
