package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonwraymond/agentauth/auth"
	"github.com/jonwraymond/agentauth/provider"
	"github.com/jonwraymond/agentauth/rbac"
)

type fakeIdentity struct {
	initErr     error
	initCalls   int
	authResult  *provider.Result
	authErr     error
	token       *auth.DecodedToken
	validateErr error
	refresh     *provider.Result
	logoutCalls int
}

func (f *fakeIdentity) Initialize(context.Context) error {
	f.initCalls++
	return f.initErr
}

func (f *fakeIdentity) Authenticate(context.Context, string, string) (*provider.Result, error) {
	return f.authResult, f.authErr
}

func (f *fakeIdentity) ValidateToken(context.Context, string, provider.TokenUse) (*auth.DecodedToken, error) {
	return f.token, f.validateErr
}

func (f *fakeIdentity) RefreshToken(context.Context, string) (*provider.Result, error) {
	return f.refresh, nil
}

func (f *fakeIdentity) Logout(context.Context, string) error {
	f.logoutCalls++
	return nil
}

func (f *fakeIdentity) GetUserInfo(context.Context, string) (*auth.Principal, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeIdentity) GetJWKS(context.Context) ([]byte, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeIdentity) Name() string { return "fake" }

func (f *fakeIdentity) IsConfigured() bool { return true }

var _ provider.IdentityProvider = (*fakeIdentity)(nil)

func newTestService(t *testing.T, identity *fakeIdentity, dir rbac.GroupDirectory) *Service {
	t.Helper()

	registry := provider.NewRegistry()
	err := registry.Register(provider.TypeCognito, func(provider.Config) (provider.IdentityProvider, error) {
		return identity, nil
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	return New(Options{
		Config:    &Config{ProviderType: provider.TypeCognito, ClientID: "client-1"},
		Registry:  registry,
		Directory: dir,
	})
}

func TestService_Lifecycle(t *testing.T) {
	ctx := context.Background()
	identity := &fakeIdentity{}
	svc := newTestService(t, identity, nil)

	if got := svc.State(); got != StateNotInitialized {
		t.Fatalf("State() = %v, want not_initialized", got)
	}
	if _, err := svc.Authenticate(ctx, "u", "p"); !errors.Is(err, auth.ErrNotInitialized) {
		t.Fatalf("Authenticate() before init error = %v, want ErrNotInitialized", err)
	}

	if !svc.Initialize(ctx) {
		t.Fatal("Initialize() = false, want true")
	}
	if got := svc.State(); got != StateReady {
		t.Fatalf("State() = %v, want ready", got)
	}

	// Repeat initialization is a cheap true
	if !svc.Initialize(ctx) {
		t.Fatal("repeat Initialize() = false")
	}
	if identity.initCalls != 1 {
		t.Errorf("provider initialized %d times, want 1", identity.initCalls)
	}
}

func TestService_FailedInitRetries(t *testing.T) {
	ctx := context.Background()
	identity := &fakeIdentity{initErr: errors.New("endpoint unreachable")}
	svc := newTestService(t, identity, nil)

	if svc.Initialize(ctx) {
		t.Fatal("Initialize() = true with failing provider")
	}
	if got := svc.State(); got != StateFailedInit {
		t.Fatalf("State() = %v, want failed_init", got)
	}
	if _, err := svc.Authenticate(ctx, "u", "p"); !errors.Is(err, auth.ErrNotInitialized) {
		t.Fatalf("Authenticate() error = %v, want ErrNotInitialized", err)
	}

	identity.initErr = nil
	if !svc.Initialize(ctx) {
		t.Fatal("retried Initialize() = false after fault cleared")
	}
	if got := svc.State(); got != StateReady {
		t.Fatalf("State() = %v, want ready", got)
	}
}

func TestService_InitializeNoConfig(t *testing.T) {
	clearAuthEnv(t)

	svc := New(Options{})
	if svc.Initialize(context.Background()) {
		t.Fatal("Initialize() = true with no configuration source")
	}
	if got := svc.State(); got != StateFailedInit {
		t.Fatalf("State() = %v, want failed_init", got)
	}
}

func TestService_AuthenticateEnriched(t *testing.T) {
	ctx := context.Background()
	dir := rbac.NewMemoryDirectory()
	identity := &fakeIdentity{
		authResult: &provider.Result{
			Success:     true,
			AccessToken: "token",
			Principal: &auth.Principal{
				UserID: "user-1",
				Groups: []string{rbac.RoleAdmin},
				Roles:  []string{rbac.RoleAdmin},
			},
		},
	}
	svc := newTestService(t, identity, dir)
	if !svc.Initialize(ctx) {
		t.Fatal("Initialize() = false")
	}

	if err := dir.AddUserToGroup(ctx, "user-1", rbac.RoleAdmin); err != nil {
		t.Fatalf("AddUserToGroup() error = %v", err)
	}

	result, err := svc.Authenticate(ctx, "user-1", "pw")
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if !result.Success {
		t.Fatal("Authenticate() result not successful")
	}

	p := result.Principal
	if len(p.Roles) != 1 || p.Roles[0] != rbac.RoleAdmin {
		t.Errorf("Roles = %v, want [admin]", p.Roles)
	}
	if len(p.Permissions) != 1 || p.Permissions[0] != "*:*" {
		t.Errorf("Permissions = %v, want [*:*]", p.Permissions)
	}
}

func TestService_ValidateTokenEnriched(t *testing.T) {
	ctx := context.Background()
	dir := rbac.NewMemoryDirectory()
	now := time.Now()
	identity := &fakeIdentity{
		token: &auth.DecodedToken{
			Valid:   true,
			Subject: "user-2",
			Claims: map[string]any{
				"sub":            "user-2",
				"cognito:groups": []any{rbac.RoleReadonlyUser},
			},
			IssuedAt:  now,
			ExpiresAt: now.Add(time.Hour),
		},
	}
	svc := newTestService(t, identity, dir)
	if !svc.Initialize(ctx) {
		t.Fatal("Initialize() = false")
	}

	if err := dir.AddUserToGroup(ctx, "user-2", rbac.RoleReadonlyUser); err != nil {
		t.Fatalf("AddUserToGroup() error = %v", err)
	}

	p, err := svc.ValidateToken(ctx, "raw-token")
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if p.UserID != "user-2" {
		t.Errorf("UserID = %q", p.UserID)
	}
	if len(p.Roles) != 1 || p.Roles[0] != rbac.RoleReadonlyUser {
		t.Errorf("Roles = %v, want [readonly-user]", p.Roles)
	}
	if !p.HasPermission("agent:read") {
		t.Error("readonly user should hold agent:read")
	}
	if p.HasPermission("agent:delete") {
		t.Error("readonly user should not hold agent:delete")
	}
}

func TestService_ValidateTokenError(t *testing.T) {
	ctx := context.Background()
	identity := &fakeIdentity{
		validateErr: &auth.TokenValidationError{Stage: "expiry", Err: auth.ErrTokenExpired},
	}
	svc := newTestService(t, identity, nil)
	if !svc.Initialize(ctx) {
		t.Fatal("Initialize() = false")
	}

	_, err := svc.ValidateToken(ctx, "stale")
	if !errors.Is(err, auth.ErrTokenExpired) {
		t.Fatalf("ValidateToken() error = %v, want ErrTokenExpired", err)
	}
	if !errors.Is(err, auth.ErrInvalidToken) {
		t.Fatalf("ValidateToken() error = %v, want ErrInvalidToken match", err)
	}
}

func TestService_PassThroughWithoutRoleManager(t *testing.T) {
	ctx := context.Background()
	identity := &fakeIdentity{
		authResult: &provider.Result{
			Success: true,
			Principal: &auth.Principal{
				UserID: "user-3",
				Groups: []string{"team-blue"},
				Roles:  []string{"team-blue"},
			},
		},
	}
	svc := newTestService(t, identity, nil)
	if !svc.Initialize(ctx) {
		t.Fatal("Initialize() = false")
	}

	result, err := svc.Authenticate(ctx, "user-3", "pw")
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if len(result.Principal.Roles) != 1 || result.Principal.Roles[0] != "team-blue" {
		t.Errorf("Roles = %v, want raw token groups", result.Principal.Roles)
	}
}

func TestService_CheckPermission(t *testing.T) {
	ctx := context.Background()
	dir := rbac.NewMemoryDirectory()
	svc := newTestService(t, &fakeIdentity{}, dir)

	if svc.CheckPermission(ctx, "user-4", "agent", "read") {
		t.Fatal("CheckPermission() = true before initialization")
	}

	if !svc.Initialize(ctx) {
		t.Fatal("Initialize() = false")
	}
	if err := dir.AddUserToGroup(ctx, "user-4", rbac.RoleSupervisorUser); err != nil {
		t.Fatalf("AddUserToGroup() error = %v", err)
	}

	if !svc.CheckPermission(ctx, "user-4", "supervisor", "access") {
		t.Error("supervisor user denied supervisor:access")
	}
	if svc.CheckPermission(ctx, "user-4", "agent", "delete") {
		t.Error("supervisor user allowed agent:delete")
	}
	if svc.CheckPermission(ctx, "unknown-user", "agent", "read") {
		t.Error("unknown user allowed agent:read")
	}
}

func TestService_CheckPermissionWithoutRoleManager(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, &fakeIdentity{}, nil)
	if !svc.Initialize(ctx) {
		t.Fatal("Initialize() = false")
	}

	if svc.CheckPermission(ctx, "user-5", "agent", "read") {
		t.Error("CheckPermission() = true with no role manager")
	}
}

func TestService_Logout(t *testing.T) {
	ctx := context.Background()
	identity := &fakeIdentity{}
	svc := newTestService(t, identity, nil)
	if !svc.Initialize(ctx) {
		t.Fatal("Initialize() = false")
	}

	if err := svc.Logout(ctx, "token"); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if identity.logoutCalls != 1 {
		t.Errorf("logout calls = %d, want 1", identity.logoutCalls)
	}
}
