package server

import (
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"

	audithandler "poolfi/backend/internal/audit/handler"
	auditrepo "poolfi/backend/internal/audit/repository"
	"poolfi/backend/internal/chain"
	governancehandler "poolfi/backend/internal/governance/handler"
	governanceservice "poolfi/backend/internal/governance/service"
	healthhandler "poolfi/backend/internal/health/handler"
	identityhandler "poolfi/backend/internal/identity/handler"
	identityservice "poolfi/backend/internal/identity/service"
	poolhandler "poolfi/backend/internal/pool/handler"
	poolrepo "poolfi/backend/internal/pool/repository"
	poolservice "poolfi/backend/internal/pool/service"
	"poolfi/backend/internal/reconcile"
	"poolfi/backend/internal/security"
	"poolfi/backend/internal/server/interceptors"
	"poolfi/backend/internal/server/rpc"
	"poolfi/backend/internal/telemetry"
)

// Deps holds optional service dependencies for gRPC handlers.
type Deps struct {
	// Auth is the auth service for Signup/Login/Me. If nil, auth RPCs return Unimplemented.
	Auth *identityservice.AuthService
	// SecureCookie marks the session cookie Secure.
	SecureCookie bool
	// Pools, Reconciler and Chain back PoolService. Nil components make their RPCs return Unimplemented.
	Pools      *poolservice.Service
	Reconciler *reconcile.Reconciler
	Chain      chain.Reader
	// Governance backs GovernanceService. If nil, governance RPCs return Unimplemented.
	Governance *governanceservice.Service
	// PoolRepo is used by AuditService to check pool ownership.
	PoolRepo poolrepo.Repository
	// AuditRepo is the audit log repository for AuditService and the audit interceptor. If nil, ListPoolAuditLogs returns Unimplemented and no RPCs are audited.
	AuditRepo auditrepo.Repository
	// HealthPinger is used by HealthService for readiness (e.g. *sql.DB). If nil, HealthCheck skips DB ping.
	HealthPinger healthhandler.Pinger
	// HealthPolicyChecker is used by HealthService for readiness (e.g. OPA evaluator). If nil, HealthCheck skips policy check.
	HealthPolicyChecker healthhandler.PolicyChecker
	// Logger is passed to handlers for internal error logging.
	Logger logrus.FieldLogger
}

// RegisterServices registers all gRPC services with the given server.
//
// Service → handler mapping:
//   - AuthService       → internal/identity/handler
//   - PoolService       → internal/pool/handler
//   - GovernanceService → internal/governance/handler
//   - AuditService      → internal/audit/handler
//   - HealthService     → internal/health/handler
func RegisterServices(s grpc.ServiceRegistrar, deps Deps) {
	identityhandler.RegisterAuthServiceServer(s, identityhandler.NewAuthServer(deps.Auth, deps.SecureCookie, deps.Logger))
	poolhandler.RegisterPoolServiceServer(s, poolhandler.NewServer(deps.Pools, deps.Reconciler, deps.Chain, deps.Logger))
	governancehandler.RegisterGovernanceServiceServer(s, governancehandler.NewServer(deps.Governance, deps.Logger))
	audithandler.RegisterAuditServiceServer(s, audithandler.NewServer(deps.AuditRepo, deps.PoolRepo, deps.Logger))
	healthhandler.RegisterHealthServiceServer(s, healthhandler.NewServer(deps.HealthPinger, deps.HealthPolicyChecker, deps.Logger))
}

// PublicMethods are the RPCs callable without a session. The listing RPCs answer anonymous callers
// with empty results; chain reads expose only public chain state.
func PublicMethods() map[string]bool {
	return map[string]bool{
		rpc.FullMethod(identityhandler.ServiceName, "Signup"):           true,
		rpc.FullMethod(identityhandler.ServiceName, "Login"):            true,
		rpc.FullMethod(healthhandler.ServiceName, "HealthCheck"):        true,
		rpc.FullMethod(poolhandler.ServiceName, "ListHomePools"):        true,
		rpc.FullMethod(poolhandler.ServiceName, "ListMyPools"):          true,
		rpc.FullMethod(poolhandler.ServiceName, "ListAccessiblePools"):  true,
		rpc.FullMethod(poolhandler.ServiceName, "GetDashboard"):         true,
		rpc.FullMethod(poolhandler.ServiceName, "ListChainPools"):       true,
		rpc.FullMethod(poolhandler.ServiceName, "GetLatestChainPool"):   true,
		rpc.FullMethod(poolhandler.ServiceName, "ListChainPoolMembers"): true,
	}
}

// CredentialMethods issue a session, so a stale token sent along with them is ignored.
func CredentialMethods() map[string]bool {
	return map[string]bool{
		rpc.FullMethod(identityhandler.ServiceName, "Signup"): true,
		rpc.FullMethod(identityhandler.ServiceName, "Login"):  true,
	}
}

// QuietMethods are not audited and emit no request telemetry.
func QuietMethods() map[string]bool {
	return map[string]bool{
		rpc.FullMethod(healthhandler.ServiceName, "HealthCheck"):      true,
		rpc.FullMethod(audithandler.ServiceName, "ListPoolAuditLogs"): true,
		rpc.FullMethod(identityhandler.ServiceName, "Signup"):         true,
		rpc.FullMethod(identityhandler.ServiceName, "Login"):          true,
	}
}

// Options configure the interceptor chain of NewGRPCServer.
type Options struct {
	Tokens      *security.SessionTokens
	RateLimiter *interceptors.RateLimiter
	Events      telemetry.EventEmitter
	// Instrument adds the otelgrpc stats handler (traces and RPC metrics on the global providers).
	Instrument bool
}

// NewGRPCServer returns a grpc.Server with the auth, rate limit, audit and telemetry interceptors
// chained in that order, and every service registered.
func NewGRPCServer(deps Deps, opts Options) *grpc.Server {
	quiet := QuietMethods()
	serverOpts := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(
			interceptors.AuthUnary(opts.Tokens, PublicMethods(), CredentialMethods()),
			interceptors.RateLimitUnary(opts.RateLimiter),
			interceptors.AuditUnary(deps.AuditRepo, quiet, deps.Logger),
			interceptors.TelemetryUnary(opts.Events, quiet, deps.Logger),
		),
	}
	if opts.Instrument {
		serverOpts = append(serverOpts, grpc.StatsHandler(otelgrpc.NewServerHandler()))
	}
	s := grpc.NewServer(serverOpts...)
	RegisterServices(s, deps)
	return s
}
