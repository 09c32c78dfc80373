package audit

import "strings"

// ActionResource holds action and resource derived from a gRPC full method name.
type ActionResource struct {
	Action   string
	Resource string
}

// Withdrawal decision overrides: audited as withdrawal_<decision> on resource "withdrawal".
const (
	governanceApprove = "/poolfi.governance.v1.GovernanceService/ApproveWithdrawal"
	governanceReject  = "/poolfi.governance.v1.GovernanceService/RejectWithdrawal"
	governanceRelease = "/poolfi.governance.v1.GovernanceService/ReleaseWithdrawal"
)

// ParseFullMethod returns action and resource for a gRPC full method (e.g. /poolfi.pool.v1.PoolService/JoinImpactPool).
// Action is a verb: get, list, create, register, join, post, or a lowercase method name for others.
// Resource is derived from the service name (e.g. PoolService -> pool).
// GovernanceService Approve/Reject/ReleaseWithdrawal map to withdrawal_approved, withdrawal_rejected,
// withdrawal_released on resource "withdrawal".
func ParseFullMethod(fullMethod string) ActionResource {
	switch fullMethod {
	case governanceApprove:
		return ActionResource{Action: "withdrawal_approved", Resource: "withdrawal"}
	case governanceReject:
		return ActionResource{Action: "withdrawal_rejected", Resource: "withdrawal"}
	case governanceRelease:
		return ActionResource{Action: "withdrawal_released", Resource: "withdrawal"}
	}
	// fullMethod format: /poolfi.package.v1.ServiceName/MethodName
	slash := strings.LastIndex(fullMethod, "/")
	if slash < 0 {
		return ActionResource{Action: "unknown", Resource: "unknown"}
	}
	method := fullMethod[slash+1:]
	beforeSlash := fullMethod[:slash]
	dot := strings.LastIndex(beforeSlash, ".")
	if dot < 0 {
		return ActionResource{Action: strings.ToLower(method), Resource: "unknown"}
	}
	serviceName := beforeSlash[dot+1:]
	return ActionResource{Action: methodToAction(method), Resource: serviceToResource(serviceName)}
}

func serviceToResource(serviceName string) string {
	// PoolService -> pool, GovernanceService -> governance
	s := strings.TrimSuffix(serviceName, "Service")
	if s == "" {
		return "unknown"
	}
	return strings.ToLower(s[0:1]) + s[1:]
}

func methodToAction(method string) string {
	switch {
	case strings.HasPrefix(method, "Get") && method != "Get":
		return "get"
	case strings.HasPrefix(method, "List"):
		return "list"
	case strings.HasPrefix(method, "Create"):
		return "create"
	case strings.HasPrefix(method, "Register"):
		return "register"
	case strings.HasPrefix(method, "Join"):
		return "join"
	case strings.HasPrefix(method, "Post"):
		return "post"
	default:
		return strings.ToLower(method)
	}
}
