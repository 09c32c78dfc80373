package handler

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"poolfi/backend/internal/chain"
	"poolfi/backend/internal/platform/rbac"
	"poolfi/backend/internal/pool/domain"
	"poolfi/backend/internal/pool/service"
	"poolfi/backend/internal/reconcile"
	"poolfi/backend/internal/server/rpc"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "poolfi.pool.v1.PoolService"

type RegisterGoalPoolRequest struct {
	Address               string   `json:"address"`
	Name                  string   `json:"name"`
	Category              string   `json:"category"`
	Target                float64  `json:"target"`
	ContributionPerPerson float64  `json:"contributionPerPerson"`
	Invited               []string `json:"invited"`
}

// GetPoolID scopes the audit entry to the registered pool.
func (r *RegisterGoalPoolRequest) GetPoolID() string { return domain.NormalizeAddress(r.Address) }

type RegisterImpactPoolRequest struct {
	Name                  string  `json:"name"`
	Category              string  `json:"category"`
	Description           string  `json:"description"`
	Target                float64 `json:"target"`
	ContributionPerPerson float64 `json:"contributionPerPerson"`
}

type PoolResponse struct {
	Pool *domain.AccessPool `json:"pool"`
}

type JoinImpactPoolRequest struct {
	PoolID string `json:"poolId"`
}

func (r *JoinImpactPoolRequest) GetPoolID() string { return r.PoolID }

type JoinImpactPoolResponse struct {
	PoolID  string `json:"poolId"`
	Members int    `json:"members"`
}

type ListPoolsRequest struct{}

type ListPoolsResponse struct {
	Pools []reconcile.Pool `json:"pools"`
}

type GetPoolRequest struct {
	PoolID string `json:"poolId"`
}

func (r *GetPoolRequest) GetPoolID() string { return r.PoolID }

type GetDashboardRequest struct{}

type GetCreatorImpactPoolRequest struct {
	PoolID string `json:"poolId"`
}

func (r *GetCreatorImpactPoolRequest) GetPoolID() string { return r.PoolID }

// CreatorImpactPoolResponse carries the selected pool (nil when the caller owns none) and every owned pool.
type CreatorImpactPoolResponse struct {
	Pool             *domain.AccessPool   `json:"pool"`
	UpdatesCount     int                  `json:"updatesCount"`
	WithdrawalsCount int                  `json:"withdrawalsCount"`
	OwnedPools       []*domain.AccessPool `json:"ownedPools"`
}

type ListChainPoolsRequest struct{}

type ListChainPoolsResponse struct {
	Pools []chain.PoolRecord `json:"pools"`
}

type GetLatestChainPoolRequest struct{}

type ChainPoolResponse struct {
	Pool *chain.PoolRecord `json:"pool"`
}

type ListChainPoolMembersRequest struct {
	Address string `json:"address"`
}

func (r *ListChainPoolMembersRequest) GetPoolID() string { return domain.NormalizeAddress(r.Address) }

type ListChainPoolMembersResponse struct {
	Members []chain.MemberRecord `json:"members"`
}

// PoolServiceServer is the server API for PoolService.
type PoolServiceServer interface {
	RegisterGoalPool(context.Context, *RegisterGoalPoolRequest) (*PoolResponse, error)
	RegisterImpactPool(context.Context, *RegisterImpactPoolRequest) (*PoolResponse, error)
	JoinImpactPool(context.Context, *JoinImpactPoolRequest) (*JoinImpactPoolResponse, error)
	ListHomePools(context.Context, *ListPoolsRequest) (*ListPoolsResponse, error)
	ListMyPools(context.Context, *ListPoolsRequest) (*ListPoolsResponse, error)
	ListAccessiblePools(context.Context, *ListPoolsRequest) (*ListPoolsResponse, error)
	GetPool(context.Context, *GetPoolRequest) (*PoolResponse, error)
	GetDashboard(context.Context, *GetDashboardRequest) (*reconcile.Dashboard, error)
	GetCreatorImpactPool(context.Context, *GetCreatorImpactPoolRequest) (*CreatorImpactPoolResponse, error)
	ListChainPools(context.Context, *ListChainPoolsRequest) (*ListChainPoolsResponse, error)
	GetLatestChainPool(context.Context, *GetLatestChainPoolRequest) (*ChainPoolResponse, error)
	ListChainPoolMembers(context.Context, *ListChainPoolMembersRequest) (*ListChainPoolMembersResponse, error)
}

// RegisterPoolServiceServer registers srv on s.
func RegisterPoolServiceServer(s grpc.ServiceRegistrar, srv PoolServiceServer) {
	s.RegisterService(rpc.ServiceDesc(ServiceName, (*PoolServiceServer)(nil),
		rpc.Unary("RegisterGoalPool", PoolServiceServer.RegisterGoalPool),
		rpc.Unary("RegisterImpactPool", PoolServiceServer.RegisterImpactPool),
		rpc.Unary("JoinImpactPool", PoolServiceServer.JoinImpactPool),
		rpc.Unary("ListHomePools", PoolServiceServer.ListHomePools),
		rpc.Unary("ListMyPools", PoolServiceServer.ListMyPools),
		rpc.Unary("ListAccessiblePools", PoolServiceServer.ListAccessiblePools),
		rpc.Unary("GetPool", PoolServiceServer.GetPool),
		rpc.Unary("GetDashboard", PoolServiceServer.GetDashboard),
		rpc.Unary("GetCreatorImpactPool", PoolServiceServer.GetCreatorImpactPool),
		rpc.Unary("ListChainPools", PoolServiceServer.ListChainPools),
		rpc.Unary("GetLatestChainPool", PoolServiceServer.GetLatestChainPool),
		rpc.Unary("ListChainPoolMembers", PoolServiceServer.ListChainPoolMembers),
	), srv)
}

// Server implements PoolService over the pool service, the reconciler, and the chain reader.
type Server struct {
	pools      *service.Service
	reconciler *reconcile.Reconciler
	chain      chain.Reader
	log        logrus.FieldLogger
}

// NewServer returns a new Pool gRPC server. RPCs whose backing component is nil return Unimplemented.
func NewServer(pools *service.Service, reconciler *reconcile.Reconciler, reader chain.Reader, log logrus.FieldLogger) *Server {
	return &Server{pools: pools, reconciler: reconciler, chain: reader, log: log}
}

// RegisterGoalPool records access for a pool the caller just created on chain.
func (s *Server) RegisterGoalPool(ctx context.Context, req *RegisterGoalPoolRequest) (*PoolResponse, error) {
	if s.pools == nil {
		return nil, rpc.ErrUnavailable
	}
	viewer, err := rbac.RequireViewer(ctx)
	if err != nil {
		return nil, err
	}
	p, err := s.pools.RegisterGoalPool(ctx, viewer, service.GoalPoolInput{
		Address:               req.Address,
		Name:                  req.Name,
		Category:              req.Category,
		Target:                req.Target,
		ContributionPerPerson: req.ContributionPerPerson,
		Invited:               req.Invited,
	})
	if err != nil {
		return nil, rpc.ToStatus(s.log, err)
	}
	return &PoolResponse{Pool: p}, nil
}

// RegisterImpactPool creates a public impact pool administered by the caller.
func (s *Server) RegisterImpactPool(ctx context.Context, req *RegisterImpactPoolRequest) (*PoolResponse, error) {
	if s.pools == nil {
		return nil, rpc.ErrUnavailable
	}
	viewer, err := rbac.RequireViewer(ctx)
	if err != nil {
		return nil, err
	}
	p, err := s.pools.RegisterImpactPool(ctx, viewer, service.ImpactPoolInput{
		Name:                  req.Name,
		Category:              req.Category,
		Description:           req.Description,
		Target:                req.Target,
		ContributionPerPerson: req.ContributionPerPerson,
	})
	if err != nil {
		return nil, rpc.ToStatus(s.log, err)
	}
	return &PoolResponse{Pool: p}, nil
}

// JoinImpactPool adds the caller to an impact pool.
func (s *Server) JoinImpactPool(ctx context.Context, req *JoinImpactPoolRequest) (*JoinImpactPoolResponse, error) {
	if s.pools == nil {
		return nil, rpc.ErrUnavailable
	}
	viewer, err := rbac.RequireViewer(ctx)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.PoolID) == "" {
		return nil, status.Error(codes.InvalidArgument, "poolId required")
	}
	p, err := s.pools.JoinImpactPool(ctx, viewer, req.PoolID)
	if err != nil {
		return nil, rpc.ToStatus(s.log, err)
	}
	return &JoinImpactPoolResponse{PoolID: p.ID, Members: len(p.JoinedUserIDs)}, nil
}

// ListHomePools returns the caller's home feed. Anonymous callers get an empty list.
func (s *Server) ListHomePools(ctx context.Context, req *ListPoolsRequest) (*ListPoolsResponse, error) {
	return s.list(ctx, reconcile.ViewHome)
}

// ListMyPools returns pools the caller owns, joined, or was invited to. Anonymous callers get an empty list.
func (s *Server) ListMyPools(ctx context.Context, req *ListPoolsRequest) (*ListPoolsResponse, error) {
	return s.list(ctx, reconcile.ViewMyPools)
}

// ListAccessiblePools returns every pool the caller may open, including public impact pools it has
// not joined. Anonymous callers get an empty list.
func (s *Server) ListAccessiblePools(ctx context.Context, req *ListPoolsRequest) (*ListPoolsResponse, error) {
	return s.list(ctx, reconcile.ViewAccessible)
}

// GetPool returns one stored pool. Pools the caller may not open are reported as NotFound.
func (s *Server) GetPool(ctx context.Context, req *GetPoolRequest) (*PoolResponse, error) {
	if s.pools == nil {
		return nil, rpc.ErrUnavailable
	}
	viewer, err := rbac.RequireViewer(ctx)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.PoolID) == "" {
		return nil, status.Error(codes.InvalidArgument, "poolId required")
	}
	p, err := s.pools.GetAccessiblePool(ctx, viewer, req.PoolID)
	if err != nil {
		return nil, rpc.ToStatus(s.log, err)
	}
	return &PoolResponse{Pool: p}, nil
}

func (s *Server) list(ctx context.Context, view reconcile.View) (*ListPoolsResponse, error) {
	if s.reconciler == nil {
		return nil, rpc.ErrUnavailable
	}
	pools, err := s.reconciler.Reconcile(ctx, rbac.ViewerFromContext(ctx), view)
	if err != nil {
		return nil, rpc.ToStatus(s.log, err)
	}
	return &ListPoolsResponse{Pools: pools}, nil
}

// GetDashboard returns the home feed with totals.
func (s *Server) GetDashboard(ctx context.Context, req *GetDashboardRequest) (*reconcile.Dashboard, error) {
	if s.reconciler == nil {
		return nil, rpc.ErrUnavailable
	}
	d, err := s.reconciler.Dashboard(ctx, rbac.ViewerFromContext(ctx))
	if err != nil {
		return nil, rpc.ToStatus(s.log, err)
	}
	return d, nil
}

// GetCreatorImpactPool returns the selected (or first) impact pool the caller administers.
func (s *Server) GetCreatorImpactPool(ctx context.Context, req *GetCreatorImpactPoolRequest) (*CreatorImpactPoolResponse, error) {
	if s.pools == nil {
		return nil, rpc.ErrUnavailable
	}
	viewer, err := rbac.RequireViewer(ctx)
	if err != nil {
		return nil, err
	}
	owned, err := s.pools.ListCreatorImpactPools(ctx, viewer)
	if err != nil {
		return nil, rpc.ToStatus(s.log, err)
	}
	summary, err := s.pools.CreatorImpactPool(ctx, viewer, req.PoolID)
	if err != nil {
		return nil, rpc.ToStatus(s.log, err)
	}
	resp := &CreatorImpactPoolResponse{OwnedPools: owned}
	if resp.OwnedPools == nil {
		resp.OwnedPools = []*domain.AccessPool{}
	}
	if summary != nil {
		resp.Pool = summary.Pool
		resp.UpdatesCount = summary.UpdatesCount
		resp.WithdrawalsCount = summary.WithdrawalsCount
	}
	return resp, nil
}

// ListChainPools returns every pool the factory reports.
func (s *Server) ListChainPools(ctx context.Context, req *ListChainPoolsRequest) (*ListChainPoolsResponse, error) {
	if s.chain == nil {
		return nil, rpc.ErrUnavailable
	}
	pools, err := s.chain.ListPools(ctx)
	if err != nil {
		return nil, rpc.ToStatus(s.log, err)
	}
	return &ListChainPoolsResponse{Pools: pools}, nil
}

// GetLatestChainPool returns the newest factory pool, or a nil pool when there is none.
func (s *Server) GetLatestChainPool(ctx context.Context, req *GetLatestChainPoolRequest) (*ChainPoolResponse, error) {
	if s.chain == nil {
		return nil, rpc.ErrUnavailable
	}
	p, err := s.chain.LatestPool(ctx)
	if err != nil {
		return nil, rpc.ToStatus(s.log, err)
	}
	return &ChainPoolResponse{Pool: p}, nil
}

// ListChainPoolMembers returns the wallets that joined the pool at address.
func (s *Server) ListChainPoolMembers(ctx context.Context, req *ListChainPoolMembersRequest) (*ListChainPoolMembersResponse, error) {
	if s.chain == nil {
		return nil, rpc.ErrUnavailable
	}
	if strings.TrimSpace(req.Address) == "" {
		return nil, status.Error(codes.InvalidArgument, "address required")
	}
	members, err := s.chain.ListMembers(ctx, req.Address)
	if err != nil {
		return nil, rpc.ToStatus(s.log, err)
	}
	return &ListChainPoolMembersResponse{Members: members}, nil
}
