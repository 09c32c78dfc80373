package handler

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"poolfi/backend/internal/governance/service"
	"poolfi/backend/internal/platform/rbac"
	"poolfi/backend/internal/pool/domain"
	"poolfi/backend/internal/server/rpc"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "poolfi.governance.v1.GovernanceService"

type PostImpactUpdateRequest struct {
	PoolID        string `json:"poolId"`
	Title         string `json:"title"`
	Details       string `json:"details"`
	ReferenceLink string `json:"referenceLink"`
}

func (r *PostImpactUpdateRequest) GetPoolID() string { return r.PoolID }

type PostImpactUpdateResponse struct {
	Update *domain.ImpactUpdate `json:"update"`
}

// PoolRequest addresses one pool. Used by the list RPCs.
type PoolRequest struct {
	PoolID string `json:"poolId"`
}

func (r *PoolRequest) GetPoolID() string { return r.PoolID }

type ListImpactUpdatesResponse struct {
	Updates []domain.ImpactUpdate `json:"updates"`
}

type CreateWithdrawalRequest struct {
	PoolID  string  `json:"poolId"`
	Amount  float64 `json:"amount"`
	Purpose string  `json:"purpose"`
	Vendor  string  `json:"vendor"`
	Stage   string  `json:"stage"`
}

func (r *CreateWithdrawalRequest) GetPoolID() string { return r.PoolID }

type WithdrawalResponse struct {
	Withdrawal *domain.ImpactWithdrawal `json:"withdrawal"`
}

type ListWithdrawalsResponse struct {
	Withdrawals []domain.ImpactWithdrawal `json:"withdrawals"`
}

// DecisionRequest names one withdrawal request of a pool.
type DecisionRequest struct {
	PoolID    string `json:"poolId"`
	RequestID string `json:"requestId"`
}

func (r *DecisionRequest) GetPoolID() string { return r.PoolID }

// GovernanceServiceServer is the server API for GovernanceService.
type GovernanceServiceServer interface {
	PostImpactUpdate(context.Context, *PostImpactUpdateRequest) (*PostImpactUpdateResponse, error)
	ListImpactUpdates(context.Context, *PoolRequest) (*ListImpactUpdatesResponse, error)
	CreateWithdrawal(context.Context, *CreateWithdrawalRequest) (*WithdrawalResponse, error)
	ListWithdrawals(context.Context, *PoolRequest) (*ListWithdrawalsResponse, error)
	ApproveWithdrawal(context.Context, *DecisionRequest) (*WithdrawalResponse, error)
	RejectWithdrawal(context.Context, *DecisionRequest) (*WithdrawalResponse, error)
	ReleaseWithdrawal(context.Context, *DecisionRequest) (*WithdrawalResponse, error)
}

// RegisterGovernanceServiceServer registers srv on s.
func RegisterGovernanceServiceServer(s grpc.ServiceRegistrar, srv GovernanceServiceServer) {
	s.RegisterService(rpc.ServiceDesc(ServiceName, (*GovernanceServiceServer)(nil),
		rpc.Unary("PostImpactUpdate", GovernanceServiceServer.PostImpactUpdate),
		rpc.Unary("ListImpactUpdates", GovernanceServiceServer.ListImpactUpdates),
		rpc.Unary("CreateWithdrawal", GovernanceServiceServer.CreateWithdrawal),
		rpc.Unary("ListWithdrawals", GovernanceServiceServer.ListWithdrawals),
		rpc.Unary("ApproveWithdrawal", GovernanceServiceServer.ApproveWithdrawal),
		rpc.Unary("RejectWithdrawal", GovernanceServiceServer.RejectWithdrawal),
		rpc.Unary("ReleaseWithdrawal", GovernanceServiceServer.ReleaseWithdrawal),
	), srv)
}

// Server implements GovernanceService. Every RPC needs a session.
type Server struct {
	gov *service.Service
	log logrus.FieldLogger
}

// NewServer returns a new Governance gRPC server. If gov is nil, all RPCs return Unimplemented.
func NewServer(gov *service.Service, log logrus.FieldLogger) *Server {
	return &Server{gov: gov, log: log}
}

// PostImpactUpdate appends a progress update. Caller must administer the pool.
func (s *Server) PostImpactUpdate(ctx context.Context, req *PostImpactUpdateRequest) (*PostImpactUpdateResponse, error) {
	viewer, err := s.begin(ctx, req.PoolID)
	if err != nil {
		return nil, err
	}
	u, err := s.gov.PostUpdate(ctx, viewer, req.PoolID, service.UpdateInput{
		Title:         req.Title,
		Details:       req.Details,
		ReferenceLink: req.ReferenceLink,
	})
	if err != nil {
		return nil, rpc.ToStatus(s.log, err)
	}
	return &PostImpactUpdateResponse{Update: u}, nil
}

// ListImpactUpdates returns the pool's updates. Caller must administer the pool.
func (s *Server) ListImpactUpdates(ctx context.Context, req *PoolRequest) (*ListImpactUpdatesResponse, error) {
	viewer, err := s.begin(ctx, req.PoolID)
	if err != nil {
		return nil, err
	}
	updates, err := s.gov.ListUpdates(ctx, viewer, req.PoolID)
	if err != nil {
		return nil, rpc.ToStatus(s.log, err)
	}
	return &ListImpactUpdatesResponse{Updates: updates}, nil
}

// CreateWithdrawal opens a withdrawal request. Caller must administer the pool.
func (s *Server) CreateWithdrawal(ctx context.Context, req *CreateWithdrawalRequest) (*WithdrawalResponse, error) {
	viewer, err := s.begin(ctx, req.PoolID)
	if err != nil {
		return nil, err
	}
	w, err := s.gov.CreateWithdrawal(ctx, viewer, req.PoolID, service.WithdrawalInput{
		Amount:  req.Amount,
		Purpose: req.Purpose,
		Vendor:  req.Vendor,
		Stage:   req.Stage,
	})
	if err != nil {
		return nil, rpc.ToStatus(s.log, err)
	}
	return &WithdrawalResponse{Withdrawal: w}, nil
}

// ListWithdrawals returns the pool's withdrawal requests, newest first. Caller must administer the pool.
func (s *Server) ListWithdrawals(ctx context.Context, req *PoolRequest) (*ListWithdrawalsResponse, error) {
	viewer, err := s.begin(ctx, req.PoolID)
	if err != nil {
		return nil, err
	}
	list, err := s.gov.ListWithdrawals(ctx, viewer, req.PoolID)
	if err != nil {
		return nil, rpc.ToStatus(s.log, err)
	}
	return &ListWithdrawalsResponse{Withdrawals: list}, nil
}

// ApproveWithdrawal records the caller's approval. Caller must be a joined member other than the admin.
func (s *Server) ApproveWithdrawal(ctx context.Context, req *DecisionRequest) (*WithdrawalResponse, error) {
	return s.decide(ctx, req, s.gov.Approve)
}

// RejectWithdrawal rejects a pending request. Caller must be a joined member other than the admin.
func (s *Server) RejectWithdrawal(ctx context.Context, req *DecisionRequest) (*WithdrawalResponse, error) {
	return s.decide(ctx, req, s.gov.Reject)
}

// ReleaseWithdrawal releases an approved request. Caller must administer the pool.
func (s *Server) ReleaseWithdrawal(ctx context.Context, req *DecisionRequest) (*WithdrawalResponse, error) {
	return s.decide(ctx, req, s.gov.Release)
}

type decisionFunc func(ctx context.Context, viewer *domain.Viewer, poolID, requestID string) (*domain.ImpactWithdrawal, error)

func (s *Server) decide(ctx context.Context, req *DecisionRequest, fn decisionFunc) (*WithdrawalResponse, error) {
	viewer, err := s.begin(ctx, req.PoolID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.RequestID) == "" {
		return nil, status.Error(codes.InvalidArgument, "requestId required")
	}
	w, err := fn(ctx, viewer, req.PoolID, req.RequestID)
	if err != nil {
		return nil, rpc.ToStatus(s.log, err)
	}
	return &WithdrawalResponse{Withdrawal: w}, nil
}

// begin validates the preconditions shared by every RPC.
func (s *Server) begin(ctx context.Context, poolID string) (*domain.Viewer, error) {
	if s.gov == nil {
		return nil, rpc.ErrUnavailable
	}
	viewer, err := rbac.RequireViewer(ctx)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(poolID) == "" {
		return nil, status.Error(codes.InvalidArgument, "poolId required")
	}
	return viewer, nil
}
