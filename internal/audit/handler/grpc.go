package handler

import (
	"context"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"poolfi/backend/internal/audit/domain"
	auditrepo "poolfi/backend/internal/audit/repository"
	"poolfi/backend/internal/platform/rbac"
	poolrepo "poolfi/backend/internal/pool/repository"
	"poolfi/backend/internal/server/rpc"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "poolfi.audit.v1.AuditService"

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

type ListPoolAuditLogsRequest struct {
	PoolID    string `json:"poolId"`
	PageSize  int32  `json:"pageSize"`
	PageToken string `json:"pageToken"`
}

func (r *ListPoolAuditLogsRequest) GetPoolID() string { return r.PoolID }

type ListPoolAuditLogsResponse struct {
	Logs          []*domain.AuditLog `json:"logs"`
	NextPageToken string             `json:"nextPageToken,omitempty"`
}

// AuditServiceServer is the server API for AuditService.
type AuditServiceServer interface {
	ListPoolAuditLogs(context.Context, *ListPoolAuditLogsRequest) (*ListPoolAuditLogsResponse, error)
}

// RegisterAuditServiceServer registers srv on s.
func RegisterAuditServiceServer(s grpc.ServiceRegistrar, srv AuditServiceServer) {
	s.RegisterService(rpc.ServiceDesc(ServiceName, (*AuditServiceServer)(nil),
		rpc.Unary("ListPoolAuditLogs", AuditServiceServer.ListPoolAuditLogs),
	), srv)
}

// Server implements AuditService for pool audit logs.
type Server struct {
	auditRepo auditrepo.Repository
	poolRepo  poolrepo.Repository
	log       logrus.FieldLogger
}

// NewServer returns a new Audit gRPC server. If either repository is nil, all RPCs return Unimplemented.
func NewServer(auditRepo auditrepo.Repository, poolRepo poolrepo.Repository, log logrus.FieldLogger) *Server {
	return &Server{auditRepo: auditRepo, poolRepo: poolRepo, log: log}
}

// ListPoolAuditLogs returns a page of the pool's audit log, newest first. Caller must be the pool admin.
func (s *Server) ListPoolAuditLogs(ctx context.Context, req *ListPoolAuditLogsRequest) (*ListPoolAuditLogsResponse, error) {
	if s.auditRepo == nil || s.poolRepo == nil {
		return nil, rpc.ErrUnavailable
	}
	viewer, err := rbac.RequireViewer(ctx)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.PoolID) == "" {
		return nil, status.Error(codes.InvalidArgument, "poolId required")
	}
	p, err := s.poolRepo.GetPool(ctx, req.PoolID)
	if err != nil {
		return nil, rpc.ToStatus(s.log, err)
	}
	if err := rbac.AuthorizeOrNotFound(p, viewer, rbac.RequireOwner); err != nil {
		return nil, rpc.ToStatus(s.log, err)
	}

	pageSize := int32(defaultPageSize)
	if req.PageSize > 0 {
		pageSize = req.PageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	offset := int32(0)
	if tok := req.PageToken; tok != "" {
		if n, err := strconv.ParseInt(tok, 10, 32); err == nil && n >= 0 {
			offset = int32(n)
		}
	}
	logs, err := s.auditRepo.ListByPool(ctx, p.ID, pageSize, offset)
	if err != nil {
		return nil, rpc.ToStatus(s.log, err)
	}
	if logs == nil {
		logs = []*domain.AuditLog{}
	}
	nextToken := ""
	if len(logs) == int(pageSize) {
		nextToken = strconv.Itoa(int(offset + pageSize))
	}
	return &ListPoolAuditLogsResponse{Logs: logs, NextPageToken: nextToken}, nil
}
