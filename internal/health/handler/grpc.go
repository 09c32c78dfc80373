package handler

import (
	"context"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"

	"poolfi/backend/internal/logging"
	"poolfi/backend/internal/server/rpc"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "poolfi.health.v1.HealthService"

// ServingStatus is the readiness of the process.
type ServingStatus string

const (
	StatusServing    ServingStatus = "SERVING"
	StatusNotServing ServingStatus = "NOT_SERVING"
)

type HealthCheckRequest struct{}

type HealthCheckResponse struct {
	Status ServingStatus `json:"status"`
}

// Pinger checks a backing store (e.g. *sql.DB).
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PolicyChecker checks that the withdrawal policy compiles and evaluates.
type PolicyChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthServiceServer is the server API for HealthService.
type HealthServiceServer interface {
	HealthCheck(context.Context, *HealthCheckRequest) (*HealthCheckResponse, error)
}

// RegisterHealthServiceServer registers srv on s.
func RegisterHealthServiceServer(s grpc.ServiceRegistrar, srv HealthServiceServer) {
	s.RegisterService(rpc.ServiceDesc(ServiceName, (*HealthServiceServer)(nil),
		rpc.Unary("HealthCheck", HealthServiceServer.HealthCheck),
	), srv)
}

// Server implements HealthService for readiness/liveness.
type Server struct {
	pinger Pinger
	policy PolicyChecker
	log    logrus.FieldLogger
}

// NewServer returns a new Health gRPC server. Nil checks are skipped.
func NewServer(pinger Pinger, policy PolicyChecker, log logrus.FieldLogger) *Server {
	return &Server{pinger: pinger, policy: policy, log: logging.OrDiscard(log)}
}

// HealthCheck reports NOT_SERVING when any configured check fails. It never returns an error.
func (s *Server) HealthCheck(ctx context.Context, req *HealthCheckRequest) (*HealthCheckResponse, error) {
	if s.pinger != nil {
		if err := s.pinger.PingContext(ctx); err != nil {
			s.log.WithError(err).Warn("health: store ping failed")
			return &HealthCheckResponse{Status: StatusNotServing}, nil
		}
	}
	if s.policy != nil {
		if err := s.policy.HealthCheck(ctx); err != nil {
			s.log.WithError(err).Warn("health: policy check failed")
			return &HealthCheckResponse{Status: StatusNotServing}, nil
		}
	}
	return &HealthCheckResponse{Status: StatusServing}, nil
}
