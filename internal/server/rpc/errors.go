package rpc

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"poolfi/backend/internal/pool/domain"
	"poolfi/backend/internal/security"
)

// ErrUnavailable is returned by handlers whose backing service is not configured.
var ErrUnavailable = status.Error(codes.Unimplemented, "service not configured")

// ToStatus maps service errors to gRPC status errors. Unknown errors are logged and returned as
// Internal without their message. Errors that already carry a status pass through.
func ToStatus(log logrus.FieldLogger, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		return badRequest(verr)
	case errors.Is(err, security.ErrInvalidToken), errors.Is(err, domain.ErrUnauthenticated):
		return status.Error(codes.Unauthenticated, "missing or invalid session")
	case errors.Is(err, domain.ErrPoolNotFound):
		return status.Error(codes.NotFound, domain.ErrPoolNotFound.Error())
	case errors.Is(err, domain.ErrWithdrawalNotFound):
		return status.Error(codes.NotFound, domain.ErrWithdrawalNotFound.Error())
	case errors.Is(err, domain.ErrVersionConflict), errors.Is(err, domain.ErrAlreadyExists):
		return status.Error(codes.Aborted, err.Error())
	case errors.Is(err, domain.ErrInvalidTransition):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	if log != nil {
		log.WithError(err).Error("internal error")
	}
	return status.Error(codes.Internal, "internal error")
}

func badRequest(verr *domain.ValidationError) error {
	st := status.New(codes.InvalidArgument, verr.Error())
	withDetails, err := st.WithDetails(&errdetails.BadRequest{
		FieldViolations: []*errdetails.BadRequest_FieldViolation{
			{Field: verr.Field, Description: verr.Reason},
		},
	})
	if err != nil {
		return st.Err()
	}
	return withDetails.Err()
}
