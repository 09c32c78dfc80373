package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"poolfi/backend/internal/identity/domain"
	"poolfi/backend/internal/identity/service"
	"poolfi/backend/internal/server/interceptors"
	"poolfi/backend/internal/server/rpc"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "poolfi.auth.v1.AuthService"

type SignupRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Pseudonym string `json:"pseudonym"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by Signup and Login. The token is also set as the poolfi_session cookie.
type AuthResponse struct {
	User      *domain.Profile `json:"user"`
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expiresAt"`
}

type MeRequest struct{}

type MeResponse struct {
	Authenticated bool            `json:"authenticated"`
	User          *domain.Profile `json:"user,omitempty"`
	ExpiresAt     time.Time       `json:"expiresAt"`
}

// AuthServiceServer is the server API for AuthService.
type AuthServiceServer interface {
	Signup(context.Context, *SignupRequest) (*AuthResponse, error)
	Login(context.Context, *LoginRequest) (*AuthResponse, error)
	Me(context.Context, *MeRequest) (*MeResponse, error)
}

// RegisterAuthServiceServer registers srv on s.
func RegisterAuthServiceServer(s grpc.ServiceRegistrar, srv AuthServiceServer) {
	s.RegisterService(rpc.ServiceDesc(ServiceName, (*AuthServiceServer)(nil),
		rpc.Unary("Signup", AuthServiceServer.Signup),
		rpc.Unary("Login", AuthServiceServer.Login),
		rpc.Unary("Me", AuthServiceServer.Me),
	), srv)
}

// AuthServer implements AuthService for signup, login, and session lookup.
type AuthServer struct {
	auth         *service.AuthService
	secureCookie bool
	log          logrus.FieldLogger
}

// NewAuthServer returns a new Auth gRPC server. If auth is nil, all RPCs return Unimplemented.
// secureCookie marks the session cookie Secure (production).
func NewAuthServer(auth *service.AuthService, secureCookie bool, log logrus.FieldLogger) *AuthServer {
	return &AuthServer{auth: auth, secureCookie: secureCookie, log: log}
}

// Signup registers a user and returns a session.
func (s *AuthServer) Signup(ctx context.Context, req *SignupRequest) (*AuthResponse, error) {
	if s.auth == nil {
		return nil, rpc.ErrUnavailable
	}
	res, err := s.auth.Signup(ctx, service.SignupInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Pseudonym: req.Pseudonym,
		Email:     req.Email,
		Password:  req.Password,
	})
	if err != nil {
		return nil, s.toStatus(err)
	}
	return s.session(ctx, res), nil
}

// Login authenticates with email and password and returns a session.
func (s *AuthServer) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	if s.auth == nil {
		return nil, rpc.ErrUnavailable
	}
	res, err := s.auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		return nil, s.toStatus(err)
	}
	return s.session(ctx, res), nil
}

// Me returns the signed-in user's profile.
func (s *AuthServer) Me(ctx context.Context, req *MeRequest) (*MeResponse, error) {
	if s.auth == nil {
		return nil, rpc.ErrUnavailable
	}
	claims, ok := interceptors.GetClaims(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing or invalid session")
	}
	p, err := s.auth.Me(ctx, claims)
	if err != nil {
		return nil, s.toStatus(err)
	}
	return &MeResponse{Authenticated: true, User: p, ExpiresAt: claims.Expiry()}, nil
}

func (s *AuthServer) session(ctx context.Context, res *service.AuthResult) *AuthResponse {
	cookie := &http.Cookie{
		Name:     interceptors.SessionCookieName,
		Value:    res.Token,
		Path:     "/",
		Expires:  res.ExpiresAt,
		MaxAge:   int(time.Until(res.ExpiresAt).Seconds()),
		HttpOnly: true,
		Secure:   s.secureCookie,
		SameSite: http.SameSiteLaxMode,
	}
	// No transport stream outside a real RPC (unit tests); the token is in the body regardless.
	_ = grpc.SetHeader(ctx, metadata.Pairs("set-cookie", cookie.String()))
	return &AuthResponse{User: res.User, Token: res.Token, ExpiresAt: res.ExpiresAt}
}

func (s *AuthServer) toStatus(err error) error {
	switch {
	case errors.Is(err, service.ErrEmailAlreadyRegistered):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrUnknownUser):
		return status.Error(codes.Unauthenticated, err.Error())
	case errors.Is(err, service.ErrInvalidSignup), errors.Is(err, service.ErrMissingCredentials):
		return status.Error(codes.InvalidArgument, err.Error())
	}
	return rpc.ToStatus(s.log, err)
}
