package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"poolfi/backend/internal/audit"
	"poolfi/backend/internal/identity/domain"
	"poolfi/backend/internal/identity/repository"
	"poolfi/backend/internal/logging"
	"poolfi/backend/internal/security"
	"poolfi/backend/internal/telemetry"
)

// Sentinel errors for auth service; handler maps them to gRPC codes.
var (
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrInvalidSignup          = errors.New("provide valid name, pseudonym, email, and password (min 8 chars)")
	ErrMissingCredentials     = errors.New("email and password are required")
	ErrUnknownUser            = errors.New("session user no longer exists")
)

var simpleEmail = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// SignupInput holds the fields of a signup request.
type SignupInput struct {
	FirstName string
	LastName  string
	Pseudonym string
	Email     string
	Password  string
}

// AuthResult holds the outcome of Signup or Login: the user and a signed session token.
type AuthResult struct {
	User      *domain.Profile
	Token     string
	ExpiresAt time.Time
}

// Options carries the optional collaborators of AuthService.
type Options struct {
	Audit  audit.AuditLogger
	Events telemetry.EventEmitter
	Logger logrus.FieldLogger
}

// AuthService implements password signup, login, and session lookup.
type AuthService struct {
	users  repository.Repository
	hasher *security.Hasher
	tokens *security.SessionTokens
	audit  audit.AuditLogger
	events telemetry.EventEmitter
	log    logrus.FieldLogger
	nowF   func() time.Time
}

// NewAuthService returns an AuthService with the given dependencies.
func NewAuthService(users repository.Repository, hasher *security.Hasher, tokens *security.SessionTokens, opts Options) *AuthService {
	return &AuthService{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		audit:  opts.Audit,
		events: opts.Events,
		log:    logging.OrDiscard(opts.Logger).WithField("component", "auth"),
		nowF:   time.Now,
	}
}

// Signup creates a user with the given profile and password and signs them in.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*AuthResult, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Pseudonym = strings.TrimSpace(in.Pseudonym)
	in.Email = domain.NormalizeEmail(in.Email)
	if in.FirstName == "" || in.LastName == "" || in.Pseudonym == "" || !simpleEmail.MatchString(in.Email) {
		return nil, ErrInvalidSignup
	}
	if err := security.ValidatePassword(in.Password); err != nil {
		return nil, ErrInvalidSignup
	}
	existing, err := s.users.GetByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailAlreadyRegistered
	}
	hashed, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}
	user := &domain.User{
		ID:           uuid.New().String(),
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Pseudonym:    in.Pseudonym,
		Email:        in.Email,
		PasswordHash: hashed,
		CreatedAt:    s.nowF().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrEmailAlreadyRegistered
		}
		return nil, err
	}
	s.log.WithField("user_id", user.ID).Info("user signed up")
	if s.audit != nil {
		s.audit.LogEvent(ctx, "", user.ID, "signup", "user", "")
	}
	telemetry.EmitAsync(s.events, s.log, telemetry.NewEvent(telemetry.EventUserSignedUp, "auth", user.ID, "", nil))
	return s.issue(user)
}

// Login authenticates with email and password and returns a session token.
// Unknown email and wrong password are indistinguishable.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrMissingCredentials
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil || !s.hasher.Matches(user.PasswordHash, password) {
		if s.audit != nil {
			s.audit.LogEvent(ctx, "", "", "login_failed", "user", email)
		}
		return nil, ErrInvalidCredentials
	}
	if s.audit != nil {
		s.audit.LogEvent(ctx, "", user.ID, "login", "user", "")
	}
	return s.issue(user)
}

// Me returns the profile of the user behind claims.
func (s *AuthService) Me(ctx context.Context, claims *security.Claims) (*domain.Profile, error) {
	if claims == nil || claims.Subject == "" {
		return nil, security.ErrInvalidToken
	}
	user, err := s.users.GetByID(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUnknownUser
	}
	return user.Profile(), nil
}

func (s *AuthService) issue(user *domain.User) (*AuthResult, error) {
	token, expiresAt, err := s.tokens.Issue(security.Claims{
		Subject:   user.ID,
		Email:     user.Email,
		Pseudonym: user.Pseudonym,
	})
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user.Profile(), Token: token, ExpiresAt: expiresAt}, nil
}
