package auth

import (
	"auction-backend/internal/biddingerrors"
	"auction-backend/internal/clock"
	"auction-backend/internal/models"
	"auction-backend/internal/repository"
	"auction-backend/utils"
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// SignupInput is a registration request
type SignupInput struct {
	Username string
	Email    string
	Password string
	FullName string
}

// Session is the result of a successful login
type Session struct {
	Token     string
	User      models.User
	ExpiresAt time.Time
}

// Option configures a Service
type Option func(*Service)

// WithBcryptCost overrides the password hashing cost
func WithBcryptCost(cost int) Option {
	return func(s *Service) { s.bcryptCost = cost }
}

// WithClock sets the time source for user creation timestamps
func WithClock(c clock.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// Service registers users, issues session tokens and resolves callers
type Service struct {
	users      repository.UserStore
	tokens     *TokenIssuer
	sessions   SessionStore
	ttl        time.Duration
	clock      clock.Clock
	bcryptCost int
}

// NewService wires the auth gateway. ttl bounds both the token and its session.
func NewService(users repository.UserStore, tokens *TokenIssuer, sessions SessionStore, ttl time.Duration, opts ...Option) *Service {
	s := &Service{
		users:      users,
		tokens:     tokens,
		sessions:   sessions,
		ttl:        ttl,
		clock:      clock.System(),
		bcryptCost: bcrypt.DefaultCost,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Signup validates and stores a new user with a bcrypt password hash
func (s *Service) Signup(ctx context.Context, in SignupInput) (models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	in.FullName = strings.TrimSpace(in.FullName)

	if err := validateSignup(in); err != nil {
		return models.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return models.User{}, fmt.Errorf("auth: hash password: %w", err)
	}

	user := models.User{
		ID:           utils.GenerateID(),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: string(hash),
		FullName:     in.FullName,
		CreatedAt:    s.clock.Now().UTC(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return models.User{}, fmt.Errorf("auth: signup %s: %w", in.Username, err)
	}
	return user, nil
}

func validateSignup(in SignupInput) error {
	switch {
	case len(in.Username) < 3 || len(in.Username) > 50:
		return fmt.Errorf("auth: %w - username must be 3 to 50 characters", biddingerrors.ErrValidation)
	case len(in.Password) < 6:
		return fmt.Errorf("auth: %w - password must be at least 6 characters", biddingerrors.ErrValidation)
	case len(in.Password) > 72:
		return fmt.Errorf("auth: %w - password must be at most 72 bytes", biddingerrors.ErrValidation)
	case len(in.Email) > 100:
		return fmt.Errorf("auth: %w - email longer than 100 characters", biddingerrors.ErrValidation)
	case len(in.FullName) > 100:
		return fmt.Errorf("auth: %w - full name longer than 100 characters", biddingerrors.ErrValidation)
	}
	if addr, err := mail.ParseAddress(in.Email); err != nil || addr.Address != in.Email {
		return fmt.Errorf("auth: %w - invalid email address", biddingerrors.ErrValidation)
	}
	return nil
}

// Login checks credentials and opens a session
func (s *Service) Login(ctx context.Context, username, password string) (Session, error) {
	user, err := s.users.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, biddingerrors.ErrUserNotFound) {
			return Session{}, fmt.Errorf("auth: login %s: %w", username, biddingerrors.ErrInvalidCredentials)
		}
		return Session{}, fmt.Errorf("auth: login %s: %w", username, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return Session{}, fmt.Errorf("auth: login %s: %w", username, biddingerrors.ErrInvalidCredentials)
	}

	token, claims, err := s.tokens.Issue(user.ID, user.Username)
	if err != nil {
		return Session{}, fmt.Errorf("auth: %w", err)
	}
	if err := s.sessions.Save(ctx, claims.ID, user.ID, s.ttl); err != nil {
		return Session{}, fmt.Errorf("auth: %w", errors.Join(biddingerrors.ErrStoreUnavailable, err))
	}

	return Session{Token: token, User: user, ExpiresAt: claims.ExpiresAt.Time}, nil
}

// Logout ends the session behind token. Unknown, expired or malformed tokens are
// treated as already logged out.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil
	}
	if err := s.sessions.Delete(ctx, claims.ID); err != nil {
		return fmt.Errorf("auth: %w", errors.Join(biddingerrors.ErrStoreUnavailable, err))
	}
	return nil
}

// ResolveCaller maps a credential to the user id it was issued for
func (s *Service) ResolveCaller(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", fmt.Errorf("auth: %w - missing credential", biddingerrors.ErrUnauthenticated)
	}

	claims, err := s.tokens.Parse(token)
	if err != nil {
		return "", fmt.Errorf("auth: %w - %v", biddingerrors.ErrUnauthenticated, err)
	}

	userID, err := s.sessions.Lookup(ctx, claims.ID)
	if errors.Is(err, errSessionNotFound) {
		return "", fmt.Errorf("auth: %w - session ended", biddingerrors.ErrUnauthenticated)
	}
	if err != nil {
		return "", fmt.Errorf("auth: %w", errors.Join(biddingerrors.ErrStoreUnavailable, err))
	}
	if userID != claims.UserID {
		return "", fmt.Errorf("auth: %w - session does not match token", biddingerrors.ErrUnauthenticated)
	}
	return userID, nil
}

// CurrentUser resolves the caller and loads their profile
func (s *Service) CurrentUser(ctx context.Context, token string) (models.User, error) {
	userID, err := s.ResolveCaller(ctx, token)
	if err != nil {
		return models.User{}, err
	}
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, biddingerrors.ErrUserNotFound) {
			return models.User{}, fmt.Errorf("auth: %w - user %s no longer exists", biddingerrors.ErrUnauthenticated, userID)
		}
		return models.User{}, fmt.Errorf("auth: %w", err)
	}
	return user, nil
}

// ListUsers returns all registered users
func (s *Service) ListUsers(ctx context.Context) ([]models.User, error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("auth: %w", err)
	}
	return users, nil
}
