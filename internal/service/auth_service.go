package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vbonduro/ecosort/internal/api"
	"github.com/vbonduro/ecosort/internal/auth"
	"github.com/vbonduro/ecosort/internal/domain"
)

// sessionRepository is the subset of store.SessionStore that AuthService requires.
type sessionRepository interface {
	Create(ctx context.Context, sess *domain.Session) error
	Get(ctx context.Context, id string) (*domain.Session, error)
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context) (int64, error)
}

// authAPI is the subset of api.Client that AuthService requires.
type authAPI interface {
	Login(ctx context.Context, email, password string) (*api.Tokens, error)
	Register(ctx context.Context, u api.NewUser) (*domain.User, error)
}

// ErrInvalidSignUp is returned when a registration form is incomplete.
var ErrInvalidSignUp = errors.New("first name, last name, email, password and role are required")

type AuthService struct {
	api       authAPI
	sessions  sessionRepository
	jwtSecret []byte
	ttl       time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

func NewAuthService(client authAPI, sessions sessionRepository, jwtSecret string, ttl time.Duration, logger *slog.Logger) *AuthService {
	return &AuthService{
		api:       client,
		sessions:  sessions,
		jwtSecret: []byte(jwtSecret),
		ttl:       ttl,
		now:       time.Now,
		logger:    logger,
	}
}

// SignIn exchanges credentials for tokens and opens a session holding them
// and the claims decoded from the access token. The session ends at the
// configured TTL or the token's own expiry, whichever comes first.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*domain.Session, error) {
	tokens, err := s.api.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}

	decoded, err := auth.DecodeClaims(tokens.AccessToken, s.jwtSecret)
	if err != nil {
		return nil, err
	}

	now := s.now()
	expires := now.Add(s.ttl)
	if !decoded.ExpiresAt.IsZero() && decoded.ExpiresAt.Before(expires) {
		expires = decoded.ExpiresAt
	}
	if !now.Before(expires) {
		return nil, errors.New("access token already expired")
	}

	sess := &domain.Session{
		ID:           uuid.NewString(),
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		Claims:       decoded.Claims,
		CreatedAt:    now,
		ExpiresAt:    expires,
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, err
	}

	s.logger.Info("user signed in", "email", sess.Claims.Email, "role", sess.Claims.Role)
	return sess, nil
}

func (s *AuthService) SignOut(ctx context.Context, sessionID string) error {
	return s.sessions.Delete(ctx, sessionID)
}

// Session returns the live session for id, or nil.
func (s *AuthService) Session(ctx context.Context, id string) (*domain.Session, error) {
	if id == "" {
		return nil, nil
	}
	return s.sessions.Get(ctx, id)
}

func (s *AuthService) SignUp(ctx context.Context, u api.NewUser) (*domain.User, error) {
	if u.FirstName == "" || u.LastName == "" || u.Email == "" || u.Password == "" || u.Role == "" {
		return nil, ErrInvalidSignUp
	}
	user, err := s.api.Register(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("failed to register user: %w", err)
	}
	s.logger.Info("user registered", "email", u.Email, "role", u.Role)
	return user, nil
}

// RunJanitor deletes expired sessions every interval until ctx is done.
func (s *AuthService) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.sessions.DeleteExpired(ctx)
			if err != nil {
				s.logger.Error("session cleanup failed", "error", err)
				continue
			}
			if n > 0 {
				s.logger.Debug("expired sessions removed", "count", n)
			}
		}
	}
}
