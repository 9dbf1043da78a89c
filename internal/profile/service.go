package profile

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

const sessionTTL = 7 * 24 * time.Hour

type Service interface {
	SignIn(ctx context.Context, email, password string) (string, *Profile, error)
	SignOut(ctx context.Context, token string) error
	ByToken(ctx context.Context, token string) (*Profile, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

// SignIn verifies credentials and issues an opaque bearer token. Unknown
// email and wrong password collapse into the same error so the endpoint
// does not leak which emails exist.
func (s *service) SignIn(ctx context.Context, email, password string) (string, *Profile, error) {
	p, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		log.Error().Err(err).Msg("service: failed to fetch profile for sign-in")
		return "", nil, fmt.Errorf("service: failed to fetch profile: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := newToken()
	if err != nil {
		return "", nil, fmt.Errorf("service: failed to generate session token: %w", err)
	}

	session := &Session{
		Token:     token,
		UserID:    p.ID,
		ExpiresAt: time.Now().UTC().Add(sessionTTL),
	}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		log.Error().Err(err).Stringer("user_id", p.ID).Msg("service: failed to create session")
		return "", nil, fmt.Errorf("service: failed to create session: %w", err)
	}

	log.Info().Stringer("user_id", p.ID).Msg("User signed in")
	return token, p, nil
}

func (s *service) SignOut(ctx context.Context, token string) error {
	if err := s.repo.DeleteSession(ctx, token); err != nil {
		log.Error().Err(err).Msg("service: failed to delete session")
		return fmt.Errorf("service: failed to delete session: %w", err)
	}
	return nil
}

func (s *service) ByToken(ctx context.Context, token string) (*Profile, error) {
	session, err := s.repo.GetSession(ctx, token)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("service: failed to fetch session: %w", err)
	}

	p, err := s.repo.GetByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to fetch profile for session: %w", err)
	}

	return p, nil
}

func newToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
