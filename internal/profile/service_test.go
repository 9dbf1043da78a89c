package profile_test

import (
	"context"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/tarjuman/order-service/internal/profile"
)

type mockProfileRepository struct {
	getByIDFunc       func(ctx context.Context, id uuid.UUID) (*profile.Profile, error)
	getByEmailFunc    func(ctx context.Context, email string) (*profile.Profile, error)
	createSessionFunc func(ctx context.Context, session *profile.Session) error
	getSessionFunc    func(ctx context.Context, token string) (*profile.Session, error)
	deleteSessionFunc func(ctx context.Context, token string) error
}

func (m *mockProfileRepository) GetByID(ctx context.Context, id uuid.UUID) (*profile.Profile, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockProfileRepository) GetByEmail(ctx context.Context, email string) (*profile.Profile, error) {
	return m.getByEmailFunc(ctx, email)
}

func (m *mockProfileRepository) CreateSession(ctx context.Context, session *profile.Session) error {
	return m.createSessionFunc(ctx, session)
}

func (m *mockProfileRepository) GetSession(ctx context.Context, token string) (*profile.Session, error) {
	return m.getSessionFunc(ctx, token)
}

func (m *mockProfileRepository) DeleteSession(ctx context.Context, token string) error {
	return m.deleteSessionFunc(ctx, token)
}

func hashedProfile(t *testing.T, password string) *profile.Profile {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &profile.Profile{
		ID:           uuid.Must(uuid.NewV4()),
		Email:        "user@example.com",
		FullName:     "Test User",
		Role:         profile.RoleUser,
		PasswordHash: string(hash),
	}
}

func TestSignIn(t *testing.T) {
	p := hashedProfile(t, "correct-horse")

	var storedSession *profile.Session
	repo := &mockProfileRepository{
		getByEmailFunc: func(ctx context.Context, email string) (*profile.Profile, error) {
			if email == p.Email {
				return p, nil
			}
			return nil, profile.ErrProfileNotFound
		},
		createSessionFunc: func(ctx context.Context, session *profile.Session) error {
			storedSession = session
			return nil
		},
	}

	svc := profile.NewService(repo)

	t.Run("success", func(t *testing.T) {
		token, got, err := svc.SignIn(context.Background(), "user@example.com", "correct-horse")
		require.NoError(t, err)
		assert.NotEmpty(t, token)
		assert.Equal(t, p.ID, got.ID)
		require.NotNil(t, storedSession)
		assert.Equal(t, token, storedSession.Token)
		assert.Equal(t, p.ID, storedSession.UserID)
		assert.True(t, storedSession.ExpiresAt.After(time.Now()))
	})

	t.Run("wrong_password", func(t *testing.T) {
		_, _, err := svc.SignIn(context.Background(), "user@example.com", "wrong")
		assert.ErrorIs(t, err, profile.ErrInvalidCredentials)
	})

	t.Run("unknown_email_same_error", func(t *testing.T) {
		_, _, err := svc.SignIn(context.Background(), "nobody@example.com", "correct-horse")
		assert.ErrorIs(t, err, profile.ErrInvalidCredentials)
	})
}

func TestByToken(t *testing.T) {
	p := hashedProfile(t, "pw")

	repo := &mockProfileRepository{
		getSessionFunc: func(ctx context.Context, token string) (*profile.Session, error) {
			if token == "valid-token" {
				return &profile.Session{Token: token, UserID: p.ID, ExpiresAt: time.Now().Add(time.Hour)}, nil
			}
			return nil, profile.ErrSessionNotFound
		},
		getByIDFunc: func(ctx context.Context, id uuid.UUID) (*profile.Profile, error) {
			require.Equal(t, p.ID, id)
			return p, nil
		},
	}

	svc := profile.NewService(repo)

	got, err := svc.ByToken(context.Background(), "valid-token")
	require.NoError(t, err)
	assert.Equal(t, p.Email, got.Email)

	_, err = svc.ByToken(context.Background(), "expired-or-missing")
	assert.ErrorIs(t, err, profile.ErrSessionNotFound)
}

func TestIsAdmin(t *testing.T) {
	assert.False(t, (&profile.Profile{Role: profile.RoleUser}).IsAdmin())
	assert.True(t, (&profile.Profile{Role: profile.RoleAdmin}).IsAdmin())
}
