package auth_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/lineup-studio/backend-lineup/internal/auth"
)

type memoryUsers struct {
	byEmail map[string]memoryUser
}

type memoryUser struct {
	user auth.User
	hash string
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{byEmail: make(map[string]memoryUser)}
}

func (m *memoryUsers) CreateUser(_ context.Context, name, email, passwordHash string) (auth.User, error) {
	if _, exists := m.byEmail[email]; exists {
		return auth.User{}, fmt.Errorf("duplicate email")
	}
	u := auth.User{ID: uuid.NewString(), Name: name, Email: email, CreatedAt: time.Now()}
	m.byEmail[email] = memoryUser{user: u, hash: passwordHash}
	return u, nil
}

func (m *memoryUsers) UserByEmail(_ context.Context, email string) (auth.User, string, error) {
	entry, ok := m.byEmail[email]
	if !ok {
		return auth.User{}, "", fmt.Errorf("user not found")
	}
	return entry.user, entry.hash, nil
}

func (m *memoryUsers) UserByID(_ context.Context, id string) (auth.User, error) {
	for _, entry := range m.byEmail {
		if entry.user.ID == id {
			return entry.user, nil
		}
	}
	return auth.User{}, fmt.Errorf("user not found")
}

func newTestService(t *testing.T) (*auth.Service, *memoryUsers) {
	t.Helper()
	store := newMemoryUsers()
	svc, err := auth.NewService(auth.Config{
		Store:          store,
		Secret:         "test-secret-test-secret",
		AccessTokenTTL: time.Minute,
	})
	require.NoError(t, err)
	return svc, store
}

func TestRegisterLoginTokenRoundTrip(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "Maya", "maya@example.com", "correcthorse")
	require.NoError(t, err)
	require.NotEmpty(t, user.ID)
	require.Equal(t, "maya@example.com", user.Email)

	result, err := svc.Login(ctx, "Maya@Example.com ", "correcthorse")
	require.NoError(t, err)
	require.NotEmpty(t, result.AccessToken)

	subject, err := svc.ParseAccessToken(result.AccessToken)
	require.NoError(t, err)
	require.Equal(t, user.ID, subject)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "Maya", "maya@example.com", "correcthorse")
	require.NoError(t, err)

	_, err = svc.Login(ctx, "maya@example.com", "wrong-password")
	require.Error(t, err)
}

func TestParseAccessTokenRejectsExpired(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "Maya", "maya@example.com", "correcthorse")
	require.NoError(t, err)

	issued := time.Now().Add(-2 * time.Hour)
	svc.WithNow(func() time.Time { return issued })
	result, err := svc.Login(ctx, "maya@example.com", "correcthorse")
	require.NoError(t, err)
	require.Equal(t, user.ID, result.User.ID)

	svc.WithNow(time.Now)
	_, err = svc.ParseAccessToken(result.AccessToken)
	require.Error(t, err)
}

func TestParseAccessTokenRejectsForeignSignature(t *testing.T) {
	svc, _ := newTestService(t)
	other, err := auth.NewService(auth.Config{
		Store:          newMemoryUsers(),
		Secret:         "another-secret-entirely",
		AccessTokenTTL: time.Minute,
	})
	require.NoError(t, err)

	ctx := context.Background()
	_, err = other.Register(ctx, "Eve", "eve@example.com", "correcthorse")
	require.NoError(t, err)
	result, err := other.Login(ctx, "eve@example.com", "correcthorse")
	require.NoError(t, err)

	_, err = svc.ParseAccessToken(result.AccessToken)
	require.Error(t, err)
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "", "a@example.com", "correcthorse")
	require.Error(t, err)
	_, err = svc.Register(ctx, "A", "", "correcthorse")
	require.Error(t, err)
	_, err = svc.Register(ctx, "A", "a@example.com", "short")
	require.Error(t, err)
}
