package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idem-lexis/lexis-api/internal/auth/domain"
	"github.com/idem-lexis/lexis-api/internal/storage"
	"github.com/idem-lexis/lexis-api/internal/storage/memory"
)

func newService() *AuthService {
	return NewAuthService(storage.NewRepository[domain.User](memory.New(), storage.ModelUsers))
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func TestSyncUser_CreatesThenMerges(t *testing.T) {
	ctx := context.Background()
	svc := newService()

	created, err := svc.SyncUser(ctx, &domain.CreateUserRequest{
		FirebaseUID: "uid-1",
		Email:       "a@example.com",
		Preferences: map[string]any{"theme": "dark"},
	})
	require.NoError(t, err)
	assert.Equal(t, "uid-1", created.FirebaseUID())
	assert.Equal(t, "user", created.Role)
	require.NotNil(t, created.LastLoginAt)

	updated, err := svc.SyncUser(ctx, &domain.CreateUserRequest{
		FirebaseUID: "uid-1",
		DisplayName: strPtr("Ada"),
		Preferences: map[string]any{"lang": "en"},
	})
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", updated.Email)
	assert.Equal(t, "Ada", *updated.DisplayName)
	assert.Equal(t, map[string]any{"theme": "dark", "lang": "en"}, updated.Preferences)
	assert.True(t, created.CreatedAt.Equal(updated.CreatedAt))
}

func TestSyncUser_RequiresUID(t *testing.T) {
	_, err := newService().SyncUser(context.Background(), &domain.CreateUserRequest{Email: "x@y.z"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestUpdateUser_UnknownUser(t *testing.T) {
	_, err := newService().UpdateUser(context.Background(), "ghost", &domain.UpdateUserRequest{})
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestAcceptPolicies(t *testing.T) {
	ctx := context.Background()
	svc := newService()
	_, err := svc.SyncUser(ctx, &domain.CreateUserRequest{FirebaseUID: "uid-1", Email: "a@example.com"})
	require.NoError(t, err)

	ok, err := svc.HasAcceptedPolicies(ctx, "uid-1")
	require.NoError(t, err)
	assert.False(t, ok)

	u, err := svc.AcceptPolicies(ctx, "uid-1", domain.PolicyRequest{
		PrivacyPolicy:  boolPtr(true),
		TermsOfService: boolPtr(true),
	})
	require.NoError(t, err)
	assert.False(t, u.HasAcceptedAll())
	first := u.Policies[domain.PolicyPrivacy].AcceptedAt
	require.NotNil(t, first)

	u, err = svc.AcceptPolicies(ctx, "uid-1", domain.PolicyRequest{
		PrivacyPolicy:    boolPtr(true),
		BetaRestrictions: boolPtr(true),
	})
	require.NoError(t, err)
	assert.True(t, u.HasAcceptedAll())
	assert.True(t, first.Equal(*u.Policies[domain.PolicyPrivacy].AcceptedAt), "re-accepting keeps the original timestamp")

	ok, err = svc.HasAcceptedPolicies(ctx, "uid-1")
	require.NoError(t, err)
	assert.True(t, ok)

	u, err = svc.AcceptPolicies(ctx, "uid-1", domain.PolicyRequest{BetaRestrictions: boolPtr(false)})
	require.NoError(t, err)
	assert.False(t, u.HasAcceptedAll())
	assert.Nil(t, u.Policies[domain.PolicyBetaRestrictions].AcceptedAt)
}

func TestAcceptPolicies_EmptyRequest(t *testing.T) {
	ctx := context.Background()
	svc := newService()
	_, err := svc.SyncUser(ctx, &domain.CreateUserRequest{FirebaseUID: "uid-1", Email: "a@example.com"})
	require.NoError(t, err)

	_, err = svc.AcceptPolicies(ctx, "uid-1", domain.PolicyRequest{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestHasAcceptedPolicies_UnknownUser(t *testing.T) {
	ok, err := newService().HasAcceptedPolicies(context.Background(), "ghost")
	require.NoError(t, err)
	assert.False(t, ok)
}
