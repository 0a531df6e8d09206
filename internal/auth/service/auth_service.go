package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/idem-lexis/lexis-api/internal/auth/domain"
	"github.com/idem-lexis/lexis-api/internal/storage"
)

const defaultRole = "user"

type AuthService struct {
	users storage.Repository[domain.User]
	now   func() time.Time
}

func NewAuthService(users storage.Repository[domain.User]) *AuthService {
	return &AuthService{
		users: users,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// GetUserByFirebaseUID retrieves a user by Firebase UID
func (s *AuthService) GetUserByFirebaseUID(ctx context.Context, uid string) (*domain.User, error) {
	u, err := s.users.FindByID(ctx, uid)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

// SyncUser creates or updates a user from Firebase Auth data and stamps the login time.
// Optional fields only overwrite stored values when provided.
func (s *AuthService) SyncUser(ctx context.Context, req *domain.CreateUserRequest) (*domain.User, error) {
	if strings.TrimSpace(req.FirebaseUID) == "" {
		return nil, fmt.Errorf("%w: firebase uid required", domain.ErrInvalidInput)
	}
	now := s.now()

	existing, err := s.GetUserByFirebaseUID(ctx, req.FirebaseUID)
	switch {
	case err == nil:
		if req.Email != "" {
			existing.Email = req.Email
		}
		if req.DisplayName != nil {
			existing.DisplayName = req.DisplayName
		}
		if req.PhotoURL != nil {
			existing.PhotoURL = req.PhotoURL
		}
		if req.Organization != nil {
			existing.Organization = req.Organization
		}
		existing.Preferences = mergePreferences(existing.Preferences, req.Preferences)
		existing.LastLoginAt = &now
		return s.users.Update(ctx, existing.ID, existing)

	case errors.Is(err, domain.ErrUserNotFound):
		user := &domain.User{
			Base:         storage.Base{ID: req.FirebaseUID},
			Email:        req.Email,
			DisplayName:  req.DisplayName,
			PhotoURL:     req.PhotoURL,
			Organization: req.Organization,
			Role:         defaultRole,
			Preferences:  mergePreferences(nil, req.Preferences),
			LastLoginAt:  &now,
		}
		return s.users.Create(ctx, user)

	default:
		return nil, err
	}
}

// UpdateUser updates user information
func (s *AuthService) UpdateUser(ctx context.Context, uid string, req *domain.UpdateUserRequest) (*domain.User, error) {
	user, err := s.GetUserByFirebaseUID(ctx, uid)
	if err != nil {
		return nil, err
	}

	if req.DisplayName != nil {
		user.DisplayName = req.DisplayName
	}
	if req.PhotoURL != nil {
		user.PhotoURL = req.PhotoURL
	}
	if req.Organization != nil {
		user.Organization = req.Organization
	}
	user.Preferences = mergePreferences(user.Preferences, req.Preferences)

	return s.users.Update(ctx, uid, user)
}

// AcceptPolicies records the policy flags in req. Withdrawing a policy clears its timestamp.
func (s *AuthService) AcceptPolicies(ctx context.Context, uid string, req domain.PolicyRequest) (*domain.User, error) {
	user, err := s.GetUserByFirebaseUID(ctx, uid)
	if err != nil {
		return nil, err
	}

	changed := false
	now := s.now()
	if user.Policies == nil {
		user.Policies = make(map[domain.Policy]domain.PolicyAcceptance)
	}
	for policy, v := range req.Values() {
		if v == nil {
			continue
		}
		changed = true
		if *v {
			if user.Policies[policy].Accepted {
				continue
			}
			at := now
			user.Policies[policy] = domain.PolicyAcceptance{Accepted: true, AcceptedAt: &at}
		} else {
			user.Policies[policy] = domain.PolicyAcceptance{}
		}
	}
	if !changed {
		return nil, fmt.Errorf("%w: no policy provided", domain.ErrInvalidInput)
	}

	return s.users.Update(ctx, uid, user)
}

// HasAcceptedPolicies reports whether uid accepted every required policy.
// An unknown user has accepted nothing.
func (s *AuthService) HasAcceptedPolicies(ctx context.Context, uid string) (bool, error) {
	user, err := s.GetUserByFirebaseUID(ctx, uid)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return false, nil
		}
		return false, err
	}
	return user.HasAcceptedAll(), nil
}

func mergePreferences(dst, src map[string]any) map[string]any {
	if len(src) == 0 {
		return dst
	}
	if dst == nil {
		dst = make(map[string]any, len(src))
	}
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
