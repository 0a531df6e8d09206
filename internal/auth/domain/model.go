package domain

import (
	"errors"
	"time"

	"github.com/idem-lexis/lexis-api/internal/storage"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrInvalidInput = errors.New("invalid user input")
)

// Policy names a document a user must accept before generating anything.
type Policy string

const (
	PolicyPrivacy          Policy = "privacyPolicy"
	PolicyTermsOfService   Policy = "termsOfService"
	PolicyBetaRestrictions Policy = "betaRestrictions"
)

// RequiredPolicies lists every policy gating generation routes.
func RequiredPolicies() []Policy {
	return []Policy{PolicyPrivacy, PolicyTermsOfService, PolicyBetaRestrictions}
}

// PolicyAcceptance records when a policy was accepted.
type PolicyAcceptance struct {
	Accepted   bool       `json:"accepted"`
	AcceptedAt *time.Time `json:"acceptedAt,omitempty"`
}

// User represents a user in the application.
// The record id is the Firebase UID.
type User struct {
	storage.Base
	Email        string                      `json:"email"`
	DisplayName  *string                     `json:"displayName,omitempty"`
	PhotoURL     *string                     `json:"photoUrl,omitempty"`
	Role         string                      `json:"role"`
	Organization *string                     `json:"organization,omitempty"`
	Preferences  map[string]any              `json:"preferences,omitempty"`
	Policies     map[Policy]PolicyAcceptance `json:"policies,omitempty"`
	LastLoginAt  *time.Time                  `json:"lastLoginAt,omitempty"`
}

// FirebaseUID returns the user's Firebase UID.
func (u *User) FirebaseUID() string { return u.ID }

// HasAcceptedAll reports whether every required policy is accepted.
func (u *User) HasAcceptedAll() bool {
	for _, p := range RequiredPolicies() {
		if !u.Policies[p].Accepted {
			return false
		}
	}
	return true
}

// CreateUserRequest represents data needed to create a new user
type CreateUserRequest struct {
	FirebaseUID  string
	Email        string
	DisplayName  *string
	PhotoURL     *string
	Organization *string
	Preferences  map[string]any
}

// UpdateUserRequest represents data for updating a user
type UpdateUserRequest struct {
	DisplayName  *string
	PhotoURL     *string
	Organization *string
	Preferences  map[string]any
}

// PolicyRequest carries the policies a user is accepting. Nil fields are left as they are.
type PolicyRequest struct {
	PrivacyPolicy    *bool `json:"privacyPolicy"`
	TermsOfService   *bool `json:"termsOfService"`
	BetaRestrictions *bool `json:"betaRestrictions"`
}

// Values maps the request onto policy names.
func (r PolicyRequest) Values() map[Policy]*bool {
	return map[Policy]*bool{
		PolicyPrivacy:          r.PrivacyPolicy,
		PolicyTermsOfService:   r.TermsOfService,
		PolicyBetaRestrictions: r.BetaRestrictions,
	}
}
