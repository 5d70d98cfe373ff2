package auth

import (
	"context"
	"errors"
	"time"

	datamodel "github.com/frahmantamala/identity-service/internal/core/datamodel/principal"
	"github.com/frahmantamala/identity-service/internal/principal"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDeactivated = errors.New("account deactivated")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrWrongPassword      = errors.New("current password is incorrect")
	ErrPasswordUnchanged  = errors.New("new password must differ from the current password")
)

// ServiceAPI is what the HTTP handler needs from the auth service.
type ServiceAPI interface {
	Login(ctx context.Context, kind datamodel.Kind, dto LoginDTO) (principal.Principal, string, error)
	RegisterUser(ctx context.Context, dto RegisterUserDTO) (principal.Principal, string, error)
	RegisterOperator(ctx context.Context, dto RegisterOperatorDTO) (principal.Principal, string, error)
	RegisterRootOperator(ctx context.Context, dto RegisterRootOperatorDTO) (principal.Principal, string, error)
	GetByID(ctx context.Context, kind datamodel.Kind, id string) (principal.Principal, error)
	ChangePassword(ctx context.Context, p principal.Principal, dto ChangePasswordDTO) error
	ListUsers(ctx context.Context) ([]principal.Principal, error)
	ListOperators(ctx context.Context) ([]principal.Principal, error)
	SetOperatorActive(ctx context.Context, id string, active bool) error
	SetOperatorPermissions(ctx context.Context, id string, permissions []string) error
}

// TokenResolver resolves a bearer token back to its claims. Implemented by
// SessionIssuer; split out so middleware tests can stub it.
type TokenResolver interface {
	Resolve(token string) (*Claims, error)
}

// ImageView is the only image representation that leaves the service.
type ImageView struct {
	PublicID string `json:"public_id,omitempty"`
	URL      string `json:"url"`
}

// PrincipalView is the serializable projection of a principal. Password
// hashes and OTP state never pass through here.
type PrincipalView struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	PhoneNumber string     `json:"phone_number,omitempty"`
	Role        string     `json:"role"`
	Image       ImageView  `json:"image"`
	IsActive    bool       `json:"is_active"`
	LastLogin   *time.Time `json:"last_login,omitempty"`
	Permissions []string   `json:"permissions,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func NewPrincipalView(p principal.Principal) PrincipalView {
	acct := p.Base()
	view := PrincipalView{
		ID:          acct.ID,
		Name:        acct.Name,
		Email:       acct.Email,
		PhoneNumber: acct.PhoneNumber,
		Role:        string(principal.RoleOf(p)),
		Image: ImageView{
			PublicID: acct.ImagePublicID,
			URL:      acct.AvatarURL(),
		},
		IsActive:  acct.IsActive,
		LastLogin: acct.LastLogin,
		CreatedAt: acct.CreatedAt,
	}
	if perms := principal.Permissions(p); perms != nil {
		view.Permissions = []string(perms)
	}
	return view
}

func NewPrincipalViews(ps []principal.Principal) []PrincipalView {
	views := make([]PrincipalView, len(ps))
	for i, p := range ps {
		views[i] = NewPrincipalView(p)
	}
	return views
}
