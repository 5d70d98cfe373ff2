package principal

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"net/url"
	"time"
)

// Kind identifies which of the three principal variants a record belongs to.
type Kind string

const (
	KindUser         Kind = "user"
	KindOperator     Kind = "operator"
	KindRootOperator Kind = "root_operator"
)

// Role is the authorization role carried in session tokens. Roles are fixed
// per kind and never independently mutable.
type Role string

const (
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "superadmin"
)

func (k Kind) Role() Role {
	switch k {
	case KindOperator:
		return RoleAdmin
	case KindRootOperator:
		return RoleSuperAdmin
	default:
		return RoleUser
	}
}

// KindForRole maps a token role back to the store that owns the principal.
func KindForRole(r Role) (Kind, error) {
	switch r {
	case RoleUser:
		return KindUser, nil
	case RoleAdmin:
		return KindOperator, nil
	case RoleSuperAdmin:
		return KindRootOperator, nil
	}
	return "", fmt.Errorf("unknown role %q", r)
}

// Capabilities an operator may hold. Each names a resource domain of the
// wider product; the backing CRUD handlers live outside this service.
const (
	CapabilityUsers        = "Users"
	CapabilityCategories   = "Categories"
	CapabilityFiles        = "Files"
	CapabilityProducts     = "Products"
	CapabilityQuotations   = "Quotations"
	CapabilityContactUs    = "Contact-us"
	CapabilityGallery      = "Gallery"
	CapabilityVideoGallery = "VideoGallery"
	CapabilityPosts        = "Posts"
	CapabilityCvs          = "Cvs"
)

var AllCapabilities = []string{
	CapabilityUsers,
	CapabilityCategories,
	CapabilityFiles,
	CapabilityProducts,
	CapabilityQuotations,
	CapabilityContactUs,
	CapabilityGallery,
	CapabilityVideoGallery,
	CapabilityPosts,
	CapabilityCvs,
}

func ValidCapability(name string) bool {
	for _, c := range AllCapabilities {
		if c == name {
			return true
		}
	}
	return false
}

// Account holds the columns shared by all three principal tables.
// PasswordHash, OTP and OTPExpires must never appear in any serialized output.
type Account struct {
	ID            string     `gorm:"column:id;primaryKey" json:"id"`
	Name          string     `gorm:"column:name;not null" json:"name"`
	Email         string     `gorm:"column:email;uniqueIndex;not null" json:"email"`
	PasswordHash  string     `gorm:"column:password_hash;not null" json:"-"`
	PhoneNumber   string     `gorm:"column:phone_number" json:"phone_number"`
	ImagePublicID string     `gorm:"column:image_public_id" json:"-"`
	ImageURL      string     `gorm:"column:image_url" json:"-"`
	IsActive      bool       `gorm:"column:is_active;default:true" json:"is_active"`
	LastLogin     *time.Time `gorm:"column:last_login" json:"last_login,omitempty"`
	OTP           *string    `gorm:"column:otp" json:"-"`
	OTPExpires    *time.Time `gorm:"column:otp_expires" json:"-"`
	CreatedAt     time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"column:updated_at" json:"updated_at"`
}

// Base exposes the shared columns through the principal interface.
func (a *Account) Base() *Account { return a }

// AvatarURL returns the stored image URL, or a deterministic placeholder
// derived from the account name when no image was uploaded.
func (a *Account) AvatarURL() string {
	if a.ImageURL != "" {
		return a.ImageURL
	}
	return PlaceholderAvatarURL(a.Name)
}

func PlaceholderAvatarURL(name string) string {
	return "https://ui-avatars.com/api/?background=random&name=" + url.QueryEscape(name)
}

// PermissionList is stored as a JSON-encoded text column so the same model
// works against postgres and the sqlite test driver.
type PermissionList []string

func (p PermissionList) Value() (driver.Value, error) {
	if p == nil {
		p = PermissionList{}
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (p *PermissionList) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*p = nil
		return nil
	case []byte:
		return json.Unmarshal(v, p)
	case string:
		return json.Unmarshal([]byte(v), p)
	}
	return fmt.Errorf("unsupported permission list source %T", src)
}

func (p PermissionList) Contains(name string) bool {
	for _, held := range p {
		if held == name {
			return true
		}
	}
	return false
}

// ContainsAny reports whether the list intersects the required set. Holding
// any one of the required capabilities is sufficient.
func (p PermissionList) ContainsAny(required []string) bool {
	for _, want := range required {
		if p.Contains(want) {
			return true
		}
	}
	return false
}

// User is an end-user account.
type User struct {
	Account `gorm:"embedded"`
}

func (User) TableName() string { return "users" }

func (*User) Kind() Kind { return KindUser }

// Operator is a capability-scoped administrative account.
type Operator struct {
	Account     `gorm:"embedded"`
	Permissions PermissionList `gorm:"column:permissions;type:text" json:"permissions"`
}

func (Operator) TableName() string { return "operators" }

func (*Operator) Kind() Kind { return KindOperator }

// RootOperator is an unrestricted administrative account.
type RootOperator struct {
	Account `gorm:"embedded"`
}

func (RootOperator) TableName() string { return "root_operators" }

func (*RootOperator) Kind() Kind { return KindRootOperator }

// IdentityClaim is the authoritative uniqueness index for contact
// identifiers. One row exists per claimed email/phone across all three
// principal tables; the unique index on value is what makes concurrent
// registrations with the same identifier lose deterministically.
type IdentityClaim struct {
	ID            int64     `gorm:"column:id;primaryKey"`
	Value         string    `gorm:"column:value;uniqueIndex;not null"`
	Field         string    `gorm:"column:field;not null"`
	PrincipalKind Kind      `gorm:"column:principal_kind;not null"`
	PrincipalID   string    `gorm:"column:principal_id;index;not null"`
	CreatedAt     time.Time `gorm:"column:created_at"`
}

func (IdentityClaim) TableName() string { return "identity_claims" }

const (
	ClaimFieldEmail = "email"
	ClaimFieldPhone = "phone"
)
