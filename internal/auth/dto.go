package auth

import (
	errors "github.com/frahmantamala/identity-service/internal"
	"github.com/frahmantamala/identity-service/internal/core/common/validation"
	datamodel "github.com/frahmantamala/identity-service/internal/core/datamodel/principal"
)

// LoginDTO is the transport shape accepted by every login endpoint.
type LoginDTO struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (d LoginDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("email", d.Email).Required()
	v.Field("password", d.Password).Required()
	return v.Validate()
}

type RegisterUserDTO struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	PhoneNumber string `json:"phone_number"`
}

// Validate applies the user entry point rules; phone must be E.164.
func (d RegisterUserDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("name", d.Name).Required().MinLength(2).MaxLength(50)
	v.Field("email", d.Email).Required().Email()
	v.Field("password", d.Password).Required().MinLength(8).MaxLength(72)
	v.Field("phone_number", d.PhoneNumber).Required().PhoneE164()
	return v.Validate()
}

type RegisterOperatorDTO struct {
	Name        string   `json:"name"`
	Email       string   `json:"email"`
	Password    string   `json:"password"`
	PhoneNumber string   `json:"phone_number"`
	Permissions []string `json:"permissions"`
}

// Validate applies the operator entry point rules; the phone pattern here is
// looser than the user one and the capability set must be a non-empty subset
// of the known domains.
func (d RegisterOperatorDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("name", d.Name).Required().MinLength(2).MaxLength(50)
	v.Field("email", d.Email).Required().Email()
	v.Field("password", d.Password).Required().MinLength(8).MaxLength(72)
	v.Field("phone_number", d.PhoneNumber).Required().Phone()
	v.Field("permissions", d.Permissions).Required().
		OneOf(datamodel.ValidCapability, errors.ErrCodeInvalidCapability)
	return v.Validate()
}

type RegisterRootOperatorDTO struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	PhoneNumber string `json:"phone_number"`
}

// Validate for root operators: phone is optional but must be structurally
// valid when present.
func (d RegisterRootOperatorDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("name", d.Name).Required().MinLength(2).MaxLength(50)
	v.Field("email", d.Email).Required().Email()
	v.Field("password", d.Password).Required().MinLength(8).MaxLength(72)
	v.Field("phone_number", d.PhoneNumber).Phone()
	return v.Validate()
}

type ChangePasswordDTO struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (d ChangePasswordDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("current_password", d.CurrentPassword).Required()
	v.Field("new_password", d.NewPassword).Required().MinLength(8).MaxLength(72)
	return v.Validate()
}

type SetActiveDTO struct {
	IsActive *bool `json:"is_active"`
}

func (d SetActiveDTO) Validate() *errors.AppError {
	if d.IsActive == nil {
		return errors.NewValidationFieldError("is_active", "is_active is required", errors.ErrCodeValidationFailed)
	}
	return nil
}

type SetPermissionsDTO struct {
	Permissions []string `json:"permissions"`
}

func (d SetPermissionsDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("permissions", d.Permissions).Required().
		OneOf(datamodel.ValidCapability, errors.ErrCodeInvalidCapability)
	return v.Validate()
}
