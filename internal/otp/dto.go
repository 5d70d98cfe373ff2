package otp

import (
	errors "github.com/frahmantamala/identity-service/internal"
	"github.com/frahmantamala/identity-service/internal/core/common/validation"
)

type SendOTPDTO struct {
	Email string `json:"email"`
}

func (d SendOTPDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("email", d.Email).Required().Email()
	return v.Validate()
}

type VerifyOTPDTO struct {
	Email string `json:"email"`
	Code  string `json:"otp"`
}

func (d VerifyOTPDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("email", d.Email).Required().Email()
	v.Field("otp", d.Code).Required().MinLength(6).MaxLength(6)
	return v.Validate()
}

type ResetPasswordDTO struct {
	ResetToken      string `json:"reset_token"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

func (d ResetPasswordDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("reset_token", d.ResetToken).Required()
	v.Field("new_password", d.NewPassword).Required().MinLength(8).MaxLength(72)
	v.Field("confirm_password", d.ConfirmPassword).Required()
	return v.Validate()
}
