package otp

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/frahmantamala/identity-service/internal/auth"
	datamodel "github.com/frahmantamala/identity-service/internal/core/datamodel/principal"
	"github.com/frahmantamala/identity-service/internal/mailer"
	"github.com/frahmantamala/identity-service/internal/principal"
)

// Scope names the recovery entry point. The two scopes search different
// principal kinds: the user scope only ever finds users, while the admin
// scope covers operators and root operators in that order.
type Scope string

const (
	ScopeUser  Scope = "user"
	ScopeAdmin Scope = "admin"
)

func (s Scope) kinds() []datamodel.Kind {
	if s == ScopeAdmin {
		return []datamodel.Kind{datamodel.KindOperator, datamodel.KindRootOperator}
	}
	return []datamodel.Kind{datamodel.KindUser}
}

// RequestResult reports a recovery request that found an account. Delivered
// is false when the account exists but the mail could not be sent; the code
// is stored either way and a later resend can still succeed.
type RequestResult struct {
	Delivered bool      `json:"delivered"`
	Expires   time.Time `json:"expires"`
}

// ServiceAPI is what the HTTP handler needs from the recovery service.
type ServiceAPI interface {
	Request(ctx context.Context, scope Scope, dto SendOTPDTO) (*RequestResult, error)
	Verify(ctx context.Context, scope Scope, dto VerifyOTPDTO) (string, error)
	Reset(ctx context.Context, dto ResetPasswordDTO) error
}

// Service runs the three-step password recovery flow: request a code, trade
// the code for a reset token, spend the token on a new password.
type Service struct {
	directory  *principal.Directory
	mail       mailer.Mailer
	resetToken *ResetTokenIssuer
	bcryptCost int
	logger     *slog.Logger

	// now is swapped out by tests to step through code expiry.
	now func() time.Time
}

// SetNow overrides the service clock. Test hook.
func (s *Service) SetNow(now func() time.Time) { s.now = now }

func NewService(directory *principal.Directory, mail mailer.Mailer, resetToken *ResetTokenIssuer, bcryptCost int, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		directory:  directory,
		mail:       mail,
		resetToken: resetToken,
		bcryptCost: bcryptCost,
		logger:     logger,
		now:        time.Now,
	}
}

// Request generates a fresh code for the account behind the email and mails
// it. A repeated request overwrites the previous code. Delivery failure is a
// partial success: the error is logged, not returned.
func (s *Service) Request(ctx context.Context, scope Scope, dto SendOTPDTO) (*RequestResult, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	p, err := s.directory.FindByEmail(ctx, dto.Email, scope.kinds()...)
	if err != nil {
		return nil, err
	}

	code, err := GenerateCode()
	if err != nil {
		return nil, err
	}

	expires := s.now().Add(CodeTTL)
	if err := s.directory.Store(p.Kind()).SetOTP(ctx, p.Base().ID, code, expires); err != nil {
		return nil, err
	}

	result := &RequestResult{Delivered: true, Expires: expires}
	if s.mail == nil {
		s.logger.Warn("mail delivery disabled, recovery code not sent", "principal_id", p.Base().ID)
		result.Delivered = false
		return result, nil
	}
	if err := s.mail.SendOTP(p.Base().Email, p.Base().Name, code); err != nil {
		s.logger.Error("recovery code delivery failed", "principal_id", p.Base().ID, "error", err)
		result.Delivered = false
	}
	return result, nil
}

// Verify checks the submitted code against the stored one and, on match,
// issues the reset token that the reset endpoint requires. The code stays
// stored; it is cleared only when the reset completes. An unknown email is
// reported as not found, same as Request.
func (s *Service) Verify(ctx context.Context, scope Scope, dto VerifyOTPDTO) (string, error) {
	if err := dto.Validate(); err != nil {
		return "", err
	}

	p, err := s.directory.FindByEmail(ctx, dto.Email, scope.kinds()...)
	if err != nil {
		return "", err
	}

	if !s.codeMatches(p, dto.Code) {
		return "", ErrCodeInvalid
	}

	return s.resetToken.Issue(p.Base().ID, p.Kind(), dto.Code, s.now(), *p.Base().OTPExpires)
}

// Reset spends a reset token on a new password. The token is valid only
// while the code it was issued for is still the stored one; clearing the
// code on success makes the token single use.
func (s *Service) Reset(ctx context.Context, dto ResetPasswordDTO) error {
	if err := dto.Validate(); err != nil {
		return err
	}
	if dto.NewPassword != dto.ConfirmPassword {
		return ErrPasswordMismatch
	}

	claims, err := s.resetToken.Resolve(dto.ResetToken)
	if err != nil {
		return err
	}

	store := s.directory.Store(datamodel.Kind(claims.Kind))
	if store == nil {
		return ErrResetTokenInvalid
	}

	p, err := store.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, principal.ErrNotFound) {
			return ErrResetTokenInvalid
		}
		return err
	}

	acct := p.Base()
	if acct.OTP == nil || acct.OTPExpires == nil || s.now().After(*acct.OTPExpires) {
		return ErrResetTokenInvalid
	}
	if !codeHashEqual(HashCode(*acct.OTP), claims.CodeHash) {
		return ErrResetTokenInvalid
	}

	if auth.VerifyPassword(acct.PasswordHash, dto.NewPassword) {
		return auth.ErrPasswordUnchanged
	}

	hash, err := auth.HashPassword(dto.NewPassword, s.bcryptCost)
	if err != nil {
		return err
	}

	// Clear the code before touching the hash: once consumption is recorded
	// the token can never be replayed, even if the write below fails.
	if err := store.ClearOTP(ctx, acct.ID); err != nil {
		return err
	}
	return store.UpdatePassword(ctx, acct.ID, hash)
}

func (s *Service) codeMatches(p principal.Principal, code string) bool {
	acct := p.Base()
	if acct.OTP == nil || acct.OTPExpires == nil {
		return false
	}
	if s.now().After(*acct.OTPExpires) {
		return false
	}
	return codeHashEqual(HashCode(*acct.OTP), HashCode(code))
}
