package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	datamodel "github.com/frahmantamala/identity-service/internal/core/datamodel/principal"
	"github.com/frahmantamala/identity-service/internal/principal"
)

// OperatorAdminStore covers the operator mutations reserved for root
// operators. Implemented by the operator gorm store.
type OperatorAdminStore interface {
	SetActive(ctx context.Context, id string, active bool) error
	SetPermissions(ctx context.Context, id string, permissions datamodel.PermissionList) error
}

// Service owns login, registration and credential maintenance for all three
// principal kinds.
type Service struct {
	directory  *principal.Directory
	uniqueness *principal.Uniqueness
	operators  OperatorAdminStore
	sessions   *SessionIssuer
	bcryptCost int
	logger     *slog.Logger
}

func NewService(directory *principal.Directory, uniqueness *principal.Uniqueness, operators OperatorAdminStore, sessions *SessionIssuer, bcryptCost int, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if bcryptCost <= 0 {
		bcryptCost = BCryptCost
	}
	return &Service{
		directory:  directory,
		uniqueness: uniqueness,
		operators:  operators,
		sessions:   sessions,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

// Login authenticates against a single kind's store. Unknown email and wrong
// password collapse into the same generic error; a deactivated operator is
// rejected even with correct credentials. Users and root operators are not
// subject to the deactivation check.
func (s *Service) Login(ctx context.Context, kind datamodel.Kind, dto LoginDTO) (principal.Principal, string, error) {
	if err := dto.Validate(); err != nil {
		return nil, "", err
	}

	store := s.directory.Store(kind)
	p, err := store.GetByEmail(ctx, dto.Email)
	if err != nil {
		return nil, "", ErrInvalidCredentials
	}

	if !VerifyPassword(p.Base().PasswordHash, dto.Password) {
		return nil, "", ErrInvalidCredentials
	}

	if kind == datamodel.KindOperator && !p.Base().IsActive {
		return nil, "", ErrAccountDeactivated
	}

	now := time.Now()
	if err := store.SetLastLogin(ctx, p.Base().ID, now); err != nil {
		s.logger.Warn("failed to record last login", "principal_id", p.Base().ID, "error", err)
	} else {
		p.Base().LastLogin = &now
	}

	token, err := s.sessions.Issue(p.Base().ID, principal.RoleOf(p))
	if err != nil {
		return nil, "", err
	}

	return p, token, nil
}

func (s *Service) RegisterUser(ctx context.Context, dto RegisterUserDTO) (principal.Principal, string, error) {
	if err := dto.Validate(); err != nil {
		return nil, "", err
	}

	user := &datamodel.User{Account: s.newAccount(dto.Name, dto.Email, dto.PhoneNumber)}
	return s.register(ctx, user, dto.Password)
}

func (s *Service) RegisterOperator(ctx context.Context, dto RegisterOperatorDTO) (principal.Principal, string, error) {
	if err := dto.Validate(); err != nil {
		return nil, "", err
	}

	op := &datamodel.Operator{
		Account:     s.newAccount(dto.Name, dto.Email, dto.PhoneNumber),
		Permissions: datamodel.PermissionList(dto.Permissions),
	}
	return s.register(ctx, op, dto.Password)
}

func (s *Service) RegisterRootOperator(ctx context.Context, dto RegisterRootOperatorDTO) (principal.Principal, string, error) {
	if err := dto.Validate(); err != nil {
		return nil, "", err
	}

	root := &datamodel.RootOperator{Account: s.newAccount(dto.Name, dto.Email, dto.PhoneNumber)}
	return s.register(ctx, root, dto.Password)
}

func (s *Service) newAccount(name, email, phone string) datamodel.Account {
	return datamodel.Account{
		ID:          uuid.NewString(),
		Name:        name,
		Email:       principal.NormalizeEmail(email),
		PhoneNumber: principal.NormalizePhone(phone),
		IsActive:    true,
	}
}

func (s *Service) register(ctx context.Context, p principal.Principal, password string) (principal.Principal, string, error) {
	acct := p.Base()

	if err := s.uniqueness.CheckAvailable(ctx, principal.FieldEmail, acct.Email, ""); err != nil {
		return nil, "", err
	}
	if err := s.uniqueness.CheckAvailable(ctx, principal.FieldPhone, acct.PhoneNumber, ""); err != nil {
		return nil, "", err
	}

	hash, err := HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, "", err
	}
	acct.PasswordHash = hash

	if err := s.directory.Store(p.Kind()).Create(ctx, p); err != nil {
		return nil, "", err
	}

	token, err := s.sessions.Issue(acct.ID, principal.RoleOf(p))
	if err != nil {
		return nil, "", err
	}

	return p, token, nil
}

func (s *Service) GetByID(ctx context.Context, kind datamodel.Kind, id string) (principal.Principal, error) {
	return s.directory.Store(kind).GetByID(ctx, id)
}

// ChangePassword verifies the current credential, requires the replacement to
// differ, and stores the new hash. Contact identifiers are untouched so no
// uniqueness check runs here.
func (s *Service) ChangePassword(ctx context.Context, p principal.Principal, dto ChangePasswordDTO) error {
	if err := dto.Validate(); err != nil {
		return err
	}

	acct := p.Base()
	if !VerifyPassword(acct.PasswordHash, dto.CurrentPassword) {
		return ErrWrongPassword
	}
	if VerifyPassword(acct.PasswordHash, dto.NewPassword) {
		return ErrPasswordUnchanged
	}

	hash, err := HashPassword(dto.NewPassword, s.bcryptCost)
	if err != nil {
		return err
	}

	return s.directory.Store(p.Kind()).UpdatePassword(ctx, acct.ID, hash)
}

func (s *Service) ListUsers(ctx context.Context) ([]principal.Principal, error) {
	return s.directory.Store(datamodel.KindUser).List(ctx)
}

func (s *Service) ListOperators(ctx context.Context) ([]principal.Principal, error) {
	return s.directory.Store(datamodel.KindOperator).List(ctx)
}

func (s *Service) SetOperatorActive(ctx context.Context, id string, active bool) error {
	return s.operators.SetActive(ctx, id, active)
}

func (s *Service) SetOperatorPermissions(ctx context.Context, id string, permissions []string) error {
	dto := SetPermissionsDTO{Permissions: permissions}
	if err := dto.Validate(); err != nil {
		return err
	}
	return s.operators.SetPermissions(ctx, id, datamodel.PermissionList(permissions))
}
