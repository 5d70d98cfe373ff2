package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	datamodel "github.com/frahmantamala/identity-service/internal/core/datamodel/principal"
	"github.com/frahmantamala/identity-service/internal/principal"
	"gorm.io/gorm"
)

// NewStores wires one store per principal kind over a shared gorm handle.
// Directory order here is also the default cross-store search order.
func NewStores(db *gorm.DB) (*UserStore, *OperatorStore, *RootOperatorStore) {
	return &UserStore{db: db}, &OperatorStore{db: db}, &RootOperatorStore{db: db}
}

type UserStore struct{ db *gorm.DB }

func (s *UserStore) Kind() datamodel.Kind { return datamodel.KindUser }

func (s *UserStore) Create(ctx context.Context, p principal.Principal) error {
	u, err := asUser(p)
	if err != nil {
		return err
	}
	return createWithClaims(ctx, s.db, u)
}

func (s *UserStore) GetByID(ctx context.Context, id string) (principal.Principal, error) {
	return first[datamodel.User](ctx, s.db, "id = ?", id)
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (principal.Principal, error) {
	return first[datamodel.User](ctx, s.db, "email = ?", principal.NormalizeEmail(email))
}

func (s *UserStore) GetByPhone(ctx context.Context, phone string) (principal.Principal, error) {
	return first[datamodel.User](ctx, s.db, "phone_number = ?", principal.NormalizePhone(phone))
}

func (s *UserStore) List(ctx context.Context) ([]principal.Principal, error) {
	return list[datamodel.User](ctx, s.db)
}

func (s *UserStore) Update(ctx context.Context, p principal.Principal) error {
	u, err := asUser(p)
	if err != nil {
		return err
	}
	return saveWithClaims(ctx, s.db, u)
}

func (s *UserStore) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return updatePassword(ctx, s.db, &datamodel.User{}, id, passwordHash)
}

func (s *UserStore) SetOTP(ctx context.Context, id, code string, expires time.Time) error {
	return setOTP(ctx, s.db, &datamodel.User{}, id, code, expires)
}

func (s *UserStore) ClearOTP(ctx context.Context, id string) error {
	return clearOTP(ctx, s.db, &datamodel.User{}, id)
}

func (s *UserStore) SetLastLogin(ctx context.Context, id string, at time.Time) error {
	return setLastLogin(ctx, s.db, &datamodel.User{}, id, at)
}

type OperatorStore struct{ db *gorm.DB }

func (s *OperatorStore) Kind() datamodel.Kind { return datamodel.KindOperator }

func (s *OperatorStore) Create(ctx context.Context, p principal.Principal) error {
	op, err := asOperator(p)
	if err != nil {
		return err
	}
	return createWithClaims(ctx, s.db, op)
}

func (s *OperatorStore) GetByID(ctx context.Context, id string) (principal.Principal, error) {
	return first[datamodel.Operator](ctx, s.db, "id = ?", id)
}

func (s *OperatorStore) GetByEmail(ctx context.Context, email string) (principal.Principal, error) {
	return first[datamodel.Operator](ctx, s.db, "email = ?", principal.NormalizeEmail(email))
}

func (s *OperatorStore) GetByPhone(ctx context.Context, phone string) (principal.Principal, error) {
	return first[datamodel.Operator](ctx, s.db, "phone_number = ?", principal.NormalizePhone(phone))
}

func (s *OperatorStore) List(ctx context.Context) ([]principal.Principal, error) {
	return list[datamodel.Operator](ctx, s.db)
}

func (s *OperatorStore) Update(ctx context.Context, p principal.Principal) error {
	op, err := asOperator(p)
	if err != nil {
		return err
	}
	return saveWithClaims(ctx, s.db, op)
}

func (s *OperatorStore) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return updatePassword(ctx, s.db, &datamodel.Operator{}, id, passwordHash)
}

func (s *OperatorStore) SetOTP(ctx context.Context, id, code string, expires time.Time) error {
	return setOTP(ctx, s.db, &datamodel.Operator{}, id, code, expires)
}

func (s *OperatorStore) ClearOTP(ctx context.Context, id string) error {
	return clearOTP(ctx, s.db, &datamodel.Operator{}, id)
}

func (s *OperatorStore) SetLastLogin(ctx context.Context, id string, at time.Time) error {
	return setLastLogin(ctx, s.db, &datamodel.Operator{}, id, at)
}

// SetActive toggles the deactivation flag checked at operator login.
func (s *OperatorStore) SetActive(ctx context.Context, id string, active bool) error {
	return updateColumns(ctx, s.db, &datamodel.Operator{}, id, map[string]any{"is_active": active})
}

// SetPermissions replaces the operator's capability set.
func (s *OperatorStore) SetPermissions(ctx context.Context, id string, perms datamodel.PermissionList) error {
	return updateColumns(ctx, s.db, &datamodel.Operator{}, id, map[string]any{"permissions": perms})
}

type RootOperatorStore struct{ db *gorm.DB }

func (s *RootOperatorStore) Kind() datamodel.Kind { return datamodel.KindRootOperator }

func (s *RootOperatorStore) Create(ctx context.Context, p principal.Principal) error {
	root, err := asRootOperator(p)
	if err != nil {
		return err
	}
	return createWithClaims(ctx, s.db, root)
}

func (s *RootOperatorStore) GetByID(ctx context.Context, id string) (principal.Principal, error) {
	return first[datamodel.RootOperator](ctx, s.db, "id = ?", id)
}

func (s *RootOperatorStore) GetByEmail(ctx context.Context, email string) (principal.Principal, error) {
	return first[datamodel.RootOperator](ctx, s.db, "email = ?", principal.NormalizeEmail(email))
}

func (s *RootOperatorStore) GetByPhone(ctx context.Context, phone string) (principal.Principal, error) {
	return first[datamodel.RootOperator](ctx, s.db, "phone_number = ?", principal.NormalizePhone(phone))
}

func (s *RootOperatorStore) List(ctx context.Context) ([]principal.Principal, error) {
	return list[datamodel.RootOperator](ctx, s.db)
}

func (s *RootOperatorStore) Update(ctx context.Context, p principal.Principal) error {
	root, err := asRootOperator(p)
	if err != nil {
		return err
	}
	return saveWithClaims(ctx, s.db, root)
}

func (s *RootOperatorStore) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return updatePassword(ctx, s.db, &datamodel.RootOperator{}, id, passwordHash)
}

func (s *RootOperatorStore) SetOTP(ctx context.Context, id, code string, expires time.Time) error {
	return setOTP(ctx, s.db, &datamodel.RootOperator{}, id, code, expires)
}

func (s *RootOperatorStore) ClearOTP(ctx context.Context, id string) error {
	return clearOTP(ctx, s.db, &datamodel.RootOperator{}, id)
}

func (s *RootOperatorStore) SetLastLogin(ctx context.Context, id string, at time.Time) error {
	return setLastLogin(ctx, s.db, &datamodel.RootOperator{}, id, at)
}

// ----------------- shared helpers -----------------

type record interface {
	principal.Principal
}

func first[T any, PT interface {
	*T
	principal.Principal
}](ctx context.Context, db *gorm.DB, query string, args ...any) (principal.Principal, error) {
	var rec T
	if err := db.WithContext(ctx).Where(query, args...).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, principal.ErrNotFound
		}
		return nil, err
	}
	return PT(&rec), nil
}

func list[T any, PT interface {
	*T
	principal.Principal
}](ctx context.Context, db *gorm.DB) ([]principal.Principal, error) {
	var recs []T
	if err := db.WithContext(ctx).Order("created_at").Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]principal.Principal, len(recs))
	for i := range recs {
		out[i] = PT(&recs[i])
	}
	return out, nil
}

func createWithClaims(ctx context.Context, db *gorm.DB, p principal.Principal) error {
	acct := p.Base()
	acct.Email = principal.NormalizeEmail(acct.Email)
	acct.PhoneNumber = principal.NormalizePhone(acct.PhoneNumber)
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(p).Error; err != nil {
			return translateDuplicate(err)
		}
		return principal.ClaimIdentifiers(tx, p)
	})
}

func saveWithClaims(ctx context.Context, db *gorm.DB, p principal.Principal) error {
	acct := p.Base()
	acct.Email = principal.NormalizeEmail(acct.Email)
	acct.PhoneNumber = principal.NormalizePhone(acct.PhoneNumber)
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Save would fall back to an insert when no row matches; Updates with
		// an explicit column set keeps this a pure update.
		res := tx.Model(p).Select("*").Omit("id", "created_at").Updates(p)
		if res.Error != nil {
			return translateDuplicate(res.Error)
		}
		if res.RowsAffected == 0 {
			return principal.ErrNotFound
		}
		return principal.ClaimIdentifiers(tx, p)
	})
}

func updatePassword(ctx context.Context, db *gorm.DB, model record, id, passwordHash string) error {
	return updateColumns(ctx, db, model, id, map[string]any{"password_hash": passwordHash})
}

func setOTP(ctx context.Context, db *gorm.DB, model record, id, code string, expires time.Time) error {
	return updateColumns(ctx, db, model, id, map[string]any{"otp": code, "otp_expires": expires})
}

func clearOTP(ctx context.Context, db *gorm.DB, model record, id string) error {
	return updateColumns(ctx, db, model, id, map[string]any{"otp": nil, "otp_expires": nil})
}

func setLastLogin(ctx context.Context, db *gorm.DB, model record, id string, at time.Time) error {
	return updateColumns(ctx, db, model, id, map[string]any{"last_login": at})
}

func updateColumns(ctx context.Context, db *gorm.DB, model record, id string, cols map[string]any) error {
	res := db.WithContext(ctx).Model(model).Where("id = ?", id).Updates(cols)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return principal.ErrNotFound
	}
	return nil
}

func translateDuplicate(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return principal.ErrEmailTaken
	}
	return err
}

func asUser(p principal.Principal) (*datamodel.User, error) {
	if u, ok := p.(*datamodel.User); ok {
		return u, nil
	}
	return nil, fmt.Errorf("expected user record, got %T", p)
}

func asOperator(p principal.Principal) (*datamodel.Operator, error) {
	if op, ok := p.(*datamodel.Operator); ok {
		return op, nil
	}
	return nil, fmt.Errorf("expected operator record, got %T", p)
}

func asRootOperator(p principal.Principal) (*datamodel.RootOperator, error) {
	if root, ok := p.(*datamodel.RootOperator); ok {
		return root, nil
	}
	return nil, fmt.Errorf("expected root operator record, got %T", p)
}
