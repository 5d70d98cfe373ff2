package principal

import (
	"context"
	"errors"
	"strings"
	"time"

	datamodel "github.com/frahmantamala/identity-service/internal/core/datamodel/principal"
)

var (
	ErrNotFound   = errors.New("principal not found")
	ErrEmailTaken = errors.New("email already in use")
	ErrPhoneTaken = errors.New("phone number already in use")
)

// Principal is any record from one of the three backing stores. The concrete
// types are the datamodel User/Operator/RootOperator.
type Principal interface {
	Kind() datamodel.Kind
	Base() *datamodel.Account
}

// RoleOf returns the fixed role for a principal's kind.
func RoleOf(p Principal) datamodel.Role {
	return p.Kind().Role()
}

// Permissions returns the capability set for operators and nil for every
// other kind (root operators are unrestricted, users hold none).
func Permissions(p Principal) datamodel.PermissionList {
	if op, ok := p.(*datamodel.Operator); ok {
		return op.Permissions
	}
	return nil
}

// Store is the per-kind persistence interface. Each kind keeps its own
// table; shared behavior is written once against this interface.
type Store interface {
	Kind() datamodel.Kind
	Create(ctx context.Context, p Principal) error
	GetByID(ctx context.Context, id string) (Principal, error)
	GetByEmail(ctx context.Context, email string) (Principal, error)
	GetByPhone(ctx context.Context, phone string) (Principal, error)
	List(ctx context.Context) ([]Principal, error)
	Update(ctx context.Context, p Principal) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	SetOTP(ctx context.Context, id, code string, expires time.Time) error
	ClearOTP(ctx context.Context, id string) error
	SetLastLogin(ctx context.Context, id string, at time.Time) error
}

// Directory fans lookups out across the registered kind stores in a fixed
// order. Callers name the kinds they want searched; the OTP entry points use
// this to keep their asymmetric search sets.
type Directory struct {
	stores map[datamodel.Kind]Store
	order  []datamodel.Kind
}

func NewDirectory(stores ...Store) *Directory {
	d := &Directory{stores: make(map[datamodel.Kind]Store, len(stores))}
	for _, s := range stores {
		if _, dup := d.stores[s.Kind()]; dup {
			continue
		}
		d.stores[s.Kind()] = s
		d.order = append(d.order, s.Kind())
	}
	return d
}

func (d *Directory) Store(kind datamodel.Kind) Store {
	return d.stores[kind]
}

func (d *Directory) Kinds() []datamodel.Kind {
	out := make([]datamodel.Kind, len(d.order))
	copy(out, d.order)
	return out
}

// FindByEmail searches the named kinds in the given order and returns the
// first match. With no kinds it searches every registered store.
func (d *Directory) FindByEmail(ctx context.Context, email string, kinds ...datamodel.Kind) (Principal, error) {
	return d.find(ctx, kinds, func(s Store) (Principal, error) {
		return s.GetByEmail(ctx, NormalizeEmail(email))
	})
}

// FindByPhone is the phone-number counterpart of FindByEmail.
func (d *Directory) FindByPhone(ctx context.Context, phone string, kinds ...datamodel.Kind) (Principal, error) {
	return d.find(ctx, kinds, func(s Store) (Principal, error) {
		return s.GetByPhone(ctx, NormalizePhone(phone))
	})
}

func (d *Directory) find(ctx context.Context, kinds []datamodel.Kind, lookup func(Store) (Principal, error)) (Principal, error) {
	if len(kinds) == 0 {
		kinds = d.order
	}
	for _, kind := range kinds {
		store, ok := d.stores[kind]
		if !ok {
			continue
		}
		p, err := lookup(store)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}
	return nil, ErrNotFound
}

// NormalizeEmail lower-cases and trims an email for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizePhone strips spaces, dashes and parentheses so that equivalent
// entries collide in the claim index.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(phone) {
		switch r {
		case ' ', '-', '(', ')':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
