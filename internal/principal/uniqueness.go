package principal

import (
	"context"
	"errors"
	"strings"

	datamodel "github.com/frahmantamala/identity-service/internal/core/datamodel/principal"
	"gorm.io/gorm"
)

// IdentifierField names which contact identifier a uniqueness check covers.
type IdentifierField string

const (
	FieldEmail IdentifierField = datamodel.ClaimFieldEmail
	FieldPhone IdentifierField = datamodel.ClaimFieldPhone
)

// Uniqueness enforces the global contact-identifier invariant: at most one
// principal across all three stores may hold a given email or phone number.
//
// CheckAvailable is a read-side fast path that produces friendly conflicts
// before any write. The claim index written by ClaimIdentifiers inside the
// principal's own transaction is authoritative; two concurrent registrations
// that both pass the fast path still serialize on the unique index.
type Uniqueness struct {
	directory *Directory
}

func NewUniqueness(directory *Directory) *Uniqueness {
	return &Uniqueness{directory: directory}
}

// CheckAvailable fans a lookup out over every store, optionally excluding the
// record being updated. Returns ErrEmailTaken/ErrPhoneTaken on a hit.
func (u *Uniqueness) CheckAvailable(ctx context.Context, field IdentifierField, value, excludeID string) error {
	if strings.TrimSpace(value) == "" {
		return nil
	}

	var (
		match Principal
		err   error
	)
	switch field {
	case FieldEmail:
		match, err = u.directory.FindByEmail(ctx, value)
	case FieldPhone:
		match, err = u.directory.FindByPhone(ctx, value)
	default:
		return nil
	}

	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	if excludeID != "" && match.Base().ID == excludeID {
		return nil
	}
	return takenError(field)
}

// ClaimIdentifiers replaces the claim rows for a principal inside tx. Must
// run in the same transaction as the principal insert/update so a duplicate
// identifier rolls the whole operation back.
func ClaimIdentifiers(tx *gorm.DB, p Principal) error {
	acct := p.Base()

	if err := tx.Where("principal_kind = ? AND principal_id = ?", p.Kind(), acct.ID).
		Delete(&datamodel.IdentityClaim{}).Error; err != nil {
		return err
	}

	claims := make([]datamodel.IdentityClaim, 0, 2)
	if email := NormalizeEmail(acct.Email); email != "" {
		claims = append(claims, datamodel.IdentityClaim{
			Value:         email,
			Field:         datamodel.ClaimFieldEmail,
			PrincipalKind: p.Kind(),
			PrincipalID:   acct.ID,
		})
	}
	if phone := NormalizePhone(acct.PhoneNumber); phone != "" {
		claims = append(claims, datamodel.IdentityClaim{
			Value:         phone,
			Field:         datamodel.ClaimFieldPhone,
			PrincipalKind: p.Kind(),
			PrincipalID:   acct.ID,
		})
	}

	for i := range claims {
		if err := tx.Create(&claims[i]).Error; err != nil {
			if isDuplicateError(err) {
				return takenError(IdentifierField(claims[i].Field))
			}
			return err
		}
	}
	return nil
}

// ReleaseIdentifiers drops the claim rows for a principal. Callers that
// delete principal records run this in the same transaction.
func ReleaseIdentifiers(tx *gorm.DB, kind datamodel.Kind, principalID string) error {
	return tx.Where("principal_kind = ? AND principal_id = ?", kind, principalID).
		Delete(&datamodel.IdentityClaim{}).Error
}

func takenError(field IdentifierField) error {
	if field == FieldPhone {
		return ErrPhoneTaken
	}
	return ErrEmailTaken
}

// isDuplicateError recognizes unique-constraint violations from both the
// postgres and sqlite drivers without importing either.
func isDuplicateError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "unique failed")
}
