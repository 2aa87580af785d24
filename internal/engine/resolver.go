package engine

import (
	"errors"
	"fmt"

	"github.com/Bakary221/Om-Pay/internal/models"
	"gorm.io/gorm"
)

// Target is the resolved destination of a payment. Exactly one concrete
// type is returned: MerchantTarget or AccountTarget.
type Target interface {
	target()
}

type MerchantTarget struct {
	Merchant *models.Merchant
}

type AccountTarget struct {
	Account *models.Account
}

func (MerchantTarget) target() {}
func (AccountTarget) target()  {}

// resolveDestination maps a free-text identifier to a merchant or an
// account. Merchant codes are checked before phone numbers; a merchant
// code that collides with a phone number resolves to the merchant. This
// ordering is load-bearing and must not change.
func resolveDestination(tx *gorm.DB, identifier string) (Target, error) {
	var merchant models.Merchant
	err := tx.Where("code = ?", identifier).First(&merchant).Error
	if err == nil {
		return MerchantTarget{Merchant: &merchant}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("merchant lookup: %w", err)
	}

	account, err := accountByPhone(tx, identifier)
	if err == nil {
		return AccountTarget{Account: account}, nil
	}
	if errors.Is(err, ErrDestinationNotFound) {
		return nil, ErrDestinationNotFound
	}
	return nil, err
}

// accountByPhone finds the account whose owning user has the given phone
// number. Transfers resolve through this path only, never via merchants.
func accountByPhone(tx *gorm.DB, phone string) (*models.Account, error) {
	var account models.Account
	err := tx.Joins("JOIN users ON users.id = accounts.user_id").
		Where("users.phone = ?", phone).
		First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDestinationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("account lookup: %w", err)
	}
	return &account, nil
}
