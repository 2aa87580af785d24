package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type UserKind string

const (
	UserClient   UserKind = "client"
	UserMerchant UserKind = "merchant"
)

type UserStatus string

const (
	UserActive   UserStatus = "active"
	UserInactive UserStatus = "inactive"
)

type TransactionKind string

const (
	KindDeposit  TransactionKind = "deposit"
	KindPayment  TransactionKind = "payment"
	KindTransfer TransactionKind = "transfer"
)

type TransactionStatus string

const (
	StatusPending    TransactionStatus = "pending"
	StatusSuccessful TransactionStatus = "successful"
	StatusFailed     TransactionStatus = "failed"
)

type User struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	LastName  string     `gorm:"size:50;not null" json:"last_name"`
	FirstName string     `gorm:"size:50;not null" json:"first_name"`
	Phone     string     `gorm:"uniqueIndex;size:20;not null" json:"phone"`
	Email     string     `gorm:"size:255" json:"email"`
	PINHash   string     `gorm:"size:255" json:"-"`
	Kind      UserKind   `gorm:"size:16;not null;default:client" json:"kind"`
	Status    UserStatus `gorm:"size:16;not null;default:inactive" json:"status"`
	Verified  bool       `gorm:"not null;default:false" json:"verified"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// Account carries no balance column: the balance is derived from the
// successful transactions that reference it.
type Account struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	Number    string    `gorm:"uniqueIndex;size:20;not null" json:"number"`
	QRPayload *string   `gorm:"type:text" json:"qr_payload,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (a *Account) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

type Merchant struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	Code         string    `gorm:"uniqueIndex;size:20;not null" json:"code"`
	BusinessName string    `gorm:"size:100;not null" json:"business_name"`
	Category     *string   `gorm:"size:50" json:"category,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (m *Merchant) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// Transaction is an immutable ledger record. A deposit sets only the
// recipient account, a merchant payment sets sender + merchant, a peer
// payment and a transfer set both accounts.
type Transaction struct {
	ID                 uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	Reference          string            `gorm:"uniqueIndex;size:32;not null" json:"reference"`
	Kind               TransactionKind   `gorm:"size:16;index;not null" json:"kind"`
	Status             TransactionStatus `gorm:"size:16;index;not null" json:"status"`
	SenderAccountID    *uuid.UUID        `gorm:"type:uuid;index" json:"sender_account_id,omitempty"`
	RecipientAccountID *uuid.UUID        `gorm:"type:uuid;index" json:"recipient_account_id,omitempty"`
	MerchantID         *uuid.UUID        `gorm:"type:uuid;index" json:"merchant_id,omitempty"`
	Amount             decimal.Decimal   `gorm:"type:decimal(15,2);not null" json:"amount"`
	Fee                decimal.Decimal   `gorm:"type:decimal(10,2);not null" json:"fee"`
	Description        string            `gorm:"type:text" json:"description,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`

	SenderAccount    *Account  `gorm:"foreignKey:SenderAccountID" json:"sender_account,omitempty"`
	RecipientAccount *Account  `gorm:"foreignKey:RecipientAccountID" json:"recipient_account,omitempty"`
	Merchant         *Merchant `gorm:"foreignKey:MerchantID" json:"merchant,omitempty"`
}

func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
