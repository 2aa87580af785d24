package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Bakary221/Om-Pay/internal/metrics"
	"github.com/Bakary221/Om-Pay/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// referenceAttempts bounds internal retries when a generated reference
// collides with an existing one.
const referenceAttempts = 3

// Engine orchestrates deposits, payments and transfers. Every money
// movement runs inside a single store transaction: the sender row is
// locked, the balance is derived and checked, and the record is written
// all-or-nothing. No other component writes transaction records.
type Engine struct {
	db      *gorm.DB
	policy  *Policy
	metrics *metrics.Collector
}

func New(db *gorm.DB, policy *Policy, collector *metrics.Collector) *Engine {
	return &Engine{db: db, policy: policy, metrics: collector}
}

// Deposit credits the account. One-sided: no sender, no fee, no balance
// check beyond the amount bounds.
func (e *Engine) Deposit(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) (*models.Transaction, error) {
	start := time.Now()
	var trx *models.Transaction
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := e.policy.CheckLimits(models.KindDeposit, amount); err != nil {
			return err
		}
		account, err := loadAccount(tx, accountID, false)
		if err != nil {
			return err
		}
		t := &models.Transaction{
			Kind:               models.KindDeposit,
			Status:             models.StatusSuccessful,
			RecipientAccountID: &account.ID,
			Amount:             amount,
			Fee:                decimal.Zero,
			Description:        "Cash deposit",
		}
		if err := createWithReference(tx, t); err != nil {
			return err
		}
		trx = t
		return nil
	})
	e.observe(models.KindDeposit, start, err)
	if err != nil {
		return nil, err
	}
	return trx, nil
}

// Pay debits the sender toward a destination identifier, resolved as a
// merchant code first and a phone number second. Free of charge on both
// branches.
func (e *Engine) Pay(ctx context.Context, senderAccountID uuid.UUID, destination string, amount decimal.Decimal) (*models.Transaction, error) {
	start := time.Now()
	var trx *models.Transaction
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := e.policy.CheckLimits(models.KindPayment, amount); err != nil {
			return err
		}
		sender, err := loadAccount(tx, senderAccountID, true)
		if err != nil {
			return err
		}

		target, err := resolveDestination(tx, destination)
		if err != nil {
			return err
		}

		t := &models.Transaction{
			Kind:            models.KindPayment,
			Status:          models.StatusSuccessful,
			SenderAccountID: &sender.ID,
			Amount:          amount,
		}
		switch dst := target.(type) {
		case MerchantTarget:
			t.MerchantID = &dst.Merchant.ID
			t.Description = fmt.Sprintf("Merchant payment %s", dst.Merchant.BusinessName)
		case AccountTarget:
			if dst.Account.ID == sender.ID {
				return ErrSelfTarget
			}
			t.RecipientAccountID = &dst.Account.ID
			t.Description = fmt.Sprintf("Payment to %s", dst.Account.Number)
		default:
			return fmt.Errorf("unhandled destination target %T", target)
		}

		t.Fee = e.policy.Fee(models.KindPayment, amount)

		if err := checkSufficiency(tx, sender.ID, amount.Add(t.Fee)); err != nil {
			return err
		}
		if err := createWithReference(tx, t); err != nil {
			return err
		}
		trx = t
		return nil
	})
	e.observe(models.KindPayment, start, err)
	if err != nil {
		return nil, err
	}
	return trx, nil
}

// Transfer moves money to another user's account, addressed by phone
// number only. The fee is tiered by amount and charged to the sender.
func (e *Engine) Transfer(ctx context.Context, senderAccountID uuid.UUID, destinationPhone string, amount decimal.Decimal) (*models.Transaction, error) {
	start := time.Now()
	var trx *models.Transaction
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := e.policy.CheckLimits(models.KindTransfer, amount); err != nil {
			return err
		}
		sender, err := loadAccount(tx, senderAccountID, true)
		if err != nil {
			return err
		}

		recipient, err := accountByPhone(tx, destinationPhone)
		if err != nil {
			return err
		}
		if recipient.ID == sender.ID {
			return ErrSelfTarget
		}

		fee := e.policy.Fee(models.KindTransfer, amount)
		if err := checkSufficiency(tx, sender.ID, amount.Add(fee)); err != nil {
			return err
		}

		t := &models.Transaction{
			Kind:               models.KindTransfer,
			Status:             models.StatusSuccessful,
			SenderAccountID:    &sender.ID,
			RecipientAccountID: &recipient.ID,
			Amount:             amount,
			Fee:                fee,
			Description:        fmt.Sprintf("Transfer to %s", recipient.Number),
		}
		if err := createWithReference(tx, t); err != nil {
			return err
		}
		trx = t
		return nil
	})
	e.observe(models.KindTransfer, start, err)
	if err != nil {
		return nil, err
	}
	return trx, nil
}

// ListTransactions pages through every transaction touching one of the
// user's accounts, most recent first.
func (e *Engine) ListTransactions(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]models.Transaction, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 15
	}

	var total int64
	if err := e.userTransactions(ctx, userID).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}

	var list []models.Transaction
	err := e.userTransactions(ctx, userID).
		Preload("SenderAccount").
		Preload("RecipientAccount").
		Preload("Merchant").
		Order("transactions.created_at DESC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&list).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}
	return list, total, nil
}

func (e *Engine) userTransactions(ctx context.Context, userID uuid.UUID) *gorm.DB {
	return e.db.WithContext(ctx).Model(&models.Transaction{}).
		Joins("LEFT JOIN accounts AS sent ON sent.id = transactions.sender_account_id").
		Joins("LEFT JOIN accounts AS received ON received.id = transactions.recipient_account_id").
		Where("sent.user_id = ? OR received.user_id = ?", userID, userID)
}

func (e *Engine) GetTransaction(ctx context.Context, reference string) (*models.Transaction, error) {
	var t models.Transaction
	err := e.db.WithContext(ctx).
		Preload("SenderAccount").
		Preload("RecipientAccount").
		Preload("Merchant").
		Where("reference = ?", reference).
		First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load transaction: %w", err)
	}
	return &t, nil
}

// loadAccount fetches the account, locking its row when it is about to be
// debited so concurrent debits serialize against the balance check. The
// row lock is a postgres concern; sqlite serializes writers on its own.
func loadAccount(tx *gorm.DB, id uuid.UUID, forUpdate bool) (*models.Account, error) {
	q := tx
	if forUpdate && tx.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var account models.Account
	err := q.Where("id = ?", id).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}
	return &account, nil
}

func checkSufficiency(tx *gorm.DB, accountID uuid.UUID, needed decimal.Decimal) error {
	balance, err := balanceOf(tx, accountID)
	if err != nil {
		return err
	}
	if balance.LessThan(needed) {
		return ErrInsufficientFunds
	}
	return nil
}

// createWithReference persists the record, regenerating the reference on a
// duplicate-key collision. Each attempt runs in a savepoint so a failed
// insert does not poison the surrounding transaction.
func createWithReference(tx *gorm.DB, t *models.Transaction) error {
	for attempt := 0; attempt < referenceAttempts; attempt++ {
		t.Reference = NewReference(time.Now())
		err := tx.Transaction(func(inner *gorm.DB) error {
			return inner.Create(t).Error
		})
		if err == nil {
			return nil
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			continue
		}
		return fmt.Errorf("create transaction: %w", err)
	}
	return ErrReferenceConflict
}

func (e *Engine) observe(kind models.TransactionKind, start time.Time, err error) {
	if e.metrics == nil {
		return
	}
	e.metrics.ObserveTransaction(string(kind), err == nil, time.Since(start))
}
