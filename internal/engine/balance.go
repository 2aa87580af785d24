package engine

import (
	"context"
	"fmt"

	"github.com/Bakary221/Om-Pay/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Balance derives the account's current balance from the transaction log:
// everything successfully received minus everything successfully sent,
// fees included on the sending side. There is no stored balance column.
func (e *Engine) Balance(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error) {
	return balanceOf(e.db.WithContext(ctx), accountID)
}

func balanceOf(tx *gorm.DB, accountID uuid.UUID) (decimal.Decimal, error) {
	var received decimal.Decimal
	err := tx.Model(&models.Transaction{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("recipient_account_id = ? AND status = ?", accountID, models.StatusSuccessful).
		Scan(&received).Error
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum received: %w", err)
	}

	var sent decimal.Decimal
	err = tx.Model(&models.Transaction{}).
		Select("COALESCE(SUM(amount + fee), 0)").
		Where("sender_account_id = ? AND status = ?", accountID, models.StatusSuccessful).
		Scan(&sent).Error
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum sent: %w", err)
	}

	return received.Sub(sent), nil
}
