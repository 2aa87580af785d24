package engine

import (
	"errors"
	"fmt"

	"github.com/Bakary221/Om-Pay/internal/models"
	"github.com/shopspring/decimal"
)

var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrDestinationNotFound = errors.New("destination not found")
	ErrSelfTarget          = errors.New("cannot target own account")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrReferenceConflict is returned once internal retries of reference
	// generation are exhausted. Safe to retry from the caller.
	ErrReferenceConflict = errors.New("transaction reference conflict")
)

type LimitBound string

const (
	BoundMin LimitBound = "min"
	BoundMax LimitBound = "max"
)

// LimitError reports an amount outside the configured bounds for a
// transaction kind. User-correctable, surfaced verbatim.
type LimitError struct {
	Kind  models.TransactionKind
	Bound LimitBound
	Limit decimal.Decimal
}

func (e *LimitError) Error() string {
	if e.Bound == BoundMin {
		return fmt.Sprintf("%s amount below minimum of %s FCFA", e.Kind, e.Limit)
	}
	return fmt.Sprintf("%s amount above maximum of %s FCFA", e.Kind, e.Limit)
}
