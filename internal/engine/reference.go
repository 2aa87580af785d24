package engine

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// NewReference builds a human-traceable transaction reference,
// e.g. TRX-20251110-3FA2C1. Uniqueness is enforced by the store; the
// engine retries on collision.
func NewReference(now time.Time) string {
	return fmt.Sprintf("TRX-%s-%s", now.Format("20060102"), randHex(6))
}

// NewAccountNumber builds an account number, e.g. OM-2025-AB12-CD34.
func NewAccountNumber(now time.Time) string {
	return fmt.Sprintf("OM-%d-%s-%s", now.Year(), randHex(4), randHex(4))
}

func randHex(n int) string {
	buf := make([]byte, (n+1)/2)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return strings.ToUpper(hex.EncodeToString(buf))[:n]
}
