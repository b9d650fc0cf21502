package orders

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

const (
	OrderReferencePrefix   = "ORD"
	InvoiceReferencePrefix = "CXL"
)

// ReferenceFunc builds a human readable reference such as ORD-20260301-QXKZBA.
type ReferenceFunc func(prefix string, at time.Time) (string, error)

// NewReference is the default ReferenceFunc: the date followed by six random
// uppercase letters.
func NewReference(prefix string, at time.Time) (string, error) {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	randomPart := make([]byte, 6)
	for i := range randomPart {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(letters))))
		if err != nil {
			return "", fmt.Errorf("generate reference: %w", err)
		}
		randomPart[i] = letters[num.Int64()]
	}
	return fmt.Sprintf("%s-%s-%s", prefix, at.Format("20060102"), string(randomPart)), nil
}
