package domain

import (
	"math/big"

	dErrors "vestry/pkg/domain-errors"
)

// Token quantities are signed 128-bit integers on the ledger. Go has no i128,
// so amounts travel as *big.Int internally and as base-10 strings on the wire,
// with ParseAmount enforcing the 128-bit bounds at trust boundaries.
var (
	amountMax = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 127), big.NewInt(1))
	amountMin = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 127))
)

// ParseAmount constructs a ledger amount from external input.
//
// Errors: returns CodeInvalidInput when the value is empty, not a base-10
// integer, or outside the signed 128-bit range.
func ParseAmount(s string) (*big.Int, error) {
	if s == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "amount cannot be empty")
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "amount must be a base-10 integer")
	}
	if v.Cmp(amountMax) > 0 || v.Cmp(amountMin) < 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "amount outside 128-bit range")
	}
	return v, nil
}

// FormatAmount renders an amount for wire payloads. Nil renders as "0" so
// responses never carry a JSON null for a quantity.
func FormatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
