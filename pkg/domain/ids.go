package domain

import (
	dErrors "vestry/pkg/domain-errors"
)

// Principal is a ledger account identity: the address a caller acts as and
// proves control over with an authorization proof.
//
// Invariant: a Principal is strkey-shaped. 56 uppercase base32 characters
// (A-Z, 2-7) with a leading 'G' (account) or 'C' (contract).
//
// Usage: construct via ParsePrincipal at trust boundaries to enforce the
// shape; direct casting bypasses validation.
type Principal string

// Asset identifies the token contract the vesting wallet pays out in.
//
// Invariant: strkey-shaped like Principal, but always a contract address
// (leading 'C').
type Asset string

const strkeyLen = 56

// ParsePrincipal constructs a Principal from external input.
//
// Errors: returns CodeInvalidInput when the value is empty, the wrong length,
// outside the base32 alphabet, or not an account/contract address.
func ParsePrincipal(s string) (Principal, error) {
	if err := validateStrkey(s, "GC"); err != nil {
		return "", err
	}
	return Principal(s), nil
}

// ParseAsset constructs an Asset from external input.
//
// Errors: returns CodeInvalidInput when the value is not a contract address.
func ParseAsset(s string) (Asset, error) {
	if err := validateStrkey(s, "C"); err != nil {
		return "", err
	}
	return Asset(s), nil
}

func (p Principal) String() string { return string(p) }

func (a Asset) String() string { return string(a) }

func validateStrkey(s, prefixes string) error {
	if s == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "address cannot be empty")
	}
	if len(s) != strkeyLen {
		return dErrors.Newf(dErrors.CodeInvalidInput, "address must be %d characters", strkeyLen)
	}
	prefixOK := false
	for i := 0; i < len(prefixes); i++ {
		if s[0] == prefixes[i] {
			prefixOK = true
			break
		}
	}
	if !prefixOK {
		return dErrors.New(dErrors.CodeInvalidInput, "address has an unsupported prefix")
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < 'A' || c > 'Z') && (c < '2' || c > '7') {
			return dErrors.New(dErrors.CodeInvalidInput, "address contains invalid characters")
		}
	}
	return nil
}
