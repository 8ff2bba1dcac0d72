// Copyright (C) 2025 Creditor Corp. Group.
// See LICENSE for copying information.

package deposits

import (
	"math/big"
	"strings"

	"bridge/internal/numbers"
)

const satsPerBTC = 100_000_000

// btcDecimals defines the number of decimal places in one bitcoin.
const btcDecimals = 8

var (
	// MinDepositSats defines the protocol minimum deposit: 0.00005 BTC.
	MinDepositSats = big.NewInt(5_000)
	// MaxDepositSats defines the protocol maximum deposit: 1 BTC.
	MaxDepositSats = big.NewInt(satsPerBTC)
)

// ParseBTCAmount converts a decimal BTC string into whole satoshi, rounding
// half up on sub-satoshi precision.
func ParseBTCAmount(amount string) (*big.Int, error) {
	s := strings.TrimSpace(amount)
	if s == "" || strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		return nil, NewError(CodeInvalidAmount, nil)
	}

	intPart, fracPart, hasFrac := strings.Cut(s, ".")
	if intPart == "" && fracPart == "" {
		return nil, NewError(CodeInvalidAmount, nil)
	}
	if intPart == "" {
		intPart = "0"
	}
	if !digitsOnly(intPart) || (hasFrac && !digitsOnly(fracPart)) {
		return nil, NewError(CodeInvalidAmount, nil)
	}

	sats, ok := new(big.Int).SetString(intPart, 10)
	if !ok {
		return nil, NewError(CodeInvalidAmount, nil)
	}
	sats.Mul(sats, big.NewInt(satsPerBTC))

	if fracPart != "" {
		frac := fracPart
		roundUp := false
		if len(frac) > btcDecimals {
			roundUp = frac[btcDecimals] >= '5'
			frac = frac[:btcDecimals]
		}
		for len(frac) < btcDecimals {
			frac += "0"
		}

		fracSats, ok := new(big.Int).SetString(frac, 10)
		if !ok {
			return nil, NewError(CodeInvalidAmount, nil)
		}

		sats.Add(sats, fracSats)
		if roundUp {
			sats.Add(sats, numbers.OneBigInt)
		}
	}

	return sats, nil
}

// ValidateAmount checks a requested deposit amount against the protocol
// bounds and the pool liquidity snapshot. Returns the amount in satoshi.
// Pure: no side effects, no record is created on rejection.
func ValidateAmount(amount string, pool PoolStatus) (*big.Int, error) {
	sats, err := ParseBTCAmount(amount)
	if err != nil {
		return nil, err
	}

	switch {
	case !numbers.IsPositive(sats):
		return nil, NewError(CodeInvalidAmount, nil)
	case numbers.IsLess(sats, MinDepositSats):
		return nil, NewError(CodeBelowMinimum, nil)
	case numbers.IsGreater(sats, MaxDepositSats):
		return nil, NewError(CodeAboveMaximum, nil)
	case pool.EstimatedAvailableSats != nil && numbers.IsGreater(sats, pool.EstimatedAvailableSats):
		return nil, NewError(CodeInsufficientLiquidity, nil)
	}

	return sats, nil
}

func digitsOnly(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}

	return s != ""
}
