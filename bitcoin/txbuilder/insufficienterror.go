// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package txbuilder

import (
	"fmt"
	"math/big"

	"bridge/bitcoin"
)

// InsufficientError is the error type to describe insufficient balance errors
// with details.
type InsufficientError struct {
	Need *big.Int
	Have *big.Int
}

// NewInsufficientError is a constructor for InsufficientError.
func NewInsufficientError(need, have *big.Int) *InsufficientError {
	return &InsufficientError{Need: need, Have: have}
}

// Error returns error description.
func (e *InsufficientError) Error() string {
	return fmt.Sprintf("%s: need - %s, have - %s", bitcoin.ErrInsufficientBalance, e.Need, e.Have)
}

// Unwrap exposes the class sentinel for [errors] package matching.
func (e *InsufficientError) Unwrap() error {
	return bitcoin.ErrInsufficientBalance
}
