// Copyright (C) 2025 Creditor Corp. Group.
// See LICENSE for copying information.

// Package deposits implements the deposit transaction pipeline: amount and
// limit validation, transaction preparation, wallet signing, broadcast, and
// the deposit record lifecycle with its error taxonomy.
package deposits

import (
	"math/big"
)

// Status defines the deposit record lifecycle state.
type Status string

const (
	// StatusPending defines a deposit created before signing, reserving pool
	// liquidity for the in-flight attempt.
	StatusPending Status = "pending"
	// StatusBroadcast defines a successful terminal state with a known
	// transaction id.
	StatusBroadcast Status = "broadcast"
	// StatusCanceled defines a failed terminal state.
	StatusCanceled Status = "canceled"
)

// Terminal returns true for the two final lifecycle states.
func (s Status) Terminal() bool {
	return s == StatusBroadcast || s == StatusCanceled
}

// CanTransition reports whether the lifecycle permits moving to the target
// state. A deposit leaves pending exactly once and terminal states never
// change.
func (s Status) CanTransition(to Status) bool {
	return s == StatusPending && to.Terminal()
}

// Deposit is the only durable entity of the pipeline. The record itself is
// owned by the external bridge API; this is its client-side form.
type Deposit struct {
	ID        string
	BTCAmount *big.Int // in Satoshi.
	Receiver  string   // second-chain principal to credit.
	Sender    string   // bitcoin address the deposit is paid from.
	Status    Status
	BTCTxID   string // empty until broadcast.
}

// PoolStatus is a read-only snapshot of the bridge pool: the address deposits
// are paid to and the liquidity bound for new amounts.
type PoolStatus struct {
	Address                string // bitcoin address of the pool.
	EstimatedAvailableSats *big.Int
}

// Request is the immutable input of one deposit attempt.
type Request struct {
	Amount   string // decimal BTC.
	Sender   string // bitcoin address.
	Receiver string // second-chain principal.
	Priority string // fee priority: low, medium, high.
	Provider string // wallet provider id.
}
