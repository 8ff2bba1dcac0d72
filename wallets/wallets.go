// Copyright (C) 2025 Creditor Corp. Group.
// See LICENSE for copying information.

// Package wallets defines the signing contract the deposit pipeline drives.
// Each vendor speaks its own request/response protocol; variants normalize
// them behind one interface so the rest of the pipeline stays wallet-agnostic.
package wallets

import (
	"context"
	"errors"
	"fmt"
	"net/url"
)

// ErrWalletNotInstalled defines that the wallet endpoint is unreachable,
// which means the wallet software is absent.
var ErrWalletNotInstalled = errors.New("wallet is not installed")

// ErrUserDeclined defines that the user refused the signing or permission
// request. It is terminal: the pipeline never re-prompts.
var ErrUserDeclined = errors.New("user declined the wallet request")

// ProtocolError describes a vendor-level failure. Message preserves the raw
// vendor text for diagnostics.
type ProtocolError struct {
	Provider string
	Code     int
	Message  string
}

// Error returns error description.
func (e *ProtocolError) Error() string {
	return fmt.Sprintf("wallet protocol error (%s, code %d): %s", e.Provider, e.Code, e.Message)
}

// SignRequest describes one signing attempt over the unsigned transaction's
// PSBT form.
type SignRequest struct {
	PSBT          []byte // serialized unsigned transaction.
	SenderAddress string
	InputIndexes  []int // inputs the sender must sign.
}

// SignResult is the normalized outcome of a signing handshake. Exactly one
// field is set: TxID when the wallet already broadcast the transaction,
// SignedPSBT when the caller must finalize and broadcast it.
type SignResult struct {
	TxID       string
	SignedPSBT []byte
}

// Signer is the capability contract every wallet variant implements. Adding
// a wallet means adding a variant, never branching in shared logic.
type Signer interface {
	// Provider returns the wallet vendor id.
	Provider() string
	// NeedsScriptAugmentation reports whether the wallet requires
	// client-side redeem script construction for nested segwit senders.
	NeedsScriptAugmentation() bool
	// SignDeposit runs the vendor signing handshake. It may block on user
	// interaction for an arbitrary time and honors ctx cancellation.
	SignDeposit(ctx context.Context, req SignRequest) (*SignResult, error)
}

// AccountProvider is implemented by wallets that can expose the payment
// account public key, possibly behind a permission round trip.
type AccountProvider interface {
	PaymentPublicKey(ctx context.Context, address string) (string, error)
}

// WrapTransportError maps transport failures to ErrWalletNotInstalled and
// leaves everything else untouched.
func WrapTransportError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%w: %v", ErrWalletNotInstalled, err)
	}

	return err
}
