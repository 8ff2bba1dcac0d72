// Copyright (C) 2025 Creditor Corp. Group.
// See LICENSE for copying information.

package deposits

import (
	"errors"
	"strings"

	"bridge/bitcoin"
	"bridge/bitcoin/txbuilder"
	"bridge/esplora"
	"bridge/wallets"
)

// Code identifies one bucket of the closed error taxonomy surfaced to the
// caller. Every failure path ends in exactly one code.
type Code string

const (
	// CodeInvalidAmount defines a non-positive or unparsable amount.
	CodeInvalidAmount Code = "invalid_amount"
	// CodeBelowMinimum defines an amount under the protocol minimum.
	CodeBelowMinimum Code = "below_minimum"
	// CodeAboveMaximum defines an amount over the protocol maximum.
	CodeAboveMaximum Code = "above_maximum"
	// CodeInsufficientLiquidity defines an amount exceeding the pool's
	// estimated available liquidity.
	CodeInsufficientLiquidity Code = "insufficient_liquidity"
	// CodeInsufficientFunds defines that the sender's own outputs do not
	// cover amount plus fee.
	CodeInsufficientFunds Code = "insufficient_funds"
	// CodeTooManyUtxos defines excessive utxo fragmentation.
	CodeTooManyUtxos Code = "too_many_utxos"
	// CodeInscriptionDetected defines that spending would consume an
	// inscribed output.
	CodeInscriptionDetected Code = "inscription_detected"
	// CodeAddressTypeUnsupported defines that the wallet cannot sign for the
	// sender's address type.
	CodeAddressTypeUnsupported Code = "address_type_unsupported"
	// CodeWalletNotInstalled defines an absent wallet.
	CodeWalletNotInstalled Code = "wallet_not_installed"
	// CodeUserDeclined defines an explicit user refusal.
	CodeUserDeclined Code = "user_declined"
	// CodeWalletProtocolError defines an unclassified vendor failure.
	CodeWalletProtocolError Code = "wallet_protocol_error"
	// CodeBroadcastRejected defines a network-level transaction rejection.
	CodeBroadcastRejected Code = "broadcast_rejected"
	// CodeMissingDepositID defines a create response without a deposit id.
	CodeMissingDepositID Code = "missing_deposit_id"
	// CodeUnknown defines a failure outside the taxonomy; still surfaced,
	// with a generic message.
	CodeUnknown Code = "unknown"
)

// remediation maps each code to the user-facing message.
var remediation = map[Code]string{
	CodeInvalidAmount:          "enter a valid positive amount",
	CodeBelowMinimum:           "amount is below the protocol minimum of 0.00005 BTC",
	CodeAboveMaximum:           "amount is above the protocol maximum of 1 BTC",
	CodeInsufficientLiquidity:  "the pool cannot accept this amount right now, try a smaller deposit",
	CodeInsufficientFunds:      "your wallet balance does not cover the amount plus network fee",
	CodeTooManyUtxos:           "your balance is spread over too many small outputs, consolidate them first",
	CodeInscriptionDetected:    "your wallet holds inscribed outputs, move inscriptions to a separate address before depositing",
	CodeAddressTypeUnsupported: "this wallet cannot sign for your address type, switch to a native segwit (bc1) address",
	CodeWalletNotInstalled:     "wallet software was not found, install it and retry",
	CodeUserDeclined:           "the request was declined in the wallet",
	CodeWalletProtocolError:    "the wallet returned an unexpected response",
	CodeBroadcastRejected:      "the network rejected the transaction",
	CodeMissingDepositID:       "the bridge api did not return a deposit id",
	CodeUnknown:                "deposit failed, try again",
}

// Error is the taxonomy-coded error surfaced to the caller. Message carries
// the user-facing remediation text, Err the original cause for diagnostics.
type Error struct {
	Code    Code
	Message string
	Err     error
}

// NewError builds a taxonomy error with the code's remediation message.
func NewError(code Code, cause error) *Error {
	return &Error{Code: code, Message: remediation[code], Err: cause}
}

// Error returns error description.
func (e *Error) Error() string {
	if e.Err != nil {
		return string(e.Code) + ": " + e.Message + ": " + e.Err.Error()
	}

	return string(e.Code) + ": " + e.Message
}

// Unwrap exposes the cause for [errors] package matching.
func (e *Error) Unwrap() error {
	return e.Err
}

// Classify buckets any pipeline failure into the closed taxonomy. Collaborator
// layers return typed errors, so classification is structural; free-text
// matching is reserved for vendor messages, the one boundary where only text
// is available.
func Classify(err error) *Error {
	var classified *Error
	if errors.As(err, &classified) {
		return classified
	}

	switch {
	case errors.Is(err, bitcoin.ErrInsufficientBalance):
		return NewError(CodeInsufficientFunds, err)
	case errors.Is(err, bitcoin.ErrTooManyInputs):
		return NewError(CodeTooManyUtxos, err)
	case errors.Is(err, bitcoin.ErrInscribedUTXO):
		return NewError(CodeInscriptionDetected, err)
	case errors.Is(err, txbuilder.ErrPSBTInputBuilder):
		return NewError(CodeAddressTypeUnsupported, err)
	case errors.Is(err, wallets.ErrWalletNotInstalled):
		return NewError(CodeWalletNotInstalled, err)
	case errors.Is(err, wallets.ErrUserDeclined):
		return NewError(CodeUserDeclined, err)
	}

	var protocolErr *wallets.ProtocolError
	if errors.As(err, &protocolErr) {
		return classifyVendorText(protocolErr)
	}

	var broadcastErr *esplora.BroadcastError
	if errors.As(err, &broadcastErr) {
		classified = NewError(CodeBroadcastRejected, err)
		// rejection reasons are network truth, keep the text verbatim.
		classified.Message = broadcastErr.Text

		return classified
	}

	return NewError(CodeUnknown, err)
}

// classifyVendorText inspects the raw vendor message. This is the only place
// substring matching is allowed: the vendor reports these conditions as free
// text only.
func classifyVendorText(err *wallets.ProtocolError) *Error {
	msg := strings.ToLower(err.Message)
	switch {
	case strings.Contains(msg, "p2sh"):
		return NewError(CodeAddressTypeUnsupported, err)
	case strings.Contains(msg, "inscription"):
		return NewError(CodeInscriptionDetected, err)
	}

	return NewError(CodeWalletProtocolError, err)
}
