// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package bitcoin

import "errors"

// ErrInsufficientBalance defines that sender's own outputs do not cover the
// requested amount plus network fee.
var ErrInsufficientBalance = errors.New("insufficient bitcoin balance")

// ErrTooManyInputs defines that covering the requested amount would exceed
// the input fragmentation ceiling.
var ErrTooManyInputs = errors.New("too many utxos required")

// ErrInscribedUTXO defines that an output selected for spending carries an
// ordinal inscription.
var ErrInscribedUTXO = errors.New("inscribed utxo selected")

// ErrInvalidUTXOAmount defines that an output reports a missing or
// non-positive amount and can not participate in selection.
var ErrInvalidUTXOAmount = errors.New("invalid utxo amount")
