// Copyright (C) 2025 Creditor Corp. Group.
// See LICENSE for copying information.

package deposits_test

import (
	"errors"
	"fmt"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"bridge/bitcoin"
	"bridge/bitcoin/txbuilder"
	"bridge/deposits"
	"bridge/esplora"
	"bridge/wallets"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code deposits.Code
	}{
		{"insufficient funds", txbuilder.NewInsufficientError(big.NewInt(100), big.NewInt(50)), deposits.CodeInsufficientFunds},
		{"too many utxos", bitcoin.ErrTooManyInputs, deposits.CodeTooManyUtxos},
		{"inscribed utxo", fmt.Errorf("%w: abc:0", bitcoin.ErrInscribedUTXO), deposits.CodeInscriptionDetected},
		{"input builder failure", fmt.Errorf("prepare: %w", txbuilder.ErrPSBTInputBuilder), deposits.CodeAddressTypeUnsupported},
		{"wallet not installed", wallets.ErrWalletNotInstalled, deposits.CodeWalletNotInstalled},
		{"user declined", fmt.Errorf("sign: %w", wallets.ErrUserDeclined), deposits.CodeUserDeclined},
		{"vendor p2sh refusal", &wallets.ProtocolError{Message: "Not supported address type: P2SH"}, deposits.CodeAddressTypeUnsupported},
		{"vendor inscription refusal", &wallets.ProtocolError{Message: "input holds an Inscription"}, deposits.CodeInscriptionDetected},
		{"vendor unclassified", &wallets.ProtocolError{Code: 500, Message: "internal error"}, deposits.CodeWalletProtocolError},
		{"anything else", errors.New("boom"), deposits.CodeUnknown},
	}
	for _, test := range tests {
		classified := deposits.Classify(test.err)
		require.Equal(t, test.code, classified.Code, test.name)
		require.NotEmpty(t, classified.Message, test.name)
		require.ErrorIs(t, classified, test.err, test.name)
	}
}

func TestClassifyBroadcastRejection(t *testing.T) {
	cause := &esplora.BroadcastError{Text: "txn-mempool-conflict"}

	classified := deposits.Classify(fmt.Errorf("broadcast: %w", cause))
	require.Equal(t, deposits.CodeBroadcastRejected, classified.Code)
	// the network's rejection reason passes through verbatim.
	require.Equal(t, "txn-mempool-conflict", classified.Message)
}

func TestClassifyIdempotent(t *testing.T) {
	original := deposits.NewError(deposits.CodeBelowMinimum, nil)

	classified := deposits.Classify(fmt.Errorf("validate: %w", original))
	require.Same(t, original, classified)
}
