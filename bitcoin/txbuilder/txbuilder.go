// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package txbuilder

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"
	"sort"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"bridge/bitcoin"
	"bridge/bitcoin/payload"
	"bridge/internal/numbers"
)

const (
	// txVersion defines transaction version for this builder.
	txVersion int32 = 2
	// SignHashType defines the fixed signature hash policy requested from
	// every wallet variant.
	SignHashType = txscript.SigHashAll
	// MaxInputs defines the input fragmentation ceiling. Covering a deposit
	// with more inputs than this produces a transaction some wallets refuse
	// to sign.
	MaxInputs = 25
	// depositTxOutputs defines the fixed output layout size used for fee
	// estimation: OP_RETURN + pool output + change output.
	depositTxOutputs = 3
)

var (
	// headerSizeVBytes defined rough tx header size in vBytes.
	headerSizeVBytes = big.NewInt(11)
	// inputSizeVBytes defined rough tx input size in vBytes.
	inputSizeVBytes = big.NewInt(91)
	// outputSizeVBytes defined rough tx output size in vBytes.
	outputSizeVBytes = big.NewInt(31)

	// DustThreshold defines the smallest satoshi amount worth a dedicated
	// change output. Smaller leftovers are folded into the fee.
	DustThreshold = big.NewInt(546)
)

// DepositParams describes data needed to build an unsigned deposit transaction.
type DepositParams struct {
	AmountSats        *big.Int
	SenderAddress     string // change recipient.
	PoolAddress       string // bitcoin address of the bridge pool.
	ReceiverPrincipal string // second-chain principal embedded into OP_RETURN.
	UTXOs             []bitcoin.UTXO
	SatoshiPerVByte   *big.Int
}

// PreparedTx describes an unsigned deposit transaction with its selection
// details. It is consumed once by signing and never persisted.
//
//	outputs:
//	┌─────────┬──────────────┬────────────────────────────────────────┐
//	│  index  │     type     │             description                │
//	├=========┼==============┼========================================┤
//	│       0 │ op_return    │ deposit payload with receiver principal│
//	├─────────┼──────────────┼────────────────────────────────────────┤
//	│       1 │ pool output  │ deposited amount to the pool address   │
//	├─────────┼──────────────┼────────────────────────────────────────┤
//	│       2 │ change       │ optional, leftover above dust back     │
//	│         │              │ to the sender.                         │
//	└─────────┴──────────────┴────────────────────────────────────────┘
type PreparedTx struct {
	Tx             *wire.MsgTx
	Packet         *psbt.Packet
	SerializedPSBT []byte
	Inputs         []*bitcoin.UTXO
	Fee            *big.Int
	FeeRate        *big.Int // satoshi per vByte.
	Change         *big.Int // zero when folded into the fee.
	OpReturnScript []byte
}

// Serialize returns the current PSBT form of the transaction. Must be called
// again after input augmentation, which mutates the packet.
func (p *PreparedTx) Serialize() ([]byte, error) {
	w := bytes.NewBuffer(nil)
	if err := p.Packet.Serialize(w); err != nil {
		return nil, err
	}

	p.SerializedPSBT = w.Bytes()

	return p.SerializedPSBT, nil
}

// TxBuilder provides transaction building related logic.
type TxBuilder struct {
	networkParams *chaincfg.Params
}

// NewTxBuilder is a constructor for TxBuilder.
func NewTxBuilder(networkParams *chaincfg.Params) *TxBuilder {
	return &TxBuilder{
		networkParams: networkParams,
	}
}

// BuildDepositTx constructs the unsigned deposit transaction and its PSBT
// form. Building is deterministic: a fixed UTXO set, amount, and fee rate
// always produce a byte-identical transaction.
func (b *TxBuilder) BuildDepositTx(params DepositParams) (*PreparedTx, error) {
	if params.AmountSats == nil || !numbers.IsPositive(params.AmountSats) {
		return nil, errors.New("non-positive deposit amount")
	}
	if params.SatoshiPerVByte == nil || !numbers.IsPositive(params.SatoshiPerVByte) {
		return nil, errors.New("non-positive fee rate")
	}

	opReturnScript, err := payload.New(params.ReceiverPrincipal).IntoScript()
	if err != nil {
		return nil, err
	}

	used, totalAmount, fee, err := SelectUTXOs(params.UTXOs, params.AmountSats, params.SatoshiPerVByte)
	if err != nil {
		return nil, err
	}

	change := new(big.Int).Sub(totalAmount, params.AmountSats)
	change.Sub(change, fee)

	tx := wire.NewMsgTx(txVersion)
	for _, utxo := range used {
		utxoHash, err := chainhash.NewHashFromStr(utxo.TxHash)
		if err != nil {
			return nil, err
		}

		tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(utxoHash, utxo.Index), nil, nil))
	}

	// deposit payload output (#0).
	tx.AddTxOut(wire.NewTxOut(0, opReturnScript))

	// pool output (#1).
	err = b.addOutput(tx, params.AmountSats, params.PoolAddress)
	if err != nil {
		return nil, err
	}

	// change output (#2).
	if numbers.IsGreater(change, DustThreshold) {
		err = b.addOutput(tx, change, params.SenderAddress)
		if err != nil {
			return nil, err
		}
	} else {
		fee = new(big.Int).Add(fee, change)
		change = big.NewInt(0)
	}

	packet, err := psbt.NewFromUnsignedTx(tx)
	if err != nil {
		return nil, err
	}

	for i, utxo := range used {
		packet.Inputs[i].WitnessUtxo = wire.NewTxOut(utxo.Amount.Int64(), utxo.Script)
		packet.Inputs[i].SighashType = SignHashType
	}

	w := bytes.NewBuffer(nil)
	err = packet.Serialize(w)
	if err != nil {
		return nil, err
	}

	return &PreparedTx{
		Tx:             tx,
		Packet:         packet,
		SerializedPSBT: w.Bytes(),
		Inputs:         used,
		Fee:            fee,
		FeeRate:        params.SatoshiPerVByte,
		Change:         change,
		OpReturnScript: opReturnScript,
	}, nil
}

// SortUTXOs returns a copy of the utxo set in the selection order: by amount
// descending, ties broken by tx hash and output index ascending. The order is
// total, so selection over a fixed set is deterministic.
func SortUTXOs(utxos []bitcoin.UTXO) []bitcoin.UTXO {
	sorted := make([]bitcoin.UTXO, len(utxos))
	copy(sorted, utxos)

	sort.SliceStable(sorted, func(i, j int) bool {
		switch sorted[i].Amount.Cmp(sorted[j].Amount) {
		case 1:
			return true
		case -1:
			return false
		}
		if sorted[i].TxHash != sorted[j].TxHash {
			return sorted[i].TxHash < sorted[j].TxHash
		}

		return sorted[i].Index < sorted[j].Index
	})

	return sorted
}

// SelectUTXOs greedily accumulates utxos in SortUTXOs order until the total
// covers amount, estimated fee, and the dust threshold reserved for change.
// A set that covers amount plus fee exactly, with no room for change, is
// still accepted: the leftover is folded into the fee by the builder.
// Returns selected utxos, their total amount, and the estimated fee.
func SelectUTXOs(utxos []bitcoin.UTXO, amount, satoshiPerVByte *big.Int) (usedUTXOs []*bitcoin.UTXO, totalAmount, fee *big.Int, err error) {
	for _, utxo := range utxos {
		if utxo.Amount == nil || !numbers.IsPositive(utxo.Amount) {
			return nil, nil, nil, fmt.Errorf("%w: %s", bitcoin.ErrInvalidUTXOAmount, utxo.Outpoint())
		}
	}

	sorted := SortUTXOs(utxos)

	totalAmount = big.NewInt(0)
	for i := range sorted {
		if len(usedUTXOs) == MaxInputs {
			return nil, nil, nil, bitcoin.ErrTooManyInputs
		}
		if sorted[i].Inscribed {
			return nil, nil, nil, fmt.Errorf("%w: %s", bitcoin.ErrInscribedUTXO, sorted[i].Outpoint())
		}

		usedUTXOs = append(usedUTXOs, &sorted[i])
		totalAmount.Add(totalAmount, sorted[i].Amount)
		fee = EstimateFee(len(usedUTXOs), depositTxOutputs, satoshiPerVByte)

		required := new(big.Int).Add(amount, fee)
		required.Add(required, DustThreshold)
		if !numbers.IsLess(totalAmount, required) {
			return usedUTXOs, totalAmount, fee, nil
		}
	}

	// no room for change, but amount plus fee is still covered.
	if fee != nil && !numbers.IsLess(totalAmount, new(big.Int).Add(amount, fee)) {
		return usedUTXOs, totalAmount, fee, nil
	}

	need := new(big.Int).Add(amount, EstimateFee(len(sorted), depositTxOutputs, satoshiPerVByte))

	return nil, nil, nil, NewInsufficientError(need, totalAmount)
}

// RoughTxSizeEstimate returns Tx rough estimated size in vBytes.
func RoughTxSizeEstimate(inputs, outputs int) *big.Int {
	size := new(big.Int).Set(headerSizeVBytes)
	size.Add(size, new(big.Int).Mul(inputSizeVBytes, big.NewInt(int64(inputs))))
	size.Add(size, new(big.Int).Mul(outputSizeVBytes, big.NewInt(int64(outputs))))

	return size
}

// EstimateFee returns the estimated fee in satoshi for a transaction shape at
// the given rate.
func EstimateFee(inputs, outputs int, satoshiPerVByte *big.Int) *big.Int {
	return new(big.Int).Mul(RoughTxSizeEstimate(inputs, outputs), satoshiPerVByte)
}

// addOutput adds an output paying amount to the address.
func (b *TxBuilder) addOutput(tx *wire.MsgTx, amount *big.Int, address string) error {
	recipientAddress, err := btcutil.DecodeAddress(address, b.networkParams)
	if err != nil {
		return err
	}

	destinationScript, err := txscript.PayToAddrScript(recipientAddress)
	if err != nil {
		return err
	}

	tx.AddTxOut(wire.NewTxOut(amount.Int64(), destinationScript))

	return nil
}
