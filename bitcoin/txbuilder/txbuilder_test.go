// Copyright (C) 2025 Creditor Corp. Group.
// See LICENSE for copying information.

package txbuilder_test

import (
	"math/big"
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/stretchr/testify/require"

	"bridge/bitcoin"
	"bridge/bitcoin/payload"
	"bridge/bitcoin/txbuilder"
)

const (
	senderAddress = "tb1qw508d6qejxtdg4y5r3zarvary0c5xw7kxpjzsx"
	poolAddress   = "tb1qrp33g0q5c5txsp9arysrx4k6zdkfs4nce4xj0gdcccefvpysxf3q0sl5k7"
	receiver      = "SP2J6ZY48GV1EZ5V2V5RB9MP66SW86PYKKNRV9EJ7"

	txHashA = "d78a52d61c43ec43d56e270e8f87ebe952f3bb5fe0a042494ed6ebf753285746"
	txHashB = "78abecdba04a26850a24d455384312376b1f9df42f2ef865ddd26ef8dbf4f3d0"
	txHashC = "6da21fa8520ab6f9c43951c087003cb2107d6e31294b4731b641d58f87bbb4c1"
)

func TestSortUTXOs(t *testing.T) {
	utxos := []bitcoin.UTXO{
		{TxHash: txHashB, Index: 1, Amount: big.NewInt(50000)},
		{TxHash: txHashB, Index: 0, Amount: big.NewInt(50000)},
		{TxHash: txHashA, Index: 3, Amount: big.NewInt(50000)},
		{TxHash: txHashC, Index: 0, Amount: big.NewInt(100000)},
		{TxHash: txHashA, Index: 0, Amount: big.NewInt(546)},
	}

	sorted := txbuilder.SortUTXOs(utxos)

	require.Equal(t, []bitcoin.UTXO{
		{TxHash: txHashC, Index: 0, Amount: big.NewInt(100000)},
		{TxHash: txHashA, Index: 3, Amount: big.NewInt(50000)},
		{TxHash: txHashB, Index: 0, Amount: big.NewInt(50000)},
		{TxHash: txHashB, Index: 1, Amount: big.NewInt(50000)},
		{TxHash: txHashA, Index: 0, Amount: big.NewInt(546)},
	}, sorted)

	// the input set is untouched.
	require.Equal(t, txHashB, utxos[0].TxHash)
	require.EqualValues(t, 1, utxos[0].Index)
}

func TestSelectUTXOs(t *testing.T) {
	rate := big.NewInt(2)
	utxos := []bitcoin.UTXO{
		{TxHash: txHashA, Index: 0, Amount: big.NewInt(100000)},
		{TxHash: txHashB, Index: 1, Amount: big.NewInt(50000)},
	}

	t.Run("accumulates until amount, fee, and dust are covered", func(t *testing.T) {
		used, total, fee, err := txbuilder.SelectUTXOs(utxos, big.NewInt(120000), rate)
		require.NoError(t, err)
		require.Len(t, used, 2)
		require.EqualValues(t, big.NewInt(150000), total)
		// 11 + 2*91 + 3*31 vB at 2 sat/vB.
		require.EqualValues(t, big.NewInt(572), fee)
	})

	t.Run("single utxo suffices", func(t *testing.T) {
		used, total, fee, err := txbuilder.SelectUTXOs(utxos, big.NewInt(50000), rate)
		require.NoError(t, err)
		require.Len(t, used, 1)
		require.Equal(t, txHashA, used[0].TxHash)
		require.EqualValues(t, big.NewInt(100000), total)
		require.EqualValues(t, big.NewInt(390), fee)
	})

	t.Run("exact cover without change room is accepted", func(t *testing.T) {
		one := []bitcoin.UTXO{{TxHash: txHashA, Index: 0, Amount: big.NewInt(100000)}}

		used, total, fee, err := txbuilder.SelectUTXOs(one, big.NewInt(99500), big.NewInt(1))
		require.NoError(t, err)
		require.Len(t, used, 1)
		require.EqualValues(t, big.NewInt(100000), total)
		require.EqualValues(t, big.NewInt(195), fee)
	})

	t.Run("insufficient", func(t *testing.T) {
		_, _, _, err := txbuilder.SelectUTXOs(utxos, big.NewInt(300000), rate)
		require.ErrorIs(t, err, bitcoin.ErrInsufficientBalance)

		var insufficientErr *txbuilder.InsufficientError
		require.ErrorAs(t, err, &insufficientErr)
		require.EqualValues(t, big.NewInt(300572), insufficientErr.Need)
		require.EqualValues(t, big.NewInt(150000), insufficientErr.Have)
	})

	t.Run("too many inputs", func(t *testing.T) {
		fragmented := make([]bitcoin.UTXO, txbuilder.MaxInputs+1)
		for i := range fragmented {
			fragmented[i] = bitcoin.UTXO{TxHash: txHashA, Index: uint32(i), Amount: big.NewInt(1000)}
		}

		_, _, _, err := txbuilder.SelectUTXOs(fragmented, big.NewInt(50000), big.NewInt(1))
		require.ErrorIs(t, err, bitcoin.ErrTooManyInputs)
	})

	t.Run("invalid utxo amount", func(t *testing.T) {
		broken := []bitcoin.UTXO{
			{TxHash: txHashA, Index: 0, Amount: big.NewInt(100000)},
			{TxHash: txHashB, Index: 1, Amount: big.NewInt(0)},
		}

		_, _, _, err := txbuilder.SelectUTXOs(broken, big.NewInt(1000), big.NewInt(1))
		require.ErrorIs(t, err, bitcoin.ErrInvalidUTXOAmount)
	})

	t.Run("inscribed utxo blocks selection", func(t *testing.T) {
		inscribed := []bitcoin.UTXO{
			{TxHash: txHashA, Index: 0, Amount: big.NewInt(100000), Inscribed: true},
		}

		_, _, _, err := txbuilder.SelectUTXOs(inscribed, big.NewInt(1000), big.NewInt(1))
		require.ErrorIs(t, err, bitcoin.ErrInscribedUTXO)
		require.Contains(t, err.Error(), txHashA)
	})
}

func TestBuildDepositTx(t *testing.T) {
	builder := txbuilder.NewTxBuilder(&chaincfg.TestNet3Params)
	utxos := []bitcoin.UTXO{
		{TxHash: txHashA, Index: 0, Amount: big.NewInt(100000), Script: []byte("_sender_script_"), Address: senderAddress},
		{TxHash: txHashB, Index: 1, Amount: big.NewInt(50000), Script: []byte("_sender_script_"), Address: senderAddress},
	}
	params := txbuilder.DepositParams{
		AmountSats:        big.NewInt(120000),
		SenderAddress:     senderAddress,
		PoolAddress:       poolAddress,
		ReceiverPrincipal: receiver,
		UTXOs:             utxos,
		SatoshiPerVByte:   big.NewInt(2),
	}

	t.Run("output layout", func(t *testing.T) {
		prepared, err := builder.BuildDepositTx(params)
		require.NoError(t, err)
		require.Len(t, prepared.Inputs, 2)
		require.Len(t, prepared.Tx.TxOut, 3)

		expectedOpReturn, err := payload.New(receiver).IntoScript()
		require.NoError(t, err)
		require.EqualValues(t, 0, prepared.Tx.TxOut[0].Value)
		require.Equal(t, expectedOpReturn, prepared.Tx.TxOut[0].PkScript)
		require.Equal(t, expectedOpReturn, prepared.OpReturnScript)

		decodedPool, err := btcutil.DecodeAddress(poolAddress, &chaincfg.TestNet3Params)
		require.NoError(t, err)
		poolScript, err := txscript.PayToAddrScript(decodedPool)
		require.NoError(t, err)
		require.EqualValues(t, 120000, prepared.Tx.TxOut[1].Value)
		require.Equal(t, poolScript, prepared.Tx.TxOut[1].PkScript)

		require.EqualValues(t, big.NewInt(572), prepared.Fee)
		require.EqualValues(t, big.NewInt(29428), prepared.Change)
		require.EqualValues(t, 29428, prepared.Tx.TxOut[2].Value)

		for i, input := range prepared.Packet.Inputs {
			require.Equal(t, txbuilder.SignHashType, input.SighashType)
			require.EqualValues(t, prepared.Inputs[i].Amount.Int64(), input.WitnessUtxo.Value)
			require.Equal(t, prepared.Inputs[i].Script, input.WitnessUtxo.PkScript)
		}
	})

	t.Run("deterministic", func(t *testing.T) {
		first, err := builder.BuildDepositTx(params)
		require.NoError(t, err)

		shuffled := params
		shuffled.UTXOs = []bitcoin.UTXO{utxos[1], utxos[0]}
		second, err := builder.BuildDepositTx(shuffled)
		require.NoError(t, err)

		require.Equal(t, first.SerializedPSBT, second.SerializedPSBT)
	})

	t.Run("sub-dust change is folded into the fee", func(t *testing.T) {
		p := params
		p.UTXOs = []bitcoin.UTXO{utxos[0]}
		p.AmountSats = big.NewInt(99500)
		p.SatoshiPerVByte = big.NewInt(1)

		prepared, err := builder.BuildDepositTx(p)
		require.NoError(t, err)
		require.Len(t, prepared.Tx.TxOut, 2)
		require.EqualValues(t, big.NewInt(500), prepared.Fee)
		require.EqualValues(t, big.NewInt(0), prepared.Change)
	})

	t.Run("invalid params", func(t *testing.T) {
		p := params
		p.AmountSats = big.NewInt(0)
		_, err := builder.BuildDepositTx(p)
		require.Error(t, err)

		p = params
		p.SatoshiPerVByte = nil
		_, err = builder.BuildDepositTx(p)
		require.Error(t, err)

		p = params
		p.PoolAddress = "not-an-address"
		_, err = builder.BuildDepositTx(p)
		require.Error(t, err)
	})
}

func TestRoughTxSizeEstimate(t *testing.T) {
	require.EqualValues(t, big.NewInt(195), txbuilder.RoughTxSizeEstimate(1, 3))
	require.EqualValues(t, big.NewInt(390), txbuilder.EstimateFee(1, 3, big.NewInt(2)))
}
