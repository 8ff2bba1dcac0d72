// Copyright (C) 2025 Creditor Corp. Group.
// See LICENSE for copying information.

package txbuilder_test

import (
	"encoding/hex"
	"testing"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/stretchr/testify/require"

	"bridge/bitcoin/txbuilder"
	"bridge/bitcoin/utils"
)

const (
	// nestedSegWitPubKey hashes to the witness program committed in
	// nestedSegWitAddress.
	nestedSegWitPubKey  = "03d17661b814dfaf3f7d6e70e8d4c8f5e6fdbe780a2c0373dd06ca7d75dc19f8be"
	nestedSegWitAddress = "2MvdCXCZZsJc3g9gsXhWdAoTwzoTX2vq3yv"

	taprootPubKey  = "29fa611c361355b082ee593feb368009aa9c6bd1ed36c9983edcd113fb8da33f"
	taprootAddress = "tb1plydnmvkrx95hl7yvaskh7c8q79vyj5av96turwhhcctt3s5d8d4spjttqx"
)

func TestPSBTInputBuilder(t *testing.T) {
	networkParams := &chaincfg.TestNet3Params

	t.Run("nested segwit", func(t *testing.T) {
		pib, err := txbuilder.NewPSBTInputBuilder(nestedSegWitPubKey, nestedSegWitAddress, networkParams)
		require.NoError(t, err)
		require.Equal(t, utils.P2SH, pib.ScriptType())

		var input psbt.PInput
		pib.PrepareInput(&input)
		require.Equal(t, "0014f3eb3c453b01141e602beb2d1335f6be507b8138", hex.EncodeToString(input.RedeemScript))
		require.Equal(t, input.RedeemScript, input.WitnessScript)
	})

	t.Run("nested segwit script mismatch", func(t *testing.T) {
		// a valid compressed key that does not control the address.
		foreignPubKey := "0279be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798"

		_, err := txbuilder.NewPSBTInputBuilder(foreignPubKey, nestedSegWitAddress, networkParams)
		require.ErrorIs(t, err, txbuilder.ErrPSBTInputBuilder)
		require.ErrorIs(t, err, txbuilder.ErrScriptMismatch)
	})

	t.Run("nested segwit requires a compressed key", func(t *testing.T) {
		_, err := txbuilder.NewPSBTInputBuilder(taprootPubKey, nestedSegWitAddress, networkParams)
		require.ErrorIs(t, err, txbuilder.ErrPSBTInputBuilder)
	})

	t.Run("taproot", func(t *testing.T) {
		pib, err := txbuilder.NewPSBTInputBuilder(taprootPubKey, taprootAddress, networkParams)
		require.NoError(t, err)
		require.Equal(t, utils.P2TR, pib.ScriptType())

		var input psbt.PInput
		pib.PrepareInput(&input)
		expected, _ := hex.DecodeString(taprootPubKey)
		require.Equal(t, expected, input.TaprootInternalKey)
		require.Empty(t, input.RedeemScript)
	})

	t.Run("native segwit", func(t *testing.T) {
		pib, err := txbuilder.NewPSBTInputBuilder(nestedSegWitPubKey, senderAddress, networkParams)
		require.NoError(t, err)
		require.Equal(t, utils.P2WPKH, pib.ScriptType())

		var input psbt.PInput
		pib.PrepareInput(&input)
		require.NotEmpty(t, input.WitnessScript)
		require.Empty(t, input.RedeemScript)
	})

	t.Run("invalid inputs", func(t *testing.T) {
		_, err := txbuilder.NewPSBTInputBuilder("zz-not-hex", nestedSegWitAddress, networkParams)
		require.ErrorIs(t, err, txbuilder.ErrPSBTInputBuilder)

		_, err = txbuilder.NewPSBTInputBuilder(nestedSegWitPubKey, "not-an-address", networkParams)
		require.ErrorIs(t, err, txbuilder.ErrPSBTInputBuilder)
	})

	t.Run("augment packet touches every input", func(t *testing.T) {
		pib, err := txbuilder.NewPSBTInputBuilder(nestedSegWitPubKey, nestedSegWitAddress, networkParams)
		require.NoError(t, err)

		packet := &psbt.Packet{Inputs: make([]psbt.PInput, 3)}
		pib.AugmentPacket(packet)
		for _, input := range packet.Inputs {
			require.NotEmpty(t, input.RedeemScript)
			require.NotEmpty(t, input.WitnessScript)
		}
	})
}
