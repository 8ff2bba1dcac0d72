// Copyright (C) 2025 Creditor Corp. Group.
// See LICENSE for copying information.

package utils

import (
	"bytes"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
)

// NewNestedSegWitRedeemScript derives the P2WPKH witness program for the
// public key. For a P2WPKH-in-P2SH spend this program is both the redeem
// script revealed in the script sig and the witness program the signature
// commits to.
func NewNestedSegWitRedeemScript(publicKey *btcec.PublicKey, networkParams *chaincfg.Params) ([]byte, error) {
	witnessAddress, err := btcutil.NewAddressWitnessPubKeyHash(
		btcutil.Hash160(publicKey.SerializeCompressed()), networkParams)
	if err != nil {
		return nil, err
	}

	return txscript.PayToAddrScript(witnessAddress)
}

// NestedSegWitRedeemScriptMatches reports whether the redeem script hashes to
// the script hash committed in the P2SH address.
func NestedSegWitRedeemScriptMatches(redeemScript []byte, address btcutil.Address) bool {
	scriptHash, ok := address.(*btcutil.AddressScriptHash)
	if !ok {
		return false
	}

	return bytes.Equal(btcutil.Hash160(redeemScript), scriptHash.ScriptAddress())
}
