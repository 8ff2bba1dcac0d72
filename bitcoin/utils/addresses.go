// Copyright (C) 2025 Creditor Corp. Group.
// See LICENSE for copying information.

package utils

import (
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
)

const (
	// P2PK defines P2PK (public key) script type over which the address is built.
	P2PK = "P2PK"
	// P2PKH defines P2PKH (public key hash) script type over which the address is built.
	P2PKH = "P2PKH"
	// P2SH defines P2SH (script hash) script type over which the address is built.
	P2SH = "P2SH"
	// P2WPKH defines P2WPKH (witness public key hash) script type over which the address is built.
	P2WPKH = "P2WPKH"
	// P2WSH defines P2WSH (witness script hash) script type over which the address is built.
	P2WSH = "P2WSH"
	// P2TR defines P2TR (taproot) script type over which the address is built.
	P2TR = "P2TR"
)

// AddressScriptType returns the script type constant for a decoded address.
func AddressScriptType(address btcutil.Address) (string, error) {
	switch address.(type) {
	case *btcutil.AddressTaproot:
		return P2TR, nil
	case *btcutil.AddressWitnessPubKeyHash:
		return P2WPKH, nil
	case *btcutil.AddressWitnessScriptHash:
		return P2WSH, nil
	case *btcutil.AddressPubKeyHash:
		return P2PKH, nil
	case *btcutil.AddressPubKey:
		return P2PK, nil
	case *btcutil.AddressScriptHash:
		return P2SH, nil
	}

	return "", btcutil.ErrUnknownAddressType
}

// DecodeAddressScriptType decodes the address string and returns its script type.
func DecodeAddressScriptType(address string, networkParams *chaincfg.Params) (string, error) {
	decoded, err := btcutil.DecodeAddress(address, networkParams)
	if err != nil {
		return "", err
	}

	return AddressScriptType(decoded)
}

// IsP2SHAddress returns true if the address is a P2SH (script hash) address.
func IsP2SHAddress(address string, networkParams *chaincfg.Params) bool {
	scriptType, err := DecodeAddressScriptType(address, networkParams)

	return err == nil && scriptType == P2SH
}
