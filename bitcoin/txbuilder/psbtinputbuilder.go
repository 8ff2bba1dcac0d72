// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package txbuilder

import (
	"encoding/hex"
	"errors"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"

	"bridge/bitcoin/utils"
)

// ErrPSBTInputBuilder defines errors class for prepare address data method.
var ErrPSBTInputBuilder = errors.New("prepare address data")

// ErrScriptMismatch defines that the derived redeem script does not hash to
// the sender's P2SH address, so the public key does not control it.
var ErrScriptMismatch = errors.New("redeem script does not match address")

// PSBTInputBuilder is a helping tool to prepare psbt inputs based on the
// sender address type. For P2SH-wrapped SegWit senders it reconstructs the
// redeem script from the signer's public key, since some wallets cannot
// resolve it on their own.
type PSBTInputBuilder struct {
	params         *chaincfg.Params
	scriptType     string
	address        btcutil.Address
	publicKeyBytes []byte
	publicKey      *btcec.PublicKey
	xOnlyPubKey    []byte
	witnessScript  []byte
	redeemScript   []byte
}

// NewPSBTInputBuilder is a constructor for PSBTInputBuilder.
func NewPSBTInputBuilder(pubKey, address string, networkParams *chaincfg.Params) (pib *PSBTInputBuilder, err error) {
	pib = &PSBTInputBuilder{params: networkParams}

	defer func(err *error) {
		if err != nil && *err != nil {
			*err = errors.Join(ErrPSBTInputBuilder, *err)
		}
	}(&err)

	pib.publicKeyBytes, err = hex.DecodeString(pubKey)
	if err != nil {
		return pib, err
	}

	if len(pib.publicKeyBytes) == 33 {
		pib.xOnlyPubKey = pib.publicKeyBytes[1:]
		pib.publicKey, err = btcec.ParsePubKey(pib.publicKeyBytes)
		if err != nil {
			return pib, err
		}
	} else {
		pib.xOnlyPubKey = pib.publicKeyBytes
	}

	pib.address, err = btcutil.DecodeAddress(address, pib.params)
	if err != nil {
		return pib, err
	}

	pib.scriptType, err = utils.AddressScriptType(pib.address)
	if err != nil {
		return pib, err
	}

	switch pib.scriptType {
	case utils.P2SH:
		if pib.publicKey == nil {
			return pib, errors.New("compressed public key required for nested segwit")
		}

		pib.redeemScript, err = utils.NewNestedSegWitRedeemScript(pib.publicKey, pib.params)
		if err != nil {
			return pib, err
		}
		if !utils.NestedSegWitRedeemScriptMatches(pib.redeemScript, pib.address) {
			return pib, ErrScriptMismatch
		}

		// witness commits to the same program the redeem script reveals.
		pib.witnessScript = pib.redeemScript
	case utils.P2WPKH, utils.P2WSH:
		pib.witnessScript, err = txscript.PayToAddrScript(pib.address)
		if err != nil {
			return pib, err
		}
	}

	return pib, nil
}

// PrepareInput updates input with required data based on address type.
func (pib *PSBTInputBuilder) PrepareInput(input *psbt.PInput) {
	switch pib.scriptType {
	case utils.P2TR:
		input.TaprootInternalKey = pib.xOnlyPubKey
	case utils.P2SH:
		input.RedeemScript = pib.redeemScript
		input.WitnessScript = pib.witnessScript
	case utils.P2WPKH, utils.P2WSH:
		input.WitnessScript = pib.witnessScript
	}
}

// AugmentPacket prepares every input of the packet. After augmentation every
// input of a P2SH sender carries a non-empty redeem script.
func (pib *PSBTInputBuilder) AugmentPacket(packet *psbt.Packet) {
	for i := range packet.Inputs {
		pib.PrepareInput(&packet.Inputs[i])
	}
}

// ScriptType returns underlying script type.
func (pib *PSBTInputBuilder) ScriptType() string {
	return pib.scriptType
}
