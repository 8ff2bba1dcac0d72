// Copyright (C) 2025 Creditor Corp. Group.
// See LICENSE for copying information.

package txbuilder

import (
	"bytes"

	"github.com/btcsuite/btcd/btcutil/psbt"
)

// FinalizeAndExtract finalizes a signed PSBT, extracts the network-ready
// transaction, and returns its raw serialization together with the
// transaction id.
func FinalizeAndExtract(serializedPSBT []byte) ([]byte, string, error) {
	packet, err := psbt.NewFromRawBytes(bytes.NewReader(serializedPSBT), false)
	if err != nil {
		return nil, "", err
	}

	err = psbt.MaybeFinalizeAll(packet)
	if err != nil {
		return nil, "", err
	}

	tx, err := psbt.Extract(packet)
	if err != nil {
		return nil, "", err
	}

	w := bytes.NewBuffer(nil)
	err = tx.Serialize(w)
	if err != nil {
		return nil, "", err
	}

	return w.Bytes(), tx.TxHash().String(), nil
}
