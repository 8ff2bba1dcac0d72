// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package bitcoin

import (
	"fmt"
	"math/big"
)

// UTXO describes unspent transaction output data.
type UTXO struct {
	TxHash    string
	Index     uint32   // output index in transaction outputs.
	Amount    *big.Int // in Satoshi.
	Script    []byte   // ScriptPubKey.
	Address   string   // output recipient address.
	Inscribed bool     // output carries an ordinal inscription and must not be spent as payment fuel.
}

// Outpoint returns the canonical textual reference of the output.
func (u UTXO) Outpoint() string {
	return fmt.Sprintf("%s:%d", u.TxHash, u.Index)
}
