// Copyright (C) 2025 Creditor Corp. Group.
// See LICENSE for copying information.

// Package esplora implements the client side of the external chain interface:
// address UTXO sets with inscription flags, fee estimates, and raw
// transaction broadcast over an esplora-style HTTP API.
package esplora

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"go.uber.org/zap"

	"bridge/bitcoin"
	"bridge/internal/web"
)

// BroadcastError describes a transaction rejected by the broadcast endpoint.
// Text carries the endpoint's response verbatim: rejection reasons are
// network truth and are never reclassified.
type BroadcastError struct {
	Text string
}

// Error returns error description.
func (e *BroadcastError) Error() string {
	return "broadcast rejected: " + e.Text
}

// Client talks to an esplora-style chain API.
type Client struct {
	baseURL       string
	networkParams *chaincfg.Params
	log           *zap.Logger
}

// NewClient is a constructor for Client.
func NewClient(baseURL string, networkParams *chaincfg.Params, log *zap.Logger) *Client {
	return &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		networkParams: networkParams,
		log:           log.Named("esplora"),
	}
}

// utxoEntry mirrors one element of the address utxo response.
type utxoEntry struct {
	TxID      string `json:"txid"`
	Vout      uint32 `json:"vout"`
	Value     int64  `json:"value"`
	Inscribed bool   `json:"inscribed"`
}

// UTXOs returns the address's unspent outputs. The set may go stale between
// this read and broadcast; conflicts surface later as a broadcast rejection.
func (c *Client) UTXOs(ctx context.Context, address string) ([]bitcoin.UTXO, error) {
	decoded, err := btcutil.DecodeAddress(address, c.networkParams)
	if err != nil {
		return nil, fmt.Errorf("decode address: %w", err)
	}

	script, err := txscript.PayToAddrScript(decoded)
	if err != nil {
		return nil, fmt.Errorf("address script: %w", err)
	}

	var entries []utxoEntry
	err = web.GetJSON(ctx, c.baseURL+"/address/"+address+"/utxo", &entries)
	if err != nil {
		return nil, fmt.Errorf("fetch utxos: %w", err)
	}

	utxos := make([]bitcoin.UTXO, len(entries))
	for i, entry := range entries {
		utxos[i] = bitcoin.UTXO{
			TxHash:    entry.TxID,
			Index:     entry.Vout,
			Amount:    big.NewInt(entry.Value),
			Script:    script,
			Address:   address,
			Inscribed: entry.Inscribed,
		}
	}

	c.log.Debug("fetched utxo set", zap.String("address", address), zap.Int("count", len(utxos)))

	return utxos, nil
}

// feeEstimatesResponse mirrors the fee estimate endpoint body.
type feeEstimatesResponse struct {
	Low    float64 `json:"low"`
	Medium float64 `json:"medium"`
	High   float64 `json:"high"`
}

// FeeEstimates returns the current low/medium/high satoshi per vByte rates.
func (c *Client) FeeEstimates(ctx context.Context) (low, medium, high float64, err error) {
	var resp feeEstimatesResponse
	err = web.GetJSON(ctx, c.baseURL+"/fee-estimates", &resp)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("fetch fee estimates: %w", err)
	}

	return resp.Low, resp.Medium, resp.High, nil
}

// Broadcast submits a finalized raw transaction. The response body is the
// transaction id. Rejections carry the endpoint's error text verbatim.
func (c *Client) Broadcast(ctx context.Context, rawTx []byte) (string, error) {
	txID, err := web.PostText(ctx, c.baseURL+"/tx", hex.EncodeToString(rawTx))
	if err != nil {
		var statusErr *web.StatusError
		if errors.As(err, &statusErr) {
			return "", &BroadcastError{Text: statusErr.Body}
		}

		return "", fmt.Errorf("broadcast: %w", err)
	}
	if txID == "" {
		return "", &BroadcastError{Text: "empty broadcast response"}
	}

	c.log.Info("transaction broadcast", zap.String("txid", txID))

	return txID, nil
}
