// Copyright (C) 2025 Creditor Corp. Group.
// See LICENSE for copying information.

// Package hiro implements the "direct hex" signing variant: the wallet
// receives the serialized unsigned transaction as hex with a fixed signature
// hash policy and returns signed hex. It never broadcasts; the caller
// finalizes and broadcasts the result.
package hiro

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"bridge/bitcoin/txbuilder"
	"bridge/internal/web"
	"bridge/wallets"
)

const providerName = "hiro"

const signPath = "/v1/psbt/sign"

// Wallet drives the hiro signing protocol.
type Wallet struct {
	endpoint string
	network  string // network name passed through to the wallet.
	log      *zap.Logger
}

// NewWallet is a constructor for Wallet.
func NewWallet(endpoint, network string, log *zap.Logger) *Wallet {
	return &Wallet{
		endpoint: strings.TrimRight(endpoint, "/"),
		network:  network,
		log:      log.Named(providerName),
	}
}

// Provider returns the wallet vendor id.
func (w *Wallet) Provider() string { return providerName }

// NeedsScriptAugmentation reports that this variant resolves redeem scripts
// on its own.
func (w *Wallet) NeedsScriptAugmentation() bool { return false }

// signRequest mirrors the vendor signing request body.
type signRequest struct {
	Hex                 string `json:"hex"`
	Network             string `json:"network"`
	Broadcast           bool   `json:"broadcast"`
	AllowedSighash      []int  `json:"allowedSighash"`
	AllowUnknownOutputs bool   `json:"allowUnknownOutputs"`
}

// signResponse mirrors the vendor signing response body.
type signResponse struct {
	Hex string `json:"hex"`
}

// SignDeposit sends the unsigned transaction hex and returns the signed PSBT.
func (w *Wallet) SignDeposit(ctx context.Context, req wallets.SignRequest) (*wallets.SignResult, error) {
	request := signRequest{
		Hex:       hex.EncodeToString(req.PSBT),
		Network:   w.network,
		Broadcast: false,
		// the OP_RETURN deposit payload is unknown to the wallet.
		AllowedSighash:      []int{int(txbuilder.SignHashType)},
		AllowUnknownOutputs: true,
	}

	w.log.Debug("requesting signature", zap.Int("inputs", len(req.InputIndexes)))

	var response signResponse
	err := web.PostJSON(ctx, w.endpoint+signPath, request, &response)
	if err != nil {
		return nil, w.mapError(err)
	}

	signed, err := hex.DecodeString(response.Hex)
	if err != nil || len(signed) == 0 {
		return nil, &wallets.ProtocolError{Provider: providerName, Message: fmt.Sprintf("unusable signed hex: %v", err)}
	}

	return &wallets.SignResult{SignedPSBT: signed}, nil
}

// mapError normalizes transport and vendor failures. Substring matching on
// the response text happens only here, at the vendor boundary, because the
// wallet reports refusals as free text.
func (w *Wallet) mapError(err error) error {
	var statusErr *web.StatusError
	if errors.As(err, &statusErr) {
		body := strings.ToLower(statusErr.Body)
		if strings.Contains(body, "reject") || strings.Contains(body, "denied") || strings.Contains(body, "cancel") {
			return wallets.ErrUserDeclined
		}

		return &wallets.ProtocolError{Provider: providerName, Code: statusErr.Code, Message: statusErr.Body}
	}

	return wallets.WrapTransportError(err)
}
