// Copyright (C) 2025 Creditor Corp. Group.
// See LICENSE for copying information.

// Package xverse implements the "PSBT + address-scoped inputs" signing
// variant: the wallet receives a base64 PSBT with an explicit map of which
// input indexes each address must sign, broadcasts on its own, and returns
// the transaction id. Account info sits behind a permission gate, handled as
// a retry-once sub-protocol.
package xverse

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"

	"go.uber.org/zap"

	"bridge/bitcoin/txbuilder"
	"bridge/internal/web"
	"bridge/wallets"
)

const providerName = "xverse"

const rpcPath = "/v2/rpc"

const (
	// codeUserRejection defines the vendor code for an explicit user refusal.
	codeUserRejection = -32000
	// codeAccessDenied defines the vendor code returned until the site is
	// granted account permissions.
	codeAccessDenied = -32002
)

const paymentPurpose = "payment"

// Wallet drives the xverse signing protocol.
type Wallet struct {
	endpoint string
	log      *zap.Logger
}

// NewWallet is a constructor for Wallet.
func NewWallet(endpoint string, log *zap.Logger) *Wallet {
	return &Wallet{
		endpoint: strings.TrimRight(endpoint, "/"),
		log:      log.Named(providerName),
	}
}

// Provider returns the wallet vendor id.
func (w *Wallet) Provider() string { return providerName }

// NeedsScriptAugmentation reports that this variant cannot reconstruct
// P2SH-wrapped segwit redeem scripts on its own.
func (w *Wallet) NeedsScriptAugmentation() bool { return true }

// rpcRequest is the vendor request envelope.
type rpcRequest struct {
	Method string `json:"method"`
	Params any    `json:"params,omitempty"`
}

// rpcError is the vendor error shape.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// rpcResponse is the vendor response envelope.
type rpcResponse struct {
	Status string          `json:"status"`
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

// call performs one vendor round trip and decodes a successful result into
// out, if non-nil.
func (w *Wallet) call(ctx context.Context, method string, params, out any) error {
	var response rpcResponse
	err := web.PostJSON(ctx, w.endpoint+rpcPath, rpcRequest{Method: method, Params: params}, &response)
	if err != nil {
		return wallets.WrapTransportError(err)
	}

	if response.Status != "success" {
		if response.Error == nil {
			return &wallets.ProtocolError{Provider: providerName, Message: "error status without error body"}
		}
		if response.Error.Code == codeUserRejection {
			return wallets.ErrUserDeclined
		}

		return &wallets.ProtocolError{Provider: providerName, Code: response.Error.Code, Message: response.Error.Message}
	}

	if out == nil {
		return nil
	}

	return json.Unmarshal(response.Result, out)
}

// account mirrors one entry of the getAccounts result.
type account struct {
	Address   string `json:"address"`
	PublicKey string `json:"publicKey"`
	Purpose   string `json:"purpose"`
}

// getAccounts requests account info, passing the permission gate at most
// once: a first access denial triggers one requestPermissions round trip and
// one retry, a second denial is a terminal user refusal, never a loop.
func (w *Wallet) getAccounts(ctx context.Context) ([]account, error) {
	var accounts []account
	err := w.call(ctx, "getAccounts", nil, &accounts)
	if !isAccessDenied(err) {
		return accounts, err
	}

	w.log.Debug("account access denied, requesting permissions once")

	err = w.call(ctx, "requestPermissions", nil, nil)
	if err != nil {
		if isAccessDenied(err) {
			return nil, wallets.ErrUserDeclined
		}

		return nil, err
	}

	err = w.call(ctx, "getAccounts", nil, &accounts)
	if isAccessDenied(err) {
		return nil, wallets.ErrUserDeclined
	}

	return accounts, err
}

func isAccessDenied(err error) bool {
	var protocolErr *wallets.ProtocolError
	return errors.As(err, &protocolErr) && protocolErr.Code == codeAccessDenied
}

// PaymentPublicKey returns the public key of the payment account matching the
// address, for client-side redeem script construction.
func (w *Wallet) PaymentPublicKey(ctx context.Context, address string) (string, error) {
	accounts, err := w.getAccounts(ctx)
	if err != nil {
		return "", err
	}

	for _, acc := range accounts {
		if acc.Address == address && acc.PublicKey != "" {
			return acc.PublicKey, nil
		}
	}
	for _, acc := range accounts {
		if acc.Purpose == paymentPurpose && acc.PublicKey != "" {
			return acc.PublicKey, nil
		}
	}

	return "", &wallets.ProtocolError{Provider: providerName, Message: "no payment account for " + address}
}

// signParams mirrors the vendor signPsbt request parameters.
type signParams struct {
	PSBT           string           `json:"psbt"` // base64.
	SignInputs     map[string][]int `json:"signInputs"`
	Broadcast      bool             `json:"broadcast"`
	AllowedSighash []int            `json:"allowedSighash"`
	Options        signOptions      `json:"options"`
}

// signOptions mirrors the vendor signPsbt request options.
type signOptions struct {
	AllowUnknownOutputs bool `json:"allowUnknownOutputs"`
}

// signResult mirrors the vendor signPsbt result.
type signResult struct {
	TxID string `json:"txid"`
}

// SignDeposit sends the PSBT with address-scoped input indexes and lets the
// wallet broadcast. The returned result carries the transaction id.
func (w *Wallet) SignDeposit(ctx context.Context, req wallets.SignRequest) (*wallets.SignResult, error) {
	params := signParams{
		PSBT:           base64.StdEncoding.EncodeToString(req.PSBT),
		SignInputs:     map[string][]int{req.SenderAddress: req.InputIndexes},
		Broadcast:      true,
		AllowedSighash: []int{int(txbuilder.SignHashType)},
		Options:        signOptions{AllowUnknownOutputs: true},
	}

	w.log.Debug("requesting signature", zap.Int("inputs", len(req.InputIndexes)))

	var result signResult
	err := w.call(ctx, "signPsbt", params, &result)
	if err != nil {
		return nil, err
	}
	if result.TxID == "" {
		return nil, &wallets.ProtocolError{Provider: providerName, Message: "signPsbt result without txid"}
	}

	return &wallets.SignResult{TxID: result.TxID}, nil
}
