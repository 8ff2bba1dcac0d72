// Copyright (C) 2025 Creditor Corp. Group.
// See LICENSE for copying information.

package deposits

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"bridge/internal/web"
)

// CreateParams describes a new deposit record.
type CreateParams struct {
	AmountSats *big.Int
	Receiver   string
	Sender     string
}

// Client manages deposit records through the bridge API. Creation happens
// exactly once per attempt, before signing; status patches are idempotent.
type Client struct {
	baseURL string
	log     *zap.Logger
}

// NewClient is a constructor for Client.
func NewClient(baseURL string, log *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		log:     log.Named("deposits"),
	}
}

// createRequest mirrors the deposit create body.
type createRequest struct {
	BTCAmount int64  `json:"btcAmount"` // in Satoshi.
	Receiver  string `json:"stxReceiver"`
	Sender    string `json:"btcSender"`
}

// createResponse mirrors the deposit create response.
type createResponse struct {
	DepositID string `json:"depositId"`
}

// Create registers a pending deposit record, reserving pool liquidity before
// any wallet interaction. The idempotency key guards against double creation
// on retried requests.
func (c *Client) Create(ctx context.Context, params CreateParams) (string, error) {
	body := createRequest{
		BTCAmount: params.AmountSats.Int64(),
		Receiver:  params.Receiver,
		Sender:    params.Sender,
	}

	var resp createResponse
	err := web.PostJSON(ctx, c.baseURL+"/deposits", body, &resp,
		web.WithHeader("Idempotency-Key", uuid.NewString()))
	if err != nil {
		return "", fmt.Errorf("create deposit record: %w", err)
	}
	if resp.DepositID == "" {
		return "", NewError(CodeMissingDepositID, nil)
	}

	c.log.Info("deposit record created", zap.String("deposit_id", resp.DepositID))

	return resp.DepositID, nil
}

// patchRequest mirrors the deposit patch body.
type patchRequest struct {
	ID   string    `json:"id"`
	Data patchData `json:"data"`
}

// patchData mirrors the mutable deposit record fields.
type patchData struct {
	BTCTxID string `json:"btcTxId,omitempty"`
	Status  Status `json:"status"`
}

// Patch moves the deposit record to a terminal status. Safe to call more
// than once with the same terminal status.
func (c *Client) Patch(ctx context.Context, id string, status Status, txID string) error {
	if !StatusPending.CanTransition(status) {
		return fmt.Errorf("illegal status transition to %q", status)
	}

	body := patchRequest{ID: id, Data: patchData{BTCTxID: txID, Status: status}}
	err := web.PatchJSON(ctx, c.baseURL+"/deposits/"+id, body, nil)
	if err != nil {
		return fmt.Errorf("patch deposit record: %w", err)
	}

	c.log.Info("deposit record patched",
		zap.String("deposit_id", id), zap.String("status", string(status)), zap.String("txid", txID))

	return nil
}

// poolResponse mirrors the pool status response.
type poolResponse struct {
	BTCAddress             string `json:"btcAddress"`
	EstimatedAvailableSats int64  `json:"estimatedAvailableSats"`
}

// Pool returns the current pool snapshot.
func (c *Client) Pool(ctx context.Context) (PoolStatus, error) {
	var resp poolResponse
	err := web.GetJSON(ctx, c.baseURL+"/pool", &resp)
	if err != nil {
		return PoolStatus{}, fmt.Errorf("fetch pool status: %w", err)
	}

	return PoolStatus{
		Address:                resp.BTCAddress,
		EstimatedAvailableSats: big.NewInt(resp.EstimatedAvailableSats),
	}, nil
}
