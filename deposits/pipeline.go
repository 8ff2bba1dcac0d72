// Copyright (C) 2025 Creditor Corp. Group.
// See LICENSE for copying information.

package deposits

import (
	"context"
	"errors"
	"math/big"

	"github.com/btcsuite/btcd/chaincfg"
	"go.uber.org/zap"

	"bridge/bitcoin"
	"bridge/bitcoin/txbuilder"
	"bridge/bitcoin/utils"
	"bridge/feerates"
	"bridge/wallets"
)

// FeeSource supplies normalized fee tiers. It never fails: degraded tiers
// replace unavailable estimates.
type FeeSource interface {
	Tiers(ctx context.Context) feerates.Tiers
}

// UTXOSource supplies the sender's unspent outputs.
type UTXOSource interface {
	UTXOs(ctx context.Context, address string) ([]bitcoin.UTXO, error)
}

// Broadcaster submits a finalized raw transaction and returns its id.
type Broadcaster interface {
	Broadcast(ctx context.Context, rawTx []byte) (string, error)
}

// Records manages the durable deposit record and the pool snapshot.
type Records interface {
	Create(ctx context.Context, params CreateParams) (string, error)
	Patch(ctx context.Context, id string, status Status, txID string) error
	Pool(ctx context.Context) (PoolStatus, error)
}

// Receipt describes a completed deposit attempt.
type Receipt struct {
	DepositID   string
	TxID        string
	AmountSats  *big.Int
	FeeSats     *big.Int
	FeeRate     uint64 // satoshi per vByte.
	FeeDegraded bool   // fee came from the fallback rate, approximate only.
	ChangeSats  *big.Int
	InputsUsed  int
}

// Pipeline runs one deposit attempt end to end. All collaborators are passed
// in explicitly so attempts are reproducible with fabricated sessions.
type Pipeline struct {
	networkParams *chaincfg.Params
	builder       *txbuilder.TxBuilder
	fees          FeeSource
	utxos         UTXOSource
	records       Records
	caster        Broadcaster
	signer        wallets.Signer
	log           *zap.Logger
}

// NewPipeline is a constructor for Pipeline.
func NewPipeline(networkParams *chaincfg.Params, fees FeeSource, utxos UTXOSource,
	records Records, caster Broadcaster, signer wallets.Signer, log *zap.Logger) *Pipeline {
	return &Pipeline{
		networkParams: networkParams,
		builder:       txbuilder.NewTxBuilder(networkParams),
		fees:          fees,
		utxos:         utxos,
		records:       records,
		caster:        caster,
		signer:        signer,
		log:           log.Named("pipeline"),
	}
}

// Submit executes the deposit sequence: validate → fee → utxo → prepare →
// augment → create record → sign → broadcast → patch record. Failures after
// record creation trigger a best-effort cancel patch. Every error returned
// is taxonomy-coded.
func (p *Pipeline) Submit(ctx context.Context, req Request) (*Receipt, error) {
	pool, err := p.records.Pool(ctx)
	if err != nil {
		return nil, Classify(err)
	}

	sats, err := ValidateAmount(req.Amount, pool)
	if err != nil {
		return nil, Classify(err)
	}

	priority, err := feerates.ParsePriority(req.Priority)
	if err != nil {
		priority = feerates.PriorityMedium
	}

	tiers := p.fees.Tiers(ctx)
	rate := tiers.Rate(priority)

	utxoSet, err := p.utxos.UTXOs(ctx, req.Sender)
	if err != nil {
		return nil, Classify(err)
	}

	prepared, err := p.builder.BuildDepositTx(txbuilder.DepositParams{
		AmountSats:        sats,
		SenderAddress:     req.Sender,
		PoolAddress:       pool.Address,
		ReceiverPrincipal: req.Receiver,
		UTXOs:             utxoSet,
		SatoshiPerVByte:   new(big.Int).SetUint64(rate),
	})
	if err != nil {
		return nil, Classify(err)
	}

	// P2SH senders need the redeem script attached before signing when the
	// wallet cannot reconstruct it. This happens before record creation: if
	// the public key cannot be resolved, no signing request is sent and no
	// record exists.
	if err = p.augmentNestedSegWit(ctx, req.Sender, prepared); err != nil {
		return nil, Classify(err)
	}

	depositID, err := p.records.Create(ctx, CreateParams{AmountSats: sats, Receiver: req.Receiver, Sender: req.Sender})
	if err != nil {
		return nil, Classify(err)
	}

	// from here every failure must attempt the cancel patch.
	indexes := make([]int, len(prepared.Inputs))
	for i := range indexes {
		indexes[i] = i
	}

	result, err := p.signer.SignDeposit(ctx, wallets.SignRequest{
		PSBT:          prepared.SerializedPSBT,
		SenderAddress: req.Sender,
		InputIndexes:  indexes,
	})
	if err != nil {
		return nil, p.cancel(ctx, depositID, err)
	}

	txID := result.TxID
	if txID == "" {
		rawTx, _, ferr := txbuilder.FinalizeAndExtract(result.SignedPSBT)
		if ferr != nil {
			return nil, p.cancel(ctx, depositID, ferr)
		}

		txID, err = p.caster.Broadcast(ctx, rawTx)
		if err != nil {
			return nil, p.cancel(ctx, depositID, err)
		}
	}

	// the transaction is on the network; a failed success patch leaves the
	// record pending for external cleanup but must not fail the deposit.
	if err = p.records.Patch(ctx, depositID, StatusBroadcast, txID); err != nil {
		p.log.Error("failed to patch deposit record to broadcast",
			zap.String("deposit_id", depositID), zap.String("txid", txID), zap.Error(err))
	}

	p.log.Info("deposit broadcast",
		zap.String("deposit_id", depositID), zap.String("txid", txID),
		zap.String("amount_sats", sats.String()), zap.Bool("fee_degraded", tiers.Degraded))

	return &Receipt{
		DepositID:   depositID,
		TxID:        txID,
		AmountSats:  sats,
		FeeSats:     prepared.Fee,
		FeeRate:     rate,
		FeeDegraded: tiers.Degraded,
		ChangeSats:  prepared.Change,
		InputsUsed:  len(prepared.Inputs),
	}, nil
}

// augmentNestedSegWit attaches redeem and witness scripts to every input of
// a P2SH sender when the wallet variant cannot derive them itself.
func (p *Pipeline) augmentNestedSegWit(ctx context.Context, sender string, prepared *txbuilder.PreparedTx) error {
	if !p.signer.NeedsScriptAugmentation() || !utils.IsP2SHAddress(sender, p.networkParams) {
		return nil
	}

	provider, ok := p.signer.(wallets.AccountProvider)
	if !ok {
		return NewError(CodeAddressTypeUnsupported, errors.New(p.signer.Provider()+" cannot expose account keys"))
	}

	pubKey, err := provider.PaymentPublicKey(ctx, sender)
	if err != nil {
		// refusals and absent wallets keep their own codes; anything else
		// means the key cannot be resolved for this address type.
		if errors.Is(err, wallets.ErrUserDeclined) || errors.Is(err, wallets.ErrWalletNotInstalled) {
			return err
		}

		return NewError(CodeAddressTypeUnsupported, err)
	}

	pib, err := txbuilder.NewPSBTInputBuilder(pubKey, sender, p.networkParams)
	if err != nil {
		return err
	}

	pib.AugmentPacket(prepared.Packet)
	_, err = prepared.Serialize()

	return err
}

// cancel best-effort patches the record to canceled and returns the
// classified original error. A failed patch is logged, never masking the
// cause shown to the user.
func (p *Pipeline) cancel(ctx context.Context, depositID string, cause error) error {
	// the cancel patch must go through even when the user aborted the attempt.
	patchCtx := context.WithoutCancel(ctx)
	if err := p.records.Patch(patchCtx, depositID, StatusCanceled, ""); err != nil {
		p.log.Error("failed to cancel deposit record",
			zap.String("deposit_id", depositID), zap.Error(err))
	}

	return Classify(cause)
}
