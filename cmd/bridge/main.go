// Copyright (C) 2025 Creditor Corp. Group.
// See LICENSE for copying information.

// Command bridge runs a single deposit attempt from the command line: it
// validates the amount, prepares and signs the transaction through the chosen
// wallet, broadcasts it, and prints the resulting deposit receipt.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/jessevdk/go-flags"
	"go.uber.org/zap"

	"bridge/deposits"
	"bridge/esplora"
	"bridge/feerates"
	"bridge/wallets"
	"bridge/wallets/hiro"
	"bridge/wallets/xverse"
)

// opts holds the command line configuration.
var opts = struct {
	Amount   string `short:"a" long:"amount" required:"true" description:"Deposit amount in BTC, decimal form"`
	Sender   string `short:"s" long:"sender" required:"true" description:"Bitcoin address the deposit is paid from"`
	Receiver string `short:"r" long:"receiver" required:"true" description:"Second-chain principal to credit"`
	Priority string `long:"priority" default:"medium" choice:"low" choice:"medium" choice:"high" description:"Fee priority tier"`
	Provider string `long:"wallet" default:"hiro" choice:"hiro" choice:"xverse" description:"Wallet provider"`

	BridgeAPI  string `long:"bridge-api" default:"http://localhost:8080/api/v1" description:"Bridge API base URL"`
	ChainAPI   string `long:"chain-api" default:"http://localhost:3002" description:"Esplora-style chain API base URL"`
	WalletAddr string `long:"wallet-addr" default:"http://localhost:7777" description:"Wallet endpoint base URL"`

	Testnet bool `long:"testnet" description:"Use the bitcoin test network (version 3)"`
	Verbose bool `short:"v" long:"verbose" description:"Enable debug logging"`
}{}

func main() {
	_, err := flags.Parse(&opts)
	if err != nil {
		os.Exit(1)
	}

	log, err := newLogger(opts.Verbose)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	networkParams := &chaincfg.MainNetParams
	networkName := "mainnet"
	if opts.Testnet {
		networkParams = &chaincfg.TestNet3Params
		networkName = "testnet"
	}

	chain := esplora.NewClient(opts.ChainAPI, networkParams, log)
	records := deposits.NewClient(opts.BridgeAPI, log)
	estimator := feerates.NewEstimator(chain, log)

	var signer wallets.Signer
	switch opts.Provider {
	case "xverse":
		signer = xverse.NewWallet(opts.WalletAddr, log)
	default:
		signer = hiro.NewWallet(opts.WalletAddr, networkName, log)
	}

	pipeline := deposits.NewPipeline(networkParams, estimator, chain, records, chain, signer, log)

	receipt, err := pipeline.Submit(ctx, deposits.Request{
		Amount:   opts.Amount,
		Sender:   opts.Sender,
		Receiver: opts.Receiver,
		Priority: opts.Priority,
		Provider: opts.Provider,
	})
	if err != nil {
		classified := deposits.Classify(err)
		log.Error("deposit failed", zap.String("code", string(classified.Code)), zap.Error(err))
		fmt.Fprintln(os.Stderr, classified.Message)
		os.Exit(1)
	}

	fmt.Printf("deposit %s broadcast as %s\n", receipt.DepositID, receipt.TxID)
	fmt.Printf("amount: %s sat, fee: %s sat (%d sat/vB", receipt.AmountSats, receipt.FeeSats, receipt.FeeRate)
	if receipt.FeeDegraded {
		fmt.Print(", approximate")
	}
	fmt.Println(")")
}

// newLogger builds the process logger. Production config keeps structured
// output on stderr so receipts on stdout stay machine-readable.
func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	return cfg.Build()
}
