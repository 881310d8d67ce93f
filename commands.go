// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/davecgh/go-spew/spew"
	"github.com/lightningnetwork/lnd/fn/v2"

	"github.com/btcsuite/hdwallet/keypair"
	"github.com/btcsuite/hdwallet/p2p"
	"github.com/btcsuite/hdwallet/wallet"
	"github.com/btcsuite/hdwallet/wallet/txauthor"
)

// commandHandlers dispatches the positional command to its
// implementation.
var commandHandlers = map[string]func(context.Context, *config, []string) error{
	"genkey":    genKeyCmd,
	"addresses": addressesCmd,
	"xpub":      xpubCmd,
	"discover":  discoverCmd,
	"balance":   balanceCmd,
	"utxos":     utxosCmd,
	"fees":      feesCmd,
	"createtx":  createTxCmd,
	"sendtx":    sendTxCmd,
	"broadcast": broadcastCmd,
	"decodetx":  decodeTxCmd,
}

// genKeyCmd generates a fresh private key and prints it in every form a
// wallet could be restored from.
func genKeyCmd(_ context.Context, _ *config, _ []string) error {
	pair, err := keypair.Generate()
	if err != nil {
		return err
	}

	wifUncompressed, err := pair.ToWIF(activeNet.Params, false)
	if err != nil {
		return err
	}
	wifCompressed, err := pair.ToWIF(activeNet.Params, true)
	if err != nil {
		return err
	}
	addrUncompressed, err := keypair.AddressForPubKey(pair.PubKey(), false,
		activeNet.Params)
	if err != nil {
		return err
	}
	addrCompressed, err := keypair.AddressForPubKey(pair.PubKey(), true,
		activeNet.Params)
	if err != nil {
		return err
	}

	fmt.Printf("Private key (hex):      %s\n", pair.PrivKeyHex())
	fmt.Printf("WIF (uncompressed):     %s\n", wifUncompressed)
	fmt.Printf("WIF (compressed):       %s\n", wifCompressed)
	fmt.Printf("Address (uncompressed): %s\n",
		addrUncompressed.EncodeAddress())
	fmt.Printf("Address (compressed):   %s\n",
		addrCompressed.EncodeAddress())
	return nil
}

// addressesCmd prints the wallet's first external addresses.
func addressesCmd(_ context.Context, cfg *config, args []string) error {
	count := uint32(10)
	if len(args) > 0 {
		n, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil || n == 0 {
			return fmt.Errorf("invalid address count %q", args[0])
		}
		count = uint32(n)
	}

	w, err := openWallet(cfg)
	if err != nil {
		return err
	}

	records, err := w.Addresses(count)
	if err != nil {
		return err
	}
	fmt.Printf("%v addresses (%s):\n", w.Standard(),
		activeNet.Params.Name)
	for _, rec := range records {
		fmt.Printf("  %4d  %s\n", rec.Index, rec.Address)
	}
	return nil
}

// xpubCmd prints the master extended public key and its fingerprint.
func xpubCmd(_ context.Context, cfg *config, _ []string) error {
	w, err := openWallet(cfg)
	if err != nil {
		return err
	}

	xpub, err := w.XPub()
	if err != nil {
		return err
	}
	fingerprint, err := w.Fingerprint()
	if err != nil {
		return err
	}

	fmt.Printf("Master xpub: %s\n", xpub)
	fmt.Printf("Fingerprint: %s\n", fingerprint)
	return nil
}

// discoverCmd scans the network for the wallet's used addresses.
func discoverCmd(ctx context.Context, cfg *config, _ []string) error {
	w, err := openWallet(cfg)
	if err != nil {
		return err
	}
	standard, err := wallet.ParseStandard(cfg.Standard)
	if err != nil {
		return err
	}

	summary, err := w.DiscoverAddresses(ctx, wallet.DiscoveryOptions{
		Standard: standard,
	})
	if err != nil {
		return err
	}

	for _, result := range summary.Results {
		fmt.Printf("%v: %d used addresses (external %d/%d scanned, "+
			"internal %d/%d scanned), balance %v\n",
			result.Standard, result.UsedAddresses(),
			result.External.Used, result.External.Scanned,
			result.Internal.Used, result.Internal.Scanned,
			result.Balance)
	}
	fmt.Printf("Active standard: %v\n", summary.Active)

	for _, rec := range w.CachedAddresses() {
		if rec.Used {
			fmt.Printf("  used %v/%d %s\n", rec.Branch, rec.Index,
				rec.Address)
		}
	}
	return nil
}

// balanceCmd prints the confirmed balance of the wallet's addresses.
func balanceCmd(ctx context.Context, cfg *config, _ []string) error {
	w, err := openWallet(cfg)
	if err != nil {
		return err
	}

	balance, err := w.Balance(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Balance: %v (%d satoshi)\n", balance, int64(balance))
	return nil
}

// utxosCmd prints the unspent outputs of the wallet's addresses.
func utxosCmd(ctx context.Context, cfg *config, args []string) error {
	w, err := openWallet(cfg)
	if err != nil {
		return err
	}

	utxos, err := w.FindUTXOs(ctx, args...)
	if err != nil {
		return err
	}
	if len(utxos) == 0 {
		fmt.Println("No unspent outputs found")
		return nil
	}

	for _, utxo := range utxos {
		fmt.Printf("%s  %v  %d confirmations  %s\n", utxo.OutPoint,
			utxo.Value, utxo.Confirmations, utxo.Address)
	}
	return nil
}

// feesCmd prints the provider's suggested fee tiers.
func feesCmd(ctx context.Context, cfg *config, _ []string) error {
	walletCfg, err := newWalletConfig(cfg)
	if err != nil {
		return err
	}
	if walletCfg.Provider == nil {
		return fmt.Errorf("network %s has no fee data provider",
			activeNet.Params.Name)
	}

	tiers, err := walletCfg.Provider.FeeTiers(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Fee rates (satoshi/byte): low %d, medium %d, high %d\n",
		int64(tiers.Low), int64(tiers.Medium), int64(tiers.High))
	return nil
}

// createTxCmd builds and signs a transaction without broadcasting it.
//
// Usage: createtx <prevtxid> <vout> <address:amount>...
func createTxCmd(ctx context.Context, cfg *config, args []string) error {
	w, err := openWallet(cfg)
	if err != nil {
		return err
	}
	atx, err := buildTransaction(ctx, cfg, w, args)
	if err != nil {
		return err
	}

	raw, err := atx.Bytes()
	if err != nil {
		return err
	}
	fmt.Printf("Transaction: %s\n", atx.TxHash())
	fmt.Printf("Fee: %v (%.2f satoshi/byte over %d bytes)\n", atx.Fee,
		atx.FeeRate, atx.SizeBytes)
	if atx.ChangeIndex >= 0 {
		change := atx.Tx.TxOut[atx.ChangeIndex]
		fmt.Printf("Change: %v to output %d\n",
			btcutil.Amount(change.Value), atx.ChangeIndex)
	}
	fmt.Printf("Raw: %x\n", raw)
	return nil
}

// sendTxCmd builds, signs, validates, and broadcasts a transaction.
//
// Usage: sendtx <prevtxid> <vout> <address:amount>...
func sendTxCmd(ctx context.Context, cfg *config, args []string) error {
	w, err := openWallet(cfg)
	if err != nil {
		return err
	}
	atx, err := buildTransaction(ctx, cfg, w, args)
	if err != nil {
		return err
	}

	txid, err := w.SendTransaction(ctx, atx, wallet.SendOpts{
		SkipValidation: cfg.SkipValidation,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Broadcast transaction %s\n", txid)
	return nil
}

// buildTransaction parses the createtx/sendtx positional arguments and
// runs the wallet's transaction pipeline.
func buildTransaction(ctx context.Context, cfg *config, w *wallet.Wallet,
	args []string) (*txauthor.AuthoredTx, error) {

	if len(args) < 3 {
		return nil, fmt.Errorf(
			"usage: <prevtxid> <vout> <address:amount>...")
	}
	vout, err := strconv.ParseUint(args[1], 10, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid output index %q", args[1])
	}
	outputs, err := parseOutputs(args[2:])
	if err != nil {
		return nil, err
	}
	feeRate, err := resolveFeeRate(ctx, cfg, w)
	if err != nil {
		return nil, err
	}

	inputValue := fn.None[btcutil.Amount]()
	if cfg.InputValue > 0 {
		inputValue = fn.Some(btcutil.Amount(cfg.InputValue))
	}

	atx, err := w.CreateTransaction(ctx, &wallet.CreateTxReq{
		PrevTxID:      args[0],
		PrevVout:      uint32(vout),
		SourceAddress: cfg.SourceAddress,
		Outputs:       outputs,
		InputValue:    inputValue,
		FeeRate:       feeRate,
		AddChange:     cfg.AddChange,
	})
	if err != nil {
		return nil, err
	}

	log.Debugf("Signed transaction: %v",
		newLogClosure(func() string { return spew.Sdump(atx.Tx) }))
	return atx, nil
}

// parseOutputs converts address:amount arguments, amounts in satoshis.
func parseOutputs(args []string) ([]wallet.Output, error) {
	outputs := make([]wallet.Output, 0, len(args))
	for _, arg := range args {
		addr, amountStr, found := strings.Cut(arg, ":")
		if !found {
			return nil, fmt.Errorf("output %q is not in "+
				"address:amount form", arg)
		}
		amount, err := strconv.ParseInt(amountStr, 10, 64)
		if err != nil || amount <= 0 {
			return nil, fmt.Errorf("invalid output amount %q",
				amountStr)
		}
		outputs = append(outputs, wallet.Output{
			Address: addr,
			Amount:  btcutil.Amount(amount),
		})
	}
	return outputs, nil
}

// resolveFeeRate returns the configured fee rate, or the provider's
// medium tier when none was given.
func resolveFeeRate(ctx context.Context, cfg *config,
	w *wallet.Wallet) (btcutil.Amount, error) {

	if cfg.FeeRate > 0 {
		return btcutil.Amount(cfg.FeeRate), nil
	}

	tiers, err := w.FeeTiers(ctx)
	if err != nil {
		return 0, fmt.Errorf("no --feerate given and the fee "+
			"provider is unavailable: %w", err)
	}
	log.Infof("Using medium fee tier: %d satoshi/byte",
		int64(tiers.Medium))
	return tiers.Medium, nil
}

// broadcastCmd sends an already signed raw transaction to the configured
// peer.
//
// Usage: broadcast <rawtx-hex>
func broadcastCmd(ctx context.Context, cfg *config, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: broadcast <rawtx-hex>")
	}
	if cfg.Peer == "" {
		return fmt.Errorf("broadcast requires --peer")
	}

	tx, err := decodeRawTx(args[0])
	if err != nil {
		return err
	}

	broadcaster, err := p2p.NewBroadcaster(&p2p.Config{
		Params:    activeNet,
		PeerAddr:  cfg.Peer,
		ProxyAddr: cfg.Proxy,
	})
	if err != nil {
		return err
	}
	if err := broadcaster.Broadcast(ctx, tx); err != nil {
		return err
	}
	fmt.Printf("Broadcast transaction %s\n", tx.TxHash())
	return nil
}

// decodeTxCmd prints the structure of a raw transaction.
//
// Usage: decodetx <rawtx-hex>
func decodeTxCmd(_ context.Context, _ *config, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: decodetx <rawtx-hex>")
	}
	tx, err := decodeRawTx(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Transaction: %s\n", tx.TxHash())
	fmt.Printf("Version: %d  LockTime: %d\n", tx.Version, tx.LockTime)

	for i, txIn := range tx.TxIn {
		fmt.Printf("Input %d: %s (sequence %08x)\n", i,
			&txIn.PreviousOutPoint, txIn.Sequence)
		pushes, err := txscript.PushedData(txIn.SignatureScript)
		if err != nil || len(pushes) != 2 {
			fmt.Printf("  scriptSig: %x\n", txIn.SignatureScript)
			continue
		}
		fmt.Printf("  signature: %x\n", pushes[0])
		fmt.Printf("  pubkey:    %x\n", pushes[1])
		addr, err := keypairAddress(pushes[1])
		if err == nil {
			fmt.Printf("  spends from: %s\n", addr)
		}
	}

	for i, txOut := range tx.TxOut {
		fmt.Printf("Output %d: %v\n", i, btcutil.Amount(txOut.Value))
		_, addrs, _, err := txscript.ExtractPkScriptAddrs(
			txOut.PkScript, activeNet.Params)
		if err == nil && len(addrs) > 0 {
			fmt.Printf("  pays to: %s\n", addrs[0].EncodeAddress())
		}
		fmt.Printf("  script:  %x\n", txOut.PkScript)
	}

	if txauthor.VerifySignature(tx) {
		fmt.Println("Signature: valid")
	} else {
		fmt.Println("Signature: not verifiable")
	}
	return nil
}

// keypairAddress renders the P2PKH address of a serialized public key,
// honoring its compression.
func keypairAddress(serializedPubKey []byte) (string, error) {
	addr, err := btcutil.NewAddressPubKey(serializedPubKey,
		activeNet.Params)
	if err != nil {
		return "", err
	}
	return addr.AddressPubKeyHash().EncodeAddress(), nil
}

func decodeRawTx(rawHex string) (*wire.MsgTx, error) {
	raw, err := hex.DecodeString(strings.TrimSpace(rawHex))
	if err != nil {
		return nil, fmt.Errorf("raw transaction is not valid hex: %w",
			err)
	}
	tx := &wire.MsgTx{}
	if err := tx.Deserialize(bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("deserialize transaction: %w", err)
	}
	return tx, nil
}
