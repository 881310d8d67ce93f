// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/lightningnetwork/lnd/fn/v2"

	"github.com/btcsuite/hdwallet/chain"
	"github.com/btcsuite/hdwallet/wallet/txauthor"
	"github.com/btcsuite/hdwallet/wallet/txrules"
)

// ErrNoFundingUTXO describes a funding search that found no confirmed
// output large enough.
var ErrNoFundingUTXO = errors.New("no confirmed output is large enough " +
	"to fund the transaction")

// Output is one payment of a transaction under creation.
type Output struct {
	Address string
	Amount  btcutil.Amount
}

// CreateTxReq collects the inputs of CreateTransaction.
type CreateTxReq struct {
	// PrevTxID and PrevVout identify the output being spent, the
	// transaction id in display order.
	PrevTxID string
	PrevVout uint32

	// SourceAddress is the address holding the spent output.  Empty
	// selects the wallet's primary address.  The wallet must control it.
	SourceAddress string

	// Outputs are the payments to make.
	Outputs []Output

	// InputValue is the value of the spent output.  When None, the
	// transaction self-funds: the input is assumed to hold exactly the
	// outputs plus the fee.
	InputValue fn.Option[btcutil.Amount]

	// FeeRate is the fee rate in satoshis per byte.
	FeeRate btcutil.Amount

	// AddChange pays the input surplus to a fresh change address
	// instead of leaving it to the fee.
	AddChange bool
}

// secretSource adapts the wallet to txauthor.SecretsSource, resolving
// signing keys through the address cache.
type secretSource struct {
	w *Wallet
}

func (s secretSource) GetKey(addr btcutil.Address) (*btcec.PrivateKey, bool,
	error) {

	pair, err := s.w.PrivateKeyForAddress(addr.EncodeAddress())
	if err != nil {
		return nil, false, err
	}
	return pair.PrivKey(), pair.Compressed(), nil
}

func (s secretSource) ChainParams() *chaincfg.Params {
	return s.w.cfg.ChainParams.Params
}

// CreateTransaction builds and signs a transaction spending one previous
// output controlled by the wallet.  The source key is resolved before any
// construction so an unowned source fails fast.  Change addresses come
// from the wallet's internal branch; a single-key wallet pays change back
// to its own address.
func (w *Wallet) CreateTransaction(ctx context.Context,
	req *CreateTxReq) (*txauthor.AuthoredTx, error) {

	if req.FeeRate <= 0 {
		return nil, errors.New("a positive fee rate is required")
	}
	if len(req.Outputs) == 0 {
		return nil, errors.New("at least one output is required")
	}
	prevHash, err := chainhash.NewHashFromStr(req.PrevTxID)
	if err != nil {
		return nil, fmt.Errorf("previous transaction id: %w", err)
	}

	sourceAddr := req.SourceAddress
	if sourceAddr == "" {
		sourceAddr, err = w.Address()
		if err != nil {
			return nil, err
		}
	}
	if _, err := w.PrivateKeyForAddress(sourceAddr); err != nil {
		return nil, fmt.Errorf("source address %s: %w", sourceAddr, err)
	}
	source, err := btcutil.DecodeAddress(sourceAddr,
		w.cfg.ChainParams.Params)
	if err != nil {
		return nil, fmt.Errorf("source address %s: %w", sourceAddr, err)
	}

	outputs := make([]*wire.TxOut, 0, len(req.Outputs))
	for _, out := range req.Outputs {
		addr, err := btcutil.DecodeAddress(out.Address,
			w.cfg.ChainParams.Params)
		if err != nil {
			return nil, fmt.Errorf("output address %s: %w",
				out.Address, err)
		}
		script, err := txscript.PayToAddrScript(addr)
		if err != nil {
			return nil, fmt.Errorf("output address %s: %w",
				out.Address, err)
		}
		outputs = append(outputs, wire.NewTxOut(int64(out.Amount),
			script))
	}

	atx, err := txauthor.NewUnsignedTx(prevHash, req.PrevVout, source,
		outputs, req.InputValue, req.FeeRate, w.changeSource(source),
		req.AddChange)
	if err != nil {
		return nil, err
	}
	if err := atx.AddAllInputScripts(secretSource{w: w}); err != nil {
		return nil, err
	}

	log.Infof("Created transaction %s spending %v with fee %v (%.2f sat/b)",
		atx.TxHash(), atx.InputValue, atx.Fee, atx.FeeRate)
	return atx, nil
}

// changeSource returns the change address provider for a transaction
// spending from the given source address.
func (w *Wallet) changeSource(source btcutil.Address) txauthor.ChangeSource {
	return func() (btcutil.Address, error) {
		addr, err := w.NewChangeAddress()
		if errors.Is(err, ErrNotHD) {
			// Single-key wallets return surplus to themselves.
			return source, nil
		}
		if err != nil {
			return nil, err
		}
		return btcutil.DecodeAddress(addr, w.cfg.ChainParams.Params)
	}
}

// SendOpts adjusts SendTransaction.
type SendOpts struct {
	// SkipValidation broadcasts without the pre-send safety checks.
	SkipValidation bool
}

// SendTransaction validates a signed transaction and hands it to the
// broadcaster.  Validation failures surface with their concrete reason
// and nothing is sent.  The display txid is returned on success.
func (w *Wallet) SendTransaction(ctx context.Context,
	atx *txauthor.AuthoredTx, opts SendOpts) (string, error) {

	if w.cfg.TxBroadcaster == nil {
		return "", ErrNoBroadcaster
	}

	if !opts.SkipValidation {
		if err := atx.Validate(); err != nil {
			return "", fmt.Errorf("refusing to send: %w", err)
		}
	}

	if err := w.cfg.TxBroadcaster.Broadcast(ctx, atx.Tx); err != nil {
		return "", err
	}

	txid := atx.TxHash()
	log.Infof("Broadcast transaction %s", txid)
	return txid, nil
}

// BroadcastRaw sends an externally built signed transaction.
func (w *Wallet) BroadcastRaw(ctx context.Context, tx *wire.MsgTx) (string,
	error) {

	if w.cfg.TxBroadcaster == nil {
		return "", ErrNoBroadcaster
	}
	if err := w.cfg.TxBroadcaster.Broadcast(ctx, tx); err != nil {
		return "", err
	}
	txid := tx.TxHash().String()
	log.Infof("Broadcast transaction %s", txid)
	return txid, nil
}

// Balance returns the summed confirmed balance of the wallet's
// addresses.  An HD wallet with an empty address cache discovers its
// used addresses first.
func (w *Wallet) Balance(ctx context.Context) (btcutil.Amount, error) {
	if w.cfg.Provider == nil {
		return 0, ErrNoProvider
	}

	addrs, err := w.fundedAddresses(ctx)
	if err != nil {
		return 0, err
	}

	var total btcutil.Amount
	for _, addr := range addrs {
		info, err := w.cfg.Provider.AddressInfo(ctx, addr)
		if err != nil {
			return 0, err
		}
		total += info.Balance
	}
	return total, nil
}

// FindUTXOs returns the unspent outputs of the given addresses, or of
// the wallet's funded addresses when none are given.
func (w *Wallet) FindUTXOs(ctx context.Context,
	addrs ...string) ([]*chain.UTXO, error) {

	if w.cfg.Provider == nil {
		return nil, ErrNoProvider
	}

	if len(addrs) == 0 {
		var err error
		addrs, err = w.fundedAddresses(ctx)
		if err != nil {
			return nil, err
		}
	}

	var utxos []*chain.UTXO
	for _, addr := range addrs {
		found, err := w.cfg.Provider.UTXOs(ctx, addr)
		if err != nil {
			return nil, err
		}
		utxos = append(utxos, found...)
	}
	return utxos, nil
}

// FindFundingUTXO returns the smallest confirmed output that can fund a
// spend of minAmount, keeping the change as small as possible.  Outputs
// below the dust limit never qualify.
func (w *Wallet) FindFundingUTXO(ctx context.Context,
	minAmount btcutil.Amount) (*chain.UTXO, error) {

	if minAmount < txrules.DustLimit {
		minAmount = txrules.DustLimit
	}

	utxos, err := w.FindUTXOs(ctx)
	if err != nil {
		return nil, err
	}

	var best *chain.UTXO
	for _, utxo := range utxos {
		if utxo.Confirmations < 1 || utxo.Value < minAmount {
			continue
		}
		if best == nil || utxo.Value < best.Value {
			best = utxo
		}
	}
	if best == nil {
		return nil, ErrNoFundingUTXO
	}
	return best, nil
}

// FeeTiers returns the provider's current suggested fee rates.
func (w *Wallet) FeeTiers(ctx context.Context) (*chain.FeeTiers, error) {
	if w.cfg.Provider == nil {
		return nil, ErrNoProvider
	}
	return w.cfg.Provider.FeeTiers(ctx)
}

// fundedAddresses returns the addresses worth querying for funds: the
// single imported address, or every cached used address, discovering
// first when the cache is empty.
func (w *Wallet) fundedAddresses(ctx context.Context) ([]string, error) {
	if _, ok := w.Material().(*SingleKey); ok {
		addr, err := w.Address()
		if err != nil {
			return nil, err
		}
		return []string{addr}, nil
	}

	usedCached := func() []string {
		w.mtx.Lock()
		defer w.mtx.Unlock()
		var addrs []string
		for _, e := range w.book.order {
			if e.used {
				addrs = append(addrs, e.address)
			}
		}
		return addrs
	}

	if addrs := usedCached(); len(addrs) > 0 {
		return addrs, nil
	}

	if _, err := w.DiscoverAddresses(ctx, DiscoveryOptions{
		Standard: StandardAuto,
	}); err != nil {
		return nil, err
	}
	return usedCached(), nil
}
