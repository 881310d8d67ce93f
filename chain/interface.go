// Copyright (c) 2017-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package chain provides read access to blockchain state through external
// data providers.  The wallet engine uses it to look up address activity,
// unspent outputs, and fee estimates without running a full node.
package chain

import (
	"context"
	"errors"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
)

var (
	// ErrProvider describes a provider that could not be reached or kept
	// failing after the transport retries were exhausted.
	ErrProvider = errors.New("chain provider unavailable")

	// ErrBadResponse describes a provider reply that was received but
	// could not be understood.  It is never retried: a malformed reply
	// indicates an API change, not a transient failure.
	ErrBadResponse = errors.New("malformed chain provider response")
)

// AddressInfo summarizes the on-chain activity of a single address.
type AddressInfo struct {
	// Address is the rendered address the summary describes.
	Address string

	// TxCount is the number of confirmed transactions involving the
	// address.  An address with a nonzero count is considered used.
	TxCount int64

	// Balance is the confirmed balance of the address.
	Balance btcutil.Amount
}

// Used reports whether the address has appeared in any transaction.
func (a *AddressInfo) Used() bool {
	return a.TxCount > 0
}

// UTXO describes a spendable transaction output held by an address.
type UTXO struct {
	// OutPoint identifies the output by transaction hash and index.
	OutPoint wire.OutPoint

	// Value is the output value in satoshis.
	Value btcutil.Amount

	// Confirmations is the number of blocks mined on top of the
	// confirming block, inclusive.  Zero means unconfirmed.
	Confirmations int64

	// Address is the address the output pays.
	Address string
}

// FeeTiers holds suggested fee rates in satoshis per byte.  Low halves the
// prevailing rate, Medium matches it, and High adds half again.
type FeeTiers struct {
	Low    btcutil.Amount
	Medium btcutil.Amount
	High   btcutil.Amount
}

// Provider is the read interface to a blockchain data source.
//
// Implementations must distinguish transport failures (ErrProvider) from
// understood-but-unexpected replies (ErrBadResponse) so callers can decide
// whether a retry is worthwhile.
type Provider interface {
	// AddressInfo returns the activity summary for an address.
	AddressInfo(ctx context.Context, address string) (*AddressInfo, error)

	// UTXOs returns the unspent outputs held by an address.
	UTXOs(ctx context.Context, address string) ([]*UTXO, error)

	// FeeTiers returns the current suggested fee rates.
	FeeTiers(ctx context.Context) (*FeeTiers, error)
}
