// Copyright (c) 2016-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package txrules provides the transaction standardness and safety rules
// enforced before a transaction is handed to the network.
package txrules

import (
	"errors"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
)

const (
	// DustLimit is the minimum output value, in satoshis, below which an
	// output is considered uneconomical to spend.  Outputs below it are
	// rejected by validation and change below it is folded into the fee.
	DustLimit btcutil.Amount = 546

	// MinSaneFeeRate is the lowest fee rate, in sat/byte, accepted by
	// validation.  Transactions under it are unlikely to relay.
	MinSaneFeeRate = 1.0

	// MaxSaneFeeRate is the highest fee rate, in sat/byte, accepted by
	// validation.  Rates above it almost certainly indicate a mistake in
	// the input value or outputs.
	MaxSaneFeeRate = 1000.0

	// maxFeeShareDivisor bounds the fee to 1/10 of the input value.
	maxFeeShareDivisor = 10
)

// Validation failures.  All of these are recoverable: the caller adjusts
// the transaction inputs and retries.
var (
	// ErrNotSigned describes a transaction whose input script has not
	// been populated yet.
	ErrNotSigned = errors.New("transaction is not signed")

	// ErrSignatureInvalid describes a signed transaction whose input
	// script fails script engine verification.
	ErrSignatureInvalid = errors.New("transaction signature does not verify")

	// ErrDustOutput describes a transaction paying an output below the
	// dust limit.
	ErrDustOutput = errors.New("transaction output is below the dust limit")

	// ErrNegativeFee describes a transaction whose outputs meet or
	// exceed its input value.
	ErrNegativeFee = errors.New("transaction output value is not below " +
		"the input value")

	// ErrFeeTooHigh describes a transaction spending more than 10% of
	// its input value on fees.
	ErrFeeTooHigh = errors.New("transaction fee exceeds 10% of the " +
		"input value")

	// ErrFeeRateSuspect describes a transaction whose fee rate falls
	// outside the sane 1-1000 sat/byte range.
	ErrFeeRateSuspect = errors.New("transaction fee rate is outside the " +
		"sane range")
)

// IsDustAmount reports whether an output value is below the dust limit.
func IsDustAmount(amount btcutil.Amount) bool {
	return amount < DustLimit
}

// CheckOutput returns ErrDustOutput when the output pays less than the
// dust limit.
func CheckOutput(output *wire.TxOut) error {
	if IsDustAmount(btcutil.Amount(output.Value)) {
		return ErrDustOutput
	}
	return nil
}

// CheckFee applies the fee sanity rules to a transaction with the given
// input value, total output value, and serialize size.  The checks run in
// order: the fee must be positive, must not exceed a tenth of the input
// value, and the implied fee rate must be within the sane range.
func CheckFee(inputValue, outputValue btcutil.Amount, sizeBytes int) error {
	if outputValue >= inputValue {
		return ErrNegativeFee
	}
	fee := inputValue - outputValue
	if fee*maxFeeShareDivisor > inputValue {
		return ErrFeeTooHigh
	}
	feeRate := float64(fee) / float64(sizeBytes)
	if feeRate < MinSaneFeeRate || feeRate > MaxSaneFeeRate {
		return ErrFeeRateSuspect
	}
	return nil
}
