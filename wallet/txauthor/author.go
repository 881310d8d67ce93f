// Copyright (c) 2016-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package txauthor provides creation, signing, and verification of the
// legacy single-input transactions the wallet engine spends with.
package txauthor

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/lightningnetwork/lnd/fn/v2"

	"github.com/btcsuite/hdwallet/wallet/txrules"
	"github.com/btcsuite/hdwallet/wallet/txsizes"
)

// sigHashSuffix is the 4-byte little-endian SIGHASH_ALL marker appended to
// the signable serialization before hashing.
var sigHashSuffix = []byte{0x01, 0x00, 0x00, 0x00}

// SecretsSource resolves the private key controlling an address.  The
// boolean result of GetKey reports whether the address derives from the
// compressed serialization of the public key, which decides the pubkey
// form embedded in signature scripts.
type SecretsSource interface {
	GetKey(btcutil.Address) (*btcec.PrivateKey, bool, error)
	ChainParams() *chaincfg.Params
}

// ChangeSource provides fresh change addresses during transaction
// creation.  Every invocation must return a previously unused address.
type ChangeSource func() (btcutil.Address, error)

// AuthoredTx holds a transaction under construction together with the
// metadata derived by the fee policy.  The builder mutates it during
// NewUnsignedTx and AddAllInputScripts; afterward callers must treat it as
// immutable and build a new transaction instead of re-signing.
type AuthoredTx struct {
	// Tx is the transaction itself.  It has exactly one input.
	Tx *wire.MsgTx

	// SourceAddr and SourceScript identify the previous output being
	// spent.  SourceScript doubles as the scriptSig placeholder of the
	// signable serialization.
	SourceAddr   btcutil.Address
	SourceScript []byte

	// InputValue is the value of the spent output.  OutputValue is the
	// sum of all outputs including change, so Fee is always exactly
	// InputValue - OutputValue.
	InputValue  btcutil.Amount
	OutputValue btcutil.Amount
	Fee         btcutil.Amount

	// ChangeIndex is the output index of the change output, or negative
	// when no change output was kept.
	ChangeIndex int

	// SizeBytes is the fee-policy size estimate until the transaction is
	// signed, then the exact serialize size.  FeeRate is Fee/SizeBytes.
	SizeBytes int
	FeeRate   float64

	signed bool
}

// SumOutputValues sums the values of a list of transaction outputs.
func SumOutputValues(outputs []*wire.TxOut) btcutil.Amount {
	var total btcutil.Amount
	for _, output := range outputs {
		total += btcutil.Amount(output.Value)
	}
	return total
}

// NewUnsignedTx creates an unsigned transaction spending a single previous
// P2PKH output to the given outputs, applying the engine's fee and change
// policy:
//
// The fee starts as the estimated serialize size times feeRate.  When the
// input value is not provided it defaults to the output sum plus that fee,
// the minimum self-funding input.  Whatever the input value exceeds the
// outputs and fee by is change.  With addChange set and change above the
// dust limit, a change output paying a fresh address from changeSource is
// appended and the size, fee, and change are recomputed with the extra
// output counted; should the recomputed change fall below the dust limit
// the change output is dropped again.  Change at or below the dust limit
// is never paid out and is absorbed by the fee instead.  The final fee is
// always exactly the input value minus the final output sum.
func NewUnsignedTx(prevTxID *chainhash.Hash, prevVout uint32,
	sourceAddr btcutil.Address, outputs []*wire.TxOut,
	inputValue fn.Option[btcutil.Amount], feeRate btcutil.Amount,
	changeSource ChangeSource, addChange bool) (*AuthoredTx, error) {

	if prevTxID == nil {
		return nil, fmt.Errorf("previous transaction id is required")
	}
	if len(outputs) == 0 {
		return nil, fmt.Errorf("transaction pays no outputs")
	}
	sourceScript, err := txscript.PayToAddrScript(sourceAddr)
	if err != nil {
		return nil, fmt.Errorf("script for source address %v: %w",
			sourceAddr, err)
	}

	tx := wire.NewMsgTx(wire.TxVersion)
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(prevTxID, prevVout), nil, nil))
	for _, output := range outputs {
		tx.AddTxOut(output)
	}

	targetAmount := SumOutputValues(outputs)
	estSize := txsizes.EstimateSerializeSize(1, len(tx.TxOut))
	fee := btcutil.Amount(estSize) * feeRate

	input := inputValue.UnwrapOr(targetAmount + fee)
	change := input - targetAmount - fee

	changeIndex := -1
	if addChange && change > txrules.DustLimit {
		changeAddr, err := changeSource()
		if err != nil {
			return nil, fmt.Errorf("derive change address: %w", err)
		}
		changeScript, err := txscript.PayToAddrScript(changeAddr)
		if err != nil {
			return nil, fmt.Errorf("script for change address %v: %w",
				changeAddr, err)
		}
		tx.AddTxOut(wire.NewTxOut(int64(change), changeScript))
		changeIndex = len(tx.TxOut) - 1

		// Recompute with the change output counted.  The larger
		// transaction pays a larger fee, so the change shrinks; when
		// it shrinks below the dust limit the output is dropped and
		// the difference goes to the fee instead.
		estSize = txsizes.EstimateSerializeSize(1, len(tx.TxOut))
		fee = btcutil.Amount(estSize) * feeRate
		change = input - targetAmount - fee
		if change < txrules.DustLimit {
			tx.TxOut = tx.TxOut[:changeIndex]
			changeIndex = -1
			estSize = txsizes.EstimateSerializeSize(1, len(tx.TxOut))
		} else {
			tx.TxOut[changeIndex].Value = int64(change)
		}
	}

	outputValue := SumOutputValues(tx.TxOut)
	fee = input - outputValue

	return &AuthoredTx{
		Tx:           tx,
		SourceAddr:   sourceAddr,
		SourceScript: sourceScript,
		InputValue:   input,
		OutputValue:  outputValue,
		Fee:          fee,
		ChangeIndex:  changeIndex,
		SizeBytes:    estSize,
		FeeRate:      float64(fee) / float64(estSize),
	}, nil
}

// AddAllInputScripts resolves the private key for the source address
// through the secrets source and signs the transaction's input.  The
// signature script is the DER signature with the SIGHASH_ALL byte followed
// by the serialized public key, compressed or not per the secrets source.
// After signing, SizeBytes and FeeRate reflect the exact serialize size.
func (atx *AuthoredTx) AddAllInputScripts(secrets SecretsSource) error {
	privKey, compressed, err := secrets.GetKey(atx.SourceAddr)
	if err != nil {
		return fmt.Errorf("resolve key for source address %v: %w",
			atx.SourceAddr, err)
	}

	sigScript, err := txscript.SignatureScript(atx.Tx, 0, atx.SourceScript,
		txscript.SigHashAll, privKey, compressed)
	if err != nil {
		return fmt.Errorf("sign input: %w", err)
	}
	atx.Tx.TxIn[0].SignatureScript = sigScript
	atx.signed = true

	atx.SizeBytes = atx.Tx.SerializeSize()
	atx.FeeRate = float64(atx.Fee) / float64(atx.SizeBytes)
	return nil
}

// IsSigned reports whether AddAllInputScripts has populated the input
// script.
func (atx *AuthoredTx) IsSigned() bool {
	return atx.signed
}

// TxHash returns the transaction id in display order: the byte-reversed
// double SHA-256 of the raw serialization, hex encoded.
func (atx *AuthoredTx) TxHash() string {
	return atx.Tx.TxHash().String()
}

// Bytes returns the raw serialization of the transaction.
func (atx *AuthoredTx) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(atx.Tx.SerializeSize())
	if err := atx.Tx.Serialize(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Validate applies the pre-broadcast safety checks in order: the
// transaction must be signed, the signature must verify, no output may be
// below the dust limit, and the fee must pass the txrules fee checks.  The
// returned error carries the specific reason so callers can surface it.
func (atx *AuthoredTx) Validate() error {
	if !atx.signed {
		return txrules.ErrNotSigned
	}
	if !VerifySignature(atx.Tx) {
		return txrules.ErrSignatureInvalid
	}
	for i, output := range atx.Tx.TxOut {
		if err := txrules.CheckOutput(output); err != nil {
			return fmt.Errorf("output %d: %w", i, err)
		}
	}
	return txrules.CheckFee(atx.InputValue, atx.OutputValue, atx.SizeBytes)
}

// SignableTx returns the serialization the signature commits to: the raw
// transaction with the single input's signature script replaced by the
// scriptPubKey of the spent output, followed by the 4-byte SIGHASH_ALL
// marker.  The signing digest is the double SHA-256 of these bytes.
func SignableTx(tx *wire.MsgTx, sourceScript []byte) ([]byte, error) {
	if len(tx.TxIn) != 1 {
		return nil, fmt.Errorf("expected a single input, got %d",
			len(tx.TxIn))
	}
	signable := tx.Copy()
	signable.TxIn[0].SignatureScript = sourceScript

	var buf bytes.Buffer
	buf.Grow(signable.SerializeSize() + len(sigHashSuffix))
	if err := signable.Serialize(&buf); err != nil {
		return nil, err
	}
	buf.Write(sigHashSuffix)
	return buf.Bytes(), nil
}

// SigHash returns the double SHA-256 digest of the signable serialization.
func SigHash(tx *wire.MsgTx, sourceScript []byte) (*chainhash.Hash, error) {
	signable, err := SignableTx(tx, sourceScript)
	if err != nil {
		return nil, err
	}
	hash := chainhash.DoubleHashH(signable)
	return &hash, nil
}

// VerifySignature checks the signature of a signed single-input P2PKH
// transaction.  The spent scriptPubKey is rebuilt from the public key
// embedded in the signature script, so the check is self-contained and
// compression-aware.  It never returns an error: any malformed input
// verifies as false.
func VerifySignature(tx *wire.MsgTx) bool {
	if tx == nil || len(tx.TxIn) == 0 {
		return false
	}
	pushes, err := txscript.PushedData(tx.TxIn[0].SignatureScript)
	if err != nil || len(pushes) != 2 {
		return false
	}
	pubKey := pushes[1]

	prevScript, err := txscript.NewScriptBuilder().
		AddOp(txscript.OP_DUP).
		AddOp(txscript.OP_HASH160).
		AddData(btcutil.Hash160(pubKey)).
		AddOp(txscript.OP_EQUALVERIFY).
		AddOp(txscript.OP_CHECKSIG).
		Script()
	if err != nil {
		return false
	}

	prevOuts := txscript.NewCannedPrevOutputFetcher(prevScript, 0)
	hashCache := txscript.NewTxSigHashes(tx, prevOuts)
	vm, err := txscript.NewEngine(prevScript, tx, 0,
		txscript.StandardVerifyFlags, nil, hashCache, 0, prevOuts)
	if err != nil {
		return false
	}
	return vm.Execute() == nil
}
