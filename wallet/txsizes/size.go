// Copyright (c) 2016-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package txsizes provides the transaction size estimate the fee policy
// is defined over.  The estimate intentionally covers only the legacy
// single-signature P2PKH transactions this engine creates.
package txsizes

// Worst case script and input/output size estimates.
const (
	// RedeemP2PKHSigScriptSize is the worst case (largest) serialize size
	// of a transaction input script that redeems a P2PKH output.  It is
	// calculated as:
	//
	//   - OP_DATA_72
	//   - 71 bytes DER signature + 1 byte sighash
	//   - OP_DATA_33
	//   - 33 bytes serialized compressed pubkey
	RedeemP2PKHSigScriptSize = 1 + 72 + 1 + 33

	// P2PKHPkScriptSize is the size of a transaction output script that
	// pays to a pubkey hash.  It is calculated as:
	//
	//   - OP_DUP
	//   - OP_HASH160
	//   - OP_DATA_20
	//   - 20 bytes pubkey hash
	//   - OP_EQUALVERIFY
	//   - OP_CHECKSIG
	P2PKHPkScriptSize = 1 + 1 + 1 + 20 + 1 + 1

	// RedeemP2PKHInputSize is the worst case (largest) serialize size of
	// a transaction input redeeming a P2PKH output.  It is calculated as:
	//
	//   - 32 bytes previous tx
	//   - 4 bytes output index
	//   - 1 byte compact int encoding value 107
	//   - 107 bytes signature script
	//   - 4 bytes sequence
	RedeemP2PKHInputSize = 32 + 4 + 1 + RedeemP2PKHSigScriptSize + 4

	// P2PKHOutputSize is the serialize size of a transaction output with
	// a P2PKH output script.  It is calculated as:
	//
	//   - 8 bytes output value
	//   - 1 byte compact int encoding value 25
	//   - 25 bytes P2PKH output script
	P2PKHOutputSize = 8 + 1 + P2PKHPkScriptSize

	// TxOverheadSize is the serialize size of the fixed transaction
	// framing around the inputs and outputs.  It is calculated as:
	//
	//   - 4 bytes version
	//   - 1 byte compact int encoding the input count
	//   - 1 byte compact int encoding the output count
	//   - 4 bytes locktime
	TxOverheadSize = 4 + 1 + 1 + 4
)

// EstimateSerializeSize returns a worst case serialize size estimate for a
// signed transaction that spends inputCount P2PKH outputs and pays to
// outputCount P2PKH outputs.
func EstimateSerializeSize(inputCount, outputCount int) int {
	return TxOverheadSize + inputCount*RedeemP2PKHInputSize +
		outputCount*P2PKHOutputSize
}
