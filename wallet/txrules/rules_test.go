// Copyright (c) 2016-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txrules

import (
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"
)

func TestCheckOutput(t *testing.T) {
	require.ErrorIs(t, CheckOutput(&wire.TxOut{Value: 0}), ErrDustOutput)
	require.ErrorIs(t, CheckOutput(&wire.TxOut{Value: 545}), ErrDustOutput)
	require.NoError(t, CheckOutput(&wire.TxOut{Value: 546}))
	require.NoError(t, CheckOutput(&wire.TxOut{Value: 10000}))
}

func TestCheckFee(t *testing.T) {
	tests := []struct {
		name        string
		inputValue  int64
		outputValue int64
		sizeBytes   int
		wantErr     error
	}{{
		name:        "ok",
		inputValue:  102000,
		outputValue: 100000,
		sizeBytes:   200,
	}, {
		name:        "zero fee",
		inputValue:  100000,
		outputValue: 100000,
		sizeBytes:   200,
		wantErr:     ErrNegativeFee,
	}, {
		name:        "outputs exceed input",
		inputValue:  100000,
		outputValue: 100001,
		sizeBytes:   200,
		wantErr:     ErrNegativeFee,
	}, {
		name:        "fee over ten percent",
		inputValue:  20000,
		outputValue: 10000,
		sizeBytes:   200,
		wantErr:     ErrFeeTooHigh,
	}, {
		name:        "rate below one",
		inputValue:  1000000,
		outputValue: 999900,
		sizeBytes:   200,
		wantErr:     ErrFeeRateSuspect,
	}, {
		name:        "rate above one thousand",
		inputValue:  3000000,
		outputValue: 2700000,
		sizeBytes:   200,
		wantErr:     ErrFeeRateSuspect,
	}}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := CheckFee(btcutil.Amount(test.inputValue),
				btcutil.Amount(test.outputValue), test.sizeBytes)
			if test.wantErr != nil {
				require.ErrorIs(t, err, test.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}
