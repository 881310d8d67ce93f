// Copyright (c) 2015-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package zero

import (
	"bytes"
	"math/big"
	"testing"
)

func makeSequence(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i + 1)
	}
	return b
}

func TestBytes(t *testing.T) {
	for _, n := range []int{0, 1, 31, 32, 33, 127, 1024} {
		b := makeSequence(n)
		Bytes(b)
		if !bytes.Equal(b, make([]byte, n)) {
			t.Errorf("Bytes failed to zero %d-byte slice", n)
		}
	}
}

func TestBytea(t *testing.T) {
	var b32 [32]byte
	copy(b32[:], makeSequence(32))
	Bytea32(&b32)
	if b32 != [32]byte{} {
		t.Error("Bytea32 failed to zero array")
	}

	var b64 [64]byte
	copy(b64[:], makeSequence(64))
	Bytea64(&b64)
	if b64 != [64]byte{} {
		t.Error("Bytea64 failed to zero array")
	}
}

func TestBigInt(t *testing.T) {
	x := new(big.Int).SetBytes(makeSequence(30))
	BigInt(x)
	if x.Sign() != 0 {
		t.Error("BigInt failed to zero value")
	}
	for _, w := range x.Bits() {
		if w != 0 {
			t.Error("BigInt left a non-zero word")
		}
	}
}
