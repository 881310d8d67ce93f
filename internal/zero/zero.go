// Copyright (c) 2015-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package zero contains functions to clear sensitive data such as seeds
// and private key bytes from memory.
package zero

import "math/big"

// Bytes sets all bytes in the passed slice to zero.  This is used to
// explicitly clear private key material from memory.
func Bytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// Bytea32 clears the 32-byte array by filling it with the zero value.
func Bytea32(b *[32]byte) {
	*b = [32]byte{}
}

// Bytea64 clears the 64-byte array by filling it with the zero value.
func Bytea64(b *[64]byte) {
	*b = [64]byte{}
}

// BigInt sets all of the big int's words to zero and then sets the value
// to zero.
func BigInt(x *big.Int) {
	words := x.Bits()
	for i := range words {
		words[i] = 0
	}
	x.SetInt64(0)
}
