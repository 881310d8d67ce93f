// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package keypair provides secp256k1 key handling for the wallet engine:
// hex and WIF import/export, address derivation for both compressed and
// uncompressed public keys, and low-level ECDSA signing and verification
// over 32-byte digests.
package keypair

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// privKeyHexLen is the expected length of a hex-encoded private key.
const privKeyHexLen = 64

// ErrInvalidKey describes key material that is malformed or outside the
// valid secp256k1 scalar range [1, N-1].
var ErrInvalidKey = errors.New("invalid private key")

// KeyPair pairs a secp256k1 private key with the serialization mode used
// when deriving addresses from its public key.  Keys imported from hex use
// the uncompressed public key, matching the historical behavior of this
// engine's single-key wallets; keys imported from WIF follow the
// compression flag encoded in the WIF string.
type KeyPair struct {
	privKey    *btcec.PrivateKey
	compressed bool
}

// New creates a KeyPair from a 64-character hex-encoded private key.  The
// scalar must be in the range [1, N-1] or ErrInvalidKey is returned.
func New(privHex string) (*KeyPair, error) {
	if len(privHex) != privKeyHexLen {
		return nil, fmt.Errorf("%w: hex key must be %d characters, "+
			"got %d", ErrInvalidKey, privKeyHexLen, len(privHex))
	}
	b, err := hex.DecodeString(privHex)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return fromBytes(b, false)
}

// NewFromPrivKey wraps an existing private key, recording whether derived
// addresses should use the compressed public key serialization.
func NewFromPrivKey(privKey *btcec.PrivateKey, compressed bool) *KeyPair {
	return &KeyPair{privKey: privKey, compressed: compressed}
}

// Generate creates a KeyPair with a fresh random private key.
func Generate() (*KeyPair, error) {
	privKey, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate private key: %w", err)
	}
	return &KeyPair{privKey: privKey}, nil
}

// FromWIF creates a KeyPair from a WIF-encoded private key.  The WIF
// compression flag is remembered so addresses derive from the matching
// public key form.  Checksum and format failures are reported as
// ErrInvalidKey wrapping the underlying base58 error.
func FromWIF(wifStr string) (*KeyPair, error) {
	wif, err := btcutil.DecodeWIF(wifStr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return &KeyPair{
		privKey:    wif.PrivKey,
		compressed: wif.CompressPubKey,
	}, nil
}

// fromBytes validates the 32-byte scalar and builds the KeyPair.  A scalar
// of zero or one at or above the curve order is rejected.
func fromBytes(b []byte, compressed bool) (*KeyPair, error) {
	var scalar secp256k1.ModNScalar
	if overflow := scalar.SetByteSlice(b); overflow {
		return nil, fmt.Errorf("%w: scalar exceeds the curve order",
			ErrInvalidKey)
	}
	if scalar.IsZero() {
		return nil, fmt.Errorf("%w: scalar is zero", ErrInvalidKey)
	}
	return &KeyPair{
		privKey:    secp256k1.NewPrivateKey(&scalar),
		compressed: compressed,
	}, nil
}

// PrivKey returns the wrapped private key.
func (kp *KeyPair) PrivKey() *btcec.PrivateKey {
	return kp.privKey
}

// PrivKeyHex returns the private key as a 64-character hex string.
func (kp *KeyPair) PrivKeyHex() string {
	return hex.EncodeToString(kp.privKey.Serialize())
}

// PubKey returns the public key point.
func (kp *KeyPair) PubKey() *btcec.PublicKey {
	return kp.privKey.PubKey()
}

// SerializedPubKey returns the public key in the serialization this pair
// derives addresses with: 33 bytes when compressed, 65 otherwise.
func (kp *KeyPair) SerializedPubKey() []byte {
	if kp.compressed {
		return kp.privKey.PubKey().SerializeCompressed()
	}
	return kp.privKey.PubKey().SerializeUncompressed()
}

// Compressed reports whether addresses derive from the compressed public
// key serialization.
func (kp *KeyPair) Compressed() bool {
	return kp.compressed
}

// ToWIF exports the private key in wallet import format for the given
// network: Base58Check of the 0x80 version byte, the 32-byte key, and a
// trailing 0x01 marker when the compressed form is requested.
func (kp *KeyPair) ToWIF(params *chaincfg.Params, compressed bool) (string, error) {
	wif, err := btcutil.NewWIF(kp.privKey, params, compressed)
	if err != nil {
		return "", fmt.Errorf("encode wif: %w", err)
	}
	return wif.String(), nil
}

// Address returns the P2PKH address of this pair's public key, honoring
// the pair's compression mode.
func (kp *KeyPair) Address(params *chaincfg.Params) (*btcutil.AddressPubKeyHash, error) {
	return AddressForPubKey(kp.privKey.PubKey(), kp.compressed, params)
}

// Sign produces a DER-encoded deterministic (RFC6979) ECDSA signature over
// a 32-byte digest.
func (kp *KeyPair) Sign(digest []byte) ([]byte, error) {
	if len(digest) != 32 {
		return nil, fmt.Errorf("signing digest must be 32 bytes, got %d",
			len(digest))
	}
	sig := ecdsa.Sign(kp.privKey, digest)
	return sig.Serialize(), nil
}

// Verify checks a DER-encoded ECDSA signature over a 32-byte digest.  It
// never returns an error: malformed signatures verify as false.
func Verify(digest, sigDER []byte, pubKey *btcec.PublicKey) bool {
	if len(digest) != 32 || pubKey == nil {
		return false
	}
	sig, err := ecdsa.ParseDERSignature(sigDER)
	if err != nil {
		return false
	}
	return sig.Verify(digest, pubKey)
}

// AddressForPubKey derives the P2PKH address of a public key:
// Base58Check(version, Hash160(serialized pubkey)) with the network's
// P2PKH version byte.  The compressed flag selects the 33-byte or 65-byte
// serialization before hashing, which changes the resulting address.
func AddressForPubKey(pubKey *btcec.PublicKey, compressed bool,
	params *chaincfg.Params) (*btcutil.AddressPubKeyHash, error) {

	var serialized []byte
	if compressed {
		serialized = pubKey.SerializeCompressed()
	} else {
		serialized = pubKey.SerializeUncompressed()
	}
	addr, err := btcutil.NewAddressPubKeyHash(btcutil.Hash160(serialized),
		params)
	if err != nil {
		return nil, fmt.Errorf("derive address: %w", err)
	}
	return addr, nil
}
