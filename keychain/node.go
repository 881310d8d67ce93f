// Copyright (c) 2014-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package keychain implements the hierarchical deterministic key tree used
// by the wallet engine.  It wraps BIP32 extended keys with the two seed
// conventions this engine supports, BIP39 and Electrum native, and the
// branch layout shared by both: branch 0 for receiving addresses and
// branch 1 for change.
package keychain

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
)

// Branch identifies one of the two address chains of an HD wallet.
type Branch uint32

const (
	// ExternalBranch is the chain receiving addresses derive from.
	ExternalBranch Branch = 0

	// InternalBranch is the chain change addresses derive from.
	InternalBranch Branch = 1
)

// HardenedKeyStart is the index at which hardened derivation begins.
// Indices at or above this value derive hardened children.
const HardenedKeyStart = hdkeychain.HardenedKeyStart

// maxSkipAttempts bounds the number of consecutive indices ChildSkip will
// try.  Each individual index fails with probability below 1 in 2^127, so
// hitting this bound indicates a broken parent key rather than bad luck.
const maxSkipAttempts = 16

// Node is an immutable node of the HD key tree.  The root is created from
// a seed; every other node is created by deriving from exactly one parent.
type Node struct {
	key    *hdkeychain.ExtendedKey
	params *chaincfg.Params
}

// MasterFromSeed creates the root node of a key tree from a 16-64 byte
// seed using HMAC-SHA512 with the "Bitcoin seed" key.  The astronomically
// rare seed producing an out-of-range master key is reported as an error;
// the caller must retry with a different seed.
func MasterFromSeed(seed []byte, params *chaincfg.Params) (*Node, error) {
	key, err := hdkeychain.NewMaster(seed, params)
	if err != nil {
		return nil, fmt.Errorf("derive master key: %w", err)
	}
	return &Node{key: key, params: params}, nil
}

// Child derives the child node at the given index.  Indices at or above
// HardenedKeyStart derive hardened children, which require this node to
// hold a private key.  The rare invalid-child case surfaces as
// hdkeychain.ErrInvalidChild; callers scanning a chain should use
// ChildSkip instead of treating it as fatal.
func (n *Node) Child(index uint32) (*Node, error) {
	child, err := n.key.Derive(index)
	if err != nil {
		return nil, err
	}
	return &Node{key: child, params: n.params}, nil
}

// ChildSkip derives the child at the given index, advancing to the next
// index whenever derivation yields an invalid child key.  It returns the
// node together with the index actually used so counters can be advanced
// past any skipped indices.
func (n *Node) ChildSkip(index uint32) (*Node, uint32, error) {
	for attempt := 0; attempt < maxSkipAttempts; attempt++ {
		child, err := n.key.Derive(index)
		if errors.Is(err, hdkeychain.ErrInvalidChild) {
			index++
			continue
		}
		if err != nil {
			return nil, 0, err
		}
		return &Node{key: child, params: n.params}, index, nil
	}
	return nil, 0, hdkeychain.ErrInvalidChild
}

// PrivKey returns the private key of this node.
func (n *Node) PrivKey() (*btcec.PrivateKey, error) {
	return n.key.ECPrivKey()
}

// PubKey returns the public key of this node.
func (n *Node) PubKey() (*btcec.PublicKey, error) {
	return n.key.ECPubKey()
}

// Address returns the P2PKH address derived from this node's uncompressed
// public key.  This is the form the engine's BIP44 wallets use.
//
// Real-world BIP44 wallets derive addresses from the compressed key, but
// this engine has always hashed the uncompressed form on its BIP44 path
// while hashing the compressed form on its Electrum path.  The historical
// address vectors depend on both behaviors, so both are preserved.
func (n *Node) Address() (*btcutil.AddressPubKeyHash, error) {
	return n.address(false)
}

// AddressCompressed returns the P2PKH address derived from this node's
// compressed public key, the form Electrum wallets use.
func (n *Node) AddressCompressed() (*btcutil.AddressPubKeyHash, error) {
	return n.address(true)
}

func (n *Node) address(compressed bool) (*btcutil.AddressPubKeyHash, error) {
	pubKey, err := n.key.ECPubKey()
	if err != nil {
		return nil, err
	}
	var serialized []byte
	if compressed {
		serialized = pubKey.SerializeCompressed()
	} else {
		serialized = pubKey.SerializeUncompressed()
	}
	return btcutil.NewAddressPubKeyHash(btcutil.Hash160(serialized),
		n.params)
}

// XPub returns the serialized extended public key of this node: the
// network's public HD version bytes, depth, parent fingerprint, child
// number, chain code, and compressed public key, Base58Check encoded.
func (n *Node) XPub() (string, error) {
	neutered, err := n.key.Neuter()
	if err != nil {
		return "", fmt.Errorf("neuter extended key: %w", err)
	}
	return neutered.String(), nil
}

// Fingerprint returns the first four bytes of Hash160 of this node's
// compressed public key as lowercase hex.  For the master node this is the
// root fingerprint wallet software displays for seed verification.
func (n *Node) Fingerprint() (string, error) {
	pubKey, err := n.key.ECPubKey()
	if err != nil {
		return "", err
	}
	hash := btcutil.Hash160(pubKey.SerializeCompressed())
	return hex.EncodeToString(hash[:4]), nil
}

// Depth returns this node's depth in the tree.  The master node is at
// depth zero.
func (n *Node) Depth() uint8 {
	return n.key.Depth()
}

// ParentFingerprint returns the fingerprint of this node's parent as a
// uint32.  The master node's parent fingerprint is zero.
func (n *Node) ParentFingerprint() uint32 {
	return n.key.ParentFingerprint()
}

// IsPrivate reports whether this node holds a private key.
func (n *Node) IsPrivate() bool {
	return n.key.IsPrivate()
}

// Zero wipes the key material held by this node.
func (n *Node) Zero() {
	n.key.Zero()
}
