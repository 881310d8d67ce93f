// Copyright (c) 2014-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package keychain

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/btcsuite/btcd/chaincfg"
	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/text/unicode/norm"

	"github.com/btcsuite/hdwallet/internal/zero"
)

// Seed stretching parameters shared by the BIP39 and Electrum schemes.
// Both run PBKDF2-HMAC-SHA512 for 2048 iterations producing a 64-byte
// seed; they differ only in text normalization and the salt prefix.
const (
	seedIterations = 2048
	seedBytes      = 64

	bip39SaltPrefix    = "mnemonic"
	electrumSaltPrefix = "electrum"

	// electrumVersionKey is the HMAC key Electrum uses to tag mnemonics
	// with their seed version.
	electrumVersionKey = "Seed version"
)

// ErrInvalidSeed describes a mnemonic that fails the Electrum seed version
// check.
var ErrInvalidSeed = errors.New("unrecognized electrum seed version")

// ElectrumSeedType identifies the wallet flavor an Electrum mnemonic was
// generated for.
type ElectrumSeedType uint8

const (
	// ElectrumStandard is a legacy P2PKH wallet seed.
	ElectrumStandard ElectrumSeedType = iota

	// ElectrumSegwit is a P2WPKH wallet seed.
	ElectrumSegwit

	// ElectrumTwoFASegwit is a two-factor segwit wallet seed.
	ElectrumTwoFASegwit

	// ElectrumTwoFA is a two-factor legacy wallet seed.
	ElectrumTwoFA
)

// String returns the Electrum name for the seed type.
func (t ElectrumSeedType) String() string {
	switch t {
	case ElectrumStandard:
		return "standard"
	case ElectrumSegwit:
		return "segwit"
	case ElectrumTwoFASegwit:
		return "2fa_segwit"
	case ElectrumTwoFA:
		return "2fa"
	default:
		return "unknown"
	}
}

// BIP39Seed stretches a BIP39 mnemonic and optional passphrase into a
// 64-byte seed.  Both strings are NFKD normalized and the salt is
// "mnemonic" followed by the passphrase.  The mnemonic is not checked
// against a wordlist; any phrase is accepted.
func BIP39Seed(mnemonic, passphrase string) []byte {
	password := norm.NFKD.String(mnemonic)
	salt := bip39SaltPrefix + norm.NFKD.String(passphrase)
	return pbkdf2.Key([]byte(password), []byte(salt), seedIterations,
		seedBytes, sha512.New)
}

// normalizeElectrumText normalizes a mnemonic or passphrase the way
// Electrum does: NFKD followed by collapsing whitespace runs to single
// spaces.
func normalizeElectrumText(text string) string {
	return strings.Join(strings.Fields(norm.NFKD.String(text)), " ")
}

// ElectrumSeedVersion checks a mnemonic against Electrum's seed version
// scheme: the hex HMAC-SHA512 digest of the normalized mnemonic under the
// "Seed version" key must begin with a known version prefix.  Mnemonics
// with no recognized prefix fail with ErrInvalidSeed.
func ElectrumSeedVersion(mnemonic string) (ElectrumSeedType, error) {
	mac := hmac.New(sha512.New, []byte(electrumVersionKey))
	mac.Write([]byte(normalizeElectrumText(mnemonic)))
	digest := hex.EncodeToString(mac.Sum(nil))

	switch {
	case strings.HasPrefix(digest, "01"):
		return ElectrumStandard, nil
	case strings.HasPrefix(digest, "100"):
		return ElectrumSegwit, nil
	case strings.HasPrefix(digest, "101"):
		return ElectrumTwoFASegwit, nil
	case strings.HasPrefix(digest, "102"):
		return ElectrumTwoFA, nil
	default:
		return 0, ErrInvalidSeed
	}
}

// ElectrumSeed stretches an Electrum native mnemonic and optional
// passphrase into a 64-byte seed.  The salt is "electrum" followed by the
// normalized passphrase; an empty passphrase stays empty.
func ElectrumSeed(mnemonic, passphrase string) []byte {
	password := normalizeElectrumText(mnemonic)
	if passphrase != "" {
		passphrase = normalizeElectrumText(passphrase)
	}
	salt := electrumSaltPrefix + passphrase
	return pbkdf2.Key([]byte(password), []byte(salt), seedIterations,
		seedBytes, sha512.New)
}

// ElectrumMaster validates an Electrum mnemonic and derives the master
// node of its key tree.
func ElectrumMaster(mnemonic, passphrase string,
	params *chaincfg.Params) (*Node, ElectrumSeedType, error) {

	seedType, err := ElectrumSeedVersion(mnemonic)
	if err != nil {
		return nil, 0, err
	}
	seed := ElectrumSeed(mnemonic, passphrase)
	defer zero.Bytes(seed)

	master, err := MasterFromSeed(seed, params)
	if err != nil {
		return nil, 0, err
	}
	return master, seedType, nil
}

// BIP39Master derives the master node of a BIP39 mnemonic's key tree.
func BIP39Master(mnemonic, passphrase string,
	params *chaincfg.Params) (*Node, error) {

	seed := BIP39Seed(mnemonic, passphrase)
	defer zero.Bytes(seed)
	return MasterFromSeed(seed, params)
}
