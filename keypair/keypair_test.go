// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package keypair

import (
	"crypto/sha256"
	"errors"
	"strings"
	"testing"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/stretchr/testify/require"
)

// Historical test keys.  These are burned keys that have appeared in public
// documentation for over a decade; never use them for real funds.
const (
	testKey1Hex = "0C28FCA386C7A227600B2FE50B7CAE11EC86D3BF1FBE471BE89827E19D72AA1D"
	testKey1WIF = "5HueCGU8rMjxEXxiPuD5BDku4MkFqeZyd4dZ1jvhTVqvbTLvyTJ"

	testKey2Hex  = "18E14A7B6A307F426A94F8114701E7C8E774E7F9A47E2C2035DB29A206321725"
	testKey2Addr = "16UwLL9Risc3QfPqBUvKofHmBQ7wMtjvM"

	testTxnWIF  = "5Kb6aGpijtrb8X28GzmWtbcGZCG8jHQWFJcWugqo3MwKRvC8zyu"
	testTxnAddr = "133txdxQmwECTmXqAr9RWNHnzQ175jGb7e"
)

func TestToWIF(t *testing.T) {
	kp, err := New(testKey1Hex)
	require.NoError(t, err)

	wif, err := kp.ToWIF(&chaincfg.MainNetParams, false)
	require.NoError(t, err)
	require.Equal(t, testKey1WIF, wif)
}

func TestFromWIF(t *testing.T) {
	kp, err := FromWIF(testKey1WIF)
	require.NoError(t, err)
	require.Equal(t, strings.ToLower(testKey1Hex), kp.PrivKeyHex())
	require.False(t, kp.Compressed())

	// A WIF with a corrupted character must fail the checksum.
	bad := "6" + testKey1WIF[1:]
	_, err = FromWIF(bad)
	require.ErrorIs(t, err, ErrInvalidKey)
}

func TestAddressFromHexKey(t *testing.T) {
	kp, err := New(testKey2Hex)
	require.NoError(t, err)

	addr, err := kp.Address(&chaincfg.MainNetParams)
	require.NoError(t, err)
	require.Equal(t, testKey2Addr, addr.EncodeAddress())
}

func TestAddressFromWIFKey(t *testing.T) {
	kp, err := FromWIF(testTxnWIF)
	require.NoError(t, err)

	addr, err := kp.Address(&chaincfg.MainNetParams)
	require.NoError(t, err)
	require.Equal(t, testTxnAddr, addr.EncodeAddress())
}

func TestCompressedAddressDiffers(t *testing.T) {
	kp, err := New(testKey2Hex)
	require.NoError(t, err)

	uncompressed, err := AddressForPubKey(kp.PubKey(), false,
		&chaincfg.MainNetParams)
	require.NoError(t, err)
	compressed, err := AddressForPubKey(kp.PubKey(), true,
		&chaincfg.MainNetParams)
	require.NoError(t, err)
	require.NotEqual(t, uncompressed.EncodeAddress(),
		compressed.EncodeAddress())
}

func TestInvalidKeys(t *testing.T) {
	tests := []struct {
		name string
		hex  string
	}{{
		name: "too short",
		hex:  "0C28FCA386C7A227600B2FE50B7CAE11",
	}, {
		name: "not hex",
		hex:  strings.Repeat("zz", 32),
	}, {
		name: "zero scalar",
		hex:  strings.Repeat("00", 32),
	}, {
		name: "curve order",
		hex: "FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFE" +
			"BAAEDCE6AF48A03BBFD25E8CD0364141",
	}, {
		name: "above curve order",
		hex:  strings.Repeat("FF", 32),
	}}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := New(test.hex)
			require.ErrorIs(t, err, ErrInvalidKey)
		})
	}
}

func TestSignVerify(t *testing.T) {
	kp, err := Generate()
	require.NoError(t, err)

	digest := sha256.Sum256([]byte("a message to sign"))
	sig, err := kp.Sign(digest[:])
	require.NoError(t, err)
	require.True(t, Verify(digest[:], sig, kp.PubKey()))

	// Any single-byte corruption of the DER signature must fail
	// verification without panicking.
	for i := range sig {
		mangled := make([]byte, len(sig))
		copy(mangled, sig)
		mangled[i] ^= 0x40
		require.False(t, Verify(digest[:], mangled, kp.PubKey()),
			"flipped byte %d still verified", i)
	}

	// Wrong digest and garbage signatures must also verify false.
	other := sha256.Sum256([]byte("a different message"))
	require.False(t, Verify(other[:], sig, kp.PubKey()))
	require.False(t, Verify(digest[:], nil, kp.PubKey()))
	require.False(t, Verify(digest[:], []byte{0x30, 0x01}, kp.PubKey()))
}

func TestSignRejectsBadDigest(t *testing.T) {
	kp, err := Generate()
	require.NoError(t, err)

	_, err = kp.Sign([]byte("short"))
	require.Error(t, err)
}

// TestBase58CheckRoundTrip asserts the codec the address and WIF formats
// ride on: decode(encode(version, payload)) recovers both values, and a
// corrupted envelope fails with a checksum error.
func TestBase58CheckRoundTrip(t *testing.T) {
	payloads := [][]byte{
		{0x00},
		{0x00, 0x00, 0x01, 0x02},
		[]byte("payload bytes with no particular structure"),
	}
	for _, payload := range payloads {
		for _, version := range []byte{0x00, 0x05, 0x80} {
			encoded := base58.CheckEncode(payload, version)
			decoded, gotVersion, err := base58.CheckDecode(encoded)
			require.NoError(t, err)
			require.Equal(t, version, gotVersion)
			require.Equal(t, payload, decoded)
		}
	}

	encoded := base58.CheckEncode([]byte("payload"), 0x00)
	corrupt := "2"
	if strings.HasSuffix(encoded, "2") {
		corrupt = "3"
	}
	_, _, err := base58.CheckDecode(encoded[:len(encoded)-1] + corrupt)
	require.True(t, errors.Is(err, base58.ErrChecksum) ||
		errors.Is(err, base58.ErrInvalidFormat))
}
