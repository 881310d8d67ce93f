// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package p2p

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"
)

func TestEncodeMessageFraming(t *testing.T) {
	tx := wire.NewMsgTx(wire.TxVersion)
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&chainhash.Hash{0x01}, 0),
		[]byte{0x51}, nil))
	tx.AddTxOut(wire.NewTxOut(1000, []byte{0x51}))

	encoded, err := EncodeMessage(tx, wire.MainNet)
	require.NoError(t, err)
	require.Greater(t, len(encoded), 24)

	header, payload := encoded[:24], encoded[24:]

	// Network magic, little endian.
	require.Equal(t, []byte{0xf9, 0xbe, 0xb4, 0xd9}, header[:4])

	// NUL-padded 12-byte command.
	command := bytes.TrimRight(header[4:16], "\x00")
	require.Equal(t, "tx", string(command))

	// Payload length and double-SHA256 checksum.
	require.Equal(t, uint32(len(payload)),
		binary.LittleEndian.Uint32(header[16:20]))
	checksum := chainhash.DoubleHashB(payload)[:4]
	require.Equal(t, checksum, header[20:24])

	// The payload is the raw transaction serialization.
	var buf bytes.Buffer
	require.NoError(t, tx.Serialize(&buf))
	require.Equal(t, buf.Bytes(), payload)
}

func TestVersionMessage(t *testing.T) {
	msg, err := VersionMessage("hdwallet")
	require.NoError(t, err)
	require.Equal(t, int32(ProtocolVersion), msg.ProtocolVersion)
	require.Equal(t, wire.SFNodeNetwork, msg.Services)
	require.Contains(t, msg.UserAgent, "hdwallet")

	// The message must survive encoding at the protocol version it
	// announces.
	encoded, err := EncodeMessage(msg, wire.MainNet)
	require.NoError(t, err)

	decoded, _, err := wire.ReadMessage(bytes.NewReader(encoded),
		ProtocolVersion, wire.MainNet)
	require.NoError(t, err)
	version, ok := decoded.(*wire.MsgVersion)
	require.True(t, ok)
	require.Equal(t, msg.Nonce, version.Nonce)
}

func TestEncodeMessageNetworkMagic(t *testing.T) {
	msg, err := VersionMessage("hdwallet")
	require.NoError(t, err)

	encoded, err := EncodeMessage(msg, wire.TestNet3)
	require.NoError(t, err)
	require.Equal(t, []byte{0x0b, 0x11, 0x09, 0x07}, encoded[:4])

	// Reading with the wrong network magic must fail.
	_, _, err = wire.ReadMessage(bytes.NewReader(encoded),
		ProtocolVersion, wire.MainNet)
	require.Error(t, err)
}
