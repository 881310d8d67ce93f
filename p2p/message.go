// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package p2p implements the minimal peer protocol surface needed to hand
// a signed transaction to the network: the version handshake and the tx
// message, framed with the standard 24-byte message header.
package p2p

import (
	"bytes"
	"fmt"
	"math/rand"
	"net"

	"github.com/btcsuite/btcd/wire"
)

// ProtocolVersion is the protocol version spoken during broadcast.  The
// engine only sends version and tx messages, both unchanged since this
// version, so there is no reason to negotiate anything newer.
const ProtocolVersion = wire.BIP0035Version

// zeroAddr is the all-zero network address embedded in version messages.
// Broadcast peers do not need a routable address for either endpoint.
var zeroAddr = wire.NetAddress{IP: net.IP(make([]byte, 16))}

// VersionMessage builds the version message announcing this node to a
// peer.  Both endpoint addresses are zeroed and the full-node network
// service is advertised.
func VersionMessage(userAgent string) (*wire.MsgVersion, error) {
	me := zeroAddr
	you := zeroAddr
	msg := wire.NewMsgVersion(&me, &you, rand.Uint64(), 0)
	msg.ProtocolVersion = int32(ProtocolVersion)
	msg.Services = wire.SFNodeNetwork
	if err := msg.AddUserAgent(userAgent, ""); err != nil {
		return nil, fmt.Errorf("build version message: %w", err)
	}
	return msg, nil
}

// EncodeMessage frames a message with the 24-byte header for the given
// network: magic, NUL-padded command, payload length, and the first four
// bytes of the double SHA-256 of the payload.
func EncodeMessage(msg wire.Message, btcnet wire.BitcoinNet) ([]byte, error) {
	var buf bytes.Buffer
	if err := wire.WriteMessage(&buf, msg, ProtocolVersion,
		btcnet); err != nil {

		return nil, fmt.Errorf("encode %s message: %w", msg.Command(),
			err)
	}
	return buf.Bytes(), nil
}
