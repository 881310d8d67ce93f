// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package p2p

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"

	"github.com/btcsuite/hdwallet/netparams"
)

// fakePeer accepts one connection, performs the version handshake, and
// records the transactions it receives.
type fakePeer struct {
	t        *testing.T
	listener net.Listener
	received chan *wire.MsgTx
}

func newFakePeer(t *testing.T) *fakePeer {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { listener.Close() })

	p := &fakePeer{
		t:        t,
		listener: listener,
		received: make(chan *wire.MsgTx, 1),
	}
	go p.serve()
	return p
}

func (p *fakePeer) addr() string {
	return p.listener.Addr().String()
}

func (p *fakePeer) serve() {
	conn, err := p.listener.Accept()
	if err != nil {
		return
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(10 * time.Second))

	btcnet := netparams.SimNetParams.Net
	me := zeroAddr
	you := zeroAddr
	version := wire.NewMsgVersion(&me, &you, 1, 0)

	for {
		msg, _, err := wire.ReadMessage(conn, ProtocolVersion, btcnet)
		if err != nil {
			return
		}
		switch m := msg.(type) {
		case *wire.MsgVersion:
			wire.WriteMessage(conn, version, ProtocolVersion, btcnet)
			wire.WriteMessage(conn, wire.NewMsgVerAck(),
				ProtocolVersion, btcnet)

		case *wire.MsgTx:
			p.received <- m
			return
		}
	}
}

func testTx() *wire.MsgTx {
	tx := wire.NewMsgTx(wire.TxVersion)
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&chainhash.Hash{0x07}, 0),
		[]byte{0x51}, nil))
	tx.AddTxOut(wire.NewTxOut(5000, []byte{0x51}))
	return tx
}

func TestBroadcast(t *testing.T) {
	peer := newFakePeer(t)

	broadcaster, err := NewBroadcaster(&Config{
		Params:       &netparams.SimNetParams,
		PeerAddr:     peer.addr(),
		ResponseWait: 100 * time.Millisecond,
	})
	require.NoError(t, err)

	tx := testTx()
	require.NoError(t, broadcaster.Broadcast(context.Background(), tx))

	select {
	case got := <-peer.received:
		require.Equal(t, tx.TxHash(), got.TxHash())
	case <-time.After(5 * time.Second):
		t.Fatal("peer never received the transaction")
	}
}

func TestBroadcastConnectFailure(t *testing.T) {
	// A closed listener port refuses the connection.
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	listener.Close()

	broadcaster, err := NewBroadcaster(&Config{
		Params:      &netparams.SimNetParams,
		PeerAddr:    addr,
		DialTimeout: time.Second,
	})
	require.NoError(t, err)

	err = broadcaster.Broadcast(context.Background(), testTx())
	require.Error(t, err)
}

func TestNewBroadcasterDefaults(t *testing.T) {
	broadcaster, err := NewBroadcaster(&Config{
		Params:   &netparams.MainNetParams,
		PeerAddr: "node.example.com",
	})
	require.NoError(t, err)
	require.Equal(t, "node.example.com:8333", broadcaster.cfg.PeerAddr)
	require.Equal(t, defaultDialTimeout, broadcaster.cfg.DialTimeout)

	_, err = NewBroadcaster(&Config{Params: &netparams.MainNetParams})
	require.Error(t, err)
}
