// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package p2p

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/btcsuite/btcd/wire"
	"golang.org/x/net/proxy"

	"github.com/btcsuite/hdwallet/netparams"
)

const (
	// defaultDialTimeout bounds the TCP connect and handshake.
	defaultDialTimeout = 30 * time.Second

	// defaultResponseWait is how long the broadcaster listens for peer
	// traffic after sending the transaction before declaring success.
	defaultResponseWait = 5 * time.Second

	// defaultUserAgent identifies the engine to peers.
	defaultUserAgent = "hdwallet"
)

// Config parameterizes a Broadcaster.
type Config struct {
	// Params selects the network, providing the message magic and the
	// default peer port.
	Params *netparams.Params

	// PeerAddr is the peer to hand transactions to, as host or
	// host:port.  A bare host gets the network's default port.
	PeerAddr string

	// ProxyAddr optionally routes the connection through a SOCKS5
	// proxy at host:port.
	ProxyAddr string

	// DialTimeout and ResponseWait override the connection and
	// post-send listening timeouts when nonzero.
	DialTimeout  time.Duration
	ResponseWait time.Duration
}

// Broadcaster pushes signed transactions to a single peer over the wire
// protocol.  Each Broadcast call opens a fresh connection, performs the
// version handshake, sends the transaction, and listens briefly for a
// rejection before disconnecting.
type Broadcaster struct {
	cfg Config
}

// NewBroadcaster creates a broadcaster for the given configuration.
func NewBroadcaster(cfg *Config) (*Broadcaster, error) {
	if cfg.Params == nil {
		return nil, errors.New("network parameters are required")
	}
	if cfg.PeerAddr == "" {
		return nil, errors.New("a peer address is required")
	}

	c := *cfg
	if _, _, err := net.SplitHostPort(c.PeerAddr); err != nil {
		c.PeerAddr = net.JoinHostPort(c.PeerAddr, c.Params.PeerPort)
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = defaultDialTimeout
	}
	if c.ResponseWait == 0 {
		c.ResponseWait = defaultResponseWait
	}
	return &Broadcaster{cfg: c}, nil
}

// Broadcast sends a signed transaction to the configured peer.  A nil
// return means the peer accepted the connection and the transaction was
// written without an observed rejection; it is not a confirmation the
// transaction propagated.
func (b *Broadcaster) Broadcast(ctx context.Context, tx *wire.MsgTx) error {
	conn, err := b.dial(ctx)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", b.cfg.PeerAddr, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(b.cfg.DialTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return err
	}

	if err := b.handshake(conn); err != nil {
		return fmt.Errorf("handshake with %s: %w", b.cfg.PeerAddr, err)
	}

	txHash := tx.TxHash()
	log.Infof("Sending transaction %v to %s", txHash, b.cfg.PeerAddr)
	if err := wire.WriteMessage(conn, tx, ProtocolVersion,
		b.cfg.Params.Net); err != nil {

		return fmt.Errorf("send transaction: %w", err)
	}

	return b.awaitReaction(conn)
}

func (b *Broadcaster) dial(ctx context.Context) (net.Conn, error) {
	if b.cfg.ProxyAddr != "" {
		dialer, err := proxy.SOCKS5("tcp", b.cfg.ProxyAddr, nil,
			proxy.Direct)
		if err != nil {
			return nil, err
		}
		if cd, ok := dialer.(proxy.ContextDialer); ok {
			return cd.DialContext(ctx, "tcp", b.cfg.PeerAddr)
		}
		return dialer.Dial("tcp", b.cfg.PeerAddr)
	}

	d := net.Dialer{Timeout: b.cfg.DialTimeout}
	return d.DialContext(ctx, "tcp", b.cfg.PeerAddr)
}

// handshake performs the version exchange: send our version, then read
// until the peer's verack arrives.  The peer's version message is answered
// with a verack of our own.
func (b *Broadcaster) handshake(conn net.Conn) error {
	ours, err := VersionMessage(defaultUserAgent)
	if err != nil {
		return err
	}
	if err := wire.WriteMessage(conn, ours, ProtocolVersion,
		b.cfg.Params.Net); err != nil {

		return err
	}

	for {
		msg, _, err := wire.ReadMessage(conn, ProtocolVersion,
			b.cfg.Params.Net)
		if err != nil {
			return err
		}

		switch m := msg.(type) {
		case *wire.MsgVersion:
			log.Debugf("Peer %s is %s (protocol %d)",
				b.cfg.PeerAddr, m.UserAgent, m.ProtocolVersion)
			err := wire.WriteMessage(conn, wire.NewMsgVerAck(),
				ProtocolVersion, b.cfg.Params.Net)
			if err != nil {
				return err
			}

		case *wire.MsgVerAck:
			return nil

		default:
			log.Debugf("Ignoring %s message during handshake",
				msg.Command())
		}
	}
}

// awaitReaction listens for a short window after the send.  Most peers
// stay silent on acceptance, so a read timeout is the success path.
func (b *Broadcaster) awaitReaction(conn net.Conn) error {
	if err := conn.SetReadDeadline(
		time.Now().Add(b.cfg.ResponseWait)); err != nil {

		return err
	}

	for {
		msg, _, err := wire.ReadMessage(conn, ProtocolVersion,
			b.cfg.Params.Net)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				return nil
			}
			// Unknown commands from chattier peers are not a
			// broadcast failure.
			log.Debugf("Stopped reading from %s: %v",
				b.cfg.PeerAddr, err)
			return nil
		}
		log.Debugf("Peer %s sent %s after broadcast", b.cfg.PeerAddr,
			msg.Command())
	}
}
