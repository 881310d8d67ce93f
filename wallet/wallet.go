// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package wallet implements the wallet engine: key material management,
// address derivation and caching, network discovery of used addresses,
// and transaction creation, signing, and broadcast.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"

	"github.com/btcsuite/hdwallet/chain"
	"github.com/btcsuite/hdwallet/keychain"
	"github.com/btcsuite/hdwallet/keypair"
	"github.com/btcsuite/hdwallet/netparams"
)

const (
	// DefaultGapLimit is the number of consecutive unused addresses that
	// ends a discovery scan when no explicit limit is configured.
	DefaultGapLimit = 20

	// DefaultSearchLimit bounds the offline index scan performed when a
	// private key lookup misses the address cache.
	DefaultSearchLimit = 100

	// maxScanIndex is the hard cap on derivation indices visited per
	// branch during discovery, regardless of the gap limit.
	maxScanIndex = 1000
)

var (
	// ErrAddressNotOwned describes an address lookup that no key held by
	// the wallet can satisfy.
	ErrAddressNotOwned = errors.New("address is not owned by the wallet")

	// ErrNotHD describes a hierarchical operation invoked on a wallet
	// backed by a single imported key.
	ErrNotHD = errors.New("wallet is not hierarchically derived")

	// ErrNoProvider describes a network operation on a wallet configured
	// without a chain provider.
	ErrNoProvider = errors.New("wallet has no chain data provider")

	// ErrNoBroadcaster describes a send on a wallet configured without a
	// transaction broadcaster.
	ErrNoBroadcaster = errors.New("wallet has no transaction broadcaster")
)

// Standard identifies a derivation convention, or selects which
// conventions a discovery scan should probe.
type Standard uint8

const (
	// StandardAuto probes each convention the key material supports and
	// settles on the first one with on-chain history.
	StandardAuto Standard = iota

	// StandardBIP44 derives external and change addresses below
	// m/44'/0'/account' from uncompressed public keys.
	StandardBIP44

	// StandardElectrum derives addresses below m/0 and m/1 directly from
	// the master key, from compressed public keys.
	StandardElectrum

	// StandardAll probes every supported convention without settling.
	StandardAll
)

// String returns the name of the standard.
func (s Standard) String() string {
	switch s {
	case StandardAuto:
		return "auto"
	case StandardBIP44:
		return "bip44"
	case StandardElectrum:
		return "electrum"
	case StandardAll:
		return "all"
	}
	return fmt.Sprintf("unknown(%d)", uint8(s))
}

// ParseStandard converts a standard name to its Standard value.
func ParseStandard(name string) (Standard, error) {
	switch name {
	case "auto", "":
		return StandardAuto, nil
	case "bip44":
		return StandardBIP44, nil
	case "electrum":
		return StandardElectrum, nil
	case "all":
		return StandardAll, nil
	}
	return 0, fmt.Errorf("unknown derivation standard %q", name)
}

// KeyMaterial is the sealed set of key backings a wallet can hold: a
// single imported key, a BIP44 account tree, or an Electrum master tree.
type KeyMaterial interface {
	sealed()
}

// SingleKey backs a wallet with one imported private key.  No derivation
// is possible; the wallet controls exactly one address.
type SingleKey struct {
	pair *keypair.KeyPair
}

func (*SingleKey) sealed() {}

// KeyPair returns the imported key pair.
func (m *SingleKey) KeyPair() *keypair.KeyPair {
	return m.pair
}

// BIP39HD backs a wallet with a BIP39-seeded BIP32 tree, deriving
// addresses below the BIP44 account path m/44'/0'/account'.
type BIP39HD struct {
	master  *keychain.Node
	account *keychain.Node
	acctNum uint32
}

func (*BIP39HD) sealed() {}

// Account returns the BIP44 account number the wallet derives under.
func (m *BIP39HD) Account() uint32 {
	return m.acctNum
}

// ElectrumHD backs a wallet with an Electrum-seeded tree, deriving
// addresses on the m/0 and m/1 branches of the master key.
type ElectrumHD struct {
	master   *keychain.Node
	seedType keychain.ElectrumSeedType
}

func (*ElectrumHD) sealed() {}

// hdMaterial is the per-convention behavior shared by the hierarchical
// key material variants.
type hdMaterial interface {
	KeyMaterial

	// branchNode returns the node whose children are the addresses of
	// the given branch.
	branchNode(branch keychain.Branch) (*keychain.Node, error)

	// compressedAddrs reports whether addresses hash the compressed
	// public key serialization.
	compressedAddrs() bool

	// standard names the derivation convention.
	standard() Standard

	// root returns the master node, used for xpub and fingerprint
	// rendering.
	root() *keychain.Node
}

func (m *BIP39HD) branchNode(branch keychain.Branch) (*keychain.Node, error) {
	return m.account.Child(uint32(branch))
}

// compressedAddrs is false for BIP44 wallets: their addresses hash the
// uncompressed public key.  Electrum wallets hash the compressed form.
// The divergence is historical and baked into every derived address, so
// both are kept exactly as-is.
func (m *BIP39HD) compressedAddrs() bool { return false }
func (m *BIP39HD) standard() Standard    { return StandardBIP44 }
func (m *BIP39HD) root() *keychain.Node  { return m.master }

func (m *ElectrumHD) branchNode(branch keychain.Branch) (*keychain.Node, error) {
	return m.master.Child(uint32(branch))
}

func (m *ElectrumHD) compressedAddrs() bool { return true }
func (m *ElectrumHD) standard() Standard    { return StandardElectrum }
func (m *ElectrumHD) root() *keychain.Node  { return m.master }

// SeedType returns the Electrum seed version of the backing mnemonic.
func (m *ElectrumHD) SeedType() keychain.ElectrumSeedType {
	return m.seedType
}

// Broadcaster hands signed transactions to the network.
type Broadcaster interface {
	Broadcast(ctx context.Context, tx *wire.MsgTx) error
}

// Config parameterizes a wallet.  ChainParams is required; Provider and
// TxBroadcaster may be nil for offline-only use, in which case the
// network operations return ErrNoProvider or ErrNoBroadcaster.
type Config struct {
	// ChainParams selects the network the wallet derives addresses for.
	ChainParams *netparams.Params

	// Provider supplies address activity, UTXOs, and fee rates.
	Provider chain.Provider

	// TxBroadcaster pushes signed transactions to a peer.
	TxBroadcaster Broadcaster

	// Account is the BIP44 account number.  Ignored for Electrum and
	// single-key wallets.
	Account uint32

	// GapLimit overrides DefaultGapLimit when nonzero.
	GapLimit uint32

	// SearchLimit overrides DefaultSearchLimit when nonzero.
	SearchLimit uint32
}

func (cfg *Config) normalize() (Config, error) {
	if cfg == nil || cfg.ChainParams == nil {
		return Config{}, errors.New("chain parameters are required")
	}
	c := *cfg
	if c.GapLimit == 0 {
		c.GapLimit = DefaultGapLimit
	}
	if c.SearchLimit == 0 {
		c.SearchLimit = DefaultSearchLimit
	}
	return c, nil
}

// bookEntry records one derived address and the coordinates to re-derive
// its key.
type bookEntry struct {
	address string
	branch  keychain.Branch
	index   uint32
	used    bool
	balance btcutil.Amount
}

// addrBook is the wallet's insertion-ordered address cache.  Every entry
// is re-derivable from its branch and index, so the cache never holds key
// material, only coordinates.
type addrBook struct {
	byAddr map[string]*bookEntry
	order  []*bookEntry
}

func newAddrBook() *addrBook {
	return &addrBook{byAddr: make(map[string]*bookEntry)}
}

// add inserts an entry, or refreshes the activity fields of an existing
// one.  Coordinates of an existing entry never change.
func (b *addrBook) add(e *bookEntry) {
	if have, ok := b.byAddr[e.address]; ok {
		if e.used {
			have.used = true
		}
		have.balance = e.balance
		return
	}
	b.byAddr[e.address] = e
	b.order = append(b.order, e)
}

func (b *addrBook) lookup(address string) (*bookEntry, bool) {
	e, ok := b.byAddr[address]
	return e, ok
}

// Wallet is the engine instance.  A single wallet is safe for concurrent
// use; all state is guarded by one mutex.
type Wallet struct {
	mtx sync.Mutex

	cfg      Config
	material KeyMaterial

	// altMaterial is a second derivation candidate probed by automatic
	// discovery.  It is set when a mnemonic is both a plausible BIP39
	// phrase and a versioned Electrum seed, and cleared once discovery
	// settles on a convention.
	altMaterial KeyMaterial

	externalIndex uint32
	internalIndex uint32
	book          *addrBook
}

// Generate creates a wallet around a fresh random private key.
func Generate(cfg *Config) (*Wallet, error) {
	pair, err := keypair.Generate()
	if err != nil {
		return nil, err
	}
	return newWallet(cfg, &SingleKey{pair: pair}, nil)
}

// FromPrivateKeyHex creates a single-key wallet from a 64-character hex
// private key.  Addresses use the uncompressed public key.
func FromPrivateKeyHex(privHex string, cfg *Config) (*Wallet, error) {
	pair, err := keypair.New(privHex)
	if err != nil {
		return nil, err
	}
	return newWallet(cfg, &SingleKey{pair: pair}, nil)
}

// FromWIF creates a single-key wallet from a WIF-encoded private key.
// The WIF's compression flag decides the address form.
func FromWIF(wif string, cfg *Config) (*Wallet, error) {
	pair, err := keypair.FromWIF(wif)
	if err != nil {
		return nil, err
	}
	return newWallet(cfg, &SingleKey{pair: pair}, nil)
}

// FromMnemonic creates an HD wallet from a BIP39-style mnemonic.  The
// phrase is not validated against a wordlist; any text stretches to a
// seed.  When the phrase also carries a standard Electrum seed version,
// the Electrum interpretation is kept as a discovery candidate so
// automatic discovery can settle on whichever convention has history.
func FromMnemonic(mnemonic, passphrase string, cfg *Config) (*Wallet, error) {
	c, err := cfg.normalize()
	if err != nil {
		return nil, err
	}

	material, err := newBIP39Material(mnemonic, passphrase, &c)
	if err != nil {
		return nil, err
	}

	var alt KeyMaterial
	if seedType, err := keychain.ElectrumSeedVersion(mnemonic); err == nil &&
		seedType == keychain.ElectrumStandard {

		altMaterial, err := newElectrumMaterial(mnemonic, passphrase, &c)
		if err != nil {
			return nil, err
		}
		alt = altMaterial
	}

	return newWallet(&c, material, alt)
}

// FromElectrumSeed creates an HD wallet from an Electrum native mnemonic.
// Only standard (legacy P2PKH) seeds are supported.
func FromElectrumSeed(mnemonic, passphrase string, cfg *Config) (*Wallet, error) {
	c, err := cfg.normalize()
	if err != nil {
		return nil, err
	}

	seedType, err := keychain.ElectrumSeedVersion(mnemonic)
	if err != nil {
		return nil, err
	}
	if seedType != keychain.ElectrumStandard {
		return nil, fmt.Errorf("electrum seed type %v is not supported",
			seedType)
	}

	material, err := newElectrumMaterial(mnemonic, passphrase, &c)
	if err != nil {
		return nil, err
	}
	return newWallet(&c, material, nil)
}

func newBIP39Material(mnemonic, passphrase string,
	cfg *Config) (*BIP39HD, error) {

	master, err := keychain.BIP39Master(mnemonic, passphrase,
		cfg.ChainParams.Params)
	if err != nil {
		return nil, err
	}
	account, err := master.Derive(keychain.AccountPath(0, cfg.Account))
	if err != nil {
		return nil, fmt.Errorf("derive account %d: %w", cfg.Account, err)
	}
	return &BIP39HD{
		master:  master,
		account: account,
		acctNum: cfg.Account,
	}, nil
}

func newElectrumMaterial(mnemonic, passphrase string,
	cfg *Config) (*ElectrumHD, error) {

	master, seedType, err := keychain.ElectrumMaster(mnemonic, passphrase,
		cfg.ChainParams.Params)
	if err != nil {
		return nil, err
	}
	return &ElectrumHD{
		master:   master,
		seedType: seedType,
	}, nil
}

func newWallet(cfg *Config, material, alt KeyMaterial) (*Wallet, error) {
	c, err := cfg.normalize()
	if err != nil {
		return nil, err
	}
	return &Wallet{
		cfg:         c,
		material:    material,
		altMaterial: alt,
		book:        newAddrBook(),
	}, nil
}

// ChainParams returns the network the wallet operates on.
func (w *Wallet) ChainParams() *netparams.Params {
	return w.cfg.ChainParams
}

// Material returns the wallet's active key material.
func (w *Wallet) Material() KeyMaterial {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	return w.material
}

// Standard returns the active derivation convention, or StandardAuto for
// a single-key wallet.
func (w *Wallet) Standard() Standard {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	if hd, ok := w.material.(hdMaterial); ok {
		return hd.standard()
	}
	return StandardAuto
}

// XPub returns the serialized extended public key of the master node.
func (w *Wallet) XPub() (string, error) {
	w.mtx.Lock()
	defer w.mtx.Unlock()

	hd, ok := w.material.(hdMaterial)
	if !ok {
		return "", ErrNotHD
	}
	return hd.root().XPub()
}

// Fingerprint returns the master node's key fingerprint as 8 hex digits.
func (w *Wallet) Fingerprint() (string, error) {
	w.mtx.Lock()
	defer w.mtx.Unlock()

	hd, ok := w.material.(hdMaterial)
	if !ok {
		return "", ErrNotHD
	}
	return hd.root().Fingerprint()
}

// AddressRecord describes one cached or derived address.
type AddressRecord struct {
	Address string
	Branch  keychain.Branch
	Index   uint32
	Used    bool
}

// Address returns the wallet's primary address: the imported key's
// address for a single-key wallet, the first external address otherwise.
func (w *Wallet) Address() (string, error) {
	w.mtx.Lock()
	defer w.mtx.Unlock()

	if single, ok := w.material.(*SingleKey); ok {
		addr, err := single.pair.Address(w.cfg.ChainParams.Params)
		if err != nil {
			return "", err
		}
		return addr.EncodeAddress(), nil
	}

	entry, err := w.deriveEntry(w.material.(hdMaterial),
		keychain.ExternalBranch, 0)
	if err != nil {
		return "", err
	}
	w.book.add(entry)
	return entry.address, nil
}

// Addresses derives and returns the first count external addresses.
func (w *Wallet) Addresses(count uint32) ([]AddressRecord, error) {
	w.mtx.Lock()
	defer w.mtx.Unlock()

	if single, ok := w.material.(*SingleKey); ok {
		addr, err := single.pair.Address(w.cfg.ChainParams.Params)
		if err != nil {
			return nil, err
		}
		return []AddressRecord{{Address: addr.EncodeAddress()}}, nil
	}

	hd := w.material.(hdMaterial)
	records := make([]AddressRecord, 0, count)
	for index := uint32(0); uint32(len(records)) < count; index++ {
		entry, err := w.deriveEntry(hd, keychain.ExternalBranch, index)
		if err != nil {
			return nil, err
		}
		index = entry.index
		w.book.add(entry)
		records = append(records, recordOf(w.book.byAddr[entry.address]))
	}
	return records, nil
}

// NewReceivingAddress derives the next unused external address, caches
// it, and advances the external counter.
func (w *Wallet) NewReceivingAddress() (string, error) {
	return w.nextAddress(keychain.ExternalBranch)
}

// NewChangeAddress derives the next unused internal address, caches it,
// and advances the internal counter.
func (w *Wallet) NewChangeAddress() (string, error) {
	return w.nextAddress(keychain.InternalBranch)
}

func (w *Wallet) nextAddress(branch keychain.Branch) (string, error) {
	w.mtx.Lock()
	defer w.mtx.Unlock()

	hd, ok := w.material.(hdMaterial)
	if !ok {
		return "", ErrNotHD
	}

	counter := &w.externalIndex
	if branch == keychain.InternalBranch {
		counter = &w.internalIndex
	}

	entry, err := w.deriveEntry(hd, branch, *counter)
	if err != nil {
		return "", err
	}
	w.book.add(entry)
	*counter = entry.index + 1

	log.Debugf("Derived %v address %s at index %d", branch, entry.address,
		entry.index)
	return entry.address, nil
}

// CachedAddresses returns the cache contents in insertion order.
func (w *Wallet) CachedAddresses() []AddressRecord {
	w.mtx.Lock()
	defer w.mtx.Unlock()

	records := make([]AddressRecord, 0, len(w.book.order))
	for _, e := range w.book.order {
		records = append(records, recordOf(e))
	}
	return records
}

func recordOf(e *bookEntry) AddressRecord {
	return AddressRecord{
		Address: e.address,
		Branch:  e.branch,
		Index:   e.index,
		Used:    e.used,
	}
}

// deriveEntry derives the address at (branch, index) for the given
// material, skipping unusable indices.  The returned entry carries the
// index actually used.
func (w *Wallet) deriveEntry(hd hdMaterial, branch keychain.Branch,
	index uint32) (*bookEntry, error) {

	node, err := hd.branchNode(branch)
	if err != nil {
		return nil, err
	}
	child, usedIndex, err := node.ChildSkip(index)
	if err != nil {
		return nil, err
	}

	var addr *btcutil.AddressPubKeyHash
	if hd.compressedAddrs() {
		addr, err = child.AddressCompressed()
	} else {
		addr, err = child.Address()
	}
	if err != nil {
		return nil, err
	}

	return &bookEntry{
		address: addr.EncodeAddress(),
		branch:  branch,
		index:   usedIndex,
	}, nil
}

// lookupConfig collects the option knobs of PrivateKeyForAddress.
type lookupConfig struct {
	autoDiscover bool
	searchLimit  uint32
}

// LookupOption adjusts how PrivateKeyForAddress resolves cache misses.
type LookupOption func(*lookupConfig)

// WithoutDiscovery disables the offline index scan on a cache miss.
func WithoutDiscovery() LookupOption {
	return func(c *lookupConfig) {
		c.autoDiscover = false
	}
}

// WithSearchLimit overrides the per-branch index bound of the offline
// scan.
func WithSearchLimit(limit uint32) LookupOption {
	return func(c *lookupConfig) {
		c.searchLimit = limit
	}
}

// PrivateKeyForAddress returns the key pair controlling an address owned
// by the wallet.  HD wallets answer from the address cache, re-deriving
// the key from the cached branch and index; on a miss both branches are
// scanned offline up to the search limit, caching everything visited.
// Addresses the wallet cannot reach resolve to ErrAddressNotOwned.
func (w *Wallet) PrivateKeyForAddress(address string,
	opts ...LookupOption) (*keypair.KeyPair, error) {

	cfg := lookupConfig{
		autoDiscover: true,
		searchLimit:  w.cfg.SearchLimit,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	w.mtx.Lock()
	defer w.mtx.Unlock()

	single, ok := w.material.(*SingleKey)
	if ok {
		addr, err := single.pair.Address(w.cfg.ChainParams.Params)
		if err != nil {
			return nil, err
		}
		if addr.EncodeAddress() != address {
			return nil, ErrAddressNotOwned
		}
		return single.pair, nil
	}

	hd := w.material.(hdMaterial)
	if entry, ok := w.book.lookup(address); ok {
		return w.keyAt(hd, entry.branch, entry.index)
	}
	if !cfg.autoDiscover {
		return nil, ErrAddressNotOwned
	}

	// Offline scan: walk both branches from index zero, caching every
	// derived address, until the target shows up or the limit is hit.
	branches := []keychain.Branch{
		keychain.ExternalBranch, keychain.InternalBranch,
	}
	for _, branch := range branches {
		for index := uint32(0); index <= cfg.searchLimit; index++ {
			entry, err := w.deriveEntry(hd, branch, index)
			if err != nil {
				return nil, err
			}
			index = entry.index
			w.book.add(entry)

			if entry.address != address {
				continue
			}

			// Found: make sure the counter is past it so the
			// address is not handed out again.
			counter := &w.externalIndex
			if branch == keychain.InternalBranch {
				counter = &w.internalIndex
			}
			if *counter <= entry.index {
				*counter = entry.index + 1
			}

			log.Debugf("Located address %s at %v/%d by scanning",
				address, branch, entry.index)
			return w.keyAt(hd, branch, entry.index)
		}
	}
	return nil, ErrAddressNotOwned
}

// keyAt re-derives the key pair at known-good coordinates.
func (w *Wallet) keyAt(hd hdMaterial, branch keychain.Branch,
	index uint32) (*keypair.KeyPair, error) {

	node, err := hd.branchNode(branch)
	if err != nil {
		return nil, err
	}
	child, err := node.Child(index)
	if err != nil {
		return nil, err
	}
	priv, err := child.PrivKey()
	if err != nil {
		return nil, err
	}
	return keypair.NewFromPrivKey(priv, hd.compressedAddrs()), nil
}
