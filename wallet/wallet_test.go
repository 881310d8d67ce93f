// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"context"
	"sync"
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"

	"github.com/btcsuite/hdwallet/chain"
	"github.com/btcsuite/hdwallet/netparams"
)

// Electrum standard seed test vector and its derived addresses.
const (
	electrumMnemonic = "grit problem ball awesome symbol leopard coral " +
		"toddler must alien ocean satisfy"

	electrumAddr00 = "1DqEczkgKeQNDHCoMFubQebMEoNW3Bx7X5" // m/0/0
	electrumAddr01 = "1FsARj423XtyNuiLRUEzYZQDZsrKrqaNoV" // m/0/1
	electrumAddr10 = "1EGHUD4NTGWR5n1bL9qroHqbTaMoPZE6a7" // m/1/0

	electrumXPub = "xpub661MyMwAqRbcFWMdzBLTpwv2egaPXhWBAmoStC5rUkEFZ8Rya" +
		"jXySawMCrH12h1obtVY8pdKAdS8mperMLe6KUyppduasmNHibUnM37nq9q"
	electrumFingerprint = "f5934df8"

	singleKeyWIF  = "5Kb6aGpijtrb8X28GzmWtbcGZCG8jHQWFJcWugqo3MwKRvC8zyu"
	singleKeyAddr = "133txdxQmwECTmXqAr9RWNHnzQ175jGb7e"
)

// fakeProvider is an in-memory chain.Provider.  Addresses not present in
// info report no history.
type fakeProvider struct {
	mtx   sync.Mutex
	info  map[string]chain.AddressInfo
	utxos map[string][]*chain.UTXO
	tiers chain.FeeTiers
	calls map[string]int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		info:  make(map[string]chain.AddressInfo),
		utxos: make(map[string][]*chain.UTXO),
		calls: make(map[string]int),
	}
}

func (p *fakeProvider) markUsed(addr string, txCount int64,
	balance btcutil.Amount) {

	p.mtx.Lock()
	defer p.mtx.Unlock()
	p.info[addr] = chain.AddressInfo{
		Address: addr,
		TxCount: txCount,
		Balance: balance,
	}
}

func (p *fakeProvider) AddressInfo(_ context.Context,
	addr string) (*chain.AddressInfo, error) {

	p.mtx.Lock()
	defer p.mtx.Unlock()
	p.calls[addr]++
	if info, ok := p.info[addr]; ok {
		return &info, nil
	}
	return &chain.AddressInfo{Address: addr}, nil
}

func (p *fakeProvider) UTXOs(_ context.Context,
	addr string) ([]*chain.UTXO, error) {

	p.mtx.Lock()
	defer p.mtx.Unlock()
	return p.utxos[addr], nil
}

func (p *fakeProvider) FeeTiers(context.Context) (*chain.FeeTiers, error) {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	tiers := p.tiers
	return &tiers, nil
}

func (p *fakeProvider) probeCount(addr string) int {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	return p.calls[addr]
}

func testConfig(provider chain.Provider) *Config {
	return &Config{
		ChainParams: &netparams.MainNetParams,
		Provider:    provider,
	}
}

func TestElectrumWalletAddresses(t *testing.T) {
	w, err := FromElectrumSeed(electrumMnemonic, "", testConfig(nil))
	require.NoError(t, err)
	require.Equal(t, StandardElectrum, w.Standard())

	addr, err := w.Address()
	require.NoError(t, err)
	require.Equal(t, electrumAddr00, addr)

	recv0, err := w.NewReceivingAddress()
	require.NoError(t, err)
	require.Equal(t, electrumAddr00, recv0)

	recv1, err := w.NewReceivingAddress()
	require.NoError(t, err)
	require.Equal(t, electrumAddr01, recv1)

	change0, err := w.NewChangeAddress()
	require.NoError(t, err)
	require.Equal(t, electrumAddr10, change0)

	xpub, err := w.XPub()
	require.NoError(t, err)
	require.Equal(t, electrumXPub, xpub)

	fp, err := w.Fingerprint()
	require.NoError(t, err)
	require.Equal(t, electrumFingerprint, fp)
}

func TestBIP44AddressesDifferFromElectrum(t *testing.T) {
	w, err := FromMnemonic(electrumMnemonic, "", testConfig(nil))
	require.NoError(t, err)
	require.Equal(t, StandardBIP44, w.Standard())

	addr, err := w.Address()
	require.NoError(t, err)
	require.NotEqual(t, electrumAddr00, addr)

	records, err := w.Addresses(3)
	require.NoError(t, err)
	require.Len(t, records, 3)
	require.Equal(t, addr, records[0].Address)
	require.Equal(t, uint32(2), records[2].Index)
}

func TestSingleKeyWallet(t *testing.T) {
	w, err := FromWIF(singleKeyWIF, testConfig(nil))
	require.NoError(t, err)

	addr, err := w.Address()
	require.NoError(t, err)
	require.Equal(t, singleKeyAddr, addr)

	_, err = w.NewReceivingAddress()
	require.ErrorIs(t, err, ErrNotHD)
	_, err = w.XPub()
	require.ErrorIs(t, err, ErrNotHD)

	pair, err := w.PrivateKeyForAddress(singleKeyAddr)
	require.NoError(t, err)
	require.False(t, pair.Compressed())

	_, err = w.PrivateKeyForAddress(electrumAddr00)
	require.ErrorIs(t, err, ErrAddressNotOwned)
}

func TestGenerateWallet(t *testing.T) {
	w, err := Generate(testConfig(nil))
	require.NoError(t, err)

	addr, err := w.Address()
	require.NoError(t, err)
	require.NotEmpty(t, addr)

	pair, err := w.PrivateKeyForAddress(addr)
	require.NoError(t, err)
	require.NotNil(t, pair)
}

func TestPrivateKeyForAddressScan(t *testing.T) {
	cfg := testConfig(nil)

	// Derive a target address several indices deep with one wallet,
	// then look it up from a fresh wallet with an empty cache.
	source, err := FromElectrumSeed(electrumMnemonic, "", cfg)
	require.NoError(t, err)
	records, err := source.Addresses(6)
	require.NoError(t, err)
	target := records[5]

	w, err := FromElectrumSeed(electrumMnemonic, "", cfg)
	require.NoError(t, err)

	_, err = w.PrivateKeyForAddress(target.Address, WithoutDiscovery())
	require.ErrorIs(t, err, ErrAddressNotOwned)

	pair, err := w.PrivateKeyForAddress(target.Address)
	require.NoError(t, err)

	derived, err := pair.Address(w.ChainParams().Params)
	require.NoError(t, err)
	require.Equal(t, target.Address, derived.EncodeAddress())

	// The external counter advanced past the located index.
	next, err := w.NewReceivingAddress()
	require.NoError(t, err)
	nextWant, err := source.Addresses(7)
	require.NoError(t, err)
	require.Equal(t, nextWant[6].Address, next)
}

func TestPrivateKeyForAddressSearchLimit(t *testing.T) {
	source, err := FromElectrumSeed(electrumMnemonic, "", testConfig(nil))
	require.NoError(t, err)
	records, err := source.Addresses(10)
	require.NoError(t, err)

	w, err := FromElectrumSeed(electrumMnemonic, "", testConfig(nil))
	require.NoError(t, err)

	_, err = w.PrivateKeyForAddress(records[9].Address, WithSearchLimit(4))
	require.ErrorIs(t, err, ErrAddressNotOwned)

	_, err = w.PrivateKeyForAddress(records[9].Address, WithSearchLimit(20))
	require.NoError(t, err)
}

func TestPrivateKeyCompressionMatchesStandard(t *testing.T) {
	electrum, err := FromElectrumSeed(electrumMnemonic, "",
		testConfig(nil))
	require.NoError(t, err)
	addr, err := electrum.Address()
	require.NoError(t, err)
	pair, err := electrum.PrivateKeyForAddress(addr)
	require.NoError(t, err)
	require.True(t, pair.Compressed())

	bip44, err := FromMnemonic(electrumMnemonic, "", testConfig(nil))
	require.NoError(t, err)
	addr, err = bip44.Address()
	require.NoError(t, err)
	pair, err = bip44.PrivateKeyForAddress(addr)
	require.NoError(t, err)
	require.False(t, pair.Compressed())
}

func TestParseStandard(t *testing.T) {
	tests := []struct {
		name    string
		want    Standard
		wantErr bool
	}{
		{name: "", want: StandardAuto},
		{name: "auto", want: StandardAuto},
		{name: "bip44", want: StandardBIP44},
		{name: "electrum", want: StandardElectrum},
		{name: "all", want: StandardAll},
		{name: "bip84", wantErr: true},
	}
	for _, test := range tests {
		got, err := ParseStandard(test.name)
		if test.wantErr {
			require.Error(t, err)
			continue
		}
		require.NoError(t, err)
		require.Equal(t, test.want, got)
	}
}

// fakeBroadcaster records broadcast transactions.
type fakeBroadcaster struct {
	mtx  sync.Mutex
	sent []*wire.MsgTx
	err  error
}

func (b *fakeBroadcaster) Broadcast(_ context.Context,
	tx *wire.MsgTx) error {

	b.mtx.Lock()
	defer b.mtx.Unlock()
	if b.err != nil {
		return b.err
	}
	b.sent = append(b.sent, tx)
	return nil
}
