// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"context"
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/stretchr/testify/require"
)

func TestDiscoverAddresses(t *testing.T) {
	provider := newFakeProvider()
	provider.markUsed(electrumAddr00, 3, 15000)
	provider.markUsed(electrumAddr01, 1, 5000)
	provider.markUsed(electrumAddr10, 2, 0)

	w, err := FromElectrumSeed(electrumMnemonic, "", testConfig(provider))
	require.NoError(t, err)

	summary, err := w.DiscoverAddresses(context.Background(),
		DiscoveryOptions{})
	require.NoError(t, err)

	require.Equal(t, StandardElectrum, summary.Active)
	require.Equal(t, 3, summary.UsedAddresses())
	require.Len(t, summary.Results, 1)

	result := summary.Results[0]
	require.Equal(t, 2, result.External.Used)
	require.Equal(t, uint32(1), result.External.LastUsedIndex)
	require.Equal(t, 1, result.Internal.Used)
	require.Equal(t, btcutil.Amount(20000), result.Balance)

	// Counters moved past the last used index on each branch.
	next, err := w.NewReceivingAddress()
	require.NoError(t, err)
	require.NotEqual(t, electrumAddr00, next)
	require.NotEqual(t, electrumAddr01, next)

	// The scanned addresses are cached with their coordinates.
	cached := w.CachedAddresses()
	require.NotEmpty(t, cached)
	byAddr := make(map[string]AddressRecord)
	for _, rec := range cached {
		byAddr[rec.Address] = rec
	}
	require.True(t, byAddr[electrumAddr00].Used)
	require.Equal(t, uint32(1), byAddr[electrumAddr01].Index)
}

func TestGapLimitStopsScan(t *testing.T) {
	provider := newFakeProvider()
	provider.markUsed(electrumAddr00, 1, 1000)
	provider.markUsed(electrumAddr01, 1, 1000)

	w, err := FromElectrumSeed(electrumMnemonic, "", testConfig(provider))
	require.NoError(t, err)

	summary, err := w.DiscoverAddresses(context.Background(),
		DiscoveryOptions{GapLimit: 20})
	require.NoError(t, err)

	// Used addresses at external 0 and 1, then exactly 20 consecutive
	// misses before the scan stops: 22 probes.
	result := summary.Results[0]
	require.Equal(t, uint32(22), result.External.Scanned)

	// No used internal addresses: exactly 20 probes.
	require.Equal(t, uint32(20), result.Internal.Scanned)
}

func TestDiscoverAutoSwitchesToElectrum(t *testing.T) {
	provider := newFakeProvider()
	provider.markUsed(electrumAddr00, 2, 7000)

	// The mnemonic parses as both a BIP39 phrase and a standard
	// Electrum seed; the wallet starts as BIP44 with an Electrum
	// candidate.
	w, err := FromMnemonic(electrumMnemonic, "", testConfig(provider))
	require.NoError(t, err)
	require.Equal(t, StandardBIP44, w.Standard())

	summary, err := w.DiscoverAddresses(context.Background(),
		DiscoveryOptions{Standard: StandardAuto})
	require.NoError(t, err)

	// The BIP44 scan found nothing, the Electrum scan did, and the
	// wallet switched.
	require.Equal(t, StandardElectrum, summary.Active)
	require.Equal(t, StandardElectrum, w.Standard())
	require.Len(t, summary.Results, 2)
	require.Equal(t, 0, summary.Results[0].UsedAddresses())
	require.Equal(t, 1, summary.Results[1].UsedAddresses())

	// Addressing now follows the Electrum convention.
	addr, err := w.Address()
	require.NoError(t, err)
	require.Equal(t, electrumAddr00, addr)

	next, err := w.NewReceivingAddress()
	require.NoError(t, err)
	require.Equal(t, electrumAddr01, next)
}

func TestDiscoverExplicitStandardNoSwitch(t *testing.T) {
	provider := newFakeProvider()
	provider.markUsed(electrumAddr00, 2, 7000)

	w, err := FromMnemonic(electrumMnemonic, "", testConfig(provider))
	require.NoError(t, err)

	// A bip44-only scan must not probe or adopt the Electrum branch.
	summary, err := w.DiscoverAddresses(context.Background(),
		DiscoveryOptions{Standard: StandardBIP44})
	require.NoError(t, err)
	require.Len(t, summary.Results, 1)
	require.Equal(t, 0, summary.UsedAddresses())
	require.Equal(t, StandardBIP44, w.Standard())
	require.Zero(t, provider.probeCount(electrumAddr00))
}

func TestDiscoverEmptyScanStillCached(t *testing.T) {
	provider := newFakeProvider()

	w, err := FromElectrumSeed(electrumMnemonic, "", testConfig(provider))
	require.NoError(t, err)

	summary, err := w.DiscoverAddresses(context.Background(),
		DiscoveryOptions{GapLimit: 20})
	require.NoError(t, err)
	require.Equal(t, 0, summary.UsedAddresses())

	// A scan that finds no history still caches every probed address:
	// one full gap window per branch, all unused.
	cached := w.CachedAddresses()
	require.Len(t, cached, 40)
	for _, rec := range cached {
		require.False(t, rec.Used)
	}

	// The branch counters did not move.
	next, err := w.NewReceivingAddress()
	require.NoError(t, err)
	require.Equal(t, electrumAddr00, next)
}

func TestDiscoverSingleKeyFails(t *testing.T) {
	w, err := FromWIF(singleKeyWIF, testConfig(newFakeProvider()))
	require.NoError(t, err)

	_, err = w.DiscoverAddresses(context.Background(), DiscoveryOptions{})
	require.ErrorIs(t, err, ErrNotHD)
}

func TestDiscoverNoProvider(t *testing.T) {
	w, err := FromElectrumSeed(electrumMnemonic, "", testConfig(nil))
	require.NoError(t, err)

	_, err = w.DiscoverAddresses(context.Background(), DiscoveryOptions{})
	require.ErrorIs(t, err, ErrNoProvider)
}

func TestDiscoverCancelled(t *testing.T) {
	w, err := FromElectrumSeed(electrumMnemonic, "",
		testConfig(newFakeProvider()))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = w.DiscoverAddresses(ctx, DiscoveryOptions{})
	require.ErrorIs(t, err, context.Canceled)
}
