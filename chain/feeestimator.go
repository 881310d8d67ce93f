// Copyright (c) 2017-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chain

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lightningnetwork/lnd/ticker"
)

// DefaultFeeRefreshInterval is how often the estimator polls the provider
// for fresh fee tiers.
const DefaultFeeRefreshInterval = 10 * time.Minute

// FeeEstimator caches the provider's fee tiers and refreshes them in the
// background so interactive operations never wait on the fee endpoint.
type FeeEstimator struct {
	started int32
	stopped int32

	provider Provider
	ticker   ticker.Ticker

	mtx       sync.RWMutex
	tiers     *FeeTiers
	fetchedAt time.Time

	wg   sync.WaitGroup
	quit chan struct{}
}

// NewFeeEstimator creates a fee estimator polling the given provider.  A
// nil refresh ticker selects the default interval.
func NewFeeEstimator(provider Provider, t ticker.Ticker) *FeeEstimator {
	if t == nil {
		t = ticker.New(DefaultFeeRefreshInterval)
	}
	return &FeeEstimator{
		provider: provider,
		ticker:   t,
		quit:     make(chan struct{}),
	}
}

// Start begins the background refresh loop.  The first fetch happens
// lazily on the first Tiers call rather than here, so a slow provider does
// not stall startup.
func (f *FeeEstimator) Start() {
	if !atomic.CompareAndSwapInt32(&f.started, 0, 1) {
		return
	}
	log.Debugf("Starting fee estimator")

	f.ticker.Resume()
	f.wg.Add(1)
	go f.refreshLoop()
}

// Stop halts the refresh loop and waits for it to exit.
func (f *FeeEstimator) Stop() {
	if !atomic.CompareAndSwapInt32(&f.stopped, 0, 1) {
		return
	}
	log.Debugf("Stopping fee estimator")

	f.ticker.Stop()
	close(f.quit)
	f.wg.Wait()
}

// Tiers returns the cached fee tiers, fetching from the provider first
// when no fetch has succeeded yet.
func (f *FeeEstimator) Tiers(ctx context.Context) (*FeeTiers, error) {
	f.mtx.RLock()
	cached := f.tiers
	f.mtx.RUnlock()
	if cached != nil {
		return cached, nil
	}
	return f.refresh(ctx)
}

// FetchedAt returns the time of the last successful refresh, zero when no
// refresh has succeeded yet.
func (f *FeeEstimator) FetchedAt() time.Time {
	f.mtx.RLock()
	defer f.mtx.RUnlock()
	return f.fetchedAt
}

func (f *FeeEstimator) refreshLoop() {
	defer f.wg.Done()

	for {
		select {
		case <-f.ticker.Ticks():
			ctx, cancel := context.WithTimeout(context.Background(),
				requestTimeout)
			if _, err := f.refresh(ctx); err != nil {
				// Keep serving the previous tiers.
				log.Warnf("Fee tier refresh failed: %v", err)
			}
			cancel()

		case <-f.quit:
			return
		}
	}
}

func (f *FeeEstimator) refresh(ctx context.Context) (*FeeTiers, error) {
	tiers, err := f.provider.FeeTiers(ctx)
	if err != nil {
		return nil, err
	}

	f.mtx.Lock()
	f.tiers = tiers
	f.fetchedAt = time.Now()
	f.mtx.Unlock()

	log.Debugf("Fee tiers refreshed: low=%v medium=%v high=%v",
		tiers.Low, tiers.Medium, tiers.High)
	return tiers, nil
}
