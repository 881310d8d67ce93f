// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"context"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"golang.org/x/sync/errgroup"

	"github.com/btcsuite/hdwallet/keychain"
)

// DiscoveryOptions parameterizes an address discovery scan.
type DiscoveryOptions struct {
	// Standard selects the derivation conventions to probe.  Auto stops
	// at the first convention with on-chain history; All probes every
	// candidate.
	Standard Standard

	// GapLimit overrides the wallet's configured gap limit when nonzero.
	GapLimit uint32
}

// BranchResult summarizes the scan of a single derivation branch.
type BranchResult struct {
	// Scanned is the number of indices visited.
	Scanned uint32

	// Used is the number of addresses with transaction history.
	Used int

	// LastUsedIndex is the highest index with history.  Only meaningful
	// when Used is nonzero.
	LastUsedIndex uint32
}

// StandardResult summarizes the scan of one derivation convention.
type StandardResult struct {
	Standard Standard
	External BranchResult
	Internal BranchResult

	// Balance is the summed confirmed balance of the used addresses.
	Balance btcutil.Amount
}

// UsedAddresses returns the total number of used addresses found.
func (r *StandardResult) UsedAddresses() int {
	return r.External.Used + r.Internal.Used
}

// DiscoverySummary reports the outcome of DiscoverAddresses.
type DiscoverySummary struct {
	// Results holds one entry per convention scanned, in scan order.
	Results []StandardResult

	// Active is the convention the wallet settled on.
	Active Standard
}

// UsedAddresses returns the total used addresses across all scans.
func (s *DiscoverySummary) UsedAddresses() int {
	var total int
	for i := range s.Results {
		total += s.Results[i].UsedAddresses()
	}
	return total
}

// scannedAddr is one provider-probed address, staged for cache merge.
type scannedAddr struct {
	entry   bookEntry
	balance btcutil.Amount
}

// DiscoverAddresses scans the wallet's derivation branches against the
// chain provider to find addresses with transaction history.  A branch
// scan walks indices in order and stops after GapLimit consecutive
// addresses with no history; the external and internal branches of a
// convention scan concurrently.  In auto mode the conventions the key
// material supports are probed in turn and the first one with history
// becomes the wallet's active material.  Every probed address lands in
// the address cache and the branch counters advance past the last used
// index.
func (w *Wallet) DiscoverAddresses(ctx context.Context,
	opts DiscoveryOptions) (*DiscoverySummary, error) {

	if w.cfg.Provider == nil {
		return nil, ErrNoProvider
	}

	gapLimit := opts.GapLimit
	if gapLimit == 0 {
		gapLimit = w.cfg.GapLimit
	}

	candidates, err := w.discoveryCandidates(opts.Standard)
	if err != nil {
		return nil, err
	}

	summary := &DiscoverySummary{Active: w.Standard()}
	for _, hd := range candidates {
		log.Infof("Scanning %v addresses (gap limit %d)",
			hd.standard(), gapLimit)

		result, scanned, err := w.scanMaterial(ctx, hd, gapLimit)
		if err != nil {
			return nil, err
		}
		summary.Results = append(summary.Results, *result)

		if result.UsedAddresses() == 0 {
			// An empty scan of the active convention still lands in the
			// cache.  Alt-convention probes stay uncached so every
			// cached address remains derivable from the active
			// material.
			if hd.standard() == summary.Active {
				w.installScan(hd, result, scanned)
			}
			continue
		}

		log.Infof("Found %d used %v addresses with balance %v",
			result.UsedAddresses(), hd.standard(), result.Balance)

		// An all-standards scan reports every convention without
		// switching the wallet away from its active material.
		if opts.Standard == StandardAll {
			if hd.standard() == summary.Active {
				w.installScan(hd, result, scanned)
			}
			continue
		}

		w.installScan(hd, result, scanned)
		summary.Active = hd.standard()
		break
	}
	return summary, nil
}

// discoveryCandidates resolves the conventions a scan should probe,
// active material first.
func (w *Wallet) discoveryCandidates(standard Standard) ([]hdMaterial, error) {
	w.mtx.Lock()
	defer w.mtx.Unlock()

	active, ok := w.material.(hdMaterial)
	if !ok {
		return nil, ErrNotHD
	}

	var candidates []hdMaterial
	candidates = append(candidates, active)
	if alt, ok := w.altMaterial.(hdMaterial); ok {
		candidates = append(candidates, alt)
	}

	switch standard {
	case StandardAuto, StandardAll:
		return candidates, nil
	default:
		for _, hd := range candidates {
			if hd.standard() == standard {
				return []hdMaterial{hd}, nil
			}
		}
		return nil, fmt.Errorf("wallet key material cannot derive "+
			"%v addresses", standard)
	}
}

// scanMaterial probes both branches of one convention.  The branches run
// concurrently; each branch is strictly sequential because the gap rule
// is defined over consecutive indices.
func (w *Wallet) scanMaterial(ctx context.Context, hd hdMaterial,
	gapLimit uint32) (*StandardResult, []scannedAddr, error) {

	result := &StandardResult{Standard: hd.standard()}
	scans := make([][]scannedAddr, 2)

	g, gctx := errgroup.WithContext(ctx)
	for _, branch := range []keychain.Branch{
		keychain.ExternalBranch, keychain.InternalBranch,
	} {
		branch := branch
		g.Go(func() error {
			branchResult := &result.External
			if branch == keychain.InternalBranch {
				branchResult = &result.Internal
			}
			scanned, err := w.scanBranch(gctx, hd, branch,
				gapLimit, branchResult)
			if err != nil {
				return err
			}
			scans[branch] = scanned
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var all []scannedAddr
	for _, scanned := range scans {
		for _, sa := range scanned {
			if sa.entry.used {
				result.Balance += sa.balance
			}
			all = append(all, sa)
		}
	}
	return result, all, nil
}

// scanBranch walks one branch in index order, probing each derived
// address against the provider, until gapLimit consecutive unused
// addresses or the hard index cap.
func (w *Wallet) scanBranch(ctx context.Context, hd hdMaterial,
	branch keychain.Branch, gapLimit uint32,
	result *BranchResult) ([]scannedAddr, error) {

	node, err := hd.branchNode(branch)
	if err != nil {
		return nil, err
	}

	var (
		scanned []scannedAddr
		misses  uint32
	)
	for index := uint32(0); index < maxScanIndex; index++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		child, usedIndex, err := node.ChildSkip(index)
		if err != nil {
			return nil, err
		}
		index = usedIndex

		var addr *btcutil.AddressPubKeyHash
		if hd.compressedAddrs() {
			addr, err = child.AddressCompressed()
		} else {
			addr, err = child.Address()
		}
		if err != nil {
			return nil, err
		}
		address := addr.EncodeAddress()

		info, err := w.cfg.Provider.AddressInfo(ctx, address)
		if err != nil {
			return nil, fmt.Errorf("probe %s: %w", address, err)
		}

		result.Scanned++
		sa := scannedAddr{
			entry: bookEntry{
				address: address,
				branch:  branch,
				index:   index,
				used:    info.Used(),
			},
			balance: info.Balance,
		}
		scanned = append(scanned, sa)

		if info.Used() {
			result.Used++
			result.LastUsedIndex = index
			misses = 0
			continue
		}
		misses++
		if misses >= gapLimit {
			break
		}
	}
	return scanned, nil
}

// installScan merges a successful scan into the wallet: the scanning
// material becomes active, every probed address enters the cache, and
// the branch counters move past the last used index.
func (w *Wallet) installScan(hd hdMaterial, result *StandardResult,
	scanned []scannedAddr) {

	w.mtx.Lock()
	defer w.mtx.Unlock()

	if w.material != hd {
		w.material = hd
		w.altMaterial = nil
		w.externalIndex = 0
		w.internalIndex = 0
		w.book = newAddrBook()
	}

	for i := range scanned {
		entry := scanned[i].entry
		entry.balance = scanned[i].balance
		w.book.add(&entry)
	}

	if result.External.Used > 0 &&
		w.externalIndex <= result.External.LastUsedIndex {

		w.externalIndex = result.External.LastUsedIndex + 1
	}
	if result.Internal.Used > 0 &&
		w.internalIndex <= result.Internal.LastUsedIndex {

		w.internalIndex = result.Internal.LastUsedIndex + 1
	}
}
