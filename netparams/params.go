// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package netparams

import "github.com/btcsuite/btcd/chaincfg"

// Params is used to group parameters for various networks such as the main
// network and test networks.  In addition to the consensus parameters it
// carries the default peer port used for transaction broadcast and the
// network path component of the Blockchair API.
type Params struct {
	*chaincfg.Params
	PeerPort     string
	ProviderPath string
}

// MainNetParams contains parameters specific to running the wallet engine
// on the main network (wire.MainNet).
var MainNetParams = Params{
	Params:       &chaincfg.MainNetParams,
	PeerPort:     "8333",
	ProviderPath: "bitcoin",
}

// TestNet3Params contains parameters specific to running the wallet engine
// on the test network (version 3) (wire.TestNet3).
var TestNet3Params = Params{
	Params:       &chaincfg.TestNet3Params,
	PeerPort:     "18333",
	ProviderPath: "bitcoin/testnet",
}

// SimNetParams contains parameters specific to the simulation test network
// (wire.SimNet).  No public blockchain indexer exists for simnet, so the
// provider path is left empty and only offline operations are available.
var SimNetParams = Params{
	Params:       &chaincfg.SimNetParams,
	PeerPort:     "18555",
	ProviderPath: "",
}
