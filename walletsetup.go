// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/btcsuite/hdwallet/chain"
	"github.com/btcsuite/hdwallet/internal/prompt"
	"github.com/btcsuite/hdwallet/p2p"
	"github.com/btcsuite/hdwallet/wallet"
)

// newWalletConfig assembles the wallet configuration from the active
// network and command line options.  The chain provider is attached when
// the network has one; the broadcaster only when a peer was configured.
func newWalletConfig(cfg *config) (*wallet.Config, error) {
	walletCfg := &wallet.Config{
		ChainParams: activeNet,
		Account:     cfg.Account,
		GapLimit:    cfg.GapLimit,
		SearchLimit: cfg.SearchLimit,
	}

	if activeNet.ProviderPath != "" {
		provider, err := chain.NewBlockchairClient(activeNet)
		if err != nil {
			return nil, err
		}
		walletCfg.Provider = provider
	}

	if cfg.Peer != "" {
		broadcaster, err := p2p.NewBroadcaster(&p2p.Config{
			Params:    activeNet,
			PeerAddr:  cfg.Peer,
			ProxyAddr: cfg.Proxy,
		})
		if err != nil {
			return nil, err
		}
		walletCfg.TxBroadcaster = broadcaster
	}

	return walletCfg, nil
}

// openWallet builds the wallet from interactively entered or file-read
// key material.  Secrets are never accepted as command line arguments.
func openWallet(cfg *config) (*wallet.Wallet, error) {
	walletCfg, err := newWalletConfig(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.WIF {
		wif, err := prompt.WIF()
		if err != nil {
			return nil, err
		}
		return wallet.FromWIF(wif, walletCfg)
	}

	mnemonic, err := readMnemonic(cfg)
	if err != nil {
		return nil, err
	}

	var passphrase string
	if cfg.Passphrase {
		passphrase, err = prompt.Passphrase(false)
		if err != nil {
			return nil, err
		}
	}

	if cfg.Electrum {
		return wallet.FromElectrumSeed(mnemonic, passphrase, walletCfg)
	}
	return wallet.FromMnemonic(mnemonic, passphrase, walletCfg)
}

// readMnemonic returns the seed mnemonic from the configured file, or
// prompts for it.
func readMnemonic(cfg *config) (string, error) {
	if cfg.MnemonicFile == "" {
		return prompt.Mnemonic(bufio.NewReader(os.Stdin))
	}

	contents, err := os.ReadFile(cleanAndExpandPath(cfg.MnemonicFile))
	if err != nil {
		return "", fmt.Errorf("read mnemonic file: %w", err)
	}
	mnemonic, _, _ := strings.Cut(string(contents), "\n")
	mnemonic = strings.TrimSpace(mnemonic)
	if mnemonic == "" {
		return "", fmt.Errorf("mnemonic file %s is empty",
			cfg.MnemonicFile)
	}
	return mnemonic, nil
}
