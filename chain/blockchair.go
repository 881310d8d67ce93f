// Copyright (c) 2017-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"

	"github.com/btcsuite/hdwallet/netparams"
)

const (
	// defaultBaseURL is the Blockchair API root.
	defaultBaseURL = "https://api.blockchair.com"

	// requestAttempts is the total number of tries for a single request.
	// Only transport failures and server errors are retried; a reply
	// that parses incorrectly fails immediately.
	requestAttempts = 3

	// retryDelay is the fixed pause between attempts.
	retryDelay = 2 * time.Second

	// requestTimeout bounds a single HTTP round trip.
	requestTimeout = 30 * time.Second
)

// BlockchairClient implements Provider against the Blockchair REST API.
type BlockchairClient struct {
	baseURL    string
	networkURL string
	client     *http.Client

	// retryDelay is overridable so tests do not sleep.
	retryDelay time.Duration
}

var _ Provider = (*BlockchairClient)(nil)

// NewBlockchairClient creates a client for the given network.  The network
// must carry a provider path; simnet and other local-only networks do not.
func NewBlockchairClient(params *netparams.Params) (*BlockchairClient, error) {
	if params.ProviderPath == "" {
		return nil, fmt.Errorf("network %s has no data provider",
			params.Name)
	}
	return &BlockchairClient{
		baseURL:    defaultBaseURL,
		networkURL: params.ProviderPath,
		client:     &http.Client{Timeout: requestTimeout},
		retryDelay: retryDelay,
	}, nil
}

// NewBlockchairClientURL creates a client against an explicit API root,
// used for tests and self-hosted Blockchair instances.
func NewBlockchairClientURL(baseURL string,
	params *netparams.Params) (*BlockchairClient, error) {

	c, err := NewBlockchairClient(params)
	if err != nil {
		return nil, err
	}
	c.baseURL = baseURL
	return c, nil
}

// addressDashboard mirrors the subset of the Blockchair address dashboard
// reply the wallet consumes.  Required fields are pointers so a missing
// field is distinguishable from a zero value.
type addressDashboard struct {
	Data map[string]struct {
		Address *struct {
			TxCount *int64 `json:"transaction_count"`
			Balance *int64 `json:"balance"`
		} `json:"address"`
		UTXOs []struct {
			BlockID *int64  `json:"block_id"`
			TxHash  *string `json:"transaction_hash"`
			Index   *uint32 `json:"index"`
			Value   *int64  `json:"value"`
		} `json:"utxo"`
	} `json:"data"`
	Context struct {
		State *int64 `json:"state"`
	} `json:"context"`
}

// statsReply mirrors the subset of the Blockchair stats reply the wallet
// consumes.
type statsReply struct {
	Data struct {
		SuggestedFeePerByte *int64 `json:"suggested_transaction_fee_per_byte_sat"`
	} `json:"data"`
}

// AddressInfo returns the activity summary for an address.
func (c *BlockchairClient) AddressInfo(ctx context.Context,
	address string) (*AddressInfo, error) {

	dash, err := c.addressDashboard(ctx, address)
	if err != nil {
		return nil, err
	}
	entry, ok := dash.Data[address]
	if !ok || entry.Address == nil || entry.Address.TxCount == nil ||
		entry.Address.Balance == nil {

		return nil, fmt.Errorf("%w: address dashboard for %s is "+
			"missing fields", ErrBadResponse, address)
	}

	return &AddressInfo{
		Address: address,
		TxCount: *entry.Address.TxCount,
		Balance: btcutil.Amount(*entry.Address.Balance),
	}, nil
}

// UTXOs returns the unspent outputs held by an address.  Confirmation
// counts are computed against the chain height reported in the same reply.
func (c *BlockchairClient) UTXOs(ctx context.Context,
	address string) ([]*UTXO, error) {

	dash, err := c.addressDashboard(ctx, address)
	if err != nil {
		return nil, err
	}
	entry, ok := dash.Data[address]
	if !ok || dash.Context.State == nil {
		return nil, fmt.Errorf("%w: address dashboard for %s is "+
			"missing fields", ErrBadResponse, address)
	}
	height := *dash.Context.State

	utxos := make([]*UTXO, 0, len(entry.UTXOs))
	for _, u := range entry.UTXOs {
		if u.TxHash == nil || u.Index == nil || u.Value == nil ||
			u.BlockID == nil {

			return nil, fmt.Errorf("%w: utxo entry for %s is "+
				"missing fields", ErrBadResponse, address)
		}
		hash, err := chainhash.NewHashFromStr(*u.TxHash)
		if err != nil {
			return nil, fmt.Errorf("%w: utxo hash %q: %v",
				ErrBadResponse, *u.TxHash, err)
		}

		// Unconfirmed outputs report a non-positive block id.
		var confs int64
		if *u.BlockID > 0 {
			confs = height - *u.BlockID + 1
		}

		utxos = append(utxos, &UTXO{
			OutPoint:      *wire.NewOutPoint(hash, *u.Index),
			Value:         btcutil.Amount(*u.Value),
			Confirmations: confs,
			Address:       address,
		})
	}
	return utxos, nil
}

// FeeTiers returns fee rates derived from the provider's suggested rate:
// half of it (at least 1 sat/byte), the rate itself, and the rate plus
// half again.
func (c *BlockchairClient) FeeTiers(ctx context.Context) (*FeeTiers, error) {
	var reply statsReply
	if err := c.get(ctx, c.endpoint("stats"), &reply); err != nil {
		return nil, err
	}
	if reply.Data.SuggestedFeePerByte == nil {
		return nil, fmt.Errorf("%w: stats reply is missing the "+
			"suggested fee", ErrBadResponse)
	}

	suggested := btcutil.Amount(*reply.Data.SuggestedFeePerByte)
	low := suggested / 2
	if low < 1 {
		low = 1
	}
	return &FeeTiers{
		Low:    low,
		Medium: suggested,
		High:   suggested + suggested/2,
	}, nil
}

func (c *BlockchairClient) addressDashboard(ctx context.Context,
	address string) (*addressDashboard, error) {

	endpoint := c.endpoint("dashboards/address/" + url.PathEscape(address))
	var dash addressDashboard
	if err := c.get(ctx, endpoint, &dash); err != nil {
		return nil, err
	}
	return &dash, nil
}

func (c *BlockchairClient) endpoint(path string) string {
	return fmt.Sprintf("%s/%s/%s", c.baseURL, c.networkURL, path)
}

// get fetches an endpoint and decodes the JSON reply into out.  Transport
// failures and server errors are retried a fixed number of times with a
// fixed delay; anything else fails immediately.
func (c *BlockchairClient) get(ctx context.Context, endpoint string,
	out interface{}) error {

	var lastErr error
	for attempt := 1; attempt <= requestAttempts; attempt++ {
		if attempt > 1 {
			log.Debugf("Retrying %s (attempt %d of %d): %v",
				endpoint, attempt, requestAttempts, lastErr)
			select {
			case <-time.After(c.retryDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		retryable, err := c.getOnce(ctx, endpoint, out)
		if err == nil {
			return nil
		}
		if !retryable {
			return err
		}
		lastErr = err
	}
	return fmt.Errorf("%w: %v", ErrProvider, lastErr)
}

// getOnce performs a single request.  The boolean result reports whether
// the failure is worth retrying.
func (c *BlockchairClient) getOnce(ctx context.Context, endpoint string,
	out interface{}) (bool, error) {

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint,
		nil)
	if err != nil {
		return false, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return true, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		io.Copy(io.Discard, resp.Body)
		return true, fmt.Errorf("server status %s", resp.Status)
	}
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return false, fmt.Errorf("%w: unexpected status %s",
			ErrBadResponse, resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	return false, nil
}
