// Copyright (c) 2024 The redgold developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package party

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"

	"github.com/redgold-io/redgold-core/schema"
)

// okxSpotPath extracts the last trade price from an OKX market ticker
// response, the shape {"code":"0","data":[{"last":"..."}]}.
const okxSpotPath = "data.0.last"

// okxInstruments maps supported currencies to OKX USDT spot
// instrument ids. USDT is treated as the USD estimate.
var okxInstruments = map[schema.Currency]string{
	schema.Bitcoin:  "BTC-USDT",
	schema.Ethereum: "ETH-USDT",
}

// ParseSpotPrice pulls a positive float price out of a JSON oracle
// response at the given gjson path.
func ParseSpotPrice(body []byte, path string) (float64, error) {
	r := gjson.GetBytes(body, path)
	if !r.Exists() {
		return 0, errors.Errorf("price path %s missing from oracle response", path)
	}
	p := r.Float()
	if p <= 0 {
		return 0, errors.Errorf("non-positive price %v at path %s", p, path)
	}
	return p, nil
}

// PriceFeed resolves USD spot prices from the OKX public market data
// API. It satisfies PriceOracle; historical queries resolve at the
// current spot since the public endpoint carries no history.
type PriceFeed struct {
	client  *http.Client
	baseURL string
}

// NewPriceFeed returns a feed against the public OKX endpoint.
func NewPriceFeed() *PriceFeed {
	return &PriceFeed{
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: "https://www.okx.com/api/v5/market/ticker?instId=",
	}
}

// NewPriceFeedURL returns a feed against a custom endpoint, used by
// tests and private mirrors. The instrument id is appended to the
// base URL.
func NewPriceFeedURL(baseURL string) *PriceFeed {
	return &PriceFeed{
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: baseURL,
	}
}

// QueryPrice fetches the USD spot price for the currency.
func (f *PriceFeed) QueryPrice(ctx context.Context, _ int64, cur schema.Currency) (float64, error) {
	inst, ok := okxInstruments[cur]
	if !ok {
		return 0, errors.Errorf("no price instrument for currency %s", cur)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+inst, nil)
	if err != nil {
		return 0, errors.Wrap(err, "build price request")
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return 0, errors.Wrapf(err, "query price for %s", inst)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, errors.Errorf("price query for %s returned status %d", inst, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, errors.Wrap(err, "read price response")
	}
	price, err := ParseSpotPrice(body, okxSpotPath)
	if err != nil {
		return 0, errors.Wrapf(err, "parse price for %s", inst)
	}
	return price, nil
}
