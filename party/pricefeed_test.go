// Copyright (c) 2024 The redgold developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package party

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redgold-io/redgold-core/schema"
)

func TestParseSpotPrice(t *testing.T) {
	t.Parallel()

	body := []byte(`{"code":"0","data":[{"instId":"BTC-USDT","last":"60123.5"}]}`)
	price, err := ParseSpotPrice(body, okxSpotPath)
	require.NoError(t, err)
	assert.Equal(t, 60123.5, price)

	_, err = ParseSpotPrice([]byte(`{"data":[]}`), okxSpotPath)
	assert.Error(t, err)

	_, err = ParseSpotPrice([]byte(`{"data":[{"last":"0"}]}`), okxSpotPath)
	assert.Error(t, err)

	_, err = ParseSpotPrice([]byte(`{"data":[{"last":"-5"}]}`), okxSpotPath)
	assert.Error(t, err)
}

func TestPriceFeedQueryPrice(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "BTC-USDT", r.URL.Query().Get("instId"))
		w.Write([]byte(`{"code":"0","data":[{"last":"60000"}]}`))
	}))
	defer srv.Close()

	feed := NewPriceFeedURL(srv.URL + "/api/v5/market/ticker?instId=")
	price, err := feed.QueryPrice(context.Background(), 0, schema.Bitcoin)
	require.NoError(t, err)
	assert.Equal(t, 60_000.0, price)

	_, err = feed.QueryPrice(context.Background(), 0, schema.Usd)
	assert.Error(t, err)
}

func TestPriceFeedErrorStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	feed := NewPriceFeedURL(srv.URL + "/?instId=")
	_, err := feed.QueryPrice(context.Background(), 0, schema.Ethereum)
	assert.Error(t, err)
}
