// Copyright (c) 2024 The redgold developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package party

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redgold-io/redgold-core/schema"
)

// reserveFixture is one hundred RDG against half a millibitcoin, a
// reserve ratio of 200k RDG per BTC.
func reserveFixture() map[schema.Currency]schema.Amount {
	return map[schema.Currency]schema.Amount{
		schema.Redgold: schema.FromRdg(100 * 1_0000_0000),
		schema.Bitcoin: schema.FromBtc(50_000),
	}
}

func TestCalculateCentralPrices(t *testing.T) {
	t.Parallel()

	prices := CalculateCentralPrices(
		map[schema.Currency]float64{schema.Bitcoin: 60_000.0},
		reserveFixture(),
		1000,
		0, 0,
	)
	require.Len(t, prices, 1)
	cp, ok := prices[schema.Bitcoin]
	require.True(t, ok)

	// 100 RDG / 0.0005 BTC.
	assert.InDelta(t, 200_000.0, cp.ReserveRatioPair, 1e-9)

	// The implied $0.30 per RDG is clamped to the $100 floor, putting
	// the ask at 600 RDG/BTC and the bid ten percent above it.
	assert.InDelta(t, 100.0, cp.MinAskEstimated, 1e-9)
	assert.InDelta(t, 600.0, cp.MinAsk, 1e-9)
	assert.InDelta(t, 660.0, cp.MinBid, 1e-9)
	assert.InDelta(t, 60_000.0/660.0, cp.MinBidEstimated, 1e-9)

	assert.Equal(t, schema.Redgold, cp.BaseCurrency)
	assert.Equal(t, schema.Bitcoin, cp.PairQuoteCurrency)
	assert.Equal(t, schema.Usd, cp.PricingEstimatePair)
	assert.Equal(t, int64(1000), cp.Time)
}

func TestCalculateCentralPricesRequiresReserves(t *testing.T) {
	t.Parallel()

	oracle := map[schema.Currency]float64{schema.Bitcoin: 60_000.0}

	// No RDG reserve, no market.
	prices := CalculateCentralPrices(oracle, map[schema.Currency]schema.Amount{
		schema.Bitcoin: schema.FromBtc(50_000),
	}, 0, 0, 0)
	assert.Empty(t, prices)

	// No oracle price for the pair, no quote for it.
	prices = CalculateCentralPrices(nil, reserveFixture(), 0, 0, 0)
	assert.Empty(t, prices)
}

func TestRecalculateNoQuoteChangeKeepsOraclePrices(t *testing.T) {
	t.Parallel()

	orig := CalculateCentralPrices(
		map[schema.Currency]float64{schema.Bitcoin: 60_000.0},
		reserveFixture(), 1000, 0, 0,
	)
	next := RecalculateNoQuoteChange(orig, reserveFixture(), 2000)
	require.Len(t, next, 1)
	assert.InDelta(t, orig[schema.Bitcoin].MinAsk, next[schema.Bitcoin].MinAsk, 1e-12)
	assert.Equal(t, 60_000.0, next[schema.Bitcoin].PairQuotePriceEstimate)
	assert.Equal(t, int64(2000), next[schema.Bitcoin].Time)
}

func TestCurvesHoldBackReserveFraction(t *testing.T) {
	t.Parallel()

	prices := CalculateCentralPrices(
		map[schema.Currency]float64{schema.Bitcoin: 60_000.0},
		reserveFixture(), 0, 0, 0,
	)
	cp := prices[schema.Bitcoin]

	var askTotal int64
	for _, pv := range cp.Asks() {
		askTotal += pv.Volume
	}
	// Ninety percent of ten billion RDG sub-units.
	assert.Equal(t, int64(9_000_000_000), askTotal)

	var bidTotal int64
	for _, pv := range cp.Bids() {
		bidTotal += pv.Volume
	}
	assert.LessOrEqual(t, bidTotal, int64(45_000))
	assert.Greater(t, bidTotal, int64(0))
}

func TestFulfillTakerOrderAsk(t *testing.T) {
	t.Parallel()

	prices := CalculateCentralPrices(
		map[schema.Currency]float64{schema.Bitcoin: 60_000.0},
		reserveFixture(), 0, 0, 0,
	)
	cp := prices[schema.Bitcoin]

	dest := schema.Address{Value: "user-rdg", Currency: schema.Redgold}
	amt := schema.FromBtc(10_000)
	of := cp.FulfillTakerOrder(amt, amt.I64Or(), true, 500, &schema.ExternalTransactionID{
		Identifier: "order-1", Currency: schema.Bitcoin,
	}, dest, nil, schema.NetworkDev)
	require.NotNil(t, of)

	// 0.0001 BTC at the $60k quote less the 2% haircut is $5.88,
	// paying out 0.0588 RDG at the flat $100 internal rate.
	assert.Equal(t, int64(5_880_000), of.FulfilledAmount)
	assert.Equal(t, int64(10_000), of.OrderAmount)
	assert.True(t, of.IsAskFulfillmentFromExternalDeposit)
	assert.Equal(t, schema.Redgold, of.FulfilledCurrencyAmount().Currency)
	assert.Equal(t, int64(500), of.EventTime)
}

func TestFulfillTakerOrderAskAboveFloor(t *testing.T) {
	t.Parallel()

	// 100 RDG against 0.5 BTC implies $300 per RDG, above the $100
	// floor; the flat payout rate is unchanged by the implied price.
	prices := CalculateCentralPrices(
		map[schema.Currency]float64{schema.Bitcoin: 60_000.0},
		map[schema.Currency]schema.Amount{
			schema.Redgold: schema.FromRdg(100 * 1_0000_0000),
			schema.Bitcoin: schema.FromBtc(50_000_000),
		}, 0, 0, 0,
	)
	cp := prices[schema.Bitcoin]

	dest := schema.Address{Value: "user-rdg", Currency: schema.Redgold}
	amt := schema.FromBtc(1_000_000)
	of := cp.FulfillTakerOrder(amt, amt.I64Or(), true, 0, nil, dest, nil, schema.NetworkDev)
	require.NotNil(t, of)

	// 0.01 BTC * 60000 * 0.98 = $588, paying out 5.88 RDG.
	assert.Equal(t, int64(588_000_000), of.FulfilledAmount)
}

func TestFulfillTakerOrderBid(t *testing.T) {
	t.Parallel()

	prices := CalculateCentralPrices(
		map[schema.Currency]float64{schema.Bitcoin: 60_000.0},
		reserveFixture(), 0, 0, 0,
	)
	cp := prices[schema.Bitcoin]

	// 0.12 RDG at the flat $100 rate is $12, paying out 20k sats at
	// the $60k quote.
	dest := schema.Address{Value: "bc1user", Currency: schema.Bitcoin}
	amt := schema.FromRdg(12_000_000)
	of := cp.FulfillTakerOrder(amt, amt.I64Or(), false, 700, nil, dest, nil, schema.NetworkDev)
	require.NotNil(t, of)

	assert.Equal(t, int64(20_000), of.FulfilledAmount)
	assert.False(t, of.IsAskFulfillmentFromExternalDeposit)
	assert.Equal(t, schema.Bitcoin, of.FulfilledCurrencyAmount().Currency)
	assert.Equal(t, int64(700), of.EventTime)
}

func TestFulfillTakerOrderRejectsBelowFee(t *testing.T) {
	t.Parallel()

	prices := CalculateCentralPrices(
		map[schema.Currency]float64{schema.Bitcoin: 60_000.0},
		reserveFixture(), 0, 0, 0,
	)
	cp := prices[schema.Bitcoin]

	// One satoshi pays out 588 RDG sub-units, below the 10k sub-unit
	// RDG settlement fee: quiescent rejection, not an error.
	dest := schema.Address{Value: "user-rdg", Currency: schema.Redgold}
	amt := schema.FromBtc(1)
	of := cp.FulfillTakerOrder(amt, amt.I64Or(), true, 0, nil, dest, nil, schema.NetworkDev)
	assert.Nil(t, of)
}

func TestFulfillTakerOrderRejectsOverReserve(t *testing.T) {
	t.Parallel()

	prices := CalculateCentralPrices(
		map[schema.Currency]float64{schema.Bitcoin: 60_000.0},
		reserveFixture(), 0, 0, 0,
	)
	cp := prices[schema.Bitcoin]

	// 0.2 BTC would pay out 117.6 RDG against a 100 RDG reserve.
	rdgDest := schema.Address{Value: "user-rdg", Currency: schema.Redgold}
	amt := schema.FromBtc(20_000_000)
	of := cp.FulfillTakerOrder(amt, amt.I64Or(), true, 0, nil, rdgDest, nil, schema.NetworkDev)
	assert.Nil(t, of)

	// 0.3 RDG would pay out exactly the 50k sat reserve; meeting the
	// reserve rejects too.
	btcDest := schema.Address{Value: "bc1user", Currency: schema.Bitcoin}
	amt = schema.FromRdg(30_000_000)
	of = cp.FulfillTakerOrder(amt, amt.I64Or(), false, 0, nil, btcDest, nil, schema.NetworkDev)
	assert.Nil(t, of)
}

func TestExpectedFeeAmount(t *testing.T) {
	t.Parallel()

	rdg, ok := ExpectedFeeAmount(schema.Redgold, schema.NetworkMain)
	require.True(t, ok)
	assert.Equal(t, int64(10_000), rdg.Units)

	btcMain, ok := ExpectedFeeAmount(schema.Bitcoin, schema.NetworkMain)
	require.True(t, ok)
	assert.Equal(t, int64(850), btcMain.Units)

	btcDev, ok := ExpectedFeeAmount(schema.Bitcoin, schema.NetworkDev)
	require.True(t, ok)
	assert.Equal(t, int64(2000), btcDev.Units)

	eth, ok := ExpectedFeeAmount(schema.Ethereum, schema.NetworkMain)
	require.True(t, ok)
	assert.False(t, eth.IsZero())

	_, ok = ExpectedFeeAmount(schema.Usd, schema.NetworkMain)
	assert.False(t, ok)
}
