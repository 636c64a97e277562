// Copyright (c) 2024 The redgold developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package party

import (
	"github.com/redgold-io/redgold-core/schema"
)

// DustLimit is the smallest volume worth quoting on an order curve.
const DustLimit = 2500

const (
	defaultDivisions       = 40
	defaultScale           = 20.0
	defaultReserveFraction = 0.1

	// defaultEnforcedBaseMinUsd floors the implied USD price of RDG
	// derived from reserve ratios.
	defaultEnforcedBaseMinUsd = 100.0

	// defaultBidScaleFactor places the bid above the ask in RDG-per-
	// pair terms, the party's spread.
	defaultBidScaleFactor = 1.1
)

// CentralPricePair is the party's quoted market for one RDG/pair
// market, derived from reserve balances and an external USD oracle
// price for the pair currency.
type CentralPricePair struct {
	// MinAsk is denominated in RDG per pair unit.
	MinAsk float64
	// MinAskEstimated is the same ask denominated in USD per RDG.
	MinAskEstimated float64
	// MinBid is denominated in RDG per pair unit.
	MinBid float64
	// MinBidEstimated is the same bid denominated in USD per RDG.
	MinBidEstimated float64
	// Time is the oracle-resolved event time this quote derives from.
	Time int64

	BaseCurrency        schema.Currency
	PairQuoteCurrency   schema.Currency
	PricingEstimatePair schema.Currency

	// ReserveRatioPair is the raw reserve ratio in RDG per pair unit.
	ReserveRatioPair float64

	BaseVolume             schema.Amount
	PairQuoteVolume        schema.Amount
	PairQuotePriceEstimate float64
}

// Equal compares quotes by value, used to decide whether a price
// history entry is warranted.
func (c CentralPricePair) Equal(o CentralPricePair) bool {
	return c.MinAsk == o.MinAsk &&
		c.MinAskEstimated == o.MinAskEstimated &&
		c.MinBid == o.MinBid &&
		c.MinBidEstimated == o.MinBidEstimated &&
		c.ReserveRatioPair == o.ReserveRatioPair &&
		c.PairQuotePriceEstimate == o.PairQuotePriceEstimate &&
		c.PairQuoteCurrency == o.PairQuoteCurrency
}

// Bids generates the bid curve: pair-currency volume offered for RDG,
// spread downward from the minimum bid, holding back the reserve
// fraction.
func (c *CentralPricePair) Bids() []PriceVolume {
	vol := int64(float64(c.PairQuoteVolume.I64Or()) * (1.0 - defaultReserveFraction))
	return GeneratePriceVolumes(
		vol,
		c.MinBid,
		defaultDivisions,
		c.MinBid*0.9,
		defaultScale/2.0,
	)
}

// BidsUsd reprices the bid curve in USD per RDG.
func (c *CentralPricePair) BidsUsd() []PriceVolume {
	bids := c.Bids()
	out := make([]PriceVolume, len(bids))
	for i, pv := range bids {
		out[i] = PriceVolume{
			Price:  c.PairQuotePriceEstimate / pv.Price,
			Volume: pv.Volume,
		}
	}
	return out
}

// Asks generates the ask curve: RDG volume offered for the pair
// currency, spread from the minimum ask, holding back the reserve
// fraction.
func (c *CentralPricePair) Asks() []PriceVolume {
	vol := int64(float64(c.BaseVolume.I64Or()) * (1.0 - defaultReserveFraction))
	return GeneratePriceVolumes(
		vol,
		c.MinAsk,
		defaultDivisions,
		-1.0*c.MinAsk,
		c.MinAsk*3.0,
	)
}

// AsksUsd reprices the ask curve in USD per RDG.
func (c *CentralPricePair) AsksUsd() []PriceVolume {
	asks := c.Asks()
	out := make([]PriceVolume, len(asks))
	for i, pv := range asks {
		out[i] = PriceVolume{
			Price:  c.PairQuotePriceEstimate / pv.Price,
			Volume: pv.Volume,
		}
	}
	return out
}

// flatRdgUsdEstimate is the internal USD rate used to denominate RDG
// order sides during fulfillment. A placeholder rather than a market
// rate.
const flatRdgUsdEstimate = 100.0

// FulfillTakerOrder prices the taker's order and returns the resulting
// fulfillment, or nil when the order is quiescently rejected: the
// fulfillment would meet or exceed the counter-side reserve, fall
// below the fulfillment chain's expected fee, or round to nothing.
// Rejection is not an error; the party simply keeps the deposit.
func (c *CentralPricePair) FulfillTakerOrder(
	amount schema.Amount,
	orderAmount int64,
	isAsk bool,
	eventTime int64,
	txID *schema.ExternalTransactionID,
	destination schema.Address,
	primaryEvent AddressEvent,
	network schema.Network,
) *OrderFulfillment {
	fromRdg := amount.Currency == schema.Redgold

	// USD-denominate the order: RDG sides at the flat internal rate,
	// pair sides at the oracle quote less a 2% haircut.
	var fulfilledUsd float64
	if fromRdg {
		fulfilledUsd = amount.ToFractional() * flatRdgUsdEstimate
	} else {
		fulfilledUsd = amount.ToFractional() * c.PairQuotePriceEstimate * 0.98
	}

	// Convert back into the currency being paid out.
	fulfilledCur := schema.Redgold
	var fulfilledFrac float64
	if fromRdg {
		fulfilledCur = destination.Currency
		fulfilledFrac = fulfilledUsd / c.PairQuotePriceEstimate
	} else {
		fulfilledFrac = fulfilledUsd / flatRdgUsdEstimate
	}

	f, err := schema.FromFractionalCur(fulfilledFrac, fulfilledCur)
	if err != nil {
		return nil
	}

	// The fulfillment side can never pay out the whole reserve.
	vol := c.BaseVolume
	if fromRdg {
		vol = c.PairQuoteVolume
	}
	if cmp, err := f.Cmp(vol); err != nil || cmp >= 0 {
		return nil
	}

	fee, ok := ExpectedFeeAmount(fulfilledCur, network)
	if !ok {
		return nil
	}
	if cmp, err := f.Cmp(fee); err != nil || cmp < 0 {
		return nil
	}
	if f.ToFractional() <= 0 {
		return nil
	}

	return &OrderFulfillment{
		OrderAmount:                         orderAmount,
		FulfilledAmount:                     int64(f.ToFractional() * 1e8),
		IsAskFulfillmentFromExternalDeposit: isAsk,
		EventTime:                           eventTime,
		TxIDRef:                             txID,
		Destination:                         destination,
		PrimaryEvent:                        primaryEvent,
		OrderAmountTyped:                    amount,
		FulfilledAmountTyped:                f,
	}
}

// CalculateCentralPrices derives a quote per non-RDG reserve currency
// from external USD oracle prices and the current reserve volumes.
// The implied USD price of RDG is floored at enforcedBaseMinUsd; zero
// arguments take the defaults. Markets without an RDG reserve, or
// without an oracle price, yield no quote.
func CalculateCentralPrices(
	externalPricesQuotePair map[schema.Currency]float64,
	reserveVolumes map[schema.Currency]schema.Amount,
	time int64,
	enforcedBaseMinUsd float64,
	bidScaleFactor float64,
) map[schema.Currency]CentralPricePair {
	if enforcedBaseMinUsd == 0 {
		enforcedBaseMinUsd = defaultEnforcedBaseMinUsd
	}
	if bidScaleFactor == 0 {
		bidScaleFactor = defaultBidScaleFactor
	}

	ret := make(map[schema.Currency]CentralPricePair)
	coreVol, ok := reserveVolumes[schema.Redgold]
	if !ok {
		return ret
	}

	for currency, vol := range reserveVolumes {
		if currency == schema.Redgold {
			continue
		}
		quotePairUsdPrice, ok := externalPricesQuotePair[currency]
		if !ok {
			continue
		}

		// Denominated in RDG per pair unit, e.g. 600 RDG/BTC when the
		// reserves imply $100 USD/RDG against a $60k BTC.
		reserveRatio := coreVol.ToFractional() / vol.ToFractional()

		// (USD / pair) / (RDG / pair) = USD / RDG
		ratioUsdRdgPrice := quotePairUsdPrice / reserveRatio

		askAdjustedUsd := ratioUsdRdgPrice
		if askAdjustedUsd < enforcedBaseMinUsd {
			askAdjustedUsd = enforcedBaseMinUsd
		}

		// (RDG / USD) * (USD / pair) = RDG / pair
		askAdjustedRdgPair := (1.0 / askAdjustedUsd) * quotePairUsdPrice

		bidAdjusted := bidScaleFactor * askAdjustedRdgPair
		bidAdjustedUsd := quotePairUsdPrice / bidAdjusted

		ret[currency] = CentralPricePair{
			MinAsk:                 askAdjustedRdgPair,
			MinAskEstimated:        askAdjustedUsd,
			MinBid:                 bidAdjusted,
			MinBidEstimated:        bidAdjustedUsd,
			Time:                   time,
			BaseCurrency:           schema.Redgold,
			PairQuoteCurrency:      currency,
			PricingEstimatePair:    schema.Usd,
			ReserveRatioPair:       reserveRatio,
			BaseVolume:             coreVol,
			PairQuoteVolume:        vol,
			PairQuotePriceEstimate: quotePairUsdPrice,
		}
	}
	return ret
}

// RecalculateNoQuoteChange rebuilds quotes against fresh reserve
// volumes while holding the oracle prices fixed.
func RecalculateNoQuoteChange(
	existing map[schema.Currency]CentralPricePair,
	reserveVolumes map[schema.Currency]schema.Amount,
	time int64,
) map[schema.Currency]CentralPricePair {
	prices := make(map[schema.Currency]float64, len(existing))
	for k, v := range existing {
		prices[k] = v.PairQuotePriceEstimate
	}
	return CalculateCentralPrices(prices, reserveVolumes, time, 0, 0)
}
