// Copyright (c) 2024 The redgold developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package party

import (
	"github.com/redgold-io/redgold-core/schema"
)

// PortfolioRequestEventInstance records one portfolio program request
// with the valuation context it arrived under.
type PortfolioRequestEventInstance struct {
	Event            AddressEvent
	Tx               *schema.Transaction
	Time             int64
	PortfolioRequest schema.PortfolioRequest

	// FixedCurrencyAllocations is the normalized target allocation.
	FixedCurrencyAllocations map[schema.Currency]float64

	// ValueAtTimeUsdEstimated is the USD value of the RDG paid in,
	// priced at the best bid when the request arrived.
	ValueAtTimeUsdEstimated float64

	PortfolioRdgAmount schema.Amount
}

// portfolioStakeUtxo pairs a confirmed portfolio-flagged external
// stake with the request UTXO that opened it.
type portfolioStakeUtxo struct {
	UtxoID schema.UtxoId
	Event  ConfirmedExternalStakeEvent
}

// PortfolioRequestEvents accumulates portfolio program state: the
// requests themselves, the external reserves staked toward them, and
// the running imbalance between target and actual holdings.
type PortfolioRequestEvents struct {
	Events []PortfolioRequestEventInstance

	// ExternalStakeBalanceDeltas is the net external value staked into
	// portfolio programs per currency.
	ExternalStakeBalanceDeltas map[schema.Currency]schema.Amount

	StakeUtxos []portfolioStakeUtxo

	// CurrentPortfolioImbalance is target minus actual per currency,
	// positive when the program is under-collateralized. Updated by
	// CalculateCurrentImbalance.
	CurrentPortfolioImbalance map[schema.Currency]schema.Amount
}

// NewPortfolioRequestEvents returns empty portfolio state.
func NewPortfolioRequestEvents() PortfolioRequestEvents {
	return PortfolioRequestEvents{
		ExternalStakeBalanceDeltas: make(map[schema.Currency]schema.Amount),
		CurrentPortfolioImbalance:  make(map[schema.Currency]schema.Amount),
	}
}

// handlePortfolioRequest records an incoming portfolio program
// request, valuing its RDG payment at the best current bid.
func (p *PartyEvents) handlePortfolioRequest(event AddressEvent, time int64, tx *schema.Transaction) {
	req := tx.PortfolioRequestPayload()
	if req == nil || req.PortfolioInfo == nil {
		return
	}

	var totalRdg int64
	for _, a := range p.AllPartyAddresses() {
		totalRdg += tx.OutputRdgAmountOf(a)
	}
	amt := schema.FromRdg(totalRdg)

	var usdRdgEstimate float64
	for _, cp := range p.CentralPrices {
		if cp.MinBidEstimated > usdRdgEstimate {
			usdRdgEstimate = cp.MinBidEstimated
		}
	}

	p.PortfolioRequestEvents.Events = append(p.PortfolioRequestEvents.Events, PortfolioRequestEventInstance{
		Event:                    event,
		Tx:                       tx,
		Time:                     time,
		PortfolioRequest:         *req,
		FixedCurrencyAllocations: req.PortfolioInfo.FixedCurrencyAllocations(),
		ValueAtTimeUsdEstimated:  amt.ToFractional() * usdRdgEstimate,
		PortfolioRdgAmount:       amt,
	})
}

// handleMaybePortfolioStakeEvent folds a confirmed external stake into
// portfolio reserves when the stake was flagged for a portfolio
// program.
func (p *PartyEvents) handleMaybePortfolioStakeEvent(ev ConfirmedExternalStakeEvent) {
	d := ev.PendingEvent.LiquidityDeposit
	if d == nil || d.PortfolioFulfillmentParams == nil {
		return
	}
	p.modifyMap(p.PortfolioRequestEvents.ExternalStakeBalanceDeltas, ev.PendingEvent.Amount)
	p.PortfolioRequestEvents.StakeUtxos = append(p.PortfolioRequestEvents.StakeUtxos, portfolioStakeUtxo{
		UtxoID: ev.PendingEvent.UtxoID,
		Event:  ev,
	})
}

// handleMaybePortfolioWithdrawalEvent reverses portfolio reserves when
// an outgoing external transaction pays a portfolio staker back.
func (p *PartyEvents) handleMaybePortfolioWithdrawalEvent(e ExternalEvent) {
	ett := e.Tx
	kept := p.PortfolioRequestEvents.StakeUtxos[:0]
	for _, su := range p.PortfolioRequestEvents.StakeUtxos {
		pe := su.Event.PendingEvent
		match := pe.ExternalCurrency == ett.Currency &&
			addressesEqualFold(pe.ExternalAddress.Value, ett.OtherAddress)
		if !match {
			kept = append(kept, su)
			continue
		}
		p.modifyMap(p.PortfolioRequestEvents.ExternalStakeBalanceDeltas, pe.Amount.MulInt64(-1))
	}
	p.PortfolioRequestEvents.StakeUtxos = kept
}

// CalculateCurrentImbalance recomputes target minus actual holdings
// per currency using the given USD prices, storing and returning the
// result. Currencies without a price are skipped.
func (p *PartyEvents) CalculateCurrentImbalance(pricesUsd map[schema.Currency]float64) map[schema.Currency]schema.Amount {
	targetsUsd := make(map[schema.Currency]float64)
	for _, inst := range p.PortfolioRequestEvents.Events {
		for cur, frac := range inst.FixedCurrencyAllocations {
			targetsUsd[cur] += inst.ValueAtTimeUsdEstimated * frac
		}
	}

	out := make(map[schema.Currency]schema.Amount)
	for cur, usd := range targetsUsd {
		price, ok := pricesUsd[cur]
		if !ok || price <= 0 {
			continue
		}
		target, err := schema.FromFractionalCur(usd/price, cur)
		if err != nil {
			continue
		}
		actual, ok := p.PortfolioRequestEvents.ExternalStakeBalanceDeltas[cur]
		if !ok {
			actual = schema.Zero(cur)
		}
		imbalance, err := target.Sub(actual)
		if err != nil {
			continue
		}
		out[cur] = imbalance
	}
	p.PortfolioRequestEvents.CurrentPortfolioImbalance = out
	return out
}
