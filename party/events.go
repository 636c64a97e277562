// Copyright (c) 2024 The redgold developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package party

import (
	"sort"

	"github.com/redgold-io/redgold-core/schema"
)

// orderCutoffMillis delays order visibility so racing observers
// converge on the same fulfillment set.
const orderCutoffMillis = 30_000

// pendingOrder pairs an unfulfilled order with the event that opened
// it.
type pendingOrder struct {
	Order OrderFulfillment
	Event AddressEvent
}

// FulfillmentRecord is a completed order: the fulfillment, the event
// that opened it, and the event that settled it.
type FulfillmentRecord struct {
	Fulfillment OrderFulfillment
	Initiating  AddressEvent
	Settling    AddressEvent
}

// PriceHistoryEntry snapshots the quote set at a point in time.
// History grows only when a recalculation actually changes a quote.
type PriceHistoryEntry struct {
	Time   int64
	Prices map[schema.Currency]CentralPricePair
}

// fulfillParams carries one order attempt through the matching engine.
type fulfillParams struct {
	amount       schema.Amount
	isAsk        bool
	eventTime    int64
	txID         *schema.ExternalTransactionID
	destination  schema.Address
	isStake      bool
	event        AddressEvent
	stakeUtxoID  *schema.UtxoId
	primaryEvent AddressEvent
}

// PartyEvents folds the ordered stream of address events observed by a
// party into its full accounting state: reserve balances, pending
// order deltas, staking positions, quoted prices, and the set of
// orders awaiting settlement. The fold is deterministic, so every node
// replaying the same event stream reaches the same state.
type PartyEvents struct {
	Network        schema.Network
	PartyPublicKey *schema.PublicKey

	// PartyAddresses holds the party's receiving addresses per
	// currency. Events are judged incoming or outgoing against these.
	PartyAddresses map[schema.Currency][]schema.Address

	Events            []AddressEvent
	UnconfirmedEvents []AddressEvent

	// BalanceMap is the confirmed reserve balance per currency.
	// BalancePendingOrderDeltasMap accumulates the value promised to
	// open orders, and BalanceWithDeltasApplied is their sum, the
	// balance quoting should see.
	BalanceMap                   map[schema.Currency]schema.Amount
	BalancePendingOrderDeltasMap map[schema.Currency]schema.Amount
	BalanceWithDeltasApplied     map[schema.Currency]schema.Amount

	// UnfulfilledRdgOrders settle on the Redgold ledger; the rest
	// settle on an external chain.
	UnfulfilledRdgOrders           []pendingOrder
	UnfulfilledExternalWithdrawals []pendingOrder

	FulfillmentHistory []FulfillmentRecord

	// EventFulfillment is the fulfillment produced by the most recent
	// processed event, nil when it produced none.
	EventFulfillment *OrderFulfillment

	InternalStakingEvents     []InternalStakeEvent
	ExternalStakingEvents     []ConfirmedExternalStakeEvent
	PendingExternalStakingTxs []PendingExternalStakeEvent
	PendingStakeWithdrawals   []PendingWithdrawalStakeEvent
	RejectedStakeWithdrawals  []AddressEvent

	CentralPrices       map[schema.Currency]CentralPricePair
	CentralPriceHistory []PriceHistoryEntry

	// LocallyFulfilledOrders are orders this node has already begun
	// settling; they are suppressed from Orders until the settlement
	// confirms.
	LocallyFulfilledOrders []OrderFulfillment

	PortfolioRequestEvents PortfolioRequestEvents

	DefaultFeeAddrs []schema.Address
	Seeds           []*schema.PublicKey

	// priceInput is the latest oracle USD price seen per external
	// currency, fed by the events themselves.
	priceInput map[schema.Currency]float64
}

// NewPartyEvents returns an empty accounting state for the given party
// key and addresses.
func NewPartyEvents(
	network schema.Network,
	partyPublicKey *schema.PublicKey,
	partyAddresses map[schema.Currency][]schema.Address,
	seeds []*schema.PublicKey,
	defaultFeeAddrs []schema.Address,
) *PartyEvents {
	return &PartyEvents{
		Network:                      network,
		PartyPublicKey:               partyPublicKey,
		PartyAddresses:               partyAddresses,
		BalanceMap:                   make(map[schema.Currency]schema.Amount),
		BalancePendingOrderDeltasMap: make(map[schema.Currency]schema.Amount),
		BalanceWithDeltasApplied:     make(map[schema.Currency]schema.Amount),
		CentralPrices:                make(map[schema.Currency]CentralPricePair),
		PortfolioRequestEvents:       NewPortfolioRequestEvents(),
		Seeds:                        seeds,
		DefaultFeeAddrs:              defaultFeeAddrs,
		priceInput:                   make(map[schema.Currency]float64),
	}
}

// AllPartyAddresses flattens the per-currency address map.
func (p *PartyEvents) AllPartyAddresses() []schema.Address {
	var out []schema.Address
	for _, addrs := range p.PartyAddresses {
		out = append(out, addrs...)
	}
	return out
}

// ProcessEvent folds one event into the state. Events without a
// confirmed time are parked as unconfirmed; they still suppress
// already-in-flight orders but move no balances.
func (p *PartyEvents) ProcessEvent(e AddressEvent) {
	t, ok := e.Time(p.Seeds)
	if !ok {
		p.UnconfirmedEvents = append(p.UnconfirmedEvents, e)
		return
	}
	p.processConfirmedEvent(e, t)
}

func (p *PartyEvents) processConfirmedEvent(e AddressEvent, time int64) {
	p.Events = append(p.Events, e)

	if usd := eventUsdPrice(e); usd != nil {
		if cur, ok := eventExternalCurrency(e); ok && cur != schema.Redgold {
			p.priceInput[cur] = *usd
		}
	}
	p.RecalculatePrices(time)

	switch v := e.(type) {
	case InternalEvent:
		p.handleInternalEvent(v, time)
	case ExternalEvent:
		p.handleExternalEvent(v, time)
	}

	p.RecalculatePrices(time)
}

// handleInternalEvent folds one Redgold ledger transaction. Incoming
// transactions open orders or staking positions; outgoing ones settle
// orders the party previously owed in RDG.
func (p *PartyEvents) handleInternalEvent(e InternalEvent, time int64) {
	p.EventFulfillment = nil
	tx := e.Tx

	var totalRdg int64
	for _, a := range p.AllPartyAddresses() {
		totalRdg += tx.OutputRdgAmountOf(a)
	}
	amt := schema.FromRdg(totalRdg)

	if eventIncoming(e) {
		switch {
		case tx.IsSwap():
			if d := tx.SwapDestination(); d != nil {
				var swapTotal int64
				for _, a := range p.AllPartyAddresses() {
					swapTotal += tx.OutputSwapAmountOf(a)
				}
				p.fulfillOrder(fulfillParams{
					amount:       schema.FromRdg(swapTotal),
					isAsk:        false,
					eventTime:    time,
					destination:  *d,
					event:        e,
					primaryEvent: e,
				})
			}
		case tx.IsStake():
			p.handleStakeRequests(e, time, tx)
		case tx.HasPortfolioRequest():
			p.handlePortfolioRequest(e, time, tx)
		}
		p.modifyBaseBalanceAndDeltas(amt)
		return
	}

	for _, txid := range tx.OutputExternalTxids() {
		p.retainUnfulfilledDeposits(txid, e, time)
	}
	for _, swf := range tx.StakeWithdrawalFulfillments() {
		if swf.StakeWithdrawalRequest == nil {
			continue
		}
		p.settleStakeWithdrawalFulfillment(*swf.StakeWithdrawalRequest, e, time)
	}
	// Value leaving the party: everything not returned as remainder.
	spent := schema.FromRdg(tx.NonRemainderAmount())
	p.modifyBaseBalanceAndDeltas(spent.MulInt64(-1))
}

// handleExternalEvent folds one external chain transaction. Incoming
// transfers confirm pending stakes or open ask orders; outgoing ones
// settle external withdrawals.
func (p *PartyEvents) handleExternalEvent(e ExternalEvent, time int64) {
	p.EventFulfillment = nil
	ett := e.Tx
	delta := ett.BalanceChange()

	if ett.Incoming {
		if !p.checkExternalEventPendingStake(e) {
			amt := ett.CurrencyAmount()
			dest := ett.OtherAddressTyped()
			dest.Currency = schema.Redgold
			dest.External = false
			p.fulfillOrder(fulfillParams{
				amount:    amt,
				isAsk:     true,
				eventTime: time,
				txID: &schema.ExternalTransactionID{
					Identifier: ett.TxID,
					Currency:   ett.Currency,
				},
				destination:  dest,
				event:        e,
				primaryEvent: e,
			})
		}
		p.modifyBaseBalanceAndDeltas(delta)
		return
	}

	p.retainUnfulfilledWithdrawals(e, time)
	p.handleMaybePortfolioWithdrawalEvent(e)
	p.removeUnconfirmedEvent(e)
	p.modifyBaseBalanceAndDeltas(delta.MulInt64(-1))
}

// fulfillOrder runs one order attempt through the matching engine and,
// on a match, records the pending obligation. Stake withdrawals pass
// through one to one without touching the curve.
func (p *PartyEvents) fulfillOrder(params fulfillParams) {
	p.EventFulfillment = nil

	var of *OrderFulfillment
	if params.isStake {
		units := params.amount.I64Or()
		of = &OrderFulfillment{
			OrderAmount:                      units,
			FulfilledAmount:                  units,
			EventTime:                        params.eventTime,
			Destination:                      params.destination,
			IsStakeWithdrawal:                true,
			StakeWithdrawalFulfillmentUtxoID: params.stakeUtxoID,
			PrimaryEvent:                     params.primaryEvent,
			OrderAmountTyped:                 params.amount,
		}
		of.FulfilledAmountTyped = of.FulfilledCurrencyAmount()
	} else {
		key := params.destination.Currency
		if params.isAsk {
			key = params.amount.Currency
		}
		cp, ok := p.CentralPrices[key]
		if !ok {
			return
		}
		of = cp.FulfillTakerOrder(
			params.amount,
			params.amount.I64Or(),
			params.isAsk,
			params.eventTime,
			params.txID,
			params.destination,
			params.primaryEvent,
			p.Network,
		)
	}
	if of == nil {
		return
	}

	p.EventFulfillment = of
	log.Debugf("Fulfilled order of %d units toward %s destination %s",
		of.FulfilledAmount, of.Destination.Currency, of.Destination.Value)
	entry := pendingOrder{Order: *of, Event: params.event}
	if of.Destination.Currency == schema.Redgold {
		p.UnfulfilledRdgOrders = append(p.UnfulfilledRdgOrders, entry)
	} else {
		p.UnfulfilledExternalWithdrawals = append(p.UnfulfilledExternalWithdrawals, entry)
	}
	p.modifyPendingAndDeltas(of.FulfilledCurrencyAmount().MulInt64(-1))
}

// retainUnfulfilledDeposits settles RDG-side orders whose opening
// external transaction id the outgoing transaction references.
func (p *PartyEvents) retainUnfulfilledDeposits(txid *schema.ExternalTransactionID, settling AddressEvent, time int64) {
	kept := p.UnfulfilledRdgOrders[:0]
	for _, po := range p.UnfulfilledRdgOrders {
		ref := po.Order.TxIDRef
		if ref == nil || txid == nil || ref.Identifier != txid.Identifier {
			kept = append(kept, po)
			continue
		}
		p.FulfillmentHistory = append(p.FulfillmentHistory, FulfillmentRecord{
			Fulfillment: po.Order,
			Initiating:  po.Event,
			Settling:    settling,
		})
		p.modifyPendingAndDeltas(po.Order.FulfilledCurrencyAmount())
	}
	p.UnfulfilledRdgOrders = kept
}

// settleStakeWithdrawalFulfillment closes a pending RDG stake
// withdrawal referenced by UTXO id.
func (p *PartyEvents) settleStakeWithdrawalFulfillment(id schema.UtxoId, settling AddressEvent, time int64) {
	keptW := p.PendingStakeWithdrawals[:0]
	for _, w := range p.PendingStakeWithdrawals {
		if !w.UtxoID.Equal(id) {
			keptW = append(keptW, w)
		}
	}
	p.PendingStakeWithdrawals = keptW

	kept := p.UnfulfilledRdgOrders[:0]
	for _, po := range p.UnfulfilledRdgOrders {
		u := po.Order.StakeWithdrawalFulfillmentUtxoID
		if !po.Order.IsStakeWithdrawal || u == nil || !u.Equal(id) {
			kept = append(kept, po)
			continue
		}
		p.FulfillmentHistory = append(p.FulfillmentHistory, FulfillmentRecord{
			Fulfillment: po.Order,
			Initiating:  po.Event,
			Settling:    settling,
		})
		p.modifyPendingAndDeltas(po.Order.FulfilledCurrencyAmount())
	}
	p.UnfulfilledRdgOrders = kept
}

// retainUnfulfilledWithdrawals settles external-side orders whose
// destination the outgoing external transaction pays. Address matching
// is case-insensitive since external chains disagree on casing.
func (p *PartyEvents) retainUnfulfilledWithdrawals(e ExternalEvent, time int64) {
	ett := e.Tx
	paid := func(addr schema.Address) bool {
		if addr.Currency != ett.Currency {
			return false
		}
		if addressesEqualFold(addr.Value, ett.OtherAddress) {
			return true
		}
		for _, o := range ett.OtherOutputAddresses {
			if addressesEqualFold(addr.Value, o) {
				return true
			}
		}
		return false
	}

	kept := p.UnfulfilledExternalWithdrawals[:0]
	for _, po := range p.UnfulfilledExternalWithdrawals {
		if !paid(po.Order.Destination) {
			kept = append(kept, po)
			continue
		}
		settled := po.Order
		settled.FulfillmentTxidExternal = &schema.ExternalTransactionID{
			Identifier: ett.TxID,
			Currency:   ett.Currency,
		}
		p.FulfillmentHistory = append(p.FulfillmentHistory, FulfillmentRecord{
			Fulfillment: settled,
			Initiating:  po.Event,
			Settling:    e,
		})
		p.modifyPendingAndDeltas(settled.FulfilledCurrencyAmount())
	}
	p.UnfulfilledExternalWithdrawals = kept

	keptW := p.PendingStakeWithdrawals[:0]
	for _, w := range p.PendingStakeWithdrawals {
		if !w.IsExternal || !paid(w.Address) {
			keptW = append(keptW, w)
		}
	}
	p.PendingStakeWithdrawals = keptW
}

// removeUnconfirmedEvent drops the unconfirmed copy of an event that
// has since confirmed.
func (p *PartyEvents) removeUnconfirmedEvent(e AddressEvent) {
	kept := p.UnconfirmedEvents[:0]
	for _, u := range p.UnconfirmedEvents {
		if !sameEvent(u, e) {
			kept = append(kept, u)
		}
	}
	p.UnconfirmedEvents = kept
}

func (p *PartyEvents) modifyMap(m map[schema.Currency]schema.Amount, delta schema.Amount) {
	cur, ok := m[delta.Currency]
	if !ok {
		cur = schema.Zero(delta.Currency)
	}
	next, err := cur.Add(delta)
	if err != nil {
		return
	}
	m[delta.Currency] = next
}

func (p *PartyEvents) modifyBalanceWithDeltas(delta schema.Amount) {
	p.modifyMap(p.BalanceWithDeltasApplied, delta)
}

func (p *PartyEvents) modifyPendingBalanceOnly(delta schema.Amount) {
	p.modifyMap(p.BalancePendingOrderDeltasMap, delta)
}

func (p *PartyEvents) modifyPendingAndDeltas(delta schema.Amount) {
	p.modifyPendingBalanceOnly(delta)
	p.modifyBalanceWithDeltas(delta)
}

func (p *PartyEvents) modifyBaseBalanceAndDeltas(delta schema.Amount) {
	p.modifyMap(p.BalanceMap, delta)
	p.modifyBalanceWithDeltas(delta)
}

// ExpectedFeeAmount returns the fee the party expects to pay to settle
// on the given currency's chain. Currencies the party cannot settle
// return false.
func ExpectedFeeAmount(currency schema.Currency, network schema.Network) (schema.Amount, bool) {
	switch currency {
	case schema.Redgold:
		a, err := schema.FromFractional(0.0001)
		if err != nil {
			return schema.Amount{}, false
		}
		return a, true
	case schema.Bitcoin:
		if network.IsMain() {
			return schema.FromBtc(850), true
		}
		return schema.FromBtc(2000), true
	case schema.Ethereum:
		return schema.EthFeeFixedNormal(network), true
	}
	return schema.Amount{}, false
}

// MinimumSwapAmount returns the smallest order the party accepts per
// currency, sized to keep fees a small fraction of the order.
func MinimumSwapAmount(amt schema.Amount) (int64, bool) {
	switch amt.Currency {
	case schema.Redgold:
		return 10_000, true
	case schema.Bitcoin:
		return 2000, true
	case schema.Ethereum:
		return int64(1e12 / 1e10), true
	}
	return 0, false
}

// RecalculatePrices rebuilds the quote set from the current USD price
// inputs and delta-applied reserve volumes, appending to the price
// history only when a quote actually changed.
func (p *PartyEvents) RecalculatePrices(time int64) {
	volumes := p.BalancesWithDeltasSubPortfolio(time)
	next := CalculateCentralPrices(p.priceInput, volumes, time, 0, 0)

	changed := len(next) != len(p.CentralPrices)
	if !changed {
		for k, v := range next {
			prev, ok := p.CentralPrices[k]
			if !ok || !prev.Equal(v) {
				changed = true
				break
			}
		}
	}
	p.CentralPrices = next
	if changed {
		p.CentralPriceHistory = append(p.CentralPriceHistory, PriceHistoryEntry{
			Time:   time,
			Prices: next,
		})
	}
}

// BalancesWithDeltasSubPortfolio returns the delta-applied balances
// less the reserves committed to portfolio programs, the volumes AMM
// quoting may draw on.
func (p *PartyEvents) BalancesWithDeltasSubPortfolio(time int64) map[schema.Currency]schema.Amount {
	out := make(map[schema.Currency]schema.Amount, len(p.BalanceWithDeltasApplied))
	for k, v := range p.BalanceWithDeltasApplied {
		out[k] = v
	}
	portfolio := p.StakingBalances(nil, false, true)
	for cur, amt := range portfolio {
		bal, ok := out[cur]
		if !ok {
			continue
		}
		next, err := bal.Sub(amt)
		if err != nil {
			continue
		}
		out[cur] = next
	}
	return out
}

// StakingBalances totals confirmed staking positions per currency.
// A non-empty address filter restricts to positions withdrawable by
// those addresses; the two flags select AMM liquidity positions,
// portfolio positions, or both.
func (p *PartyEvents) StakingBalances(
	addresses []schema.Address,
	includeAmm bool,
	includePortfolio bool,
) map[schema.Currency]schema.Amount {
	out := make(map[schema.Currency]schema.Amount)
	addrOk := func(a schema.Address) bool {
		if len(addresses) == 0 {
			return true
		}
		for _, f := range addresses {
			if f.Equal(a) {
				return true
			}
		}
		return false
	}
	portfolioOk := func(d *schema.StakeDeposit) bool {
		isPortfolio := d != nil && d.PortfolioFulfillmentParams != nil
		if isPortfolio {
			return includePortfolio
		}
		return includeAmm
	}

	for _, ev := range p.InternalStakingEvents {
		if !addrOk(ev.WithdrawalAddress) || !portfolioOk(ev.LiquidityDeposit) {
			continue
		}
		p.modifyMap(out, ev.Amount)
	}
	for _, ev := range p.ExternalStakingEvents {
		pe := ev.PendingEvent
		if !addrOk(pe.ExternalAddress) || !portfolioOk(pe.LiquidityDeposit) {
			continue
		}
		p.modifyMap(out, pe.Amount)
	}
	return out
}

// MarkLocallyFulfilled suppresses an order from Orders until its
// settlement confirms on chain.
func (p *PartyEvents) MarkLocallyFulfilled(of OrderFulfillment) {
	p.LocallyFulfilledOrders = append(p.LocallyFulfilledOrders, of)
}

// unconfirmedSettlementTxids collects the external txid references of
// unconfirmed outgoing ledger transactions, settlements already in
// flight.
func (p *PartyEvents) unconfirmedSettlementTxids() map[string]struct{} {
	out := make(map[string]struct{})
	for _, u := range p.UnconfirmedEvents {
		ie, ok := u.(InternalEvent)
		if !ok || eventIncoming(ie) {
			continue
		}
		for _, txid := range ie.Tx.OutputExternalTxids() {
			if txid != nil {
				out[txid.Identifier] = struct{}{}
			}
		}
	}
	return out
}

// unconfirmedExternalOutputAddresses collects the destination
// addresses of unconfirmed outgoing external transactions.
func (p *PartyEvents) unconfirmedExternalOutputAddresses() []string {
	var out []string
	for _, u := range p.UnconfirmedEvents {
		ee, ok := u.(ExternalEvent)
		if !ok || ee.Tx.Incoming {
			continue
		}
		out = append(out, ee.Tx.OtherAddress)
		out = append(out, ee.Tx.OtherOutputAddresses...)
	}
	return out
}

// Orders returns the open orders a fulfillment round should settle:
// pending obligations that are not already in flight, not claimed by a
// local settlement attempt, and covered by the reserve balance net of
// the settlement fee. Orders come back sorted by event time so every
// node settles in the same sequence.
func (p *PartyEvents) Orders() []OrderFulfillment {
	inFlightTxids := p.unconfirmedSettlementTxids()
	inFlightAddrs := p.unconfirmedExternalOutputAddresses()

	locallyClaimed := func(of OrderFulfillment) bool {
		for _, l := range p.LocallyFulfilledOrders {
			if ordersMatch(l, of) {
				return true
			}
		}
		return false
	}
	inFlight := func(of OrderFulfillment) bool {
		if of.TxIDRef != nil {
			if _, ok := inFlightTxids[of.TxIDRef.Identifier]; ok {
				return true
			}
		}
		if of.Destination.Currency != schema.Redgold {
			for _, a := range inFlightAddrs {
				if addressesEqualFold(a, of.Destination.Value) {
					return true
				}
			}
		}
		return false
	}
	covered := func(of OrderFulfillment) bool {
		bal, ok := p.BalanceMap[of.Destination.Currency]
		if !ok {
			return false
		}
		need := of.FulfilledCurrencyAmount()
		if fee, ok := ExpectedFeeAmount(of.Destination.Currency, p.Network); ok {
			added, err := need.Add(fee)
			if err != nil {
				return false
			}
			need = added
		}
		c, err := bal.Cmp(need)
		return err == nil && c >= 0
	}

	var out []OrderFulfillment
	for _, po := range append(append([]pendingOrder{}, p.UnfulfilledRdgOrders...), p.UnfulfilledExternalWithdrawals...) {
		of := po.Order
		if locallyClaimed(of) || inFlight(of) || !covered(of) {
			continue
		}
		out = append(out, of)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].EventTime < out[j].EventTime
	})
	return out
}

// OrdersDefaultCutoff returns Orders older than the settlement delay
// window relative to now.
func (p *PartyEvents) OrdersDefaultCutoff(now int64) []OrderFulfillment {
	all := p.Orders()
	out := all[:0]
	for _, of := range all {
		if of.EventTime < now-orderCutoffMillis {
			out = append(out, of)
		}
	}
	return out
}

// FulfillmentOrders returns open orders settling in the given
// currency.
func (p *PartyEvents) FulfillmentOrders(cur schema.Currency) []OrderFulfillment {
	all := p.Orders()
	out := all[:0]
	for _, of := range all {
		if of.Destination.Currency == cur {
			out = append(out, of)
		}
	}
	return out
}

// ordersMatch identifies an order by its opening txid reference, or by
// stake withdrawal UTXO, or by destination and time as a last resort.
func ordersMatch(a, b OrderFulfillment) bool {
	if a.TxIDRef != nil && b.TxIDRef != nil {
		return a.TxIDRef.Identifier == b.TxIDRef.Identifier
	}
	au, bu := a.StakeWithdrawalFulfillmentUtxoID, b.StakeWithdrawalFulfillmentUtxoID
	if au != nil && bu != nil {
		return au.Equal(*bu)
	}
	return a.Destination.Equal(b.Destination) && a.EventTime == b.EventTime &&
		a.FulfilledAmount == b.FulfilledAmount
}

// FindFulfillmentOf returns the completed fulfillment opened by the
// given event, if any.
func (p *PartyEvents) FindFulfillmentOf(e AddressEvent) (FulfillmentRecord, bool) {
	for _, r := range p.FulfillmentHistory {
		if sameEvent(r.Initiating, e) {
			return r, true
		}
	}
	return FulfillmentRecord{}, false
}

// FindRequestFulfilledBy returns the completed fulfillment settled by
// the given event, if any.
func (p *PartyEvents) FindRequestFulfilledBy(e AddressEvent) (FulfillmentRecord, bool) {
	for _, r := range p.FulfillmentHistory {
		if sameEvent(r.Settling, e) {
			return r, true
		}
	}
	return FulfillmentRecord{}, false
}

// MaxBidUsdEstimate returns the highest USD-per-RDG bid across the
// quoted markets, zero when nothing is quoted.
func (p *PartyEvents) MaxBidUsdEstimate() float64 {
	var max float64
	for _, cp := range p.CentralPrices {
		if cp.MinBidEstimated > max {
			max = cp.MinBidEstimated
		}
	}
	return max
}

// NumEvents returns counts of confirmed internal and external events,
// in that order.
func (p *PartyEvents) NumEvents() (internal int, external int) {
	for _, e := range p.Events {
		switch e.(type) {
		case InternalEvent:
			internal++
		case ExternalEvent:
			external++
		}
	}
	return internal, external
}
