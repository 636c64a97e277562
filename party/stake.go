// Copyright (c) 2024 The redgold developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package party

import (
	"github.com/redgold-io/redgold-core/schema"
)

// InternalStakeEvent is a confirmed RDG-denominated staking position.
type InternalStakeEvent struct {
	Event             AddressEvent
	Tx                *schema.Transaction
	Amount            schema.Amount
	WithdrawalAddress schema.Address
	LiquidityDeposit  *schema.StakeDeposit
	UtxoID            schema.UtxoId
}

// PendingExternalStakeEvent is a stake deposit request awaiting the
// matching transfer on the external chain.
type PendingExternalStakeEvent struct {
	Event            AddressEvent
	Tx               *schema.Transaction
	Amount           schema.Amount
	ExternalAddress  schema.Address
	ExternalCurrency schema.Currency
	LiquidityDeposit *schema.StakeDeposit
	DepositInner     *schema.DepositRequest
	UtxoID           schema.UtxoId
}

// ConfirmedExternalStakeEvent pairs a pending external stake with the
// external transfer that satisfied it.
type ConfirmedExternalStakeEvent struct {
	PendingEvent PendingExternalStakeEvent
	Event        AddressEvent
	Ett          *ExternalTimedTransaction
}

// PendingWithdrawalStakeEvent is a stake withdrawal awaiting its
// settlement receipt.
type PendingWithdrawalStakeEvent struct {
	Address         schema.Address
	Amount          schema.Amount
	InitiatingEvent AddressEvent
	IsExternal      bool
	UtxoID          schema.UtxoId
}

// MinimumStakeAmountTotal returns the smallest stake accepted per
// currency. Currencies outside the supported set return false.
func MinimumStakeAmountTotal(currency schema.Currency) (schema.Amount, bool) {
	switch currency {
	case schema.Redgold:
		a, err := schema.FromFractional(1.0)
		if err != nil {
			return schema.Amount{}, false
		}
		return a, true
	case schema.Bitcoin:
		return schema.FromBtc(10_000), true
	case schema.Ethereum:
		return schema.FromEthFractional(0.005), true
	}
	return schema.Amount{}, false
}

// meetsMinimumStakeAmount reports whether the amount clears the
// per-currency stake floor.
func meetsMinimumStakeAmount(amt schema.Amount) bool {
	min, ok := MinimumStakeAmountTotal(amt.Currency)
	if !ok {
		return false
	}
	c, err := amt.Cmp(min)
	return err == nil && c >= 0
}

// checkExternalEventPendingStake matches an incoming external transfer
// against pending external stake requests by amount and address. A
// match confirms the stake and consumes the pending entry.
func (p *PartyEvents) checkExternalEventPendingStake(event AddressEvent) bool {
	ext, ok := event.(ExternalEvent)
	if !ok {
		return false
	}
	amt := ext.Tx.CurrencyAmount()
	addr := ext.Tx.OtherAddressTyped()
	for _, s := range p.PendingExternalStakingTxs {
		cmp, err := s.Amount.Cmp(amt)
		amountEqual := err == nil && cmp == 0
		addressEqual := addressesEqualFold(s.ExternalAddress.Value, addr.Value) &&
			s.ExternalAddress.Currency == addr.Currency
		if !amountEqual || !addressEqual {
			continue
		}
		matched := s
		kept := p.PendingExternalStakingTxs[:0]
		for _, e := range p.PendingExternalStakingTxs {
			if !e.UtxoID.Equal(matched.UtxoID) {
				kept = append(kept, e)
			}
		}
		p.PendingExternalStakingTxs = kept

		ev := ConfirmedExternalStakeEvent{
			PendingEvent: matched,
			Event:        event,
			Ett:          ext.Tx,
		}
		p.ExternalStakingEvents = append(p.ExternalStakingEvents, ev)
		p.handleMaybePortfolioStakeEvent(ev)
		return true
	}
	return false
}

// handleExternalLiquidityDeposit registers a stake request backed by a
// promised external transfer as pending until the transfer lands.
func (p *PartyEvents) handleExternalLiquidityDeposit(
	event AddressEvent,
	tx *schema.Transaction,
	depositInner *schema.DepositRequest,
	liquidityDeposit *schema.StakeDeposit,
	utxoID schema.UtxoId,
) {
	if depositInner.Amount == nil || depositInner.Address == nil {
		return
	}
	p.PendingExternalStakingTxs = append(p.PendingExternalStakingTxs, PendingExternalStakeEvent{
		Event:            event,
		Tx:               tx,
		Amount:           *depositInner.Amount,
		ExternalAddress:  *depositInner.Address,
		ExternalCurrency: depositInner.Amount.Currency,
		LiquidityDeposit: liquidityDeposit,
		DepositInner:     depositInner,
		UtxoID:           utxoID,
	})
}

// internalLiquidityStake registers an RDG stake paid directly to party
// addresses, provided it clears the minimum.
func (p *PartyEvents) internalLiquidityStake(
	event AddressEvent,
	tx *schema.Transaction,
	amt *schema.Amount,
	deposit *schema.StakeDeposit,
	utxoID schema.UtxoId,
) {
	if amt == nil || amt.Currency != schema.Redgold || !meetsMinimumStakeAmount(*amt) {
		return
	}
	pk := tx.FirstInputProofPublicKey()
	if pk == nil {
		return
	}
	withdrawalAddress, err := pk.Address()
	if err != nil {
		return
	}
	p.InternalStakingEvents = append(p.InternalStakingEvents, InternalStakeEvent{
		Event:             event,
		Tx:                tx,
		Amount:            *amt,
		WithdrawalAddress: withdrawalAddress,
		LiquidityDeposit:  deposit,
		UtxoID:            utxoID,
	})
}

// handleStakeRequests routes each stake request output of the
// transaction: external deposits become pending, internal deposits
// register immediately, withdrawals go through settlement sizing.
func (p *PartyEvents) handleStakeRequests(event AddressEvent, time int64, tx *schema.Transaction) {
	var total int64
	for _, a := range p.AllPartyAddresses() {
		total += tx.OutputRdgAmountOf(a)
	}
	var amt *schema.Amount
	if total > 0 {
		a := schema.FromRdg(total)
		amt = &a
	}
	for _, ref := range tx.StakeRequests() {
		req := ref.Request
		switch {
		case req.Deposit != nil && req.Deposit.Deposit != nil:
			p.handleExternalLiquidityDeposit(event, tx, req.Deposit.Deposit, req.Deposit, ref.UtxoID)
		case req.Deposit != nil:
			p.internalLiquidityStake(event, tx, amt, req.Deposit, ref.UtxoID)
		case req.Withdrawal != nil:
			p.processStakeWithdrawal(event, tx, req.Withdrawal, time, ref.UtxoID)
		}
	}
}

// retainExternalStake consumes the confirmed external stake position
// referenced by the withdrawal's inputs, returning its amount.
func (p *PartyEvents) retainExternalStake(utxoIDs []schema.UtxoId, wCurrency schema.Currency) (schema.Amount, bool) {
	for _, ev := range p.ExternalStakingEvents {
		if ev.PendingEvent.ExternalCurrency != wCurrency {
			continue
		}
		found := false
		for _, id := range utxoIDs {
			if id.Equal(ev.PendingEvent.UtxoID) {
				found = true
				break
			}
		}
		if !found {
			continue
		}
		kept := p.ExternalStakingEvents[:0]
		for _, e := range p.ExternalStakingEvents {
			if !e.PendingEvent.UtxoID.Equal(ev.PendingEvent.UtxoID) {
				kept = append(kept, e)
			}
		}
		p.ExternalStakingEvents = kept
		return ev.PendingEvent.Amount, true
	}
	return schema.Amount{}, false
}

// processStakeWithdrawal sizes and queues the settlement for a stake
// withdrawal. The order amount is capped so the reserve keeps the
// minimum stake plus twice the expected fee; a withdrawal that cannot
// be sized is recorded as rejected, not failed.
func (p *PartyEvents) processStakeWithdrawal(
	event AddressEvent,
	tx *schema.Transaction,
	withdrawal *schema.StakeWithdrawal,
	time int64,
	id schema.UtxoId,
) {
	p.EventFulfillment = nil
	if withdrawal.Destination == nil {
		p.RejectedStakeWithdrawals = append(p.RejectedStakeWithdrawals, event)
		return
	}
	inputUtxoIDs := tx.InputUtxoIds()
	d := *withdrawal.Destination
	wCurrency := d.Currency

	var amt schema.Amount
	var okAmt bool
	if wCurrency == schema.Redgold {
		for _, ev := range p.InternalStakingEvents {
			matched := false
			for _, uid := range inputUtxoIDs {
				if uid.Equal(ev.UtxoID) {
					matched = true
					break
				}
			}
			if matched {
				kept := p.InternalStakingEvents[:0]
				for _, e := range p.InternalStakingEvents {
					if !e.UtxoID.Equal(ev.UtxoID) {
						kept = append(kept, e)
					}
				}
				p.InternalStakingEvents = kept
				amt, okAmt = ev.Amount, true
				break
			}
		}
	} else {
		amt, okAmt = p.retainExternalStake(inputUtxoIDs, wCurrency)
	}

	if okAmt {
		if existing, ok := p.BalanceMap[amt.Currency]; ok {
			if orderAmt, ok := p.sizeWithdrawalOrder(existing, amt); ok {
				p.fulfillOrder(fulfillParams{
					amount:       orderAmt,
					isAsk:        false,
					eventTime:    time,
					destination:  d,
					isStake:      true,
					event:        event,
					stakeUtxoID:  &id,
					primaryEvent: event,
				})
			}
		}
	}

	if p.EventFulfillment == nil {
		log.Debugf("Rejected stake withdrawal toward %s destination %s",
			d.Currency, d.Value)
		p.RejectedStakeWithdrawals = append(p.RejectedStakeWithdrawals, event)
		return
	}

	of := p.EventFulfillment
	p.PendingStakeWithdrawals = append(p.PendingStakeWithdrawals, PendingWithdrawalStakeEvent{
		Address:         d,
		Amount:          of.FulfilledCurrencyAmount(),
		InitiatingEvent: event,
		IsExternal:      of.Destination.Currency != schema.Redgold,
		UtxoID:          id,
	})
}

// sizeWithdrawalOrder computes the settleable withdrawal amount given
// the reserve balance: min(stake, balance - stake - minimum - 2*fee)
// when that leaves headroom, with a reduced fallback off mainnet.
func (p *PartyEvents) sizeWithdrawalOrder(existing, amt schema.Amount) (schema.Amount, bool) {
	cur := amt.Currency
	minimum, ok := MinimumStakeAmountTotal(cur)
	if !ok {
		minimum = schema.Zero(cur)
	}
	fee, ok := ExpectedFeeAmount(cur, p.Network)
	if !ok {
		return schema.Amount{}, false
	}

	delta := existing
	var err error
	for _, sub := range []schema.Amount{amt, minimum, fee, fee} {
		delta, err = delta.Sub(sub)
		if err != nil {
			return schema.Amount{}, false
		}
	}

	if c, err := delta.Cmp(minimum); err == nil && c > 0 {
		// Plenty of reserve: release the smaller of the stake and the
		// headroom.
		if c2, err := delta.Cmp(amt); err == nil && c2 < 0 {
			return delta, true
		}
		return amt, true
	}
	if !p.Network.IsMain() {
		reduced := existing
		for _, sub := range []schema.Amount{fee, fee} {
			reduced, err = reduced.Sub(sub)
			if err != nil {
				return schema.Amount{}, false
			}
		}
		if c, err := reduced.Cmp(fee); err == nil && c > 0 {
			return reduced, true
		}
	}
	return schema.Amount{}, false
}
