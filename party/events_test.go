// Copyright (c) 2024 The redgold developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package party

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redgold-io/redgold-core/schema"
)

func testPartyKey(seed byte) *schema.PublicKey {
	b := bytes.Repeat([]byte{seed}, 33)
	b[0] = 0x02
	return &schema.PublicKey{Bytes: b}
}

// testParty returns empty state for a party keyed by seed 0xaa, plus
// its RDG and BTC addresses.
func testParty(t *testing.T, network schema.Network) (*PartyEvents, schema.Address, schema.Address) {
	t.Helper()
	pk := testPartyKey(0xaa)
	rdgAddr, err := pk.Address()
	require.NoError(t, err)
	btcAddr := schema.Address{Value: "bc1party", Currency: schema.Bitcoin, External: true}
	pe := NewPartyEvents(network, pk, map[schema.Currency][]schema.Address{
		schema.Redgold: {rdgAddr},
		schema.Bitcoin: {btcAddr},
	}, nil, nil)
	return pe, rdgAddr, btcAddr
}

// internalPayment returns a confirmed ledger transaction paying the
// given address, signed by the key at seed.
func internalPayment(to schema.Address, units int64, seed byte, time int64) *schema.Transaction {
	return &schema.Transaction{
		Inputs: []*schema.Input{{
			Proofs: []*schema.Proof{{PublicKey: testPartyKey(seed)}},
		}},
		Outputs:        []*schema.Output{schema.NewOutput(to, units)},
		StructMetadata: &schema.StructMetadata{Time: time},
	}
}

// assertBalanceConservation checks delta-applied balances equal base
// plus pending for every currency touched.
func assertBalanceConservation(t *testing.T, pe *PartyEvents) {
	t.Helper()
	for cur, applied := range pe.BalanceWithDeltasApplied {
		base, ok := pe.BalanceMap[cur]
		if !ok {
			base = schema.Zero(cur)
		}
		pending, ok := pe.BalancePendingOrderDeltasMap[cur]
		if !ok {
			pending = schema.Zero(cur)
		}
		want, err := base.Add(pending)
		require.NoError(t, err)
		cmp, err := applied.Cmp(want)
		require.NoError(t, err)
		assert.Zero(t, cmp, "balance conservation broken for %s", cur)
	}
}

func TestSwapOrderLifecycle(t *testing.T) {
	t.Parallel()

	pe, rdgAddr, _ := testParty(t, schema.NetworkDev)
	price := 60_000.0

	// Seed one hundred RDG of reserve from a user deposit.
	pe.ProcessEvent(InternalEvent{
		Tx:             internalPayment(rdgAddr, 100*1_0000_0000, 0xbb, 1000),
		QueriedAddress: rdgAddr,
	})
	assert.Equal(t, int64(10_000_000_000), pe.BalanceMap[schema.Redgold].Units)
	assert.Empty(t, pe.CentralPrices)

	// Seed the BTC reserve; the first oracle-priced event also brings
	// the market up.
	pe.ProcessEvent(ExternalEvent{Tx: &ExternalTimedTransaction{
		TxID: "seed-btc", Timestamp: 2000, HasTimestamp: true,
		OtherAddress: "bc1seed", Amount: 50_000, Incoming: true,
		Currency: schema.Bitcoin, PriceUsd: &price,
	}})
	assert.Equal(t, int64(50_000), pe.BalanceMap[schema.Bitcoin].Units)
	cp, ok := pe.CentralPrices[schema.Bitcoin]
	require.True(t, ok)
	assert.InDelta(t, 100.0, cp.MinAskEstimated, 1e-9)
	require.NotEmpty(t, pe.CentralPriceHistory)

	// A taker deposits BTC buying RDG: 0.0001 BTC at the $60k quote
	// less the 2% haircut pays out 0.0588 RDG at the flat $100 rate.
	pe.ProcessEvent(ExternalEvent{Tx: &ExternalTimedTransaction{
		TxID: "order-1", Timestamp: 3000, HasTimestamp: true,
		OtherAddress: "user-rdg-dest", Amount: 10_000, Incoming: true,
		Currency: schema.Bitcoin, PriceUsd: &price,
	}})
	require.NotNil(t, pe.EventFulfillment)
	fulfilled := pe.EventFulfillment.FulfilledAmount
	assert.Equal(t, int64(5_880_000), fulfilled)
	assert.Equal(t, int64(60_000), pe.BalanceMap[schema.Bitcoin].Units)

	// The promised RDG shows up as a negative pending delta while the
	// base balance is untouched.
	assert.Equal(t, int64(10_000_000_000), pe.BalanceMap[schema.Redgold].Units)
	assert.Equal(t, -fulfilled, pe.BalancePendingOrderDeltasMap[schema.Redgold].Units)
	assertBalanceConservation(t, pe)

	orders := pe.Orders()
	require.Len(t, orders, 1)
	require.NotNil(t, orders[0].TxIDRef)
	assert.Equal(t, "order-1", orders[0].TxIDRef.Identifier)
	assert.Equal(t, "user-rdg-dest", orders[0].Destination.Value)
	assert.Len(t, pe.OrdersDefaultCutoff(3000+orderCutoffMillis+1), 1)
	assert.Empty(t, pe.OrdersDefaultCutoff(3000))

	// The party settles on ledger: an outgoing transaction paying the
	// destination and receipting the opening txid.
	userDest := schema.Address{Value: "user-rdg-dest", Currency: schema.Redgold}
	remainder := int64(10_000_000_000) - fulfilled
	settle := &schema.Transaction{
		Inputs: []*schema.Input{{
			Proofs: []*schema.Proof{{PublicKey: pe.PartyPublicKey}},
			Output: schema.NewOutput(rdgAddr, 10_000_000_000),
		}},
		Outputs: []*schema.Output{
			schema.NewOutput(userDest, fulfilled),
			{Address: &userDest, Data: &schema.StandardData{
				StandardResponse: &schema.StandardResponse{
					SwapFulfillment: &schema.SwapFulfillment{
						ExternalTransactionID: &schema.ExternalTransactionID{
							Identifier: "order-1", Currency: schema.Bitcoin,
						},
					},
				},
			}},
			schema.NewOutput(rdgAddr, remainder),
		},
		StructMetadata: &schema.StructMetadata{Time: 4000},
	}
	pe.ProcessEvent(InternalEvent{Tx: settle, QueriedAddress: rdgAddr})

	assert.Empty(t, pe.Orders())
	require.Len(t, pe.FulfillmentHistory, 1)
	assert.Equal(t, int64(0), pe.BalancePendingOrderDeltasMap[schema.Redgold].Units)
	assert.Equal(t, remainder, pe.BalanceMap[schema.Redgold].Units)
	assertBalanceConservation(t, pe)

	_, found := pe.FindRequestFulfilledBy(InternalEvent{Tx: settle, QueriedAddress: rdgAddr})
	assert.True(t, found)

	internal, external := pe.NumEvents()
	assert.Equal(t, 2, internal)
	assert.Equal(t, 2, external)
}

func TestWithdrawalMatchesAddressCaseInsensitively(t *testing.T) {
	t.Parallel()

	pe, _, _ := testParty(t, schema.NetworkDev)
	dest := schema.Address{Value: "bc1QWithdrawDest", Currency: schema.Bitcoin, External: true}
	of := OrderFulfillment{
		OrderAmount:          5000,
		FulfilledAmount:      5000,
		EventTime:            1000,
		Destination:          dest,
		OrderAmountTyped:     schema.FromBtc(5000),
		FulfilledAmountTyped: schema.FromBtc(5000),
	}
	pe.UnfulfilledExternalWithdrawals = append(pe.UnfulfilledExternalWithdrawals, pendingOrder{Order: of})
	pe.modifyPendingAndDeltas(of.FulfilledCurrencyAmount().MulInt64(-1))

	// Settlement arrives with the destination rendered in a different
	// case than the order recorded.
	pe.ProcessEvent(ExternalEvent{Tx: &ExternalTimedTransaction{
		TxID: "btc-settle", Timestamp: 2000, HasTimestamp: true,
		OtherAddress: "BC1QWITHDRAWDEST", Amount: 5000, Incoming: false,
		Currency: schema.Bitcoin,
	}})

	assert.Empty(t, pe.UnfulfilledExternalWithdrawals)
	require.Len(t, pe.FulfillmentHistory, 1)
	settled := pe.FulfillmentHistory[0].Fulfillment
	require.NotNil(t, settled.FulfillmentTxidExternal)
	assert.Equal(t, "btc-settle", settled.FulfillmentTxidExternal.Identifier)
	assert.Equal(t, int64(0), pe.BalancePendingOrderDeltasMap[schema.Bitcoin].Units)
	assertBalanceConservation(t, pe)
}

func TestUnconfirmedEventParkedThenRemoved(t *testing.T) {
	t.Parallel()

	pe, _, _ := testParty(t, schema.NetworkDev)

	pending := &ExternalTimedTransaction{
		TxID: "tx-1", HasTimestamp: false,
		OtherAddress: "bc1user", Amount: 1000, Incoming: false,
		Currency: schema.Bitcoin,
	}
	pe.ProcessEvent(ExternalEvent{Tx: pending})
	assert.Len(t, pe.UnconfirmedEvents, 1)
	assert.Empty(t, pe.Events)

	confirmed := *pending
	confirmed.HasTimestamp = true
	confirmed.Timestamp = 5000
	pe.ProcessEvent(ExternalEvent{Tx: &confirmed})
	assert.Empty(t, pe.UnconfirmedEvents)
	assert.Len(t, pe.Events, 1)
}

func stakeDepositTx(partyAddr schema.Address, units int64, seed byte, time int64) *schema.Transaction {
	return &schema.Transaction{
		Inputs: []*schema.Input{{
			Proofs: []*schema.Proof{{PublicKey: testPartyKey(seed)}},
		}},
		Outputs: []*schema.Output{{
			Address: &partyAddr,
			Data: &schema.StandardData{
				Amount: &schema.Amount{Units: units, Currency: schema.Redgold},
				StandardRequest: &schema.StandardRequest{
					StakeRequest: &schema.StakeRequest{Deposit: &schema.StakeDeposit{}},
				},
			},
			Contract: &schema.OutputContract{StandardContractType: schema.ContractTypeStake},
		}},
		StructMetadata: &schema.StructMetadata{Time: time},
	}
}

func stakeWithdrawalTx(depositID schema.UtxoId, dest schema.Address, seed byte, time int64) *schema.Transaction {
	return &schema.Transaction{
		Inputs: []*schema.Input{{
			UtxoID: &depositID,
			Proofs: []*schema.Proof{{PublicKey: testPartyKey(seed)}},
		}},
		Outputs: []*schema.Output{{
			Data: &schema.StandardData{
				StandardRequest: &schema.StandardRequest{
					StakeRequest: &schema.StakeRequest{
						Withdrawal: &schema.StakeWithdrawal{Destination: &dest},
					},
				},
			},
			Contract: &schema.OutputContract{StandardContractType: schema.ContractTypeStake},
		}},
		StructMetadata: &schema.StructMetadata{Time: time},
	}
}

func TestInternalStakeLifecycle(t *testing.T) {
	t.Parallel()

	pe, rdgAddr, _ := testParty(t, schema.NetworkDev)

	// Reserve headroom so the withdrawal can be sized.
	pe.ProcessEvent(InternalEvent{
		Tx:             internalPayment(rdgAddr, 5_0000_0000, 0xcc, 500),
		QueriedAddress: rdgAddr,
	})

	deposit := stakeDepositTx(rdgAddr, 2_0000_0000, 0xbb, 1000)
	pe.ProcessEvent(InternalEvent{Tx: deposit, QueriedAddress: rdgAddr})
	require.Len(t, pe.InternalStakingEvents, 1)
	assert.Equal(t, int64(2_0000_0000), pe.InternalStakingEvents[0].Amount.Units)

	staked := pe.StakingBalances(nil, true, false)
	assert.Equal(t, int64(2_0000_0000), staked[schema.Redgold].Units)
	assert.Empty(t, pe.StakingBalances(nil, false, true))

	depositID := pe.InternalStakingEvents[0].UtxoID
	userDest := schema.Address{Value: "user-withdraw-dest", Currency: schema.Redgold}
	withdraw := stakeWithdrawalTx(depositID, userDest, 0xbb, 2000)
	pe.ProcessEvent(InternalEvent{Tx: withdraw, QueriedAddress: rdgAddr})

	assert.Empty(t, pe.InternalStakingEvents)
	require.Len(t, pe.PendingStakeWithdrawals, 1)
	assert.False(t, pe.PendingStakeWithdrawals[0].IsExternal)
	require.NotNil(t, pe.EventFulfillment)
	assert.True(t, pe.EventFulfillment.IsStakeWithdrawal)
	assert.Equal(t, int64(2_0000_0000), pe.EventFulfillment.FulfilledAmount)
	assertBalanceConservation(t, pe)

	orders := pe.Orders()
	require.Len(t, orders, 1)
	assert.True(t, orders[0].IsStakeWithdrawal)

	// Settle with a receipt referencing the withdrawal request UTXO.
	withdrawID := schema.NewUtxoId(withdraw.HashOr(), 0)
	settle := &schema.Transaction{
		Inputs: []*schema.Input{{
			Proofs: []*schema.Proof{{PublicKey: pe.PartyPublicKey}},
			Output: schema.NewOutput(rdgAddr, 7_0000_0000),
		}},
		Outputs: []*schema.Output{
			schema.NewOutput(userDest, 2_0000_0000),
			{Data: &schema.StandardData{
				StandardResponse: &schema.StandardResponse{
					StakeWithdrawalFulfillment: &schema.StakeWithdrawalFulfillment{
						StakeWithdrawalRequest: &withdrawID,
					},
				},
			}},
			schema.NewOutput(rdgAddr, 5_0000_0000),
		},
		StructMetadata: &schema.StructMetadata{Time: 3000},
	}
	pe.ProcessEvent(InternalEvent{Tx: settle, QueriedAddress: rdgAddr})

	assert.Empty(t, pe.PendingStakeWithdrawals)
	assert.Empty(t, pe.Orders())
	require.Len(t, pe.FulfillmentHistory, 1)
	assert.Equal(t, int64(5_0000_0000), pe.BalanceMap[schema.Redgold].Units)
	assert.Equal(t, int64(0), pe.BalancePendingOrderDeltasMap[schema.Redgold].Units)
	assertBalanceConservation(t, pe)
}

func TestStakeWithdrawalRejectedWithoutReserve(t *testing.T) {
	t.Parallel()

	pe, rdgAddr, _ := testParty(t, schema.NetworkMain)

	deposit := stakeDepositTx(rdgAddr, 2_0000_0000, 0xbb, 1000)
	pe.ProcessEvent(InternalEvent{Tx: deposit, QueriedAddress: rdgAddr})
	require.Len(t, pe.InternalStakingEvents, 1)

	// The whole reserve is the stake itself; paying it out would leave
	// nothing for the minimum plus fees.
	depositID := pe.InternalStakingEvents[0].UtxoID
	userDest := schema.Address{Value: "user-withdraw-dest", Currency: schema.Redgold}
	withdraw := stakeWithdrawalTx(depositID, userDest, 0xbb, 2000)
	pe.ProcessEvent(InternalEvent{Tx: withdraw, QueriedAddress: rdgAddr})

	assert.Nil(t, pe.EventFulfillment)
	assert.Len(t, pe.RejectedStakeWithdrawals, 1)
	assert.Empty(t, pe.PendingStakeWithdrawals)
	assert.Empty(t, pe.Orders())
}

func TestInternalEventTimeAveragesSeedObservations(t *testing.T) {
	t.Parallel()

	seedA := testPartyKey(0x11)
	seedB := testPartyKey(0x22)
	other := testPartyKey(0x33)

	ev := InternalEvent{
		Tx: &schema.Transaction{StructMetadata: &schema.StructMetadata{Time: 9999}},
		Observations: []ObservationRecord{
			{PublicKey: seedA, Time: 1000, Live: true, Accepted: true},
			{PublicKey: seedB, Time: 3000, Live: true, Accepted: true},
			{PublicKey: other, Time: 50_000, Live: true, Accepted: true},
			{PublicKey: seedA, Time: 70_000, Live: false, Accepted: true},
		},
	}
	seeds := []*schema.PublicKey{seedA, seedB}

	got, ok := ev.Time(seeds)
	require.True(t, ok)
	assert.Equal(t, int64(2000), got)

	// Without seeds the transaction's own time stands.
	got, ok = ev.Time(nil)
	require.True(t, ok)
	assert.Equal(t, int64(9999), got)

	// No seed has observed it yet: unconfirmed.
	_, ok = ev.Time([]*schema.PublicKey{testPartyKey(0x44)})
	assert.False(t, ok)
}

func TestPriceHistoryAppendsOnlyOnChange(t *testing.T) {
	t.Parallel()

	pe, rdgAddr, _ := testParty(t, schema.NetworkDev)
	price := 60_000.0

	// RDG alone cannot quote a market; no history entry yet.
	pe.ProcessEvent(InternalEvent{
		Tx:             internalPayment(rdgAddr, 100*1_0000_0000, 0xbb, 1000),
		QueriedAddress: rdgAddr,
	})
	assert.Empty(t, pe.CentralPriceHistory)

	// The first priced BTC deposit brings the market up and records it.
	pe.ProcessEvent(ExternalEvent{Tx: &ExternalTimedTransaction{
		TxID: "seed-1", Timestamp: 2000, HasTimestamp: true,
		OtherAddress: "bc1seed", Amount: 50_000, Incoming: true,
		Currency: schema.Bitcoin, PriceUsd: &price,
	}})
	require.Len(t, pe.CentralPriceHistory, 1)
	assert.Equal(t, pe.CentralPrices[schema.Bitcoin],
		pe.CentralPriceHistory[0].Prices[schema.Bitcoin])

	// Requoting with unchanged reserves and oracle inputs is a no-op
	// even at a later time.
	pe.RecalculatePrices(5000)
	pe.RecalculatePrices(6000)
	assert.Len(t, pe.CentralPriceHistory, 1)

	// Growing the BTC reserve shifts the ratio and earns a new entry.
	pe.ProcessEvent(ExternalEvent{Tx: &ExternalTimedTransaction{
		TxID: "seed-2", Timestamp: 7000, HasTimestamp: true,
		OtherAddress: "bc1seed", Amount: 25_000, Incoming: true,
		Currency: schema.Bitcoin, PriceUsd: &price,
	}})
	require.Len(t, pe.CentralPriceHistory, 2)
	assert.Equal(t, int64(7000), pe.CentralPriceHistory[1].Time)
}
