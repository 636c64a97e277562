// Copyright (c) 2024 The redgold developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package party

import (
	"context"

	"github.com/pkg/errors"

	"github.com/redgold-io/redgold-core/schema"
)

// OrderFulfillment records the party's obligation arising from a
// processed event: how much of the order was matched against the
// curve, where the settlement must be paid, and the provenance needed
// to pair the eventual receipt back to the originating event.
type OrderFulfillment struct {
	OrderAmount     int64
	FulfilledAmount int64

	// IsAskFulfillmentFromExternalDeposit is set when the order came in
	// as an external deposit buying RDG.
	IsAskFulfillmentFromExternalDeposit bool

	EventTime int64
	TxIDRef   *schema.ExternalTransactionID

	// Destination is where the fulfillment must be paid; its currency
	// decides the settlement rail.
	Destination schema.Address

	IsStakeWithdrawal                bool
	StakeWithdrawalFulfillmentUtxoID *schema.UtxoId

	PrimaryEvent           AddressEvent
	PriorRelatedEvent      AddressEvent
	SuccessiveRelatedEvent AddressEvent

	FulfillmentTxidExternal *schema.ExternalTransactionID

	OrderAmountTyped     schema.Amount
	FulfilledAmountTyped schema.Amount
}

// FulfilledCurrencyAmount returns the fulfilled value typed in the
// destination currency. Ethereum restores the 1e10 precision factor
// dropped during curve matching.
func (o *OrderFulfillment) FulfilledCurrencyAmount() schema.Amount {
	c := o.Destination.Currency
	if c == schema.Ethereum {
		return schema.FromEthI64(o.FulfilledAmount)
	}
	return schema.NewAmount(o.FulfilledAmount, c)
}

// PriceOracle resolves a USD price for a currency at a point in time.
type PriceOracle interface {
	QueryPrice(ctx context.Context, time int64, cur schema.Currency) (float64, error)
}

// DestinationAmountUsdEstimated prices the order through USD at
// current oracle rates and applies the standard two percent haircut,
// yielding the estimated settlement amount in the destination
// currency.
func (o *OrderFulfillment) DestinationAmountUsdEstimated(ctx context.Context, oracle PriceOracle, now int64) (schema.Amount, error) {
	amt := o.OrderAmountTyped
	srcPrice, err := oracle.QueryPrice(ctx, now, amt.Currency)
	if err != nil {
		return schema.Amount{}, errors.Wrap(err, "query source price")
	}
	usdInputValue := amt.ToFractional() * srcPrice
	dstPrice, err := oracle.QueryPrice(ctx, now, o.Destination.Currency)
	if err != nil {
		return schema.Amount{}, errors.Wrap(err, "query destination price")
	}
	dstFrac := usdInputValue / dstPrice
	adjusted := dstFrac * 0.98
	out, err := schema.FromFractionalCur(adjusted, o.Destination.Currency)
	if err != nil {
		return schema.Amount{}, errors.Wrap(err, "convert destination amount")
	}
	return out, nil
}
