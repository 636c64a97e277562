// Copyright (c) 2024 The redgold developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package party

import (
	"strings"

	"github.com/redgold-io/redgold-core/schema"
)

// AddressEvent is a closed union over the two kinds of events a party
// address observes: transactions on an external chain and transactions
// on the Redgold ledger.
type AddressEvent interface {
	// Identifier returns the event's transaction identity: the
	// external txid or the Redgold transaction hash hex.
	Identifier() string

	// Currency returns the currency the event settles in.
	Currency() schema.Currency

	// Time returns the confirmed event time in unix millis, or false
	// when the event is not yet confirmed relative to the given seed
	// set.
	Time(seeds []*schema.PublicKey) (int64, bool)

	addressEvent()
}

// ExternalTimedTransaction is a normalized view of a transaction
// observed on a foreign chain touching a party address.
type ExternalTimedTransaction struct {
	TxID                 string
	Timestamp            int64
	HasTimestamp         bool
	OtherAddress         string
	OtherOutputAddresses []string
	Amount               int64
	BigintAmount         string
	Incoming             bool
	Currency             schema.Currency
	BlockNumber          int64
	PriceUsd             *float64
	Fee                  *schema.Amount
	QueriedAddress       string
}

// CurrencyAmount returns the transaction value on the representation
// path appropriate to its currency.
func (t *ExternalTimedTransaction) CurrencyAmount() schema.Amount {
	if t.BigintAmount != "" {
		a := schema.FromEthBigString(t.BigintAmount)
		a.Currency = t.Currency
		return a
	}
	return schema.NewAmount(t.Amount, t.Currency)
}

// BalanceChange returns the party balance delta this transaction
// implies: full value when incoming, value net of fee when outgoing.
func (t *ExternalTimedTransaction) BalanceChange() schema.Amount {
	amt := t.CurrencyAmount()
	if t.Incoming || t.Fee == nil {
		return amt
	}
	net, err := amt.Sub(*t.Fee)
	if err != nil {
		return amt
	}
	return net
}

// Confirmed reports whether the chain has timestamped the transaction.
func (t *ExternalTimedTransaction) Confirmed() bool {
	return t.HasTimestamp
}

// OtherAddressTyped returns the counterparty address tagged with the
// event currency.
func (t *ExternalTimedTransaction) OtherAddressTyped() schema.Address {
	return schema.Address{Value: t.OtherAddress, Currency: t.Currency, External: true}
}

// ExternalEvent wraps an external chain transaction as an address
// event.
type ExternalEvent struct {
	Tx *ExternalTimedTransaction
}

func (e ExternalEvent) addressEvent() {}

// Identifier returns the external transaction id.
func (e ExternalEvent) Identifier() string { return e.Tx.TxID }

// Currency returns the external chain's currency.
func (e ExternalEvent) Currency() schema.Currency { return e.Tx.Currency }

// Time returns the chain timestamp when present.
func (e ExternalEvent) Time(_ []*schema.PublicKey) (int64, bool) {
	if !e.Tx.HasTimestamp {
		return 0, false
	}
	return e.Tx.Timestamp, true
}

// ObservationRecord is a single node's attestation over an internal
// transaction, carrying the observing key and its validation verdict.
type ObservationRecord struct {
	PublicKey *schema.PublicKey
	Time      int64
	Live      bool
	Accepted  bool
}

// InternalEvent wraps a Redgold ledger transaction touching a party
// address, together with the observations that confirm it and any
// oracle price known at event time.
type InternalEvent struct {
	Tx                   *schema.Transaction
	Observations         []ObservationRecord
	PriceUsd             *float64
	AllRelevantPricesUsd map[schema.Currency]float64
	QueriedAddress       schema.Address
}

func (e InternalEvent) addressEvent() {}

// Identifier returns the transaction hash hex.
func (e InternalEvent) Identifier() string { return e.Tx.HashHex() }

// Currency returns Redgold; internal events always settle on ledger.
func (e InternalEvent) Currency() schema.Currency { return schema.Redgold }

// Time returns the average accepted-live observation time across the
// seed set, or the transaction's own time when no seeds are
// configured. An event no seed has confirmed has no time yet.
func (e InternalEvent) Time(seeds []*schema.PublicKey) (int64, bool) {
	if len(seeds) == 0 {
		t, err := e.Tx.Time()
		return t, err == nil
	}
	var sum, n int64
	for _, o := range e.Observations {
		if !o.Live || !o.Accepted || o.PublicKey == nil {
			continue
		}
		for _, s := range seeds {
			if s.Equal(o.PublicKey) {
				sum += o.Time
				n++
				break
			}
		}
	}
	if n == 0 || sum == 0 {
		return 0, false
	}
	return sum / n, true
}

// eventUsdPrice returns the oracle USD price attached to the event, if
// any.
func eventUsdPrice(e AddressEvent) *float64 {
	switch v := e.(type) {
	case ExternalEvent:
		return v.Tx.PriceUsd
	case InternalEvent:
		return v.PriceUsd
	}
	return nil
}

// eventExternalCurrency returns the external currency an event prices:
// the chain currency for external events, the external destination
// currency for internal swap or stake requests.
func eventExternalCurrency(e AddressEvent) (schema.Currency, bool) {
	switch v := e.(type) {
	case ExternalEvent:
		return v.Tx.Currency, true
	case InternalEvent:
		return v.Tx.ExternalDestinationCurrency()
	}
	return schema.Redgold, false
}

// eventIncoming reports whether the event moves value toward the
// party.
func eventIncoming(e AddressEvent) bool {
	switch v := e.(type) {
	case ExternalEvent:
		return v.Tx.Incoming
	case InternalEvent:
		for _, a := range v.Tx.InputAddressDescriptorOrProofAddresses() {
			if a.Equal(v.QueriedAddress) {
				return false
			}
		}
		return true
	}
	return false
}

// sameEvent reports whether two events reference the same underlying
// transaction.
func sameEvent(a, b AddressEvent) bool {
	ea, aExt := a.(ExternalEvent)
	eb, bExt := b.(ExternalEvent)
	if aExt && bExt {
		return ea.Tx.TxID == eb.Tx.TxID
	}
	ia, aInt := a.(InternalEvent)
	ib, bInt := b.(InternalEvent)
	if aInt && bInt {
		return ia.Tx.HashOr().Equal(ib.Tx.HashOr())
	}
	return false
}

// addressesEqualFold compares rendered addresses case-insensitively;
// external chains vary in address casing.
func addressesEqualFold(a, b string) bool {
	return strings.EqualFold(a, b)
}
