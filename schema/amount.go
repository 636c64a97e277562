// Copyright (c) 2024 The redgold developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package schema

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MinRdgSatsFee is the minimum fee, in RDG sub-units, required on a
// standard transaction.
const MinRdgSatsFee = int64(1000)

// Amount is a currency value tagged with its currency kind.  For most
// currencies the value is held in Units as a fixed-point integer at
// that currency's denomination.  Ethereum-scale (1e18) values exceed
// int64 range, so for those the authoritative representation is Big, an
// arbitrary-precision decimal string of integer sub-units; Units is
// unused on that path.  Exactly one of the two representations is
// authoritative for a given currency kind.
type Amount struct {
	// Units is the fixed-point integer value for non-Ethereum
	// currencies.
	Units int64 `msgpack:"units"`

	// Big is an arbitrary-precision integer rendered as a decimal
	// string, used when Units cannot represent the value.  Empty when
	// unused.
	Big string `msgpack:"big,omitempty"`

	// Currency is the currency kind of this amount.
	Currency Currency `msgpack:"currency"`

	// Decimals optionally overrides the denominator used by
	// ToFractional on the big-integer path, e.g. for ERC-20 tokens with
	// non-standard decimals.  Empty means the currency default.
	Decimals string `msgpack:"decimals,omitempty"`

	// CurrencyID optionally identifies a token contract when the
	// currency kind alone is ambiguous.
	CurrencyID string `msgpack:"currency_id,omitempty"`
}

// bigintOffsetDenomination drops 1e18-scale precision to the common
// 1e8 scale used for order-sizing heuristics.
var bigintOffsetDenomination = decimal.New(1, 10)

var bigintActualDenomination = decimal.New(1, 18)

// NewAmount returns an amount of the given currency from raw
// fixed-point units.
func NewAmount(units int64, currency Currency) Amount {
	return Amount{Units: units, Currency: currency}
}

// FromRdg returns a Redgold amount from raw sub-units.
func FromRdg(units int64) Amount {
	return NewAmount(units, Redgold)
}

// FromBtc returns a Bitcoin amount from satoshis.
func FromBtc(sats int64) Amount {
	return NewAmount(sats, Bitcoin)
}

// FromEthBigString returns an Ethereum amount from a decimal string of
// wei.
func FromEthBigString(wei string) Amount {
	return Amount{Big: wei, Currency: Ethereum}
}

// FromEthI64 returns an Ethereum amount from an int64 at the common
// 1e8 scale, restoring the dropped 1e10 precision factor.
func FromEthI64(offsetUnits int64) Amount {
	wei := decimal.NewFromInt(offsetUnits).Mul(bigintOffsetDenomination)
	return FromEthBigString(wei.String())
}

// FromEthFractional returns an Ethereum amount from a fractional value
// in whole ETH.
func FromEthFractional(eth float64) Amount {
	wei := decimal.NewFromFloat(eth).Mul(bigintActualDenomination).Truncate(0)
	return FromEthBigString(wei.String())
}

// FromFractional converts a fractional RDG value to fixed-point units.
// Values that are not strictly positive or exceed the maximum coin
// supply are rejected.
func FromFractional(v float64) (Amount, error) {
	if v <= 0 {
		return Amount{}, schemaError(ErrInvalidAmount,
			"invalid negative or zero transaction amount")
	}
	if v > MaxCoinSupply {
		return Amount{}, schemaError(ErrInvalidAmount,
			"invalid transaction amount above max supply")
	}
	return FromRdg(int64(v * float64(DecimalMultiplier))), nil
}

// FromFractionalBasis converts a fractional value to fixed-point units
// at an explicit denominator.
func FromFractionalBasis(v float64, basis int64) (Amount, error) {
	if v <= 0 {
		return Amount{}, schemaError(ErrInvalidAmount,
			"invalid negative or zero transaction amount")
	}
	return Amount{Units: int64(v * float64(basis))}, nil
}

// FromFractionalCur converts a fractional value in whole units of the
// given currency to that currency's fixed-point representation.
func FromFractionalCur(v float64, cur Currency) (Amount, error) {
	var a Amount
	var err error
	switch cur {
	case Redgold, Bitcoin, Usd:
		a, err = FromFractional(v)
	case Ethereum:
		if v <= 0 {
			return Amount{}, schemaError(ErrInvalidAmount,
				"invalid negative or zero transaction amount")
		}
		a = FromEthFractional(v)
	case Solana:
		a, err = FromFractionalBasis(v, NanoDecimalMultiplier)
	case Monero:
		a, err = FromFractionalBasis(v, PicoDecimalMultiplier)
	default:
		return Amount{}, schemaError(ErrInvalidAmount, "invalid currency")
	}
	if err != nil {
		return Amount{}, err
	}
	a.Currency = cur
	return a, nil
}

// FromUsd converts a fractional USD value to a fixed-point USD amount.
func FromUsd(v float64) (Amount, error) {
	a, err := FromFractional(v)
	if err != nil {
		return Amount{}, err
	}
	a.Currency = Usd
	return a, nil
}

// Zero returns the zero amount of the given currency, on the correct
// representation path for that currency.
func Zero(cur Currency) Amount {
	a := Amount{Currency: cur}
	if cur == Ethereum {
		a.Big = "0"
	}
	return a
}

// MinFee returns the minimum RDG transaction fee.
func MinFee() Amount {
	return FromRdg(MinRdgSatsFee)
}

// StdPoolFee returns the standard party pool fee in RDG sub-units.
func StdPoolFee() Amount {
	return FromRdg(100_000)
}

// bigAmount parses the big-integer representation.  The boolean reports
// whether one is present and valid.
func (a Amount) bigAmount() (decimal.Decimal, bool) {
	if a.Big == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(a.Big)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// I64Or normalizes the amount to the common 1e8 scale as an int64.  For
// Ethereum this divides the big-integer value by 1e10, a lossy
// downscale used only for order-sizing heuristics, never for exact
// settlement.
func (a Amount) I64Or() int64 {
	if a.Currency == Ethereum {
		d, ok := a.bigAmount()
		if !ok {
			return 0
		}
		return d.Div(bigintOffsetDenomination).Truncate(0).IntPart()
	}
	return a.Units
}

// IsRdg reports whether the amount is denominated in Redgold.
func (a Amount) IsRdg() bool {
	return a.Currency == Redgold
}

// IsZero reports whether the amount's fractional value is zero.
func (a Amount) IsZero() bool {
	return a.ToFractional() == 0
}

// ToFractional converts the amount to a float of whole currency units,
// dividing by the currency's denominator.  Ethereum uses the Decimals
// override when present, else 1e18.
func (a Amount) ToFractional() float64 {
	switch a.Currency {
	case Ethereum:
		d, ok := a.bigAmount()
		if !ok {
			return 0
		}
		if a.Decimals != "" {
			if den, err := decimal.NewFromString(a.Decimals); err == nil && !den.IsZero() {
				f, _ := d.Div(den).Float64()
				return f
			}
		}
		f, _ := d.Float64()
		return f / 1e18
	case Monero:
		return float64(a.Units) / float64(PicoDecimalMultiplier)
	case Solana:
		return float64(a.Units) / float64(NanoDecimalMultiplier)
	default:
		return float64(a.Units) / float64(DecimalMultiplier)
	}
}

// Render8 formats the fractional value with eight decimal places.
func (a Amount) Render8() string {
	return fmt.Sprintf("%.8f", a.ToFractional())
}

// Render2 formats the fractional value with two decimal places.
func (a Amount) Render2() string {
	return fmt.Sprintf("%.2f", a.ToFractional())
}

func (a Amount) checkCurrency(b Amount) error {
	if a.Currency != b.Currency {
		return schemaError(ErrCurrencyMismatch,
			"currency mismatch in amount arithmetic").
			WithDetail("lhs", a.Currency.String()).
			WithDetail("rhs", b.Currency.String())
	}
	return nil
}

// Add returns a+b.  Both operands must share a currency; a mismatch
// returns ErrCurrencyMismatch rather than panicking, since mismatched
// arithmetic reachable from untrusted input must not abort a running
// node.
func (a Amount) Add(b Amount) (Amount, error) {
	if err := a.checkCurrency(b); err != nil {
		return Amount{}, err
	}
	out := a
	if da, ok := a.bigAmount(); ok {
		db, okb := b.bigAmount()
		if !okb {
			return Amount{}, schemaError(ErrInvalidAmount,
				"missing big integer representation on rhs")
		}
		out.Big = da.Add(db).String()
		return out, nil
	}
	out.Units += b.Units
	return out, nil
}

// Sub returns a-b with the same currency contract as Add.
func (a Amount) Sub(b Amount) (Amount, error) {
	if err := a.checkCurrency(b); err != nil {
		return Amount{}, err
	}
	out := a
	if da, ok := a.bigAmount(); ok {
		db, okb := b.bigAmount()
		if !okb {
			return Amount{}, schemaError(ErrInvalidAmount,
				"missing big integer representation on rhs")
		}
		out.Big = da.Sub(db).String()
		return out, nil
	}
	out.Units -= b.Units
	return out, nil
}

// Mul returns a*b with the same currency contract as Add.
func (a Amount) Mul(b Amount) (Amount, error) {
	if err := a.checkCurrency(b); err != nil {
		return Amount{}, err
	}
	out := a
	da, oka := a.bigAmount()
	db, okb := b.bigAmount()
	if oka && okb {
		out.Big = da.Mul(db).String()
		return out, nil
	}
	out.Units *= b.Units
	return out, nil
}

// MulInt64 scales the amount by an integer factor.  Negative factors
// are permitted; they are used to negate pending balance deltas.
func (a Amount) MulInt64(n int64) Amount {
	out := a
	if d, ok := a.bigAmount(); ok {
		out.Big = d.Mul(decimal.NewFromInt(n)).String()
		return out
	}
	out.Units *= n
	return out
}

// Div returns a/b (integer division on the big path) with the same
// currency contract as Add.
func (a Amount) Div(b Amount) (Amount, error) {
	if err := a.checkCurrency(b); err != nil {
		return Amount{}, err
	}
	out := a
	if da, ok := a.bigAmount(); ok {
		db, okb := b.bigAmount()
		if !okb {
			return Amount{}, schemaError(ErrInvalidAmount,
				"missing big integer representation on rhs")
		}
		if db.IsZero() {
			return Amount{}, schemaError(ErrInvalidAmount, "division by zero amount")
		}
		out.Big = da.Div(db).Truncate(0).String()
		return out, nil
	}
	if b.Units == 0 {
		return Amount{}, schemaError(ErrInvalidAmount, "division by zero amount")
	}
	out.Units /= b.Units
	return out, nil
}

// Cmp compares two amounts of the same currency, returning -1, 0 or 1.
func (a Amount) Cmp(b Amount) (int, error) {
	if err := a.checkCurrency(b); err != nil {
		return 0, err
	}
	da, oka := a.bigAmount()
	db, okb := b.bigAmount()
	if oka && okb {
		return da.Cmp(db), nil
	}
	switch {
	case a.Units < b.Units:
		return -1, nil
	case a.Units > b.Units:
		return 1, nil
	default:
		return 0, nil
	}
}

// Ethereum gas settlement constants, fixed per network rather than
// market-derived.

// EthGasPriceFixedNormal returns the fixed gas price in wei for the
// given network.
func EthGasPriceFixedNormal(n Network) Amount {
	if n.IsMain() {
		return FromEthBigString("16511746820")
	}
	return FromEthBigString("12793670539")
}

// EthEstimatedTxGasCostFixedNormal returns the gas units of a plain
// transfer.
func EthEstimatedTxGasCostFixedNormal() Amount {
	return FromEthBigString("21000")
}

// EthFeeFixedNormal returns the fixed total fee (gas * price) in wei
// for a plain transfer on the given network.
func EthFeeFixedNormal(n Network) Amount {
	fee, err := EthEstimatedTxGasCostFixedNormal().Mul(EthGasPriceFixedNormal(n))
	if err != nil {
		// Both operands are Ethereum constants.
		panic(err)
	}
	return fee
}
