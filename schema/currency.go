// Copyright (c) 2024 The redgold developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package schema implements the canonical Redgold data model: currency
// amounts, the transaction envelope and its builder, UTXO derivation,
// hashing, and schema validation.
package schema

// Currency identifies a supported currency kind.  The zero value is
// Redgold, the native ledger currency.
type Currency int32

const (
	Redgold Currency = iota
	Bitcoin
	Ethereum
	Usd
	Solana
	Monero
)

// Fixed-point denominators per currency.  Most currencies use 1e8
// sub-units per whole unit; Solana uses 1e9 (lamports), Monero 1e12
// (piconero) and Ethereum 1e18 (wei).
const (
	DecimalMultiplier     = int64(1e8)
	NanoDecimalMultiplier = int64(1e9)
	PicoDecimalMultiplier = int64(1e12)
)

// MaxCoinSupply is the total number of whole RDG units that can ever
// exist.  Fractional amount constructors reject values above it.
const MaxCoinSupply = 1_000_000_000

func (c Currency) String() string {
	switch c {
	case Redgold:
		return "RDG"
	case Bitcoin:
		return "BTC"
	case Ethereum:
		return "ETH"
	case Usd:
		return "USD"
	case Solana:
		return "SOL"
	case Monero:
		return "XMR"
	default:
		return "UNKNOWN"
	}
}

// CurrencyFromSymbol maps a ticker symbol back to a Currency.  The
// boolean reports whether the symbol was recognized.
func CurrencyFromSymbol(s string) (Currency, bool) {
	switch s {
	case "RDG":
		return Redgold, true
	case "BTC":
		return Bitcoin, true
	case "ETH":
		return Ethereum, true
	case "USD":
		return Usd, true
	case "SOL":
		return Solana, true
	case "XMR":
		return Monero, true
	default:
		return Redgold, false
	}
}

// Network identifies the network environment a transaction or node is
// operating on.
type Network int32

const (
	NetworkMain Network = iota
	NetworkTest
	NetworkDev
	NetworkStaging
	NetworkLocal
)

// IsMain reports whether the network is the production main net.  Fee
// tables and gas constants differ between main and the test networks.
func (n Network) IsMain() bool {
	return n == NetworkMain
}

func (n Network) String() string {
	switch n {
	case NetworkMain:
		return "main"
	case NetworkTest:
		return "test"
	case NetworkDev:
		return "dev"
	case NetworkStaging:
		return "staging"
	case NetworkLocal:
		return "local"
	default:
		return "unknown"
	}
}
