// Copyright (c) 2024 The redgold developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAmountAddSameCurrency(t *testing.T) {
	t.Parallel()

	a := FromRdg(1_0000_0000)
	b := FromRdg(2_5000_0000)

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.Equal(t, int64(3_5000_0000), sum.Units)
	assert.Equal(t, Redgold, sum.Currency)

	// Addition commutes.
	sum2, err := b.Add(a)
	require.NoError(t, err)
	assert.Equal(t, sum.Units, sum2.Units)
}

func TestAmountCurrencyMismatch(t *testing.T) {
	t.Parallel()

	rdg := FromRdg(100)
	btc := FromBtc(100)

	_, err := rdg.Add(btc)
	require.Error(t, err)
	assert.True(t, IsSchemaErrorCode(err, ErrCurrencyMismatch))

	_, err = rdg.Sub(btc)
	require.Error(t, err)
	assert.True(t, IsSchemaErrorCode(err, ErrCurrencyMismatch))

	_, err = rdg.Mul(btc)
	require.Error(t, err)
	assert.True(t, IsSchemaErrorCode(err, ErrCurrencyMismatch))
}

func TestAmountFromFractional(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		value   float64
		units   int64
		wantErr bool
	}{
		{name: "one rdg", value: 1.0, units: 1_0000_0000},
		{name: "half rdg", value: 0.5, units: 5000_0000},
		{name: "zero rejected", value: 0, wantErr: true},
		{name: "negative rejected", value: -1.5, wantErr: true},
		{name: "above max supply rejected", value: 2_000_000_000, wantErr: true},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			a, err := FromFractional(test.value)
			if test.wantErr {
				require.Error(t, err)
				assert.True(t, IsSchemaErrorCode(err, ErrInvalidAmount))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.units, a.Units)
		})
	}
}

func TestAmountEthereumBigPath(t *testing.T) {
	t.Parallel()

	// One ETH in wei.
	a := FromEthBigString("1000000000000000000")
	assert.Equal(t, 1.0, a.ToFractional())

	// The offset downscale drops to the common 1e8 scale.
	assert.Equal(t, int64(1_0000_0000), a.I64Or())

	// Round trip through the offset representation.
	b := FromEthI64(1_0000_0000)
	assert.Equal(t, "1000000000000000000", b.Big)

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.Equal(t, "2000000000000000000", sum.Big)
	assert.Equal(t, 2.0, sum.ToFractional())
}

func TestAmountEthereumDecimalsOverride(t *testing.T) {
	t.Parallel()

	// A token amount with an explicit denominator keeps its
	// fractional part.
	a := FromEthBigString("1500000000000000000")
	a.Decimals = "1000000000000000000"
	assert.Equal(t, 1.5, a.ToFractional())

	// A 6-decimal token.
	b := FromEthBigString("2500000")
	b.Decimals = "1000000"
	assert.Equal(t, 2.5, b.ToFractional())
}

func TestAmountEthereumFractionalSubWei(t *testing.T) {
	t.Parallel()

	a := FromEthBigString("1")
	assert.Equal(t, int64(0), a.I64Or())
	assert.InDelta(t, 1e-18, a.ToFractional(), 1e-20)
}

func TestAmountZero(t *testing.T) {
	t.Parallel()

	z := Zero(Redgold)
	assert.True(t, z.IsZero())

	ze := Zero(Ethereum)
	assert.Equal(t, "0", ze.Big)
	assert.True(t, ze.IsZero())
}

func TestAmountFromFractionalCur(t *testing.T) {
	t.Parallel()

	sol, err := FromFractionalCur(1.5, Solana)
	require.NoError(t, err)
	assert.Equal(t, int64(1_500_000_000), sol.Units)
	assert.Equal(t, Solana, sol.Currency)

	xmr, err := FromFractionalCur(0.25, Monero)
	require.NoError(t, err)
	assert.Equal(t, int64(250_000_000_000), xmr.Units)

	eth, err := FromFractionalCur(2.0, Ethereum)
	require.NoError(t, err)
	assert.Equal(t, "2000000000000000000", eth.Big)

	_, err = FromFractionalCur(-1.0, Bitcoin)
	require.Error(t, err)
}

func TestAmountRender(t *testing.T) {
	t.Parallel()

	a := FromRdg(1_2345_6789)
	assert.Equal(t, "1.23456789", a.Render8())
	assert.Equal(t, "1.23", a.Render2())
}

func TestEthFeeFixedNormal(t *testing.T) {
	t.Parallel()

	fee := EthFeeFixedNormal(NetworkMain)
	assert.Equal(t, Ethereum, fee.Currency)
	assert.NotEmpty(t, fee.Big)
	assert.Greater(t, fee.ToFractional(), 0.0)

	testFee := EthFeeFixedNormal(NetworkDev)
	assert.Less(t, testFee.ToFractional(), fee.ToFractional())
}
