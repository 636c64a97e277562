// Copyright (c) 2024 The redgold developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package config

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/redgold-io/redgold-core/schema"
)

func TestNetworkSelection(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  Config
		want schema.Network
	}{
		{name: "default is mainnet", cfg: Config{}, want: schema.NetworkMain},
		{name: "testnet", cfg: Config{TestNet: true}, want: schema.NetworkTest},
		{name: "devnet", cfg: Config{DevNet: true}, want: schema.NetworkDev},
		{name: "localnet", cfg: Config{LocalNet: true}, want: schema.NetworkLocal},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, tc.cfg.Network())
		})
	}
}

func TestValidLogLevel(t *testing.T) {
	t.Parallel()

	for _, level := range []string{"trace", "debug", "info", "warn", "error", "critical"} {
		require.True(t, ValidLogLevel(level), level)
	}
	for _, level := range []string{"", "verbose", "INFO", "warning"} {
		require.False(t, ValidLogLevel(level), level)
	}
}
