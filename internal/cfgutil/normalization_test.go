// Copyright (c) 2024 The redgold developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package cfgutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeAddresses(t *testing.T) {
	t.Parallel()

	got, err := NormalizeAddresses([]string{
		"seed.example.com",
		"seed.example.com:16180",
		"10.0.0.1:9000",
	}, "16180")
	require.NoError(t, err)

	// The bare host gains the default port and then collapses with
	// its explicit duplicate.
	require.Equal(t, []string{
		"seed.example.com:16180",
		"10.0.0.1:9000",
	}, got)
}
