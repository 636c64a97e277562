// Copyright (c) 2024 The redgold developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package schema

import (
	"strconv"
	"time"
)

const (
	// DustLimit is the minimum integer amount an output may carry.
	DustLimit = 1000

	// MaxTxByteSize bounds the canonical encoded size of a
	// transaction.
	MaxTxByteSize = 100_000

	// MaxInputsOutputs bounds the output index an input may
	// reference.
	MaxInputsOutputs = 10_000
)

// ValidateSchema checks the structural invariants of a transaction:
// dust limit, proof of work, encoded size, options and network,
// duplicate UTXO consumption, input and output presence, message
// length, and index bounds. When network is non-nil the transaction
// must target it; when expectSigned is set every consuming input must
// carry a proof.
func (t *Transaction) ValidateSchema(network *Network, expectSigned bool) error {
	for _, o := range t.Outputs {
		if a := o.OptAmount(); a != nil && a.Units < DustLimit {
			return schemaError(ErrValidation, "output amount is below dust limit").
				WithDetail("amount", strconv.FormatInt(a.Units, 10))
		}
	}

	if err := t.PoWValidate(); err != nil {
		return err
	}

	encoded, err := t.Marshal()
	if err != nil {
		return err
	}
	if len(encoded) > MaxTxByteSize {
		return schemaError(ErrValidation, "transaction too large").
			WithDetail("size_bytes", strconv.Itoa(len(encoded)))
	}

	opts, err := t.OptionsOrErr()
	if err != nil {
		return err
	}
	txNetwork, err := t.NetworkType()
	if err != nil {
		return err
	}
	if network != nil && *network != txNetwork {
		return schemaError(ErrInvalidNetwork, "network type mismatch").
			WithDetail("expected", network.String()).
			WithDetail("actual", txNetwork.String())
	}

	if opts.Contract != nil && txNetwork.IsMain() {
		return schemaError(ErrValidation, "contract transactions not yet supported")
	}

	seen := make(map[string]struct{})
	for _, in := range t.Inputs {
		if in.UtxoID == nil {
			continue
		}
		key := in.UtxoID.Hex()
		if _, ok := seen[key]; ok {
			return schemaError(ErrDuplicateUtxo, "duplicate input utxo consumption").
				WithDetail("utxo_id", key)
		}
		seen[key] = struct{}{}
	}

	if len(t.Inputs) == 0 && !t.IsMetadataOrObservation() {
		return schemaError(ErrMissingField, "missing inputs on transaction")
	}
	if len(t.Outputs) == 0 {
		return schemaError(ErrMissingField, "missing outputs on transaction")
	}

	if m := t.Message(); len(m) > MaxTransactionMessageSize {
		return schemaError(ErrValidation, "transaction message too long").
			WithDetail("length", strconv.Itoa(len(m)))
	}

	for _, in := range t.Inputs {
		if in.UtxoID != nil && in.UtxoID.OutputIndex > MaxInputsOutputs {
			return schemaError(ErrValidation, "input output index out of range").
				WithDetail("output_index", strconv.FormatInt(in.UtxoID.OutputIndex, 10))
		}
		if expectSigned && len(in.Proofs) == 0 {
			// Floating predicate inputs consume nothing and need
			// no proof.
			if in.UtxoID == nil && in.FloatingUtxoID != nil {
				continue
			}
			return schemaError(ErrMissingField, "input proof is missing")
		}
	}

	return nil
}

// ValidateCurrentTime checks the transaction's creation time is within
// maxDelta milliseconds of now. A nil maxDelta uses a one hour window.
func (t *Transaction) ValidateCurrentTime(maxDelta *int64) error {
	tm, err := t.Time()
	if err != nil {
		return err
	}
	window := int64(time.Hour / time.Millisecond)
	if maxDelta != nil {
		window = *maxDelta
	}
	now := time.Now().UnixMilli()
	delta := now - tm
	if delta < 0 {
		delta = -delta
	}
	if delta > window {
		return schemaError(ErrValidation, "transaction time outside accepted window").
			WithDetail("time", strconv.FormatInt(tm, 10)).
			WithDetail("now", strconv.FormatInt(now, 10))
	}
	return nil
}
